package wikibase

import (
	"context"
	"encoding/json"
	"slices"
)

// savedOwner returns the claim and entity through which a sub-object of c can
// be written directly. The claim must already exist on the server.
func savedOwner(c *Claim, what string) (*Entity, error) {
	if c == nil || c.entity == nil || c.entity.gateway == nil {
		return nil, stateErr("%s is not attached to an entity", what)
	}
	if c.id == "" || c.status == ClaimNew {
		return nil, stateErr("%s belongs to an unsaved claim", what)
	}
	if !c.IsTouchable() {
		return nil, stateErr("%s belongs to a claim that cannot change", what)
	}
	return c.entity, nil
}

// Save writes this reference alone via the set-reference action and adopts
// the hash the server assigns. The statement no longer counts the reference
// as pending.
func (r *Reference) Save(ctx context.Context, summary string) error {
	e, err := savedOwner(r.statement, "reference")
	if err != nil {
		return err
	}
	groups, order, err := r.snaks.encode()
	if err != nil {
		return err
	}
	snaks, err := json.Marshal(groups)
	if err != nil {
		return err
	}
	res, err := e.gateway.SetReference(ctx, r.statement.id, snaks, order, r.hash, e.lastRevisionID, summary)
	if err != nil {
		return err
	}
	if len(res.Reference) > 0 {
		if err := r.fill(res.Reference); err != nil {
			return err
		}
	}
	r.statement.settle(r)
	e.updateRevision(res.Revision())
	return nil
}

// Remove deletes this reference remotely (when it has a hash) and detaches
// it from its statement.
func (r *Reference) Remove(ctx context.Context, summary string) error {
	c := r.statement
	if r.hash == "" {
		if c == nil {
			return nil
		}
		_, err := c.RemoveReference(r)
		return err
	}
	e, err := savedOwner(c, "reference")
	if err != nil {
		return err
	}
	res, err := e.gateway.RemoveReferences(ctx, c.id, []string{r.hash}, e.lastRevisionID, summary)
	if err != nil {
		return err
	}
	c.references = slices.DeleteFunc(c.references, func(x *Reference) bool { return x == r })
	c.settle(r)
	e.updateRevision(res.Revision())
	return nil
}

// Save writes this qualifier alone via the set-qualifier action and adopts
// the hash the server assigns.
func (q *Qualifier) Save(ctx context.Context, summary string) error {
	c := q.claim
	e, err := savedOwner(c, "qualifier")
	if err != nil {
		return err
	}
	var value json.RawMessage
	if dv := q.DataValue(); dv != nil {
		enc, err := dv.Encode()
		if err != nil {
			return err
		}
		if value, err = json.Marshal(enc); err != nil {
			return err
		}
	}
	res, err := e.gateway.SetQualifier(ctx, c.id, q.Type(), q.PropertyID().String(), value, q.hash, e.lastRevisionID, summary)
	if err != nil {
		return err
	}
	if len(res.Claim) > 0 {
		saved, err := DecodeClaim(nil, res.Claim)
		if err != nil {
			return err
		}
		for _, sq := range saved.GetQualifiers(q.PropertyID().PrefixedID()) {
			if sq.Snak.Equal(q.Snak) {
				q.hash = sq.hash
				break
			}
		}
	}
	c.settle(q)
	e.updateRevision(res.Revision())
	return nil
}

// Remove deletes this qualifier remotely (when it has a hash) and detaches it
// from its claim.
func (q *Qualifier) Remove(ctx context.Context, summary string) error {
	c := q.claim
	if q.hash == "" {
		if c == nil {
			return nil
		}
		_, err := c.RemoveQualifier(q)
		return err
	}
	e, err := savedOwner(c, "qualifier")
	if err != nil {
		return err
	}
	res, err := e.gateway.RemoveQualifiers(ctx, c.id, []string{q.hash}, e.lastRevisionID, summary)
	if err != nil {
		return err
	}
	c.qualifiers.remove(func(x *Qualifier) bool { return x == q })
	c.settle(q)
	e.updateRevision(res.Revision())
	return nil
}
