package wikibase

import (
	"encoding/json"

	"github.com/oklog/ulid/v2"
)

// Reference is an ordered set of snaks supporting a statement.
type Reference struct {
	statement  *Claim
	hash       string
	internalID string
	snaks      orderedSnaks[*Snak]
	// detached is set once a reload of the statement no longer lists it.
	detached bool
}

func newReference(statement *Claim) *Reference {
	r := &Reference{statement: statement}
	r.internalID = r.localID()
	return r
}

// localID builds a process-local identity for a reference without a hash.
func (r *Reference) localID() string {
	id := ulid.Make().String()
	if r.statement != nil && r.statement.id != "" {
		return r.statement.id + "#" + id
	}
	return id
}

// Statement returns the owning statement.
func (r *Reference) Statement() *Claim { return r.statement }

// Hash returns the server-assigned hash, or "" if the reference was never saved.
func (r *Reference) Hash() string { return r.hash }

// InternalID identifies the reference locally. It equals the hash once the
// server has assigned one.
func (r *Reference) InternalID() string { return r.internalID }

// Snaks returns all snaks in insertion order.
func (r *Reference) Snaks() []*Snak { return r.snaks.all() }

// SnaksOrder returns the distinct properties in first-seen order.
func (r *Reference) SnaksOrder() []EntityID { return r.snaks.propertyOrder() }

// GetSnaks returns the snaks for a property given as a prefixed id in any case.
func (r *Reference) GetSnaks(property string) []*Snak {
	return r.snaks.forPrefixedID(property)
}

// AddSnak appends a snak and marks the statement changed.
func (r *Reference) AddSnak(s *Snak) error {
	if s == nil {
		return argErr("nil snak")
	}
	if err := r.checkTouchable(); err != nil {
		return err
	}
	r.snaks.add(s)
	return r.touch()
}

// RemoveSnak removes a snak equal to s. It reports whether one was removed.
func (r *Reference) RemoveSnak(s *Snak) (bool, error) {
	if err := r.checkTouchable(); err != nil {
		return false, err
	}
	if !r.snaks.remove(func(x *Snak) bool { return x == s || x.Equal(s) }) {
		return false, nil
	}
	return true, r.touch()
}

func (r *Reference) checkTouchable() error {
	if r.detached {
		return stateErr("reference %s is no longer attached to its statement", r.internalID)
	}
	if r.statement != nil && !r.statement.IsTouchable() {
		return stateErr("reference %s belongs to a claim that cannot change", r.internalID)
	}
	return nil
}

func (r *Reference) touch() error {
	if r.statement == nil {
		return nil
	}
	return r.statement.touch(r)
}

func (r *Reference) detach() {
	r.statement = nil
	r.detached = true
}

// Encode returns {snaks, snaks-order, hash?}.
func (r *Reference) Encode() (map[string]any, error) {
	groups, order, err := r.snaks.encode()
	if err != nil {
		return nil, err
	}
	out := map[string]any{
		"snaks":       groups,
		"snaks-order": order,
	}
	if r.hash != "" {
		out["hash"] = r.hash
	}
	return out, nil
}

type referenceJSON struct {
	Hash       string          `json:"hash"`
	Snaks      json.RawMessage `json:"snaks"`
	SnaksOrder json.RawMessage `json:"snaks-order"`
}

func decodeReference(statement *Claim, raw json.RawMessage) (*Reference, error) {
	r := &Reference{statement: statement}
	if err := r.fill(raw); err != nil {
		return nil, err
	}
	return r, nil
}

// fill replaces the contents of r with the decoded wire object.
func (r *Reference) fill(raw json.RawMessage) error {
	var rj referenceJSON
	if err := json.Unmarshal(raw, &rj); err != nil {
		return formatErr("reference: %v", err)
	}
	var snaks orderedSnaks[*Snak]
	err := decodeGrouped(rj.Snaks, rj.SnaksOrder, "reference snaks", func(raw json.RawMessage) error {
		s, err := DecodeSnak(raw)
		if err != nil {
			return err
		}
		snaks.add(s)
		return nil
	})
	if err != nil {
		return err
	}
	r.snaks = snaks
	r.hash = rj.Hash
	if r.hash != "" {
		r.internalID = r.hash
	} else if r.internalID == "" {
		r.internalID = r.localID()
	}
	return nil
}
