package wikibase

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"

	"github.com/google/uuid"
)

// ClaimKind discriminates plain claims from statements.
type ClaimKind int

const (
	ClaimKindClaim ClaimKind = iota
	ClaimKindStatement
)

// ClaimStatus is the lifecycle state of a claim relative to the server.
type ClaimStatus int

const (
	// ClaimExisting: decoded from the server and unchanged since.
	ClaimExisting ClaimStatus = iota
	// ClaimNew: created locally and never saved.
	ClaimNew
	// ClaimModified: changed locally after being decoded.
	ClaimModified
	// ClaimDeleted: marked for removal on the next save.
	ClaimDeleted
)

func (s ClaimStatus) String() string {
	switch s {
	case ClaimExisting:
		return "existing"
	case ClaimNew:
		return "new"
	case ClaimModified:
		return "modified"
	case ClaimDeleted:
		return "deleted"
	}
	return "unknown"
}

// Rank orders statements for the same property.
type Rank int

const (
	RankUnknown Rank = iota
	RankPreferred
	RankNormal
	RankDeprecated
)

func (r Rank) String() string {
	switch r {
	case RankPreferred:
		return "preferred"
	case RankNormal:
		return "normal"
	case RankDeprecated:
		return "deprecated"
	}
	return "unknown"
}

// ParseRank maps a wire rank name to a Rank; unrecognized names yield RankUnknown.
func ParseRank(s string) Rank {
	switch s {
	case "preferred":
		return RankPreferred
	case "normal":
		return RankNormal
	case "deprecated":
		return RankDeprecated
	}
	return RankUnknown
}

// Claim is a main snak plus qualifiers. A claim of kind ClaimKindStatement
// additionally carries a rank and references.
type Claim struct {
	kind       ClaimKind
	entity     *Entity
	id         string
	mainSnak   *Snak
	qualifiers orderedSnaks[*Qualifier]
	status     ClaimStatus

	rank       Rank
	references []*Reference

	// pending holds what changed since the last sync: the claim itself, or
	// the qualifiers and references added or edited. A direct sub-object
	// save clears its own entry.
	pending map[any]struct{}
}

func newClaim(e *Entity, kind ClaimKind, mainSnak *Snak, rank Rank) *Claim {
	c := &Claim{
		kind:     kind,
		entity:   e,
		mainSnak: mainSnak,
		status:   ClaimNew,
		rank:     rank,
	}
	c.RefreshID()
	return c
}

// Kind reports whether c is a plain claim or a statement.
func (c *Claim) Kind() ClaimKind { return c.kind }

// IsStatement reports whether c carries rank and references.
func (c *Claim) IsStatement() bool { return c.kind == ClaimKindStatement }

// ID returns the claim GUID ("Q42$<uuid>"), or "" until one is assigned.
func (c *Claim) ID() string { return c.id }

// Status returns the lifecycle state.
func (c *Claim) Status() ClaimStatus { return c.status }

// Entity returns the owning entity, if any.
func (c *Claim) Entity() *Entity { return c.entity }

// MainSnak returns the main snak.
func (c *Claim) MainSnak() *Snak { return c.mainSnak }

// PropertyID returns the main snak property.
func (c *Claim) PropertyID() EntityID { return c.mainSnak.PropertyID() }

// Rank returns the statement rank; plain claims report RankUnknown.
func (c *Claim) Rank() Rank { return c.rank }

// Qualifiers returns all qualifiers in insertion order.
func (c *Claim) Qualifiers() []*Qualifier { return c.qualifiers.all() }

// QualifiersOrder returns the distinct qualifier properties in first-seen order.
func (c *Claim) QualifiersOrder() []EntityID { return c.qualifiers.propertyOrder() }

// GetQualifiers returns the qualifiers for a property given as a prefixed id.
func (c *Claim) GetQualifiers(property string) []*Qualifier {
	return c.qualifiers.forPrefixedID(property)
}

// References returns the statement references.
func (c *Claim) References() []*Reference { return slices.Clone(c.references) }

// IsTouchable reports whether the claim and its entity accept changes.
func (c *Claim) IsTouchable() bool {
	if c.status == ClaimDeleted {
		return false
	}
	return c.entity == nil || c.entity.IsTouchable()
}

// touch records a local change to part (the claim or one of its qualifiers
// or references): Existing becomes Modified and the owning entity is touched
// as well.
func (c *Claim) touch(part any) error {
	if !c.IsTouchable() {
		return stateErr("claim %q cannot change in status %s", c.id, c.status)
	}
	if c.pending == nil {
		c.pending = map[any]struct{}{}
	}
	c.pending[part] = struct{}{}
	if c.status == ClaimExisting {
		c.status = ClaimModified
	}
	if c.entity != nil {
		return c.entity.touch()
	}
	return nil
}

// settle drops part from the pending changes and returns a Modified claim to
// Existing once nothing is left to send.
func (c *Claim) settle(part any) {
	delete(c.pending, part)
	if c.status == ClaimModified && len(c.pending) == 0 {
		c.status = ClaimExisting
	}
}

// synced records that the server holds the current state of c.
func (c *Claim) synced() {
	c.status = ClaimExisting
	c.pending = nil
}

// SetMainSnak replaces the main snak. The property must stay the same.
func (c *Claim) SetMainSnak(s *Snak) error {
	if s == nil {
		return argErr("nil main snak")
	}
	if s.PropertyID() != c.mainSnak.PropertyID() {
		return stateErr("main snak property %s cannot change to %s", c.mainSnak.PropertyID(), s.PropertyID())
	}
	if !c.IsTouchable() {
		return stateErr("claim %q cannot change in status %s", c.id, c.status)
	}
	if s.Equal(c.mainSnak) {
		return nil
	}
	c.mainSnak = s
	return c.touch(c)
}

// AddQualifier attaches s as a qualifier.
func (c *Claim) AddQualifier(s *Snak) (*Qualifier, error) {
	if s == nil {
		return nil, argErr("nil qualifier snak")
	}
	if !c.IsTouchable() {
		return nil, stateErr("claim %q cannot change in status %s", c.id, c.status)
	}
	q := &Qualifier{Snak: s, claim: c}
	c.qualifiers.add(q)
	return q, c.touch(q)
}

// RemoveQualifier detaches q. It reports whether q was attached. Removing a
// qualifier that was never saved only undoes its addition.
func (c *Claim) RemoveQualifier(q *Qualifier) (bool, error) {
	if !c.IsTouchable() {
		return false, stateErr("claim %q cannot change in status %s", c.id, c.status)
	}
	if !c.qualifiers.remove(func(x *Qualifier) bool { return x == q }) {
		return false, nil
	}
	if q.hash == "" {
		c.settle(q)
		return true, nil
	}
	return true, c.touch(c)
}

// SetRank changes the statement rank.
func (c *Claim) SetRank(r Rank) error {
	if !c.IsStatement() {
		return stateErr("claim %q is not a statement", c.id)
	}
	if !c.IsTouchable() {
		return stateErr("claim %q cannot change in status %s", c.id, c.status)
	}
	if r == c.rank {
		return nil
	}
	c.rank = r
	return c.touch(c)
}

// AddReference creates a reference from snaks and attaches it to the statement.
func (c *Claim) AddReference(snaks ...*Snak) (*Reference, error) {
	if !c.IsStatement() {
		return nil, stateErr("claim %q is not a statement", c.id)
	}
	if !c.IsTouchable() {
		return nil, stateErr("claim %q cannot change in status %s", c.id, c.status)
	}
	r := newReference(c)
	for _, s := range snaks {
		if s == nil {
			return nil, argErr("nil reference snak")
		}
		r.snaks.add(s)
	}
	c.references = append(c.references, r)
	return r, c.touch(r)
}

// RemoveReference detaches r. It reports whether r was attached. Removing a
// reference that was never saved only undoes its addition.
func (c *Claim) RemoveReference(r *Reference) (bool, error) {
	if !c.IsStatement() {
		return false, stateErr("claim %q is not a statement", c.id)
	}
	if !c.IsTouchable() {
		return false, stateErr("claim %q cannot change in status %s", c.id, c.status)
	}
	i := slices.Index(c.references, r)
	if i < 0 {
		return false, nil
	}
	c.references = slices.Delete(c.references, i, i+1)
	if r.hash == "" {
		c.settle(r)
		return true, nil
	}
	return true, c.touch(c)
}

// Delete marks the claim for removal on the next save. A claim that was
// never saved is dropped from its entity at once, GUID or not.
func (c *Claim) Delete() error {
	if !c.IsTouchable() {
		return stateErr("claim %q cannot be deleted in status %s", c.id, c.status)
	}
	wasNew := c.status == ClaimNew
	c.status = ClaimDeleted
	c.pending = nil
	if c.entity == nil {
		return nil
	}
	if wasNew {
		c.entity.dropClaim(c)
	}
	return c.entity.touch()
}

// RefreshID assigns "<ENTITY>$<uuid>" once the owning entity has an id and
// the claim has none.
func (c *Claim) RefreshID() {
	if c.id != "" || c.entity == nil || c.entity.id.IsZero() {
		return
	}
	c.id = c.entity.id.String() + "$" + uuid.NewString()
}

// Save synchronizes this claim alone: set for New/Modified, remove for
// Deleted, nothing for Existing.
func (c *Claim) Save(ctx context.Context, summary string) error {
	_, err := c.save(ctx, summary)
	return err
}

// save reports whether a remote call was made.
func (c *Claim) save(ctx context.Context, summary string) (bool, error) {
	if c.status == ClaimExisting {
		return false, nil
	}
	if c.entity == nil || c.entity.gateway == nil {
		return false, stateErr("claim %q has no entity to save through", c.id)
	}
	e := c.entity
	gw := e.gateway

	if c.status == ClaimDeleted {
		if c.id == "" {
			e.dropClaim(c)
			return false, nil
		}
		res, err := gw.RemoveClaims(ctx, []string{c.id}, e.lastRevisionID, summary)
		if err != nil {
			return false, err
		}
		e.updateRevision(res.Revision())
		e.dropClaim(c)
		slog.Debug("Claim removed", "claim", c.id, "revision", e.lastRevisionID)
		return true, nil
	}

	c.RefreshID()
	if c.id == "" {
		return false, stateErr("claim for %s has no id; save the entity first", c.PropertyID())
	}
	enc, err := c.Encode()
	if err != nil {
		return false, err
	}
	data, err := json.Marshal(enc)
	if err != nil {
		return false, err
	}
	res, err := gw.SetClaim(ctx, data, e.lastRevisionID, summary)
	if err != nil {
		return false, err
	}
	if len(res.Claim) > 0 {
		if err := c.fill(res.Claim); err != nil {
			return true, err
		}
	}
	c.synced()
	e.updateRevision(res.Revision())
	slog.Debug("Claim saved", "claim", c.id, "revision", e.lastRevisionID)
	return true, nil
}

// Encode returns the wire claim. Statements add type, rank and references.
func (c *Claim) Encode() (map[string]any, error) {
	main, err := c.mainSnak.Encode()
	if err != nil {
		return nil, err
	}
	groups, order, err := c.qualifiers.encode()
	if err != nil {
		return nil, err
	}
	out := map[string]any{
		"mainsnak":         main,
		"qualifiers":       groups,
		"qualifiers-order": order,
	}
	if c.id != "" {
		out["id"] = c.id
	}
	if !c.IsStatement() {
		return out, nil
	}

	if c.rank == RankUnknown {
		return nil, stateErr("statement %q has unknown rank", c.id)
	}
	refs := make([]any, 0, len(c.references))
	for _, r := range c.references {
		enc, err := r.Encode()
		if err != nil {
			return nil, err
		}
		refs = append(refs, enc)
	}
	out["type"] = "statement"
	out["rank"] = c.rank.String()
	out["references"] = refs
	return out, nil
}

type claimJSON struct {
	ID              string          `json:"id"`
	Type            string          `json:"type"`
	MainSnak        json.RawMessage `json:"mainsnak"`
	Qualifiers      json.RawMessage `json:"qualifiers"`
	QualifiersOrder json.RawMessage `json:"qualifiers-order"`
	Rank            string          `json:"rank"`
	References      json.RawMessage `json:"references"`
}

// DecodeClaim parses a wire claim owned by e (which may be nil). A "type" of
// "statement" yields a statement; the claim starts out Existing.
func DecodeClaim(e *Entity, raw json.RawMessage) (*Claim, error) {
	c, err := decodeClaimState(raw, ClaimKindClaim)
	if err != nil {
		return nil, err
	}
	c.entity = e
	return c, nil
}

// fill refreshes c from a wire claim. The main snak property must not change.
func (c *Claim) fill(raw json.RawMessage) error {
	fresh, err := decodeClaimState(raw, c.kind)
	if err != nil {
		return err
	}
	if c.mainSnak != nil && c.mainSnak.PropertyID() != fresh.PropertyID() {
		return stateErr("claim %q main snak property changed from %s to %s", c.id, c.mainSnak.PropertyID(), fresh.PropertyID())
	}
	c.merge(fresh)
	return nil
}

// decodeClaimState parses a wire claim into a detached Existing claim. kind
// applies when the wire object has no "type".
func decodeClaimState(raw json.RawMessage, kind ClaimKind) (*Claim, error) {
	var cj claimJSON
	if err := json.Unmarshal(raw, &cj); err != nil {
		return nil, formatErr("claim: %v", err)
	}
	if len(cj.MainSnak) == 0 {
		return nil, formatErr("claim requires mainsnak")
	}
	main, err := DecodeSnak(cj.MainSnak)
	if err != nil {
		return nil, err
	}
	c := &Claim{kind: kind, id: cj.ID, mainSnak: main, status: ClaimExisting}

	err = decodeGrouped(cj.Qualifiers, cj.QualifiersOrder, "qualifiers", func(raw json.RawMessage) error {
		q, err := decodeQualifier(c, raw)
		if err != nil {
			return err
		}
		c.qualifiers.add(q)
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch cj.Type {
	case "statement":
		c.kind = ClaimKindStatement
	case "claim":
		c.kind = ClaimKindClaim
	}
	if c.kind != ClaimKindStatement {
		return c, nil
	}

	c.rank = ParseRank(cj.Rank)
	if len(cj.References) > 0 && string(cj.References) != "null" {
		var list []json.RawMessage
		if err := json.Unmarshal(cj.References, &list); err != nil {
			return nil, formatErr("claim references must be a list")
		}
		for _, rr := range list {
			r, err := decodeReference(c, rr)
			if err != nil {
				return nil, err
			}
			c.references = append(c.references, r)
		}
	}
	return c, nil
}

// merge takes over the decoded state of fresh. c keeps its identity, and so
// do the qualifiers and references that line up with the decoded ones, so
// handles taken before a reload stay attached. Those that no longer exist
// are detached.
func (c *Claim) merge(fresh *Claim) {
	c.kind = fresh.kind
	c.mainSnak = fresh.mainSnak
	c.rank = fresh.rank
	if fresh.id != "" {
		c.id = fresh.id
	}

	var quals orderedSnaks[*Qualifier]
	for _, p := range fresh.qualifiers.propertyOrder() {
		group := fresh.qualifiers.forProperty(p)
		for i, held := range pairHeld(c.qualifiers.forProperty(p), group, (*Qualifier).Hash) {
			q := group[i]
			if held != nil {
				held.Snak, held.hash = q.Snak, q.hash
				q = held
			}
			q.claim = c
			quals.add(q)
		}
	}
	for _, q := range c.qualifiers.all() {
		if !slices.Contains(quals.items, q) {
			q.claim = nil
		}
	}

	refs := make([]*Reference, 0, len(fresh.references))
	for i, held := range pairHeld(c.references, fresh.references, (*Reference).Hash) {
		r := fresh.references[i]
		if held != nil {
			held.snaks, held.hash = r.snaks, r.hash
			if r.hash != "" {
				held.internalID = r.hash
			}
			r = held
		}
		r.statement = c
		refs = append(refs, r)
	}
	for _, r := range c.references {
		if !slices.Contains(refs, r) {
			r.detach()
		}
	}

	c.qualifiers = quals
	c.references = refs
}

// pairHeld lines up held objects with freshly decoded ones: by position when
// both lists have the same length, otherwise by hash. Unmatched entries in
// the result are nil.
func pairHeld[T comparable](held, fresh []T, hash func(T) string) []T {
	out := make([]T, len(fresh))
	if len(held) == len(fresh) {
		copy(out, held)
		return out
	}
	used := make([]bool, len(held))
	for i, f := range fresh {
		h := hash(f)
		if h == "" {
			continue
		}
		for j, x := range held {
			if !used[j] && hash(x) == h {
				out[i] = x
				used[j] = true
				break
			}
		}
	}
	return out
}

// detach cuts c loose from its entity after a reload no longer lists it.
func (c *Claim) detach() {
	c.status = ClaimDeleted
	c.pending = nil
}
