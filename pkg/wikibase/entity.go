package wikibase

import (
	"maps"
	"slices"

	"wikibasego/pkg/logging"
)

// EntityStatus is the lifecycle state of an entity relative to the server.
type EntityStatus int

const (
	// StatusNew: created locally, not yet on the server.
	StatusNew EntityStatus = iota
	// StatusLoaded: in sync with the last known server revision.
	StatusLoaded
	// StatusChanged: loaded and modified locally since.
	StatusChanged
	// StatusToBeDeleted: will be deleted remotely on the next save.
	StatusToBeDeleted
	// StatusDeleted: gone; no further changes are accepted.
	StatusDeleted
)

func (s EntityStatus) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusLoaded:
		return "loaded"
	case StatusChanged:
		return "changed"
	case StatusToBeDeleted:
		return "to-be-deleted"
	case StatusDeleted:
		return "deleted"
	}
	return "unknown"
}

type aliasStatus int

const (
	aliasExisting aliasStatus = iota
	aliasNew
	aliasRemoved
)

type alias struct {
	value  string
	status aliasStatus
}

// Entity is an item or a property together with its terms, claims and the
// dirty state needed to build the next save. Entities are not safe for
// concurrent use.
type Entity struct {
	kind    EntityType
	gateway Gateway

	id             EntityID
	lastRevisionID int64
	status         EntityStatus

	labels       map[string]string
	descriptions map[string]string
	aliases      map[string][]*alias
	claims       []*Claim

	dirtyLabels       map[string]struct{}
	dirtyDescriptions map[string]struct{}

	// Items only.
	sitelinks      map[string]string
	badges         map[string][]string
	dirtySitelinks map[string]struct{}

	// Properties only; fixed once the property exists.
	dataType string
}

func newEntity(kind EntityType, gw Gateway) *Entity {
	e := &Entity{kind: kind, gateway: gw, status: StatusNew}
	e.resetContents()
	e.clearDirty()
	return e
}

// NewItem creates a blank item that is saved through gw.
func NewItem(gw Gateway) *Entity {
	return newEntity(EntityTypeItem, gw)
}

// NewProperty creates a blank property of the given data type, e.g.
// "wikibase-item" or "string".
func NewProperty(gw Gateway, dataType string) *Entity {
	e := newEntity(EntityTypeProperty, gw)
	e.dataType = dataType
	return e
}

func (e *Entity) resetContents() {
	e.labels = map[string]string{}
	e.descriptions = map[string]string{}
	e.aliases = map[string][]*alias{}
	e.claims = nil
	e.sitelinks = map[string]string{}
	e.badges = map[string][]string{}
}

func (e *Entity) clearDirty() {
	e.dirtyLabels = map[string]struct{}{}
	e.dirtyDescriptions = map[string]struct{}{}
	e.dirtySitelinks = map[string]struct{}{}
}

// Type returns EntityTypeItem or EntityTypeProperty.
func (e *Entity) Type() EntityType { return e.kind }

// ID returns the entity id; it is zero until the entity has been created.
func (e *Entity) ID() EntityID { return e.id }

// LastRevisionID returns the revision the local state is based on.
func (e *Entity) LastRevisionID() int64 { return e.lastRevisionID }

// Status returns the lifecycle state.
func (e *Entity) Status() EntityStatus { return e.status }

// DataType returns the property data type ("" for items).
func (e *Entity) DataType() string { return e.dataType }

// IsTouchable reports whether the entity accepts changes.
func (e *Entity) IsTouchable() bool {
	return e.status != StatusDeleted && e.status != StatusToBeDeleted
}

func (e *Entity) checkTouchable() error {
	if !e.IsTouchable() {
		return stateErr("entity %s is not touchable in status %s", e.describe(), e.status)
	}
	return nil
}

// touch records that the entity differs from the server: Loaded becomes Changed.
func (e *Entity) touch() error {
	if err := e.checkTouchable(); err != nil {
		return err
	}
	if e.status == StatusLoaded {
		e.status = StatusChanged
	}
	return nil
}

func (e *Entity) describe() string {
	if e.id.IsZero() {
		return "(new " + e.kind.String() + ")"
	}
	return e.id.String()
}

func (e *Entity) updateRevision(rev int64) {
	if rev > 0 {
		e.lastRevisionID = rev
	}
}

// Label returns the label in lang, or "" if there is none.
func (e *Entity) Label(lang string) string { return e.labels[lang] }

// Labels returns a copy of all labels keyed by language.
func (e *Entity) Labels() map[string]string { return maps.Clone(e.labels) }

// Description returns the description in lang, or "" if there is none.
func (e *Entity) Description(lang string) string { return e.descriptions[lang] }

// Descriptions returns a copy of all descriptions keyed by language.
func (e *Entity) Descriptions() map[string]string { return maps.Clone(e.descriptions) }

// setTerm applies value to a term map and records key as dirty. It reports
// whether anything changed.
func (e *Entity) setTerm(terms map[string]string, dirty map[string]struct{}, kind, key, value string) (bool, error) {
	if err := e.checkTouchable(); err != nil {
		return false, err
	}
	if terms[key] == value {
		return false, nil
	}
	if value == "" {
		delete(terms, key)
	} else {
		terms[key] = value
	}
	dirty[key] = struct{}{}
	logging.TraceDefault("Entity term changed", "entity", e.describe(), "kind", kind, "key", key)
	return true, e.touch()
}

// SetLabel sets the label in lang. An empty value removes it. Setting the
// current value is a no-op.
func (e *Entity) SetLabel(lang, value string) error {
	_, err := e.setTerm(e.labels, e.dirtyLabels, "label", lang, value)
	return err
}

// RemoveLabel removes the label in lang.
func (e *Entity) RemoveLabel(lang string) error {
	return e.SetLabel(lang, "")
}

// SetDescription sets the description in lang. An empty value removes it.
func (e *Entity) SetDescription(lang, value string) error {
	_, err := e.setTerm(e.descriptions, e.dirtyDescriptions, "description", lang, value)
	return err
}

// RemoveDescription removes the description in lang.
func (e *Entity) RemoveDescription(lang string) error {
	return e.SetDescription(lang, "")
}

// Aliases returns the aliases in lang, excluding ones marked for removal.
func (e *Entity) Aliases(lang string) []string {
	var out []string
	for _, a := range e.aliases[lang] {
		if a.status != aliasRemoved {
			out = append(out, a.value)
		}
	}
	return out
}

// AllAliases returns the visible aliases of every language.
func (e *Entity) AllAliases() map[string][]string {
	out := make(map[string][]string, len(e.aliases))
	for lang := range e.aliases {
		if list := e.Aliases(lang); len(list) > 0 {
			out[lang] = list
		}
	}
	return out
}

func (e *Entity) findAlias(lang, value string) *alias {
	for _, a := range e.aliases[lang] {
		if a.value == value {
			return a
		}
	}
	return nil
}

// AddAlias adds an alias in lang. Re-adding an alias marked for removal
// restores it.
func (e *Entity) AddAlias(lang, value string) error {
	if err := e.checkTouchable(); err != nil {
		return err
	}
	if value == "" {
		return argErr("empty alias")
	}
	if a := e.findAlias(lang, value); a != nil {
		if a.status == aliasRemoved {
			a.status = aliasExisting
		}
		return nil
	}
	e.aliases[lang] = append(e.aliases[lang], &alias{value: value, status: aliasNew})
	return e.touch()
}

// RemoveAlias removes an alias in lang. An alias added since the last save is
// dropped outright; a saved one is marked for removal.
func (e *Entity) RemoveAlias(lang, value string) error {
	if err := e.checkTouchable(); err != nil {
		return err
	}
	a := e.findAlias(lang, value)
	if a == nil || a.status == aliasRemoved {
		return nil
	}
	if a.status == aliasNew {
		e.aliases[lang] = slices.DeleteFunc(e.aliases[lang], func(x *alias) bool { return x == a })
		if len(e.aliases[lang]) == 0 {
			delete(e.aliases, lang)
		}
	} else {
		a.status = aliasRemoved
	}
	return e.touch()
}

// Sitelink returns the page title linked on site, or "" if there is none.
func (e *Entity) Sitelink(site string) string { return e.sitelinks[site] }

// Sitelinks returns a copy of all sitelinks keyed by site.
func (e *Entity) Sitelinks() map[string]string { return maps.Clone(e.sitelinks) }

// SitelinkBadges returns the badges of the sitelink on site as read from the server.
func (e *Entity) SitelinkBadges(site string) []string { return slices.Clone(e.badges[site]) }

// SetSitelink links the item to title on site. An empty title removes the link.
func (e *Entity) SetSitelink(site, title string) error {
	if e.kind != EntityTypeItem {
		return stateErr("%s has no sitelinks", e.kind)
	}
	changed, err := e.setTerm(e.sitelinks, e.dirtySitelinks, "sitelink", site, title)
	if changed {
		delete(e.badges, site)
	}
	return err
}

// RemoveSitelink removes the link to site.
func (e *Entity) RemoveSitelink(site string) error {
	return e.SetSitelink(site, "")
}

// Claims returns the claims not marked as deleted, in order.
func (e *Entity) Claims() []*Claim {
	out := make([]*Claim, 0, len(e.claims))
	for _, c := range e.claims {
		if c.status != ClaimDeleted {
			out = append(out, c)
		}
	}
	return out
}

// GetClaims returns the visible claims whose main snak uses property, given
// as a prefixed id in any case.
func (e *Entity) GetClaims(property string) []*Claim {
	p, err := ParseEntityID(property)
	if err != nil {
		return nil
	}
	var out []*Claim
	for _, c := range e.Claims() {
		if c.PropertyID() == p {
			out = append(out, c)
		}
	}
	return out
}

// AddClaim adds a plain claim with the given main snak.
func (e *Entity) AddClaim(mainSnak *Snak) (*Claim, error) {
	return e.addClaim(ClaimKindClaim, mainSnak, RankUnknown)
}

// AddStatement adds a statement with the given main snak and rank.
func (e *Entity) AddStatement(mainSnak *Snak, rank Rank) (*Claim, error) {
	if rank == RankUnknown {
		return nil, argErr("statement rank must be known")
	}
	return e.addClaim(ClaimKindStatement, mainSnak, rank)
}

func (e *Entity) addClaim(kind ClaimKind, mainSnak *Snak, rank Rank) (*Claim, error) {
	if mainSnak == nil {
		return nil, argErr("nil main snak")
	}
	if err := e.checkTouchable(); err != nil {
		return nil, err
	}
	c := newClaim(e, kind, mainSnak, rank)
	e.claims = append(e.claims, c)
	return c, e.touch()
}

// RemoveClaim removes c. Unsaved claims are dropped at once; saved ones are
// removed remotely on the next save.
func (e *Entity) RemoveClaim(c *Claim) error {
	if err := e.checkTouchable(); err != nil {
		return err
	}
	if c == nil || c.entity != e || !slices.Contains(e.claims, c) {
		return argErr("claim does not belong to entity %s", e.describe())
	}
	if c.status == ClaimDeleted {
		return nil
	}
	return c.Delete()
}

func (e *Entity) dropClaim(c *Claim) {
	e.claims = slices.DeleteFunc(e.claims, func(x *Claim) bool { return x == c })
}

// Delete marks the entity for deletion. A new entity is discarded at once;
// an existing one becomes ToBeDeleted and is deleted remotely on Save.
func (e *Entity) Delete() error {
	if err := e.checkTouchable(); err != nil {
		return err
	}
	if e.status == StatusNew {
		e.status = StatusDeleted
		e.resetContents()
		e.clearDirty()
		return nil
	}
	e.status = StatusToBeDeleted
	return nil
}
