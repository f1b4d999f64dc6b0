package wikibase

import (
	"regexp"
	"strconv"
	"strings"
)

// EntityType distinguishes the entity kinds a repository stores.
type EntityType int

const (
	EntityTypeItem EntityType = iota
	EntityTypeProperty
)

var idPattern = regexp.MustCompile(`^(\w)(\d+)(#.*)?$`)

// String returns the wire name used in "entity-type" fields.
func (t EntityType) String() string {
	switch t {
	case EntityTypeItem:
		return "item"
	case EntityTypeProperty:
		return "property"
	}
	return "unknown"
}

// Prefix returns the lowercase id prefix letter.
func (t EntityType) Prefix() string {
	switch t {
	case EntityTypeItem:
		return "q"
	case EntityTypeProperty:
		return "p"
	}
	return ""
}

// ParseEntityType maps a wire name ("item", "property") to its type.
func ParseEntityType(name string) (EntityType, error) {
	switch strings.ToLower(name) {
	case "item":
		return EntityTypeItem, nil
	case "property":
		return EntityTypeProperty, nil
	}
	return 0, formatErr("unknown entity type %q", name)
}

func entityTypeFromPrefix(prefix string) (EntityType, bool) {
	switch strings.ToLower(prefix) {
	case "q":
		return EntityTypeItem, true
	case "p":
		return EntityTypeProperty, true
	}
	return 0, false
}

// EntityID identifies an item or property. The zero value is not a valid id;
// use IsZero to test for "unset".
type EntityID struct {
	Type      EntityType
	NumericID uint64
}

// NewEntityID builds an id from its parts.
func NewEntityID(t EntityType, numericID uint64) EntityID {
	return EntityID{Type: t, NumericID: numericID}
}

// ParseEntityID parses "Q42", "p31" or "Q42#P31". The fragment is ignored.
func ParseEntityID(s string) (EntityID, error) {
	m := idPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return EntityID{}, formatErr("invalid entity id %q", s)
	}
	t, ok := entityTypeFromPrefix(m[1])
	if !ok {
		return EntityID{}, formatErr("unknown entity id prefix in %q", s)
	}
	n, err := strconv.ParseUint(m[2], 10, 64)
	if err != nil {
		return EntityID{}, formatErr("invalid numeric id in %q", s)
	}
	return EntityID{Type: t, NumericID: n}, nil
}

// MustParseEntityID is ParseEntityID for constants; it panics on error.
func MustParseEntityID(s string) EntityID {
	id, err := ParseEntityID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// PrefixedID formats the id with a lowercase prefix, e.g. "q42".
func (id EntityID) PrefixedID() string {
	return id.Type.Prefix() + strconv.FormatUint(id.NumericID, 10)
}

// String returns the upper-case wire form, e.g. "Q42".
func (id EntityID) String() string {
	return strings.ToUpper(id.PrefixedID())
}

// IsZero reports whether the id is unset.
func (id EntityID) IsZero() bool {
	return id == EntityID{}
}

// IsProperty reports whether the id names a property.
func (id EntityID) IsProperty() bool {
	return id.Type == EntityTypeProperty
}

// MarshalText implements encoding.TextMarshaler using the upper-case form.
func (id EntityID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *EntityID) UnmarshalText(b []byte) error {
	parsed, err := ParseEntityID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
