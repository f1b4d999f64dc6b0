package wikibase

import (
	"encoding/json"
	"strings"
)

// SnakType says whether a snak carries a value, no value or an unknown value.
type SnakType int

const (
	SnakValue SnakType = iota
	SnakNone
	SnakSome
)

// String returns the wire identifier ("value", "novalue", "somevalue").
func (t SnakType) String() string {
	switch t {
	case SnakValue:
		return "value"
	case SnakNone:
		return "novalue"
	case SnakSome:
		return "somevalue"
	}
	return "unknown"
}

// ParseSnakType maps a wire identifier to its SnakType.
func ParseSnakType(s string) (SnakType, error) {
	switch s {
	case "value":
		return SnakValue, nil
	case "novalue":
		return SnakNone, nil
	case "somevalue":
		return SnakSome, nil
	}
	return 0, formatErr("unknown snak type %q", s)
}

// Snak is a (type, property, value) assertion. It is immutable.
type Snak struct {
	typ      SnakType
	property EntityID
	value    DataValue
}

// NewSnak creates a snak. The property must be a property id; a value snak
// requires a data value and the other types must not carry one.
func NewSnak(typ SnakType, property EntityID, value DataValue) (*Snak, error) {
	if !property.IsProperty() {
		return nil, argErr("snak property %s is not a property id", property)
	}
	switch typ {
	case SnakValue:
		if value == nil {
			return nil, argErr("value snak for %s requires a data value", property)
		}
	case SnakNone, SnakSome:
		if value != nil {
			return nil, argErr("%s snak for %s must not carry a data value", typ, property)
		}
	default:
		return nil, argErr("unknown snak type %d", typ)
	}
	return &Snak{typ: typ, property: property, value: value}, nil
}

// NewValueSnak creates a value snak.
func NewValueSnak(property EntityID, value DataValue) (*Snak, error) {
	return NewSnak(SnakValue, property, value)
}

// Type returns the snak type.
func (s *Snak) Type() SnakType { return s.typ }

// PropertyID returns the property the snak is about.
func (s *Snak) PropertyID() EntityID { return s.property }

// DataValue returns the value, or nil for novalue/somevalue snaks.
func (s *Snak) DataValue() DataValue { return s.value }

// Equal compares type, property and value.
func (s *Snak) Equal(o *Snak) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.typ != o.typ || s.property != o.property {
		return false
	}
	if s.value == nil || o.value == nil {
		return s.value == nil && o.value == nil
	}
	return s.value.Equal(o.value)
}

// Encode returns the wire object {snaktype, property, datavalue?}.
func (s *Snak) Encode() (map[string]any, error) {
	out := map[string]any{
		"snaktype": s.typ.String(),
		"property": s.property.String(),
	}
	if s.value != nil {
		dv, err := FullEncode(s.value)
		if err != nil {
			return nil, err
		}
		out["datavalue"] = dv
	}
	return out, nil
}

type snakJSON struct {
	SnakType  *string         `json:"snaktype"`
	Property  *string         `json:"property"`
	DataValue json.RawMessage `json:"datavalue"`
	Hash      string          `json:"hash"`
}

// DecodeSnak parses a snak wire object.
func DecodeSnak(raw json.RawMessage) (*Snak, error) {
	s, _, err := decodeSnakWithHash(raw)
	return s, err
}

func decodeSnakWithHash(raw json.RawMessage) (*Snak, string, error) {
	var sj snakJSON
	if err := json.Unmarshal(raw, &sj); err != nil {
		return nil, "", formatErr("snak: %v", err)
	}
	if sj.SnakType == nil || sj.Property == nil {
		return nil, "", formatErr("snak requires snaktype and property")
	}
	typ, err := ParseSnakType(*sj.SnakType)
	if err != nil {
		return nil, "", err
	}
	prop, err := ParseEntityID(*sj.Property)
	if err != nil {
		return nil, "", err
	}
	if !prop.IsProperty() {
		return nil, "", formatErr("snak property %q is not a property id", *sj.Property)
	}

	s := &Snak{typ: typ, property: prop}
	if isJSONObject(sj.DataValue) {
		dv, err := decodeFullDataValue(sj.DataValue)
		if err != nil {
			return nil, "", err
		}
		s.value = dv
	}
	if typ == SnakValue && s.value == nil {
		return nil, "", formatErr("value snak for %s has no datavalue", prop)
	}
	return s, sj.Hash, nil
}

func isJSONObject(raw json.RawMessage) bool {
	return strings.HasPrefix(strings.TrimSpace(string(raw)), "{")
}
