package wikibase

import "encoding/json"

// EntityIDValue references another entity.
type EntityIDValue struct {
	EntityType EntityType
	NumericID  uint64
}

// NewEntityIDValue creates a value pointing at id.
func NewEntityIDValue(id EntityID) *EntityIDValue {
	return &EntityIDValue{EntityType: id.Type, NumericID: id.NumericID}
}

func (*EntityIDValue) Kind() ValueKind { return KindEntityID }
func (*EntityIDValue) dataValue()      {}

// ID returns the referenced entity id.
func (v *EntityIDValue) ID() EntityID {
	return EntityID{Type: v.EntityType, NumericID: v.NumericID}
}

func (v *EntityIDValue) Encode() (any, error) {
	return map[string]any{
		"entity-type": v.EntityType.String(),
		"numeric-id":  v.NumericID,
	}, nil
}

func (v *EntityIDValue) Equal(other DataValue) bool {
	o, ok := other.(*EntityIDValue)
	return ok && o != nil && v.EntityType == o.EntityType && v.NumericID == o.NumericID
}

func decodeEntityIDValue(raw json.RawMessage) (*EntityIDValue, error) {
	m, err := decodeObject(raw, "wikibase-entityid")
	if err != nil {
		return nil, err
	}

	if _, hasType := m["entity-type"]; !hasType {
		// Newer serializations may carry only "id".
		idStr, err := requireString(m, "id", "wikibase-entityid")
		if err != nil {
			return nil, err
		}
		id, err := ParseEntityID(idStr)
		if err != nil {
			return nil, err
		}
		return NewEntityIDValue(id), nil
	}

	typeName, err := requireString(m, "entity-type", "wikibase-entityid")
	if err != nil {
		return nil, err
	}
	t, err := ParseEntityType(typeName)
	if err != nil {
		return nil, err
	}
	n, err := requireInt(m, "numeric-id", "wikibase-entityid")
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, formatErr("wikibase-entityid numeric-id must not be negative")
	}
	return &EntityIDValue{EntityType: t, NumericID: uint64(n)}, nil
}
