package wikibase

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ValueKind discriminates the closed set of DataValue variants.
type ValueKind int

const (
	KindString ValueKind = iota
	KindMonolingualText
	KindEntityID
	KindTime
	KindQuantity
	KindGlobeCoordinate
)

// JSONName returns the wire "type" tag of the variant.
func (k ValueKind) JSONName() string {
	switch k {
	case KindString:
		return "string"
	case KindMonolingualText:
		return "monolingualtext"
	case KindEntityID:
		return "wikibase-entityid"
	case KindTime:
		return "time"
	case KindQuantity:
		return "quantity"
	case KindGlobeCoordinate:
		return "globecoordinate"
	}
	return "unknown"
}

// DataValue is a typed value carried by a value snak. The set of
// implementations is closed: StringValue, MonolingualTextValue,
// EntityIDValue, TimeValue, QuantityValue and GlobeCoordinateValue.
type DataValue interface {
	Kind() ValueKind
	// Encode returns the "value" payload of the wire form.
	Encode() (any, error)
	Equal(other DataValue) bool
	dataValue()
}

// DecodeDataValue builds the variant named by typeTag from its "value" payload.
func DecodeDataValue(typeTag string, value json.RawMessage) (DataValue, error) {
	switch typeTag {
	case "string":
		return decodeStringValue(value)
	case "monolingualtext":
		return decodeMonolingualTextValue(value)
	case "wikibase-entityid":
		return decodeEntityIDValue(value)
	case "time":
		return decodeTimeValue(value)
	case "quantity":
		return decodeQuantityValue(value)
	case "globecoordinate":
		return decodeGlobeCoordinateValue(value)
	}
	return nil, fmt.Errorf("%w: %w: %q", ErrFormat, ErrUnsupportedType, typeTag)
}

// FullEncode returns the {"type", "value"} wire object for v.
func FullEncode(v DataValue) (map[string]any, error) {
	enc, err := v.Encode()
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"type":  v.Kind().JSONName(),
		"value": enc,
	}, nil
}

// HashDataValue returns a hex SHA-1 digest of the full encoding of v.
// encoding/json sorts map keys, so the digest is stable.
func HashDataValue(v DataValue) (string, error) {
	full, err := FullEncode(v)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(full)
	if err != nil {
		return "", err
	}
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:]), nil
}

type fullDataValue struct {
	Type  *string         `json:"type"`
	Value json.RawMessage `json:"value"`
}

func decodeFullDataValue(raw json.RawMessage) (DataValue, error) {
	var fv fullDataValue
	if err := json.Unmarshal(raw, &fv); err != nil {
		return nil, formatErr("datavalue: %v", err)
	}
	if fv.Type == nil || len(fv.Value) == 0 {
		return nil, formatErr("datavalue requires type and value")
	}
	return DecodeDataValue(*fv.Type, fv.Value)
}

// decodeObject unmarshals a JSON object into fields, keeping raw values.
func decodeObject(raw json.RawMessage, what string) (map[string]json.RawMessage, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return nil, formatErr("%s value must be an object", what)
	}
	return m, nil
}

func requireString(m map[string]json.RawMessage, key, what string) (string, error) {
	raw, ok := m[key]
	if !ok {
		return "", formatErr("%s value missing %q", what, key)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", formatErr("%s field %q must be a string", what, key)
	}
	return s, nil
}

// parseInt accepts a JSON number or a numeric string, with optional sign.
func parseInt(raw json.RawMessage) (int64, error) {
	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		return strconv.ParseInt(strings.TrimPrefix(num.String(), "+"), 10, 64)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	return strconv.ParseInt(strings.TrimPrefix(s, "+"), 10, 64)
}

func requireInt(m map[string]json.RawMessage, key, what string) (int64, error) {
	raw, ok := m[key]
	if !ok {
		return 0, formatErr("%s value missing %q", what, key)
	}
	n, err := parseInt(raw)
	if err != nil {
		return 0, formatErr("%s field %q is not an integer", what, key)
	}
	return n, nil
}

// parseFloat accepts a JSON number, a numeric string or null (as 0).
func parseFloat(raw json.RawMessage) (float64, error) {
	if string(raw) == "null" {
		return 0, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	return strconv.ParseFloat(s, 64)
}

// entityURIID returns the trailing entity id of a concept URI such as
// "http://www.wikidata.org/entity/Q2".
func entityURIID(uri string) string {
	if i := strings.LastIndex(uri, "/"); i >= 0 {
		return uri[i+1:]
	}
	return uri
}
