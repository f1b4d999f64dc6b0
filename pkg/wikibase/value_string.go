package wikibase

import "encoding/json"

// StringValue is a plain string value.
type StringValue struct {
	Value string
}

// NewStringValue creates a string value.
func NewStringValue(s string) *StringValue {
	return &StringValue{Value: s}
}

func (*StringValue) Kind() ValueKind { return KindString }
func (*StringValue) dataValue()      {}

func (v *StringValue) Encode() (any, error) {
	return v.Value, nil
}

func (v *StringValue) Equal(other DataValue) bool {
	o, ok := other.(*StringValue)
	return ok && o != nil && v.Value == o.Value
}

func (v *StringValue) String() string { return v.Value }

func decodeStringValue(raw json.RawMessage) (*StringValue, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, formatErr("string value must be a JSON string")
	}
	return &StringValue{Value: s}, nil
}

// MonolingualTextValue is a text in a single language.
type MonolingualTextValue struct {
	Text     string
	Language string
}

// NewMonolingualTextValue creates a monolingual text value.
func NewMonolingualTextValue(text, language string) *MonolingualTextValue {
	return &MonolingualTextValue{Text: text, Language: language}
}

func (*MonolingualTextValue) Kind() ValueKind { return KindMonolingualText }
func (*MonolingualTextValue) dataValue()      {}

func (v *MonolingualTextValue) Encode() (any, error) {
	return map[string]any{
		"text":     v.Text,
		"language": v.Language,
	}, nil
}

func (v *MonolingualTextValue) Equal(other DataValue) bool {
	o, ok := other.(*MonolingualTextValue)
	return ok && o != nil && v.Text == o.Text && v.Language == o.Language
}

func decodeMonolingualTextValue(raw json.RawMessage) (*MonolingualTextValue, error) {
	m, err := decodeObject(raw, "monolingualtext")
	if err != nil {
		return nil, err
	}
	text, err := requireString(m, "text", "monolingualtext")
	if err != nil {
		return nil, err
	}
	lang, err := requireString(m, "language", "monolingualtext")
	if err != nil {
		return nil, err
	}
	return &MonolingualTextValue{Text: text, Language: lang}, nil
}
