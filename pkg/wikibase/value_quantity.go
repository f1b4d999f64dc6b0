package wikibase

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// UnitOne is the unit of dimensionless quantities.
const UnitOne = "1"

// QuantityValue is a decimal amount with an optional unit and bounds.
type QuantityValue struct {
	Amount decimal.Decimal
	// Unit is "1" or a concept URI such as "http://www.wikidata.org/entity/Q11573".
	Unit       string
	LowerBound *decimal.Decimal
	UpperBound *decimal.Decimal
}

// NewQuantityValue creates an unbounded quantity.
func NewQuantityValue(amount decimal.Decimal, unit string) *QuantityValue {
	if unit == "" {
		unit = UnitOne
	}
	return &QuantityValue{Amount: amount, Unit: unit}
}

// NewBoundedQuantityValue creates a quantity with lower and upper bounds.
func NewBoundedQuantityValue(amount, lower, upper decimal.Decimal, unit string) *QuantityValue {
	v := NewQuantityValue(amount, unit)
	v.LowerBound = &lower
	v.UpperBound = &upper
	return v
}

func (*QuantityValue) Kind() ValueKind { return KindQuantity }
func (*QuantityValue) dataValue()      {}

// formatSigned renders d in invariant decimal notation with an explicit sign.
func formatSigned(d decimal.Decimal) string {
	s := d.String()
	if d.Sign() >= 0 {
		return "+" + s
	}
	return s
}

func parseSigned(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimPrefix(strings.TrimSpace(s), "+"))
}

func (v *QuantityValue) Encode() (any, error) {
	unit := v.Unit
	if unit == "" {
		unit = UnitOne
	}
	out := map[string]any{
		"amount": formatSigned(v.Amount),
		"unit":   unit,
	}
	if v.LowerBound != nil {
		out["lowerBound"] = formatSigned(*v.LowerBound)
	}
	if v.UpperBound != nil {
		out["upperBound"] = formatSigned(*v.UpperBound)
	}
	return out, nil
}

func boundsEqual(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func (v *QuantityValue) Equal(other DataValue) bool {
	o, ok := other.(*QuantityValue)
	if !ok || o == nil {
		return false
	}
	return v.Amount.Equal(o.Amount) && v.normalizedUnit() == o.normalizedUnit() &&
		boundsEqual(v.LowerBound, o.LowerBound) && boundsEqual(v.UpperBound, o.UpperBound)
}

func (v *QuantityValue) normalizedUnit() string {
	if v.Unit == "" {
		return UnitOne
	}
	return v.Unit
}

func decodeQuantityValue(raw json.RawMessage) (*QuantityValue, error) {
	m, err := decodeObject(raw, "quantity")
	if err != nil {
		return nil, err
	}
	amountStr, err := requireString(m, "amount", "quantity")
	if err != nil {
		return nil, err
	}
	amount, err := parseSigned(amountStr)
	if err != nil {
		return nil, formatErr("invalid quantity amount %q", amountStr)
	}
	unit, err := requireString(m, "unit", "quantity")
	if err != nil {
		return nil, err
	}
	v := &QuantityValue{Amount: amount, Unit: unit}

	for _, b := range []struct {
		key string
		dst **decimal.Decimal
	}{
		{"lowerBound", &v.LowerBound},
		{"upperBound", &v.UpperBound},
	} {
		rawBound, ok := m[b.key]
		if !ok || string(rawBound) == "null" {
			continue
		}
		var s string
		if err := json.Unmarshal(rawBound, &s); err != nil {
			return nil, formatErr("quantity %s must be a string", b.key)
		}
		d, err := parseSigned(s)
		if err != nil {
			return nil, formatErr("invalid quantity %s %q", b.key, s)
		}
		*b.dst = &d
	}
	return v, nil
}
