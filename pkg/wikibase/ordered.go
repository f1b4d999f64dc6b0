package wikibase

import (
	"encoding/json"
	"slices"
	"sort"
	"strings"
)

type propertySnak interface {
	PropertyID() EntityID
	Encode() (map[string]any, error)
}

// orderedSnaks is a multi-map of snaks keyed by property. order holds the
// distinct properties in first-seen order.
type orderedSnaks[T propertySnak] struct {
	items []T
	order []EntityID
}

func (o *orderedSnaks[T]) add(s T) {
	o.items = append(o.items, s)
	p := s.PropertyID()
	if !slices.Contains(o.order, p) {
		o.order = append(o.order, p)
	}
}

// remove drops the first item matching eq and reports whether one was found.
func (o *orderedSnaks[T]) remove(eq func(T) bool) bool {
	i := slices.IndexFunc(o.items, eq)
	if i < 0 {
		return false
	}
	p := o.items[i].PropertyID()
	o.items = slices.Delete(o.items, i, i+1)
	if !slices.ContainsFunc(o.items, func(s T) bool { return s.PropertyID() == p }) {
		o.order = slices.DeleteFunc(o.order, func(id EntityID) bool { return id == p })
	}
	return true
}

func (o *orderedSnaks[T]) all() []T {
	return slices.Clone(o.items)
}

func (o *orderedSnaks[T]) propertyOrder() []EntityID {
	return slices.Clone(o.order)
}

func (o *orderedSnaks[T]) forProperty(p EntityID) []T {
	var out []T
	for _, s := range o.items {
		if s.PropertyID() == p {
			out = append(out, s)
		}
	}
	return out
}

// forPrefixedID matches the property by its prefixed id, ignoring case.
func (o *orderedSnaks[T]) forPrefixedID(property string) []T {
	p, err := ParseEntityID(property)
	if err != nil {
		return nil
	}
	return o.forProperty(p)
}

func (o *orderedSnaks[T]) reset() {
	o.items = nil
	o.order = nil
}

// encode returns the {PROPERTY: [snak...]} map and the order list.
func (o *orderedSnaks[T]) encode() (map[string][]any, []string, error) {
	groups := make(map[string][]any, len(o.order))
	order := make([]string, 0, len(o.order))
	for _, p := range o.order {
		key := p.String()
		order = append(order, key)
		groups[key] = []any{}
	}
	for _, s := range o.items {
		enc, err := s.Encode()
		if err != nil {
			return nil, nil, err
		}
		key := s.PropertyID().String()
		groups[key] = append(groups[key], enc)
	}
	return groups, order, nil
}

// decodeGrouped walks a {PROPERTY: [raw...]} map in the wire order. Keys not
// named by order follow in sorted order.
func decodeGrouped(groupsRaw, orderRaw json.RawMessage, what string, fn func(raw json.RawMessage) error) error {
	groups, err := decodeMap(groupsRaw, what)
	if err != nil {
		return err
	}
	var order []string
	if len(orderRaw) > 0 && string(orderRaw) != "null" {
		if err := json.Unmarshal(orderRaw, &order); err != nil {
			return formatErr("%s order must be a list of property ids", what)
		}
	}

	seen := make(map[string]bool, len(groups))
	keys := make([]string, 0, len(groups))
	for _, k := range order {
		uk := strings.ToUpper(k)
		for gk := range groups {
			if strings.ToUpper(gk) == uk && !seen[gk] {
				seen[gk] = true
				keys = append(keys, gk)
			}
		}
	}
	var rest []string
	for gk := range groups {
		if !seen[gk] {
			rest = append(rest, gk)
		}
	}
	sort.Strings(rest)
	keys = append(keys, rest...)

	for _, k := range keys {
		var list []json.RawMessage
		if err := json.Unmarshal(groups[k], &list); err != nil {
			return formatErr("%s for %s must be a list", what, k)
		}
		for _, raw := range list {
			if err := fn(raw); err != nil {
				return err
			}
		}
	}
	return nil
}

// decodeMap decodes a JSON object into raw members. The server serializes
// empty maps as [] and both that and null decode as empty.
func decodeMap(raw json.RawMessage, what string) (map[string]json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" || trimmed == "[]" {
		return map[string]json.RawMessage{}, nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, formatErr("%s must be an object", what)
	}
	return m, nil
}
