package wikibase

import (
	"encoding/json"
	"slices"
)

type termJSON struct {
	Language string `json:"language"`
	Value    string `json:"value"`
}

type sitelinkJSON struct {
	Site   string   `json:"site"`
	Title  string   `json:"title"`
	Badges []string `json:"badges"`
}

type entityJSON struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	LastRevID    int64           `json:"lastrevid"`
	Missing      *string         `json:"missing"`
	Labels       json.RawMessage `json:"labels"`
	Descriptions json.RawMessage `json:"descriptions"`
	Aliases      json.RawMessage `json:"aliases"`
	Claims       json.RawMessage `json:"claims"`
	Sitelinks    json.RawMessage `json:"sitelinks"`
	DataType     string          `json:"datatype"`
}

// DecodeEntity builds a Loaded item or property from its wire object. The
// kind comes from "type", or from the id prefix when "type" is absent.
func DecodeEntity(gw Gateway, raw json.RawMessage) (*Entity, error) {
	var head struct {
		ID      string  `json:"id"`
		Type    string  `json:"type"`
		Missing *string `json:"missing"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, formatErr("entity: %v", err)
	}
	if head.Missing != nil {
		return nil, ErrNotFound
	}

	var kind EntityType
	switch {
	case head.Type != "":
		t, err := ParseEntityType(head.Type)
		if err != nil {
			return nil, err
		}
		kind = t
	case head.ID != "":
		id, err := ParseEntityID(head.ID)
		if err != nil {
			return nil, err
		}
		kind = id.Type
	default:
		return nil, formatErr("entity has neither type nor id")
	}

	e := newEntity(kind, gw)
	if err := e.fillData(raw); err != nil {
		return nil, err
	}
	return e, nil
}

// fillData replaces all content with the wire object and marks the entity Loaded.
func (e *Entity) fillData(raw json.RawMessage) error {
	var ej entityJSON
	if err := json.Unmarshal(raw, &ej); err != nil {
		return formatErr("entity: %v", err)
	}
	if ej.Missing != nil {
		return ErrNotFound
	}

	var id EntityID
	if ej.ID != "" {
		parsed, err := ParseEntityID(ej.ID)
		if err != nil {
			return err
		}
		if parsed.Type != e.kind {
			return formatErr("entity %s is not a %s", ej.ID, e.kind)
		}
		id = parsed
	}

	labels, err := decodeTerms(ej.Labels, "labels")
	if err != nil {
		return err
	}
	descriptions, err := decodeTerms(ej.Descriptions, "descriptions")
	if err != nil {
		return err
	}
	aliases, err := decodeAliases(ej.Aliases)
	if err != nil {
		return err
	}

	sitelinks := map[string]string{}
	badges := map[string][]string{}
	if e.kind == EntityTypeItem {
		links, err := decodeMap(ej.Sitelinks, "sitelinks")
		if err != nil {
			return err
		}
		for site, rawLink := range links {
			var sl sitelinkJSON
			if err := json.Unmarshal(rawLink, &sl); err != nil {
				return formatErr("sitelink %s: %v", site, err)
			}
			sitelinks[site] = sl.Title
			if len(sl.Badges) > 0 {
				badges[site] = sl.Badges
			}
		}
	}

	// Claims need the owner in place for GUIDs and touch propagation.
	prevID := e.id
	e.id = id
	var claims []*Claim
	err = decodeGrouped(ej.Claims, nil, "claims", func(raw json.RawMessage) error {
		c, err := DecodeClaim(e, raw)
		if err != nil {
			return err
		}
		claims = append(claims, c)
		return nil
	})
	if err != nil {
		e.id = prevID
		return err
	}

	e.labels = labels
	e.descriptions = descriptions
	e.aliases = aliases
	e.claims = e.reconcileClaims(claims)
	e.sitelinks = sitelinks
	e.badges = badges
	if e.kind == EntityTypeProperty && ej.DataType != "" {
		e.dataType = ej.DataType
	}
	e.updateRevision(ej.LastRevID)
	e.clearDirty()
	e.status = StatusLoaded
	return nil
}

// reconcileClaims keeps the claim objects already held for the GUIDs in
// fresh and refreshes them in place. Held claims missing from fresh are
// detached, so edits through a stale handle fail instead of being dropped.
func (e *Entity) reconcileClaims(fresh []*Claim) []*Claim {
	held := make(map[string]*Claim, len(e.claims))
	for _, c := range e.claims {
		if c.id != "" {
			held[c.id] = c
		}
	}
	out := make([]*Claim, 0, len(fresh))
	for _, f := range fresh {
		c, ok := held[f.id]
		if !ok || f.id == "" || c.PropertyID() != f.PropertyID() {
			out = append(out, f)
			continue
		}
		delete(held, f.id)
		c.merge(f)
		c.synced()
		out = append(out, c)
	}
	for _, c := range e.claims {
		if !slices.Contains(out, c) {
			c.detach()
		}
	}
	return out
}

func decodeTerms(raw json.RawMessage, what string) (map[string]string, error) {
	m, err := decodeMap(raw, what)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(m))
	for lang, rawTerm := range m {
		var t termJSON
		if err := json.Unmarshal(rawTerm, &t); err != nil {
			return nil, formatErr("%s %s: %v", what, lang, err)
		}
		out[lang] = t.Value
	}
	return out, nil
}

func decodeAliases(raw json.RawMessage) (map[string][]*alias, error) {
	m, err := decodeMap(raw, "aliases")
	if err != nil {
		return nil, err
	}
	out := make(map[string][]*alias, len(m))
	for lang, rawList := range m {
		var list []termJSON
		if err := json.Unmarshal(rawList, &list); err != nil {
			return nil, formatErr("aliases %s: %v", lang, err)
		}
		for _, t := range list {
			out[lang] = append(out[lang], &alias{value: t.Value, status: aliasExisting})
		}
	}
	return out, nil
}

// Encode returns the full wire object for the current local state. Claims
// marked deleted and aliases marked for removal are left out.
func (e *Entity) Encode() (map[string]any, error) {
	out := map[string]any{
		"type":         e.kind.String(),
		"labels":       termMap(e.labels),
		"descriptions": termMap(e.descriptions),
	}
	if !e.id.IsZero() {
		out["id"] = e.id.String()
	}
	if e.lastRevisionID > 0 {
		out["lastrevid"] = e.lastRevisionID
	}

	aliases := map[string]any{}
	for lang := range e.aliases {
		values := e.Aliases(lang)
		if len(values) == 0 {
			continue
		}
		list := make([]termJSON, 0, len(values))
		for _, v := range values {
			list = append(list, termJSON{Language: lang, Value: v})
		}
		aliases[lang] = list
	}
	out["aliases"] = aliases

	claims := map[string][]any{}
	for _, c := range e.Claims() {
		enc, err := c.Encode()
		if err != nil {
			return nil, err
		}
		key := c.PropertyID().String()
		claims[key] = append(claims[key], enc)
	}
	out["claims"] = claims

	switch e.kind {
	case EntityTypeItem:
		links := make(map[string]any, len(e.sitelinks))
		for site, title := range e.sitelinks {
			badges := e.badges[site]
			if badges == nil {
				badges = []string{}
			}
			links[site] = sitelinkJSON{Site: site, Title: title, Badges: badges}
		}
		out["sitelinks"] = links
	case EntityTypeProperty:
		out["datatype"] = e.dataType
	}
	return out, nil
}
