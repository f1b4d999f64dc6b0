package wikibase

import (
	"encoding/json"
	"sort"
)

// AliasChange adds or removes one alias.
type AliasChange struct {
	Language string
	Value    string
	Remove   bool
}

// PendingChange is the entity-level patch computed from dirty state. A value
// of "" in Labels, Descriptions or Sitelinks removes the entry.
type PendingChange struct {
	Labels       map[string]string
	Descriptions map[string]string
	Aliases      []AliasChange
	Sitelinks    map[string]string
	// DataType is set only when creating a property.
	DataType string
}

// IsEmpty reports whether the change would not alter anything.
func (c PendingChange) IsEmpty() bool {
	return len(c.Labels) == 0 && len(c.Descriptions) == 0 && len(c.Aliases) == 0 &&
		len(c.Sitelinks) == 0 && c.DataType == ""
}

func termMap(terms map[string]string) map[string]any {
	out := make(map[string]any, len(terms))
	for lang, v := range terms {
		out[lang] = map[string]string{"language": lang, "value": v}
	}
	return out
}

// Encode returns the wbeditentity data object. Empty sections are omitted.
func (c PendingChange) Encode() map[string]any {
	out := map[string]any{}
	if len(c.Labels) > 0 {
		out["labels"] = termMap(c.Labels)
	}
	if len(c.Descriptions) > 0 {
		out["descriptions"] = termMap(c.Descriptions)
	}
	if len(c.Aliases) > 0 {
		list := make([]map[string]string, 0, len(c.Aliases))
		for _, a := range c.Aliases {
			entry := map[string]string{"language": a.Language, "value": a.Value}
			if a.Remove {
				entry["remove"] = ""
			} else {
				entry["add"] = ""
			}
			list = append(list, entry)
		}
		out["aliases"] = list
	}
	if len(c.Sitelinks) > 0 {
		links := make(map[string]any, len(c.Sitelinks))
		for site, title := range c.Sitelinks {
			links[site] = map[string]string{"site": site, "title": title}
		}
		out["sitelinks"] = links
	}
	if c.DataType != "" {
		out["datatype"] = c.DataType
	}
	return out
}

// MarshalJSON implements json.Marshaler.
func (c PendingChange) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Encode())
}

// PendingChange builds the patch for the current dirty state without
// modifying the entity.
func (e *Entity) PendingChange() PendingChange {
	var c PendingChange
	c.Labels = dirtyValues(e.labels, e.dirtyLabels)
	c.Descriptions = dirtyValues(e.descriptions, e.dirtyDescriptions)
	if e.kind == EntityTypeItem {
		c.Sitelinks = dirtyValues(e.sitelinks, e.dirtySitelinks)
	}
	if e.kind == EntityTypeProperty && e.id.IsZero() {
		c.DataType = e.dataType
	}

	langs := make([]string, 0, len(e.aliases))
	for lang := range e.aliases {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	for _, lang := range langs {
		for _, a := range e.aliases[lang] {
			switch a.status {
			case aliasNew:
				c.Aliases = append(c.Aliases, AliasChange{Language: lang, Value: a.value})
			case aliasRemoved:
				c.Aliases = append(c.Aliases, AliasChange{Language: lang, Value: a.value, Remove: true})
			}
		}
	}
	return c
}

func dirtyValues(values map[string]string, dirty map[string]struct{}) map[string]string {
	if len(dirty) == 0 {
		return nil
	}
	out := make(map[string]string, len(dirty))
	for key := range dirty {
		out[key] = values[key]
	}
	return out
}
