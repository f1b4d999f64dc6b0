package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"sort"

	"wikibasego/pkg/wikibase"
)

type entitiesResponse struct {
	Entities map[string]json.RawMessage `json:"entities"`
}

// GetEntities fetches entities in batches of BatchSize. Ids the server
// reports missing are left out; the rest keep the requested order.
func (c *Client) GetEntities(ctx context.Context, ids, languages []string) ([]json.RawMessage, error) {
	var out []json.RawMessage
	for batch := range slices.Chunk(ids, c.batchSize()) {
		form := url.Values{}
		form.Set("ids", joinPipe(batch))
		entities, err := c.getEntities(ctx, form, c.languages(languages))
		if err != nil {
			return nil, err
		}
		for _, id := range batch {
			raw, ok := lookup(entities, id)
			if !ok || isMissing(raw) {
				continue
			}
			out = append(out, raw)
		}
	}
	return out, nil
}

// GetEntityJSON fetches one entity in all languages.
func (c *Client) GetEntityJSON(ctx context.Context, id string) (json.RawMessage, error) {
	form := url.Values{}
	form.Set("ids", id)
	entities, err := c.getEntities(ctx, form, nil)
	if err != nil {
		return nil, err
	}
	raw, ok := lookup(entities, id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", wikibase.ErrNotFound, id)
	}
	return raw, nil
}

// GetEntitiesBySitelink looks entities up by site and title. Results are
// ordered by entity id.
func (c *Client) GetEntitiesBySitelink(ctx context.Context, sites, titles, languages []string) ([]json.RawMessage, error) {
	form := url.Values{}
	form.Set("sites", joinPipe(sites))
	form.Set("titles", joinPipe(titles))
	entities, err := c.getEntities(ctx, form, c.languages(languages))
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(entities))
	for k := range entities {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]json.RawMessage, 0, len(keys))
	for _, k := range keys {
		if isMissing(entities[k]) {
			continue
		}
		out = append(out, entities[k])
	}
	return out, nil
}

func (c *Client) getEntities(ctx context.Context, form url.Values, languages []string) (map[string]json.RawMessage, error) {
	form.Set("action", "wbgetentities")
	if len(languages) > 0 {
		form.Set("languages", joinPipe(languages))
	}

	body, err := c.call(ctx, "wbgetentities", form)
	if err != nil {
		return nil, err
	}
	var resp entitiesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: wbgetentities: %v", ErrParse, err)
	}
	return resp.Entities, nil
}

func (c *Client) languages(requested []string) []string {
	if len(requested) > 0 {
		return requested
	}
	return c.Languages
}

func (c *Client) batchSize() int {
	if c.BatchSize <= 0 {
		return 1
	}
	return c.BatchSize
}

// lookup finds id in the entities map; the server keys by canonical
// (upper-case) id while callers may use lower-case prefixed ids.
func lookup(entities map[string]json.RawMessage, id string) (json.RawMessage, bool) {
	if raw, ok := entities[id]; ok {
		return raw, true
	}
	if eid, err := wikibase.ParseEntityID(id); err == nil {
		raw, ok := entities[eid.String()]
		return raw, ok
	}
	return nil, false
}

func isMissing(raw json.RawMessage) bool {
	var probe struct {
		Missing *string `json:"missing"`
	}
	return json.Unmarshal(raw, &probe) == nil && probe.Missing != nil
}
