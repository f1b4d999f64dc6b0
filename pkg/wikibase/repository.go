package wikibase

import (
	"context"
	"encoding/json"
	"errors"
)

// Repository loads entities through a Gateway and creates new ones bound to it.
type Repository struct {
	gateway Gateway
}

// NewRepository creates a repository reading and writing through gw.
func NewRepository(gw Gateway) *Repository {
	return &Repository{gateway: gw}
}

// NewItem creates a blank item.
func (r *Repository) NewItem() *Entity { return NewItem(r.gateway) }

// NewProperty creates a blank property of the given data type.
func (r *Repository) NewProperty(dataType string) *Entity { return NewProperty(r.gateway, dataType) }

// GetEntity loads one entity. It returns ErrNotFound if the id does not exist.
func (r *Repository) GetEntity(ctx context.Context, id EntityID, languages ...string) (*Entity, error) {
	list, err := r.GetEntities(ctx, []EntityID{id}, languages)
	if err != nil {
		return nil, err
	}
	for _, e := range list {
		if e.ID() == id {
			return e, nil
		}
	}
	return nil, ErrNotFound
}

// GetEntities loads entities by id. Missing ids are skipped. Languages limit
// the terms returned; nil means all.
func (r *Repository) GetEntities(ctx context.Context, ids []EntityID, languages []string) ([]*Entity, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	prefixed := make([]string, len(ids))
	for i, id := range ids {
		prefixed[i] = id.String()
	}
	raws, err := r.gateway.GetEntities(ctx, prefixed, languages)
	if err != nil {
		return nil, err
	}
	return r.decodeAll(raws)
}

// GetEntitiesBySitelink loads the items linked to the given pages.
func (r *Repository) GetEntitiesBySitelink(ctx context.Context, sites, titles, languages []string) ([]*Entity, error) {
	if len(sites) == 0 || len(titles) == 0 {
		return nil, nil
	}
	raws, err := r.gateway.GetEntitiesBySitelink(ctx, sites, titles, languages)
	if err != nil {
		return nil, err
	}
	return r.decodeAll(raws)
}

func (r *Repository) decodeAll(raws []json.RawMessage) ([]*Entity, error) {
	out := make([]*Entity, 0, len(raws))
	for _, raw := range raws {
		e, err := DecodeEntity(r.gateway, raw)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
