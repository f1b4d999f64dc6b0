package wikibase

import (
	"context"
	"encoding/json"
)

// Gateway is the remote repository: it reads entity JSON and applies edits.
// Every method blocks for one round trip and returns *RemoteError when the
// server reports an error payload.
type Gateway interface {
	// GetEntities returns the entity objects for ids; missing ids are omitted.
	GetEntities(ctx context.Context, ids, languages []string) ([]json.RawMessage, error)
	// GetEntityJSON returns a single entity object.
	GetEntityJSON(ctx context.Context, id string) (json.RawMessage, error)
	// GetEntitiesBySitelink looks entities up by site and page title.
	GetEntitiesBySitelink(ctx context.Context, sites, titles, languages []string) ([]json.RawMessage, error)

	CreateEntity(ctx context.Context, entityType string, data json.RawMessage, baseRevisionID int64, summary string) (*EditResult, error)
	EditEntity(ctx context.Context, id string, data json.RawMessage, baseRevisionID int64, summary string) (*EditResult, error)
	// DeleteEntity deletes the page with the given title, e.g. "Property:P31".
	DeleteEntity(ctx context.Context, title string, baseRevisionID int64, summary string) error

	SetClaim(ctx context.Context, claim json.RawMessage, baseRevisionID int64, summary string) (*EditResult, error)
	RemoveClaims(ctx context.Context, ids []string, baseRevisionID int64, summary string) (*EditResult, error)

	SetReference(ctx context.Context, statementID string, snaks json.RawMessage, snaksOrder []string, hash string, baseRevisionID int64, summary string) (*EditResult, error)
	RemoveReferences(ctx context.Context, statementID string, hashes []string, baseRevisionID int64, summary string) (*EditResult, error)

	SetQualifier(ctx context.Context, claimID string, snakType SnakType, property string, value json.RawMessage, hash string, baseRevisionID int64, summary string) (*EditResult, error)
	RemoveQualifiers(ctx context.Context, claimID string, hashes []string, baseRevisionID int64, summary string) (*EditResult, error)
}

// PageInfo carries the revision produced by an edit.
type PageInfo struct {
	LastRevisionID int64 `json:"lastrevid"`
}

// EditResult is the decoded response of an edit action. Only the members the
// action returns are set.
type EditResult struct {
	Entity    json.RawMessage `json:"entity,omitempty"`
	Claim     json.RawMessage `json:"claim,omitempty"`
	Reference json.RawMessage `json:"reference,omitempty"`
	PageInfo  *PageInfo       `json:"pageinfo,omitempty"`
}

// Revision returns the new revision id, or 0 if the response carried none.
func (r *EditResult) Revision() int64 {
	if r == nil || r.PageInfo == nil {
		return 0
	}
	return r.PageInfo.LastRevisionID
}
