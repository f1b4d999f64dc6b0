package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"wikibasego/pkg/wikibase"
)

// CreateEntity creates a new entity of entityType ("item" or "property").
func (c *Client) CreateEntity(ctx context.Context, entityType string, data json.RawMessage, baseRevisionID int64, summary string) (*wikibase.EditResult, error) {
	form := url.Values{}
	form.Set("action", "wbeditentity")
	form.Set("new", entityType)
	form.Set("data", string(data))
	return c.editAction(ctx, "wbeditentity", form, baseRevisionID, summary)
}

// EditEntity applies data to an existing entity.
func (c *Client) EditEntity(ctx context.Context, id string, data json.RawMessage, baseRevisionID int64, summary string) (*wikibase.EditResult, error) {
	form := url.Values{}
	form.Set("action", "wbeditentity")
	form.Set("id", id)
	form.Set("data", string(data))
	return c.editAction(ctx, "wbeditentity", form, baseRevisionID, summary)
}

// DeleteEntity deletes the entity page title.
func (c *Client) DeleteEntity(ctx context.Context, title string, baseRevisionID int64, summary string) error {
	form := url.Values{}
	form.Set("action", "delete")
	form.Set("title", title)
	if summary != "" {
		form.Set("reason", summary)
	}
	// delete takes reason rather than summary and has no baserevid.
	_, err := c.edit(ctx, "delete", form, 0, "")
	return err
}

// SetClaim creates or replaces a claim.
func (c *Client) SetClaim(ctx context.Context, claim json.RawMessage, baseRevisionID int64, summary string) (*wikibase.EditResult, error) {
	form := url.Values{}
	form.Set("action", "wbsetclaim")
	form.Set("claim", string(claim))
	return c.editAction(ctx, "wbsetclaim", form, baseRevisionID, summary)
}

// RemoveClaims removes claims by GUID.
func (c *Client) RemoveClaims(ctx context.Context, ids []string, baseRevisionID int64, summary string) (*wikibase.EditResult, error) {
	form := url.Values{}
	form.Set("action", "wbremoveclaims")
	form.Set("claim", joinPipe(ids))
	return c.editAction(ctx, "wbremoveclaims", form, baseRevisionID, summary)
}

// SetReference creates a reference on a statement, or replaces the one with
// the given hash.
func (c *Client) SetReference(ctx context.Context, statementID string, snaks json.RawMessage, snaksOrder []string, hash string, baseRevisionID int64, summary string) (*wikibase.EditResult, error) {
	order, err := json.Marshal(snaksOrder)
	if err != nil {
		return nil, fmt.Errorf("encode snaks-order: %w", err)
	}
	form := url.Values{}
	form.Set("action", "wbsetreference")
	form.Set("statement", statementID)
	form.Set("snaks", string(snaks))
	form.Set("snaks-order", string(order))
	if hash != "" {
		form.Set("reference", hash)
	}
	return c.editAction(ctx, "wbsetreference", form, baseRevisionID, summary)
}

// RemoveReferences removes references from a statement by hash.
func (c *Client) RemoveReferences(ctx context.Context, statementID string, hashes []string, baseRevisionID int64, summary string) (*wikibase.EditResult, error) {
	form := url.Values{}
	form.Set("action", "wbremovereferences")
	form.Set("statement", statementID)
	form.Set("references", joinPipe(hashes))
	return c.editAction(ctx, "wbremovereferences", form, baseRevisionID, summary)
}

// SetQualifier adds a qualifier to a claim, or replaces the one with the
// given hash.
func (c *Client) SetQualifier(ctx context.Context, claimID string, snakType wikibase.SnakType, property string, value json.RawMessage, hash string, baseRevisionID int64, summary string) (*wikibase.EditResult, error) {
	form := url.Values{}
	form.Set("action", "wbsetqualifier")
	form.Set("claim", claimID)
	form.Set("property", property)
	form.Set("snaktype", snakType.String())
	if snakType == wikibase.SnakValue {
		form.Set("value", string(value))
	}
	if hash != "" {
		form.Set("snakhash", hash)
	}
	return c.editAction(ctx, "wbsetqualifier", form, baseRevisionID, summary)
}

// RemoveQualifiers removes qualifiers from a claim by hash.
func (c *Client) RemoveQualifiers(ctx context.Context, claimID string, hashes []string, baseRevisionID int64, summary string) (*wikibase.EditResult, error) {
	form := url.Values{}
	form.Set("action", "wbremovequalifiers")
	form.Set("claim", claimID)
	form.Set("qualifiers", joinPipe(hashes))
	return c.editAction(ctx, "wbremovequalifiers", form, baseRevisionID, summary)
}

func (c *Client) editAction(ctx context.Context, action string, form url.Values, baseRevisionID int64, summary string) (*wikibase.EditResult, error) {
	body, err := c.edit(ctx, action, form, baseRevisionID, summary)
	if err != nil {
		return nil, err
	}
	return c.editResult(action, body)
}
