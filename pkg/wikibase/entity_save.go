package wikibase

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
)

// typedTitle returns the page title used to delete the entity, e.g. "Item:Q42".
func (e *Entity) typedTitle() string {
	switch e.kind {
	case EntityTypeProperty:
		return "Property:" + e.id.String()
	default:
		return "Item:" + e.id.String()
	}
}

// Save synchronizes the entity with the repository.
//
// A ToBeDeleted entity is deleted. Otherwise the term and sitelink patch is
// sent first (creating the entity when it has no id), then each changed
// claim is saved on its own, and finally the entity is reloaded if any claim
// was sent. A failed call leaves the remaining dirty state in place so Save
// can be retried.
func (e *Entity) Save(ctx context.Context, summary string) error {
	if e.gateway == nil {
		return stateErr("entity %s has no gateway", e.describe())
	}
	switch e.status {
	case StatusDeleted:
		return stateErr("entity %s is deleted", e.describe())
	case StatusToBeDeleted:
		return e.deleteRemote(ctx, summary)
	case StatusLoaded:
		return nil
	}

	res, err := e.saveTerms(ctx, summary)
	if err != nil {
		return err
	}

	claimsSent := false
	for _, c := range slices.Clone(e.claims) {
		if c.status == ClaimExisting {
			continue
		}
		c.RefreshID()
		sent, err := c.save(ctx, summary)
		if err != nil {
			slog.Warn("Claim save failed", "entity", e.describe(), "claim", c.id, "error", err)
			return err
		}
		claimsSent = claimsSent || sent
	}

	switch {
	case claimsSent:
		raw, err := e.gateway.GetEntityJSON(ctx, e.id.String())
		if err != nil {
			return err
		}
		if err := e.fillData(raw); err != nil {
			return err
		}
	case res != nil && len(res.Entity) > 0:
		if err := e.fillData(res.Entity); err != nil {
			return err
		}
	}

	e.clearDirty()
	e.status = StatusLoaded
	slog.Debug("Entity saved", "entity", e.describe(), "revision", e.lastRevisionID, "claims_sent", claimsSent)
	return nil
}

// saveTerms creates the entity or applies the term patch. It returns nil
// without a remote call when an existing entity has no term changes.
func (e *Entity) saveTerms(ctx context.Context, summary string) (*EditResult, error) {
	change := e.PendingChange()
	if !e.id.IsZero() && change.IsEmpty() {
		return nil, nil
	}
	data, err := json.Marshal(change)
	if err != nil {
		return nil, err
	}

	var res *EditResult
	if e.id.IsZero() {
		res, err = e.gateway.CreateEntity(ctx, e.kind.String(), data, e.lastRevisionID, summary)
		if err != nil {
			return nil, err
		}
		id, err := createdID(res)
		if err != nil {
			return nil, err
		}
		if id.Type != e.kind {
			return nil, formatErr("created entity %s is not a %s", id, e.kind)
		}
		e.id = id
		slog.Info("Entity created", "entity", id.String())
	} else {
		res, err = e.gateway.EditEntity(ctx, e.id.String(), data, e.lastRevisionID, summary)
		if err != nil {
			return nil, err
		}
	}

	// The terms are committed; only claims may still be pending.
	e.updateRevision(res.Revision())
	e.clearDirty()
	e.commitAliases()
	return res, nil
}

// commitAliases applies saved alias changes to the local alias state.
func (e *Entity) commitAliases() {
	for lang, list := range e.aliases {
		kept := list[:0]
		for _, a := range list {
			switch a.status {
			case aliasRemoved:
				continue
			case aliasNew:
				a.status = aliasExisting
			}
			kept = append(kept, a)
		}
		if len(kept) == 0 {
			delete(e.aliases, lang)
		} else {
			e.aliases[lang] = kept
		}
	}
}

func createdID(res *EditResult) (EntityID, error) {
	if res == nil || len(res.Entity) == 0 {
		return EntityID{}, formatErr("create response has no entity")
	}
	var head struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(res.Entity, &head); err != nil {
		return EntityID{}, formatErr("create response entity: %v", err)
	}
	return ParseEntityID(head.ID)
}

func (e *Entity) deleteRemote(ctx context.Context, summary string) error {
	if err := e.gateway.DeleteEntity(ctx, e.typedTitle(), e.lastRevisionID, summary); err != nil {
		return err
	}
	e.status = StatusDeleted
	e.resetContents()
	e.clearDirty()
	slog.Info("Entity deleted", "entity", e.id.String())
	return nil
}
