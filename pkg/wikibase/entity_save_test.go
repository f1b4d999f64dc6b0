package wikibase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSave_NewItemWithStatement(t *testing.T) {
	gw := newFakeGateway()
	e := NewItem(gw)
	require.NoError(t, e.SetLabel("en", "Berlin"))
	_, err := e.AddStatement(itemSnak(t, "P31", "Q515"), RankNormal)
	require.NoError(t, err)

	require.NoError(t, e.Save(context.Background(), "create Berlin"))

	assert.Equal(t, []string{"CreateEntity", "SetClaim", "GetEntityJSON"}, gw.methods())

	create := gw.calls[0]
	assert.Equal(t, "item", create.ID)
	assert.JSONEq(t, `{"labels":{"en":{"language":"en","value":"Berlin"}}}`, create.Data)
	assert.Equal(t, "create Berlin", create.Summary)

	var claim map[string]any
	require.NoError(t, json.Unmarshal([]byte(gw.calls[1].Data), &claim))
	assert.Equal(t, "statement", claim["type"])
	assert.Equal(t, "normal", claim["rank"])
	assert.Equal(t, map[string]any{}, claim["qualifiers"])
	assert.Equal(t, []any{}, claim["references"])
	assert.Regexp(t, `^Q1001\$`, claim["id"])
	assert.Equal(t, int64(101), gw.calls[1].BaseRev, "claims are saved against the created revision")

	assert.Equal(t, "Q1001", gw.calls[2].ID)

	assert.Equal(t, StatusLoaded, e.Status())
	assert.Equal(t, MustParseEntityID("Q1001"), e.ID())
	assert.Equal(t, int64(102), e.LastRevisionID())
	assert.Equal(t, "Berlin", e.Label("en"))
	require.Len(t, e.Claims(), 1)
	assert.Equal(t, ClaimExisting, e.Claims()[0].Status())
	assert.True(t, e.PendingChange().IsEmpty())
}

func TestSave_NewPropertyWithoutClaims(t *testing.T) {
	gw := newFakeGateway()
	p := NewProperty(gw, "external-id")
	require.NoError(t, p.SetLabel("en", "VIAF ID"))

	require.NoError(t, p.Save(context.Background(), ""))

	assert.Equal(t, []string{"CreateEntity"}, gw.methods(), "no claims, no re-fetch")
	assert.JSONEq(t, `{"labels":{"en":{"language":"en","value":"VIAF ID"}},"datatype":"external-id"}`, gw.calls[0].Data)
	assert.Equal(t, EntityTypeProperty, p.ID().Type)
	assert.Equal(t, "external-id", p.DataType())
	assert.Equal(t, "VIAF ID", p.Label("en"))
	assert.Equal(t, StatusLoaded, p.Status())
}

func TestSave_LoadedIsNoop(t *testing.T) {
	gw := newFakeGateway()
	e := loadedItem(t, gw, berlinJSON)
	require.NoError(t, e.Save(context.Background(), ""))
	assert.Empty(t, gw.calls)
}

func TestSave_ExistingTermsOnly(t *testing.T) {
	gw := newFakeGateway()
	gw.entities["Q64"] = berlinJSON
	e := loadedItem(t, gw, berlinJSON)
	require.NoError(t, e.SetDescription("de", "Hauptstadt"))

	require.NoError(t, e.Save(context.Background(), "desc"))

	assert.Equal(t, []string{"EditEntity"}, gw.methods())
	assert.Equal(t, "Q64", gw.calls[0].ID)
	assert.Equal(t, int64(100), gw.calls[0].BaseRev)
	assert.JSONEq(t, `{"descriptions":{"de":{"language":"de","value":"Hauptstadt"}}}`, gw.calls[0].Data)
	assert.Equal(t, StatusLoaded, e.Status())
}

func TestSave_ExistingClaimsOnly(t *testing.T) {
	gw := newFakeGateway()
	gw.entities["Q64"] = berlinJSON
	e := loadedItem(t, gw, berlinJSON)

	existing := e.GetClaims("P17")[0]
	require.NoError(t, existing.SetRank(RankPreferred))
	_, err := e.AddClaim(itemSnak(t, "P31", "Q515"))
	require.NoError(t, err)

	require.NoError(t, e.Save(context.Background(), ""))

	assert.Equal(t, []string{"SetClaim", "SetClaim", "GetEntityJSON"}, gw.methods(), "no empty term edit")
	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(gw.calls[0].Data), &first))
	assert.Equal(t, "Q64$1", first["id"])
	assert.Equal(t, "preferred", first["rank"])
	assert.Equal(t, int64(100), gw.calls[0].BaseRev)
	assert.Equal(t, int64(101), gw.calls[1].BaseRev)
	assert.Equal(t, StatusLoaded, e.Status())
}

func TestSave_RemovedClaim(t *testing.T) {
	gw := newFakeGateway()
	gw.entities["Q64"] = berlinJSON
	e := loadedItem(t, gw, berlinJSON)
	require.NoError(t, e.RemoveClaim(e.Claims()[0]))

	require.NoError(t, e.Save(context.Background(), ""))

	assert.Equal(t, []string{"RemoveClaims", "GetEntityJSON"}, gw.methods())
	assert.Equal(t, []string{"Q64$1"}, gw.calls[0].Hashes)
}

func TestSave_ToBeDeleted(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantTitle string
	}{
		{"item", berlinJSON, "Item:Q64"},
		{"property", `{"id":"P31","type":"property","datatype":"wikibase-item","lastrevid":5}`, "Property:P31"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newFakeGateway()
			e := loadedItem(t, gw, tt.raw)
			require.NoError(t, e.Delete())
			require.NoError(t, e.Save(context.Background(), "cleanup"))

			require.Equal(t, []string{"DeleteEntity"}, gw.methods())
			assert.Equal(t, tt.wantTitle, gw.calls[0].ID)
			assert.Equal(t, "cleanup", gw.calls[0].Summary)
			assert.Equal(t, StatusDeleted, e.Status())
			assert.Empty(t, e.Labels())

			require.ErrorIs(t, e.Save(context.Background(), ""), ErrState)
		})
	}
}

func TestSave_FailureKeepsDirtyState(t *testing.T) {
	remote := &RemoteError{Code: "failed-save", Info: "The save has failed."}

	t.Run("term edit fails", func(t *testing.T) {
		gw := newFakeGateway()
		gw.failOn = map[string]error{"EditEntity": remote}
		e := loadedItem(t, gw, berlinJSON)
		require.NoError(t, e.SetLabel("en", "Berlin!"))

		err := e.Save(context.Background(), "")
		var rerr *RemoteError
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, "failed-save", rerr.Code)
		assert.Equal(t, StatusChanged, e.Status())
		assert.Equal(t, map[string]string{"en": "Berlin!"}, e.PendingChange().Labels)

		// The retry resends the same patch.
		require.NoError(t, e.Save(context.Background(), ""))
		assert.Equal(t, gw.calls[0].Data, gw.calls[1].Data)
	})

	t.Run("claim save fails after terms", func(t *testing.T) {
		gw := newFakeGateway()
		gw.failOn = map[string]error{"SetClaim": remote}
		e := NewItem(gw)
		require.NoError(t, e.SetLabel("en", "Berlin"))
		_, err := e.AddStatement(itemSnak(t, "P31", "Q515"), RankNormal)
		require.NoError(t, err)

		require.Error(t, e.Save(context.Background(), ""))
		assert.Equal(t, MustParseEntityID("Q1001"), e.ID(), "the entity was created")
		assert.True(t, e.PendingChange().IsEmpty(), "terms are committed")
		assert.Equal(t, ClaimNew, e.Claims()[0].Status())

		require.NoError(t, e.Save(context.Background(), ""))
		assert.Equal(t, []string{"CreateEntity", "SetClaim", "SetClaim", "GetEntityJSON"}, gw.methods())
		assert.Equal(t, StatusLoaded, e.Status())
	})

	t.Run("transport error", func(t *testing.T) {
		gw := newFakeGateway()
		boom := errors.New("connection reset")
		gw.failOn = map[string]error{"CreateEntity": boom}
		e := NewItem(gw)
		require.NoError(t, e.SetLabel("en", "Berlin"))
		require.ErrorIs(t, e.Save(context.Background(), ""), boom)
		assert.True(t, e.ID().IsZero())
		assert.Equal(t, StatusNew, e.Status())
	})
}

func TestSave_AliasCommit(t *testing.T) {
	gw := newFakeGateway()
	gw.entities["Q64"] = berlinJSON
	e := loadedItem(t, gw, berlinJSON)
	require.NoError(t, e.AddAlias("en", "Spree-Athen"))
	require.NoError(t, e.RemoveAlias("en", "Berlin, Germany"))

	require.NoError(t, e.Save(context.Background(), ""))
	assert.JSONEq(t, `{"aliases":[
		{"language":"en","value":"Berlin, Germany","remove":""},
		{"language":"en","value":"Spree-Athen","add":""}]}`, gw.calls[0].Data)
}

func TestSave_WithoutGateway(t *testing.T) {
	e := NewItem(nil)
	require.NoError(t, e.SetLabel("en", "x"))
	require.ErrorIs(t, e.Save(context.Background(), ""), ErrState)
}

func TestSave_DeletedNewClaimIsNotSent(t *testing.T) {
	tests := []struct {
		name   string
		remove func(e *Entity, c *Claim) error
	}{
		{"claim delete", func(_ *Entity, c *Claim) error { return c.Delete() }},
		{"entity remove", func(e *Entity, c *Claim) error { return e.RemoveClaim(c) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newFakeGateway()
			gw.entities["Q64"] = berlinJSON
			e := loadedItem(t, gw, berlinJSON)
			c, err := e.AddStatement(itemSnak(t, "P31", "Q515"), RankNormal)
			require.NoError(t, err)
			require.NotEmpty(t, c.ID(), "a claim on a saved entity gets its GUID at once")

			require.NoError(t, tt.remove(e, c))
			assert.Equal(t, ClaimDeleted, c.Status())
			assert.Len(t, e.Claims(), 1)
			require.ErrorIs(t, c.SetRank(RankPreferred), ErrState)

			require.NoError(t, e.Save(context.Background(), ""))
			assert.Empty(t, gw.calls)
			assert.Equal(t, StatusLoaded, e.Status())
		})
	}
}

func TestSave_HeldClaimStaysLive(t *testing.T) {
	gw := newFakeGateway()
	gw.entities["Q64"] = berlinJSON
	e := loadedItem(t, gw, berlinJSON)
	c := e.GetClaims("P17")[0]

	require.NoError(t, c.SetRank(RankPreferred))
	require.NoError(t, e.Save(context.Background(), ""))
	require.Equal(t, []string{"SetClaim", "GetEntityJSON"}, gw.methods())
	require.Len(t, e.Claims(), 1)
	assert.Same(t, c, e.Claims()[0], "the reload refreshes the held claim")
	assert.Equal(t, ClaimExisting, c.Status())
	assert.Equal(t, RankPreferred, c.Rank())

	require.NoError(t, c.SetRank(RankDeprecated))
	assert.Equal(t, StatusChanged, e.Status())
	require.NoError(t, e.Save(context.Background(), ""))
	require.Equal(t, []string{"SetClaim", "GetEntityJSON", "SetClaim", "GetEntityJSON"}, gw.methods())

	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(gw.calls[2].Data), &sent))
	assert.Equal(t, "Q64$1", sent["id"])
	assert.Equal(t, "deprecated", sent["rank"])
	assert.Equal(t, RankDeprecated, e.Claims()[0].Rank())
}

func TestSave_HeldReferenceStaysLive(t *testing.T) {
	gw := newFakeGateway()
	gw.entities["Q1"] = statementEntityJSON
	e := loadedItem(t, gw, statementEntityJSON)
	c := e.Claims()[0]
	r := c.References()[0]
	q := c.Qualifiers()[0]

	require.NoError(t, r.AddSnak(mustSnak(t, "P813", NewStringValue("today"))))
	require.NoError(t, e.Save(context.Background(), ""))
	require.Equal(t, []string{"SetClaim", "GetEntityJSON"}, gw.methods())

	assert.Same(t, c, e.Claims()[0])
	assert.Same(t, r, c.References()[0])
	assert.Same(t, q, c.Qualifiers()[0])
	assert.Same(t, c, r.Statement())
	assert.Len(t, r.Snaks(), 2)

	require.NoError(t, r.AddSnak(mustSnak(t, "P854", NewStringValue("https://example.org"))))
	assert.Equal(t, ClaimModified, c.Status())
	assert.Equal(t, StatusChanged, e.Status())
}

func TestFillData_DetachesVanishedClaims(t *testing.T) {
	e := loadedItem(t, nil, statementEntityJSON)
	c := e.Claims()[0]
	r := c.References()[0]
	q := c.Qualifiers()[0]

	require.NoError(t, e.fillData(json.RawMessage(`{"id":"Q1","type":"item","lastrevid":101,"claims":{}}`)))
	assert.Empty(t, e.Claims())
	assert.Equal(t, ClaimDeleted, c.Status())
	require.ErrorIs(t, c.SetRank(RankPreferred), ErrState)
	require.ErrorIs(t, r.AddSnak(mustSnak(t, "P813", NewStringValue("today"))), ErrState)
	assert.Equal(t, StatusLoaded, e.Status())
	assert.NotNil(t, q.Claim(), "qualifiers of a vanished claim stay with it")
}

func TestFillData_DetachesVanishedReferences(t *testing.T) {
	e := loadedItem(t, nil, statementEntityJSON)
	c := e.Claims()[0]
	r := c.References()[0]
	q := c.Qualifiers()[0]

	require.NoError(t, e.fillData(json.RawMessage(`{"id":"Q1","type":"item","lastrevid":101,"claims":{"P31":[
		{"mainsnak":{"snaktype":"novalue","property":"P31"},"type":"statement","id":"Q1$s","rank":"preferred"}]}}`)))
	require.Len(t, e.Claims(), 1)
	assert.Same(t, c, e.Claims()[0])
	assert.Equal(t, RankPreferred, c.Rank())
	assert.Empty(t, c.References())
	assert.Empty(t, c.Qualifiers())

	require.ErrorIs(t, r.AddSnak(mustSnak(t, "P813", NewStringValue("today"))), ErrState)
	assert.Nil(t, q.Claim())
	require.ErrorIs(t, q.Save(context.Background(), ""), ErrState)
}
