package wikibase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_GetEntity(t *testing.T) {
	gw := newFakeGateway()
	gw.entities["Q64"] = berlinJSON
	repo := NewRepository(gw)
	ctx := context.Background()

	e, err := repo.GetEntity(ctx, MustParseEntityID("q64"), "en")
	require.NoError(t, err)
	assert.Equal(t, "Berlin", e.Label("en"))
	assert.Equal(t, "Q64", gw.calls[0].Data)

	_, err = repo.GetEntity(ctx, MustParseEntityID("Q1"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_GetEntities(t *testing.T) {
	gw := newFakeGateway()
	gw.entities["Q64"] = berlinJSON
	gw.entities["P17"] = `{"id":"P17","type":"property","datatype":"wikibase-item","labels":{"en":{"language":"en","value":"country"}}}`
	repo := NewRepository(gw)

	list, err := repo.GetEntities(context.Background(), []EntityID{
		MustParseEntityID("P17"), MustParseEntityID("Q404"), MustParseEntityID("Q64"),
	}, nil)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "country", list[0].Label("en"))
	assert.Equal(t, EntityTypeProperty, list[0].Type())
	assert.Equal(t, "Berlin", list[1].Label("en"))

	list, err = repo.GetEntities(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRepository_GetEntitiesBySitelink(t *testing.T) {
	gw := newFakeGateway()
	gw.entities["Q64"] = berlinJSON
	repo := NewRepository(gw)

	list, err := repo.GetEntitiesBySitelink(context.Background(), []string{"enwiki"}, []string{"Berlin"}, nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, MustParseEntityID("Q64"), list[0].ID())

	list, err = repo.GetEntitiesBySitelink(context.Background(), nil, []string{"Berlin"}, nil)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRepository_NewEntitiesAreBound(t *testing.T) {
	gw := newFakeGateway()
	repo := NewRepository(gw)

	item := repo.NewItem()
	require.NoError(t, item.SetLabel("en", "Berlin"))
	require.NoError(t, item.Save(context.Background(), ""))
	assert.False(t, item.ID().IsZero())

	prop := repo.NewProperty("string")
	assert.Equal(t, EntityTypeProperty, prop.Type())
	assert.Equal(t, StatusNew, prop.Status())
}
