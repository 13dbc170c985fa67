package local

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
)

func TestMetadataStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta", "metadata.json")
	ctx := context.Background()

	store, err := NewMetadataStore(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveMetadata(ctx, domain.Metadata{
		domain.KeyDocumentUID:  "u1",
		domain.KeyDocumentName: "a.txt",
		domain.KeyRetrievable:  true,
	}))
	_, err = store.UpdateMetadataField(ctx, "u1", "category", "hr")
	require.NoError(t, err)

	reopened, err := NewMetadataStore(path)
	require.NoError(t, err)

	got, err := reopened.GetMetadataByUID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "a.txt", got.DocumentName())
	assert.Equal(t, "hr", got["category"])
	assert.True(t, got.Retrievable())
}

func TestMetadataStore_Errors(t *testing.T) {
	store, err := NewMetadataStore(filepath.Join(t.TempDir(), "metadata.json"))
	require.NoError(t, err)
	ctx := context.Background()

	assert.True(t, errors.Is(store.SaveMetadata(ctx, domain.Metadata{}), domain.ErrMissingDocumentUID))
	assert.True(t, errors.Is(store.DeleteMetadata(ctx, domain.Metadata{}), domain.ErrMissingDocumentUID))
	assert.True(t, errors.Is(
		store.DeleteMetadata(ctx, domain.Metadata{domain.KeyDocumentUID: "nope"}), domain.ErrNotFound))

	_, err = store.UpdateMetadataField(ctx, "nope", "x", 1)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestMetadataStore_Filters(t *testing.T) {
	store, err := NewMetadataStore(filepath.Join(t.TempDir(), "metadata.json"))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.SaveMetadata(ctx, domain.Metadata{domain.KeyDocumentUID: "a", "suffix": ".csv"}))
	require.NoError(t, store.SaveMetadata(ctx, domain.Metadata{domain.KeyDocumentUID: "b", "suffix": ".pdf"}))

	all, err := store.GetAllMetadata(ctx, map[string]any{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	csv, err := store.GetAllMetadata(ctx, map[string]any{"suffix": ".csv"})
	require.NoError(t, err)
	require.Len(t, csv, 1)
	assert.Equal(t, "a", csv[0].DocumentUID())
}
