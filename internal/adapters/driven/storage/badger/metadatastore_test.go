package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
)

func newTestStore(t *testing.T) *MetadataStore {
	t.Helper()
	store, err := NewMetadataStore("")
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })
	return store
}

func TestMetadataStore_SaveAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveMetadata(ctx, domain.Metadata{
		domain.KeyDocumentUID:  "u1",
		domain.KeyDocumentName: "a.pdf",
	}))

	got, err := store.GetMetadataByUID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", got.DocumentName())

	missing, err := store.GetMetadataByUID(ctx, "u2")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMetadataStore_SaveRequiresUID(t *testing.T) {
	err := newTestStore(t).SaveMetadata(context.Background(), domain.Metadata{})
	assert.ErrorIs(t, err, domain.ErrMissingDocumentUID)
}

func TestMetadataStore_UpdateField(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveMetadata(ctx, domain.Metadata{domain.KeyDocumentUID: "u1"}))

	updated, err := store.UpdateMetadataField(ctx, "u1", domain.KeyRetrievable, false)
	require.NoError(t, err)
	assert.False(t, updated.Retrievable())

	got, err := store.GetMetadataByUID(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, got.Retrievable())

	_, err = store.UpdateMetadataField(ctx, "nope", "x", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMetadataStore_Delete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	record := domain.Metadata{domain.KeyDocumentUID: "u1"}
	require.NoError(t, store.SaveMetadata(ctx, record))

	require.NoError(t, store.DeleteMetadata(ctx, record))
	assert.ErrorIs(t, store.DeleteMetadata(ctx, record), domain.ErrNotFound)
	assert.ErrorIs(t, store.DeleteMetadata(ctx, domain.Metadata{}), domain.ErrMissingDocumentUID)
}

func TestMetadataStore_GetAllMetadata(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for uid, kind := range map[string]string{"c": "pdf", "a": "csv", "b": "pdf"} {
		require.NoError(t, store.SaveMetadata(ctx, domain.Metadata{domain.KeyDocumentUID: uid, "kind": kind}))
	}

	tests := []struct {
		name    string
		filters map[string]any
		want    []string
	}{
		{"all in uid order", nil, []string{"a", "b", "c"}},
		{"filtered", map[string]any{"kind": "pdf"}, []string{"b", "c"}},
		{"no match", map[string]any{"kind": "docx"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.GetAllMetadata(ctx, tt.filters)
			require.NoError(t, err)
			uids := []string{}
			for _, r := range got {
				uids = append(uids, r.DocumentUID())
			}
			assert.Equal(t, tt.want, uids)
		})
	}
}

func TestMetadataStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewMetadataStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.SaveMetadata(ctx, domain.Metadata{domain.KeyDocumentUID: "u1"}))
	require.NoError(t, store.Close())

	store, err = NewMetadataStore(dir)
	require.NoError(t, err)
	defer store.Close()
	got, err := store.GetMetadataByUID(ctx, "u1")
	require.NoError(t, err)
	assert.NotNil(t, got)
}
