package s3

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
)

func TestNewCollectionStore_InvalidKind(t *testing.T) {
	_, err := NewCollectionStore(context.Background(), newFakeS3(), "c", "folder")
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestCollectionStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	api := newFakeS3()
	store, err := NewCollectionStore(ctx, api, "collections", domain.CollectionChatProfile)
	require.NoError(t, err)
	assert.Equal(t, domain.CollectionChatProfile, store.Kind())

	c := &domain.Collection{ID: "p1", Title: "Profile", CreatedAt: "2024-01-02T00:00:00Z"}
	require.NoError(t, store.WriteDescriptor(ctx, c))
	require.NoError(t, store.WriteDocument(ctx, "p1", "doc", "# Doc"))

	got, err := store.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Profile", got.Title)

	md, err := store.ReadDocument(ctx, "p1", "doc")
	require.NoError(t, err)
	assert.Equal(t, "# Doc", md)

	assert.Equal(t, []string{"p1/files/doc.md", "p1/profile.json"}, api.keys())

	require.NoError(t, store.DeleteDocument(ctx, "p1", "doc"))
	_, err = store.ReadDocument(ctx, "p1", "doc")
	assert.True(t, errors.Is(err, domain.ErrDocumentNotFound))
	assert.True(t, errors.Is(store.DeleteDocument(ctx, "p1", "doc"), domain.ErrDocumentNotFound))

	require.NoError(t, store.Delete(ctx, "p1"))
	_, err = store.Get(ctx, "p1")
	assert.True(t, errors.Is(err, domain.ErrCollectionNotFound))
	assert.True(t, errors.Is(store.Delete(ctx, "p1"), domain.ErrCollectionNotFound))
}

func TestCollectionStore_ListFiltersByKind(t *testing.T) {
	ctx := context.Background()
	api := newFakeS3()
	profiles, err := NewCollectionStore(ctx, api, "shared", domain.CollectionChatProfile)
	require.NoError(t, err)
	contexts, err := NewCollectionStore(ctx, api, "shared", domain.CollectionKnowledgeContext)
	require.NoError(t, err)

	require.NoError(t, profiles.WriteDescriptor(ctx, &domain.Collection{ID: "b", CreatedAt: "2024-01-02"}))
	require.NoError(t, profiles.WriteDescriptor(ctx, &domain.Collection{ID: "a", CreatedAt: "2024-01-03"}))
	require.NoError(t, contexts.WriteDescriptor(ctx, &domain.Collection{ID: "k", CreatedAt: "2024-01-01"}))

	list, err := profiles.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)
	assert.Equal(t, "a", list[1].ID)

	list, err = contexts.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "k", list[0].ID)
}

func TestCollectionStore_SaveReplacesTree(t *testing.T) {
	ctx := context.Background()
	api := newFakeS3()
	store, err := NewCollectionStore(ctx, api, "c", domain.CollectionKnowledgeContext)
	require.NoError(t, err)

	require.NoError(t, store.WriteDocument(ctx, "k1", "old", "stale"))
	require.NoError(t, store.Save(ctx, "k1", makeTree(t, map[string]string{
		"knowledge_context.json": `{"id":"k1","title":"Fresh"}`,
		"files/new.md":           "new",
	})))

	assert.Equal(t, []string{"k1/files/new.md", "k1/knowledge_context.json"}, api.keys())

	got, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "Fresh", got.Title)
}
