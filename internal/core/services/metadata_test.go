package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/knowledge-flow/internal/adapters/driven/storage/local"
	"github.com/custodia-labs/knowledge-flow/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
)

func newMetadataFixture(t *testing.T) (*MetadataService, *memory.MetadataStore, *local.ContentStore, *memory.VectorIndex) {
	t.Helper()
	content, err := local.NewContentStore(t.TempDir())
	require.NoError(t, err)
	metadata := memory.NewMetadataStore()
	index := memory.NewVectorIndex("i")
	return NewMetadataService(metadata, content, index, NewKeyLock()), metadata, content, index
}

func TestMetadataService_GetDocumentMetadata(t *testing.T) {
	svc, store, _, _ := newMetadataFixture(t)
	ctx := context.Background()
	require.NoError(t, store.SaveMetadata(ctx, domain.Metadata{domain.KeyDocumentUID: "u1"}))

	md, err := svc.GetDocumentMetadata(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", md.DocumentUID())

	_, err = svc.GetDocumentMetadata(ctx, "u2")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = svc.GetDocumentMetadata(ctx, "")
	assert.True(t, errors.Is(err, domain.ErrInvalidRequest))
}

func TestMetadataService_Updates(t *testing.T) {
	svc, store, _, _ := newMetadataFixture(t)
	ctx := context.Background()
	require.NoError(t, store.SaveMetadata(ctx, domain.Metadata{domain.KeyDocumentUID: "u1"}))

	md, err := svc.UpdateRetrievable(ctx, "u1", false)
	require.NoError(t, err)
	assert.False(t, md.Retrievable())

	md, err = svc.UpdateDocumentMetadata(ctx, "u1", map[string]any{"title": "T", "category": "c"})
	require.NoError(t, err)
	assert.Equal(t, "T", md["title"])
	assert.Equal(t, "c", md["category"])

	tests := []struct {
		name     string
		uid      string
		fields   map[string]any
		expected error
	}{
		{"empty payload", "u1", map[string]any{}, domain.ErrInvalidRequest},
		{"uid change", "u1", map[string]any{domain.KeyDocumentUID: "x"}, domain.ErrInvalidRequest},
		{"empty uid", "", map[string]any{"a": 1}, domain.ErrInvalidRequest},
		{"unknown uid", "zz", map[string]any{"a": 1}, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateDocumentMetadata(ctx, tt.uid, tt.fields)
			assert.True(t, errors.Is(err, tt.expected), err)
		})
	}
}

func TestMetadataService_DeleteDocument(t *testing.T) {
	svc, store, content, index := newMetadataFixture(t)
	ctx := context.Background()

	dir := t.TempDir()
	writeFile(t, dir, "input/a.txt", "a")
	require.NoError(t, content.SaveContent(ctx, "u1", dir))
	require.NoError(t, store.SaveMetadata(ctx, domain.Metadata{domain.KeyDocumentUID: "u1"}))
	require.NoError(t, index.Add(ctx, []domain.Chunk{{ID: "c", DocumentUID: "u1", Embedding: []float32{1}}}))

	require.NoError(t, svc.DeleteDocument(ctx, "u1"))

	md, err := store.GetMetadataByUID(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, md)
	_, err = content.GetContent(ctx, "u1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Equal(t, 0, index.Len())

	assert.True(t, errors.Is(svc.DeleteDocument(ctx, "u1"), domain.ErrNotFound))
	assert.True(t, errors.Is(svc.DeleteDocument(ctx, ""), domain.ErrInvalidRequest))
}

func TestMetadataService_ConcurrentDeletes(t *testing.T) {
	svc, store, _, _ := newMetadataFixture(t)
	ctx := context.Background()
	require.NoError(t, store.SaveMetadata(ctx, domain.Metadata{domain.KeyDocumentUID: "u1"}))

	var wg sync.WaitGroup
	results := make([]error, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = svc.DeleteDocument(ctx, "u1")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, errors.Is(err, domain.ErrNotFound))
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestMetadataService_SearchMetadataFallback(t *testing.T) {
	svc, store, _, _ := newMetadataFixture(t)
	ctx := context.Background()
	require.NoError(t, store.SaveMetadata(ctx, domain.Metadata{domain.KeyDocumentUID: "a", "title": "Quarterly Report"}))
	require.NoError(t, store.SaveMetadata(ctx, domain.Metadata{domain.KeyDocumentUID: "b", "title": "Roadmap"}))

	results, err := svc.SearchMetadata(ctx, "report", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].DocumentUID())

	results, err = svc.SearchMetadata(ctx, "  ", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}
