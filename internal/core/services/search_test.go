package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/knowledge-flow/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
)

func TestSearchService_Search(t *testing.T) {
	index := memory.NewVectorIndex("kf-index")
	metadata := memory.NewMetadataStore()
	ctx := context.Background()

	require.NoError(t, index.Add(ctx, []domain.Chunk{
		{ID: "a1", DocumentUID: "a", Content: "visible chunk text", Embedding: []float32{1, 0}},
		{ID: "h1", DocumentUID: "hidden", Content: "hidden", Embedding: []float32{1, 0.01}},
		{ID: "o1", DocumentUID: "orphan", Content: "no metadata", Embedding: []float32{0.5, 0.5}},
	}))
	require.NoError(t, metadata.SaveMetadata(ctx, domain.Metadata{domain.KeyDocumentUID: "a"}))
	require.NoError(t, metadata.SaveMetadata(ctx, domain.Metadata{
		domain.KeyDocumentUID: "hidden",
		domain.KeyRetrievable: false,
	}))

	svc := NewSearchService(index, &mockEmbedding{vector: []float32{1, 0}}, metadata)

	hits, err := svc.Search(ctx, "query", 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "a1", hits[0].Chunk.ID)
	assert.Equal(t, 1, hits[0].Rank)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
	assert.Equal(t, 3, hits[0].TokenCount)
	assert.Equal(t, "mock-embed", hits[0].EmbeddingModel)
	assert.Equal(t, "kf-index", hits[0].VectorIndex)
	assert.NotEmpty(t, hits[0].RetrievedAt)

	assert.Equal(t, "o1", hits[1].Chunk.ID)
	assert.Equal(t, 2, hits[1].Rank)
}

func TestSearchService_Limit(t *testing.T) {
	index := memory.NewVectorIndex("i")
	ctx := context.Background()
	require.NoError(t, index.Add(ctx, []domain.Chunk{
		{ID: "1", DocumentUID: "d", Embedding: []float32{1}},
		{ID: "2", DocumentUID: "d", Embedding: []float32{1}},
		{ID: "3", DocumentUID: "d", Embedding: []float32{1}},
	}))

	svc := NewSearchService(index, &mockEmbedding{vector: []float32{1}}, nil)
	hits, err := svc.Search(ctx, "q", 2)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestSearchService_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("empty query", func(t *testing.T) {
		hits, err := NewSearchService(nil, nil, nil).Search(ctx, "   ", 3)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("no embedding service", func(t *testing.T) {
		_, err := NewSearchService(memory.NewVectorIndex("i"), nil, nil).Search(ctx, "q", 3)
		assert.True(t, errors.Is(err, domain.ErrEmbeddingUnavailable))
	})

	t.Run("embedding failure", func(t *testing.T) {
		svc := NewSearchService(memory.NewVectorIndex("i"), &mockEmbedding{embedErr: errBoom}, nil)
		_, err := svc.Search(ctx, "q", 3)
		assert.True(t, errors.Is(err, domain.ErrProcessingFailure))
		assert.True(t, errors.Is(err, errBoom))
	})
}
