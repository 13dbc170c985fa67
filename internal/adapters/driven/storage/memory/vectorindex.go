package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// ErrMissingEmbedding is returned when a chunk without a vector is added.
var ErrMissingEmbedding = errors.New("chunk has no embedding")

// VectorIndex is a brute-force in-memory vector index using cosine similarity.
type VectorIndex struct {
	mu     sync.RWMutex
	name   string
	chunks map[string]domain.Chunk
}

// NewVectorIndex creates an empty index with the given name.
func NewVectorIndex(name string) *VectorIndex {
	return &VectorIndex{
		name:   name,
		chunks: make(map[string]domain.Chunk),
	}
}

// Name returns the index name.
func (v *VectorIndex) Name() string {
	return v.name
}

// Add inserts or replaces chunks by ID.
func (v *VectorIndex) Add(_ context.Context, chunks []domain.Chunk) error {
	for i := range chunks {
		if len(chunks[i].Embedding) == 0 {
			return ErrMissingEmbedding
		}
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, c := range chunks {
		c.Embedding = append([]float32(nil), c.Embedding...)
		v.chunks[c.ID] = c
	}
	return nil
}

// DeleteDocument removes all chunks of a document.
func (v *VectorIndex) DeleteDocument(_ context.Context, uid string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for id, c := range v.chunks {
		if c.DocumentUID == uid {
			delete(v.chunks, id)
		}
	}
	return nil
}

// Search returns the k most similar chunks, best first.
func (v *VectorIndex) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	hits := make([]driven.VectorHit, 0, len(v.chunks))
	for _, c := range v.chunks {
		hits = append(hits, driven.VectorHit{Chunk: c, Similarity: domain.CosineSimilarity(query, c.Embedding)})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity == hits[j].Similarity {
			return hits[i].Chunk.ID < hits[j].Chunk.ID
		}
		return hits[i].Similarity > hits[j].Similarity
	})
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of indexed chunks.
func (v *VectorIndex) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.chunks)
}

// Close is a no-op for the in-memory index.
func (v *VectorIndex) Close() error {
	return nil
}
