package driven

import (
	"context"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
)

// VectorIndex stores embedded chunks and answers similarity queries.
type VectorIndex interface {
	// Name identifies the index in provenance metadata.
	Name() string

	// Add inserts embedded chunks. Chunks without an embedding are rejected.
	Add(ctx context.Context, chunks []domain.Chunk) error

	// DeleteDocument removes every chunk of a document.
	DeleteDocument(ctx context.Context, uid string) error

	// Search finds the k nearest chunks to the query vector.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Close releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// Chunk is the matched chunk, with its indexed metadata.
	Chunk domain.Chunk

	// Similarity is the cosine similarity score.
	Similarity float64
}
