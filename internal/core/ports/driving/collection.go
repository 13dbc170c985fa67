package driving

import (
	"context"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
)

// CollectionService manages knowledge contexts or chat profiles.
type CollectionService interface {
	// Kind returns the collection kind served.
	Kind() domain.CollectionKind

	// Create converts files and stores them as a new collection.
	Create(ctx context.Context, req CollectionRequest) (*domain.Collection, error)

	// Update changes the descriptor and adds or replaces documents.
	Update(ctx context.Context, id string, req CollectionRequest) (*domain.Collection, error)

	// Delete removes a collection.
	Delete(ctx context.Context, id string) error

	// List returns collections with the given tag, or all when tag is empty.
	List(ctx context.Context, tag string) ([]domain.Collection, error)

	// Get returns the collection with its documents' markdown concatenated.
	Get(ctx context.Context, id string) (*domain.CollectionContent, error)

	// DeleteDocument removes one document from a collection.
	DeleteDocument(ctx context.Context, id, documentID string) (*domain.Collection, error)

	// MaxTokens returns the token budget per collection.
	MaxTokens() int
}

// CollectionRequest carries the fields of a create or update call.
// Empty strings leave existing values unchanged on update.
type CollectionRequest struct {
	Title       string
	Description string
	Tag         string
	Creator     string
	UserID      string
	Files       []domain.CollectionUpload
}
