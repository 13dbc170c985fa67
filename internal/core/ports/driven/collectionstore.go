package driven

import (
	"context"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
)

// CollectionStore persists knowledge contexts or chat profiles. A store
// serves one domain.CollectionKind, which fixes the descriptor file name:
//
//	{id}/{descriptor}.json
//	{id}/files/{document_id}.md
type CollectionStore interface {
	// Kind returns the collection kind this store serves.
	Kind() domain.CollectionKind

	// Save replaces the collection tree with the contents of sourceDir,
	// which must hold the descriptor and the files/ subdirectory.
	Save(ctx context.Context, id, sourceDir string) error

	// Get reads a collection descriptor.
	// Returns domain.ErrCollectionNotFound if absent.
	Get(ctx context.Context, id string) (*domain.Collection, error)

	// List returns every collection descriptor.
	List(ctx context.Context) ([]domain.Collection, error)

	// Delete removes the collection and all its documents.
	// Returns domain.ErrCollectionNotFound if absent.
	Delete(ctx context.Context, id string) error

	// ReadDocument returns the markdown of one document.
	// Returns domain.ErrDocumentNotFound if absent.
	ReadDocument(ctx context.Context, id, documentID string) (string, error)

	// WriteDocument stores the markdown of one document.
	WriteDocument(ctx context.Context, id, documentID, markdown string) error

	// DeleteDocument removes the markdown of one document.
	DeleteDocument(ctx context.Context, id, documentID string) error

	// WriteDescriptor rewrites the collection descriptor.
	WriteDescriptor(ctx context.Context, c *domain.Collection) error
}
