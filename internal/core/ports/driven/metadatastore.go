package driven

import (
	"context"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
)

// MetadataStore persists document metadata records keyed by document_uid.
// Backend errors are reported as domain.ErrStorageFailure.
type MetadataStore interface {
	// SaveMetadata stores a record, replacing any record with the same UID.
	// Fails with domain.ErrMissingDocumentUID if the record has no UID.
	SaveMetadata(ctx context.Context, record domain.Metadata) error

	// GetMetadataByUID returns the record, or nil with no error if absent.
	GetMetadataByUID(ctx context.Context, uid string) (domain.Metadata, error)

	// UpdateMetadataField sets one top-level field and returns the record.
	// Fails with domain.ErrNotFound if the UID is unknown.
	UpdateMetadataField(ctx context.Context, uid, field string, value any) (domain.Metadata, error)

	// DeleteMetadata removes the record with the given record's UID.
	// Fails with domain.ErrMissingDocumentUID if absent from the record,
	// and with domain.ErrNotFound if unknown to the store.
	DeleteMetadata(ctx context.Context, record domain.Metadata) error

	// GetAllMetadata returns every record matching filters (see
	// domain.MatchFilters). An empty filter returns all records.
	GetAllMetadata(ctx context.Context, filters map[string]any) ([]domain.Metadata, error)

	// Close releases resources.
	Close() error
}

// MetadataSearcher is implemented by metadata stores with a full-text index.
type MetadataSearcher interface {
	// SearchMetadata returns records whose indexed text matches query.
	SearchMetadata(ctx context.Context, query string, limit int) ([]domain.Metadata, error)
}
