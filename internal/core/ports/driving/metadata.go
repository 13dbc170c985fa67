package driving

import (
	"context"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
)

// MetadataService manages document metadata records.
type MetadataService interface {
	// GetDocumentsMetadata returns every record matching filters.
	GetDocumentsMetadata(ctx context.Context, filters map[string]any) ([]domain.Metadata, error)

	// GetDocumentMetadata returns one record.
	GetDocumentMetadata(ctx context.Context, uid string) (domain.Metadata, error)

	// UpdateRetrievable toggles whether a document appears in search results.
	UpdateRetrievable(ctx context.Context, uid string, retrievable bool) (domain.Metadata, error)

	// UpdateDocumentMetadata sets several top-level fields at once.
	UpdateDocumentMetadata(ctx context.Context, uid string, fields map[string]any) (domain.Metadata, error)

	// DeleteDocument removes metadata, content and vectors of a document.
	DeleteDocument(ctx context.Context, uid string) error

	// SearchMetadata runs a full-text query when the backend supports it.
	SearchMetadata(ctx context.Context, query string, limit int) ([]domain.Metadata, error)
}

// ContentService serves stored document content.
type ContentService interface {
	// GetMarkdown returns the converted markdown of a document.
	GetMarkdown(ctx context.Context, uid string) (string, error)

	// GetRawContent opens the original upload and returns its file name.
	GetRawContent(ctx context.Context, uid string) (*RawContent, error)
}
