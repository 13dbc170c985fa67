package driving

import (
	"context"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
)

// SearchService answers similarity queries over indexed chunks.
type SearchService interface {
	// Search embeds query and returns up to k retrievable hits.
	Search(ctx context.Context, query string, k int) ([]domain.SearchHit, error)
}

// TabularService queries ingested tables.
type TabularService interface {
	// ListDatasets returns every tabular document.
	ListDatasets(ctx context.Context) ([]domain.TabularDataset, error)

	// GetSchema infers column types of a table.
	GetSchema(ctx context.Context, uid string) (*domain.TabularSchema, error)

	// Query selects rows of a table.
	Query(ctx context.Context, uid string, q domain.TabularQuery) (*domain.TabularResult, error)
}
