package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driving"
	"github.com/custodia-labs/knowledge-flow/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// defaultTopK is used when a search does not specify how many hits it wants.
const defaultTopK = 10

// overfetchFactor widens the index query so that hits of non-retrievable
// documents can be dropped without returning fewer than k results.
const overfetchFactor = 3

// SearchService provides vector similarity search over ingested chunks.
type SearchService struct {
	vectorIndex      driven.VectorIndex
	embeddingService driven.EmbeddingService
	metadataStore    driven.MetadataStore
}

// NewSearchService creates a new search service.
// The embeddingService parameter is optional (can be nil), in which case
// every search fails with domain.ErrEmbeddingUnavailable.
func NewSearchService(
	vectorIndex driven.VectorIndex,
	embeddingService driven.EmbeddingService,
	metadataStore driven.MetadataStore,
) *SearchService {
	return &SearchService{
		vectorIndex:      vectorIndex,
		embeddingService: embeddingService,
		metadataStore:    metadataStore,
	}
}

// Search embeds query and returns up to k hits from retrievable documents,
// ranked by similarity.
func (s *SearchService) Search(ctx context.Context, query string, k int) ([]domain.SearchHit, error) {
	logger.Section("Vector Search")
	logger.Debug("Query: %q", query)

	query = strings.TrimSpace(query)
	if query == "" {
		logger.Debug("Empty query, returning no results")
		return []domain.SearchHit{}, nil
	}
	if s.embeddingService == nil || s.vectorIndex == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if k <= 0 {
		k = defaultTopK
	}

	vec, err := s.embeddingService.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", domain.ErrProcessingFailure, err)
	}

	hits, err := s.vectorIndex.Search(ctx, vec, k*overfetchFactor)
	if err != nil {
		return nil, fmt.Errorf("%w: vector search: %w", domain.ErrStorageFailure, err)
	}
	logger.Debug("Vector index returned %d hits", len(hits))

	retrievable := make(map[string]bool)
	retrievedAt := domain.UTCNow()
	results := make([]domain.SearchHit, 0, k)

	for _, hit := range hits {
		if len(results) >= k {
			break
		}
		uid := hit.Chunk.DocumentUID
		ok, seen := retrievable[uid]
		if !seen {
			ok, err = s.isRetrievable(ctx, uid)
			if err != nil {
				return nil, err
			}
			retrievable[uid] = ok
		}
		if !ok {
			continue
		}

		results = append(results, domain.SearchHit{
			Chunk:          hit.Chunk,
			Score:          hit.Similarity,
			Rank:           len(results) + 1,
			RetrievedAt:    retrievedAt,
			EmbeddingModel: s.embeddingService.ModelName(),
			VectorIndex:    s.vectorIndex.Name(),
			TokenCount:     domain.CountTokens(hit.Chunk.Content),
		})
	}

	logger.Debug("Returning %d results", len(results))
	return results, nil
}

// isRetrievable treats documents without a metadata record as retrievable.
func (s *SearchService) isRetrievable(ctx context.Context, uid string) (bool, error) {
	if s.metadataStore == nil {
		return true, nil
	}
	md, err := s.metadataStore.GetMetadataByUID(ctx, uid)
	if err != nil {
		return false, err
	}
	return md == nil || md.Retrievable(), nil
}
