package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driving"
	"github.com/custodia-labs/knowledge-flow/internal/logger"
)

// Ensure MetadataService implements the interface.
var _ driving.MetadataService = (*MetadataService)(nil)

// MetadataService manages document metadata and whole-document deletion.
type MetadataService struct {
	metadataStore driven.MetadataStore
	contentStore  driven.ContentStore
	vectorIndex   driven.VectorIndex
	locks         *KeyLock
}

// NewMetadataService creates a new metadata service.
// vectorIndex is optional.
func NewMetadataService(
	metadataStore driven.MetadataStore,
	contentStore driven.ContentStore,
	vectorIndex driven.VectorIndex,
	locks *KeyLock,
) *MetadataService {
	if locks == nil {
		locks = NewKeyLock()
	}
	return &MetadataService{
		metadataStore: metadataStore,
		contentStore:  contentStore,
		vectorIndex:   vectorIndex,
		locks:         locks,
	}
}

// GetDocumentsMetadata returns every record matching filters.
func (s *MetadataService) GetDocumentsMetadata(ctx context.Context, filters map[string]any) ([]domain.Metadata, error) {
	return s.metadataStore.GetAllMetadata(ctx, filters)
}

// GetDocumentMetadata returns one record or domain.ErrNotFound.
func (s *MetadataService) GetDocumentMetadata(ctx context.Context, uid string) (domain.Metadata, error) {
	if uid == "" {
		return nil, fmt.Errorf("%w: empty document uid", domain.ErrInvalidRequest)
	}
	md, err := s.metadataStore.GetMetadataByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if md == nil {
		return nil, fmt.Errorf("%w: document %s", domain.ErrNotFound, uid)
	}
	return md, nil
}

// UpdateRetrievable toggles whether a document appears in search results.
func (s *MetadataService) UpdateRetrievable(ctx context.Context, uid string, retrievable bool) (domain.Metadata, error) {
	return s.UpdateDocumentMetadata(ctx, uid, map[string]any{domain.KeyRetrievable: retrievable})
}

// UpdateDocumentMetadata sets several top-level fields. The document UID
// itself cannot be changed.
func (s *MetadataService) UpdateDocumentMetadata(
	ctx context.Context, uid string, fields map[string]any,
) (domain.Metadata, error) {
	if uid == "" {
		return nil, fmt.Errorf("%w: empty document uid", domain.ErrInvalidRequest)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty update payload", domain.ErrInvalidRequest)
	}
	if _, ok := fields[domain.KeyDocumentUID]; ok {
		return nil, fmt.Errorf("%w: %s cannot be updated", domain.ErrInvalidRequest, domain.KeyDocumentUID)
	}

	unlock := s.locks.Lock(uid)
	defer unlock()

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var md domain.Metadata
	for _, k := range keys {
		var err error
		md, err = s.metadataStore.UpdateMetadataField(ctx, uid, k, fields[k])
		if err != nil {
			return nil, err
		}
	}
	return md, nil
}

// DeleteDocument removes the metadata, then the content, then the vectors
// of a document while holding its lock.
func (s *MetadataService) DeleteDocument(ctx context.Context, uid string) error {
	if uid == "" {
		return fmt.Errorf("%w: empty document uid", domain.ErrInvalidRequest)
	}

	unlock := s.locks.Lock(uid)
	defer unlock()

	md, err := s.metadataStore.GetMetadataByUID(ctx, uid)
	if err != nil {
		return err
	}
	if md == nil {
		return fmt.Errorf("%w: document %s", domain.ErrNotFound, uid)
	}

	if err := s.metadataStore.DeleteMetadata(ctx, md); err != nil {
		return err
	}
	if err := s.contentStore.DeleteContent(ctx, uid); err != nil {
		return err
	}
	if s.vectorIndex != nil {
		if err := s.vectorIndex.DeleteDocument(ctx, uid); err != nil {
			return fmt.Errorf("%w: delete vectors: %w", domain.ErrStorageFailure, err)
		}
	}

	logger.Info("Deleted document %s", uid)
	return nil
}

// SearchMetadata uses the store's full-text index when it has one and
// otherwise scans string fields for the query, case-insensitively.
func (s *MetadataService) SearchMetadata(ctx context.Context, query string, limit int) ([]domain.Metadata, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Metadata{}, nil
	}
	if limit <= 0 {
		limit = 20
	}

	if searcher, ok := s.metadataStore.(driven.MetadataSearcher); ok {
		return searcher.SearchMetadata(ctx, query, limit)
	}

	all, err := s.metadataStore.GetAllMetadata(ctx, nil)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	results := []domain.Metadata{}
	for _, md := range all {
		if len(results) >= limit {
			break
		}
		if metadataContains(md, needle) {
			results = append(results, md)
		}
	}
	return results, nil
}

func metadataContains(md domain.Metadata, needle string) bool {
	for _, v := range md {
		if str, ok := v.(string); ok && strings.Contains(strings.ToLower(str), needle) {
			return true
		}
	}
	return false
}
