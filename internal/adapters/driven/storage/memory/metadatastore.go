package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
)

// Ensure MetadataStore implements the interface.
var _ driven.MetadataStore = (*MetadataStore)(nil)

// MetadataStore is an in-memory implementation of driven.MetadataStore.
// Records are cloned on the way in and out.
type MetadataStore struct {
	mu      sync.RWMutex
	records map[string]domain.Metadata
}

// NewMetadataStore creates a new in-memory metadata store.
func NewMetadataStore() *MetadataStore {
	return &MetadataStore{
		records: make(map[string]domain.Metadata),
	}
}

// SaveMetadata stores or replaces a record.
func (s *MetadataStore) SaveMetadata(_ context.Context, record domain.Metadata) error {
	uid := record.DocumentUID()
	if uid == "" {
		return domain.ErrMissingDocumentUID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[uid] = record.Clone()
	return nil
}

// GetMetadataByUID returns the record, or nil if absent.
func (s *MetadataStore) GetMetadataByUID(_ context.Context, uid string) (domain.Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[uid]
	if !ok {
		return nil, nil
	}
	return record.Clone(), nil
}

// UpdateMetadataField sets one field of an existing record.
func (s *MetadataStore) UpdateMetadataField(
	_ context.Context, uid, field string, value any,
) (domain.Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[uid]
	if !ok {
		return nil, fmt.Errorf("%w: document %s", domain.ErrNotFound, uid)
	}
	record[field] = value
	return record.Clone(), nil
}

// DeleteMetadata removes the record with the given record's UID.
func (s *MetadataStore) DeleteMetadata(_ context.Context, record domain.Metadata) error {
	uid := record.DocumentUID()
	if uid == "" {
		return domain.ErrMissingDocumentUID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[uid]; !ok {
		return fmt.Errorf("%w: document %s", domain.ErrNotFound, uid)
	}
	delete(s.records, uid)
	return nil
}

// GetAllMetadata returns matching records ordered by UID.
func (s *MetadataStore) GetAllMetadata(_ context.Context, filters map[string]any) ([]domain.Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uids := make([]string, 0, len(s.records))
	for uid := range s.records {
		uids = append(uids, uid)
	}
	sort.Strings(uids)

	result := make([]domain.Metadata, 0, len(uids))
	for _, uid := range uids {
		if domain.MatchFilters(s.records[uid], filters) {
			result = append(result, s.records[uid].Clone())
		}
	}
	return result, nil
}

// Close is a no-op for the in-memory store.
func (s *MetadataStore) Close() error {
	return nil
}
