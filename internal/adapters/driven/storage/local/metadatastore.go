package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
)

// Ensure MetadataStore implements the interface.
var _ driven.MetadataStore = (*MetadataStore)(nil)

// MetadataStore keeps all records in one JSON file, rewritten on every
// change. Suitable for small deployments and development.
type MetadataStore struct {
	mu      sync.RWMutex
	path    string
	records map[string]domain.Metadata
}

// NewMetadataStore opens or creates the JSON file at path.
// If path is empty, defaults to ~/.knowledge-flow/metadata.json.
func NewMetadataStore(path string) (*MetadataStore, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(home, ".knowledge-flow", "metadata.json")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, storageErr("create metadata dir", err)
	}

	s := &MetadataStore{
		path:    path,
		records: make(map[string]domain.Metadata),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MetadataStore) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return storageErr("read metadata", err)
	}
	if len(data) == 0 {
		return nil
	}

	var list []domain.Metadata
	if err := json.Unmarshal(data, &list); err != nil {
		return storageErr("decode metadata", err)
	}
	for _, r := range list {
		if uid := r.DocumentUID(); uid != "" {
			s.records[uid] = r
		}
	}
	return nil
}

// save writes all records (caller must hold lock).
func (s *MetadataStore) save() error {
	list := make([]domain.Metadata, 0, len(s.records))
	for _, uid := range s.sortedUIDs() {
		list = append(list, s.records[uid])
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return storageErr("encode metadata", err)
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return storageErr("write metadata", err)
	}
	return nil
}

func (s *MetadataStore) sortedUIDs() []string {
	uids := make([]string, 0, len(s.records))
	for uid := range s.records {
		uids = append(uids, uid)
	}
	sort.Strings(uids)
	return uids
}

// SaveMetadata stores or replaces a record.
func (s *MetadataStore) SaveMetadata(_ context.Context, record domain.Metadata) error {
	uid := record.DocumentUID()
	if uid == "" {
		return domain.ErrMissingDocumentUID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.records[uid]
	s.records[uid] = record.Clone()
	if err := s.save(); err != nil {
		if had {
			s.records[uid] = prev
		} else {
			delete(s.records, uid)
		}
		return err
	}
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

	updated := record.Clone()
	updated[field] = value
	s.records[uid] = updated
	if err := s.save(); err != nil {
		s.records[uid] = record
		return nil, err
	}
	return updated.Clone(), nil
}

// DeleteMetadata removes the record with the given record's UID.
func (s *MetadataStore) DeleteMetadata(_ context.Context, record domain.Metadata) error {
	uid := record.DocumentUID()
	if uid == "" {
		return domain.ErrMissingDocumentUID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.records[uid]
	if !ok {
		return fmt.Errorf("%w: document %s", domain.ErrNotFound, uid)
	}
	delete(s.records, uid)
	if err := s.save(); err != nil {
		s.records[uid] = prev
		return err
	}
	return nil
}

// GetAllMetadata returns matching records ordered by UID.
func (s *MetadataStore) GetAllMetadata(_ context.Context, filters map[string]any) ([]domain.Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []domain.Metadata{}
	for _, uid := range s.sortedUIDs() {
		if domain.MatchFilters(s.records[uid], filters) {
			result = append(result, s.records[uid].Clone())
		}
	}
	return result, nil
}

// Close is a no-op; every change is already on disk.
func (s *MetadataStore) Close() error {
	return nil
}
