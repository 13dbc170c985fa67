package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
)

// Ensure CollectionStore implements the interface.
var _ driven.CollectionStore = (*CollectionStore)(nil)

// CollectionStore keeps collections as directories of markdown files with
// a JSON descriptor.
type CollectionStore struct {
	root string
	kind domain.CollectionKind
}

// NewCollectionStore creates a store for one collection kind rooted at root.
func NewCollectionStore(root string, kind domain.CollectionKind) (*CollectionStore, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: collection kind %q", domain.ErrConfiguration, kind)
	}
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, storageErr("create collection root", err)
	}
	return &CollectionStore{root: root, kind: kind}, nil
}

// Kind returns the collection kind this store serves.
func (s *CollectionStore) Kind() domain.CollectionKind {
	return s.kind
}

func (s *CollectionStore) dir(id string) string {
	return filepath.Join(s.root, id)
}

func (s *CollectionStore) descriptorPath(id string) string {
	return filepath.Join(s.root, id, s.kind.DescriptorFile())
}

func (s *CollectionStore) documentPath(id, documentID string) string {
	return filepath.Join(s.root, id, domain.CollectionFilesDir, documentID+".md")
}

// Save replaces the collection tree with sourceDir.
func (s *CollectionStore) Save(_ context.Context, id, sourceDir string) error {
	if err := checkKey(id); err != nil {
		return err
	}
	if err := os.RemoveAll(s.dir(id)); err != nil {
		return storageErr("purge collection", err)
	}
	if err := copyTree(sourceDir, s.dir(id)); err != nil {
		return storageErr("copy collection", err)
	}
	return nil
}

// Get reads a collection descriptor.
func (s *CollectionStore) Get(_ context.Context, id string) (*domain.Collection, error) {
	if err := checkKey(id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.descriptorPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, id)
	}
	if err != nil {
		return nil, storageErr("read descriptor", err)
	}

	var c domain.Collection
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, storageErr("decode descriptor", err)
	}
	return &c, nil
}

// List returns every collection ordered by creation time.
func (s *CollectionStore) List(ctx context.Context) ([]domain.Collection, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, storageErr("list collections", err)
	}

	out := []domain.Collection{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		c, err := s.Get(ctx, e.Name())
		if errors.Is(err, domain.ErrCollectionNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	sortCollections(out)
	return out, nil
}

// Delete removes the collection directory.
func (s *CollectionStore) Delete(_ context.Context, id string) error {
	if err := checkKey(id); err != nil {
		return err
	}
	if _, err := os.Stat(s.dir(id)); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, id)
	}
	if err := os.RemoveAll(s.dir(id)); err != nil {
		return storageErr("delete collection", err)
	}
	return nil
}

// ReadDocument returns the markdown of one document.
func (s *CollectionStore) ReadDocument(_ context.Context, id, documentID string) (string, error) {
	if err := checkKeys(id, documentID); err != nil {
		return "", err
	}
	data, err := os.ReadFile(s.documentPath(id, documentID))
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s in %s", domain.ErrDocumentNotFound, documentID, id)
	}
	if err != nil {
		return "", storageErr("read document", err)
	}
	return string(data), nil
}

// WriteDocument stores the markdown of one document.
func (s *CollectionStore) WriteDocument(_ context.Context, id, documentID, markdown string) error {
	if err := checkKeys(id, documentID); err != nil {
		return err
	}
	path := s.documentPath(id, documentID)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return storageErr("create files dir", err)
	}
	if err := os.WriteFile(path, []byte(markdown), 0600); err != nil {
		return storageErr("write document", err)
	}
	return nil
}

// DeleteDocument removes the markdown of one document.
func (s *CollectionStore) DeleteDocument(_ context.Context, id, documentID string) error {
	if err := checkKeys(id, documentID); err != nil {
		return err
	}
	err := os.Remove(s.documentPath(id, documentID))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s in %s", domain.ErrDocumentNotFound, documentID, id)
	}
	if err != nil {
		return storageErr("delete document", err)
	}
	return nil
}

// WriteDescriptor rewrites the collection descriptor.
func (s *CollectionStore) WriteDescriptor(_ context.Context, c *domain.Collection) error {
	if err := checkKey(c.ID); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal descriptor: %w", err)
	}
	if err := os.MkdirAll(s.dir(c.ID), 0700); err != nil {
		return storageErr("create collection dir", err)
	}
	if err := writeFileAtomic(s.descriptorPath(c.ID), data); err != nil {
		return storageErr("write descriptor", err)
	}
	return nil
}

func checkKeys(keys ...string) error {
	for _, k := range keys {
		if err := checkKey(k); err != nil {
			return err
		}
	}
	return nil
}

// sortCollections orders by creation time, then ID.
func sortCollections(cs []domain.Collection) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].CreatedAt == cs[j].CreatedAt {
			return cs[i].ID < cs[j].ID
		}
		return cs[i].CreatedAt < cs[j].CreatedAt
	})
}
