package s3

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
)

// Ensure CollectionStore implements the interface.
var _ driven.CollectionStore = (*CollectionStore)(nil)

// CollectionStore keeps collections of one kind in an S3 bucket.
type CollectionStore struct {
	b    *bucket
	kind domain.CollectionKind
}

// NewCollectionStore creates a store for one collection kind on
// bucketName, creating the bucket if needed.
func NewCollectionStore(ctx context.Context, api API, bucketName string, kind domain.CollectionKind) (*CollectionStore, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: collection kind %q", domain.ErrConfiguration, kind)
	}
	b, err := newBucket(api, bucketName)
	if err != nil {
		return nil, err
	}
	if err := b.ensure(ctx); err != nil {
		return nil, err
	}
	return &CollectionStore{b: b, kind: kind}, nil
}

// Kind returns the collection kind this store serves.
func (s *CollectionStore) Kind() domain.CollectionKind {
	return s.kind
}

func (s *CollectionStore) descriptorKey(id string) string {
	return id + "/" + s.kind.DescriptorFile()
}

func documentKey(id, documentID string) string {
	return id + "/" + domain.CollectionFilesDir + "/" + documentID + ".md"
}

// Save replaces the collection tree with sourceDir.
func (s *CollectionStore) Save(ctx context.Context, id, sourceDir string) error {
	if err := checkKey(id); err != nil {
		return err
	}
	if _, err := s.b.deletePrefix(ctx, id+"/"); err != nil {
		return err
	}
	return s.b.uploadTree(ctx, id, sourceDir)
}

// Get reads a collection descriptor.
func (s *CollectionStore) Get(ctx context.Context, id string) (*domain.Collection, error) {
	if err := checkKey(id); err != nil {
		return nil, err
	}
	data, err := s.b.getBytes(ctx, s.descriptorKey(id))
	if errors.Is(err, errNoSuchKey) {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	var c domain.Collection
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, storageErr("decode descriptor", err)
	}
	return &c, nil
}

// List returns every collection of this kind ordered by creation time.
// Collections of the other kind sharing the bucket are skipped.
func (s *CollectionStore) List(ctx context.Context) ([]domain.Collection, error) {
	keys, err := s.b.list(ctx, "")
	if err != nil {
		return nil, err
	}

	out := []domain.Collection{}
	for _, k := range keys {
		id, name, ok := strings.Cut(k, "/")
		if !ok || name != s.kind.DescriptorFile() {
			continue
		}
		c, err := s.Get(ctx, id)
		if errors.Is(err, domain.ErrCollectionNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt == out[j].CreatedAt {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt < out[j].CreatedAt
	})
	return out, nil
}

// Delete removes the collection and all its documents.
func (s *CollectionStore) Delete(ctx context.Context, id string) error {
	if err := checkKey(id); err != nil {
		return err
	}
	n, err := s.b.deletePrefix(ctx, id+"/")
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, id)
	}
	return nil
}

// ReadDocument returns the markdown of one document.
func (s *CollectionStore) ReadDocument(ctx context.Context, id, documentID string) (string, error) {
	if err := checkKeys(id, documentID); err != nil {
		return "", err
	}
	data, err := s.b.getBytes(ctx, documentKey(id, documentID))
	if errors.Is(err, errNoSuchKey) {
		return "", fmt.Errorf("%w: %s in %s", domain.ErrDocumentNotFound, documentID, id)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteDocument stores the markdown of one document.
func (s *CollectionStore) WriteDocument(ctx context.Context, id, documentID, markdown string) error {
	if err := checkKeys(id, documentID); err != nil {
		return err
	}
	return s.b.putBytes(ctx, documentKey(id, documentID), []byte(markdown))
}

// DeleteDocument removes the markdown of one document.
func (s *CollectionStore) DeleteDocument(ctx context.Context, id, documentID string) error {
	if err := checkKeys(id, documentID); err != nil {
		return err
	}
	key := documentKey(id, documentID)
	ok, err := s.b.exists(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s in %s", domain.ErrDocumentNotFound, documentID, id)
	}
	return s.b.deleteKeys(ctx, []string{key})
}

// WriteDescriptor rewrites the collection descriptor.
func (s *CollectionStore) WriteDescriptor(ctx context.Context, c *domain.Collection) error {
	if err := checkKey(c.ID); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal descriptor: %w", err)
	}
	return s.b.putBytes(ctx, s.descriptorKey(c.ID), data)
}

func checkKeys(keys ...string) error {
	for _, k := range keys {
		if err := checkKey(k); err != nil {
			return err
		}
	}
	return nil
}
