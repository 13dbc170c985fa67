package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
	"github.com/custodia-labs/knowledge-flow/internal/logger"
)

// Ensure ContentStore implements the interface.
var _ driven.ContentStore = (*ContentStore)(nil)

// ContentStore keeps document trees in an S3 bucket.
type ContentStore struct {
	b *bucket
}

// NewContentStore creates a content store on bucketName, creating the
// bucket if needed.
func NewContentStore(ctx context.Context, api API, bucketName string) (*ContentStore, error) {
	b, err := newBucket(api, bucketName)
	if err != nil {
		return nil, err
	}
	if err := b.ensure(ctx); err != nil {
		return nil, err
	}
	return &ContentStore{b: b}, nil
}

// SaveContent purges anything stored for uid, then uploads sourceDir.
func (s *ContentStore) SaveContent(ctx context.Context, uid, sourceDir string) error {
	if err := checkKey(uid); err != nil {
		return err
	}
	if _, err := s.b.deletePrefix(ctx, uid+"/"); err != nil {
		return err
	}
	if err := s.b.uploadTree(ctx, uid, sourceDir); err != nil {
		return err
	}
	logger.Debug("Saved content of %s to s3://%s/%s", uid, s.b.name, uid)
	return nil
}

// DeleteContent removes every object stored for uid.
func (s *ContentStore) DeleteContent(ctx context.Context, uid string) error {
	if err := checkKey(uid); err != nil {
		return err
	}
	n, err := s.b.deletePrefix(ctx, uid+"/")
	if err != nil {
		return err
	}
	if n == 0 {
		logger.Warn("No content to delete for %s", uid)
	}
	return nil
}

// GetContent opens the first object, in key order, under {uid}/input/.
func (s *ContentStore) GetContent(ctx context.Context, uid string) (io.ReadCloser, error) {
	if err := checkKey(uid); err != nil {
		return nil, err
	}
	prefix := uid + "/" + domain.InputDirName + "/"
	keys, err := s.b.list(ctx, prefix)
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		// Only direct children, matching the local store.
		if strings.Contains(strings.TrimPrefix(k, prefix), "/") {
			continue
		}
		body, err := s.b.get(ctx, k)
		if errors.Is(err, errNoSuchKey) {
			continue
		}
		return body, err
	}
	return nil, fmt.Errorf("%w: no input file for %s", domain.ErrNotFound, uid)
}

// GetMarkdown returns output.md, falling back to table.csv rendered as a
// markdown table.
func (s *ContentStore) GetMarkdown(ctx context.Context, uid string) (string, error) {
	if err := checkKey(uid); err != nil {
		return "", err
	}

	data, err := s.b.getBytes(ctx, outputKey(uid, domain.MarkdownArtifact))
	if err == nil {
		return string(data), nil
	}
	if !errors.Is(err, errNoSuchKey) {
		return "", err
	}

	table, err := s.b.get(ctx, outputKey(uid, domain.TableArtifact))
	if errors.Is(err, errNoSuchKey) {
		return "", fmt.Errorf("%w: no markdown for %s", domain.ErrNotFound, uid)
	}
	if err != nil {
		return "", err
	}
	defer table.Close()

	md, err := domain.CSVToMarkdown(table, domain.MarkdownTableRows)
	if err != nil {
		return "", fmt.Errorf("%w: render table: %w", domain.ErrProcessingFailure, err)
	}
	return md, nil
}

// GetTable opens output/table.csv.
func (s *ContentStore) GetTable(ctx context.Context, uid string) (io.ReadCloser, error) {
	if err := checkKey(uid); err != nil {
		return nil, err
	}
	body, err := s.b.get(ctx, outputKey(uid, domain.TableArtifact))
	if errors.Is(err, errNoSuchKey) {
		return nil, fmt.Errorf("%w: no table for %s", domain.ErrNotFound, uid)
	}
	return body, err
}

func outputKey(uid, name string) string {
	return uid + "/" + domain.OutputDirName + "/" + name
}
