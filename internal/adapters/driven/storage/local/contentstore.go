package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
	"github.com/custodia-labs/knowledge-flow/internal/logger"
)

// Ensure ContentStore implements the interface.
var _ driven.ContentStore = (*ContentStore)(nil)

// ContentStore keeps document trees on the local filesystem.
type ContentStore struct {
	root string
}

// NewContentStore creates a content store rooted at root.
// If root is empty, defaults to ~/.knowledge-flow/content.
func NewContentStore(root string) (*ContentStore, error) {
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		root = filepath.Join(home, ".knowledge-flow", "content")
	}
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, storageErr("create content root", err)
	}
	return &ContentStore{root: root}, nil
}

// SaveContent purges anything stored for uid, then copies sourceDir.
func (s *ContentStore) SaveContent(_ context.Context, uid, sourceDir string) error {
	if err := checkKey(uid); err != nil {
		return err
	}
	dest := filepath.Join(s.root, uid)
	if err := os.RemoveAll(dest); err != nil {
		return storageErr("purge content", err)
	}
	if err := copyTree(sourceDir, dest); err != nil {
		return storageErr("copy content", err)
	}
	logger.Debug("Saved content of %s to %s", uid, dest)
	return nil
}

// DeleteContent removes everything stored for uid.
func (s *ContentStore) DeleteContent(_ context.Context, uid string) error {
	if err := checkKey(uid); err != nil {
		return err
	}
	dest := filepath.Join(s.root, uid)
	if _, err := os.Stat(dest); errors.Is(err, os.ErrNotExist) {
		logger.Warn("No content to delete for %s", uid)
		return nil
	}
	if err := os.RemoveAll(dest); err != nil {
		return storageErr("delete content", err)
	}
	return nil
}

// GetContent opens the first file, in name order, under {uid}/input.
func (s *ContentStore) GetContent(_ context.Context, uid string) (io.ReadCloser, error) {
	if err := checkKey(uid); err != nil {
		return nil, err
	}
	dir := filepath.Join(s.root, uid, domain.InputDirName)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: no input for %s", domain.ErrNotFound, uid)
	}
	if err != nil {
		return nil, storageErr("list input", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, e := range entries {
		if e.Type().IsRegular() {
			f, err := os.Open(filepath.Join(dir, e.Name()))
			if err != nil {
				return nil, storageErr("open input", err)
			}
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: no input file for %s", domain.ErrNotFound, uid)
}

// GetMarkdown returns output.md, falling back to table.csv rendered as a
// markdown table.
func (s *ContentStore) GetMarkdown(_ context.Context, uid string) (string, error) {
	if err := checkKey(uid); err != nil {
		return "", err
	}
	outDir := filepath.Join(s.root, uid, domain.OutputDirName)

	data, err := os.ReadFile(filepath.Join(outDir, domain.MarkdownArtifact))
	if err == nil {
		return string(data), nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", storageErr("read markdown", err)
	}

	f, err := os.Open(filepath.Join(outDir, domain.TableArtifact))
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: no markdown for %s", domain.ErrNotFound, uid)
	}
	if err != nil {
		return "", storageErr("open table", err)
	}
	defer f.Close()

	md, err := domain.CSVToMarkdown(f, domain.MarkdownTableRows)
	if err != nil {
		return "", fmt.Errorf("%w: render table: %w", domain.ErrProcessingFailure, err)
	}
	return md, nil
}

// GetTable opens output/table.csv.
func (s *ContentStore) GetTable(_ context.Context, uid string) (io.ReadCloser, error) {
	if err := checkKey(uid); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.root, uid, domain.OutputDirName, domain.TableArtifact))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: no table for %s", domain.ErrNotFound, uid)
	}
	if err != nil {
		return nil, storageErr("open table", err)
	}
	return f, nil
}
