package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driving"
	"github.com/custodia-labs/knowledge-flow/internal/logger"
)

// Ensure CollectionService implements the interface.
var _ driving.CollectionService = (*CollectionService)(nil)

// CollectionService manages knowledge contexts or chat profiles. One
// instance serves the kind of its store.
type CollectionService struct {
	store     driven.CollectionStore
	input     driving.InputProcessor
	maxTokens int
	workRoot  string
	locks     *KeyLock
}

// NewCollectionService creates a collection service. maxTokens bounds the
// total token count of one collection; zero selects domain.DefaultMaxTokens.
// Conversions run in temporary directories under workRoot ("" selects the
// system temporary directory).
func NewCollectionService(
	store driven.CollectionStore,
	input driving.InputProcessor,
	maxTokens int,
	workRoot string,
) *CollectionService {
	if maxTokens <= 0 {
		maxTokens = domain.DefaultMaxTokens
	}
	return &CollectionService{
		store:     store,
		input:     input,
		maxTokens: maxTokens,
		workRoot:  workRoot,
		locks:     NewKeyLock(),
	}
}

// Kind returns the collection kind served.
func (s *CollectionService) Kind() domain.CollectionKind {
	return s.store.Kind()
}

// MaxTokens returns the token budget per collection.
func (s *CollectionService) MaxTokens() int {
	return s.maxTokens
}

// convertedDocument is one upload converted to markdown.
type convertedDocument struct {
	doc      domain.CollectionDocument
	markdown string
}

// Create converts every file and stores them as a new collection.
// Nothing is persisted if any conversion fails or the token budget is
// exceeded.
func (s *CollectionService) Create(ctx context.Context, req driving.CollectionRequest) (*domain.Collection, error) {
	converted, err := s.convertAll(ctx, req.Files)
	if err != nil {
		return nil, err
	}

	now := domain.UTCNow()
	c := &domain.Collection{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		Tag:         req.Tag,
		Creator:     req.Creator,
		UserID:      req.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
		Documents:   []domain.CollectionDocument{},
	}
	mergeDocuments(c, converted)
	if err := s.checkTokens(c); err != nil {
		return nil, err
	}

	staging, err := os.MkdirTemp(s.workRoot, "collection-*")
	if err != nil {
		return nil, fmt.Errorf("%w: create staging dir: %w", domain.ErrStorageFailure, err)
	}
	defer os.RemoveAll(staging)

	if err := s.stage(staging, c, converted); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, c.ID, staging); err != nil {
		return nil, err
	}

	logger.Info("Created %s %s with %d documents", s.Kind(), c.ID, len(c.Documents))
	return c, nil
}

// Update changes the descriptor fields that are set in req and adds the
// uploaded files, replacing documents whose ID matches a file stem.
func (s *CollectionService) Update(
	ctx context.Context, id string, req driving.CollectionRequest,
) (*domain.Collection, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	converted, err := s.convertAll(ctx, req.Files)
	if err != nil {
		return nil, err
	}

	if req.Title != "" {
		c.Title = req.Title
	}
	if req.Description != "" {
		c.Description = req.Description
	}
	if req.Tag != "" {
		c.Tag = req.Tag
	}
	existing := make(map[string]bool, len(c.Documents))
	for _, doc := range c.Documents {
		existing[doc.ID] = true
	}
	mergeDocuments(c, converted)
	if err := s.checkTokens(c); err != nil {
		return nil, err
	}
	c.UpdatedAt = domain.UTCNow()

	// The descriptor is written last. Documents written before a failure
	// are removed, or restored when they replaced an existing one.
	previous := make(map[string]string)
	var written []string
	undo := func() {
		for _, docID := range written {
			var err error
			if old, ok := previous[docID]; ok {
				err = s.store.WriteDocument(ctx, id, docID, old)
			} else {
				err = s.store.DeleteDocument(ctx, id, docID)
			}
			if err != nil {
				logger.Warn("Failed to roll back document %s of %s %s: %v", docID, s.Kind(), id, err)
			}
		}
	}

	for _, cd := range converted {
		if existing[cd.doc.ID] {
			old, err := s.store.ReadDocument(ctx, id, cd.doc.ID)
			if err != nil {
				undo()
				return nil, err
			}
			previous[cd.doc.ID] = old
		}
		if err := s.store.WriteDocument(ctx, id, cd.doc.ID, cd.markdown); err != nil {
			undo()
			return nil, err
		}
		written = append(written, cd.doc.ID)
	}
	if err := s.store.WriteDescriptor(ctx, c); err != nil {
		undo()
		return nil, err
	}
	return c, nil
}

// Delete removes a collection and its documents.
func (s *CollectionService) Delete(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	logger.Info("Deleted %s %s", s.Kind(), id)
	return nil
}

// List returns collections with the given tag, or all when tag is empty.
func (s *CollectionService) List(ctx context.Context, tag string) ([]domain.Collection, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if tag == "" {
		return all, nil
	}

	out := []domain.Collection{}
	for _, c := range all {
		if c.Tag == tag {
			out = append(out, c)
		}
	}
	return out, nil
}

// Get returns the collection with every document's markdown appended
// under a heading of its name, in descriptor order.
func (s *CollectionService) Get(ctx context.Context, id string) (*domain.CollectionContent, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	for _, doc := range c.Documents {
		md, err := s.store.ReadDocument(ctx, id, doc.ID)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&b, "\n\n# %s\n\n%s", doc.DocumentName, md)
	}
	return &domain.CollectionContent{Collection: *c, Content: b.String()}, nil
}

// DeleteDocument removes one document's markdown and descriptor entry.
func (s *CollectionService) DeleteDocument(
	ctx context.Context, id, documentID string,
) (*domain.Collection, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	idx := c.FindDocument(documentID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s in %s", domain.ErrDocumentNotFound, documentID, id)
	}

	if err := s.store.DeleteDocument(ctx, id, documentID); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrDocumentDeletion, documentID, err)
	}

	c.Documents = append(c.Documents[:idx], c.Documents[idx+1:]...)
	c.Tokens = c.TotalTokens()
	c.UpdatedAt = domain.UTCNow()
	if err := s.store.WriteDescriptor(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CollectionService) checkTokens(c *domain.Collection) error {
	if c.Tokens > s.maxTokens {
		return fmt.Errorf("%w: %d tokens exceeds the limit of %d", domain.ErrTokenLimitExceeded, c.Tokens, s.maxTokens)
	}
	return nil
}

func (s *CollectionService) convertAll(
	ctx context.Context, uploads []domain.CollectionUpload,
) ([]convertedDocument, error) {
	out := make([]convertedDocument, 0, len(uploads))
	for _, up := range uploads {
		cd, err := s.convert(ctx, up)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrDocumentProcessing, up.Filename, err)
		}
		out = append(out, cd)
	}
	return out, nil
}

// convert runs one upload through the input stage, using the file stem
// as document ID.
func (s *CollectionService) convert(ctx context.Context, up domain.CollectionUpload) (convertedDocument, error) {
	name := filepath.Base(up.Filename)
	if name == "" || name == "." {
		name = filepath.Base(up.Path)
	}
	id := strings.TrimSuffix(name, filepath.Ext(name))

	workDir, err := os.MkdirTemp(s.workRoot, "collection-doc-*")
	if err != nil {
		return convertedDocument{}, err
	}
	defer os.RemoveAll(workDir)

	md, err := s.input.ExtractMetadata(ctx, up.Path, domain.Metadata{domain.KeyDocumentName: name})
	if err != nil {
		return convertedDocument{}, err
	}
	md[domain.KeyDocumentUID] = id

	if err := s.input.Process(ctx, workDir, up.Path, md); err != nil {
		return convertedDocument{}, err
	}

	markdown, err := readConverted(filepath.Join(workDir, domain.OutputDirName))
	if err != nil {
		return convertedDocument{}, err
	}

	var size int64
	if info, err := os.Stat(up.Path); err == nil {
		size = info.Size()
	}
	description, _ := md["description"].(string)

	return convertedDocument{
		doc: domain.CollectionDocument{
			ID:           id,
			DocumentName: name,
			DocumentType: strings.TrimPrefix(suffixOf(name), "."),
			Size:         size,
			Description:  description,
			Tokens:       domain.CountTokens(markdown),
		},
		markdown: markdown,
	}, nil
}

// readConverted returns output.md, or table.csv rendered as markdown.
func readConverted(outDir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(outDir, domain.MarkdownArtifact))
	if err == nil {
		return string(data), nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	f, err := os.Open(filepath.Join(outDir, domain.TableArtifact))
	if err != nil {
		return "", fmt.Errorf("%w: no converted output", domain.ErrInvalidArtifact)
	}
	defer f.Close()
	return domain.CSVToMarkdown(f, domain.MarkdownTableRows)
}

// stage lays the collection out as the store expects it.
func (s *CollectionService) stage(dir string, c *domain.Collection, docs []convertedDocument) error {
	filesDir := filepath.Join(dir, domain.CollectionFilesDir)
	if err := os.MkdirAll(filesDir, 0700); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStorageFailure, err)
	}
	for _, cd := range docs {
		if err := os.WriteFile(filepath.Join(filesDir, cd.doc.ID+".md"), []byte(cd.markdown), 0600); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrStorageFailure, err)
		}
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal descriptor: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, s.Kind().DescriptorFile()), data, 0600); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStorageFailure, err)
	}
	return nil
}

// mergeDocuments adds converted documents to c, replacing same-ID entries,
// and refreshes the token total.
func mergeDocuments(c *domain.Collection, converted []convertedDocument) {
	for _, cd := range converted {
		if idx := c.FindDocument(cd.doc.ID); idx >= 0 {
			c.Documents[idx] = cd.doc
		} else {
			c.Documents = append(c.Documents, cd.doc)
		}
	}
	c.Tokens = c.TotalTokens()
}
