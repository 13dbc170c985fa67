package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driving"
)

// Ensure ContentService implements the interface.
var _ driving.ContentService = (*ContentService)(nil)

// ContentService serves converted markdown and original uploads.
type ContentService struct {
	contentStore  driven.ContentStore
	metadataStore driven.MetadataStore
}

// NewContentService creates a new content service.
func NewContentService(contentStore driven.ContentStore, metadataStore driven.MetadataStore) *ContentService {
	return &ContentService{contentStore: contentStore, metadataStore: metadataStore}
}

// GetMarkdown returns the converted markdown of a document.
func (s *ContentService) GetMarkdown(ctx context.Context, uid string) (string, error) {
	if uid == "" {
		return "", fmt.Errorf("%w: empty document uid", domain.ErrInvalidRequest)
	}
	return s.contentStore.GetMarkdown(ctx, uid)
}

// GetRawContent opens the original upload. The file name comes from the
// document metadata, falling back to the UID.
func (s *ContentService) GetRawContent(ctx context.Context, uid string) (*driving.RawContent, error) {
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

	body, err := s.contentStore.GetContent(ctx, uid)
	if err != nil {
		return nil, err
	}

	name := md.DocumentName()
	if name == "" {
		name = uid
	}
	return &driving.RawContent{Filename: name, Body: body}, nil
}
