package mcp

import (
	"context"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driving"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	hits  []domain.SearchHit
	err   error
	lastK int
}

func (m *mockSearchService) Search(_ context.Context, _ string, k int) ([]domain.SearchHit, error) {
	m.lastK = k
	return m.hits, m.err
}

// mockMetadataService is a mock implementation of driving.MetadataService.
type mockMetadataService struct {
	records []domain.Metadata
	filters map[string]any
	err     error
}

func (m *mockMetadataService) GetDocumentsMetadata(_ context.Context, filters map[string]any) ([]domain.Metadata, error) {
	m.filters = filters
	return m.records, m.err
}

func (m *mockMetadataService) GetDocumentMetadata(_ context.Context, _ string) (domain.Metadata, error) {
	return nil, m.err
}

func (m *mockMetadataService) UpdateRetrievable(_ context.Context, _ string, _ bool) (domain.Metadata, error) {
	return nil, m.err
}

func (m *mockMetadataService) UpdateDocumentMetadata(_ context.Context, _ string, _ map[string]any) (domain.Metadata, error) {
	return nil, m.err
}

func (m *mockMetadataService) DeleteDocument(_ context.Context, _ string) error {
	return m.err
}

func (m *mockMetadataService) SearchMetadata(_ context.Context, _ string, _ int) ([]domain.Metadata, error) {
	return m.records, m.err
}

// mockContentService is a mock implementation of driving.ContentService.
type mockContentService struct {
	markdown string
	err      error
}

func (m *mockContentService) GetMarkdown(_ context.Context, _ string) (string, error) {
	return m.markdown, m.err
}

func (m *mockContentService) GetRawContent(_ context.Context, _ string) (*driving.RawContent, error) {
	return nil, m.err
}
