package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
)

func TestExtractDocumentUID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{"valid document URI", "knowledge://documents/abc123", "abc123"},
		{"invalid prefix", "file://documents/abc123", ""},
		{"nested path", "knowledge://documents/a/b", ""},
		{"listing URI", "knowledge://documents", ""},
		{"empty URI", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractDocumentUID(tt.uri))
		})
	}
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleDocumentsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("nil metadata service returns empty list", func(t *testing.T) {
		server, err := NewServer(&Ports{Search: &mockSearchService{}})
		require.NoError(t, err)

		result, err := server.handleDocumentsResource(ctx, makeReadResourceRequest(documentsURI))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})

	t.Run("returns documents", func(t *testing.T) {
		meta := &mockMetadataService{records: []domain.Metadata{
			{domain.KeyDocumentUID: "u1", domain.KeyDocumentName: "My Doc.pdf"},
		}}
		server, err := NewServer(&Ports{Search: &mockSearchService{}, Metadata: meta})
		require.NoError(t, err)

		result, err := server.handleDocumentsResource(ctx, makeReadResourceRequest(documentsURI))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)
		assert.Contains(t, result.Contents[0].Text, "u1")
		assert.Contains(t, result.Contents[0].Text, "My Doc.pdf")
	})

	t.Run("returns error on list failure", func(t *testing.T) {
		meta := &mockMetadataService{err: errors.New("database error")}
		server, err := NewServer(&Ports{Search: &mockSearchService{}, Metadata: meta})
		require.NoError(t, err)

		_, err = server.handleDocumentsResource(ctx, makeReadResourceRequest(documentsURI))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "listing documents")
	})
}

func TestServer_handleDocumentContentResource(t *testing.T) {
	ctx := context.Background()

	t.Run("nil content service returns not found", func(t *testing.T) {
		server, err := NewServer(&Ports{Search: &mockSearchService{}})
		require.NoError(t, err)

		_, err = server.handleDocumentContentResource(ctx, makeReadResourceRequest("knowledge://documents/u1"))
		require.Error(t, err)
	})

	t.Run("invalid URI returns not found", func(t *testing.T) {
		server, err := NewServer(&Ports{Search: &mockSearchService{}, Content: &mockContentService{}})
		require.NoError(t, err)

		_, err = server.handleDocumentContentResource(ctx, makeReadResourceRequest("knowledge://other"))
		require.Error(t, err)
	})

	t.Run("returns markdown", func(t *testing.T) {
		content := &mockContentService{markdown: "# Heading\n\nBody"}
		server, err := NewServer(&Ports{Search: &mockSearchService{}, Content: content})
		require.NoError(t, err)

		result, err := server.handleDocumentContentResource(ctx, makeReadResourceRequest("knowledge://documents/u1"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "text/markdown", result.Contents[0].MIMEType)
		assert.Equal(t, "# Heading\n\nBody", result.Contents[0].Text)
	})

	t.Run("returns error on content failure", func(t *testing.T) {
		content := &mockContentService{err: errors.New("disk error")}
		server, err := NewServer(&Ports{Search: &mockSearchService{}, Content: content})
		require.NoError(t, err)

		_, err = server.handleDocumentContentResource(ctx, makeReadResourceRequest("knowledge://documents/u1"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "getting document markdown")
	})
}
