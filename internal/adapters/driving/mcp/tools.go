package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query to find relevant passages"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	DocumentUID  string  `json:"document_uid"`
	DocumentName string  `json:"document_name,omitempty"`
	URI          string  `json:"uri"`
	Score        float64 `json:"score"`
	Rank         int     `json:"rank"`
	Content      string  `json:"content"`
}

// MarkdownInput is the input schema for the get_markdown tool.
type MarkdownInput struct {
	DocumentUID string `json:"document_uid" jsonschema:"the document_uid of an ingested document"`
}

// MarkdownOutput is the output schema for the get_markdown tool.
type MarkdownOutput struct {
	DocumentUID string `json:"document_uid"`
	Content     string `json:"content"`
}

// ListDocumentsInput is the input schema for the list_documents tool.
type ListDocumentsInput struct {
	Filters map[string]any `json:"filters,omitempty" jsonschema:"metadata fields that must match exactly"`
}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentInfo `json:"documents"`
	Count     int            `json:"count"`
}

// DocumentInfo is a short summary of an ingested document.
type DocumentInfo struct {
	DocumentUID  string `json:"document_uid"`
	DocumentName string `json:"document_name"`
	URI          string `json:"uri"`
	Retrievable  bool   `json:"retrievable"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search ingested documents for passages similar to a query",
	}, s.handleSearch)

	if s.ports.Content != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "get_markdown",
			Description: "Return the markdown conversion of an ingested document",
		}, s.handleGetMarkdown)
	}

	if s.ports.Metadata != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "list_documents",
			Description: "List ingested documents, optionally filtered by metadata",
		}, s.handleListDocuments)
	}
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = domain.DefaultSearchLimit
	}

	hits, err := s.ports.Search.Search(ctx, input.Query, limit)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(hits)),
		Count:   len(hits),
	}

	for i := range hits {
		chunk := hits[i].Chunk
		output.Results[i] = SearchResultOutput{
			DocumentUID:  chunk.DocumentUID,
			DocumentName: chunk.Metadata.DocumentName(),
			URI:          documentURI(chunk.DocumentUID),
			Score:        hits[i].Score,
			Rank:         hits[i].Rank,
			Content:      chunk.Content,
		}
	}

	return nil, output, nil
}

// handleGetMarkdown handles the get_markdown tool invocation.
func (s *Server) handleGetMarkdown(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input MarkdownInput,
) (*mcp.CallToolResult, MarkdownOutput, error) {
	if input.DocumentUID == "" {
		return nil, MarkdownOutput{}, fmt.Errorf("document_uid is required")
	}
	content, err := s.ports.Content.GetMarkdown(ctx, input.DocumentUID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, MarkdownOutput{}, fmt.Errorf("document %s not found", input.DocumentUID)
		}
		return nil, MarkdownOutput{}, err
	}
	return nil, MarkdownOutput{DocumentUID: input.DocumentUID, Content: content}, nil
}

// handleListDocuments handles the list_documents tool invocation.
func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	docs, err := s.documentInfos(ctx, input.Filters)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}
	return nil, ListDocumentsOutput{Documents: docs, Count: len(docs)}, nil
}

func (s *Server) documentInfos(ctx context.Context, filters map[string]any) ([]DocumentInfo, error) {
	records, err := s.ports.Metadata.GetDocumentsMetadata(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	infos := make([]DocumentInfo, len(records))
	for i, md := range records {
		infos[i] = DocumentInfo{
			DocumentUID:  md.DocumentUID(),
			DocumentName: md.DocumentName(),
			URI:          documentURI(md.DocumentUID()),
			Retrievable:  md.Retrievable(),
		}
	}
	return infos, nil
}
