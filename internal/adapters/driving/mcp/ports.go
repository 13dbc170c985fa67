package mcp

import (
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search provides vector search.
	Search driving.SearchService

	// Metadata lists documents. Optional.
	Metadata driving.MetadataService

	// Content serves converted markdown. Optional.
	Content driving.ContentService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	return nil
}
