package driven

import (
	"context"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
)

// Processor handles one family of file formats. Every processor can
// validate a file and extract its metadata; it additionally converts the
// file either to markdown (MarkdownConverter) or to a table (TableConverter).
type Processor interface {
	// Name returns the processor name for logging.
	Name() string

	// Suffixes returns the lower-case file suffixes handled, with the dot.
	Suffixes() []string

	// CheckFileValidity reports whether the file is structurally sound.
	CheckFileValidity(ctx context.Context, path string) bool

	// ExtractFileMetadata returns format-specific metadata fields.
	ExtractFileMetadata(ctx context.Context, path string) (domain.Metadata, error)
}

// MarkdownConverter is implemented by processors producing markdown.
type MarkdownConverter interface {
	// ConvertToMarkdown renders the file as markdown text.
	ConvertToMarkdown(ctx context.Context, path string) (string, error)
}

// TableConverter is implemented by processors producing a table.
type TableConverter interface {
	// ConvertToTable reads the file into a header and rows.
	ConvertToTable(ctx context.Context, path string) (*domain.Table, error)
}

// ProcessorRegistry resolves processors by file suffix.
type ProcessorRegistry interface {
	// Get returns the processor for a suffix such as ".pdf".
	// Unknown suffixes fail with domain.ErrProcessorNotFound.
	Get(suffix string) (Processor, error)

	// Suffixes returns every registered suffix.
	Suffixes() []string
}
