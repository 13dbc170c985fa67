// Package markdown handles markdown files. The content is already in the
// target format so conversion only normalises line endings.
package markdown

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
	"github.com/custodia-labs/knowledge-flow/internal/processors/common"
)

// Ensure Processor implements the interfaces.
var (
	_ driven.Processor         = (*Processor)(nil)
	_ driven.MarkdownConverter = (*Processor)(nil)
)

// Processor handles Markdown documents.
type Processor struct{}

// New creates a new Markdown processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "markdown"
}

// Suffixes returns the file suffixes this processor handles.
func (p *Processor) Suffixes() []string {
	return []string{".md", ".markdown"}
}

// CheckFileValidity accepts any non-empty file.
func (p *Processor) CheckFileValidity(_ context.Context, path string) bool {
	return common.IsRegularFile(path)
}

// ExtractFileMetadata adds the first level-one heading as the title.
func (p *Processor) ExtractFileMetadata(_ context.Context, path string) (domain.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	md := common.FileMetadata(path)
	md["title"] = extractTitle(string(data), path)
	return md, nil
}

// ConvertToMarkdown returns the document with CRLF line endings folded.
func (p *Processor) ConvertToMarkdown(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return strings.ReplaceAll(string(data), "\r\n", "\n"), nil
}

// extractTitle finds the first H1 heading or falls back to the filename.
func extractTitle(content, path string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}
	}
	return common.TitleFromFilename(path)
}
