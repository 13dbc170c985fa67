// Package plaintext converts UTF-8 text files to markdown verbatim.
package plaintext

import (
	"context"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
	"github.com/custodia-labs/knowledge-flow/internal/processors/common"
)

// Ensure Processor implements the interfaces.
var (
	_ driven.Processor         = (*Processor)(nil)
	_ driven.MarkdownConverter = (*Processor)(nil)
)

// Processor handles plain text documents.
type Processor struct{}

// New creates a new plain text processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "plaintext"
}

// Suffixes returns the file suffixes this processor handles.
func (p *Processor) Suffixes() []string {
	return []string{".txt", ".text", ".log"}
}

// CheckFileValidity accepts non-empty UTF-8 files.
func (p *Processor) CheckFileValidity(_ context.Context, path string) bool {
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return false
	}
	return utf8.Valid(data)
}

// ExtractFileMetadata returns the file name, size and suffix.
func (p *Processor) ExtractFileMetadata(_ context.Context, path string) (domain.Metadata, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	md := common.FileMetadata(path)
	md["title"] = common.TitleFromFilename(path)
	return md, nil
}

// ConvertToMarkdown returns the file content unchanged.
func (p *Processor) ConvertToMarkdown(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}
