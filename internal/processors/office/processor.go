// Package office handles the document formats without a native reader
// (OpenDocument text, RTF, legacy Word and Apple Pages) through docconv.
package office

import (
	"context"
	"fmt"
	"strings"

	"code.sajari.com/docconv"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
	"github.com/custodia-labs/knowledge-flow/internal/processors/common"
)

// Ensure Processor implements the interfaces.
var (
	_ driven.Processor         = (*Processor)(nil)
	_ driven.MarkdownConverter = (*Processor)(nil)
)

// Converted is the text and metadata of a converted document.
type Converted struct {
	Body string
	Meta map[string]string
}

// ConvertFunc converts the file at path.
type ConvertFunc func(path string) (*Converted, error)

// convertDocconv is the default ConvertFunc.
func convertDocconv(path string) (*Converted, error) {
	res, err := docconv.ConvertPath(path)
	if err != nil {
		return nil, err
	}
	return &Converted{Body: res.Body, Meta: res.Meta}, nil
}

// Processor handles documents docconv can read.
type Processor struct {
	convert ConvertFunc
}

// New creates a docconv-backed processor. A nil convert uses docconv.
func New(convert ConvertFunc) *Processor {
	if convert == nil {
		convert = convertDocconv
	}
	return &Processor{convert: convert}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "docconv"
}

// Suffixes returns the file suffixes this processor handles.
func (p *Processor) Suffixes() []string {
	return []string{".odt", ".rtf", ".doc", ".pages"}
}

// CheckFileValidity accepts files that convert to non-empty text.
func (p *Processor) CheckFileValidity(_ context.Context, path string) bool {
	if !common.IsRegularFile(path) {
		return false
	}
	res, err := p.convert(path)
	return err == nil && strings.TrimSpace(res.Body) != ""
}

// ExtractFileMetadata copies the converter's metadata, with keys
// lower-cased and spaces replaced by underscores.
func (p *Processor) ExtractFileMetadata(_ context.Context, path string) (domain.Metadata, error) {
	res, err := p.convert(path)
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", path, err)
	}
	md := common.FileMetadata(path)
	md["title"] = common.TitleFromFilename(path)
	for k, v := range res.Meta {
		key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(k), " ", "_"))
		if key == "" {
			continue
		}
		common.SetIfNotEmpty(md, key, v)
	}
	return md, nil
}

// ConvertToMarkdown returns the converted body as paragraphs.
func (p *Processor) ConvertToMarkdown(_ context.Context, path string) (string, error) {
	res, err := p.convert(path)
	if err != nil {
		return "", fmt.Errorf("convert %s: %w", path, err)
	}
	return paragraphs(res.Body), nil
}

// paragraphs trims lines and collapses blank runs to a single blank line.
func paragraphs(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	var out []string
	blank := false
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			blank = len(out) > 0
			continue
		}
		if blank {
			out = append(out, "")
			blank = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
