// Package pdf converts PDF documents to markdown with MuPDF (go-fitz).
// Pages are rendered as "## Page N" sections. Embedded pictures are
// handed to an ImageDescriber and rendered as blockquotes in place of the
// picture. Without a describer every picture gets the fallback description.
package pdf

import (
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
	"github.com/custodia-labs/knowledge-flow/internal/logger"
	"github.com/custodia-labs/knowledge-flow/internal/processors/common"
	"github.com/custodia-labs/knowledge-flow/internal/processors/html"
)

// Ensure Processor implements the interfaces.
var (
	_ driven.Processor         = (*Processor)(nil)
	_ driven.MarkdownConverter = (*Processor)(nil)
)

// PageSource is the subset of a MuPDF document the processor reads.
type PageSource interface {
	NumPage() int
	Text(pageNumber int) (string, error)
	HTML(pageNumber int, header bool) (string, error)
	Metadata() map[string]string
	Close() error
}

// Opener opens a PDF file as a PageSource.
type Opener func(path string) (PageSource, error)

// openFitz is the default Opener.
func openFitz(path string) (PageSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

var (
	imageTag      = regexp.MustCompile(`(?is)<img\b[^>]*>`)
	embeddedImage = regexp.MustCompile(`src="data:(image/[a-zA-Z0-9.+-]+);base64,([^"]+)"`)
)

const imageDescriptionPrefix = "> **Image description:** "

// Processor handles PDF documents.
type Processor struct {
	open      Opener
	describer driven.ImageDescriber
}

// Option configures a Processor.
type Option func(*Processor)

// WithOpener replaces the MuPDF opener.
func WithOpener(open Opener) Option {
	return func(p *Processor) {
		p.open = open
	}
}

// New creates a PDF processor. describer may be nil.
func New(describer driven.ImageDescriber, opts ...Option) *Processor {
	p := &Processor{
		open:      openFitz,
		describer: describer,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "pdf"
}

// Suffixes returns the file suffixes this processor handles.
func (p *Processor) Suffixes() []string {
	return []string{".pdf"}
}

// CheckFileValidity accepts documents MuPDF can open that have pages.
func (p *Processor) CheckFileValidity(_ context.Context, path string) bool {
	doc, err := p.open(path)
	if err != nil {
		return false
	}
	defer doc.Close()
	return doc.NumPage() > 0
}

// ExtractFileMetadata reads the document information dictionary.
func (p *Processor) ExtractFileMetadata(_ context.Context, path string) (domain.Metadata, error) {
	doc, err := p.open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer doc.Close()

	md := common.FileMetadata(path)
	info := doc.Metadata()
	md["num_pages"] = doc.NumPage()
	md["title"] = common.TitleFromFilename(path)
	common.SetIfNotEmpty(md, "title", info["title"])
	common.SetIfNotEmpty(md, "author", info["author"])
	common.SetIfNotEmpty(md, "subject", info["subject"])
	common.SetIfNotEmpty(md, "keywords", info["keywords"])
	return md, nil
}

// ConvertToMarkdown renders every page in order.
func (p *Processor) ConvertToMarkdown(ctx context.Context, path string) (string, error) {
	doc, err := p.open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer doc.Close()

	pages := make([]string, 0, doc.NumPage())
	for n := 0; n < doc.NumPage(); n++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page, err := p.renderPage(ctx, doc, n)
		if err != nil {
			return "", err
		}
		pages = append(pages, page)
	}
	return strings.Join(pages, "\n\n"), nil
}

// renderPage builds a "## Page N" section from the page HTML, which MuPDF
// emits in reading order. Every <img> is replaced by its description so
// pictures keep their position in the text. When the HTML cannot be
// rendered the plain page text is used instead.
func (p *Processor) renderPage(ctx context.Context, doc PageSource, n int) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "## Page %d", n+1)
	appendBlock := func(block string) {
		if block = strings.TrimSpace(block); block != "" {
			b.WriteString("\n\n")
			b.WriteString(block)
		}
	}

	page, err := doc.HTML(n, false)
	if err != nil {
		logger.Warn("pdf: render html of page %d, using plain text: %v", n+1, err)
		text, err := doc.Text(n)
		if err != nil {
			return "", fmt.Errorf("extract text of page %d: %w", n+1, err)
		}
		appendBlock(text)
		return b.String(), nil
	}

	last := 0
	for _, loc := range imageTag.FindAllStringIndex(page, -1) {
		appendBlock(html.ToMarkdown(page[last:loc[0]]))
		appendBlock(imageDescriptionPrefix + p.describeImage(ctx, page[loc[0]:loc[1]], n))
		last = loc[1]
	}
	appendBlock(html.ToMarkdown(page[last:]))
	return b.String(), nil
}

// describeImage describes the picture of one <img> tag. Pictures that are
// not embedded, or whose data cannot be decoded, get the fallback text.
func (p *Processor) describeImage(ctx context.Context, tag string, n int) string {
	m := embeddedImage.FindStringSubmatch(tag)
	if m == nil {
		logger.Debug("pdf: image on page %d has no embedded data", n+1)
		return domain.ImageDescriptionFallback
	}
	data, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(m[2]), ""))
	if err != nil {
		logger.Debug("pdf: undecodable image on page %d: %v", n+1, err)
		return domain.ImageDescriptionFallback
	}
	if p.describer == nil {
		return domain.ImageDescriptionFallback
	}
	return p.describer.Describe(ctx, data, m[1])
}
