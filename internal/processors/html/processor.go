// Package html converts HTML pages to markdown. Headings become markdown
// headings, list items become bullets and every other block element
// becomes a paragraph.
package html

import (
	"context"
	"fmt"
	"html"
	"os"
	"regexp"
	"strconv"
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

// Processor handles HTML documents.
type Processor struct{}

// New creates a new HTML processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "html"
}

// Suffixes returns the file suffixes this processor handles.
func (p *Processor) Suffixes() []string {
	return []string{".html", ".htm", ".xhtml"}
}

// CheckFileValidity accepts files containing at least one tag.
func (p *Processor) CheckFileValidity(_ context.Context, path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return anyTag.Match(data)
}

// ExtractFileMetadata adds the <title> text as the title.
func (p *Processor) ExtractFileMetadata(_ context.Context, path string) (domain.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	md := common.FileMetadata(path)
	md["title"] = extractTitle(string(data), path)
	md["format"] = "html"
	return md, nil
}

// ConvertToMarkdown renders the page body as markdown.
func (p *Processor) ConvertToMarkdown(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return ToMarkdown(string(data)), nil
}

// Pre-compiled regular expressions for HTML parsing performance.
var (
	anyTag        = regexp.MustCompile(`<[a-zA-Z!/][^>]*>`)
	titleTag      = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	scriptTag     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag   = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	headTag       = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	svgTag        = regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`)
	htmlComments  = regexp.MustCompile(`(?s)<!--.*?-->`)
	headingTags   = regexp.MustCompile(`(?is)<h([1-6])[^>]*>(.*?)</h[1-6]>`)
	listItemTags  = regexp.MustCompile(`(?is)<li[^>]*>(.*?)</li>`)
	blockElements = regexp.MustCompile(`(?i)</?(p|div|ul|ol|tr|blockquote|pre|table|section|article|header|footer|main|nav)[^>]*>`)
	brTags        = regexp.MustCompile(`(?i)<br\s*/?>`)
	hrTags        = regexp.MustCompile(`(?i)<hr\s*/?>`)
	allTags       = regexp.MustCompile(`<[^>]+>`)
	multiSpaces   = regexp.MustCompile(`[ \t]+`)
)

// extractTitle extracts a title from the HTML content or falls back to filename.
func extractTitle(content, path string) string {
	if matches := titleTag.FindStringSubmatch(content); len(matches) > 1 {
		title := strings.TrimSpace(html.UnescapeString(matches[1]))
		if title != "" {
			return title
		}
	}
	return common.TitleFromFilename(path)
}

// ToMarkdown strips markup while keeping document structure. It accepts
// whole pages as well as fragments.
func ToMarkdown(content string) string {
	content = scriptTag.ReplaceAllString(content, "")
	content = styleTag.ReplaceAllString(content, "")
	content = noscriptTag.ReplaceAllString(content, "")
	content = headTag.ReplaceAllString(content, "")
	content = svgTag.ReplaceAllString(content, "")
	content = htmlComments.ReplaceAllString(content, "")

	content = headingTags.ReplaceAllStringFunc(content, func(m string) string {
		parts := headingTags.FindStringSubmatch(m)
		level, _ := strconv.Atoi(parts[1])
		text := inlineText(parts[2])
		if text == "" {
			return "\n"
		}
		return "\n\n" + strings.Repeat("#", level) + " " + text + "\n\n"
	})
	content = listItemTags.ReplaceAllStringFunc(content, func(m string) string {
		text := inlineText(listItemTags.FindStringSubmatch(m)[1])
		if text == "" {
			return "\n"
		}
		return "\n- " + text + "\n"
	})

	content = blockElements.ReplaceAllString(content, "\n\n")
	content = brTags.ReplaceAllString(content, "\n")
	content = hrTags.ReplaceAllString(content, "\n\n---\n\n")
	content = allTags.ReplaceAllString(content, "")
	content = html.UnescapeString(content)
	content = multiSpaces.ReplaceAllString(content, " ")

	return joinBlocks(content)
}

// inlineText flattens a fragment to a single line of text.
func inlineText(fragment string) string {
	text := allTags.ReplaceAllString(fragment, "")
	text = html.UnescapeString(text)
	return strings.Join(strings.Fields(text), " ")
}

// joinBlocks trims every line and collapses runs of blank lines so
// paragraphs are separated by exactly one empty line. Consecutive list
// items stay together.
func joinBlocks(content string) string {
	var out []string
	blank := false
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			blank = len(out) > 0
			continue
		}
		if blank && !(isBullet(line) && isBullet(out[len(out)-1])) {
			out = append(out, "")
		}
		blank = false
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func isBullet(line string) bool {
	return strings.HasPrefix(line, "- ")
}
