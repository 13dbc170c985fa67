// Package docx converts Word documents to markdown by reading
// word/document.xml directly from the Office Open XML package.
package docx

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
	"github.com/custodia-labs/knowledge-flow/internal/processors/common"
)

const documentPart = "word/document.xml"

// Ensure Processor implements the interfaces.
var (
	_ driven.Processor         = (*Processor)(nil)
	_ driven.MarkdownConverter = (*Processor)(nil)
)

// Processor handles DOCX documents.
type Processor struct{}

// New creates a new DOCX processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "docx"
}

// Suffixes returns the file suffixes this processor handles.
func (p *Processor) Suffixes() []string {
	return []string{".docx"}
}

// CheckFileValidity accepts zip archives containing word/document.xml.
func (p *Processor) CheckFileValidity(_ context.Context, path string) bool {
	r, err := zip.OpenReader(path)
	if err != nil {
		return false
	}
	defer r.Close()
	return common.ZipHas(&r.Reader, documentPart)
}

// ExtractFileMetadata reads the core document properties.
func (p *Processor) ExtractFileMetadata(_ context.Context, path string) (domain.Metadata, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open docx %s: %w", path, err)
	}
	defer r.Close()

	md := common.FileMetadata(path)
	props := common.ReadCoreProperties(&r.Reader)
	md["title"] = common.TitleFromFilename(path)
	common.SetIfNotEmpty(md, "title", props.Title)
	common.SetIfNotEmpty(md, "author", props.Creator)
	common.SetIfNotEmpty(md, "created", props.Created)
	common.SetIfNotEmpty(md, "modified", props.Modified)
	common.SetIfNotEmpty(md, "last_modified_by", props.LastModifiedBy)
	common.SetIfNotEmpty(md, "category", props.Category)
	common.SetIfNotEmpty(md, "subject", props.Subject)
	common.SetIfNotEmpty(md, "keywords", props.Keywords)
	return md, nil
}

// ConvertToMarkdown renders the document body as markdown.
func (p *Processor) ConvertToMarkdown(_ context.Context, path string) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx %s: %w", path, err)
	}
	defer r.Close()

	data, err := common.ReadZipEntry(&r.Reader, documentPart)
	if err != nil {
		return "", err
	}
	return parseDocumentXML(data)
}

// documentXML represents the structure of word/document.xml.
type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Properties struct {
		Style struct {
			Val string `xml:"val,attr"`
		} `xml:"pStyle"`
		Numbering *struct{} `xml:"numPr"`
	} `xml:"pPr"`
	Runs []run `xml:"r"`
}

type run struct {
	Text []textElement `xml:"t"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

// parseDocumentXML converts paragraphs to markdown blocks.
func parseDocumentXML(content []byte) (string, error) {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", fmt.Errorf("parse %s: %w", documentPart, err)
	}

	var blocks []string
	for _, para := range doc.Body.Paragraphs {
		var text strings.Builder
		for _, r := range para.Runs {
			for _, t := range r.Text {
				text.WriteString(t.Content)
			}
		}
		line := strings.TrimSpace(text.String())
		if line == "" {
			continue
		}

		switch {
		case headingLevel(para.Properties.Style.Val) > 0:
			line = strings.Repeat("#", headingLevel(para.Properties.Style.Val)) + " " + line
		case para.Properties.Numbering != nil || strings.HasPrefix(para.Properties.Style.Val, "List"):
			line = "- " + line
		}
		blocks = append(blocks, line)
	}

	return joinBlocks(blocks), nil
}

// headingLevel maps Title and HeadingN styles to a markdown level.
func headingLevel(style string) int {
	if style == "Title" {
		return 1
	}
	rest, ok := strings.CutPrefix(style, "Heading")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 {
		return 0
	}
	if n > 6 {
		n = 6
	}
	return n
}

// joinBlocks separates blocks by a blank line, keeping list runs tight.
func joinBlocks(blocks []string) string {
	var b strings.Builder
	for i, block := range blocks {
		if i > 0 {
			if strings.HasPrefix(block, "- ") && strings.HasPrefix(blocks[i-1], "- ") {
				b.WriteString("\n")
			} else {
				b.WriteString("\n\n")
			}
		}
		b.WriteString(block)
	}
	return b.String()
}
