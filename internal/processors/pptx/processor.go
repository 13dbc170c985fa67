// Package pptx converts PowerPoint presentations to markdown, one section
// per slide.
package pptx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
	"github.com/custodia-labs/knowledge-flow/internal/processors/common"
)

const presentationPart = "ppt/presentation.xml"

var slidePart = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// Ensure Processor implements the interfaces.
var (
	_ driven.Processor         = (*Processor)(nil)
	_ driven.MarkdownConverter = (*Processor)(nil)
)

// Processor handles PPTX presentations.
type Processor struct{}

// New creates a new presentation processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "pptx"
}

// Suffixes returns the file suffixes this processor handles.
func (p *Processor) Suffixes() []string {
	return []string{".pptx", ".ppsx", ".pps"}
}

// CheckFileValidity accepts zip archives containing ppt/presentation.xml.
func (p *Processor) CheckFileValidity(_ context.Context, path string) bool {
	r, err := zip.OpenReader(path)
	if err != nil {
		return false
	}
	defer r.Close()
	return common.ZipHas(&r.Reader, presentationPart)
}

// ExtractFileMetadata reports the slide count and core properties.
func (p *Processor) ExtractFileMetadata(_ context.Context, path string) (domain.Metadata, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open presentation %s: %w", path, err)
	}
	defer r.Close()

	md := common.FileMetadata(path)
	props := common.ReadCoreProperties(&r.Reader)
	md["num_slides"] = len(slides(&r.Reader))
	md["title"] = common.TitleFromFilename(path)
	common.SetIfNotEmpty(md, "title", props.Title)
	common.SetIfNotEmpty(md, "author", props.Creator)
	return md, nil
}

// ConvertToMarkdown renders every slide as a "### Slide N" section.
func (p *Processor) ConvertToMarkdown(_ context.Context, path string) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open presentation %s: %w", path, err)
	}
	defer r.Close()

	var sections []string
	for _, s := range slides(&r.Reader) {
		data, err := common.ReadZipEntry(&r.Reader, s.name)
		if err != nil {
			return "", err
		}
		text, err := slideText(data)
		if err != nil {
			return "", fmt.Errorf("parse %s: %w", s.name, err)
		}
		section := fmt.Sprintf("### Slide %d", s.number)
		if text != "" {
			section += "\n\n" + text
		}
		sections = append(sections, section)
	}
	return strings.Join(sections, "\n\n---\n\n"), nil
}

type slideEntry struct {
	number int
	name   string
}

// slides lists the slide parts in presentation order.
func slides(r *zip.Reader) []slideEntry {
	var out []slideEntry
	for _, f := range r.File {
		m := slidePart.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		out = append(out, slideEntry{number: n, name: f.Name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].number < out[j].number })
	return out
}

// slideText collects the text runs of a slide, one line per paragraph.
func slideText(data []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var (
		lines   []string
		current strings.Builder
		inText  bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			inText = t.Name.Local == "t"
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if line := strings.TrimSpace(current.String()); line != "" {
					lines = append(lines, line)
				}
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}
