package processors

import (
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
	"github.com/custodia-labs/knowledge-flow/internal/processors/csvfile"
	"github.com/custodia-labs/knowledge-flow/internal/processors/docx"
	"github.com/custodia-labs/knowledge-flow/internal/processors/html"
	"github.com/custodia-labs/knowledge-flow/internal/processors/markdown"
	"github.com/custodia-labs/knowledge-flow/internal/processors/office"
	"github.com/custodia-labs/knowledge-flow/internal/processors/pdf"
	"github.com/custodia-labs/knowledge-flow/internal/processors/plaintext"
	"github.com/custodia-labs/knowledge-flow/internal/processors/pptx"
	"github.com/custodia-labs/knowledge-flow/internal/processors/xlsx"
)

// RegisterDefaults registers the built-in processors. describer is used
// by the PDF processor for embedded pictures and may be nil.
func RegisterDefaults(r *Registry, describer driven.ImageDescriber) {
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(docx.New())
	r.Register(pptx.New())
	r.Register(office.New(nil))
	r.Register(pdf.New(describer))
	r.Register(csvfile.New())
	r.Register(xlsx.New())
}

// NewDefaultRegistry returns a registry with every built-in processor.
func NewDefaultRegistry(describer driven.ImageDescriber) *Registry {
	r := NewRegistry()
	RegisterDefaults(r, describer)
	return r
}
