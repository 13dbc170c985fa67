// Package tablechunker splits CSV artifacts into batches of rows. Every
// chunk repeats the header so it can be read on its own.
package tablechunker

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
)

// DefaultRowsPerChunk is the default number of data rows per chunk.
const DefaultRowsPerChunk = 50

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// Processor groups table rows into chunks.
type Processor struct {
	rowsPerChunk int
}

// Option configures the table chunker.
type Option func(*Processor)

// WithRowsPerChunk sets the number of data rows per chunk.
func WithRowsPerChunk(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.rowsPerChunk = n
		}
	}
}

// New creates a table chunker.
func New(opts ...Option) *Processor {
	p := &Processor{rowsPerChunk: DefaultRowsPerChunk}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "table_chunker"
}

// Process parses the CSV artifact and emits one chunk per row batch.
// A table with a header but no rows yields a single header-only chunk.
func (p *Processor) Process(_ context.Context, artifact *domain.Artifact, _ []domain.Chunk) ([]domain.Chunk, error) {
	r := csv.NewReader(strings.NewReader(artifact.Content))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parse table header: %w", err)
	}

	var (
		chunks []domain.Chunk
		batch  [][]string
		row    int
	)
	flush := func() error {
		content, err := encode(header, batch)
		if err != nil {
			return err
		}
		md := artifact.Metadata.Clone()
		if md == nil {
			md = domain.Metadata{}
		}
		md["row_start"] = row - len(batch)
		md["row_end"] = row
		chunks = append(chunks, domain.Chunk{
			ID:          uuid.New().String(),
			DocumentUID: artifact.DocumentUID,
			Content:     content,
			Position:    len(chunks),
			Metadata:    md,
		})
		batch = nil
		return nil
	}

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse table row %d: %w", row+1, err)
		}
		batch = append(batch, rec)
		row++
		if len(batch) == p.rowsPerChunk {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if len(batch) > 0 || len(chunks) == 0 {
		if err := flush(); err != nil {
			return nil, err
		}
	}
	return chunks, nil
}

func encode(header []string, rows [][]string) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return "", err
	}
	if err := w.WriteAll(rows); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
