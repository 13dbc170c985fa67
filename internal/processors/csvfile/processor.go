// Package csvfile handles comma-separated tables.
package csvfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
	"github.com/custodia-labs/knowledge-flow/internal/processors/common"
)

// sampleColumnCount bounds the sample_columns metadata field.
const sampleColumnCount = 10

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Ensure Processor implements the interfaces.
var (
	_ driven.Processor      = (*Processor)(nil)
	_ driven.TableConverter = (*Processor)(nil)
)

// Processor handles CSV files.
type Processor struct{}

// New creates a new CSV processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "csv"
}

// Suffixes returns the file suffixes this processor handles.
func (p *Processor) Suffixes() []string {
	return []string{".csv"}
}

// CheckFileValidity accepts files that parse as CSV with a header row.
func (p *Processor) CheckFileValidity(_ context.Context, path string) bool {
	_, err := ReadTable(path)
	return err == nil
}

// ExtractFileMetadata reports the table shape.
func (p *Processor) ExtractFileMetadata(_ context.Context, path string) (domain.Metadata, error) {
	table, err := ReadTable(path)
	if err != nil {
		return nil, err
	}
	md := common.FileMetadata(path)
	md["title"] = common.TitleFromFilename(path)
	md["format"] = "csv"
	AddShape(md, table)
	return md, nil
}

// ConvertToTable parses the file into a normalised table.
func (p *Processor) ConvertToTable(_ context.Context, path string) (*domain.Table, error) {
	return ReadTable(path)
}

// AddShape records row_count, num_columns and sample_columns.
func AddShape(md domain.Metadata, table *domain.Table) {
	md["row_count"] = len(table.Rows)
	md["num_columns"] = table.NumColumns()
	md["sample_columns"] = table.SampleColumns(sampleColumnCount)
}

// ReadTable parses a CSV file. Header cells are trimmed and every row is
// padded or truncated to the header width.
func ReadTable(path string) (*domain.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ParseTable(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
}

// ParseTable parses CSV from r.
func ParseTable(r io.Reader) (*domain.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("csv has no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("parse csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if len(header) == 0 || (len(header) == 1 && header[0] == "") {
		return nil, errors.New("csv header is empty")
	}

	table := &domain.Table{Header: header}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		table.Rows = append(table.Rows, fitRow(row, len(header)))
	}
	return table, nil
}

func fitRow(row []string, width int) []string {
	if len(row) == width {
		return row
	}
	out := make([]string, width)
	copy(out, row)
	return out
}
