package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driving"
)

// Ensure TabularService implements the interface.
var _ driving.TabularService = (*TabularService)(nil)

// datetimeLayouts are the formats recognised during dtype inference.
var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// TabularService answers schema and row queries over ingested tables.
type TabularService struct {
	contentStore  driven.ContentStore
	metadataStore driven.MetadataStore
}

// NewTabularService creates a new tabular service.
func NewTabularService(contentStore driven.ContentStore, metadataStore driven.MetadataStore) *TabularService {
	return &TabularService{contentStore: contentStore, metadataStore: metadataStore}
}

// ListDatasets returns every document ingested from a tabular format.
func (s *TabularService) ListDatasets(ctx context.Context) ([]domain.TabularDataset, error) {
	all, err := s.metadataStore.GetAllMetadata(ctx, nil)
	if err != nil {
		return nil, err
	}

	datasets := []domain.TabularDataset{}
	for _, md := range all {
		suffix, _ := md[domain.KeySuffix].(string)
		if !domain.IsTabularSuffix(suffix) {
			continue
		}
		title, _ := md["title"].(string)
		if title == "" {
			title = md.DocumentName()
		}
		description, _ := md["description"].(string)
		datasets = append(datasets, domain.TabularDataset{
			DocumentUID: md.DocumentUID(),
			Title:       title,
			Description: description,
			RowCount:    intValue(md["row_count"]),
		})
	}
	return datasets, nil
}

// GetSchema infers the dtype of every column from its non-empty values.
func (s *TabularService) GetSchema(ctx context.Context, uid string) (*domain.TabularSchema, error) {
	table, err := s.loadTable(ctx, uid)
	if err != nil {
		return nil, err
	}

	columns := make([]domain.TabularColumn, len(table.Header))
	for i, name := range table.Header {
		values := make([]string, 0, len(table.Rows))
		for _, row := range table.Rows {
			if i < len(row) {
				values = append(values, row[i])
			}
		}
		columns[i] = domain.TabularColumn{Name: name, DType: inferDType(values)}
	}

	return &domain.TabularSchema{
		DocumentUID: uid,
		Columns:     columns,
		RowCount:    len(table.Rows),
	}, nil
}

// Query returns rows matching every filter exactly, projected onto the
// requested columns (all columns when none are requested).
func (s *TabularService) Query(
	ctx context.Context, uid string, q domain.TabularQuery,
) (*domain.TabularResult, error) {
	table, err := s.loadTable(ctx, uid)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(table.Header))
	for i, name := range table.Header {
		index[name] = i
	}

	columns := q.Columns
	if len(columns) == 0 {
		columns = table.Header
	}
	for _, c := range columns {
		if _, ok := index[c]; !ok {
			return nil, fmt.Errorf("%w: unknown column %q", domain.ErrInvalidRequest, c)
		}
	}
	for c := range q.Filters {
		if _, ok := index[c]; !ok {
			return nil, fmt.Errorf("%w: unknown filter column %q", domain.ErrInvalidRequest, c)
		}
	}

	limit := q.Limit
	if limit <= 0 {
		limit = domain.DefaultTabularLimit
	}

	rows := []map[string]string{}
	for _, row := range table.Rows {
		if len(rows) >= limit {
			break
		}
		if !rowMatches(row, index, q.Filters) {
			continue
		}
		out := make(map[string]string, len(columns))
		for _, c := range columns {
			out[c] = cell(row, index[c])
		}
		rows = append(rows, out)
	}

	return &domain.TabularResult{DocumentUID: uid, Rows: rows}, nil
}

func (s *TabularService) loadTable(ctx context.Context, uid string) (*domain.Table, error) {
	if uid == "" {
		return nil, fmt.Errorf("%w: empty document uid", domain.ErrInvalidRequest)
	}

	rc, err := s.contentStore.GetTable(ctx, uid)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	reader := csv.NewReader(rc)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return &domain.Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read table header: %w", domain.ErrProcessingFailure, err)
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: read table rows: %w", domain.ErrProcessingFailure, err)
	}
	return &domain.Table{Header: header, Rows: rows}, nil
}

func rowMatches(row []string, index map[string]int, filters map[string]string) bool {
	for c, want := range filters {
		if cell(row, index[c]) != want {
			return false
		}
	}
	return true
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// inferDType picks the narrowest type every non-empty value parses as.
func inferDType(values []string) string {
	isInt, isFloat, isBool, isTime := true, true, true, true
	seen := false

	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		seen = true
		if isInt {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				isFloat = false
			}
		}
		if isBool {
			lv := strings.ToLower(v)
			isBool = lv == "true" || lv == "false"
		}
		if isTime {
			isTime = parsesAsTime(v)
		}
	}

	switch {
	case !seen:
		return domain.DTypeUnknown
	case isInt:
		return domain.DTypeInteger
	case isFloat:
		return domain.DTypeFloat
	case isBool:
		return domain.DTypeBoolean
	case isTime:
		return domain.DTypeDatetime
	default:
		return domain.DTypeString
	}
}

func parsesAsTime(v string) bool {
	for _, layout := range datetimeLayouts {
		if _, err := time.Parse(layout, v); err == nil {
			return true
		}
	}
	return false
}

// intValue reads integers stored natively or decoded from JSON.
func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
