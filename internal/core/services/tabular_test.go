package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/knowledge-flow/internal/adapters/driven/storage/local"
	"github.com/custodia-labs/knowledge-flow/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
)

const peopleCSV = `name,age,score,active,joined,note
ada,36,9.5,true,2021-03-04,
alan,41,7,false,2020-01-02,x
grace,85,8.25,TRUE,2019-12-31,
`

func newTabularFixture(t *testing.T) *TabularService {
	t.Helper()
	content, err := local.NewContentStore(t.TempDir())
	require.NoError(t, err)
	metadata := memory.NewMetadataStore()
	ctx := context.Background()

	dir := t.TempDir()
	writeFile(t, dir, "output/table.csv", peopleCSV)
	require.NoError(t, content.SaveContent(ctx, "people", dir))

	require.NoError(t, metadata.SaveMetadata(ctx, domain.Metadata{
		domain.KeyDocumentUID:  "people",
		domain.KeyDocumentName: "people.csv",
		domain.KeySuffix:       ".csv",
		"row_count":            float64(3),
	}))
	require.NoError(t, metadata.SaveMetadata(ctx, domain.Metadata{
		domain.KeyDocumentUID: "doc",
		domain.KeySuffix:      ".pdf",
	}))
	return NewTabularService(content, metadata)
}

func TestTabularService_ListDatasets(t *testing.T) {
	svc := newTabularFixture(t)

	datasets, err := svc.ListDatasets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.TabularDataset{
		{DocumentUID: "people", Title: "people.csv", RowCount: 3},
	}, datasets)
}

func TestTabularService_GetSchema(t *testing.T) {
	svc := newTabularFixture(t)

	schema, err := svc.GetSchema(context.Background(), "people")
	require.NoError(t, err)
	assert.Equal(t, 3, schema.RowCount)
	assert.Equal(t, []domain.TabularColumn{
		{Name: "name", DType: domain.DTypeString},
		{Name: "age", DType: domain.DTypeInteger},
		{Name: "score", DType: domain.DTypeFloat},
		{Name: "active", DType: domain.DTypeBoolean},
		{Name: "joined", DType: domain.DTypeDatetime},
		{Name: "note", DType: domain.DTypeString},
	}, schema.Columns)

	_, err = svc.GetSchema(context.Background(), "doc")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestTabularService_Query(t *testing.T) {
	svc := newTabularFixture(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		query    domain.TabularQuery
		expected []map[string]string
		err      error
	}{
		{
			name:  "filter and project",
			query: domain.TabularQuery{Columns: []string{"name"}, Filters: map[string]string{"active": "false"}},
			expected: []map[string]string{
				{"name": "alan"},
			},
		},
		{
			name:  "limit",
			query: domain.TabularQuery{Columns: []string{"name", "age"}, Limit: 2},
			expected: []map[string]string{
				{"name": "ada", "age": "36"},
				{"name": "alan", "age": "41"},
			},
		},
		{
			name:     "no match",
			query:    domain.TabularQuery{Columns: []string{"name"}, Filters: map[string]string{"name": "linus"}},
			expected: []map[string]string{},
		},
		{
			name:  "unknown column",
			query: domain.TabularQuery{Columns: []string{"salary"}},
			err:   domain.ErrInvalidRequest,
		},
		{
			name:  "unknown filter column",
			query: domain.TabularQuery{Filters: map[string]string{"salary": "1"}},
			err:   domain.ErrInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.Query(ctx, "people", tt.query)
			if tt.err != nil {
				assert.True(t, errors.Is(err, tt.err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result.Rows)
		})
	}
}

func TestInferDType(t *testing.T) {
	tests := []struct {
		values   []string
		expected string
	}{
		{[]string{"", " "}, domain.DTypeUnknown},
		{[]string{"1", "-2"}, domain.DTypeInteger},
		{[]string{"1", "2.5"}, domain.DTypeFloat},
		{[]string{"true", "False"}, domain.DTypeBoolean},
		{[]string{"2024-01-01T10:00:00Z", "2024-01-02"}, domain.DTypeDatetime},
		{[]string{"1", "a"}, domain.DTypeString},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, inferDType(tt.values))
		})
	}
}
