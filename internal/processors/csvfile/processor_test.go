package csvfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales_2024.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestParseTable(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		header []string
		rows   [][]string
		err    bool
	}{
		{
			name:   "simple",
			input:  "a,b\n1,2\n3,4\n",
			header: []string{"a", "b"},
			rows:   [][]string{{"1", "2"}, {"3", "4"}},
		},
		{
			name:   "ragged rows fitted to header",
			input:  " a , b ,c\n1\n1,2,3,4\n",
			header: []string{"a", "b", "c"},
			rows:   [][]string{{"1", "", ""}, {"1", "2", "3"}},
		},
		{
			name:   "header only",
			input:  "x,y\n",
			header: []string{"x", "y"},
		},
		{name: "empty", input: "", err: true},
		{name: "blank header", input: "\"\"\n1\n", err: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := ParseTable(strings.NewReader(tt.input))
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.header, table.Header)
			assert.Equal(t, tt.rows, table.Rows)
		})
	}
}

func TestReadTable_StripsBOM(t *testing.T) {
	path := writeCSV(t, "\xEF\xBB\xBFid,name\n1,ada\n")

	table, err := ReadTable(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, table.Header)
}

func TestExtractFileMetadata(t *testing.T) {
	path := writeCSV(t, "region,amount\nnorth,10\nsouth,20\neast,5\n")

	md, err := New().ExtractFileMetadata(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "csv", md["format"])
	assert.Equal(t, 3, md["row_count"])
	assert.Equal(t, 2, md["num_columns"])
	assert.Equal(t, []string{"region", "amount"}, md["sample_columns"])
	assert.Equal(t, "sales 2024", md["title"])
}

func TestCheckFileValidity(t *testing.T) {
	ctx := context.Background()
	assert.True(t, New().CheckFileValidity(ctx, writeCSV(t, "a\n1\n")))
	assert.False(t, New().CheckFileValidity(ctx, writeCSV(t, "")))
	assert.False(t, New().CheckFileValidity(ctx, "/missing.csv"))
}

func TestConvertToTable(t *testing.T) {
	table, err := New().ConvertToTable(context.Background(), writeCSV(t, "a,b\n1,2\n"))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "2"}}, table.Rows)
}
