package domain

// Column data types inferred for tabular datasets.
const (
	DTypeString   = "string"
	DTypeInteger  = "integer"
	DTypeFloat    = "float"
	DTypeBoolean  = "boolean"
	DTypeDatetime = "datetime"
	DTypeUnknown  = "unknown"
)

// DefaultTabularLimit is the row cap applied when a query sets none.
const DefaultTabularLimit = 100

// TabularColumn is one column of a dataset schema.
type TabularColumn struct {
	Name  string `json:"name"`
	DType string `json:"dtype"`
}

// TabularSchema describes an ingested table.
type TabularSchema struct {
	DocumentUID string          `json:"document_uid"`
	Columns     []TabularColumn `json:"columns"`
	RowCount    int             `json:"row_count"`
}

// TabularQuery selects rows from a table. Filters are exact string matches.
type TabularQuery struct {
	Columns []string          `json:"columns,omitempty"`
	Filters map[string]string `json:"filters,omitempty"`
	Limit   int               `json:"limit,omitempty"`
}

// TabularResult holds the rows selected by a TabularQuery.
type TabularResult struct {
	DocumentUID string              `json:"document_uid"`
	Rows        []map[string]string `json:"rows"`
}

// TabularDataset summarises one tabular document.
type TabularDataset struct {
	DocumentUID string `json:"document_uid"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	RowCount    int    `json:"row_count,omitempty"`
}

// IsTabularSuffix reports whether a file suffix converts to a table.
func IsTabularSuffix(suffix string) bool {
	switch suffix {
	case ".csv", ".xlsx", ".xlsm":
		return true
	default:
		return false
	}
}

// Table is a converted tabular document: a header row plus data rows.
type Table struct {
	Header []string
	Rows   [][]string
}

// NumColumns returns the width of the header.
func (t *Table) NumColumns() int {
	return len(t.Header)
}

// SampleColumns returns up to n leading column names.
func (t *Table) SampleColumns(n int) []string {
	if len(t.Header) < n {
		n = len(t.Header)
	}
	return append([]string(nil), t.Header[:n]...)
}
