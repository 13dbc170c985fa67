package cli

import (
	"encoding/csv"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
)

var (
	tabularColumns []string
	tabularFilters []string
	tabularLimit   int
	tabularJSON    bool
)

var tabularCmd = &cobra.Command{
	Use:   "tabular",
	Short: "Explore ingested tables",
}

var tabularListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tabular datasets",
	Args:  cobra.NoArgs,
	RunE:  runTabularList,
}

var tabularSchemaCmd = &cobra.Command{
	Use:   "schema [uid]",
	Short: "Show a dataset's columns and types",
	Args:  cobra.ExactArgs(1),
	RunE:  runTabularSchema,
}

var tabularQueryCmd = &cobra.Command{
	Use:   "query [uid]",
	Short: "Select rows from a dataset",
	Long: `Selects rows from a dataset. Use --column to project columns and
--filter column=value, repeatable, to keep rows with an exact match.
Rows are printed as CSV, or as JSON with --json.`,
	Args: cobra.ExactArgs(1),
	RunE: runTabularQuery,
}

func init() {
	tabularQueryCmd.Flags().StringArrayVar(&tabularColumns, "column", nil, "column to include")
	tabularQueryCmd.Flags().StringArrayVar(&tabularFilters, "filter", nil, "row filter as column=value")
	tabularQueryCmd.Flags().IntVarP(&tabularLimit, "limit", "n", domain.DefaultTabularLimit, "maximum number of rows")
	tabularQueryCmd.Flags().BoolVar(&tabularJSON, "json", false, "output rows as JSON")
	tabularCmd.AddCommand(tabularListCmd)
	tabularCmd.AddCommand(tabularSchemaCmd)
	tabularCmd.AddCommand(tabularQueryCmd)
	rootCmd.AddCommand(tabularCmd)
}

func runTabularList(cmd *cobra.Command, _ []string) error {
	if tabularService == nil {
		return errNotConfigured("tabular")
	}

	datasets, err := tabularService.ListDatasets(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list datasets: %w", err)
	}
	if len(datasets) == 0 {
		cmd.Println("No tabular datasets found.")
		return nil
	}
	for _, d := range datasets {
		cmd.Printf("%s  %s  %s\n", d.DocumentUID, d.Title, mutedStyle.Render(fmt.Sprintf("%d rows", d.RowCount)))
	}
	return nil
}

func runTabularSchema(cmd *cobra.Command, args []string) error {
	if tabularService == nil {
		return errNotConfigured("tabular")
	}

	schema, err := tabularService.GetSchema(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get schema: %w", err)
	}
	cmd.Printf("%s (%d rows)\n", titleStyle.Render(schema.DocumentUID), schema.RowCount)
	for _, c := range schema.Columns {
		cmd.Printf("  %-30s %s\n", c.Name, mutedStyle.Render(c.DType))
	}
	return nil
}

func runTabularQuery(cmd *cobra.Command, args []string) error {
	if tabularService == nil {
		return errNotConfigured("tabular")
	}

	filters := make(map[string]string, len(tabularFilters))
	parsed, err := parseFilters(tabularFilters)
	if err != nil {
		return err
	}
	for k, v := range parsed {
		filters[k] = v.(string)
	}

	result, err := tabularService.Query(cmd.Context(), args[0], domain.TabularQuery{
		Columns: tabularColumns,
		Filters: filters,
		Limit:   tabularLimit,
	})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if tabularJSON {
		return printJSON(cmd, result)
	}

	columns := tabularColumns
	if len(columns) == 0 {
		schema, err := tabularService.GetSchema(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get schema: %w", err)
		}
		for _, c := range schema.Columns {
			columns = append(columns, c.Name)
		}
	}
	return writeRowsCSV(cmd, result.Rows, columns)
}

// writeRowsCSV prints rows as CSV with columns as the header.
func writeRowsCSV(cmd *cobra.Command, rows []map[string]string, columns []string) error {
	w := csv.NewWriter(cmd.OutOrStdout())
	if err := w.Write(columns); err != nil {
		return err
	}
	record := make([]string, len(columns))
	for _, r := range rows {
		for i, c := range columns {
			record[i] = r[c]
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
