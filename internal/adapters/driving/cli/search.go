package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
)

var (
	searchLimit int
	searchJSON  bool
)

// snippetLength bounds the chunk text shown per result.
const snippetLength = 160

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed documents",
	Long: `Performs semantic search across all retrievable documents.
The query is embedded and compared against every indexed chunk.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", domain.DefaultSearchLimit, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if searchService == nil {
		return errNotConfigured("search")
	}

	hits, err := searchService.Search(cmd.Context(), query, searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return printJSON(cmd, hits)
	}

	return outputSearchTable(cmd, hits)
}

func outputSearchTable(cmd *cobra.Command, hits []domain.SearchHit) error {
	if len(hits) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println(titleStyle.Render("Results:"))
	cmd.Println()
	for i := range hits {
		// Format: [N] Document name (score)
		name, _ := hits[i].Chunk.Metadata[domain.KeyDocumentName].(string)
		if name == "" {
			name = hits[i].Chunk.DocumentUID
		}

		cmd.Printf("  [%d] %s (%.2f)\n", hits[i].Rank, name, hits[i].Score)
		cmd.Printf("      %s\n", mutedStyle.Render(hits[i].Chunk.DocumentUID))
		if snippet := snippet(hits[i].Chunk.Content); snippet != "" {
			cmd.Printf("      %s\n", snippet)
		}
		cmd.Println()
	}
	return nil
}

// snippet collapses whitespace and truncates text for display.
func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if len([]rune(text)) <= snippetLength {
		return text
	}
	return string([]rune(text)[:snippetLength]) + "..."
}
