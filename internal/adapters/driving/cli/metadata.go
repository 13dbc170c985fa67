package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
)

var (
	metadataFilters []string
	metadataJSON    bool
)

var metadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Inspect and manage document metadata",
}

var metadataListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents",
	Long: `Lists the metadata of every ingested document. Use --filter key=value,
repeatable, to keep only documents whose metadata matches.`,
	Args: cobra.NoArgs,
	RunE: runMetadataList,
}

var metadataGetCmd = &cobra.Command{
	Use:   "get [uid]",
	Short: "Show a document's metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runMetadataGet,
}

var metadataSetRetrievableCmd = &cobra.Command{
	Use:   "set-retrievable [uid] [true|false]",
	Short: "Include or exclude a document from search results",
	Args:  cobra.ExactArgs(2),
	RunE:  runMetadataSetRetrievable,
}

var metadataDeleteCmd = &cobra.Command{
	Use:   "delete [uid]",
	Short: "Delete a document with its content and vectors",
	Args:  cobra.ExactArgs(1),
	RunE:  runMetadataDelete,
}

func init() {
	metadataListCmd.Flags().StringArrayVar(&metadataFilters, "filter", nil, "metadata filter as key=value")
	metadataListCmd.Flags().BoolVar(&metadataJSON, "json", false, "output as JSON")
	metadataCmd.AddCommand(metadataListCmd)
	metadataCmd.AddCommand(metadataGetCmd)
	metadataCmd.AddCommand(metadataSetRetrievableCmd)
	metadataCmd.AddCommand(metadataDeleteCmd)
	rootCmd.AddCommand(metadataCmd)
}

func runMetadataList(cmd *cobra.Command, _ []string) error {
	if metadataService == nil {
		return errNotConfigured("metadata")
	}

	filters, err := parseFilters(metadataFilters)
	if err != nil {
		return err
	}

	docs, err := metadataService.GetDocumentsMetadata(cmd.Context(), filters)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if metadataJSON {
		return printJSON(cmd, docs)
	}
	if len(docs) == 0 {
		cmd.Println("No documents found.")
		return nil
	}
	for _, md := range docs {
		retrievable := ""
		if !md.Retrievable() {
			retrievable = mutedStyle.Render(" (not retrievable)")
		}
		cmd.Printf("%s  %s%s\n", md.DocumentUID(), md.DocumentName(), retrievable)
	}
	cmd.Printf("\n%d document(s)\n", len(docs))
	return nil
}

func runMetadataGet(cmd *cobra.Command, args []string) error {
	if metadataService == nil {
		return errNotConfigured("metadata")
	}

	md, err := metadataService.GetDocumentMetadata(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}
	return printJSON(cmd, md)
}

func runMetadataSetRetrievable(cmd *cobra.Command, args []string) error {
	if metadataService == nil {
		return errNotConfigured("metadata")
	}

	retrievable, err := strconv.ParseBool(args[1])
	if err != nil {
		return fmt.Errorf("%w: retrievable must be true or false", domain.ErrInvalidRequest)
	}

	md, err := metadataService.UpdateRetrievable(cmd.Context(), args[0], retrievable)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	cmd.Printf("%s retrievable=%t\n", md.DocumentUID(), md.Retrievable())
	return nil
}

func runMetadataDelete(cmd *cobra.Command, args []string) error {
	if metadataService == nil {
		return errNotConfigured("metadata")
	}

	if err := metadataService.DeleteDocument(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	cmd.Printf("Deleted %s\n", args[0])
	return nil
}

// parseFilters turns key=value pairs into a metadata filter map.
func parseFilters(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	filters := make(map[string]any, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: filter %q is not key=value", domain.ErrInvalidRequest, p)
		}
		filters[key] = value
	}
	return filters, nil
}

// printJSON writes v as indented JSON to standard output.
func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
