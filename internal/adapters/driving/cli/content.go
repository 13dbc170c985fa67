package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var contentOutput string

var contentCmd = &cobra.Command{
	Use:   "content",
	Short: "Read converted or original document content",
}

var contentMarkdownCmd = &cobra.Command{
	Use:   "markdown [uid]",
	Short: "Print a document's markdown conversion",
	Args:  cobra.ExactArgs(1),
	RunE:  runContentMarkdown,
}

var contentRawCmd = &cobra.Command{
	Use:   "raw [uid]",
	Short: "Download the original file",
	Long: `Writes the originally uploaded file to --output, or to its recorded
name in the current directory. Use --output - to write to standard output.`,
	Args: cobra.ExactArgs(1),
	RunE: runContentRaw,
}

func init() {
	contentRawCmd.Flags().StringVarP(&contentOutput, "output", "o", "", "destination path, - for stdout")
	contentCmd.AddCommand(contentMarkdownCmd)
	contentCmd.AddCommand(contentRawCmd)
	rootCmd.AddCommand(contentCmd)
}

func runContentMarkdown(cmd *cobra.Command, args []string) error {
	if contentService == nil {
		return errNotConfigured("content")
	}

	markdown, err := contentService.GetMarkdown(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get markdown: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), markdown)
	return nil
}

func runContentRaw(cmd *cobra.Command, args []string) error {
	if contentService == nil {
		return errNotConfigured("content")
	}

	raw, err := contentService.GetRawContent(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get raw content: %w", err)
	}
	defer raw.Body.Close()

	if contentOutput == "-" {
		_, err := io.Copy(cmd.OutOrStdout(), raw.Body)
		return err
	}

	dest := contentOutput
	if dest == "" {
		dest = filepath.Base(raw.Filename)
	}
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	n, err := io.Copy(f, raw.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	cmd.Printf("Wrote %s (%d bytes)\n", dest, n)
	return nil
}
