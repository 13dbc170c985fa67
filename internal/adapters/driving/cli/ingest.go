package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/services"
)

var (
	ingestMetadata string
	ingestAgent    string
	ingestJSON     bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest FILE...",
	Short: "Ingest files into the knowledge base",
	Long: `Extracts metadata from each file, converts it to markdown or a table,
chunks and embeds the result, then stores metadata and content.

Progress is printed per step. When output is not a terminal, or with --json,
each event is written as one JSON object per line.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestMetadata, "metadata", "", "JSON object merged into every document's metadata")
	ingestCmd.Flags().StringVar(&ingestAgent, "agent", "", "agent name the documents belong to")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "print progress as NDJSON")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errNotConfigured("ingestion")
	}

	seed, err := parseSeed(ingestMetadata, ingestAgent)
	if err != nil {
		return err
	}

	files := make([]domain.IngestFile, 0, len(args))
	defer func() { services.CleanupStaged(files) }()
	for _, path := range args {
		file, err := stageLocalFile(path)
		if err != nil {
			return err
		}
		files = append(files, file)
	}

	out := cmd.OutOrStdout()
	jsonOut := ingestJSON || !isTerminal(out)
	enc := json.NewEncoder(out)

	var agg domain.ProgressAggregator
	for event := range ingestionService.Ingest(cmd.Context(), files, seed) {
		agg.Observe(event)
		if jsonOut {
			if err := enc.Encode(event); err != nil {
				return fmt.Errorf("write progress: %w", err)
			}
			continue
		}
		fmt.Fprintln(out, formatEvent(event))
	}

	if !jsonOut {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "%s %d succeeded, %d failed\n", titleStyle.Render("Ingestion:"), agg.Succeeded(), agg.Failed())
	}
	if !agg.Finished() {
		return fmt.Errorf("%w: ingestion interrupted after %d file(s) succeeded", domain.ErrProcessingFailure, agg.Succeeded())
	}
	if !agg.Success() {
		return fmt.Errorf("%w: no file was ingested", domain.ErrProcessingFailure)
	}
	return nil
}

// parseSeed builds the seed metadata from the --metadata and --agent flags.
func parseSeed(raw, agent string) (domain.Metadata, error) {
	seed := domain.Metadata{}
	if raw != "" {
		decoded, err := domain.DecodeMetadata([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: --metadata is not a JSON object: %w", domain.ErrInvalidRequest, err)
		}
		for k, v := range decoded {
			seed[k] = v
		}
	}
	if agent != "" {
		seed[domain.KeyAgentName] = agent
	}
	return seed, nil
}

// stageLocalFile copies a file on disk into the staging area.
func stageLocalFile(path string) (domain.IngestFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.IngestFile{}, fmt.Errorf("%w: %w", domain.ErrInvalidFile, err)
	}
	defer f.Close()
	return services.StageFile(stagingDir, filepath.Base(path), f)
}

// formatEvent renders one progress event for a terminal.
func formatEvent(e domain.ProgressEvent) string {
	status := statusStyle(e.Status).Render(string(e.Status))
	if e.IsDone() {
		return fmt.Sprintf("%s %s", titleStyle.Render("done"), status)
	}
	line := fmt.Sprintf("%-32s %-30s %s", e.Filename, mutedStyle.Render(e.Step), status)
	if e.Error != "" {
		line += " " + errorStyle.Render(e.Error)
	}
	return line
}
