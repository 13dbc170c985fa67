package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/knowledge-flow/internal/adapters/driving/watcher"
	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
)

var (
	watchAgent    string
	watchScan     bool
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch DIR",
	Short: "Ingest files as they appear in a directory",
	Long: `Watches a directory and ingests every file created or modified in it.
Removing a file deletes its document. Hidden files are ignored.
Use --scan to ingest the files already present before watching.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchAgent, "agent", "", "agent name the documents belong to")
	watchCmd.Flags().BoolVar(&watchScan, "scan", false, "ingest existing files first")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watcher.DefaultDebounce, "quiet period before acting on changes")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errNotConfigured("ingestion")
	}

	opts := []watcher.Option{
		watcher.WithDebounce(watchDebounce),
		watcher.WithObserver(func(e domain.ProgressEvent) {
			if e.Status == domain.StatusError || e.Step == domain.StepRawContentSaving || e.IsDone() {
				fmt.Fprintln(cmd.OutOrStdout(), formatEvent(e))
			}
		}),
	}
	if watchAgent != "" {
		opts = append(opts, watcher.WithAgent(watchAgent))
	}

	w, err := watcher.New(args[0], stagingDir, ingestionService, metadataService, opts...)
	if err != nil {
		return err
	}

	if watchScan {
		if err := w.Scan(cmd.Context()); err != nil {
			return err
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (Ctrl+C to stop)\n", args[0])
	return w.Run(cmd.Context())
}
