// Package cli implements the knowledge-flow command line.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driving"
	"github.com/custodia-labs/knowledge-flow/internal/logger"
)

// version is set by the build.
var version = "dev"

var verbose bool

// Services used by the commands. Nil services make the commands that
// need them fail with a "not configured" error.
var (
	ingestionService driving.IngestionService
	metadataService  driving.MetadataService
	contentService   driving.ContentService
	searchService    driving.SearchService
	tabularService   driving.TabularService
	contextService   driving.CollectionService
	profileService   driving.CollectionService
	settingsService  driving.SettingsService
	stagingDir       string
)

// Services bundles the driving ports the command line calls.
type Services struct {
	Ingestion driving.IngestionService
	Metadata  driving.MetadataService
	Content   driving.ContentService
	Search    driving.SearchService
	Tabular   driving.TabularService
	Contexts  driving.CollectionService
	Profiles  driving.CollectionService
	Settings  driving.SettingsService

	// StagingDir holds working copies of files being ingested.
	StagingDir string
}

var rootCmd = &cobra.Command{
	Use:   "knowledge-flow",
	Short: "Ingest documents into a searchable knowledge base",
	Long: `knowledge-flow converts documents into markdown or tables, chunks and
embeds them into a vector index, and serves the result over HTTP, MCP
and this command line.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetServices installs the services the commands call.
func SetServices(s Services) {
	ingestionService = s.Ingestion
	metadataService = s.Metadata
	contentService = s.Content
	searchService = s.Search
	tabularService = s.Tabular
	contextService = s.Contexts
	profileService = s.Profiles
	settingsService = s.Settings
	stagingDir = s.StagingDir
}

// Execute runs the command line with the given build version.
func Execute(ctx context.Context, v string) error {
	if v != "" {
		version = v
	}
	return rootCmd.ExecuteContext(ctx)
}

// errNotConfigured reports a command whose service was not wired.
func errNotConfigured(name string) error {
	return errors.New(name + " service not configured")
}
