package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/knowledge-flow/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/knowledge-flow/internal/adapters/driving/mcp"
	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
)

var (
	serveAddr string
	serveMCP  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serves the knowledge API under ` + httpapi.BasePath + `: file processing,
document metadata and content, vector search, tabular queries, knowledge
contexts and chat profiles. The listen address defaults to server.addr in
the configuration. With --mcp the MCP streamable HTTP transport is also
served at ` + httpapi.MCPPath + `.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides configuration)")
	serveCmd.Flags().BoolVar(&serveMCP, "mcp", false, "also serve MCP at "+httpapi.MCPPath)
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := domain.DefaultConfig().Server
	if settingsService != nil {
		settings, err := settingsService.Get()
		if err != nil {
			return fmt.Errorf("failed to load settings: %w", err)
		}
		cfg = settings.Server
	}
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}

	opts := []httpapi.Option{httpapi.WithStagingDir(stagingDir)}
	if serveMCP {
		mcpServer, err := mcp.NewServer(&mcp.Ports{
			Search:   searchService,
			Metadata: metadataService,
			Content:  contentService,
		})
		if err != nil {
			return err
		}
		opts = append(opts, httpapi.WithMCP(mcpServer.Handler()))
	}

	server := httpapi.NewServer(cfg, httpapi.Services{
		Ingestion: ingestionService,
		Metadata:  metadataService,
		Content:   contentService,
		Search:    searchService,
		Tabular:   tabularService,
		Contexts:  contextService,
		Profiles:  profileService,
	}, opts...)

	fmt.Fprintf(cmd.OutOrStdout(), "HTTP API listening on %s%s\n", cfg.Addr, httpapi.BasePath)
	return server.ListenAndServe(cmd.Context())
}
