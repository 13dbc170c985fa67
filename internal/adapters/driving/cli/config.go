package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
)

var (
	configModel  string
	configAPIKey string
	configDSN    string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage application configuration",
	Long: `View and change storage backends and AI providers.

Values are stored in config.toml in the data directory. KF_* environment
variables, also read from a .env file, override stored values.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if settingsService == nil {
			return errNotConfigured("settings")
		}
		fmt.Fprintln(cmd.OutOrStdout(), settingsService.Path())
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check backends and ping configured AI providers",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

var configEmbeddingCmd = &cobra.Command{
	Use:   "embedding [provider]",
	Short: "Configure the embedding provider",
	Long: `Sets the provider used to embed chunks and queries: ollama, openai,
azureopenai, gemini or none. The API key is prompted for when the provider
needs one and --api-key is not given.`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigEmbedding,
}

var configVisionCmd = &cobra.Command{
	Use:   "vision [provider]",
	Short: "Configure the image description provider",
	Long: `Sets the provider used to describe images embedded in documents:
ollama, openai, gemini, anthropic or none.`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigVision,
}

var configMetadataCmd = &cobra.Command{
	Use:   "metadata-backend [local|sqlite|badger|memory]",
	Short: "Select the metadata store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if settingsService == nil {
			return errNotConfigured("settings")
		}
		backend := domain.MetadataBackend(args[0])
		if err := settingsService.SetMetadataBackend(backend); err != nil {
			return fmt.Errorf("failed to set metadata backend: %w", err)
		}
		cmd.Printf("Metadata backend set to: %s\n", backend.Description())
		return nil
	},
}

var configVectorsCmd = &cobra.Command{
	Use:   "vector-store [memory|sqlite|pgvector]",
	Short: "Select the vector index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if settingsService == nil {
			return errNotConfigured("settings")
		}
		backend := domain.VectorBackend(args[0])
		if err := settingsService.SetVectorStore(backend, configDSN); err != nil {
			return fmt.Errorf("failed to set vector store: %w", err)
		}
		cmd.Printf("Vector store set to: %s\n", backend)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{configEmbeddingCmd, configVisionCmd} {
		c.Flags().StringVar(&configModel, "model", "", "model name (provider default when empty)")
		c.Flags().StringVar(&configAPIKey, "api-key", "", "API key")
	}
	configVectorsCmd.Flags().StringVar(&configDSN, "dsn", "", "connection string (pgvector) or directory (sqlite)")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configEmbeddingCmd)
	configCmd.AddCommand(configVisionCmd)
	configCmd.AddCommand(configMetadataCmd)
	configCmd.AddCommand(configVectorsCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	cfg, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println(titleStyle.Render("Current Configuration"))
	cmd.Println(mutedStyle.Render(settingsService.Path()))
	cmd.Println()

	cmd.Println("[Storage]")
	cmd.Printf("  Content: %s\n", cfg.Storage.ContentBackend)
	cmd.Printf("  Metadata: %s\n", cfg.Storage.MetadataBackend.Description())
	cmd.Printf("  Collections: %s\n", cfg.Storage.CollectionBackend)
	if cfg.Storage.ContentBackend == domain.ContentBackendS3 || cfg.Storage.CollectionBackend == domain.ContentBackendS3 {
		cmd.Printf("  S3 bucket: %s\n", cfg.S3.Bucket)
		if cfg.S3.Endpoint != "" {
			cmd.Printf("  S3 endpoint: %s\n", cfg.S3.Endpoint)
		}
	}
	cmd.Println()

	cmd.Println("[Vector Store]")
	cmd.Printf("  Type: %s\n", cfg.VectorStore.Type)
	cmd.Printf("  Index: %s\n", cfg.VectorStore.Index)
	cmd.Println()

	cmd.Println("[Embedding]")
	printProvider(cmd, cfg.Embedding.Provider, cfg.Embedding.Model, cfg.Embedding.APIKey, cfg.Embedding.IsConfigured())
	cmd.Println()

	cmd.Println("[Vision]")
	printProvider(cmd, cfg.Vision.Provider, cfg.Vision.Model, cfg.Vision.APIKey, cfg.Vision.IsConfigured())
	cmd.Println()

	cmd.Println("[Chunking]")
	cmd.Printf("  Chunk size: %d\n", cfg.Chunking.ChunkSize)
	cmd.Printf("  Overlap: %d\n", cfg.Chunking.ChunkOverlap)
	cmd.Println()

	cmd.Println("[Server]")
	cmd.Printf("  Address: %s\n", cfg.Server.Addr)
	return nil
}

func printProvider(cmd *cobra.Command, provider domain.AIProvider, model, apiKey string, configured bool) {
	cmd.Printf("  Provider: %s\n", provider)
	if model != "" {
		cmd.Printf("  Model: %s\n", model)
	}
	if provider.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status := successStyle.Render("configured")
	if !configured {
		status = warningStyle.Render("not configured")
	}
	cmd.Printf("  Status: %s\n", status)
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.Validate(cmd.Context()); err != nil {
		cmd.Println(errorStyle.Render("FAILED"))
		for _, line := range strings.Split(err.Error(), "\n") {
			cmd.Printf("  - %s\n", line)
		}
		return fmt.Errorf("%w: configuration is invalid", domain.ErrConfiguration)
	}
	cmd.Println(successStyle.Render("OK"))
	return nil
}

func runConfigEmbedding(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	provider := domain.AIProvider(args[0])
	apiKey := promptAPIKey(cmd, provider)
	if err := settingsService.SetEmbeddingProvider(provider, configModel, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}
	cmd.Printf("Embedding provider configured: %s\n", provider)
	return nil
}

func runConfigVision(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	provider := domain.AIProvider(args[0])
	apiKey := promptAPIKey(cmd, provider)
	if err := settingsService.SetVisionProvider(provider, configModel, apiKey); err != nil {
		return fmt.Errorf("failed to configure vision provider: %w", err)
	}
	cmd.Printf("Vision provider configured: %s\n", provider)
	return nil
}

// promptAPIKey returns --api-key, or asks for one on a terminal when the
// provider needs it.
func promptAPIKey(cmd *cobra.Command, provider domain.AIProvider) string {
	if configAPIKey != "" || !provider.RequiresAPIKey() || !term.IsTerminal(int(os.Stdin.Fd())) {
		return configAPIKey
	}
	cmd.Print("Enter API key: ")
	key := readPassword()
	cmd.Println()
	return key
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	// Try to read password without echo
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
