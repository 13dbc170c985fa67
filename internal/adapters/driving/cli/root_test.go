package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/logger"
)

func TestRootCmd_RegistersCommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{
		"ingest", "metadata", "content", "contexts", "profiles", "search",
		"tabular", "serve", "mcp", "watch", "config", "version",
	} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestRootCmd_VerboseFlag(t *testing.T) {
	defer logger.SetVerbose(false)

	_, err := execute("--verbose", "version")

	require.NoError(t, err)
	assert.True(t, logger.IsVerbose())
	verbose = false
}

func TestExecute_SetsVersion(t *testing.T) {
	original := version
	defer func() { version = original }()
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, Execute(context.Background(), "1.2.3"))
	assert.Equal(t, "1.2.3", version)
}

func TestServeCmd_AddrFlag(t *testing.T) {
	flag := serveCmd.Flags().Lookup("addr")
	require.NotNil(t, flag)
	assert.Equal(t, "", flag.DefValue)
}

func TestMCPServeCmd_PortFlag(t *testing.T) {
	flag := mcpServeCmd.Flags().Lookup("port")
	require.NotNil(t, flag)
	assert.Equal(t, "p", flag.Shorthand)
	assert.Equal(t, "0", flag.DefValue)
}

func TestMCPServeCmd_RequiresSearch(t *testing.T) {
	old := searchService
	searchService = nil
	defer func() { searchService = old }()

	_, err := execute("mcp", "serve")
	assert.Error(t, err)
}

func TestWatchCmd_InvalidDirectory(t *testing.T) {
	_, cleanup := setupTestServices(t)
	defer cleanup()

	_, err := execute("watch", filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestWatchCmd_ServiceNotConfigured(t *testing.T) {
	old := ingestionService
	ingestionService = nil
	defer func() { ingestionService = old }()

	_, err := execute("watch", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingestion service not configured")
}
