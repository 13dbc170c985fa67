package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
)

func TestSearchCmd_Use(t *testing.T) {
	assert.Equal(t, "search [query]", searchCmd.Use)
}

func TestSearchCmd_Long(t *testing.T) {
	assert.Contains(t, searchCmd.Long, "semantic search")
	assert.Contains(t, searchCmd.Long, "retrievable")
}

func TestSearchCmd_RequiresExactlyOneArg(t *testing.T) {
	_, err := execute("search")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestSearchCmd_HasLimitFlag(t *testing.T) {
	flag := searchCmd.Flags().Lookup("limit")
	require.NotNil(t, flag, "limit flag should exist")
	assert.Equal(t, "n", flag.Shorthand)
	assert.Equal(t, "10", flag.DefValue)
}

func TestSearchCmd_ExecutesWithQuery(t *testing.T) {
	ts, cleanup := setupTestServices(t)
	defer cleanup()

	out, err := execute("search", "quarterly numbers")

	require.NoError(t, err)
	assert.Contains(t, out, "Results:")
	assert.Contains(t, out, "[1] report.pdf (0.91)")
	assert.Contains(t, out, "Quarterly numbers are up.")
	assert.Equal(t, "quarterly numbers", ts.search.query)
	assert.Equal(t, domain.DefaultSearchLimit, ts.search.k)
}

func TestSearchCmd_ExecutesWithLimitFlag(t *testing.T) {
	ts, cleanup := setupTestServices(t)
	defer cleanup()

	_, err := execute("search", "--limit", "25", "test query")

	require.NoError(t, err)
	assert.Equal(t, 25, ts.search.k)
}

func TestSearchCmd_NoResults(t *testing.T) {
	_, cleanup := setupTestServices(t)
	defer cleanup()

	out, err := execute("search", "nothing")

	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestSearchCmd_JSON(t *testing.T) {
	_, cleanup := setupTestServices(t)
	defer cleanup()

	out, err := execute("search", "--json", "numbers")
	require.NoError(t, err)

	var hits []domain.SearchHit
	require.NoError(t, json.Unmarshal([]byte(out), &hits))
	require.Len(t, hits, 1)
	assert.Equal(t, "uid-1", hits[0].Chunk.DocumentUID)
}

func TestSearchCmd_ServiceNotConfigured(t *testing.T) {
	old := searchService
	searchService = nil
	defer func() { searchService = old }()

	_, err := execute("search", "anything")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "search service not configured")
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "a b c", snippet("a\n b\t\tc "))
	long := make([]rune, snippetLength+10)
	for i := range long {
		long[i] = 'x'
	}
	got := snippet(string(long))
	assert.Len(t, []rune(got), snippetLength+3)
	assert.Equal(t, "...", got[len(got)-3:])
}
