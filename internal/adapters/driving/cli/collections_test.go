package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
)

func TestCollectionCmds_Registered(t *testing.T) {
	for _, group := range []string{"contexts", "profiles"} {
		cmd, _, err := rootCmd.Find([]string{group})
		require.NoError(t, err)
		names := make(map[string]bool)
		for _, c := range cmd.Commands() {
			names[c.Name()] = true
		}
		for _, want := range []string{"create", "update", "list", "get", "delete", "remove-doc", "max-tokens"} {
			assert.True(t, names[want], "%s is missing %s", group, want)
		}
	}
}

func TestContextsCreate(t *testing.T) {
	ts, cleanup := setupTestServices(t)
	defer cleanup()
	path := writeTempFile(t, "welcome.md", "# Welcome")

	out, err := execute("contexts", "create", "--title", "Onboarding", "--tag", "hr", path)

	require.NoError(t, err)
	assert.Contains(t, out, "Onboarding")
	assert.Contains(t, out, "welcome.md")
	assert.Contains(t, out, "3 / 1000 tokens")
	require.Len(t, ts.contexts.created, 1)
	req := ts.contexts.created[0]
	assert.Equal(t, "hr", req.Tag)
	require.Len(t, req.Files, 1)
	assert.Equal(t, domain.CollectionUpload{Filename: "welcome.md", Path: path}, req.Files[0])
	assert.Empty(t, ts.profiles.created)
}

func TestContextsCreate_RequiresTitle(t *testing.T) {
	_, cleanup := setupTestServices(t)
	defer cleanup()

	_, err := execute("contexts", "create", "--title", "", writeTempFile(t, "a.md", "a"))
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestProfilesList(t *testing.T) {
	ts, cleanup := setupTestServices(t)
	defer cleanup()

	out, err := execute("profiles", "list", "--tag", "hr")

	require.NoError(t, err)
	assert.Contains(t, out, "c-1  Onboarding [hr]")
	assert.Equal(t, "hr", ts.profiles.tag)
}

func TestContextsGet(t *testing.T) {
	_, cleanup := setupTestServices(t)
	defer cleanup()

	out, err := execute("contexts", "get", "c-1")

	require.NoError(t, err)
	assert.Contains(t, out, "# welcome.md")
	assert.Contains(t, out, "Hello team")
}

func TestContextsGet_JSON(t *testing.T) {
	_, cleanup := setupTestServices(t)
	defer cleanup()

	out, err := execute("contexts", "get", "c-1", "--json")
	require.NoError(t, err)

	var content domain.CollectionContent
	require.NoError(t, json.Unmarshal([]byte(out), &content))
	assert.Equal(t, "c-1", content.ID)
}

func TestContextsDelete(t *testing.T) {
	_, cleanup := setupTestServices(t)
	defer cleanup()

	out, err := execute("contexts", "delete", "c-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted knowledge context c-1")

	_, err = execute("contexts", "delete", "c-9")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProfilesRemoveDoc(t *testing.T) {
	_, cleanup := setupTestServices(t)
	defer cleanup()

	out, err := execute("profiles", "remove-doc", "c-1", "welcome")

	require.NoError(t, err)
	assert.Contains(t, out, "Removed welcome from c-1")
}

func TestProfilesMaxTokens(t *testing.T) {
	_, cleanup := setupTestServices(t)
	defer cleanup()

	out, err := execute("profiles", "max-tokens")

	require.NoError(t, err)
	assert.Contains(t, out, "1000")
}

func TestCollectionCmds_ServiceNotConfigured(t *testing.T) {
	old := profileService
	profileService = nil
	defer func() { profileService = old }()

	_, err := execute("profiles", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat profile service not configured")
}
