package cli

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func decodeEvents(t *testing.T, out string) []domain.ProgressEvent {
	t.Helper()
	var events []domain.ProgressEvent
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var e domain.ProgressEvent
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		events = append(events, e)
	}
	return events
}

func TestIngestCmd_RequiresFiles(t *testing.T) {
	_, err := execute("ingest")
	assert.Error(t, err)
}

func TestIngestCmd_StreamsNDJSON(t *testing.T) {
	ts, cleanup := setupTestServices(t)
	defer cleanup()
	path := writeTempFile(t, "notes.txt", "hello")

	out, err := execute("ingest", "--agent", "ops", "--metadata", `{"project":"alpha"}`, path)
	require.NoError(t, err)

	events := decodeEvents(t, out)
	require.Len(t, events, 3)
	assert.Equal(t, domain.StepMetadataExtraction, events[0].Step)
	assert.Equal(t, "notes.txt", events[0].Filename)
	assert.True(t, events[2].IsDone())
	assert.Equal(t, domain.StatusSuccess, events[2].Status)

	assert.Equal(t, "ops", ts.ingestion.seed[domain.KeyAgentName])
	assert.Equal(t, "alpha", ts.ingestion.seed["project"])
	require.Len(t, ts.ingestion.files, 1)
	assert.Equal(t, "notes.txt", ts.ingestion.files[0].Filename)
	assert.NotEqual(t, path, ts.ingestion.files[0].Path, "files are staged before ingestion")
	assert.NoFileExists(t, ts.ingestion.files[0].Path, "staged copies are removed afterwards")
}

func TestIngestCmd_AllFailed(t *testing.T) {
	_, cleanup := setupTestServices(t)
	defer cleanup()
	path := writeTempFile(t, "bad.txt", "x")

	out, err := execute("ingest", "--json", path)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProcessingFailure)
	events := decodeEvents(t, out)
	require.NotEmpty(t, events)
	assert.Equal(t, domain.StatusError, events[len(events)-1].Status)
}

func TestIngestCmd_PartialSuccess(t *testing.T) {
	_, cleanup := setupTestServices(t)
	defer cleanup()

	_, err := execute("ingest", writeTempFile(t, "bad.txt", "x"), writeTempFile(t, "good.txt", "y"))
	assert.NoError(t, err)
}

func TestIngestCmd_Interrupted(t *testing.T) {
	ts, cleanup := setupTestServices(t)
	defer cleanup()
	ts.ingestion.interrupted = true

	_, err := execute("ingest", writeTempFile(t, "good.txt", "y"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProcessingFailure)
	assert.Contains(t, err.Error(), "interrupted after 1 file(s)")
}

func TestIngestCmd_InvalidMetadata(t *testing.T) {
	_, cleanup := setupTestServices(t)
	defer cleanup()

	_, err := execute("ingest", "--metadata", "[1,2]", writeTempFile(t, "a.txt", "x"))
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestIngestCmd_MissingFile(t *testing.T) {
	_, cleanup := setupTestServices(t)
	defer cleanup()

	_, err := execute("ingest", filepath.Join(t.TempDir(), "absent.txt"))
	assert.ErrorIs(t, err, domain.ErrInvalidFile)
}

func TestIngestCmd_ServiceNotConfigured(t *testing.T) {
	old := ingestionService
	ingestionService = nil
	defer func() { ingestionService = old }()

	_, err := execute("ingest", "x.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingestion service not configured")
}

func TestParseSeed(t *testing.T) {
	seed, err := parseSeed("", "")
	require.NoError(t, err)
	assert.Empty(t, seed)

	seed, err = parseSeed(`{"front_metadata":{"team":"a"}}`, "bot")
	require.NoError(t, err)
	assert.Equal(t, "bot", seed[domain.KeyAgentName])
	assert.Contains(t, seed, domain.KeyFrontMetadata)
}

func TestFormatEvent(t *testing.T) {
	line := formatEvent(domain.ProgressEvent{
		Step: domain.StepMetadataExtraction, Filename: "a.pdf", Status: domain.StatusError, Error: "boom",
	})
	assert.Contains(t, line, "a.pdf")
	assert.Contains(t, line, domain.StepMetadataExtraction)
	assert.Contains(t, line, "error")
	assert.Contains(t, line, "boom")

	assert.Contains(t, formatEvent(domain.DoneEvent(true)), "done")
}
