package services

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
)

func TestStageFile(t *testing.T) {
	root := t.TempDir()

	f, err := StageFile(root, "../reports/q1.txt", strings.NewReader("numbers"))
	require.NoError(t, err)
	assert.Equal(t, "q1.txt", f.Filename)
	assert.Equal(t, domain.InputDirName, filepath.Base(filepath.Dir(f.Path)))

	data, err := os.ReadFile(f.Path)
	require.NoError(t, err)
	assert.Equal(t, "numbers", string(data))

	CleanupStaged([]domain.IngestFile{f})
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStageFile_Errors(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		wantErr  error
	}{
		{"invalid name", "/", domain.ErrInvalidRequest},
		{"dot name", ".", domain.ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := StageFile(t.TempDir(), tt.filename, strings.NewReader("x"))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestStageFile_ReadFailureRemovesWorkDir(t *testing.T) {
	root := t.TempDir()

	_, err := StageFile(root, "a.txt", iotest.ErrReader(errors.New("connection reset")))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorageFailure)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
