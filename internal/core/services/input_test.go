package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
)

func TestInputProcessorService_ExtractMetadata(t *testing.T) {
	svc := NewInputProcessorService(defaultRegistry())
	f := stage(t, "notes.txt", "hello world")

	md, err := svc.ExtractMetadata(context.Background(), f.Path, domain.Metadata{
		domain.KeyDocumentName: "notes.txt",
		domain.KeyAgentName:    "finance",
		domain.KeyFrontMetadata: map[string]any{
			"project name": "apollo",
			"empty":        "",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.DeriveDocumentUID("finance", "notes.txt"), md.DocumentUID())
	assert.Equal(t, "notes.txt", md.DocumentName())
	assert.Equal(t, ".txt", md[domain.KeySuffix])
	assert.Equal(t, true, md[domain.KeyRetrievable])
	assert.Equal(t, "text", md["kind"])
	assert.Equal(t, "apollo", md["project_name"])
	assert.NotContains(t, md, "empty")
	assert.NotContains(t, md, domain.KeyFrontMetadata)
	assert.NotEmpty(t, md[domain.KeyDateAdded])
}

func TestInputProcessorService_ExtractMetadata_DeterministicUID(t *testing.T) {
	svc := NewInputProcessorService(defaultRegistry())
	a := stage(t, "same.txt", "one")
	b := stage(t, "same.txt", "two")

	mdA, err := svc.ExtractMetadata(context.Background(), a.Path, domain.Metadata{})
	require.NoError(t, err)
	mdB, err := svc.ExtractMetadata(context.Background(), b.Path, domain.Metadata{})
	require.NoError(t, err)

	assert.Equal(t, mdA.DocumentUID(), mdB.DocumentUID())
	assert.Equal(t, domain.DeriveDocumentUID("", "same.txt"), mdA.DocumentUID())
}

func TestInputProcessorService_ExtractMetadata_InvalidFile(t *testing.T) {
	reg := fakeRegistry{".txt": &fakeProcessor{name: "text", invalid: true}}
	svc := NewInputProcessorService(reg)
	f := stage(t, "bad.txt", "x")

	_, err := svc.ExtractMetadata(context.Background(), f.Path, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMissingDocumentUID))
	assert.Equal(t, "MissingDocumentUID", domain.KindOf(err))
	assert.Contains(t, err.Error(), "invalid file structure")
}

func TestInputProcessorService_ExtractMetadata_UnknownSuffix(t *testing.T) {
	svc := NewInputProcessorService(defaultRegistry())
	f := stage(t, "image.gif", "GIF89a")

	_, err := svc.ExtractMetadata(context.Background(), f.Path, nil)
	assert.True(t, errors.Is(err, domain.ErrProcessorNotFound))
}

func TestInputProcessorService_Process(t *testing.T) {
	svc := NewInputProcessorService(defaultRegistry())
	ctx := context.Background()

	t.Run("markdown", func(t *testing.T) {
		f := stage(t, "a.txt", "# hello")
		workDir := filepath.Dir(filepath.Dir(f.Path))

		require.NoError(t, svc.Process(ctx, workDir, f.Path, nil))
		data, err := os.ReadFile(filepath.Join(workDir, "output", "output.md"))
		require.NoError(t, err)
		assert.Equal(t, "# hello", string(data))
	})

	t.Run("table", func(t *testing.T) {
		f := stage(t, "people.csv", "ignored")
		workDir := filepath.Dir(filepath.Dir(f.Path))

		require.NoError(t, svc.Process(ctx, workDir, f.Path, nil))
		data, err := os.ReadFile(filepath.Join(workDir, "output", "table.csv"))
		require.NoError(t, err)
		assert.Equal(t, "name,age\nada,36\nalan,41\n", string(data))
	})

	t.Run("no conversion capability", func(t *testing.T) {
		f := stage(t, "blob.bin", "x")
		workDir := filepath.Dir(filepath.Dir(f.Path))

		err := svc.Process(ctx, workDir, f.Path, nil)
		assert.True(t, errors.Is(err, domain.ErrUnknownProcessorType))
		assert.True(t, errors.Is(err, domain.ErrConfiguration))
	})

	t.Run("conversion failure", func(t *testing.T) {
		reg := fakeRegistry{".txt": &fakeProcessor{name: "text", convertErr: errBoom}}
		f := stage(t, "a.txt", "x")
		workDir := filepath.Dir(filepath.Dir(f.Path))

		err := NewInputProcessorService(reg).Process(ctx, workDir, f.Path, nil)
		assert.True(t, errors.Is(err, domain.ErrProcessingFailure))
		assert.True(t, errors.Is(err, errBoom))
	})

	t.Run("invalid file", func(t *testing.T) {
		reg := fakeRegistry{".txt": &fakeProcessor{name: "text", invalid: true}}
		f := stage(t, "a.txt", "x")
		workDir := filepath.Dir(filepath.Dir(f.Path))

		err := NewInputProcessorService(reg).Process(ctx, workDir, f.Path, nil)
		assert.True(t, errors.Is(err, domain.ErrInvalidFile))
	})
}
