package services

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
)

// --- Processor fakes ---

// fakeProcessor is a markdown processor whose behaviour is fixed per test.
type fakeProcessor struct {
	name       string
	suffixes   []string
	invalid    bool
	metadata   domain.Metadata
	markdown   string
	convertErr error
}

func (p *fakeProcessor) Name() string       { return p.name }
func (p *fakeProcessor) Suffixes() []string { return p.suffixes }

func (p *fakeProcessor) CheckFileValidity(_ context.Context, path string) bool {
	if p.invalid {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func (p *fakeProcessor) ExtractFileMetadata(_ context.Context, _ string) (domain.Metadata, error) {
	return p.metadata.Clone(), nil
}

func (p *fakeProcessor) ConvertToMarkdown(_ context.Context, path string) (string, error) {
	if p.convertErr != nil {
		return "", p.convertErr
	}
	if p.markdown != "" {
		return p.markdown, nil
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

// fakeTableProcessor converts to a fixed table.
type fakeTableProcessor struct {
	table *domain.Table
}

func (p *fakeTableProcessor) Name() string       { return "table" }
func (p *fakeTableProcessor) Suffixes() []string { return []string{".csv"} }

func (p *fakeTableProcessor) CheckFileValidity(_ context.Context, _ string) bool { return true }

func (p *fakeTableProcessor) ExtractFileMetadata(_ context.Context, _ string) (domain.Metadata, error) {
	return domain.Metadata{"row_count": len(p.table.Rows)}, nil
}

func (p *fakeTableProcessor) ConvertToTable(_ context.Context, _ string) (*domain.Table, error) {
	return p.table, nil
}

// bareProcessor exposes no conversion capability.
type bareProcessor struct{}

func (bareProcessor) Name() string                                       { return "bare" }
func (bareProcessor) Suffixes() []string                                 { return []string{".bin"} }
func (bareProcessor) CheckFileValidity(_ context.Context, _ string) bool { return true }

func (bareProcessor) ExtractFileMetadata(_ context.Context, _ string) (domain.Metadata, error) {
	return domain.Metadata{}, nil
}

// fakeRegistry resolves processors from a map.
type fakeRegistry map[string]driven.Processor

func (r fakeRegistry) Get(suffix string) (driven.Processor, error) {
	p, ok := r[suffix]
	if !ok {
		return nil, domain.ErrProcessorNotFound
	}
	return p, nil
}

func (r fakeRegistry) Suffixes() []string {
	out := make([]string, 0, len(r))
	for s := range r {
		out = append(out, s)
	}
	return out
}

func defaultRegistry() fakeRegistry {
	return fakeRegistry{
		".txt": &fakeProcessor{name: "text", suffixes: []string{".txt"}, metadata: domain.Metadata{"kind": "text"}},
		".csv": &fakeTableProcessor{table: &domain.Table{
			Header: []string{"name", "age"},
			Rows:   [][]string{{"ada", "36"}, {"alan", "41"}},
		}},
		".bin": bareProcessor{},
	}
}

// --- Embedding and pipeline fakes ---

// mockEmbedding returns a two-dimensional vector derived from text length.
type mockEmbedding struct {
	embedErr error
	vector   []float32
}

func (m *mockEmbedding) Embed(_ context.Context, text string) ([]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if m.vector != nil {
		return m.vector, nil
	}
	return []float32{float32(len(text)), 1}, nil
}

func (m *mockEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *mockEmbedding) Dimensions() int              { return 2 }
func (m *mockEmbedding) ModelName() string            { return "mock-embed" }
func (m *mockEmbedding) Ping(_ context.Context) error { return nil }
func (m *mockEmbedding) Close() error                 { return nil }

// paragraphPipeline splits artifacts on blank lines and embeds each part
// when embed is set.
type paragraphPipeline struct {
	embed bool
	err   error
}

func (p *paragraphPipeline) Process(_ context.Context, a *domain.Artifact) ([]domain.Chunk, error) {
	if p.err != nil {
		return nil, p.err
	}
	var chunks []domain.Chunk
	for i, part := range strings.Split(a.Content, "\n\n") {
		c := domain.Chunk{
			ID:          a.DocumentUID + "-" + string(rune('a'+i)),
			DocumentUID: a.DocumentUID,
			Content:     part,
			Position:    i,
			Metadata:    a.Metadata,
		}
		if p.embed {
			c.Embedding = []float32{float32(len(part)), 1}
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}

// --- Store fakes ---

// failingContentStore fails SaveContent and records deletes.
type failingContentStore struct {
	driven.ContentStore
	saveErr error
	deleted []string
}

func (s *failingContentStore) SaveContent(ctx context.Context, uid, dir string) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.ContentStore.SaveContent(ctx, uid, dir)
}

func (s *failingContentStore) DeleteContent(ctx context.Context, uid string) error {
	s.deleted = append(s.deleted, uid)
	return s.ContentStore.DeleteContent(ctx, uid)
}

// failingMetadataStore fails SaveMetadata.
type failingMetadataStore struct {
	driven.MetadataStore
	saveErr error
}

func (s *failingMetadataStore) SaveMetadata(ctx context.Context, md domain.Metadata) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.MetadataStore.SaveMetadata(ctx, md)
}

var errBoom = errors.New("boom")

// --- Helpers ---

// stage writes content to a fresh working directory and returns the
// ingest file pointing at it.
func stage(t *testing.T, filename, content string) domain.IngestFile {
	t.Helper()
	f, err := StageFile(t.TempDir(), filename, strings.NewReader(content))
	require.NoError(t, err)
	return f
}

// collect drains an event stream.
func collect(ch <-chan domain.ProgressEvent) []domain.ProgressEvent {
	var events []domain.ProgressEvent
	for e := range ch {
		events = append(events, e)
	}
	return events
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}
