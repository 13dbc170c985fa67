package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/knowledge-flow/internal/adapters/driven/storage/local"
	"github.com/custodia-labs/knowledge-flow/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
)

type ingestionFixture struct {
	svc      *IngestionService
	metadata *memory.MetadataStore
	content  *failingContentStore
	index    *memory.VectorIndex
}

func newIngestionFixture(t *testing.T, reg fakeRegistry) *ingestionFixture {
	t.Helper()
	contentStore, err := local.NewContentStore(t.TempDir())
	require.NoError(t, err)

	f := &ingestionFixture{
		metadata: memory.NewMetadataStore(),
		content:  &failingContentStore{ContentStore: contentStore},
		index:    memory.NewVectorIndex("kf-test"),
	}
	input := NewInputProcessorService(reg)
	output := NewOutputProcessorService(markdownPipelines(true), f.index, &mockEmbedding{})
	f.svc = NewIngestionService(input, output, f.metadata, f.content, f.index, NewKeyLock())
	return f
}

func steps(events []domain.ProgressEvent, filename string) []string {
	var out []string
	for _, e := range events {
		if e.Filename == filename {
			out = append(out, e.Step+":"+string(e.Status))
		}
	}
	return out
}

func TestIngestionService_SingleFileSuccess(t *testing.T) {
	fx := newIngestionFixture(t, defaultRegistry())
	ctx := context.Background()
	file := stage(t, "notes.txt", "alpha\n\nbeta")

	events := collect(fx.svc.Ingest(ctx, []domain.IngestFile{file}, domain.Metadata{domain.KeyAgentName: "ops"}))

	require.Len(t, events, 6)
	assert.Equal(t, []string{
		"metadata extraction:success",
		"document knowledge extraction:success",
		"knowledge post processing:success",
		"metadata saving:success",
		"raw content saving:success",
	}, steps(events, "notes.txt"))
	assert.Equal(t, domain.DoneEvent(true), events[5])

	uid := domain.DeriveDocumentUID("ops", "notes.txt")
	for _, e := range events[:5] {
		assert.Equal(t, uid, e.DocumentUID)
	}

	md, err := fx.metadata.GetMetadataByUID(ctx, uid)
	require.NoError(t, err)
	require.NotNil(t, md)
	assert.Equal(t, "mock-embed", md[domain.KeyEmbeddingModel])
	assert.Equal(t, "kf-test", md[domain.KeyVectorIndex])

	markdown, err := fx.content.GetMarkdown(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "alpha\n\nbeta", markdown)

	rc, err := fx.content.GetContent(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "alpha\n\nbeta", readAll(t, rc))
	assert.Equal(t, 2, fx.index.Len())
}

func TestIngestionService_PartialFailureIsolation(t *testing.T) {
	reg := defaultRegistry()
	fx := newIngestionFixture(t, reg)

	files := []domain.IngestFile{
		stage(t, "good.txt", "fine"),
		stage(t, "blob.bin", "no converter"),
		stage(t, "unknown.xyz", "no processor"),
		stage(t, "table.csv", "ignored"),
	}
	events := collect(fx.svc.Ingest(context.Background(), files, nil))

	assert.Len(t, steps(events, "good.txt"), 5)
	assert.Len(t, steps(events, "table.csv"), 5)

	assert.Equal(t, []string{
		"metadata extraction:success",
		"document knowledge extraction:error",
	}, steps(events, "blob.bin"))
	assert.Equal(t, []string{"metadata extraction:error"}, steps(events, "unknown.xyz"))

	for _, e := range events {
		if e.Filename == "blob.bin" && e.Status == domain.StatusError {
			assert.True(t, strings.HasPrefix(e.Error, "UnknownProcessorType: "), e.Error)
		}
		if e.Filename == "unknown.xyz" && e.Status == domain.StatusError {
			assert.True(t, strings.HasPrefix(e.Error, "ProcessorNotFound: "), e.Error)
			assert.Empty(t, e.DocumentUID)
		}
	}

	last := events[len(events)-1]
	assert.True(t, last.IsDone())
	assert.Equal(t, domain.StatusSuccess, last.Status)
}

func TestIngestionService_AllFailed(t *testing.T) {
	reg := fakeRegistry{".txt": &fakeProcessor{name: "text", invalid: true}}
	fx := newIngestionFixture(t, reg)

	events := collect(fx.svc.Ingest(context.Background(), []domain.IngestFile{stage(t, "bad.txt", "x")}, nil))

	require.Len(t, events, 2)
	assert.Equal(t, domain.StatusError, events[0].Status)
	assert.True(t, strings.HasPrefix(events[0].Error, "MissingDocumentUID: "), events[0].Error)
	assert.Equal(t, domain.DoneEvent(false), events[1])
}

func TestIngestionService_ReingestReplaces(t *testing.T) {
	fx := newIngestionFixture(t, defaultRegistry())
	ctx := context.Background()

	collect(fx.svc.Ingest(ctx, []domain.IngestFile{stage(t, "doc.txt", "one\n\ntwo\n\nthree")}, nil))
	assert.Equal(t, 3, fx.index.Len())

	events := collect(fx.svc.Ingest(ctx, []domain.IngestFile{stage(t, "doc.txt", "replaced")}, nil))
	assert.Equal(t, domain.StatusSuccess, events[len(events)-1].Status)

	uid := domain.DeriveDocumentUID("", "doc.txt")
	assert.Contains(t, fx.content.deleted, uid)
	assert.Equal(t, 1, fx.index.Len())

	markdown, err := fx.content.GetMarkdown(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "replaced", markdown)

	all, err := fx.metadata.GetAllMetadata(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestIngestionService_ContentFailureRollsBackMetadata(t *testing.T) {
	fx := newIngestionFixture(t, defaultRegistry())
	fx.content.saveErr = errors.New("disk full")
	ctx := context.Background()

	events := collect(fx.svc.Ingest(ctx, []domain.IngestFile{stage(t, "a.txt", "text")}, nil))

	assert.Equal(t, []string{
		"metadata extraction:success",
		"document knowledge extraction:success",
		"knowledge post processing:success",
		"metadata saving:success",
		"raw content saving:error",
	}, steps(events, "a.txt"))
	assert.Equal(t, domain.DoneEvent(false), events[len(events)-1])

	md, err := fx.metadata.GetMetadataByUID(ctx, domain.DeriveDocumentUID("", "a.txt"))
	require.NoError(t, err)
	assert.Nil(t, md)
	assert.Equal(t, 0, fx.index.Len())

	search := NewSearchService(fx.index, &mockEmbedding{}, fx.metadata)
	hits, err := search.Search(ctx, "text", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIngestionService_MetadataFailureRollsBackVectors(t *testing.T) {
	contentStore, err := local.NewContentStore(t.TempDir())
	require.NoError(t, err)
	metadata := &failingMetadataStore{MetadataStore: memory.NewMetadataStore(), saveErr: errBoom}
	index := memory.NewVectorIndex("kf-test")

	input := NewInputProcessorService(defaultRegistry())
	output := NewOutputProcessorService(markdownPipelines(true), index, &mockEmbedding{})
	svc := NewIngestionService(input, output, metadata, contentStore, index, nil)

	events := collect(svc.Ingest(context.Background(), []domain.IngestFile{stage(t, "a.txt", "one\n\ntwo")}, nil))

	assert.Equal(t, []string{
		"metadata extraction:success",
		"document knowledge extraction:success",
		"knowledge post processing:success",
		"metadata saving:error",
	}, steps(events, "a.txt"))
	assert.Equal(t, domain.DoneEvent(false), events[len(events)-1])
	assert.Equal(t, 0, index.Len())
}

func TestIngestionService_RejectsUnstagedFile(t *testing.T) {
	fx := newIngestionFixture(t, defaultRegistry())
	path := writeFile(t, t.TempDir(), "loose.txt", "text")

	events := collect(fx.svc.Ingest(context.Background(), []domain.IngestFile{{Filename: "loose.txt", Path: path}}, nil))

	require.Len(t, events, 2)
	assert.Equal(t, domain.StepMetadataExtraction, events[0].Step)
	assert.Equal(t, domain.StatusError, events[0].Status)
	assert.True(t, strings.HasPrefix(events[0].Error, "InvalidRequest: "), events[0].Error)
	assert.NoDirExists(t, filepath.Join(filepath.Dir(path), domain.OutputDirName))
	assert.Equal(t, domain.DoneEvent(false), events[1])
}

func TestIngestionService_IgnoredPostProcessing(t *testing.T) {
	contentStore, err := local.NewContentStore(t.TempDir())
	require.NoError(t, err)
	metadata := memory.NewMetadataStore()

	input := NewInputProcessorService(defaultRegistry())
	output := NewOutputProcessorService(markdownPipelines(false), nil, nil)
	svc := NewIngestionService(input, output, metadata, contentStore, nil, nil)

	events := collect(svc.Ingest(context.Background(), []domain.IngestFile{stage(t, "a.txt", "text")}, nil))

	assert.Equal(t, "knowledge post processing:ignored", steps(events, "a.txt")[2])
	assert.Equal(t, domain.DoneEvent(true), events[len(events)-1])
}

func TestIngestionService_Cancelled(t *testing.T) {
	fx := newIngestionFixture(t, defaultRegistry())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events := collect(fx.svc.Ingest(ctx, []domain.IngestFile{stage(t, "a.txt", "text")}, nil))
	assert.Empty(t, events)
}
