package httpapi

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driving"
)

// fakeIngestion emits a canned event per file: success for names not
// starting with "bad", and an error otherwise.
type fakeIngestion struct {
	seen     []domain.IngestFile
	contents []string
	seed     domain.Metadata
}

func (f *fakeIngestion) Ingest(_ context.Context, files []domain.IngestFile, seed domain.Metadata) <-chan domain.ProgressEvent {
	f.seen = files
	f.seed = seed
	for _, file := range files {
		data, _ := os.ReadFile(file.Path)
		f.contents = append(f.contents, string(data))
	}
	ch := make(chan domain.ProgressEvent, len(files)+1)
	success := false
	for _, file := range files {
		if strings.HasPrefix(file.Filename, "bad") {
			ch <- domain.ProgressEvent{Step: domain.StepMetadataExtraction, Filename: file.Filename,
				Status: domain.StatusError, Error: "InvalidFile: broken"}
			continue
		}
		success = true
		ch <- domain.ProgressEvent{Step: domain.StepRawContentSaving, Filename: file.Filename,
			Status: domain.StatusSuccess, DocumentUID: "uid-" + file.Filename}
	}
	ch <- domain.DoneEvent(success)
	close(ch)
	return ch
}

type fakeMetadata struct {
	records map[string]domain.Metadata
	deleted []string
}

func (f *fakeMetadata) GetDocumentsMetadata(_ context.Context, filters map[string]any) ([]domain.Metadata, error) {
	out := []domain.Metadata{}
	for _, md := range f.records {
		if domain.MatchFilters(md, filters) {
			out = append(out, md)
		}
	}
	return out, nil
}

func (f *fakeMetadata) GetDocumentMetadata(_ context.Context, uid string) (domain.Metadata, error) {
	md, ok := f.records[uid]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return md, nil
}

func (f *fakeMetadata) UpdateRetrievable(ctx context.Context, uid string, retrievable bool) (domain.Metadata, error) {
	return f.UpdateDocumentMetadata(ctx, uid, map[string]any{domain.KeyRetrievable: retrievable})
}

func (f *fakeMetadata) UpdateDocumentMetadata(_ context.Context, uid string, fields map[string]any) (domain.Metadata, error) {
	md, ok := f.records[uid]
	if !ok {
		return nil, domain.ErrNotFound
	}
	for k, v := range fields {
		md[k] = v
	}
	return md, nil
}

func (f *fakeMetadata) DeleteDocument(_ context.Context, uid string) error {
	if _, ok := f.records[uid]; !ok {
		return domain.ErrNotFound
	}
	delete(f.records, uid)
	f.deleted = append(f.deleted, uid)
	return nil
}

func (f *fakeMetadata) SearchMetadata(_ context.Context, query string, _ int) ([]domain.Metadata, error) {
	out := []domain.Metadata{}
	for _, md := range f.records {
		if strings.Contains(md.DocumentName(), query) {
			out = append(out, md)
		}
	}
	return out, nil
}

type fakeContent struct{}

func (fakeContent) GetMarkdown(_ context.Context, uid string) (string, error) {
	if uid != "u1" {
		return "", domain.ErrNotFound
	}
	return "# Title", nil
}

func (fakeContent) GetRawContent(_ context.Context, uid string) (*driving.RawContent, error) {
	if uid != "u1" {
		return nil, domain.ErrNotFound
	}
	return &driving.RawContent{Filename: "report.pdf", Body: io.NopCloser(strings.NewReader("%PDF"))}, nil
}

type fakeSearch struct {
	err error
	k   int
}

func (f *fakeSearch) Search(_ context.Context, query string, k int) ([]domain.SearchHit, error) {
	f.k = k
	if f.err != nil {
		return nil, f.err
	}
	return []domain.SearchHit{{Chunk: domain.Chunk{ID: "c1", Content: query}, Score: 0.9, Rank: 1}}, nil
}

type fakeTabular struct{}

func (fakeTabular) ListDatasets(context.Context) ([]domain.TabularDataset, error) {
	return []domain.TabularDataset{{DocumentUID: "t1", Title: "sales.csv"}}, nil
}

func (fakeTabular) GetSchema(_ context.Context, uid string) (*domain.TabularSchema, error) {
	return &domain.TabularSchema{DocumentUID: uid, RowCount: 2}, nil
}

func (fakeTabular) Query(_ context.Context, uid string, q domain.TabularQuery) (*domain.TabularResult, error) {
	if _, ok := q.Filters["missing"]; ok {
		return nil, domain.ErrInvalidRequest
	}
	return &domain.TabularResult{DocumentUID: uid, Rows: []map[string]string{{"a": "1"}}}, nil
}

type fakeCollections struct {
	kind    domain.CollectionKind
	created []driving.CollectionRequest
	err     error
}

func (f *fakeCollections) Kind() domain.CollectionKind { return f.kind }

func (f *fakeCollections) Create(_ context.Context, req driving.CollectionRequest) (*domain.Collection, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, req)
	c := &domain.Collection{ID: "c1", Title: req.Title, Tag: req.Tag}
	for _, up := range req.Files {
		c.Documents = append(c.Documents, domain.CollectionDocument{ID: up.Filename, DocumentName: up.Filename})
	}
	return c, nil
}

func (f *fakeCollections) Update(_ context.Context, id string, req driving.CollectionRequest) (*domain.Collection, error) {
	if id != "c1" {
		return nil, domain.ErrCollectionNotFound
	}
	return &domain.Collection{ID: id, Title: req.Title}, nil
}

func (f *fakeCollections) Delete(_ context.Context, id string) error {
	if id != "c1" {
		return domain.ErrCollectionNotFound
	}
	return nil
}

func (f *fakeCollections) List(_ context.Context, tag string) ([]domain.Collection, error) {
	return []domain.Collection{{ID: "c1", Tag: tag}}, nil
}

func (f *fakeCollections) Get(_ context.Context, id string) (*domain.CollectionContent, error) {
	if id != "c1" {
		return nil, domain.ErrCollectionNotFound
	}
	return &domain.CollectionContent{Collection: domain.Collection{ID: id}, Content: "\n\n# a\n\nbody"}, nil
}

func (f *fakeCollections) DeleteDocument(_ context.Context, id, docID string) (*domain.Collection, error) {
	if docID != "d1" {
		return nil, domain.ErrDocumentNotFound
	}
	return &domain.Collection{ID: id}, nil
}

func (f *fakeCollections) MaxTokens() int { return domain.DefaultMaxTokens }
