package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/custodia-labs/knowledge-flow/internal/adapters/driving/watcher"
	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driving"
)

// mockIngestion succeeds for every file whose name does not contain "bad".
// An interrupted ingestion ends without the done event.
type mockIngestion struct {
	files       []domain.IngestFile
	seed        domain.Metadata
	interrupted bool
}

func (m *mockIngestion) Ingest(_ context.Context, files []domain.IngestFile, seed domain.Metadata) <-chan domain.ProgressEvent {
	m.files = files
	m.seed = seed
	ch := make(chan domain.ProgressEvent, 2*len(files)+1)
	ok := false
	for _, f := range files {
		if strings.Contains(f.Filename, "bad") {
			ch <- domain.ProgressEvent{Step: domain.StepMetadataExtraction, Filename: f.Filename, Status: domain.StatusError, Error: "invalid file"}
			continue
		}
		ok = true
		ch <- domain.ProgressEvent{Step: domain.StepMetadataExtraction, Filename: f.Filename, Status: domain.StatusSuccess}
		ch <- domain.ProgressEvent{Step: domain.StepRawContentSaving, Filename: f.Filename, Status: domain.StatusSuccess}
	}
	if !m.interrupted {
		ch <- domain.DoneEvent(ok)
	}
	close(ch)
	return ch
}

type mockMetadata struct {
	records map[string]domain.Metadata
	filters map[string]any
	deleted []string
}

func newMockMetadata() *mockMetadata {
	return &mockMetadata{records: map[string]domain.Metadata{
		"uid-1": {domain.KeyDocumentUID: "uid-1", domain.KeyDocumentName: "report.pdf", domain.KeyRetrievable: true},
		"uid-2": {domain.KeyDocumentUID: "uid-2", domain.KeyDocumentName: "draft.md", domain.KeyRetrievable: false},
	}}
}

func (m *mockMetadata) GetDocumentsMetadata(_ context.Context, filters map[string]any) ([]domain.Metadata, error) {
	m.filters = filters
	out := []domain.Metadata{m.records["uid-1"], m.records["uid-2"]}
	if len(filters) == 0 {
		return out, nil
	}
	var matched []domain.Metadata
	for _, md := range out {
		if domain.MatchFilters(md, filters) {
			matched = append(matched, md)
		}
	}
	return matched, nil
}

func (m *mockMetadata) GetDocumentMetadata(_ context.Context, uid string) (domain.Metadata, error) {
	md, ok := m.records[uid]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return md, nil
}

func (m *mockMetadata) UpdateRetrievable(ctx context.Context, uid string, retrievable bool) (domain.Metadata, error) {
	md, err := m.GetDocumentMetadata(ctx, uid)
	if err != nil {
		return nil, err
	}
	md[domain.KeyRetrievable] = retrievable
	return md, nil
}

func (m *mockMetadata) UpdateDocumentMetadata(ctx context.Context, uid string, _ map[string]any) (domain.Metadata, error) {
	return m.GetDocumentMetadata(ctx, uid)
}

func (m *mockMetadata) DeleteDocument(_ context.Context, uid string) error {
	if _, ok := m.records[uid]; !ok {
		return domain.ErrDocumentNotFound
	}
	m.deleted = append(m.deleted, uid)
	return nil
}

func (m *mockMetadata) SearchMetadata(_ context.Context, _ string, _ int) ([]domain.Metadata, error) {
	return nil, nil
}

type mockContent struct{}

func (mockContent) GetMarkdown(_ context.Context, uid string) (string, error) {
	if uid != "uid-1" {
		return "", domain.ErrDocumentNotFound
	}
	return "# Report\n\nQuarterly numbers.", nil
}

func (mockContent) GetRawContent(_ context.Context, uid string) (*driving.RawContent, error) {
	if uid != "uid-1" {
		return nil, domain.ErrDocumentNotFound
	}
	return &driving.RawContent{Filename: "report.pdf", Body: io.NopCloser(strings.NewReader("%PDF-1.4"))}, nil
}

type mockSearch struct {
	query string
	k     int
}

func (m *mockSearch) Search(_ context.Context, query string, k int) ([]domain.SearchHit, error) {
	m.query = query
	m.k = k
	if query == "nothing" {
		return []domain.SearchHit{}, nil
	}
	return []domain.SearchHit{{
		Chunk: domain.Chunk{
			ID:          "uid-1-0",
			DocumentUID: "uid-1",
			Content:     "Quarterly   numbers\nare up.",
			Metadata:    domain.Metadata{domain.KeyDocumentName: "report.pdf"},
		},
		Score: 0.91,
		Rank:  1,
	}}, nil
}

type mockTabular struct {
	query domain.TabularQuery
}

func (m *mockTabular) ListDatasets(_ context.Context) ([]domain.TabularDataset, error) {
	return []domain.TabularDataset{{DocumentUID: "tab-1", Title: "sales.csv", RowCount: 2}}, nil
}

func (m *mockTabular) GetSchema(_ context.Context, uid string) (*domain.TabularSchema, error) {
	if uid != "tab-1" {
		return nil, domain.ErrDocumentNotFound
	}
	return &domain.TabularSchema{
		DocumentUID: uid,
		Columns: []domain.TabularColumn{
			{Name: "region", DType: domain.DTypeString},
			{Name: "amount", DType: domain.DTypeInteger},
		},
		RowCount: 2,
	}, nil
}

func (m *mockTabular) Query(_ context.Context, uid string, q domain.TabularQuery) (*domain.TabularResult, error) {
	m.query = q
	return &domain.TabularResult{DocumentUID: uid, Rows: []map[string]string{
		{"region": "north", "amount": "10"},
		{"region": "south", "amount": "20"},
	}}, nil
}

type mockCollections struct {
	kind    domain.CollectionKind
	created []driving.CollectionRequest
	tag     string
}

func (m *mockCollections) Kind() domain.CollectionKind { return m.kind }

func (m *mockCollections) Create(_ context.Context, req driving.CollectionRequest) (*domain.Collection, error) {
	m.created = append(m.created, req)
	c := &domain.Collection{ID: "c-1", Title: req.Title, Tag: req.Tag}
	for _, f := range req.Files {
		c.Documents = append(c.Documents, domain.CollectionDocument{ID: f.Filename, DocumentName: f.Filename, Tokens: 3})
		c.Tokens += 3
	}
	return c, nil
}

func (m *mockCollections) Update(ctx context.Context, _ string, req driving.CollectionRequest) (*domain.Collection, error) {
	return m.Create(ctx, req)
}

func (m *mockCollections) Delete(_ context.Context, id string) error {
	if id != "c-1" {
		return domain.ErrCollectionNotFound
	}
	return nil
}

func (m *mockCollections) List(_ context.Context, tag string) ([]domain.Collection, error) {
	m.tag = tag
	return []domain.Collection{{ID: "c-1", Title: "Onboarding", Tag: "hr", Tokens: 42}}, nil
}

func (m *mockCollections) Get(_ context.Context, id string) (*domain.CollectionContent, error) {
	if id != "c-1" {
		return nil, domain.ErrCollectionNotFound
	}
	return &domain.CollectionContent{
		Collection: domain.Collection{ID: "c-1", Title: "Onboarding"},
		Content:    "\n\n# welcome.md\n\nHello team",
	}, nil
}

func (m *mockCollections) DeleteDocument(_ context.Context, id, _ string) (*domain.Collection, error) {
	return &domain.Collection{ID: id}, nil
}

func (m *mockCollections) MaxTokens() int { return 1000 }

type mockSettings struct {
	cfg         domain.Config
	validateErr error
	embedding   domain.AIProvider
	apiKey      string
}

func (m *mockSettings) Get() (domain.Config, error) { return m.cfg, nil }
func (m *mockSettings) Path() string                { return "/tmp/kf/config.toml" }

func (m *mockSettings) SetEmbeddingProvider(p domain.AIProvider, _, apiKey string) error {
	if p.RequiresAPIKey() && apiKey == "" {
		return domain.ErrInvalidRequest
	}
	m.embedding = p
	m.apiKey = apiKey
	return nil
}

func (m *mockSettings) SetVisionProvider(domain.AIProvider, string, string) error { return nil }

func (m *mockSettings) SetMetadataBackend(b domain.MetadataBackend) error {
	m.cfg.Storage.MetadataBackend = b
	return nil
}

func (m *mockSettings) SetVectorStore(b domain.VectorBackend, dsn string) error {
	m.cfg.VectorStore.Type = b
	m.cfg.VectorStore.DSN = dsn
	return nil
}

func (m *mockSettings) Validate(context.Context) error { return m.validateErr }

// testServices are the mocks installed by setupTestServices.
type testServices struct {
	ingestion *mockIngestion
	metadata  *mockMetadata
	search    *mockSearch
	tabular   *mockTabular
	contexts  *mockCollections
	profiles  *mockCollections
	settings  *mockSettings
}

// setupTestServices installs mock services and returns a cleanup function
// restoring the previous ones.
func setupTestServices(t *testing.T) (*testServices, func()) {
	t.Helper()
	previous := Services{
		Ingestion:  ingestionService,
		Metadata:   metadataService,
		Content:    contentService,
		Search:     searchService,
		Tabular:    tabularService,
		Contexts:   contextService,
		Profiles:   profileService,
		Settings:   settingsService,
		StagingDir: stagingDir,
	}

	ts := &testServices{
		ingestion: &mockIngestion{},
		metadata:  newMockMetadata(),
		search:    &mockSearch{},
		tabular:   &mockTabular{},
		contexts:  &mockCollections{kind: domain.CollectionKnowledgeContext},
		profiles:  &mockCollections{kind: domain.CollectionChatProfile},
		settings:  &mockSettings{cfg: domain.DefaultConfig()},
	}
	SetServices(Services{
		Ingestion:  ts.ingestion,
		Metadata:   ts.metadata,
		Content:    mockContent{},
		Search:     ts.search,
		Tabular:    ts.tabular,
		Contexts:   ts.contexts,
		Profiles:   ts.profiles,
		Settings:   ts.settings,
		StagingDir: t.TempDir(),
	})
	return ts, func() { SetServices(previous) }
}

// resetFlags restores every package-level flag variable to its default.
func resetFlags() {
	ingestMetadata, ingestAgent, ingestJSON = "", "", false
	metadataFilters, metadataJSON = nil, false
	contentOutput = ""
	searchLimit, searchJSON = domain.DefaultSearchLimit, false
	tabularColumns, tabularFilters, tabularLimit, tabularJSON = nil, nil, domain.DefaultTabularLimit, false
	configModel, configAPIKey, configDSN = "", "", ""
	serveAddr, serveMCP = "", false
	watchAgent, watchScan, watchDebounce = "", false, watcher.DefaultDebounce
	for _, f := range collectionFlagSets {
		*f = collectionFlags{}
	}
}

// execute runs the root command with args and returns its combined output.
func execute(args ...string) (string, error) {
	resetFlags()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}
