// Package app assembles the stores, AI adapters and services selected by
// the configuration into one ready-to-use application.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/knowledge-flow/internal/adapters/driven/ai"
	"github.com/custodia-labs/knowledge-flow/internal/adapters/driven/config/file"
	"github.com/custodia-labs/knowledge-flow/internal/adapters/driven/storage/badger"
	"github.com/custodia-labs/knowledge-flow/internal/adapters/driven/storage/local"
	"github.com/custodia-labs/knowledge-flow/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/knowledge-flow/internal/adapters/driven/storage/pgvector"
	"github.com/custodia-labs/knowledge-flow/internal/adapters/driven/storage/s3"
	"github.com/custodia-labs/knowledge-flow/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driving"
	"github.com/custodia-labs/knowledge-flow/internal/core/services"
	"github.com/custodia-labs/knowledge-flow/internal/logger"
	"github.com/custodia-labs/knowledge-flow/internal/postprocessors"
	"github.com/custodia-labs/knowledge-flow/internal/processors"
)

// Directory names under the data directory. Storage locations come
// from the configuration, which places them there by default.
const (
	stagingDirName = "staging"
	promptDirName  = "prompts"
)

// App holds the wired services.
type App struct {
	Config     domain.Config
	StagingDir string

	Settings  driving.SettingsService
	Ingestion driving.IngestionService
	Metadata  driving.MetadataService
	Content   driving.ContentService
	Search    driving.SearchService
	Tabular   driving.TabularService
	Contexts  driving.CollectionService
	Profiles  driving.CollectionService

	// Warnings lists non-fatal problems met while wiring, such as an AI
	// provider that could not be reached.
	Warnings []string

	closers []func() error
}

// New loads the configuration from dataDir and wires every component.
// An empty dataDir selects ~/.knowledge-flow.
func New(ctx context.Context, dataDir string) (*App, error) {
	if dataDir == "" {
		dir, err := file.DefaultDir()
		if err != nil {
			return nil, err
		}
		dataDir = dir
	}

	configStore, err := file.NewConfigStore(dataDir)
	if err != nil {
		return nil, err
	}
	cfg, err := configStore.Load()
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:     cfg,
		StagingDir: filepath.Join(dataDir, stagingDirName),
		Settings:   services.NewSettingsService(configStore, ai.NewConfigValidator()),
	}
	if err := a.wire(ctx, dataDir); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context, dataDir string) error {
	cfg := a.Config
	logger.Section("Wiring")

	if err := os.MkdirAll(a.StagingDir, 0700); err != nil {
		return fmt.Errorf("%w: create staging dir: %w", domain.ErrStorageFailure, err)
	}

	prompts, err := file.NewPromptStore(filepath.Join(dataDir, promptDirName))
	if err != nil {
		return err
	}
	aiResult := ai.Init(ctx, cfg, prompts)
	a.closers = append(a.closers, func() error { aiResult.Close(); return nil })
	a.Warnings = append(a.Warnings, aiResult.Warnings...)
	for _, w := range aiResult.Warnings {
		logger.Warn("%s", w)
	}

	var s3API s3.API
	if cfg.Storage.ContentBackend == domain.ContentBackendS3 || cfg.Storage.CollectionBackend == domain.ContentBackendS3 {
		client, err := s3.NewClient(ctx, cfg.S3)
		if err != nil {
			return err
		}
		s3API = client
	}

	contentStore, err := newContentStore(ctx, cfg, s3API)
	if err != nil {
		return err
	}

	// Metadata and vectors share one database when they point at the
	// same directory.
	sqliteStores := make(map[string]*sqlite.Store)
	openSQLite := func(dir string) (*sqlite.Store, error) {
		if st, ok := sqliteStores[dir]; ok {
			return st, nil
		}
		st, err := sqlite.NewStore(dir)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, st.Close)
		sqliteStores[dir] = st
		return st, nil
	}

	metadataStore, err := newMetadataStore(cfg, openSQLite)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, metadataStore.Close)

	vectorIndex, err := newVectorIndex(ctx, cfg, aiResult.EmbeddingService, openSQLite)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, vectorIndex.Close)

	pipelines, err := postprocessors.DefaultPipelines(cfg.Chunking, aiResult.EmbeddingService, cfg.Embedding.BatchSize)
	if err != nil {
		return err
	}

	locks := services.NewKeyLock()
	input := services.NewInputProcessorService(processors.NewDefaultRegistry(aiResult.ImageDescriber()))
	output := services.NewOutputProcessorService(pipelines, vectorIndex, aiResult.EmbeddingService)

	a.Ingestion = services.NewIngestionService(input, output, metadataStore, contentStore, vectorIndex, locks)
	a.Metadata = services.NewMetadataService(metadataStore, contentStore, vectorIndex, locks)
	a.Content = services.NewContentService(contentStore, metadataStore)
	a.Tabular = services.NewTabularService(contentStore, metadataStore)
	a.Search = services.NewSearchService(vectorIndex, aiResult.EmbeddingService, metadataStore)

	contexts, err := newCollectionStore(ctx, cfg, s3API, domain.CollectionKnowledgeContext)
	if err != nil {
		return err
	}
	profiles, err := newCollectionStore(ctx, cfg, s3API, domain.CollectionChatProfile)
	if err != nil {
		return err
	}
	a.Contexts = services.NewCollectionService(contexts, input, cfg.Collections.MaxTokens, a.StagingDir)
	a.Profiles = services.NewCollectionService(profiles, input, cfg.Collections.MaxTokens, a.StagingDir)

	logger.Info("content=%s metadata=%s vectors=%s collections=%s",
		cfg.Storage.ContentBackend, cfg.Storage.MetadataBackend,
		cfg.VectorStore.Type, cfg.Storage.CollectionBackend)
	return nil
}

// Close releases every store and client, in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func newContentStore(ctx context.Context, cfg domain.Config, api s3.API) (driven.ContentStore, error) {
	if cfg.Storage.ContentBackend == domain.ContentBackendS3 {
		return s3.NewContentStore(ctx, api, cfg.S3.Bucket)
	}
	return local.NewContentStore(cfg.Storage.ContentRoot)
}

func newCollectionStore(
	ctx context.Context, cfg domain.Config, api s3.API, kind domain.CollectionKind,
) (driven.CollectionStore, error) {
	if cfg.Storage.CollectionBackend == domain.ContentBackendS3 {
		return s3.NewCollectionStore(ctx, api, cfg.S3.CollectionBucket, kind)
	}
	return local.NewCollectionStore(cfg.Storage.CollectionRoot, kind)
}

func newMetadataStore(cfg domain.Config, openSQLite func(string) (*sqlite.Store, error)) (driven.MetadataStore, error) {
	switch cfg.Storage.MetadataBackend {
	case domain.MetadataBackendMemory:
		return memory.NewMetadataStore(), nil
	case domain.MetadataBackendSQLite:
		st, err := openSQLite(cfg.Storage.MetadataPath)
		if err != nil {
			return nil, err
		}
		return st.MetadataStore(), nil
	case domain.MetadataBackendBadger:
		return badger.NewMetadataStore(cfg.Storage.MetadataPath)
	default:
		return local.NewMetadataStore(cfg.Storage.MetadataPath)
	}
}

func newVectorIndex(
	ctx context.Context,
	cfg domain.Config,
	embedding driven.EmbeddingService,
	openSQLite func(string) (*sqlite.Store, error),
) (driven.VectorIndex, error) {
	name := cfg.VectorStore.Index
	switch cfg.VectorStore.Type {
	case domain.VectorBackendSQLite:
		st, err := openSQLite(cfg.VectorStore.DSN)
		if err != nil {
			return nil, err
		}
		return st.VectorIndex(name), nil
	case domain.VectorBackendPGVector:
		if embedding == nil {
			return nil, fmt.Errorf("%w: pgvector needs an embedding provider to size its column", domain.ErrConfiguration)
		}
		return pgvector.NewVectorIndex(ctx, pgvector.Config{
			DSN:        cfg.VectorStore.DSN,
			Name:       name,
			Dimensions: embedding.Dimensions(),
		})
	default:
		return memory.NewVectorIndex(name), nil
	}
}
