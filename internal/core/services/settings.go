package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// SettingsService manages the application configuration.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
// aiValidator is optional; without it provider reachability is not checked.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get returns the effective configuration.
func (s *SettingsService) Get() (domain.Config, error) {
	return s.configStore.Load()
}

// Path returns where the configuration is stored.
func (s *SettingsService) Path() string {
	return s.configStore.Path()
}

// SetEmbeddingProvider configures the embedding provider.
// An empty model keeps the provider's default.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: embedding provider %q", domain.ErrUnknownBackend, provider)
	}
	if provider != domain.AIProviderNone && !provider.SupportsEmbeddings() {
		return fmt.Errorf("%w: %s has no embedding models", domain.ErrInvalidRequest, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: %s requires an API key", domain.ErrInvalidRequest, provider)
	}
	return s.update(func(cfg *domain.Config) {
		cfg.Embedding.Provider = provider
		cfg.Embedding.Model = model
		cfg.Embedding.APIKey = apiKey
	})
}

// SetVisionProvider configures the image description provider.
func (s *SettingsService) SetVisionProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() || provider == domain.AIProviderAzureOpenAI {
		return fmt.Errorf("%w: vision provider %q", domain.ErrUnknownBackend, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: %s requires an API key", domain.ErrInvalidRequest, provider)
	}
	return s.update(func(cfg *domain.Config) {
		cfg.Vision.Provider = provider
		cfg.Vision.Model = model
		cfg.Vision.APIKey = apiKey
	})
}

// SetMetadataBackend selects where metadata records are stored.
func (s *SettingsService) SetMetadataBackend(backend domain.MetadataBackend) error {
	if !backend.IsValid() {
		return fmt.Errorf("%w: metadata backend %q", domain.ErrUnknownBackend, backend)
	}
	return s.update(func(cfg *domain.Config) {
		cfg.Storage.MetadataBackend = backend
	})
}

// SetVectorStore selects the vector index backend. pgvector needs a DSN.
func (s *SettingsService) SetVectorStore(backend domain.VectorBackend, dsn string) error {
	if !backend.IsValid() {
		return fmt.Errorf("%w: vector store %q", domain.ErrUnknownBackend, backend)
	}
	if backend == domain.VectorBackendPGVector && dsn == "" {
		return fmt.Errorf("%w: pgvector requires a DSN", domain.ErrInvalidRequest)
	}
	return s.update(func(cfg *domain.Config) {
		cfg.VectorStore.Type = backend
		if dsn != "" {
			cfg.VectorStore.DSN = dsn
		}
	})
}

// Validate checks backend selections and pings configured providers.
func (s *SettingsService) Validate(ctx context.Context) error {
	cfg, err := s.configStore.Load()
	if err != nil {
		return err
	}

	var errs []error
	if cfg.VectorStore.Type == domain.VectorBackendPGVector && cfg.VectorStore.DSN == "" {
		errs = append(errs, fmt.Errorf("%w: pgvector requires a DSN", domain.ErrConfiguration))
	}
	if cfg.Storage.ContentBackend == domain.ContentBackendS3 && cfg.S3.Bucket == "" {
		errs = append(errs, fmt.Errorf("%w: s3 content backend requires a bucket", domain.ErrConfiguration))
	}
	if s.aiValidator != nil {
		if err := s.aiValidator.ValidateEmbedding(ctx, cfg.Embedding); err != nil {
			errs = append(errs, fmt.Errorf("embedding: %w", err))
		}
		if err := s.aiValidator.ValidateVision(ctx, cfg.Vision); err != nil {
			errs = append(errs, fmt.Errorf("vision: %w", err))
		}
	}
	return errors.Join(errs...)
}

// update loads, mutates, validates and saves the configuration.
func (s *SettingsService) update(mutate func(*domain.Config)) error {
	cfg, err := s.configStore.Load()
	if err != nil {
		return err
	}
	mutate(&cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	return s.configStore.Save(cfg)
}
