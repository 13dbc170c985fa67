package driving

import (
	"context"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
)

// SettingsService manages the application configuration.
type SettingsService interface {
	// Get returns the effective configuration.
	Get() (domain.Config, error)

	// Path returns where the configuration is stored.
	Path() string

	// SetEmbeddingProvider configures the embedding provider and saves.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error

	// SetVisionProvider configures the image description provider and saves.
	SetVisionProvider(provider domain.AIProvider, model, apiKey string) error

	// SetMetadataBackend selects where metadata records are stored and saves.
	SetMetadataBackend(backend domain.MetadataBackend) error

	// SetVectorStore selects the vector index backend and saves.
	SetVectorStore(backend domain.VectorBackend, dsn string) error

	// Validate checks backend selections and pings configured providers.
	// Every problem found is reported, joined into one error.
	Validate(ctx context.Context) error
}
