package driven

import (
	"context"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
)

// AIConfigValidator validates AI provider configurations.
// Implementations verify that configurations are usable before the
// server starts relying on them.
type AIConfigValidator interface {
	// ValidateEmbedding validates an embedding configuration by pinging the provider.
	// Returns nil if configuration is valid or not configured.
	ValidateEmbedding(ctx context.Context, cfg domain.EmbeddingConfig) error

	// ValidateVision validates a vision configuration by building its model.
	// Returns nil if configuration is valid or not configured.
	ValidateVision(ctx context.Context, cfg domain.VisionConfig) error
}
