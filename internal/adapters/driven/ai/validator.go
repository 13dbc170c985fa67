package ai

import (
	"context"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator validates AI provider configurations.
type ConfigValidator struct{}

// NewConfigValidator creates a new AI config validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// ValidateEmbedding builds the embedding service and pings it.
// An unconfigured provider is valid.
func (v *ConfigValidator) ValidateEmbedding(ctx context.Context, cfg domain.EmbeddingConfig) error {
	svc, err := CreateAndValidateEmbeddingService(ctx, cfg)
	if err != nil {
		return err
	}
	if svc != nil {
		svc.Close()
	}
	return nil
}

// ValidateVision checks that a vision model can be built from cfg.
// No request is sent: a description call costs a full model inference.
func (v *ConfigValidator) ValidateVision(ctx context.Context, cfg domain.VisionConfig) error {
	model, err := CreateVisionModel(ctx, cfg)
	if err != nil {
		return err
	}
	if model != nil {
		return model.Close()
	}
	return nil
}
