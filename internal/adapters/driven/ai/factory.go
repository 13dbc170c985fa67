// Package ai provides factory functions for creating AI service adapters
// from the application configuration.
package ai

import (
	"context"
	"fmt"
	"time"

	geminiembed "github.com/custodia-labs/knowledge-flow/internal/adapters/driven/embedding/gemini"
	ollamaembed "github.com/custodia-labs/knowledge-flow/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/knowledge-flow/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/knowledge-flow/internal/adapters/driven/vision"
	anthropicvision "github.com/custodia-labs/knowledge-flow/internal/adapters/driven/vision/anthropic"
	geminivision "github.com/custodia-labs/knowledge-flow/internal/adapters/driven/vision/gemini"
	ollamavision "github.com/custodia-labs/knowledge-flow/internal/adapters/driven/vision/ollama"
	openaivision "github.com/custodia-labs/knowledge-flow/internal/adapters/driven/vision/openai"
	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
	"github.com/custodia-labs/knowledge-flow/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	Describer        *vision.Describer
	Warnings         []string // Non-fatal issues that caused fallback.
}

// ImageDescriber returns the describer as a port, or nil when vision is off.
// A typed nil must not leak into the processors.
func (r *InitResult) ImageDescriber() driven.ImageDescriber {
	if r.Describer == nil {
		return nil
	}
	return r.Describer
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.Describer != nil {
		r.Describer.Close()
	}
}

// Init builds every configured AI service. An embedding provider that is
// configured but unreachable is dropped with a warning, leaving ingestion
// to chunk without indexing. Vision failures fall back the same way.
func Init(ctx context.Context, cfg domain.Config, prompts driven.PromptStore) *InitResult {
	result := &InitResult{}

	embed, err := CreateAndValidateEmbeddingService(ctx, cfg.Embedding)
	if err != nil {
		logger.Warn("%v", err)
		result.Warnings = append(result.Warnings, err.Error())
	}
	result.EmbeddingService = embed

	describer, err := CreateDescriber(ctx, cfg.Vision, prompts)
	if err != nil {
		logger.Warn("image describer disabled: %v", err)
		result.Warnings = append(result.Warnings, err.Error())
	}
	result.Describer = describer

	return result
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns nil without error when embeddings are not configured.
func CreateAndValidateEmbeddingService(ctx context.Context, cfg domain.EmbeddingConfig) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrEmbeddingUnavailable, err)
	}
	return svc, nil
}

// CreateEmbeddingService creates the appropriate embedding service based on configuration.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(ctx context.Context, cfg domain.EmbeddingConfig) (driven.EmbeddingService, error) {
	if !cfg.IsConfigured() {
		return nil, nil
	}

	switch cfg.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		})

	case domain.AIProviderAzureOpenAI:
		apiVersion := cfg.APIVersion
		if apiVersion == "" {
			apiVersion = defaultAzureAPIVersion
		}
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			APIVersion: apiVersion,
		})

	case domain.AIProviderGemini:
		return geminiembed.NewEmbeddingService(ctx, geminiembed.Config{
			APIKey: cfg.APIKey,
			Model:  cfg.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

// defaultAzureAPIVersion is used when an Azure deployment sets no api-version.
const defaultAzureAPIVersion = "2024-02-01"

// CreateVisionModel creates the vision model for the configured provider.
// Returns nil if vision is not configured.
func CreateVisionModel(ctx context.Context, cfg domain.VisionConfig) (driven.VisionModel, error) {
	if !cfg.IsConfigured() {
		return nil, nil
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	switch cfg.Provider {
	case domain.AIProviderOllama:
		return ollamavision.NewVisionModel(ollamavision.Config{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: timeout,
		}), nil

	case domain.AIProviderOpenAI:
		return openaivision.NewVisionModel(openaivision.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: timeout,
		})

	case domain.AIProviderAnthropic:
		return anthropicvision.NewVisionModel(anthropicvision.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: timeout,
		})

	case domain.AIProviderGemini:
		return geminivision.NewVisionModel(ctx, geminivision.Config{
			APIKey: cfg.APIKey,
			Model:  cfg.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported vision provider: %s", cfg.Provider)
	}
}

// CreateDescriber wraps the configured vision model as an image describer.
// Returns nil if vision is not configured; processors then emit the
// fallback description for every picture.
func CreateDescriber(ctx context.Context, cfg domain.VisionConfig, prompts driven.PromptStore) (*vision.Describer, error) {
	model, err := CreateVisionModel(ctx, cfg)
	if err != nil || model == nil {
		return nil, err
	}

	return vision.NewDescriber(model,
		vision.WithPromptStore(prompts),
		vision.WithTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second),
		vision.WithRateLimit(cfg.RatePerSecond),
	), nil
}
