package driven

import (
	"context"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
)

// PostProcessor turns a converted artifact into indexable chunks.
// PostProcessors are chained in a pipeline (chunking, then embedding).
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process takes an artifact and returns chunks.
	// If the processor creates chunks (e.g., chunker), it receives nil and returns new chunks.
	// If the processor enriches chunks (e.g., embedder), it receives and returns chunks.
	Process(ctx context.Context, artifact *domain.Artifact, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the artifact through all processors in order.
	// Returns the final chunks after all processing.
	Process(ctx context.Context, artifact *domain.Artifact) ([]domain.Chunk, error)
}
