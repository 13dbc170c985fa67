// Package postprocessors turns converted artifacts into indexable chunks.
// A Pipeline chains PostProcessors: the first one creates chunks from the
// artifact and later ones enrich them, for example with embeddings.
package postprocessors

import (
	"context"
	"fmt"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
	"github.com/custodia-labs/knowledge-flow/internal/logger"
)

// Ensure Pipeline implements the interface.
var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline runs its stages in order, each receiving the previous stage's chunks.
type Pipeline struct {
	stages []driven.PostProcessor
}

// NewPipeline creates a pipeline of the given stages.
func NewPipeline(stages ...driven.PostProcessor) *Pipeline {
	return &Pipeline{stages: stages}
}

// Process runs artifact through every stage. The first stage receives nil
// chunks. Chunks leaving the pipeline always carry the artifact's document UID.
func (p *Pipeline) Process(ctx context.Context, artifact *domain.Artifact) ([]domain.Chunk, error) {
	if artifact == nil {
		return nil, fmt.Errorf("%w: nil artifact", domain.ErrInvalidRequest)
	}

	var chunks []domain.Chunk
	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		chunks, err = stage.Process(ctx, artifact, chunks)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrProcessingFailure, stage.Name(), err)
		}
		logger.Debug("postprocess %s: %s produced %d chunks", artifact.DocumentUID, stage.Name(), len(chunks))
	}

	for i := range chunks {
		if chunks[i].DocumentUID == "" {
			chunks[i].DocumentUID = artifact.DocumentUID
		}
	}
	return chunks, nil
}

// Add appends a stage.
func (p *Pipeline) Add(stage driven.PostProcessor) {
	p.stages = append(p.stages, stage)
}

// Stages returns the stage names in execution order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}
