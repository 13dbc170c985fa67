package driving

import (
	"context"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
)

// IngestionService runs uploaded files through the ingestion pipeline.
type IngestionService interface {
	// Ingest processes files in order and streams one event per step.
	// The channel is closed after the terminal done event. Callers must
	// drain it; cancelling ctx stops processing after the current step.
	Ingest(ctx context.Context, files []domain.IngestFile, seed domain.Metadata) <-chan domain.ProgressEvent
}

// InputProcessor is the conversion half of the pipeline, shared by
// ingestion and collections.
type InputProcessor interface {
	// ExtractMetadata resolves the processor for path and returns its
	// metadata merged with seed, the common fields and the document UID.
	ExtractMetadata(ctx context.Context, path string, seed domain.Metadata) (domain.Metadata, error)

	// Process converts inputFile into workDir/output/.
	Process(ctx context.Context, workDir, inputFile string, metadata domain.Metadata) error
}

// OutputProcessor turns the converted artifact into indexed chunks.
type OutputProcessor interface {
	// Process validates workDir/output/ and indexes its artifact.
	Process(ctx context.Context, workDir, inputFile string, metadata domain.Metadata) (*domain.OutputProcessorResponse, error)
}
