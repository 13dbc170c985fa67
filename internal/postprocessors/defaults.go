package postprocessors

import (
	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
	"github.com/custodia-labs/knowledge-flow/internal/postprocessors/chunker"
	"github.com/custodia-labs/knowledge-flow/internal/postprocessors/embedder"
	"github.com/custodia-labs/knowledge-flow/internal/postprocessors/tablechunker"
)

// Processor names known to the registry.
const (
	ChunkerName      = "chunker"
	TableChunkerName = "table_chunker"
	EmbedderName     = "embedder"
)

// RegisterDefaults registers all built-in processors with the registry.
// The embedder is only registered when an embedding service is available.
func RegisterDefaults(r *Registry, svc driven.EmbeddingService) {
	r.Register(ChunkerName, buildChunker)
	r.Register(TableChunkerName, buildTableChunker)
	if svc != nil {
		r.Register(EmbedderName, func(cfg map[string]any) (driven.PostProcessor, error) {
			var opts []embedder.Option
			if size := getIntFromConfig(cfg, "batch_size"); size > 0 {
				opts = append(opts, embedder.WithBatchSize(size))
			}
			return embedder.New(svc, opts...), nil
		})
	}
}

// DefaultPipelines builds the markdown and table pipelines from the
// chunking configuration. Each pipeline ends with the embedder when svc
// is non-nil.
func DefaultPipelines(
	cfg domain.ChunkingConfig, svc driven.EmbeddingService, batchSize int,
) (map[domain.ArtifactKind]driven.PostProcessorPipeline, error) {
	r := NewRegistry()
	RegisterDefaults(r, svc)

	settings := map[string]any{
		"chunk_size":     cfg.ChunkSize,
		"overlap":        cfg.ChunkOverlap,
		"rows_per_chunk": cfg.TableRowsPerChunk,
		"batch_size":     batchSize,
	}

	markdown := []string{ChunkerName}
	table := []string{TableChunkerName}
	if r.Has(EmbedderName) {
		markdown = append(markdown, EmbedderName)
		table = append(table, EmbedderName)
	}

	mp, err := r.BuildPipeline(settings, markdown...)
	if err != nil {
		return nil, err
	}
	tp, err := r.BuildPipeline(settings, table...)
	if err != nil {
		return nil, err
	}
	return map[domain.ArtifactKind]driven.PostProcessorPipeline{
		domain.ArtifactMarkdown: mp,
		domain.ArtifactTable:    tp,
	}, nil
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - chunk_size (int): Characters per chunk (default: 2000)
//   - overlap (int): Overlapping characters between chunks (default: 100)
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if cfg != nil {
		if size := getIntFromConfig(cfg, "chunk_size"); size > 0 {
			opts = append(opts, chunker.WithChunkSize(size))
		}
		if _, ok := cfg["overlap"]; ok {
			opts = append(opts, chunker.WithOverlap(getIntFromConfig(cfg, "overlap")))
		}
	}

	return chunker.New(opts...), nil
}

// buildTableChunker creates a table chunker from generic config.
// Supported config keys:
//   - rows_per_chunk (int): Data rows per chunk (default: 50)
func buildTableChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []tablechunker.Option
	if rows := getIntFromConfig(cfg, "rows_per_chunk"); rows > 0 {
		opts = append(opts, tablechunker.WithRowsPerChunk(rows))
	}
	return tablechunker.New(opts...), nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) int {
	val, ok := cfg[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
