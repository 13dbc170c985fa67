// Package embedder attaches vector embeddings to chunks. Chunks are sent
// to the embedding service in batches which run concurrently.
package embedder

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
)

// Defaults for batching.
const (
	DefaultBatchSize   = 32
	DefaultConcurrency = 4
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// Processor embeds chunk content.
type Processor struct {
	service     driven.EmbeddingService
	batchSize   int
	concurrency int
}

// Option configures the embedder.
type Option func(*Processor)

// WithBatchSize sets the number of texts per embedding request.
func WithBatchSize(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithConcurrency bounds the number of in-flight batches.
func WithConcurrency(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// New creates an embedder backed by service.
func New(service driven.EmbeddingService, opts ...Option) *Processor {
	p := &Processor{
		service:     service,
		batchSize:   DefaultBatchSize,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "embedder"
}

// Process sets Embedding on every chunk. The first failing batch cancels
// the rest and its error is returned.
func (p *Processor) Process(ctx context.Context, _ *domain.Artifact, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if len(chunks) == 0 {
		return chunks, nil
	}

	out := make([]domain.Chunk, len(chunks))
	copy(out, chunks)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for start := 0; start < len(out); start += p.batchSize {
		end := min(start+p.batchSize, len(out))
		g.Go(func() error {
			texts := make([]string, 0, end-start)
			for i := start; i < end; i++ {
				texts = append(texts, out[i].Content)
			}
			vectors, err := p.service.EmbedBatch(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed chunks %d-%d: %w", start, end-1, err)
			}
			if len(vectors) != len(texts) {
				return fmt.Errorf("embed chunks %d-%d: got %d vectors for %d texts", start, end-1, len(vectors), len(texts))
			}
			for i, v := range vectors {
				out[start+i].Embedding = v
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
