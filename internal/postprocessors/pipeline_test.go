package postprocessors

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
)

// stubStage returns fixed chunks, or passes its input through when chunks is nil.
type stubStage struct {
	name   string
	chunks []domain.Chunk
	err    error
	calls  int
}

func (s *stubStage) Name() string { return s.name }

func (s *stubStage) Process(_ context.Context, _ *domain.Artifact, chunks []domain.Chunk) ([]domain.Chunk, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.chunks != nil {
		return s.chunks, nil
	}
	return chunks, nil
}

func testArtifact() *domain.Artifact {
	return &domain.Artifact{
		DocumentUID: "doc-1",
		Kind:        domain.ArtifactMarkdown,
		Content:     "test content",
	}
}

func TestPipeline_Stages(t *testing.T) {
	p := NewPipeline(&stubStage{name: "chunker"})
	p.Add(&stubStage{name: "embedder"})
	assert.Equal(t, []string{"chunker", "embedder"}, p.Stages())
}

func TestPipeline_Process(t *testing.T) {
	tests := []struct {
		name   string
		stages []*stubStage
		want   []domain.Chunk
	}{
		{
			name: "empty pipeline",
			want: nil,
		},
		{
			name: "later stage replaces chunks",
			stages: []*stubStage{
				{name: "first", chunks: []domain.Chunk{{ID: "c1", Content: "first"}}},
				{name: "second", chunks: []domain.Chunk{{ID: "c1", Content: "edited"}, {ID: "c2", Content: "added"}}},
				{name: "passthrough"},
			},
			want: []domain.Chunk{
				{ID: "c1", DocumentUID: "doc-1", Content: "edited"},
				{ID: "c2", DocumentUID: "doc-1", Content: "added"},
			},
		},
		{
			name: "existing document UID kept",
			stages: []*stubStage{
				{name: "first", chunks: []domain.Chunk{{ID: "c1", DocumentUID: "other"}}},
			},
			want: []domain.Chunk{{ID: "c1", DocumentUID: "other"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPipeline()
			for _, s := range tt.stages {
				p.Add(s)
			}
			chunks, err := p.Process(context.Background(), testArtifact())
			require.NoError(t, err)
			assert.Equal(t, tt.want, chunks)
		})
	}
}

func TestPipeline_Process_NilArtifact(t *testing.T) {
	_, err := NewPipeline().Process(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestPipeline_Process_StageError(t *testing.T) {
	boom := errors.New("stage failed")
	after := &stubStage{name: "after"}
	p := NewPipeline(&stubStage{name: "failing", err: boom}, after)

	_, err := p.Process(context.Background(), testArtifact())

	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, domain.ErrProcessingFailure)
	assert.Contains(t, err.Error(), "failing")
	assert.Zero(t, after.calls)
}

func TestPipeline_Process_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stage := &stubStage{name: "chunker"}

	_, err := NewPipeline(stage).Process(ctx, testArtifact())

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stage.calls)
}
