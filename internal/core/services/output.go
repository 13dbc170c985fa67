package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driving"
	"github.com/custodia-labs/knowledge-flow/internal/logger"
)

// Ensure OutputProcessorService implements the interface.
var _ driving.OutputProcessor = (*OutputProcessorService)(nil)

// OutputProcessorService chunks and embeds converted artifacts and writes
// the result to the vector index.
type OutputProcessorService struct {
	pipelines        map[domain.ArtifactKind]driven.PostProcessorPipeline
	vectorIndex      driven.VectorIndex
	embeddingService driven.EmbeddingService
}

// NewOutputProcessorService creates an output stage with one pipeline per
// artifact kind. vectorIndex and embeddingService are optional: without
// them artifacts are still chunked but the response status is ignored.
func NewOutputProcessorService(
	pipelines map[domain.ArtifactKind]driven.PostProcessorPipeline,
	vectorIndex driven.VectorIndex,
	embeddingService driven.EmbeddingService,
) *OutputProcessorService {
	return &OutputProcessorService{
		pipelines:        pipelines,
		vectorIndex:      vectorIndex,
		embeddingService: embeddingService,
	}
}

// Process validates workDir/output/, runs its artifact through the
// matching pipeline and indexes the embedded chunks.
func (s *OutputProcessorService) Process(
	ctx context.Context, workDir, inputFile string, metadata domain.Metadata,
) (*domain.OutputProcessorResponse, error) {
	artifactPath, kind, err := locateArtifact(workDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(artifactPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read artifact: %w", domain.ErrStorageFailure, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmptyArtifact, filepath.Base(artifactPath))
	}

	md := metadata.Clone()
	if md == nil {
		md = domain.Metadata{}
	}
	uid := md.DocumentUID()
	resp := &domain.OutputProcessorResponse{Status: domain.StatusIgnored, Metadata: md}

	pipeline, ok := s.pipelines[kind]
	if !ok {
		logger.Debug("No %s pipeline configured, skipping %s", kind, filepath.Base(inputFile))
		return resp, nil
	}

	artifact := &domain.Artifact{
		DocumentUID: uid,
		Kind:        kind,
		Content:     string(data),
		Metadata:    md,
	}
	chunks, err := pipeline.Process(ctx, artifact)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrProcessingFailure, err)
	}
	resp.Chunks = len(chunks)

	if s.vectorIndex == nil || s.embeddingService == nil {
		logger.Debug("Vector indexing disabled, %d chunks not indexed", len(chunks))
		return resp, nil
	}

	embedded := make([]domain.Chunk, 0, len(chunks))
	for i := range chunks {
		if len(chunks[i].Embedding) > 0 {
			embedded = append(embedded, chunks[i])
		}
	}

	if err := s.vectorIndex.DeleteDocument(ctx, uid); err != nil {
		return nil, fmt.Errorf("%w: clear vectors: %w", domain.ErrStorageFailure, err)
	}
	if len(embedded) > 0 {
		if err := s.vectorIndex.Add(ctx, embedded); err != nil {
			return nil, fmt.Errorf("%w: index vectors: %w", domain.ErrStorageFailure, err)
		}
	}

	md[domain.KeyEmbeddingModel] = s.embeddingService.ModelName()
	md[domain.KeyVectorIndex] = s.vectorIndex.Name()
	resp.Vectors = len(embedded)
	resp.Status = domain.StatusSuccess
	logger.Debug("Indexed %d/%d chunks of %s", len(embedded), len(chunks), uid)
	return resp, nil
}

// locateArtifact checks the working directory layout and returns the
// single artifact under output/.
func locateArtifact(workDir string) (string, domain.ArtifactKind, error) {
	info, err := os.Stat(workDir)
	if err != nil || !info.IsDir() {
		return "", "", fmt.Errorf("%w: %s", domain.ErrOutputDirMissing, workDir)
	}

	outDir := filepath.Join(workDir, domain.OutputDirName)
	info, err = os.Stat(outDir)
	if err != nil || !info.IsDir() {
		return "", "", fmt.Errorf("%w: %s", domain.ErrOutputSubdirMissing, outDir)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", domain.ErrStorageFailure, err)
	}

	var files []os.DirEntry
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, e)
		}
	}
	if len(files) != 1 {
		return "", "", fmt.Errorf("%w: expected one file in output/, found %d", domain.ErrInvalidArtifact, len(files))
	}

	name := files[0].Name()
	path := filepath.Join(outDir, name)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md":
		return path, domain.ArtifactMarkdown, nil
	case ".csv":
		return path, domain.ArtifactTable, nil
	default:
		return "", "", fmt.Errorf("%w: unsupported artifact %s", domain.ErrInvalidArtifact, name)
	}
}
