package services

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driving"
	"github.com/custodia-labs/knowledge-flow/internal/logger"
)

// Ensure IngestionService implements the interface.
var _ driving.IngestionService = (*IngestionService)(nil)

// IngestionService drives uploaded files through the five ingestion steps
// and reports progress as a stream of events.
//
// Files are processed one at a time in upload order. A failing step stops
// the remaining steps of its file only.
type IngestionService struct {
	input         driving.InputProcessor
	output        driving.OutputProcessor
	metadataStore driven.MetadataStore
	contentStore  driven.ContentStore
	vectorIndex   driven.VectorIndex
	locks         *KeyLock
}

// NewIngestionService creates a new ingestion orchestrator.
// vectorIndex is optional; when set, vectors of a replaced document are
// removed before it is re-ingested. locks is shared with the metadata
// service so that deletion and ingestion of one document never interleave.
func NewIngestionService(
	input driving.InputProcessor,
	output driving.OutputProcessor,
	metadataStore driven.MetadataStore,
	contentStore driven.ContentStore,
	vectorIndex driven.VectorIndex,
	locks *KeyLock,
) *IngestionService {
	if locks == nil {
		locks = NewKeyLock()
	}
	return &IngestionService{
		input:         input,
		output:        output,
		metadataStore: metadataStore,
		contentStore:  contentStore,
		vectorIndex:   vectorIndex,
		locks:         locks,
	}
}

// Ingest processes files in order. Every file's events follow the fixed
// step order and the stream ends with a done event whose status is
// success if at least one file completed all steps.
func (s *IngestionService) Ingest(
	ctx context.Context, files []domain.IngestFile, seed domain.Metadata,
) <-chan domain.ProgressEvent {
	events := make(chan domain.ProgressEvent, len(domain.IngestionSteps()))

	go func() {
		defer close(events)

		var agg domain.ProgressAggregator
		emit := func(e domain.ProgressEvent) bool {
			agg.Observe(e)
			select {
			case events <- e:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for _, f := range files {
			if ctx.Err() != nil {
				logger.Warn("Ingestion cancelled before %s", f.Filename)
				return
			}
			s.ingestFile(ctx, f, seed, emit)
		}

		logger.Info("Ingestion finished: %d succeeded, %d failed", agg.Succeeded(), agg.Failed())
		emit(domain.DoneEvent(agg.Success()))
	}()

	return events
}

// fileRun carries the state of one file through the steps.
type fileRun struct {
	file     domain.IngestFile
	workDir  string
	metadata domain.Metadata
	status   domain.Status
}

func (s *IngestionService) ingestFile(
	ctx context.Context, f domain.IngestFile, seed domain.Metadata, emit func(domain.ProgressEvent) bool,
) {
	run := &fileRun{file: f}

	workDir, err := stagedWorkDir(f.Path)
	if err != nil {
		s.fail(emit, run, domain.StepMetadataExtraction, err)
		return
	}
	run.workDir = workDir

	md, err := s.input.ExtractMetadata(ctx, f.Path, fileSeed(seed, f.Filename))
	if err != nil {
		s.fail(emit, run, domain.StepMetadataExtraction, err)
		return
	}
	run.metadata = md
	uid := md.DocumentUID()

	unlock := s.locks.Lock(uid)
	defer unlock()

	if err := s.removeExisting(ctx, uid); err != nil {
		s.fail(emit, run, domain.StepMetadataExtraction, err)
		return
	}
	if !s.succeed(emit, run, domain.StepMetadataExtraction) {
		return
	}

	steps := []struct {
		name string
		fn   func(context.Context, *fileRun) error
	}{
		{domain.StepKnowledgeExtraction, s.extractKnowledge},
		{domain.StepPostProcessing, s.postProcess},
		{domain.StepMetadataSaving, s.saveMetadata},
		{domain.StepRawContentSaving, s.saveContent},
	}
	for _, step := range steps {
		run.status = domain.StatusSuccess
		if err := step.fn(ctx, run); err != nil {
			s.fail(emit, run, step.name, err)
			return
		}
		if !s.succeed(emit, run, step.name) {
			return
		}
	}
}

// removeExisting deletes a previous ingestion of the same document.
func (s *IngestionService) removeExisting(ctx context.Context, uid string) error {
	existing, err := s.metadataStore.GetMetadataByUID(ctx, uid)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}

	logger.Info("Replacing previously ingested document %s", uid)
	if err := s.metadataStore.DeleteMetadata(ctx, existing); err != nil {
		return fmt.Errorf("delete previous metadata: %w", err)
	}
	if err := s.contentStore.DeleteContent(ctx, uid); err != nil {
		return fmt.Errorf("delete previous content: %w", err)
	}
	if s.vectorIndex != nil {
		if err := s.vectorIndex.DeleteDocument(ctx, uid); err != nil {
			return fmt.Errorf("%w: delete previous vectors: %w", domain.ErrStorageFailure, err)
		}
	}
	return nil
}

func (s *IngestionService) extractKnowledge(ctx context.Context, run *fileRun) error {
	return s.input.Process(ctx, run.workDir, run.file.Path, run.metadata)
}

func (s *IngestionService) postProcess(ctx context.Context, run *fileRun) error {
	resp, err := s.output.Process(ctx, run.workDir, run.file.Path, run.metadata)
	if err != nil {
		return err
	}
	if resp.Metadata != nil {
		run.metadata = resp.Metadata
	}
	run.status = resp.Status
	logger.Debug("%s: %d chunks, %d vectors", run.file.Filename, resp.Chunks, resp.Vectors)
	return nil
}

// saveMetadata persists the record. On failure the vectors written during
// post processing are removed so the document is not searchable.
func (s *IngestionService) saveMetadata(ctx context.Context, run *fileRun) error {
	if err := s.metadataStore.SaveMetadata(ctx, run.metadata); err != nil {
		s.rollback(ctx, run, false)
		return err
	}
	return nil
}

// saveContent persists the working directory. On failure the metadata and
// vectors of the document are removed again so nothing is left without
// content.
func (s *IngestionService) saveContent(ctx context.Context, run *fileRun) error {
	err := s.contentStore.SaveContent(ctx, run.metadata.DocumentUID(), run.workDir)
	if err == nil {
		return nil
	}
	s.rollback(ctx, run, true)
	return err
}

// rollback undoes the persisted side effects of a file whose ingestion
// failed after post processing. Rollback errors are logged, the step error
// is what gets reported.
func (s *IngestionService) rollback(ctx context.Context, run *fileRun, metadataSaved bool) {
	uid := run.metadata.DocumentUID()
	if s.vectorIndex != nil {
		if err := s.vectorIndex.DeleteDocument(ctx, uid); err != nil {
			logger.Warn("Failed to roll back vectors of %s: %v", uid, err)
		}
	}
	if metadataSaved {
		if err := s.metadataStore.DeleteMetadata(ctx, run.metadata); err != nil {
			logger.Warn("Failed to roll back metadata of %s: %v", uid, err)
		}
	}
}

func (s *IngestionService) succeed(emit func(domain.ProgressEvent) bool, run *fileRun, step string) bool {
	status := run.status
	if status == "" {
		status = domain.StatusSuccess
	}
	logger.Info("%s: %s %s", run.file.Filename, step, status)
	return emit(domain.ProgressEvent{
		Step:        step,
		Filename:    run.file.Filename,
		Status:      status,
		DocumentUID: run.metadata.DocumentUID(),
	})
}

func (s *IngestionService) fail(emit func(domain.ProgressEvent) bool, run *fileRun, step string, err error) {
	logger.Error("%s: %s failed: %v", run.file.Filename, step, err)
	emit(domain.ProgressEvent{
		Step:        step,
		Filename:    run.file.Filename,
		Status:      domain.StatusError,
		DocumentUID: run.metadata.DocumentUID(),
		Error:       fmt.Sprintf("%s: %v", domain.KindOf(err), err),
	})
}

// fileSeed returns the caller seed with the uploaded file name set.
func fileSeed(seed domain.Metadata, filename string) domain.Metadata {
	out := seed.Clone()
	if out == nil {
		out = domain.Metadata{}
	}
	out[domain.KeyDocumentName] = filename
	return out
}

// stagedWorkDir returns the working directory of a file laid out by
// StageFile as {workdir}/input/{filename}.
func stagedWorkDir(path string) (string, error) {
	inputDir := filepath.Dir(path)
	if filepath.Base(inputDir) != domain.InputDirName {
		return "", fmt.Errorf("%w: %s is not inside a staged %s directory",
			domain.ErrInvalidRequest, path, domain.InputDirName)
	}
	return filepath.Dir(inputDir), nil
}
