package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driven"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driving"
	"github.com/custodia-labs/knowledge-flow/internal/logger"
)

// Ensure InputProcessorService implements the interface.
var _ driving.InputProcessor = (*InputProcessorService)(nil)

// InputProcessorService validates uploads, extracts their metadata and
// converts them to markdown or a table.
type InputProcessorService struct {
	registry driven.ProcessorRegistry
}

// NewInputProcessorService creates an input stage backed by registry.
func NewInputProcessorService(registry driven.ProcessorRegistry) *InputProcessorService {
	return &InputProcessorService{registry: registry}
}

// ExtractMetadata returns the processor metadata of path merged with the
// common document fields and the caller's seed.
//
// The seed may carry document_name (the uploaded file name, defaulting to
// the base name of path), agent_name, front_metadata (flattened into the
// record after sanitising) and any other field, copied as-is.
// An invalid file yields a record without a document UID, which fails
// with domain.ErrMissingDocumentUID.
func (s *InputProcessorService) ExtractMetadata(
	ctx context.Context, path string, seed domain.Metadata,
) (domain.Metadata, error) {
	proc, err := s.processorFor(path)
	if err != nil {
		return nil, err
	}

	name := seed.DocumentName()
	if name == "" {
		name = filepath.Base(path)
	}

	md := s.baseMetadata(ctx, proc, path, name, seed)
	if md.DocumentUID() == "" {
		reason, _ := md[domain.KeyError].(string)
		return nil, fmt.Errorf("%w: %s: %s", domain.ErrMissingDocumentUID, name, reason)
	}

	logger.Debug("Extracted metadata for %s (uid %s)", name, md.DocumentUID())
	return md, nil
}

func (s *InputProcessorService) baseMetadata(
	ctx context.Context, proc driven.Processor, path, name string, seed domain.Metadata,
) domain.Metadata {
	if !proc.CheckFileValidity(ctx, path) {
		return domain.Metadata{
			domain.KeyDocumentName: name,
			domain.KeyError:        domain.ErrInvalidFile.Error(),
		}
	}

	extracted, err := proc.ExtractFileMetadata(ctx, path)
	if err != nil {
		return domain.Metadata{
			domain.KeyDocumentName: name,
			domain.KeyError:        err.Error(),
		}
	}

	md := domain.Metadata{}
	for k, v := range extracted {
		md[k] = v
	}
	for k, v := range seed {
		if k == domain.KeyFrontMetadata {
			continue
		}
		md[k] = v
	}
	if front, ok := seed[domain.KeyFrontMetadata].(map[string]any); ok {
		for k, v := range domain.SanitizeFrontMetadata(front) {
			md[k] = v
		}
	}

	agent, _ := seed[domain.KeyAgentName].(string)
	md[domain.KeyDocumentName] = name
	md[domain.KeySuffix] = suffixOf(path)
	md[domain.KeyDateAdded] = domain.UTCNow()
	md[domain.KeyRetrievable] = true
	md[domain.KeyDocumentUID] = domain.DeriveDocumentUID(agent, name)
	return md
}

// Process validates inputFile and writes its canonical conversion under
// workDir/output/: output.md for markdown processors, table.csv for
// tabular ones.
func (s *InputProcessorService) Process(
	ctx context.Context, workDir, inputFile string, metadata domain.Metadata,
) error {
	proc, err := s.processorFor(inputFile)
	if err != nil {
		return err
	}
	if !proc.CheckFileValidity(ctx, inputFile) {
		return fmt.Errorf("%w: %s", domain.ErrInvalidFile, filepath.Base(inputFile))
	}

	outDir := filepath.Join(workDir, domain.OutputDirName)
	if err := os.MkdirAll(outDir, 0700); err != nil {
		return fmt.Errorf("%w: create output dir: %w", domain.ErrStorageFailure, err)
	}

	switch conv := proc.(type) {
	case driven.MarkdownConverter:
		md, err := conv.ConvertToMarkdown(ctx, inputFile)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", domain.ErrProcessingFailure, proc.Name(), err)
		}
		return writeArtifact(filepath.Join(outDir, domain.MarkdownArtifact), []byte(md))

	case driven.TableConverter:
		table, err := conv.ConvertToTable(ctx, inputFile)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", domain.ErrProcessingFailure, proc.Name(), err)
		}
		data, err := encodeTable(table)
		if err != nil {
			return fmt.Errorf("%w: encode table: %w", domain.ErrProcessingFailure, err)
		}
		return writeArtifact(filepath.Join(outDir, domain.TableArtifact), data)

	default:
		return fmt.Errorf("%w: %s", domain.ErrUnknownProcessorType, proc.Name())
	}
}

func (s *InputProcessorService) processorFor(path string) (driven.Processor, error) {
	suffix := suffixOf(path)
	proc, err := s.registry.Get(suffix)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", suffix, err)
	}
	return proc, nil
}

func suffixOf(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

func writeArtifact(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("%w: write %s: %w", domain.ErrStorageFailure, filepath.Base(path), err)
	}
	return nil
}

func encodeTable(t *domain.Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
