package services

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
)

// StageFile copies an upload into a fresh working directory under root,
// laid out as {workdir}/input/{filename}, and returns it ready for
// ingestion. Callers remove the working directory with CleanupStaged.
func StageFile(root, filename string, r io.Reader) (domain.IngestFile, error) {
	name := filepath.Base(filename)
	if name == "." || name == string(filepath.Separator) {
		return domain.IngestFile{}, fmt.Errorf("%w: invalid file name %q", domain.ErrInvalidRequest, filename)
	}

	workDir, err := os.MkdirTemp(root, "ingest-*")
	if err != nil {
		return domain.IngestFile{}, fmt.Errorf("%w: create work dir: %w", domain.ErrStorageFailure, err)
	}

	path, err := writeInput(workDir, name, r)
	if err != nil {
		_ = os.RemoveAll(workDir)
		return domain.IngestFile{}, err
	}
	return domain.IngestFile{Filename: name, Path: path}, nil
}

// writeInput copies r to {workDir}/input/{name}.
func writeInput(workDir, name string, r io.Reader) (string, error) {
	inputDir := filepath.Join(workDir, domain.InputDirName)
	if err := os.MkdirAll(inputDir, 0700); err != nil {
		return "", fmt.Errorf("%w: create input dir: %w", domain.ErrStorageFailure, err)
	}

	path := filepath.Join(inputDir, name)
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("%w: create %s: %w", domain.ErrStorageFailure, name, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return "", fmt.Errorf("%w: copy %s: %w", domain.ErrStorageFailure, name, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("%w: close %s: %w", domain.ErrStorageFailure, name, err)
	}
	return path, nil
}

// CleanupStaged removes the working directories of staged files.
func CleanupStaged(files []domain.IngestFile) {
	for _, f := range files {
		_ = os.RemoveAll(filepath.Dir(filepath.Dir(f.Path)))
	}
}
