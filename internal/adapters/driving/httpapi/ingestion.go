package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/services"
	"github.com/custodia-labs/knowledge-flow/internal/logger"
)

// Multipart field names of the ingestion request.
const (
	filesField    = "files"
	metadataField = "metadata_json"
)

// NDJSONContentType is the media type of progress streams.
const NDJSONContentType = "application/x-ndjson"

// processFiles stages the uploaded files, runs them through ingestion and
// replies with the progress events as NDJSON. The stream is buffered so
// that the status code can reflect the overall outcome: 200 when at least
// one file succeeded, 422 otherwise.
func (s *Server) processFiles(w http.ResponseWriter, r *http.Request) {
	form, err := s.parseMultipart(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	seed, err := parseSeed(form.Value[metadataField])
	if err != nil {
		writeError(w, err)
		return
	}

	files, err := s.stageUploads(form.File[filesField])
	defer services.CleanupStaged(files)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(files) == 0 {
		writeError(w, fmt.Errorf("%w: no files uploaded", domain.ErrInvalidRequest))
		return
	}

	var (
		body bytes.Buffer
		agg  domain.ProgressAggregator
	)
	enc := json.NewEncoder(&body)
	for event := range s.services.Ingestion.Ingest(r.Context(), files, seed) {
		agg.Observe(event)
		if err := enc.Encode(event); err != nil {
			logger.Warn("encoding progress event: %v", err)
		}
	}

	status := http.StatusOK
	if !agg.Success() {
		status = http.StatusUnprocessableEntity
	}
	w.Header().Set("Content-Type", NDJSONContentType)
	w.WriteHeader(status)
	if _, err := w.Write(body.Bytes()); err != nil {
		logger.Warn("writing progress stream: %v", err)
	}
}

func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request) (*multipart.Form, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, fmt.Errorf("%w: invalid multipart body: %w", domain.ErrInvalidRequest, err)
	}
	return r.MultipartForm, nil
}

// stageUploads copies each upload into its own working directory. Files
// staged before a failure are returned so the caller can clean them up.
func (s *Server) stageUploads(headers []*multipart.FileHeader) ([]domain.IngestFile, error) {
	files := make([]domain.IngestFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return files, fmt.Errorf("%w: open upload %s: %w", domain.ErrInvalidRequest, fh.Filename, err)
		}
		staged, err := services.StageFile(s.stagingDir, fh.Filename, f)
		f.Close()
		if err != nil {
			return files, err
		}
		files = append(files, staged)
	}
	return files, nil
}

// parseSeed decodes the optional metadata_json form value.
func parseSeed(values []string) (domain.Metadata, error) {
	if len(values) == 0 || values[0] == "" {
		return domain.Metadata{}, nil
	}
	seed, err := domain.DecodeMetadata([]byte(values[0]))
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not a JSON object: %w", domain.ErrInvalidRequest, metadataField, err)
	}
	if seed == nil {
		seed = domain.Metadata{}
	}
	return seed, nil
}
