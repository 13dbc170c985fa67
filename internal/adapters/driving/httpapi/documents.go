package httpapi

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/logger"
)

// filtersRequest is the body of a metadata listing.
type filtersRequest struct {
	Filters map[string]any `json:"filters"`
}

// retrievableRequest is the body of a retrievable toggle.
type retrievableRequest struct {
	Retrievable *bool `json:"retrievable"`
}

// statusResponse acknowledges a mutation.
type statusResponse struct {
	Status      string `json:"status"`
	DocumentUID string `json:"document_uid,omitempty"`
}

func (s *Server) listMetadata(w http.ResponseWriter, r *http.Request) {
	var req filtersRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, err)
		return
	}
	docs, err := s.services.Metadata.GetDocumentsMetadata(r.Context(), req.Filters)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (s *Server) searchMetadata(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, fmt.Errorf("%w: q is required", domain.ErrInvalidRequest))
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, fmt.Errorf("%w: invalid limit %q", domain.ErrInvalidRequest, raw))
			return
		}
		limit = n
	}
	docs, err := s.services.Metadata.SearchMetadata(r.Context(), query, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (s *Server) getMetadata(w http.ResponseWriter, r *http.Request) {
	md, err := s.services.Metadata.GetDocumentMetadata(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, md)
}

func (s *Server) updateRetrievable(w http.ResponseWriter, r *http.Request) {
	var req retrievableRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, err)
		return
	}
	if req.Retrievable == nil {
		writeError(w, fmt.Errorf("%w: retrievable is required", domain.ErrInvalidRequest))
		return
	}
	md, err := s.services.Metadata.UpdateRetrievable(r.Context(), chi.URLParam(r, "uid"), *req.Retrievable)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, md)
}

func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	if err := s.services.Metadata.DeleteDocument(r.Context(), uid); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "deleted", DocumentUID: uid})
}

func (s *Server) getMarkdown(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	content, err := s.services.Content.GetMarkdown(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"document_uid": uid, "content": content})
}

func (s *Server) getRawContent(w http.ResponseWriter, r *http.Request) {
	raw, err := s.services.Content.GetRawContent(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		writeError(w, err)
		return
	}
	defer raw.Body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": raw.Filename}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, raw.Body); err != nil {
		logger.Warn("streaming raw content: %v", err)
	}
}
