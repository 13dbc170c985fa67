package httpapi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
)

// searchRequest is the body of a vector search.
type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

func (s *Server) vectorSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, err)
		return
	}
	if req.Query == "" {
		writeError(w, fmt.Errorf("%w: query is required", domain.ErrInvalidRequest))
		return
	}
	if req.TopK <= 0 {
		req.TopK = domain.DefaultSearchLimit
	}
	hits, err := s.services.Search.Search(r.Context(), req.Query, req.TopK)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hits)
}

func (s *Server) listDatasets(w http.ResponseWriter, r *http.Request) {
	datasets, err := s.services.Tabular.ListDatasets(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, datasets)
}

func (s *Server) tabularSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := s.services.Tabular.GetSchema(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

func (s *Server) tabularQuery(w http.ResponseWriter, r *http.Request) {
	var q domain.TabularQuery
	if err := decodeJSON(r, &q, true); err != nil {
		writeError(w, err)
		return
	}
	result, err := s.services.Tabular.Query(r.Context(), chi.URLParam(r, "uid"), q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
