package httpapi

import (
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driving"
	"github.com/custodia-labs/knowledge-flow/internal/core/services"
)

// collectionRoutes mounts the shared routes of knowledge contexts and
// chat profiles.
func (s *Server) collectionRoutes(svc driving.CollectionService) func(chi.Router) {
	h := &collectionHandler{server: s, svc: svc}
	return func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/maxTokens", h.maxTokens)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
		r.Delete("/{id}/documents/{docID}", h.deleteDocument)
	}
}

type collectionHandler struct {
	server *Server
	svc    driving.CollectionService
}

func (h *collectionHandler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context(), r.URL.Query().Get("tag"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *collectionHandler) create(w http.ResponseWriter, r *http.Request) {
	req, cleanup, err := h.readRequest(w, r)
	defer cleanup()
	if err != nil {
		writeError(w, err)
		return
	}
	if req.Title == "" {
		writeError(w, fmt.Errorf("%w: title is required", domain.ErrInvalidRequest))
		return
	}
	created, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *collectionHandler) update(w http.ResponseWriter, r *http.Request) {
	req, cleanup, err := h.readRequest(w, r)
	defer cleanup()
	if err != nil {
		writeError(w, err)
		return
	}
	updated, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *collectionHandler) get(w http.ResponseWriter, r *http.Request) {
	content, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, content)
}

func (h *collectionHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

func (h *collectionHandler) deleteDocument(w http.ResponseWriter, r *http.Request) {
	updated, err := h.svc.DeleteDocument(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "docID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *collectionHandler) maxTokens(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"max_tokens": h.svc.MaxTokens()})
}

// readRequest parses the multipart form of a create or update call and
// stages its files. The returned cleanup removes staged files and is
// always safe to call.
func (h *collectionHandler) readRequest(
	w http.ResponseWriter, r *http.Request,
) (driving.CollectionRequest, func(), error) {
	noop := func() {}
	form, err := h.server.parseMultipart(w, r)
	if err != nil {
		return driving.CollectionRequest{}, noop, err
	}

	staged, err := h.server.stageUploads(form.File[filesField])
	cleanup := func() { services.CleanupStaged(staged) }
	if err != nil {
		return driving.CollectionRequest{}, cleanup, err
	}

	req := driving.CollectionRequest{
		Title:       formValue(form, "title"),
		Description: formValue(form, "description"),
		Tag:         formValue(form, "tag"),
		Creator:     formValue(form, "creator"),
		UserID:      formValue(form, "user_id"),
	}
	for _, f := range staged {
		req.Files = append(req.Files, domain.CollectionUpload{Filename: f.Filename, Path: f.Path})
	}
	return req, cleanup, nil
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}
