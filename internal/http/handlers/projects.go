package handlers

import (
	"net/http"
	"strconv"

	apierrors "github.com/pribylovaa/go-site-generator/internal/errors"
	"github.com/pribylovaa/go-site-generator/internal/service"
)

// ListProjects — GET /v1/projects?limit=N.
func (h *Handlers) ListProjects(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			apierrors.WriteError(w, r, &service.InputError{Message: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	list, err := h.svc.ListProjects(r.Context(), uid, limit)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	out := projectListResponse{Projects: make([]projectResponse, 0, len(list))}
	for i := range list {
		out.Projects = append(out.Projects, projectFromModel(&list[i]))
	}

	writeJSON(w, http.StatusOK, out)
}

// CreateProject — POST /v1/projects.
func (h *Handlers) CreateProject(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}

	var in projectRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, errInvalidBody)
		return
	}

	p, err := h.svc.CreateProject(r.Context(), uid, service.ProjectInput{HTMLCode: in.HTMLCode, Prompt: in.Prompt})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, projectFromModel(p))
}

// GetProject — GET /v1/projects/{id}.
func (h *Handlers) GetProject(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}

	id, err := pathUUID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	p, err := h.svc.Project(r.Context(), uid, id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, projectFromModel(p))
}

// UpdateProject — PUT /v1/projects/{id}.
func (h *Handlers) UpdateProject(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}

	id, err := pathUUID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in projectRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, errInvalidBody)
		return
	}

	p, err := h.svc.UpdateProject(r.Context(), uid, id, service.ProjectInput{HTMLCode: in.HTMLCode, Prompt: in.Prompt})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, projectFromModel(p))
}

// DeleteProject — DELETE /v1/projects/{id}.
func (h *Handlers) DeleteProject(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}

	id, err := pathUUID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.svc.DeleteProject(r.Context(), uid, id); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
