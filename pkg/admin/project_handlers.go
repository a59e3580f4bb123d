package admin

import (
	"net/http"
	"strconv"

	types "github.com/mocknest/mocknest/pkg/api/types"
	"github.com/mocknest/mocknest/pkg/model"
	"github.com/mocknest/mocknest/pkg/service"
)

// projectDetail is a project plus its endpoint count, for the detail
// screen.
type projectDetail struct {
	*model.Project
	EndpointCount int64 `json:"endpoint_count"`
}

func parseUintParam(r *http.Request, name string) (uint, bool) {
	n, err := strconv.ParseUint(r.PathValue(name), 10, 32)
	return uint(n), err == nil
}

func parseIntParam(r *http.Request, name string) (int64, bool) {
	n, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return n, err == nil
}

// handleCreateProject handles POST /api/projects.
func (a *API) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	ident, ok := a.identity(w, r)
	if !ok {
		return
	}
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Host        string `json:"host"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, types.CodeValidation, "invalid request body")
		return
	}
	p, err := a.projects.Create(r.Context(), service.CreateProjectParams{
		Name:        req.Name,
		Description: req.Description,
		Host:        req.Host,
		OwnerID:     ident.UID,
	})
	if err != nil {
		a.respondServiceError(w, "create project", err)
		return
	}
	respondOK(w, p)
}

// handleListProjects handles GET /api/projects, scoped to the caller.
func (a *API) handleListProjects(w http.ResponseWriter, r *http.Request) {
	ident, ok := a.identity(w, r)
	if !ok {
		return
	}
	projects, err := a.projects.List(r.Context(), ident.UID)
	if err != nil {
		a.respondServiceError(w, "list projects", err)
		return
	}
	respondOK(w, projects)
}

// handleGetProject handles GET /api/projects/{id}.
func (a *API) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUintParam(r, "id")
	if !ok {
		respondErr(w, types.CodeValidation, "project id must be numeric")
		return
	}
	p, err := a.projects.Get(r.Context(), id)
	if err != nil {
		a.respondServiceError(w, "get project", err)
		return
	}
	if p == nil {
		respondErr(w, types.CodeProjectNotFound, "project not found")
		return
	}
	count, err := a.endpoints.Count(r.Context(), p.ID)
	if err != nil {
		a.respondServiceError(w, "count endpoints", err)
		return
	}
	respondOK(w, projectDetail{Project: p, EndpointCount: count})
}

// handleUpdateProject handles PUT /api/projects/{id} as a partial
// update: absent fields stay untouched.
func (a *API) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUintParam(r, "id")
	if !ok {
		respondErr(w, types.CodeValidation, "project id must be numeric")
		return
	}
	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Host        *string `json:"host"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, types.CodeValidation, "invalid request body")
		return
	}
	p, err := a.projects.Update(r.Context(), id, service.UpdateProjectParams{
		Name:        req.Name,
		Description: req.Description,
		Host:        req.Host,
	})
	if err != nil {
		a.respondServiceError(w, "update project", err)
		return
	}
	if p == nil {
		respondErr(w, types.CodeProjectNotFound, "project not found")
		return
	}
	respondOK(w, p)
}

// handleDeleteProject handles DELETE /api/projects/{id}. Child
// records are not cascaded; see the project service.
func (a *API) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUintParam(r, "id")
	if !ok {
		respondErr(w, types.CodeValidation, "project id must be numeric")
		return
	}
	deleted, err := a.projects.Delete(r.Context(), id)
	if err != nil {
		a.respondServiceError(w, "delete project", err)
		return
	}
	if !deleted {
		respondErr(w, types.CodeProjectNotFound, "project not found")
		return
	}
	respondOK(w, nil)
}
