package admin

import (
	"net/http"
	"strconv"

	types "github.com/mocknest/mocknest/pkg/api/types"
	"github.com/mocknest/mocknest/pkg/model"
	"github.com/mocknest/mocknest/pkg/service"
)

// endpointPage is one page of a project's endpoints.
type endpointPage struct {
	List  []*model.Endpoint `json:"list"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Size  int               `json:"size"`
}

func queryInt(r *http.Request, name string, fallback int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

// resolveProjectByPID resolves the {pid} path parameter, answering
// the business error itself when the project is gone.
func (a *API) resolveProjectByPID(w http.ResponseWriter, r *http.Request) *model.Project {
	pid, ok := parseIntParam(r, "pid")
	if !ok {
		respondErr(w, types.CodeValidation, "project public id must be numeric")
		return nil
	}
	p, err := a.projects.GetByPID(r.Context(), pid)
	if err != nil {
		a.respondServiceError(w, "get project by pid", err)
		return nil
	}
	if p == nil {
		respondErr(w, types.CodeProjectNotFound, "project not found")
		return nil
	}
	return p
}

// handleListEndpoints handles GET /api/projects/{pid}/endpoints with
// page/size query parameters.
func (a *API) handleListEndpoints(w http.ResponseWriter, r *http.Request) {
	p := a.resolveProjectByPID(w, r)
	if p == nil {
		return
	}
	page := queryInt(r, "page", 1)
	size := queryInt(r, "size", 20)
	list, err := a.endpoints.List(r.Context(), p.ID, page, size)
	if err != nil {
		a.respondServiceError(w, "list endpoints", err)
		return
	}
	total, err := a.endpoints.Count(r.Context(), p.ID)
	if err != nil {
		a.respondServiceError(w, "count endpoints", err)
		return
	}
	respondOK(w, endpointPage{List: list, Total: total, Page: page, Size: size})
}

// handleCreateEndpoint handles POST /api/projects/{pid}/endpoints.
func (a *API) handleCreateEndpoint(w http.ResponseWriter, r *http.Request) {
	p := a.resolveProjectByPID(w, r)
	if p == nil {
		return
	}
	var req struct {
		Path        string `json:"path"`
		Method      string `json:"method"`
		Group       string `json:"group"`
		Description string `json:"description"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, types.CodeValidation, "invalid request body")
		return
	}
	e, err := a.endpoints.Create(r.Context(), p, service.CreateEndpointParams{
		Path:        req.Path,
		Method:      req.Method,
		Group:       req.Group,
		Description: req.Description,
	})
	if err != nil {
		a.respondServiceError(w, "create endpoint", err)
		return
	}
	respondOK(w, e)
}

// handleUpdateEndpoint handles PUT /api/endpoints/{id}.
func (a *API) handleUpdateEndpoint(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path        *string `json:"path"`
		Method      *string `json:"method"`
		Group       *string `json:"group"`
		Description *string `json:"description"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, types.CodeValidation, "invalid request body")
		return
	}
	e, err := a.endpoints.Update(r.Context(), r.PathValue("id"), service.UpdateEndpointParams{
		Path:        req.Path,
		Method:      req.Method,
		Group:       req.Group,
		Description: req.Description,
	})
	if err != nil {
		a.respondServiceError(w, "update endpoint", err)
		return
	}
	if e == nil {
		respondErr(w, types.CodeEndpointNotFound, "endpoint not found")
		return
	}
	respondOK(w, e)
}

// handleDeleteEndpoint handles DELETE /api/endpoints/{id}.
func (a *API) handleDeleteEndpoint(w http.ResponseWriter, r *http.Request) {
	deleted, err := a.endpoints.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		a.respondServiceError(w, "delete endpoint", err)
		return
	}
	if !deleted {
		respondErr(w, types.CodeEndpointNotFound, "endpoint not found")
		return
	}
	respondOK(w, nil)
}

// handleListGroups handles GET /api/projects/{pid}/groups.
func (a *API) handleListGroups(w http.ResponseWriter, r *http.Request) {
	p := a.resolveProjectByPID(w, r)
	if p == nil {
		return
	}
	groups, err := a.groups.List(r.Context(), p.PID)
	if err != nil {
		a.respondServiceError(w, "list groups", err)
		return
	}
	respondOK(w, groups)
}
