// Package engine is the proxy dispatcher: it turns an incoming
// (project public id, uid, method, path) into a concrete mock
// response by resolving the caller's effective variant.
package engine

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	types "github.com/mocknest/mocknest/pkg/api/types"
	"github.com/mocknest/mocknest/pkg/service"
)

// Handler serves METHOD /proxy/{uid}/{pid}/{path...}.
//
// Resolution is a pure read. The uid is an explicit path parameter,
// independent of any authenticated caller: a team shares overrides by
// handing out proxy URLs with the owning uid baked in. No ownership
// check runs here beyond selecting which override to honor.
type Handler struct {
	projects  *service.ProjectService
	endpoints *service.EndpointService
	variants  *service.VariantService
	log       *slog.Logger
}

// NewHandler creates a proxy Handler.
func NewHandler(projects *service.ProjectService, endpoints *service.EndpointService, variants *service.VariantService, log *slog.Logger) *Handler {
	return &Handler{projects: projects, endpoints: endpoints, variants: variants, log: log}
}

// Register mounts the proxy route on mux. The pattern carries no
// method so every verb dispatches here; the declared-method check
// happens after the endpoint lookup.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/proxy/{uid}/{pid}/{path...}", withCORS(h.ServeProxy))
}

// writeBusinessError renders a negative code at transport success
// status, per the proxy contract.
func writeBusinessError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(types.Err(code, message))
}

// ServeProxy resolves and emits a mock response.
func (h *Handler) ServeProxy(w http.ResponseWriter, r *http.Request) {
	uidParam := r.PathValue("uid")
	pidParam := r.PathValue("pid")
	pathParam := r.PathValue("path")

	uid, err := strconv.ParseInt(uidParam, 10, 64)
	if err != nil {
		http.Error(w, "uid must be numeric", http.StatusBadRequest)
		return
	}
	pid, err := strconv.ParseInt(pidParam, 10, 64)
	if err != nil {
		http.Error(w, "project id must be numeric", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(pathParam) == "" {
		http.Error(w, "path is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	project, err := h.projects.GetByPID(ctx, pid)
	if err != nil {
		h.internalError(w, "project lookup", err)
		return
	}
	if project == nil {
		writeBusinessError(w, types.CodeProjectNotFound, "project not found")
		return
	}

	endpoint, err := h.endpoints.FindByPath(ctx, project.ID, pathParam)
	if err != nil {
		h.internalError(w, "endpoint lookup", err)
		return
	}
	if endpoint == nil {
		writeBusinessError(w, types.CodeEndpointNotFound,
			fmt.Sprintf("endpoint not found: %s /%s", strings.ToUpper(r.Method), strings.TrimPrefix(pathParam, "/")))
		return
	}

	if !endpoint.Method.Matches(r.Method) {
		writeBusinessError(w, types.CodeMethodMismatch,
			fmt.Sprintf("method mismatch: got %s, endpoint declares %s",
				strings.ToUpper(r.Method), strings.ToUpper(string(endpoint.Method))))
		return
	}

	variant, err := h.variants.ResolveActive(ctx, endpoint.ID, &uid)
	if err != nil {
		h.internalError(w, "variant resolution", err)
		return
	}

	// No variant at all still answers: an empty object keeps the
	// consuming front-end alive.
	var body any = map[string]any{}
	if variant != nil {
		if err := json.Unmarshal([]byte(variant.Payload), &body); err != nil {
			// Stored data failed to parse. This is an integrity
			// failure of the fixture, never the caller's fault, and
			// is never auto-repaired.
			h.log.Error("variant payload is not valid JSON",
				"variant", variant.ID, "endpoint", endpoint.ID, "error", err)
			writeBusinessError(w, types.CodePayloadCorrupt, "mock payload is not valid JSON")
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *Handler) internalError(w http.ResponseWriter, operation string, err error) {
	h.log.Error("proxy resolution failed", "operation", operation, "error", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
