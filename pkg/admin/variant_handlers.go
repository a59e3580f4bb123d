package admin

import (
	"net/http"

	types "github.com/mocknest/mocknest/pkg/api/types"
	"github.com/mocknest/mocknest/pkg/auth"
	"github.com/mocknest/mocknest/pkg/service"
)

// handleListVariants handles GET /api/endpoints/{id}/variants,
// ascending by creation time.
func (a *API) handleListVariants(w http.ResponseWriter, r *http.Request) {
	endpointID := r.PathValue("id")
	e, err := a.endpoints.Get(r.Context(), endpointID)
	if err != nil {
		a.respondServiceError(w, "get endpoint", err)
		return
	}
	if e == nil {
		respondErr(w, types.CodeEndpointNotFound, "endpoint not found")
		return
	}
	variants, err := a.variants.List(r.Context(), endpointID)
	if err != nil {
		a.respondServiceError(w, "list variants", err)
		return
	}
	respondOK(w, variants)
}

// handleCreateVariant handles POST /api/endpoints/{id}/variants. The
// payload is stored as opaque text; it is parsed only when the proxy
// resolves it.
func (a *API) handleCreateVariant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       string `json:"name"`
		Payload    string `json:"payload"`
		MakeActive bool   `json:"make_active"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, types.CodeValidation, "invalid request body")
		return
	}
	v, err := a.variants.Create(r.Context(), r.PathValue("id"), req.Name, req.Payload, req.MakeActive)
	if err != nil {
		a.respondServiceError(w, "create variant", err)
		return
	}
	respondOK(w, v)
}

// handleUpdateVariant handles PUT /api/variants/{id}. The active flag
// can only be raised here, and only through the activation path; it
// is never cleared by a field update.
func (a *API) handleUpdateVariant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     *string `json:"name"`
		Payload  *string `json:"payload"`
		IsActive *bool   `json:"is_active"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, types.CodeValidation, "invalid request body")
		return
	}
	v, err := a.variants.Update(r.Context(), r.PathValue("id"), service.UpdateVariantParams{
		Name:     req.Name,
		Payload:  req.Payload,
		IsActive: req.IsActive,
	})
	if err != nil {
		a.respondServiceError(w, "update variant", err)
		return
	}
	if v == nil {
		respondErr(w, types.CodeNotFound, "variant not found")
		return
	}
	respondOK(w, v)
}

// handleDeleteVariant handles DELETE /api/variants/{id}.
func (a *API) handleDeleteVariant(w http.ResponseWriter, r *http.Request) {
	deleted, err := a.variants.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		a.respondServiceError(w, "delete variant", err)
		return
	}
	if !deleted {
		respondErr(w, types.CodeNotFound, "variant not found")
		return
	}
	respondOK(w, nil)
}

// handleActivateVariant handles POST /api/variants/{id}/activate.
// With a caller identity attached, activation is a per-user pin that
// leaves everyone else's view alone; without one it falls back to
// flipping the endpoint's global active flag.
func (a *API) handleActivateVariant(w http.ResponseWriter, r *http.Request) {
	variantID := r.PathValue("id")

	if ident, ok := auth.IdentityFrom(r.Context()); ok {
		v, err := a.variants.SetUserActive(r.Context(), ident.UID, variantID)
		if err != nil {
			a.respondServiceError(w, "set user active variant", err)
			return
		}
		if v == nil {
			respondErr(w, types.CodeNotFound, "variant not found")
			return
		}
		respondOK(w, v)
		return
	}

	v, err := a.variants.SetGlobalActive(r.Context(), variantID)
	if err != nil {
		a.respondServiceError(w, "set global active variant", err)
		return
	}
	if v == nil {
		respondErr(w, types.CodeNotFound, "variant not found")
		return
	}
	respondOK(w, v)
}
