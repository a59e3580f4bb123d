// Route registration for the management API.

package admin

import "net/http"

// Register mounts all management routes on mux. The auth gate is
// applied at the server level, over the whole mux, so it can also
// classify non-API routes.
func (a *API) Register(mux *http.ServeMux) {
	// Accounts and credentials
	mux.HandleFunc("POST /api/user/register", a.handleRegister)
	mux.HandleFunc("POST /api/user/login", a.handleLogin)
	mux.HandleFunc("GET /api/user/auth", a.handleAuthCheck)
	mux.HandleFunc("GET /api/user/me", a.handleMe)
	mux.HandleFunc("POST /api/user/logout", a.handleLogout)

	// Projects
	mux.HandleFunc("POST /api/projects", a.handleCreateProject)
	mux.HandleFunc("GET /api/projects", a.handleListProjects)
	mux.HandleFunc("GET /api/projects/{id}", a.handleGetProject)
	mux.HandleFunc("PUT /api/projects/{id}", a.handleUpdateProject)
	mux.HandleFunc("DELETE /api/projects/{id}", a.handleDeleteProject)

	// Endpoints, addressed under the project's public id
	mux.HandleFunc("GET /api/projects/{pid}/endpoints", a.handleListEndpoints)
	mux.HandleFunc("POST /api/projects/{pid}/endpoints", a.handleCreateEndpoint)
	mux.HandleFunc("PUT /api/endpoints/{id}", a.handleUpdateEndpoint)
	mux.HandleFunc("DELETE /api/endpoints/{id}", a.handleDeleteEndpoint)

	// Groups
	mux.HandleFunc("GET /api/projects/{pid}/groups", a.handleListGroups)

	// Response variants
	mux.HandleFunc("GET /api/endpoints/{id}/variants", a.handleListVariants)
	mux.HandleFunc("POST /api/endpoints/{id}/variants", a.handleCreateVariant)
	mux.HandleFunc("PUT /api/variants/{id}", a.handleUpdateVariant)
	mux.HandleFunc("DELETE /api/variants/{id}", a.handleDeleteVariant)
	mux.HandleFunc("POST /api/variants/{id}/activate", a.handleActivateVariant)
}
