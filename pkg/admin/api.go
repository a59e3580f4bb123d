// Package admin is the gated management surface: CRUD over projects,
// endpoints, groups, and response variants, plus the account routes
// that issue credentials.
package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	types "github.com/mocknest/mocknest/pkg/api/types"
	"github.com/mocknest/mocknest/pkg/auth"
	"github.com/mocknest/mocknest/pkg/model"
	"github.com/mocknest/mocknest/pkg/service"
	"github.com/mocknest/mocknest/pkg/store"
)

// maxBodyBytes caps management request bodies.
const maxBodyBytes = 1 << 20

// API carries the handler dependencies for the management surface.
type API struct {
	projects  *service.ProjectService
	endpoints *service.EndpointService
	groups    *service.GroupService
	variants  *service.VariantService
	users     *service.UserService
	auth      *auth.Authenticator
	log       *slog.Logger
}

// NewAPI creates the management API.
func NewAPI(
	projects *service.ProjectService,
	endpoints *service.EndpointService,
	groups *service.GroupService,
	variants *service.VariantService,
	users *service.UserService,
	authenticator *auth.Authenticator,
	log *slog.Logger,
) *API {
	return &API{
		projects:  projects,
		endpoints: endpoints,
		groups:    groups,
		variants:  variants,
		users:     users,
		auth:      authenticator,
		log:       log,
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondOK writes a success envelope.
func respondOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, types.OK(data))
}

// respondErr writes a business-error envelope at transport success
// status.
func respondErr(w http.ResponseWriter, code int, message string) {
	writeJSON(w, http.StatusOK, types.Err(code, message))
}

// decodeJSON reads the request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// respondServiceError maps service failures onto stable business
// codes; anything unrecognized is an unexpected failure and becomes a
// sanitized 500, with the full error logged server-side only.
func (a *API) respondServiceError(w http.ResponseWriter, operation string, err error) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		respondErr(w, types.CodeValidation, verr.Error())
	case errors.Is(err, service.ErrAllocationExhausted):
		respondErr(w, types.CodeConflict, "id allocation failed under contention, retry the request")
	case errors.Is(err, service.ErrUsernameTaken):
		respondErr(w, types.CodeConflict, "username already exists")
	case errors.Is(err, service.ErrEmailTaken):
		respondErr(w, types.CodeConflict, "email already registered")
	case errors.Is(err, service.ErrInvalidCredentials):
		respondErr(w, types.CodeInvalidCredentials, "invalid username or password")
	case errors.Is(err, service.ErrAccountDisabled):
		respondErr(w, types.CodeAccountDisabled, "account is disabled, contact an administrator")
	case errors.Is(err, store.ErrNotFound):
		respondErr(w, types.CodeNotFound, "resource not found")
	default:
		a.log.Error("operation failed", "operation", operation, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// identity returns the gate-attached caller, rejecting the request
// when it is somehow missing behind the gate.
func (a *API) identity(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	ident, ok := auth.IdentityFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, types.Err(types.CodeUnauthenticated, "not logged in"))
		return nil, false
	}
	return ident, true
}
