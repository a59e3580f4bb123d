package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	types "github.com/mocknest/mocknest/pkg/api/types"
	"github.com/mocknest/mocknest/pkg/service"
)

// TokenCookie is the cookie the credential is carried in when the
// Authorization header is absent.
const TokenCookie = "token"

// allowedPrefixes are API routes that bypass the gate: credential
// issuance and the identity check, which must be reachable without a
// valid session.
var allowedPrefixes = []string{
	"/api/user/login",
	"/api/user/register",
	"/api/user/auth",
}

// Identity is the verified caller attached to the request context.
type Identity struct {
	ID       uint
	UID      int64
	Username string
	Role     string
}

type contextKey struct{}

// IdentityFrom extracts the caller identity, if the gate attached
// one.
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	ident, ok := ctx.Value(contextKey{}).(*Identity)
	return ident, ok
}

// WithIdentity returns a context carrying the identity. Exported for
// handler tests.
func WithIdentity(ctx context.Context, ident *Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, ident)
}

// Gate is the authentication middleware for the management surface.
// API routes outside the allow-list require a valid credential; page
// and proxy routes always pass through, unauthenticated if need be,
// and client-side logic handles any stale-session redirect.
type Gate struct {
	auth  *Authenticator
	users *service.UserService
	log   *slog.Logger
}

// NewGate creates a Gate.
func NewGate(a *Authenticator, users *service.UserService, log *slog.Logger) *Gate {
	return &Gate{auth: a, users: users, log: log}
}

func isProtected(path string) bool {
	if !strings.HasPrefix(path, "/api/") {
		return false
	}
	for _, prefix := range allowedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}
	return true
}

// extractToken pulls the credential from the Authorization header,
// falling back to the token cookie. The header wins when both are
// present.
func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie(TokenCookie); err == nil {
		return c.Value
	}
	return ""
}

func rejectUnauthenticated(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(types.Err(types.CodeUnauthenticated, message))
}

// Wrap applies the gate to next.
func (g *Gate) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		protected := isProtected(r.URL.Path)

		token := extractToken(r)
		if token == "" {
			if protected {
				rejectUnauthenticated(w, "not logged in or session expired")
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		claims, err := g.auth.Verify(token)
		if err != nil {
			if protected {
				rejectUnauthenticated(w, "authentication failed or session expired")
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		// Deleted accounts act as implicit revocation: the claims may
		// still verify, but the account must exist right now.
		u, err := g.users.GetByID(r.Context(), claims.ID)
		if err != nil {
			g.log.Error("account lookup failed during authentication", "error", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		if u == nil {
			if protected {
				rejectUnauthenticated(w, "account no longer exists")
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		ident := &Identity{ID: u.ID, UID: u.UID, Username: u.Username, Role: u.Role}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), ident)))
	})
}
