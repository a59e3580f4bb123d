package admin

import (
	"net/http"

	types "github.com/mocknest/mocknest/pkg/api/types"
	"github.com/mocknest/mocknest/pkg/auth"
	"github.com/mocknest/mocknest/pkg/model"
	"github.com/mocknest/mocknest/pkg/service"
)

// sessionData is the login/register response payload: the account
// (credential secret stripped by the model's json tags) plus the
// signed token, which is also set as a cookie.
type sessionData struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// setTokenCookie delivers the credential as an HttpOnly, same-site
// cookie alongside the response body.
func (a *API) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(a.auth.TTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// handleRegister handles POST /api/user/register and logs the new
// account straight in.
func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Nickname string `json:"nickname"`
		Phone    string `json:"phone"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, types.CodeValidation, "invalid request body")
		return
	}
	u, err := a.users.Register(r.Context(), service.RegisterParams{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Nickname: req.Nickname,
		Phone:    req.Phone,
	})
	if err != nil {
		a.respondServiceError(w, "register", err)
		return
	}
	token, err := a.auth.Issue(u)
	if err != nil {
		a.respondServiceError(w, "issue token", err)
		return
	}
	a.setTokenCookie(w, token)
	respondOK(w, sessionData{User: u, Token: token})
}

// handleLogin handles POST /api/user/login. Username and email are
// both accepted in the username field.
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, types.CodeValidation, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		respondErr(w, types.CodeValidation, "username and password are required")
		return
	}
	u, err := a.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		a.respondServiceError(w, "login", err)
		return
	}
	token, err := a.auth.Issue(u)
	if err != nil {
		a.respondServiceError(w, "issue token", err)
		return
	}
	a.setTokenCookie(w, token)
	respondOK(w, sessionData{User: u, Token: token})
}

// handleAuthCheck handles GET /api/user/auth, the identity check. It
// is allow-listed so a stale session answers with the business code
// in-band instead of a transport 401.
func (a *API) handleAuthCheck(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.IdentityFrom(r.Context())
	if !ok {
		respondErr(w, types.CodeUnauthenticated, "not logged in or session expired")
		return
	}
	u, err := a.users.GetByID(r.Context(), ident.ID)
	if err != nil {
		a.respondServiceError(w, "auth check", err)
		return
	}
	if u == nil {
		respondErr(w, types.CodeUnauthenticated, "account no longer exists")
		return
	}
	respondOK(w, u)
}

// handleMe handles GET /api/user/me, the protected profile route.
func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	ident, ok := a.identity(w, r)
	if !ok {
		return
	}
	u, err := a.users.GetByID(r.Context(), ident.ID)
	if err != nil {
		a.respondServiceError(w, "get profile", err)
		return
	}
	if u == nil {
		respondErr(w, types.CodeUnauthenticated, "account no longer exists")
		return
	}
	respondOK(w, u)
}

// handleLogout handles POST /api/user/logout by expiring the cookie.
// The token itself stays valid until expiry; account deletion is the
// revocation mechanism.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	respondOK(w, nil)
}
