package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/mocknest/mocknest/pkg/api/types"
	"github.com/mocknest/mocknest/pkg/logging"
	"github.com/mocknest/mocknest/pkg/model"
	"github.com/mocknest/mocknest/pkg/service"
	"github.com/mocknest/mocknest/pkg/store"
)

func testUser(t *testing.T, st store.Store) *model.User {
	t.Helper()
	users := service.NewUserService(st, logging.Nop())
	u, err := users.Register(context.Background(), service.RegisterParams{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "secret1",
	})
	require.NoError(t, err)
	return u
}

func TestIssueAndVerify(t *testing.T) {
	a := NewAuthenticator("test-secret", time.Hour)
	u := &model.User{ID: 1, UID: 10000, Username: "alice", Role: model.RoleUser}

	token, err := a.Issue(u)
	require.NoError(t, err)

	claims, err := a.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, uint(1), claims.ID)
	assert.Equal(t, int64(10000), claims.UID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, model.RoleUser, claims.Role)
}

func TestVerify_Failures(t *testing.T) {
	a := NewAuthenticator("test-secret", time.Hour)
	u := &model.User{ID: 1, UID: 10000, Username: "alice"}

	token, err := a.Issue(u)
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		other := NewAuthenticator("different-secret", time.Hour)
		_, err := other.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := a.Verify("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		short := NewAuthenticator("test-secret", time.Millisecond)
		tok, err := short.Issue(u)
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
		_, err = short.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

// gateFixture wires the Gate over a handler that reports whether an
// identity arrived.
type gateFixture struct {
	st      *store.MemoryStore
	auth    *Authenticator
	handler http.Handler

	lastIdentity *Identity
	called       bool
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()
	f := &gateFixture{
		st:   store.NewMemoryStore(),
		auth: NewAuthenticator("gate-secret", time.Hour),
	}
	users := service.NewUserService(f.st, logging.Nop())
	gate := NewGate(f.auth, users, logging.Nop())
	f.handler = gate.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.called = true
		f.lastIdentity, _ = IdentityFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	return f
}

func (f *gateFixture) do(t *testing.T, path string, mutate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	f.called = false
	f.lastIdentity = nil
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) types.Response {
	t.Helper()
	var resp types.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestGate_ProtectedWithoutCredential(t *testing.T) {
	f := newGateFixture(t)
	rec := f.do(t, "/api/projects", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, f.called)
	assert.Equal(t, types.CodeUnauthenticated, decodeEnvelope(t, rec).Code)
}

func TestGate_AllowListBypasses(t *testing.T) {
	f := newGateFixture(t)
	for _, path := range []string{"/api/user/login", "/api/user/register", "/api/user/auth"} {
		rec := f.do(t, path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.True(t, f.called, path)
	}
}

func TestGate_PageRoutesPassThrough(t *testing.T) {
	f := newGateFixture(t)

	// No credential.
	rec := f.do(t, "/projects/100000", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, f.called)
	assert.Nil(t, f.lastIdentity)

	// Invalid credential still passes through on a page route.
	rec = f.do(t, "/projects/100000", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer garbage")
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, f.called)
	assert.Nil(t, f.lastIdentity)
}

func TestGate_ValidHeaderCredential(t *testing.T) {
	f := newGateFixture(t)
	u := testUser(t, f.st)
	token, err := f.auth.Issue(u)
	require.NoError(t, err)

	rec := f.do(t, "/api/projects", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, f.lastIdentity)
	assert.Equal(t, u.UID, f.lastIdentity.UID)
	assert.Equal(t, "alice", f.lastIdentity.Username)
}

func TestGate_CookieCredential(t *testing.T) {
	f := newGateFixture(t)
	u := testUser(t, f.st)
	token, err := f.auth.Issue(u)
	require.NoError(t, err)

	rec := f.do(t, "/api/projects", func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: TokenCookie, Value: token})
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, f.lastIdentity)
	assert.Equal(t, u.UID, f.lastIdentity.UID)
}

func TestGate_HeaderWinsOverCookie(t *testing.T) {
	f := newGateFixture(t)
	u := testUser(t, f.st)
	token, err := f.auth.Issue(u)
	require.NoError(t, err)

	// Valid cookie, garbage header: the header takes precedence, so
	// the request is rejected.
	rec := f.do(t, "/api/projects", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer garbage")
		r.AddCookie(&http.Cookie{Name: TokenCookie, Value: token})
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, f.called)
}

func TestGate_DeletedAccountRevokes(t *testing.T) {
	f := newGateFixture(t)

	// Mint a token for an account that does not exist in the store.
	ghost := &model.User{ID: 42, UID: 10042, Username: "ghost", Role: model.RoleUser}
	token, err := f.auth.Issue(ghost)
	require.NoError(t, err)

	rec := f.do(t, "/api/projects", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, f.called)
	assert.Equal(t, types.CodeUnauthenticated, decodeEnvelope(t, rec).Code)
}
