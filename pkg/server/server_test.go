package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/mocknest/mocknest/pkg/api/types"
	"github.com/mocknest/mocknest/pkg/config"
	"github.com/mocknest/mocknest/pkg/model"
	"github.com/mocknest/mocknest/pkg/store"
)

// envelope mirrors the API response shape with the data field left raw
// so each call site can decode it into the type it expects.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testClient struct {
	t       *testing.T
	handler http.Handler
	token   string
}

func newTestServer(t *testing.T) *testClient {
	t.Helper()
	cfg := config.Default()
	cfg.Auth.JWTSecret = "integration-test-secret"
	srv, err := NewWithStore(cfg, store.NewMemoryStore(), nil)
	require.NoError(t, err)
	return &testClient{t: t, handler: srv.Handler()}
}

func (c *testClient) do(method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func (c *testClient) register(username, email string) *model.User {
	c.t.Helper()
	rec, env := c.do(http.MethodPost, "/api/user/register", map[string]string{
		"username": username,
		"email":    email,
		"password": "hunter22",
	})
	require.Equal(c.t, http.StatusOK, rec.Code)
	require.Equal(c.t, types.CodeOK, env.Code, env.Message)

	var session struct {
		User  *model.User `json:"user"`
		Token string      `json:"token"`
	}
	require.NoError(c.t, json.Unmarshal(env.Data, &session))
	require.NotEmpty(c.t, session.Token)
	c.token = session.Token
	return session.User
}

func TestServer_RegisterLoginAuthFlow(t *testing.T) {
	c := newTestServer(t)

	u := c.register("alice", "alice@example.com")
	assert.Equal(t, int64(10000), u.UID)
	assert.Empty(t, u.Password)

	// Registration sets the session cookie alongside the body token.
	rec, _ := c.do(http.MethodPost, "/api/user/login", map[string]string{
		"username": "alice",
		"password": "hunter22",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var cookie *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "token" {
			cookie = ck
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	rec, env := c.do(http.MethodGet, "/api/user/auth", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.CodeOK, env.Code)

	// Without a credential the identity check answers in-band at 200.
	c.token = ""
	rec, env = c.do(http.MethodGet, "/api/user/auth", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.CodeUnauthenticated, env.Code)

	// Protected routes reject at the transport level instead.
	rec, env = c.do(http.MethodGet, "/api/projects", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, types.CodeUnauthenticated, env.Code)
}

func TestServer_LoginBadPassword(t *testing.T) {
	c := newTestServer(t)
	c.register("alice", "alice@example.com")
	c.token = ""

	rec, env := c.do(http.MethodPost, "/api/user/login", map[string]string{
		"username": "alice",
		"password": "wrong",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.CodeInvalidCredentials, env.Code)
}

func TestServer_ProjectLifecycle(t *testing.T) {
	c := newTestServer(t)
	c.register("alice", "alice@example.com")

	rec, env := c.do(http.MethodPost, "/api/projects", map[string]string{
		"name": "payments",
		"host": "api.example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, types.CodeOK, env.Code, env.Message)

	var p model.Project
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, int64(100000), p.PID)
	assert.Equal(t, int64(10000), p.OwnerID)

	// Listing is scoped to the caller: a second account sees nothing.
	other := &testClient{t: t, handler: c.handler}
	other.register("bob", "bob@example.com")
	_, env = other.do(http.MethodGet, "/api/projects", nil)
	var projects []model.Project
	require.NoError(t, json.Unmarshal(env.Data, &projects))
	assert.Empty(t, projects)

	_, env = c.do(http.MethodGet, "/api/projects", nil)
	require.NoError(t, json.Unmarshal(env.Data, &projects))
	require.Len(t, projects, 1)

	_, env = c.do(http.MethodPut, fmt.Sprintf("/api/projects/%d", p.ID), map[string]string{
		"description": "payment mocks",
	})
	require.Equal(t, types.CodeOK, env.Code)
	var updated model.Project
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, "payments", updated.Name)
	assert.Equal(t, "payment mocks", updated.Description)
	assert.Equal(t, p.PID, updated.PID)

	_, env = c.do(http.MethodDelete, fmt.Sprintf("/api/projects/%d", p.ID), nil)
	assert.Equal(t, types.CodeOK, env.Code)
	_, env = c.do(http.MethodGet, fmt.Sprintf("/api/projects/%d", p.ID), nil)
	assert.Equal(t, types.CodeProjectNotFound, env.Code)
}

func TestServer_ValidationCode(t *testing.T) {
	c := newTestServer(t)
	c.register("alice", "alice@example.com")

	rec, env := c.do(http.MethodPost, "/api/projects", map[string]string{"name": ""})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.CodeValidation, env.Code)
}

func TestServer_MockFlowEndToEnd(t *testing.T) {
	c := newTestServer(t)
	u := c.register("alice", "alice@example.com")

	_, env := c.do(http.MethodPost, "/api/projects", map[string]string{"name": "demo"})
	require.Equal(t, types.CodeOK, env.Code, env.Message)
	var p model.Project
	require.NoError(t, json.Unmarshal(env.Data, &p))

	_, env = c.do(http.MethodPost, fmt.Sprintf("/api/projects/%d/endpoints", p.PID), map[string]string{
		"path":   "user/list",
		"method": "get",
		"group":  "users",
	})
	require.Equal(t, types.CodeOK, env.Code, env.Message)
	var e model.Endpoint
	require.NoError(t, json.Unmarshal(env.Data, &e))
	assert.Equal(t, "/user/list", e.Path)

	_, env = c.do(http.MethodPost, fmt.Sprintf("/api/endpoints/%s/variants", e.ID), map[string]any{
		"name":        "success",
		"payload":     `{"status":"ok"}`,
		"make_active": true,
	})
	require.Equal(t, types.CodeOK, env.Code, env.Message)

	_, env = c.do(http.MethodPost, fmt.Sprintf("/api/endpoints/%s/variants", e.ID), map[string]any{
		"name":    "failure",
		"payload": `{"status":"broken"}`,
	})
	require.Equal(t, types.CodeOK, env.Code, env.Message)
	var failure model.Variant
	require.NoError(t, json.Unmarshal(env.Data, &failure))

	// The proxy serves the globally active variant for anyone.
	proxyPath := fmt.Sprintf("/proxy/%d/%d/user/list", u.UID, p.PID)
	rec, _ := c.do(http.MethodGet, proxyPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])

	// An authenticated activation pins the variant for this account
	// only; the global active flag is untouched.
	_, env = c.do(http.MethodPost, fmt.Sprintf("/api/variants/%s/activate", failure.ID), nil)
	require.Equal(t, types.CodeOK, env.Code, env.Message)

	rec, _ = c.do(http.MethodGet, proxyPath, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "broken", body["status"])

	otherPath := fmt.Sprintf("/proxy/%d/%d/user/list", u.UID+1, p.PID)
	rec, _ = c.do(http.MethodGet, otherPath, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])

	_, env = c.do(http.MethodGet, fmt.Sprintf("/api/endpoints/%s/variants", e.ID), nil)
	var variants []model.Variant
	require.NoError(t, json.Unmarshal(env.Data, &variants))
	require.Len(t, variants, 2)
	assert.True(t, variants[0].IsActive)
	assert.False(t, variants[1].IsActive)

	// The groups listing reflects the auto-created group.
	_, env = c.do(http.MethodGet, fmt.Sprintf("/api/projects/%d/groups", p.PID), nil)
	require.Equal(t, types.CodeOK, env.Code)
	var groups []model.Group
	require.NoError(t, json.Unmarshal(env.Data, &groups))
	require.Len(t, groups, 1)
	assert.Equal(t, "users", groups[0].Name)
}

func TestServer_ProxyBypassesAuth(t *testing.T) {
	c := newTestServer(t)
	u := c.register("alice", "alice@example.com")

	_, env := c.do(http.MethodPost, "/api/projects", map[string]string{"name": "demo"})
	var p model.Project
	require.NoError(t, json.Unmarshal(env.Data, &p))

	// No credential at all: the proxy still answers (business error,
	// because the path has no endpoint yet).
	c.token = ""
	rec, env := c.do(http.MethodGet, fmt.Sprintf("/proxy/%d/%d/anything", u.UID, p.PID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.CodeEndpointNotFound, env.Code)
}

func TestServer_DuplicateRegistration(t *testing.T) {
	c := newTestServer(t)
	c.register("alice", "alice@example.com")

	rec, env := c.do(http.MethodPost, "/api/user/register", map[string]string{
		"username": "alice",
		"email":    "other@example.com",
		"password": "hunter22",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.CodeConflict, env.Code)
}
