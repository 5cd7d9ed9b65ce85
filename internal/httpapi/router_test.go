package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"account-service/internal/audit"
	"account-service/internal/auth"
	"account-service/internal/user"
	"account-service/pkg/password"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testEnv struct {
	router *gin.Engine
	users  *user.Service
	audit  *audit.MemoryRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hasher := password.NewBcryptHasher(password.WithCost(bcrypt.MinCost))
	store := user.NewMemoryStore()
	users := user.NewService(store, hasher)

	codec, err := auth.NewTokenCodec(auth.CodecConfig{Secret: testSecret, Issuer: "account-service"})
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	verifier, err := auth.NewCredentialVerifier(store, hasher)
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	issuer, err := auth.NewIssuer(codec, store, time.Hour, 24*time.Hour)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}

	repo := audit.NewMemoryRepo()
	auditSvc := audit.NewService(repo)

	r, err := NewRouter(Deps{
		Users:         users,
		Auth:          auth.NewService(verifier, issuer, nil, auditSvc),
		Codec:         codec,
		Principals:    store,
		LookupTimeout: time.Second,
		Audit:         auditSvc,
	})
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	return &testEnv{router: r, users: users, audit: repo}
}

type envelope struct {
	Result    string          `json:"result"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	ErrorCode string          `json:"errorCode"`
	Details   []string        `json:"details"`
	Timestamp string          `json:"timestamp"`
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
	}
	return w.Code, env
}

func (e *testEnv) register(t *testing.T, username string) user.Summary {
	t.Helper()
	code, env := e.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": username, "email": username + "@example.com", "password": "password123",
	})
	if code != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d %+v", username, code, env)
	}
	var s user.Summary
	if err := json.Unmarshal(env.Data, &s); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	return s
}

func (e *testEnv) login(t *testing.T, username string) tokenResponse {
	t.Helper()
	code, env := e.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": username, "password": "password123"})
	if code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d %+v", username, code, env)
	}
	var tr tokenResponse
	if err := json.Unmarshal(env.Data, &tr); err != nil {
		t.Fatalf("decode tokens: %v", err)
	}
	return tr
}

func (e *testEnv) makeAdmin(t *testing.T, username string) tokenResponse {
	t.Helper()
	_, _, err := e.users.EnsureAdmin(context.Background(), user.RegisterInput{
		Username: username, Email: username + "@example.com", Password: "password123",
	})
	if err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	return e.login(t, username)
}

func TestRegisterLoginAndProfile(t *testing.T) {
	e := newTestEnv(t)
	created := e.register(t, "alice")
	if created.Role != user.RoleUser || !created.Enabled {
		t.Fatalf("unexpected summary %+v", created)
	}

	tokens := e.login(t, "alice")
	if tokens.TokenType != "Bearer" || tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("unexpected token response %+v", tokens)
	}

	code, env := e.do(t, http.MethodGet, "/api/v1/users/me", tokens.AccessToken, nil)
	if code != http.StatusOK || env.Result != ResultSuccess {
		t.Fatalf("expected 200 SUCCESS, got %d %+v", code, env)
	}
	var me user.Summary
	_ = json.Unmarshal(env.Data, &me)
	if me.ID != created.ID || me.Username != "alice" {
		t.Fatalf("expected alice, got %+v", me)
	}
}

func TestRegisterDuplicates(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "alice")

	code, env := e.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": "alice", "email": "other@example.com", "password": "password123",
	})
	if code != http.StatusConflict || env.ErrorCode != "DUPLICATE_USERNAME" {
		t.Fatalf("expected 409 DUPLICATE_USERNAME, got %d %+v", code, env)
	}

	code, env = e.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": "bob", "email": "alice@example.com", "password": "password123",
	})
	if code != http.StatusConflict || env.ErrorCode != "DUPLICATE_EMAIL" {
		t.Fatalf("expected 409 DUPLICATE_EMAIL, got %d %+v", code, env)
	}
}

func TestRegisterValidation(t *testing.T) {
	e := newTestEnv(t)
	code, env := e.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": "al", "email": "not-an-email", "password": "short",
	})
	if code != http.StatusBadRequest || env.ErrorCode != "VALIDATION_ERROR" || env.Result != ResultError {
		t.Fatalf("expected 400 VALIDATION_ERROR, got %d %+v", code, env)
	}
	want := map[string]bool{
		"username: Username must be between 3 and 50 characters": false,
		"email: Email should be valid":                           false,
		"password: Password must be at least 8 characters long":  false,
	}
	for _, d := range env.Details {
		if _, ok := want[d]; ok {
			want[d] = true
		}
	}
	for d, seen := range want {
		if !seen {
			t.Fatalf("missing detail %q in %v", d, env.Details)
		}
	}
}

func TestMalformedBody(t *testing.T) {
	e := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "alice")

	c1, wrongPass := e.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "alice", "password": "wrongpass"})
	c2, unknown := e.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "ghost", "password": "password123"})

	if c1 != http.StatusUnauthorized || c2 != http.StatusUnauthorized {
		t.Fatalf("expected 401s, got %d and %d", c1, c2)
	}
	wrongPass.Timestamp, unknown.Timestamp = "", ""
	a, _ := json.Marshal(wrongPass)
	b, _ := json.Marshal(unknown)
	if !bytes.Equal(a, b) {
		t.Fatalf("expected identical bodies:\n%s\n%s", a, b)
	}
	if wrongPass.ErrorCode != "AUTHENTICATION_FAILED" || wrongPass.Message != "Invalid username or password" {
		t.Fatalf("unexpected failure body %+v", wrongPass)
	}
}

func TestRefresh(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "alice")
	tokens := e.login(t, "alice")

	code, env := e.do(t, http.MethodPost, "/api/v1/auth/refresh", "", gin.H{"refreshToken": tokens.RefreshToken})
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d %+v", code, env)
	}

	code, env = e.do(t, http.MethodPost, "/api/v1/auth/refresh", "", gin.H{"refreshToken": tokens.AccessToken})
	if code != http.StatusUnauthorized || env.ErrorCode != "INVALID_TOKEN" {
		t.Fatalf("expected 401 INVALID_TOKEN for access token, got %d %+v", code, env)
	}

	code, env = e.do(t, http.MethodPost, "/api/v1/auth/refresh", "", gin.H{"refreshToken": "garbage"})
	if code != http.StatusUnauthorized || env.ErrorCode != "INVALID_TOKEN" {
		t.Fatalf("expected 401 INVALID_TOKEN, got %d %+v", code, env)
	}
}

func TestRefreshTokenIsNotABearerCredential(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "alice")
	tokens := e.login(t, "alice")

	code, env := e.do(t, http.MethodGet, "/api/v1/users/me", tokens.RefreshToken, nil)
	if code != http.StatusUnauthorized || env.ErrorCode != "AUTHENTICATION_REQUIRED" {
		t.Fatalf("expected 401 AUTHENTICATION_REQUIRED, got %d %+v", code, env)
	}
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	e := newTestEnv(t)
	code, env := e.do(t, http.MethodGet, "/api/v1/users/me", "", nil)
	if code != http.StatusUnauthorized || env.ErrorCode != "AUTHENTICATION_REQUIRED" {
		t.Fatalf("expected 401 AUTHENTICATION_REQUIRED, got %d %+v", code, env)
	}
	code, _ = e.do(t, http.MethodGet, "/api/v1/users/me", "not-a-token", nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", code)
	}
}

func TestAdminRoutes(t *testing.T) {
	e := newTestEnv(t)
	alice := e.register(t, "alice")
	userTokens := e.login(t, "alice")
	adminTokens := e.makeAdmin(t, "root")
	path := "/api/v1/admin/users/" + itoa(alice.ID)

	code, env := e.do(t, http.MethodGet, path, "", nil)
	if code != http.StatusUnauthorized || env.ErrorCode != "AUTHENTICATION_REQUIRED" {
		t.Fatalf("anonymous: expected 401, got %d %+v", code, env)
	}
	code, env = e.do(t, http.MethodGet, path, userTokens.AccessToken, nil)
	if code != http.StatusForbidden || env.ErrorCode != "ACCESS_DENIED" {
		t.Fatalf("user: expected 403, got %d %+v", code, env)
	}
	code, env = e.do(t, http.MethodGet, path, adminTokens.AccessToken, nil)
	if code != http.StatusOK {
		t.Fatalf("admin: expected 200, got %d %+v", code, env)
	}

	code, env = e.do(t, http.MethodGet, "/api/v1/admin/users/9999", adminTokens.AccessToken, nil)
	if code != http.StatusNotFound || env.ErrorCode != "USER_NOT_FOUND" {
		t.Fatalf("expected 404 USER_NOT_FOUND, got %d %+v", code, env)
	}
	code, env = e.do(t, http.MethodGet, "/api/v1/admin/users/abc", adminTokens.AccessToken, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d %+v", code, env)
	}
}

func TestDisabledAccount(t *testing.T) {
	e := newTestEnv(t)
	alice := e.register(t, "alice")
	tokens := e.login(t, "alice")
	adminTokens := e.makeAdmin(t, "root")

	code, env := e.do(t, http.MethodPost, "/api/v1/admin/users/"+itoa(alice.ID)+"/disable", adminTokens.AccessToken, nil)
	if code != http.StatusOK {
		t.Fatalf("disable: expected 200, got %d %+v", code, env)
	}

	code, env = e.do(t, http.MethodGet, "/api/v1/users/me", tokens.AccessToken, nil)
	if code != http.StatusUnauthorized || env.ErrorCode != "AUTHENTICATION_REQUIRED" {
		t.Fatalf("disabled token: expected 401, got %d %+v", code, env)
	}

	code, env = e.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "alice", "password": "password123"})
	if code != http.StatusUnauthorized || env.ErrorCode != "AUTHENTICATION_FAILED" {
		t.Fatalf("disabled login: expected 401, got %d %+v", code, env)
	}

	code, env = e.do(t, http.MethodPost, "/api/v1/auth/refresh", "", gin.H{"refreshToken": tokens.RefreshToken})
	if code != http.StatusUnauthorized || env.ErrorCode != "TOKEN_REFRESH_FAILED" {
		t.Fatalf("disabled refresh: expected 401 TOKEN_REFRESH_FAILED, got %d %+v", code, env)
	}

	code, _ = e.do(t, http.MethodPost, "/api/v1/admin/users/"+itoa(alice.ID)+"/enable", adminTokens.AccessToken, nil)
	if code != http.StatusOK {
		t.Fatalf("enable: expected 200, got %d", code)
	}
	if code, _ = e.do(t, http.MethodGet, "/api/v1/users/me", tokens.AccessToken, nil); code != http.StatusOK {
		t.Fatalf("re-enabled token: expected 200, got %d", code)
	}

	var adminEvents int
	for _, ev := range e.audit.Events() {
		if ev.Type == audit.EventTypeAdminAction {
			adminEvents++
		}
	}
	if adminEvents != 2 {
		t.Fatalf("expected 2 admin audit events, got %d", adminEvents)
	}
}

func TestSelfServiceUpdateAndDelete(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "alice")
	e.register(t, "bob")
	tokens := e.login(t, "alice")

	code, env := e.do(t, http.MethodPut, "/api/v1/users/me", tokens.AccessToken, gin.H{"username": "bob"})
	if code != http.StatusConflict || env.ErrorCode != "DUPLICATE_USERNAME" {
		t.Fatalf("expected 409, got %d %+v", code, env)
	}

	code, env = e.do(t, http.MethodPut, "/api/v1/users/me", tokens.AccessToken, gin.H{"email": ""})
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank email, got %d %+v", code, env)
	}

	code, env = e.do(t, http.MethodPut, "/api/v1/users/me", tokens.AccessToken, gin.H{"username": "alicia"})
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d %+v", code, env)
	}
	// Tokens carry the id, so a rename keeps the session.
	if code, _ = e.do(t, http.MethodGet, "/api/v1/users/me", tokens.AccessToken, nil); code != http.StatusOK {
		t.Fatalf("expected token to survive rename, got %d", code)
	}

	if code, _ = e.do(t, http.MethodDelete, "/api/v1/users/me", tokens.AccessToken, nil); code != http.StatusOK {
		t.Fatalf("expected delete 200, got %d", code)
	}
	if code, _ = e.do(t, http.MethodGet, "/api/v1/users/me", tokens.AccessToken, nil); code != http.StatusUnauthorized {
		t.Fatalf("deleted user's token: expected 401, got %d", code)
	}
}

func TestHealthAndUnknownRoutes(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", w.Code)
	}

	code, env := e.do(t, http.MethodGet, "/api/v1/nope", "", nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("anonymous unknown route: expected 401, got %d %+v", code, env)
	}

	e.register(t, "alice")
	tokens := e.login(t, "alice")
	code, env = e.do(t, http.MethodGet, "/api/v1/nope", tokens.AccessToken, nil)
	if code != http.StatusNotFound || env.ErrorCode != "NOT_FOUND" {
		t.Fatalf("expected 404 NOT_FOUND, got %d %+v", code, env)
	}
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
