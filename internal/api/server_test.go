package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/samsdev/sams-auth/internal/audit"
	"github.com/samsdev/sams-auth/internal/auth"
	"github.com/samsdev/sams-auth/internal/infrastructure/config"
	"github.com/samsdev/sams-auth/internal/infrastructure/logging"
	"github.com/samsdev/sams-auth/internal/staff"
)

const testSecret = "test-secret-key-for-jwt-signing--32b"

// setupTestDB creates an in-memory SQLite database with the full schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE staff_members (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			position TEXT NOT NULL,
			email TEXT NOT NULL,
			photo_url TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;

		CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'user',
			is_active INTEGER NOT NULL DEFAULT 1,
			staff_id INTEGER REFERENCES staff_members(id) ON DELETE SET NULL,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;

		CREATE TABLE audit_logs (
			id TEXT PRIMARY KEY,
			action TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_id TEXT,
			user_id INTEGER,
			source TEXT NOT NULL DEFAULT 'api',
			details TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}

	return db
}

// testEnv bundles the server under test with its repositories.
type testEnv struct {
	srv      *Server
	ts       *httptest.Server
	userRepo *auth.SQLiteUserRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := setupTestDB(t)
	userRepo := auth.NewUserRepository(db)

	srv, err := New(Deps{
		Config: config.ServerConfig{Host: "127.0.0.1", Port: 0},
		Security: config.SecurityConfig{
			JWT:       config.JWTConfig{Secret: testSecret, TokenTTLMinutes: 30},
			Password:  config.PasswordConfig{MinLength: 8},
			RateLimit: config.RateLimitConfig{LoginPerMinute: 600, LoginBurst: 600},
		},
		Logger:    logging.Default(),
		UserRepo:  userRepo,
		StaffRepo: staff.NewRepository(db),
		AuditRepo: audit.NewRepository(db),
		Version:   "test",
	})
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	t.Cleanup(func() { srv.loginLimiter.Stop() })

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{srv: srv, ts: ts, userRepo: userRepo}
}

// doJSON issues a request with a JSON body and decodes the JSON response.
func (e *testEnv) doJSON(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
	}
	return resp.StatusCode
}

// register creates an account through the API and returns the response body.
func (e *testEnv) register(t *testing.T, username, email, password string) map[string]any {
	t.Helper()

	var body map[string]any
	status := e.doJSON(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, &body)
	if status != http.StatusCreated {
		t.Fatalf("register returned %d: %v", status, body)
	}
	return body
}

// login authenticates and returns the access token.
func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()

	var body tokenResponse
	status := e.doJSON(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	}, &body)
	if status != http.StatusOK {
		t.Fatalf("login returned %d", status)
	}
	return body.AccessToken
}

// adminToken seeds an admin account directly and logs it in.
func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()

	hash, err := auth.HashPassword("admin-password")
	if err != nil {
		t.Fatalf("failed to hash admin password: %v", err)
	}
	admin := &auth.User{
		Username:     "admin",
		Email:        "admin@sams.local",
		PasswordHash: hash,
		Role:         auth.RoleAdmin,
		IsActive:     true,
	}
	if err := e.userRepo.Create(context.Background(), admin); err != nil {
		t.Fatalf("failed to create admin: %v", err)
	}
	return e.login(t, "admin@sams.local", "admin-password")
}

func TestRegisterLoginMe(t *testing.T) {
	env := newTestEnv(t)

	created := env.register(t, "alice", "alice@example.com", "s3cret-password")
	if _, ok := created["password_hash"]; ok {
		t.Fatal("register response must not contain the password hash")
	}
	if created["role"] != "user" {
		t.Errorf("role = %v, want user", created["role"])
	}

	token := env.login(t, "alice@example.com", "s3cret-password")

	var me map[string]any
	status := env.doJSON(t, http.MethodGet, "/api/v1/auth/me", token, nil, &me)
	if status != http.StatusOK {
		t.Fatalf("/auth/me returned %d", status)
	}
	if me["email"] != "alice@example.com" {
		t.Errorf("me.email = %v", me["email"])
	}
	if _, ok := me["password_hash"]; ok {
		t.Error("/auth/me must not expose the password hash")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "alice@example.com", "s3cret-password")

	var body Error
	status := env.doJSON(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong-password",
	}, &body)
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", status)
	}

	// Unknown email must be indistinguishable from a wrong password.
	var body2 Error
	status2 := env.doJSON(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "nobody@example.com",
		"password": "wrong-password",
	}, &body2)
	if status2 != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", status2)
	}
	if body.Message != body2.Message || body.Code != body2.Code {
		t.Error("unknown-email and wrong-password responses must match")
	}
}

func TestLoginInvalidEmailFormat(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "alice@example.com", "s3cret-password")

	// A syntactically invalid email is a validation failure, not an
	// authentication failure.
	var body ValidationError
	status := env.doJSON(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "invalid-email",
		"password": "s3cret-password",
	}, &body)
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", status)
	}
	if body.Code != ErrCodeValidation {
		t.Errorf("code = %q, want %q", body.Code, ErrCodeValidation)
	}
	if body.Fields["email"] == "" {
		t.Error("expected a per-field message for email")
	}
}

func TestFailedLoginAuditOmitsEmail(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "alice@example.com", "s3cret-password")

	status := env.doJSON(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong-password",
	}, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", status)
	}

	// Drain the pending audit entry for the failed attempt. Credentials
	// are never persisted, so the submitted email must not appear.
	var entry *audit.Entry
drain:
	for {
		select {
		case e := <-env.srv.auditCh:
			if e.Action == audit.ActionLoginFailed {
				entry = e
			}
		default:
			break drain
		}
	}
	if entry == nil {
		t.Fatal("expected a failed-login audit entry")
	}
	if _, ok := entry.Details["email"]; ok {
		t.Error("failed-login audit entry must not record the email")
	}
	if entry.Details["reason"] != "invalid_credentials" {
		t.Errorf("reason = %v, want invalid_credentials", entry.Details["reason"])
	}
}

func TestLoginFormEncoded(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "alice@example.com", "s3cret-password")

	// Older clients post the email under "username".
	form := url.Values{}
	form.Set("username", "alice@example.com")
	form.Set("password", "s3cret-password")

	resp, err := http.Post(env.ts.URL+"/api/v1/auth/login",
		"application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.TokenType != "bearer" {
		t.Errorf("token_type = %q, want bearer", body.TokenType)
	}
	if body.AccessToken == "" {
		t.Error("access_token should be set")
	}
	if body.ExpiresIn != 30*60 {
		t.Errorf("expires_in = %d, want 1800", body.ExpiresIn)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"bad email", map[string]string{"username": "bob", "email": "not-an-email", "password": "long-enough-pw"}},
		{"short password", map[string]string{"username": "bob", "email": "bob@example.com", "password": "short"}},
		{"bad username", map[string]string{"username": "bob!!", "email": "bob@example.com", "password": "long-enough-pw"}},
		{"missing fields", map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body ValidationError
			status := env.doJSON(t, http.MethodPost, "/api/v1/auth/register", "", tt.body, &body)
			if status != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422", status)
			}
			if body.Code != ErrCodeValidation {
				t.Errorf("code = %q, want %q", body.Code, ErrCodeValidation)
			}
			if len(body.Fields) == 0 {
				t.Error("expected per-field validation messages")
			}
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "alice@example.com", "s3cret-password")

	var body Error
	status := env.doJSON(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "alice2",
		"email":    "alice@example.com",
		"password": "s3cret-password",
	}, &body)
	if status != http.StatusConflict {
		t.Fatalf("status = %d, want 409", status)
	}
	if body.Code != ErrCodeConflict {
		t.Errorf("code = %q, want %q", body.Code, ErrCodeConflict)
	}
}

func TestMeRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	status := env.doJSON(t, http.MethodGet, "/api/v1/auth/me", "", nil, nil)
	if status != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", status)
	}

	status = env.doJSON(t, http.MethodGet, "/api/v1/auth/me", "garbage-token", nil, nil)
	if status != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d, want 401", status)
	}
}

func TestDeactivatedUserLosesAccess(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "alice@example.com", "s3cret-password")
	token := env.login(t, "alice@example.com", "s3cret-password")

	adminToken := env.adminToken(t)

	var users struct {
		Users []auth.User `json:"users"`
	}
	status := env.doJSON(t, http.MethodGet, "/api/v1/users/", adminToken, nil, &users)
	if status != http.StatusOK {
		t.Fatalf("list users returned %d", status)
	}

	var aliceID int64
	for _, u := range users.Users {
		if u.Email == "alice@example.com" {
			aliceID = u.ID
		}
	}
	if aliceID == 0 {
		t.Fatal("alice not found in user list")
	}

	inactive := false
	status = env.doJSON(t, http.MethodPatch, fmt.Sprintf("/api/v1/users/%d/", aliceID), adminToken,
		map[string]any{"is_active": &inactive}, nil)
	if status != http.StatusOK {
		t.Fatalf("deactivate returned %d", status)
	}

	// The still-valid token no longer grants access.
	status = env.doJSON(t, http.MethodGet, "/api/v1/auth/me", token, nil, nil)
	if status != http.StatusForbidden {
		t.Errorf("deactivated /auth/me: status = %d, want 403", status)
	}

	// And logging in again is refused with the inactive error.
	var body Error
	status = env.doJSON(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "s3cret-password",
	}, &body)
	if status != http.StatusForbidden {
		t.Errorf("inactive login: status = %d, want 403", status)
	}
}

func TestUserEndpointsRequireAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "alice@example.com", "s3cret-password")
	token := env.login(t, "alice@example.com", "s3cret-password")

	status := env.doJSON(t, http.MethodGet, "/api/v1/users/", token, nil, nil)
	if status != http.StatusForbidden {
		t.Errorf("non-admin user list: status = %d, want 403", status)
	}

	status = env.doJSON(t, http.MethodGet, "/api/v1/audit", token, nil, nil)
	if status != http.StatusForbidden {
		t.Errorf("non-admin audit list: status = %d, want 403", status)
	}
}

func TestAdminCannotDeactivateSelf(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.adminToken(t)

	var me auth.User
	if status := env.doJSON(t, http.MethodGet, "/api/v1/auth/me", adminToken, nil, &me); status != http.StatusOK {
		t.Fatalf("/auth/me returned %d", status)
	}

	inactive := false
	status := env.doJSON(t, http.MethodPatch, fmt.Sprintf("/api/v1/users/%d/", me.ID), adminToken,
		map[string]any{"is_active": &inactive}, nil)
	if status != http.StatusForbidden {
		t.Errorf("self-deactivation: status = %d, want 403", status)
	}

	role := auth.RoleUser
	status = env.doJSON(t, http.MethodPatch, fmt.Sprintf("/api/v1/users/%d/", me.ID), adminToken,
		map[string]any{"role": &role}, nil)
	if status != http.StatusForbidden {
		t.Errorf("self-demotion: status = %d, want 403", status)
	}

	status = env.doJSON(t, http.MethodDelete, fmt.Sprintf("/api/v1/users/%d/", me.ID), adminToken, nil, nil)
	if status != http.StatusForbidden {
		t.Errorf("self-deletion: status = %d, want 403", status)
	}
}

func TestStaffLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "alice@example.com", "s3cret-password")
	userToken := env.login(t, "alice@example.com", "s3cret-password")
	adminToken := env.adminToken(t)

	// Non-admin cannot create staff.
	status := env.doJSON(t, http.MethodPost, "/api/v1/staff", userToken, map[string]string{
		"name": "Jane Doe", "position": "Director", "email": "jane@example.com",
	}, nil)
	if status != http.StatusForbidden {
		t.Fatalf("non-admin staff create: status = %d, want 403", status)
	}

	var member staff.Member
	status = env.doJSON(t, http.MethodPost, "/api/v1/staff", adminToken, map[string]string{
		"name": "Jane Doe", "position": "Director", "email": "jane@example.com",
	}, &member)
	if status != http.StatusCreated {
		t.Fatalf("staff create: status = %d, want 201", status)
	}

	// Any authenticated user can read the directory.
	var list struct {
		Staff []staff.Member `json:"staff"`
		Count int            `json:"count"`
	}
	status = env.doJSON(t, http.MethodGet, "/api/v1/staff", userToken, nil, &list)
	if status != http.StatusOK {
		t.Fatalf("staff list: status = %d, want 200", status)
	}
	if list.Count != 1 {
		t.Errorf("staff count = %d, want 1", list.Count)
	}

	// Anonymous readers are rejected.
	status = env.doJSON(t, http.MethodGet, "/api/v1/staff", "", nil, nil)
	if status != http.StatusUnauthorized {
		t.Errorf("anonymous staff list: status = %d, want 401", status)
	}

	status = env.doJSON(t, http.MethodDelete, fmt.Sprintf("/api/v1/staff/%d", member.ID), adminToken, nil, nil)
	if status != http.StatusNoContent {
		t.Errorf("staff delete: status = %d, want 204", status)
	}
}

func TestHealthIsPublic(t *testing.T) {
	env := newTestEnv(t)

	var body map[string]any
	status := env.doJSON(t, http.MethodGet, "/api/v1/health", "", nil, &body)
	if status != http.StatusOK {
		t.Fatalf("health: status = %d, want 200", status)
	}
	if body["status"] != "ok" {
		t.Errorf("health status = %v", body["status"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("metrics: status = %d, want 200", resp.StatusCode)
	}
}
