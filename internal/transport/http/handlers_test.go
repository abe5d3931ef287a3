// Copyright 2026 The OpenTrusty Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/opentrusty/tenantdesk/docs"
	"github.com/opentrusty/tenantdesk/internal/audit"
	"github.com/opentrusty/tenantdesk/internal/authz"
	"github.com/opentrusty/tenantdesk/internal/identity"
	"github.com/opentrusty/tenantdesk/internal/project"
	"github.com/opentrusty/tenantdesk/internal/store/memory"
	"github.com/opentrusty/tenantdesk/internal/tenant"
	"github.com/opentrusty/tenantdesk/internal/token"
)

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	testPassword = "correct-horse-battery"
)

type testServer struct {
	router http.Handler
	tokens *token.Service
	db     *memory.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := memory.New()
	tokens, err := token.NewService(token.Config{Secret: testSecret, Issuer: "tenantdesk-test", TTL: time.Hour})
	require.NoError(t, err)

	authzService := authz.NewService(audit.Nop{}, nil)
	identityService := identity.NewService(
		db.Accounts(), db.Tenants(), db.Usage(),
		identity.NewPasswordHasher(1024, 1, 1, 16, 32),
		tokens, authzService, audit.Nop{}, nil, identity.Options{},
	)
	tenantService := tenant.NewService(db.Tenants(), db.Usage(), authzService, audit.Nop{})
	projectService := project.NewService(db.Projects(), db.Tasks(), db.Accounts(), db.Tenants(), db.Usage(), authzService, audit.Nop{})

	h := NewHandler(identityService, tenantService, projectService, db)
	return &testServer{
		router: NewRouter(h, RouterConfig{Tokens: tokens}),
		tokens: tokens,
		db:     db,
	}
}

type envelope struct {
	OK      bool            `json:"ok"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (s *testServer) do(t *testing.T, method, path, bearer string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "body: %s", w.Body.String())
	return w.Code, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func (s *testServer) register(t *testing.T, subdomain string) RegisterResponse {
	t.Helper()
	code, env := s.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{
		TenantName: "Tenant " + subdomain,
		Subdomain:  subdomain,
		Email:      "admin@" + subdomain + ".test",
		Password:   testPassword,
		FullName:   "Admin " + subdomain,
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	return decodeData[RegisterResponse](t, env)
}

func (s *testServer) login(t *testing.T, email, subdomain string) LoginResponse {
	t.Helper()
	code, env := s.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{
		Email:           email,
		Password:        testPassword,
		TenantSubdomain: subdomain,
	})
	require.Equal(t, http.StatusOK, code, env.Message)
	return decodeData[LoginResponse](t, env)
}

// TestPurpose: Validates that a registered tenant admin receives a token bound to the new tenant.
// Scope: Unit Test
// Security: Token tenant binding
// Expected: Login token validates to the registered tenant and account.
func TestAuthFlow_RegisterLoginMe(t *testing.T) {
	s := newTestServer(t)

	reg := s.register(t, "acme")
	assert.Equal(t, "acme", reg.Subdomain)
	assert.Equal(t, string(authz.RoleTenantAdmin), reg.AdminUser.Role)
	assert.Equal(t, reg.TenantID, reg.AdminUser.TenantID)

	login := s.login(t, "admin@acme.test", "acme")
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, int64(3600), login.ExpiresIn)
	require.NotNil(t, login.Tenant)
	assert.Equal(t, "FREE", login.Tenant.SubscriptionPlan)

	id, err := s.tokens.Validate(login.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.TenantID, id.TenantID, "token carries the registered tenant")
	assert.Equal(t, reg.AdminUser.ID, id.UserID)

	code, env := s.do(t, http.MethodGet, "/api/auth/me", login.Token, nil)
	require.Equal(t, http.StatusOK, code)
	me := decodeData[MeResponse](t, env)
	assert.Equal(t, "admin@acme.test", me.User.Email)
	assert.Equal(t, reg.TenantID, me.Tenant.ID)

	code, env = s.do(t, http.MethodPost, "/api/auth/logout", login.Token, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.OK)
}

func TestRegister_Errors(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "acme")

	tests := []struct {
		name     string
		req      RegisterRequest
		wantCode int
	}{
		{"duplicate subdomain", RegisterRequest{TenantName: "Other", Subdomain: "acme", Email: "x@other.test", Password: testPassword, FullName: "X"}, http.StatusConflict},
		{"weak password", RegisterRequest{TenantName: "Beta", Subdomain: "beta", Email: "a@beta.test", Password: "short", FullName: "A"}, http.StatusBadRequest},
		{"bad subdomain", RegisterRequest{TenantName: "Beta", Subdomain: "b!", Email: "a@beta.test", Password: testPassword, FullName: "A"}, http.StatusBadRequest},
		{"bad email", RegisterRequest{TenantName: "Beta", Subdomain: "beta", Email: "not-an-email", Password: testPassword, FullName: "A"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := s.do(t, http.MethodPost, "/api/auth/register", "", tt.req)
			assert.Equal(t, tt.wantCode, code, env.Message)
			assert.False(t, env.OK)
		})
	}
}

func TestRegister_MalformedJSON(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader([]byte(`{invalid_json}`)))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_Errors(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "acme")

	tests := []struct {
		name        string
		req         LoginRequest
		wantCode    int
		wantMessage string
	}{
		{"wrong password", LoginRequest{Email: "admin@acme.test", Password: "wrong-password", TenantSubdomain: "acme"}, http.StatusUnauthorized, "Invalid credentials"},
		{"unknown email", LoginRequest{Email: "ghost@acme.test", Password: testPassword}, http.StatusUnauthorized, "Invalid credentials"},
		{"unknown tenant", LoginRequest{Email: "admin@acme.test", Password: testPassword, TenantSubdomain: "nope"}, http.StatusNotFound, ""},
		{"missing email", LoginRequest{Password: testPassword}, http.StatusBadRequest, "invalid account input: email and password are required"},
		{"missing password", LoginRequest{Email: "admin@acme.test", TenantSubdomain: "acme"}, http.StatusBadRequest, "invalid account input: email and password are required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := s.do(t, http.MethodPost, "/api/auth/login", "", tt.req)
			assert.Equal(t, tt.wantCode, code)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, env.Message)
			}
		})
	}
}

// TestPurpose: Validates that protected routes answer 401 for anonymous callers.
// Scope: Unit Test
// Security: Missing, malformed and expired tokens never authenticate
// Expected: Returns HTTP 401 with "Authentication required".
func TestProtectedRoutes_RequireIdentity(t *testing.T) {
	s := newTestServer(t)

	expired, err := token.NewService(
		token.Config{Secret: testSecret, Issuer: "tenantdesk-test", TTL: time.Hour},
		token.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }),
	)
	require.NoError(t, err)
	stale, err := expired.Issue(authz.Identity{UserID: "0190f6b4-7c2e-7000-8000-000000000001", TenantID: "0190f6b4-7c2e-7000-8000-000000000002", Role: authz.RoleTenantAdmin})
	require.NoError(t, err)

	for name, bearer := range map[string]string{
		"missing": "",
		"garbage": "not-a-token",
		"expired": stale.Token,
	} {
		t.Run(name, func(t *testing.T) {
			code, env := s.do(t, http.MethodGet, "/api/projects", bearer, nil)
			assert.Equal(t, http.StatusUnauthorized, code)
			assert.Equal(t, "Authentication required", env.Message)
		})
	}
}

// TestPurpose: Validates cross-tenant isolation over the HTTP surface.
// Scope: Unit Test
// Security: Tenant boundary enforcement
// Expected: Foreign resources return 403 and listings exclude them.
func TestTenantIsolation(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "acme")
	s.register(t, "globex")
	acme := s.login(t, "admin@acme.test", "acme")
	globex := s.login(t, "admin@globex.test", "globex")

	code, env := s.do(t, http.MethodPost, "/api/projects", globex.Token, CreateProjectRequest{Name: "Secret plans"})
	require.Equal(t, http.StatusCreated, code, env.Message)
	p := decodeData[ProjectResponse](t, env)

	code, env = s.do(t, http.MethodGet, "/api/projects/"+p.ID, acme.Token, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Unauthorized", env.Message)

	code, _ = s.do(t, http.MethodGet, "/api/tenants/"+globex.Tenant.ID, acme.Token, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = s.do(t, http.MethodGet, "/api/projects", acme.Token, nil)
	require.Equal(t, http.StatusOK, code)
	list := decodeData[ProjectListResponse](t, env)
	assert.Empty(t, list.Projects, "other tenants' projects are not listed")

	code, _ = s.do(t, http.MethodGet, "/api/tenants", acme.Token, nil)
	assert.Equal(t, http.StatusForbidden, code, "tenant listing is platform only")
}

func TestProjectLimit(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "acme")
	admin := s.login(t, "admin@acme.test", "acme")

	for i := 0; i < 3; i++ {
		code, env := s.do(t, http.MethodPost, "/api/projects", admin.Token, CreateProjectRequest{Name: "Project"})
		require.Equal(t, http.StatusCreated, code, env.Message)
	}

	code, env := s.do(t, http.MethodPost, "/api/projects", admin.Token, CreateProjectRequest{Name: "One too many"})
	assert.Equal(t, http.StatusConflict, code)
	assert.False(t, env.OK)

	code, env = s.do(t, http.MethodGet, "/api/tenants/"+admin.Tenant.ID, admin.Token, nil)
	require.Equal(t, http.StatusOK, code)
	details := decodeData[TenantResponse](t, env)
	require.NotNil(t, details.Stats)
	assert.Equal(t, 3, details.Stats.TotalProjects)
	assert.Equal(t, 1, details.Stats.TotalUsers)

	code, env = s.do(t, http.MethodGet, "/api/projects?page=2&limit=2", admin.Token, nil)
	require.Equal(t, http.StatusOK, code)
	page := decodeData[ProjectListResponse](t, env)
	assert.Len(t, page.Projects, 1)
	assert.Equal(t, Pagination{CurrentPage: 2, TotalPages: 2, Total: 3, Limit: 2}, page.Pagination)
}

func TestTaskLifecycle(t *testing.T) {
	s := newTestServer(t)
	reg := s.register(t, "acme")
	admin := s.login(t, "admin@acme.test", "acme")

	code, env := s.do(t, http.MethodPost, "/api/tenants/"+reg.TenantID+"/users", admin.Token, CreateUserRequest{
		Email: "dev@acme.test", Password: testPassword, FullName: "Dev",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	dev := decodeData[AccountResponse](t, env)
	assert.Equal(t, string(authz.RoleUser), dev.Role)

	code, env = s.do(t, http.MethodPost, "/api/projects", admin.Token, CreateProjectRequest{Name: "Launch"})
	require.Equal(t, http.StatusCreated, code)
	p := decodeData[ProjectResponse](t, env)

	code, _ = s.do(t, http.MethodPost, "/api/projects/"+p.ID+"/tasks", admin.Token, CreateTaskRequest{Title: "Bad date", DueDate: "31/12/2026"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(t, http.MethodPost, "/api/projects/"+p.ID+"/tasks", admin.Token, CreateTaskRequest{
		Title: "Write copy", AssignedTo: dev.ID, DueDate: "2026-12-31",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	task := decodeData[TaskResponse](t, env)
	assert.Equal(t, "TODO", task.Status)
	assert.Equal(t, "MEDIUM", task.Priority)
	assert.Equal(t, "2026-12-31", task.DueDate)

	code, env = s.do(t, http.MethodPatch, "/api/tasks/"+task.ID+"/status", admin.Token, UpdateTaskStatusRequest{Status: "COMPLETED"})
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.Equal(t, "COMPLETED", decodeData[TaskResponse](t, env).Status)

	empty := ""
	code, env = s.do(t, http.MethodPut, "/api/tasks/"+task.ID, admin.Token, UpdateTaskRequest{DueDate: &empty})
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.Empty(t, decodeData[TaskResponse](t, env).DueDate, "empty dueDate clears it")

	code, env = s.do(t, http.MethodGet, "/api/projects/"+p.ID+"/tasks?status=COMPLETED", admin.Token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decodeData[TaskListResponse](t, env).Tasks, 1)

	user := s.login(t, "dev@acme.test", "acme")
	code, _ = s.do(t, http.MethodGet, "/api/tasks/"+task.ID, user.Token, nil)
	assert.Equal(t, http.StatusOK, code, "members read tasks of their tenant")
	code, _ = s.do(t, http.MethodDelete, "/api/tasks/"+task.ID, user.Token, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(t, http.MethodDelete, "/api/projects/"+p.ID, admin.Token, nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodGet, "/api/tasks/"+task.ID, admin.Token, nil)
	assert.Equal(t, http.StatusNotFound, code, "tasks go with their project")
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, env.OK)
	health := decodeData[HealthResponse](t, env)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "up", health.Store)
}

type downStore struct{}

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealthCheck_StoreDown(t *testing.T) {
	router := NewRouter(NewHandler(nil, nil, nil, downStore{}), RouterConfig{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.False(t, env.OK, "a failing health check must not report ok")
	assert.Equal(t, "store unavailable", env.Message)
	health := decodeData[HealthResponse](t, env)
	assert.Equal(t, "unhealthy", health.Status)
	assert.Equal(t, "down", health.Store)
}

func TestAPIDoc(t *testing.T) {
	router := NewRouter(NewHandler(nil, nil, nil, nil), RouterConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/docs/doc.json", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var doc struct {
		BasePath string `json:"basePath"`
		Paths    map[string]map[string]struct {
			Description string `json:"description"`
		} `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "/api", doc.BasePath)

	users := doc.Paths["/users"]["get"]
	assert.Contains(t, users.Description, "Platform administrators only")
	assert.NotContains(t, users.Description, "tenant administrators see")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err         error
		wantCode    int
		wantMessage string
	}{
		{authz.ErrUnauthenticated, http.StatusUnauthorized, "Authentication required"},
		{identity.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
		{authz.ErrAccessDenied, http.StatusForbidden, "Unauthorized"},
		{identity.ErrAccountInactive, http.StatusForbidden, "Account is inactive"},
		{tenant.ErrTenantInactive, http.StatusForbidden, "Tenant is not active"},
		{project.ErrProjectNotFound, http.StatusNotFound, project.ErrProjectNotFound.Error()},
		{authz.ErrLimitReached, http.StatusConflict, authz.ErrLimitReached.Error()},
		{tenant.ErrSubdomainTaken, http.StatusConflict, tenant.ErrSubdomainTaken.Error()},
		{project.ErrInvalidAssignee, http.StatusBadRequest, "Invalid assigned user"},
		{identity.ErrWeakPassword, http.StatusBadRequest, identity.ErrWeakPassword.Error()},
		{assert.AnError, http.StatusInternalServerError, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			code, msg := classify(tt.err)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantMessage, msg)
		})
	}
}
