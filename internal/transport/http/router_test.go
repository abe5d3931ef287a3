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

package http_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	transportHTTP "github.com/opentrusty/tenantdesk/internal/transport/http"
)

// TestRouterRoutes checks the route table without executing handlers.
func TestRouterRoutes(t *testing.T) {
	h := &transportHTTP.Handler{}
	r := transportHTTP.NewRouter(h, transportHTTP.RouterConfig{Metrics: true})

	tests := []struct {
		method      string
		path        string
		expectFound bool
	}{
		{http.MethodGet, "/health", true},
		{http.MethodGet, "/metrics", true},
		{http.MethodGet, "/api/docs/doc.json", true},
		{http.MethodPost, "/api/auth/register", true},
		{http.MethodPost, "/api/auth/login", true},
		{http.MethodGet, "/api/auth/me", true},
		{http.MethodPost, "/api/auth/logout", true},
		{http.MethodGet, "/api/tenants", true},
		{http.MethodPost, "/api/tenants", false},
		{http.MethodGet, "/api/tenants/t1", true},
		{http.MethodPut, "/api/tenants/t1", true},
		{http.MethodDelete, "/api/tenants/t1", false},
		{http.MethodPost, "/api/tenants/t1/users", true},
		{http.MethodGet, "/api/tenants/t1/users", true},
		{http.MethodGet, "/api/users", true},
		{http.MethodGet, "/api/users/u1", true},
		{http.MethodPut, "/api/users/u1", true},
		{http.MethodDelete, "/api/users/u1", true},
		{http.MethodPost, "/api/projects", true},
		{http.MethodGet, "/api/projects", true},
		{http.MethodGet, "/api/projects/p1", true},
		{http.MethodPut, "/api/projects/p1", true},
		{http.MethodDelete, "/api/projects/p1", true},
		{http.MethodPost, "/api/projects/p1/tasks", true},
		{http.MethodGet, "/api/projects/p1/tasks", true},
		{http.MethodGet, "/api/tasks", true},
		{http.MethodGet, "/api/tasks/t1", true},
		{http.MethodPut, "/api/tasks/t1", true},
		{http.MethodPatch, "/api/tasks/t1/status", true},
		{http.MethodDelete, "/api/tasks/t1", true},
		{http.MethodGet, "/api/v1/auth/login", false},
		{http.MethodGet, "/oauth2/authorize", false},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rctx := chi.NewRouteContext()
			found := r.Match(rctx, req.Method, req.URL.Path)
			if found != tt.expectFound {
				t.Errorf("route %s %s: found=%v, want %v", tt.method, tt.path, found, tt.expectFound)
			}
		})
	}
}
