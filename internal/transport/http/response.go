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
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/opentrusty/tenantdesk/internal/authz"
	"github.com/opentrusty/tenantdesk/internal/identity"
	"github.com/opentrusty/tenantdesk/internal/observability/logger"
	"github.com/opentrusty/tenantdesk/internal/project"
	"github.com/opentrusty/tenantdesk/internal/tenant"
)

// Envelope wraps every JSON response.
type Envelope struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondOK(w http.ResponseWriter, status int, message string, data any) {
	respondJSON(w, status, Envelope{OK: true, Message: message, Data: data})
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, Envelope{OK: false, Message: message})
}

// respondServiceError maps a service error onto a status code and a client
// message. Unexpected errors are logged and answered with a generic message.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := classify(err)
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			logger.Method(r.Method),
			logger.Path(r.URL.Path),
			logger.Error(err),
		)
	}
	respondError(w, status, message)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, authz.ErrUnauthenticated):
		return http.StatusUnauthorized, "Authentication required"
	case errors.Is(err, identity.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, authz.ErrAccessDenied):
		return http.StatusForbidden, "Unauthorized"
	case errors.Is(err, identity.ErrAccountInactive):
		return http.StatusForbidden, "Account is inactive"
	case errors.Is(err, tenant.ErrTenantInactive):
		return http.StatusForbidden, "Tenant is not active"

	case errors.Is(err, tenant.ErrTenantNotFound),
		errors.Is(err, identity.ErrAccountNotFound),
		errors.Is(err, project.ErrProjectNotFound),
		errors.Is(err, project.ErrTaskNotFound):
		return http.StatusNotFound, err.Error()

	case errors.Is(err, tenant.ErrSubdomainTaken),
		errors.Is(err, identity.ErrEmailTaken),
		errors.Is(err, authz.ErrLimitReached):
		return http.StatusConflict, err.Error()

	case errors.Is(err, identity.ErrInvalidInput),
		errors.Is(err, identity.ErrInvalidEmail),
		errors.Is(err, identity.ErrWeakPassword),
		errors.Is(err, tenant.ErrInvalidInput),
		errors.Is(err, project.ErrInvalidInput),
		errors.Is(err, project.ErrTenantRequired),
		errors.Is(err, authz.ErrInvalidRole):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, project.ErrInvalidAssignee):
		return http.StatusBadRequest, "Invalid assigned user"
	}
	return http.StatusInternalServerError, "internal error"
}

// decodeJSON reads the request body into dst and answers 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
