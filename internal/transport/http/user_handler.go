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
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/opentrusty/tenantdesk/internal/identity"
)

// UserListResponse is one page of accounts.
type UserListResponse struct {
	Users      []*AccountResponse `json:"users"`
	Pagination Pagination         `json:"pagination"`
}

// ListUsers lists accounts across tenants
// @Summary List Users
// @Description List accounts across tenants, optionally narrowed by tenantId. Platform administrators only
// @Tags User
// @Produce json
// @Security BearerAuth
// @Param tenantId query string false "Tenant ID"
// @Param search query string false "Email or name fragment"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} Envelope{data=UserListResponse}
// @Failure 403 {object} Envelope
// @Router /users [get]
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pageParams(r, defaultTenantPageSize)
	q := r.URL.Query()

	accounts, total, err := h.identityService.ListAccounts(r.Context(), IdentityFromContext(r.Context()), identity.Filter{
		TenantID: q.Get("tenantId"),
		Search:   q.Get("search"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, "", UserListResponse{
		Users:      newAccountList(accounts),
		Pagination: newPagination(page, limit, total),
	})
}

// GetUser returns one account
// @Summary Get User
// @Tags User
// @Produce json
// @Security BearerAuth
// @Param userID path string true "User ID"
// @Success 200 {object} Envelope{data=AccountResponse}
// @Failure 403 {object} Envelope
// @Failure 404 {object} Envelope
// @Router /users/{userID} [get]
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	acct, err := h.identityService.GetAccount(r.Context(), IdentityFromContext(r.Context()), chi.URLParam(r, "userID"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, "", newAccountResponse(acct))
}

// UpdateUserRequest carries optional account changes. Fields the caller
// may not change are ignored.
type UpdateUserRequest struct {
	FullName *string `json:"fullName,omitempty" example:"Uma User"`
	Email    *string `json:"email,omitempty" example:"uma@acme.test"`
	Password *string `json:"password,omitempty" example:"newsecret123"`
	IsActive *bool   `json:"isActive,omitempty" example:"false"`
}

// UpdateUser changes an account
// @Summary Update User
// @Tags User
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param userID path string true "User ID"
// @Param request body UpdateUserRequest true "Changes"
// @Success 200 {object} Envelope{data=AccountResponse}
// @Failure 400 {object} Envelope
// @Failure 403 {object} Envelope
// @Failure 404 {object} Envelope
// @Failure 409 {object} Envelope
// @Router /users/{userID} [put]
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	acct, err := h.identityService.UpdateAccount(r.Context(), IdentityFromContext(r.Context()), chi.URLParam(r, "userID"), identity.UpdateAccountRequest{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
		IsActive: req.IsActive,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, "User updated successfully", newAccountResponse(acct))
}

// DeleteUser removes an account
// @Summary Delete User
// @Tags User
// @Produce json
// @Security BearerAuth
// @Param userID path string true "User ID"
// @Success 200 {object} Envelope
// @Failure 403 {object} Envelope
// @Failure 404 {object} Envelope
// @Router /users/{userID} [delete]
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.identityService.DeleteAccount(r.Context(), IdentityFromContext(r.Context()), chi.URLParam(r, "userID")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, "User deleted successfully", nil)
}
