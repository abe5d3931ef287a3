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

	"github.com/opentrusty/tenantdesk/internal/authz"
	"github.com/opentrusty/tenantdesk/internal/identity"
	"github.com/opentrusty/tenantdesk/internal/tenant"
)

const defaultTenantPageSize = 20

// TenantListResponse is one page of tenants.
type TenantListResponse struct {
	Tenants    []*TenantResponse `json:"tenants"`
	Pagination Pagination        `json:"pagination"`
}

// ListTenants lists all tenants
// @Summary List Tenants
// @Description List tenants, newest first. Platform administrators only
// @Tags Tenant
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} Envelope{data=TenantListResponse}
// @Failure 401 {object} Envelope
// @Failure 403 {object} Envelope
// @Router /tenants [get]
func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pageParams(r, defaultTenantPageSize)

	tenants, total, err := h.tenantService.ListTenants(r.Context(), IdentityFromContext(r.Context()), limit, offset)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	out := make([]*TenantResponse, 0, len(tenants))
	for _, t := range tenants {
		out = append(out, newTenantResponse(t))
	}
	respondOK(w, http.StatusOK, "", TenantListResponse{
		Tenants:    out,
		Pagination: newPagination(page, limit, total),
	})
}

// GetTenant returns a tenant with usage stats
// @Summary Get Tenant
// @Tags Tenant
// @Produce json
// @Security BearerAuth
// @Param tenantID path string true "Tenant ID"
// @Success 200 {object} Envelope{data=TenantResponse}
// @Failure 403 {object} Envelope
// @Failure 404 {object} Envelope
// @Router /tenants/{tenantID} [get]
func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	d, err := h.tenantService.GetTenant(r.Context(), IdentityFromContext(r.Context()), chi.URLParam(r, "tenantID"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, "", newTenantDetails(d))
}

// UpdateTenantRequest carries optional tenant changes.
type UpdateTenantRequest struct {
	Name             *string `json:"name,omitempty" example:"Acme Corporation"`
	Status           *string `json:"status,omitempty" example:"SUSPENDED"`
	SubscriptionPlan *string `json:"subscriptionPlan,omitempty" example:"PRO"`
}

// UpdateTenant changes a tenant
// @Summary Update Tenant
// @Description Tenant administrators may rename their tenant; status and plan changes are reserved to platform administrators
// @Tags Tenant
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param tenantID path string true "Tenant ID"
// @Param request body UpdateTenantRequest true "Changes"
// @Success 200 {object} Envelope{data=TenantResponse}
// @Failure 400 {object} Envelope
// @Failure 403 {object} Envelope
// @Failure 404 {object} Envelope
// @Router /tenants/{tenantID} [put]
func (h *Handler) UpdateTenant(w http.ResponseWriter, r *http.Request) {
	var req UpdateTenantRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	upd := tenant.UpdateRequest{Name: req.Name}
	if req.Status != nil {
		s := tenant.Status(*req.Status)
		upd.Status = &s
	}
	if req.SubscriptionPlan != nil {
		p := authz.Plan(*req.SubscriptionPlan)
		upd.Plan = &p
	}

	d, err := h.tenantService.UpdateTenant(r.Context(), IdentityFromContext(r.Context()), chi.URLParam(r, "tenantID"), upd)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, "Tenant updated successfully", newTenantDetails(d))
}

// CreateUserRequest represents account creation data
type CreateUserRequest struct {
	Email    string `json:"email" example:"user@acme.test"`
	Password string `json:"password" example:"secret123"`
	FullName string `json:"fullName" example:"Uma User"`
	Role     string `json:"role,omitempty" example:"USER"`
}

// CreateTenantUser adds an account to a tenant
// @Summary Create Tenant User
// @Description Create an account in the tenant, subject to the plan's user limit
// @Tags Tenant
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param tenantID path string true "Tenant ID"
// @Param request body CreateUserRequest true "User Data"
// @Success 201 {object} Envelope{data=AccountResponse}
// @Failure 400 {object} Envelope
// @Failure 403 {object} Envelope
// @Failure 409 {object} Envelope
// @Router /tenants/{tenantID}/users [post]
func (h *Handler) CreateTenantUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	acct, err := h.identityService.CreateAccount(r.Context(), IdentityFromContext(r.Context()), chi.URLParam(r, "tenantID"), identity.CreateAccountRequest{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Role:     authz.Role(req.Role),
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusCreated, "User created successfully", newAccountResponse(acct))
}

// ListTenantUsers lists the accounts of a tenant
// @Summary List Tenant Users
// @Tags Tenant
// @Produce json
// @Security BearerAuth
// @Param tenantID path string true "Tenant ID"
// @Param search query string false "Email or name fragment"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} Envelope{data=UserListResponse}
// @Failure 403 {object} Envelope
// @Router /tenants/{tenantID}/users [get]
func (h *Handler) ListTenantUsers(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pageParams(r, defaultTenantPageSize)

	accounts, total, err := h.identityService.ListTenantAccounts(r.Context(), IdentityFromContext(r.Context()), chi.URLParam(r, "tenantID"), identity.Filter{
		Search: r.URL.Query().Get("search"),
		Limit:  limit,
		Offset: offset,
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
