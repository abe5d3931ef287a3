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

	"github.com/opentrusty/tenantdesk/internal/identity"
)

// RegisterRequest represents tenant registration data
type RegisterRequest struct {
	TenantName string `json:"tenantName" example:"Acme Corp"`
	Subdomain  string `json:"subdomain" example:"acme"`
	Email      string `json:"email" example:"admin@acme.test"`
	Password   string `json:"password" example:"secret123"`
	FullName   string `json:"fullName" example:"Ada Admin"`
}

// RegisterResponse is returned by Register.
type RegisterResponse struct {
	TenantID  string           `json:"tenantId"`
	Subdomain string           `json:"subdomain"`
	AdminUser *AccountResponse `json:"adminUser"`
}

// Register handles tenant registration
// @Summary Register a tenant
// @Description Create a tenant on the FREE plan together with its first administrator
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration Data"
// @Success 201 {object} Envelope{data=RegisterResponse}
// @Failure 400 {object} Envelope
// @Failure 409 {object} Envelope
// @Router /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	reg, err := h.identityService.RegisterTenant(r.Context(), identity.RegisterRequest{
		TenantName: req.TenantName,
		Subdomain:  req.Subdomain,
		Email:      req.Email,
		Password:   req.Password,
		FullName:   req.FullName,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondOK(w, http.StatusCreated, "Tenant registered successfully", RegisterResponse{
		TenantID:  reg.Tenant.ID,
		Subdomain: reg.Tenant.Subdomain,
		AdminUser: newAccountResponse(reg.Admin),
	})
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email           string `json:"email" example:"admin@acme.test"`
	Password        string `json:"password" example:"secret123"`
	TenantSubdomain string `json:"tenantSubdomain,omitempty" example:"acme"`
}

// LoginResponse carries the issued token.
type LoginResponse struct {
	Token     string           `json:"token"`
	ExpiresIn int64            `json:"expiresIn"`
	User      *AccountResponse `json:"user"`
	Tenant    *TenantResponse  `json:"tenant,omitempty"`
}

// Login handles user login
// @Summary Login
// @Description Verify credentials and issue a bearer token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} Envelope{data=LoginResponse}
// @Failure 401 {object} Envelope
// @Failure 403 {object} Envelope
// @Failure 404 {object} Envelope
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.identityService.Login(r.Context(), identity.LoginRequest{
		Email:           req.Email,
		Password:        req.Password,
		TenantSubdomain: req.TenantSubdomain,
		IPAddress:       getClientIP(r),
		UserAgent:       r.UserAgent(),
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondOK(w, http.StatusOK, "Login successful", LoginResponse{
		Token:     res.Token.Token,
		ExpiresIn: res.Token.ExpiresIn,
		User:      newAccountResponse(res.Account),
		Tenant:    newTenantResponse(res.Tenant),
	})
}

// MeResponse describes the caller.
type MeResponse struct {
	User   *AccountResponse `json:"user"`
	Tenant *TenantResponse  `json:"tenant,omitempty"`
}

// Me returns the current authenticated account
// @Summary Current account
// @Description Retrieve the account and tenant behind the bearer token
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Envelope{data=MeResponse}
// @Failure 401 {object} Envelope
// @Failure 404 {object} Envelope
// @Router /auth/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	acct, t, err := h.identityService.Me(r.Context(), IdentityFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, "", MeResponse{
		User:   newAccountResponse(acct),
		Tenant: newTenantResponse(t),
	})
}

// Logout acknowledges a logout
// @Summary Logout
// @Description Tokens are stateless; clients discard them
// @Tags Auth
// @Produce json
// @Success 200 {object} Envelope
// @Router /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.identityService.Logout(r.Context(), IdentityFromContext(r.Context()))
	respondOK(w, http.StatusOK, "Logged out successfully", nil)
}
