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

package identity

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/opentrusty/tenantdesk/internal/authz"
)

// Domain errors
var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrInvalidInput       = errors.New("invalid account input")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password does not meet security requirements")
)

// Account is a user identity. TenantID is empty only for platform
// administrators.
type Account struct {
	ID           string
	TenantID     string
	Email        string
	PasswordHash string
	FullName     string
	Role         authz.Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity returns the authorization identity of the account.
func (a *Account) Identity() authz.Identity {
	return authz.Identity{UserID: a.ID, TenantID: a.TenantID, Role: a.Role}
}

// Target returns the account as an authorization target.
func (a *Account) Target() authz.Target {
	return authz.Target{TenantID: a.TenantID, UserID: a.ID}
}

// Filter narrows account listings.
type Filter struct {
	// TenantID restricts to one tenant. Empty means all tenants.
	TenantID string
	// Search matches email or full name, case-insensitively.
	Search string
	Limit  int
	Offset int
}

// AccountRepository defines the interface for account persistence.
// Uniqueness is (tenant, email); accounts without a tenant are unique by
// email across the platform.
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id string) (*Account, error)
	// FindByEmail looks up an email inside tenantID. An empty tenantID
	// matches only accounts without a tenant.
	FindByEmail(ctx context.Context, tenantID, email string) (*Account, error)
	// FindAllByEmail returns every account using email, in any tenant.
	FindAllByEmail(ctx context.Context, email string) ([]*Account, error)
	// EmailExists checks uniqueness inside tenantID. An empty tenantID
	// checks the whole platform.
	EmailExists(ctx context.Context, tenantID, email string) (bool, error)
	Update(ctx context.Context, account *Account) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter Filter) ([]*Account, int, error)
}

// NormalizeEmail trims and lowercases an address and validates its shape.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if len(email) < 3 || len(email) > 254 {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
