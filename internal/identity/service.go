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
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/opentrusty/tenantdesk/internal/audit"
	"github.com/opentrusty/tenantdesk/internal/authz"
	"github.com/opentrusty/tenantdesk/internal/id"
	"github.com/opentrusty/tenantdesk/internal/observability/logger"
	"github.com/opentrusty/tenantdesk/internal/observability/metrics"
	"github.com/opentrusty/tenantdesk/internal/tenant"
	"github.com/opentrusty/tenantdesk/internal/token"
)

var tracer = otel.Tracer("github.com/opentrusty/tenantdesk/internal/identity")

// DefaultMinPasswordLength applies when Options leaves it unset.
const DefaultMinPasswordLength = 8

// Options tunes account validation.
type Options struct {
	MinPasswordLength int
}

// RegisterRequest creates a tenant together with its first administrator.
type RegisterRequest struct {
	TenantName string
	Subdomain  string
	Email      string
	Password   string
	FullName   string
}

// Registration is the result of RegisterTenant.
type Registration struct {
	Tenant *tenant.Tenant
	Admin  *Account
}

// LoginRequest carries credentials. TenantSubdomain scopes the email
// lookup; without it the email is looked up across all tenants.
type LoginRequest struct {
	Email           string
	Password        string
	TenantSubdomain string
	IPAddress       string
	UserAgent       string
}

// LoginResult is a verified account and its fresh token.
type LoginResult struct {
	Account *Account
	Tenant  *tenant.Tenant
	Token   token.Issued
}

// CreateAccountRequest adds an account to a tenant. Role defaults to USER.
type CreateAccountRequest struct {
	Email    string
	Password string
	FullName string
	Role     authz.Role
}

// UpdateAccountRequest carries optional changes. Fields the actor may not
// change are ignored.
type UpdateAccountRequest struct {
	FullName *string
	Email    *string
	Password *string
	IsActive *bool
}

// Service provides identity-related business logic
type Service struct {
	accounts    AccountRepository
	tenants     tenant.Repository
	usage       tenant.UsageCounter
	gate        *tenant.Gate
	hasher      *PasswordHasher
	tokens      *token.Service
	authz       *authz.Service
	auditLogger audit.Logger
	meter       *metrics.Meter
	minPassword int

	dummyOnce sync.Once
	dummyHash string
}

// NewService creates a new identity service
func NewService(
	accounts AccountRepository,
	tenants tenant.Repository,
	usage tenant.UsageCounter,
	hasher *PasswordHasher,
	tokens *token.Service,
	authzService *authz.Service,
	auditLogger audit.Logger,
	meter *metrics.Meter,
	opts Options,
) *Service {
	if auditLogger == nil {
		auditLogger = audit.Nop{}
	}
	if opts.MinPasswordLength <= 0 {
		opts.MinPasswordLength = DefaultMinPasswordLength
	}
	return &Service{
		accounts:    accounts,
		tenants:     tenants,
		usage:       usage,
		gate:        tenant.NewGate(tenants),
		hasher:      hasher,
		tokens:      tokens,
		authz:       authzService,
		auditLogger: auditLogger,
		meter:       meter,
		minPassword: opts.MinPasswordLength,
	}
}

// RegisterTenant creates an ACTIVE tenant on the FREE plan and its first
// TENANT_ADMIN. No identity is required.
func (s *Service) RegisterTenant(ctx context.Context, req RegisterRequest) (*Registration, error) {
	ctx, span := tracer.Start(ctx, "identity.RegisterTenant")
	defer span.End()

	name := strings.TrimSpace(req.TenantName)
	if name == "" {
		return nil, fmt.Errorf("%w: tenant name is required", ErrInvalidInput)
	}
	subdomain, ok := tenant.NormalizeSubdomain(req.Subdomain)
	if !ok {
		return nil, fmt.Errorf("%w: subdomain must be 3-63 lowercase letters, digits or hyphens", ErrInvalidInput)
	}
	email, err := NormalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if err := s.checkPassword(req.Password); err != nil {
		return nil, err
	}
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return nil, fmt.Errorf("%w: full name is required", ErrInvalidInput)
	}

	if _, err := s.tenants.GetBySubdomain(ctx, subdomain); err == nil {
		return nil, tenant.ErrSubdomainTaken
	} else if !errors.Is(err, tenant.ErrTenantNotFound) {
		return nil, fmt.Errorf("failed to check subdomain: %w", err)
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	t := &tenant.Tenant{
		ID:        id.NewUUIDv7(),
		Name:      name,
		Subdomain: subdomain,
		Status:    tenant.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	t.ApplyPlan(authz.PlanFree)

	if err := s.tenants.Create(ctx, t); err != nil {
		if errors.Is(err, tenant.ErrSubdomainTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}

	admin := &Account{
		ID:           id.NewUUIDv7(),
		TenantID:     t.ID,
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     fullName,
		Role:         authz.RoleTenantAdmin,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accounts.Create(ctx, admin); err != nil {
		// no transaction spans both stores; undo the tenant
		if delErr := s.tenants.Delete(ctx, t.ID); delErr != nil {
			slog.ErrorContext(ctx, "failed to roll back tenant", logger.TenantID(t.ID), logger.Error(delErr))
		}
		span.SetStatus(codes.Error, "create admin")
		return nil, fmt.Errorf("failed to create admin account: %w", err)
	}

	span.SetAttributes(attribute.String("tenant.id", t.ID))
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantRegistered,
		TenantID: t.ID,
		ActorID:  admin.ID,
		Resource: "tenant:" + t.ID,
		Metadata: map[string]any{audit.AttrSubdomain: subdomain, audit.AttrPlan: string(t.Plan)},
	})
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeAccountCreated,
		TenantID: t.ID,
		ActorID:  admin.ID,
		Resource: "account:" + admin.ID,
		Metadata: map[string]any{audit.AttrEmail: email, audit.AttrRole: string(admin.Role)},
	})
	slog.InfoContext(ctx, "tenant registered", logger.TenantID(t.ID), logger.Subdomain(subdomain))

	return &Registration{Tenant: t, Admin: admin}, nil
}

// Login verifies credentials and issues a token. A blank email or password
// is ErrInvalidInput; unknown email and wrong password both yield
// ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	ctx, span := tracer.Start(ctx, "identity.Login")
	defer span.End()

	start := time.Now()
	result, reason, err := s.login(ctx, req)
	if err != nil {
		s.meter.RecordLogin(ctx, reason)
		s.meter.RecordLoginDuration(ctx, reason, time.Since(start))
		s.auditLogger.Log(ctx, audit.Event{
			Type:      audit.TypeLoginFailed,
			Resource:  "login",
			IPAddress: req.IPAddress,
			UserAgent: req.UserAgent,
			Metadata: map[string]any{
				audit.AttrReason:    reason,
				audit.AttrEmail:     strings.ToLower(strings.TrimSpace(req.Email)),
				audit.AttrSubdomain: req.TenantSubdomain,
			},
		})
		span.SetStatus(codes.Error, reason)
		return nil, err
	}

	s.meter.RecordLogin(ctx, "success")
	s.meter.RecordLoginDuration(ctx, "success", time.Since(start))
	s.meter.RecordTokenIssued(ctx, string(result.Account.Role))
	s.auditLogger.Log(ctx, audit.Event{
		Type:      audit.TypeLoginSuccess,
		TenantID:  result.Account.TenantID,
		ActorID:   result.Account.ID,
		Resource:  "login",
		IPAddress: req.IPAddress,
		UserAgent: req.UserAgent,
	})
	return result, nil
}

func (s *Service) login(ctx context.Context, req LoginRequest) (*LoginResult, string, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, "invalid_input", fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	email, err := NormalizeEmail(req.Email)
	if err != nil || req.Password == "" {
		s.burnVerify(req.Password)
		return nil, "invalid_credentials", ErrInvalidCredentials
	}

	var (
		t       *tenant.Tenant
		account *Account
	)

	if sub := strings.TrimSpace(req.TenantSubdomain); sub != "" {
		sub, _ = tenant.NormalizeSubdomain(sub)
		t, err = s.tenants.GetBySubdomain(ctx, sub)
		if err != nil {
			if errors.Is(err, tenant.ErrTenantNotFound) {
				return nil, "tenant_not_found", err
			}
			return nil, "error", fmt.Errorf("failed to load tenant: %w", err)
		}
		if !t.Active() {
			return nil, "tenant_inactive", tenant.ErrTenantInactive
		}

		account, err = s.accounts.FindByEmail(ctx, t.ID, email)
		if err != nil && !errors.Is(err, ErrAccountNotFound) {
			return nil, "error", fmt.Errorf("failed to find account: %w", err)
		}
		if account == nil || !s.hasher.Verify(req.Password, account.PasswordHash) {
			if account == nil {
				s.burnVerify(req.Password)
			}
			return nil, "invalid_credentials", ErrInvalidCredentials
		}
	} else {
		candidates, err := s.accounts.FindAllByEmail(ctx, email)
		if err != nil {
			return nil, "error", fmt.Errorf("failed to find account: %w", err)
		}
		if len(candidates) == 0 {
			s.burnVerify(req.Password)
		}
		// the same email may exist in several tenants; the password decides
		for _, c := range candidates {
			if s.hasher.Verify(req.Password, c.PasswordHash) {
				account = c
				break
			}
		}
		if account == nil {
			return nil, "invalid_credentials", ErrInvalidCredentials
		}
	}

	if !account.IsActive {
		return nil, "account_inactive", ErrAccountInactive
	}

	if account.TenantID != "" && t == nil {
		t, err = s.tenants.GetByID(ctx, account.TenantID)
		if err != nil {
			return nil, "error", fmt.Errorf("failed to load tenant: %w", err)
		}
	}
	if t != nil && !t.Active() {
		return nil, "tenant_inactive", tenant.ErrTenantInactive
	}

	issued, err := s.tokens.Issue(account.Identity())
	if err != nil {
		return nil, "error", fmt.Errorf("failed to issue token: %w", err)
	}

	return &LoginResult{Account: account, Tenant: t, Token: issued}, "", nil
}

// burnVerify spends one hash verification so unknown emails cost about as
// much as wrong passwords.
func (s *Service) burnVerify(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("tenantdesk-dummy-password")
	})
	s.hasher.Verify(password, s.dummyHash)
}

// Me returns the actor's own account and tenant.
func (s *Service) Me(ctx context.Context, actor authz.Identity) (*Account, *tenant.Tenant, error) {
	if !actor.Authenticated() {
		return nil, nil, authz.ErrUnauthenticated
	}

	account, err := s.accounts.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.authz.Authorize(ctx, actor, authz.OpAccountRead, account.Target()); err != nil {
		return nil, nil, err
	}

	if account.TenantID == "" {
		return account, nil, nil
	}
	t, err := s.tenants.GetByID(ctx, account.TenantID)
	if err != nil {
		return nil, nil, err
	}
	return account, t, nil
}

// Logout acknowledges a logout. Tokens are stateless and stay valid until
// they expire.
func (s *Service) Logout(ctx context.Context, actor authz.Identity) {
	if !actor.Authenticated() {
		return
	}
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeLogout,
		TenantID: actor.TenantID,
		ActorID:  actor.UserID,
		Resource: "logout",
	})
}

// CreateAccount adds an account to tenantID, subject to the tenant's user
// limit.
func (s *Service) CreateAccount(ctx context.Context, actor authz.Identity, tenantID string, req CreateAccountRequest) (*Account, error) {
	ctx, span := tracer.Start(ctx, "identity.CreateAccount")
	defer span.End()

	target := authz.Target{TenantID: tenantID}
	if err := s.authz.Authorize(ctx, actor, authz.OpAccountCreate, target); err != nil {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = authz.RoleUser
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	if role == authz.RoleSuperAdmin {
		if err := s.authz.Authorize(ctx, actor, authz.OpAccountGrantPlatform, target); err != nil {
			return nil, err
		}
	}
	if err := s.gate.Check(ctx, actor); err != nil {
		return nil, err
	}

	email, err := NormalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if err := s.checkPassword(req.Password); err != nil {
		return nil, err
	}
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return nil, fmt.Errorf("%w: full name is required", ErrInvalidInput)
	}

	t, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	count, err := s.usage.CountAccounts(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to count accounts: %w", err)
	}
	if err := s.authz.CheckQuota(ctx, actor, tenantID, "user", count, t.MaxUsers); err != nil {
		return nil, err
	}

	exists, err := s.accounts.EmailExists(ctx, tenantID, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, ErrEmailTaken
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	account := &Account{
		ID:           id.NewUUIDv7(),
		TenantID:     tenantID,
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     fullName,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeAccountCreated,
		TenantID: tenantID,
		ActorID:  actor.UserID,
		Resource: "account:" + account.ID,
		Metadata: map[string]any{audit.AttrEmail: email, audit.AttrRole: string(role)},
	})
	return account, nil
}

// GetAccount returns one account.
func (s *Service) GetAccount(ctx context.Context, actor authz.Identity, accountID string) (*Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(ctx, actor, authz.OpAccountRead, account.Target()); err != nil {
		return nil, err
	}
	if err := s.gate.Check(ctx, actor); err != nil {
		return nil, err
	}
	return account, nil
}

// ListAccounts lists accounts of every tenant, optionally filtered.
func (s *Service) ListAccounts(ctx context.Context, actor authz.Identity, filter Filter) ([]*Account, int, error) {
	if err := s.authz.Authorize(ctx, actor, authz.OpAccountListAll, authz.Target{TenantID: filter.TenantID}); err != nil {
		return nil, 0, err
	}
	filter.Limit, filter.Offset = tenant.ClampPage(filter.Limit, filter.Offset)
	accounts, total, err := s.accounts.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, total, nil
}

// ListTenantAccounts lists the accounts of one tenant.
func (s *Service) ListTenantAccounts(ctx context.Context, actor authz.Identity, tenantID string, filter Filter) ([]*Account, int, error) {
	if err := s.authz.Authorize(ctx, actor, authz.OpAccountList, authz.Target{TenantID: tenantID}); err != nil {
		return nil, 0, err
	}
	if err := s.gate.Check(ctx, actor); err != nil {
		return nil, 0, err
	}
	if _, err := s.tenants.GetByID(ctx, tenantID); err != nil {
		return nil, 0, err
	}

	filter.TenantID = tenantID
	filter.Limit, filter.Offset = tenant.ClampPage(filter.Limit, filter.Offset)
	accounts, total, err := s.accounts.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, total, nil
}

// UpdateAccount applies req. Anyone may rename their own account; email
// and password need account.update, and activation needs
// account.update.active. Fields outside the actor's rights are dropped.
func (s *Service) UpdateAccount(ctx context.Context, actor authz.Identity, accountID string, req UpdateAccountRequest) (*Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	target := account.Target()
	if err := s.authz.Authorize(ctx, actor, authz.OpAccountUpdateSelf, target); err != nil {
		return nil, err
	}
	if err := s.gate.Check(ctx, actor); err != nil {
		return nil, err
	}

	privileged := s.authz.Allowed(actor, authz.OpAccountUpdate, target)
	passwordChanged := false

	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return nil, fmt.Errorf("%w: full name must not be blank", ErrInvalidInput)
		}
		account.FullName = name
	}

	if req.Email != nil && privileged {
		email, err := NormalizeEmail(*req.Email)
		if err != nil {
			return nil, err
		}
		if email != account.Email {
			exists, err := s.accounts.EmailExists(ctx, account.TenantID, email)
			if err != nil {
				return nil, fmt.Errorf("failed to check email: %w", err)
			}
			if exists {
				return nil, ErrEmailTaken
			}
			account.Email = email
		}
	}

	if req.Password != nil && privileged {
		if err := s.checkPassword(*req.Password); err != nil {
			return nil, err
		}
		hash, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		account.PasswordHash = hash
		passwordChanged = true
	}

	if req.IsActive != nil && s.authz.Allowed(actor, authz.OpAccountUpdateActive, target) {
		account.IsActive = *req.IsActive
	}

	account.UpdatedAt = time.Now()
	if err := s.accounts.Update(ctx, account); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	eventType := audit.TypeAccountUpdated
	if passwordChanged {
		eventType = audit.TypePasswordChanged
	}
	s.auditLogger.Log(ctx, audit.Event{
		Type:     eventType,
		TenantID: account.TenantID,
		ActorID:  actor.UserID,
		Resource: "account:" + account.ID,
	})
	return account, nil
}

// DeleteAccount removes an account. Tenant admins cannot delete their own
// account.
func (s *Service) DeleteAccount(ctx context.Context, actor authz.Identity, accountID string) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if err := s.authz.Authorize(ctx, actor, authz.OpAccountDelete, account.Target()); err != nil {
		return err
	}
	if err := s.gate.Check(ctx, actor); err != nil {
		return err
	}

	if err := s.accounts.Delete(ctx, account.ID); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete account: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeAccountDeleted,
		TenantID: account.TenantID,
		ActorID:  actor.UserID,
		Resource: "account:" + account.ID,
		Metadata: map[string]any{audit.AttrEmail: account.Email},
	})
	return nil
}

func (s *Service) checkPassword(password string) error {
	if len(password) < s.minPassword {
		return fmt.Errorf("%w: at least %d characters required", ErrWeakPassword, s.minPassword)
	}
	return nil
}
