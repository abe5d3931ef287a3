package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opentrusty/tenantdesk/internal/audit"
	"github.com/opentrusty/tenantdesk/internal/authz"
	"github.com/opentrusty/tenantdesk/internal/identity"
	"github.com/opentrusty/tenantdesk/internal/store/memory"
	"github.com/opentrusty/tenantdesk/internal/tenant"
	"github.com/opentrusty/tenantdesk/internal/token"
)

const testPassword = "correct-horse-battery"

type recordingAudit struct {
	events []audit.Event
}

func (r *recordingAudit) Log(_ context.Context, e audit.Event) {
	r.events = append(r.events, e)
}

func (r *recordingAudit) types() []string {
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	db     *memory.DB
	svc    *identity.Service
	tokens *token.Service
	audit  *recordingAudit
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memory.New()
	tokens, err := token.NewService(token.Config{
		Secret: "0123456789abcdef0123456789abcdef",
		Issuer: "tenantdesk-test",
		TTL:    time.Hour,
	})
	require.NoError(t, err)

	rec := &recordingAudit{}
	svc := identity.NewService(
		db.Accounts(),
		db.Tenants(),
		db.Usage(),
		identity.NewPasswordHasher(1024, 1, 1, 16, 32),
		tokens,
		authz.NewService(rec, nil),
		rec,
		nil,
		identity.Options{},
	)
	return &fixture{db: db, svc: svc, tokens: tokens, audit: rec}
}

func (f *fixture) register(t *testing.T, subdomain, email string) *identity.Registration {
	t.Helper()
	reg, err := f.svc.RegisterTenant(context.Background(), identity.RegisterRequest{
		TenantName: "Tenant " + subdomain,
		Subdomain:  subdomain,
		Email:      email,
		Password:   testPassword,
		FullName:   "Admin " + subdomain,
	})
	require.NoError(t, err)
	return reg
}

func (f *fixture) addUser(t *testing.T, reg *identity.Registration, email string, role authz.Role) *identity.Account {
	t.Helper()
	a, err := f.svc.CreateAccount(context.Background(), reg.Admin.Identity(), reg.Tenant.ID, identity.CreateAccountRequest{
		Email:    email,
		Password: testPassword,
		FullName: "User " + email,
		Role:     role,
	})
	require.NoError(t, err)
	return a
}

func TestRegisterTenant(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, "Acme", "Owner@Example.com")

	assert.Equal(t, "acme", reg.Tenant.Subdomain)
	assert.Equal(t, tenant.StatusActive, reg.Tenant.Status)
	assert.Equal(t, authz.PlanFree, reg.Tenant.Plan)
	assert.Equal(t, 5, reg.Tenant.MaxUsers)
	assert.Equal(t, 3, reg.Tenant.MaxProjects)

	assert.Equal(t, authz.RoleTenantAdmin, reg.Admin.Role)
	assert.Equal(t, reg.Tenant.ID, reg.Admin.TenantID)
	assert.Equal(t, "owner@example.com", reg.Admin.Email)
	assert.NotEqual(t, testPassword, reg.Admin.PasswordHash)
	assert.True(t, reg.Admin.IsActive)

	assert.Equal(t, []string{audit.TypeTenantRegistered, audit.TypeAccountCreated}, f.audit.types())
}

func TestRegisterTenant_Validation(t *testing.T) {
	f := newFixture(t)
	f.register(t, "acme", "owner@example.com")

	tests := []struct {
		name    string
		req     identity.RegisterRequest
		wantErr error
	}{
		{"taken subdomain", identity.RegisterRequest{TenantName: "X", Subdomain: "ACME", Email: "a@example.com", Password: testPassword, FullName: "A"}, tenant.ErrSubdomainTaken},
		{"bad subdomain", identity.RegisterRequest{TenantName: "X", Subdomain: "-x", Email: "a@example.com", Password: testPassword, FullName: "A"}, identity.ErrInvalidInput},
		{"bad email", identity.RegisterRequest{TenantName: "X", Subdomain: "beta", Email: "nope", Password: testPassword, FullName: "A"}, identity.ErrInvalidEmail},
		{"short password", identity.RegisterRequest{TenantName: "X", Subdomain: "beta", Email: "a@example.com", Password: "short", FullName: "A"}, identity.ErrWeakPassword},
		{"missing name", identity.RegisterRequest{Subdomain: "beta", Email: "a@example.com", Password: testPassword, FullName: "A"}, identity.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.RegisterTenant(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLogin_TokenCarriesTenant(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, "acme", "owner@example.com")

	res, err := f.svc.Login(context.Background(), identity.LoginRequest{
		Email:           "OWNER@example.com",
		Password:        testPassword,
		TenantSubdomain: "acme",
	})
	require.NoError(t, err)
	assert.Equal(t, reg.Admin.ID, res.Account.ID)
	assert.Equal(t, int64(3600), res.Token.ExpiresIn)

	actor, err := f.tokens.Validate(res.Token.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.Admin.ID, actor.UserID)
	assert.Equal(t, reg.Tenant.ID, actor.TenantID)
	assert.Equal(t, authz.RoleTenantAdmin, actor.Role)
}

func TestLogin_GlobalPicksAccountByPassword(t *testing.T) {
	f := newFixture(t)
	f.register(t, "acme", "shared@example.com")
	other := f.register(t, "globex", "owner@example.com")

	ctx := context.Background()
	_, err := f.svc.CreateAccount(ctx, other.Admin.Identity(), other.Tenant.ID, identity.CreateAccountRequest{
		Email:    "shared@example.com",
		Password: "a-different-password",
		FullName: "Shared",
	})
	require.NoError(t, err)

	res, err := f.svc.Login(ctx, identity.LoginRequest{Email: "shared@example.com", Password: "a-different-password"})
	require.NoError(t, err)
	assert.Equal(t, other.Tenant.ID, res.Account.TenantID)
}

func TestLogin_Failures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := f.register(t, "acme", "owner@example.com")
	user := f.addUser(t, reg, "user@example.com", authz.RoleUser)

	user.IsActive = false
	require.NoError(t, f.db.Accounts().Update(ctx, user))

	tests := []struct {
		name    string
		req     identity.LoginRequest
		wantErr error
	}{
		{"wrong password", identity.LoginRequest{Email: "owner@example.com", Password: "wrong-password", TenantSubdomain: "acme"}, identity.ErrInvalidCredentials},
		{"unknown email", identity.LoginRequest{Email: "ghost@example.com", Password: testPassword, TenantSubdomain: "acme"}, identity.ErrInvalidCredentials},
		{"unknown email global", identity.LoginRequest{Email: "ghost@example.com", Password: testPassword}, identity.ErrInvalidCredentials},
		{"malformed email", identity.LoginRequest{Email: "ghost", Password: testPassword}, identity.ErrInvalidCredentials},
		{"blank email", identity.LoginRequest{Email: "  ", Password: testPassword}, identity.ErrInvalidInput},
		{"blank password", identity.LoginRequest{Email: "owner@example.com", TenantSubdomain: "acme"}, identity.ErrInvalidInput},
		{"unknown tenant", identity.LoginRequest{Email: "owner@example.com", Password: testPassword, TenantSubdomain: "nowhere"}, tenant.ErrTenantNotFound},
		{"inactive account", identity.LoginRequest{Email: "user@example.com", Password: testPassword, TenantSubdomain: "acme"}, identity.ErrAccountInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Login(ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.Contains(t, f.audit.types(), audit.TypeLoginFailed)
}

func TestLogin_SuspendedTenant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := f.register(t, "acme", "owner@example.com")

	reg.Tenant.Status = tenant.StatusSuspended
	require.NoError(t, f.db.Tenants().Update(ctx, reg.Tenant))

	_, err := f.svc.Login(ctx, identity.LoginRequest{Email: "owner@example.com", Password: testPassword, TenantSubdomain: "acme"})
	assert.ErrorIs(t, err, tenant.ErrTenantInactive)

	_, err = f.svc.Login(ctx, identity.LoginRequest{Email: "owner@example.com", Password: testPassword})
	assert.ErrorIs(t, err, tenant.ErrTenantInactive)
}

func TestAccountAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme := f.register(t, "acme", "owner@example.com")
	globex := f.register(t, "globex", "boss@example.com")
	alice := f.addUser(t, acme, "alice@example.com", authz.RoleUser)
	bob := f.addUser(t, acme, "bob@example.com", authz.RoleUser)

	t.Run("user reads self", func(t *testing.T) {
		got, err := f.svc.GetAccount(ctx, alice.Identity(), alice.ID)
		require.NoError(t, err)
		assert.Equal(t, alice.Email, got.Email)
	})

	t.Run("user cannot read peer", func(t *testing.T) {
		_, err := f.svc.GetAccount(ctx, alice.Identity(), bob.ID)
		assert.ErrorIs(t, err, authz.ErrAccessDenied)
	})

	t.Run("user cannot delete peer", func(t *testing.T) {
		err := f.svc.DeleteAccount(ctx, alice.Identity(), bob.ID)
		assert.ErrorIs(t, err, authz.ErrAccessDenied)
		_, err = f.db.Accounts().GetByID(ctx, bob.ID)
		assert.NoError(t, err, "peer survives")
	})

	t.Run("admin cannot reach other tenant", func(t *testing.T) {
		_, err := f.svc.GetAccount(ctx, globex.Admin.Identity(), alice.ID)
		assert.ErrorIs(t, err, authz.ErrAccessDenied)
		_, _, err = f.svc.ListTenantAccounts(ctx, globex.Admin.Identity(), acme.Tenant.ID, identity.Filter{})
		assert.ErrorIs(t, err, authz.ErrAccessDenied)
	})

	t.Run("admin cannot delete self", func(t *testing.T) {
		err := f.svc.DeleteAccount(ctx, acme.Admin.Identity(), acme.Admin.ID)
		assert.ErrorIs(t, err, authz.ErrAccessDenied)
	})

	t.Run("admin deletes member", func(t *testing.T) {
		require.NoError(t, f.svc.DeleteAccount(ctx, acme.Admin.Identity(), bob.ID))
		_, err := f.svc.GetAccount(ctx, acme.Admin.Identity(), bob.ID)
		assert.ErrorIs(t, err, identity.ErrAccountNotFound)
	})

	t.Run("user cannot list", func(t *testing.T) {
		_, _, err := f.svc.ListTenantAccounts(ctx, alice.Identity(), acme.Tenant.ID, identity.Filter{})
		assert.ErrorIs(t, err, authz.ErrAccessDenied)
	})

	t.Run("anonymous", func(t *testing.T) {
		_, err := f.svc.GetAccount(ctx, authz.Identity{}, alice.ID)
		assert.ErrorIs(t, err, authz.ErrUnauthenticated)
	})
}

func TestUpdateAccount_DropsUnauthorizedFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := f.register(t, "acme", "owner@example.com")
	alice := f.addUser(t, reg, "alice@example.com", authz.RoleUser)

	name := "Alice Liddell"
	email := "new@example.com"
	active := false
	got, err := f.svc.UpdateAccount(ctx, alice.Identity(), alice.ID, identity.UpdateAccountRequest{
		FullName: &name,
		Email:    &email,
		IsActive: &active,
	})
	require.NoError(t, err)
	assert.Equal(t, name, got.FullName)
	assert.Equal(t, "alice@example.com", got.Email, "users cannot change their email")
	assert.True(t, got.IsActive, "users cannot deactivate themselves")

	got, err = f.svc.UpdateAccount(ctx, reg.Admin.Identity(), alice.ID, identity.UpdateAccountRequest{Email: &email, IsActive: &active})
	require.NoError(t, err)
	assert.Equal(t, email, got.Email)
	assert.True(t, got.IsActive, "activation is reserved to platform admins")

	root := authz.Identity{UserID: "root", Role: authz.RoleSuperAdmin}
	got, err = f.svc.UpdateAccount(ctx, root, alice.ID, identity.UpdateAccountRequest{IsActive: &active})
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestUpdateAccount_PasswordChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := f.register(t, "acme", "owner@example.com")
	alice := f.addUser(t, reg, "alice@example.com", authz.RoleUser)

	newPassword := "another-long-password"
	_, err := f.svc.UpdateAccount(ctx, reg.Admin.Identity(), alice.ID, identity.UpdateAccountRequest{Password: &newPassword})
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, identity.LoginRequest{Email: "alice@example.com", Password: newPassword, TenantSubdomain: "acme"})
	assert.NoError(t, err)
	assert.Contains(t, f.audit.types(), audit.TypePasswordChanged)
}

func TestCreateAccount_UserLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := f.register(t, "acme", "owner@example.com")

	// the admin is the first of five FREE seats
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com", "d@example.com"} {
		f.addUser(t, reg, email, authz.RoleUser)
	}

	_, err := f.svc.CreateAccount(ctx, reg.Admin.Identity(), reg.Tenant.ID, identity.CreateAccountRequest{
		Email:    "e@example.com",
		Password: testPassword,
		FullName: "E",
	})
	assert.ErrorIs(t, err, authz.ErrLimitReached)
	assert.Contains(t, f.audit.types(), audit.TypeQuotaExceeded)

	n, err := f.db.Usage().CountAccounts(ctx, reg.Tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestCreateAccount_Rules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := f.register(t, "acme", "owner@example.com")
	alice := f.addUser(t, reg, "alice@example.com", authz.RoleUser)

	_, err := f.svc.CreateAccount(ctx, alice.Identity(), reg.Tenant.ID, identity.CreateAccountRequest{
		Email: "x@example.com", Password: testPassword, FullName: "X",
	})
	assert.ErrorIs(t, err, authz.ErrAccessDenied, "users cannot create accounts")

	_, err = f.svc.CreateAccount(ctx, reg.Admin.Identity(), reg.Tenant.ID, identity.CreateAccountRequest{
		Email: "x@example.com", Password: testPassword, FullName: "X", Role: authz.RoleSuperAdmin,
	})
	assert.ErrorIs(t, err, authz.ErrAccessDenied, "tenant admins cannot grant platform roles")

	_, err = f.svc.CreateAccount(ctx, reg.Admin.Identity(), reg.Tenant.ID, identity.CreateAccountRequest{
		Email: "ALICE@example.com", Password: testPassword, FullName: "Dup",
	})
	assert.ErrorIs(t, err, identity.ErrEmailTaken)
}

func TestInactiveTenantBlocksMembers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := f.register(t, "acme", "owner@example.com")
	alice := f.addUser(t, reg, "alice@example.com", authz.RoleUser)

	reg.Tenant.Status = tenant.StatusTrial
	require.NoError(t, f.db.Tenants().Update(ctx, reg.Tenant))

	_, err := f.svc.GetAccount(ctx, alice.Identity(), alice.ID)
	assert.ErrorIs(t, err, tenant.ErrTenantInactive)
}

func TestMe(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, "acme", "owner@example.com")

	account, tn, err := f.svc.Me(context.Background(), reg.Admin.Identity())
	require.NoError(t, err)
	assert.Equal(t, reg.Admin.ID, account.ID)
	require.NotNil(t, tn)
	assert.Equal(t, "acme", tn.Subdomain)

	_, _, err = f.svc.Me(context.Background(), authz.Identity{})
	assert.ErrorIs(t, err, authz.ErrUnauthenticated)
}

func TestBootstrapPlatformAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := identity.BootstrapRequest{Email: "root@example.com", Password: testPassword}

	created, err := f.svc.BootstrapPlatformAdmin(ctx, req)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.svc.BootstrapPlatformAdmin(ctx, req)
	require.NoError(t, err)
	assert.False(t, created, "second run is a no-op")

	res, err := f.svc.Login(ctx, identity.LoginRequest{Email: "root@example.com", Password: testPassword})
	require.NoError(t, err)
	assert.Equal(t, authz.RoleSuperAdmin, res.Account.Role)
	assert.Empty(t, res.Account.TenantID)
	assert.Nil(t, res.Tenant)

	created, err = f.svc.BootstrapPlatformAdmin(ctx, identity.BootstrapRequest{})
	require.NoError(t, err)
	assert.False(t, created, "no email configured")
}
