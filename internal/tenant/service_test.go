package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/opentrusty/tenantdesk/internal/audit"
	"github.com/opentrusty/tenantdesk/internal/authz"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Create(ctx context.Context, t *Tenant) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockRepo) GetByID(ctx context.Context, id string) (*Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Tenant), args.Error(1)
}

func (m *mockRepo) GetBySubdomain(ctx context.Context, subdomain string) (*Tenant, error) {
	args := m.Called(ctx, subdomain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Tenant), args.Error(1)
}

func (m *mockRepo) Update(ctx context.Context, t *Tenant) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockRepo) List(ctx context.Context, limit, offset int) ([]*Tenant, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*Tenant), args.Error(1)
}

func (m *mockRepo) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type mockUsage struct {
	mock.Mock
}

func (m *mockUsage) CountAccounts(ctx context.Context, tenantID string) (int, error) {
	args := m.Called(ctx, tenantID)
	return args.Int(0), args.Error(1)
}

func (m *mockUsage) CountProjects(ctx context.Context, tenantID string) (int, error) {
	args := m.Called(ctx, tenantID)
	return args.Int(0), args.Error(1)
}

type mockAudit struct {
	mock.Mock
}

func (m *mockAudit) Log(ctx context.Context, event audit.Event) {
	m.Called(ctx, event)
}

var (
	superAdmin = authz.Identity{UserID: "root", Role: authz.RoleSuperAdmin}
	adminA     = authz.Identity{UserID: "admin-a", TenantID: "tenant-a", Role: authz.RoleTenantAdmin}
	adminB     = authz.Identity{UserID: "admin-b", TenantID: "tenant-b", Role: authz.RoleTenantAdmin}
	userA      = authz.Identity{UserID: "user-a", TenantID: "tenant-a", Role: authz.RoleUser}
)

func newTenantA() *Tenant {
	t := &Tenant{ID: "tenant-a", Name: "Acme", Subdomain: "acme", Status: StatusActive}
	t.ApplyPlan(authz.PlanFree)
	return t
}

func newTestService() (*Service, *mockRepo, *mockUsage, *mockAudit) {
	repo := new(mockRepo)
	usage := new(mockUsage)
	a := new(mockAudit)
	a.On("Log", mock.Anything, mock.Anything).Maybe()
	svc := NewService(repo, usage, authz.NewService(a, nil), a)
	return svc, repo, usage, a
}

// TestPurpose: Validates that a plan change overwrites both limits from the plan table.
// Scope: Unit Test
// Security: Quota Integrity
// Expected: ENTERPRISE yields maxUsers=100, maxProjects=50 regardless of prior values.
// Test Case ID: TEN-01
func TestService_UpdateTenant_PlanChange(t *testing.T) {
	svc, repo, usage, _ := newTestService()
	ctx := context.Background()

	current := newTenantA()
	current.MaxUsers = 7
	current.MaxProjects = 999

	repo.On("GetByID", mock.Anything, "tenant-a").Return(current, nil)
	repo.On("Update", mock.Anything, mock.MatchedBy(func(t *Tenant) bool {
		return t.Plan == authz.PlanEnterprise && t.MaxUsers == 100 && t.MaxProjects == 50
	})).Return(nil)
	usage.On("CountAccounts", mock.Anything, "tenant-a").Return(2, nil)
	usage.On("CountProjects", mock.Anything, "tenant-a").Return(1, nil)

	plan := authz.PlanEnterprise
	d, err := svc.UpdateTenant(ctx, superAdmin, "tenant-a", UpdateRequest{Plan: &plan})
	require.NoError(t, err)

	assert.Equal(t, 100, d.Tenant.MaxUsers)
	assert.Equal(t, 50, d.Tenant.MaxProjects)
	assert.Equal(t, Stats{TotalUsers: 2, TotalProjects: 1}, d.Stats)
	repo.AssertExpectations(t)
}

// TestPurpose: Validates that tenant admins cannot change plan or status.
// Scope: Unit Test
// Security: Privilege Escalation Prevention
// Expected: ErrAccessDenied and no store write.
// Test Case ID: TEN-02
func TestService_UpdateTenant_PlanRequiresPlatform(t *testing.T) {
	svc, repo, _, _ := newTestService()

	plan := authz.PlanEnterprise
	_, err := svc.UpdateTenant(context.Background(), adminA, "tenant-a", UpdateRequest{Plan: &plan})
	assert.ErrorIs(t, err, authz.ErrAccessDenied)

	status := StatusActive
	_, err = svc.UpdateTenant(context.Background(), adminA, "tenant-a", UpdateRequest{Status: &status})
	assert.ErrorIs(t, err, authz.ErrAccessDenied)

	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestService_UpdateTenant_NameByAdmin(t *testing.T) {
	svc, repo, usage, _ := newTestService()

	repo.On("GetByID", mock.Anything, "tenant-a").Return(newTenantA(), nil)
	repo.On("Update", mock.Anything, mock.MatchedBy(func(t *Tenant) bool { return t.Name == "Acme Corp" })).Return(nil)
	usage.On("CountAccounts", mock.Anything, "tenant-a").Return(1, nil)
	usage.On("CountProjects", mock.Anything, "tenant-a").Return(0, nil)

	name := "  Acme Corp "
	d, err := svc.UpdateTenant(context.Background(), adminA, "tenant-a", UpdateRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", d.Tenant.Name)
}

// TestPurpose: Validates cross-tenant isolation on tenant reads.
// Scope: Unit Test
// Security: Tenant Isolation
// Expected: Admin of tenant B cannot read tenant A; store is never touched.
// Test Case ID: TEN-03
func TestService_GetTenant_CrossTenant(t *testing.T) {
	svc, repo, _, _ := newTestService()

	_, err := svc.GetTenant(context.Background(), adminB, "tenant-a")
	assert.ErrorIs(t, err, authz.ErrAccessDenied)
	repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

// TestPurpose: Validates the tenant status gate.
// Scope: Unit Test
// Security: Suspended Tenant Lockout
// Expected: Members of a suspended or trial tenant get ErrTenantInactive; super admins pass.
// Test Case ID: TEN-04
func TestGate_Check(t *testing.T) {
	for _, status := range []Status{StatusSuspended, StatusTrial} {
		repo := new(mockRepo)
		suspended := newTenantA()
		suspended.Status = status
		repo.On("GetByID", mock.Anything, "tenant-a").Return(suspended, nil)

		gate := NewGate(repo)
		assert.ErrorIs(t, gate.Check(context.Background(), userA), ErrTenantInactive, status)
		assert.NoError(t, gate.Check(context.Background(), superAdmin))
	}

	repo := new(mockRepo)
	repo.On("GetByID", mock.Anything, "tenant-a").Return(nil, ErrTenantNotFound)
	assert.ErrorIs(t, NewGate(repo).Check(context.Background(), userA), ErrTenantInactive)
}

func TestService_ListTenants(t *testing.T) {
	svc, repo, _, _ := newTestService()

	_, _, err := svc.ListTenants(context.Background(), adminA, 10, 0)
	assert.ErrorIs(t, err, authz.ErrAccessDenied)

	repo.On("List", mock.Anything, MaxPageSize, 0).Return([]*Tenant{newTenantA()}, nil)
	repo.On("Count", mock.Anything).Return(1, nil)

	tenants, total, err := svc.ListTenants(context.Background(), superAdmin, 1000, -5)
	require.NoError(t, err)
	assert.Len(t, tenants, 1)
	assert.Equal(t, 1, total)
}

func TestNormalizeSubdomain(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"acme", "acme", true},
		{" ACME-corp ", "acme-corp", true},
		{"ab", "ab", false},
		{"-acme", "-acme", false},
		{"acme_corp", "acme_corp", false},
		{"a.b.c", "a.b.c", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeSubdomain(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}
