package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opentrusty/tenantdesk/internal/authz"
	"github.com/opentrusty/tenantdesk/internal/identity"
	"github.com/opentrusty/tenantdesk/internal/project"
	"github.com/opentrusty/tenantdesk/internal/tenant"
)

func seedTenant(t *testing.T, db *DB, id, subdomain string) *tenant.Tenant {
	t.Helper()
	tn := &tenant.Tenant{ID: id, Name: id, Subdomain: subdomain, Status: tenant.StatusActive, CreatedAt: time.Now()}
	tn.ApplyPlan(authz.PlanFree)
	require.NoError(t, db.Tenants().Create(context.Background(), tn))
	return tn
}

func TestTenantRepository_SubdomainUnique(t *testing.T) {
	ctx := context.Background()
	db := New()
	seedTenant(t, db, "t1", "acme")

	err := db.Tenants().Create(ctx, &tenant.Tenant{ID: "t2", Subdomain: "acme"})
	assert.ErrorIs(t, err, tenant.ErrSubdomainTaken)

	got, err := db.Tenants().GetBySubdomain(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "t1", got.ID)

	_, err = db.Tenants().GetByID(ctx, "missing")
	assert.ErrorIs(t, err, tenant.ErrTenantNotFound)
}

func TestTenantRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	db := New()
	seedTenant(t, db, "t1", "acme")

	got, err := db.Tenants().GetByID(ctx, "t1")
	require.NoError(t, err)
	got.Status = tenant.StatusSuspended

	again, err := db.Tenants().GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, tenant.StatusActive, again.Status)
}

func TestAccountRepository_EmailUniquePerTenant(t *testing.T) {
	ctx := context.Background()
	db := New()
	repo := db.Accounts()

	require.NoError(t, repo.Create(ctx, &identity.Account{ID: "a1", TenantID: "t1", Email: "x@example.com"}))
	require.NoError(t, repo.Create(ctx, &identity.Account{ID: "a2", TenantID: "t2", Email: "x@example.com"}),
		"same email in another tenant is allowed")

	err := repo.Create(ctx, &identity.Account{ID: "a3", TenantID: "t1", Email: "x@example.com"})
	assert.ErrorIs(t, err, identity.ErrEmailTaken)

	exists, err := repo.EmailExists(ctx, "t3", "x@example.com")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = repo.EmailExists(ctx, "", "x@example.com")
	require.NoError(t, err)
	assert.True(t, exists, "empty tenant checks the whole platform")

	all, err := repo.FindAllByEmail(ctx, "x@example.com")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = repo.FindByEmail(ctx, "", "x@example.com")
	assert.ErrorIs(t, err, identity.ErrAccountNotFound, "tenant-less lookup ignores tenant accounts")
}

func TestAccountRepository_FindAllByEmailOldestFirst(t *testing.T) {
	ctx := context.Background()
	db := New()
	repo := db.Accounts()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	seed := []struct {
		id, tenantID string
		created      time.Time
	}{
		{"b-newer", "t1", base.Add(time.Minute)},
		{"c-tied", "t2", base},
		{"a-tied", "t3", base},
		{"d-oldest", "t4", base.Add(-time.Minute)},
	}
	for _, s := range seed {
		require.NoError(t, repo.Create(ctx, &identity.Account{ID: s.id, TenantID: s.tenantID, Email: "shared@example.com", CreatedAt: s.created}))
	}

	got, err := repo.FindAllByEmail(ctx, "shared@example.com")
	require.NoError(t, err)
	ids := make([]string, 0, len(got))
	for _, a := range got {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"d-oldest", "a-tied", "c-tied", "b-newer"}, ids, "equal timestamps break ties by ascending id")
}

func TestAccountRepository_ListSearchAndPage(t *testing.T) {
	ctx := context.Background()
	db := New()
	repo := db.Accounts()
	base := time.Now()

	names := []string{"Alice", "Bob", "Alicia"}
	for i, n := range names {
		require.NoError(t, repo.Create(ctx, &identity.Account{
			ID:        n,
			TenantID:  "t1",
			Email:     n + "@example.com",
			FullName:  n,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	got, total, err := repo.List(ctx, identity.Filter{TenantID: "t1", Search: "ALI"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, got, 2)
	assert.Equal(t, "Alicia", got[0].ID, "newest first")

	got, total, err = repo.List(ctx, identity.Filter{TenantID: "t1", Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, got, 1)
	assert.Equal(t, "Bob", got[0].ID)
}

func TestAccountRepository_DeleteUnassignsTasks(t *testing.T) {
	ctx := context.Background()
	db := New()
	seedTenant(t, db, "t1", "acme")
	require.NoError(t, db.Accounts().Create(ctx, &identity.Account{ID: "a1", TenantID: "t1", Email: "a@example.com"}))
	require.NoError(t, db.Projects().Create(ctx, &project.Project{ID: "p1", TenantID: "t1"}))
	require.NoError(t, db.Tasks().Create(ctx, &project.Task{ID: "k1", TenantID: "t1", ProjectID: "p1", AssignedTo: "a1"}))

	require.NoError(t, db.Accounts().Delete(ctx, "a1"))

	task, err := db.Tasks().GetByID(ctx, "k1")
	require.NoError(t, err)
	assert.Empty(t, task.AssignedTo)
}

func TestProjectRepository_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	db := New()
	require.NoError(t, db.Projects().Create(ctx, &project.Project{ID: "p1", TenantID: "t1"}))
	require.NoError(t, db.Tasks().Create(ctx, &project.Task{ID: "k1", TenantID: "t1", ProjectID: "p1"}))
	require.NoError(t, db.Tasks().Create(ctx, &project.Task{ID: "k2", TenantID: "t1", ProjectID: "p1"}))

	n, err := db.Tasks().CountByProject(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, db.Projects().Delete(ctx, "p1"))

	_, err = db.Tasks().GetByID(ctx, "k1")
	assert.ErrorIs(t, err, project.ErrTaskNotFound)
	assert.ErrorIs(t, db.Projects().Delete(ctx, "p1"), project.ErrProjectNotFound)
}

func TestTaskRepository_UpdateKeepsOwnership(t *testing.T) {
	ctx := context.Background()
	db := New()
	require.NoError(t, db.Projects().Create(ctx, &project.Project{ID: "p1", TenantID: "t1"}))
	require.NoError(t, db.Tasks().Create(ctx, &project.Task{ID: "k1", TenantID: "t1", ProjectID: "p1", Status: project.TaskTodo}))

	err := db.Tasks().Update(ctx, &project.Task{ID: "k1", TenantID: "t2", ProjectID: "p9", Status: project.TaskCompleted})
	require.NoError(t, err)

	got, err := db.Tasks().GetByID(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "t1", got.TenantID)
	assert.Equal(t, "p1", got.ProjectID)
	assert.Equal(t, project.TaskCompleted, got.Status)

	list, total, err := db.Tasks().List(ctx, project.TaskFilter{Status: project.TaskTodo})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)
}

func TestTaskRepository_CreateRequiresProject(t *testing.T) {
	err := New().Tasks().Create(context.Background(), &project.Task{ID: "k1", ProjectID: "nope"})
	assert.ErrorIs(t, err, project.ErrProjectNotFound)
}

func TestUsageCounter(t *testing.T) {
	ctx := context.Background()
	db := New()
	require.NoError(t, db.Accounts().Create(ctx, &identity.Account{ID: "a1", TenantID: "t1", Email: "a@example.com"}))
	require.NoError(t, db.Accounts().Create(ctx, &identity.Account{ID: "a2", TenantID: "t2", Email: "a@example.com"}))
	require.NoError(t, db.Projects().Create(ctx, &project.Project{ID: "p1", TenantID: "t1"}))

	users, err := db.Usage().CountAccounts(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, users)

	projects, err := db.Usage().CountProjects(ctx, "t2")
	require.NoError(t, err)
	assert.Zero(t, projects)
}
