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

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/opentrusty/tenantdesk/internal/authz"
	"github.com/opentrusty/tenantdesk/internal/tenant"
)

const tenantColumns = `id::text, name, subdomain, status, plan, max_users, max_projects, created_at, updated_at`

// TenantRepository implements tenant.Repository
type TenantRepository struct {
	db *DB
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *DB) *TenantRepository {
	return &TenantRepository{db: db}
}

var _ tenant.Repository = (*TenantRepository)(nil)

func scanTenant(row pgx.Row) (*tenant.Tenant, error) {
	var t tenant.Tenant
	var status, plan string
	err := row.Scan(&t.ID, &t.Name, &t.Subdomain, &status, &plan, &t.MaxUsers, &t.MaxProjects, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Status = tenant.Status(status)
	t.Plan = authz.Plan(plan)
	return &t, nil
}

// Create creates a new tenant
func (r *TenantRepository) Create(ctx context.Context, t *tenant.Tenant) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO tenants (id, name, subdomain, status, plan, max_users, max_projects, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, t.ID, t.Name, t.Subdomain, string(t.Status), string(t.Plan), t.MaxUsers, t.MaxProjects, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if code, _ := pgCode(err); code == codeUniqueViolation {
			return tenant.ErrSubdomainTaken
		}
		return fmt.Errorf("failed to insert tenant: %w", err)
	}
	return nil
}

// GetByID retrieves a tenant by ID
func (r *TenantRepository) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	if !validID(id) {
		return nil, tenant.ErrTenantNotFound
	}
	t, err := scanTenant(r.db.pool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenant.ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return t, nil
}

// GetBySubdomain retrieves a tenant by subdomain
func (r *TenantRepository) GetBySubdomain(ctx context.Context, subdomain string) (*tenant.Tenant, error) {
	t, err := scanTenant(r.db.pool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE subdomain = $1`, subdomain))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenant.ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return t, nil
}

// Update updates a tenant
func (r *TenantRepository) Update(ctx context.Context, t *tenant.Tenant) error {
	if !validID(t.ID) {
		return tenant.ErrTenantNotFound
	}
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE tenants
		SET name = $2, subdomain = $3, status = $4, plan = $5, max_users = $6, max_projects = $7, updated_at = $8
		WHERE id = $1
	`, t.ID, t.Name, t.Subdomain, string(t.Status), string(t.Plan), t.MaxUsers, t.MaxProjects, t.UpdatedAt)
	if err != nil {
		if code, _ := pgCode(err); code == codeUniqueViolation {
			return tenant.ErrSubdomainTaken
		}
		return fmt.Errorf("failed to update tenant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tenant.ErrTenantNotFound
	}
	return nil
}

// Delete deletes a tenant. Accounts, projects and tasks cascade.
func (r *TenantRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return tenant.ErrTenantNotFound
	}
	tag, err := r.db.pool.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tenant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tenant.ErrTenantNotFound
	}
	return nil
}

// List lists tenants newest first
func (r *TenantRepository) List(ctx context.Context, limit, offset int) ([]*tenant.Tenant, error) {
	var w where
	clause, args := w.page(limit, offset)
	rows, err := r.db.pool.Query(ctx, `SELECT `+tenantColumns+` FROM tenants ORDER BY created_at DESC, id DESC`+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	out := []*tenant.Tenant{}
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Count returns the number of tenants
func (r *TenantRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tenants`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tenants: %w", err)
	}
	return n, nil
}

// UsageCounter implements tenant.UsageCounter
type UsageCounter struct {
	db *DB
}

var _ tenant.UsageCounter = (*UsageCounter)(nil)

// CountAccounts counts the accounts of a tenant
func (u *UsageCounter) CountAccounts(ctx context.Context, tenantID string) (int, error) {
	return u.count(ctx, `SELECT COUNT(*) FROM accounts WHERE tenant_id = $1`, tenantID)
}

// CountProjects counts the projects of a tenant
func (u *UsageCounter) CountProjects(ctx context.Context, tenantID string) (int, error) {
	return u.count(ctx, `SELECT COUNT(*) FROM projects WHERE tenant_id = $1`, tenantID)
}

func (u *UsageCounter) count(ctx context.Context, query, tenantID string) (int, error) {
	if !validID(tenantID) {
		return 0, nil
	}
	var n int
	if err := u.db.pool.QueryRow(ctx, query, tenantID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count usage: %w", err)
	}
	return n, nil
}
