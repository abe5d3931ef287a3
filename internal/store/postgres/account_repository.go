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
	"github.com/opentrusty/tenantdesk/internal/identity"
)

const accountColumns = `id::text, COALESCE(tenant_id::text, ''), email, password_hash, full_name, role, is_active, created_at, updated_at`

// AccountRepository implements identity.AccountRepository
type AccountRepository struct {
	db *DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db}
}

var _ identity.AccountRepository = (*AccountRepository)(nil)

func scanAccount(row pgx.Row) (*identity.Account, error) {
	var a identity.Account
	var role string
	err := row.Scan(&a.ID, &a.TenantID, &a.Email, &a.PasswordHash, &a.FullName, &role, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Role = authz.Role(role)
	return &a, nil
}

func (r *AccountRepository) queryOne(ctx context.Context, query string, args ...any) (*identity.Account, error) {
	a, err := scanAccount(r.db.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) queryMany(ctx context.Context, query string, args ...any) ([]*identity.Account, error) {
	rows, err := r.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	out := []*identity.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Create creates a new account
func (r *AccountRepository) Create(ctx context.Context, a *identity.Account) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO accounts (id, tenant_id, email, password_hash, full_name, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, a.ID, nullable(a.TenantID), a.Email, a.PasswordHash, a.FullName, string(a.Role), a.IsActive, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if code, _ := pgCode(err); code == codeUniqueViolation {
			return identity.ErrEmailTaken
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*identity.Account, error) {
	if !validID(id) {
		return nil, identity.ErrAccountNotFound
	}
	return r.queryOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

// FindByEmail retrieves an account by email within a tenant
func (r *AccountRepository) FindByEmail(ctx context.Context, tenantID, email string) (*identity.Account, error) {
	if tenantID == "" {
		return r.queryOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE tenant_id IS NULL AND email = $1`, email)
	}
	if !validID(tenantID) {
		return nil, identity.ErrAccountNotFound
	}
	return r.queryOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE tenant_id = $1 AND email = $2`, tenantID, email)
}

// FindAllByEmail returns every account using email, oldest first
func (r *AccountRepository) FindAllByEmail(ctx context.Context, email string) ([]*identity.Account, error) {
	return r.queryMany(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1 ORDER BY created_at, id`, email)
}

// EmailExists checks email uniqueness inside a tenant, or platform-wide
// when tenantID is empty
func (r *AccountRepository) EmailExists(ctx context.Context, tenantID, email string) (bool, error) {
	var exists bool
	var err error
	if tenantID == "" {
		err = r.db.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE email = $1)`, email).Scan(&exists)
	} else {
		if !validID(tenantID) {
			return false, nil
		}
		err = r.db.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE tenant_id = $1 AND email = $2)`, tenantID, email).Scan(&exists)
	}
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

// Update updates an account. The owning tenant never changes.
func (r *AccountRepository) Update(ctx context.Context, a *identity.Account) error {
	if !validID(a.ID) {
		return identity.ErrAccountNotFound
	}
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE accounts
		SET email = $2, password_hash = $3, full_name = $4, role = $5, is_active = $6, updated_at = $7
		WHERE id = $1
	`, a.ID, a.Email, a.PasswordHash, a.FullName, string(a.Role), a.IsActive, a.UpdatedAt)
	if err != nil {
		if code, _ := pgCode(err); code == codeUniqueViolation {
			return identity.ErrEmailTaken
		}
		return fmt.Errorf("failed to update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrAccountNotFound
	}
	return nil
}

// Delete deletes an account. Tasks assigned to it become unassigned.
func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return identity.ErrAccountNotFound
	}
	tag, err := r.db.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrAccountNotFound
	}
	return nil
}

// List lists accounts newest first with the total number of matches
func (r *AccountRepository) List(ctx context.Context, filter identity.Filter) ([]*identity.Account, int, error) {
	var w where
	if filter.TenantID != "" {
		if !validID(filter.TenantID) {
			return []*identity.Account{}, 0, nil
		}
		w.add("tenant_id = ?", filter.TenantID)
	}
	if filter.Search != "" {
		w.add("(email ILIKE ? OR full_name ILIKE ?)", "%"+filter.Search+"%")
	}

	var total int
	if err := r.db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM accounts`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count accounts: %w", err)
	}

	clause, args := w.page(filter.Limit, filter.Offset)
	accounts, err := r.queryMany(ctx, `SELECT `+accountColumns+` FROM accounts`+w.String()+` ORDER BY created_at DESC, id DESC`+clause, args...)
	if err != nil {
		return nil, 0, err
	}
	return accounts, total, nil
}
