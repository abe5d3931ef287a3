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

package memory

import (
	"context"

	"github.com/opentrusty/tenantdesk/internal/tenant"
)

// TenantRepository implements tenant.Repository
type TenantRepository struct {
	db *DB
}

// Create stores a new tenant. Subdomains are unique.
func (r *TenantRepository) Create(_ context.Context, t *tenant.Tenant) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, existing := range r.db.tenants {
		if existing.Subdomain == t.Subdomain {
			return tenant.ErrSubdomainTaken
		}
	}
	cp := *t
	r.db.tenants[t.ID] = &cp
	return nil
}

// GetByID retrieves a tenant by ID
func (r *TenantRepository) GetByID(_ context.Context, id string) (*tenant.Tenant, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	t, ok := r.db.tenants[id]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	cp := *t
	return &cp, nil
}

// GetBySubdomain retrieves a tenant by subdomain
func (r *TenantRepository) GetBySubdomain(_ context.Context, subdomain string) (*tenant.Tenant, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, t := range r.db.tenants {
		if t.Subdomain == subdomain {
			cp := *t
			return &cp, nil
		}
	}
	return nil, tenant.ErrTenantNotFound
}

// Update replaces a tenant record
func (r *TenantRepository) Update(_ context.Context, t *tenant.Tenant) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.tenants[t.ID]; !ok {
		return tenant.ErrTenantNotFound
	}
	for _, existing := range r.db.tenants {
		if existing.ID != t.ID && existing.Subdomain == t.Subdomain {
			return tenant.ErrSubdomainTaken
		}
	}
	cp := *t
	r.db.tenants[t.ID] = &cp
	return nil
}

// Delete removes a tenant together with everything it owns.
func (r *TenantRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.tenants[id]; !ok {
		return tenant.ErrTenantNotFound
	}
	delete(r.db.tenants, id)
	for k, a := range r.db.accounts {
		if a.TenantID == id {
			delete(r.db.accounts, k)
		}
	}
	for k, p := range r.db.projects {
		if p.TenantID == id {
			delete(r.db.projects, k)
		}
	}
	for k, t := range r.db.tasks {
		if t.TenantID == id {
			delete(r.db.tasks, k)
		}
	}
	return nil
}

// List returns tenants newest first
func (r *TenantRepository) List(_ context.Context, limit, offset int) ([]*tenant.Tenant, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	all := make([]*tenant.Tenant, 0, len(r.db.tenants))
	for _, t := range r.db.tenants {
		cp := *t
		all = append(all, &cp)
	}
	sortByCreated(all, func(t *tenant.Tenant) (int64, string) { return t.CreatedAt.UnixNano(), t.ID })
	return page(all, limit, offset), nil
}

// Count returns the number of tenants
func (r *TenantRepository) Count(_ context.Context) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return len(r.db.tenants), nil
}

// UsageCounter implements tenant.UsageCounter
type UsageCounter struct {
	db *DB
}

// CountAccounts counts the accounts of a tenant
func (u *UsageCounter) CountAccounts(_ context.Context, tenantID string) (int, error) {
	u.db.mu.RLock()
	defer u.db.mu.RUnlock()

	n := 0
	for _, a := range u.db.accounts {
		if a.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

// CountProjects counts the projects of a tenant
func (u *UsageCounter) CountProjects(_ context.Context, tenantID string) (int, error) {
	u.db.mu.RLock()
	defer u.db.mu.RUnlock()

	n := 0
	for _, p := range u.db.projects {
		if p.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}
