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

	"github.com/opentrusty/tenantdesk/internal/identity"
)

// AccountRepository implements identity.AccountRepository
type AccountRepository struct {
	db *DB
}

// emailTakenLocked reports whether email is used in tenantID by an account
// other than skipID. Caller holds the lock.
func (r *AccountRepository) emailTakenLocked(tenantID, email, skipID string) bool {
	for _, a := range r.db.accounts {
		if a.ID != skipID && a.TenantID == tenantID && a.Email == email {
			return true
		}
	}
	return false
}

// Create stores a new account. Email is unique per tenant.
func (r *AccountRepository) Create(_ context.Context, a *identity.Account) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if r.emailTakenLocked(a.TenantID, a.Email, "") {
		return identity.ErrEmailTaken
	}
	cp := *a
	r.db.accounts[a.ID] = &cp
	return nil
}

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(_ context.Context, id string) (*identity.Account, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	a, ok := r.db.accounts[id]
	if !ok {
		return nil, identity.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

// FindByEmail retrieves the account using email in tenantID
func (r *AccountRepository) FindByEmail(_ context.Context, tenantID, email string) (*identity.Account, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, a := range r.db.accounts {
		if a.TenantID == tenantID && a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, identity.ErrAccountNotFound
}

// FindAllByEmail returns every account using email, oldest first
func (r *AccountRepository) FindAllByEmail(_ context.Context, email string) ([]*identity.Account, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var out []*identity.Account
	for _, a := range r.db.accounts {
		if a.Email == email {
			cp := *a
			out = append(out, &cp)
		}
	}
	sortOldestFirst(out, func(a *identity.Account) (int64, string) { return a.CreatedAt.UnixNano(), a.ID })
	return out, nil
}

// EmailExists checks email uniqueness inside tenantID, or everywhere when
// tenantID is empty
func (r *AccountRepository) EmailExists(_ context.Context, tenantID, email string) (bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, a := range r.db.accounts {
		if a.Email != email {
			continue
		}
		if tenantID == "" || a.TenantID == tenantID {
			return true, nil
		}
	}
	return false, nil
}

// Update replaces an account record
func (r *AccountRepository) Update(_ context.Context, a *identity.Account) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.accounts[a.ID]; !ok {
		return identity.ErrAccountNotFound
	}
	if r.emailTakenLocked(a.TenantID, a.Email, a.ID) {
		return identity.ErrEmailTaken
	}
	cp := *a
	r.db.accounts[a.ID] = &cp
	return nil
}

// Delete removes an account and unassigns its tasks.
func (r *AccountRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.accounts[id]; !ok {
		return identity.ErrAccountNotFound
	}
	delete(r.db.accounts, id)
	for _, t := range r.db.tasks {
		if t.AssignedTo == id {
			t.AssignedTo = ""
		}
	}
	return nil
}

// List returns accounts matching filter, newest first, with the total
// number of matches.
func (r *AccountRepository) List(_ context.Context, filter identity.Filter) ([]*identity.Account, int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var matched []*identity.Account
	for _, a := range r.db.accounts {
		if filter.TenantID != "" && a.TenantID != filter.TenantID {
			continue
		}
		if filter.Search != "" && !containsFold(a.Email, filter.Search) && !containsFold(a.FullName, filter.Search) {
			continue
		}
		cp := *a
		matched = append(matched, &cp)
	}
	sortByCreated(matched, func(a *identity.Account) (int64, string) { return a.CreatedAt.UnixNano(), a.ID })
	return page(matched, filter.Limit, filter.Offset), len(matched), nil
}
