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

// Package memory provides in-memory repositories for tests and
// single-process deployments. Data is lost when the process exits.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/opentrusty/tenantdesk/internal/identity"
	"github.com/opentrusty/tenantdesk/internal/project"
	"github.com/opentrusty/tenantdesk/internal/tenant"
)

// DB holds every table behind one lock so cross-table rules (cascades,
// assignee cleanup) stay consistent.
type DB struct {
	mu       sync.RWMutex
	tenants  map[string]*tenant.Tenant
	accounts map[string]*identity.Account
	projects map[string]*project.Project
	tasks    map[string]*project.Task
}

// New creates an empty database.
func New() *DB {
	return &DB{
		tenants:  make(map[string]*tenant.Tenant),
		accounts: make(map[string]*identity.Account),
		projects: make(map[string]*project.Project),
		tasks:    make(map[string]*project.Task),
	}
}

// Tenants returns the tenant repository.
func (db *DB) Tenants() *TenantRepository { return &TenantRepository{db: db} }

// Accounts returns the account repository.
func (db *DB) Accounts() *AccountRepository { return &AccountRepository{db: db} }

// Projects returns the project repository.
func (db *DB) Projects() *ProjectRepository { return &ProjectRepository{db: db} }

// Tasks returns the task repository.
func (db *DB) Tasks() *TaskRepository { return &TaskRepository{db: db} }

// Usage returns the usage counter.
func (db *DB) Usage() *UsageCounter { return &UsageCounter{db: db} }

// Ping always succeeds.
func (db *DB) Ping(_ context.Context) error { return nil }

var (
	_ tenant.Repository          = (*TenantRepository)(nil)
	_ tenant.UsageCounter        = (*UsageCounter)(nil)
	_ identity.AccountRepository = (*AccountRepository)(nil)
	_ project.ProjectRepository  = (*ProjectRepository)(nil)
	_ project.TaskRepository     = (*TaskRepository)(nil)
)

// page slices items by offset and limit. A limit of zero returns the rest.
func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// sortByCreated orders newest first, breaking ties by id for stable pages.
func sortByCreated[T any](items []T, key func(T) (int64, string)) {
	sort.Slice(items, func(i, j int) bool {
		ti, ii := key(items[i])
		tj, ij := key(items[j])
		if ti != tj {
			return ti > tj
		}
		return ii > ij
	})
}

// sortOldestFirst is the reverse of sortByCreated, ties broken by ascending id.
func sortOldestFirst[T any](items []T, key func(T) (int64, string)) {
	sort.Slice(items, func(i, j int) bool {
		ti, ii := key(items[i])
		tj, ij := key(items[j])
		if ti != tj {
			return ti < tj
		}
		return ii < ij
	})
}
