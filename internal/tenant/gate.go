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

package tenant

import (
	"context"
	"errors"
	"fmt"

	"github.com/opentrusty/tenantdesk/internal/authz"
)

// Gate blocks members of inactive tenants from reaching resources.
type Gate struct {
	repo Repository
}

// NewGate creates a tenant status gate
func NewGate(repo Repository) *Gate {
	return &Gate{repo: repo}
}

// Check returns ErrTenantInactive when actor belongs to a tenant that is not
// ACTIVE. Super administrators and tenant-less identities pass.
func (g *Gate) Check(ctx context.Context, actor authz.Identity) error {
	if actor.IsSuperAdmin() || actor.TenantID == "" {
		return nil
	}

	t, err := g.repo.GetByID(ctx, actor.TenantID)
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			// token outlived its tenant
			return ErrTenantInactive
		}
		return fmt.Errorf("failed to load actor tenant: %w", err)
	}
	if !t.Active() {
		return ErrTenantInactive
	}
	return nil
}
