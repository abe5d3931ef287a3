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

package authz

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrAccessDenied    = errors.New("access denied")
	ErrUnauthenticated = errors.New("authentication required")
	ErrLimitReached    = errors.New("limit reached")
	ErrInvalidRole     = errors.New("invalid role")
)

// Role is the coarse permission level carried by every identity.
type Role string

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleTenantAdmin, RoleUser:
		return true
	}
	return false
}

// ParseRole converts a stored or transmitted role name.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// Identity is the resolved actor of a request. TenantID is empty only for
// a super administrator that is not bound to a tenant.
type Identity struct {
	UserID   string
	TenantID string
	Role     Role
}

// Authenticated reports whether the identity was resolved from a credential.
func (i Identity) Authenticated() bool {
	return i.UserID != "" && i.Role.Valid()
}

// IsSuperAdmin reports whether the identity holds the platform role.
func (i Identity) IsSuperAdmin() bool {
	return i.Role == RoleSuperAdmin
}

// Target describes the resource an operation acts on. TenantID is the owning
// tenant, or the tenant addressed by a collection operation. UserID is set
// only when the resource is an account.
type Target struct {
	TenantID string
	UserID   string
}

// Relation is the relationship between an actor and a target.
type Relation string

const (
	RelationSelf        Relation = "self"
	RelationSameTenant  Relation = "same_tenant"
	RelationOtherTenant Relation = "other_tenant"
)

// RelationOf derives the relation between actor and target.
func RelationOf(actor Identity, target Target) Relation {
	if target.UserID != "" && target.UserID == actor.UserID {
		return RelationSelf
	}
	if actor.TenantID != "" && target.TenantID == actor.TenantID {
		return RelationSameTenant
	}
	return RelationOtherTenant
}

// Decision is the outcome of a policy evaluation.
type Decision struct {
	Allowed  bool
	Relation Relation
	Reason   string
}
