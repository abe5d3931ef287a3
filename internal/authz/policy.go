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

import "fmt"

// grants lists, per operation and non-platform role, the relations under
// which the operation is permitted. Operations absent from the table are
// reserved to RoleSuperAdmin.
var grants = map[Operation]map[Role][]Relation{
	OpTenantRead: {
		RoleTenantAdmin: {RelationSameTenant},
		RoleUser:        {RelationSameTenant},
	},
	OpTenantUpdate: {
		RoleTenantAdmin: {RelationSameTenant},
	},

	OpAccountList: {
		RoleTenantAdmin: {RelationSameTenant},
	},
	OpAccountCreate: {
		RoleTenantAdmin: {RelationSameTenant},
	},
	OpAccountRead: {
		RoleTenantAdmin: {RelationSameTenant},
	},
	OpAccountUpdate: {
		RoleTenantAdmin: {RelationSelf, RelationSameTenant},
	},
	OpAccountUpdateSelf: {
		RoleTenantAdmin: {RelationSameTenant},
	},
	OpAccountDelete: {
		RoleTenantAdmin: {RelationSameTenant},
	},

	OpProjectCreate: {
		RoleTenantAdmin: {RelationSameTenant},
	},
	OpProjectList: {
		RoleTenantAdmin: {RelationSameTenant},
	},
	OpProjectRead: {
		RoleTenantAdmin: {RelationSameTenant},
		RoleUser:        {RelationSameTenant},
	},
	OpProjectUpdate: {
		RoleTenantAdmin: {RelationSameTenant},
	},
	OpProjectDelete: {
		RoleTenantAdmin: {RelationSameTenant},
	},

	OpTaskCreate: {
		RoleTenantAdmin: {RelationSameTenant},
	},
	OpTaskList: {
		RoleTenantAdmin: {RelationSameTenant},
	},
	OpTaskRead: {
		RoleTenantAdmin: {RelationSameTenant},
		RoleUser:        {RelationSameTenant},
	},
	OpTaskUpdate: {
		RoleTenantAdmin: {RelationSameTenant},
	},
	OpTaskUpdateStatus: {
		RoleTenantAdmin: {RelationSameTenant},
	},
	OpTaskDelete: {
		RoleTenantAdmin: {RelationSameTenant},
	},
}

// selfService operations are open to every role on the actor's own account.
var selfService = map[Operation]bool{
	OpAccountRead:       true,
	OpAccountUpdateSelf: true,
}

// Decide evaluates the policy for actor performing op on target. Rules are
// applied in order and the first match decides:
//
//  1. super administrators are always allowed
//  2. self-service operations on the actor's own account
//  3. the role's grants for the derived relation
//  4. deny
func Decide(actor Identity, op Operation, target Target) Decision {
	rel := RelationOf(actor, target)

	if !actor.Authenticated() {
		return Decision{Relation: rel, Reason: "unauthenticated"}
	}

	if actor.IsSuperAdmin() {
		return Decision{Allowed: true, Relation: rel, Reason: "super admin"}
	}

	if rel == RelationSelf && selfService[op] {
		return Decision{Allowed: true, Relation: rel, Reason: "self service"}
	}

	for _, allowed := range grants[op][actor.Role] {
		if allowed == rel {
			return Decision{
				Allowed:  true,
				Relation: rel,
				Reason:   fmt.Sprintf("%s may %s on %s", actor.Role, op, rel),
			}
		}
	}

	return Decision{
		Relation: rel,
		Reason:   fmt.Sprintf("%s may not %s on %s", actor.Role, op, rel),
	}
}

// Authorize is Decide as an error. Denials wrap ErrAccessDenied, and a
// missing identity wraps ErrUnauthenticated.
func Authorize(actor Identity, op Operation, target Target) error {
	if !actor.Authenticated() {
		return ErrUnauthenticated
	}
	d := Decide(actor, op, target)
	if !d.Allowed {
		return fmt.Errorf("%w: %s", ErrAccessDenied, d.Reason)
	}
	return nil
}
