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

// -----------------------------------------------------------------------------
// Role Constants
// These are the canonical role names stored with accounts and carried in
// identity tokens.
// -----------------------------------------------------------------------------

const (
	// RoleSuperAdmin is the platform-wide administrator.
	// Scope: Platform (no tenant)
	RoleSuperAdmin Role = "SUPER_ADMIN"

	// RoleTenantAdmin manages accounts, projects and tasks of one tenant.
	// Scope: Tenant
	RoleTenantAdmin Role = "TENANT_ADMIN"

	// RoleUser is a plain tenant member.
	// Scope: Tenant
	RoleUser Role = "USER"
)

// -----------------------------------------------------------------------------
// Operation Constants
// Every guarded service method names exactly one operation.
// -----------------------------------------------------------------------------

// Operation identifies a guarded action.
type Operation string

const (
	OpTenantList         Operation = "tenant.list"
	OpTenantRead         Operation = "tenant.read"
	OpTenantUpdate       Operation = "tenant.update"
	OpTenantUpdateStatus Operation = "tenant.update.status"
	OpTenantUpdatePlan   Operation = "tenant.update.plan"

	OpAccountListAll       Operation = "account.list.all"
	OpAccountList          Operation = "account.list"
	OpAccountCreate        Operation = "account.create"
	OpAccountGrantPlatform Operation = "account.grant.platform"
	OpAccountRead          Operation = "account.read"
	OpAccountUpdate        Operation = "account.update"
	OpAccountUpdateSelf    Operation = "account.update.self"
	OpAccountUpdateActive  Operation = "account.update.active"
	OpAccountDelete        Operation = "account.delete"

	OpProjectCreate Operation = "project.create"
	OpProjectList   Operation = "project.list"
	OpProjectRead   Operation = "project.read"
	OpProjectUpdate Operation = "project.update"
	OpProjectDelete Operation = "project.delete"

	OpTaskCreate       Operation = "task.create"
	OpTaskList         Operation = "task.list"
	OpTaskListAll      Operation = "task.list.all"
	OpTaskRead         Operation = "task.read"
	OpTaskUpdate       Operation = "task.update"
	OpTaskUpdateStatus Operation = "task.update.status"
	OpTaskDelete       Operation = "task.delete"
)
