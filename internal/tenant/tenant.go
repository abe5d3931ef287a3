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
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/opentrusty/tenantdesk/internal/authz"
)

// Domain errors
var (
	ErrTenantNotFound = errors.New("tenant not found")
	ErrSubdomainTaken = errors.New("subdomain already taken")
	ErrTenantInactive = errors.New("tenant is not active")
	ErrInvalidInput   = errors.New("invalid tenant input")
)

// Status is the lifecycle state of a tenant.
type Status string

// Status constants
const (
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
	StatusTrial     Status = "TRIAL"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusTrial:
		return true
	}
	return false
}

// Tenant is an isolated customer account that owns accounts, projects and
// tasks.
type Tenant struct {
	ID          string
	Name        string
	Subdomain   string
	Status      Status
	Plan        authz.Plan
	MaxUsers    int
	MaxProjects int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Active reports whether members may log in and reach resources. Only
// ACTIVE counts; TRIAL is treated like SUSPENDED.
func (t *Tenant) Active() bool {
	return t.Status == StatusActive
}

// ApplyPlan switches the plan and overwrites both limits from the plan table.
func (t *Tenant) ApplyPlan(p authz.Plan) {
	limits := authz.PlanLimits(p)
	t.Plan = p
	t.MaxUsers = limits.MaxUsers
	t.MaxProjects = limits.MaxProjects
}

// Stats are live usage counts of a tenant.
type Stats struct {
	TotalUsers    int
	TotalProjects int
}

// Details is a tenant with its usage.
type Details struct {
	Tenant *Tenant
	Stats  Stats
}

var subdomainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{1,61}[a-z0-9])$`)

// NormalizeSubdomain lowercases and trims s and checks the allowed shape:
// 3 to 63 characters of lowercase letters, digits and inner hyphens.
func NormalizeSubdomain(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	return s, subdomainPattern.MatchString(s)
}
