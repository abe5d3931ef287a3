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

// Plan is a tenant subscription plan.
type Plan string

const (
	PlanFree       Plan = "FREE"
	PlanPro        Plan = "PRO"
	PlanEnterprise Plan = "ENTERPRISE"
)

// Valid reports whether p is a known plan.
func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanPro, PlanEnterprise:
		return true
	}
	return false
}

// Limits are the per-tenant resource maximums.
type Limits struct {
	MaxUsers    int
	MaxProjects int
}

var planLimits = map[Plan]Limits{
	PlanFree:       {MaxUsers: 5, MaxProjects: 3},
	PlanPro:        {MaxUsers: 25, MaxProjects: 15},
	PlanEnterprise: {MaxUsers: 100, MaxProjects: 50},
}

// PlanLimits returns the limits a plan grants. Unknown plans get the free
// tier. Applying a plan overwrites the tenant's limits even when that leaves
// existing resources above them.
func PlanLimits(p Plan) Limits {
	if l, ok := planLimits[p]; ok {
		return l
	}
	return planLimits[PlanFree]
}

// CheckQuota refuses a creation when current is already at or above max.
// resource names the counted kind in the error, e.g. "user" or "project".
func CheckQuota(resource string, current, max int) error {
	if current >= max {
		return fmt.Errorf("%s %w: %d of %d in use", resource, ErrLimitReached, current, max)
	}
	return nil
}
