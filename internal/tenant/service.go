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
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/opentrusty/tenantdesk/internal/audit"
	"github.com/opentrusty/tenantdesk/internal/authz"
)

var tracer = otel.Tracer("github.com/opentrusty/tenantdesk/internal/tenant")

// MaxPageSize caps list requests.
const MaxPageSize = 100

// UpdateRequest carries optional tenant changes. Nil fields are left as is.
type UpdateRequest struct {
	Name   *string
	Status *Status
	Plan   *authz.Plan
}

// Service provides tenant management business logic
type Service struct {
	repo        Repository
	usage       UsageCounter
	gate        *Gate
	authz       *authz.Service
	auditLogger audit.Logger
}

// NewService creates a new tenant service
func NewService(repo Repository, usage UsageCounter, authzService *authz.Service, auditLogger audit.Logger) *Service {
	if auditLogger == nil {
		auditLogger = audit.Nop{}
	}
	return &Service{
		repo:        repo,
		usage:       usage,
		gate:        NewGate(repo),
		authz:       authzService,
		auditLogger: auditLogger,
	}
}

// Gate returns the status gate shared with other resource services.
func (s *Service) Gate() *Gate {
	return s.gate
}

// GetTenant returns a tenant with its usage.
func (s *Service) GetTenant(ctx context.Context, actor authz.Identity, id string) (*Details, error) {
	ctx, span := tracer.Start(ctx, "tenant.GetTenant", trace.WithAttributes(attribute.String("tenant.id", id)))
	defer span.End()

	if err := s.authz.Authorize(ctx, actor, authz.OpTenantRead, authz.Target{TenantID: id}); err != nil {
		return nil, err
	}
	if err := s.gate.Check(ctx, actor); err != nil {
		return nil, err
	}

	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.details(ctx, t)
}

// ListTenants returns one page of tenants and the total count.
func (s *Service) ListTenants(ctx context.Context, actor authz.Identity, limit, offset int) ([]*Tenant, int, error) {
	if err := s.authz.Authorize(ctx, actor, authz.OpTenantList, authz.Target{}); err != nil {
		return nil, 0, err
	}

	limit, offset = ClampPage(limit, offset)
	tenants, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tenants: %w", err)
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count tenants: %w", err)
	}
	return tenants, total, nil
}

// UpdateTenant applies req. Name changes are open to the tenant's admins;
// status and plan changes need the platform role. A plan change resets
// both limits from the plan table.
func (s *Service) UpdateTenant(ctx context.Context, actor authz.Identity, id string, req UpdateRequest) (*Details, error) {
	ctx, span := tracer.Start(ctx, "tenant.UpdateTenant", trace.WithAttributes(attribute.String("tenant.id", id)))
	defer span.End()

	target := authz.Target{TenantID: id}
	if err := s.authz.Authorize(ctx, actor, authz.OpTenantUpdate, target); err != nil {
		return nil, err
	}
	if req.Status != nil {
		if err := s.authz.Authorize(ctx, actor, authz.OpTenantUpdateStatus, target); err != nil {
			return nil, err
		}
		if !req.Status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *req.Status)
		}
	}
	if req.Plan != nil {
		if err := s.authz.Authorize(ctx, actor, authz.OpTenantUpdatePlan, target); err != nil {
			return nil, err
		}
		if !req.Plan.Valid() {
			return nil, fmt.Errorf("%w: unknown subscription plan %q", ErrInvalidInput, *req.Plan)
		}
	}
	if err := s.gate.Check(ctx, actor); err != nil {
		return nil, err
	}

	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name must not be blank", ErrInvalidInput)
		}
		t.Name = name
	}

	meta := map[string]any{}
	if req.Status != nil && *req.Status != t.Status {
		meta[audit.AttrStatus] = string(*req.Status)
		t.Status = *req.Status
	}
	if req.Plan != nil {
		meta[audit.AttrPlan] = string(*req.Plan)
		t.ApplyPlan(*req.Plan)
	}
	t.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to update tenant: %w", err)
	}

	eventType := audit.TypeTenantUpdated
	switch {
	case req.Plan != nil:
		eventType = audit.TypePlanChanged
	case req.Status != nil:
		eventType = audit.TypeStatusChanged
	}
	s.auditLogger.Log(ctx, audit.Event{
		Type:     eventType,
		TenantID: t.ID,
		ActorID:  actor.UserID,
		Resource: "tenant:" + t.ID,
		Metadata: meta,
	})

	return s.details(ctx, t)
}

func (s *Service) details(ctx context.Context, t *Tenant) (*Details, error) {
	users, err := s.usage.CountAccounts(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count accounts: %w", err)
	}
	projects, err := s.usage.CountProjects(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count projects: %w", err)
	}
	return &Details{
		Tenant: t,
		Stats:  Stats{TotalUsers: users, TotalProjects: projects},
	}, nil
}

// ClampPage bounds limit to [1, MaxPageSize] and offset to >= 0.
func ClampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
