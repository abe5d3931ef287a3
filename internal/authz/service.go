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
	"context"
	"errors"
	"log/slog"

	"github.com/opentrusty/tenantdesk/internal/audit"
	"github.com/opentrusty/tenantdesk/internal/observability/logger"
	"github.com/opentrusty/tenantdesk/internal/observability/metrics"
)

// Service applies the policy on behalf of resource services and records
// every denial.
type Service struct {
	auditLogger audit.Logger
	meter       *metrics.Meter
}

// NewService creates a new authorization service
func NewService(auditLogger audit.Logger, meter *metrics.Meter) *Service {
	if auditLogger == nil {
		auditLogger = audit.Nop{}
	}
	return &Service{
		auditLogger: auditLogger,
		meter:       meter,
	}
}

// Authorize checks actor against op on target. A denial is logged, counted
// and audited before the error is returned.
func (s *Service) Authorize(ctx context.Context, actor Identity, op Operation, target Target) error {
	err := Authorize(actor, op, target)
	s.meter.RecordDecision(ctx, string(op), err == nil)
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrAccessDenied) {
		slog.WarnContext(ctx, "access denied",
			logger.UserID(actor.UserID),
			logger.TenantID(actor.TenantID),
			logger.Role(string(actor.Role)),
			logger.Operation(string(op)),
			logger.Reason(Decide(actor, op, target).Reason),
			logger.String("target_tenant_id", target.TenantID),
		)
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeAccessDenied,
			TenantID: actor.TenantID,
			ActorID:  actor.UserID,
			Resource: string(op),
			Metadata: map[string]any{
				audit.AttrOperation: string(op),
				audit.AttrRole:      string(actor.Role),
				audit.AttrReason:    err.Error(),
				"target_tenant_id":  target.TenantID,
			},
		})
	}
	return err
}

// Allowed reports whether op is permitted without recording anything. It is
// used to drop optional fields the actor may not set.
func (s *Service) Allowed(actor Identity, op Operation, target Target) bool {
	return Decide(actor, op, target).Allowed
}

// CheckQuota is CheckQuota with a counted rejection.
func (s *Service) CheckQuota(ctx context.Context, actor Identity, tenantID, resource string, current, max int) error {
	if err := CheckQuota(resource, current, max); err != nil {
		s.meter.RecordQuotaRejection(ctx, resource)
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeQuotaExceeded,
			TenantID: tenantID,
			ActorID:  actor.UserID,
			Resource: resource,
			Metadata: map[string]any{"current": current, "max": max},
		})
		return err
	}
	return nil
}
