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

package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Config holds metrics configuration
type Config struct {
	Enabled bool
}

// Meter wraps OpenTelemetry meter together with the domain instruments.
// A nil *Meter is valid and records nothing.
type Meter struct {
	meter metric.Meter

	logins          metric.Int64Counter
	authzDecisions  metric.Int64Counter
	quotaRejections metric.Int64Counter
	tokensIssued    metric.Int64Counter
	loginLatency    metric.Float64Histogram
}

// New creates a new meter instance
func New(ctx context.Context, cfg Config, serviceName string) (*Meter, error) {
	var mm metric.Meter
	if cfg.Enabled {
		// Global provider; exporters are configured by the process owner.
		mm = otel.Meter(serviceName)
	} else {
		mm = noop.NewMeterProvider().Meter(serviceName)
	}

	m := &Meter{meter: mm}

	var err error
	if m.logins, err = m.CreateCounter("tenantdesk.auth.logins", "Login attempts by outcome"); err != nil {
		return nil, err
	}
	if m.authzDecisions, err = m.CreateCounter("tenantdesk.authz.decisions", "Authorization decisions by operation and result"); err != nil {
		return nil, err
	}
	if m.quotaRejections, err = m.CreateCounter("tenantdesk.quota.rejections", "Creations refused by tenant quota"); err != nil {
		return nil, err
	}
	if m.tokensIssued, err = m.CreateCounter("tenantdesk.tokens.issued", "Identity tokens issued"); err != nil {
		return nil, err
	}
	if m.loginLatency, err = m.CreateHistogram("tenantdesk.auth.login.duration", "Time spent verifying a login", "ms"); err != nil {
		return nil, err
	}

	return m, nil
}

// CreateCounter creates a new counter metric
func (m *Meter) CreateCounter(name, description string) (metric.Int64Counter, error) {
	counter, err := m.meter.Int64Counter(
		name,
		metric.WithDescription(description),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %s: %w", name, err)
	}
	return counter, nil
}

// CreateHistogram creates a new histogram metric
func (m *Meter) CreateHistogram(name, description, unit string) (metric.Float64Histogram, error) {
	histogram, err := m.meter.Float64Histogram(
		name,
		metric.WithDescription(description),
		metric.WithUnit(unit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram %s: %w", name, err)
	}
	return histogram, nil
}

// RecordLogin counts a login attempt. outcome is "success" or a failure reason.
func (m *Meter) RecordLogin(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.logins.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordLoginDuration records how long a login took, hash verification
// included.
func (m *Meter) RecordLoginDuration(ctx context.Context, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.loginLatency.Record(ctx, float64(d)/float64(time.Millisecond),
		metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordDecision counts a policy decision.
func (m *Meter) RecordDecision(ctx context.Context, operation string, allowed bool) {
	if m == nil {
		return
	}
	m.authzDecisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Bool("allowed", allowed),
	))
}

// RecordQuotaRejection counts a creation refused by a tenant limit.
func (m *Meter) RecordQuotaRejection(ctx context.Context, resource string) {
	if m == nil {
		return
	}
	m.quotaRejections.Add(ctx, 1, metric.WithAttributes(attribute.String("resource", resource)))
}

// RecordTokenIssued counts an issued token by role.
func (m *Meter) RecordTokenIssued(ctx context.Context, role string) {
	if m == nil {
		return
	}
	m.tokensIssued.Add(ctx, 1, metric.WithAttributes(attribute.String("role", role)))
}
