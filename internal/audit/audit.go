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

package audit

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Event types
const (
	TypeTenantRegistered = "tenant_registered"
	TypeTenantUpdated    = "tenant_updated"
	TypePlanChanged      = "plan_changed"
	TypeStatusChanged    = "status_changed"
	TypeLoginSuccess     = "login_success"
	TypeLoginFailed      = "login_failed"
	TypeTokenIssued      = "token_issued"
	TypeLogout           = "logout"
	TypeAccountCreated   = "account_created"
	TypeAccountUpdated   = "account_updated"
	TypeAccountDeleted   = "account_deleted"
	TypePasswordChanged  = "password_changed"
	TypeAccessDenied     = "access_denied"
	TypeQuotaExceeded    = "quota_exceeded"
	TypeProjectCreated   = "project_created"
	TypeProjectDeleted   = "project_deleted"
	TypeTaskCreated      = "task_created"
	TypeTaskDeleted      = "task_deleted"
)

// Metadata keys
const (
	AttrReason    = "reason"
	AttrEmail     = "email"
	AttrRole      = "role"
	AttrPlan      = "plan"
	AttrStatus    = "status"
	AttrSubdomain = "subdomain"
	AttrOperation = "operation"
)

// ActorSystemBootstrap identifies changes made by the bootstrap command.
const ActorSystemBootstrap = "system:bootstrap"

// Event represents an auditable action
type Event struct {
	Type      string
	TenantID  string
	ActorID   string
	Resource  string
	Metadata  map[string]any
	Timestamp time.Time
	IPAddress string
	UserAgent string
}

// Logger defines the interface for audit logging
type Logger interface {
	Log(ctx context.Context, event Event)
}

// SlogLogger implements Logger using slog
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger creates a new audit logger. A nil logger uses slog.Default
// at the time each event is written.
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	return &SlogLogger{logger: logger}
}

// Log records an audit event
func (l *SlogLogger) Log(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	attrs := []slog.Attr{
		slog.String("component", "audit"),
		slog.String("audit_type", event.Type),
		slog.String("tenant_id", event.TenantID),
		slog.String("actor_id", event.ActorID),
		slog.String("resource", event.Resource),
		slog.Time("timestamp", event.Timestamp),
	}

	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}

	if len(event.Metadata) > 0 {
		group := make([]any, 0, len(event.Metadata))
		for k, v := range event.Metadata {
			if isSecret(k) {
				v = "[REDACTED]"
			}
			group = append(group, slog.Any(k, v))
		}
		attrs = append(attrs, slog.Group("metadata", group...))
	}

	logger := l.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "AUDIT_EVENT", attrs...)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Log(context.Context, Event) {}

var secretMarkers = []string{"password", "secret", "token", "key", "authorization", "hash", "credential"}

// isSecret reports whether a metadata key likely holds a secret.
func isSecret(key string) bool {
	k := strings.ToLower(key)
	for _, s := range secretMarkers {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}
