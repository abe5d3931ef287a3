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

package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/opentrusty/tenantdesk/internal/audit"
	"github.com/opentrusty/tenantdesk/internal/authz"
	"github.com/opentrusty/tenantdesk/internal/id"
	"github.com/opentrusty/tenantdesk/internal/observability/logger"
)

// BootstrapRequest describes the initial platform administrator.
type BootstrapRequest struct {
	Email    string
	Password string
	FullName string
}

// BootstrapPlatformAdmin creates a tenant-less SUPER_ADMIN unless an
// account without tenant already uses the email. It reports whether an
// account was created.
func (s *Service) BootstrapPlatformAdmin(ctx context.Context, req BootstrapRequest) (bool, error) {
	if strings.TrimSpace(req.Email) == "" {
		return false, nil
	}

	email, err := NormalizeEmail(req.Email)
	if err != nil {
		return false, err
	}

	existing, err := s.accounts.FindByEmail(ctx, "", email)
	if err == nil && existing != nil {
		slog.InfoContext(ctx, "platform admin already present, skipping bootstrap", logger.UserID(existing.ID))
		return false, nil
	}
	if err != nil && !errors.Is(err, ErrAccountNotFound) {
		return false, fmt.Errorf("failed to check for existing platform admin: %w", err)
	}

	if err := s.checkPassword(req.Password); err != nil {
		return false, err
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}

	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		fullName = "Platform Administrator"
	}

	now := time.Now()
	admin := &Account{
		ID:           id.NewUUIDv7(),
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		Role:         authz.RoleSuperAdmin,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accounts.Create(ctx, admin); err != nil {
		return false, fmt.Errorf("failed to create platform admin: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeAccountCreated,
		ActorID:  audit.ActorSystemBootstrap,
		Resource: "account:" + admin.ID,
		Metadata: map[string]any{
			audit.AttrEmail: email,
			audit.AttrRole:  string(admin.Role),
		},
	})
	slog.InfoContext(ctx, "bootstrapped platform admin", logger.UserID(admin.ID), logger.Email(email))
	return true, nil
}
