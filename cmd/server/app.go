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

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/opentrusty/tenantdesk/internal/audit"
	"github.com/opentrusty/tenantdesk/internal/authz"
	"github.com/opentrusty/tenantdesk/internal/config"
	"github.com/opentrusty/tenantdesk/internal/identity"
	"github.com/opentrusty/tenantdesk/internal/observability/metrics"
	"github.com/opentrusty/tenantdesk/internal/project"
	"github.com/opentrusty/tenantdesk/internal/store/memory"
	"github.com/opentrusty/tenantdesk/internal/store/postgres"
	"github.com/opentrusty/tenantdesk/internal/tenant"
	"github.com/opentrusty/tenantdesk/internal/token"
)

// store is the set of repositories one backend provides.
type store struct {
	tenants  tenant.Repository
	usage    tenant.UsageCounter
	accounts identity.AccountRepository
	projects project.ProjectRepository
	tasks    project.TaskRepository
	ping     func(ctx context.Context) error
	close    func()
	// migrate is nil for backends without a schema.
	migrate func(ctx context.Context) error
}

func (s *store) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	switch cfg.Store.Backend {
	case config.StoreMemory:
		db := memory.New()
		slog.Warn("using in-memory store, data is lost on restart")
		return &store{
			tenants:  db.Tenants(),
			usage:    db.Usage(),
			accounts: db.Accounts(),
			projects: db.Projects(),
			tasks:    db.Tasks(),
			ping:     db.Ping,
			close:    func() {},
		}, nil

	case config.StorePostgres:
		db, err := postgres.New(ctx, postgres.Config{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			Database:        cfg.Database.Database,
			SSLMode:         cfg.Database.SSLMode,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		slog.Info("connected to database")
		return &store{
			tenants:  db.Tenants(),
			usage:    db.Usage(),
			accounts: db.Accounts(),
			projects: db.Projects(),
			tasks:    db.Tasks(),
			ping:     db.Ping,
			close:    db.Close,
			migrate:  db.Migrate,
		}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

// services holds the wired domain services.
type services struct {
	tokens   *token.Service
	identity *identity.Service
	tenants  *tenant.Service
	projects *project.Service
}

func newServices(cfg *config.Config, st *store, meter *metrics.Meter) (*services, error) {
	auditLogger := audit.NewSlogLogger(nil)

	tokens, err := token.NewService(token.Config{
		Secret: cfg.Token.Secret,
		Issuer: cfg.Token.Issuer,
		TTL:    cfg.Token.TTL,
		Leeway: cfg.Token.Leeway,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	passwordHasher := identity.NewPasswordHasher(
		cfg.Password.Argon2Memory,
		cfg.Password.Argon2Iterations,
		cfg.Password.Argon2Parallelism,
		cfg.Password.Argon2SaltLength,
		cfg.Password.Argon2KeyLength,
	)

	authzService := authz.NewService(auditLogger, meter)

	return &services{
		tokens: tokens,
		identity: identity.NewService(
			st.accounts,
			st.tenants,
			st.usage,
			passwordHasher,
			tokens,
			authzService,
			auditLogger,
			meter,
			identity.Options{MinPasswordLength: cfg.Password.MinLength},
		),
		tenants: tenant.NewService(st.tenants, st.usage, authzService, auditLogger),
		projects: project.NewService(
			st.projects,
			st.tasks,
			st.accounts,
			st.tenants,
			st.usage,
			authzService,
			auditLogger,
		),
	}, nil
}

func bootstrapAdmin(ctx context.Context, cfg *config.Config, svc *services) error {
	created, err := svc.identity.BootstrapPlatformAdmin(ctx, identity.BootstrapRequest{
		Email:    cfg.Bootstrap.AdminEmail,
		Password: cfg.Bootstrap.AdminPassword,
		FullName: cfg.Bootstrap.AdminName,
	})
	if err != nil {
		return err
	}
	if created {
		slog.InfoContext(ctx, "platform administrator created")
	}
	return nil
}
