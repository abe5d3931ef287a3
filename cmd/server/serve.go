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
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	_ "github.com/opentrusty/tenantdesk/docs"
	"github.com/opentrusty/tenantdesk/internal/config"
	"github.com/opentrusty/tenantdesk/internal/observability/logger"
	"github.com/opentrusty/tenantdesk/internal/observability/metrics"
	"github.com/opentrusty/tenantdesk/internal/observability/tracing"
	transportHTTP "github.com/opentrusty/tenantdesk/internal/transport/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	slog.Info("starting tenantdesk")

	// Initialize tracer
	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		Endpoint:       cfg.Observability.OTELEndpoint,
		Insecure:       true,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		Environment:    cfg.Observability.Environment,
		SamplingRate:   cfg.Observability.SampleRate,
	})
	if err != nil {
		slog.Error("failed to initialize tracer", logger.Error(err))
	} else {
		defer tracer.Shutdown(context.Background())
	}

	// Initialize meter
	meter, err := metrics.New(ctx, metrics.Config{
		Enabled: cfg.Observability.OTELEnabled,
	}, cfg.Observability.ServiceName)
	if err != nil {
		slog.Error("failed to initialize meter", logger.Error(err))
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	if st.migrate != nil {
		if err := st.migrate(ctx); err != nil {
			return err
		}
	}

	svc, err := newServices(cfg, st, meter)
	if err != nil {
		return err
	}
	if err := bootstrapAdmin(ctx, cfg, svc); err != nil {
		slog.Error("bootstrap failed", logger.Error(err))
	}

	limiter, stopLimiter, err := newLimiter(ctx, cfg)
	if err != nil {
		return err
	}
	defer stopLimiter()

	handler := transportHTTP.NewHandler(svc.identity, svc.tenants, svc.projects, st)
	router := transportHTTP.NewRouter(handler, transportHTTP.RouterConfig{
		Tokens:         svc.tokens,
		Limiter:        limiter,
		HandlerTimeout: cfg.Server.HandlerTimeout,
		Metrics:        cfg.Observability.MetricsEnabled,
	})

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting http server", logger.Component("server"), logger.Operation("listen"))
		slog.Info(fmt.Sprintf("listening on %s", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", logger.Error(err))
	}

	slog.Info("server stopped")
	return nil
}

// newLimiter builds the configured rate limiter and its cleanup.
func newLimiter(ctx context.Context, cfg *config.Config) (transportHTTP.Limiter, func(), error) {
	switch cfg.RateLimit.Backend {
	case config.RateLimitRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		slog.Info("using redis rate limiter", logger.String("addr", cfg.Redis.Addr))
		l := transportHTTP.NewRedisLimiter(client, "", cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		return l, func() { _ = client.Close() }, nil
	default:
		l := transportHTTP.NewMemoryLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		return l, l.Stop, nil
	}
}
