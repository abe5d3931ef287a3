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
	"fmt"
	"log"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/opentrusty/tenantdesk/internal/config"
	"github.com/opentrusty/tenantdesk/internal/observability/logger"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "tenantdesk",
	Short: "Multi-tenant project and task management service",
	// bare invocation serves
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Overload(); err != nil {
			log.Println("Error loading .env file, skipping")
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		logger.InitLogger(logger.Config{
			Level:       cfg.Observability.LogLevel,
			Format:      cfg.Observability.LogFormat,
			ServiceName: cfg.Observability.ServiceName,
			OTel:        cfg.Observability.OTELEnabled,
		})
		slog.Debug("configuration loaded",
			logger.String("store", cfg.Store.Backend),
			logger.String("rate_limit", cfg.RateLimit.Backend),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, bootstrapCmd)
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalln(err.Error())
	}
}
