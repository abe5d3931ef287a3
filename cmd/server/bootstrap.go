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
	"errors"

	"github.com/spf13/cobra"
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Create the platform administrator from BOOTSTRAP_ADMIN_* settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Bootstrap.AdminEmail == "" {
			return errors.New("BOOTSTRAP_ADMIN_EMAIL is not set")
		}

		ctx := cmd.Context()
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

		svc, err := newServices(cfg, st, nil)
		if err != nil {
			return err
		}
		return bootstrapAdmin(ctx, cfg, svc)
	},
}
