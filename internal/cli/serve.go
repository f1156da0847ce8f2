/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package cli

import (
	"identity-merge-go/internal/api"
	"identity-merge-go/internal/auth"
	"identity-merge-go/internal/common"
	"identity-merge-go/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the admin HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(cfg *models.Config, services *common.Services) error {
				verifier, err := auth.NewVerifier(cfg.Auth)
				if err != nil {
					return err
				}
				if addr != "" {
					cfg.Server.Addr = addr
				}

				gin.SetMode(gin.ReleaseMode)
				server := api.NewServer(services.Admin, verifier, cfg.Server)
				return server.Run(cmd.Context())
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides SERVER_ADDR)")
	return cmd
}
