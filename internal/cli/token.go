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
	"fmt"
	"time"

	"identity-merge-go/internal/auth"
	"identity-merge-go/internal/config"

	"github.com/spf13/cobra"
)

func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		subject string
		scopes  []string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed operator token for the admin API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if ttl <= 0 {
				ttl = cfg.Auth.TokenTTL
			}

			issuer, err := auth.NewIssuer(cfg.Auth)
			if err != nil {
				return err
			}
			token, err := issuer.Issue(subject, scopes, ttl)
			if err != nil {
				return err
			}

			if rootOpts.json() {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"token":     token,
					"subject":   subject,
					"scopes":    scopes,
					"expiresIn": ttl.String(),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "operator the token is issued to")
	cmd.Flags().StringSliceVar(&scopes, "scope", auth.AllScopes, "scopes granted by the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to OPERATOR_TOKEN_TTL)")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
