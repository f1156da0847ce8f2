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

	"identity-merge-go/internal/common"
	"identity-merge-go/internal/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type identityListing struct {
	common.IdentityInfo
	Contacts []string `json:"contacts"`
}

func NewIdentitiesCommand(rootOpts *RootOptions) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "identities",
		Short: "List active identities and their contact addresses",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := zap.L()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			logger.Info("Connecting to database", zap.String("driver", cfg.Database.Driver))
			dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer dbService.Close()

			identities, err := common.InitializeIdentities(ctx, dbService, email, logger)
			if err != nil {
				return err
			}

			var listings []identityListing
			if !rootOpts.json() {
				common.PrintHeader("IDENTITY REPORT", common.DefaultWidth)
			}
			linked := 0
			for _, identity := range identities {
				links, err := dbService.GetContactLinks(ctx, identity.Id)
				if err != nil {
					logger.Error("Failed to get contact links", zap.String("identity_id", identity.Id), zap.Error(err))
					continue
				}
				if identity.Linked {
					linked++
				}

				if rootOpts.json() {
					listing := identityListing{IdentityInfo: identity}
					for _, link := range links {
						listing.Contacts = append(listing.Contacts, link.Email)
					}
					listings = append(listings, listing)
					continue
				}
				common.PrintIdentity(identity, links)
			}

			if rootOpts.json() {
				return writeJSON(cmd.OutOrStdout(), listings)
			}
			common.PrintFooter(fmt.Sprintf("SUMMARY: %d identities (%d with linked identities)", len(identities), linked), common.DefaultWidth)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "filter by contact address (optional)")
	return cmd
}
