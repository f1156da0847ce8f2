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
	"strings"

	"identity-merge-go/internal/common"
	"identity-merge-go/internal/models"

	"github.com/spf13/cobra"
)

func NewAwardCommand(rootOpts *RootOptions) *cobra.Command {
	var req models.AwardRequest

	cmd := &cobra.Command{
		Use:   "award",
		Short: "Award the full achievement set to one identity",
		Long: `Set the identity's progression to the PROGRESSION_TARGET_* values and grant
every achievement in the catalog. Achievements already held are left alone.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Email == "" && req.IdentityId == "" {
				return fmt.Errorf("one of --email or --identity-id is required")
			}

			return withServices(cmd.Context(), func(cfg *models.Config, services *common.Services) error {
				result, err := services.Admin.AwardFullSet(cmd.Context(), common.LocalOperator(), req)
				if err != nil {
					return err
				}
				if rootOpts.json() {
					return writeJSON(cmd.OutOrStdout(), result)
				}

				common.PrintHeader("ACHIEVEMENTS AWARDED", common.DefaultWidth)
				fmt.Printf("Identity:    %s\n", result.IdentityId)
				fmt.Printf("Granted:     %s\n", orNone(result.Granted))
				fmt.Printf("Already had: %s\n", orNone(result.AlreadyHad))
				common.PrintSeparator("=", common.DefaultWidth)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&req.Email, "email", "", "address of the identity")
	cmd.Flags().StringVar(&req.IdentityId, "identity-id", "", "id of the identity")
	return cmd
}

func orNone(keys []string) string {
	if len(keys) == 0 {
		return "none"
	}
	return strings.Join(keys, ", ")
}
