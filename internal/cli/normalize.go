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
	"identity-merge-go/internal/models"

	"github.com/spf13/cobra"
)

func NewNormalizeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize",
		Short: "Default missing progression and grant default achievements",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(cfg *models.Config, services *common.Services) error {
				result, err := services.Admin.NormalizeProgression(cmd.Context(), common.LocalOperator())
				if err != nil {
					return err
				}
				if rootOpts.json() {
					return writeJSON(cmd.OutOrStdout(), result)
				}

				summary := fmt.Sprintf("NORMALIZED: %d identities defaulted, %d default achievements granted",
					result.UpdatedCount, result.DefaultGrants)
				common.PrintFooter(summary, common.DefaultWidth)
				return nil
			})
		},
	}
}
