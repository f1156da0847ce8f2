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
	"go.uber.org/zap"
)

func NewMergeCommand(rootOpts *RootOptions) *cobra.Command {
	var req models.LinkAccountsRequest

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge a source identity into a target identity",
		Long: `Move every record owned by the source identity to the target identity,
link both addresses to the target and mark the source as merged.

Flags left empty fall back to MERGE_DEFAULT_TARGET_EMAIL and MERGE_DEFAULT_SOURCE_EMAIL.
A merge that failed part way can safely be run again.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(cfg *models.Config, services *common.Services) error {
				result, err := services.Admin.LinkAccounts(cmd.Context(), common.LocalOperator(), req)
				if err != nil {
					return err
				}
				if rootOpts.json() {
					return writeJSON(cmd.OutOrStdout(), result)
				}

				common.PrintHeader("IDENTITY MERGE", common.WideWidth)
				fmt.Printf("Target: %s (%s)\n", result.PrimaryEmail, result.TargetUserId)
				fmt.Printf("Source: %s (%s)\n", result.LinkedEmail, result.SourceUserId)
				common.PrintSeparator("-", common.WideWidth)
				common.PrintSteps(result.Steps)
				common.PrintFooter("Merge completed", common.WideWidth)

				zap.L().Info("Merge command completed",
					zap.String("target_id", result.TargetUserId),
					zap.String("source_id", result.SourceUserId))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&req.TargetEmail, "target-email", "", "address of the identity to keep")
	cmd.Flags().StringVar(&req.TargetUsername, "target-username", "", "username of the identity to keep (takes precedence over --target-email)")
	cmd.Flags().StringVar(&req.SourceEmail, "source-email", "", "address of the identity to merge away")
	return cmd
}
