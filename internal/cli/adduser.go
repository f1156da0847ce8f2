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
	"context"
	"errors"
	"fmt"
	"strings"

	"identity-merge-go/internal/common"
	"identity-merge-go/internal/config"
	"identity-merge-go/internal/database"
	"identity-merge-go/internal/store"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type addUserOptions struct {
	username string
	email    string
	name     string
	wallets  []string
	accounts []string
	chain    string
}

type recordStats struct {
	successCount  int
	failedRecords []string
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if len(name) < 2 {
		return fmt.Errorf("name must be at least 2 characters")
	}
	return nil
}

// parseAccount splits "provider:external-id".
func parseAccount(account string) (string, string, error) {
	provider, externalId, ok := strings.Cut(account, ":")
	if !ok || provider == "" || externalId == "" {
		return "", "", fmt.Errorf("invalid account %q, expected provider:id", account)
	}
	return provider, externalId, nil
}

func NewAddUserCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &addUserOptions{}

	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create an identity with optional wallet and external account links",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAddUser(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.username, "username", "", "username of the new identity (required)")
	cmd.Flags().StringVar(&opts.email, "email", "", "primary contact address (required)")
	cmd.Flags().StringVar(&opts.name, "name", "", "full name (required)")
	cmd.Flags().StringSliceVar(&opts.wallets, "wallet", nil, "wallet address to link (repeatable)")
	cmd.Flags().StringVar(&opts.chain, "chain", "ethereum", "chain of the linked wallets")
	cmd.Flags().StringSliceVar(&opts.accounts, "account", nil, "external account to link as provider:id (repeatable)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func runAddUser(ctx context.Context, opts *addUserOptions) error {
	if err := validateName(opts.name); err != nil {
		return err
	}
	for _, account := range opts.accounts {
		if _, _, err := parseAccount(account); err != nil {
			return err
		}
	}

	zap.L().Info("Starting identity creation process",
		zap.String("username", opts.username),
		zap.String("email", opts.email))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbService.Close()

	identity, err := dbService.CreateIdentity(ctx, store.CreateIdentityParams{
		Id:       uuid.New().String(),
		Username: opts.username,
		Email:    opts.email,
		FullName: opts.name,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return fmt.Errorf("identity already exists with this username or email: %w", err)
		}
		return fmt.Errorf("failed to create identity: %w", err)
	}

	fmt.Println()
	common.PrintHeader("IDENTITY CREATED", common.DefaultWidth)
	fmt.Printf("ID:       %s\n", identity.Id)
	fmt.Printf("Username: %s\n", identity.Username)
	fmt.Printf("Email:    %s\n", identity.Email)
	common.PrintSeparator("=", common.DefaultWidth)

	if len(opts.wallets) == 0 && len(opts.accounts) == 0 {
		return nil
	}

	stats := linkRecords(ctx, dbService, identity.Id, opts)

	fmt.Println()
	common.PrintHeader("LINKED RECORDS", common.DefaultWidth)
	fmt.Printf("Successful:        %d\n", stats.successCount)
	fmt.Printf("Failed:            %d\n", len(stats.failedRecords))
	if len(stats.failedRecords) > 0 {
		fmt.Printf("Failed Records:    %s\n", strings.Join(stats.failedRecords, ", "))
	}
	common.PrintSeparator("=", common.DefaultWidth)

	if len(stats.failedRecords) > 0 {
		zap.L().Warn("Identity created but some records failed to link",
			zap.String("identity_id", identity.Id),
			zap.Strings("failed_records", stats.failedRecords))
	}
	return nil
}

func linkRecords(ctx context.Context, dbService *database.Service, identityId string, opts *addUserOptions) recordStats {
	stats := recordStats{failedRecords: []string{}}

	for _, address := range opts.wallets {
		wallet, err := dbService.CreateWalletLink(ctx, identityId, address, opts.chain)
		if err != nil {
			zap.L().Error("Failed to link wallet", zap.String("address", address), zap.Error(err))
			fmt.Printf("✗ wallet %s\n", address)
			stats.failedRecords = append(stats.failedRecords, address)
			continue
		}
		fmt.Printf("✓ wallet %s (%s)\n", wallet.Address, wallet.Chain)
		stats.successCount++
	}

	for _, account := range opts.accounts {
		provider, externalId, _ := parseAccount(account)
		if _, err := dbService.CreateExternalAccount(ctx, identityId, provider, externalId); err != nil {
			zap.L().Error("Failed to link external account", zap.String("provider", provider), zap.Error(err))
			fmt.Printf("✗ %s account %s\n", provider, externalId)
			stats.failedRecords = append(stats.failedRecords, account)
			continue
		}
		fmt.Printf("✓ %s account %s\n", provider, externalId)
		stats.successCount++
	}

	return stats
}
