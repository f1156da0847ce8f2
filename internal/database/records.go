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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"identity-merge-go/internal/contact"
	"identity-merge-go/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (s *Service) GetCreatorProfile(ctx context.Context, identityId string) (*models.CreatorProfile, error) {
	zap.L().Debug("Querying creator profile", zap.String("identity_id", identityId))

	var profile models.CreatorProfile
	err := s.db.GetContext(ctx, &profile, s.rebind(queryGetCreatorProfile), identityId)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("Failed to query creator profile", zap.String("identity_id", identityId), zap.Error(err))
		return nil, fmt.Errorf("unable to query creator profile: %w", classify(err))
	}
	return &profile, nil
}

func (s *Service) CreateCreatorProfile(ctx context.Context, identityId, displayName, bio string) (*models.CreatorProfile, error) {
	zap.L().Info("Creating creator profile", zap.String("identity_id", identityId), zap.String("display_name", displayName))

	var profile models.CreatorProfile
	err := s.db.GetContext(ctx, &profile, s.rebind(queryInsertCreatorProfile), uuid.New().String(), identityId, displayName, bio)
	if err != nil {
		zap.L().Error("Failed to insert creator profile", zap.String("identity_id", identityId), zap.Error(err))
		return nil, fmt.Errorf("unable to insert creator profile: %w", classify(err))
	}
	return &profile, nil
}

func (s *Service) ReassignCreatorProfile(ctx context.Context, profileId, fromId, toId string) (int64, error) {
	return s.reassign(ctx, "creator profile", queryReassignCreatorProfile, profileId, fromId, toId)
}

func (s *Service) GetApplications(ctx context.Context, identityId string) ([]models.Application, error) {
	var applications []models.Application
	if err := s.db.SelectContext(ctx, &applications, s.rebind(queryGetApplications), identityId); err != nil {
		zap.L().Error("Failed to query applications", zap.String("identity_id", identityId), zap.Error(err))
		return nil, fmt.Errorf("unable to query applications: %w", classify(err))
	}
	return applications, nil
}

func (s *Service) CreateApplication(ctx context.Context, identityId, kind, status string) (*models.Application, error) {
	zap.L().Info("Creating application", zap.String("identity_id", identityId), zap.String("kind", kind))

	var application models.Application
	err := s.db.GetContext(ctx, &application, s.rebind(queryInsertApplication), uuid.New().String(), identityId, kind, status)
	if err != nil {
		return nil, fmt.Errorf("unable to insert application: %w", classify(err))
	}
	return &application, nil
}

// TransferApplications moves every application owned by fromId to toId.
func (s *Service) TransferApplications(ctx context.Context, fromId, toId string) (int64, error) {
	return s.bulkTransfer(ctx, "applications", queryTransferApplications, toId, fromId)
}

func (s *Service) GetExternalAccounts(ctx context.Context, identityId string) ([]models.ExternalAccount, error) {
	var accounts []models.ExternalAccount
	if err := s.db.SelectContext(ctx, &accounts, s.rebind(queryGetExternalAccounts), identityId); err != nil {
		zap.L().Error("Failed to query external accounts", zap.String("identity_id", identityId), zap.Error(err))
		return nil, fmt.Errorf("unable to query external accounts: %w", classify(err))
	}
	return accounts, nil
}

func (s *Service) CreateExternalAccount(ctx context.Context, identityId, provider, externalId string) (*models.ExternalAccount, error) {
	zap.L().Info("Linking external account",
		zap.String("identity_id", identityId),
		zap.String("provider", provider),
		zap.String("external_id", externalId))

	var account models.ExternalAccount
	err := s.db.GetContext(ctx, &account, s.rebind(queryInsertExternalAccount),
		uuid.New().String(), identityId, strings.ToLower(provider), externalId)
	if err != nil {
		return nil, fmt.Errorf("unable to insert external account: %w", classify(err))
	}
	return &account, nil
}

func (s *Service) ReassignExternalAccount(ctx context.Context, accountId, fromId, toId string) (int64, error) {
	return s.reassign(ctx, "external account", queryReassignExternalAccount, accountId, fromId, toId)
}

func (s *Service) GetWalletLinks(ctx context.Context, identityId string) ([]models.WalletLink, error) {
	zap.L().Debug("Querying wallet links", zap.String("identity_id", identityId))

	var wallets []models.WalletLink
	if err := s.db.SelectContext(ctx, &wallets, s.rebind(queryGetWalletLinks), identityId); err != nil {
		zap.L().Error("Failed to query wallet links", zap.String("identity_id", identityId), zap.Error(err))
		return nil, fmt.Errorf("unable to query wallet links: %w", classify(err))
	}

	zap.L().Debug("Retrieved wallet links", zap.String("identity_id", identityId), zap.Int("count", len(wallets)))
	return wallets, nil
}

func (s *Service) CreateWalletLink(ctx context.Context, identityId, address, chain string) (*models.WalletLink, error) {
	normalized := contact.NormalizeWallet(address)
	zap.L().Info("Linking wallet",
		zap.String("identity_id", identityId),
		zap.String("address", normalized),
		zap.String("chain", chain))

	var wallet models.WalletLink
	err := s.db.GetContext(ctx, &wallet, s.rebind(queryInsertWalletLink), uuid.New().String(), identityId, normalized, chain)
	if err != nil {
		zap.L().Error("Failed to insert wallet link", zap.String("identity_id", identityId), zap.Error(err))
		return nil, fmt.Errorf("unable to insert wallet link: %w", classify(err))
	}
	return &wallet, nil
}

func (s *Service) ReassignWalletLink(ctx context.Context, walletId, fromId, toId string) (int64, error) {
	return s.reassign(ctx, "wallet link", queryReassignWalletLink, walletId, fromId, toId)
}

// reassign moves a single row from one owner to another. It is a no-op (0 rows)
// when the row no longer belongs to fromId.
func (s *Service) reassign(ctx context.Context, kind, query, rowId, fromId, toId string) (int64, error) {
	result, err := s.db.ExecContext(ctx, s.rebind(query), toId, rowId, fromId)
	if err != nil {
		zap.L().Error("Failed to reassign "+kind,
			zap.String("row_id", rowId),
			zap.String("from", fromId),
			zap.String("to", toId),
			zap.Error(err))
		return 0, fmt.Errorf("unable to reassign %s %s: %w", kind, rowId, classify(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("unable to get rows affected: %w", err)
	}

	zap.L().Debug("Reassigned "+kind, zap.String("row_id", rowId), zap.Int64("rows", rowsAffected))
	return rowsAffected, nil
}

func (s *Service) bulkTransfer(ctx context.Context, kind, query string, args ...any) (int64, error) {
	result, err := s.db.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		zap.L().Error("Failed to transfer "+kind, zap.Error(err))
		return 0, fmt.Errorf("unable to transfer %s: %w", kind, classify(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("unable to get rows affected: %w", err)
	}

	zap.L().Info("Transferred "+kind, zap.Int64("rows", rowsAffected))
	return rowsAffected, nil
}
