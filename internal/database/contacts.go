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

	"identity-merge-go/internal/contact"
	"identity-merge-go/internal/models"
	"identity-merge-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GetContactLink returns the link for an address, or nil when the address is unlinked.
func (s *Service) GetContactLink(ctx context.Context, email string) (*models.ContactLink, error) {
	normalized := contact.Normalize(email)
	zap.L().Debug("Querying contact link", zap.String("email", normalized))

	var link models.ContactLink
	err := s.db.GetContext(ctx, &link, s.rebind(queryGetContactLink), normalized)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("Failed to query contact link", zap.String("email", normalized), zap.Error(err))
		return nil, fmt.Errorf("unable to query contact link: %w", classify(err))
	}
	return &link, nil
}

func (s *Service) GetContactLinks(ctx context.Context, identityId string) ([]models.ContactLink, error) {
	var links []models.ContactLink
	if err := s.db.SelectContext(ctx, &links, s.rebind(queryGetContactLinks), identityId); err != nil {
		zap.L().Error("Failed to query contact links", zap.String("identity_id", identityId), zap.Error(err))
		return nil, fmt.Errorf("unable to query contact links: %w", classify(err))
	}

	zap.L().Debug("Retrieved contact links", zap.String("identity_id", identityId), zap.Int("count", len(links)))
	return links, nil
}

// InsertContactLink surfaces store.ErrDuplicateKey when the address is already linked.
func (s *Service) InsertContactLink(ctx context.Context, params store.ContactLinkParams) error {
	normalized := contact.Normalize(params.Email)
	zap.L().Info("Linking contact address",
		zap.String("email", normalized),
		zap.String("identity_id", params.IdentityId),
		zap.Bool("primary", params.IsPrimary))

	_, err := s.db.ExecContext(ctx, s.rebind(queryInsertContactLink), uuid.New().String(), normalized, params.IdentityId, params.IsPrimary)
	if err != nil {
		return fmt.Errorf("unable to insert contact link: %w", classify(err))
	}
	return nil
}

// ReassignContactLink moves an existing address link to another identity.
func (s *Service) ReassignContactLink(ctx context.Context, params store.ContactLinkParams) error {
	normalized := contact.Normalize(params.Email)
	zap.L().Info("Reassigning contact address",
		zap.String("email", normalized),
		zap.String("identity_id", params.IdentityId),
		zap.Bool("primary", params.IsPrimary))

	result, err := s.db.ExecContext(ctx, s.rebind(queryReassignContactLink), params.IdentityId, params.IsPrimary, normalized)
	if err != nil {
		return fmt.Errorf("unable to reassign contact link: %w", classify(err))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no contact link for %s", normalized)
	}
	return nil
}

// DemotePrimaryContacts clears the primary flag on every link of identityId except keepEmail.
func (s *Service) DemotePrimaryContacts(ctx context.Context, identityId, keepEmail string) (int64, error) {
	result, err := s.db.ExecContext(ctx, s.rebind(queryDemotePrimaryContacts), identityId, contact.Normalize(keepEmail))
	if err != nil {
		return 0, fmt.Errorf("unable to demote primary contacts: %w", classify(err))
	}
	return result.RowsAffected()
}
