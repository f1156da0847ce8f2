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

// maxMergeDepth bounds how many merged_into pointers ResolveCanonical follows.
const maxMergeDepth = 16

func (s *Service) GetIdentities(ctx context.Context) ([]models.Identity, error) {
	zap.L().Debug("Querying active identities")

	var identities []models.Identity
	if err := s.db.SelectContext(ctx, &identities, s.rebind(queryGetActiveIdentities)); err != nil {
		zap.L().Error("Failed to query identities", zap.Error(err))
		return nil, fmt.Errorf("unable to query identities: %w", classify(err))
	}

	zap.L().Info("Retrieved identities", zap.Int("count", len(identities)))
	return identities, nil
}

func (s *Service) getIdentity(ctx context.Context, query, arg, field string) (*models.Identity, error) {
	var identity models.Identity
	err := s.db.GetContext(ctx, &identity, s.rebind(query), arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s %s", store.ErrIdentityNotFound, field, arg)
		}
		zap.L().Error("Failed to query identity", zap.String(field, arg), zap.Error(err))
		return nil, fmt.Errorf("unable to query identity by %s: %w", field, classify(err))
	}
	return &identity, nil
}

// GetIdentityById returns the identity with the given id, merged or not.
func (s *Service) GetIdentityById(ctx context.Context, identityId string) (*models.Identity, error) {
	zap.L().Debug("Querying identity by ID", zap.String("identity_id", identityId))
	return s.getIdentity(ctx, queryGetIdentityById, identityId, "id")
}

func (s *Service) GetIdentityByUsername(ctx context.Context, username string) (*models.Identity, error) {
	zap.L().Debug("Querying identity by username", zap.String("username", username))
	return s.getIdentity(ctx, queryGetIdentityByUsername, username, "username")
}

// ResolveIdentityByContact finds the identity whose primary contact address
// matches address exactly after normalization.
func (s *Service) ResolveIdentityByContact(ctx context.Context, address string) (*models.Identity, error) {
	normalized := contact.Normalize(address)
	if normalized == "" {
		return nil, fmt.Errorf("%w: empty contact address", store.ErrIdentityNotFound)
	}

	zap.L().Debug("Resolving identity by contact", zap.String("email", normalized))
	identity, err := s.getIdentity(ctx, queryGetIdentityByEmail, normalized, "email")
	if err != nil {
		return nil, err
	}

	zap.L().Debug("Resolved identity by contact",
		zap.String("email", normalized),
		zap.String("identity_id", identity.Id),
		zap.String("status", identity.Status))
	return identity, nil
}

// ResolveCanonical follows merged_into pointers until it reaches an identity
// that has not been merged.
func (s *Service) ResolveCanonical(ctx context.Context, identityId string) (*models.Identity, error) {
	seen := make(map[string]bool)
	current := identityId

	for depth := 0; depth < maxMergeDepth; depth++ {
		if seen[current] {
			return nil, fmt.Errorf("merge cycle detected at identity %s", current)
		}
		seen[current] = true

		identity, err := s.GetIdentityById(ctx, current)
		if err != nil {
			return nil, err
		}
		if !identity.IsMerged() || identity.MergedInto == nil {
			return identity, nil
		}

		zap.L().Debug("Following merge pointer",
			zap.String("from", identity.Id),
			zap.String("to", *identity.MergedInto))
		current = *identity.MergedInto
	}

	return nil, fmt.Errorf("merge chain from %s exceeds %d hops", identityId, maxMergeDepth)
}

// CreateIdentity signs up a new identity together with its primary contact link.
func (s *Service) CreateIdentity(ctx context.Context, params store.CreateIdentityParams) (*models.Identity, error) {
	email, err := contact.NormalizeAndValidate(params.Email)
	if err != nil {
		return nil, err
	}
	if params.Username == "" {
		return nil, fmt.Errorf("username cannot be empty")
	}
	identityId := params.Id
	if identityId == "" {
		identityId = uuid.New().String()
	}

	zap.L().Info("Creating identity",
		zap.String("id", identityId),
		zap.String("username", params.Username),
		zap.String("email", email))

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", classify(err))
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			zap.L().Warn("Failed to roll back identity creation", zap.Error(err))
		}
	}()

	if _, err := tx.ExecContext(ctx, s.rebind(queryInsertIdentity), identityId, params.Username, email, params.FullName); err != nil {
		zap.L().Error("Failed to insert identity", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("unable to insert identity: %w", classify(err))
	}

	if _, err := tx.ExecContext(ctx, s.rebind(queryInsertContactLink), uuid.New().String(), email, identityId, true); err != nil {
		zap.L().Error("Failed to insert primary contact link", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("unable to insert contact link: %w", classify(err))
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit identity creation: %w", classify(err))
	}

	zap.L().Info("Identity created successfully", zap.String("id", identityId), zap.String("email", email))
	return s.GetIdentityById(ctx, identityId)
}

func (s *Service) UpdateIdentityContact(ctx context.Context, identityId, email string, hasLinkedIdentities bool) error {
	normalized := contact.Normalize(email)
	zap.L().Info("Updating identity contact",
		zap.String("identity_id", identityId),
		zap.String("email", normalized),
		zap.Bool("has_linked_identities", hasLinkedIdentities))

	return s.execExpectingRow(ctx, "update identity contact", queryUpdateIdentityContact,
		identityId, normalized, hasLinkedIdentities, identityId)
}

func (s *Service) MarkIdentityMerged(ctx context.Context, sourceId, targetId string) error {
	zap.L().Info("Marking identity as merged",
		zap.String("source_id", sourceId),
		zap.String("target_id", targetId))

	return s.execExpectingRow(ctx, "mark identity merged", queryMarkIdentityMerged, sourceId, targetId, sourceId)
}

// SetProgression blindly overwrites the progression counters of an identity.
func (s *Service) SetProgression(ctx context.Context, identityId string, p models.Progression) error {
	zap.L().Info("Setting progression",
		zap.String("identity_id", identityId),
		zap.Int64("level", p.Level),
		zap.Int64("total_xp", p.TotalXp))

	return s.execExpectingRow(ctx, "set progression", querySetProgression, identityId,
		p.Level, p.TotalXp, p.CurrentStreak, p.LongestStreak, identityId)
}

// DefaultNullProgression fills NULL progression counters across all identities.
func (s *Service) DefaultNullProgression(ctx context.Context, defaults models.Progression) (int64, error) {
	result, err := s.db.ExecContext(ctx, s.rebind(queryDefaultNullProgression),
		defaults.Level, defaults.TotalXp, defaults.CurrentStreak, defaults.LongestStreak)
	if err != nil {
		zap.L().Error("Failed to default progression", zap.Error(err))
		return 0, fmt.Errorf("unable to default progression: %w", classify(err))
	}

	updated, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("unable to get rows affected: %w", err)
	}

	zap.L().Info("Defaulted null progression fields", zap.Int64("updated", updated))
	return updated, nil
}

// execExpectingRow runs an update that must touch the identity row.
func (s *Service) execExpectingRow(ctx context.Context, action, query, identityId string, args ...any) error {
	result, err := s.db.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		zap.L().Error("Failed to "+action, zap.String("identity_id", identityId), zap.Error(err))
		return fmt.Errorf("unable to %s: %w", action, classify(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: id %s", store.ErrIdentityNotFound, identityId)
	}
	return nil
}
