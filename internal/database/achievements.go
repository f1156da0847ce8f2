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

	"identity-merge-go/internal/models"

	"go.uber.org/zap"
)

func (s *Service) GetAchievements(ctx context.Context) ([]models.Achievement, error) {
	var achievements []models.Achievement
	if err := s.db.SelectContext(ctx, &achievements, s.rebind(queryGetAchievements)); err != nil {
		zap.L().Error("Failed to query achievements", zap.Error(err))
		return nil, fmt.Errorf("unable to query achievements: %w", classify(err))
	}
	return achievements, nil
}

// FindAchievement looks a catalog row up by id, key or display name, preferring
// an id match over a key match over a name match; nil when absent.
func (s *Service) FindAchievement(ctx context.Context, achievementId, key, name string) (*models.Achievement, error) {
	var achievement models.Achievement
	err := s.db.GetContext(ctx, &achievement, s.rebind(queryFindAchievement),
		achievementId, key, name, achievementId, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("Failed to query achievement",
			zap.String("achievement_id", achievementId),
			zap.String("key", key),
			zap.String("name", name),
			zap.Error(err))
		return nil, fmt.Errorf("unable to query achievement: %w", classify(err))
	}
	return &achievement, nil
}

// InsertAchievement surfaces store.ErrDuplicateKey when the id, key or name exists.
func (s *Service) InsertAchievement(ctx context.Context, a models.Achievement) error {
	zap.L().Info("Inserting achievement",
		zap.String("id", a.Id),
		zap.String("key", a.Key),
		zap.String("name", a.Name))

	_, err := s.db.ExecContext(ctx, s.rebind(queryInsertAchievement),
		a.Id, a.Key, a.Name, a.Description, a.Icon, a.Category, a.Reward.String())
	if err != nil {
		return fmt.Errorf("unable to insert achievement %s: %w", a.Key, classify(err))
	}
	return nil
}

func (s *Service) GetGrants(ctx context.Context, identityId string) ([]models.AchievementGrant, error) {
	var grants []models.AchievementGrant
	if err := s.db.SelectContext(ctx, &grants, s.rebind(queryGetGrants), identityId); err != nil {
		zap.L().Error("Failed to query grants", zap.String("identity_id", identityId), zap.Error(err))
		return nil, fmt.Errorf("unable to query grants: %w", classify(err))
	}

	zap.L().Debug("Retrieved grants", zap.String("identity_id", identityId), zap.Int("count", len(grants)))
	return grants, nil
}

// InsertGrant surfaces store.ErrDuplicateKey when the identity already holds the achievement.
func (s *Service) InsertGrant(ctx context.Context, grant models.AchievementGrant) error {
	_, err := s.db.ExecContext(ctx, s.rebind(queryInsertGrant), grant.Id, grant.IdentityId, grant.AchievementId, grant.EarnedAt)
	if err != nil {
		return fmt.Errorf("unable to insert grant: %w", classify(err))
	}
	return nil
}

// TransferGrants moves grants from fromId to toId, skipping achievements toId already holds.
func (s *Service) TransferGrants(ctx context.Context, fromId, toId string) (int64, error) {
	return s.bulkTransfer(ctx, "achievement grants", queryTransferGrants, toId, fromId, toId)
}
