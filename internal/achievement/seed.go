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

package achievement

import (
	"context"
	"errors"
	"fmt"

	"identity-merge-go/internal/models"
	"identity-merge-go/internal/store"

	"go.uber.org/zap"
)

type SeedResult struct {
	ID      string
	Created bool
}

type SeedSummary struct {
	Created  int
	Existing int
}

type Seeder struct {
	store store.AchievementStore
}

func NewSeeder(s store.AchievementStore) *Seeder {
	return &Seeder{store: s}
}

// EnsureAchievementExists inserts the catalog row for def unless a row with the
// derived id, the same key or the same name is already present.
func (s *Seeder) EnsureAchievementExists(ctx context.Context, def Definition) (SeedResult, error) {
	id := def.ID()

	existing, err := s.store.FindAchievement(ctx, id, def.Key, def.Name)
	if err != nil {
		return SeedResult{}, err
	}
	if existing != nil {
		zap.L().Debug("Achievement already seeded", zap.String("key", def.Key), zap.String("id", existing.Id))
		return SeedResult{ID: existing.Id}, nil
	}

	err = s.store.InsertAchievement(ctx, models.Achievement{
		Id:          id,
		Key:         def.Key,
		Name:        def.Name,
		Description: def.Description,
		Icon:        def.Icon,
		Category:    def.Category,
		Reward:      def.Reward,
	})
	if errors.Is(err, store.ErrDuplicateKey) {
		// A concurrent seed run got there first
		existing, err = s.store.FindAchievement(ctx, id, def.Key, def.Name)
		if err != nil {
			return SeedResult{}, err
		}
		if existing == nil {
			return SeedResult{}, fmt.Errorf("achievement %s (id %s, name %q) conflicts on a unique column but no row matches any of them",
				def.Key, id, def.Name)
		}
		return SeedResult{ID: existing.Id}, nil
	}
	if err != nil {
		return SeedResult{}, err
	}

	zap.L().Info("Seeded achievement", zap.String("key", def.Key), zap.String("id", id))
	return SeedResult{ID: id, Created: true}, nil
}

func (s *Seeder) SeedCatalog(ctx context.Context, catalog *Catalog) (SeedSummary, error) {
	var summary SeedSummary
	for _, def := range catalog.Achievements {
		result, err := s.EnsureAchievementExists(ctx, def)
		if err != nil {
			return summary, fmt.Errorf("unable to seed %s: %w", def.Key, err)
		}
		if result.Created {
			summary.Created++
		} else {
			summary.Existing++
		}
	}

	zap.L().Info("Catalog seeded",
		zap.Int("version", catalog.Version),
		zap.Int("created", summary.Created),
		zap.Int("existing", summary.Existing))
	return summary, nil
}
