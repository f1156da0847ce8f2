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
	"sync/atomic"
	"time"

	"identity-merge-go/internal/models"
	"identity-merge-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultGrantWorkers = 4

type GrantResult struct {
	Granted       bool
	GrantID       string
	AchievementID string
}

type AwardOutcome struct {
	Key     string
	Granted bool
}

type Awarder struct {
	store  store.Store
	seeder *Seeder
	now    func() time.Time
}

func NewAwarder(s store.Store) *Awarder {
	return &Awarder{
		store:  s,
		seeder: NewSeeder(s),
		now:    time.Now,
	}
}

// GrantIfAbsent grants def to the canonical form of identityId. The catalog row
// must already exist; the grant references its stored id, which differs from
// def.ID() when the row was seeded under another key.
func (a *Awarder) GrantIfAbsent(ctx context.Context, identityId string, def Definition) (GrantResult, error) {
	row, err := a.store.FindAchievement(ctx, def.ID(), def.Key, def.Name)
	if err != nil {
		return GrantResult{}, err
	}
	if row == nil {
		return GrantResult{}, fmt.Errorf("achievement %s is not in the catalog", def.Key)
	}
	return a.grant(ctx, identityId, def.Key, row.Id)
}

func (a *Awarder) grant(ctx context.Context, identityId, key, achievementId string) (GrantResult, error) {
	identity, err := a.store.ResolveCanonical(ctx, identityId)
	if err != nil {
		return GrantResult{}, err
	}

	grants, err := a.store.GetGrants(ctx, identity.Id)
	if err != nil {
		return GrantResult{}, err
	}
	for _, grant := range grants {
		if grant.AchievementId == achievementId {
			return GrantResult{GrantID: grant.Id, AchievementID: achievementId}, nil
		}
	}

	grant := models.AchievementGrant{
		Id:            uuid.New().String(),
		IdentityId:    identity.Id,
		AchievementId: achievementId,
		EarnedAt:      a.now().UTC(),
	}
	err = a.store.InsertGrant(ctx, grant)
	if errors.Is(err, store.ErrDuplicateKey) {
		zap.L().Debug("Grant raced with a concurrent award",
			zap.String("identity_id", identity.Id),
			zap.String("key", key))
		return GrantResult{AchievementID: achievementId}, nil
	}
	if err != nil {
		return GrantResult{}, err
	}

	zap.L().Info("Achievement granted",
		zap.String("identity_id", identity.Id),
		zap.String("key", key),
		zap.String("grant_id", grant.Id))
	return GrantResult{Granted: true, GrantID: grant.Id, AchievementID: achievementId}, nil
}

// AwardFullSet overwrites the identity's progression with targets and grants
// every definition in defs.
func (a *Awarder) AwardFullSet(ctx context.Context, identityId string, defs []Definition, targets models.Progression) ([]AwardOutcome, error) {
	identity, err := a.store.ResolveCanonical(ctx, identityId)
	if err != nil {
		return nil, err
	}

	if err := a.store.SetProgression(ctx, identity.Id, targets); err != nil {
		return nil, err
	}

	outcomes := make([]AwardOutcome, 0, len(defs))
	for _, def := range defs {
		seeded, err := a.seeder.EnsureAchievementExists(ctx, def)
		if err != nil {
			return outcomes, fmt.Errorf("unable to seed %s: %w", def.Key, err)
		}
		result, err := a.grant(ctx, identity.Id, def.Key, seeded.ID)
		if err != nil {
			return outcomes, fmt.Errorf("unable to grant %s: %w", def.Key, err)
		}
		outcomes = append(outcomes, AwardOutcome{Key: def.Key, Granted: result.Granted})
	}

	zap.L().Info("Awarded full achievement set",
		zap.String("identity_id", identity.Id),
		zap.Int("definitions", len(defs)))
	return outcomes, nil
}

// SeedDefaultGrants grants defs to every active identity and returns the number
// of new grants.
func (a *Awarder) SeedDefaultGrants(ctx context.Context, defs []Definition) (int, error) {
	achievementIds := make([]string, len(defs))
	for i, def := range defs {
		seeded, err := a.seeder.EnsureAchievementExists(ctx, def)
		if err != nil {
			return 0, fmt.Errorf("unable to seed %s: %w", def.Key, err)
		}
		achievementIds[i] = seeded.ID
	}

	identities, err := a.store.GetIdentities(ctx)
	if err != nil {
		return 0, err
	}

	var granted atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultGrantWorkers)
	for _, identity := range identities {
		identityId := identity.Id
		g.Go(func() error {
			for i, def := range defs {
				result, err := a.grant(gctx, identityId, def.Key, achievementIds[i])
				if err != nil {
					return fmt.Errorf("unable to grant %s to %s: %w", def.Key, identityId, err)
				}
				if result.Granted {
					granted.Add(1)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(granted.Load()), err
	}

	zap.L().Info("Seeded default grants",
		zap.Int("identities", len(identities)),
		zap.Int64("granted", granted.Load()))
	return int(granted.Load()), nil
}

// NormalizeProgression fills NULL progression counters on every identity.
func (a *Awarder) NormalizeProgression(ctx context.Context, defaults models.Progression) (int64, error) {
	return a.store.DefaultNullProgression(ctx, defaults)
}
