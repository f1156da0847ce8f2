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
	"testing"

	"identity-merge-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrantIfAbsent_Idempotent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	awarder := NewAwarder(s)
	identity := createIdentity(t, s, "alice", "alice@example.com")
	def := testDefinition("welcome-to-aethex", "Welcome to AeThex")

	_, err := NewSeeder(s).EnsureAchievementExists(ctx, def)
	require.NoError(t, err)

	first, err := awarder.GrantIfAbsent(ctx, identity.Id, def)
	require.NoError(t, err)
	assert.True(t, first.Granted)
	assert.Equal(t, def.ID(), first.AchievementID)

	second, err := awarder.GrantIfAbsent(ctx, identity.Id, def)
	require.NoError(t, err)
	assert.False(t, second.Granted)
	assert.Equal(t, first.GrantID, second.GrantID)

	grants, err := s.GetGrants(ctx, identity.Id)
	require.NoError(t, err)
	assert.Len(t, grants, 1)
}

func TestGrantIfAbsent_FollowsMergedIdentity(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	awarder := NewAwarder(s)
	target := createIdentity(t, s, "target", "target@example.com")
	source := createIdentity(t, s, "source", "source@example.com")
	require.NoError(t, s.MarkIdentityMerged(ctx, source.Id, target.Id))

	def := testDefinition("aethex-explorer", "AeThex Explorer")
	_, err := NewSeeder(s).EnsureAchievementExists(ctx, def)
	require.NoError(t, err)

	result, err := awarder.GrantIfAbsent(ctx, source.Id, def)
	require.NoError(t, err)
	assert.True(t, result.Granted)

	grants, err := s.GetGrants(ctx, target.Id)
	require.NoError(t, err)
	assert.Len(t, grants, 1)
}

func TestAwardFullSet(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	awarder := NewAwarder(s)
	identity := createIdentity(t, s, "mrpiglr", "mrpiglr@example.com")
	defs := []Definition{testDefinition("god-mode", "God Mode"), testDefinition("founding-member", "Founding Member")}
	targets := models.Progression{Level: 100, TotalXp: 999999, CurrentStreak: 365, LongestStreak: 365}

	outcomes, err := awarder.AwardFullSet(ctx, identity.Id, defs, targets)
	require.NoError(t, err)
	assert.Equal(t, []AwardOutcome{{Key: "god-mode", Granted: true}, {Key: "founding-member", Granted: true}}, outcomes)

	outcomes, err = awarder.AwardFullSet(ctx, identity.Id, defs, targets)
	require.NoError(t, err)
	assert.Equal(t, []AwardOutcome{{Key: "god-mode"}, {Key: "founding-member"}}, outcomes)

	got, err := s.GetIdentityById(ctx, identity.Id)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.Level.Int64)
	assert.Equal(t, int64(365), got.LongestStreak.Int64)
}

func TestSeedDefaultGrants(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	awarder := NewAwarder(s)
	for _, name := range []string{"a", "b", "c"} {
		createIdentity(t, s, name, name+"@example.com")
	}
	defs := []Definition{testDefinition("welcome-to-aethex", "Welcome to AeThex")}

	granted, err := awarder.SeedDefaultGrants(ctx, defs)
	require.NoError(t, err)
	assert.Equal(t, 3, granted)

	granted, err = awarder.SeedDefaultGrants(ctx, defs)
	require.NoError(t, err)
	assert.Zero(t, granted)
}

func TestNormalizeProgression(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	awarder := NewAwarder(s)
	createIdentity(t, s, "a", "a@example.com")
	createIdentity(t, s, "b", "b@example.com")

	updated, err := awarder.NormalizeProgression(ctx, models.Progression{Level: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	updated, err = awarder.NormalizeProgression(ctx, models.Progression{Level: 1})
	require.NoError(t, err)
	assert.Zero(t, updated)
}

func TestAwardFullSet_RowSeededUnderOtherKey(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	awarder := NewAwarder(s)
	identity := createIdentity(t, s, "alice", "alice@example.com")

	legacy, err := NewSeeder(s).EnsureAchievementExists(ctx, testDefinition("legacy-key", "Founding Member"))
	require.NoError(t, err)

	def := testDefinition("founding-member", "Founding Member")
	require.NotEqual(t, legacy.ID, def.ID())

	outcomes, err := awarder.AwardFullSet(ctx, identity.Id, []Definition{def}, models.Progression{Level: 100})
	require.NoError(t, err)
	assert.Equal(t, []AwardOutcome{{Key: "founding-member", Granted: true}}, outcomes)

	grants, err := s.GetGrants(ctx, identity.Id)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, legacy.ID, grants[0].AchievementId)

	again, err := awarder.GrantIfAbsent(ctx, identity.Id, def)
	require.NoError(t, err)
	assert.False(t, again.Granted)
	assert.Equal(t, legacy.ID, again.AchievementID)
}

func TestSeedDefaultGrants_RowSeededUnderOtherKey(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	awarder := NewAwarder(s)
	createIdentity(t, s, "a", "a@example.com")
	createIdentity(t, s, "b", "b@example.com")

	legacy, err := NewSeeder(s).EnsureAchievementExists(ctx, testDefinition("legacy-welcome", "Welcome to AeThex"))
	require.NoError(t, err)

	granted, err := awarder.SeedDefaultGrants(ctx, []Definition{testDefinition("welcome-to-aethex", "Welcome to AeThex")})
	require.NoError(t, err)
	assert.Equal(t, 2, granted)

	identities, err := s.GetIdentities(ctx)
	require.NoError(t, err)
	for _, identity := range identities {
		grants, err := s.GetGrants(ctx, identity.Id)
		require.NoError(t, err)
		require.Len(t, grants, 1)
		assert.Equal(t, legacy.ID, grants[0].AchievementId)
	}
}

func TestGrantIfAbsent_NotInCatalog(t *testing.T) {
	s := setupTestStore(t)
	identity := createIdentity(t, s, "alice", "alice@example.com")

	_, err := NewAwarder(s).GrantIfAbsent(context.Background(), identity.Id, testDefinition("missing", "Missing"))
	assert.ErrorContains(t, err, "not in the catalog")
}
