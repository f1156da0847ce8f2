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
	"testing"

	"identity-merge-go/internal/models"
	"identity-merge-go/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIdentity_NormalizesEmailAndLinksContact(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	identity := createTestIdentity(t, s, "alice", "  Alice@Example.COM ")
	assert.Equal(t, "alice@example.com", identity.Email)
	assert.Equal(t, models.IdentityStatusActive, identity.Status)
	assert.False(t, identity.IsMerged())
	assert.False(t, identity.Level.Valid)

	link, err := s.GetContactLink(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, link)
	assert.Equal(t, identity.Id, link.IdentityId)
	assert.True(t, link.IsPrimary)
}

func TestCreateIdentity_Duplicate(t *testing.T) {
	s := setupTestDB(t)
	createTestIdentity(t, s, "alice", "alice@example.com")

	_, err := s.CreateIdentity(context.Background(), store.CreateIdentityParams{
		Username: "alice2",
		Email:    "ALICE@example.com",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrDuplicateKey)

	// The failed insert must not leave a partial identity behind
	_, err = s.GetIdentityByUsername(context.Background(), "alice2")
	assert.ErrorIs(t, err, store.ErrIdentityNotFound)
}

func TestCreateIdentity_InvalidEmail(t *testing.T) {
	s := setupTestDB(t)

	_, err := s.CreateIdentity(context.Background(), store.CreateIdentityParams{Username: "x", Email: "not-an-email"})
	assert.Error(t, err)
}

func TestResolveIdentityByContact(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	created := createTestIdentity(t, s, "bob", "bob@example.com")

	found, err := s.ResolveIdentityByContact(ctx, " BOB@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.Id, found.Id)

	_, err = s.ResolveIdentityByContact(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, store.ErrIdentityNotFound)
}

func TestGetIdentityByUsername_CaseInsensitive(t *testing.T) {
	s := setupTestDB(t)
	created := createTestIdentity(t, s, "Carol", "carol@example.com")

	found, err := s.GetIdentityByUsername(context.Background(), "carol")
	require.NoError(t, err)
	assert.Equal(t, created.Id, found.Id)
}

func TestMarkIdentityMerged_AndResolveCanonical(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	a := createTestIdentity(t, s, "a", "a@example.com")
	b := createTestIdentity(t, s, "b", "b@example.com")
	c := createTestIdentity(t, s, "c", "c@example.com")

	require.NoError(t, s.MarkIdentityMerged(ctx, a.Id, b.Id))
	require.NoError(t, s.MarkIdentityMerged(ctx, b.Id, c.Id))

	merged, err := s.GetIdentityById(ctx, a.Id)
	require.NoError(t, err)
	assert.True(t, merged.IsMerged())
	require.NotNil(t, merged.MergedInto)
	assert.Equal(t, b.Id, *merged.MergedInto)

	canonical, err := s.ResolveCanonical(ctx, a.Id)
	require.NoError(t, err)
	assert.Equal(t, c.Id, canonical.Id)

	identities, err := s.GetIdentities(ctx)
	require.NoError(t, err)
	require.Len(t, identities, 1)
	assert.Equal(t, c.Id, identities[0].Id)
}

func TestMarkIdentityMerged_UnknownIdentity(t *testing.T) {
	s := setupTestDB(t)
	target := createTestIdentity(t, s, "t", "t@example.com")

	err := s.MarkIdentityMerged(context.Background(), "missing", target.Id)
	assert.ErrorIs(t, err, store.ErrIdentityNotFound)
}

func TestProgression(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	a := createTestIdentity(t, s, "a", "a@example.com")
	b := createTestIdentity(t, s, "b", "b@example.com")

	require.NoError(t, s.SetProgression(ctx, a.Id, models.Progression{Level: 100, TotalXp: 999999, CurrentStreak: 365, LongestStreak: 365}))

	updated, err := s.DefaultNullProgression(ctx, models.Progression{Level: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)

	got, err := s.GetIdentityById(ctx, b.Id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Level.Int64)
	assert.Equal(t, int64(0), got.TotalXp.Int64)
	assert.True(t, got.TotalXp.Valid)

	got, err = s.GetIdentityById(ctx, a.Id)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.Level.Int64)
	assert.Equal(t, int64(999999), got.TotalXp.Int64)

	// Second pass has nothing left to default
	updated, err = s.DefaultNullProgression(ctx, models.Progression{Level: 1})
	require.NoError(t, err)
	assert.Zero(t, updated)
}
