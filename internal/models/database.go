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

package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Identity status values
const (
	IdentityStatusActive = "active"
	IdentityStatusMerged = "merged"
)

// Identity represents a person's account
type Identity struct {
	Id                  string        `db:"id"`
	Username            string        `db:"username"`
	Email               string        `db:"email"`
	FullName            string        `db:"full_name"`
	Status              string        `db:"status"`
	MergedInto          *string       `db:"merged_into"`
	HasLinkedIdentities bool          `db:"has_linked_identities"`
	Level               sql.NullInt64 `db:"level"`
	TotalXp             sql.NullInt64 `db:"total_xp"`
	CurrentStreak       sql.NullInt64 `db:"current_streak"`
	LongestStreak       sql.NullInt64 `db:"longest_streak"`
	CreatedAt           time.Time     `db:"created_at"`
	UpdatedAt           time.Time     `db:"updated_at"`
}

func (i *Identity) IsMerged() bool {
	return i.Status == IdentityStatusMerged
}

// ContactLink associates a contact address with exactly one identity
type ContactLink struct {
	Id         string    `db:"id"`
	Email      string    `db:"email"`
	IdentityId string    `db:"identity_id"`
	IsPrimary  bool      `db:"is_primary"`
	CreatedAt  time.Time `db:"created_at"`
}

// CreatorProfile is the single-valued creator record of an identity
type CreatorProfile struct {
	Id          string    `db:"id"`
	IdentityId  string    `db:"identity_id"`
	DisplayName string    `db:"display_name"`
	Bio         string    `db:"bio"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Application represents a submitted application (creator, team, mentorship...)
type Application struct {
	Id         string    `db:"id"`
	IdentityId string    `db:"identity_id"`
	Kind       string    `db:"kind"`
	Status     string    `db:"status"`
	CreatedAt  time.Time `db:"created_at"`
}

// ExternalAccount links an identity to an account on an external provider (discord, github, ...)
type ExternalAccount struct {
	Id         string    `db:"id"`
	IdentityId string    `db:"identity_id"`
	Provider   string    `db:"provider"`
	ExternalId string    `db:"external_id"`
	CreatedAt  time.Time `db:"created_at"`
}

// WalletLink links an identity to an on-chain wallet address
type WalletLink struct {
	Id         string    `db:"id"`
	IdentityId string    `db:"identity_id"`
	Address    string    `db:"address"`
	Chain      string    `db:"chain"`
	CreatedAt  time.Time `db:"created_at"`
}

// Achievement is a catalog row
type Achievement struct {
	Id          string          `db:"id"`
	Key         string          `db:"achievement_key"`
	Name        string          `db:"name"`
	Description string          `db:"description"`
	Icon        string          `db:"icon"`
	Category    string          `db:"category"`
	Reward      decimal.Decimal `db:"reward"`
	CreatedAt   time.Time       `db:"created_at"`
}

// AchievementGrant records that an identity earned an achievement
type AchievementGrant struct {
	Id            string    `db:"id"`
	IdentityId    string    `db:"identity_id"`
	AchievementId string    `db:"achievement_id"`
	EarnedAt      time.Time `db:"earned_at"`
}

// Progression holds the level/XP/streak counters of an identity
type Progression struct {
	Level         int64
	TotalXp       int64
	CurrentStreak int64
	LongestStreak int64
}
