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

// schema is accepted by both SQLite and Postgres.
const schema = `
	CREATE TABLE IF NOT EXISTS identities (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active',
		merged_into TEXT REFERENCES identities(id),
		has_linked_identities BOOLEAN NOT NULL DEFAULT FALSE,
		level INTEGER,
		total_xp INTEGER,
		current_streak INTEGER,
		longest_streak INTEGER,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_identities_status ON identities(status);
	CREATE INDEX IF NOT EXISTS idx_identities_merged_into ON identities(merged_into);

	-- One identity per contact address
	CREATE TABLE IF NOT EXISTS contact_links (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		identity_id TEXT NOT NULL REFERENCES identities(id),
		is_primary BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_contact_links_identity ON contact_links(identity_id);

	CREATE TABLE IF NOT EXISTS creator_profiles (
		id TEXT PRIMARY KEY,
		identity_id TEXT NOT NULL UNIQUE REFERENCES identities(id),
		display_name TEXT NOT NULL DEFAULT '',
		bio TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS applications (
		id TEXT PRIMARY KEY,
		identity_id TEXT NOT NULL REFERENCES identities(id),
		kind TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_applications_identity ON applications(identity_id);

	CREATE TABLE IF NOT EXISTS external_accounts (
		id TEXT PRIMARY KEY,
		identity_id TEXT NOT NULL REFERENCES identities(id),
		provider TEXT NOT NULL,
		external_id TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(identity_id, provider)
	);

	CREATE TABLE IF NOT EXISTS wallet_links (
		id TEXT PRIMARY KEY,
		identity_id TEXT NOT NULL REFERENCES identities(id),
		address TEXT NOT NULL,
		chain TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(identity_id, address)
	);

	CREATE INDEX IF NOT EXISTS idx_wallet_links_address ON wallet_links(address);

	CREATE TABLE IF NOT EXISTS achievements (
		id TEXT PRIMARY KEY,
		achievement_key TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		icon TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		reward TEXT NOT NULL DEFAULT '0',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS achievement_grants (
		id TEXT PRIMARY KEY,
		identity_id TEXT NOT NULL REFERENCES identities(id),
		achievement_id TEXT NOT NULL REFERENCES achievements(id),
		earned_at TIMESTAMP NOT NULL,
		UNIQUE(identity_id, achievement_id)
	);

	CREATE TABLE IF NOT EXISTS merge_locks (
		lock_key TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		expires_at BIGINT NOT NULL
	);
`

const (
	identityColumns = `id, username, email, full_name, status, merged_into, has_linked_identities,
		level, total_xp, current_streak, longest_streak, created_at, updated_at`

	// Identity queries
	queryGetActiveIdentities = `
		SELECT ` + identityColumns + `
		FROM identities
		WHERE status = 'active'
		ORDER BY created_at`

	queryGetIdentityById = `
		SELECT ` + identityColumns + `
		FROM identities
		WHERE id = ?`

	queryGetIdentityByUsername = `
		SELECT ` + identityColumns + `
		FROM identities
		WHERE LOWER(username) = LOWER(?)`

	queryGetIdentityByEmail = `
		SELECT ` + identityColumns + `
		FROM identities
		WHERE email = ?`

	queryInsertIdentity = `
		INSERT INTO identities (id, username, email, full_name) VALUES (?, ?, ?, ?)`

	queryUpdateIdentityContact = `
		UPDATE identities
		SET email = ?, has_linked_identities = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`

	queryMarkIdentityMerged = `
		UPDATE identities
		SET status = 'merged', merged_into = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`

	querySetProgression = `
		UPDATE identities
		SET level = ?, total_xp = ?, current_streak = ?, longest_streak = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`

	queryDefaultNullProgression = `
		UPDATE identities
		SET level = COALESCE(level, ?),
		    total_xp = COALESCE(total_xp, ?),
		    current_streak = COALESCE(current_streak, ?),
		    longest_streak = COALESCE(longest_streak, ?),
		    updated_at = CURRENT_TIMESTAMP
		WHERE level IS NULL OR total_xp IS NULL OR current_streak IS NULL OR longest_streak IS NULL`

	// Contact link queries
	queryGetContactLink = `
		SELECT id, email, identity_id, is_primary, created_at
		FROM contact_links
		WHERE email = ?`

	queryGetContactLinks = `
		SELECT id, email, identity_id, is_primary, created_at
		FROM contact_links
		WHERE identity_id = ?
		ORDER BY is_primary DESC, created_at`

	queryInsertContactLink = `
		INSERT INTO contact_links (id, email, identity_id, is_primary) VALUES (?, ?, ?, ?)`

	queryReassignContactLink = `
		UPDATE contact_links SET identity_id = ?, is_primary = ? WHERE email = ?`

	queryDemotePrimaryContacts = `
		UPDATE contact_links SET is_primary = FALSE
		WHERE identity_id = ? AND email <> ? AND is_primary = TRUE`

	// Owned record queries
	queryGetCreatorProfile = `
		SELECT id, identity_id, display_name, bio, created_at, updated_at
		FROM creator_profiles
		WHERE identity_id = ?`

	queryInsertCreatorProfile = `
		INSERT INTO creator_profiles (id, identity_id, display_name, bio)
		VALUES (?, ?, ?, ?)
		RETURNING id, identity_id, display_name, bio, created_at, updated_at`

	queryReassignCreatorProfile = `
		UPDATE creator_profiles SET identity_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND identity_id = ?`

	queryGetApplications = `
		SELECT id, identity_id, kind, status, created_at
		FROM applications
		WHERE identity_id = ?
		ORDER BY created_at`

	queryInsertApplication = `
		INSERT INTO applications (id, identity_id, kind, status)
		VALUES (?, ?, ?, ?)
		RETURNING id, identity_id, kind, status, created_at`

	queryTransferApplications = `
		UPDATE applications SET identity_id = ? WHERE identity_id = ?`

	queryGetExternalAccounts = `
		SELECT id, identity_id, provider, external_id, created_at
		FROM external_accounts
		WHERE identity_id = ?
		ORDER BY provider`

	queryInsertExternalAccount = `
		INSERT INTO external_accounts (id, identity_id, provider, external_id)
		VALUES (?, ?, ?, ?)
		RETURNING id, identity_id, provider, external_id, created_at`

	queryReassignExternalAccount = `
		UPDATE external_accounts SET identity_id = ? WHERE id = ? AND identity_id = ?`

	queryGetWalletLinks = `
		SELECT id, identity_id, address, chain, created_at
		FROM wallet_links
		WHERE identity_id = ?
		ORDER BY created_at`

	queryInsertWalletLink = `
		INSERT INTO wallet_links (id, identity_id, address, chain)
		VALUES (?, ?, ?, ?)
		RETURNING id, identity_id, address, chain, created_at`

	queryReassignWalletLink = `
		UPDATE wallet_links SET identity_id = ? WHERE id = ? AND identity_id = ?`

	// Achievement queries
	queryGetAchievements = `
		SELECT id, achievement_key, name, description, icon, category, reward, created_at
		FROM achievements
		ORDER BY name`

	queryFindAchievement = `
		SELECT id, achievement_key, name, description, icon, category, reward, created_at
		FROM achievements
		WHERE id = ? OR achievement_key = ? OR name = ?
		ORDER BY CASE WHEN id = ? THEN 0 WHEN achievement_key = ? THEN 1 ELSE 2 END
		LIMIT 1`

	queryInsertAchievement = `
		INSERT INTO achievements (id, achievement_key, name, description, icon, category, reward)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	queryGetGrants = `
		SELECT id, identity_id, achievement_id, earned_at
		FROM achievement_grants
		WHERE identity_id = ?
		ORDER BY earned_at`

	queryInsertGrant = `
		INSERT INTO achievement_grants (id, identity_id, achievement_id, earned_at) VALUES (?, ?, ?, ?)`

	// Grants for achievements the target already holds stay behind
	queryTransferGrants = `
		UPDATE achievement_grants SET identity_id = ?
		WHERE identity_id = ?
		  AND achievement_id NOT IN (
		      SELECT achievement_id FROM achievement_grants WHERE identity_id = ?)`

	// Lock queries
	queryInsertLock = `
		INSERT INTO merge_locks (lock_key, owner, expires_at) VALUES (?, ?, ?)`

	queryDeleteExpiredLock = `
		DELETE FROM merge_locks WHERE lock_key = ? AND expires_at < ?`

	queryReleaseLock = `
		DELETE FROM merge_locks WHERE lock_key = ? AND owner = ?`
)
