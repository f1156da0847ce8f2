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
	"path/filepath"
	"testing"
	"time"

	"identity-merge-go/internal/database"
	"identity-merge-go/internal/models"
	"identity-merge-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *database.Service {
	t.Helper()

	s, err := database.NewService(context.Background(), models.DatabaseConfig{
		Driver:       "sqlite3",
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 8,
		MaxIdleConns: 4,
		PingTimeout:  5 * time.Second,
		BusyTimeout:  10 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func createIdentity(t *testing.T, s *database.Service, username, email string) *models.Identity {
	t.Helper()

	identity, err := s.CreateIdentity(context.Background(), store.CreateIdentityParams{Username: username, Email: email})
	require.NoError(t, err)
	return identity
}

func testDefinition(key, name string) Definition {
	return Definition{Key: key, Name: name, Reward: decimal.NewFromInt(10)}
}
