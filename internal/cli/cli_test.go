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

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"identity-merge-go/internal/auth"
	"identity-merge-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func setupEnv(t *testing.T) {
	t.Helper()

	catalog, err := filepath.Abs(filepath.Join("..", "..", "achievements.yaml"))
	require.NoError(t, err)

	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("DATABASE_PATH", filepath.Join(t.TempDir(), "cli.db"))
	t.Setenv("ACHIEVEMENTS_FILE", catalog)
	t.Setenv("REDIS_URL", "")
	t.Setenv("CREATE_DUMMY_USERS", "false")
	t.Setenv("MERGE_DEFAULT_TARGET_EMAIL", "")
	t.Setenv("MERGE_DEFAULT_SOURCE_EMAIL", "")
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "identities", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestParseAccount(t *testing.T) {
	provider, id, err := parseAccount("discord:1234")
	require.NoError(t, err)
	assert.Equal(t, "discord", provider)
	assert.Equal(t, "1234", id)

	for _, bad := range []string{"discord", ":1", "discord:"} {
		_, _, err := parseAccount(bad)
		assert.Error(t, err, bad)
	}
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, validateName("Al"))
	assert.Error(t, validateName(""))
	assert.Error(t, validateName("A"))
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("OPERATOR_TOKEN_SECRET", "cli-test-secret")
	t.Setenv("OPERATOR_TOKEN_ISSUER", "")

	out, err := execute(t, "token", "--subject", "ops", "--scope", auth.ScopeMerge, "--ttl", "1m")
	require.NoError(t, err)

	verifier, err := auth.NewVerifier(models.AuthConfig{TokenSecret: "cli-test-secret", Issuer: "identity-merge", ClockSkew: time.Second})
	require.NoError(t, err)
	caller, err := verifier.Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "ops", caller.Subject)
	assert.Equal(t, []string{auth.ScopeMerge}, caller.Scopes)

	_, err = execute(t, "token", "--subject", "ops", "--scope", "root")
	assert.Error(t, err)
}

func TestMergeWorkflow(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "adduser", "--username", "alice", "--email", "alice@work.example", "--name", "Alice")
	require.NoError(t, err)
	_, err = execute(t, "adduser", "--username", "alice-personal", "--email", "alice@personal.example", "--name", "Alice",
		"--wallet", "0xABC", "--account", "discord:42")
	require.NoError(t, err)

	_, err = execute(t, "adduser", "--username", "alice", "--email", "other@example.com", "--name", "Alice")
	assert.Error(t, err, "duplicate username")

	out, err := execute(t, "merge", "--format", "json", "--target-email", "alice@work.example", "--source-email", "alice@personal.example")
	require.NoError(t, err)
	var merged models.LinkAccountsResponse
	require.NoError(t, json.Unmarshal([]byte(out), &merged), out)
	assert.True(t, merged.Success)
	assert.Equal(t, "alice@work.example", merged.PrimaryEmail)

	out, err = execute(t, "seed", "--format", "json")
	require.NoError(t, err)
	var seeded models.SeedResponse
	require.NoError(t, json.Unmarshal([]byte(out), &seeded), out)
	assert.Equal(t, 6, seeded.Created)

	out, err = execute(t, "award", "--format", "json", "--email", "alice@work.example")
	require.NoError(t, err)
	var awarded models.AwardResponse
	require.NoError(t, json.Unmarshal([]byte(out), &awarded), out)
	assert.Len(t, awarded.Granted, 6)

	out, err = execute(t, "identities", "--format", "json")
	require.NoError(t, err)
	var listings []identityListing
	require.NoError(t, json.Unmarshal([]byte(out), &listings), out)
	require.Len(t, listings, 1)
	assert.True(t, listings[0].Linked)
	assert.ElementsMatch(t, []string{"alice@work.example", "alice@personal.example"}, listings[0].Contacts)

	_, err = execute(t, "award")
	assert.Error(t, err)
}
