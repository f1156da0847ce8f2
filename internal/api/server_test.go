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

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"identity-merge-go/internal/achievement"
	"identity-merge-go/internal/auth"
	"identity-merge-go/internal/database"
	"identity-merge-go/internal/lock"
	"identity-merge-go/internal/merge"
	"identity-merge-go/internal/models"
	"identity-merge-go/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `
version: 1
achievements:
  - {key: welcome, name: Welcome, reward: "10", default: true}
  - {key: god-mode, name: God Mode, reward: "1000"}
`

var authConfig = models.AuthConfig{TokenSecret: "server-test-secret", Issuer: "identity-merge", ClockSkew: time.Second}

type testServer struct {
	handler http.Handler
	store   *database.Service
	issuer  *auth.Issuer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	s, err := database.NewService(ctx, models.DatabaseConfig{
		Driver:       "sqlite3",
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 2,
		PingTimeout:  5 * time.Second,
		BusyTimeout:  10 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)

	catalog, err := achievement.ParseCatalog([]byte(testCatalog))
	require.NoError(t, err)

	engine := merge.NewEngine(s, s, models.MergeConfig{
		StepTimeout: 5 * time.Second,
		LockTTL:     time.Minute,
		LockWait:    100 * time.Millisecond,
	})
	service := NewAdminService(s, engine, catalog, models.ProgressionConfig{
		Defaults: models.Progression{Level: 1},
		Targets:  models.Progression{Level: 100, TotalXp: 999999, CurrentStreak: 365, LongestStreak: 365},
	})

	verifier, err := auth.NewVerifier(authConfig)
	require.NoError(t, err)
	issuer, err := auth.NewIssuer(authConfig)
	require.NoError(t, err)

	server := NewServer(service, verifier, models.ServerConfig{Addr: ":0"})
	return &testServer{handler: server.Handler(), store: s, issuer: issuer}
}

func (ts *testServer) token(t *testing.T, scopes ...string) string {
	t.Helper()
	token, err := ts.issuer.Issue("ops@aethex", scopes, time.Minute)
	require.NoError(t, err)
	return token
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) createIdentity(t *testing.T, username, email string) *models.Identity {
	t.Helper()
	identity, err := ts.store.CreateIdentity(context.Background(), store.CreateIdentityParams{Username: username, Email: email})
	require.NoError(t, err)
	return identity
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRoutes_RequireToken(t *testing.T) {
	ts := newTestServer(t)
	routes := []string{"/admin/identities/link", "/admin/achievements/seed", "/admin/achievements/award", "/admin/progression/normalize"}

	for _, route := range routes {
		rec := ts.do(t, http.MethodPost, route, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, route)

		rec = ts.do(t, http.MethodPost, route, "forged.token.value", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, route)

		body := decode[models.ErrorResponse](t, rec)
		assert.Equal(t, "Unauthorized", body.Error)
	}
}

func TestLinkAccounts(t *testing.T) {
	ts := newTestServer(t)
	target := ts.createIdentity(t, "alice", "alice@work.example")
	source := ts.createIdentity(t, "alice-personal", "alice@personal.example")
	token := ts.token(t, auth.ScopeMerge)

	rec := ts.do(t, http.MethodPost, "/admin/identities/link", token, models.LinkAccountsRequest{
		TargetEmail: "alice@work.example",
		SourceEmail: "Alice@Personal.example",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode[models.LinkAccountsResponse](t, rec)
	assert.True(t, body.Success)
	assert.Equal(t, target.Id, body.TargetUserId)
	assert.Equal(t, source.Id, body.SourceUserId)
	assert.Equal(t, "alice@personal.example", body.LinkedEmail)
	assert.NotEmpty(t, body.Steps)

	// Re-running is safe
	rec = ts.do(t, http.MethodPost, "/admin/identities/link", token, models.LinkAccountsRequest{
		TargetEmail: "alice@work.example",
		SourceEmail: "alice@personal.example",
	})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestLinkAccounts_Errors(t *testing.T) {
	ts := newTestServer(t)
	ts.createIdentity(t, "alice", "alice@work.example")

	rec := ts.do(t, http.MethodPost, "/admin/identities/link", ts.token(t, auth.ScopeSeed), models.LinkAccountsRequest{
		TargetEmail: "alice@work.example",
		SourceEmail: "alice@personal.example",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := ts.token(t, auth.ScopeMerge)
	rec = ts.do(t, http.MethodPost, "/admin/identities/link", token, models.LinkAccountsRequest{
		TargetEmail: "alice@work.example",
		SourceEmail: "alice@personal.example",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/admin/identities/link", token, models.LinkAccountsRequest{
		TargetEmail: "alice@work.example",
		SourceEmail: "alice@work.example",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// No body and no configured defaults
	rec = ts.do(t, http.MethodPost, "/admin/identities/link", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSeedAwardAndNormalize(t *testing.T) {
	ts := newTestServer(t)
	identity := ts.createIdentity(t, "mrpiglr", "mrpiglr@example.com")
	ts.createIdentity(t, "bob", "bob@example.com")
	token := ts.token(t, auth.ScopeSeed, auth.ScopeAward, auth.ScopeNormalize)

	rec := ts.do(t, http.MethodPost, "/admin/achievements/seed", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	seed := decode[models.SeedResponse](t, rec)
	assert.Equal(t, 2, seed.Created)

	rec = ts.do(t, http.MethodPost, "/admin/achievements/award", token, models.AwardRequest{Email: "MRPIGLR@example.com"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	award := decode[models.AwardResponse](t, rec)
	assert.Equal(t, identity.Id, award.IdentityId)
	assert.ElementsMatch(t, []string{"welcome", "god-mode"}, award.Granted)

	rec = ts.do(t, http.MethodPost, "/admin/achievements/award", token, models.AwardRequest{IdentityId: identity.Id})
	require.Equal(t, http.StatusOK, rec.Code)
	award = decode[models.AwardResponse](t, rec)
	assert.Empty(t, award.Granted)
	assert.Len(t, award.AlreadyHad, 2)

	rec = ts.do(t, http.MethodPost, "/admin/achievements/award", token, models.AwardRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/admin/progression/normalize", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	normalize := decode[models.NormalizeResponse](t, rec)
	assert.Equal(t, int64(1), normalize.UpdatedCount)
	assert.Equal(t, 1, normalize.DefaultGrants)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrapped: %w", auth.ErrUnauthorized), http.StatusUnauthorized},
		{fmt.Errorf("%w: x", merge.ErrPreconditionNotFound), http.StatusNotFound},
		{store.ErrIdentityNotFound, http.StatusNotFound},
		{merge.ErrInvalidMerge, http.StatusBadRequest},
		{ErrInvalidRequest, http.StatusBadRequest},
		{fmt.Errorf("step: %w", lock.ErrLockHeld), http.StatusConflict},
		{fmt.Errorf("%w: timeout", store.ErrTransient), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		status, _ := statusFor(tt.err)
		assert.Equal(t, tt.want, status, tt.err.Error())
	}
}
