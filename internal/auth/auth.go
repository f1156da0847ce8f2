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

// Package auth issues and verifies signed operator tokens. Tokens are HS256
// JWTs carrying a subject, an expiry and a space separated scope claim.
package auth

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"identity-merge-go/internal/models"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"go.uber.org/zap"
)

const (
	ScopeMerge     = "identity:merge"
	ScopeSeed      = "achievements:seed"
	ScopeAward     = "achievements:award"
	ScopeNormalize = "progression:normalize"

	scopeClaim = "scope"
)

// AllScopes lists every scope an operator token can carry.
var AllScopes = []string{ScopeMerge, ScopeSeed, ScopeAward, ScopeNormalize}

var ErrUnauthorized = errors.New("unauthorized")

// Caller is an authenticated operator.
type Caller struct {
	Subject string
	Scopes  []string
}

func (c Caller) Can(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

// Require returns ErrUnauthorized unless the caller holds scope.
func (c Caller) Require(scope string) error {
	if !c.Can(scope) {
		return fmt.Errorf("%w: %q lacks scope %s", ErrUnauthorized, c.Subject, scope)
	}
	return nil
}

type Verifier struct {
	secret []byte
	issuer string
	skew   time.Duration
	now    func() time.Time
}

func NewVerifier(cfg models.AuthConfig) (*Verifier, error) {
	if cfg.TokenSecret == "" {
		return nil, fmt.Errorf("OPERATOR_TOKEN_SECRET is required")
	}
	return &Verifier{
		secret: []byte(cfg.TokenSecret),
		issuer: cfg.Issuer,
		skew:   cfg.ClockSkew,
		now:    time.Now,
	}, nil
}

// Verify checks the signature, issuer and expiry of token.
func (v *Verifier) Verify(token string) (Caller, error) {
	if token == "" {
		return Caller{}, fmt.Errorf("%w: missing token", ErrUnauthorized)
	}

	parsed, err := jwt.Parse([]byte(token),
		jwt.WithKey(jwa.HS256, v.secret),
		jwt.WithValidate(true),
		jwt.WithIssuer(v.issuer),
		jwt.WithAcceptableSkew(v.skew),
		jwt.WithClock(jwt.ClockFunc(v.now)),
	)
	if err != nil {
		zap.L().Warn("Rejected operator token", zap.Error(err))
		return Caller{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	if parsed.Subject() == "" {
		return Caller{}, fmt.Errorf("%w: token has no subject", ErrUnauthorized)
	}

	var scopes []string
	if raw, ok := parsed.Get(scopeClaim); ok {
		s, ok := raw.(string)
		if !ok {
			return Caller{}, fmt.Errorf("%w: malformed scope claim", ErrUnauthorized)
		}
		scopes = strings.Fields(s)
	}

	return Caller{Subject: parsed.Subject(), Scopes: scopes}, nil
}

type Issuer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewIssuer(cfg models.AuthConfig) (*Issuer, error) {
	if cfg.TokenSecret == "" {
		return nil, fmt.Errorf("OPERATOR_TOKEN_SECRET is required")
	}
	return &Issuer{secret: []byte(cfg.TokenSecret), issuer: cfg.Issuer, now: time.Now}, nil
}

// Issue signs a token for subject valid for ttl.
func (i *Issuer) Issue(subject string, scopes []string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("subject cannot be empty")
	}
	for _, scope := range scopes {
		if !slices.Contains(AllScopes, scope) {
			return "", fmt.Errorf("unknown scope %q", scope)
		}
	}

	issuedAt := i.now()
	token, err := jwt.NewBuilder().
		Issuer(i.issuer).
		Subject(subject).
		IssuedAt(issuedAt).
		Expiration(issuedAt.Add(ttl)).
		Claim(scopeClaim, strings.Join(scopes, " ")).
		Build()
	if err != nil {
		return "", fmt.Errorf("unable to build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, i.secret))
	if err != nil {
		return "", fmt.Errorf("unable to sign token: %w", err)
	}
	return string(signed), nil
}
