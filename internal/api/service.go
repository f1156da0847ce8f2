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
	"context"
	"errors"
	"fmt"

	"identity-merge-go/internal/achievement"
	"identity-merge-go/internal/auth"
	"identity-merge-go/internal/merge"
	"identity-merge-go/internal/models"
	"identity-merge-go/internal/store"

	"go.uber.org/zap"
)

var ErrInvalidRequest = errors.New("invalid request")

// AdminService exposes the operator actions shared by the HTTP server and the CLI.
type AdminService struct {
	store       store.Store
	engine      *merge.Engine
	seeder      *achievement.Seeder
	awarder     *achievement.Awarder
	catalog     *achievement.Catalog
	progression models.ProgressionConfig
}

func NewAdminService(
	s store.Store,
	engine *merge.Engine,
	catalog *achievement.Catalog,
	progression models.ProgressionConfig,
) *AdminService {
	return &AdminService{
		store:       s,
		engine:      engine,
		seeder:      achievement.NewSeeder(s),
		awarder:     achievement.NewAwarder(s),
		catalog:     catalog,
		progression: progression,
	}
}

func (s *AdminService) HealthCheck(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// LinkAccounts merges the source identity into the target identity.
func (s *AdminService) LinkAccounts(ctx context.Context, caller auth.Caller, req models.LinkAccountsRequest) (*models.LinkAccountsResponse, error) {
	result, err := s.engine.Merge(ctx, caller, merge.Request{
		SourceEmail:    req.SourceEmail,
		TargetEmail:    req.TargetEmail,
		TargetUsername: req.TargetUsername,
	})
	if err != nil {
		return nil, err
	}

	return &models.LinkAccountsResponse{
		Success:      result.Success,
		PrimaryEmail: result.PrimaryEmail,
		LinkedEmail:  result.LinkedEmail,
		TargetUserId: result.TargetUserID,
		SourceUserId: result.SourceUserID,
		Steps:        result.Steps,
	}, nil
}

func (s *AdminService) SeedCatalog(ctx context.Context, caller auth.Caller) (*models.SeedResponse, error) {
	if err := caller.Require(auth.ScopeSeed); err != nil {
		return nil, err
	}

	summary, err := s.seeder.SeedCatalog(ctx, s.catalog)
	if err != nil {
		return nil, err
	}
	return &models.SeedResponse{Success: true, Created: summary.Created, Existing: summary.Existing}, nil
}

// AwardFullSet grants the whole catalog to one identity and sets its progression to the configured targets.
func (s *AdminService) AwardFullSet(ctx context.Context, caller auth.Caller, req models.AwardRequest) (*models.AwardResponse, error) {
	if err := caller.Require(auth.ScopeAward); err != nil {
		return nil, err
	}

	identityId := req.IdentityId
	if identityId == "" {
		if req.Email == "" {
			return nil, fmt.Errorf("%w: email or identityId is required", ErrInvalidRequest)
		}
		identity, err := s.store.ResolveIdentityByContact(ctx, req.Email)
		if err != nil {
			return nil, err
		}
		identityId = identity.Id
	}

	zap.L().Info("Awarding full achievement set",
		zap.String("operator", caller.Subject),
		zap.String("identity_id", identityId))

	outcomes, err := s.awarder.AwardFullSet(ctx, identityId, s.catalog.Achievements, s.progression.Targets)
	if err != nil {
		return nil, err
	}

	response := &models.AwardResponse{
		Success:    true,
		IdentityId: identityId,
		Granted:    []string{},
		AlreadyHad: []string{},
	}
	for _, outcome := range outcomes {
		if outcome.Granted {
			response.Granted = append(response.Granted, outcome.Key)
		} else {
			response.AlreadyHad = append(response.AlreadyHad, outcome.Key)
		}
	}
	return response, nil
}

// NormalizeProgression defaults NULL progression counters and grants the default achievements to everyone.
func (s *AdminService) NormalizeProgression(ctx context.Context, caller auth.Caller) (*models.NormalizeResponse, error) {
	if err := caller.Require(auth.ScopeNormalize); err != nil {
		return nil, err
	}

	updated, err := s.awarder.NormalizeProgression(ctx, s.progression.Defaults)
	if err != nil {
		return nil, err
	}

	granted, err := s.awarder.SeedDefaultGrants(ctx, s.catalog.Defaults())
	if err != nil {
		return nil, err
	}

	return &models.NormalizeResponse{Success: true, UpdatedCount: updated, DefaultGrants: granted}, nil
}

// ListIdentities returns the active identities with their contact links.
func (s *AdminService) ListIdentities(ctx context.Context) ([]models.Identity, map[string][]models.ContactLink, error) {
	identities, err := s.store.GetIdentities(ctx)
	if err != nil {
		return nil, nil, err
	}

	links := make(map[string][]models.ContactLink, len(identities))
	for _, identity := range identities {
		identityLinks, err := s.store.GetContactLinks(ctx, identity.Id)
		if err != nil {
			return nil, nil, err
		}
		links[identity.Id] = identityLinks
	}
	return identities, links, nil
}
