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

package common

import (
	"context"
	"fmt"

	"identity-merge-go/internal/store"

	"go.uber.org/zap"
)

// IdentityInfo represents simplified identity information for command-line utilities
type IdentityInfo struct {
	Id       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Linked   bool   `json:"hasLinkedIdentities"`
}

// InitializeIdentities retrieves identities based on an optional email filter.
// If emailFilter is provided, returns the single identity owning that address.
// If emailFilter is empty, returns all active identities.
func InitializeIdentities(ctx context.Context, identities store.IdentityStore, emailFilter string, logger *zap.Logger) ([]IdentityInfo, error) {
	var infos []IdentityInfo

	if emailFilter != "" {
		logger.Info("Looking up identity by email", zap.String("email", emailFilter))
		identity, err := identities.ResolveIdentityByContact(ctx, emailFilter)
		if err != nil {
			return nil, fmt.Errorf("identity not found: %w", err)
		}
		infos = append(infos, IdentityInfo{
			Id:       identity.Id,
			Username: identity.Username,
			Email:    identity.Email,
			Linked:   identity.HasLinkedIdentities,
		})
	} else {
		all, err := identities.GetIdentities(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get identities: %w", err)
		}
		for _, identity := range all {
			infos = append(infos, IdentityInfo{
				Id:       identity.Id,
				Username: identity.Username,
				Email:    identity.Email,
				Linked:   identity.HasLinkedIdentities,
			})
		}
	}

	logger.Info("Retrieved identities", zap.Int("count", len(infos)))
	return infos, nil
}
