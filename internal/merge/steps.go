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

package merge

import (
	"context"
	"errors"

	"identity-merge-go/internal/contact"
	"identity-merge-go/internal/store"

	"go.uber.org/zap"
)

// transferCreatorProfile keeps the target's profile when both identities own one.
func (m *mergeRun) transferCreatorProfile(ctx context.Context) (Outcome, error) {
	profile, err := m.store.GetCreatorProfile(ctx, m.source.Id)
	if err != nil || profile == nil {
		return Outcome{}, err
	}

	existing, err := m.store.GetCreatorProfile(ctx, m.target.Id)
	if err != nil {
		return Outcome{}, err
	}
	if existing != nil {
		zap.L().Warn("Target already has a creator profile, leaving source profile in place",
			zap.String("target_profile", existing.Id),
			zap.String("source_profile", profile.Id))
		return Outcome{Conflicts: 1}, nil
	}

	moved, err := m.store.ReassignCreatorProfile(ctx, profile.Id, m.source.Id, m.target.Id)
	if errors.Is(err, store.ErrDuplicateKey) {
		return Outcome{Conflicts: 1}, nil
	}
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Affected: moved}, nil
}

// transferGrants leaves grants the target already holds on the source.
func (m *mergeRun) transferGrants(ctx context.Context) (Outcome, error) {
	moved, err := m.store.TransferGrants(ctx, m.source.Id, m.target.Id)
	if err != nil {
		return Outcome{}, err
	}

	leftover, err := m.store.GetGrants(ctx, m.source.Id)
	if err != nil {
		return Outcome{Affected: moved}, err
	}
	return Outcome{Affected: moved, Conflicts: int64(len(leftover))}, nil
}

func (m *mergeRun) transferApplications(ctx context.Context) (Outcome, error) {
	moved, err := m.store.TransferApplications(ctx, m.source.Id, m.target.Id)
	return Outcome{Affected: moved}, err
}

func (m *mergeRun) transferExternalAccounts(ctx context.Context) (Outcome, error) {
	accounts, err := m.store.GetExternalAccounts(ctx, m.source.Id)
	if err != nil || len(accounts) == 0 {
		return Outcome{}, err
	}
	existing, err := m.store.GetExternalAccounts(ctx, m.target.Id)
	if err != nil {
		return Outcome{}, err
	}

	held := make(map[string]bool, len(existing))
	for _, account := range existing {
		held[account.Provider] = true
	}

	var outcome Outcome
	for _, account := range accounts {
		if held[account.Provider] {
			zap.L().Warn("Target already linked to provider, leaving source account in place",
				zap.String("provider", account.Provider),
				zap.String("account_id", account.Id))
			outcome.Conflicts++
			continue
		}
		if err := m.reassignRow(ctx, &outcome, account.Id, m.store.ReassignExternalAccount); err != nil {
			return outcome, err
		}
		held[account.Provider] = true
	}
	return outcome, nil
}

func (m *mergeRun) transferWalletLinks(ctx context.Context) (Outcome, error) {
	wallets, err := m.store.GetWalletLinks(ctx, m.source.Id)
	if err != nil || len(wallets) == 0 {
		return Outcome{}, err
	}
	existing, err := m.store.GetWalletLinks(ctx, m.target.Id)
	if err != nil {
		return Outcome{}, err
	}

	held := make(map[string]bool, len(existing))
	for _, wallet := range existing {
		held[contact.NormalizeWallet(wallet.Address)] = true
	}

	var outcome Outcome
	for _, wallet := range wallets {
		address := contact.NormalizeWallet(wallet.Address)
		if held[address] {
			zap.L().Warn("Target already linked to wallet, leaving source wallet in place",
				zap.String("address", address),
				zap.String("wallet_id", wallet.Id))
			outcome.Conflicts++
			continue
		}
		if err := m.reassignRow(ctx, &outcome, wallet.Id, m.store.ReassignWalletLink); err != nil {
			return outcome, err
		}
		held[address] = true
	}
	return outcome, nil
}

type reassignFunc func(ctx context.Context, rowId, fromId, toId string) (int64, error)

// reassignRow counts a unique-key race with a concurrent writer as a conflict.
func (m *mergeRun) reassignRow(ctx context.Context, outcome *Outcome, rowId string, reassign reassignFunc) error {
	moved, err := reassign(ctx, rowId, m.source.Id, m.target.Id)
	if errors.Is(err, store.ErrDuplicateKey) {
		outcome.Conflicts++
		return nil
	}
	if err != nil {
		return err
	}
	outcome.Affected += moved
	return nil
}

// linkContacts points both addresses at the target, with the target address as
// the only primary link.
func (m *mergeRun) linkContacts(ctx context.Context) (Outcome, error) {
	var outcome Outcome
	links := []store.ContactLinkParams{
		{Email: m.targetEmail, IdentityId: m.target.Id, IsPrimary: true},
		{Email: m.sourceEmail, IdentityId: m.target.Id, IsPrimary: false},
	}

	for _, params := range links {
		existing, err := m.store.GetContactLink(ctx, params.Email)
		if err != nil {
			return outcome, err
		}

		switch {
		case existing == nil:
			err = m.store.InsertContactLink(ctx, params)
			if errors.Is(err, store.ErrDuplicateKey) {
				continue
			}
		case existing.IdentityId == params.IdentityId && existing.IsPrimary == params.IsPrimary:
			continue
		default:
			err = m.store.ReassignContactLink(ctx, params)
		}
		if err != nil {
			return outcome, err
		}
		outcome.Affected++
	}

	demoted, err := m.store.DemotePrimaryContacts(ctx, m.target.Id, m.targetEmail)
	if err != nil {
		return outcome, err
	}
	outcome.Affected += demoted
	return outcome, nil
}

func (m *mergeRun) updateTarget(ctx context.Context) (Outcome, error) {
	if err := m.store.UpdateIdentityContact(ctx, m.target.Id, m.targetEmail, true); err != nil {
		return Outcome{}, err
	}
	return Outcome{Affected: 1}, nil
}

func (m *mergeRun) markSourceMerged(ctx context.Context) (Outcome, error) {
	if err := m.store.MarkIdentityMerged(ctx, m.source.Id, m.target.Id); err != nil {
		return Outcome{}, err
	}
	return Outcome{Affected: 1}, nil
}
