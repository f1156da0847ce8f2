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

// Package merge folds a source identity into a target identity. Every step
// is idempotent, so a merge that failed part way can be re-run as a whole.
package merge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"identity-merge-go/internal/auth"
	"identity-merge-go/internal/contact"
	"identity-merge-go/internal/lock"
	"identity-merge-go/internal/models"
	"identity-merge-go/internal/store"

	"go.uber.org/zap"
)

var (
	ErrPreconditionNotFound = errors.New("merge precondition not found")
	ErrInvalidMerge         = errors.New("invalid merge")
)

const releaseTimeout = 5 * time.Second

// Request names the two identities to merge. TargetUsername, when set, takes
// precedence over TargetEmail for locating the target.
type Request struct {
	SourceEmail    string
	TargetEmail    string
	TargetUsername string
}

type Result struct {
	Success      bool
	PrimaryEmail string
	LinkedEmail  string
	TargetUserID string
	SourceUserID string
	Steps        []models.StepReport
}

type Engine struct {
	store  store.Store
	locker lock.Locker
	cfg    models.MergeConfig
	runner *Runner
}

func NewEngine(s store.Store, locker lock.Locker, cfg models.MergeConfig) *Engine {
	return &Engine{
		store:  s,
		locker: locker,
		cfg:    cfg,
		runner: NewRunner(cfg.StepTimeout),
	}
}

// mergeRun holds the state shared by the steps of one run.
type mergeRun struct {
	store       store.Store
	req         Request
	targetEmail string
	sourceEmail string
	target      *models.Identity
	source      *models.Identity
	release     lock.Release
}

// Merge moves every record owned by the source identity to the target and marks
// the source as merged. Best-effort step failures are reported in Result.Steps.
func (e *Engine) Merge(ctx context.Context, caller auth.Caller, req Request) (*Result, error) {
	if err := caller.Require(auth.ScopeMerge); err != nil {
		return nil, err
	}

	req = e.withDefaults(req)
	if req.SourceEmail == "" {
		return nil, fmt.Errorf("%w: source address is required", ErrInvalidMerge)
	}
	if req.TargetEmail == "" && req.TargetUsername == "" {
		return nil, fmt.Errorf("%w: target address or username is required", ErrInvalidMerge)
	}

	zap.L().Info("Starting identity merge",
		zap.String("operator", caller.Subject),
		zap.String("target_email", req.TargetEmail),
		zap.String("target_username", req.TargetUsername),
		zap.String("source_email", req.SourceEmail))

	m := &mergeRun{store: e.store, req: req}
	defer m.unlock()

	stages := []Stage{
		{{Name: "resolve", Critical: true, Run: m.resolve}},
		{{Name: "acquire-lock", Critical: true, Run: func(ctx context.Context) (Outcome, error) {
			return m.lock(ctx, e.locker, e.cfg.LockTTL, e.cfg.LockWait)
		}}},
		{{Name: "transfer-creator-profile", Run: m.transferCreatorProfile}},
		{
			{Name: "transfer-achievement-grants", Run: m.transferGrants},
			{Name: "transfer-applications", Run: m.transferApplications},
		},
		{
			{Name: "transfer-external-accounts", Run: m.transferExternalAccounts},
			{Name: "transfer-wallet-links", Run: m.transferWalletLinks},
		},
		{{Name: "link-contacts", Run: m.linkContacts}},
		{{Name: "update-target", Run: m.updateTarget}},
		{{Name: "mark-source-merged", Critical: true, Run: m.markSourceMerged}},
	}

	steps, err := e.runner.Run(ctx, stages)
	if err != nil {
		zap.L().Error("Identity merge aborted",
			zap.String("target_email", req.TargetEmail),
			zap.String("source_email", req.SourceEmail),
			zap.Error(err))
		return nil, err
	}

	failed := 0
	for _, step := range steps {
		if step.Status == StepStatusFailed {
			failed++
		}
	}
	zap.L().Info("Identity merge completed",
		zap.String("target_id", m.target.Id),
		zap.String("source_id", m.source.Id),
		zap.Int("failed_steps", failed))

	return &Result{
		Success:      true,
		PrimaryEmail: m.targetEmail,
		LinkedEmail:  m.sourceEmail,
		TargetUserID: m.target.Id,
		SourceUserID: m.source.Id,
		Steps:        steps,
	}, nil
}

func (e *Engine) withDefaults(req Request) Request {
	if req.TargetEmail == "" && req.TargetUsername == "" {
		req.TargetEmail = e.cfg.DefaultTargetEmail
	}
	if req.SourceEmail == "" {
		req.SourceEmail = e.cfg.DefaultSourceEmail
	}
	return req
}

func (m *mergeRun) resolve(ctx context.Context) (Outcome, error) {
	var target *models.Identity
	var err error
	if m.req.TargetUsername != "" {
		target, err = m.store.GetIdentityByUsername(ctx, m.req.TargetUsername)
	} else {
		target, err = m.store.ResolveIdentityByContact(ctx, m.req.TargetEmail)
	}
	if err != nil {
		return Outcome{}, notFound("target", err)
	}

	source, err := m.store.ResolveIdentityByContact(ctx, m.req.SourceEmail)
	if err != nil {
		return Outcome{}, notFound("source", err)
	}

	if err := checkPair(target, source); err != nil {
		return Outcome{}, err
	}

	m.target = target
	m.source = source
	m.targetEmail = contact.Normalize(m.req.TargetEmail)
	if m.targetEmail == "" {
		m.targetEmail = target.Email
	}
	m.sourceEmail = contact.Normalize(m.req.SourceEmail)

	zap.L().Info("Resolved merge identities",
		zap.String("target_id", target.Id),
		zap.String("source_id", source.Id),
		zap.Bool("rerun", source.IsMerged()))
	return Outcome{}, nil
}

func checkPair(target, source *models.Identity) error {
	if target.Id == source.Id {
		return fmt.Errorf("%w: source and target are the same identity %s", ErrInvalidMerge, target.Id)
	}
	if target.IsMerged() {
		return fmt.Errorf("%w: target %s is itself merged", ErrInvalidMerge, target.Id)
	}
	if source.IsMerged() && (source.MergedInto == nil || *source.MergedInto != target.Id) {
		return fmt.Errorf("%w: source %s is already merged into another identity", ErrInvalidMerge, source.Id)
	}
	return nil
}

func notFound(role string, err error) error {
	if errors.Is(err, store.ErrIdentityNotFound) {
		return fmt.Errorf("%w: %s: %w", ErrPreconditionNotFound, role, err)
	}
	return fmt.Errorf("unable to resolve %s: %w", role, err)
}

func (m *mergeRun) lock(ctx context.Context, locker lock.Locker, ttl, wait time.Duration) (Outcome, error) {
	release, err := lock.AcquireWithRetry(ctx, locker, "merge:"+m.target.Id, ttl, wait)
	if err != nil {
		return Outcome{}, err
	}
	m.release = release

	// A merge into another target may have claimed the source since resolve.
	target, err := m.store.GetIdentityById(ctx, m.target.Id)
	if err != nil {
		return Outcome{}, notFound("target", err)
	}
	source, err := m.store.GetIdentityById(ctx, m.source.Id)
	if err != nil {
		return Outcome{}, notFound("source", err)
	}
	if err := checkPair(target, source); err != nil {
		return Outcome{}, err
	}
	m.target = target
	m.source = source
	return Outcome{}, nil
}

func (m *mergeRun) unlock() {
	if m.release == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if err := m.release(ctx); err != nil {
		zap.L().Warn("Failed to release merge lock", zap.String("target_id", m.target.Id), zap.Error(err))
	}
}
