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
	"fmt"
	"time"

	"identity-merge-go/internal/models"
	"identity-merge-go/internal/store"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	StepStatusOK     = "ok"
	StepStatusFailed = "failed"
)

// Outcome counts the rows a step touched and the rows it left behind.
type Outcome struct {
	Affected  int64
	Conflicts int64
}

// Step is one unit of the merge pipeline. A failed critical step aborts the
// run; a failed best-effort step is recorded and the run continues.
type Step struct {
	Name     string
	Critical bool
	Run      func(ctx context.Context) (Outcome, error)
}

// Stage is a group of steps over disjoint tables; its steps run concurrently.
type Stage []Step

type Runner struct {
	stepTimeout time.Duration
}

func NewRunner(stepTimeout time.Duration) *Runner {
	return &Runner{stepTimeout: stepTimeout}
}

// Run executes stages in order and returns one report per executed step.
func (r *Runner) Run(ctx context.Context, stages []Stage) ([]models.StepReport, error) {
	var reports []models.StepReport

	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return reports, fmt.Errorf("merge interrupted: %w", err)
		}

		stageReports := make([]models.StepReport, len(stage))
		var g errgroup.Group
		for i, step := range stage {
			g.Go(func() error {
				report, err := r.runStep(ctx, step)
				stageReports[i] = report
				if err != nil && step.Critical {
					return fmt.Errorf("step %s: %w", step.Name, err)
				}
				return nil
			})
		}
		err := g.Wait()
		reports = append(reports, stageReports...)
		if err != nil {
			return reports, err
		}
	}

	return reports, nil
}

func (r *Runner) runStep(ctx context.Context, step Step) (models.StepReport, error) {
	report := models.StepReport{Name: step.Name, Critical: step.Critical}

	stepCtx := ctx
	if r.stepTimeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, r.stepTimeout)
		defer cancel()
	}

	start := time.Now()
	outcome, err := step.Run(stepCtx)
	if err != nil && errors.Is(stepCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, store.ErrTransient) {
		err = fmt.Errorf("%w: step timed out after %v: %w", store.ErrTransient, r.stepTimeout, err)
	}

	report.Affected = outcome.Affected
	report.Conflicts = outcome.Conflicts
	if err != nil {
		report.Status = StepStatusFailed
		report.Error = err.Error()
		if step.Critical {
			zap.L().Error("Critical merge step failed", zap.String("step", step.Name), zap.Error(err))
		} else {
			zap.L().Warn("Best-effort merge step failed, continuing", zap.String("step", step.Name), zap.Error(err))
		}
		return report, err
	}

	report.Status = StepStatusOK
	zap.L().Info("Merge step completed",
		zap.String("step", step.Name),
		zap.Int64("affected", outcome.Affected),
		zap.Int64("conflicts", outcome.Conflicts),
		zap.Duration("elapsed", time.Since(start)))
	return report, nil
}
