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

// Package lock provides advisory locks that serialize merges into the same
// target identity. Backends: the identity database itself (merge_locks table)
// and Redis.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

var ErrLockHeld = errors.New("lock is held by another owner")

// Release frees a previously acquired lock.
type Release func(ctx context.Context) error

// Locker acquires a named advisory lock for at most ttl.
// Acquire returns ErrLockHeld when another owner currently holds the lock.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error)
}

const (
	initialBackoff = 50 * time.Millisecond
	maxBackoff     = time.Second
)

// AcquireWithRetry retries Acquire with exponential backoff until wait has elapsed.
func AcquireWithRetry(ctx context.Context, locker Locker, key string, ttl, wait time.Duration) (Release, error) {
	deadline := time.Now().Add(wait)
	backoff := initialBackoff

	for attempt := 1; ; attempt++ {
		release, err := locker.Acquire(ctx, key, ttl)
		if err == nil {
			zap.L().Debug("Lock acquired", zap.String("key", key), zap.Int("attempt", attempt))
			return release, nil
		}
		if !errors.Is(err, ErrLockHeld) {
			return nil, fmt.Errorf("unable to acquire lock %s: %w", key, err)
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			zap.L().Warn("Gave up waiting for lock", zap.String("key", key), zap.Int("attempts", attempt))
			return nil, fmt.Errorf("lock %s: %w", key, err)
		}
		if backoff > remaining {
			backoff = remaining
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
