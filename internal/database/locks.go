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

package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"identity-merge-go/internal/lock"
	"identity-merge-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Acquire implements lock.Locker on the merge_locks table. An expired lock is
// taken over by the next caller.
func (s *Service) Acquire(ctx context.Context, key string, ttl time.Duration) (lock.Release, error) {
	owner := uuid.New().String()
	now := time.Now()

	err := s.insertLock(ctx, key, owner, now.Add(ttl))
	if errors.Is(err, store.ErrDuplicateKey) {
		result, delErr := s.db.ExecContext(ctx, s.rebind(queryDeleteExpiredLock), key, now.UnixMilli())
		if delErr != nil {
			return nil, fmt.Errorf("unable to clear expired lock: %w", classify(delErr))
		}
		if cleared, _ := result.RowsAffected(); cleared == 0 {
			return nil, lock.ErrLockHeld
		}
		zap.L().Warn("Took over expired lock", zap.String("key", key))
		err = s.insertLock(ctx, key, owner, now.Add(ttl))
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil, lock.ErrLockHeld
		}
	}
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) error {
		if _, err := s.db.ExecContext(ctx, s.rebind(queryReleaseLock), key, owner); err != nil {
			return fmt.Errorf("unable to release lock %s: %w", key, classify(err))
		}
		return nil
	}, nil
}

func (s *Service) insertLock(ctx context.Context, key, owner string, expiresAt time.Time) error {
	if _, err := s.db.ExecContext(ctx, s.rebind(queryInsertLock), key, owner, expiresAt.UnixMilli()); err != nil {
		return fmt.Errorf("unable to insert lock: %w", classify(err))
	}
	return nil
}
