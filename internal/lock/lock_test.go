package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryLocker is a process-local Locker for exercising the retry loop.
type memoryLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	attempts int
	failWith error
}

func (m *memoryLocker) Acquire(_ context.Context, key string, _ time.Duration) (Release, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	if m.failWith != nil {
		return nil, m.failWith
	}
	if m.held[key] {
		return nil, ErrLockHeld
	}
	m.held[key] = true
	return func(context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.held, key)
		return nil
	}, nil
}

func TestAcquireWithRetry_Free(t *testing.T) {
	locker := &memoryLocker{held: map[string]bool{}}

	release, err := AcquireWithRetry(context.Background(), locker, "merge:a", time.Minute, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, locker.attempts)
	require.NoError(t, release(context.Background()))
}

func TestAcquireWithRetry_WaitsForRelease(t *testing.T) {
	locker := &memoryLocker{held: map[string]bool{}}
	ctx := context.Background()

	first, err := locker.Acquire(ctx, "merge:a", time.Minute)
	require.NoError(t, err)

	go func() {
		time.Sleep(120 * time.Millisecond)
		_ = first(ctx)
	}()

	release, err := AcquireWithRetry(ctx, locker, "merge:a", time.Minute, 2*time.Second)
	require.NoError(t, err)
	assert.Greater(t, locker.attempts, 2)
	require.NoError(t, release(ctx))
}

func TestAcquireWithRetry_GivesUp(t *testing.T) {
	locker := &memoryLocker{held: map[string]bool{"merge:a": true}}

	_, err := AcquireWithRetry(context.Background(), locker, "merge:a", time.Minute, 150*time.Millisecond)
	assert.ErrorIs(t, err, ErrLockHeld)
}

func TestAcquireWithRetry_OtherErrorsAreNotRetried(t *testing.T) {
	boom := errors.New("connection refused")
	locker := &memoryLocker{held: map[string]bool{}, failWith: boom}

	_, err := AcquireWithRetry(context.Background(), locker, "merge:a", time.Minute, time.Second)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, locker.attempts)
}

func TestNewRedisLockerFromURL_InvalidURL(t *testing.T) {
	_, err := NewRedisLockerFromURL(context.Background(), "http://not-redis")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid REDIS_URL")
}
