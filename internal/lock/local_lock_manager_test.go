package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLockManager_TryAcquire(t *testing.T) {
	mgr := NewLocalLockManager()
	ctx := context.Background()

	ok, err := mgr.TryAcquire(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = mgr.TryAcquire(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire must fail while held")

	ok, err = mgr.TryAcquire(ctx, 2)
	require.NoError(t, err)
	assert.True(t, ok, "locks are independent per id")

	require.NoError(t, mgr.Release(ctx, 1))
	ok, err = mgr.TryAcquire(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalLockManager_AcquireHonoursContext(t *testing.T) {
	mgr := NewLocalLockManager()
	require.NoError(t, mgr.Acquire(context.Background(), 5))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := mgr.Acquire(ctx, 5)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocalLockManager_ReleaseNotHeld(t *testing.T) {
	mgr := NewLocalLockManager()
	assert.ErrorIs(t, mgr.Release(context.Background(), 3), ErrLockNotHeld)
}

var (
	_ DistributedLockManager = (*LocalLockManager)(nil)
	_ DistributedLockManager = (*PostgresDistributedLockManager)(nil)
	_ DistributedLockManager = (*RedisLockManager)(nil)
)
