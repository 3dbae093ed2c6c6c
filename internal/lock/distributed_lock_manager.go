package lock

import (
	"context"
	"errors"
)

// ErrLockNotHeld is returned by Release when this process does not hold the lock.
var ErrLockNotHeld = errors.New("lock not held")

// DistributedLockManager guards work that must run on at most one instance at a time.
type DistributedLockManager interface {
	// Acquire blocks until the lock is held or ctx is done.
	Acquire(ctx context.Context, lockID int) error
	// TryAcquire takes the lock if it is free and reports whether it did.
	TryAcquire(ctx context.Context, lockID int) (bool, error)
	Release(ctx context.Context, lockID int) error
}
