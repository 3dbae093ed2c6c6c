package lock

import (
	"context"
	"sync"
)

// LocalLockManager serializes work inside a single process. It backs the
// SQLite driver, where only one process owns the database file.
type LocalLockManager struct {
	mu    sync.Mutex
	slots map[int]chan struct{}
}

func NewLocalLockManager() *LocalLockManager {
	return &LocalLockManager{slots: make(map[int]chan struct{})}
}

func (l *LocalLockManager) slot(lockID int) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[lockID]
	if !ok {
		s = make(chan struct{}, 1)
		l.slots[lockID] = s
	}
	return s
}

func (l *LocalLockManager) Acquire(ctx context.Context, lockID int) error {
	select {
	case l.slot(lockID) <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *LocalLockManager) TryAcquire(_ context.Context, lockID int) (bool, error) {
	select {
	case l.slot(lockID) <- struct{}{}:
		return true, nil
	default:
		return false, nil
	}
}

func (l *LocalLockManager) Release(_ context.Context, lockID int) error {
	select {
	case <-l.slot(lockID):
		return nil
	default:
		return ErrLockNotHeld
	}
}
