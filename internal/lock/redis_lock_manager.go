package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	redisLockPrefix    = "listpilot:lock:"
	defaultRedisTTL    = 15 * time.Minute
	redisRetryInterval = 250 * time.Millisecond
)

// Deletes the key only while it still carries our token, so an expired lock
// re-taken by another instance is never released by us.
var releaseIfOwnedScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

// RedisLockManager implements locks with SET NX PX and an owner token.
type RedisLockManager struct {
	client *redis.Client
	ttl    time.Duration

	mu     sync.Mutex
	tokens map[int]string
}

// NewRedisLockManager returns a manager whose locks expire after ttl unless
// released. A non-positive ttl selects the default.
func NewRedisLockManager(client *redis.Client, ttl time.Duration) *RedisLockManager {
	if ttl <= 0 {
		ttl = defaultRedisTTL
	}
	return &RedisLockManager{
		client: client,
		ttl:    ttl,
		tokens: make(map[int]string),
	}
}

func redisLockKey(lockID int) string {
	return fmt.Sprintf("%s%d", redisLockPrefix, lockID)
}

func (l *RedisLockManager) TryAcquire(ctx context.Context, lockID int) (bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, redisLockKey(lockID), token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		return false, nil
	}

	l.mu.Lock()
	l.tokens[lockID] = token
	l.mu.Unlock()
	return true, nil
}

func (l *RedisLockManager) Acquire(ctx context.Context, lockID int) error {
	ticker := time.NewTicker(redisRetryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.TryAcquire(ctx, lockID)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to acquire lock: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *RedisLockManager) Release(ctx context.Context, lockID int) error {
	l.mu.Lock()
	token, ok := l.tokens[lockID]
	delete(l.tokens, lockID)
	l.mu.Unlock()

	if !ok {
		return ErrLockNotHeld
	}

	if err := releaseIfOwnedScript.Run(ctx, l.client, []string{redisLockKey(lockID)}, token).Err(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}
