// Package lock provides named, leased mutual exclusion on top of Redis.
// The locking boundary is explicit at every call site: the protected
// operation is passed as a closure to WithLock, which wraps acquisition
// and release around it. WithLock must wrap any database transaction the
// closure opens, so the lock is held for the full duration of the guarded
// write, not just the acquisition call.
package lock

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"concertgate/internal/apperr"
)

const keyPrefix = "lock:"

// retryInterval is how often a blocked caller re-attempts SET NX while
// waiting for the current holder to release.
const retryInterval = 50 * time.Millisecond

// releaseScript deletes the lock only if this caller still owns it, so a
// lease that auto-expired and was re-acquired by someone else is never
// stolen back on release.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`

// redisOps is the slice of the Redis client the manager needs. Satisfied
// by *redis.Client; faked in tests.
type redisOps interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// Manager hands out exclusive, leased locks keyed by name. The lease
// bounds worst-case unavailability: if the holder crashes, the key
// expires on its own and the resource frees up.
type Manager struct {
	rdb   redisOps
	retry time.Duration
}

// NewManager returns a Manager backed by the given Redis client.
func NewManager(rdb *redis.Client) *Manager {
	return &Manager{rdb: rdb, retry: retryInterval}
}

// WithLock runs fn while holding an exclusive lease on key. The caller
// blocks up to wait attempting to acquire; on timeout it fails with
// apperr.ErrLockAcquisitionFailed without running fn. The lease
// auto-expires after lease even if the holder crashes. Release happens on
// every exit path, provided the lease has not already expired.
func (m *Manager) WithLock(ctx context.Context, key string, wait, lease time.Duration, fn func() error) error {
	lockKey := keyPrefix + key
	owner := uuid.NewString()

	acquired, err := m.acquire(ctx, lockKey, owner, wait, lease)
	if err != nil {
		return err
	}
	if !acquired {
		return apperr.ErrLockAcquisitionFailed
	}
	defer m.release(lockKey, owner)

	return fn()
}

func (m *Manager) acquire(ctx context.Context, lockKey, owner string, wait, lease time.Duration) (bool, error) {
	deadline := time.Now().Add(wait)
	for {
		ok, err := m.rdb.SetNX(ctx, lockKey, owner, lease).Result()
		if err != nil {
			return false, fmt.Errorf("lock: acquire %s: %w", lockKey, err)
		}
		if ok {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(m.retry):
		}
	}
}

// release uses a fresh short-lived context: the guarded operation's
// context may already be cancelled, and the lock must be freed regardless.
func (m *Manager) release(lockKey, owner string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.rdb.Eval(ctx, releaseScript, []string{lockKey}, owner).Err(); err != nil && err != redis.Nil {
		// The lease will expire on its own; nothing more to do here.
		log.Printf("lock: release %s failed: %v", lockKey, err)
	}
}
