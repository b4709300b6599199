// Package lock serializes critical sections across API replicas with redis leases.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	goredis "github.com/redis/go-redis/v9"
)

// ErrNotAcquired means another holder owns the lease.
var ErrNotAcquired = errors.New("lock not acquired")

type Locker struct {
	client *redislock.Client
	// Retry controls how long Obtain waits for a busy lease; nil fails fast.
	Retry redislock.RetryStrategy
}

func New(rdb *goredis.Client) *Locker {
	return &Locker{client: redislock.New(rdb)}
}

// WithLock runs fn while holding key for at most ttl. The lease is released
// afterwards even when fn fails.
func (l *Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if l == nil || l.client == nil {
		return errors.New("locker not configured")
	}
	if ttl <= 0 {
		return fmt.Errorf("lock ttl must be positive")
	}

	opts := &redislock.Options{}
	if l.Retry != nil {
		opts.RetryStrategy = l.Retry
	}
	lease, err := l.client.Obtain(ctx, key, ttl, opts)
	if errors.Is(err, redislock.ErrNotObtained) {
		return ErrNotAcquired
	}
	if err != nil {
		return fmt.Errorf("obtain lock %s: %w", key, err)
	}

	runErr := fn(ctx)

	// Release on a fresh context so a cancelled request still frees the lease.
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := lease.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
		return errors.Join(runErr, fmt.Errorf("release lock %s: %w", key, err))
	}
	return runErr
}
