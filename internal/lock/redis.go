package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// RedisOptions tunes the distributed locker.
type RedisOptions struct {
	// Timeout bounds how long Acquire waits for all keys.
	Timeout time.Duration
	// Expiry is the lease on each key. It must outlive the longest ledger
	// transaction, otherwise another node may take the key mid-update.
	Expiry time.Duration
	// RetryDelay is the pause between attempts on a contended key.
	RetryDelay time.Duration
}

// DefaultRedisOptions returns the settings used when none are given.
func DefaultRedisOptions() RedisOptions {
	return RedisOptions{
		Timeout:    DefaultTimeout,
		Expiry:     10 * time.Second,
		RetryDelay: 50 * time.Millisecond,
	}
}

// RedisLocker is a Locker backed by Redis via redsync, for deployments
// running several ledger nodes against one database.
type RedisLocker struct {
	rs     *redsync.Redsync
	opts   RedisOptions
	logger *slog.Logger
}

// NewRedisLocker builds a RedisLocker on an existing go-redis client.
func NewRedisLocker(client redis.UniversalClient, opts RedisOptions, logger *slog.Logger) *RedisLocker {
	defaults := DefaultRedisOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.Expiry <= 0 {
		opts.Expiry = defaults.Expiry
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaults.RetryDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisLocker{
		rs:     redsync.New(goredis.NewPool(client)),
		opts:   opts,
		logger: logger,
	}
}

// Acquire takes every key in sorted order within the configured timeout.
func (l *RedisLocker) Acquire(ctx context.Context, keys ...string) (Release, error) {
	keys = normalize(keys)

	waitCtx, cancel := context.WithTimeout(ctx, l.opts.Timeout)
	defer cancel()

	tries := int(l.opts.Timeout/l.opts.RetryDelay) + 1
	held := make([]*redsync.Mutex, 0, len(keys))
	release := func() {
		// The caller's context may already be done; unlocking must still happen.
		unlockCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		for i := len(held) - 1; i >= 0; i-- {
			if ok, err := held[i].UnlockContext(unlockCtx); !ok || err != nil {
				l.logger.Error("failed to release lock", "key", held[i].Name(), "unlock_ok", ok, "error", err)
			}
		}
	}

	for _, key := range keys {
		mutex := l.rs.NewMutex(key,
			redsync.WithExpiry(l.opts.Expiry),
			redsync.WithTries(tries),
			redsync.WithRetryDelay(l.opts.RetryDelay),
		)
		if err := mutex.LockContext(waitCtx); err != nil {
			release()
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if isContention(err) || waitCtx.Err() != nil {
				return nil, fmt.Errorf("key %s: %w", key, ErrTimeout)
			}
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		held = append(held, mutex)
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

// isContention reports whether err means another holder owns the key.
// redsync reports contention either as ErrFailed or as a "lock already taken" error.
func isContention(err error) bool {
	return errors.Is(err, redsync.ErrFailed) ||
		strings.Contains(err.Error(), "lock already taken")
}
