package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"banner-editor/internal/core/cache"
	"banner-editor/internal/core/logger"
	"banner-editor/internal/features/banners/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	lockKeyPrefix  = "lock:"
	lockRetryDelay = 25 * time.Millisecond
)

// RedisLocker holds keys as expiring Redis entries so several API processes
// share one critical section. The TTL bounds how long a crashed holder blocks others.
type RedisLocker struct {
	cache cache.Cache
	ttl   time.Duration
}

// NewRedisLocker creates a new RedisLocker.
func NewRedisLocker(c cache.Cache, ttl time.Duration) *RedisLocker {
	return &RedisLocker{cache: c, ttl: ttl}
}

// Lock retries SETNX until it succeeds or ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	name := lockKeyPrefix + key
	token := []byte(uuid.NewString())

	for {
		ok, err := l.cache.SetNX(ctx, name, token, l.ttl)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("lock %s: %w", key, errors.Join(domain.ErrLockUnavailable, ctxErr))
			}
			return nil, fmt.Errorf("lock %s: %w", key, errors.Join(domain.ErrLockUnavailable, err))
		}
		if ok {
			break
		}

		select {
		case <-time.After(lockRetryDelay):
		case <-ctx.Done():
			return nil, fmt.Errorf("lock %s: %w", key, errors.Join(domain.ErrLockUnavailable, ctx.Err()))
		}
	}

	return func() {
		// Release even when the request context is already cancelled.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		deleted, err := l.cache.CompareAndDelete(releaseCtx, name, token)
		if err != nil {
			logger.Get().Warn("Failed to release lock", zap.String("key", key), zap.Error(err))
			return
		}
		if !deleted {
			logger.Get().Warn("Lock expired before release", zap.String("key", key))
		}
	}, nil
}
