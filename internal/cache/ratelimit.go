package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/dormmanager/backend/internal/config"
)

// RateLimiter allows one action per key per window across every instance
// sharing the cache.
type RateLimiter struct {
	client  redis.Cmdable
	keys    config.KeySpace
	timeout time.Duration
}

// NewRateLimiter builds a limiter over client.
func NewRateLimiter(client redis.Cmdable, keys config.KeySpace, timeout time.Duration) *RateLimiter {
	return &RateLimiter{client: client, keys: keys, timeout: timeout}
}

// TryAcquire records scope for window and returns true, or returns false if
// scope is already recorded. The check and the write are one SET NX command.
func (l *RateLimiter) TryAcquire(ctx context.Context, scope string, window time.Duration) (bool, error) {
	if window <= 0 {
		return false, oops.Code("RATE_LIMIT_WINDOW_INVALID").
			With("window", window.String()).
			Errorf("rate limit window must be positive")
	}
	ctx, cancel := withTimeout(ctx, l.timeout)
	defer cancel()

	key := l.keys.VerifyLimitKey(scope)
	acquired, err := l.client.SetNX(ctx, key, "", window).Result()
	if err != nil {
		return false, oops.Code("RATE_LIMIT_FAILED").
			With("key", key).
			Wrap(err)
	}
	return acquired, nil
}
