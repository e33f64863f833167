// Package cache holds the "key exists within TTL" primitives kept in the
// shared Redis: token revocations, the verification rate limit and the
// pending verification codes.
package cache

import (
	"context"
	"time"
)

// withTimeout bounds a single cache round trip. A zero timeout leaves ctx as is.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
