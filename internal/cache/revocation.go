package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/dormmanager/backend/internal/config"
)

// RevocationStore records revoked token ids until the token would have
// expired on its own.
type RevocationStore struct {
	client  redis.Cmdable
	keys    config.KeySpace
	timeout time.Duration
}

// NewRevocationStore builds a store over client.
func NewRevocationStore(client redis.Cmdable, keys config.KeySpace, timeout time.Duration) *RevocationStore {
	return &RevocationStore{client: client, keys: keys, timeout: timeout}
}

// MarkRevoked inserts a revocation entry for jti living for ttl. It reports
// false when the entry already existed or ttl leaves nothing to revoke.
func (s *RevocationStore) MarkRevoked(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, nil
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	key := s.keys.BlacklistKey(jti)
	inserted, err := s.client.SetNX(ctx, key, "", ttl).Result()
	if err != nil {
		return false, oops.Code("REVOCATION_WRITE_FAILED").
			With("key", key).
			With("ttl", ttl.String()).
			Wrap(err)
	}
	return inserted, nil
}

// IsRevoked reports whether jti has a live revocation entry.
func (s *RevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	key := s.keys.BlacklistKey(jti)
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, oops.Code("REVOCATION_READ_FAILED").
			With("key", key).
			Wrap(err)
	}
	return n > 0, nil
}
