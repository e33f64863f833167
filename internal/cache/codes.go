package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/dormmanager/backend/internal/config"
)

// CodeStore keeps at most one pending verification code per email.
type CodeStore struct {
	client  redis.Cmdable
	keys    config.KeySpace
	timeout time.Duration
}

// NewCodeStore builds a store over client.
func NewCodeStore(client redis.Cmdable, keys config.KeySpace, timeout time.Duration) *CodeStore {
	return &CodeStore{client: client, keys: keys, timeout: timeout}
}

// Put stores code for email, replacing any earlier code.
func (s *CodeStore) Put(ctx context.Context, email, code string, ttl time.Duration) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	key := s.keys.VerifyDataKey(email)
	if err := s.client.Set(ctx, key, code, ttl).Err(); err != nil {
		return oops.Code("CODE_WRITE_FAILED").
			With("key", key).
			Wrap(err)
	}
	return nil
}

// Get returns the pending code for email. ok is false when none is live.
func (s *CodeStore) Get(ctx context.Context, email string) (code string, ok bool, err error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	key := s.keys.VerifyDataKey(email)
	code, err = s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, oops.Code("CODE_READ_FAILED").
			With("key", key).
			Wrap(err)
	}
	return code, true, nil
}

// Delete removes the pending code for email.
func (s *CodeStore) Delete(ctx context.Context, email string) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	key := s.keys.VerifyDataKey(email)
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return oops.Code("CODE_DELETE_FAILED").
			With("key", key).
			Wrap(err)
	}
	return nil
}
