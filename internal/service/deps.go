package service

import (
	"context"
	"time"

	"github.com/dormmanager/backend/internal/auth"
)

// RateLimiter admits one action per scope and window across all instances.
type RateLimiter interface {
	TryAcquire(ctx context.Context, scope string, window time.Duration) (bool, error)
}

// CodeStore keeps the live verification code per recipient.
type CodeStore interface {
	Put(ctx context.Context, email, code string, ttl time.Duration) error
	Get(ctx context.Context, email string) (string, bool, error)
	Delete(ctx context.Context, email string) error
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hashed, plain string) error
}

// Tokens issues and revokes session tokens.
type Tokens interface {
	Issue(subjectID int64, subjectName string, authorities []string) (*auth.IssuedToken, error)
	Revoke(ctx context.Context, token string) (bool, error)
}
