package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token verification failures. Every one of them matches ErrTokenInvalid.
var (
	ErrTokenInvalid   = errors.New("token invalid")
	ErrTokenMalformed = fmt.Errorf("%w: malformed or badly signed", ErrTokenInvalid)
	ErrTokenExpired   = fmt.Errorf("%w: expired", ErrTokenInvalid)
	ErrTokenRevoked   = fmt.Errorf("%w: revoked", ErrTokenInvalid)
)

// Revocations is the shared negative cache of token ids.
type Revocations interface {
	MarkRevoked(ctx context.Context, jti string, ttl time.Duration) (bool, error)
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Identity is the caller reconstructed from a verified token.
type Identity struct {
	ID          int64
	Name        string
	Authorities []string
	TokenID     string
	ExpiresAt   time.Time
}

// HasAuthority reports whether the identity carries authority.
func (i *Identity) HasAuthority(authority string) bool {
	for _, a := range i.Authorities {
		if a == authority {
			return true
		}
	}
	return false
}

// IssuedToken is a freshly signed token and its validity window.
type IssuedToken struct {
	Token     string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Claims describes JWT payload.
type Claims struct {
	AccountID   int64    `json:"id"`
	Name        string   `json:"name"`
	Authorities []string `json:"authorities"`
	jwt.RegisteredClaims
}

// TokenManager issues, verifies and revokes HS256 session tokens.
type TokenManager struct {
	secret      []byte
	ttl         time.Duration
	revocations Revocations
	now         func() time.Time
}

// TokenOption customizes a TokenManager.
type TokenOption func(*TokenManager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) TokenOption {
	return func(tm *TokenManager) {
		tm.now = now
	}
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttl time.Duration, revocations Revocations, opts ...TokenOption) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	if revocations == nil {
		return nil, errors.New("revocation store is required")
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	tm := &TokenManager{
		secret:      []byte(secret),
		ttl:         ttl,
		revocations: revocations,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(tm)
	}
	return tm, nil
}

// TTL returns the validity period of issued tokens.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// Issue signs a token for the subject. Nothing is stored.
func (tm *TokenManager) Issue(subjectID int64, subjectName string, authorities []string) (*IssuedToken, error) {
	issuedAt := tm.now()
	expiresAt := issuedAt.Add(tm.ttl)
	if authorities == nil {
		authorities = []string{}
	}
	claims := &Claims{
		AccountID:   subjectID,
		Name:        subjectName,
		Authorities: authorities,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return nil, err
	}
	return &IssuedToken{
		Token:     tokenString,
		ID:        claims.ID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Verify checks signature, expiry and revocation. Token problems match
// ErrTokenInvalid; any other error comes from the revocation store.
func (tm *TokenManager) Verify(ctx context.Context, tokenStr string) (*Identity, error) {
	claims, err := tm.parse(tokenStr)
	if err != nil {
		return nil, err
	}

	revoked, err := tm.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	return &Identity{
		ID:          claims.AccountID,
		Name:        claims.Name,
		Authorities: claims.Authorities,
		TokenID:     claims.ID,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}

// Revoke blacklists a well-formed, unexpired token for the rest of its
// lifetime. It returns ErrTokenRevoked when the token was already revoked,
// so callers can tell a repeated logout from a garbage token.
func (tm *TokenManager) Revoke(ctx context.Context, tokenStr string) (bool, error) {
	claims, err := tm.parse(tokenStr)
	if err != nil {
		return false, err
	}

	remaining := claims.ExpiresAt.Time.Sub(tm.now())
	if remaining <= 0 {
		return false, ErrTokenExpired
	}

	inserted, err := tm.revocations.MarkRevoked(ctx, claims.ID, remaining)
	if err != nil {
		return false, err
	}
	if !inserted {
		return false, ErrTokenRevoked
	}
	return true, nil
}

func (tm *TokenManager) parse(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, ErrTokenMalformed
	}
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.ID == "" {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}
