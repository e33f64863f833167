package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dormmanager/backend/internal/auth"
	"github.com/dormmanager/backend/internal/repository"
	"github.com/dormmanager/backend/pkg/util"
)

// Login and logout failure messages.
const (
	MsgBadCredentials = "invalid username or password"
	MsgLogoutFailed   = "logout failed"
)

// AuthDependencies lists collaborators of AuthService.
type AuthDependencies struct {
	Accounts repository.AccountRepository
	Hasher   PasswordHasher
	Tokens   Tokens
}

// AuthService coordinates login and logout flows.
type AuthService struct {
	accounts repository.AccountRepository
	hasher   PasswordHasher
	tokens   Tokens
	logger   *zap.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		accounts: deps.Accounts,
		hasher:   deps.Hasher,
		tokens:   deps.Tokens,
		logger:   logger,
	}
}

// LoginResult is returned to a successfully authenticated client.
type LoginResult struct {
	Username   string
	Role       string
	Token      string
	ExpireTime time.Time
}

// Login authenticates by username or email. The role embedded in the token
// always comes from the stored account.
func (s *AuthService) Login(ctx context.Context, login, password string) (*LoginResult, error) {
	account, err := s.accounts.FindByUsernameOrEmail(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// keep timing close to a real password check
			_ = s.hasher.Verify(s.dummy(), password)
			return nil, util.NewUnauthorized(MsgBadCredentials)
		}
		return nil, util.NewInternalError(err)
	}

	if err := s.hasher.Verify(account.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			util.LogError(s.logger, "password verification failed", err)
		}
		return nil, util.NewUnauthorized(MsgBadCredentials)
	}

	issued, err := s.tokens.Issue(account.ID, account.Username, account.Authorities())
	if err != nil {
		return nil, util.NewInternalError(err)
	}

	s.logger.Info("account logged in", zap.Int64("account_id", account.ID), zap.String("token_id", issued.ID))
	return &LoginResult{
		Username:   account.Username,
		Role:       account.Role,
		Token:      issued.Token,
		ExpireTime: issued.ExpiresAt,
	}, nil
}

// Logout revokes token. Expired, malformed and already revoked tokens are
// rejected with the same client message.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	_, err := s.tokens.Revoke(ctx, token)
	if err == nil {
		return nil
	}
	if errors.Is(err, auth.ErrTokenInvalid) {
		s.logger.Debug("logout rejected", zap.Error(err))
		return util.NewTokenInvalid(MsgLogoutFailed, err)
	}
	return util.NewInternalError(err)
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("dormmanager-placeholder")
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}
