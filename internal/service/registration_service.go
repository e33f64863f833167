package service

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/dormmanager/backend/internal/domain"
	"github.com/dormmanager/backend/internal/repository"
	"github.com/dormmanager/backend/pkg/util"
)

// Rejection messages returned to clients.
const (
	MsgCodeNotRequested = "please request a verification code first"
	MsgCodeMismatch     = "verification code is incorrect, please try again"
	MsgEmailTaken       = "this email is already registered, please use another email"
	MsgUsernameTaken    = "this username is already taken, please choose another"
	MsgEmailUnknown     = "no account is registered with this email"
)

// RegistrationDependencies lists collaborators of RegistrationService.
type RegistrationDependencies struct {
	Codes    CodeStore
	Accounts repository.AccountRepository
	Hasher   PasswordHasher
}

// RegistrationService creates accounts and resets passwords against a
// previously requested verification code.
type RegistrationService struct {
	codes    CodeStore
	accounts repository.AccountRepository
	hasher   PasswordHasher
	logger   *zap.Logger
}

// NewRegistrationService builds the service.
func NewRegistrationService(deps RegistrationDependencies, logger *zap.Logger) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{
		codes:    deps.Codes,
		accounts: deps.Accounts,
		hasher:   deps.Hasher,
		logger:   logger,
	}
}

// RegisterInput carries a registration request.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Code     string
}

// Register creates a user account. Each check short-circuits; the code is
// consumed only once the account is persisted.
func (s *RegistrationService) Register(ctx context.Context, in RegisterInput) (*domain.Account, error) {
	if err := s.checkCode(ctx, in.Email, in.Code); err != nil {
		return nil, err
	}

	if err := s.ensureFree(ctx, domain.AccountFieldEmail, in.Email, MsgEmailTaken); err != nil {
		return nil, err
	}
	if err := s.ensureFree(ctx, domain.AccountFieldUsername, in.Username, MsgUsernameTaken); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, util.NewInternalError(err)
	}

	account := &domain.Account{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
	}
	if err := s.accounts.Insert(ctx, account); err != nil {
		// lost a race with a concurrent registration
		switch {
		case errors.Is(err, repository.ErrDuplicateUsername):
			return nil, util.NewConflict(MsgUsernameTaken, nil)
		case errors.Is(err, repository.ErrDuplicateAccount):
			return nil, util.NewConflict(MsgEmailTaken, nil)
		}
		return nil, util.NewInternalError(err)
	}

	s.consumeCode(ctx, in.Email)
	s.logger.Info("account registered", zap.Int64("account_id", account.ID))
	return account, nil
}

// ResetInput carries a password reset request.
type ResetInput struct {
	Email    string
	Code     string
	Password string
}

// ResetPassword replaces the password of the account owning email.
func (s *RegistrationService) ResetPassword(ctx context.Context, in ResetInput) error {
	if err := s.checkCode(ctx, in.Email, in.Code); err != nil {
		return err
	}

	exists, err := s.accounts.Exists(ctx, domain.AccountFieldEmail, in.Email)
	if err != nil {
		return util.NewInternalError(err)
	}
	if !exists {
		return util.NewDomainError(util.CodeNotFound, MsgEmailUnknown, http.StatusBadRequest, nil)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return util.NewInternalError(err)
	}
	if err := s.accounts.UpdatePassword(ctx, in.Email, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return util.NewDomainError(util.CodeNotFound, MsgEmailUnknown, http.StatusBadRequest, nil)
		}
		return util.NewInternalError(err)
	}

	s.consumeCode(ctx, in.Email)
	s.logger.Debug("password reset", zap.String("email", in.Email))
	return nil
}

func (s *RegistrationService) checkCode(ctx context.Context, email, submitted string) error {
	stored, ok, err := s.codes.Get(ctx, email)
	if err != nil {
		return util.NewInternalError(err)
	}
	if !ok {
		return util.NewCodeNotRequested(MsgCodeNotRequested)
	}
	if stored != submitted {
		return util.NewCodeMismatch(MsgCodeMismatch)
	}
	return nil
}

func (s *RegistrationService) ensureFree(ctx context.Context, field domain.AccountField, value, msg string) error {
	taken, err := s.accounts.Exists(ctx, field, value)
	if err != nil {
		return util.NewInternalError(err)
	}
	if taken {
		return util.NewConflict(msg, map[string]any{"field": string(field)})
	}
	return nil
}

// consumeCode deletes the code after a successful write. A failed delete
// leaves the entry to expire on its own.
func (s *RegistrationService) consumeCode(ctx context.Context, email string) {
	if err := s.codes.Delete(ctx, email); err != nil {
		util.LogError(s.logger, "verification code delete failed", err)
	}
}
