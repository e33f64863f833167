package service

import (
	"context"
	"errors"

	"github.com/dormmanager/backend/internal/domain"
	"github.com/dormmanager/backend/internal/repository"
	"github.com/dormmanager/backend/pkg/util"
)

// AccountService exposes account records to administrators.
type AccountService struct {
	accounts repository.AccountRepository
}

// NewAccountService constructs the service.
func NewAccountService(accounts repository.AccountRepository) *AccountService {
	return &AccountService{accounts: accounts}
}

// Find returns the account whose username or email equals login.
func (s *AccountService) Find(ctx context.Context, login string) (*domain.Account, error) {
	account, err := s.accounts.FindByUsernameOrEmail(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, util.NewNotFound("account", map[string]any{"login": login})
		}
		return nil, util.NewInternalError(err)
	}
	return account, nil
}
