package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dormmanager/backend/internal/domain"
	"github.com/dormmanager/backend/internal/service"
	"github.com/dormmanager/backend/pkg/util"
)

type failingLookup struct {
	*memoryAccounts
}

func (failingLookup) FindByUsernameOrEmail(context.Context, string) (*domain.Account, error) {
	return nil, errors.New("db down")
}

func TestAccountService_Find(t *testing.T) {
	ctx := context.Background()
	accounts := newMemoryAccounts()
	accounts.add(domain.Account{Username: "alice", Email: "a@x.com", PasswordHash: "h", Role: domain.RoleUser})
	svc := service.NewAccountService(accounts)

	t.Run("by username or email", func(t *testing.T) {
		for _, login := range []string{"alice", "a@x.com"} {
			account, err := svc.Find(ctx, login)
			require.NoError(t, err)
			assert.Equal(t, "alice", account.Username)
		}
	})

	t.Run("unknown login is not found", func(t *testing.T) {
		_, err := svc.Find(ctx, "ghost")
		util.AssertDomainCode(t, err, util.CodeNotFound)
	})

	t.Run("lookup failure is internal", func(t *testing.T) {
		_, err := service.NewAccountService(failingLookup{accounts}).Find(ctx, "alice")
		util.AssertDomainCode(t, err, util.CodeInternal)
	})
}
