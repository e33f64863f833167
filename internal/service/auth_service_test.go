package service_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dormmanager/backend/internal/auth"
	"github.com/dormmanager/backend/internal/domain"
	"github.com/dormmanager/backend/internal/service"
	"github.com/dormmanager/backend/pkg/util"
)

func newAuth(t *testing.T, f *fixture) (*service.AuthService, *auth.TokenManager) {
	t.Helper()
	tokens, err := auth.NewTokenManager("test-secret", time.Hour, f.revoked)
	require.NoError(t, err)
	svc := service.NewAuthService(service.AuthDependencies{
		Accounts: f.accounts,
		Hasher:   auth.NewBcryptHasher(4),
		Tokens:   tokens,
	}, nil)
	return svc, tokens
}

func seedAdmin(t *testing.T, f *fixture) {
	t.Helper()
	hash, err := auth.NewBcryptHasher(4).Hash("secret1")
	require.NoError(t, err)
	f.accounts.add(domain.Account{Username: "root", Email: "root@x.com", PasswordHash: hash, Role: domain.RoleAdmin})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	for _, login := range []string{"root", "root@x.com"} {
		t.Run("by "+login, func(t *testing.T) {
			f := newFixture(t)
			seedAdmin(t, f)
			svc, tokens := newAuth(t, f)

			result, err := svc.Login(ctx, login, "secret1")
			require.NoError(t, err)
			assert.Equal(t, "root", result.Username)
			assert.Equal(t, domain.RoleAdmin, result.Role)
			assert.WithinDuration(t, time.Now().Add(time.Hour), result.ExpireTime, 2*time.Second)

			identity, err := tokens.Verify(ctx, result.Token)
			require.NoError(t, err)
			assert.Equal(t, "root", identity.Name)
			assert.Equal(t, []string{"ROLE_admin"}, identity.Authorities)
		})
	}

	t.Run("wrong password", func(t *testing.T) {
		f := newFixture(t)
		seedAdmin(t, f)
		svc, _ := newAuth(t, f)

		_, err := svc.Login(ctx, "root", "nope")
		de := util.ToDomainError(err)
		assert.Equal(t, http.StatusUnauthorized, de.HTTPStatus)
		assert.Equal(t, service.MsgBadCredentials, de.Message)
	})

	t.Run("unknown account gets the same answer", func(t *testing.T) {
		f := newFixture(t)
		svc, _ := newAuth(t, f)

		_, err := svc.Login(ctx, "ghost", "secret1")
		de := util.ToDomainError(err)
		assert.Equal(t, http.StatusUnauthorized, de.HTTPStatus)
		assert.Equal(t, service.MsgBadCredentials, de.Message)
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("revokes the token once", func(t *testing.T) {
		f := newFixture(t)
		seedAdmin(t, f)
		svc, tokens := newAuth(t, f)

		result, err := svc.Login(ctx, "root", "secret1")
		require.NoError(t, err)

		require.NoError(t, svc.Logout(ctx, result.Token))
		_, err = tokens.Verify(ctx, result.Token)
		assert.ErrorIs(t, err, auth.ErrTokenRevoked)

		err = svc.Logout(ctx, result.Token)
		util.AssertDomainCode(t, err, util.CodeTokenInvalid)
		assert.Equal(t, service.MsgLogoutFailed, util.ToDomainError(err).Message)
		assert.ErrorIs(t, err, auth.ErrTokenRevoked)
	})

	t.Run("garbage token", func(t *testing.T) {
		f := newFixture(t)
		svc, _ := newAuth(t, f)

		err := svc.Logout(ctx, "garbage")
		util.AssertDomainCode(t, err, util.CodeTokenInvalid)
		assert.ErrorIs(t, err, auth.ErrTokenMalformed)
		assert.Empty(t, f.mr.Keys())
	})

	t.Run("store failure is internal", func(t *testing.T) {
		f := newFixture(t)
		svc := service.NewAuthService(service.AuthDependencies{
			Accounts: f.accounts,
			Hasher:   auth.NewBcryptHasher(4),
			Tokens:   failingTokens{err: errors.New("redis down")},
		}, nil)

		util.AssertDomainCode(t, svc.Logout(ctx, "tok"), util.CodeInternal)
	})
}

type failingTokens struct {
	err error
}

func (f failingTokens) Issue(int64, string, []string) (*auth.IssuedToken, error) {
	return nil, f.err
}

func (f failingTokens) Revoke(context.Context, string) (bool, error) {
	return false, f.err
}
