package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/dormmanager/backend/internal/cache"
	"github.com/dormmanager/backend/internal/config"
	"github.com/dormmanager/backend/internal/domain"
	"github.com/dormmanager/backend/internal/notification"
	"github.com/dormmanager/backend/internal/repository"
)

type fixture struct {
	mr       *miniredis.Miniredis
	client   *redis.Client
	keys     config.KeySpace
	limiter  *cache.RateLimiter
	codes    *cache.CodeStore
	revoked  *cache.RevocationStore
	outbox   *outbox
	accounts *memoryAccounts
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	keys := config.DefaultKeySpace("")
	return &fixture{
		mr:       mr,
		client:   client,
		keys:     keys,
		limiter:  cache.NewRateLimiter(client, keys, time.Second),
		codes:    cache.NewCodeStore(client, keys, time.Second),
		revoked:  cache.NewRevocationStore(client, keys, time.Second),
		outbox:   &outbox{},
		accounts: newMemoryAccounts(),
	}
}

func verificationConfig() config.VerificationConfig {
	return config.VerificationConfig{CodeTTLSeconds: 180, LimitWindowSeconds: 60}
}

// outbox records dispatched messages.
type outbox struct {
	mu   sync.Mutex
	msgs []notification.Message
	err  error
}

func (o *outbox) Dispatch(_ context.Context, msg notification.Message) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return "", o.err
	}
	o.msgs = append(o.msgs, msg)
	return "msg-id", nil
}

func (o *outbox) last(t *testing.T) notification.Message {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.msgs)
	return o.msgs[len(o.msgs)-1]
}

func (o *outbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.msgs)
}

// memoryAccounts is an in-memory AccountRepository with unique username and
// email.
type memoryAccounts struct {
	mu        sync.Mutex
	nextID    int64
	byID      map[int64]*domain.Account
	insertErr error
	existsErr error
}

func newMemoryAccounts() *memoryAccounts {
	return &memoryAccounts{byID: map[int64]*domain.Account{}}
}

func (m *memoryAccounts) Exists(_ context.Context, field domain.AccountField, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.existsErr != nil {
		return false, m.existsErr
	}
	for _, a := range m.byID {
		if (field == domain.AccountFieldEmail && a.Email == value) ||
			(field == domain.AccountFieldUsername && a.Username == value) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryAccounts) Insert(_ context.Context, account *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	for _, a := range m.byID {
		if a.Email == account.Email {
			return repository.ErrDuplicateEmail
		}
		if a.Username == account.Username {
			return repository.ErrDuplicateUsername
		}
	}
	m.nextID++
	account.ID = m.nextID
	account.RegisteredAt = time.Now()
	stored := *account
	m.byID[account.ID] = &stored
	return nil
}

func (m *memoryAccounts) FindByUsernameOrEmail(_ context.Context, login string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.Username == login || a.Email == login {
			found := *a
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryAccounts) UpdatePassword(_ context.Context, email, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.Email == email {
			a.PasswordHash = passwordHash
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memoryAccounts) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

func (m *memoryAccounts) add(account domain.Account) {
	_ = m.Insert(context.Background(), &account)
}
