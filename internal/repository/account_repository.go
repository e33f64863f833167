package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/dormmanager/backend/internal/domain"
)

var (
	// ErrNotFound is returned when no account matches.
	ErrNotFound = errors.New("account not found")
	// ErrDuplicateAccount is returned when an insert hits a unique index.
	ErrDuplicateAccount = errors.New("account already exists")
	// ErrDuplicateEmail and ErrDuplicateUsername name the index that was hit.
	// Both match ErrDuplicateAccount.
	ErrDuplicateEmail    = fmt.Errorf("%w: email", ErrDuplicateAccount)
	ErrDuplicateUsername = fmt.Errorf("%w: username", ErrDuplicateAccount)
)

// Unique indexes created by migrations/0001_accounts.sql.
const (
	constraintEmail    = "accounts_email_key"
	constraintUsername = "accounts_username_key"
)

// DB is the subset of pgxpool.Pool used by repositories.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AccountRepository defines persistence access for accounts.
type AccountRepository interface {
	Exists(ctx context.Context, field domain.AccountField, value string) (bool, error)
	Insert(ctx context.Context, account *domain.Account) error
	FindByUsernameOrEmail(ctx context.Context, login string) (*domain.Account, error)
	UpdatePassword(ctx context.Context, email, passwordHash string) error
}

type accountRepository struct {
	db DB
}

// NewAccountRepository returns a Postgres-backed implementation.
func NewAccountRepository(db DB) AccountRepository {
	return &accountRepository{db: db}
}

var existsQueries = map[domain.AccountField]string{
	domain.AccountFieldEmail:    `SELECT EXISTS(SELECT 1 FROM accounts WHERE email=$1)`,
	domain.AccountFieldUsername: `SELECT EXISTS(SELECT 1 FROM accounts WHERE username=$1)`,
}

func (r *accountRepository) Exists(ctx context.Context, field domain.AccountField, value string) (bool, error) {
	query, ok := existsQueries[field]
	if !ok {
		return false, oops.Code("ACCOUNT_FIELD_UNKNOWN").Errorf("unknown account field %q", field)
	}

	var exists bool
	if err := r.db.QueryRow(ctx, query, value).Scan(&exists); err != nil {
		return false, oops.Code("ACCOUNT_EXISTS_FAILED").With("field", string(field)).Wrap(err)
	}
	return exists, nil
}

func (r *accountRepository) Insert(ctx context.Context, account *domain.Account) error {
	const query = `
        INSERT INTO accounts (username, email, password_hash, role)
        VALUES ($1, $2, $3, $4)
        RETURNING id, registered_at`

	if account.Role == "" {
		account.Role = domain.RoleUser
	}
	err := r.db.QueryRow(ctx, query,
		account.Username,
		account.Email,
		account.PasswordHash,
		account.Role,
	).Scan(&account.ID, &account.RegisteredAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return duplicateError(pgErr.ConstraintName)
		}
		return oops.Code("ACCOUNT_INSERT_FAILED").Wrap(err)
	}
	return nil
}

func duplicateError(constraint string) error {
	switch constraint {
	case constraintEmail:
		return ErrDuplicateEmail
	case constraintUsername:
		return ErrDuplicateUsername
	default:
		return fmt.Errorf("%w: %s", ErrDuplicateAccount, constraint)
	}
}

func (r *accountRepository) FindByUsernameOrEmail(ctx context.Context, login string) (*domain.Account, error) {
	const query = `
        SELECT id, username, email, password_hash, role, registered_at
        FROM accounts WHERE username=$1 OR email=$1
        ORDER BY (username=$1) DESC
        LIMIT 1`

	var account domain.Account
	if err := r.db.QueryRow(ctx, query, login).Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.PasswordHash,
		&account.Role,
		&account.RegisteredAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, oops.Code("ACCOUNT_LOOKUP_FAILED").Wrap(err)
	}
	return &account, nil
}

func (r *accountRepository) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	const query = `UPDATE accounts SET password_hash=$1 WHERE email=$2`

	cmd, err := r.db.Exec(ctx, query, passwordHash, email)
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").Wrap(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
