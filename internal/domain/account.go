package domain

import "time"

// Account roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// AuthorityPrefix marks role names inside token authorities.
const AuthorityPrefix = "ROLE_"

// Authority is the token authority granted by role.
func Authority(role string) string {
	return AuthorityPrefix + role
}

// Account is a registered login. Persistence is owned by the repository layer.
type Account struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Role         string
	RegisteredAt time.Time
}

// Authorities returns the authority list embedded in issued tokens.
func (a *Account) Authorities() []string {
	return []string{Authority(a.Role)}
}

// AccountField names a uniquely indexed account column.
type AccountField string

const (
	AccountFieldEmail    AccountField = "email"
	AccountFieldUsername AccountField = "username"
)
