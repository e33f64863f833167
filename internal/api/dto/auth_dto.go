package dto

import "time"

// AskCodeRequest query for GET /api/auth/ask-code.
type AskCodeRequest struct {
	Email string `query:"email" validate:"required,email"`
	Type  string `query:"type" validate:"required,oneof=register reset"`
}

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Username string `json:"username" form:"username" validate:"required,min=1,max=32"`
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required,min=6,max=64"`
	Code     string `json:"code" form:"code" validate:"required,len=6,numeric"`
}

// LoginRequest payload for login. Username may also be an email.
type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// ResetPasswordRequest payload for POST /api/auth/reset-password.
type ResetPasswordRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Code     string `json:"code" form:"code" validate:"required,len=6,numeric"`
	Password string `json:"password" form:"password" validate:"required,min=6,max=64"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Username   string    `json:"username"`
	Role       string    `json:"role"`
	Token      string    `json:"token"`
	ExpireTime time.Time `json:"expireTime"`
}

// AccountResponse is the administrator view of an account. The password
// hash is never exposed.
type AccountResponse struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	RegisteredAt time.Time `json:"registerTime"`
}

// IdentityResponse describes the authenticated caller.
type IdentityResponse struct {
	ID          int64    `json:"id"`
	Username    string   `json:"username"`
	Authorities []string `json:"authorities"`
}
