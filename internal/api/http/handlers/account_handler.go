package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/dormmanager/backend/internal/api/dto"
	"github.com/dormmanager/backend/internal/auth"
	"github.com/dormmanager/backend/internal/service"
	"github.com/dormmanager/backend/pkg/util"
)

// AccountHandler serves the caller's own identity and the admin account
// lookup.
type AccountHandler struct {
	accounts *service.AccountService
}

// NewAccountHandler constructs handler.
func NewAccountHandler(accounts *service.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// Me handles GET /api/account/me.
func (h *AccountHandler) Me(c *fiber.Ctx) error {
	identity, found := auth.IdentityFromContext(c)
	if !found {
		return util.NewUnauthorized("unauthorized")
	}
	authorities := identity.Authorities
	if authorities == nil {
		authorities = []string{}
	}
	return ok(c, dto.IdentityResponse{
		ID:          identity.ID,
		Username:    identity.Name,
		Authorities: authorities,
	})
}

// Lookup handles GET /api/admin/accounts/:login.
func (h *AccountHandler) Lookup(c *fiber.Ctx) error {
	login := strings.TrimSpace(c.Params("login"))
	if login == "" {
		return util.NewValidationError("invalid request parameters", nil)
	}
	account, err := h.accounts.Find(c.UserContext(), login)
	if err != nil {
		return err
	}
	return ok(c, dto.AccountResponse{
		ID:           account.ID,
		Username:     account.Username,
		Email:        account.Email,
		Role:         account.Role,
		RegisteredAt: account.RegisteredAt,
	})
}
