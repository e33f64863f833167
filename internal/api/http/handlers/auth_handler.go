package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dormmanager/backend/internal/api/dto"
	"github.com/dormmanager/backend/internal/auth"
	"github.com/dormmanager/backend/internal/domain"
	"github.com/dormmanager/backend/internal/observability"
	"github.com/dormmanager/backend/internal/service"
	"github.com/dormmanager/backend/pkg/util"
)

// AuthHandler exposes the /api/auth endpoints.
type AuthHandler struct {
	verification *service.VerificationService
	registration *service.RegistrationService
	auth         *service.AuthService
	metrics      *observability.Metrics
}

// NewAuthHandler constructs handler.
func NewAuthHandler(verification *service.VerificationService, registration *service.RegistrationService, authService *service.AuthService, metrics *observability.Metrics) *AuthHandler {
	return &AuthHandler{
		verification: verification,
		registration: registration,
		auth:         authService,
		metrics:      metrics,
	}
}

// AskCode handles GET /api/auth/ask-code.
func (h *AuthHandler) AskCode(c *fiber.Ctx) error {
	var req dto.AskCodeRequest
	if err := bindQuery(c, &req); err != nil {
		return err
	}

	err := h.verification.RequestCode(c.UserContext(), domain.CodeKind(req.Type), req.Email, c.IP())
	h.record("ask_code", err)
	if err != nil {
		return err
	}
	return ok(c, nil)
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	_, err := h.registration.Register(c.UserContext(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Code:     req.Code,
	})
	h.record("register", err)
	if err != nil {
		return err
	}
	return ok(c, nil)
}

// ResetPassword handles POST /api/auth/reset-password.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	err := h.registration.ResetPassword(c.UserContext(), service.ResetInput{
		Email:    req.Email,
		Code:     req.Code,
		Password: req.Password,
	})
	h.record("reset_password", err)
	if err != nil {
		return err
	}
	return ok(c, nil)
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil || check(&req) != nil {
		err := util.NewUnauthorized(service.MsgBadCredentials)
		h.record("login", err)
		return err
	}

	result, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	h.record("login", err)
	if err != nil {
		return err
	}
	return ok(c, dto.LoginResponse{
		Username:   result.Username,
		Role:       result.Role,
		Token:      result.Token,
		ExpireTime: result.ExpireTime,
	})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	token, _ := auth.BearerToken(c.Get(fiber.HeaderAuthorization))

	err := h.auth.Logout(c.UserContext(), token)
	h.record("logout", err)
	if err != nil {
		return err
	}
	return ok(c, nil)
}

func (h *AuthHandler) record(event string, err error) {
	switch {
	case err == nil:
		h.metrics.RecordAuthEvent(event, observability.OutcomeSuccess)
	case util.ToDomainError(err).HTTPStatus >= 500:
		h.metrics.RecordAuthEvent(event, observability.OutcomeError)
	default:
		h.metrics.RecordAuthEvent(event, observability.OutcomeRejected)
	}
}
