package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const identityKey = "auth_identity"

// Verifier validates a raw bearer token.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// Gateway attaches the caller identity to every request that carries a
// valid bearer token. It never rejects; guards further down decide.
type Gateway struct {
	verifier Verifier
	logger   *zap.Logger
}

// NewGateway constructs the middleware.
func NewGateway(verifier Verifier, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{verifier: verifier, logger: logger}
}

// Handle runs for every request.
func (g *Gateway) Handle(c *fiber.Ctx) error {
	token, ok := BearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return c.Next()
	}

	identity, err := g.verifier.Verify(c.UserContext(), token)
	if err != nil {
		if !errors.Is(err, ErrTokenInvalid) {
			// revocation lookup failed; the request continues unauthenticated
			g.logger.Warn("token verification unavailable", zap.Error(err))
		}
		return c.Next()
	}

	c.Locals(identityKey, identity)
	return c.Next()
}

// BearerToken extracts the credential from an Authorization header value.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

// IdentityFromContext retrieves the authenticated caller.
func IdentityFromContext(c *fiber.Ctx) (*Identity, bool) {
	val := c.Locals(identityKey)
	if val == nil {
		return nil, false
	}
	identity, ok := val.(*Identity)
	return identity, ok
}
