package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dormmanager/backend/pkg/util"
)

// RequireAuthenticated rejects anonymous callers.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := IdentityFromContext(c); !ok {
			return util.NewUnauthorized("unauthorized")
		}
		return c.Next()
	}
}

// RequireAuthority ensures the caller holds at least one of the authorities.
func RequireAuthority(allowed ...string) fiber.Handler {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, authority := range allowed {
		allowedSet[authority] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return util.NewUnauthorized("unauthorized")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		for _, authority := range identity.Authorities {
			if _, exists := allowedSet[authority]; exists {
				return c.Next()
			}
		}
		return util.NewForbidden("forbidden")
	}
}
