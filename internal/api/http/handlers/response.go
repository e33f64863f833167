package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dormmanager/backend/internal/api/dto"
)

func ok(c *fiber.Ctx, data any) error {
	return c.JSON(dto.Success(data))
}
