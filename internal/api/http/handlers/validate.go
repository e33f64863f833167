package handlers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/dormmanager/backend/pkg/util"
)

const msgInvalidParams = "invalid request parameters"

var validate = validator.New(validator.WithRequiredStructEnabled())

// bindBody parses a JSON or form body into dst and validates it.
func bindBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return util.NewValidationError(msgInvalidParams, nil)
	}
	return check(dst)
}

// bindQuery parses query parameters into dst and validates it.
func bindQuery(c *fiber.Ctx, dst any) error {
	if err := c.QueryParser(dst); err != nil {
		return util.NewValidationError(msgInvalidParams, nil)
	}
	return check(dst)
}

func check(dst any) error {
	err := validate.Struct(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return util.NewInternalError(err)
	}
	fields := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return util.NewValidationError(msgInvalidParams, fields)
}
