package http

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/dormmanager/backend/internal/api/dto"
	"github.com/dormmanager/backend/internal/observability"
	"github.com/dormmanager/backend/pkg/util"
)

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	app.Use(observability.RequestLogger(logger, metrics))
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(errorHandlingMiddleware(logger, metrics))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// errorHandlingMiddleware renders every error, including recovered panics,
// as an envelope whose code equals the HTTP status.
func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = util.NewInternalError(nil)
			}
			if err != nil {
				domainErr := toDomainError(err)
				metrics.RecordError(c.Route().Path, c.Method(), domainErr.Code)
				if domainErr.HTTPStatus >= 500 {
					util.LogError(logger, "request failed", err)
				}
				err = c.Status(domainErr.HTTPStatus).JSON(dto.Failure(domainErr.HTTPStatus, domainErr.Message))
			}
		}()
		return c.Next()
	}
}

// ErrorHandler handles errors raised outside the middleware chain, such as
// unmatched routes.
func ErrorHandler(c *fiber.Ctx, err error) error {
	domainErr := toDomainError(err)
	return c.Status(domainErr.HTTPStatus).JSON(dto.Failure(domainErr.HTTPStatus, domainErr.Message))
}

func toDomainError(err error) *util.DomainError {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := util.CodeInternal
		switch {
		case fe.Code == fiber.StatusNotFound:
			code = util.CodeNotFound
		case fe.Code < 500:
			code = util.CodeValidationFailed
		}
		return &util.DomainError{Code: code, Message: fe.Message, HTTPStatus: fe.Code, Err: err}
	}
	return util.ToDomainError(err)
}
