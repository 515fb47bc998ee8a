package http

import (
	"context"
	"errors"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/rental-session/internal/observability"
	apperrors "github.com/spec-kit/rental-session/pkg/util"
)

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(observability.RequestLogger(logger, metrics))
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

// errorHandlingMiddleware renders every failure as {message, errors}.
func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				apiErr := toAPIError(err)
				metrics.RecordError(c.Path(), c.Method(), strconv.Itoa(apiErr.Status))
				if apiErr.Status >= 500 {
					logger.Error("request failed", zap.Error(apiErr))
				}
				errs := apiErr.Errors
				if errs == nil {
					errs = []string{}
				}
				c.Status(apiErr.Status)
				_ = c.JSON(fiber.Map{"message": apiErr.Message, "errors": errs})
				err = nil
			}
		}()
		return c.Next()
	}
}

func toAPIError(err error) *apperrors.APIError {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return apperrors.NewServerError(fiberErr.Code, fiberErr.Message, nil)
	}
	apiErr := apperrors.ToAPIError(err)
	if apiErr.Status == 0 {
		return apperrors.NewInternalError(err)
	}
	return apiErr
}
