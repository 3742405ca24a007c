package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/shrtnr/internal/app/apperror"
	"go.uber.org/zap"
)

const internalErrorMessage = "internal server error"

// statusFor maps an error to its HTTP status and the message safe to show.
func statusFor(err error) (int, string) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return fe.Code, fe.Message
		}
		return fiber.StatusInternalServerError, internalErrorMessage
	}

	switch appErr.Kind {
	case apperror.KindValidation, apperror.KindConflict:
		return fiber.StatusBadRequest, appErr.Message
	case apperror.KindNotFound:
		return fiber.StatusNotFound, appErr.Message
	case apperror.KindForbidden:
		return fiber.StatusForbidden, appErr.Message
	case apperror.KindUnavailable:
		return fiber.StatusInternalServerError, appErr.Message
	default:
		return fiber.StatusInternalServerError, internalErrorMessage
	}
}

// writeError renders err as {"error": msg}. Internal causes are logged, never sent.
func writeError(c *fiber.Ctx, logger *zap.Logger, err error) error {
	status, msg := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err))
		var appErr *apperror.Error
		if errors.As(err, &appErr) && appErr.Retryable() {
			c.Set(fiber.HeaderRetryAfter, "1")
		}
	}
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// ErrorHandler is the fiber.Config ErrorHandler: errors escaping handlers and
// middleware get the same redacted shape as handler-written errors.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *fiber.Ctx, err error) error {
		return writeError(c, logger, err)
	}
}
