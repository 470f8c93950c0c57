package http

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/mahdygh/bookclub/internal/domain/shared"
	"github.com/mahdygh/bookclub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE ENVELOPE
// ══════════════════════════════════════════════════════════════════════════════

// Envelope is the body of every JSON response.
type Envelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

const (
	statusSuccess = "success"
	statusError   = "error"
)

func success(c *fiber.Ctx, code int, message string, data interface{}) error {
	return c.Status(code).JSON(Envelope{Status: statusSuccess, Message: message, Data: data})
}

func ok(c *fiber.Ctx, data interface{}) error {
	return success(c, fiber.StatusOK, "", data)
}

func created(c *fiber.Ctx, message string, data interface{}) error {
	return success(c, fiber.StatusCreated, message, data)
}

func failure(c *fiber.Ctx, code int, message string, details interface{}) error {
	return c.Status(code).JSON(Envelope{Status: statusError, Message: message, Errors: details})
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// handleError renders every error returned by a handler.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var (
		fe *fiber.Error
		ve validator.ValidationErrors
	)
	switch {
	case errors.As(err, &ve):
		fields := make(map[string]string, len(ve))
		for _, f := range ve {
			fields[f.Field()] = f.Tag()
		}
		return failure(c, fiber.StatusUnprocessableEntity, "validation failed", fields)
	case errors.As(err, &fe):
		return failure(c, fe.Code, fe.Message, nil)
	case shared.IsNotFound(err):
		return failure(c, fiber.StatusNotFound, domainMessage(err), nil)
	case shared.IsAlreadyExists(err), shared.IsInvalidState(err):
		return failure(c, fiber.StatusConflict, domainMessage(err), nil)
	case shared.IsValidation(err):
		return failure(c, fiber.StatusUnprocessableEntity, domainMessage(err), nil)
	}

	logger.FromContext(c.UserContext(), s.logger).Error("request failed",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return failure(c, fiber.StatusInternalServerError, "internal server error", nil)
}

// domainMessage returns the message of the first domain error in the chain.
func domainMessage(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}
