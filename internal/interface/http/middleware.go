package http

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/mahdygh/bookclub/internal/infrastructure/metrics"
	"github.com/mahdygh/bookclub/pkg/logger"
)

// accessLog logs every request and records it in the request metrics. The
// request-scoped logger is stored in the user context for handlers.
func (s *Server) accessLog() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		requestID, _ := c.Locals("requestid").(string)

		reqLogger := s.logger.With(logger.RequestID(requestID))
		c.SetUserContext(logger.WithContext(c.UserContext(), reqLogger))

		err := c.Next()
		if err != nil {
			// Render now so the logged status is the one sent.
			if herr := s.handleError(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		duration := time.Since(start)

		// Route path keeps metric labels bounded.
		route := c.Route().Path
		metrics.HTTPRequest(c.Method(), route, status, duration)

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			logger.Latency(duration),
			zap.String("ip", c.IP()),
		}
		switch {
		case status >= fiber.StatusInternalServerError:
			reqLogger.Error("http request", fields...)
		case status >= fiber.StatusBadRequest:
			reqLogger.Warn("http request", fields...)
		default:
			reqLogger.Info("http request", fields...)
		}
		return nil
	}
}

// logPanic is the stack trace handler of the recover middleware.
func (s *Server) logPanic(c *fiber.Ctx, e interface{}) {
	s.logger.Error("panic recovered",
		zap.String("error", fmt.Sprint(e)),
		zap.String("path", c.Path()),
		zap.Any("request_id", c.Locals("requestid")),
		zap.ByteString("stack", debug.Stack()),
	)
}
