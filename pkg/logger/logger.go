// Package logger builds the structured zap logger used across bookclub and
// carries the domain field helpers and context propagation.
package logger

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config configures the root logger.
type Config struct {
	// Level is one of debug, info, warn, error.
	Level string

	// Format is "json" or "console".
	Format string

	// Development enables stack traces on warnings and a human friendly encoder.
	Development bool
}

// ParseLevel parses a level name, falling back to info.
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// New creates a root logger from cfg.
func New(cfg Config) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}

	zc.Level = zap.NewAtomicLevelAt(ParseLevel(cfg.Level))
	zc.EncoderConfig.TimeKey = "timestamp"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	switch strings.ToLower(cfg.Format) {
	case "console", "text":
		zc.Encoding = "console"
	case "json":
		zc.Encoding = "json"
	}

	return zc.Build()
}

// Context key for logger.
type ctxKey struct{}

// WithContext returns a new context with the logger attached.
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger attached to ctx, or fallback when there is
// none. A nil fallback yields a no-op logger.
func FromContext(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	if fallback != nil {
		return fallback
	}
	return zap.NewNop()
}

// RequestIDKey is a common field key for request tracing.
const RequestIDKey = "request_id"

// Domain field helpers.
func RequestID(id string) zap.Field     { return zap.String(RequestIDKey, id) }
func MemberID(id string) zap.Field      { return zap.String("member_id", id) }
func BookID(id string) zap.Field        { return zap.String("book_id", id) }
func AssignmentID(id string) zap.Field  { return zap.String("assignment_id", id) }
func StageID(id string) zap.Field       { return zap.String("stage_id", id) }
func UserID(id string) zap.Field        { return zap.String("user_id", id) }
func ScoreDelta(delta int) zap.Field    { return zap.Int("score_delta", delta) }
func Component(name string) zap.Field   { return zap.String("component", name) }
func Operation(name string) zap.Field   { return zap.String("operation", name) }
func Latency(d time.Duration) zap.Field { return zap.Duration("latency", d) }
func Job(name string) zap.Field         { return zap.String("job", name) }
func EventType(name string) zap.Field   { return zap.String("event_type", name) }
