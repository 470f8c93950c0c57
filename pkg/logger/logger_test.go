package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	fallback := zap.New(core).With(Component("command"))

	FromContext(context.Background(), fallback).Info("background")

	reqLogger := zap.New(core).With(RequestID("req-1"))
	ctx := WithContext(context.Background(), reqLogger)
	FromContext(ctx, fallback).Info("request", MemberID("m1"))

	entries := logs.All()
	assert.Len(t, entries, 2)
	assert.Equal(t, "command", entries[0].ContextMap()["component"])
	assert.Equal(t, "req-1", entries[1].ContextMap()[RequestIDKey])
	assert.Equal(t, "m1", entries[1].ContextMap()["member_id"])

	assert.NotNil(t, FromContext(context.Background(), nil))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}
