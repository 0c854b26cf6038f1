package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("bogus"))
}

func TestForComponentAddsField(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := ForComponent(NewZapAdapter(zap.New(core)), "cache")

	l.Warn("evicted", map[string]interface{}{"key": "k1", "cause": errors.New("full")})

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		ctx := entries[0].ContextMap()
		assert.Equal(t, "cache", ctx["component"])
		assert.Equal(t, "k1", ctx["key"])
		assert.Equal(t, "full", ctx["cause"])
	}
}

func TestForComponentNilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		ForComponent(nil, "x").Info("ok", nil)
	})
}
