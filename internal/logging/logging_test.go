package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level   string
		format  string
		enabled zapcore.Level
		off     zapcore.Level
	}{
		{"debug", "console", zapcore.DebugLevel, zapcore.DebugLevel - 1},
		{"info", "json", zapcore.InfoLevel, zapcore.DebugLevel},
		{"error", "json", zapcore.ErrorLevel, zapcore.WarnLevel},
		{"bogus", "console", zapcore.InfoLevel, zapcore.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			logger, err := New(tt.level, tt.format)
			require.NoError(t, err)
			assert.NotNil(t, logger.Check(tt.enabled, "x"))
			assert.Nil(t, logger.Check(tt.off, "x"))
		})
	}
}

func TestRequestID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestID(ctx))

	ctx = WithRequestID(ctx, "req-123")
	assert.Equal(t, "req-123", RequestID(ctx))
}

func TestFromContextDefault(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))
}

func TestLTagsRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := WithLogger(context.Background(), zap.New(core))
	ctx = WithRequestID(ctx, "req-9")

	L(ctx).Info("scored upload")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "scored upload", entry.Message)
	assert.Equal(t, "req-9", entry.ContextMap()["request_id"])
}
