package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(LogConfig{Level: "debug", Format: "json", Output: "stdout"})
	require.NoError(t, err)
	require.NotNil(t, logger)

	logger.Debug("debug line", String("k", "v"))
	logger.Info("info line", Int("n", 1))

	child := logger.With(String("component", "test"))
	require.NotNil(t, child)
	child.Warn("warn line")
}

func TestNewLoggerConsoleFormat(t *testing.T) {
	logger, err := NewLogger(LogConfig{Level: "info", Format: "console", Output: "stderr"})
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestNewLoggerInvalidLevel(t *testing.T) {
	_, err := NewLogger(LogConfig{Level: "loud", Format: "json"})
	assert.Error(t, err)
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	logger.Info("ignored")
	logger.Error("ignored")
	assert.NoError(t, logger.Sync())
	assert.NotNil(t, logger.With(String("k", "v")))
}

func TestGlobalLogger(t *testing.T) {
	orig := GlobalLogger()
	defer SetGlobalLogger(orig)

	nop := NopLogger()
	SetGlobalLogger(nop)
	assert.Equal(t, nop, GlobalLogger())
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestIDFromContext(ctx))

	ctx = ContextWithRequestID(ctx, "req-1")
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
}

func TestUserIDContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, UserIDFromContext(ctx))

	ctx = ContextWithUserID(ctx, "user-1")
	assert.Equal(t, "user-1", UserIDFromContext(ctx))
}

func TestTracerDisabled(t *testing.T) {
	tr, err := NewTracer(TracerConfig{ServiceName: "test", Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, tr.Tracer())
	assert.NoError(t, tr.Shutdown(context.Background()))
}
