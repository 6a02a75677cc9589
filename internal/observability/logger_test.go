package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/lexigraph/lexigraph-cli/internal/config"
)

func TestGetLoggerBeforeInitialize(t *testing.T) {
	ResetForTest()
	logger := GetLogger()
	require.NotNil(t, logger)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
}

func TestInitializeOnce(t *testing.T) {
	ResetForTest()
	Initialize(config.LoggerConfig{Level: "debug", Format: "json", ServiceName: "test"}, zapcore.AddSync(nopWriter{}))
	first := GetLogger()
	require.NotNil(t, first)
	assert.True(t, first.Core().Enabled(zapcore.DebugLevel))

	// A second call must not replace the logger.
	Initialize(config.LoggerConfig{Level: "error", Format: "console"}, zapcore.AddSync(nopWriter{}))
	assert.Same(t, first, GetLogger())

	ResetForTest()
}

func TestInitializeBadLevelFallsBack(t *testing.T) {
	ResetForTest()
	Initialize(config.LoggerConfig{Level: "chatty", Format: "json"}, zapcore.AddSync(nopWriter{}))
	logger := GetLogger()
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	ResetForTest()
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
