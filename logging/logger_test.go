package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew_LevelFollowsVerbose(t *testing.T) {
	var buf bytes.Buffer

	quiet := New(&buf, false)
	assert.False(t, quiet.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, quiet.Core().Enabled(zapcore.WarnLevel))
	quiet.Debug("hidden entry")
	assert.Empty(t, buf.String())

	loud := New(&buf, true)
	assert.True(t, loud.Core().Enabled(zapcore.DebugLevel))
	loud.Debug("system prompt", zap.String("prompt", "hello"))
	require.NoError(t, loud.Sync())
	assert.Contains(t, buf.String(), "system prompt")
	assert.Contains(t, buf.String(), "hello")
}

func TestNewWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, zapcore.DebugLevel)

	logger.Debug("wrote file", zap.String("path", "a.txt"))
	_ = logger.Sync()

	assert.Contains(t, buf.String(), "wrote file")
	assert.Contains(t, buf.String(), "a.txt")
}
