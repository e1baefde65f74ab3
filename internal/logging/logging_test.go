package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestNewWritesConsoleAndFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "recruits.log")

	logger, err := NewWithWriter("info", path, &buf)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("Season complete", zap.Int("season", 2019))
	require.NoError(t, logger.Sync())

	assert.Contains(t, buf.String(), "INFO | ")
	assert.Contains(t, buf.String(), "Season complete")
	assert.NotContains(t, buf.String(), "hidden")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"season": 2019`)
}
