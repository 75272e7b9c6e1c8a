package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewCore_JSONAtLevel(t *testing.T) {
	var buf bytes.Buffer
	log := zap.New(newCore(Config{Level: "WARN", Encoding: "json"}, zapcore.AddSync(&buf)))

	log.Info("dropped")
	log.Warn("kept", zap.String("listing_id", "l-1"))
	require.NoError(t, log.Sync())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "l-1", entry["listing_id"])
	assert.Contains(t, entry, "ts")
}

func TestNewCore_UnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := zap.New(newCore(Config{Level: "chatty", Encoding: "console"}, zapcore.AddSync(&buf)))

	log.Debug("hidden")
	log.Info("shown")
	require.NoError(t, log.Sync())

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
