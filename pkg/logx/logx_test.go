package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(format Format, level Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Format = format
	cfg.Level = level
	cfg.EnableColors = false
	cfg.EnableTimestamp = false
	cfg.Output = &buf
	return NewLogger(cfg), &buf
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"trace":   LevelTrace,
		"DEBUG":   LevelDebug,
		"warning": LevelWarn,
		"off":     LevelOff,
		"bogus":   LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestLevelFiltering(t *testing.T) {
	logger, buf := newTestLogger(FormatConsole, LevelWarn)

	logger.WithField("k", 1).Info("hidden")
	logger.WithField("k", 2).Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[WARN ] shown k=2")
}

func TestConsoleFieldsAreSorted(t *testing.T) {
	logger, buf := newTestLogger(FormatConsole, LevelDebug)

	logger.WithFields(Fields{"b": 2, "a": 1}).WithError(errors.New("boom")).Error("failed")

	assert.Equal(t, "[ERROR] failed a=1 b=2\n  ╰─→ error: boom\n", buf.String())
}

func TestJSONFormatter(t *testing.T) {
	logger, buf := newTestLogger(FormatJSON, LevelInfo)

	logger.WithField("store_id", 3).Info("warmup: started")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "INFO", record["level"])
	assert.Equal(t, "warmup: started", record["message"])
	assert.EqualValues(t, 3, record["store_id"])
}

func TestSinkWritesTitleAndDetails(t *testing.T) {
	logger, buf := newTestLogger(FormatJSON, LevelDebug)
	sink := NewSink(logger, "warmup")

	require.NoError(t, sink.Log(context.Background(), LevelDebug, "Compile started", "line 1"))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "DEBUG", record["level"])
	assert.Equal(t, "Compile started", record["message"])
	assert.Equal(t, "warmup", record["component"])
	assert.Equal(t, "line 1", record["details"])
}
