package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	dec := json.NewDecoder(buf)
	for dec.More() {
		var entry map[string]any
		require.NoError(t, dec.Decode(&entry))
		out = append(out, entry)
	}
	return out
}

func TestPanelLogger_ContextAndComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{
		Level:     LogLevelDebug,
		Format:    "json",
		Output:    &buf,
		Component: "dispatch",
		PanelID:   "panel-1",
	}).WithContext("provider", "openai")

	logger.Info("model ready", "model", "gpt-4o-mini")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "model ready", entries[0]["msg"])
	assert.Equal(t, "dispatch", entries[0]["component"])
	assert.Equal(t, "panel-1", entries[0]["panel_id"])
	assert.Equal(t, "openai", entries[0]["provider"])
	assert.Equal(t, "gpt-4o-mini", entries[0]["model"])
}

func TestPanelLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LogLevelWarn, Format: "json", Output: &buf})

	logger.Debug("hidden")
	logger.Info("hidden too")
	logger.Warn("visible")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "visible", entries[0]["msg"])
}

func TestLogModelCall_FallbackForPlainLoggers(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf})

	LogModelCall(logger, "openai", "gpt-4o-mini", 42, time.Second, true, nil)
	LogModelCall(logger, "openai", "gpt-4o-mini", 0, time.Second, false, errors.New("rate limited"))

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "Model call completed", entries[0]["msg"])
	assert.EqualValues(t, 42, entries[0]["token_count"])
	assert.Equal(t, "Model call failed", entries[1]["msg"])
	assert.Equal(t, "rate limited", entries[1]["error"])
}

func TestLogToolCall(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf})

	LogToolCall(logger, "read_file", 5*time.Millisecond, true, nil)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "Tool execution completed", entries[0]["msg"])
	assert.Equal(t, "read_file", entries[0]["tool_name"])
}

func TestNoOpLogger(t *testing.T) {
	// Must not panic.
	l := NoOpLogger{}
	l.Debug("a")
	l.Info("b", "k", "v")
	l.Warn("c")
	l.Error("d")
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LogLevelDebug.String())
	assert.Equal(t, "INFO", LogLevelInfo.String())
	assert.Equal(t, "WARN", LogLevelWarn.String())
	assert.Equal(t, "ERROR", LogLevelError.String())
}
