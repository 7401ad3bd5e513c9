package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogger(level LogLevel) (*MediSyncLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: level, Format: "json", Output: &buf})
	return logger, &buf
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLevel("debug"))
	assert.Equal(t, LogLevelWarn, ParseLevel("WARN"))
	assert.Equal(t, LogLevelError, ParseLevel("error"))
	// unknown names fall back to info
	assert.Equal(t, LogLevelInfo, ParseLevel("verbose"))
}

func TestLevelFiltering(t *testing.T) {
	logger, buf := captureLogger(LogLevelWarn)

	logger.Info("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn("visible")
	entry := lastEntry(t, buf)
	assert.Equal(t, "visible", entry["msg"])
}

func TestContextFields(t *testing.T) {
	logger, buf := captureLogger(LogLevelInfo)

	logger.WithComponent("bus").WithAgent("analyzer").WithPatient("P001").Info("hello")

	entry := lastEntry(t, buf)
	assert.Equal(t, "bus", entry["component"])
	assert.Equal(t, "analyzer", entry["agent_id"])
	assert.Equal(t, "P001", entry["patient_id"])
}

func TestWithContextDoesNotMutateParent(t *testing.T) {
	logger, buf := captureLogger(LogLevelInfo)

	child := logger.WithContext("key", "value")
	child.Info("child")
	assert.Equal(t, "value", lastEntry(t, buf)["key"])

	buf.Reset()
	logger.Info("parent")
	_, ok := lastEntry(t, buf)["key"]
	assert.False(t, ok)
}

func TestLogToolInvocation(t *testing.T) {
	logger, buf := captureLogger(LogLevelInfo)

	logger.LogToolInvocation("check_interactions", 0, true, nil)
	entry := lastEntry(t, buf)
	assert.Equal(t, "check_interactions", entry["tool_name"])
	assert.Equal(t, true, entry["success"])

	buf.Reset()
	logger.LogToolInvocation("check_interactions", 0, false, errors.New("boom"))
	entry = lastEntry(t, buf)
	assert.Equal(t, false, entry["success"])
	assert.Equal(t, "boom", entry["error"])
}
