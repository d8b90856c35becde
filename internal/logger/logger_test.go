package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, verboseMode bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(verboseMode)
	t.Cleanup(func() {
		SetVerbose(false)
		SetFormat(FormatConsole)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestSetVerbose(t *testing.T) {
	_ = capture(t, false)
	assert.False(t, IsVerbose())

	SetVerbose(true)
	assert.True(t, IsVerbose())

	SetVerbose(false)
	assert.False(t, IsVerbose())
}

func TestDebug_WhenVerbose(t *testing.T) {
	buf := capture(t, true)

	Debug("test message %s", "arg")

	assert.Equal(t, "DEBUG test message arg\n", buf.String())
}

func TestDebug_WhenNotVerbose(t *testing.T) {
	buf := capture(t, false)

	Debug("test message")
	Info("info message")
	Section("Search")

	assert.Empty(t, buf.String())
}

func TestSection(t *testing.T) {
	buf := capture(t, true)

	Section("Ingestion")

	assert.Contains(t, buf.String(), "=== Ingestion ===")
}

func TestWarn_AlwaysEmitted(t *testing.T) {
	buf := capture(t, false)

	Warn("audit write failed: %s", "disk full")
	Error("boom")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "WARN audit write failed: disk full", lines[0])
	assert.Equal(t, "ERROR boom", lines[1])
}

func TestWarnw_JSON(t *testing.T) {
	buf := capture(t, false)
	SetFormat(FormatJSON)

	Warnw("search degraded", "error", "connection refused", "k", 10)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "search degraded", entry["msg"])
	assert.Equal(t, "connection refused", entry["error"])
	assert.InDelta(t, 10, entry["k"], 0)
	assert.Contains(t, entry, "ts")
}
