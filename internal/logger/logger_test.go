package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalOutput(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger(Options{Terminal: &buf, NoColor: true})
	require.NoError(t, err)

	log.LogPass("CREATE", 42, "pass for A")

	line := buf.String()
	assert.Contains(t, line, "INFO  [PASS      ] [CREATE] #42 - pass for A")
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger(Options{Terminal: &buf, NoColor: true, Level: "warn"})
	require.NoError(t, err)

	log.Debug("TEST", "hidden")
	log.Info("TEST", "hidden")
	log.Warn("TEST", "shown warn")
	log.Error("TEST", "shown error")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown warn")
	assert.Contains(t, out, "shown error")
	assert.Contains(t, out, "(logger_test.go:")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("WARNING"))
	assert.Equal(t, ERROR, ParseLevel("error"))
	assert.Equal(t, INFO, ParseLevel(""))
	assert.Equal(t, INFO, ParseLevel("verbose"))
}

func TestJSONLogFile(t *testing.T) {
	dir := t.TempDir()
	log, err := NewLogger(Options{Service: "gatepass-test", Dir: dir, Terminal: &bytes.Buffer{}, NoColor: true})
	require.NoError(t, err)

	log.LogDatabase("DELETE", "visitor_passes", "1 row")
	log.Close()

	matches, err := filepath.Glob(filepath.Join(dir, "gatepass-test-*.log"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")

	var entry LogEntry
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &entry))
	assert.Equal(t, "INFO", entry.Level)
	assert.Equal(t, "DATABASE", entry.Category)
	assert.Equal(t, "[DELETE] visitor_passes - 1 row", entry.Message)
}

func TestDiscard(t *testing.T) {
	log := Discard()
	log.Error("TEST", "goes nowhere")
	log.Close()
}
