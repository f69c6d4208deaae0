package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestNewJSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Config{Level: "warn", Format: "json"})
	l.Info("dropped")
	l.Warn("kept", "trial", 3)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, float64(3), rec["trial"])
}

func TestFromContextAddsRunID(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Config{Format: "json"})
	FromContext(WithRun(context.Background(), "run-1"), l).Info("hello")
	assert.Contains(t, buf.String(), `"run_id":"run-1"`)

	buf.Reset()
	FromContext(context.Background(), l).Info("hello")
	assert.NotContains(t, buf.String(), "run_id")
}

func TestInitWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	prev := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(prev)
		mu.Lock()
		global = nil
		mu.Unlock()
	})

	l, err := Init(Config{Level: "info", Format: "text", Output: "file", FilePath: path, MaxSizeMB: 1})
	require.NoError(t, err)
	l.Info("written")
	Component("simulation").Info("tagged")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "written")
	assert.Contains(t, string(raw), "component=simulation")
}

func TestFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_FILE", "/tmp/x.log")
	cfg := FromEnv()
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "both", cfg.Output)
	assert.Equal(t, "/tmp/x.log", cfg.FilePath)
}
