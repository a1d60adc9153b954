package log

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFormatWritesConsoleAndFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.log")
	var console bytes.Buffer

	Configure(Options{FilePath: path, Format: "json", Level: "info", Console: &console})
	t.Cleanup(func() { _ = Close() })

	Debugf("hidden %d", 1)
	Infof("upload %s", "a.png")
	Exceptionf("boom")

	lines := strings.Split(strings.TrimSpace(console.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "info", first["level"])
	assert.Equal(t, "upload a.png", first["message"])
	assert.Contains(t, first["caller"], "TestJSONFormatWritesConsoleAndFile")

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "error", second["level"])
	assert.Equal(t, true, second["exception"])

	require.NoError(t, Close())
	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(strings.TrimSpace(string(onDisk)), "\n")+1)
}

func TestNoFilePathLogsToConsoleOnly(t *testing.T) {
	t.Chdir(t.TempDir())
	var console bytes.Buffer

	Configure(Options{Format: "json", Console: &console})
	t.Cleanup(func() { _ = Close() })

	Infof("console only")
	assert.Contains(t, console.String(), "console only")
	assert.NoError(t, Close())

	entries, err := os.ReadDir(".")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRotatingFileRollsOver(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	f := &rotatingFile{filePath: path, maxSizeBytes: 16}
	t.Cleanup(func() { _ = f.Close() })

	_, err := f.Write([]byte("0123456789\n"))
	require.NoError(t, err)
	_, err = f.Write([]byte("abcdefghij\n"))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	current, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "abcdefghij\n", string(current))
}

func TestNextRotatedPathSkipsTaken(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	taken := filepath.Join(dir, "app_20260102_030405_1.log")
	require.NoError(t, os.WriteFile(taken, nil, 0o644))

	got, err := nextRotatedPath(filepath.Join(dir, "app.log"), now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "app_20260102_030405_2.log"), got)
}
