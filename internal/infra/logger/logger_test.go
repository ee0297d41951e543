package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"", zerolog.InfoLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, zerolog.InfoLevel, false)
	l.Debug().Msg("hidden")
	l.Info().Msgf("supervisor: connect: screen=%s", "abc")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "supervisor: connect: screen=abc", entry[zerolog.MessageFieldName])
	assert.NotContains(t, entry, zerolog.CallerFieldName)
}

func TestInit_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "ytlounge.log")
	closer, err := Init(Config{Output: path, Level: "debug"})
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = Init(Config{Output: "stderr"})
	})

	zerolog.DefaultContextLogger.Info().Msg("written to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
	assert.Contains(t, string(data), zerolog.CallerFieldName)
}

func TestUseConsole(t *testing.T) {
	assert.True(t, useConsole(Config{}))
	assert.True(t, useConsole(Config{Output: "stderr"}))
	assert.False(t, useConsole(Config{Output: "/var/log/x.log"}))
	assert.True(t, useConsole(Config{Output: "/var/log/x.log", Format: "console"}))
	assert.False(t, useConsole(Config{Output: "stdout", Format: "json"}))
}
