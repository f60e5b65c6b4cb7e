package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		in   string
		want slog.Level
		err  bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{" warn ", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", 0, true},
	} {
		got, err := ParseLevel(tt.in)
		if tt.err {
			assert.EqualError(t, err, "invalid log level: "+tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	var text bytes.Buffer
	logger, err := New(&text, FormatText, slog.LevelWarn)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "node", "1v0")
	assert.NotContains(t, text.String(), "hidden")
	assert.Contains(t, text.String(), "msg=shown node=1v0")

	var js bytes.Buffer
	logger, err = New(&js, "JSON", slog.LevelDebug)
	require.NoError(t, err)
	logger.Debug("tick", "n", 3)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &rec))
	assert.Equal(t, "tick", rec["msg"])
	assert.EqualValues(t, 3, rec["n"])

	_, err = New(&js, "xml", slog.LevelInfo)
	assert.EqualError(t, err, "invalid log format: xml")
}

func TestDiscard(t *testing.T) {
	t.Parallel()
	assert.False(t, Discard().Enabled(t.Context(), slog.LevelError))
}
