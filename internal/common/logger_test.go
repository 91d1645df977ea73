package common

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSetupLoggerTo(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	require.NoError(t, SetupLoggerTo(&buf, slog.LevelWarn, "json"))

	slog.Info("dropped")
	LogError(errors.New("disk full"), "persist failed", Fields{"pattern_id": 7})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "persist failed", entry["msg"])
	assert.Equal(t, "disk full", entry["error"])
	assert.InDelta(t, 7, entry["pattern_id"], 0)
	assert.NotContains(t, buf.String(), "dropped")

	err := SetupLoggerTo(&buf, slog.LevelInfo, "xml")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestMatchRegex(t *testing.T) {
	ok, err := MatchRegex(`(\d{1,3}(,\d{3})*)원`, "12,500원 승인")
	require.NoError(t, err)
	assert.True(t, ok)

	first, err := CompileRegex(`승인\s+(\S+)`)
	require.NoError(t, err)
	second, err := CompileRegex(`승인\s+(\S+)`)
	require.NoError(t, err)
	assert.Same(t, first, second)

	_, err = MatchRegex(`([`, "x")
	assert.Error(t, err)
}
