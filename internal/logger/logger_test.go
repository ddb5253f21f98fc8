package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"DEBUG":   zerolog.DebugLevel,
		"info":    zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"warn":    zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"bogus":   zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, zerolog.DebugLevel)
	t.Cleanup(func() { SetOutput(&bytes.Buffer{}, zerolog.InfoLevel) })

	WithComponent("watcher").Info().Int("pid", 42).Msg("focus changed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "watcher", entry["component"])
	assert.Equal(t, "focus changed", entry["message"])
	assert.EqualValues(t, 42, entry["pid"])
}

func TestSetOutputFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, zerolog.WarnLevel)
	t.Cleanup(func() { SetOutput(&bytes.Buffer{}, zerolog.InfoLevel) })

	WithComponent("window").Debug().Msg("hidden")
	assert.Empty(t, buf.String())

	WithComponent("window").Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}
