package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWriterJSON(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	require.NoError(t, InitWriter(&buf, "warn", "json"))

	log.Info().Msg("hidden")
	log.Warn().Str("canvas", "abc").Msg("visible")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "visible", entry["message"])
	assert.Equal(t, "abc", entry["canvas"])
	assert.Equal(t, "warn", entry["level"])
}

func TestInitWriterRejectsUnknownSettings(t *testing.T) {
	assert.Error(t, InitWriter(&bytes.Buffer{}, "loud", "json"))
	assert.Error(t, InitWriter(&bytes.Buffer{}, "info", "xml"))
}
