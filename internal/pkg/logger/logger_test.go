package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure_WritesJSONWithService(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: DebugLevel, Output: &buf, Service: "communitylink"})
	t.Cleanup(func() { Configure(Config{Level: InfoLevel}) })

	Info().Int64("actionID", 7).Msg("action created")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "communitylink", entry["service"])
	assert.Equal(t, float64(7), entry["actionID"])
	assert.Equal(t, "action created", entry["message"])
}

func TestConfigure_LevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: WarnLevel, Output: &buf})
	t.Cleanup(func() { Configure(Config{Level: InfoLevel}) })

	Debug().Msg("hidden")
	Info().Msg("hidden too")
	assert.Empty(t, buf.String())

	Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestFromSettings(t *testing.T) {
	cfg := FromSettings(" DEBUG ", "text")
	assert.Equal(t, DebugLevel, cfg.Level)
	assert.True(t, cfg.Pretty)

	assert.Equal(t, ServiceName, cfg.Service)

	cfg = FromSettings("info", "json")
	assert.False(t, cfg.Pretty)
}

func TestConfigure_UnknownLevelMeansInfo(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "verbose", Output: &buf})
	t.Cleanup(func() { Configure(Config{Level: InfoLevel}) })

	Debug().Msg("hidden")
	assert.Empty(t, buf.String())
	Info().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}
