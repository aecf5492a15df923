package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTagsComponentAndSeverity(t *testing.T) {
	var buf bytes.Buffer
	log := build(&buf, "orchestrator", "production", "")
	log.Debug().Msg("hidden")
	log.Info().Str("queue", "webhook_queue").Msg("Starting")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["severity"])
	assert.Equal(t, "orchestrator", line["component"])
	assert.Equal(t, "webhook_queue", line["queue"])
	assert.Contains(t, line, "time")
}

func TestBuildLevels(t *testing.T) {
	tests := []struct {
		env, level string
		want       zerolog.Level
	}{
		{"production", "", zerolog.InfoLevel},
		{"development", "", zerolog.DebugLevel},
		{"production", "WARN", zerolog.WarnLevel},
		{"development", "error", zerolog.ErrorLevel},
		{"production", "loud", zerolog.InfoLevel},
	}
	for _, tc := range tests {
		var buf bytes.Buffer
		assert.Equal(t, tc.want, build(&buf, "api", tc.env, tc.level).GetLevel(), "%s/%s", tc.env, tc.level)
	}
}
