package internal

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{" WARN ", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"chatty", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := NewLogger(&bytes.Buffer{}, tt.level, false)
			assert.Equal(t, tt.want, logger.GetLevel())
		})
	}
}

func TestNewLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "info", false)
	logger.Debug().Msg("hidden")
	logger.Info().Int("pairs", 3).Msg("done")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"app":"dprep"`)
	assert.Contains(t, out, `"pairs":3`)
	assert.Contains(t, out, `"message":"done"`)
}
