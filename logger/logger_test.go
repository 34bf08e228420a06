package logger

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestZeroLoggerEmitsStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	log := FromZerolog(zerolog.New(&buf))

	log.Info().
		Str("jobID", "cleanup").
		Int("workers", 5).
		Bool("singleton", true).
		Dur("interval", time.Minute).
		Msg("Job scheduled")

	out := buf.String()
	assert.Contains(t, out, `"jobID":"cleanup"`)
	assert.Contains(t, out, `"workers":5`)
	assert.Contains(t, out, `"singleton":true`)
	assert.Contains(t, out, `"message":"Job scheduled"`)
}

func TestZeroLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := FromZerolog(zerolog.New(&buf).Level(zerolog.WarnLevel))

	log.Debug().Msg("hidden")
	log.Warn().Err(errors.New("boom")).Msg("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
	assert.Contains(t, out, `"error":"boom"`)
}

func TestZeroLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := FromZerolog(zerolog.New(&buf)).WithFields(map[string]any{"component": "registry"})

	log.Info().Msg("Engine created")

	assert.Contains(t, buf.String(), `"component":"registry"`)
}

func TestNewParsesLevel(t *testing.T) {
	assert.NotNil(t, New("debug", false))
	assert.NotNil(t, New("not-a-level", true), "unknown levels fall back to info")
}

func TestNoopLoggerDiscards(t *testing.T) {
	log := NewNoop()

	// Must not panic anywhere along the chain.
	log.Info().Str("k", "v").Int("n", 1).Msg("dropped")
	log.Error().Err(errors.New("x")).Msgf("dropped %d", 1)
	log.WithFields(map[string]any{"a": 1}).Warn().Interface("v", struct{}{}).Msg("dropped")
	log.Debug().Bool("b", true).Dur("d", time.Second).Msg("dropped")
}
