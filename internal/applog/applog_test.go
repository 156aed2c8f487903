package applog

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWritesTimestampedConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, false)

	log.Info().Msg("hello")

	out := buf.String()
	assert.Contains(t, out, "hello")
	assert.Regexp(t, `\d{1,2}:\d{2}(AM|PM)`, out)
}

func TestNewDebugFlagControlsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, false)
	log.Debug().Msg("should not appear")
	assert.Empty(t, buf.String())

	buf.Reset()
	debugLog := New(&buf, true)
	debugLog.Debug().Msg("should appear")
	assert.Contains(t, buf.String(), "should appear")
}
