// Package applog builds the process-wide zerolog.Logger used by every
// other package, console-formatted with timestamps.
package applog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New builds a zerolog.Logger writing human-readable console output with
// timestamps to w. Pass os.Stderr in production; tests can pass
// io.Discard or a bytes.Buffer.
func New(w io.Writer, debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: w}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// NewDefault builds the standard stderr logger at Info level.
func NewDefault() zerolog.Logger {
	return New(os.Stderr, false)
}
