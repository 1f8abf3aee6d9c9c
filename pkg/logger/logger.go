// Package logger constructs the zerolog logger shared by the pipeline.
package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a console logger at the given level. This is a CLI tool, so
// human-readable output goes to stderr and the artifact tree stays the only
// thing on disk.
func New(level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().
		Timestamp().
		Logger()
}
