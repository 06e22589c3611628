// Package logger builds the zerolog logger shared by the server, the job
// worker and gorm.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a console logger in development and a JSON logger otherwise.
func New(env string) zerolog.Logger {
	var out io.Writer = os.Stdout
	level := zerolog.InfoLevel

	switch env {
	case "development":
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
		level = zerolog.DebugLevel
	case "test":
		level = zerolog.WarnLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339
	return zerolog.New(out).Level(level).With().Timestamp().Str("service", "natours").Logger()
}

// Nop discards everything. Used by tests.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
