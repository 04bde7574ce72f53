// Package logging builds the zerolog loggers used across salesagg.
//
// Logs always go to the writer passed in (stderr in the CLI) so that stdout
// carries only the run report and the telemetry block.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"salesagg/internal/config"
)

// Version is stamped into every log line. Overridden at build time with
// -ldflags "-X salesagg/internal/logging.Version=...".
var Version = "dev"

// ParseLevel maps a config level name to a zerolog level. Empty or unknown
// names fall back to LOG_LEVEL from the environment, then to info.
func ParseLevel(name string) zerolog.Level {
	if lvl, ok := levelByName(name); ok {
		return lvl
	}
	if lvl, ok := levelByName(os.Getenv("LOG_LEVEL")); ok {
		return lvl
	}
	return zerolog.InfoLevel
}

func levelByName(name string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	}
	return zerolog.NoLevel, false
}

// New returns a component logger writing to w. Format "json" emits one JSON
// object per line; anything else uses the human console writer.
func New(cfg config.LogConfig, w io.Writer, component string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	out := w
	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
			NoColor:    !isTerminal(w),
		}
	}

	return zerolog.New(out).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("component", component).
		Str("version", Version).
		Logger()
}

// Nop returns a disabled logger, handy for tests and library defaults.
func Nop() zerolog.Logger { return zerolog.Nop() }

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
