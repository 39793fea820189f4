package config

import (
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// LevelFromString maps a level name to zerolog. Unknown names fall back to warn.
func LevelFromString(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error":
		return zerolog.ErrorLevel
	case "warn":
		return zerolog.WarnLevel
	case "info":
		return zerolog.InfoLevel
	case "debug":
		return zerolog.DebugLevel
	}
	return zerolog.WarnLevel
}

// NewLogger returns a timestamped logger writing JSON to w, or human
// readable lines when pretty is set.
func NewLogger(w io.Writer, level string, pretty bool) zerolog.Logger {
	if pretty {
		w = zerolog.ConsoleWriter{Out: w}
	}
	return zerolog.New(w).Level(LevelFromString(level)).With().Timestamp().Logger()
}
