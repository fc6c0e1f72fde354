// Package logging sets up the simulator's structured logger, gated by
// the SIM_LOG_LEVEL environment variable DESIGN.md names.
package logging

import (
	"io"
	"os"
	"strconv"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// LevelFromEnv reads SIM_LOG_LEVEL (integer ≥ 0, 0 = most verbose) and
// maps it onto a zerolog.Level, defaulting to zerolog.InfoLevel when the
// variable is unset or unparseable.
func LevelFromEnv() zerolog.Level {
	raw, ok := os.LookupEnv("SIM_LOG_LEVEL")
	if !ok {
		return zerolog.InfoLevel
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return zerolog.InfoLevel
	}
	switch {
	case n == 0:
		return zerolog.DebugLevel
	case n == 1:
		return zerolog.InfoLevel
	case n == 2:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// New builds the process-wide logger. Output is a zerolog.ConsoleWriter
// when w is a terminal, plain JSON lines otherwise — the same
// TTY-detection split cmd/simcli uses for its live status line.
func New(w *os.File) zerolog.Logger {
	level := LevelFromEnv()

	var out io.Writer = w
	if term.IsTerminal(int(w.Fd())) {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
