// Package logging configures colored structured logging with tint.
//
// Diagnostics go to stderr so they never mix with command output on
// stdout. Colors are suppressed when NO_COLOR is set or stderr is not a
// terminal.
//
// Environment variables:
//
//	LOG_LEVEL: debug, info, warn, error (default: warn)
//	NO_COLOR:  any value disables colored output
package logging

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Setup configures the default logger at the level given by LOG_LEVEL.
func Setup() {
	SetupWithLevel(levelFromEnv())
}

// SetupWithLevel configures the default logger at an explicit level,
// bypassing LOG_LEVEL. Tests and the --verbose flag use this.
func SetupWithLevel(level slog.Level) {
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
			NoColor:    noColor(),
		}),
	))
}

// levelFromEnv reads LOG_LEVEL. The default is warn: a CLI should stay
// quiet unless something needs attention.
func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func noColor() bool {
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return true
	}
	fi, err := os.Stderr.Stat()
	if err != nil {
		return true
	}
	return fi.Mode()&os.ModeCharDevice == 0
}
