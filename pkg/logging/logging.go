// Package logging configures colored structured logging with tint.
//
// Usage:
//
//	logger := logging.Setup(slog.LevelInfo)  // also installed as slog.Default
//	logger.Info("Expense recorded", "expense_id", id)
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// Setup installs a colored stderr logger at level as the default and returns it.
func Setup(level slog.Level) *slog.Logger {
	logger := New(os.Stderr, level)
	slog.SetDefault(logger)
	return logger
}

// New returns a tint logger writing to w. Colors are disabled unless w is
// stderr or stdout.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		AddSource:  level <= slog.LevelDebug,
		NoColor:    w != os.Stderr && w != os.Stdout,
	}))
}

// Discard returns a logger that drops everything. Tests use it.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
