// Package log is the process-wide structured logger used by reachout.
package log

import (
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

var (
	logger atomic.Pointer[slog.Logger]
	level  = new(slog.LevelVar)
)

func init() {
	// Runs are unattended, so progress is logged at info by default
	level.Set(slog.LevelInfo)
	SetOutput(os.Stderr)
}

// SetVerbose enables debug logging
func SetVerbose(verbose bool) {
	if verbose {
		level.Set(slog.LevelDebug)
	}
}

// SetQuiet drops everything below warnings
func SetQuiet(quiet bool) {
	if quiet {
		level.Set(slog.LevelWarn)
	}
}

// Level reports the current minimum level.
func Level() slog.Level {
	return level.Level()
}

// SetOutput changes the log output destination
func SetOutput(w io.Writer) {
	l := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	logger.Store(l)
}

func Debug(msg string, args ...any) {
	logger.Load().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	logger.Load().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	logger.Load().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	logger.Load().Error(msg, args...)
}

// With returns a logger carrying the given attributes, e.g. a run ID.
func With(args ...any) *slog.Logger {
	return logger.Load().With(args...)
}
