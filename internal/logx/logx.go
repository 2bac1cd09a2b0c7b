// Package logx provides the structured logger used throughout the core.
// It is a thin wrapper around go.abhg.dev/log/silog that adds nothing but
// a name every caller can pass around as a single value, matching the way
// internal/git threads a *silog.Logger through the call graph instead of
// relying on a package-level global.
package logx

import (
	"io"

	"go.abhg.dev/log/silog"
)

// Logger is the logger type used across the core. It is a type alias so
// that callers can use silog's full API (With, Infof, WithPrefix, ...)
// without the core prescribing its own vocabulary on top.
type Logger = silog.Logger

// Level is silog's level type, re-exported so callers don't need a
// second import just to pick a verbosity.
type Level = silog.Level

const (
	LevelDebug = silog.LevelDebug
	LevelInfo  = silog.LevelInfo
	LevelWarn  = silog.LevelWarn
	LevelError = silog.LevelError
)

// Nop returns a logger that discards everything written to it. Useful as
// a default in tests and in library entry points that don't want to
// force a logging configuration onto their caller.
func Nop() *Logger {
	return silog.Nop()
}

// New creates a logger writing to w at the given level.
func New(w io.Writer, level Level) *Logger {
	return silog.New(w, &silog.Options{Level: level})
}

// With returns a clone of l with additional structured key-value pairs
// attached to every subsequent message.
func With(l *Logger, keyvals ...any) *Logger {
	if l == nil {
		return Nop()
	}
	return l.With(keyvals...)
}
