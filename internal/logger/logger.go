// Package logger holds the slog.Logger shared by all sticker-composer packages.
// By default nothing is logged; cmd/ binaries call Set to enable output.
package logger

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler discards every record. Enabled returns false so callers skip
// attribute formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var ptr atomic.Pointer[slog.Logger]

func init() {
	ptr.Store(slog.New(nopHandler{}))
}

// Set replaces the shared logger. Pass nil to go back to silent mode.
// Safe for concurrent use.
//
// Levels used:
//   - Debug: gesture commits, session state transitions
//   - Info: capture written
//   - Warn: capture failures, stale results discarded after teardown
func Set(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	ptr.Store(l)
}

// L returns the current shared logger.
func L() *slog.Logger {
	return ptr.Load()
}
