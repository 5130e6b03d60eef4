package drafter

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	l := newNopLogger()
	loggerPtr.Store(l)
}

// SetLogger configures the logger for drafter and its sub-packages.
// By default drafter produces no log output. Pass nil to restore the
// default silent behavior.
//
// Log levels used by drafter:
//   - [slog.LevelDebug]: per-stage diagnostics (segment counts, timings)
//   - [slog.LevelInfo]: GPU adapter lifecycle events
//   - [slog.LevelWarn]: silent-degradation events (CPU fallback, dropped
//     geometry, unparseable relationship entries)
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	// Propagate to the GPU cutter if it accepts a logger.
	cutterMu.RLock()
	c := cutter
	cutterMu.RUnlock()
	if c != nil {
		propagateLogger(c, l)
	}
}

// Logger returns the current logger used by drafter. Sub-packages
// (gpu/, export/) call this to share the same logger configuration
// without introducing import cycles.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by GPU cutters that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// propagateLogger passes the logger to a cutter if it implements the
// loggerSetter interface. Called from both SetLogger and RegisterCutter
// so the cutter always holds the current logger.
func propagateLogger(c GPUCutter, l *slog.Logger) {
	if ls, ok := c.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}
