package imdraw

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler discards all records. Enabled returns false so callers skip
// formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the default logger for new draw contexts.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger sets the logger new DrawContexts use when no WithLogger option
// is given. By default imdraw produces no log output. Pass nil to restore
// silence.
//
// Log levels used by imdraw:
//   - [slog.LevelDebug]: per-frame statistics, buffer completion
//   - [slog.LevelInfo]: pool growth past its previous high-water mark
//   - [slog.LevelWarn]: degraded rendering (geometry without a white texture)
//
// SetLogger is safe for concurrent use.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current default logger. Hosts can pass it on to
// backends, for example wgpu.Config.Logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
