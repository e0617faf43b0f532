package renderpass

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler drops every record. Enabled reports false, so callers never
// build the attributes of a disabled message.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// silent is the logger in effect until SetLogger is called.
var silent = slog.New(nopHandler{})

var current atomic.Pointer[slog.Logger]

func init() { current.Store(silent) }

// SetLogger configures the logger for renderpass and all pass packages.
// By default nothing is logged. Pass nil to restore the silent default.
//
// Log levels used:
//   - [slog.LevelDebug]: scratch target allocation, kernel uploads
//   - [slog.LevelInfo]: graph compilation, pass creation
//   - [slog.LevelWarn]: passes skipped because they failed validation
//   - [slog.LevelError]: unknown slot names, rejected bindings, failed factories
//
// Example:
//
//	renderpass.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = silent
	}
	current.Store(l)
}

// Logger returns the current logger.
// Pass packages call this so they share one configuration without
// import cycles.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return current.Load()
}
