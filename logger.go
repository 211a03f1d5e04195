package wgimage

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler drops every record. Enabled is false, so disabled calls
// never format their arguments.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// silent is the logger in effect until SetLogger installs another.
var silent = slog.New(nopHandler{})

var current atomic.Pointer[slog.Logger]

func init() { current.Store(silent) }

// SetLogger routes wgimage diagnostics to l. Passing nil silences them
// again. It may be called while filters are running.
//
// Levels:
//   - [slog.LevelDebug]: uploads, downloads, dispatch sizes, blur stages
//   - [slog.LevelInfo]: device open/close and filter construction
//   - [slog.LevelWarn]: resources abandoned after a timeout or leaked on close
//
// Example:
//
//	wgimage.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = silent
	}
	current.Store(l)
}

// Logger returns the logger wgimage writes to. The CLI and tests share it.
func Logger() *slog.Logger {
	return current.Load()
}
