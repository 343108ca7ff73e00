package vkgl

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/vkgl/backend"
	"github.com/gogpu/vkgl/backend/halsync"
	"github.com/gogpu/vkgl/internal/statecache"
	"github.com/gogpu/vkgl/replay"
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
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for vkgl and its sub-packages.
// By default, vkgl produces no log output. Call SetLogger to enable logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by vkgl:
//   - [slog.LevelDebug]: replay statistics, skipped optional entry points, cache invalidation
//   - [slog.LevelInfo]: device creation and backend choice
//   - [slog.LevelWarn]: waits on unsignaled semaphores, presents of unknown images
//   - [slog.LevelError]: backend errors reported after replay, device loss
//
// Example:
//
//	vkgl.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	backend.SetLogger(l)
	halsync.SetLogger(l)
	statecache.SetLogger(l)
	replay.SetLogger(l)
}

// Logger returns the current logger used by vkgl.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

func slogger() *slog.Logger { return loggerPtr.Load() }
