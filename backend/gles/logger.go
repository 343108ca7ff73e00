package gles

import (
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/vkgl/backend"
)

// loggerPtr holds a logger set with SetLogger. While it is nil the package
// logs through backend.Logger, which vkgl.SetLogger configures.
var loggerPtr atomic.Pointer[slog.Logger]

func slogger() *slog.Logger {
	if l := loggerPtr.Load(); l != nil {
		return l
	}
	return backend.Logger()
}

// SetLogger overrides the logger of this package. Pass nil to follow the
// backend logger again.
func SetLogger(l *slog.Logger) {
	loggerPtr.Store(l)
}
