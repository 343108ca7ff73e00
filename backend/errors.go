package backend

import (
	"errors"
	"fmt"

	"github.com/gogpu/wgpu/hal/gles/gl"
)

// Sentinel errors for backend selection and loading.
var (
	// ErrBackendNotAvailable is returned when no backend is registered
	// under the requested name.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNilProcs is returned when a backend opens without a call table.
	ErrNilProcs = errors.New("backend: nil procs table")

	// ErrMissingProc is returned when a required entry point is nil.
	ErrMissingProc = errors.New("backend: missing required entry point")
)

// Error is a failure reported by the backend's error query after a
// command list was replayed.
type Error struct {
	Code uint32
}

// Error implements the error interface.
func (e *Error) Error() string {
	return "backend: " + ErrorName(e.Code)
}

// ErrorName returns the symbolic name of a backend error code.
func ErrorName(code uint32) string {
	switch code {
	case gl.NO_ERROR:
		return "NO_ERROR"
	case gl.INVALID_ENUM:
		return "INVALID_ENUM"
	case gl.INVALID_VALUE:
		return "INVALID_VALUE"
	case gl.INVALID_OPERATION:
		return "INVALID_OPERATION"
	case gl.OUT_OF_MEMORY:
		return "OUT_OF_MEMORY"
	case gl.INVALID_FRAMEBUFFER_OPERATION:
		return "INVALID_FRAMEBUFFER_OPERATION"
	case CONTEXT_LOST:
		return "CONTEXT_LOST"
	default:
		return fmt.Sprintf("error %#04x", code)
	}
}

// IsOutOfMemory reports whether err is a backend out-of-memory error.
func IsOutOfMemory(err error) bool {
	var be *Error
	return errors.As(err, &be) && be.Code == gl.OUT_OF_MEMORY
}
