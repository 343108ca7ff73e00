// Package backend defines the native call table consumed by the replay
// engine and a registry of backends able to populate it.
//
// # Call Table
//
// [Procs] is a struct of function fields modeled on OpenGL entry points.
// The replay engine never links against a driver. It only calls through a
// Procs value loaded when the device context is created:
//
//	procs, err := backend.Open("")        // best registered backend
//	procs, err := backend.Open("soft")    // a specific backend
//
// # Backend Registration
//
// Backends register a factory from init(), the same way database/sql
// drivers do. The software rasterizer and the call tracer register
// themselves on import:
//
//	import _ "github.com/gogpu/vkgl/backend/soft"
//
// The GL backend needs a live platform context and is registered by the
// application:
//
//	backend.Register(backend.NameGLES, func() backend.Backend {
//	    return &gles.Backend{Context: ctx, Swap: window.SwapBuffers}
//	})
//
// # Errors
//
// Native calls report failures through GetError. The replay engine drains
// it after each command list and wraps the first code in an [Error].
package backend
