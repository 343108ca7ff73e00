// Package trace provides a backend that records every native call instead
// of executing it. It is the test double for the replay engine and a
// debugging aid for inspecting what a command list turns into.
//
//	rec := trace.New()
//	dev, _ := vkgl.NewDevice(vkgl.WithProcs(rec.Procs()))
//	// record and submit ...
//	fmt.Println(rec.Names())
//
// GetError and ClientWaitSync are not recorded since the engine polls them.
package trace

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/gogpu/vkgl/backend"
	"github.com/gogpu/wgpu/hal/gles/gl"
)

func init() {
	backend.Register(backend.NameTrace, func() backend.Backend { return traceBackend{} })
}

type traceBackend struct{}

func (traceBackend) Name() string { return backend.NameTrace }

func (traceBackend) Open() (*backend.Procs, error) { return New().Procs(), nil }

// Call is one recorded native call.
type Call struct {
	Name string
	Args []any
}

// String formats the call as Name(arg, arg).
func (c Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = fmt.Sprint(a)
	}
	return c.Name + "(" + strings.Join(args, ", ") + ")"
}

// Recorder records native calls and emulates sync objects and error
// queries.
type Recorder struct {
	mu    sync.Mutex
	calls []Call

	errs []uint32

	manual   bool
	nextSync backend.Sync
	signaled map[backend.Sync]bool
	deleted  map[backend.Sync]bool

	swapErr error
}

// New creates a recorder whose sync objects signal as soon as they are
// created.
func New() *Recorder {
	return &Recorder{
		signaled: make(map[backend.Sync]bool),
		deleted:  make(map[backend.Sync]bool),
	}
}

// SetManualSignal makes new sync objects stay unsignaled until Signal or
// SignalAll is called.
func (r *Recorder) SetManualSignal(manual bool) {
	r.mu.Lock()
	r.manual = manual
	r.mu.Unlock()
}

// Signal marks s as signaled.
func (r *Recorder) Signal(s backend.Sync) {
	r.mu.Lock()
	r.signaled[s] = true
	r.mu.Unlock()
}

// SignalAll marks every created sync object as signaled.
func (r *Recorder) SignalAll() {
	r.mu.Lock()
	for s := backend.Sync(1); s <= r.nextSync; s++ {
		r.signaled[s] = true
	}
	r.mu.Unlock()
}

// Unsignaled returns the number of live sync objects not yet signaled.
func (r *Recorder) Unsignaled() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for s := backend.Sync(1); s <= r.nextSync; s++ {
		if !r.signaled[s] && !r.deleted[s] {
			n++
		}
	}
	return n
}

// InjectError queues a code for the next GetError calls.
func (r *Recorder) InjectError(code uint32) {
	r.mu.Lock()
	r.errs = append(r.errs, code)
	r.mu.Unlock()
}

// SetSwapError makes SwapBuffers fail with err.
func (r *Recorder) SetSwapError(err error) {
	r.mu.Lock()
	r.swapErr = err
	r.mu.Unlock()
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// Names returns the recorded call names in order, leaving out any name in
// skip.
func (r *Recorder) Names(skip ...string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.calls))
	for _, c := range r.calls {
		if !slices.Contains(skip, c.Name) {
			names = append(names, c.Name)
		}
	}
	return names
}

// Count returns how many times name was called.
func (r *Recorder) Count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Name == name {
			n++
		}
	}
	return n
}

// Last returns the most recent call named name.
func (r *Recorder) Last(name string) (Call, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.calls) - 1; i >= 0; i-- {
		if r.calls[i].Name == name {
			return r.calls[i], true
		}
	}
	return Call{}, false
}

// Reset forgets recorded calls. Sync state is kept.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.calls = r.calls[:0]
	r.mu.Unlock()
}

func (r *Recorder) record(name string, args ...any) {
	r.mu.Lock()
	r.calls = append(r.calls, Call{Name: name, Args: args})
	r.mu.Unlock()
}

func (r *Recorder) getError() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.errs) == 0 {
		return gl.NO_ERROR
	}
	code := r.errs[0]
	r.errs = r.errs[1:]
	return code
}

func (r *Recorder) fenceSync() backend.Sync {
	r.mu.Lock()
	r.nextSync++
	s := r.nextSync
	if !r.manual {
		r.signaled[s] = true
	}
	r.calls = append(r.calls, Call{Name: "FenceSync", Args: []any{s}})
	r.mu.Unlock()
	return s
}

func (r *Recorder) clientWaitSync(s backend.Sync, _ uint64) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.deleted[s] || s == 0 || s > r.nextSync:
		return gl.WAIT_FAILED
	case r.signaled[s]:
		return gl.ALREADY_SIGNALED
	default:
		return gl.TIMEOUT_EXPIRED
	}
}

func (r *Recorder) deleteSync(s backend.Sync) {
	r.mu.Lock()
	r.deleted[s] = true
	r.calls = append(r.calls, Call{Name: "DeleteSync", Args: []any{s}})
	r.mu.Unlock()
}

func (r *Recorder) swapBuffers(fb uint32) error {
	r.record("SwapBuffers", fb)
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.swapErr
}

// Procs returns a call table bound to the recorder. Every entry point,
// optional ones included, is populated.
func (r *Recorder) Procs() *backend.Procs {
	return &backend.Procs{
		GetError: r.getError,
		Flush:    func() { r.record("Flush") },
		Finish:   func() { r.record("Finish") },

		Enable:  func(c uint32) { r.record("Enable", c) },
		Disable: func(c uint32) { r.record("Disable", c) },
		Viewport: func(i uint32, x, y, w, h float32) {
			r.record("Viewport", i, x, y, w, h)
		},
		DepthRange: func(i uint32, n, f float32) { r.record("DepthRange", i, n, f) },
		Scissor: func(i uint32, x, y, w, h int32) {
			r.record("Scissor", i, x, y, w, h)
		},
		BlendColor: func(cr, cg, cb, ca float32) { r.record("BlendColor", cr, cg, cb, ca) },
		StencilFuncSeparate: func(face, fn uint32, ref int32, mask uint32) {
			r.record("StencilFuncSeparate", face, fn, ref, mask)
		},
		StencilMaskSeparate: func(face, mask uint32) { r.record("StencilMaskSeparate", face, mask) },
		LineWidth:           func(w float32) { r.record("LineWidth", w) },
		PolygonOffset: func(factor, units, clamp float32) {
			r.record("PolygonOffset", factor, units, clamp)
		},

		UseProgram:      func(p uint32) { r.record("UseProgram", p) },
		BindVertexArray: func(v uint32) { r.record("BindVertexArray", v) },
		BindFramebuffer: func(target, fb uint32) { r.record("BindFramebuffer", target, fb) },
		DrawBuffers:     func(bufs []uint32) { r.record("DrawBuffers", slices.Clone(bufs)) },
		InvalidateFramebuffer: func(target uint32, atts []uint32) {
			r.record("InvalidateFramebuffer", target, slices.Clone(atts))
		},
		BindBuffer: func(target, buf uint32) { r.record("BindBuffer", target, buf) },
		BindBufferRange: func(target, index, buf uint32, offset, size int) {
			r.record("BindBufferRange", target, index, buf, offset, size)
		},
		BindVertexBuffer: func(binding, buf uint32, offset int, stride int32) {
			r.record("BindVertexBuffer", binding, buf, offset, stride)
		},
		BindDescriptorSet: func(bindPoint, set uint32, handle uint64, dyn []uint32) int {
			r.record("BindDescriptorSet", bindPoint, set, handle, slices.Clone(dyn))
			return 0
		},

		DrawArraysInstancedBaseInstance: func(mode uint32, first, count, instances int32, baseInstance uint32) {
			r.record("DrawArraysInstancedBaseInstance", mode, first, count, instances, baseInstance)
		},
		DrawElementsInstancedBaseVertexBaseInstance: func(mode uint32, count int32, typ uint32, offset uintptr, instances, baseVertex int32, baseInstance uint32) {
			r.record("DrawElementsInstancedBaseVertexBaseInstance", mode, count, typ, offset, instances, baseVertex, baseInstance)
		},
		DrawArraysIndirect:   func(mode uint32, offset uintptr) { r.record("DrawArraysIndirect", mode, offset) },
		DrawElementsIndirect: func(mode, typ uint32, offset uintptr) { r.record("DrawElementsIndirect", mode, typ, offset) },
		DispatchCompute:      func(x, y, z uint32) { r.record("DispatchCompute", x, y, z) },
		DispatchComputeIndirect: func(offset uintptr) {
			r.record("DispatchComputeIndirect", offset)
		},
		MemoryBarrier: func(bits uint32) { r.record("MemoryBarrier", bits) },

		ClearBufferfv: func(buf uint32, db int32, v [4]float32) { r.record("ClearBufferfv", buf, db, v) },
		ClearBufferiv: func(buf uint32, db int32, v [4]int32) { r.record("ClearBufferiv", buf, db, v) },
		ClearBufferfi: func(buf uint32, db int32, depth float32, stencil int32) {
			r.record("ClearBufferfi", buf, db, depth, stencil)
		},
		BlitFramebuffer: func(sx0, sy0, sx1, sy1, dx0, dy0, dx1, dy1 int32, mask, filter uint32) {
			r.record("BlitFramebuffer", sx0, sy0, sx1, sy1, dx0, dy0, dx1, dy1, mask, filter)
		},
		CopyBufferSubData: func(rt, wt uint32, ro, wo, size int) {
			r.record("CopyBufferSubData", rt, wt, ro, wo, size)
		},
		BufferSubData: func(target uint32, offset int, data []byte) {
			r.record("BufferSubData", target, offset, slices.Clone(data))
		},

		BeginQuery:     func(target, q uint32) { r.record("BeginQuery", target, q) },
		EndQuery:       func(target uint32) { r.record("EndQuery", target) },
		QueryCounter:   func(q, target uint32) { r.record("QueryCounter", q, target) },
		PushDebugGroup: func(msg string) { r.record("PushDebugGroup", msg) },
		PopDebugGroup:  func() { r.record("PopDebugGroup") },

		DeleteFramebuffer: func(fb uint32) { r.record("DeleteFramebuffer", fb) },
		DeleteProgram:     func(p uint32) { r.record("DeleteProgram", p) },
		DeleteVertexArray: func(v uint32) { r.record("DeleteVertexArray", v) },
		DeleteBuffer:      func(b uint32) { r.record("DeleteBuffer", b) },

		FenceSync:      r.fenceSync,
		ClientWaitSync: r.clientWaitSync,
		DeleteSync:     r.deleteSync,
		SwapBuffers:    r.swapBuffers,
	}
}
