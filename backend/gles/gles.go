package gles

import (
	"errors"
	"runtime"
	"unsafe"

	"github.com/gogpu/vkgl/backend"
	"github.com/gogpu/wgpu/hal/gles/gl"
)

// ErrNoContext is returned by New when Config.GL is nil.
var ErrNoContext = errors.New("gles: no GL context")

// GL is the part of a loaded GL context the adapter calls. On linux
// *gl.Context implements it.
type GL interface {
	GetError() uint32
	Flush()
	Finish()
	Enable(capability uint32)
	Disable(capability uint32)
	Viewport(x, y, width, height int32)
	Scissor(x, y, width, height int32)
	BlendColor(r, g, b, a float32)
	StencilFuncSeparate(face, fn uint32, ref int32, mask uint32)
	StencilMaskSeparate(face, mask uint32)
	UseProgram(program uint32)
	BindVertexArray(array uint32)
	BindFramebuffer(target, framebuffer uint32)
	BindBuffer(target, buffer uint32)
	BindBufferRange(target, index, buffer uint32, offset, size int)
	DrawArraysInstanced(mode uint32, first, count, instanceCount int32)
	DrawElementsInstanced(mode uint32, count int32, typ uint32, indices uintptr, instanceCount int32)
	DispatchCompute(x, y, z uint32)
	DispatchComputeIndirect(indirect uintptr)
	MemoryBarrier(barriers uint32)
	ClearColor(r, g, b, a float32)
	Clear(mask uint32)
	BlitFramebuffer(srcX0, srcY0, srcX1, srcY1, dstX0, dstY0, dstX1, dstY1 int32, mask, filter uint32)
	BufferSubData(target uint32, offset, size int, data uintptr)
	DeleteFramebuffers(framebuffers ...uint32)
	DeleteProgram(program uint32)
	DeleteVertexArrays(arrays ...uint32)
	DeleteBuffers(buffers ...uint32)
}

// Config describes one GL context.
type Config struct {
	// GL is the loaded context.
	GL GL

	// Extra supplies entry points GL does not expose, typically loaded
	// by the caller from the same proc address function. Non-nil fields
	// take precedence over the adapter's own implementation.
	Extra *backend.Procs

	// SwapBuffers presents the default framebuffer. When nil, presenting
	// only flushes.
	SwapBuffers func(framebuffer uint32) error
}

// Register registers the gles backend. open runs on the goroutine that
// owns the context each time the backend is opened.
func Register(open func() (Config, error)) {
	backend.Register(backend.NameGLES, func() backend.Backend { return glesBackend{open: open} })
}

type glesBackend struct {
	open func() (Config, error)
}

func (glesBackend) Name() string { return backend.NameGLES }

func (b glesBackend) Open() (*backend.Procs, error) {
	cfg, err := b.open()
	if err != nil {
		return nil, err
	}
	return New(cfg)
}

// adapter holds the state the emulated entry points need. It is only
// touched from the context goroutine.
type adapter struct {
	gl     GL
	errs   []uint32
	warned map[string]bool

	nextSync backend.Sync
	syncs    map[backend.Sync]bool
}

func (a *adapter) fail(proc string) {
	a.errs = append(a.errs, gl.INVALID_OPERATION)
	if !a.warned[proc] {
		a.warned[proc] = true
		slogger().Warn("gles: entry point unavailable", "proc", proc)
	}
}

func (a *adapter) getError() uint32 {
	if len(a.errs) > 0 {
		code := a.errs[0]
		a.errs = a.errs[1:]
		return code
	}
	return a.gl.GetError()
}

// New builds the call table for cfg.
func New(cfg Config) (*backend.Procs, error) {
	if cfg.GL == nil {
		return nil, ErrNoContext
	}
	a := &adapter{
		gl:     cfg.GL,
		warned: make(map[string]bool),
		syncs:  make(map[backend.Sync]bool),
	}
	c := cfg.GL
	p := &backend.Procs{
		GetError: a.getError,
		Flush:    c.Flush,
		Finish:   c.Finish,

		Enable:  c.Enable,
		Disable: c.Disable,
		Viewport: func(index uint32, x, y, w, h float32) {
			if index != 0 {
				a.fail("ViewportIndexed")
				return
			}
			c.Viewport(int32(x), int32(y), int32(w), int32(h))
		},
		DepthRange: func(index uint32, near, far float32) {
			// The context keeps the default range; only that one is exact.
			if index != 0 || near != 0 || far != 1 {
				a.fail("DepthRange")
			}
		},
		Scissor: func(index uint32, x, y, w, h int32) {
			if index != 0 {
				a.fail("ScissorIndexed")
				return
			}
			c.Scissor(x, y, w, h)
		},
		BlendColor:          c.BlendColor,
		StencilFuncSeparate: c.StencilFuncSeparate,
		StencilMaskSeparate: c.StencilMaskSeparate,

		UseProgram:      c.UseProgram,
		BindVertexArray: c.BindVertexArray,
		BindFramebuffer: c.BindFramebuffer,
		DrawBuffers: func(bufs []uint32) {
			// Only the default routing is reachable without glDrawBuffers.
			if len(bufs) != 1 || bufs[0] != gl.COLOR_ATTACHMENT0 {
				a.fail("DrawBuffers")
			}
		},
		BindBuffer:      c.BindBuffer,
		BindBufferRange: c.BindBufferRange,
		BindVertexBuffer: func(uint32, uint32, int, int32) {
			a.fail("BindVertexBuffer")
		},
		BindDescriptorSet: func(uint32, uint32, uint64, []uint32) int {
			a.fail("BindDescriptorSet")
			return 0
		},

		DrawArraysInstancedBaseInstance: func(mode uint32, first, count, instances int32, baseInstance uint32) {
			if baseInstance != 0 {
				a.fail("DrawArraysInstancedBaseInstance")
				return
			}
			c.DrawArraysInstanced(mode, first, count, instances)
		},
		DrawElementsInstancedBaseVertexBaseInstance: func(mode uint32, count int32, typ uint32, offset uintptr, instances, baseVertex int32, baseInstance uint32) {
			if baseVertex != 0 || baseInstance != 0 {
				a.fail("DrawElementsInstancedBaseVertexBaseInstance")
				return
			}
			c.DrawElementsInstanced(mode, count, typ, offset, instances)
		},
		DrawArraysIndirect: func(uint32, uintptr) {
			a.fail("DrawArraysIndirect")
		},
		DrawElementsIndirect: func(uint32, uint32, uintptr) {
			a.fail("DrawElementsIndirect")
		},
		DispatchCompute:         c.DispatchCompute,
		DispatchComputeIndirect: c.DispatchComputeIndirect,
		MemoryBarrier:           c.MemoryBarrier,

		ClearBufferfv: func(buf uint32, drawBuffer int32, v [4]float32) {
			if buf != backend.COLOR || drawBuffer != 0 {
				a.fail("ClearBufferfv")
				return
			}
			c.ClearColor(v[0], v[1], v[2], v[3])
			c.Clear(gl.COLOR_BUFFER_BIT)
		},
		ClearBufferiv: func(uint32, int32, [4]int32) {
			a.fail("ClearBufferiv")
		},
		ClearBufferfi: func(uint32, int32, float32, int32) {
			a.fail("ClearBufferfi")
		},
		BlitFramebuffer: c.BlitFramebuffer,
		CopyBufferSubData: func(uint32, uint32, int, int, int) {
			a.fail("CopyBufferSubData")
		},
		BufferSubData: func(target uint32, offset int, data []byte) {
			if len(data) == 0 {
				return
			}
			c.BufferSubData(target, offset, len(data), uintptr(unsafe.Pointer(&data[0])))
			runtime.KeepAlive(data)
		},

		DeleteFramebuffer: func(fb uint32) { c.DeleteFramebuffers(fb) },
		DeleteProgram:     c.DeleteProgram,
		DeleteVertexArray: func(va uint32) { c.DeleteVertexArrays(va) },
		DeleteBuffer:      func(buf uint32) { c.DeleteBuffers(buf) },

		// Finish drains the pipeline, so a sync created afterwards is
		// already signaled.
		FenceSync: func() backend.Sync {
			c.Finish()
			a.nextSync++
			a.syncs[a.nextSync] = true
			return a.nextSync
		},
		ClientWaitSync: func(s backend.Sync, _ uint64) uint32 {
			if !a.syncs[s] {
				return gl.WAIT_FAILED
			}
			return gl.ALREADY_SIGNALED
		},
		DeleteSync: func(s backend.Sync) { delete(a.syncs, s) },
		SwapBuffers: func(uint32) error {
			c.Flush()
			return nil
		},
	}
	if cfg.SwapBuffers != nil {
		p.SwapBuffers = cfg.SwapBuffers
	}
	if cfg.Extra != nil {
		overlay(p, cfg.Extra)
	}
	return p, p.Validate()
}

// overlay copies the non-nil entry points of extra into p. GetError
// stays with the adapter so emulation failures are not lost.
func overlay(p, extra *backend.Procs) {
	if extra.Viewport != nil {
		p.Viewport = extra.Viewport
	}
	if extra.DepthRange != nil {
		p.DepthRange = extra.DepthRange
	}
	if extra.Scissor != nil {
		p.Scissor = extra.Scissor
	}
	if extra.LineWidth != nil {
		p.LineWidth = extra.LineWidth
	}
	if extra.PolygonOffset != nil {
		p.PolygonOffset = extra.PolygonOffset
	}
	if extra.DrawBuffers != nil {
		p.DrawBuffers = extra.DrawBuffers
	}
	if extra.InvalidateFramebuffer != nil {
		p.InvalidateFramebuffer = extra.InvalidateFramebuffer
	}
	if extra.BindVertexBuffer != nil {
		p.BindVertexBuffer = extra.BindVertexBuffer
	}
	if extra.BindDescriptorSet != nil {
		p.BindDescriptorSet = extra.BindDescriptorSet
	}
	if extra.DrawArraysInstancedBaseInstance != nil {
		p.DrawArraysInstancedBaseInstance = extra.DrawArraysInstancedBaseInstance
	}
	if extra.DrawElementsInstancedBaseVertexBaseInstance != nil {
		p.DrawElementsInstancedBaseVertexBaseInstance = extra.DrawElementsInstancedBaseVertexBaseInstance
	}
	if extra.DrawArraysIndirect != nil {
		p.DrawArraysIndirect = extra.DrawArraysIndirect
	}
	if extra.DrawElementsIndirect != nil {
		p.DrawElementsIndirect = extra.DrawElementsIndirect
	}
	if extra.ClearBufferfv != nil {
		p.ClearBufferfv = extra.ClearBufferfv
	}
	if extra.ClearBufferiv != nil {
		p.ClearBufferiv = extra.ClearBufferiv
	}
	if extra.ClearBufferfi != nil {
		p.ClearBufferfi = extra.ClearBufferfi
	}
	if extra.CopyBufferSubData != nil {
		p.CopyBufferSubData = extra.CopyBufferSubData
	}
	if extra.BeginQuery != nil {
		p.BeginQuery = extra.BeginQuery
	}
	if extra.EndQuery != nil {
		p.EndQuery = extra.EndQuery
	}
	if extra.QueryCounter != nil {
		p.QueryCounter = extra.QueryCounter
	}
	if extra.PushDebugGroup != nil {
		p.PushDebugGroup = extra.PushDebugGroup
	}
	if extra.PopDebugGroup != nil {
		p.PopDebugGroup = extra.PopDebugGroup
	}
	if extra.FenceSync != nil && extra.ClientWaitSync != nil && extra.DeleteSync != nil {
		p.FenceSync = extra.FenceSync
		p.ClientWaitSync = extra.ClientWaitSync
		p.DeleteSync = extra.DeleteSync
	}
}
