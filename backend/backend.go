package backend

import (
	"fmt"
	"strings"
)

// Sync is a backend fence sync object.
type Sync uint64

// Procs is the table of native calls the replay engine issues. A backend
// fills the table once at context creation. The core never calls a driver
// directly, only through these fields, and every call happens on the
// goroutine that owns the context.
//
// Fields marked optional may be left nil. The engine skips the
// corresponding commands.
//
// Coordinates passed to Viewport, Scissor and BlitFramebuffer use the
// backend's bottom-left origin.
type Procs struct {
	// Errors and flushing.
	GetError func() uint32
	Flush    func()
	Finish   func()

	// Fixed function state.
	Enable              func(capability uint32)
	Disable             func(capability uint32)
	Viewport            func(index uint32, x, y, width, height float32)
	DepthRange          func(index uint32, near, far float32)
	Scissor             func(index uint32, x, y, width, height int32)
	BlendColor          func(r, g, b, a float32)
	StencilFuncSeparate func(face, fn uint32, ref int32, mask uint32)
	StencilMaskSeparate func(face, mask uint32)
	LineWidth           func(width float32)                // optional
	PolygonOffset       func(factor, units, clamp float32) // optional

	// Object bindings. BindDescriptorSet binds an opaque descriptor set
	// owned by the resource layer and returns how many dynamic offsets it
	// consumed.
	UseProgram            func(program uint32)
	BindVertexArray       func(vertexArray uint32)
	BindFramebuffer       func(target, framebuffer uint32)
	DrawBuffers           func(buffers []uint32)
	InvalidateFramebuffer func(target uint32, attachments []uint32) // optional
	BindBuffer            func(target, buffer uint32)
	BindBufferRange       func(target, index, buffer uint32, offset, size int)
	BindVertexBuffer      func(binding, buffer uint32, offset int, stride int32)
	BindDescriptorSet     func(bindPoint, set uint32, handle uint64, dynamicOffsets []uint32) int

	// Draws and dispatches. Indirect offsets are relative to the buffer
	// bound to the matching indirect target.
	DrawArraysInstancedBaseInstance             func(mode uint32, first, count, instanceCount int32, baseInstance uint32)
	DrawElementsInstancedBaseVertexBaseInstance func(mode uint32, count int32, typ uint32, offset uintptr, instanceCount, baseVertex int32, baseInstance uint32)
	DrawArraysIndirect                          func(mode uint32, offset uintptr)
	DrawElementsIndirect                        func(mode, typ uint32, offset uintptr)
	DispatchCompute                             func(x, y, z uint32)
	DispatchComputeIndirect                     func(offset uintptr)
	MemoryBarrier                               func(barriers uint32)

	// Transfers and clears. ClearBuffer* operate on the bound draw
	// framebuffer and honor the scissor test.
	ClearBufferfv     func(buffer uint32, drawBuffer int32, value [4]float32)
	ClearBufferiv     func(buffer uint32, drawBuffer int32, value [4]int32)
	ClearBufferfi     func(buffer uint32, drawBuffer int32, depth float32, stencil int32)
	BlitFramebuffer   func(srcX0, srcY0, srcX1, srcY1, dstX0, dstY0, dstX1, dstY1 int32, mask, filter uint32)
	CopyBufferSubData func(readTarget, writeTarget uint32, readOffset, writeOffset, size int)
	BufferSubData     func(target uint32, offset int, data []byte)

	// Queries and debug groups.
	BeginQuery     func(target, query uint32) // optional
	EndQuery       func(target uint32)        // optional
	QueryCounter   func(query, target uint32) // optional
	PushDebugGroup func(message string)       // optional
	PopDebugGroup  func()                     // optional

	// Object deletion, routed through the state cache.
	DeleteFramebuffer func(framebuffer uint32) // optional
	DeleteProgram     func(program uint32)     // optional
	DeleteVertexArray func(vertexArray uint32) // optional
	DeleteBuffer      func(buffer uint32)      // optional

	// Synchronization and presentation. ClientWaitSync returns one of
	// ALREADY_SIGNALED, CONDITION_SATISFIED, TIMEOUT_EXPIRED or WAIT_FAILED.
	FenceSync      func() Sync
	ClientWaitSync func(s Sync, timeoutNs uint64) uint32
	DeleteSync     func(s Sync)
	SwapBuffers    func(framebuffer uint32) error
}

// Validate checks that every required entry point is present.
func (p *Procs) Validate() error {
	if p == nil {
		return ErrNilProcs
	}
	required := []struct {
		name string
		set  bool
	}{
		{"GetError", p.GetError != nil},
		{"Flush", p.Flush != nil},
		{"Finish", p.Finish != nil},
		{"Enable", p.Enable != nil},
		{"Disable", p.Disable != nil},
		{"Viewport", p.Viewport != nil},
		{"DepthRange", p.DepthRange != nil},
		{"Scissor", p.Scissor != nil},
		{"BlendColor", p.BlendColor != nil},
		{"StencilFuncSeparate", p.StencilFuncSeparate != nil},
		{"StencilMaskSeparate", p.StencilMaskSeparate != nil},
		{"UseProgram", p.UseProgram != nil},
		{"BindVertexArray", p.BindVertexArray != nil},
		{"BindFramebuffer", p.BindFramebuffer != nil},
		{"DrawBuffers", p.DrawBuffers != nil},
		{"BindBuffer", p.BindBuffer != nil},
		{"BindBufferRange", p.BindBufferRange != nil},
		{"BindVertexBuffer", p.BindVertexBuffer != nil},
		{"BindDescriptorSet", p.BindDescriptorSet != nil},
		{"DrawArraysInstancedBaseInstance", p.DrawArraysInstancedBaseInstance != nil},
		{"DrawElementsInstancedBaseVertexBaseInstance", p.DrawElementsInstancedBaseVertexBaseInstance != nil},
		{"DrawArraysIndirect", p.DrawArraysIndirect != nil},
		{"DrawElementsIndirect", p.DrawElementsIndirect != nil},
		{"DispatchCompute", p.DispatchCompute != nil},
		{"DispatchComputeIndirect", p.DispatchComputeIndirect != nil},
		{"MemoryBarrier", p.MemoryBarrier != nil},
		{"ClearBufferfv", p.ClearBufferfv != nil},
		{"ClearBufferiv", p.ClearBufferiv != nil},
		{"ClearBufferfi", p.ClearBufferfi != nil},
		{"BlitFramebuffer", p.BlitFramebuffer != nil},
		{"CopyBufferSubData", p.CopyBufferSubData != nil},
		{"BufferSubData", p.BufferSubData != nil},
		{"FenceSync", p.FenceSync != nil},
		{"ClientWaitSync", p.ClientWaitSync != nil},
		{"DeleteSync", p.DeleteSync != nil},
		{"SwapBuffers", p.SwapBuffers != nil},
	}
	var missing []string
	for _, r := range required {
		if !r.set {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingProc, strings.Join(missing, ", "))
	}
	return nil
}
