// Package statecache tracks what the live graphics context currently has
// bound, so that redundant state changes can be skipped during replay.
//
// Every setter compares the requested state with the cached state and
// issues the native call only on a miss. Value state (viewports, scissors,
// colors, masks) is compared structurally. Bound objects (programs, vertex
// arrays, framebuffers, buffers) are compared by name.
//
// All state-changing native calls that touch cached state must go through
// a Cache. Object deletion goes through the Delete* methods, which drop the
// matching bindings. Invalidate forgets everything after state was changed
// behind the cache's back.
//
// A Cache is owned by the context goroutine and is not safe for concurrent
// use.
package statecache

import (
	"github.com/gogpu/vkgl/backend"
	"github.com/gogpu/vkgl/encoding"
	"github.com/gogpu/wgpu/hal/gles/gl"
)

// Limits on indexed state tracked by the cache. Indices past these limits
// are passed through uncached.
const (
	MaxViewports      = 16
	MaxVertexBindings = 16
)

// Stats counts cache hits (native call skipped) and misses (native call
// issued).
type Stats struct {
	Hits   uint64
	Misses uint64
}

type rect struct {
	x, y, w, h float32
}

type irect struct {
	x, y, w, h int32
}

type depthRange struct {
	near, far float32
}

type stencilFunc struct {
	fn   uint32
	ref  int32
	mask uint32
}

type vertexBuffer struct {
	buffer uint32
	offset int
	stride int32
}

// Cache is a snapshot of the context's bindings.
type Cache struct {
	p *backend.Procs

	viewports     [MaxViewports]rect
	viewportValid uint32
	depths        [MaxViewports]depthRange
	depthValid    uint32
	scissors      [MaxViewports]irect
	scissorValid  uint32

	program      uint32
	programValid bool

	vertexArray      uint32
	vertexArrayValid bool

	drawFB      uint32
	drawFBValid bool
	fbHeight    int32
	readFB      uint32
	readFBValid bool

	buffers map[uint32]uint32
	caps    map[uint32]bool

	blend      [4]float32
	blendValid bool

	lineWidth      float32
	lineWidthValid bool

	polygonOffset      [3]float32
	polygonOffsetValid bool

	stencilFuncs      [2]stencilFunc
	stencilFuncValid  [2]bool
	stencilWrite      [2]uint32
	stencilWriteValid [2]bool

	vertexBuffers     [MaxVertexBindings]vertexBuffer
	vertexBufferValid uint32

	stats Stats
}

// New creates a cache in front of p. The context is assumed to be in its
// initial state, so only the depth range is known up front.
func New(p *backend.Procs) *Cache {
	c := &Cache{
		p:       p,
		buffers: make(map[uint32]uint32),
		caps:    make(map[uint32]bool),
	}
	c.resetDepth()
	return c
}

func (c *Cache) resetDepth() {
	for i := range c.depths {
		c.depths[i] = depthRange{0, 1}
	}
	c.depthValid = 1<<MaxViewports - 1
}

// Invalidate forgets every cached binding. The next setter of each kind
// issues its native call unconditionally.
func (c *Cache) Invalidate() {
	c.viewportValid = 0
	c.depthValid = 0
	c.scissorValid = 0
	c.programValid = false
	c.vertexArrayValid = false
	c.drawFBValid = false
	c.readFBValid = false
	clear(c.buffers)
	clear(c.caps)
	c.blendValid = false
	c.lineWidthValid = false
	c.polygonOffsetValid = false
	c.stencilFuncValid = [2]bool{}
	c.stencilWriteValid = [2]bool{}
	c.vertexBufferValid = 0
	slogger().Debug("statecache: invalidated")
}

// Stats returns the hit and miss counters.
func (c *Cache) Stats() Stats {
	return c.stats
}

// AssumeDefaultFramebuffer records that framebuffer 0 is bound for both
// drawing and reading, as it is on a fresh context, with the given height.
func (c *Cache) AssumeDefaultFramebuffer(height int32) {
	c.drawFB, c.drawFBValid = 0, true
	c.readFB, c.readFBValid = 0, true
	c.fbHeight = height
}

// FramebufferHeight returns the height of the bound draw framebuffer used
// for the Y flip.
func (c *Cache) FramebufferHeight() int32 {
	return c.fbHeight
}

func (c *Cache) hit() bool {
	c.stats.Hits++
	return false
}

func (c *Cache) miss() bool {
	c.stats.Misses++
	return true
}

// FlipY converts a top-left origin span [y, y+height) into the backend's
// bottom-left origin for a target of fbHeight rows.
func FlipY(y, height, fbHeight float32) float32 {
	return fbHeight - (height + y)
}

// SetViewport sets viewport index from a top-left origin viewport. The
// rectangle is flipped into backend coordinates before it is compared or
// stored. It reports whether a native call was issued.
func (c *Cache) SetViewport(index uint32, vp encoding.Viewport) bool {
	r := rect{vp.X, FlipY(vp.Y, vp.Height, float32(c.fbHeight)), vp.Width, vp.Height}
	d := depthRange{vp.MinDepth, vp.MaxDepth}

	issued := false
	if index >= MaxViewports {
		c.p.Viewport(index, r.x, r.y, r.w, r.h)
		c.p.DepthRange(index, d.near, d.far)
		return c.miss()
	}
	bit := uint32(1) << index
	if c.viewportValid&bit == 0 || c.viewports[index] != r {
		c.p.Viewport(index, r.x, r.y, r.w, r.h)
		c.viewports[index] = r
		c.viewportValid |= bit
		issued = true
	}
	if c.depthValid&bit == 0 || c.depths[index] != d {
		c.p.DepthRange(index, d.near, d.far)
		c.depths[index] = d
		c.depthValid |= bit
		issued = true
	}
	if issued {
		return c.miss()
	}
	return c.hit()
}

// SetScissor sets scissor index from a top-left origin rectangle.
func (c *Cache) SetScissor(index uint32, sc encoding.Rect) bool {
	r := irect{sc.X, c.fbHeight - (int32(sc.Height) + sc.Y), int32(sc.Width), int32(sc.Height)}
	if index >= MaxViewports {
		c.p.Scissor(index, r.x, r.y, r.w, r.h)
		return c.miss()
	}
	bit := uint32(1) << index
	if c.scissorValid&bit != 0 && c.scissors[index] == r {
		return c.hit()
	}
	c.p.Scissor(index, r.x, r.y, r.w, r.h)
	c.scissors[index] = r
	c.scissorValid |= bit
	return c.miss()
}

// UseProgram binds program.
func (c *Cache) UseProgram(program uint32) bool {
	if c.programValid && c.program == program {
		return c.hit()
	}
	c.p.UseProgram(program)
	c.program, c.programValid = program, true
	return c.miss()
}

// BindVertexArray binds vertexArray.
func (c *Cache) BindVertexArray(vertexArray uint32) bool {
	if c.vertexArrayValid && c.vertexArray == vertexArray {
		return c.hit()
	}
	c.p.BindVertexArray(vertexArray)
	c.vertexArray, c.vertexArrayValid = vertexArray, true
	// Vertex buffer bindings are vertex array state.
	c.vertexBufferValid = 0
	delete(c.buffers, gl.ELEMENT_ARRAY_BUFFER)
	return c.miss()
}

// BindDrawFramebuffer binds fb for drawing. height is the framebuffer's
// height in pixels and becomes the reference for the Y flip.
func (c *Cache) BindDrawFramebuffer(fb uint32, height int32) bool {
	c.fbHeight = height
	if c.drawFBValid && c.drawFB == fb {
		return c.hit()
	}
	c.p.BindFramebuffer(gl.DRAW_FRAMEBUFFER, fb)
	c.drawFB, c.drawFBValid = fb, true
	return c.miss()
}

// BindReadFramebuffer binds fb for reading.
func (c *Cache) BindReadFramebuffer(fb uint32) bool {
	if c.readFBValid && c.readFB == fb {
		return c.hit()
	}
	c.p.BindFramebuffer(gl.READ_FRAMEBUFFER, fb)
	c.readFB, c.readFBValid = fb, true
	return c.miss()
}

// BindBuffer binds buffer to a non-indexed target.
func (c *Cache) BindBuffer(target, buffer uint32) bool {
	if cur, ok := c.buffers[target]; ok && cur == buffer {
		return c.hit()
	}
	c.p.BindBuffer(target, buffer)
	c.buffers[target] = buffer
	return c.miss()
}

// BindBufferRange binds a range of buffer to an indexed target. The call is
// never skipped. It also rebinds the generic target, which the cache records.
func (c *Cache) BindBufferRange(target, index, buffer uint32, offset, size int) {
	c.p.BindBufferRange(target, index, buffer, offset, size)
	c.buffers[target] = buffer
	c.stats.Misses++
}

// ForgetIndexedTargets drops the generic bindings of the indexed buffer
// targets. Call it after a native call bound indexed buffers without going
// through the cache.
func (c *Cache) ForgetIndexedTargets() {
	delete(c.buffers, gl.UNIFORM_BUFFER)
	delete(c.buffers, gl.SHADER_STORAGE_BUFFER)
	delete(c.buffers, backend.ATOMIC_COUNTER_BUFFER)
}

// BindVertexBuffer binds a vertex buffer to binding.
func (c *Cache) BindVertexBuffer(binding, buffer uint32, offset int, stride int32) bool {
	vb := vertexBuffer{buffer, offset, stride}
	if binding >= MaxVertexBindings {
		c.p.BindVertexBuffer(binding, buffer, offset, stride)
		return c.miss()
	}
	bit := uint32(1) << binding
	if c.vertexBufferValid&bit != 0 && c.vertexBuffers[binding] == vb {
		return c.hit()
	}
	c.p.BindVertexBuffer(binding, buffer, offset, stride)
	c.vertexBuffers[binding] = vb
	c.vertexBufferValid |= bit
	return c.miss()
}

// SetCapability enables or disables a capability such as SCISSOR_TEST.
func (c *Cache) SetCapability(capability uint32, enabled bool) bool {
	if cur, ok := c.caps[capability]; ok && cur == enabled {
		return c.hit()
	}
	if enabled {
		c.p.Enable(capability)
	} else {
		c.p.Disable(capability)
	}
	c.caps[capability] = enabled
	return c.miss()
}

// Capability reports the cached state of capability. known is false when
// nothing has set it since creation or the last Invalidate.
func (c *Cache) Capability(capability uint32) (enabled, known bool) {
	enabled, known = c.caps[capability]
	return enabled, known
}

// SetBlendColor sets the blend constant color.
func (c *Cache) SetBlendColor(color [4]float32) bool {
	if c.blendValid && c.blend == color {
		return c.hit()
	}
	c.p.BlendColor(color[0], color[1], color[2], color[3])
	c.blend, c.blendValid = color, true
	return c.miss()
}

// SetLineWidth sets the line width. It is a no-op when the backend lacks
// the entry point.
func (c *Cache) SetLineWidth(width float32) bool {
	if c.p.LineWidth == nil {
		return false
	}
	if c.lineWidthValid && c.lineWidth == width {
		return c.hit()
	}
	c.p.LineWidth(width)
	c.lineWidth, c.lineWidthValid = width, true
	return c.miss()
}

// SetPolygonOffset sets the depth bias. It is a no-op when the backend
// lacks the entry point.
func (c *Cache) SetPolygonOffset(factor, units, clamp float32) bool {
	if c.p.PolygonOffset == nil {
		return false
	}
	v := [3]float32{factor, units, clamp}
	if c.polygonOffsetValid && c.polygonOffset == v {
		return c.hit()
	}
	c.p.PolygonOffset(factor, units, clamp)
	c.polygonOffset, c.polygonOffsetValid = v, true
	return c.miss()
}

func faceIndex(face uint32) int {
	if face == gl.BACK {
		return 1
	}
	return 0
}

// SetStencilFunc sets the stencil test function of one face (FRONT or
// BACK).
func (c *Cache) SetStencilFunc(face, fn uint32, ref int32, mask uint32) bool {
	i := faceIndex(face)
	s := stencilFunc{fn, ref, mask}
	if c.stencilFuncValid[i] && c.stencilFuncs[i] == s {
		return c.hit()
	}
	c.p.StencilFuncSeparate(face, fn, ref, mask)
	c.stencilFuncs[i], c.stencilFuncValid[i] = s, true
	return c.miss()
}

// SetStencilWriteMask sets the stencil write mask of one face.
func (c *Cache) SetStencilWriteMask(face, mask uint32) bool {
	i := faceIndex(face)
	if c.stencilWriteValid[i] && c.stencilWrite[i] == mask {
		return c.hit()
	}
	c.p.StencilMaskSeparate(face, mask)
	c.stencilWrite[i], c.stencilWriteValid[i] = mask, true
	return c.miss()
}

// DeleteFramebuffer deletes fb and forgets any binding of it.
func (c *Cache) DeleteFramebuffer(fb uint32) {
	if c.p.DeleteFramebuffer != nil {
		c.p.DeleteFramebuffer(fb)
	}
	if c.drawFBValid && c.drawFB == fb {
		c.drawFBValid = false
	}
	if c.readFBValid && c.readFB == fb {
		c.readFBValid = false
	}
}

// DeleteProgram deletes program and forgets it if bound.
func (c *Cache) DeleteProgram(program uint32) {
	if c.p.DeleteProgram != nil {
		c.p.DeleteProgram(program)
	}
	if c.programValid && c.program == program {
		c.programValid = false
	}
}

// DeleteVertexArray deletes vertexArray and forgets it if bound.
func (c *Cache) DeleteVertexArray(vertexArray uint32) {
	if c.p.DeleteVertexArray != nil {
		c.p.DeleteVertexArray(vertexArray)
	}
	if c.vertexArrayValid && c.vertexArray == vertexArray {
		c.vertexArrayValid = false
		c.vertexBufferValid = 0
	}
}

// DeleteBuffer deletes buffer and forgets every binding of it.
func (c *Cache) DeleteBuffer(buffer uint32) {
	if c.p.DeleteBuffer != nil {
		c.p.DeleteBuffer(buffer)
	}
	for target, b := range c.buffers {
		if b == buffer {
			delete(c.buffers, target)
		}
	}
	for i := range c.vertexBuffers {
		if c.vertexBuffers[i].buffer == buffer {
			c.vertexBufferValid &^= 1 << i
		}
	}
}
