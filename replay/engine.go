// Package replay turns encoded command lists into native calls.
//
// An Engine walks a list once, in record order, and applies each command
// through the context state cache and the backend call table. It never
// stops early: native errors are collected after the walk, so a list
// either replays completely or reports the first error the backend raised.
//
// An Engine belongs to the goroutine that owns the graphics context.
package replay

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math/bits"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/vkgl/backend"
	"github.com/gogpu/vkgl/encoding"
	"github.com/gogpu/vkgl/internal/statecache"
	"github.com/gogpu/wgpu/hal/gles/gl"
)

// maxErrorDrain bounds the GetError loop. A lost context may report an
// error on every call.
const maxErrorDrain = 32

// DefaultPushConstantSize is the byte size bound to the push constant
// uniform block when Options.PushConstantSize is zero.
const DefaultPushConstantSize = 256

// Options configures an Engine.
type Options struct {
	// DefaultFramebufferHeight is the height of framebuffer 0, the target
	// of commands recorded outside any render pass.
	DefaultFramebufferHeight int32

	// PushConstantBuffer names the uniform buffer that receives push
	// constant updates. Zero drops push constants.
	PushConstantBuffer  uint32
	PushConstantBinding uint32
	PushConstantSize    int
}

// Stats counts replay work since the engine was created.
type Stats struct {
	Lists    uint64
	Commands uint64
	Draws    uint64
	Errors   uint64
}

type pipeline struct {
	mode        uint32
	strides     [statecache.MaxVertexBindings]uint32
	stencilFunc [2]uint32
}

type renderPass struct {
	active      bool
	framebuffer uint32
	height      int32
	area        encoding.Rect
}

// state is derived from the commands walked so far. It does not outlive a
// primary list.
type state struct {
	gfx pipeline

	indexBuffer uint32
	indexOffset uint64
	indexType   uint32
	indexSize   uint64

	vertex      [statecache.MaxVertexBindings]encoding.VertexBinding
	vertexSet   uint32
	vertexDirty uint32

	stencilRef  [2]int32
	stencilMask [2]uint32

	viewports   [statecache.MaxViewports]encoding.Viewport
	viewportSet uint32
	scissors    [statecache.MaxViewports]encoding.Rect
	scissorSet  uint32

	pass renderPass
}

func (s *state) reset() {
	*s = state{
		gfx:         pipeline{mode: gl.TRIANGLES},
		indexType:   gl.UNSIGNED_INT,
		indexSize:   4,
		stencilMask: [2]uint32{^uint32(0), ^uint32(0)},
	}
}

// Engine replays command lists.
type Engine struct {
	p     *backend.Procs
	cache *statecache.Cache
	opts  Options

	decoders  []*encoding.Decoder
	scratch   []byte
	words     []uint32
	skipped   map[string]bool
	pushBound bool

	st    state
	stats Stats
}

// New creates an engine issuing calls through p. The context is assumed to
// be fresh, with framebuffer 0 bound.
func New(p *backend.Procs, opts Options) *Engine {
	if opts.PushConstantSize <= 0 {
		opts.PushConstantSize = DefaultPushConstantSize
	}
	c := statecache.New(p)
	c.AssumeDefaultFramebuffer(opts.DefaultFramebufferHeight)
	e := &Engine{
		p:       p,
		cache:   c,
		opts:    opts,
		skipped: make(map[string]bool),
	}
	e.st.reset()
	return e
}

// Invalidate forgets all cached context state, for use after the context
// was changed outside the engine. The scissor test is disabled so that
// render passes know whether a stale scissor can clip them.
func (e *Engine) Invalidate() {
	e.cache.Invalidate()
	e.cache.SetCapability(gl.SCISSOR_TEST, false)
	e.pushBound = false
}

// Cache returns the engine's state cache.
func (e *Engine) Cache() *statecache.Cache {
	return e.cache
}

// Stats returns the replay counters.
func (e *Engine) Stats() Stats {
	return e.stats
}

// Replay applies every command of l, secondaries included, then drains the
// backend error queue. The first error code is returned as *backend.Error.
func (e *Engine) Replay(l *encoding.List) error {
	e.st.reset()
	e.walk(l, 0)
	err := e.drainErrors()
	if slogger().Enabled(context.Background(), slog.LevelDebug) {
		cs := e.cache.Stats()
		slogger().Debug("replay: list done",
			"commands", l.Len(),
			"secondaries", l.Secondaries(),
			"cacheHits", cs.Hits,
			"cacheMisses", cs.Misses)
	}
	return err
}

func (e *Engine) walk(l *encoding.List, depth int) {
	if depth == len(e.decoders) {
		e.decoders = append(e.decoders, &encoding.Decoder{})
	}
	d := e.decoders[depth]
	d.Reset(l)
	e.stats.Lists++
	for d.Next() {
		e.stats.Commands++
		e.apply(d, depth)
	}
	d.Reset(nil)
}

func (e *Engine) drainErrors() error {
	var first uint32
	for range maxErrorDrain {
		code := e.p.GetError()
		if code == gl.NO_ERROR {
			break
		}
		if first == gl.NO_ERROR {
			first = code
		}
	}
	if first == gl.NO_ERROR {
		return nil
	}
	e.stats.Errors++
	err := &backend.Error{Code: first}
	slogger().Error("replay: backend error", "err", err)
	return err
}

// skip logs the first time an optional entry point is missing.
func (e *Engine) skip(name string) {
	if e.skipped[name] {
		return
	}
	e.skipped[name] = true
	slogger().Debug("replay: optional entry point missing, command skipped", "proc", name)
}

func (e *Engine) apply(d *encoding.Decoder, depth int) {
	switch op := d.Op(); op {
	case encoding.OpBindPipeline:
		e.bindPipeline(d.BindPipeline())
	case encoding.OpSetViewport:
		e.setViewport(d.SetViewport())
	case encoding.OpSetScissor:
		e.setScissor(d.SetScissor())
	case encoding.OpSetLineWidth:
		if e.p.LineWidth == nil {
			e.skip("LineWidth")
			return
		}
		e.cache.SetLineWidth(d.SetLineWidth())
	case encoding.OpSetDepthBias:
		if e.p.PolygonOffset == nil {
			e.skip("PolygonOffset")
			return
		}
		c := d.SetDepthBias()
		e.cache.SetPolygonOffset(c.Slope, c.Constant, c.Clamp)
	case encoding.OpSetBlendConstants:
		e.cache.SetBlendColor(d.SetBlendConstants())
	case encoding.OpSetStencilCompareMask:
		c := d.Stencil()
		e.eachFace(c.FaceMask, func(i int) { e.st.stencilMask[i] = c.Value })
		e.applyStencilFunc(c.FaceMask)
	case encoding.OpSetStencilReference:
		c := d.Stencil()
		e.eachFace(c.FaceMask, func(i int) { e.st.stencilRef[i] = int32(c.Value) })
		e.applyStencilFunc(c.FaceMask)
	case encoding.OpSetStencilWriteMask:
		c := d.Stencil()
		e.eachFace(c.FaceMask, func(i int) { e.cache.SetStencilWriteMask(glFace(i), c.Value) })
	case encoding.OpBindDescriptorSets:
		e.bindDescriptorSets(d.BindDescriptorSets())
	case encoding.OpBindIndexBuffer:
		c := d.BindIndexBuffer()
		e.st.indexBuffer = c.Buffer
		e.st.indexOffset = c.Offset
		e.st.indexType, e.st.indexSize = indexType(c.Format)
	case encoding.OpBindVertexBuffers:
		e.bindVertexBuffers(d.BindVertexBuffers())
	case encoding.OpDraw:
		c := d.Draw()
		e.flushVertexBuffers()
		e.p.DrawArraysInstancedBaseInstance(e.st.gfx.mode,
			int32(c.FirstVertex), int32(c.VertexCount), int32(c.InstanceCount), c.FirstInstance)
		e.stats.Draws++
	case encoding.OpDrawIndexed:
		c := d.DrawIndexed()
		e.flushVertexBuffers()
		e.cache.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, e.st.indexBuffer)
		offset := e.st.indexOffset + uint64(c.FirstIndex)*e.st.indexSize
		e.p.DrawElementsInstancedBaseVertexBaseInstance(e.st.gfx.mode,
			int32(c.IndexCount), e.st.indexType, uintptr(offset),
			int32(c.InstanceCount), c.VertexOffset, c.FirstInstance)
		e.stats.Draws++
	case encoding.OpDrawIndirect, encoding.OpDrawIndexedIndirect:
		e.drawIndirect(op == encoding.OpDrawIndexedIndirect, d.DrawIndirect())
	case encoding.OpDispatch:
		c := d.Dispatch()
		e.p.DispatchCompute(c.X, c.Y, c.Z)
	case encoding.OpDispatchIndirect:
		c := d.DispatchIndirect()
		e.cache.BindBuffer(gl.DISPATCH_INDIRECT_BUFFER, c.Buffer)
		e.p.DispatchComputeIndirect(uintptr(c.Offset))
	case encoding.OpCopyBuffer:
		c := d.CopyBuffer()
		e.cache.BindBuffer(gl.COPY_READ_BUFFER, c.Src)
		e.cache.BindBuffer(gl.COPY_WRITE_BUFFER, c.Dst)
		for i := range c.Regions.Len() {
			r := c.Regions.At(i)
			e.p.CopyBufferSubData(gl.COPY_READ_BUFFER, gl.COPY_WRITE_BUFFER,
				int(r.SrcOffset), int(r.DstOffset), int(r.Size))
		}
	case encoding.OpUpdateBuffer:
		c := d.UpdateBuffer()
		e.scratch = c.Data.AppendTo(e.scratch[:0])
		e.cache.BindBuffer(gl.COPY_WRITE_BUFFER, c.Dst)
		e.p.BufferSubData(gl.COPY_WRITE_BUFFER, int(c.Offset), e.scratch)
	case encoding.OpFillBuffer:
		e.fillBuffer(d.FillBuffer())
	case encoding.OpBlitImage:
		e.blitImage(d.BlitImage())
	case encoding.OpClearColorImage:
		c := d.ClearColorImage()
		e.cache.BindDrawFramebuffer(c.Framebuffer, int32(c.Height))
		e.cache.SetCapability(gl.SCISSOR_TEST, false)
		e.p.ClearBufferfv(backend.COLOR, 0, c.Value.Color())
	case encoding.OpClearDepthStencilImage:
		c := d.ClearDepthStencilImage()
		e.cache.BindDrawFramebuffer(c.Framebuffer, int32(c.Height))
		e.cache.SetCapability(gl.SCISSOR_TEST, false)
		e.clearDepthStencil(c.AspectMask, c.Depth, c.Stencil)
	case encoding.OpClearAttachments:
		e.clearAttachments(d.ClearAttachments())
	case encoding.OpPipelineBarrier:
		c := d.PipelineBarrier()
		var mask uint32
		for i := range c.Barriers.Len() {
			mask |= barrierBits(c.Barriers.At(i).Dst)
		}
		if mask != 0 {
			e.p.MemoryBarrier(mask)
		}
	case encoding.OpPushConstants:
		e.pushConstants(d.PushConstants())
	case encoding.OpBeginRenderPass:
		e.beginRenderPass(d.BeginRenderPass())
	case encoding.OpNextSubpass:
		e.words = d.NextSubpass().AppendTo(e.words[:0])
		e.p.DrawBuffers(e.words)
	case encoding.OpEndRenderPass:
		discard := d.EndRenderPass()
		e.st.pass.active = false
		if discard.Len() == 0 {
			return
		}
		if e.p.InvalidateFramebuffer == nil {
			e.skip("InvalidateFramebuffer")
			return
		}
		e.words = discard.AppendTo(e.words[:0])
		e.p.InvalidateFramebuffer(gl.DRAW_FRAMEBUFFER, e.words)
	case encoding.OpExecuteCommands:
		e.executeCommands(d, depth)
	case encoding.OpBeginQuery:
		if e.p.BeginQuery == nil {
			e.skip("BeginQuery")
			return
		}
		c := d.BeginQuery()
		e.p.BeginQuery(c.Target, c.Query)
	case encoding.OpEndQuery:
		if e.p.EndQuery == nil {
			e.skip("EndQuery")
			return
		}
		e.p.EndQuery(d.EndQuery())
	case encoding.OpWriteTimestamp:
		if e.p.QueryCounter == nil {
			e.skip("QueryCounter")
			return
		}
		e.p.QueryCounter(d.WriteTimestamp(), backend.TIMESTAMP)
	case encoding.OpBeginDebugLabel:
		if e.p.PushDebugGroup == nil {
			e.skip("PushDebugGroup")
			return
		}
		e.p.PushDebugGroup(d.BeginDebugLabel().String())
	case encoding.OpEndDebugLabel:
		if e.p.PopDebugGroup == nil {
			e.skip("PopDebugGroup")
			return
		}
		e.p.PopDebugGroup()
	default:
		panic(fmt.Sprintf("replay: no handler for %v", op))
	}
}

func (e *Engine) bindPipeline(c encoding.CmdBindPipeline) {
	e.cache.UseProgram(c.Program)
	if c.BindPoint == encoding.BindPointCompute {
		return
	}
	if e.cache.BindVertexArray(c.VertexArray) {
		// The new vertex array starts with its own buffer bindings.
		e.st.vertexDirty = e.st.vertexSet
	}
	g := &e.st.gfx
	g.mode = primitiveMode(c.Topology)
	for i := range statecache.MaxVertexBindings {
		stride := uint32(0)
		if i < c.Strides.Len() {
			stride = c.Strides.At(i)
		}
		if g.strides[i] != stride {
			g.strides[i] = stride
			e.st.vertexDirty |= e.st.vertexSet & (1 << i)
		}
	}
	g.stencilFunc = c.StencilFunc
	e.applyStencilFunc(encoding.FaceFrontAndBack)
}

// setViewport stores the viewports and applies them against the bound
// framebuffer. BeginRenderPass applies them again for its own height.
func (e *Engine) setViewport(c encoding.CmdSetViewport) {
	for i := range c.Viewports.Len() {
		idx := c.First + uint32(i)
		vp := c.Viewports.At(i)
		if idx < statecache.MaxViewports {
			e.st.viewports[idx] = vp
			e.st.viewportSet |= 1 << idx
		}
		e.cache.SetViewport(idx, vp)
	}
}

func (e *Engine) setScissor(c encoding.CmdSetScissor) {
	e.cache.SetCapability(gl.SCISSOR_TEST, true)
	for i := range c.Scissors.Len() {
		idx := c.First + uint32(i)
		r := c.Scissors.At(i)
		if idx < statecache.MaxViewports {
			e.st.scissors[idx] = r
			e.st.scissorSet |= 1 << idx
		}
		e.cache.SetScissor(idx, r)
	}
}

func (e *Engine) eachFace(faceMask uint32, fn func(i int)) {
	if faceMask&encoding.FaceFront != 0 {
		fn(0)
	}
	if faceMask&encoding.FaceBack != 0 {
		fn(1)
	}
}

func glFace(i int) uint32 {
	if i == 1 {
		return gl.BACK
	}
	return gl.FRONT
}

// applyStencilFunc combines the pipeline's compare function with the
// dynamic reference and compare mask. Pipelines without a stencil test
// leave the function alone.
func (e *Engine) applyStencilFunc(faceMask uint32) {
	e.eachFace(faceMask, func(i int) {
		fn := e.st.gfx.stencilFunc[i]
		if fn == 0 {
			return
		}
		e.cache.SetStencilFunc(glFace(i), fn, e.st.stencilRef[i], e.st.stencilMask[i])
	})
}

func (e *Engine) bindDescriptorSets(c encoding.CmdBindDescriptorSets) {
	e.words = c.DynamicOffsets.AppendTo(e.words[:0])
	dyn := e.words
	for i := range c.Sets.Len() {
		n := e.p.BindDescriptorSet(c.BindPoint, c.FirstSet+uint32(i), c.Sets.At(i), dyn)
		dyn = dyn[min(n, len(dyn)):]
	}
	// Sets bind indexed buffers natively, which moves the generic targets
	// and may take the push constant binding.
	e.cache.ForgetIndexedTargets()
	e.pushBound = false
}

func (e *Engine) bindVertexBuffers(c encoding.CmdBindVertexBuffers) {
	for i := range c.Bindings.Len() {
		idx := c.First + uint32(i)
		b := c.Bindings.At(i)
		if idx >= statecache.MaxVertexBindings {
			e.p.BindVertexBuffer(idx, b.Buffer, int(b.Offset), 0)
			continue
		}
		e.st.vertex[idx] = b
		e.st.vertexSet |= 1 << idx
		e.st.vertexDirty |= 1 << idx
	}
}

// flushVertexBuffers binds vertex buffers whose buffer, offset or pipeline
// stride changed since the last draw.
func (e *Engine) flushVertexBuffers() {
	for dirty := e.st.vertexDirty; dirty != 0; dirty &= dirty - 1 {
		i := bits.TrailingZeros32(dirty)
		b := e.st.vertex[i]
		e.cache.BindVertexBuffer(uint32(i), b.Buffer, int(b.Offset), int32(e.st.gfx.strides[i]))
	}
	e.st.vertexDirty = 0
}

func (e *Engine) drawIndirect(indexed bool, c encoding.CmdDrawIndirect) {
	e.flushVertexBuffers()
	if indexed {
		e.cache.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, e.st.indexBuffer)
	}
	e.cache.BindBuffer(backend.DRAW_INDIRECT_BUFFER, c.Buffer)
	offset := c.Offset
	for range c.DrawCount {
		if indexed {
			e.p.DrawElementsIndirect(e.st.gfx.mode, e.st.indexType, uintptr(offset))
		} else {
			e.p.DrawArraysIndirect(e.st.gfx.mode, uintptr(offset))
		}
		offset += uint64(c.Stride)
		e.stats.Draws++
	}
}

func (e *Engine) fillBuffer(c encoding.CmdFillBuffer) {
	n := int(c.Size) &^ 3
	if n == 0 {
		return
	}
	e.scratch = e.scratch[:0]
	for range n / 4 {
		e.scratch = binary.LittleEndian.AppendUint32(e.scratch, c.Value)
	}
	e.cache.BindBuffer(gl.COPY_WRITE_BUFFER, c.Dst)
	e.p.BufferSubData(gl.COPY_WRITE_BUFFER, int(c.Offset), e.scratch)
}

// blitImage flips both rectangles into the backend origin. Flipping both
// keeps the copy upright.
func (e *Engine) blitImage(c encoding.CmdBlitImage) {
	e.cache.BindReadFramebuffer(c.SrcFramebuffer)
	e.cache.BindDrawFramebuffer(c.DstFramebuffer, int32(c.DstHeight))
	e.cache.SetCapability(gl.SCISSOR_TEST, false)
	filter := uint32(gl.NEAREST)
	if c.Filter == gputypes.FilterModeLinear {
		filter = gl.LINEAR
	}
	sh, dh := int32(c.SrcHeight), int32(c.DstHeight)
	for i := range c.Regions.Len() {
		r := c.Regions.At(i)
		e.p.BlitFramebuffer(
			r.Src[0], sh-r.Src[1], r.Src[2], sh-r.Src[3],
			r.Dst[0], dh-r.Dst[1], r.Dst[2], dh-r.Dst[3],
			gl.COLOR_BUFFER_BIT, filter)
	}
}

func (e *Engine) clearDepthStencil(aspect uint32, depth float32, stencil uint32) {
	switch {
	case aspect&encoding.AspectDepth != 0 && aspect&encoding.AspectStencil != 0:
		e.p.ClearBufferfi(gl.DEPTH_STENCIL, 0, depth, int32(stencil))
	case aspect&encoding.AspectDepth != 0:
		e.p.ClearBufferfv(backend.DEPTH, 0, [4]float32{depth})
	case aspect&encoding.AspectStencil != 0:
		e.p.ClearBufferiv(backend.STENCIL, 0, [4]int32{int32(stencil)})
	}
}

func (e *Engine) clearAttachments(c encoding.CmdClearAttachments) {
	e.cache.SetCapability(gl.SCISSOR_TEST, true)
	for i := range c.Rects.Len() {
		e.cache.SetScissor(0, c.Rects.At(i))
		for j := range c.Attachments.Len() {
			a := c.Attachments.At(j)
			if a.AspectMask&encoding.AspectColor != 0 {
				e.p.ClearBufferfv(backend.COLOR, int32(a.DrawBuffer), a.Value.Color())
				continue
			}
			e.clearDepthStencil(a.AspectMask, a.Value.Depth(), a.Value.Stencil())
		}
	}
	e.restoreScissor()
}

// restoreScissor puts back scissor 0 after a clear overrode it. Without a
// user scissor the render area stays in effect.
func (e *Engine) restoreScissor() {
	switch {
	case e.st.scissorSet&1 != 0:
		e.cache.SetScissor(0, e.st.scissors[0])
	case e.st.pass.active:
		e.cache.SetScissor(0, e.st.pass.area)
	}
}

func (e *Engine) pushConstants(c encoding.CmdPushConstants) {
	if e.opts.PushConstantBuffer == 0 {
		e.skip("PushConstants")
		return
	}
	if !e.pushBound {
		e.cache.BindBufferRange(gl.UNIFORM_BUFFER, e.opts.PushConstantBinding,
			e.opts.PushConstantBuffer, 0, e.opts.PushConstantSize)
		e.pushBound = true
	}
	e.scratch = c.Data.AppendTo(e.scratch[:0])
	e.cache.BindBuffer(gl.COPY_WRITE_BUFFER, e.opts.PushConstantBuffer)
	e.p.BufferSubData(gl.COPY_WRITE_BUFFER, int(c.Offset), e.scratch)
}

func (e *Engine) beginRenderPass(c encoding.CmdBeginRenderPass) {
	height := int32(c.Height)
	e.cache.BindDrawFramebuffer(c.Framebuffer, height)
	e.st.pass = renderPass{active: true, framebuffer: c.Framebuffer, height: height, area: c.Area}

	// Dynamic state recorded before the pass was flipped against the
	// previous framebuffer.
	for set := e.st.viewportSet; set != 0; set &= set - 1 {
		i := bits.TrailingZeros32(set)
		e.cache.SetViewport(uint32(i), e.st.viewports[i])
	}
	for set := e.st.scissorSet; set != 0; set &= set - 1 {
		i := bits.TrailingZeros32(set)
		e.cache.SetScissor(uint32(i), e.st.scissors[i])
	}

	// A scissor left by an earlier pass would clip this one.
	if on, _ := e.cache.Capability(gl.SCISSOR_TEST); on && e.st.scissorSet&1 == 0 {
		e.cache.SetScissor(0, c.Area)
	}

	if e.loadClears(c) {
		e.restoreScissor()
	}
	e.words = c.DrawBuffers.AppendTo(e.words[:0])
	e.p.DrawBuffers(e.words)
}

// loadClears clears every LoadOpClear attachment inside the render area.
// It reports whether anything was cleared.
func (e *Engine) loadClears(c encoding.CmdBeginRenderPass) bool {
	cleared := false
	colorSet := false
	for i := range c.Loads.Len() {
		a := c.Loads.At(i)
		if a.AspectMask&encoding.AspectColor != 0 {
			if a.LoadOp != gputypes.LoadOpClear {
				continue
			}
			if !cleared {
				e.beginLoadClears(c.Area)
				cleared = true
			}
			if !colorSet {
				// Clears address draw buffer slots, so every color
				// attachment has to be routed first.
				e.words = e.words[:0]
				for j := range c.Loads.Len() {
					if l := c.Loads.At(j); l.AspectMask&encoding.AspectColor != 0 {
						e.words = append(e.words, gl.COLOR_ATTACHMENT0+l.Slot)
					}
				}
				e.p.DrawBuffers(e.words)
				colorSet = true
			}
			e.p.ClearBufferfv(backend.COLOR, int32(a.Slot), a.Value.Color())
			continue
		}
		var aspect uint32
		if a.AspectMask&encoding.AspectDepth != 0 && a.LoadOp == gputypes.LoadOpClear {
			aspect |= encoding.AspectDepth
		}
		if a.AspectMask&encoding.AspectStencil != 0 && a.StencilLoadOp == gputypes.LoadOpClear {
			aspect |= encoding.AspectStencil
		}
		if aspect == 0 {
			continue
		}
		if !cleared {
			e.beginLoadClears(c.Area)
			cleared = true
		}
		e.clearDepthStencil(aspect, a.Value.Depth(), a.Value.Stencil())
	}
	return cleared
}

func (e *Engine) beginLoadClears(area encoding.Rect) {
	e.cache.SetCapability(gl.SCISSOR_TEST, true)
	e.cache.SetScissor(0, area)
}

// executeCommands replays secondaries inline. A secondary starts without
// bound state but continues the current render pass.
func (e *Engine) executeCommands(d *encoding.Decoder, depth int) {
	lists := d.ExecuteCommands()
	for i := range lists.Len() {
		pass := e.st.pass
		e.st.reset()
		e.st.pass = pass
		e.walk(d.Secondary(lists.At(i)), depth+1)
	}
}

func primitiveMode(t gputypes.PrimitiveTopology) uint32 {
	switch t {
	case gputypes.PrimitiveTopologyPointList:
		return gl.POINTS
	case gputypes.PrimitiveTopologyLineList:
		return gl.LINES
	case gputypes.PrimitiveTopologyLineStrip:
		return gl.LINE_STRIP
	case gputypes.PrimitiveTopologyTriangleStrip:
		return gl.TRIANGLE_STRIP
	default:
		return gl.TRIANGLES
	}
}

func indexType(f gputypes.IndexFormat) (uint32, uint64) {
	if f == gputypes.IndexFormatUint16 {
		return gl.UNSIGNED_SHORT, 2
	}
	return gl.UNSIGNED_INT, 4
}

// barrierBits maps destination access flags to the memory barrier bits
// that make prior shader writes visible to them.
func barrierBits(access uint32) uint32 {
	if access&(encoding.AccessMemoryRead|encoding.AccessMemoryWrite) != 0 {
		return gl.ALL_BARRIER_BITS
	}
	var b uint32
	if access&encoding.AccessIndirectCommandRead != 0 {
		b |= gl.COMMAND_BARRIER_BIT
	}
	if access&encoding.AccessIndexRead != 0 {
		b |= gl.ELEMENT_ARRAY_BARRIER_BIT
	}
	if access&encoding.AccessVertexAttributeRead != 0 {
		b |= gl.VERTEX_ATTRIB_ARRAY_BARRIER_BIT
	}
	if access&encoding.AccessUniformRead != 0 {
		b |= gl.UNIFORM_BARRIER_BIT
	}
	if access&(encoding.AccessShaderRead|encoding.AccessShaderWrite) != 0 {
		b |= gl.TEXTURE_FETCH_BARRIER_BIT | gl.SHADER_IMAGE_ACCESS_BARRIER_BIT | gl.SHADER_STORAGE_BARRIER_BIT
	}
	if access&(encoding.AccessInputAttachmentRead|
		encoding.AccessColorAttachmentRead|encoding.AccessColorAttachmentWrite|
		encoding.AccessDepthStencilAttachmentRead|encoding.AccessDepthStencilAttachmentWrite) != 0 {
		b |= gl.FRAMEBUFFER_BARRIER_BIT
	}
	if access&(encoding.AccessTransferRead|encoding.AccessTransferWrite) != 0 {
		b |= gl.BUFFER_UPDATE_BARRIER_BIT | gl.TEXTURE_UPDATE_BARRIER_BIT | gl.PIXEL_BUFFER_BARRIER_BIT
	}
	if access&(encoding.AccessHostRead|encoding.AccessHostWrite) != 0 {
		b |= gl.BUFFER_UPDATE_BARRIER_BIT
	}
	return b
}
