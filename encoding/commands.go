package encoding

import "github.com/gogpu/gputypes"

// Bind points.
const (
	BindPointGraphics uint32 = 0
	BindPointCompute  uint32 = 1
)

// Image aspect bits, matching VkImageAspectFlagBits.
const (
	AspectColor   uint32 = 0x1
	AspectDepth   uint32 = 0x2
	AspectStencil uint32 = 0x4
)

// Stencil face bits, matching VkStencilFaceFlagBits.
const (
	FaceFront        uint32 = 0x1
	FaceBack         uint32 = 0x2
	FaceFrontAndBack uint32 = FaceFront | FaceBack
)

// Access mask bits, matching VkAccessFlagBits.
const (
	AccessIndirectCommandRead         uint32 = 0x00001
	AccessIndexRead                   uint32 = 0x00002
	AccessVertexAttributeRead         uint32 = 0x00004
	AccessUniformRead                 uint32 = 0x00008
	AccessInputAttachmentRead         uint32 = 0x00010
	AccessShaderRead                  uint32 = 0x00020
	AccessShaderWrite                 uint32 = 0x00040
	AccessColorAttachmentRead         uint32 = 0x00080
	AccessColorAttachmentWrite        uint32 = 0x00100
	AccessDepthStencilAttachmentRead  uint32 = 0x00200
	AccessDepthStencilAttachmentWrite uint32 = 0x00400
	AccessTransferRead                uint32 = 0x00800
	AccessTransferWrite               uint32 = 0x01000
	AccessHostRead                    uint32 = 0x02000
	AccessHostWrite                   uint32 = 0x04000
	AccessMemoryRead                  uint32 = 0x08000
	AccessMemoryWrite                 uint32 = 0x10000
)

// Viewport is a Vulkan viewport in framebuffer coordinates with a
// top-left origin.
type Viewport struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

// Rect is an integer rectangle with a top-left origin.
type Rect struct {
	X, Y          int32
	Width, Height uint32
}

// VertexBinding is one vertex buffer binding.
type VertexBinding struct {
	Buffer uint32
	Offset uint64
}

// BufferCopy is one region of a buffer to buffer copy.
type BufferCopy struct {
	SrcOffset uint64
	DstOffset uint64
	Size      uint64
}

// BlitRegion holds source and destination corners as (x0, y0, x1, y1)
// with a top-left origin.
type BlitRegion struct {
	Src [4]int32
	Dst [4]int32
}

// ClearValue holds the raw bits of a color or depth/stencil clear value.
// Color values store four float32 bit patterns. Depth/stencil values store
// the depth bits in the first word and the stencil value in the second.
type ClearValue [4]uint32

// ColorClear builds a color clear value.
func ColorClear(c gputypes.Color) ClearValue {
	return ClearValue{f32(float32(c.R)), f32(float32(c.G)), f32(float32(c.B)), f32(float32(c.A))}
}

// DepthStencilClear builds a depth/stencil clear value.
func DepthStencilClear(depth float32, stencil uint32) ClearValue {
	return ClearValue{f32(depth), stencil}
}

// Color returns the value as RGBA floats.
func (v ClearValue) Color() [4]float32 {
	return [4]float32{fromF32(v[0]), fromF32(v[1]), fromF32(v[2]), fromF32(v[3])}
}

// Depth returns the depth component.
func (v ClearValue) Depth() float32 { return fromF32(v[0]) }

// Stencil returns the stencil component.
func (v ClearValue) Stencil() uint32 { return v[1] }

// ClearAttachment describes one attachment cleared by ClearAttachments.
// DrawBuffer is the draw buffer slot resolved at record time.
type ClearAttachment struct {
	AspectMask uint32
	DrawBuffer uint32
	Value      ClearValue
}

// AttachmentLoad describes how BeginRenderPass initializes one attachment.
// Slot is the color draw buffer index for color attachments.
type AttachmentLoad struct {
	AspectMask    uint32
	Slot          uint32
	LoadOp        gputypes.LoadOp
	StencilLoadOp gputypes.LoadOp
	Value         ClearValue
}

// AccessPair holds the source and destination access masks of a barrier.
type AccessPair struct {
	Src uint32
	Dst uint32
}

// BindPipeline encodes a pipeline bind. StencilFunc holds the front and
// back stencil compare functions as backend enums.
func (l *List) BindPipeline(bindPoint, program, vertexArray uint32, topology gputypes.PrimitiveTopology, stencilFunc [2]uint32, strides []uint32) {
	p := l.alloc(OpBindPipeline, 7+len(strides))
	p[0] = bindPoint
	p[1] = program
	p[2] = vertexArray
	p[3] = uint32(topology)
	p[4] = stencilFunc[0]
	p[5] = stencilFunc[1]
	p[6] = uint32(len(strides))
	copy(p[7:], strides)
}

// SetViewport encodes dynamic viewports starting at first.
func (l *List) SetViewport(first uint32, viewports []Viewport) {
	p := l.alloc(OpSetViewport, 2+6*len(viewports))
	p[0] = first
	p[1] = uint32(len(viewports))
	for i, v := range viewports {
		w := p[2+6*i:]
		w[0] = f32(v.X)
		w[1] = f32(v.Y)
		w[2] = f32(v.Width)
		w[3] = f32(v.Height)
		w[4] = f32(v.MinDepth)
		w[5] = f32(v.MaxDepth)
	}
}

// SetScissor encodes dynamic scissors starting at first.
func (l *List) SetScissor(first uint32, rects []Rect) {
	p := l.alloc(OpSetScissor, 2+4*len(rects))
	p[0] = first
	p[1] = uint32(len(rects))
	for i, r := range rects {
		putRect(p[2+4*i:], r)
	}
}

// SetLineWidth encodes a line width change.
func (l *List) SetLineWidth(width float32) {
	p := l.alloc(OpSetLineWidth, 1)
	p[0] = f32(width)
}

// SetDepthBias encodes depth bias factors.
func (l *List) SetDepthBias(constant, clamp, slope float32) {
	p := l.alloc(OpSetDepthBias, 3)
	p[0] = f32(constant)
	p[1] = f32(clamp)
	p[2] = f32(slope)
}

// SetBlendConstants encodes the blend constant color.
func (l *List) SetBlendConstants(c [4]float32) {
	p := l.alloc(OpSetBlendConstants, 4)
	for i, v := range c {
		p[i] = f32(v)
	}
}

// SetStencilCompareMask encodes a stencil compare mask change.
func (l *List) SetStencilCompareMask(faceMask, mask uint32) {
	p := l.alloc(OpSetStencilCompareMask, 2)
	p[0], p[1] = faceMask, mask
}

// SetStencilWriteMask encodes a stencil write mask change.
func (l *List) SetStencilWriteMask(faceMask, mask uint32) {
	p := l.alloc(OpSetStencilWriteMask, 2)
	p[0], p[1] = faceMask, mask
}

// SetStencilReference encodes a stencil reference change.
func (l *List) SetStencilReference(faceMask, reference uint32) {
	p := l.alloc(OpSetStencilReference, 2)
	p[0], p[1] = faceMask, reference
}

// BindDescriptorSets encodes descriptor set handles and dynamic offsets.
func (l *List) BindDescriptorSets(bindPoint, firstSet uint32, sets []uint64, dynamicOffsets []uint32) {
	p := l.alloc(OpBindDescriptorSets, 4+2*len(sets)+len(dynamicOffsets))
	p[0] = bindPoint
	p[1] = firstSet
	p[2] = uint32(len(sets))
	p[3] = uint32(len(dynamicOffsets))
	for i, s := range sets {
		p[4+2*i] = lo(s)
		p[5+2*i] = hi(s)
	}
	copy(p[4+2*len(sets):], dynamicOffsets)
}

// BindIndexBuffer encodes an index buffer bind.
func (l *List) BindIndexBuffer(buffer uint32, offset uint64, format gputypes.IndexFormat) {
	p := l.alloc(OpBindIndexBuffer, 4)
	p[0] = buffer
	p[1] = lo(offset)
	p[2] = hi(offset)
	p[3] = uint32(format)
}

// BindVertexBuffers encodes vertex buffer bindings starting at first.
func (l *List) BindVertexBuffers(first uint32, bindings []VertexBinding) {
	p := l.alloc(OpBindVertexBuffers, 2+3*len(bindings))
	p[0] = first
	p[1] = uint32(len(bindings))
	for i, b := range bindings {
		p[2+3*i] = b.Buffer
		p[3+3*i] = lo(b.Offset)
		p[4+3*i] = hi(b.Offset)
	}
}

// Draw encodes a non-indexed draw.
func (l *List) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p := l.alloc(OpDraw, 4)
	p[0] = vertexCount
	p[1] = instanceCount
	p[2] = firstVertex
	p[3] = firstInstance
}

// DrawIndexed encodes an indexed draw.
func (l *List) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	p := l.alloc(OpDrawIndexed, 5)
	p[0] = indexCount
	p[1] = instanceCount
	p[2] = firstIndex
	p[3] = uint32(vertexOffset)
	p[4] = firstInstance
}

// DrawIndirect encodes an indirect draw.
func (l *List) DrawIndirect(buffer uint32, offset uint64, drawCount, stride uint32) {
	l.indirect(OpDrawIndirect, buffer, offset, drawCount, stride)
}

// DrawIndexedIndirect encodes an indexed indirect draw.
func (l *List) DrawIndexedIndirect(buffer uint32, offset uint64, drawCount, stride uint32) {
	l.indirect(OpDrawIndexedIndirect, buffer, offset, drawCount, stride)
}

func (l *List) indirect(op Op, buffer uint32, offset uint64, drawCount, stride uint32) {
	p := l.alloc(op, 5)
	p[0] = buffer
	p[1] = lo(offset)
	p[2] = hi(offset)
	p[3] = drawCount
	p[4] = stride
}

// Dispatch encodes a compute dispatch.
func (l *List) Dispatch(x, y, z uint32) {
	p := l.alloc(OpDispatch, 3)
	p[0], p[1], p[2] = x, y, z
}

// DispatchIndirect encodes an indirect compute dispatch.
func (l *List) DispatchIndirect(buffer uint32, offset uint64) {
	p := l.alloc(OpDispatchIndirect, 3)
	p[0] = buffer
	p[1] = lo(offset)
	p[2] = hi(offset)
}

// CopyBuffer encodes buffer to buffer copies.
func (l *List) CopyBuffer(src, dst uint32, regions []BufferCopy) {
	p := l.alloc(OpCopyBuffer, 3+6*len(regions))
	p[0] = src
	p[1] = dst
	p[2] = uint32(len(regions))
	for i, r := range regions {
		w := p[3+6*i:]
		w[0], w[1] = lo(r.SrcOffset), hi(r.SrcOffset)
		w[2], w[3] = lo(r.DstOffset), hi(r.DstOffset)
		w[4], w[5] = lo(r.Size), hi(r.Size)
	}
}

// UpdateBuffer encodes an inline buffer update. The data is copied.
func (l *List) UpdateBuffer(dst uint32, offset uint64, data []byte) {
	p := l.alloc(OpUpdateBuffer, 4+wordsFor(len(data)))
	p[0] = dst
	p[1] = lo(offset)
	p[2] = hi(offset)
	p[3] = uint32(len(data))
	putBytes(p[4:], data)
}

// FillBuffer encodes a buffer fill with a repeated word.
func (l *List) FillBuffer(dst uint32, offset, size uint64, value uint32) {
	p := l.alloc(OpFillBuffer, 6)
	p[0] = dst
	p[1] = lo(offset)
	p[2] = hi(offset)
	p[3] = lo(size)
	p[4] = hi(size)
	p[5] = value
}

// BlitImage encodes scaled copies between framebuffer-backed images.
func (l *List) BlitImage(srcFramebuffer, srcHeight, dstFramebuffer, dstHeight uint32, filter gputypes.FilterMode, regions []BlitRegion) {
	p := l.alloc(OpBlitImage, 6+8*len(regions))
	p[0] = srcFramebuffer
	p[1] = srcHeight
	p[2] = dstFramebuffer
	p[3] = dstHeight
	p[4] = uint32(filter)
	p[5] = uint32(len(regions))
	for i, r := range regions {
		w := p[6+8*i:]
		for j := 0; j < 4; j++ {
			w[j] = uint32(r.Src[j])
			w[4+j] = uint32(r.Dst[j])
		}
	}
}

// ClearColorImage encodes a whole-image color clear.
func (l *List) ClearColorImage(framebuffer, height uint32, color gputypes.Color) {
	p := l.alloc(OpClearColorImage, 6)
	p[0] = framebuffer
	p[1] = height
	v := ColorClear(color)
	copy(p[2:], v[:])
}

// ClearDepthStencilImage encodes a whole-image depth/stencil clear.
func (l *List) ClearDepthStencilImage(framebuffer, height, aspectMask uint32, depth float32, stencil uint32) {
	p := l.alloc(OpClearDepthStencilImage, 5)
	p[0] = framebuffer
	p[1] = height
	p[2] = aspectMask
	p[3] = f32(depth)
	p[4] = stencil
}

// ClearAttachments encodes attachment clears within the current subpass.
func (l *List) ClearAttachments(attachments []ClearAttachment, rects []Rect) {
	n := len(attachments)
	p := l.alloc(OpClearAttachments, 2+6*n+4*len(rects))
	p[0] = uint32(n)
	for i, a := range attachments {
		w := p[1+6*i:]
		w[0] = a.AspectMask
		w[1] = a.DrawBuffer
		copy(w[2:6], a.Value[:])
	}
	r := p[1+6*n:]
	r[0] = uint32(len(rects))
	for i, rc := range rects {
		putRect(r[1+4*i:], rc)
	}
}

// PipelineBarrier encodes a barrier. Only access masks are kept since the
// backend orders all commands already.
func (l *List) PipelineBarrier(srcStageMask, dstStageMask uint32, barriers []AccessPair) {
	p := l.alloc(OpPipelineBarrier, 3+2*len(barriers))
	p[0] = srcStageMask
	p[1] = dstStageMask
	p[2] = uint32(len(barriers))
	for i, b := range barriers {
		p[3+2*i] = b.Src
		p[4+2*i] = b.Dst
	}
}

// PushConstants encodes a push constant update. The data is copied.
func (l *List) PushConstants(stageFlags, offset uint32, data []byte) {
	p := l.alloc(OpPushConstants, 3+wordsFor(len(data)))
	p[0] = stageFlags
	p[1] = offset
	p[2] = uint32(len(data))
	putBytes(p[3:], data)
}

// BeginRenderPass encodes the start of a render pass instance. drawBuffers
// are the backend draw buffer enums of the first subpass.
func (l *List) BeginRenderPass(framebuffer, width, height uint32, area Rect, loads []AttachmentLoad, drawBuffers []uint32) {
	n := len(loads)
	p := l.alloc(OpBeginRenderPass, 9+8*n+len(drawBuffers))
	p[0] = framebuffer
	p[1] = width
	p[2] = height
	putRect(p[3:], area)
	p[7] = uint32(n)
	for i, a := range loads {
		w := p[8+8*i:]
		w[0] = a.AspectMask
		w[1] = a.Slot
		w[2] = uint32(a.LoadOp)
		w[3] = uint32(a.StencilLoadOp)
		copy(w[4:8], a.Value[:])
	}
	d := p[8+8*n:]
	d[0] = uint32(len(drawBuffers))
	copy(d[1:], drawBuffers)
}

// NextSubpass encodes a subpass transition.
func (l *List) NextSubpass(drawBuffers []uint32) {
	p := l.alloc(OpNextSubpass, 1+len(drawBuffers))
	p[0] = uint32(len(drawBuffers))
	copy(p[1:], drawBuffers)
}

// EndRenderPass encodes the end of a render pass instance. discard lists
// the backend attachment enums whose contents need not be stored.
func (l *List) EndRenderPass(discard []uint32) {
	p := l.alloc(OpEndRenderPass, 1+len(discard))
	p[0] = uint32(len(discard))
	copy(p[1:], discard)
}

// ExecuteCommands encodes references to secondary lists.
func (l *List) ExecuteCommands(lists []*List) {
	p := l.alloc(OpExecuteCommands, 1+len(lists))
	p[0] = uint32(len(lists))
	for i, s := range lists {
		p[1+i] = l.ref(s)
	}
}

// BeginQuery encodes the start of a query.
func (l *List) BeginQuery(target, query uint32) {
	p := l.alloc(OpBeginQuery, 2)
	p[0], p[1] = target, query
}

// EndQuery encodes the end of the active query of target.
func (l *List) EndQuery(target uint32) {
	p := l.alloc(OpEndQuery, 1)
	p[0] = target
}

// WriteTimestamp encodes a timestamp write.
func (l *List) WriteTimestamp(query uint32) {
	p := l.alloc(OpWriteTimestamp, 1)
	p[0] = query
}

// BeginDebugLabel encodes the start of a labeled region.
func (l *List) BeginDebugLabel(label string) {
	p := l.alloc(OpBeginDebugLabel, 1+wordsFor(len(label)))
	p[0] = uint32(len(label))
	putBytes(p[1:], []byte(label))
}

// EndDebugLabel encodes the end of a labeled region.
func (l *List) EndDebugLabel() {
	l.alloc(OpEndDebugLabel, 0)
}

func putRect(w []uint32, r Rect) {
	w[0] = uint32(r.X)
	w[1] = uint32(r.Y)
	w[2] = r.Width
	w[3] = r.Height
}

func getRect(w []uint32) Rect {
	return Rect{X: int32(w[0]), Y: int32(w[1]), Width: w[2], Height: w[3]}
}
