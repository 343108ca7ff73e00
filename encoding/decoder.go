package encoding

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Decoder walks a List one command at a time.
//
//	dec := NewDecoder(list)
//	for dec.Next() {
//	    switch dec.Op() {
//	    case OpSetViewport:
//	        cmd := dec.SetViewport()
//	        // apply cmd
//	    case OpDraw:
//	        cmd := dec.Draw()
//	        // apply cmd
//	    }
//	}
//
// Typed accessors decode the current payload. Calling an accessor that does
// not match Op returns garbage. Decoding never mutates the list.
type Decoder struct {
	list *List
	pos  int

	op      Op
	payload []uint32
}

// NewDecoder creates a decoder positioned before the first command.
func NewDecoder(l *List) *Decoder {
	d := &Decoder{}
	d.Reset(l)
	return d
}

// Reset repositions the decoder at the start of l.
func (d *Decoder) Reset(l *List) {
	d.list = l
	d.pos = 0
	d.op = 0
	d.payload = nil
}

// Next advances to the next command. It returns false at the end of the
// list. A header naming an unknown op or overrunning the list panics.
func (d *Decoder) Next() bool {
	if d.list == nil || d.pos >= len(d.list.words) {
		return false
	}
	op, n := unpackHeader(d.list.words[d.pos])
	start := d.pos + 1
	if !op.Valid() || start+n > len(d.list.words) {
		panic(fmt.Sprintf("encoding: corrupt command header %#08x at word %d", d.list.words[d.pos], d.pos))
	}
	d.op = op
	d.payload = d.list.words[start : start+n]
	d.pos = start + n
	return true
}

// Op returns the current command's op.
func (d *Decoder) Op() Op {
	return d.op
}

// Payload returns the current command's raw payload words.
func (d *Decoder) Payload() []uint32 {
	return d.payload
}

// Position returns the word offset of the next command.
func (d *Decoder) Position() int {
	return d.pos
}

// Secondary returns the secondary list stored at side table index i.
func (d *Decoder) Secondary(i uint32) *List {
	return d.list.lists[i]
}

// Words is a view over an inline array of words.
type Words struct {
	n int
	w []uint32
}

// Len returns the element count.
func (v Words) Len() int { return v.n }

// At returns element i.
func (v Words) At(i int) uint32 { return v.w[i] }

// AppendTo appends all elements to dst.
func (v Words) AppendTo(dst []uint32) []uint32 { return append(dst, v.w[:v.n]...) }

// Viewports is a view over inline viewports.
type Viewports struct {
	n int
	w []uint32
}

// Len returns the element count.
func (v Viewports) Len() int { return v.n }

// At returns element i.
func (v Viewports) At(i int) Viewport {
	w := v.w[6*i:]
	return Viewport{
		X: fromF32(w[0]), Y: fromF32(w[1]),
		Width: fromF32(w[2]), Height: fromF32(w[3]),
		MinDepth: fromF32(w[4]), MaxDepth: fromF32(w[5]),
	}
}

// Rects is a view over inline rectangles.
type Rects struct {
	n int
	w []uint32
}

// Len returns the element count.
func (v Rects) Len() int { return v.n }

// At returns element i.
func (v Rects) At(i int) Rect { return getRect(v.w[4*i:]) }

// VertexBindings is a view over inline vertex buffer bindings.
type VertexBindings struct {
	n int
	w []uint32
}

// Len returns the element count.
func (v VertexBindings) Len() int { return v.n }

// At returns element i.
func (v VertexBindings) At(i int) VertexBinding {
	w := v.w[3*i:]
	return VertexBinding{Buffer: w[0], Offset: join(w[1], w[2])}
}

// Handles is a view over inline 64-bit handles.
type Handles struct {
	n int
	w []uint32
}

// Len returns the element count.
func (v Handles) Len() int { return v.n }

// At returns element i.
func (v Handles) At(i int) uint64 { return join(v.w[2*i], v.w[2*i+1]) }

// BufferCopies is a view over inline copy regions.
type BufferCopies struct {
	n int
	w []uint32
}

// Len returns the element count.
func (v BufferCopies) Len() int { return v.n }

// At returns element i.
func (v BufferCopies) At(i int) BufferCopy {
	w := v.w[6*i:]
	return BufferCopy{SrcOffset: join(w[0], w[1]), DstOffset: join(w[2], w[3]), Size: join(w[4], w[5])}
}

// BlitRegions is a view over inline blit regions.
type BlitRegions struct {
	n int
	w []uint32
}

// Len returns the element count.
func (v BlitRegions) Len() int { return v.n }

// At returns element i.
func (v BlitRegions) At(i int) BlitRegion {
	w := v.w[8*i:]
	var r BlitRegion
	for j := 0; j < 4; j++ {
		r.Src[j] = int32(w[j])
		r.Dst[j] = int32(w[4+j])
	}
	return r
}

// ClearAttachments is a view over inline attachment clears.
type ClearAttachments struct {
	n int
	w []uint32
}

// Len returns the element count.
func (v ClearAttachments) Len() int { return v.n }

// At returns element i.
func (v ClearAttachments) At(i int) ClearAttachment {
	w := v.w[6*i:]
	a := ClearAttachment{AspectMask: w[0], DrawBuffer: w[1]}
	copy(a.Value[:], w[2:6])
	return a
}

// AttachmentLoads is a view over inline render pass attachment loads.
type AttachmentLoads struct {
	n int
	w []uint32
}

// Len returns the element count.
func (v AttachmentLoads) Len() int { return v.n }

// At returns element i.
func (v AttachmentLoads) At(i int) AttachmentLoad {
	w := v.w[8*i:]
	a := AttachmentLoad{
		AspectMask:    w[0],
		Slot:          w[1],
		LoadOp:        gputypes.LoadOp(w[2]),
		StencilLoadOp: gputypes.LoadOp(w[3]),
	}
	copy(a.Value[:], w[4:8])
	return a
}

// AccessPairs is a view over inline barrier access masks.
type AccessPairs struct {
	n int
	w []uint32
}

// Len returns the element count.
func (v AccessPairs) Len() int { return v.n }

// At returns element i.
func (v AccessPairs) At(i int) AccessPair {
	return AccessPair{Src: v.w[2*i], Dst: v.w[2*i+1]}
}

// Blob is a view over inline bytes.
type Blob struct {
	n int
	w []uint32
}

// Len returns the byte count.
func (b Blob) Len() int { return b.n }

// AppendTo appends the bytes to dst.
func (b Blob) AppendTo(dst []byte) []byte { return getBytes(dst, b.w, b.n) }

// String returns the bytes as a string.
func (b Blob) String() string { return string(b.AppendTo(make([]byte, 0, b.n))) }

// CmdBindPipeline is the payload of OpBindPipeline.
type CmdBindPipeline struct {
	BindPoint   uint32
	Program     uint32
	VertexArray uint32
	Topology    gputypes.PrimitiveTopology
	StencilFunc [2]uint32
	Strides     Words
}

// BindPipeline decodes the current OpBindPipeline payload.
func (d *Decoder) BindPipeline() CmdBindPipeline {
	p := d.payload
	return CmdBindPipeline{
		BindPoint:   p[0],
		Program:     p[1],
		VertexArray: p[2],
		Topology:    gputypes.PrimitiveTopology(p[3]),
		StencilFunc: [2]uint32{p[4], p[5]},
		Strides:     Words{n: int(p[6]), w: p[7:]},
	}
}

// CmdSetViewport is the payload of OpSetViewport.
type CmdSetViewport struct {
	First     uint32
	Viewports Viewports
}

// SetViewport decodes the current OpSetViewport payload.
func (d *Decoder) SetViewport() CmdSetViewport {
	p := d.payload
	return CmdSetViewport{First: p[0], Viewports: Viewports{n: int(p[1]), w: p[2:]}}
}

// CmdSetScissor is the payload of OpSetScissor.
type CmdSetScissor struct {
	First    uint32
	Scissors Rects
}

// SetScissor decodes the current OpSetScissor payload.
func (d *Decoder) SetScissor() CmdSetScissor {
	p := d.payload
	return CmdSetScissor{First: p[0], Scissors: Rects{n: int(p[1]), w: p[2:]}}
}

// SetLineWidth decodes the current OpSetLineWidth payload.
func (d *Decoder) SetLineWidth() float32 {
	return fromF32(d.payload[0])
}

// CmdSetDepthBias is the payload of OpSetDepthBias.
type CmdSetDepthBias struct {
	Constant, Clamp, Slope float32
}

// SetDepthBias decodes the current OpSetDepthBias payload.
func (d *Decoder) SetDepthBias() CmdSetDepthBias {
	p := d.payload
	return CmdSetDepthBias{Constant: fromF32(p[0]), Clamp: fromF32(p[1]), Slope: fromF32(p[2])}
}

// SetBlendConstants decodes the current OpSetBlendConstants payload.
func (d *Decoder) SetBlendConstants() [4]float32 {
	p := d.payload
	return [4]float32{fromF32(p[0]), fromF32(p[1]), fromF32(p[2]), fromF32(p[3])}
}

// CmdStencil is the payload of the three stencil dynamic state ops.
type CmdStencil struct {
	FaceMask uint32
	Value    uint32
}

// Stencil decodes the current OpSetStencilCompareMask, OpSetStencilWriteMask
// or OpSetStencilReference payload.
func (d *Decoder) Stencil() CmdStencil {
	return CmdStencil{FaceMask: d.payload[0], Value: d.payload[1]}
}

// CmdBindDescriptorSets is the payload of OpBindDescriptorSets.
type CmdBindDescriptorSets struct {
	BindPoint      uint32
	FirstSet       uint32
	Sets           Handles
	DynamicOffsets Words
}

// BindDescriptorSets decodes the current OpBindDescriptorSets payload.
func (d *Decoder) BindDescriptorSets() CmdBindDescriptorSets {
	p := d.payload
	sets := int(p[2])
	return CmdBindDescriptorSets{
		BindPoint:      p[0],
		FirstSet:       p[1],
		Sets:           Handles{n: sets, w: p[4:]},
		DynamicOffsets: Words{n: int(p[3]), w: p[4+2*sets:]},
	}
}

// CmdBindIndexBuffer is the payload of OpBindIndexBuffer.
type CmdBindIndexBuffer struct {
	Buffer uint32
	Offset uint64
	Format gputypes.IndexFormat
}

// BindIndexBuffer decodes the current OpBindIndexBuffer payload.
func (d *Decoder) BindIndexBuffer() CmdBindIndexBuffer {
	p := d.payload
	return CmdBindIndexBuffer{Buffer: p[0], Offset: join(p[1], p[2]), Format: gputypes.IndexFormat(p[3])}
}

// CmdBindVertexBuffers is the payload of OpBindVertexBuffers.
type CmdBindVertexBuffers struct {
	First    uint32
	Bindings VertexBindings
}

// BindVertexBuffers decodes the current OpBindVertexBuffers payload.
func (d *Decoder) BindVertexBuffers() CmdBindVertexBuffers {
	p := d.payload
	return CmdBindVertexBuffers{First: p[0], Bindings: VertexBindings{n: int(p[1]), w: p[2:]}}
}

// CmdDraw is the payload of OpDraw.
type CmdDraw struct {
	VertexCount, InstanceCount, FirstVertex, FirstInstance uint32
}

// Draw decodes the current OpDraw payload.
func (d *Decoder) Draw() CmdDraw {
	p := d.payload
	return CmdDraw{VertexCount: p[0], InstanceCount: p[1], FirstVertex: p[2], FirstInstance: p[3]}
}

// CmdDrawIndexed is the payload of OpDrawIndexed.
type CmdDrawIndexed struct {
	IndexCount, InstanceCount, FirstIndex uint32
	VertexOffset                          int32
	FirstInstance                         uint32
}

// DrawIndexed decodes the current OpDrawIndexed payload.
func (d *Decoder) DrawIndexed() CmdDrawIndexed {
	p := d.payload
	return CmdDrawIndexed{
		IndexCount:    p[0],
		InstanceCount: p[1],
		FirstIndex:    p[2],
		VertexOffset:  int32(p[3]),
		FirstInstance: p[4],
	}
}

// CmdDrawIndirect is the payload of OpDrawIndirect and OpDrawIndexedIndirect.
type CmdDrawIndirect struct {
	Buffer    uint32
	Offset    uint64
	DrawCount uint32
	Stride    uint32
}

// DrawIndirect decodes the current OpDrawIndirect or OpDrawIndexedIndirect
// payload.
func (d *Decoder) DrawIndirect() CmdDrawIndirect {
	p := d.payload
	return CmdDrawIndirect{Buffer: p[0], Offset: join(p[1], p[2]), DrawCount: p[3], Stride: p[4]}
}

// CmdDispatch is the payload of OpDispatch.
type CmdDispatch struct {
	X, Y, Z uint32
}

// Dispatch decodes the current OpDispatch payload.
func (d *Decoder) Dispatch() CmdDispatch {
	p := d.payload
	return CmdDispatch{X: p[0], Y: p[1], Z: p[2]}
}

// CmdDispatchIndirect is the payload of OpDispatchIndirect.
type CmdDispatchIndirect struct {
	Buffer uint32
	Offset uint64
}

// DispatchIndirect decodes the current OpDispatchIndirect payload.
func (d *Decoder) DispatchIndirect() CmdDispatchIndirect {
	p := d.payload
	return CmdDispatchIndirect{Buffer: p[0], Offset: join(p[1], p[2])}
}

// CmdCopyBuffer is the payload of OpCopyBuffer.
type CmdCopyBuffer struct {
	Src, Dst uint32
	Regions  BufferCopies
}

// CopyBuffer decodes the current OpCopyBuffer payload.
func (d *Decoder) CopyBuffer() CmdCopyBuffer {
	p := d.payload
	return CmdCopyBuffer{Src: p[0], Dst: p[1], Regions: BufferCopies{n: int(p[2]), w: p[3:]}}
}

// CmdUpdateBuffer is the payload of OpUpdateBuffer.
type CmdUpdateBuffer struct {
	Dst    uint32
	Offset uint64
	Data   Blob
}

// UpdateBuffer decodes the current OpUpdateBuffer payload.
func (d *Decoder) UpdateBuffer() CmdUpdateBuffer {
	p := d.payload
	return CmdUpdateBuffer{Dst: p[0], Offset: join(p[1], p[2]), Data: Blob{n: int(p[3]), w: p[4:]}}
}

// CmdFillBuffer is the payload of OpFillBuffer.
type CmdFillBuffer struct {
	Dst    uint32
	Offset uint64
	Size   uint64
	Value  uint32
}

// FillBuffer decodes the current OpFillBuffer payload.
func (d *Decoder) FillBuffer() CmdFillBuffer {
	p := d.payload
	return CmdFillBuffer{Dst: p[0], Offset: join(p[1], p[2]), Size: join(p[3], p[4]), Value: p[5]}
}

// CmdBlitImage is the payload of OpBlitImage.
type CmdBlitImage struct {
	SrcFramebuffer uint32
	SrcHeight      uint32
	DstFramebuffer uint32
	DstHeight      uint32
	Filter         gputypes.FilterMode
	Regions        BlitRegions
}

// BlitImage decodes the current OpBlitImage payload.
func (d *Decoder) BlitImage() CmdBlitImage {
	p := d.payload
	return CmdBlitImage{
		SrcFramebuffer: p[0],
		SrcHeight:      p[1],
		DstFramebuffer: p[2],
		DstHeight:      p[3],
		Filter:         gputypes.FilterMode(p[4]),
		Regions:        BlitRegions{n: int(p[5]), w: p[6:]},
	}
}

// CmdClearColorImage is the payload of OpClearColorImage.
type CmdClearColorImage struct {
	Framebuffer uint32
	Height      uint32
	Value       ClearValue
}

// ClearColorImage decodes the current OpClearColorImage payload.
func (d *Decoder) ClearColorImage() CmdClearColorImage {
	p := d.payload
	c := CmdClearColorImage{Framebuffer: p[0], Height: p[1]}
	copy(c.Value[:], p[2:6])
	return c
}

// CmdClearDepthStencilImage is the payload of OpClearDepthStencilImage.
type CmdClearDepthStencilImage struct {
	Framebuffer uint32
	Height      uint32
	AspectMask  uint32
	Depth       float32
	Stencil     uint32
}

// ClearDepthStencilImage decodes the current OpClearDepthStencilImage payload.
func (d *Decoder) ClearDepthStencilImage() CmdClearDepthStencilImage {
	p := d.payload
	return CmdClearDepthStencilImage{
		Framebuffer: p[0],
		Height:      p[1],
		AspectMask:  p[2],
		Depth:       fromF32(p[3]),
		Stencil:     p[4],
	}
}

// CmdClearAttachments is the payload of OpClearAttachments.
type CmdClearAttachments struct {
	Attachments ClearAttachments
	Rects       Rects
}

// ClearAttachments decodes the current OpClearAttachments payload.
func (d *Decoder) ClearAttachments() CmdClearAttachments {
	p := d.payload
	n := int(p[0])
	r := p[1+6*n:]
	return CmdClearAttachments{
		Attachments: ClearAttachments{n: n, w: p[1:]},
		Rects:       Rects{n: int(r[0]), w: r[1:]},
	}
}

// CmdPipelineBarrier is the payload of OpPipelineBarrier.
type CmdPipelineBarrier struct {
	SrcStageMask uint32
	DstStageMask uint32
	Barriers     AccessPairs
}

// PipelineBarrier decodes the current OpPipelineBarrier payload.
func (d *Decoder) PipelineBarrier() CmdPipelineBarrier {
	p := d.payload
	return CmdPipelineBarrier{SrcStageMask: p[0], DstStageMask: p[1], Barriers: AccessPairs{n: int(p[2]), w: p[3:]}}
}

// CmdPushConstants is the payload of OpPushConstants.
type CmdPushConstants struct {
	StageFlags uint32
	Offset     uint32
	Data       Blob
}

// PushConstants decodes the current OpPushConstants payload.
func (d *Decoder) PushConstants() CmdPushConstants {
	p := d.payload
	return CmdPushConstants{StageFlags: p[0], Offset: p[1], Data: Blob{n: int(p[2]), w: p[3:]}}
}

// CmdBeginRenderPass is the payload of OpBeginRenderPass.
type CmdBeginRenderPass struct {
	Framebuffer   uint32
	Width, Height uint32
	Area          Rect
	Loads         AttachmentLoads
	DrawBuffers   Words
}

// BeginRenderPass decodes the current OpBeginRenderPass payload.
func (d *Decoder) BeginRenderPass() CmdBeginRenderPass {
	p := d.payload
	n := int(p[7])
	db := p[8+8*n:]
	return CmdBeginRenderPass{
		Framebuffer: p[0],
		Width:       p[1],
		Height:      p[2],
		Area:        getRect(p[3:]),
		Loads:       AttachmentLoads{n: n, w: p[8:]},
		DrawBuffers: Words{n: int(db[0]), w: db[1:]},
	}
}

// NextSubpass decodes the draw buffers of the current OpNextSubpass payload.
func (d *Decoder) NextSubpass() Words {
	return Words{n: int(d.payload[0]), w: d.payload[1:]}
}

// EndRenderPass decodes the discarded attachments of the current
// OpEndRenderPass payload.
func (d *Decoder) EndRenderPass() Words {
	return Words{n: int(d.payload[0]), w: d.payload[1:]}
}

// ExecuteCommands decodes the side table indices of the current
// OpExecuteCommands payload. Resolve them with Secondary.
func (d *Decoder) ExecuteCommands() Words {
	return Words{n: int(d.payload[0]), w: d.payload[1:]}
}

// CmdQuery is the payload of OpBeginQuery.
type CmdQuery struct {
	Target uint32
	Query  uint32
}

// BeginQuery decodes the current OpBeginQuery payload.
func (d *Decoder) BeginQuery() CmdQuery {
	return CmdQuery{Target: d.payload[0], Query: d.payload[1]}
}

// EndQuery decodes the target of the current OpEndQuery payload.
func (d *Decoder) EndQuery() uint32 {
	return d.payload[0]
}

// WriteTimestamp decodes the query of the current OpWriteTimestamp payload.
func (d *Decoder) WriteTimestamp() uint32 {
	return d.payload[0]
}

// BeginDebugLabel decodes the label of the current OpBeginDebugLabel payload.
func (d *Decoder) BeginDebugLabel() Blob {
	return Blob{n: int(d.payload[0]), w: d.payload[1:]}
}
