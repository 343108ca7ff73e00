package vkgl

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/vkgl/backend"
	"github.com/gogpu/vkgl/encoding"
	"github.com/gogpu/vkgl/internal/statecache"
)

// Level is the command buffer level.
type Level uint32

// Command buffer levels.
const (
	LevelPrimary Level = iota
	LevelSecondary
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelPrimary:
		return "primary"
	case LevelSecondary:
		return "secondary"
	default:
		return fmt.Sprintf("Level(%d)", uint32(l))
	}
}

// State is the lifecycle state of a command buffer.
type State int32

// Command buffer states.
const (
	StateInitial State = iota
	StateRecording
	StateExecutable
	StatePending
	StateInvalid
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateRecording:
		return "recording"
	case StateExecutable:
		return "executable"
	case StatePending:
		return "pending"
	case StateInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// UsageFlags describe how a recording will be submitted.
type UsageFlags uint32

// Command buffer usage flags.
const (
	// UsageOneTimeSubmit returns the buffer to Initial after its single
	// submission completes.
	UsageOneTimeSubmit UsageFlags = 1 << iota

	// UsageRenderPassContinue marks a secondary buffer that runs entirely
	// inside a render pass.
	UsageRenderPassContinue

	// UsageSimultaneousUse allows resubmission while pending.
	UsageSimultaneousUse
)

// ResetFlags modify Reset.
type ResetFlags uint32

// ResetReleaseResources makes Reset drop the list memory.
const ResetReleaseResources ResetFlags = 1

// QueryControlFlags modify BeginQuery.
type QueryControlFlags uint32

// QueryControlPrecise requests exact occlusion sample counts.
const QueryControlPrecise QueryControlFlags = 1

// Inheritance is the render pass state a continuing secondary buffer runs
// in. Framebuffer may be nil.
type Inheritance struct {
	RenderPass  *RenderPass
	Subpass     uint32
	Framebuffer *Framebuffer
}

// BeginInfo configures a recording.
type BeginInfo struct {
	Flags       UsageFlags
	Inheritance *Inheritance
}

// RenderPassBeginInfo starts a render pass instance. ClearValues are
// indexed by attachment and needed up to the last cleared attachment.
type RenderPassBeginInfo struct {
	RenderPass  *RenderPass
	Framebuffer *Framebuffer
	RenderArea  Rect
	ClearValues []ClearValue
}

// ClearAttachment clears one attachment of the current subpass.
// ColorAttachment indexes the subpass color attachments.
type ClearAttachment struct {
	AspectMask      uint32
	ColorAttachment uint32
	Value           ClearValue
}

// Types shared with the command encoding.
type (
	Viewport   = encoding.Viewport
	Rect       = encoding.Rect
	BufferCopy = encoding.BufferCopy
	BlitRegion = encoding.BlitRegion
	ClearValue = encoding.ClearValue
	AccessPair = encoding.AccessPair
)

// maxUpdateSize bounds CmdUpdateBuffer data.
const maxUpdateSize = 65536

// CommandBuffer records commands into a list that a queue replays later.
//
// Recording never touches the backend. All methods are safe for
// concurrent use, though recording one buffer from several goroutines
// interleaves commands in lock order.
type CommandBuffer struct {
	object
	pool  *CommandPool
	level Level

	mu          sync.Mutex
	state       State
	pending     int
	usage       UsageFlags
	list        *encoding.List
	refs        map[*object]struct{}
	secondaries []*CommandBuffer

	pass      *RenderPass
	fb        *Framebuffer
	subpass   uint32
	inherited bool

	query      uint32
	queryPool  *QueryPool
	queryIndex uint32
}

// Level returns the buffer level.
func (cb *CommandBuffer) Level() Level { return cb.level }

// State returns the current state. A submitted buffer reports Pending
// until its submission is observed complete.
func (cb *CommandBuffer) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.pending > 0 && cb.state != StateInvalid {
		return StatePending
	}
	return cb.state
}

// List returns the recorded command list. It must not be modified.
func (cb *CommandBuffer) List() *encoding.List {
	return cb.list
}

func (cb *CommandBuffer) isPending() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.pending > 0
}

// Reset returns the buffer to Initial. The pool must allow individual
// resets and the buffer must not be pending.
func (cb *CommandBuffer) Reset(flags ResetFlags) error {
	const op = "reset command buffer"
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch {
	case cb.destroyed.Load():
		return usage(op, ErrInvalidated)
	case cb.pending > 0:
		return usage(op, ErrPending)
	case !cb.pool.allowsReset():
		return usage(op, ErrResetNotAllowed)
	}
	cb.resetLocked(flags&ResetReleaseResources != 0)
	return nil
}

func (cb *CommandBuffer) resetLocked(release bool) {
	if release {
		cb.list.Release()
	} else {
		cb.list.Reset()
	}
	cb.state = StateInitial
	cb.usage = 0
	clear(cb.refs)
	cb.secondaries = nil
	cb.endPassLocked()
	cb.query, cb.queryPool, cb.queryIndex = 0, nil, 0
}

func (cb *CommandBuffer) endPassLocked() {
	cb.pass, cb.fb, cb.subpass, cb.inherited = nil, nil, 0, false
}

// Begin starts recording. An Executable or Invalid buffer is reset first
// when its pool allows it.
func (cb *CommandBuffer) Begin(info BeginInfo) error {
	const op = "begin command buffer"
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.destroyed.Load() {
		return usage(op, ErrInvalidated)
	}
	if cb.pending > 0 {
		return usage(op, ErrPending)
	}
	switch cb.state {
	case StateRecording:
		return usage(op, ErrAlreadyRecording)
	case StateExecutable, StateInvalid:
		if !cb.pool.allowsReset() {
			return usage(op, ErrResetNotAllowed)
		}
		cb.resetLocked(false)
	}

	if cb.level == LevelSecondary && info.Flags&UsageRenderPassContinue != 0 {
		inh := info.Inheritance
		if inh == nil || inh.RenderPass == nil {
			return usage(op, ErrInheritanceRequired)
		}
		rp := inh.RenderPass
		if int(inh.Subpass) >= len(rp.drawBuffers) {
			return usage(op, fmt.Errorf("%w: subpass %d", ErrBadArgument, inh.Subpass))
		}
		if err := cb.trackLocked(op, rp); err != nil {
			return err
		}
		if inh.Framebuffer != nil {
			if err := cb.trackLocked(op, inh.Framebuffer); err != nil {
				return err
			}
		}
		cb.pass, cb.fb, cb.subpass, cb.inherited = rp, inh.Framebuffer, inh.Subpass, true
		cb.list.NextSubpass(rp.drawBuffers[inh.Subpass])
	}
	cb.usage = info.Flags
	cb.state = StateRecording
	return nil
}

// End finishes recording.
func (cb *CommandBuffer) End() error {
	const op = "end command buffer"
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err := cb.check(op, 0); err != nil {
		return err
	}
	if cb.pass != nil && !cb.inherited {
		return usage(op, ErrRenderPassActive)
	}
	if cb.query != 0 {
		return usage(op, fmt.Errorf("%w: query still active", ErrBadArgument))
	}
	cb.state = StateExecutable
	return nil
}

// recordReq lists the conditions a command records under.
type recordReq uint8

const (
	inPass recordReq = 1 << iota
	outsidePass
	primaryOnly
)

// check validates that a command may be recorded. cb.mu must be held.
func (cb *CommandBuffer) check(op string, req recordReq) error {
	switch {
	case cb.destroyed.Load(), cb.state == StateInvalid:
		return usage(op, ErrInvalidated)
	case cb.state != StateRecording:
		return usage(op, ErrNotRecording)
	case req&primaryOnly != 0 && cb.level != LevelPrimary:
		return usage(op, ErrWrongLevel)
	case req&inPass != 0 && cb.pass == nil:
		return usage(op, ErrNoRenderPass)
	case req&outsidePass != 0 && cb.pass != nil:
		return usage(op, ErrRenderPassActive)
	}
	return nil
}

type referenced interface {
	obj() *object
}

// trackLocked records a reference to r, failing if r is destroyed.
func (cb *CommandBuffer) trackLocked(op string, r referenced) error {
	o := r.obj()
	if o.destroyed.Load() {
		return usage(op, ErrInvalidated)
	}
	cb.refs[o] = struct{}{}
	return nil
}

// invalidateIfReferencing moves the buffer to Invalid if it references o.
func (cb *CommandBuffer) invalidateIfReferencing(o *object) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if _, ok := cb.refs[o]; !ok || cb.state == StateInitial {
		return false
	}
	cb.state = StateInvalid
	return true
}

// free returns the list to the shared pool.
func (cb *CommandBuffer) free() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.resetLocked(false)
	cb.state = StateInvalid
	encoding.DefaultPool.Put(cb.list)
	cb.list = encoding.NewList()
}

// completed is called once per submission of the buffer when that
// submission is observed complete.
func (cb *CommandBuffer) completed() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.pending > 0 {
		cb.pending--
	}
	if cb.pending == 0 && cb.state == StateExecutable && cb.usage&UsageOneTimeSubmit != 0 {
		cb.resetLocked(false)
	}
}

// CmdBindPipeline binds a pipeline.
func (cb *CommandBuffer) CmdBindPipeline(p *Pipeline) error {
	const op = "cmd bind pipeline"
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err := cb.check(op, 0); err != nil {
		return err
	}
	if err := cb.trackLocked(op, p); err != nil {
		return err
	}
	i := p.info
	cb.list.BindPipeline(i.BindPoint, i.Program, i.VertexArray, i.Topology, p.stencil, i.VertexStrides)
	return nil
}

// CmdSetViewport sets viewports starting at first.
func (cb *CommandBuffer) CmdSetViewport(first uint32, viewports []Viewport) error {
	const op = "cmd set viewport"
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err := cb.check(op, 0); err != nil {
		return err
	}
	if len(viewports) == 0 || int(first)+len(viewports) > statecache.MaxViewports {
		return usage(op, fmt.Errorf("%w: viewports [%d,%d)", ErrBadArgument, first, int(first)+len(viewports)))
	}
	cb.list.SetViewport(first, viewports)
	return nil
}

// CmdSetScissor sets scissor rectangles starting at first.
func (cb *CommandBuffer) CmdSetScissor(first uint32, scissors []Rect) error {
	const op = "cmd set scissor"
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err := cb.check(op, 0); err != nil {
		return err
	}
	if len(scissors) == 0 || int(first)+len(scissors) > statecache.MaxViewports {
		return usage(op, fmt.Errorf("%w: scissors [%d,%d)", ErrBadArgument, first, int(first)+len(scissors)))
	}
	cb.list.SetScissor(first, scissors)
	return nil
}

// CmdSetLineWidth sets the rasterized line width.
func (cb *CommandBuffer) CmdSetLineWidth(width float32) error {
	const op = "cmd set line width"
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err := cb.check(op, 0); err != nil {
		return err
	}
	if width <= 0 {
		return usage(op, fmt.Errorf("%w: line width %v", ErrBadArgument, width))
	}
	cb.list.SetLineWidth(width)
	return nil
}

// CmdSetDepthBias sets the depth bias factors.
func (cb *CommandBuffer) CmdSetDepthBias(constant, clamp, slope float32) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err := cb.check("cmd set depth bias", 0); err != nil {
		return err
	}
	cb.list.SetDepthBias(constant, clamp, slope)
	return nil
}

// CmdSetBlendConstants sets the blend color.
func (cb *CommandBuffer) CmdSetBlendConstants(c [4]float32) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err := cb.check("cmd set blend constants", 0); err != nil {
		return err
	}
	cb.list.SetBlendConstants(c)
	return nil
}

// CmdSetStencilCompareMask sets the stencil compare mask of the faces in
// faceMask.
func (cb *CommandBuffer) CmdSetStencilCompareMask(faceMask, mask uint32) error {
	return cb.stencil("cmd set stencil compare mask", faceMask, mask, (*encoding.List).SetStencilCompareMask)
}

// CmdSetStencilWriteMask sets the stencil write mask of the faces in
// faceMask.
func (cb *CommandBuffer) CmdSetStencilWriteMask(faceMask, mask uint32) error {
	return cb.stencil("cmd set stencil write mask", faceMask, mask, (*encoding.List).SetStencilWriteMask)
}

// CmdSetStencilReference sets the stencil reference of the faces in
// faceMask.
func (cb *CommandBuffer) CmdSetStencilReference(faceMask, reference uint32) error {
	return cb.stencil("cmd set stencil reference", faceMask, reference, (*encoding.List).SetStencilReference)
}

func (cb *CommandBuffer) stencil(op string, faceMask, v uint32, enc func(*encoding.List, uint32, uint32)) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err := cb.check(op, 0); err != nil {
		return err
	}
	if faceMask == 0 || faceMask&^encoding.FaceFrontAndBack != 0 {
		return usage(op, fmt.Errorf("%w: face mask %#x", ErrBadArgument, faceMask))
	}
	enc(cb.list, faceMask, v)
	return nil
}

// CmdBindDescriptorSets binds backend descriptor set handles.
func (cb *CommandBuffer) CmdBindDescriptorSets(bindPoint, firstSet uint32, sets []uint64, dynamicOffsets []uint32) error {
	const op = "cmd bind descriptor sets"
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err := cb.check(op, 0); err != nil {
		return err
	}
	if len(sets) == 0 {
		return usage(op, fmt.Errorf("%w: no descriptor sets", ErrBadArgument))
	}
	cb.list.BindDescriptorSets(bindPoint, firstSet, sets, dynamicOffsets)
	return nil
}

// CmdBindIndexBuffer binds the index buffer.
func (cb *CommandBuffer) CmdBindIndexBuffer(b *Buffer, offset uint64, format gputypes.IndexFormat) error {
	const op = "cmd bind index buffer"
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err := cb.check(op, 0); err != nil {
		return err
	}
	if format != gputypes.IndexFormatUint16 && format != gputypes.IndexFormatUint32 {
		return usage(op, fmt.Errorf("%w: index format %v", ErrBadArgument, format))
	}
	if err := cb.trackLocked(op, b); err != nil {
		return err
	}
	cb.list.BindIndexBuffer(b.name, offset, format)
	return nil
}

// CmdBindVertexBuffers binds vertex buffers starting at binding first.
func (cb *CommandBuffer) CmdBindVertexBuffers(first uint32, buffers []*Buffer, offsets []uint64) error {
	const op = "cmd bind vertex buffers"
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err := cb.check(op, 0); err != nil {
		return err
	}
	if len(buffers) == 0 || len(buffers) != len(offsets) {
		return usage(op, fmt.Errorf("%w: %d buffers, %d offsets", ErrBadArgument, len(buffers), len(offsets)))
	}
	if int(first)+len(buffers) > statecache.MaxVertexBindings {
		return usage(op, fmt.Errorf("%w: bindings [%d,%d)", ErrBadArgument, first, int(first)+len(buffers)))
	}
	bindings := make([]encoding.VertexBinding, len(buffers))
	for i, b := range buffers {
		if err := cb.trackLocked(op, b); err != nil {
			return err
		}
		bindings[i] = encoding.VertexBinding{Buffer: b.name, Offset: offsets[i]}
	}
	cb.list.BindVertexBuffers(first, bindings)
	return nil
}

// CmdDraw draws non-indexed primitives.
func (cb *CommandBuffer) CmdDraw(vertexCount, instanceCount, firstVertex, firstInstance uint32) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err := cb.check("cmd draw", inPass); err != nil {
		return err
	}
	cb.list.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
	return nil
}

// CmdDrawIndexed draws indexed primitives.
func (cb *CommandBuffer) CmdDrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err := cb.check("cmd draw indexed", inPass); err != nil {
		return err
	}
	cb.list.DrawIndexed(indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
	return nil
}

// CmdDrawIndirect draws with parameters read from b.
func (cb *CommandBuffer) CmdDrawIndirect(b *Buffer, offset uint64, drawCount, stride uint32) error {
	return cb.drawIndirect("cmd draw indirect", false, b, offset, drawCount, stride)
}

// CmdDrawIndexedIndirect draws indexed primitives with parameters read
// from b.
func (cb *CommandBuffer) CmdDrawIndexedIndirect(b *Buffer, offset uint64, drawCount, stride uint32) error {
	return cb.drawIndirect("cmd draw indexed indirect", true, b, offset, drawCount, stride)
}

func (cb *CommandBuffer) drawIndirect(op string, indexed bool, b *Buffer, offset uint64, drawCount, stride uint32) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err := cb.check(op, inPass); err != nil {
		return err
	}
	if offset%4 != 0 || (drawCount > 1 && stride%4 != 0) {
		return usage(op, fmt.Errorf("%w: unaligned offset or stride", ErrBadArgument))
	}
	if err := cb.trackLocked(op, b); err != nil {
		return err
	}
	if indexed {
		cb.list.DrawIndexedIndirect(b.name, offset, drawCount, stride)
	} else {
		cb.list.DrawIndirect(b.name, offset, drawCount, stride)
	}
	return nil
}

// CmdDispatch dispatches compute work groups.
func (cb *CommandBuffer) CmdDispatch(x, y, z uint32) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err := cb.check("cmd dispatch", outsidePass); err != nil {
		return err
	}
	cb.list.Dispatch(x, y, z)
	return nil
}

// CmdDispatchIndirect dispatches with group counts read from b.
func (cb *CommandBuffer) CmdDispatchIndirect(b *Buffer, offset uint64) error {
	const op = "cmd dispatch indirect"
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err := cb.check(op, outsidePass); err != nil {
		return err
	}
	if offset%4 != 0 {
		return usage(op, fmt.Errorf("%w: unaligned offset %d", ErrBadArgument, offset))
	}
	if err := cb.trackLocked(op, b); err != nil {
		return err
	}
	cb.list.DispatchIndirect(b.name, offset)
	return nil
}

// inRange reports whether [offset, offset+size) fits in b. Buffers with no
// known size accept any range.
func (b *Buffer) inRange(offset, size uint64) bool {
	return b.size == 0 || (offset <= b.size && size <= b.size-offset)
}

// CmdCopyBuffer copies regions from src to dst.
func (cb *CommandBuffer) CmdCopyBuffer(src, dst *Buffer, regions []BufferCopy) error {
	const op = "cmd copy buffer"
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err := cb.check(op, outsidePass); err != nil {
		return err
	}
	if len(regions) == 0 {
		return usage(op, fmt.Errorf("%w: no regions", ErrBadArgument))
	}
	for _, r := range regions {
		if r.Size == 0 || !src.inRange(r.SrcOffset, r.Size) || !dst.inRange(r.DstOffset, r.Size) {
			return usage(op, fmt.Errorf("%w: region %+v", ErrBadArgument, r))
		}
	}
	if err := cb.trackLocked(op, src); err != nil {
		return err
	}
	if err := cb.trackLocked(op, dst); err != nil {
		return err
	}
	cb.list.CopyBuffer(src.name, dst.name, regions)
	return nil
}

// CmdUpdateBuffer writes data into dst. The data is copied into the list.
func (cb *CommandBuffer) CmdUpdateBuffer(dst *Buffer, offset uint64, data []byte) error {
	const op = "cmd update buffer"
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err := cb.check(op, outsidePass); err != nil {
		return err
	}
	n := uint64(len(data))
	if n == 0 || n > maxUpdateSize || n%4 != 0 || offset%4 != 0 || !dst.inRange(offset, n) {
		return usage(op, fmt.Errorf("%w: %d bytes at %d", ErrBadArgument, n, offset))
	}
	if err := cb.trackLocked(op, dst); err != nil {
		return err
	}
	cb.list.UpdateBuffer(dst.name, offset, data)
	return nil
}

// CmdFillBuffer fills size bytes of dst with value. WholeSize fills to the
// end of a sized buffer, rounded down to a multiple of 4.
func (cb *CommandBuffer) CmdFillBuffer(dst *Buffer, offset, size uint64, value uint32) error {
	const op = "cmd fill buffer"
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err := cb.check(op, outsidePass); err != nil {
		return err
	}
	if size == WholeSize {
		if dst.size == 0 || offset > dst.size {
			return usage(op, fmt.Errorf("%w: whole size of unsized buffer", ErrBadArgument))
		}
		size = (dst.size - offset) &^ 3
	}
	if size == 0 || size%4 != 0 || offset%4 != 0 || !dst.inRange(offset, size) {
		return usage(op, fmt.Errorf("%w: %d bytes at %d", ErrBadArgument, size, offset))
	}
	if err := cb.trackLocked(op, dst); err != nil {
		return err
	}
	cb.list.FillBuffer(dst.name, offset, size, value)
	return nil
}

// CmdBlitImage copies and scales regions from src to dst.
func (cb *CommandBuffer) CmdBlitImage(src, dst *Image, regions []BlitRegion, filter gputypes.FilterMode) error {
	const op = "cmd blit image"
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err := cb.check(op, outsidePass); err != nil {
		return err
	}
	if len(regions) == 0 {
		return usage(op, fmt.Errorf("%w: no regions", ErrBadArgument))
	}
	if err := cb.trackLocked(op, src); err != nil {
		return err
	}
	if err := cb.trackLocked(op, dst); err != nil {
		return err
	}
	cb.list.BlitImage(src.framebuffer, src.height, dst.framebuffer, dst.height, filter, regions)
	return nil
}

// CmdClearColorImage clears a whole color image.
func (cb *CommandBuffer) CmdClearColorImage(img *Image, color gputypes.Color) error {
	const op = "cmd clear color image"
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err := cb.check(op, outsidePass); err != nil {
		return err
	}
	if err := cb.trackLocked(op, img); err != nil {
		return err
	}
	cb.list.ClearColorImage(img.framebuffer, img.height, color)
	return nil
}

// CmdClearDepthStencilImage clears the aspects in aspectMask of a whole
// depth/stencil image.
func (cb *CommandBuffer) CmdClearDepthStencilImage(img *Image, aspectMask uint32, depth float32, stencil uint32) error {
	const op = "cmd clear depth stencil image"
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err := cb.check(op, outsidePass); err != nil {
		return err
	}
	if aspectMask == 0 || aspectMask&^(encoding.AspectDepth|encoding.AspectStencil) != 0 {
		return usage(op, fmt.Errorf("%w: aspect mask %#x", ErrBadArgument, aspectMask))
	}
	if err := cb.trackLocked(op, img); err != nil {
		return err
	}
	cb.list.ClearDepthStencilImage(img.framebuffer, img.height, aspectMask, depth, stencil)
	return nil
}

// CmdClearAttachments clears attachments of the current subpass inside
// rects.
func (cb *CommandBuffer) CmdClearAttachments(attachments []ClearAttachment, rects []Rect) error {
	const op = "cmd clear attachments"
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err := cb.check(op, inPass); err != nil {
		return err
	}
	if len(attachments) == 0 || len(rects) == 0 {
		return usage(op, fmt.Errorf("%w: %d attachments, %d rects", ErrBadArgument, len(attachments), len(rects)))
	}
	colors := len(cb.pass.subpassAtts[cb.subpass])
	out := make([]encoding.ClearAttachment, len(attachments))
	for i, a := range attachments {
		if a.AspectMask&encoding.AspectColor != 0 && int(a.ColorAttachment) >= colors {
			return usage(op, fmt.Errorf("%w: color attachment %d of %d", ErrBadArgument, a.ColorAttachment, colors))
		}
		out[i] = encoding.ClearAttachment{AspectMask: a.AspectMask, DrawBuffer: a.ColorAttachment, Value: a.Value}
	}
	cb.list.ClearAttachments(out, rects)
	return nil
}

// CmdPipelineBarrier records a memory barrier.
func (cb *CommandBuffer) CmdPipelineBarrier(srcStageMask, dstStageMask uint32, barriers []AccessPair) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err := cb.check("cmd pipeline barrier", 0); err != nil {
		return err
	}
	cb.list.PipelineBarrier(srcStageMask, dstStageMask, barriers)
	return nil
}

// CmdPushConstants updates the push constant block. The data is copied.
func (cb *CommandBuffer) CmdPushConstants(stageFlags, offset uint32, data []byte) error {
	const op = "cmd push constants"
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err := cb.check(op, 0); err != nil {
		return err
	}
	limit := cb.pool.dev.opts.pushSize
	if len(data) == 0 || len(data)%4 != 0 || offset%4 != 0 || int(offset)+len(data) > limit {
		return usage(op, fmt.Errorf("%w: %d bytes at %d, limit %d", ErrBadArgument, len(data), offset, limit))
	}
	cb.list.PushConstants(stageFlags, offset, data)
	return nil
}

// CmdBeginRenderPass starts a render pass instance on a primary buffer.
func (cb *CommandBuffer) CmdBeginRenderPass(info RenderPassBeginInfo) error {
	const op = "cmd begin render pass"
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err := cb.check(op, outsidePass|primaryOnly); err != nil {
		return err
	}
	rp, fb := info.RenderPass, info.Framebuffer
	if rp == nil || fb == nil {
		return usage(op, fmt.Errorf("%w: missing render pass or framebuffer", ErrBadArgument))
	}
	loads := make([]encoding.AttachmentLoad, len(rp.attachments))
	for i, a := range rp.attachments {
		l := encoding.AttachmentLoad{
			AspectMask:    a.Aspect,
			Slot:          rp.slots[i],
			LoadOp:        a.LoadOp,
			StencilLoadOp: a.StencilLoadOp,
		}
		if rp.needsClear(i) {
			if i >= len(info.ClearValues) {
				return usage(op, fmt.Errorf("%w: no clear value for attachment %d", ErrBadArgument, i))
			}
			l.Value = info.ClearValues[i]
		}
		loads[i] = l
	}
	if err := cb.trackLocked(op, rp); err != nil {
		return err
	}
	if err := cb.trackLocked(op, fb); err != nil {
		return err
	}
	for _, img := range fb.attachments {
		if err := cb.trackLocked(op, img); err != nil {
			return err
		}
	}
	cb.list.BeginRenderPass(fb.name, fb.width, fb.height, info.RenderArea, loads, rp.drawBuffers[0])
	cb.pass, cb.fb, cb.subpass, cb.inherited = rp, fb, 0, false
	return nil
}

// CmdNextSubpass advances to the next subpass.
func (cb *CommandBuffer) CmdNextSubpass() error {
	const op = "cmd next subpass"
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err := cb.check(op, inPass|primaryOnly); err != nil {
		return err
	}
	if int(cb.subpass)+1 >= len(cb.pass.drawBuffers) {
		return usage(op, fmt.Errorf("%w: already in last subpass", ErrBadArgument))
	}
	cb.subpass++
	cb.list.NextSubpass(cb.pass.drawBuffers[cb.subpass])
	return nil
}

// CmdEndRenderPass ends the render pass instance in its last subpass.
func (cb *CommandBuffer) CmdEndRenderPass() error {
	const op = "cmd end render pass"
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err := cb.check(op, inPass|primaryOnly); err != nil {
		return err
	}
	if int(cb.subpass)+1 != len(cb.pass.drawBuffers) {
		return usage(op, fmt.Errorf("%w: subpass %d of %d", ErrBadArgument, cb.subpass, len(cb.pass.drawBuffers)))
	}
	cb.list.EndRenderPass(cb.pass.discards(cb.fb.name))
	cb.endPassLocked()
	return nil
}

// CmdExecuteCommands runs secondary buffers inline. Their lists are
// referenced, not copied, so a secondary recorded again before the next
// submission of this buffer replays its new contents.
func (cb *CommandBuffer) CmdExecuteCommands(secondaries ...*CommandBuffer) error {
	const op = "cmd execute commands"
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err := cb.check(op, primaryOnly); err != nil {
		return err
	}
	if len(secondaries) == 0 {
		return usage(op, fmt.Errorf("%w: no secondary buffers", ErrBadArgument))
	}
	lists := make([]*encoding.List, len(secondaries))
	for i, s := range secondaries {
		if s == nil || s.level != LevelSecondary {
			return usage(op, ErrWrongLevel)
		}
		s.mu.Lock()
		ok := s.state == StateExecutable && !s.destroyed.Load()
		cont := s.usage&UsageRenderPassContinue != 0
		lists[i] = s.list
		s.mu.Unlock()
		if !ok {
			return usage(op, ErrSecondaryNotExecutable)
		}
		if cont != (cb.pass != nil) {
			return usage(op, fmt.Errorf("%w: render pass continue does not match", ErrBadArgument))
		}
	}
	for _, s := range secondaries {
		cb.refs[&s.object] = struct{}{}
		cb.secondaries = append(cb.secondaries, s)
	}
	cb.list.ExecuteCommands(lists)
	return nil
}

// CmdBeginQuery starts occlusion query index of pool.
func (cb *CommandBuffer) CmdBeginQuery(pool *QueryPool, index uint32, flags QueryControlFlags) error {
	const op = "cmd begin query"
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err := cb.check(op, 0); err != nil {
		return err
	}
	switch {
	case pool.typ != QueryOcclusion:
		return usage(op, fmt.Errorf("%w: not an occlusion pool", ErrBadArgument))
	case int(index) >= len(pool.names):
		return usage(op, fmt.Errorf("%w: query %d of %d", ErrBadArgument, index, len(pool.names)))
	case cb.query != 0:
		return usage(op, fmt.Errorf("%w: query already active", ErrBadArgument))
	}
	if err := cb.trackLocked(op, pool); err != nil {
		return err
	}
	target := uint32(backend.ANY_SAMPLES_PASSED)
	if flags&QueryControlPrecise != 0 {
		target = backend.SAMPLES_PASSED
	}
	cb.query, cb.queryPool, cb.queryIndex = target, pool, index
	cb.list.BeginQuery(target, pool.names[index])
	return nil
}

// CmdEndQuery ends the active query.
func (cb *CommandBuffer) CmdEndQuery(pool *QueryPool, index uint32) error {
	const op = "cmd end query"
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err := cb.check(op, 0); err != nil {
		return err
	}
	if cb.query == 0 || cb.queryPool != pool || cb.queryIndex != index {
		return usage(op, fmt.Errorf("%w: no active query %d", ErrBadArgument, index))
	}
	cb.list.EndQuery(cb.query)
	cb.query, cb.queryPool, cb.queryIndex = 0, nil, 0
	return nil
}

// CmdWriteTimestamp writes the GPU time into timestamp query index of
// pool.
func (cb *CommandBuffer) CmdWriteTimestamp(stage uint32, pool *QueryPool, index uint32) error {
	const op = "cmd write timestamp"
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err := cb.check(op, 0); err != nil {
		return err
	}
	if pool.typ != QueryTimestamp || int(index) >= len(pool.names) {
		return usage(op, fmt.Errorf("%w: timestamp query %d", ErrBadArgument, index))
	}
	if err := cb.trackLocked(op, pool); err != nil {
		return err
	}
	cb.list.WriteTimestamp(pool.names[index])
	return nil
}

// CmdBeginDebugLabel opens a debug group.
func (cb *CommandBuffer) CmdBeginDebugLabel(label string) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err := cb.check("cmd begin debug label", 0); err != nil {
		return err
	}
	cb.list.BeginDebugLabel(label)
	return nil
}

// CmdEndDebugLabel closes the innermost debug group.
func (cb *CommandBuffer) CmdEndDebugLabel() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err := cb.check("cmd end debug label", 0); err != nil {
		return err
	}
	cb.list.EndDebugLabel()
	return nil
}
