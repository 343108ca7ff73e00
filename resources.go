package vkgl

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/vkgl/backend"
	"github.com/gogpu/vkgl/encoding"
	"github.com/gogpu/vkgl/internal/statecache"
	"github.com/gogpu/wgpu/hal/gles/gl"
)

// AttachmentUnused marks an unused color attachment reference in a
// subpass.
const AttachmentUnused = ^uint32(0)

// WholeSize selects the rest of a buffer from an offset.
const WholeSize = ^uint64(0)

// object is embedded by every handle that command buffers can reference.
type object struct {
	destroyed atomic.Bool
}

func (o *object) obj() *object { return o }

// PipelineInfo describes a pipeline made of native objects the caller
// created. StencilFront and StencilBack left undefined disable the
// stencil test.
type PipelineInfo struct {
	BindPoint     uint32
	Program       uint32
	VertexArray   uint32
	Topology      gputypes.PrimitiveTopology
	StencilFront  gputypes.CompareFunction
	StencilBack   gputypes.CompareFunction
	VertexStrides []uint32
}

// Pipeline is a bound program with its fixed state.
type Pipeline struct {
	object
	info    PipelineInfo
	stencil [2]uint32
}

// BufferInfo names a native buffer. A zero Size disables range checks.
type BufferInfo struct {
	Name uint32
	Size uint64
}

// Buffer is a native buffer.
type Buffer struct {
	object
	name uint32
	size uint64
}

// Name returns the native buffer name.
func (b *Buffer) Name() uint32 { return b.name }

// ImageInfo names the framebuffer that exposes an image to blits and
// clears. Framebuffer 0 is the window system framebuffer.
type ImageInfo struct {
	Framebuffer uint32
	Width       uint32
	Height      uint32
}

// Image is an image addressed through a framebuffer.
type Image struct {
	object
	framebuffer uint32
	width       uint32
	height      uint32
}

// Size returns the image extent.
func (i *Image) Size() (width, height uint32) { return i.width, i.height }

// FramebufferInfo names a native framebuffer and the images attached to
// it.
type FramebufferInfo struct {
	Name        uint32
	Width       uint32
	Height      uint32
	Attachments []*Image
}

// Framebuffer is a native framebuffer used as a render pass target.
type Framebuffer struct {
	object
	name        uint32
	width       uint32
	height      uint32
	attachments []*Image
}

// AttachmentDescription describes one render pass attachment. Aspect is a
// combination of encoding.AspectColor, AspectDepth and AspectStencil.
type AttachmentDescription struct {
	Aspect         uint32
	LoadOp         gputypes.LoadOp
	StoreOp        gputypes.StoreOp
	StencilLoadOp  gputypes.LoadOp
	StencilStoreOp gputypes.StoreOp
}

// SubpassDescription lists the attachments a subpass renders to, by
// index into the render pass attachments.
type SubpassDescription struct {
	ColorAttachments []uint32
}

// RenderPassInfo describes a render pass.
type RenderPassInfo struct {
	Attachments []AttachmentDescription
	Subpasses   []SubpassDescription
}

// RenderPass holds the attachment layout resolved to draw buffer slots.
type RenderPass struct {
	object
	attachments []AttachmentDescription
	slots       []uint32   // color slot per attachment
	drawBuffers [][]uint32 // draw buffer enums per subpass
	subpassAtts [][]uint32 // attachment index per draw buffer, per subpass
}

// Subpasses returns the number of subpasses.
func (rp *RenderPass) Subpasses() int { return len(rp.drawBuffers) }

// QueryType selects what a query pool measures.
type QueryType uint32

// Query types.
const (
	QueryOcclusion QueryType = iota
	QueryTimestamp
)

// QueryPoolInfo lists the native query objects of a pool.
type QueryPoolInfo struct {
	Type  QueryType
	Names []uint32
}

// QueryPool is a fixed set of native queries.
type QueryPool struct {
	object
	typ   QueryType
	names []uint32
}

// CreatePipeline creates a pipeline. Native objects are not created; the
// pipeline takes ownership of info.Program and info.VertexArray and
// deletes them on destroy.
func (d *Device) CreatePipeline(info PipelineInfo) (*Pipeline, error) {
	const op = "create pipeline"
	if err := d.alive(); err != nil {
		return nil, err
	}
	if info.BindPoint != encoding.BindPointGraphics && info.BindPoint != encoding.BindPointCompute {
		return nil, usage(op, fmt.Errorf("%w: bind point %d", ErrBadArgument, info.BindPoint))
	}
	if len(info.VertexStrides) > statecache.MaxVertexBindings {
		return nil, usage(op, fmt.Errorf("%w: %d vertex bindings", ErrBadArgument, len(info.VertexStrides)))
	}
	p := &Pipeline{info: info}
	p.info.VertexStrides = append([]uint32(nil), info.VertexStrides...)
	for i, f := range [2]gputypes.CompareFunction{info.StencilFront, info.StencilBack} {
		fn, ok := compareFunc(f)
		if !ok {
			return nil, usage(op, fmt.Errorf("%w: compare function %d", ErrBadArgument, f))
		}
		p.stencil[i] = fn
	}
	return p, nil
}

// compareFunc maps a compare function to its GL enum. Undefined maps to
// 0, which disables the test.
func compareFunc(f gputypes.CompareFunction) (uint32, bool) {
	switch {
	case f == gputypes.CompareFunctionUndefined:
		return 0, true
	case f <= gputypes.CompareFunctionAlways:
		return gl.NEVER + uint32(f-gputypes.CompareFunctionNever), true
	default:
		return 0, false
	}
}

// CreateBuffer wraps a native buffer.
func (d *Device) CreateBuffer(info BufferInfo) (*Buffer, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	return &Buffer{name: info.Name, size: info.Size}, nil
}

// CreateImage wraps a framebuffer backed image.
func (d *Device) CreateImage(info ImageInfo) (*Image, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	if info.Width == 0 || info.Height == 0 {
		return nil, usage("create image", fmt.Errorf("%w: empty extent", ErrBadArgument))
	}
	return &Image{framebuffer: info.Framebuffer, width: info.Width, height: info.Height}, nil
}

// CreateFramebuffer wraps a native framebuffer.
func (d *Device) CreateFramebuffer(info FramebufferInfo) (*Framebuffer, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	if info.Width == 0 || info.Height == 0 {
		return nil, usage("create framebuffer", fmt.Errorf("%w: empty extent", ErrBadArgument))
	}
	return &Framebuffer{
		name:        info.Name,
		width:       info.Width,
		height:      info.Height,
		attachments: append([]*Image(nil), info.Attachments...),
	}, nil
}

// CreateRenderPass creates a render pass. Color attachments are numbered
// into draw buffer slots in attachment order.
func (d *Device) CreateRenderPass(info RenderPassInfo) (*RenderPass, error) {
	const op = "create render pass"
	if err := d.alive(); err != nil {
		return nil, err
	}
	if len(info.Subpasses) == 0 {
		return nil, usage(op, fmt.Errorf("%w: no subpasses", ErrBadArgument))
	}

	rp := &RenderPass{
		attachments: append([]AttachmentDescription(nil), info.Attachments...),
		slots:       make([]uint32, len(info.Attachments)),
	}
	var slot uint32
	for i, a := range info.Attachments {
		if a.Aspect&encoding.AspectColor != 0 {
			rp.slots[i] = slot
			slot++
		}
	}
	for s, sp := range info.Subpasses {
		bufs := make([]uint32, len(sp.ColorAttachments))
		atts := make([]uint32, len(sp.ColorAttachments))
		for j, a := range sp.ColorAttachments {
			atts[j] = a
			if a == AttachmentUnused {
				continue
			}
			if int(a) >= len(info.Attachments) || info.Attachments[a].Aspect&encoding.AspectColor == 0 {
				return nil, usage(op, fmt.Errorf("%w: subpass %d color attachment %d", ErrBadArgument, s, a))
			}
			bufs[j] = gl.COLOR_ATTACHMENT0 + rp.slots[a]
		}
		rp.drawBuffers = append(rp.drawBuffers, bufs)
		rp.subpassAtts = append(rp.subpassAtts, atts)
	}
	return rp, nil
}

// discards returns the attachments whose contents a pass on framebuffer
// fb may drop.
func (rp *RenderPass) discards(fb uint32) []uint32 {
	var out []uint32
	for i, a := range rp.attachments {
		if a.Aspect&encoding.AspectColor != 0 {
			if a.StoreOp != gputypes.StoreOpDiscard {
				continue
			}
			if fb == 0 {
				out = append(out, backend.COLOR)
			} else {
				out = append(out, gl.COLOR_ATTACHMENT0+rp.slots[i])
			}
			continue
		}
		depth := a.Aspect&encoding.AspectDepth != 0 && a.StoreOp == gputypes.StoreOpDiscard
		stencil := a.Aspect&encoding.AspectStencil != 0 && a.StencilStoreOp == gputypes.StoreOpDiscard
		switch {
		case fb == 0:
			if depth {
				out = append(out, backend.DEPTH)
			}
			if stencil {
				out = append(out, backend.STENCIL)
			}
		case depth && stencil:
			out = append(out, gl.DEPTH_STENCIL_ATTACHMENT)
		case depth:
			out = append(out, gl.DEPTH_ATTACHMENT)
		case stencil:
			out = append(out, gl.STENCIL_ATTACHMENT)
		}
	}
	return out
}

// needsClear reports whether attachment i is cleared on load.
func (rp *RenderPass) needsClear(i int) bool {
	a := rp.attachments[i]
	if a.LoadOp == gputypes.LoadOpClear {
		return true
	}
	return a.Aspect&encoding.AspectStencil != 0 && a.StencilLoadOp == gputypes.LoadOpClear
}

// CreateQueryPool wraps native query objects.
func (d *Device) CreateQueryPool(info QueryPoolInfo) (*QueryPool, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	if info.Type != QueryOcclusion && info.Type != QueryTimestamp {
		return nil, usage("create query pool", fmt.Errorf("%w: query type %d", ErrBadArgument, info.Type))
	}
	return &QueryPool{typ: info.Type, names: append([]uint32(nil), info.Names...)}, nil
}

// DestroyPipeline deletes the pipeline's program and vertex array.
func (d *Device) DestroyPipeline(p *Pipeline) error {
	return d.destroy(&p.object, func(c *statecache.Cache) {
		c.DeleteProgram(p.info.Program)
		if p.info.VertexArray != 0 {
			c.DeleteVertexArray(p.info.VertexArray)
		}
	})
}

// DestroyBuffer deletes the native buffer.
func (d *Device) DestroyBuffer(b *Buffer) error {
	return d.destroy(&b.object, func(c *statecache.Cache) {
		c.DeleteBuffer(b.name)
	})
}

// DestroyImage forgets the image. Its framebuffer stays alive.
func (d *Device) DestroyImage(i *Image) error {
	return d.destroy(&i.object, (*statecache.Cache).Invalidate)
}

// DestroyFramebuffer deletes the native framebuffer.
func (d *Device) DestroyFramebuffer(f *Framebuffer) error {
	return d.destroy(&f.object, func(c *statecache.Cache) {
		if f.name != 0 {
			c.DeleteFramebuffer(f.name)
		}
	})
}

// DestroyRenderPass forgets the render pass.
func (d *Device) DestroyRenderPass(rp *RenderPass) error {
	return d.destroy(&rp.object, nil)
}

// DestroyQueryPool forgets the query pool.
func (d *Device) DestroyQueryPool(qp *QueryPool) error {
	return d.destroy(&qp.object, nil)
}

// destroy marks o destroyed, invalidates every command buffer that
// references it, then runs release on the context goroutine.
func (d *Device) destroy(o *object, release func(c *statecache.Cache)) error {
	if !o.destroyed.CompareAndSwap(false, true) {
		return nil
	}
	d.invalidateReferencing(o)
	if release == nil {
		return nil
	}
	return d.do(func() { release(d.engine.Cache()) })
}

// invalidateReferencing moves every command buffer that references o to
// Invalid. Primaries that execute an invalidated secondary follow.
func (d *Device) invalidateReferencing(o *object) {
	var secondaries []*object
	d.eachCommandBuffer(func(cb *CommandBuffer) {
		if cb.invalidateIfReferencing(o) && cb.level == LevelSecondary {
			secondaries = append(secondaries, &cb.object)
		}
	})
	if len(secondaries) == 0 {
		return
	}
	d.eachCommandBuffer(func(cb *CommandBuffer) {
		if cb.level != LevelPrimary {
			return
		}
		for _, s := range secondaries {
			if cb.invalidateIfReferencing(s) {
				return
			}
		}
	})
}

func (d *Device) eachCommandBuffer(fn func(cb *CommandBuffer)) {
	d.mu.Lock()
	pools := make([]*CommandPool, 0, len(d.pools))
	for p := range d.pools {
		pools = append(pools, p)
	}
	d.mu.Unlock()
	for _, p := range pools {
		for _, cb := range p.snapshot() {
			fn(cb)
		}
	}
}
