// Package soft provides a CPU backend that keeps framebuffers as
// *image.RGBA images and buffers as byte slices.
//
// Programs are opaque to the core, so draws and dispatches are counted but
// not rasterized. Everything else a command list can do to memory is
// carried out: clears honor draw buffers and the scissor test, blits scale
// with golang.org/x/image/draw, and buffer updates and copies land in the
// backing slices. This makes the backend suitable for headless tests that
// check pixels and buffer contents.
//
// Work executes synchronously, so every sync object is signaled when it is
// created.
package soft

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"golang.org/x/image/draw"

	"github.com/gogpu/vkgl/backend"
	"github.com/gogpu/wgpu/hal/gles/gl"
)

// Size of the default framebuffer created by the registered backend.
const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

// ErrUnknownFramebuffer is returned by SwapBuffers for a framebuffer that
// was never created.
var ErrUnknownFramebuffer = errors.New("soft: unknown framebuffer")

func init() {
	backend.Register(backend.NameSoft, func() backend.Backend { return softBackend{} })
}

type softBackend struct{}

func (softBackend) Name() string { return backend.NameSoft }

func (softBackend) Open() (*backend.Procs, error) {
	return New(DefaultWidth, DefaultHeight).Procs(), nil
}

// Framebuffer is a set of attachments of one size. Depth and Stencil are
// nil when the framebuffer has no depth/stencil attachment. Rows are
// stored top to bottom.
type Framebuffer struct {
	Width, Height int
	Color         []*image.RGBA
	Depth         []float32
	Stencil       []uint8

	drawBuffers []int // color attachment per draw buffer slot, -1 for none
}

// Stats counts work the backend could not carry out on memory.
type Stats struct {
	Draws      int
	Dispatches int
	Barriers   int
	Frames     int
}

// Context is a software graphics context.
type Context struct {
	mu sync.Mutex

	framebuffers map[uint32]*Framebuffer
	buffers      map[uint32][]byte
	nextName     uint32

	drawFB, readFB uint32
	bound          map[uint32]uint32

	scissorTest bool
	scissor     [4]int32

	errs     []uint32
	nextSync backend.Sync
	syncs    map[backend.Sync]bool

	present func(*image.RGBA) error
	stats   Stats
}

// New creates a context whose default framebuffer 0 has one color
// attachment and a depth/stencil attachment of the given size.
func New(width, height int) *Context {
	c := &Context{
		framebuffers: make(map[uint32]*Framebuffer),
		buffers:      make(map[uint32][]byte),
		bound:        make(map[uint32]uint32),
		syncs:        make(map[backend.Sync]bool),
	}
	c.framebuffers[0] = newFramebuffer(width, height, 1, true)
	return c
}

func newFramebuffer(width, height, colors int, depthStencil bool) *Framebuffer {
	fb := &Framebuffer{Width: width, Height: height, drawBuffers: []int{0}}
	for range colors {
		fb.Color = append(fb.Color, image.NewRGBA(image.Rect(0, 0, width, height)))
	}
	if depthStencil {
		fb.Depth = make([]float32, width*height)
		fb.Stencil = make([]uint8, width*height)
	}
	return fb
}

// CreateFramebuffer creates a framebuffer and returns its name.
func (c *Context) CreateFramebuffer(width, height, colors int, depthStencil bool) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextName++
	c.framebuffers[c.nextName] = newFramebuffer(width, height, colors, depthStencil)
	return c.nextName
}

// CreateBuffer creates a zeroed buffer of size bytes and returns its name.
func (c *Context) CreateBuffer(size int) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextName++
	c.buffers[c.nextName] = make([]byte, size)
	return c.nextName
}

// Framebuffer returns the framebuffer named name, or nil.
func (c *Context) Framebuffer(name uint32) *Framebuffer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.framebuffers[name]
}

// Buffer returns the storage of the buffer named name, or nil.
func (c *Context) Buffer(name uint32) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffers[name]
}

// SetPresent sets the function SwapBuffers hands the first color
// attachment to.
func (c *Context) SetPresent(fn func(*image.RGBA) error) {
	c.mu.Lock()
	c.present = fn
	c.mu.Unlock()
}

// Stats returns the work counters.
func (c *Context) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *Context) fail(code uint32) {
	c.errs = append(c.errs, code)
}

func (c *Context) getError() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.errs) == 0 {
		return gl.NO_ERROR
	}
	code := c.errs[0]
	c.errs = c.errs[1:]
	return code
}

// clipRect returns the pixels of fb a clear touches, in image
// coordinates.
func (c *Context) clipRect(fb *Framebuffer) image.Rectangle {
	r := image.Rect(0, 0, fb.Width, fb.Height)
	if !c.scissorTest {
		return r
	}
	x, y, w, h := int(c.scissor[0]), int(c.scissor[1]), int(c.scissor[2]), int(c.scissor[3])
	return r.Intersect(image.Rect(x, fb.Height-(y+h), x+w, fb.Height-y))
}

func (c *Context) clearColor(slot int32, v [4]float32) {
	fb := c.framebuffers[c.drawFB]
	if slot < 0 || int(slot) >= len(fb.drawBuffers) {
		c.fail(gl.INVALID_VALUE)
		return
	}
	att := fb.drawBuffers[slot]
	if att < 0 {
		return
	}
	col := color.RGBA{R: unorm8(v[0]), G: unorm8(v[1]), B: unorm8(v[2]), A: unorm8(v[3])}
	draw.Draw(fb.Color[att], c.clipRect(fb), image.NewUniform(col), image.Point{}, draw.Src)
}

func (c *Context) clearDepthStencil(depth *float32, stencil *int32) {
	fb := c.framebuffers[c.drawFB]
	if fb.Depth == nil {
		return
	}
	r := c.clipRect(fb)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := y * fb.Width
		for x := r.Min.X; x < r.Max.X; x++ {
			if depth != nil {
				fb.Depth[row+x] = min(max(*depth, 0), 1)
			}
			if stencil != nil {
				fb.Stencil[row+x] = uint8(*stencil)
			}
		}
	}
}

func unorm8(f float32) uint8 {
	return uint8(min(max(f, 0), 1)*255 + 0.5)
}

// toImageRect converts a bottom-left origin span into an image rectangle
// of a target with height rows. It also reports the sign of each axis.
func toImageRect(x0, y0, x1, y1 int32, height int) (image.Rectangle, bool, bool) {
	r := image.Rect(int(x0), height-int(y0), int(x1), height-int(y1)).Canon()
	return r, x1 < x0, y1 < y0
}

func (c *Context) blit(sx0, sy0, sx1, sy1, dx0, dy0, dx1, dy1 int32, mask, filter uint32) {
	src, dst := c.framebuffers[c.readFB], c.framebuffers[c.drawFB]
	if mask&gl.COLOR_BUFFER_BIT == 0 {
		return
	}
	sr, sxNeg, syNeg := toImageRect(sx0, sy0, sx1, sy1, src.Height)
	dr, dxNeg, dyNeg := toImageRect(dx0, dy0, dx1, dy1, dst.Height)
	if sxNeg != dxNeg || syNeg != dyNeg {
		// Mirroring blits are not supported.
		c.fail(gl.INVALID_OPERATION)
		return
	}
	if len(src.Color) == 0 || len(dst.drawBuffers) == 0 || dst.drawBuffers[0] < 0 {
		c.fail(gl.INVALID_OPERATION)
		return
	}
	var interp draw.Interpolator = draw.NearestNeighbor
	if filter == gl.LINEAR {
		interp = draw.ApproxBiLinear
	}
	interp.Scale(dst.Color[dst.drawBuffers[0]], dr, src.Color[0], sr, draw.Src, nil)
}

func (c *Context) bindFramebuffer(target, name uint32) {
	if _, ok := c.framebuffers[name]; !ok {
		c.fail(gl.INVALID_OPERATION)
		return
	}
	switch target {
	case gl.DRAW_FRAMEBUFFER:
		c.drawFB = name
	case gl.READ_FRAMEBUFFER:
		c.readFB = name
	case gl.FRAMEBUFFER:
		c.drawFB, c.readFB = name, name
	default:
		c.fail(gl.INVALID_ENUM)
	}
}

func (c *Context) setDrawBuffers(bufs []uint32) {
	fb := c.framebuffers[c.drawFB]
	slots := make([]int, len(bufs))
	for i, b := range bufs {
		switch {
		case b == 0: // NONE
			slots[i] = -1
		case b >= gl.COLOR_ATTACHMENT0 && int(b-gl.COLOR_ATTACHMENT0) < len(fb.Color):
			slots[i] = int(b - gl.COLOR_ATTACHMENT0)
		case c.drawFB == 0:
			slots[i] = 0
		default:
			c.fail(gl.INVALID_OPERATION)
			return
		}
	}
	fb.drawBuffers = slots
}

func (c *Context) bindBuffer(target, name uint32) {
	if _, ok := c.buffers[name]; !ok && name != 0 {
		c.fail(gl.INVALID_OPERATION)
		return
	}
	c.bound[target] = name
}

// boundRange returns the bound buffer's bytes [offset, offset+size).
func (c *Context) boundRange(target uint32, offset, size int) ([]byte, bool) {
	buf, ok := c.buffers[c.bound[target]]
	if !ok || offset < 0 || size < 0 || offset+size > len(buf) {
		c.fail(gl.INVALID_VALUE)
		return nil, false
	}
	return buf[offset : offset+size], true
}

func (c *Context) swapBuffers(fb uint32) error {
	c.mu.Lock()
	f, ok := c.framebuffers[fb]
	present := c.present
	if ok {
		c.stats.Frames++
	}
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownFramebuffer, fb)
	}
	if present == nil || len(f.Color) == 0 {
		return nil
	}
	return present(f.Color[0])
}

// Procs returns the call table of the context. InvalidateFramebuffer,
// LineWidth, PolygonOffset, queries and debug groups are left nil.
func (c *Context) Procs() *backend.Procs {
	lock := func() func() {
		c.mu.Lock()
		return c.mu.Unlock
	}
	count := func(n *int) func() {
		return func() {
			defer lock()()
			*n++
		}
	}
	draws := count(&c.stats.Draws)
	dispatches := count(&c.stats.Dispatches)
	barriers := count(&c.stats.Barriers)
	return &backend.Procs{
		GetError: c.getError,
		Flush:    func() {},
		Finish:   func() {},

		Enable: func(capability uint32) {
			defer lock()()
			if capability == gl.SCISSOR_TEST {
				c.scissorTest = true
			}
		},
		Disable: func(capability uint32) {
			defer lock()()
			if capability == gl.SCISSOR_TEST {
				c.scissorTest = false
			}
		},
		Viewport:   func(uint32, float32, float32, float32, float32) {},
		DepthRange: func(uint32, float32, float32) {},
		Scissor: func(index uint32, x, y, w, h int32) {
			defer lock()()
			if index == 0 {
				c.scissor = [4]int32{x, y, w, h}
			}
		},
		BlendColor:          func(float32, float32, float32, float32) {},
		StencilFuncSeparate: func(uint32, uint32, int32, uint32) {},
		StencilMaskSeparate: func(uint32, uint32) {},

		UseProgram:      func(uint32) {},
		BindVertexArray: func(uint32) {},
		BindFramebuffer: func(target, fb uint32) {
			defer lock()()
			c.bindFramebuffer(target, fb)
		},
		DrawBuffers: func(bufs []uint32) {
			defer lock()()
			c.setDrawBuffers(bufs)
		},
		BindBuffer: func(target, buf uint32) {
			defer lock()()
			c.bindBuffer(target, buf)
		},
		BindBufferRange: func(target, _, buf uint32, _, _ int) {
			defer lock()()
			c.bindBuffer(target, buf)
		},
		BindVertexBuffer:  func(uint32, uint32, int, int32) {},
		BindDescriptorSet: func(uint32, uint32, uint64, []uint32) int { return 0 },

		DrawArraysInstancedBaseInstance:             func(uint32, int32, int32, int32, uint32) { draws() },
		DrawElementsInstancedBaseVertexBaseInstance: func(uint32, int32, uint32, uintptr, int32, int32, uint32) { draws() },
		DrawArraysIndirect:                          func(uint32, uintptr) { draws() },
		DrawElementsIndirect:                        func(uint32, uint32, uintptr) { draws() },
		DispatchCompute:                             func(uint32, uint32, uint32) { dispatches() },
		DispatchComputeIndirect:                     func(uintptr) { dispatches() },
		MemoryBarrier:                               func(uint32) { barriers() },

		ClearBufferfv: func(buf uint32, slot int32, v [4]float32) {
			defer lock()()
			switch buf {
			case backend.COLOR:
				c.clearColor(slot, v)
			case backend.DEPTH:
				c.clearDepthStencil(&v[0], nil)
			default:
				c.fail(gl.INVALID_ENUM)
			}
		},
		ClearBufferiv: func(buf uint32, _ int32, v [4]int32) {
			defer lock()()
			if buf != backend.STENCIL {
				c.fail(gl.INVALID_ENUM)
				return
			}
			c.clearDepthStencil(nil, &v[0])
		},
		ClearBufferfi: func(buf uint32, _ int32, depth float32, stencil int32) {
			defer lock()()
			if buf != gl.DEPTH_STENCIL {
				c.fail(gl.INVALID_ENUM)
				return
			}
			c.clearDepthStencil(&depth, &stencil)
		},
		BlitFramebuffer: func(sx0, sy0, sx1, sy1, dx0, dy0, dx1, dy1 int32, mask, filter uint32) {
			defer lock()()
			c.blit(sx0, sy0, sx1, sy1, dx0, dy0, dx1, dy1, mask, filter)
		},
		CopyBufferSubData: func(rt, wt uint32, ro, wo, size int) {
			defer lock()()
			src, ok := c.boundRange(rt, ro, size)
			if !ok {
				return
			}
			if dst, ok := c.boundRange(wt, wo, size); ok {
				copy(dst, src)
			}
		},
		BufferSubData: func(target uint32, offset int, data []byte) {
			defer lock()()
			if dst, ok := c.boundRange(target, offset, len(data)); ok {
				copy(dst, data)
			}
		},

		DeleteFramebuffer: func(fb uint32) {
			defer lock()()
			if fb != 0 {
				delete(c.framebuffers, fb)
			}
		},
		DeleteBuffer: func(buf uint32) {
			defer lock()()
			delete(c.buffers, buf)
		},

		FenceSync: func() backend.Sync {
			defer lock()()
			c.nextSync++
			c.syncs[c.nextSync] = true
			return c.nextSync
		},
		ClientWaitSync: func(s backend.Sync, _ uint64) uint32 {
			defer lock()()
			if !c.syncs[s] {
				return gl.WAIT_FAILED
			}
			return gl.ALREADY_SIGNALED
		},
		DeleteSync: func(s backend.Sync) {
			defer lock()()
			delete(c.syncs, s)
		},
		SwapBuffers: c.swapBuffers,
	}
}
