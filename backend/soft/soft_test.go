package soft

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/vkgl/backend"
	"github.com/gogpu/vkgl/encoding"
	"github.com/gogpu/vkgl/replay"
	"github.com/gogpu/wgpu/hal/gles/gl"
)

var (
	red   = color.RGBA{R: 255, A: 255}
	blank = color.RGBA{}
)

func replayList(t *testing.T, c *Context, l *encoding.List) error {
	t.Helper()
	e := replay.New(c.Procs(), replay.Options{DefaultFramebufferHeight: DefaultHeight})
	return e.Replay(l)
}

func TestSoft_Registered(t *testing.T) {
	if !backend.IsRegistered(backend.NameSoft) {
		t.Fatal("soft backend not registered")
	}
	p, err := backend.Open(backend.NameSoft)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestSoft_RenderPassClearsInsideArea(t *testing.T) {
	c := New(8, 8)
	fb := c.CreateFramebuffer(4, 4, 2, true)
	l := encoding.NewList()
	l.BeginRenderPass(fb, 4, 4, encoding.Rect{Width: 4, Height: 2}, []encoding.AttachmentLoad{
		{AspectMask: encoding.AspectColor, Slot: 0, LoadOp: gputypes.LoadOpClear, Value: encoding.ColorClear(gputypes.Color{R: 1, A: 1})},
		{AspectMask: encoding.AspectColor, Slot: 1, LoadOp: gputypes.LoadOpLoad},
		{AspectMask: encoding.AspectDepth | encoding.AspectStencil, LoadOp: gputypes.LoadOpClear, StencilLoadOp: gputypes.LoadOpClear,
			Value: encoding.DepthStencilClear(0.5, 7)},
	}, []uint32{gl.COLOR_ATTACHMENT0, gl.COLOR_ATTACHMENT0 + 1})
	l.EndRenderPass(nil)

	if err := replayList(t, c, l); err != nil {
		t.Fatalf("Replay: %v", err)
	}

	f := c.Framebuffer(fb)
	tests := []struct {
		name string
		att  int
		x, y int
		want color.RGBA
	}{
		{"top row cleared", 0, 0, 0, red},
		{"second row cleared", 0, 3, 1, red},
		{"outside render area", 0, 0, 3, blank},
		{"load attachment untouched", 1, 0, 0, blank},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Color[tt.att].RGBAAt(tt.x, tt.y); got != tt.want {
				t.Errorf("pixel (%d,%d) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
	if d := f.Depth[0]; d != 0.5 {
		t.Errorf("depth inside area = %v, want 0.5", d)
	}
	if d := f.Depth[3*4]; d != 0 {
		t.Errorf("depth outside area = %v, want 0", d)
	}
	if s := f.Stencil[0]; s != 7 {
		t.Errorf("stencil = %d, want 7", s)
	}
}

func TestSoft_ClearColorImageIgnoresScissor(t *testing.T) {
	c := New(8, 8)
	fb := c.CreateFramebuffer(4, 4, 1, false)
	l := encoding.NewList()
	l.SetScissor(0, []encoding.Rect{{Width: 1, Height: 1}})
	l.ClearColorImage(fb, 4, gputypes.Color{R: 1, A: 1})
	if err := replayList(t, c, l); err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if got := c.Framebuffer(fb).Color[0].RGBAAt(3, 3); got != red {
		t.Errorf("corner pixel = %v, want red", got)
	}
}

func TestSoft_BlitScales(t *testing.T) {
	c := New(8, 8)
	src := c.CreateFramebuffer(2, 2, 1, false)
	dst := c.CreateFramebuffer(4, 4, 1, false)
	c.Framebuffer(src).Color[0].SetRGBA(0, 0, red)

	l := encoding.NewList()
	l.BlitImage(src, 2, dst, 4, gputypes.FilterModeNearest, []encoding.BlitRegion{
		{Src: [4]int32{0, 0, 2, 2}, Dst: [4]int32{0, 0, 4, 4}},
	})
	if err := replayList(t, c, l); err != nil {
		t.Fatalf("Replay: %v", err)
	}
	img := c.Framebuffer(dst).Color[0]
	for _, p := range []image.Point{{0, 0}, {1, 1}} {
		if got := img.RGBAAt(p.X, p.Y); got != red {
			t.Errorf("pixel %v = %v, want red", p, got)
		}
	}
	if got := img.RGBAAt(3, 3); got != blank {
		t.Errorf("pixel (3,3) = %v, want blank", got)
	}
}

func TestSoft_MirroredBlitFails(t *testing.T) {
	c := New(4, 4)
	p := c.Procs()
	p.BlitFramebuffer(0, 0, 4, 4, 4, 0, 0, 4, gl.COLOR_BUFFER_BIT, gl.NEAREST)
	if got := p.GetError(); got != gl.INVALID_OPERATION {
		t.Errorf("GetError = %#x, want INVALID_OPERATION", got)
	}
}

func TestSoft_Buffers(t *testing.T) {
	c := New(4, 4)
	a := c.CreateBuffer(16)
	b := c.CreateBuffer(16)

	l := encoding.NewList()
	l.UpdateBuffer(a, 4, []byte("abcd"))
	l.FillBuffer(a, 8, 4, 0x2a2a2a2a)
	l.CopyBuffer(a, b, []encoding.BufferCopy{{SrcOffset: 4, DstOffset: 0, Size: 8}})
	if err := replayList(t, c, l); err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if got := string(c.Buffer(b)[:8]); got != "abcd****" {
		t.Errorf("copied bytes = %q, want %q", got, "abcd****")
	}
}

func TestSoft_OutOfRangeWriteReportsError(t *testing.T) {
	c := New(4, 4)
	buf := c.CreateBuffer(4)
	l := encoding.NewList()
	l.UpdateBuffer(buf, 2, []byte("abcd"))

	err := replayList(t, c, l)
	var be *backend.Error
	if !errors.As(err, &be) || be.Code != gl.INVALID_VALUE {
		t.Errorf("Replay = %v, want INVALID_VALUE", err)
	}
}

func TestSoft_CountsDraws(t *testing.T) {
	c := New(4, 4)
	l := encoding.NewList()
	l.Draw(3, 1, 0, 0)
	l.DrawIndexed(3, 1, 0, 0, 0)
	l.Dispatch(1, 1, 1)
	if err := replayList(t, c, l); err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if s := c.Stats(); s.Draws != 2 || s.Dispatches != 1 {
		t.Errorf("Stats = %+v, want 2 draws and 1 dispatch", s)
	}
}

func TestSoft_SyncAndPresent(t *testing.T) {
	c := New(4, 4)
	p := c.Procs()

	s := p.FenceSync()
	if got := p.ClientWaitSync(s, 0); got != gl.ALREADY_SIGNALED {
		t.Errorf("ClientWaitSync = %#x, want ALREADY_SIGNALED", got)
	}
	p.DeleteSync(s)
	if got := p.ClientWaitSync(s, 0); got != gl.WAIT_FAILED {
		t.Errorf("ClientWaitSync after delete = %#x, want WAIT_FAILED", got)
	}

	var presented *image.RGBA
	c.SetPresent(func(img *image.RGBA) error {
		presented = img
		return nil
	})
	if err := p.SwapBuffers(0); err != nil {
		t.Fatalf("SwapBuffers: %v", err)
	}
	if presented != c.Framebuffer(0).Color[0] {
		t.Error("SwapBuffers did not present the default framebuffer")
	}
	if err := p.SwapBuffers(99); !errors.Is(err, ErrUnknownFramebuffer) {
		t.Errorf("SwapBuffers(99) = %v, want ErrUnknownFramebuffer", err)
	}
	if got := c.Stats().Frames; got != 1 {
		t.Errorf("Frames = %d, want 1", got)
	}
}
