package replay

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/vkgl/backend"
	"github.com/gogpu/vkgl/backend/trace"
	"github.com/gogpu/vkgl/encoding"
	"github.com/gogpu/wgpu/hal/gles/gl"
)

func newTestEngine(opts Options) (*Engine, *trace.Recorder) {
	rec := trace.New()
	return New(rec.Procs(), opts), rec
}

// openPass opens a 100x100 render pass on framebuffer 1 without load
// clears.
func openPass(l *encoding.List) {
	l.BeginRenderPass(1, 100, 100, encoding.Rect{Width: 100, Height: 100}, nil,
		[]uint32{gl.COLOR_ATTACHMENT0})
}

var passSetup = []string{"BindFramebuffer", "DrawBuffers"}

func mustReplay(t *testing.T, e *Engine, l *encoding.List) {
	t.Helper()
	if err := e.Replay(l); err != nil {
		t.Fatalf("Replay: %v", err)
	}
}

func TestReplay_Fidelity(t *testing.T) {
	e, rec := newTestEngine(Options{DefaultFramebufferHeight: 100})
	l := encoding.NewList()
	l.SetBlendConstants([4]float32{0.1, 0.2, 0.3, 0.4})
	l.SetLineWidth(2)
	l.Draw(3, 1, 0, 0)
	l.Dispatch(4, 2, 1)
	l.PipelineBarrier(0, 0, []encoding.AccessPair{{Src: encoding.AccessShaderWrite, Dst: encoding.AccessShaderRead}})
	l.WriteTimestamp(7)
	l.BeginDebugLabel("frame")
	l.EndDebugLabel()

	mustReplay(t, e, l)

	want := []string{
		"BlendColor",
		"LineWidth",
		"DrawArraysInstancedBaseInstance",
		"DispatchCompute",
		"MemoryBarrier",
		"QueryCounter",
		"PushDebugGroup",
		"PopDebugGroup",
	}
	if got := rec.Names(); !slices.Equal(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
	if call, _ := rec.Last("PushDebugGroup"); call.Args[0] != "frame" {
		t.Errorf("debug label = %v, want frame", call.Args[0])
	}
	if got := e.Stats().Commands; got != uint64(l.Len()) {
		t.Errorf("Stats().Commands = %d, want %d", got, l.Len())
	}
}

func TestReplay_ViewportDedup(t *testing.T) {
	e, rec := newTestEngine(Options{})
	vp := []encoding.Viewport{{Width: 100, Height: 100, MaxDepth: 1}}
	l := encoding.NewList()
	openPass(l)
	l.SetViewport(0, vp)
	l.Draw(3, 1, 0, 0)
	l.SetViewport(0, vp)
	l.Draw(3, 1, 0, 0)
	l.EndRenderPass(nil)

	mustReplay(t, e, l)

	want := []string{"Viewport", "DrawArraysInstancedBaseInstance", "DrawArraysInstancedBaseInstance"}
	if got := rec.Names(passSetup...); !slices.Equal(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}

	t.Run("across lists", func(t *testing.T) {
		rec.Reset()
		mustReplay(t, e, l)
		if got := rec.Count("Viewport"); got != 0 {
			t.Errorf("Viewport calls on second replay = %d, want 0", got)
		}
		if got := rec.Count("BindFramebuffer"); got != 0 {
			t.Errorf("BindFramebuffer calls on second replay = %d, want 0", got)
		}
	})
}

func TestReplay_ViewportFlip(t *testing.T) {
	tests := []struct {
		name   string
		before bool
		wantY  float32
	}{
		{"inside pass", false, 70},
		{"recorded before pass", true, 70},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, rec := newTestEngine(Options{DefaultFramebufferHeight: 480})
			vp := []encoding.Viewport{{Y: 10, Width: 50, Height: 20, MaxDepth: 1}}
			l := encoding.NewList()
			if tt.before {
				l.SetViewport(0, vp)
				openPass(l)
			} else {
				openPass(l)
				l.SetViewport(0, vp)
			}
			l.EndRenderPass(nil)
			mustReplay(t, e, l)

			call, ok := rec.Last("Viewport")
			if !ok {
				t.Fatal("no Viewport call")
			}
			if y := call.Args[2]; y != tt.wantY {
				t.Errorf("y = %v, want %v", y, tt.wantY)
			}
		})
	}
}

func TestReplay_RenderPassLoadClears(t *testing.T) {
	e, rec := newTestEngine(Options{})
	l := encoding.NewList()
	area := encoding.Rect{X: 10, Y: 0, Width: 50, Height: 40}
	l.BeginRenderPass(3, 100, 100, area, []encoding.AttachmentLoad{
		{
			AspectMask: encoding.AspectColor,
			Slot:       0,
			LoadOp:     gputypes.LoadOpClear,
			Value:      encoding.ColorClear(gputypes.Color{R: 1, A: 1}),
		},
		{
			AspectMask:    encoding.AspectDepth | encoding.AspectStencil,
			LoadOp:        gputypes.LoadOpClear,
			StencilLoadOp: gputypes.LoadOpLoad,
			Value:         encoding.DepthStencilClear(1, 0),
		},
	}, []uint32{gl.COLOR_ATTACHMENT0})
	l.EndRenderPass([]uint32{gl.DEPTH_STENCIL_ATTACHMENT})

	mustReplay(t, e, l)

	want := []string{
		"BindFramebuffer",
		"Enable",
		"Scissor",
		"DrawBuffers",
		"ClearBufferfv",
		"ClearBufferfv",
		"DrawBuffers",
		"InvalidateFramebuffer",
	}
	calls := rec.Calls()
	if got := rec.Names(); !slices.Equal(got, want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	if calls[1].Args[0] != uint32(gl.SCISSOR_TEST) {
		t.Errorf("Enable(%v), want SCISSOR_TEST", calls[1].Args[0])
	}
	// area rows [0, 40) of 100 flip to [60, 100).
	if y := calls[2].Args[2]; y != int32(60) {
		t.Errorf("scissor y = %v, want 60", y)
	}
	if buf := calls[4].Args[0]; buf != uint32(backend.COLOR) {
		t.Errorf("first clear buffer = %#x, want COLOR", buf)
	}
	if v := calls[4].Args[2]; v != [4]float32{1, 0, 0, 1} {
		t.Errorf("color clear = %v", v)
	}
	if buf := calls[5].Args[0]; buf != uint32(backend.DEPTH) {
		t.Errorf("second clear buffer = %#x, want DEPTH for a depth-only clear", buf)
	}
}

func TestReplay_ClearAttachmentsRestoresScissor(t *testing.T) {
	e, rec := newTestEngine(Options{})
	user := encoding.Rect{Width: 80, Height: 80}
	l := encoding.NewList()
	openPass(l)
	l.SetScissor(0, []encoding.Rect{user})
	l.ClearAttachments(
		[]encoding.ClearAttachment{{AspectMask: encoding.AspectColor, Value: encoding.ColorClear(gputypes.Color{G: 1})}},
		[]encoding.Rect{{X: 5, Y: 5, Width: 10, Height: 10}},
	)
	l.EndRenderPass(nil)
	mustReplay(t, e, l)

	if got := rec.Count("Scissor"); got != 3 {
		t.Errorf("Scissor calls = %d, want 3 (user, clear rect, restore)", got)
	}
	call, _ := rec.Last("Scissor")
	if w := call.Args[3]; w != int32(80) {
		t.Errorf("restored scissor width = %v, want 80", w)
	}
}

func TestReplay_SecondaryReuse(t *testing.T) {
	e, rec := newTestEngine(Options{})
	sec := encoding.NewList()
	sec.Draw(3, 1, 0, 0)

	primary := encoding.NewList()
	openPass(primary)
	primary.ExecuteCommands([]*encoding.List{sec})
	primary.EndRenderPass(nil)

	mustReplay(t, e, primary)
	if got := rec.Count("DrawArraysInstancedBaseInstance"); got != 1 {
		t.Fatalf("draws = %d, want 1", got)
	}

	sec.Reset()
	sec.Dispatch(1, 1, 1)
	rec.Reset()
	mustReplay(t, e, primary)

	want := []string{"DispatchCompute"}
	if got := rec.Names(passSetup...); !slices.Equal(got, want) {
		t.Errorf("calls after re-recording = %v, want %v", got, want)
	}
}

func TestReplay_SecondaryKeepsRenderPass(t *testing.T) {
	e, rec := newTestEngine(Options{DefaultFramebufferHeight: 480})
	sec := encoding.NewList()
	sec.SetViewport(0, []encoding.Viewport{{Width: 100, Height: 100, MaxDepth: 1}})

	primary := encoding.NewList()
	openPass(primary)
	primary.ExecuteCommands([]*encoding.List{sec, sec})
	primary.EndRenderPass(nil)
	mustReplay(t, e, primary)

	if got := rec.Count("Viewport"); got != 1 {
		t.Errorf("Viewport calls = %d, want 1", got)
	}
	call, _ := rec.Last("Viewport")
	if y := call.Args[2]; y != float32(0) {
		t.Errorf("viewport y = %v, want 0 against the pass framebuffer", y)
	}
}

func TestReplay_ErrorsDrainedAfterWalk(t *testing.T) {
	e, rec := newTestEngine(Options{})
	rec.InjectError(gl.INVALID_OPERATION)
	rec.InjectError(gl.OUT_OF_MEMORY)
	l := encoding.NewList()
	l.Draw(3, 1, 0, 0)
	l.Dispatch(1, 1, 1)

	err := e.Replay(l)
	var be *backend.Error
	if !errors.As(err, &be) {
		t.Fatalf("Replay error = %v, want *backend.Error", err)
	}
	if be.Code != gl.INVALID_OPERATION {
		t.Errorf("code = %#x, want first error INVALID_OPERATION", be.Code)
	}
	if got := rec.Count("DispatchCompute"); got != 1 {
		t.Error("replay stopped before the end of the list")
	}
	if err := e.Replay(l); err != nil {
		t.Errorf("second Replay = %v, want error queue drained", err)
	}
}

func TestReplay_OptionalEntryPointsSkipped(t *testing.T) {
	rec := trace.New()
	p := rec.Procs()
	p.LineWidth = nil
	p.PolygonOffset = nil
	p.BeginQuery = nil
	p.EndQuery = nil
	p.QueryCounter = nil
	p.PushDebugGroup = nil
	p.PopDebugGroup = nil
	p.InvalidateFramebuffer = nil
	e := New(p, Options{})

	l := encoding.NewList()
	l.SetLineWidth(3)
	l.SetDepthBias(1, 0, 2)
	l.BeginQuery(backend.SAMPLES_PASSED, 4)
	l.EndQuery(backend.SAMPLES_PASSED)
	l.WriteTimestamp(5)
	l.BeginDebugLabel("x")
	l.EndDebugLabel()
	l.PushConstants(1, 0, []byte{1, 2, 3, 4})
	openPass(l)
	l.EndRenderPass([]uint32{gl.COLOR_ATTACHMENT0})

	mustReplay(t, e, l)
	if got := rec.Names(passSetup...); len(got) != 0 {
		t.Errorf("calls = %v, want none", got)
	}
}

func TestReplay_VertexBuffersFlushedAtDraw(t *testing.T) {
	e, rec := newTestEngine(Options{})
	l := encoding.NewList()
	l.BindVertexBuffers(0, []encoding.VertexBinding{{Buffer: 5, Offset: 8}})
	l.BindPipeline(encoding.BindPointGraphics, 1, 2, gputypes.PrimitiveTopologyLineList, [2]uint32{}, []uint32{16})
	l.Draw(2, 1, 0, 0)
	l.Draw(2, 1, 2, 0)

	mustReplay(t, e, l)

	want := []string{
		"UseProgram",
		"BindVertexArray",
		"BindVertexBuffer",
		"DrawArraysInstancedBaseInstance",
		"DrawArraysInstancedBaseInstance",
	}
	if got := rec.Names(); !slices.Equal(got, want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	vb, _ := rec.Last("BindVertexBuffer")
	if !slices.Equal(vb.Args, []any{uint32(0), uint32(5), 8, int32(16)}) {
		t.Errorf("BindVertexBuffer%v, want (0, 5, 8, 16)", vb.Args)
	}
	draw, _ := rec.Last("DrawArraysInstancedBaseInstance")
	if draw.Args[0] != uint32(gl.LINES) {
		t.Errorf("mode = %v, want LINES", draw.Args[0])
	}
}

func TestReplay_DrawIndexed(t *testing.T) {
	e, rec := newTestEngine(Options{})
	l := encoding.NewList()
	l.BindIndexBuffer(6, 4, gputypes.IndexFormatUint16)
	l.DrawIndexed(9, 2, 3, -1, 1)
	mustReplay(t, e, l)

	bind, _ := rec.Last("BindBuffer")
	if bind.Args[0] != uint32(gl.ELEMENT_ARRAY_BUFFER) || bind.Args[1] != uint32(6) {
		t.Errorf("BindBuffer%v, want ELEMENT_ARRAY_BUFFER 6", bind.Args)
	}
	draw, _ := rec.Last("DrawElementsInstancedBaseVertexBaseInstance")
	want := []any{uint32(gl.TRIANGLES), int32(9), uint32(gl.UNSIGNED_SHORT), uintptr(10), int32(2), int32(-1), uint32(1)}
	if !slices.Equal(draw.Args, want) {
		t.Errorf("draw args = %v, want %v", draw.Args, want)
	}
}

func TestReplay_DrawIndirect(t *testing.T) {
	e, rec := newTestEngine(Options{})
	l := encoding.NewList()
	l.DrawIndirect(4, 32, 3, 16)
	l.DrawIndirect(4, 0, 0, 16)
	mustReplay(t, e, l)

	if got := rec.Count("BindBuffer"); got != 1 {
		t.Errorf("BindBuffer calls = %d, want 1", got)
	}
	var offsets []any
	for _, c := range rec.Calls() {
		if c.Name == "DrawArraysIndirect" {
			offsets = append(offsets, c.Args[1])
		}
	}
	want := []any{uintptr(32), uintptr(48), uintptr(64)}
	if !slices.Equal(offsets, want) {
		t.Errorf("indirect offsets = %v, want %v", offsets, want)
	}
}

func TestReplay_Transfers(t *testing.T) {
	t.Run("fill", func(t *testing.T) {
		e, rec := newTestEngine(Options{})
		l := encoding.NewList()
		l.FillBuffer(3, 16, 8, 0x04030201)
		mustReplay(t, e, l)
		call, ok := rec.Last("BufferSubData")
		if !ok {
			t.Fatal("no BufferSubData call")
		}
		if !slices.Equal(call.Args[2].([]byte), []byte{1, 2, 3, 4, 1, 2, 3, 4}) {
			t.Errorf("fill data = %v", call.Args[2])
		}
		if call.Args[1] != 16 {
			t.Errorf("offset = %v, want 16", call.Args[1])
		}
	})

	t.Run("update", func(t *testing.T) {
		e, rec := newTestEngine(Options{})
		l := encoding.NewList()
		l.UpdateBuffer(3, 0, []byte("abcde"))
		mustReplay(t, e, l)
		call, _ := rec.Last("BufferSubData")
		if string(call.Args[2].([]byte)) != "abcde" {
			t.Errorf("update data = %q", call.Args[2])
		}
	})

	t.Run("copy", func(t *testing.T) {
		e, rec := newTestEngine(Options{})
		l := encoding.NewList()
		l.CopyBuffer(1, 2, []encoding.BufferCopy{{SrcOffset: 4, DstOffset: 8, Size: 12}, {Size: 4}})
		mustReplay(t, e, l)
		want := []string{"BindBuffer", "BindBuffer", "CopyBufferSubData", "CopyBufferSubData"}
		if got := rec.Names(); !slices.Equal(got, want) {
			t.Errorf("calls = %v, want %v", got, want)
		}
	})

	t.Run("blit flips both rectangles", func(t *testing.T) {
		e, rec := newTestEngine(Options{})
		l := encoding.NewList()
		l.BlitImage(1, 100, 2, 200, gputypes.FilterModeLinear, []encoding.BlitRegion{
			{Src: [4]int32{0, 0, 50, 50}, Dst: [4]int32{0, 0, 100, 100}},
		})
		mustReplay(t, e, l)
		call, _ := rec.Last("BlitFramebuffer")
		want := []any{
			int32(0), int32(100), int32(50), int32(50),
			int32(0), int32(200), int32(100), int32(100),
			uint32(gl.COLOR_BUFFER_BIT), uint32(gl.LINEAR),
		}
		if !slices.Equal(call.Args, want) {
			t.Errorf("blit args = %v, want %v", call.Args, want)
		}
	})

	t.Run("clear image disables scissor", func(t *testing.T) {
		e, rec := newTestEngine(Options{})
		l := encoding.NewList()
		l.ClearColorImage(4, 64, gputypes.Color{B: 1, A: 1})
		l.ClearDepthStencilImage(5, 64, encoding.AspectDepth|encoding.AspectStencil, 0.5, 3)
		mustReplay(t, e, l)
		want := []string{"BindFramebuffer", "Disable", "ClearBufferfv", "BindFramebuffer", "ClearBufferfi"}
		if got := rec.Names(); !slices.Equal(got, want) {
			t.Errorf("calls = %v, want %v", got, want)
		}
	})
}

func TestReplay_PushConstants(t *testing.T) {
	e, rec := newTestEngine(Options{PushConstantBuffer: 9, PushConstantBinding: 2})
	l := encoding.NewList()
	l.PushConstants(1, 16, []byte{1, 2, 3, 4})
	l.PushConstants(1, 20, []byte{5, 6, 7, 8})
	mustReplay(t, e, l)

	want := []string{"BindBufferRange", "BindBuffer", "BufferSubData", "BufferSubData"}
	if got := rec.Names(); !slices.Equal(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
	r, _ := rec.Last("BindBufferRange")
	if r.Args[1] != uint32(2) || r.Args[4] != DefaultPushConstantSize {
		t.Errorf("BindBufferRange%v", r.Args)
	}
	if w, _ := rec.Last("BufferSubData"); w.Args[0] != uint32(gl.COPY_WRITE_BUFFER) {
		t.Errorf("push constants written through %#x, want COPY_WRITE_BUFFER", w.Args[0])
	}
}

// writeTargets replays the recorded bind calls and returns the buffer each
// BufferSubData landed in.
func writeTargets(calls []trace.Call) []uint32 {
	bound := make(map[uint32]uint32)
	var got []uint32
	for _, c := range calls {
		switch c.Name {
		case "BindBuffer", "BindBufferRange":
			buf := c.Args[1]
			if c.Name == "BindBufferRange" {
				buf = c.Args[2]
			}
			bound[c.Args[0].(uint32)] = buf.(uint32)
		case "BufferSubData":
			got = append(got, bound[c.Args[0].(uint32)])
		}
	}
	return got
}

func TestReplay_PushConstantsSurviveDescriptorSets(t *testing.T) {
	rec := trace.New()
	p := rec.Procs()
	bindSet := p.BindDescriptorSet
	p.BindDescriptorSet = func(bindPoint, set uint32, handle uint64, dyn []uint32) int {
		p.BindBufferRange(gl.UNIFORM_BUFFER, 2, 77, 0, 64)
		return bindSet(bindPoint, set, handle, dyn)
	}
	e := New(p, Options{PushConstantBuffer: 5, PushConstantBinding: 2})

	l := encoding.NewList()
	l.PushConstants(1, 0, []byte{1, 2, 3, 4})
	l.BindDescriptorSets(encoding.BindPointGraphics, 0, []uint64{0xA}, nil)
	l.PushConstants(1, 4, []byte{5, 6, 7, 8})
	mustReplay(t, e, l)

	if got := writeTargets(rec.Calls()); !slices.Equal(got, []uint32{5, 5}) {
		t.Errorf("push constant writes landed in buffers %v, want [5 5]", got)
	}
	// The set took the push binding, so it is bound again.
	if got := rec.Count("BindBufferRange"); got != 3 {
		t.Errorf("BindBufferRange calls = %d, want 3", got)
	}
	r, _ := rec.Last("BindBufferRange")
	if r.Args[1] != uint32(2) || r.Args[2] != uint32(5) {
		t.Errorf("last BindBufferRange%v, want binding 2 to buffer 5", r.Args)
	}
}

func TestReplay_InvalidateRebindsPushConstants(t *testing.T) {
	e, rec := newTestEngine(Options{PushConstantBuffer: 5})
	l := encoding.NewList()
	l.PushConstants(1, 0, []byte{1, 2, 3, 4})
	mustReplay(t, e, l)
	e.Invalidate()
	mustReplay(t, e, l)

	if got := rec.Count("BindBufferRange"); got != 2 {
		t.Errorf("BindBufferRange calls = %d, want 2", got)
	}
	if got := rec.Count("BindBuffer"); got != 2 {
		t.Errorf("BindBuffer calls = %d, want 2", got)
	}
}

func TestReplay_LoadClearScissorDoesNotLeak(t *testing.T) {
	e, rec := newTestEngine(Options{})
	first := encoding.NewList()
	first.BeginRenderPass(1, 100, 100, encoding.Rect{Width: 10, Height: 10}, []encoding.AttachmentLoad{{
		AspectMask: encoding.AspectColor,
		LoadOp:     gputypes.LoadOpClear,
		Value:      encoding.ColorClear(gputypes.Color{A: 1}),
	}}, []uint32{gl.COLOR_ATTACHMENT0})
	first.EndRenderPass(nil)
	mustReplay(t, e, first)

	second := encoding.NewList()
	openPass(second)
	second.Draw(3, 1, 0, 0)
	second.EndRenderPass(nil)
	rec.Reset()
	mustReplay(t, e, second)

	sc, ok := rec.Last("Scissor")
	if !ok {
		t.Fatalf("second pass kept the first pass scissor: %v", rec.Names())
	}
	want := []any{uint32(0), int32(0), int32(0), int32(100), int32(100)}
	if !slices.Equal(sc.Args, want) {
		t.Errorf("Scissor%v, want %v", sc.Args, want)
	}
}

func TestReplay_InvalidateDisablesScissorTest(t *testing.T) {
	e, rec := newTestEngine(Options{})
	e.Invalidate()
	l := encoding.NewList()
	openPass(l)
	l.EndRenderPass(nil)
	mustReplay(t, e, l)

	if got := rec.Count("Scissor"); got != 0 {
		t.Errorf("Scissor calls = %d with the scissor test disabled, want 0", got)
	}
	d, _ := rec.Last("Disable")
	if d.Args[0] != uint32(gl.SCISSOR_TEST) {
		t.Errorf("Disable(%v), want SCISSOR_TEST", d.Args[0])
	}
}

func TestReplay_DescriptorSets(t *testing.T) {
	e, rec := newTestEngine(Options{})
	l := encoding.NewList()
	l.BindDescriptorSets(encoding.BindPointCompute, 1, []uint64{0xA, 0xB}, []uint32{256})
	mustReplay(t, e, l)

	calls := rec.Calls()
	if len(calls) != 2 {
		t.Fatalf("calls = %v, want two BindDescriptorSet", rec.Names())
	}
	for i, c := range calls {
		if c.Args[1] != uint32(1+i) {
			t.Errorf("set index = %v, want %d", c.Args[1], 1+i)
		}
	}
}

func TestReplay_Stencil(t *testing.T) {
	e, rec := newTestEngine(Options{})
	l := encoding.NewList()
	l.BindPipeline(encoding.BindPointGraphics, 1, 1, gputypes.PrimitiveTopologyTriangleList,
		[2]uint32{gl.ALWAYS, gl.ALWAYS}, nil)
	l.SetStencilReference(encoding.FaceFront, 3)
	l.SetStencilWriteMask(encoding.FaceFrontAndBack, 0xFF)
	mustReplay(t, e, l)

	if got := rec.Count("StencilFuncSeparate"); got != 3 {
		t.Errorf("StencilFuncSeparate calls = %d, want 3 (both faces, then front)", got)
	}
	call, _ := rec.Last("StencilFuncSeparate")
	want := []any{uint32(gl.FRONT), uint32(gl.ALWAYS), int32(3), ^uint32(0)}
	if !slices.Equal(call.Args, want) {
		t.Errorf("StencilFuncSeparate%v, want %v", call.Args, want)
	}
	if got := rec.Count("StencilMaskSeparate"); got != 2 {
		t.Errorf("StencilMaskSeparate calls = %d, want 2", got)
	}
}

func TestBarrierBits(t *testing.T) {
	tests := []struct {
		access uint32
		want   uint32
	}{
		{0, 0},
		{encoding.AccessIndirectCommandRead, gl.COMMAND_BARRIER_BIT},
		{encoding.AccessUniformRead | encoding.AccessIndexRead, gl.UNIFORM_BARRIER_BIT | gl.ELEMENT_ARRAY_BARRIER_BIT},
		{encoding.AccessMemoryRead, gl.ALL_BARRIER_BITS},
	}
	for _, tt := range tests {
		if got := barrierBits(tt.access); got != tt.want {
			t.Errorf("barrierBits(%#x) = %#x, want %#x", tt.access, got, tt.want)
		}
	}
}

func BenchmarkReplay(b *testing.B) {
	rec := trace.New()
	p := rec.Procs()
	p.DrawArraysInstancedBaseInstance = func(uint32, int32, int32, int32, uint32) {}
	e := New(p, Options{DefaultFramebufferHeight: 100})
	l := encoding.NewList()
	vp := []encoding.Viewport{{Width: 100, Height: 100, MaxDepth: 1}}
	for range 256 {
		l.SetViewport(0, vp)
		l.Draw(3, 1, 0, 0)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for range b.N {
		if err := e.Replay(l); err != nil {
			b.Fatal(err)
		}
	}
}
