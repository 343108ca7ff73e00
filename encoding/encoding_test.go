package encoding

import (
	"fmt"
	"testing"

	"github.com/gogpu/gputypes"
)

func TestOp_String(t *testing.T) {
	tests := []struct {
		op   Op
		want string
	}{
		{OpDraw, "Draw"},
		{OpSetViewport, "SetViewport"},
		{OpEndDebugLabel, "EndDebugLabel"},
		{Op(0), "Op(0)"},
		{opCount, fmt.Sprintf("Op(%d)", opCount)},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.op.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOp_NamesAndSizesComplete(t *testing.T) {
	for op := Op(1); op < opCount; op++ {
		if opNames[op] == "" {
			t.Errorf("op %d has no name", op)
		}
		if fixedSize[op] == 0 && op != OpEndDebugLabel {
			t.Errorf("%v has no size entry", op)
		}
	}
}

func TestPackHeader(t *testing.T) {
	h := packHeader(OpDrawIndexed, 5)
	op, n := unpackHeader(h)
	if op != OpDrawIndexed || n != 5 {
		t.Errorf("unpackHeader = (%v, %d), want (DrawIndexed, 5)", op, n)
	}

	defer func() {
		if recover() == nil {
			t.Error("packHeader with oversized payload should panic")
		}
	}()
	packHeader(OpUpdateBuffer, maxLength+1)
}

func TestList_FixedSizesMatchEncoders(t *testing.T) {
	l := NewList()
	l.SetLineWidth(2)
	l.SetDepthBias(1, 0, 2)
	l.SetBlendConstants([4]float32{1, 1, 1, 1})
	l.SetStencilCompareMask(FaceFront, 0xff)
	l.SetStencilWriteMask(FaceBack, 0x0f)
	l.SetStencilReference(FaceFrontAndBack, 1)
	l.BindIndexBuffer(3, 0, gputypes.IndexFormatUint16)
	l.Draw(3, 1, 0, 0)
	l.DrawIndexed(6, 1, 0, -2, 0)
	l.DrawIndirect(4, 16, 2, 16)
	l.DrawIndexedIndirect(4, 16, 2, 20)
	l.Dispatch(8, 8, 1)
	l.DispatchIndirect(5, 0)
	l.FillBuffer(6, 0, 64, 0xdeadbeef)
	l.ClearColorImage(7, 32, gputypes.Color{R: 1, A: 1})
	l.ClearDepthStencilImage(7, 32, AspectDepth, 1, 0)
	l.BeginQuery(1, 2)
	l.EndQuery(1)
	l.WriteTimestamp(3)
	l.EndDebugLabel()

	d := NewDecoder(l)
	for d.Next() {
		want, ok := d.Op().FixedSize()
		if !ok {
			t.Fatalf("%v should have a fixed size", d.Op())
		}
		if got := len(d.Payload()); got != want {
			t.Errorf("%v payload = %d words, want %d", d.Op(), got, want)
		}
	}
}

func TestList_Reset(t *testing.T) {
	l := NewList()
	s := NewList()
	l.Draw(3, 1, 0, 0)
	l.ExecuteCommands([]*List{s})

	l.Reset()

	if !l.IsEmpty() || l.Len() != 0 || l.Size() != 0 {
		t.Errorf("after Reset: Len=%d Size=%d", l.Len(), l.Size())
	}
	if l.Secondaries() != 0 {
		t.Errorf("after Reset: Secondaries=%d, want 0", l.Secondaries())
	}
	if l.Capacity() == 0 {
		t.Error("Reset should keep capacity")
	}
}

func TestList_Release(t *testing.T) {
	l := NewList()
	l.Draw(3, 1, 0, 0)

	l.Release()

	if !l.IsEmpty() || l.Capacity() != 0 {
		t.Errorf("after Release: Len=%d Capacity=%d", l.Len(), l.Capacity())
	}
	l.Dispatch(1, 1, 1)
	if got := l.Ops(); len(got) != 1 || got[0] != OpDispatch {
		t.Errorf("Ops after reuse = %v, want [Dispatch]", got)
	}
}

func TestDecoder_Next(t *testing.T) {
	l := NewList()
	l.SetViewport(0, []Viewport{{Width: 100, Height: 100, MaxDepth: 1}})
	l.Draw(3, 1, 0, 0)

	d := NewDecoder(l)
	if !d.Next() || d.Op() != OpSetViewport {
		t.Fatalf("first command = %v, want SetViewport", d.Op())
	}
	if !d.Next() || d.Op() != OpDraw {
		t.Fatalf("second command = %v, want Draw", d.Op())
	}
	if d.Next() {
		t.Error("Next() after last command should return false")
	}
	if d.Position() != len(l.Words()) {
		t.Errorf("Position() = %d, want %d", d.Position(), len(l.Words()))
	}
}

func TestDecoder_NilList(t *testing.T) {
	d := NewDecoder(nil)
	if d.Next() {
		t.Error("Next() on nil list should return false")
	}
}

func TestDecoder_CorruptHeaderPanics(t *testing.T) {
	l := NewList()
	l.words = append(l.words, uint32(opCount)<<opShift)

	defer func() {
		if recover() == nil {
			t.Error("unknown op should panic")
		}
	}()
	NewDecoder(l).Next()
}

func TestDecoder_SetViewport(t *testing.T) {
	vps := []Viewport{
		{X: 0, Y: 0, Width: 100, Height: 100, MinDepth: 0, MaxDepth: 1},
		{X: 10, Y: 20, Width: 30.5, Height: 40.25, MinDepth: 0.25, MaxDepth: 0.75},
	}
	l := NewList()
	l.SetViewport(2, vps)

	d := NewDecoder(l)
	d.Next()
	cmd := d.SetViewport()
	if cmd.First != 2 {
		t.Errorf("First = %d, want 2", cmd.First)
	}
	if cmd.Viewports.Len() != len(vps) {
		t.Fatalf("Len = %d, want %d", cmd.Viewports.Len(), len(vps))
	}
	for i, want := range vps {
		if got := cmd.Viewports.At(i); got != want {
			t.Errorf("viewport %d = %+v, want %+v", i, got, want)
		}
	}
}

func TestDecoder_ArrayCountsIndependentOfLength(t *testing.T) {
	l := NewList()
	l.ClearAttachments(
		[]ClearAttachment{
			{AspectMask: AspectColor, DrawBuffer: 1, Value: ColorClear(gputypes.Color{G: 1, A: 1})},
			{AspectMask: AspectDepth | AspectStencil, Value: DepthStencilClear(0.5, 7)},
		},
		[]Rect{{X: 1, Y: 2, Width: 3, Height: 4}},
	)

	d := NewDecoder(l)
	d.Next()
	cmd := d.ClearAttachments()
	if cmd.Attachments.Len() != 2 || cmd.Rects.Len() != 1 {
		t.Fatalf("counts = (%d, %d), want (2, 1)", cmd.Attachments.Len(), cmd.Rects.Len())
	}
	if c := cmd.Attachments.At(0).Value.Color(); c != [4]float32{0, 1, 0, 1} {
		t.Errorf("color = %v", c)
	}
	ds := cmd.Attachments.At(1)
	if ds.Value.Depth() != 0.5 || ds.Value.Stencil() != 7 {
		t.Errorf("depth/stencil = (%v, %d), want (0.5, 7)", ds.Value.Depth(), ds.Value.Stencil())
	}
	if r := cmd.Rects.At(0); r != (Rect{X: 1, Y: 2, Width: 3, Height: 4}) {
		t.Errorf("rect = %+v", r)
	}
}

func TestDecoder_BindPipeline(t *testing.T) {
	l := NewList()
	l.BindPipeline(BindPointGraphics, 5, 6, gputypes.PrimitiveTopologyLineStrip, [2]uint32{0x207, 0x203}, []uint32{12, 16})

	d := NewDecoder(l)
	d.Next()
	cmd := d.BindPipeline()
	if cmd.Program != 5 || cmd.VertexArray != 6 || cmd.Topology != gputypes.PrimitiveTopologyLineStrip {
		t.Errorf("pipeline = %+v", cmd)
	}
	if cmd.StencilFunc != [2]uint32{0x207, 0x203} {
		t.Errorf("StencilFunc = %v", cmd.StencilFunc)
	}
	if cmd.Strides.Len() != 2 || cmd.Strides.At(1) != 16 {
		t.Errorf("strides = %v", cmd.Strides.AppendTo(nil))
	}
}

func TestDecoder_BindDescriptorSets(t *testing.T) {
	sets := []uint64{0x1_0000_0002, 0xffff_ffff_ffff_fffe}
	l := NewList()
	l.BindDescriptorSets(BindPointCompute, 1, sets, []uint32{256})

	d := NewDecoder(l)
	d.Next()
	cmd := d.BindDescriptorSets()
	if cmd.BindPoint != BindPointCompute || cmd.FirstSet != 1 {
		t.Errorf("cmd = %+v", cmd)
	}
	for i, want := range sets {
		if got := cmd.Sets.At(i); got != want {
			t.Errorf("set %d = %#x, want %#x", i, got, want)
		}
	}
	if cmd.DynamicOffsets.Len() != 1 || cmd.DynamicOffsets.At(0) != 256 {
		t.Errorf("dynamic offsets = %v", cmd.DynamicOffsets.AppendTo(nil))
	}
}

func TestDecoder_Blobs(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"one byte", []byte{0xab}},
		{"unaligned", []byte{1, 2, 3, 4, 5, 6, 7}},
		{"aligned", []byte{1, 2, 3, 4, 5, 6, 7, 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewList()
			l.UpdateBuffer(9, 1<<33, tt.data)
			l.PushConstants(1, 4, tt.data)

			d := NewDecoder(l)
			d.Next()
			up := d.UpdateBuffer()
			if up.Dst != 9 || up.Offset != 1<<33 {
				t.Errorf("update = %+v", up)
			}
			if got := up.Data.AppendTo(nil); string(got) != string(tt.data) {
				t.Errorf("update data = %v, want %v", got, tt.data)
			}

			d.Next()
			pc := d.PushConstants()
			if got := pc.Data.AppendTo(nil); string(got) != string(tt.data) {
				t.Errorf("push data = %v, want %v", got, tt.data)
			}
		})
	}
}

func TestDecoder_DebugLabel(t *testing.T) {
	l := NewList()
	l.BeginDebugLabel("shadow pass")
	l.EndDebugLabel()

	d := NewDecoder(l)
	d.Next()
	if got := d.BeginDebugLabel().String(); got != "shadow pass" {
		t.Errorf("label = %q", got)
	}
	d.Next()
	if d.Op() != OpEndDebugLabel || len(d.Payload()) != 0 {
		t.Errorf("end label = %v with %d words", d.Op(), len(d.Payload()))
	}
}

func TestDecoder_RenderPass(t *testing.T) {
	loads := []AttachmentLoad{
		{AspectMask: AspectColor, Slot: 0, LoadOp: gputypes.LoadOpClear, Value: ColorClear(gputypes.Color{R: 1, A: 1})},
		{AspectMask: AspectDepth, LoadOp: gputypes.LoadOpLoad, StencilLoadOp: gputypes.LoadOpClear, Value: DepthStencilClear(1, 0)},
	}
	l := NewList()
	l.BeginRenderPass(3, 640, 480, Rect{Width: 640, Height: 480}, loads, []uint32{0x8CE0})
	l.NextSubpass([]uint32{0x8CE0, 0x8CE1})
	l.EndRenderPass([]uint32{0x8D00})

	d := NewDecoder(l)
	d.Next()
	rp := d.BeginRenderPass()
	if rp.Framebuffer != 3 || rp.Width != 640 || rp.Height != 480 {
		t.Errorf("render pass = %+v", rp)
	}
	if rp.Loads.Len() != 2 || rp.Loads.At(1).StencilLoadOp != gputypes.LoadOpClear {
		t.Errorf("loads = %d, second = %+v", rp.Loads.Len(), rp.Loads.At(1))
	}
	if rp.DrawBuffers.Len() != 1 || rp.DrawBuffers.At(0) != 0x8CE0 {
		t.Errorf("draw buffers = %v", rp.DrawBuffers.AppendTo(nil))
	}
	d.Next()
	if db := d.NextSubpass(); db.Len() != 2 {
		t.Errorf("subpass draw buffers = %d, want 2", db.Len())
	}
	d.Next()
	if disc := d.EndRenderPass(); disc.Len() != 1 || disc.At(0) != 0x8D00 {
		t.Errorf("discard = %v", disc.AppendTo(nil))
	}
}

func TestList_ExecuteCommandsByReference(t *testing.T) {
	primary := NewList()
	a, b := NewList(), NewList()
	primary.ExecuteCommands([]*List{a, b})
	primary.ExecuteCommands([]*List{a})

	if primary.Secondaries() != 2 {
		t.Fatalf("Secondaries = %d, want 2 (deduplicated)", primary.Secondaries())
	}

	a.Draw(1, 1, 0, 0)

	d := NewDecoder(primary)
	d.Next()
	idx := d.ExecuteCommands()
	if got := d.Secondary(idx.At(0)); got != a || got.Len() != 1 {
		t.Errorf("secondary 0 = %p (len %d), want %p", got, got.Len(), a)
	}
	d.Next()
	if d.Secondary(d.ExecuteCommands().At(0)) != a {
		t.Error("second reference should resolve to the same list")
	}
}

func TestList_Ops(t *testing.T) {
	l := NewList()
	l.BindPipeline(BindPointCompute, 1, 0, 0, [2]uint32{}, nil)
	l.PipelineBarrier(1, 2, []AccessPair{{Src: 1, Dst: 2}})
	l.Dispatch(1, 1, 1)

	got := l.Ops()
	want := []Op{OpBindPipeline, OpPipelineBarrier, OpDispatch}
	if len(got) != len(want) {
		t.Fatalf("Ops() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Ops()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestListPool(t *testing.T) {
	p := NewListPool()
	p.Warmup(2)

	l := p.Get()
	l.Draw(3, 1, 0, 0)
	p.Put(l)
	p.Put(nil)

	l = p.Get()
	if !l.IsEmpty() {
		t.Error("Get() should return an empty list")
	}
}

func BenchmarkList_Record(b *testing.B) {
	l := NewList()
	vp := []Viewport{{Width: 1920, Height: 1080, MaxDepth: 1}}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		l.Reset()
		for j := 0; j < 64; j++ {
			l.SetViewport(0, vp)
			l.BindVertexBuffers(0, []VertexBinding{{Buffer: 1}})
			l.Draw(3, 1, 0, 0)
		}
	}
}

func BenchmarkDecoder_Walk(b *testing.B) {
	l := NewList()
	for j := 0; j < 256; j++ {
		l.Draw(3, 1, 0, 0)
	}
	d := NewDecoder(l)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.Reset(l)
		for d.Next() {
			_ = d.Draw()
		}
	}
}
