package trace

import (
	"errors"
	"testing"

	"github.com/gogpu/vkgl/backend"
	"github.com/gogpu/wgpu/hal/gles/gl"
)

func TestRecorder_ProcsValidate(t *testing.T) {
	if err := New().Procs().Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
}

func TestRecorder_RecordsInOrder(t *testing.T) {
	r := New()
	p := r.Procs()
	p.UseProgram(3)
	p.Viewport(0, 0, 0, 100, 100)
	p.DrawArraysInstancedBaseInstance(gl.TRIANGLES, 0, 3, 1, 0)

	want := []string{"UseProgram", "Viewport", "DrawArraysInstancedBaseInstance"}
	got := r.Names()
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if c, ok := r.Last("UseProgram"); !ok || c.String() != "UseProgram(3)" {
		t.Errorf("Last(UseProgram) = %v, %v", c, ok)
	}
	if r.Count("Viewport") != 1 {
		t.Errorf("Count(Viewport) = %d, want 1", r.Count("Viewport"))
	}

	r.Reset()
	if len(r.Calls()) != 0 {
		t.Error("Reset() should clear calls")
	}
}

func TestRecorder_GetErrorDrainsQueue(t *testing.T) {
	r := New()
	p := r.Procs()
	r.InjectError(gl.OUT_OF_MEMORY)
	r.InjectError(gl.INVALID_ENUM)

	for _, want := range []uint32{gl.OUT_OF_MEMORY, gl.INVALID_ENUM, gl.NO_ERROR} {
		if got := p.GetError(); got != want {
			t.Errorf("GetError() = %s, want %s", backend.ErrorName(got), backend.ErrorName(want))
		}
	}
	if r.Count("GetError") != 0 {
		t.Error("GetError should not be recorded")
	}
}

func TestRecorder_SyncObjects(t *testing.T) {
	tests := []struct {
		name   string
		manual bool
		signal bool
		want   uint32
	}{
		{"auto signal", false, false, gl.ALREADY_SIGNALED},
		{"manual pending", true, false, gl.TIMEOUT_EXPIRED},
		{"manual signaled", true, true, gl.ALREADY_SIGNALED},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			r.SetManualSignal(tt.manual)
			p := r.Procs()
			s := p.FenceSync()
			if tt.signal {
				r.Signal(s)
			}
			if got := p.ClientWaitSync(s, 0); got != tt.want {
				t.Errorf("ClientWaitSync() = %#x, want %#x", got, tt.want)
			}
			p.DeleteSync(s)
			if got := p.ClientWaitSync(s, 0); got != gl.WAIT_FAILED {
				t.Errorf("ClientWaitSync(deleted) = %#x, want WAIT_FAILED", got)
			}
		})
	}
}

func TestRecorder_Unsignaled(t *testing.T) {
	r := New()
	r.SetManualSignal(true)
	p := r.Procs()
	p.FenceSync()
	p.FenceSync()
	if r.Unsignaled() != 2 {
		t.Fatalf("Unsignaled() = %d, want 2", r.Unsignaled())
	}
	r.SignalAll()
	if r.Unsignaled() != 0 {
		t.Errorf("Unsignaled() after SignalAll = %d, want 0", r.Unsignaled())
	}
}

func TestRecorder_SwapError(t *testing.T) {
	r := New()
	errSwap := errors.New("surface lost")
	r.SetSwapError(errSwap)
	if err := r.Procs().SwapBuffers(0); !errors.Is(err, errSwap) {
		t.Errorf("SwapBuffers() = %v, want %v", err, errSwap)
	}
}

func TestRegistered(t *testing.T) {
	if !backend.IsRegistered(backend.NameTrace) {
		t.Fatal("trace backend should self-register")
	}
	procs, err := backend.Open(backend.NameTrace)
	if err != nil || procs == nil {
		t.Fatalf("Open(trace) = %v, %v", procs, err)
	}
}
