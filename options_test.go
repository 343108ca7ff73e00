package vkgl

import (
	"errors"
	"testing"
	"time"

	"github.com/gogpu/vkgl/backend"
	"github.com/gogpu/vkgl/backend/trace"
	"github.com/gogpu/vkgl/replay"
)

func TestDefaultOptions(t *testing.T) {
	o := defaultOptions()
	if o.queues != 1 {
		t.Errorf("queues = %d, want 1", o.queues)
	}
	if o.pollMin != DefaultFencePollMin || o.pollMax != DefaultFencePollMax {
		t.Errorf("poll = [%v, %v], want [%v, %v]", o.pollMin, o.pollMax, DefaultFencePollMin, DefaultFencePollMax)
	}
	if o.pushSize != replay.DefaultPushConstantSize {
		t.Errorf("pushSize = %d, want %d", o.pushSize, replay.DefaultPushConstantSize)
	}
}

func TestOptions(t *testing.T) {
	procs := trace.New().Procs()
	tests := []struct {
		name  string
		opt   DeviceOption
		check func(t *testing.T, o deviceOptions)
	}{
		{"backend", WithBackend("soft"), func(t *testing.T, o deviceOptions) {
			if o.backend != "soft" {
				t.Errorf("backend = %q", o.backend)
			}
		}},
		{"procs", WithProcs(procs), func(t *testing.T, o deviceOptions) {
			if o.procs != procs {
				t.Error("procs not set")
			}
		}},
		{"queues", WithQueues(3), func(t *testing.T, o deviceOptions) {
			if o.queues != 3 {
				t.Errorf("queues = %d, want 3", o.queues)
			}
		}},
		{"queues ignores zero", WithQueues(0), func(t *testing.T, o deviceOptions) {
			if o.queues != 1 {
				t.Errorf("queues = %d, want 1", o.queues)
			}
		}},
		{"fence poll", WithFencePoll(time.Microsecond, time.Millisecond), func(t *testing.T, o deviceOptions) {
			if o.pollMin != time.Microsecond || o.pollMax != time.Millisecond {
				t.Errorf("poll = [%v, %v]", o.pollMin, o.pollMax)
			}
		}},
		{"fence poll clamps max", WithFencePoll(5*time.Millisecond, 0), func(t *testing.T, o deviceOptions) {
			if o.pollMax != 5*time.Millisecond {
				t.Errorf("pollMax = %v, want 5ms", o.pollMax)
			}
		}},
		{"framebuffer height", WithDefaultFramebufferHeight(480), func(t *testing.T, o deviceOptions) {
			if o.fbHeight != 480 {
				t.Errorf("fbHeight = %d", o.fbHeight)
			}
		}},
		{"push constants", WithPushConstantBuffer(7, 2, 0), func(t *testing.T, o deviceOptions) {
			if o.pushBuffer != 7 || o.pushBinding != 2 || o.pushSize != replay.DefaultPushConstantSize {
				t.Errorf("push = (%d, %d, %d)", o.pushBuffer, o.pushBinding, o.pushSize)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := defaultOptions()
			tt.opt(&o)
			tt.check(t, o)
		})
	}
}

func TestNewDevice_Backends(t *testing.T) {
	t.Run("injected procs", func(t *testing.T) {
		dev, err := NewDevice(WithProcs(trace.New().Procs()), WithQueues(2))
		if err != nil {
			t.Fatalf("NewDevice: %v", err)
		}
		defer dev.Destroy()
		if dev.BackendName() != "procs" {
			t.Errorf("BackendName() = %q, want procs", dev.BackendName())
		}
		if len(dev.Queues()) != 2 || dev.Queue(0, 1) == nil {
			t.Errorf("got %d queues, want 2", len(dev.Queues()))
		}
		if dev.Queue(0, 2) != nil || dev.Queue(1, 0) != nil {
			t.Error("Queue returned a queue out of range")
		}
	})

	t.Run("registry", func(t *testing.T) {
		dev, err := NewDevice(WithBackend(backend.NameTrace))
		if err != nil {
			t.Fatalf("NewDevice: %v", err)
		}
		defer dev.Destroy()
		if dev.BackendName() != backend.NameTrace {
			t.Errorf("BackendName() = %q", dev.BackendName())
		}
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := NewDevice(WithBackend("nope"))
		if !errors.Is(err, backend.ErrBackendNotAvailable) {
			t.Fatalf("err = %v, want ErrBackendNotAvailable", err)
		}
		if ResultOf(err) != ErrorInitializationFailed {
			t.Errorf("ResultOf = %v, want ErrorInitializationFailed", ResultOf(err))
		}
	})

	t.Run("invalid procs", func(t *testing.T) {
		_, err := NewDevice(WithProcs(&backend.Procs{}))
		if !errors.Is(err, backend.ErrMissingProc) {
			t.Fatalf("err = %v, want ErrMissingProc", err)
		}
	})

	t.Run("make current", func(t *testing.T) {
		boom := errors.New("no display")
		called := false
		_, err := NewDevice(WithProcs(trace.New().Procs()), WithMakeCurrent(func() error {
			called = true
			return boom
		}))
		if !called || !errors.Is(err, boom) {
			t.Fatalf("err = %v, called = %v", err, called)
		}
	})
}
