package vkgl

import (
	"time"

	"github.com/gogpu/vkgl/backend"
	"github.com/gogpu/vkgl/backend/halsync"
	"github.com/gogpu/vkgl/replay"
)

// DeviceOption configures a Device during creation.
//
// Example:
//
//	// Best registered backend
//	dev, err := vkgl.NewDevice()
//
//	// Injected call table (tests, custom contexts)
//	rec := trace.New()
//	dev, err := vkgl.NewDevice(vkgl.WithProcs(rec.Procs()))
type DeviceOption func(*deviceOptions)

// deviceOptions holds optional configuration for Device creation.
type deviceOptions struct {
	backend     string
	procs       *backend.Procs
	queues      int
	makeCurrent func() error
	presenter   *halsync.Presenter

	pollMin time.Duration
	pollMax time.Duration

	fbHeight int32

	pushBuffer  uint32
	pushBinding uint32
	pushSize    int
}

// Fence polling bounds used unless WithFencePoll overrides them.
const (
	DefaultFencePollMin = 20 * time.Microsecond
	DefaultFencePollMax = 2 * time.Millisecond
)

// defaultOptions returns the default device options.
func defaultOptions() deviceOptions {
	return deviceOptions{
		queues:   1,
		pollMin:  DefaultFencePollMin,
		pollMax:  DefaultFencePollMax,
		pushSize: replay.DefaultPushConstantSize,
	}
}

// WithBackend selects a backend from the registry by name. Without it the
// best registered backend is used.
func WithBackend(name string) DeviceOption {
	return func(o *deviceOptions) {
		o.backend = name
	}
}

// WithProcs injects a call table directly, bypassing the registry.
func WithProcs(p *backend.Procs) DeviceOption {
	return func(o *deviceOptions) {
		o.procs = p
	}
}

// WithQueues sets the number of queues in the device's single queue
// family. All queues share one context. The default is 1.
func WithQueues(n int) DeviceOption {
	return func(o *deviceOptions) {
		if n > 0 {
			o.queues = n
		}
	}
}

// WithMakeCurrent sets a hook that runs on the context goroutine before
// the backend is opened, typically to make a window system context
// current on the locked OS thread.
func WithMakeCurrent(fn func() error) DeviceOption {
	return func(o *deviceOptions) {
		o.makeCurrent = fn
	}
}

// WithPresenter routes fences and presentation through a wgpu HAL queue.
//
// Example:
//
//	p, err := halsync.FromProvider(provider)
//	if err != nil {
//	    return err
//	}
//	p.SetSurface(surface)
//	dev, err := vkgl.NewDevice(vkgl.WithPresenter(p))
func WithPresenter(p *halsync.Presenter) DeviceOption {
	return func(o *deviceOptions) {
		o.presenter = p
	}
}

// WithFencePoll sets the bounds of the backoff used while waiting on
// fences. Non-positive values keep the defaults.
func WithFencePoll(minInterval, maxInterval time.Duration) DeviceOption {
	return func(o *deviceOptions) {
		if minInterval > 0 {
			o.pollMin = minInterval
		}
		if maxInterval > 0 {
			o.pollMax = maxInterval
		}
		if o.pollMax < o.pollMin {
			o.pollMax = o.pollMin
		}
	}
}

// WithDefaultFramebufferHeight sets the height of the window system
// framebuffer 0, used to flip viewports recorded outside a render pass.
func WithDefaultFramebufferHeight(height int32) DeviceOption {
	return func(o *deviceOptions) {
		o.fbHeight = height
	}
}

// WithPushConstantBuffer sets the uniform buffer that emulates push
// constants, the binding it is attached to and its size in bytes. A size
// of 0 keeps the default of 256 bytes. Without this option push
// constants are recorded but skipped at replay.
func WithPushConstantBuffer(buffer, binding uint32, size int) DeviceOption {
	return func(o *deviceOptions) {
		o.pushBuffer = buffer
		o.pushBinding = binding
		if size > 0 {
			o.pushSize = size
		}
	}
}
