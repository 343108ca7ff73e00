package vkgl

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/vkgl/backend"
	"github.com/gogpu/vkgl/replay"
)

// job is one unit of context work. The submitter blocks on done.
type job struct {
	fn   func()
	done chan struct{}
}

// Device owns one graphics context and the goroutine it is current on.
//
// Every backend call is made from that goroutine. Other goroutines hand
// work over with do and wait for it to finish, so the call table, the
// state cache and the replay engine are never shared.
type Device struct {
	opts        deviceOptions
	backendName string

	jobs      chan job
	quit      chan struct{}
	exited    chan struct{}
	destroyed atomic.Bool
	once      sync.Once

	// Owned by the context goroutine.
	procs  *backend.Procs
	engine *replay.Engine

	queues []*Queue

	mu    sync.Mutex
	lost  error
	pools map[*CommandPool]struct{}

	// syncMu guards fence, semaphore and submission bookkeeping. It is
	// never held across do.
	syncMu   sync.Mutex
	inflight []*submission
}

// NewDevice creates a device, starts its context goroutine and opens the
// backend on it.
//
// Example:
//
//	dev, err := vkgl.NewDevice(vkgl.WithBackend("gles"))
//	if err != nil {
//	    return err
//	}
//	defer dev.Destroy()
func NewDevice(opts ...DeviceOption) (*Device, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	d := &Device{
		opts:   o,
		jobs:   make(chan job),
		quit:   make(chan struct{}),
		exited: make(chan struct{}),
		pools:  make(map[*CommandPool]struct{}),
	}
	ready := make(chan error, 1)
	go d.run(ready)
	if err := <-ready; err != nil {
		return nil, err
	}

	d.queues = make([]*Queue, o.queues)
	for i := range d.queues {
		d.queues[i] = &Queue{dev: d, index: uint32(i)}
	}
	slogger().Info("vkgl: device created",
		"backend", d.backendName,
		"queues", o.queues,
		"presenter", o.presenter != nil)
	return d, nil
}

// run is the context goroutine.
func (d *Device) run(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(d.exited)

	if err := d.open(); err != nil {
		ready <- fmt.Errorf("vkgl: create device: %w: %w", ErrorInitializationFailed, err)
		return
	}
	ready <- nil

	for {
		select {
		case j := <-d.jobs:
			j.fn()
			close(j.done)
		case <-d.quit:
			return
		}
	}
}

func (d *Device) open() error {
	if d.opts.makeCurrent != nil {
		if err := d.opts.makeCurrent(); err != nil {
			return fmt.Errorf("make current: %w", err)
		}
	}

	p := d.opts.procs
	name := "procs"
	if p != nil {
		if err := p.Validate(); err != nil {
			return err
		}
	} else {
		name = d.opts.backend
		if name == "" {
			name = backend.DefaultName()
		}
		var err error
		if p, err = backend.Open(name); err != nil {
			return err
		}
	}
	if d.opts.presenter != nil {
		p = d.opts.presenter.Wrap(p)
	}

	d.procs = p
	d.backendName = name
	d.engine = replay.New(p, replay.Options{
		DefaultFramebufferHeight: d.opts.fbHeight,
		PushConstantBuffer:       d.opts.pushBuffer,
		PushConstantBinding:      d.opts.pushBinding,
		PushConstantSize:         d.opts.pushSize,
	})
	return nil
}

// do runs fn on the context goroutine and waits for it.
func (d *Device) do(fn func()) error {
	j := job{fn: fn, done: make(chan struct{})}
	select {
	case d.jobs <- j:
	case <-d.quit:
		return ErrDeviceDestroyed
	}
	<-j.done
	return nil
}

func (d *Device) alive() error {
	if d.destroyed.Load() {
		return ErrDeviceDestroyed
	}
	return nil
}

// loseDevice records the first error that lost the device.
func (d *Device) loseDevice(err error) {
	d.mu.Lock()
	first := d.lost == nil
	if first {
		d.lost = err
	}
	d.mu.Unlock()
	if first {
		slogger().Error("vkgl: device lost", "err", err)
	}
}

// checkLost returns a wrapped ErrorDeviceLost once the device is lost.
func (d *Device) checkLost(op string) error {
	d.mu.Lock()
	lost := d.lost
	d.mu.Unlock()
	if lost != nil {
		return fmt.Errorf("vkgl: %s: %w: %w", op, ErrorDeviceLost, lost)
	}
	return nil
}

// Lost reports whether the device has been lost.
func (d *Device) Lost() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lost != nil
}

// Queue returns queue index of family, or nil if there is no such queue.
// The device exposes a single queue family, 0.
func (d *Device) Queue(family, index uint32) *Queue {
	if family != 0 || int(index) >= len(d.queues) {
		return nil
	}
	return d.queues[index]
}

// Queues returns all queues of the device.
func (d *Device) Queues() []*Queue {
	return d.queues
}

// BackendName returns the name of the opened backend, or "procs" for an
// injected call table.
func (d *Device) BackendName() string {
	return d.backendName
}

// Backend reports the graphics API the device drives.
func (d *Device) Backend() gputypes.Backend {
	return gputypes.BackendGL
}

// Stats returns the replay counters of the device.
func (d *Device) Stats() (replay.Stats, error) {
	var st replay.Stats
	err := d.do(func() { st = d.engine.Stats() })
	return st, err
}

// WaitIdle waits for every queue and, with a presenter, for the HAL
// device.
func (d *Device) WaitIdle() error {
	for _, q := range d.queues {
		if err := q.WaitIdle(); err != nil {
			return err
		}
	}
	if d.opts.presenter != nil {
		if err := d.opts.presenter.WaitIdle(); err != nil {
			return fmt.Errorf("vkgl: device wait idle: %w", err)
		}
	}
	return nil
}

// Destroy waits for outstanding work, destroys the remaining command
// pools and stops the context goroutine. It is safe to call more than
// once.
func (d *Device) Destroy() {
	d.once.Do(func() {
		if err := d.WaitIdle(); err != nil {
			slogger().Warn("vkgl: destroy: wait idle failed", "err", err)
		}

		d.mu.Lock()
		pools := make([]*CommandPool, 0, len(d.pools))
		for p := range d.pools {
			pools = append(pools, p)
		}
		d.mu.Unlock()
		for _, p := range pools {
			p.Destroy()
		}

		d.destroyed.Store(true)
		close(d.quit)
		<-d.exited
		slogger().Debug("vkgl: device destroyed", "backend", d.backendName)
	})
}
