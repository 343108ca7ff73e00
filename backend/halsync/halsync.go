// Package halsync routes fence and presentation calls of a backend table
// through a wgpu HAL device and queue.
//
// A context that shares its GPU with a wgpu device cannot rely on its own
// sync objects to observe work submitted by the HAL side. A Presenter maps
// every FenceSync onto a HAL submission index and completes it once
// hal.Queue.PollCompleted reaches that index. SwapBuffers becomes
// hal.Queue.Present on the configured surface.
package halsync

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/vkgl/backend"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/gles/gl"
)

// pollInterval is the sleep between completion polls inside a bounded
// ClientWaitSync.
const pollInterval = 50 * time.Microsecond

// Errors returned by the presenter.
var (
	ErrNoHAL        = errors.New("halsync: provider does not expose HAL types")
	ErrNotHALDevice = errors.New("halsync: provider device is not a hal.Device")
	ErrNotHALQueue  = errors.New("halsync: provider queue is not a hal.Queue")
	ErrNoSurface    = errors.New("halsync: no surface configured")
	ErrSubmitFailed = errors.New("halsync: fence submission failed")
)

// Presenter adapts a HAL device and queue to the sync and present entry
// points of a backend table.
type Presenter struct {
	device hal.Device
	queue  hal.Queue

	mu       sync.Mutex
	surface  hal.Surface
	acquired hal.SurfaceTexture
	next     backend.Sync
	pending  map[backend.Sync]uint64
	lost     error
}

// New creates a presenter over device and queue.
func New(device hal.Device, queue hal.Queue) *Presenter {
	return &Presenter{
		device:  device,
		queue:   queue,
		pending: make(map[backend.Sync]uint64),
	}
}

// FromProvider extracts the HAL device and queue from a provider. The
// provider either exposes HalDevice() any and HalQueue() any, or is a
// gpucontext.DeviceProvider whose device and queue are HAL objects.
func FromProvider(provider any) (*Presenter, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	var dev, queue any
	switch p := provider.(type) {
	case halProvider:
		dev, queue = p.HalDevice(), p.HalQueue()
	case gpucontext.DeviceProvider:
		dev, queue = p.Device(), p.Queue()
	default:
		return nil, ErrNoHAL
	}
	d, ok := dev.(hal.Device)
	if !ok || d == nil {
		return nil, ErrNotHALDevice
	}
	q, ok := queue.(hal.Queue)
	if !ok || q == nil {
		return nil, ErrNotHALQueue
	}
	return New(d, q), nil
}

// SetSurface sets the surface presented by SwapBuffers. A texture acquired
// from the previous surface is discarded.
func (p *Presenter) SetSurface(s hal.Surface) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.acquired != nil && p.surface != nil {
		p.surface.DiscardTexture(p.acquired)
	}
	p.surface, p.acquired = s, nil
}

// Acquire acquires the next surface texture ahead of rendering. It
// reports whether the surface is suboptimal.
func (p *Presenter) Acquire() (suboptimal bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acquireLocked()
}

func (p *Presenter) acquireLocked() (bool, error) {
	if p.surface == nil {
		return false, ErrNoSurface
	}
	if p.acquired != nil {
		return false, nil
	}
	at, err := p.surface.AcquireTexture(nil)
	if err != nil {
		return false, fmt.Errorf("halsync: acquire: %w", err)
	}
	p.acquired = at.Texture
	return at.Suboptimal, nil
}

// Pending returns the number of sync objects not yet deleted.
func (p *Presenter) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// WaitIdle blocks until the HAL device has finished all work.
func (p *Presenter) WaitIdle() error {
	return p.device.WaitIdle()
}

// Wrap returns a copy of procs whose sync and present entry points go
// through the presenter. A submission failure is reported as
// CONTEXT_LOST by GetError from then on. Without a surface SwapBuffers
// falls back to procs.SwapBuffers.
func (p *Presenter) Wrap(procs *backend.Procs) *backend.Procs {
	w := *procs
	getError := procs.GetError
	swap := procs.SwapBuffers
	w.GetError = func() uint32 {
		p.mu.Lock()
		lost := p.lost != nil
		p.mu.Unlock()
		if lost {
			return backend.CONTEXT_LOST
		}
		return getError()
	}
	w.FenceSync = p.fenceSync
	w.ClientWaitSync = p.clientWaitSync
	w.DeleteSync = p.deleteSync
	w.SwapBuffers = func(fb uint32) error {
		p.mu.Lock()
		hasSurface := p.surface != nil
		p.mu.Unlock()
		if !hasSurface && swap != nil {
			return swap(fb)
		}
		return p.present()
	}
	return &w
}

func (p *Presenter) fenceSync() backend.Sync {
	idx, err := p.queue.Submit(nil)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next++
	s := p.next
	if err != nil {
		if p.lost == nil {
			p.lost = fmt.Errorf("%w: %w", ErrSubmitFailed, err)
			slogger().Error("halsync: submit failed", "err", err)
		}
		// The sync can never complete, so leave it unknown.
		return s
	}
	p.pending[s] = idx
	return s
}

func (p *Presenter) clientWaitSync(s backend.Sync, timeoutNs uint64) uint32 {
	p.mu.Lock()
	idx, ok := p.pending[s]
	p.mu.Unlock()
	if !ok {
		slogger().Debug("halsync: wait on unknown sync", "sync", s)
		return gl.WAIT_FAILED
	}
	if p.queue.PollCompleted() >= idx {
		return gl.ALREADY_SIGNALED
	}
	if timeoutNs == 0 {
		return gl.TIMEOUT_EXPIRED
	}
	deadline := time.Now().Add(time.Duration(min(timeoutNs, uint64(1<<62))))
	for time.Now().Before(deadline) {
		time.Sleep(pollInterval)
		if p.queue.PollCompleted() >= idx {
			return gl.CONDITION_SATISFIED
		}
	}
	return gl.TIMEOUT_EXPIRED
}

func (p *Presenter) deleteSync(s backend.Sync) {
	p.mu.Lock()
	delete(p.pending, s)
	p.mu.Unlock()
}

func (p *Presenter) present() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.acquireLocked(); err != nil {
		return err
	}
	tex := p.acquired
	p.acquired = nil
	if err := p.queue.Present(p.surface, tex, nil); err != nil {
		return fmt.Errorf("halsync: present: %w", err)
	}
	return nil
}
