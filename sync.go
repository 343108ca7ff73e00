package vkgl

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/gogpu/vkgl/backend"
	"github.com/gogpu/wgpu/hal/gles/gl"
)

// Forever is the timeout that never expires.
const Forever = uint64(math.MaxUint64)

// submission is one Submit call in flight.
type submission struct {
	queue   *Queue
	sync    backend.Sync
	buffers []*CommandBuffer
	fence   *Fence
	done    bool
}

// Fence signals the host when a submission completes.
type Fence struct {
	object
	dev *Device

	// Guarded by dev.syncMu.
	signaled bool
	sub      *submission
}

// Semaphore orders batches and presents. Waiting consumes the signal.
type Semaphore struct {
	object
	dev *Device

	// Guarded by dev.syncMu.
	signaled bool
}

// CreateFence creates a fence, optionally already signaled.
func (d *Device) CreateFence(signaled bool) (*Fence, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	return &Fence{dev: d, signaled: signaled}, nil
}

// CreateSemaphore creates an unsignaled binary semaphore.
func (d *Device) CreateSemaphore() (*Semaphore, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	return &Semaphore{dev: d}, nil
}

// Destroy releases the fence. A pending fence cannot be destroyed.
func (f *Fence) Destroy() error {
	f.dev.syncMu.Lock()
	defer f.dev.syncMu.Unlock()
	if f.sub != nil {
		return usage("destroy fence", ErrPending)
	}
	f.destroyed.Store(true)
	return nil
}

// Destroy releases the semaphore.
func (s *Semaphore) Destroy() {
	s.destroyed.Store(true)
}

// Signaled reports whether the semaphore holds a signal.
func (s *Semaphore) Signaled() bool {
	s.dev.syncMu.Lock()
	defer s.dev.syncMu.Unlock()
	return s.signaled
}

// Status polls the fence: Success when signaled, NotReady otherwise and
// ErrorDeviceLost once the device is lost.
func (f *Fence) Status() Result {
	d := f.dev
	if d.checkLost("fence status") != nil {
		return ErrorDeviceLost
	}
	if !f.isSignaled() {
		if err := d.do(d.poll); err != nil {
			return ResultOf(err)
		}
		if d.checkLost("fence status") != nil {
			return ErrorDeviceLost
		}
	}
	if f.isSignaled() {
		return Success
	}
	return NotReady
}

// Wait blocks until the fence is signaled or timeout nanoseconds pass.
// It returns Timeout, a success code, on expiry.
func (f *Fence) Wait(timeout uint64) (Result, error) {
	return f.dev.WaitForFences([]*Fence{f}, true, timeout)
}

func (f *Fence) isSignaled() bool {
	f.dev.syncMu.Lock()
	defer f.dev.syncMu.Unlock()
	return f.signaled
}

// WaitForFences waits until all fences, or any with waitAll false, are
// signaled. A zero timeout only polls.
func (d *Device) WaitForFences(fences []*Fence, waitAll bool, timeout uint64) (Result, error) {
	if len(fences) == 0 {
		return Success, nil
	}
	return d.waitUntil("wait for fences", timeout, func() bool {
		n := 0
		for _, f := range fences {
			if f.signaled {
				n++
			}
		}
		if waitAll {
			return n == len(fences)
		}
		return n > 0
	})
}

// ResetFences unsignals fences. Pending fences are rejected and nothing is
// reset.
func (d *Device) ResetFences(fences ...*Fence) error {
	d.syncMu.Lock()
	defer d.syncMu.Unlock()
	for _, f := range fences {
		if f.sub != nil {
			return usage("reset fences", ErrPending)
		}
	}
	for _, f := range fences {
		f.signaled = false
	}
	return nil
}

// waitUntil polls completion with backoff until ready holds. ready runs
// with syncMu held.
func (d *Device) waitUntil(op string, timeout uint64, ready func() bool) (Result, error) {
	check := func() bool {
		d.syncMu.Lock()
		defer d.syncMu.Unlock()
		return ready()
	}

	forever := timeout > math.MaxInt64
	var deadline time.Time
	if !forever {
		deadline = time.Now().Add(time.Duration(timeout))
	}
	delay := d.opts.pollMin
	for {
		if err := d.checkLost(op); err != nil {
			return ErrorDeviceLost, err
		}
		if check() {
			return Success, nil
		}
		if err := d.do(d.poll); err != nil {
			return ResultOf(err), fmt.Errorf("vkgl: %s: %w", op, err)
		}
		if err := d.checkLost(op); err != nil {
			return ErrorDeviceLost, err
		}
		if check() {
			return Success, nil
		}

		sleep := delay
		if !forever {
			left := time.Until(deadline)
			if left <= 0 {
				return Timeout, nil
			}
			sleep = min(sleep, left)
		}
		time.Sleep(sleep)
		delay = min(delay*2, d.opts.pollMax)
	}
}

// reserveFence claims f for sub. It fails when f is signaled or already
// claimed. The claim is dropped by complete or releaseFence.
func (d *Device) reserveFence(f *Fence, sub *submission) bool {
	d.syncMu.Lock()
	defer d.syncMu.Unlock()
	if f.signaled || f.sub != nil {
		return false
	}
	f.sub = sub
	return true
}

// releaseFence drops a claim of sub on f that never went in flight.
func (d *Device) releaseFence(f *Fence, sub *submission) {
	d.syncMu.Lock()
	defer d.syncMu.Unlock()
	if f.sub == sub {
		f.sub = nil
	}
}

// poll retires every in-flight submission whose sync has fired. It runs
// on the context goroutine.
func (d *Device) poll() {
	d.syncMu.Lock()
	subs := slices.Clone(d.inflight)
	d.syncMu.Unlock()

	for _, s := range subs {
		switch d.procs.ClientWaitSync(s.sync, 0) {
		case gl.ALREADY_SIGNALED, gl.CONDITION_SATISFIED:
			d.procs.DeleteSync(s.sync)
			d.complete(s)
		case gl.WAIT_FAILED:
			d.lose(fmt.Errorf("vkgl: wait on sync %d failed", s.sync))
			return
		}
	}
}

// lose marks the device lost and retires everything in flight. It runs
// on the context goroutine.
func (d *Device) lose(err error) {
	d.loseDevice(err)

	d.syncMu.Lock()
	subs := slices.Clone(d.inflight)
	d.syncMu.Unlock()
	for _, s := range subs {
		d.procs.DeleteSync(s.sync)
		d.complete(s)
	}
}

// complete signals the submission's fence and hands its buffers back.
func (d *Device) complete(sub *submission) {
	d.syncMu.Lock()
	if sub.done {
		d.syncMu.Unlock()
		return
	}
	sub.done = true
	d.inflight = slices.DeleteFunc(d.inflight, func(s *submission) bool { return s == sub })
	if f := sub.fence; f != nil {
		f.signaled = true
		f.sub = nil
	}
	d.syncMu.Unlock()

	for _, cb := range sub.buffers {
		cb.completed()
	}
}

// consume takes the signal of each semaphore. It runs on the context
// goroutine.
func (d *Device) consume(op string, sems []*Semaphore) {
	d.syncMu.Lock()
	defer d.syncMu.Unlock()
	for _, s := range sems {
		if !s.signaled {
			slogger().Warn("vkgl: wait on unsignaled semaphore", "op", op)
		}
		s.signaled = false
	}
}

func (d *Device) signal(sems []*Semaphore) {
	d.syncMu.Lock()
	defer d.syncMu.Unlock()
	for _, s := range sems {
		s.signaled = true
	}
}
