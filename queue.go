package vkgl

import (
	"fmt"
)

// SubmitInfo is one batch of a submission.
type SubmitInfo struct {
	WaitSemaphores   []*Semaphore
	CommandBuffers   []*CommandBuffer
	SignalSemaphores []*Semaphore
}

// PresentInfo presents one image of each swapchain.
type PresentInfo struct {
	WaitSemaphores []*Semaphore
	Swapchains     []*Swapchain
	ImageIndices   []uint32
}

// Queue submits command buffers to the device context. All queues of a
// device share the context goroutine, so work is executed in call order
// across queues.
type Queue struct {
	dev   *Device
	index uint32
}

// Index returns the queue index within family 0.
func (q *Queue) Index() uint32 { return q.index }

// Submit replays the command buffers of each batch in order on the context
// goroutine. Wait semaphores of a batch are consumed before it runs and
// signal semaphores are signaled after. fence, if not nil, is signaled
// once the backend reports the work complete.
//
// A backend error during replay loses the device and is returned wrapped
// in ErrorDeviceLost.
func (q *Queue) Submit(batches []SubmitInfo, fence *Fence) error {
	const op = "queue submit"
	d := q.dev
	if err := d.checkLost(op); err != nil {
		return err
	}
	sub := &submission{queue: q, fence: fence}
	if fence != nil && !d.reserveFence(fence, sub) {
		return usage(op, ErrFenceInUse)
	}

	bufs, err := acquire(op, batches)
	if err != nil {
		if fence != nil {
			d.releaseFence(fence, sub)
		}
		return err
	}
	sub.buffers = bufs

	var replayErr error
	err = d.do(func() {
		d.poll()
		for _, b := range batches {
			d.consume(op, b.WaitSemaphores)
			for _, cb := range b.CommandBuffers {
				if replayErr = d.engine.Replay(cb.list); replayErr != nil {
					d.lose(replayErr)
					d.complete(sub)
					return
				}
			}
			d.signal(b.SignalSemaphores)
		}
		sub.sync = d.procs.FenceSync()

		d.syncMu.Lock()
		d.inflight = append(d.inflight, sub)
		d.syncMu.Unlock()
	})
	if err != nil {
		d.complete(sub)
		return fmt.Errorf("vkgl: %s: %w", op, err)
	}
	if replayErr != nil {
		return fmt.Errorf("vkgl: %s: %w: %w", op, ErrorDeviceLost, replayErr)
	}
	slogger().Debug("vkgl: submitted", "queue", q.index, "batches", len(batches), "buffers", len(bufs))
	return nil
}

// acquire validates every buffer of batches and marks it, and the
// secondaries it executes, pending. On failure nothing stays marked.
func acquire(op string, batches []SubmitInfo) ([]*CommandBuffer, error) {
	var marked []*CommandBuffer
	rollback := func(err error) ([]*CommandBuffer, error) {
		for _, cb := range marked {
			cb.mu.Lock()
			cb.pending--
			cb.mu.Unlock()
		}
		return nil, err
	}

	for _, b := range batches {
		for _, cb := range b.CommandBuffers {
			if cb == nil {
				return rollback(usage(op, fmt.Errorf("%w: nil command buffer", ErrBadArgument)))
			}
			secondaries, err := cb.markPending(op, LevelPrimary)
			if err != nil {
				return rollback(err)
			}
			marked = append(marked, cb)
			for _, s := range secondaries {
				if _, err := s.markPending(op, LevelSecondary); err != nil {
					return rollback(err)
				}
				marked = append(marked, s)
			}
		}
	}
	return marked, nil
}

// markPending checks that the buffer can be submitted at level and bumps
// its pending count. It returns the secondaries the buffer executes.
func (cb *CommandBuffer) markPending(op string, level Level) ([]*CommandBuffer, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	notExecutable := ErrNotExecutable
	if level == LevelSecondary {
		notExecutable = ErrSecondaryNotExecutable
	}
	switch {
	case cb.destroyed.Load(), cb.state == StateInvalid:
		return nil, usage(op, ErrInvalidated)
	case cb.level != level:
		return nil, usage(op, ErrWrongLevel)
	case cb.state != StateExecutable:
		return nil, usage(op, notExecutable)
	case cb.pending > 0 && cb.usage&UsageSimultaneousUse == 0:
		return nil, usage(op, ErrPending)
	}
	cb.pending++
	return append([]*CommandBuffer(nil), cb.secondaries...), nil
}

// Present shows one image per swapchain after consuming the wait
// semaphores. An out of date surface returns ErrorOutOfDateKHR.
func (q *Queue) Present(info PresentInfo) error {
	const op = "queue present"
	d := q.dev
	if err := d.checkLost(op); err != nil {
		return err
	}
	if len(info.Swapchains) == 0 || len(info.Swapchains) != len(info.ImageIndices) {
		return usage(op, fmt.Errorf("%w: %d swapchains, %d indices", ErrBadArgument, len(info.Swapchains), len(info.ImageIndices)))
	}
	images := make([]*Image, len(info.Swapchains))
	for i, sc := range info.Swapchains {
		idx := info.ImageIndices[i]
		if int(idx) >= len(sc.images) {
			slogger().Warn("vkgl: present of out of range image", "index", idx, "images", len(sc.images))
			return usage(op, fmt.Errorf("%w: image %d of %d", ErrBadArgument, idx, len(sc.images)))
		}
		images[i] = sc.images[idx]
	}

	var swapErr error
	err := d.do(func() {
		d.consume(op, info.WaitSemaphores)
		for _, img := range images {
			if swapErr = d.procs.SwapBuffers(img.framebuffer); swapErr != nil {
				return
			}
		}
	})
	if err != nil {
		return fmt.Errorf("vkgl: %s: %w", op, err)
	}
	if swapErr != nil {
		r := ResultOf(swapErr)
		if r == ErrorDeviceLost {
			d.loseDevice(swapErr)
		}
		return fmt.Errorf("vkgl: %s: %w: %w", op, r, swapErr)
	}
	return nil
}

// WaitIdle waits until every submission of this queue has completed.
func (q *Queue) WaitIdle() error {
	d := q.dev
	_, err := d.waitUntil("queue wait idle", Forever, func() bool {
		for _, s := range d.inflight {
			if s.queue == q {
				return false
			}
		}
		return true
	})
	return err
}
