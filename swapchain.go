package vkgl

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/vkgl/backend/halsync"
)

// Swapchain is a ring of presentable images. Images are handed out round
// robin and are available as soon as they are acquired.
type Swapchain struct {
	object
	dev    *Device
	images []*Image

	mu   sync.Mutex
	next uint32
}

// CreateSwapchain creates a swapchain over images. Presenting image i
// swaps the framebuffer of images[i].
func (d *Device) CreateSwapchain(images []*Image) (*Swapchain, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, usage("create swapchain", fmt.Errorf("%w: no images", ErrBadArgument))
	}
	return &Swapchain{dev: d, images: append([]*Image(nil), images...)}, nil
}

// Images returns the swapchain images.
func (s *Swapchain) Images() []*Image {
	return s.images
}

// Destroy releases the swapchain. The images stay valid.
func (s *Swapchain) Destroy() {
	s.destroyed.Store(true)
}

// AcquireNextImage returns the index of the next image and signals sem
// and fence, either of which may be nil. With a presenter the surface
// texture is acquired first and suboptimal reports its state.
func (s *Swapchain) AcquireNextImage(sem *Semaphore, fence *Fence) (index uint32, suboptimal bool, err error) {
	const op = "acquire next image"
	d := s.dev
	if err := d.checkLost(op); err != nil {
		return 0, false, err
	}
	if s.destroyed.Load() {
		return 0, false, usage(op, ErrInvalidated)
	}
	claim := &submission{fence: fence}
	if fence != nil && !d.reserveFence(fence, claim) {
		return 0, false, usage(op, ErrFenceInUse)
	}

	if p := d.opts.presenter; p != nil {
		suboptimal, err = p.Acquire()
		if err != nil && !errors.Is(err, halsync.ErrNoSurface) {
			if fence != nil {
				d.releaseFence(fence, claim)
			}
			r := ResultOf(err)
			if r == ErrorDeviceLost {
				d.loseDevice(err)
			}
			return 0, false, fmt.Errorf("vkgl: %s: %w: %w", op, r, err)
		}
	}

	s.mu.Lock()
	index = s.next
	s.next = (s.next + 1) % uint32(len(s.images))
	s.mu.Unlock()

	d.syncMu.Lock()
	if sem != nil {
		sem.signaled = true
	}
	if fence != nil {
		fence.signaled = true
		fence.sub = nil
	}
	d.syncMu.Unlock()
	return index, suboptimal, nil
}
