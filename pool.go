package vkgl

import (
	"fmt"
	"sync"

	"github.com/gogpu/vkgl/encoding"
)

// PoolCreateFlags configures a command pool.
type PoolCreateFlags uint32

// Command pool flags.
const (
	// PoolCreateTransient hints that buffers are short lived.
	PoolCreateTransient PoolCreateFlags = 1 << iota

	// PoolCreateResetCommandBuffer allows buffers to be reset one by one,
	// explicitly or by Begin.
	PoolCreateResetCommandBuffer
)

// CommandPool allocates command buffers and recycles their lists.
type CommandPool struct {
	dev   *Device
	flags PoolCreateFlags

	mu        sync.Mutex
	buffers   []*CommandBuffer
	destroyed bool
}

// CreateCommandPool creates a command pool.
func (d *Device) CreateCommandPool(flags PoolCreateFlags) (*CommandPool, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	p := &CommandPool{dev: d, flags: flags}
	d.mu.Lock()
	d.pools[p] = struct{}{}
	d.mu.Unlock()
	return p, nil
}

// AllocateCommandBuffers allocates n buffers of level, all Initial.
func (p *CommandPool) AllocateCommandBuffers(level Level, n int) ([]*CommandBuffer, error) {
	const op = "allocate command buffers"
	if level != LevelPrimary && level != LevelSecondary {
		return nil, usage(op, fmt.Errorf("%w: level %d", ErrBadArgument, level))
	}
	if n <= 0 {
		return nil, usage(op, fmt.Errorf("%w: count %d", ErrBadArgument, n))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return nil, usage(op, ErrInvalidated)
	}
	out := make([]*CommandBuffer, n)
	for i := range out {
		out[i] = &CommandBuffer{
			pool:  p,
			level: level,
			list:  encoding.DefaultPool.Get(),
			refs:  make(map[*object]struct{}),
		}
	}
	p.buffers = append(p.buffers, out...)
	return out, nil
}

// FreeCommandBuffers frees buffers. Primaries that execute a freed
// secondary become Invalid. Nil entries are ignored.
func (p *CommandPool) FreeCommandBuffers(bufs ...*CommandBuffer) error {
	const op = "free command buffers"
	for _, cb := range bufs {
		if cb == nil {
			continue
		}
		if cb.pool != p {
			return usage(op, fmt.Errorf("%w: buffer from another pool", ErrBadArgument))
		}
		if cb.isPending() {
			return usage(op, ErrPending)
		}
	}

	p.mu.Lock()
	for _, cb := range bufs {
		if cb == nil {
			continue
		}
		for i, b := range p.buffers {
			if b == cb {
				p.buffers = append(p.buffers[:i], p.buffers[i+1:]...)
				break
			}
		}
	}
	p.mu.Unlock()

	for _, cb := range bufs {
		if cb == nil || !cb.destroyed.CompareAndSwap(false, true) {
			continue
		}
		cb.free()
		if cb.level == LevelSecondary {
			p.dev.invalidateReferencing(&cb.object)
		}
	}
	return nil
}

// Reset resets every buffer of the pool to Initial. The pool's flags do
// not matter. With releaseResources the lists drop their memory.
func (p *CommandPool) Reset(releaseResources bool) error {
	bufs := p.snapshot()
	for _, cb := range bufs {
		if cb.isPending() {
			return usage("reset command pool", ErrPending)
		}
	}
	for _, cb := range bufs {
		cb.mu.Lock()
		cb.resetLocked(releaseResources)
		cb.mu.Unlock()
	}
	return nil
}

// Destroy frees every buffer and removes the pool from its device.
func (p *CommandPool) Destroy() {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return
	}
	p.destroyed = true
	bufs := p.buffers
	p.buffers = nil
	p.mu.Unlock()

	for _, cb := range bufs {
		if cb.destroyed.CompareAndSwap(false, true) {
			cb.free()
			if cb.level == LevelSecondary {
				p.dev.invalidateReferencing(&cb.object)
			}
		}
	}

	d := p.dev
	d.mu.Lock()
	delete(d.pools, p)
	d.mu.Unlock()
}

func (p *CommandPool) snapshot() []*CommandBuffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*CommandBuffer(nil), p.buffers...)
}

func (p *CommandPool) allowsReset() bool {
	return p.flags&PoolCreateResetCommandBuffer != 0
}
