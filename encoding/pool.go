package encoding

import "sync"

// ListPool manages reusable command lists. Command pools draw their lists
// from it so that reset and free do not churn the allocator.
//
//	pool := NewListPool()
//	l := pool.Get()
//	defer pool.Put(l)
type ListPool struct {
	pool sync.Pool
}

// NewListPool creates a new list pool.
func NewListPool() *ListPool {
	return &ListPool{
		pool: sync.Pool{
			New: func() any {
				return NewList()
			},
		},
	}
}

// Get retrieves an empty list.
func (p *ListPool) Get() *List {
	l := p.pool.Get().(*List)
	l.Reset()
	return l
}

// Put returns a list to the pool.
func (p *ListPool) Put(l *List) {
	if l == nil {
		return
	}
	p.pool.Put(l)
}

// Warmup pre-allocates count lists.
func (p *ListPool) Warmup(count int) {
	lists := make([]*List, count)
	for i := range lists {
		lists[i] = p.Get()
	}
	for _, l := range lists {
		p.Put(l)
	}
}

// DefaultPool is the process-wide list pool.
var DefaultPool = NewListPool()
