package encoding

import (
	"math"
	"slices"
)

// List is an append-only stream of encoded commands.
//
// Recording appends to a List through its typed encoder methods. Replay
// reads it through a Decoder. A List never owns GPU resources, it only
// stores their backend names. Secondary lists referenced by
// ExecuteCommands are kept in a side table and stored by reference, so
// re-recording a secondary list is observed by every list that refers to it.
type List struct {
	// words holds headers and payloads back to back.
	words []uint32

	// lists holds secondary lists referenced by OpExecuteCommands.
	lists []*List

	// count is the number of encoded commands.
	count int
}

// NewList creates a new empty list.
func NewList() *List {
	return &List{
		words: make([]uint32, 0, 256),
		lists: make([]*List, 0, 4),
	}
}

// Reset clears the list for reuse without releasing its memory.
func (l *List) Reset() {
	l.words = l.words[:0]
	clear(l.lists)
	l.lists = l.lists[:0]
	l.count = 0
}

// Release clears the list and drops its backing storage. The list stays
// usable and regrows on the next append.
func (l *List) Release() {
	l.words = nil
	l.lists = nil
	l.count = 0
}

// Len returns the number of encoded commands.
func (l *List) Len() int {
	return l.count
}

// IsEmpty reports whether the list holds no commands.
func (l *List) IsEmpty() bool {
	return l.count == 0
}

// Size returns the encoded size in bytes.
func (l *List) Size() int {
	return len(l.words) * 4
}

// Capacity returns the allocated word capacity in bytes.
func (l *List) Capacity() int {
	return cap(l.words) * 4
}

// Words returns the raw encoded stream. The slice is only valid until the
// next append or Reset.
func (l *List) Words() []uint32 {
	return l.words
}

// Secondary returns the i-th secondary list referenced from this list.
func (l *List) Secondary(i int) *List {
	return l.lists[i]
}

// Secondaries returns the number of secondary list references.
func (l *List) Secondaries() int {
	return len(l.lists)
}

// Ops returns the op of every command in order. It is intended for tests
// and debugging.
func (l *List) Ops() []Op {
	ops := make([]Op, 0, l.count)
	d := NewDecoder(l)
	for d.Next() {
		ops = append(ops, d.Op())
	}
	return ops
}

// alloc appends a header for op and reserves n payload words, which the
// caller fills in place.
func (l *List) alloc(op Op, n int) []uint32 {
	h := packHeader(op, n)
	start := len(l.words)
	l.words = slices.Grow(l.words, n+1)
	l.words = l.words[:start+1+n]
	l.words[start] = h
	p := l.words[start+1:]
	clear(p)
	l.count++
	return p
}

// ref stores a secondary list and returns its side table index.
func (l *List) ref(s *List) uint32 {
	for i, x := range l.lists {
		if x == s {
			return uint32(i)
		}
	}
	l.lists = append(l.lists, s)
	return uint32(len(l.lists) - 1)
}

func f32(v float32) uint32 { return math.Float32bits(v) }

func fromF32(w uint32) float32 { return math.Float32frombits(w) }

func lo(v uint64) uint32 { return uint32(v) }

func hi(v uint64) uint32 { return uint32(v >> 32) }

func join(lo, hi uint32) uint64 { return uint64(hi)<<32 | uint64(lo) }

// wordsFor returns the number of words needed to hold n bytes.
func wordsFor(n int) int { return (n + 3) / 4 }

// putBytes packs b little-endian into dst.
func putBytes(dst []uint32, b []byte) {
	for i, c := range b {
		dst[i/4] |= uint32(c) << (8 * (i % 4))
	}
}

// getBytes unpacks n little-endian bytes from src into dst and returns it.
func getBytes(dst []byte, src []uint32, n int) []byte {
	for i := 0; i < n; i++ {
		dst = append(dst, byte(src[i/4]>>(8*(i%4))))
	}
	return dst
}
