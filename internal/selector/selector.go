// Package selector holds the active preset index shared between the button
// edge handler and the blinkers.
//
// The index lives in a single atomic word. Advance is lock-free and never
// blocks, so it is safe to call from an edge callback. Readers may miss
// intermediate values when presses arrive faster than they poll; only the
// latest value matters.
package selector

import (
	"fmt"
	"sync/atomic"
)

// Selector is a cyclic index in [0, n).
type Selector struct {
	n   uint32
	idx atomic.Uint32
}

// New returns a Selector over n presets, starting at index 0.
func New(n int) *Selector {
	if n < 1 {
		panic(fmt.Sprintf("selector: need at least one preset, got %d", n))
	}
	return &Selector{n: uint32(n)}
}

// Len returns the number of presets the selector cycles through.
func (s *Selector) Len() int {
	return int(s.n)
}

// Read returns the active index.
func (s *Selector) Read() int {
	v := s.idx.Load()
	if v >= s.n {
		panic(fmt.Sprintf("selector: index %d out of range [0,%d)", v, s.n))
	}
	return int(v)
}

// Advance moves to the next index, wrapping to 0 after the last, and
// returns the new value.
func (s *Selector) Advance() int {
	for {
		old := s.idx.Load()
		next := (old + 1) % s.n
		if s.idx.CompareAndSwap(old, next) {
			return int(next)
		}
	}
}
