// Package history holds the bounded rolling logs a shipment session keeps
// between evaluations.
package history

import (
	"fmt"

	"github.com/kilianp07/coldchain/core/model"
)

// Ring is a bounded FIFO buffer. When full, pushing evicts the oldest entry.
// Ring is not safe for concurrent use; Session serializes access.
type Ring[T any] struct {
	buf   []T
	start int
	n     int
}

// NewRing creates a ring with the given capacity.
func NewRing[T any](capacity int) (*Ring[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: history capacity must be positive, got %d", model.ErrConfiguration, capacity)
	}
	return &Ring[T]{buf: make([]T, capacity)}, nil
}

// Push appends v, evicting the oldest entry when the ring is full.
func (r *Ring[T]) Push(v T) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = v
		r.n++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
}

// Len returns the number of stored entries.
func (r *Ring[T]) Len() int { return r.n }

// Cap returns the ring capacity.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// Snapshot copies the entries from oldest to newest.
func (r *Ring[T]) Snapshot() []T {
	return r.Last(r.n)
}

// Last copies the newest n entries, oldest first.
func (r *Ring[T]) Last(n int) []T {
	if n > r.n {
		n = r.n
	}
	if n <= 0 {
		return []T{}
	}
	out := make([]T, n)
	skip := r.n - n
	for i := 0; i < n; i++ {
		out[i] = r.buf[(r.start+skip+i)%len(r.buf)]
	}
	return out
}

// Reset drops every entry and keeps the capacity.
func (r *Ring[T]) Reset() {
	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
	r.start, r.n = 0, 0
}
