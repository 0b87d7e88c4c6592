// Package ringbuf provides a fixed-capacity circular buffer used for
// bounded sample history throughout the daemon.
package ringbuf

import (
	"fmt"
	"iter"
)

// Ring is a fixed-size circular buffer. Once full, Append overwrites the
// oldest element. Logical index 0 is always the oldest retained element.
//
// A Ring is not safe for concurrent use; callers that share one across
// goroutines must serialize access themselves.
type Ring[T any] struct {
	buf   []T
	start int
	len   int
	cap   int
}

// New creates a Ring with the given capacity. Capacities below 2 are a
// contract violation and panic.
func New[T any](capacity int) *Ring[T] {
	if capacity <= 1 {
		panic(fmt.Sprintf("ringbuf: capacity must be at least 2, got %d", capacity))
	}
	return &Ring[T]{
		buf: make([]T, capacity),
		cap: capacity,
	}
}

// Append adds v as the newest element, discarding the oldest one when full.
func (r *Ring[T]) Append(v T) {
	if r.len < r.cap {
		r.buf[(r.start+r.len)%r.cap] = v
		r.len++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % r.cap
}

// Len returns the number of retained elements.
func (r *Ring[T]) Len() int { return r.len }

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int { return r.cap }

// At returns the element at logical index i, where 0 is the oldest retained
// element. Indexing outside [0, Len()) is a contract violation and panics.
func (r *Ring[T]) At(i int) T {
	if i < 0 || i >= r.len {
		panic(fmt.Sprintf("ringbuf: index %d out of range [0, %d)", i, r.len))
	}
	return r.buf[(r.start+i)%r.cap]
}

// Latest returns the newest element, or false if the ring is empty.
func (r *Ring[T]) Latest() (T, bool) {
	if r.len == 0 {
		var zero T
		return zero, false
	}
	return r.buf[(r.start+r.len-1)%r.cap], true
}

// All iterates retained elements oldest to newest. The sequence is lazy and
// may be restarted; mutating the ring mid-iteration is undefined.
func (r *Ring[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for i := 0; i < r.len; i++ {
			if !yield(r.buf[(r.start+i)%r.cap]) {
				return
			}
		}
	}
}

// Slice copies the retained elements into a new slice, oldest first.
func (r *Ring[T]) Slice() []T {
	out := make([]T, 0, r.len)
	for v := range r.All() {
		out = append(out, v)
	}
	return out
}
