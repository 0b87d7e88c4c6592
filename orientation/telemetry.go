package orientation

import (
	"sync"

	"orientd/ringbuf"
)

// Buffers holds bounded history of what the pipeline has seen and published,
// for the API and diagnostics surfaces.
type Buffers struct {
	mu          sync.RWMutex
	samples     *ringbuf.Ring[GravityReading]
	transitions *ringbuf.Ring[Transition]
}

func NewBuffers(size int) *Buffers {
	return &Buffers{
		samples:     ringbuf.New[GravityReading](size),
		transitions: ringbuf.New[Transition](size),
	}
}

// PushSample records a processed gravity reading.
func (b *Buffers) PushSample(r GravityReading) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples.Append(r)
}

// PushTransition records a published orientation change.
func (b *Buffers) PushTransition(t Transition) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitions.Append(t)
}

// RecentSamples returns up to n most recent readings, oldest first.
func (b *Buffers) RecentSamples(n int) []GravityReading {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return tail(b.samples, n)
}

// RecentTransitions returns up to n most recent transitions, oldest first.
func (b *Buffers) RecentTransitions(n int) []Transition {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return tail(b.transitions, n)
}

// LatestTransition returns the newest published transition.
func (b *Buffers) LatestTransition() (Transition, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.transitions.Latest()
}

// Stats returns buffer occupancy counters.
func (b *Buffers) Stats() map[string]interface{} {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return map[string]interface{}{
		"samples":     b.samples.Len(),
		"transitions": b.transitions.Len(),
		"capacity":    b.samples.Cap(),
	}
}

func tail[T any](r *ringbuf.Ring[T], n int) []T {
	if n > r.Len() {
		n = r.Len()
	}
	out := make([]T, 0, n)
	for i := r.Len() - n; i < r.Len(); i++ {
		out = append(out, r.At(i))
	}
	return out
}
