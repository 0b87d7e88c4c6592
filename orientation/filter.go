package orientation

import (
	"math"
)

// GravityFilter low-passes raw acceleration to isolate the gravity
// component before classification. Platforms whose sensors already report
// fused gravity can run the pipeline with filtering disabled.
type GravityFilter struct {
	tau         float64
	initialized bool
	x, y, z     float64
	lastTime    float64
}

// NewGravityFilter creates a filter with time constant tau in seconds.
// A tau of zero (or less) makes Update pass readings through unchanged.
func NewGravityFilter(tau float64) *GravityFilter {
	return &GravityFilter{tau: tau}
}

// Update folds a raw reading into the gravity estimate and returns the
// smoothed reading. The first sample initializes the estimate directly.
func (f *GravityFilter) Update(r GravityReading) GravityReading {
	if f.tau <= 0 {
		return r
	}

	ts := float64(r.Timestamp.UnixNano()) / 1e9
	if !f.initialized {
		f.x, f.y, f.z = r.X, r.Y, r.Z
		f.lastTime = ts
		f.initialized = true
		return r
	}

	dt := ts - f.lastTime
	if dt > 0.2 {
		dt = 0.2 // cap gaps so a stall does not snap the estimate
	}
	f.lastTime = ts

	tau := math.Max(1e-3, f.tau)
	alpha := tau / (tau + dt)
	if dt <= 0 {
		alpha = 1.0
	}

	f.x = alpha*f.x + (1.0-alpha)*r.X
	f.y = alpha*f.y + (1.0-alpha)*r.Y
	f.z = alpha*f.z + (1.0-alpha)*r.Z

	out := r
	out.X, out.Y, out.Z = f.x, f.y, f.z
	return out
}

// Reset clears the filter state.
func (f *GravityFilter) Reset() {
	f.initialized = false
	f.x, f.y, f.z = 0, 0, 0
	f.lastTime = 0
}
