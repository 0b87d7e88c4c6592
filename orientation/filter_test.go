package orientation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGravityFilterFirstSamplePassesThrough(t *testing.T) {
	f := NewGravityFilter(0.2)
	r := GravityReading{Timestamp: time.Now(), X: 0.1, Y: -0.9, Z: 0.3}
	out := f.Update(r)
	assert.Equal(t, r, out)
}

func TestGravityFilterSmoothsJumps(t *testing.T) {
	f := NewGravityFilter(0.2)
	base := time.Now()

	f.Update(GravityReading{Timestamp: base, X: 0, Y: -1})
	out := f.Update(GravityReading{Timestamp: base.Add(10 * time.Millisecond), X: 1, Y: 0})

	// One sample of a 90 degree flip only nudges the estimate.
	assert.Greater(t, out.X, 0.0)
	assert.Less(t, out.X, 0.2)
	assert.Less(t, out.Y, -0.8)
}

func TestGravityFilterZeroTauDisables(t *testing.T) {
	f := NewGravityFilter(0)
	base := time.Now()
	f.Update(GravityReading{Timestamp: base, X: 0, Y: -1})
	out := f.Update(GravityReading{Timestamp: base.Add(10 * time.Millisecond), X: 1, Y: 0})
	assert.Equal(t, 1.0, out.X)
	assert.Equal(t, 0.0, out.Y)
}

func TestGravityFilterReset(t *testing.T) {
	f := NewGravityFilter(0.2)
	base := time.Now()
	f.Update(GravityReading{Timestamp: base, X: 0, Y: -1})
	f.Reset()

	// After a reset the next sample re-initializes instead of blending.
	out := f.Update(GravityReading{Timestamp: base.Add(time.Second), X: 1, Y: 0})
	assert.Equal(t, 1.0, out.X)
	assert.Equal(t, 0.0, out.Y)
}
