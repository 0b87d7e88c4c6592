package orientation

import (
	"math"
)

// quadrant is one of four overlapping angular sectors around the origin,
// bounded by the canonical vectors of two adjacent states.
type quadrant struct {
	former State
	latter State
}

// The four quadrants in fixed rotational order. Classification tests them in
// this order and the first match wins.
var quadrants = [4]quadrant{
	{LandscapeRight, Portrait},
	{PortraitUpsideDown, LandscapeRight},
	{LandscapeLeft, PortraitUpsideDown},
	{Portrait, LandscapeLeft},
}

// Classifier maps plane vectors to orientation states, damping flips between
// opposite orientation families near quadrant boundaries. It remembers the
// last state it resolved; that memory feeds the hysteresis bias only, not
// duplicate suppression (the pipeline handles that separately).
//
// A Classifier is owned by a single pipeline worker and is not safe for
// concurrent use.
type Classifier struct {
	prev State
	bias float64
}

// NewClassifier creates a classifier with the given opposite-family bias.
// The previous state starts as Portrait.
func NewClassifier(bias float64) *Classifier {
	if bias <= 0 {
		bias = DefaultConfig().Bias
	}
	return &Classifier{prev: Portrait, bias: bias}
}

// Previous returns the last resolved state.
func (c *Classifier) Previous() State { return c.prev }

// Classify resolves v to an orientation state. The second return is false
// when no quadrant claims the point, which only happens for the exact
// origin; the previous state is left untouched in that case.
func (c *Classifier) Classify(v Vector) (State, bool) {
	for _, q := range quadrants {
		a, b := q.former.Vector(), q.latter.Vector()
		if !between(v, a, b) {
			continue
		}

		dFormer := dist(v, a)
		dLatter := dist(v, b)
		if opposite(q.former, c.prev) {
			dFormer *= c.bias
		}
		if opposite(q.latter, c.prev) {
			dLatter *= c.bias
		}

		state := q.former
		if dLatter < dFormer {
			state = q.latter
		}
		c.prev = state
		return state, true
	}
	return c.prev, false
}

// between tests membership in the sector spanned by the canonical vectors a
// (former) and b (latter). Each axis is half-open: exclusive at the former's
// coordinate, inclusive at the latter's. That way each canonical vector
// belongs to exactly one quadrant and the plane is covered without gaps or
// double matches, the origin excepted.
func between(v, a, b Vector) bool {
	return axisBetween(v.X, a.X, b.X) && axisBetween(v.Y, a.Y, b.Y)
}

func axisBetween(v, from, to float64) bool {
	if from < to {
		return from < v && v <= to
	}
	return to <= v && v < from
}

// opposite reports whether a and b are in different orientation families.
// Portrait vs PortraitUpsideDown (or left vs right landscape) is never
// opposite; only a landscape/portrait mismatch draws the bias penalty.
func opposite(a, b State) bool {
	return a.IsLandscape() != b.IsLandscape()
}

func dist(v Vector, to Vector) float64 {
	dx := v.X - to.X
	dy := v.Y - to.Y
	return math.Sqrt(dx*dx + dy*dy)
}
