package geometry

import (
	"math"

	"github.com/roach88/fxdispatch/internal/ir"
)

// Rand is the randomness the fake-source picker draws from.
// *math/rand/v2.Rand implements it.
type Rand interface {
	Float64() float64
}

// randomIntBetween returns an integer in [lo, hi).
func randomIntBetween(r Rand, lo, hi float64) float64 {
	return lo + math.Floor(r.Float64()*(hi-lo))
}

// FakeSource picks a synthetic origin inside a prior effect: a uniformly
// random point of its bounding box inset by half a grid cell. An effect
// smaller than a cell collapses to its center on that axis.
func FakeSource(e ir.EffectInstance, gridSize float64, r Rand) ir.Point {
	inset := gridSize / 2

	left := e.X - e.Width/2 + inset
	right := e.X + e.Width/2 - inset
	top := e.Y - e.Height/2 + inset
	bottom := e.Y + e.Height/2 - inset

	p := ir.Point{X: e.X, Y: e.Y}
	if right > left {
		p.X = randomIntBetween(r, left, right)
	}
	if bottom > top {
		p.Y = randomIntBetween(r, top, bottom)
	}
	return p
}
