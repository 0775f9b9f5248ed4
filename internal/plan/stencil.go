package plan

import (
	"math"
	"math/rand/v2"
)

// Stencil maps a nominal sample location and a core index to the point
// where that core is taken. It is a pure function of its arguments.
type Stencil interface {
	Offset(center Point, core int) Point
}

// SingleStencil takes every core at the nominal location.
type SingleStencil struct{}

func (SingleStencil) Offset(center Point, core int) Point { return center }

// SquareStencil cycles cores through the center and the four corners of a
// square of the given side length centered on the nominal location.
type SquareStencil struct {
	Side float64
}

func (s SquareStencil) Offset(center Point, core int) Point {
	h := s.Side / 2
	switch core % 5 {
	case 1:
		return center.Add(Point{-h, -h})
	case 2:
		return center.Add(Point{h, -h})
	case 3:
		return center.Add(Point{h, h})
	case 4:
		return center.Add(Point{-h, h})
	default:
		return center
	}
}

// CircleStencil spaces N cores evenly around a circle of the given radius.
type CircleStencil struct {
	Radius float64
	N      int
}

func (c CircleStencil) Offset(center Point, core int) Point {
	if c.N <= 0 {
		return center
	}
	theta := 2 * math.Pi * float64(core%c.N) / float64(c.N)
	return center.Add(Point{c.Radius * math.Cos(theta), c.Radius * math.Sin(theta)})
}

// Jitter models location uncertainty: an isotropic normal offset with
// standard deviation Sigma applied to each core location independently.
// Sigma zero is a no-op.
type Jitter struct {
	Sigma float64
}

func (j Jitter) Apply(rng *rand.Rand, p Point) Point {
	if j.Sigma <= 0 {
		return p
	}
	return Point{
		X: p.X + j.Sigma*rng.NormFloat64(),
		Y: p.Y + j.Sigma*rng.NormFloat64(),
	}
}
