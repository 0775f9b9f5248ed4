package plan

import (
	"math"
	"math/rand/v2"

	"github.com/soilstack/erwsim/internal/check"
)

// Point is a 2-D field location in the deployment's coordinate system.
type Point struct {
	X float64
	Y float64
}

func (p Point) Add(q Point) Point {
	return Point{p.X + q.X, p.Y + q.Y}
}

func (p Point) Dist(q Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Polygon is a simple closed ring of vertices bounding a treatment field.
type Polygon struct {
	verts []Point
}

func NewPolygon(verts ...Point) (Polygon, error) {
	if len(verts) < 3 {
		return Polygon{}, &check.DomainError{Op: "plan.NewPolygon", Detail: "polygon needs at least 3 vertices"}
	}
	v := make([]Point, len(verts))
	copy(v, verts)
	return Polygon{verts: v}, nil
}

// Rect builds the axis-aligned rectangle spanning (x0,y0) to (x1,y1).
func Rect(x0, y0, x1, y1 float64) Polygon {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	return Polygon{verts: []Point{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}}
}

func (pg Polygon) Bounds() (min, max Point) {
	min = Point{math.Inf(1), math.Inf(1)}
	max = Point{math.Inf(-1), math.Inf(-1)}
	for _, v := range pg.verts {
		min.X = math.Min(min.X, v.X)
		min.Y = math.Min(min.Y, v.Y)
		max.X = math.Max(max.X, v.X)
		max.Y = math.Max(max.Y, v.Y)
	}
	return min, max
}

// Contains tests point membership with the even-odd ray-casting rule.
func (pg Polygon) Contains(p Point) bool {
	inside := false
	n := len(pg.verts)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := pg.verts[i], pg.verts[j]
		if (a.Y > p.Y) != (b.Y > p.Y) &&
			p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}

// maxRejectIterations caps rejection sampling inside a polygon. Hitting it
// means the polygon's area is a vanishing fraction of its bounding box.
const maxRejectIterations = 10000

// RandomPoint draws a uniform point inside the polygon by rejection from
// its bounding box.
func RandomPoint(rng *rand.Rand, pg Polygon) (Point, error) {
	min, max := pg.Bounds()
	for i := 0; i < maxRejectIterations; i++ {
		p := Point{
			X: min.X + rng.Float64()*(max.X-min.X),
			Y: min.Y + rng.Float64()*(max.Y-min.Y),
		}
		if pg.Contains(p) {
			return p, nil
		}
	}
	return Point{}, check.ErrIterationLimit
}
