package plan

import (
	"math/rand/v2"

	"github.com/soilstack/erwsim/internal/check"
)

// CoreSet holds the (ncore, nsample) matrix of physical core locations
// for one realization. The backing array is allocated once and refilled
// in place by Draw each realization.
type CoreSet struct {
	ncore   int
	nsample int
	points  []Point // row-major: points[core*nsample+sample]
}

func NewCoreSet(ncore, nsample int) *CoreSet {
	return &CoreSet{
		ncore:   ncore,
		nsample: nsample,
		points:  make([]Point, ncore*nsample),
	}
}

func (c *CoreSet) NCores() int   { return c.ncore }
func (c *CoreSet) NSamples() int { return c.nsample }

func (c *CoreSet) At(core, sample int) Point {
	return c.points[core*c.nsample+sample]
}

// Draw refills every core location from the plan's nominal points via the
// stencil offset and jitter. The draw order is fixed (sample-major within
// core) so a seeded rng reproduces the same core set.
func (c *CoreSet) Draw(rng *rand.Rand, p *SamplePlan, st Stencil, jit Jitter) error {
	if err := p.validate(); err != nil {
		return err
	}
	if p.NSamples() != c.nsample {
		return &check.DomainError{Op: "plan.CoreSet.Draw", Detail: "sample plan size does not match core set"}
	}
	for core := 0; core < c.ncore; core++ {
		row := c.points[core*c.nsample : (core+1)*c.nsample]
		for sample := 0; sample < c.nsample; sample++ {
			row[sample] = jit.Apply(rng, st.Offset(p.Points[sample], core))
		}
	}
	return nil
}

// MeanInto writes each sample's mean core coordinates into xs and ys.
func (c *CoreSet) MeanInto(xs, ys []float64) error {
	if len(xs) != c.nsample || len(ys) != c.nsample {
		return &check.DomainError{Op: "plan.CoreSet.MeanInto", Detail: "output length does not match sample count"}
	}
	for sample := 0; sample < c.nsample; sample++ {
		var sx, sy float64
		for core := 0; core < c.ncore; core++ {
			pt := c.points[core*c.nsample+sample]
			sx += pt.X
			sy += pt.Y
		}
		xs[sample] = sx / float64(c.ncore)
		ys[sample] = sy / float64(c.ncore)
	}
	return nil
}
