// Package plan generates sampling layouts for simulated field deployments:
// where composite samples are nominally taken, when, and which locations
// are untreated controls, plus the jittered per-core locations actually
// cored on the ground.
package plan

import (
	"math/rand/v2"

	"github.com/soilstack/erwsim/internal/check"
)

// SamplePlan lists every planned composite sample as parallel columns.
// Row order is the canonical sample order used throughout a simulation.
type SamplePlan struct {
	Location []int     // nominal location id, shared across paired rounds
	Round    []int     // sampling round, 1-based
	Time     []float64 // years since application; negative means pre-application
	Control  []bool    // true for locations that never receive feedstock
	Points   []Point   // nominal sample location
}

func (p *SamplePlan) NSamples() int { return len(p.Points) }

func (p *SamplePlan) validate() error {
	n := len(p.Points)
	if len(p.Location) != n || len(p.Round) != n || len(p.Time) != n || len(p.Control) != n {
		return &check.DomainError{Op: "plan", Detail: "sample plan columns have unequal lengths"}
	}
	return nil
}

// controlCount returns how many of n locations are flagged as controls.
func controlCount(n int, frac float64) int {
	k := int(frac*float64(n) + 0.5)
	if k > n {
		k = n
	}
	return k
}

// RandomPlan draws fresh independent sample locations for every round.
// The first controlCount locations of each round are controls.
func RandomPlan(rng *rand.Rand, pg Polygon, perRound int, times []float64, controlFrac float64) (*SamplePlan, error) {
	if perRound <= 0 || len(times) == 0 {
		return nil, &check.DomainError{Op: "plan.RandomPlan", Detail: "need at least one sample and one round"}
	}
	if err := check.Fractional("control fraction", controlFrac); err != nil {
		return nil, err
	}

	n := perRound * len(times)
	p := &SamplePlan{
		Location: make([]int, 0, n),
		Round:    make([]int, 0, n),
		Time:     make([]float64, 0, n),
		Control:  make([]bool, 0, n),
		Points:   make([]Point, 0, n),
	}
	nctrl := controlCount(perRound, controlFrac)
	for r, t := range times {
		for k := 0; k < perRound; k++ {
			pt, err := RandomPoint(rng, pg)
			if err != nil {
				return nil, err
			}
			p.Location = append(p.Location, k+1)
			p.Round = append(p.Round, r+1)
			p.Time = append(p.Time, t)
			p.Control = append(p.Control, k < nctrl)
			p.Points = append(p.Points, pt)
		}
	}
	return p, nil
}

// PairedPlan draws one set of locations and revisits them every round, so
// concentration changes at a location can be differenced across time.
func PairedPlan(rng *rand.Rand, pg Polygon, perRound int, times []float64, controlFrac float64) (*SamplePlan, error) {
	if perRound <= 0 || len(times) == 0 {
		return nil, &check.DomainError{Op: "plan.PairedPlan", Detail: "need at least one sample and one round"}
	}
	if err := check.Fractional("control fraction", controlFrac); err != nil {
		return nil, err
	}

	base := make([]Point, perRound)
	for k := range base {
		pt, err := RandomPoint(rng, pg)
		if err != nil {
			return nil, err
		}
		base[k] = pt
	}

	n := perRound * len(times)
	p := &SamplePlan{
		Location: make([]int, 0, n),
		Round:    make([]int, 0, n),
		Time:     make([]float64, 0, n),
		Control:  make([]bool, 0, n),
		Points:   make([]Point, 0, n),
	}
	nctrl := controlCount(perRound, controlFrac)
	for r, t := range times {
		for k := 0; k < perRound; k++ {
			p.Location = append(p.Location, k+1)
			p.Round = append(p.Round, r+1)
			p.Time = append(p.Time, t)
			p.Control = append(p.Control, k < nctrl)
			p.Points = append(p.Points, base[k])
		}
	}
	return p, nil
}

// GridPlan lays a regular nx by ny grid over the polygon's bounding box,
// keeping only nodes inside the polygon, revisited every round.
func GridPlan(pg Polygon, nx, ny int, times []float64, controlFrac float64) (*SamplePlan, error) {
	if nx <= 0 || ny <= 0 || len(times) == 0 {
		return nil, &check.DomainError{Op: "plan.GridPlan", Detail: "need positive grid dimensions and at least one round"}
	}
	if err := check.Fractional("control fraction", controlFrac); err != nil {
		return nil, err
	}

	min, max := pg.Bounds()
	base := make([]Point, 0, nx*ny)
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			pt := Point{
				X: min.X + (float64(i)+0.5)*(max.X-min.X)/float64(nx),
				Y: min.Y + (float64(j)+0.5)*(max.Y-min.Y)/float64(ny),
			}
			if pg.Contains(pt) {
				base = append(base, pt)
			}
		}
	}
	if len(base) == 0 {
		return nil, &check.DomainError{Op: "plan.GridPlan", Detail: "no grid nodes fall inside the polygon"}
	}

	perRound := len(base)
	n := perRound * len(times)
	p := &SamplePlan{
		Location: make([]int, 0, n),
		Round:    make([]int, 0, n),
		Time:     make([]float64, 0, n),
		Control:  make([]bool, 0, n),
		Points:   make([]Point, 0, n),
	}
	nctrl := controlCount(perRound, controlFrac)
	for r, t := range times {
		for k := 0; k < perRound; k++ {
			p.Location = append(p.Location, k+1)
			p.Round = append(p.Round, r+1)
			p.Time = append(p.Time, t)
			p.Control = append(p.Control, k < nctrl)
			p.Points = append(p.Points, base[k])
		}
	}
	return p, nil
}
