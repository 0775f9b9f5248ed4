package field

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/soilstack/erwsim/internal/check"
	"github.com/soilstack/erwsim/internal/plan"
)

// GaussianSimulator draws correlated Gaussian vectors over a fixed-size
// point set. Refresh assembles and factorizes the covariance for the
// current point locations; SampleInto then draws out = L·z + μ cheaply.
type GaussianSimulator struct {
	n     int
	mean  []float64
	cov   *mat.SymDense
	chol  mat.Cholesky
	lower *mat.TriDense
	z     *mat.VecDense
	w     *mat.VecDense
	ready bool
}

// NewGaussianSimulator allocates a simulator for n points with a common
// mean. Refresh must be called before the first draw.
func NewGaussianSimulator(n int, mean float64) (*GaussianSimulator, error) {
	means := make([]float64, n)
	for i := range means {
		means[i] = mean
	}
	return NewGaussianSimulatorMeans(means)
}

// NewGaussianSimulatorMeans allocates a simulator with per-point means.
func NewGaussianSimulatorMeans(means []float64) (*GaussianSimulator, error) {
	n := len(means)
	if n == 0 {
		return nil, &check.DomainError{Op: "field.NewGaussianSimulator", Detail: "need at least one point"}
	}
	owned := make([]float64, n)
	copy(owned, means)
	return &GaussianSimulator{
		n:     n,
		mean:  owned,
		cov:   mat.NewSymDense(n, nil),
		lower: mat.NewTriDense(n, mat.Lower, nil),
		z:     mat.NewVecDense(n, nil),
		w:     mat.NewVecDense(n, nil),
	}, nil
}

func (g *GaussianSimulator) Len() int { return g.n }

// Refresh refills the covariance buffer for the given point locations and
// re-factorizes in place. Call again whenever the points move; draws made
// before the first Refresh are an error.
func (g *GaussianSimulator) Refresh(points []plan.Point, cov Covariance) error {
	if len(points) != g.n {
		return &check.DomainError{
			Op:     "field.GaussianSimulator.Refresh",
			Detail: fmt.Sprintf("%d points for a %d-point simulator", len(points), g.n),
		}
	}
	for i := 0; i < g.n; i++ {
		g.cov.SetSym(i, i, cov.At(points[i], points[i]))
		for j := i + 1; j < g.n; j++ {
			g.cov.SetSym(i, j, cov.Between(points[i], points[j]))
		}
	}
	if ok := g.chol.Factorize(g.cov); !ok {
		g.ready = false
		return fmt.Errorf("covariance for %d points is not positive definite: %w", g.n, ErrFactorization)
	}
	g.chol.LTo(g.lower)
	g.ready = true
	return nil
}

// SampleInto draws one correlated vector into out.
func (g *GaussianSimulator) SampleInto(rng *rand.Rand, out []float64) error {
	if !g.ready {
		return &check.DomainError{Op: "field.GaussianSimulator.SampleInto", Detail: "simulator not refreshed"}
	}
	if len(out) != g.n {
		return &check.DomainError{
			Op:     "field.GaussianSimulator.SampleInto",
			Detail: fmt.Sprintf("output length %d for a %d-point simulator", len(out), g.n),
		}
	}
	zdata := g.z.RawVector().Data
	for i := range zdata {
		zdata[i] = rng.NormFloat64()
	}
	g.w.MulVec(g.lower, g.z)
	wdata := g.w.RawVector().Data
	for i := 0; i < g.n; i++ {
		out[i] = wdata[i] + g.mean[i]
	}
	return nil
}
