package field

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/soilstack/erwsim/internal/check"
	"github.com/soilstack/erwsim/internal/plan"
)

// GaussianCosimulator draws two cross-correlated Gaussian fields over one
// point set. Both fields share a single-point covariance model; the joint
// 2N×2N covariance is the block matrix [[σ, ρσ], [ρσ, σ]].
type GaussianCosimulator struct {
	n     int
	rho   float64
	mean1 []float64
	mean2 []float64
	sigma *mat.SymDense // n×n single-field covariance
	joint *mat.SymDense // 2n×2n
	chol  mat.Cholesky
	lower *mat.TriDense
	z     *mat.VecDense
	w     *mat.VecDense
	ready bool
}

// NewGaussianCosimulator allocates a cosimulator for n points with common
// per-field means and cross-correlation rho. |rho| = 1 makes the joint
// covariance rank-deficient and is rejected.
func NewGaussianCosimulator(n int, mean1, mean2, rho float64) (*GaussianCosimulator, error) {
	if n <= 0 {
		return nil, &check.DomainError{Op: "field.NewGaussianCosimulator", Detail: "need at least one point"}
	}
	if err := check.LessThanOne("cross-correlation", math.Abs(rho)); err != nil {
		return nil, err
	}
	m1 := make([]float64, n)
	m2 := make([]float64, n)
	for i := 0; i < n; i++ {
		m1[i] = mean1
		m2[i] = mean2
	}
	return &GaussianCosimulator{
		n:     n,
		rho:   rho,
		mean1: m1,
		mean2: m2,
		sigma: mat.NewSymDense(n, nil),
		joint: mat.NewSymDense(2*n, nil),
		lower: mat.NewTriDense(2*n, mat.Lower, nil),
		z:     mat.NewVecDense(2*n, nil),
		w:     mat.NewVecDense(2*n, nil),
	}, nil
}

func (g *GaussianCosimulator) Len() int     { return g.n }
func (g *GaussianCosimulator) Rho() float64 { return g.rho }

// Refresh refills the joint covariance for the given points and
// re-factorizes in place.
func (g *GaussianCosimulator) Refresh(points []plan.Point, cov Covariance) error {
	if len(points) != g.n {
		return &check.DomainError{
			Op:     "field.GaussianCosimulator.Refresh",
			Detail: fmt.Sprintf("%d points for a %d-point cosimulator", len(points), g.n),
		}
	}
	for i := 0; i < g.n; i++ {
		g.sigma.SetSym(i, i, cov.At(points[i], points[i]))
		for j := i + 1; j < g.n; j++ {
			g.sigma.SetSym(i, j, cov.Between(points[i], points[j]))
		}
	}
	for i := 0; i < g.n; i++ {
		for j := i; j < g.n; j++ {
			s := g.sigma.At(i, j)
			g.joint.SetSym(i, j, s)
			g.joint.SetSym(g.n+i, g.n+j, s)
		}
		for j := 0; j < g.n; j++ {
			g.joint.SetSym(i, g.n+j, g.rho*g.sigma.At(i, j))
		}
	}
	if ok := g.chol.Factorize(g.joint); !ok {
		g.ready = false
		return fmt.Errorf("joint covariance for %d points (rho=%g) is not positive definite: %w", g.n, g.rho, ErrFactorization)
	}
	g.chol.LTo(g.lower)
	g.ready = true
	return nil
}

// SampleInto draws one joint realization, splitting the halves into the
// two fields' output slices and adding the respective means.
func (g *GaussianCosimulator) SampleInto(rng *rand.Rand, out1, out2 []float64) error {
	if !g.ready {
		return &check.DomainError{Op: "field.GaussianCosimulator.SampleInto", Detail: "cosimulator not refreshed"}
	}
	if len(out1) != g.n || len(out2) != g.n {
		return &check.DomainError{
			Op:     "field.GaussianCosimulator.SampleInto",
			Detail: fmt.Sprintf("output lengths (%d, %d) for a %d-point cosimulator", len(out1), len(out2), g.n),
		}
	}
	zdata := g.z.RawVector().Data
	for i := range zdata {
		zdata[i] = rng.NormFloat64()
	}
	g.w.MulVec(g.lower, g.z)
	wdata := g.w.RawVector().Data
	for i := 0; i < g.n; i++ {
		out1[i] = wdata[i] + g.mean1[i]
		out2[i] = wdata[g.n+i] + g.mean2[i]
	}
	return nil
}
