// Package field draws spatially correlated Gaussian fields over a fixed
// point set. Covariance assembly and Cholesky factorization are split
// from sampling so thousands of Monte Carlo draws amortize one O(N³)
// factorization; all buffers are sized once and refilled in place.
package field

import (
	"errors"
	"math"

	"github.com/soilstack/erwsim/internal/plan"
)

// ErrFactorization indicates a covariance matrix that is not positive
// definite reached the Cholesky factorization.
var ErrFactorization = errors.New("field: covariance factorization failed")

// Structure selects the correlation shape of a covariance model.
type Structure int

const (
	Spherical Structure = iota
	Exponential
	Gaussian
)

// Covariance is a stationary isotropic covariance model in the classic
// nugget/sill/range parameterization. Range is the practical range: the
// separation at which correlation has decayed to about 5%.
type Covariance struct {
	Nugget float64
	Sill   float64
	Range  float64
	Model  Structure
}

// At evaluates the covariance of a sample against itself or another
// location. Coincident points carry the full nugget in addition to the
// sill.
func (c Covariance) At(p, q plan.Point) float64 {
	h := p.Dist(q)
	v := c.Sill * c.corr(h)
	if h == 0 {
		v += c.Nugget
	}
	return v
}

// Between evaluates the covariance between two distinct samples. The
// nugget is microscale and measurement variance, so distinct samples
// never share it even when their locations coincide; this keeps
// revisited locations from producing a singular covariance.
func (c Covariance) Between(p, q plan.Point) float64 {
	return c.Sill * c.corr(p.Dist(q))
}

func (c Covariance) corr(h float64) float64 {
	if h == 0 {
		return 1
	}
	if c.Range <= 0 {
		return 0
	}
	x := h / c.Range
	switch c.Model {
	case Exponential:
		return math.Exp(-3 * x)
	case Gaussian:
		return math.Exp(-3 * x * x)
	default: // Spherical
		if x >= 1 {
			return 0
		}
		return 1 - 1.5*x + 0.5*x*x*x
	}
}
