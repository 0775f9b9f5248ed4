// Package leach provides the time-indexed weathering loss curves. Every
// model maps elapsed time to the fraction of a mobile element lost from
// feedstock: exactly 1 before application (t < 0), exactly 0 at t = 0,
// then non-decreasing toward a configured asymptote.
package leach

import (
	"math"
	"math/rand/v2"

	"github.com/soilstack/erwsim/internal/check"
)

// Model evaluates a leached fraction at time t. Models are pure values;
// the random stream for optional noise is passed explicitly so draws stay
// reproducible and externally ordered. Noiseless models ignore rng.
type Model interface {
	Fraction(rng *rand.Rand, t float64) float64
}

// NoLeaching models an immobile element: nothing is ever lost. Before
// application the fraction is still 1 by the family's convention, so the
// curve jumps from 1 to 0 at t = 0. The jump is intentional and callers
// must not smooth it.
type NoLeaching struct{}

func (NoLeaching) Fraction(_ *rand.Rand, t float64) float64 {
	if t < 0 {
		return 1
	}
	return 0
}

// Exponential is first-order loss toward an asymptote:
// C·(1 − e^(−λt)).
type Exponential struct {
	rate      float64
	asymptote float64
	sigma     float64
}

// NewExponential validates λ ≥ 0, C ∈ [0,1), σ ≥ 0.
func NewExponential(rate, asymptote, sigma float64) (Exponential, error) {
	if err := validateCommon(rate, asymptote, sigma); err != nil {
		return Exponential{}, err
	}
	return Exponential{rate: rate, asymptote: asymptote, sigma: sigma}, nil
}

func (m Exponential) Fraction(rng *rand.Rand, t float64) float64 {
	if t < 0 {
		return 1
	}
	f := m.asymptote * (1 - math.Exp(-m.rate*t))
	return logitNoise(rng, f, m.sigma)
}

// MultiExponential averages several first-order decays, modelling a
// feedstock with mineral phases dissolving at different rates:
// C·(1 − mean_k e^(−λ_k t)).
type MultiExponential struct {
	rates     []float64
	asymptote float64
	sigma     float64
}

func NewMultiExponential(rates []float64, asymptote, sigma float64) (MultiExponential, error) {
	if len(rates) == 0 {
		return MultiExponential{}, &check.DomainError{Op: "leach.NewMultiExponential", Detail: "need at least one rate"}
	}
	owned := make([]float64, len(rates))
	for i, r := range rates {
		if err := check.NonNegative("leaching rate", r); err != nil {
			return MultiExponential{}, err
		}
		owned[i] = r
	}
	if err := validateCommon(0, asymptote, sigma); err != nil {
		return MultiExponential{}, err
	}
	return MultiExponential{rates: owned, asymptote: asymptote, sigma: sigma}, nil
}

func (m MultiExponential) Fraction(rng *rand.Rand, t float64) float64 {
	if t < 0 {
		return 1
	}
	var sum float64
	for _, r := range m.rates {
		sum += math.Exp(-r * t)
	}
	f := m.asymptote * (1 - sum/float64(len(m.rates)))
	return logitNoise(rng, f, m.sigma)
}

func validateCommon(rate, asymptote, sigma float64) error {
	if err := check.NonNegative("leaching rate", rate); err != nil {
		return err
	}
	if err := check.Fractional("leaching asymptote", asymptote); err != nil {
		return err
	}
	if err := check.LessThanOne("leaching asymptote", asymptote); err != nil {
		return err
	}
	return check.NonNegative("leaching noise sigma", sigma)
}

// logitNoise perturbs a fraction on the logit scale so the result stays
// inside (0,1). The back-transform biases the mean upward; that caveat is
// documented behavior, not something to correct here. Endpoint fractions
// (exactly 0 or 1) pass through untouched.
func logitNoise(rng *rand.Rand, f, sigma float64) float64 {
	if sigma <= 0 || f <= 0 || f >= 1 {
		return f
	}
	x := math.Log(f/(1-f)) + sigma*rng.NormFloat64()
	return 1 / (1 + math.Exp(-x))
}
