package leach

import (
	"math"
	"math/rand/v2"

	"github.com/soilstack/erwsim/internal/check"
)

// Seasonal modulates first-order loss with an annual cycle. The
// instantaneous rate multiplier is
//
//	A·((1 + cos(2πt + ϕ))/2)^p + (1 − A)
//
// with A = 1 − floor, so the rate oscillates between floor and 1 over a
// one-year period. Its exact antiderivative (closed trigonometric form,
// selected by the power p ∈ {1,2,3}) feeds the exponential:
// 𝓁(t) = C·(1 − e^(−λ·I(t))).
type Seasonal struct {
	rate      float64
	asymptote float64
	floor     float64
	power     int
	phase     float64
	sigma     float64
}

func NewSeasonal(rate, asymptote, floor float64, power int, phase, sigma float64) (Seasonal, error) {
	if err := validateCommon(rate, asymptote, sigma); err != nil {
		return Seasonal{}, err
	}
	if err := check.Fractional("seasonal floor", floor); err != nil {
		return Seasonal{}, err
	}
	if power < 1 || power > 3 {
		return Seasonal{}, &check.ConstraintError{
			Quantity: "seasonal power", Value: float64(power), Constraint: "in {1, 2, 3}",
		}
	}
	return Seasonal{rate: rate, asymptote: asymptote, floor: floor, power: power, phase: phase, sigma: sigma}, nil
}

func (m Seasonal) Fraction(rng *rand.Rand, t float64) float64 {
	if t < 0 {
		return 1
	}
	a := 1 - m.floor
	integral := a*(m.anti(t)-m.anti(0)) + m.floor*t
	f := m.asymptote * (1 - math.Exp(-m.rate*integral))
	return logitNoise(rng, f, m.sigma)
}

// anti is the antiderivative of ((1 + cos(2πt + ϕ))/2)^p. The constant
// terms come from the cosine power-reduction identities; each sin(k·u)
// term integrates cos(k·u) with u = 2πt + ϕ.
func (m Seasonal) anti(t float64) float64 {
	u := 2*math.Pi*t + m.phase
	switch m.power {
	case 1:
		// w = 1/2 + cos(u)/2
		return t/2 + math.Sin(u)/(4*math.Pi)
	case 2:
		// w² = 3/8 + cos(u)/2 + cos(2u)/8
		return 3*t/8 + math.Sin(u)/(4*math.Pi) + math.Sin(2*u)/(32*math.Pi)
	default:
		// w³ = 5/16 + 15·cos(u)/32 + 3·cos(2u)/16 + cos(3u)/32
		return 5*t/16 + 15*math.Sin(u)/(64*math.Pi) + 3*math.Sin(2*u)/(64*math.Pi) + math.Sin(3*u)/(192*math.Pi)
	}
}
