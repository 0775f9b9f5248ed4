package geochem

import (
	"math/rand/v2"

	"github.com/soilstack/erwsim/internal/check"
)

// Noise perturbs x by a relative standard deviation: x + x·rsd·N(0,1).
func Noise(rng *rand.Rand, x, rsd float64) float64 {
	return x + x*rsd*rng.NormFloat64()
}

// Measure applies independent relative noise to each analyte concentration
// and to the mass. A perturbed concentration that lands below zero is a
// physical-constraint failure, never clamped.
func Measure(rng *rand.Rand, s Sample, concRSD Composition, massRSD float64) (Measurement, error) {
	m := Measurement{Conc: NewComposition(s.Conc.keys)}
	if err := MeasureInto(&m, rng, s, concRSD, massRSD); err != nil {
		return Measurement{}, err
	}
	return m, nil
}

// MeasureInto is the allocation-free form used by the pipeline.
func MeasureInto(dst *Measurement, rng *rand.Rand, s Sample, concRSD Composition, massRSD float64) error {
	if !s.Conc.keys.Same(concRSD.keys) {
		return &check.DomainError{Op: "geochem.Measure", Detail: "relative-std analyte key set differs from sample"}
	}
	if !dst.Conc.keys.Same(s.Conc.keys) {
		return &check.DomainError{Op: "geochem.Measure", Detail: "destination analyte key set differs from sample"}
	}
	if err := check.NonNegative("mass relative std", massRSD); err != nil {
		return err
	}

	for i := range s.Conc.vals {
		if err := check.NonNegative("concentration relative std", concRSD.vals[i]); err != nil {
			return err
		}
		v := Noise(rng, s.Conc.vals[i], concRSD.vals[i])
		if v < 0 {
			return &check.ConstraintError{
				Quantity:   "measured concentration",
				Value:      v,
				Constraint: ">= 0",
				Detail:     "noise drew a negative concentration for " + s.Conc.keys.Name(i),
			}
		}
		dst.Conc.vals[i] = v
	}
	dst.Mass = Noise(rng, s.Mass, massRSD)
	return nil
}
