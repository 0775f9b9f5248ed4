package geochem

import (
	"github.com/soilstack/erwsim/internal/check"
)

// DefaultAnalyte names the single-analyte convenience key.
const DefaultAnalyte = "analyte"

// Profile is a vertical mixing profile: a 1-D probability distribution of
// feedstock depth after incorporation. The gonum distuv distributions
// satisfy it.
type Profile interface {
	CDF(x float64) float64
}

// FeedstockFraction evaluates the profile's CDF at the sample depth: the
// fraction of applied feedstock lying within the cored interval. The
// profile must have nonnegative support and depth must be nonnegative.
func FeedstockFraction(profile Profile, depth float64) (float64, error) {
	if depth < 0 {
		return 0, &check.DomainError{Op: "geochem.FeedstockFraction", Detail: "negative sample depth"}
	}
	if profile.CDF(0) > 1e-12 {
		return 0, &check.DomainError{Op: "geochem.FeedstockFraction", Detail: "mixing profile has negative support"}
	}
	return profile.CDF(depth), nil
}

// MixParams carries one core's physical parameters into Mixing. Feedstock,
// Soil, and Leached are parallel per-analyte mappings and must share one
// analyte key set.
type MixParams struct {
	Gamma            float64     // fraction of applied feedstock within the cored depth
	Depth            float64     // sample depth
	Area             float64     // core cross-sectional area
	Rate             float64     // application rate Q, mass per area
	FeedstockDensity float64     // bulk density of applied feedstock
	Feedstock        Composition // feedstock concentrations cf
	SoilDensity      float64     // soil bulk density
	Soil             Composition // baseline soil concentrations cs
	Leached          Composition // per-analyte leached fractions
	MassLoss         float64     // total feedstock mass-loss fraction
}

func (p *MixParams) validate() error {
	if err := check.Fractional("feedstock fraction", p.Gamma); err != nil {
		return err
	}
	if err := check.NonNegative("sample depth", p.Depth); err != nil {
		return err
	}
	if err := check.NonNegative("core area", p.Area); err != nil {
		return err
	}
	if err := check.NonNegative("application rate", p.Rate); err != nil {
		return err
	}
	if err := check.Positive("feedstock density", p.FeedstockDensity); err != nil {
		return err
	}
	if err := check.Positive("soil density", p.SoilDensity); err != nil {
		return err
	}
	if err := check.Fractional("mass-loss fraction", p.MassLoss); err != nil {
		return err
	}
	if !p.Feedstock.keys.Same(p.Soil.keys) || !p.Feedstock.keys.Same(p.Leached.keys) {
		return &check.DomainError{Op: "geochem.Mixing", Detail: "analyte key sets differ between cf, cs, and leached fractions"}
	}
	for i := range p.Leached.vals {
		if err := check.Fractional("leached fraction", p.Leached.vals[i]); err != nil {
			return err
		}
		if err := check.Fractional("soil concentration", p.Soil.vals[i]); err != nil {
			return err
		}
	}
	return nil
}

// FeedstockMass is the per-area mass of feedstock remaining in the cored
// interval after mass loss.
func FeedstockMass(rate, gamma, massLoss float64) float64 {
	return rate * gamma * (1 - massLoss)
}

// Mixing computes the exact concentration and mass of one soil core. The
// feedstock occupies a layer of thickness h = feedstock mass / feedstock
// density; soil fills the remaining depth.
func Mixing(p MixParams) (Sample, error) {
	s := Sample{Conc: NewComposition(p.Feedstock.keys)}
	if err := MixingInto(&s, p); err != nil {
		return Sample{}, err
	}
	return s, nil
}

// MixingInto is the allocation-free form used by the pipeline: dst's
// composition buffer is overwritten in place.
func MixingInto(dst *Sample, p MixParams) error {
	if err := p.validate(); err != nil {
		return err
	}
	if !dst.Conc.keys.Same(p.Feedstock.keys) {
		return &check.DomainError{Op: "geochem.Mixing", Detail: "destination analyte key set differs"}
	}

	fm := FeedstockMass(p.Rate, p.Gamma, p.MassLoss)
	h := fm / p.FeedstockDensity
	if h > p.Depth {
		return &check.ConstraintError{
			Quantity: "feedstock thickness", Value: h, Constraint: "<= sample depth",
			Detail: "feedstock layer thicker than the cored interval",
		}
	}
	soilMass := p.SoilDensity * (p.Depth - h)
	total := fm + soilMass

	for i := range dst.Conc.vals {
		elemental := p.Rate*p.Gamma*(1-p.Leached.vals[i])*p.Feedstock.vals[i] + soilMass*p.Soil.vals[i]
		dst.Conc.vals[i] = elemental / total
	}
	dst.Mass = total * p.Area
	dst.Cores = 1
	return nil
}

// MixingProfile derives the feedstock fraction from a mixing profile at
// the sample depth before mixing.
func MixingProfile(profile Profile, p MixParams) (Sample, error) {
	gamma, err := FeedstockFraction(profile, p.Depth)
	if err != nil {
		return Sample{}, err
	}
	p.Gamma = gamma
	return Mixing(p)
}

// MixingScalar wraps scalar concentrations and leached fraction into
// one-entry compositions under DefaultAnalyte.
func MixingScalar(gamma, depth, area, rate, feedstockDensity, cf, soilDensity, cs, leached, massLoss float64) (Sample, error) {
	keys, err := NewAnalytes(DefaultAnalyte)
	if err != nil {
		return Sample{}, err
	}
	fc, _ := CompositionOf(keys, cf)
	sc, _ := CompositionOf(keys, cs)
	lc, _ := CompositionOf(keys, leached)
	return Mixing(MixParams{
		Gamma:            gamma,
		Depth:            depth,
		Area:             area,
		Rate:             rate,
		FeedstockDensity: feedstockDensity,
		Feedstock:        fc,
		SoilDensity:      soilDensity,
		Soil:             sc,
		Leached:          lc,
		MassLoss:         massLoss,
	})
}
