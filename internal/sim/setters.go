package sim

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/soilstack/erwsim/internal/check"
	"github.com/soilstack/erwsim/internal/field"
	"github.com/soilstack/erwsim/internal/geochem"
	"github.com/soilstack/erwsim/internal/leach"
	"github.com/soilstack/erwsim/internal/plan"
)

func (s *Simulation) checkPlan(op string, p *plan.SamplePlan) error {
	if p.NSamples() != s.nsample {
		return &check.DomainError{
			Op:     op,
			Detail: fmt.Sprintf("plan has %d samples, simulation %d", p.NSamples(), s.nsample),
		}
	}
	return nil
}

func (s *Simulation) analyteIndex(op, analyte string) (int, error) {
	a, ok := s.analytes.Index(analyte)
	if !ok {
		return 0, &check.DomainError{Op: op, Detail: fmt.Sprintf("unknown analyte %q", analyte)}
	}
	return a, nil
}

// setColumn writes v into every core row of sample column j.
func setColumn(m *mat.Dense, ncore, j int, v float64) {
	for i := 0; i < ncore; i++ {
		m.Set(i, j, v)
	}
}

// Spreading fills the application-rate matrix with one value per sample
// location, broadcast across its cores. Control locations receive no
// feedstock and are forced to zero regardless of the source.
func (s *Simulation) Spreading(rng *rand.Rand, src Source, p *plan.SamplePlan) error {
	if err := s.checkPlan("sim.Spreading", p); err != nil {
		return err
	}
	if err := src.fill(rng, s.buf); err != nil {
		return err
	}
	for j := 0; j < s.nsample; j++ {
		v := s.buf[j]
		if p.Control[j] {
			v = 0
		}
		if err := check.NonNegative("application rate", v); err != nil {
			return err
		}
		setColumn(s.rate, s.ncore, j, v)
	}
	return nil
}

// CoreArea sets a uniform core cross-sectional area.
func (s *Simulation) CoreArea(a float64) error {
	if err := check.Positive("core area", a); err != nil {
		return err
	}
	for i := 0; i < s.ncore; i++ {
		for j := 0; j < s.nsample; j++ {
			s.area.Set(i, j, a)
		}
	}
	return nil
}

// SoilDensity fills the soil bulk density, one value per sample location.
func (s *Simulation) SoilDensity(rng *rand.Rand, src Source) error {
	return s.fillDensity(rng, src, s.rhoS, "soil density")
}

// FeedstockDensity fills the feedstock bulk density, one value per sample
// location. Infinite density is allowed and gives a zero-thickness layer.
func (s *Simulation) FeedstockDensity(rng *rand.Rand, src Source) error {
	return s.fillDensity(rng, src, s.rhoF, "feedstock density")
}

func (s *Simulation) fillDensity(rng *rand.Rand, src Source, dst *mat.Dense, name string) error {
	if err := src.fill(rng, s.buf); err != nil {
		return err
	}
	for j := 0; j < s.nsample; j++ {
		if err := check.Positive(name, s.buf[j]); err != nil {
			return err
		}
		setColumn(dst, s.ncore, j, s.buf[j])
	}
	return nil
}

// Unmixed leaves the feedstock as a surface layer: every core captures
// the full application (γ = 1), with per-core sampled depth.
func (s *Simulation) Unmixed(rng *rand.Rand, depth Sampler) error {
	for j := 0; j < s.nsample; j++ {
		for i := 0; i < s.ncore; i++ {
			d := depth.Rand()
			if err := check.NonNegative("sample depth", d); err != nil {
				return err
			}
			s.depth.Set(i, j, d)
			s.gamma.Set(i, j, 1)
		}
	}
	return nil
}

// TriangularMixing incorporates feedstock with linearly decreasing
// intensity down to a maximum mixing depth. The mixing depth is a
// property of how feedstock was worked in at each location, so it is
// drawn once per sample; the cored depth still varies core by core.
func (s *Simulation) TriangularMixing(rng *rand.Rand, depth, mixDepth Sampler) error {
	return s.profileMixing(depth, mixDepth, "sim.TriangularMixing", func(z float64) geochem.Profile {
		return distuv.NewTriangle(0, z, 0, nil)
	})
}

// UniformMixing incorporates feedstock evenly down to a maximum mixing
// depth drawn once per sample.
func (s *Simulation) UniformMixing(rng *rand.Rand, depth, mixDepth Sampler) error {
	return s.profileMixing(depth, mixDepth, "sim.UniformMixing", func(z float64) geochem.Profile {
		return distuv.Uniform{Min: 0, Max: z}
	})
}

// ExponentialMixing concentrates feedstock near the surface with an
// exponentially decaying profile whose mean depth is drawn once per
// sample.
func (s *Simulation) ExponentialMixing(rng *rand.Rand, depth, meanDepth Sampler) error {
	return s.profileMixing(depth, meanDepth, "sim.ExponentialMixing", func(z float64) geochem.Profile {
		return distuv.Exponential{Rate: 1 / z}
	})
}

func (s *Simulation) profileMixing(depth, param Sampler, op string, makeProfile func(z float64) geochem.Profile) error {
	for j := 0; j < s.nsample; j++ {
		z := param.Rand()
		if err := check.Positive("mixing profile depth", z); err != nil {
			return err
		}
		profile := makeProfile(z)
		for i := 0; i < s.ncore; i++ {
			d := depth.Rand()
			gamma, err := geochem.FeedstockFraction(profile, d)
			if err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
			s.depth.Set(i, j, d)
			s.gamma.Set(i, j, gamma)
		}
	}
	return nil
}

// FeedstockConcentration fills one analyte's feedstock concentration,
// one value per sample location broadcast across cores.
func (s *Simulation) FeedstockConcentration(rng *rand.Rand, analyte string, src Source) error {
	a, err := s.analyteIndex("sim.FeedstockConcentration", analyte)
	if err != nil {
		return err
	}
	return s.fillConcentration(rng, src, s.feedConc[a], "feedstock concentration")
}

// SoilConcentration fills one analyte's baseline soil concentration.
func (s *Simulation) SoilConcentration(rng *rand.Rand, analyte string, src Source) error {
	a, err := s.analyteIndex("sim.SoilConcentration", analyte)
	if err != nil {
		return err
	}
	return s.fillConcentration(rng, src, s.soilConc[a], "soil concentration")
}

func (s *Simulation) fillConcentration(rng *rand.Rand, src Source, dst *mat.Dense, name string) error {
	if err := src.fill(rng, s.buf); err != nil {
		return err
	}
	for j := 0; j < s.nsample; j++ {
		if err := check.Fractional(name, s.buf[j]); err != nil {
			return err
		}
		setColumn(dst, s.ncore, j, s.buf[j])
	}
	return nil
}

// SoilConcentrationPair fills two analytes' baseline soil concentrations
// from one joint draw of a cosimulator, preserving their cross-correlation.
func (s *Simulation) SoilConcentrationPair(rng *rand.Rand, analyteA, analyteB string, gen *field.GaussianCosimulator) error {
	a, err := s.analyteIndex("sim.SoilConcentrationPair", analyteA)
	if err != nil {
		return err
	}
	b, err := s.analyteIndex("sim.SoilConcentrationPair", analyteB)
	if err != nil {
		return err
	}
	if err := gen.SampleInto(rng, s.buf, s.buf2); err != nil {
		return err
	}
	for j := 0; j < s.nsample; j++ {
		if err := check.Fractional("soil concentration", s.buf[j]); err != nil {
			return err
		}
		if err := check.Fractional("soil concentration", s.buf2[j]); err != nil {
			return err
		}
		setColumn(s.soilConc[a], s.ncore, j, s.buf[j])
		setColumn(s.soilConc[b], s.ncore, j, s.buf2[j])
	}
	return nil
}

// Leaching evaluates one analyte's leaching model at every sample's time,
// broadcast across its cores: loss depends on elapsed time, not on which
// core was pulled.
func (s *Simulation) Leaching(rng *rand.Rand, analyte string, m leach.Model, p *plan.SamplePlan) error {
	if err := s.checkPlan("sim.Leaching", p); err != nil {
		return err
	}
	a, err := s.analyteIndex("sim.Leaching", analyte)
	if err != nil {
		return err
	}
	for j := 0; j < s.nsample; j++ {
		f := m.Fraction(rng, p.Time[j])
		if err := check.Fractional("leached fraction", f); err != nil {
			return err
		}
		setColumn(s.leached[a], s.ncore, j, f)
	}
	return nil
}

// Massloss computes the total feedstock mass-loss fraction per core from
// the per-analyte leached fractions via the caller-supplied aggregation.
// Samples taken before application lose exactly nothing. An aggregate
// outside [0, 1] is a hard failure, never clamped.
func (s *Simulation) Massloss(fn func(geochem.Composition) float64, p *plan.SamplePlan) error {
	if err := s.checkPlan("sim.Massloss", p); err != nil {
		return err
	}
	for j := 0; j < s.nsample; j++ {
		if p.Time[j] < 0 {
			setColumn(s.massLoss, s.ncore, j, 0)
			continue
		}
		for i := 0; i < s.ncore; i++ {
			for a := 0; a < s.analytes.Len(); a++ {
				s.lf.SetAt(a, s.leached[a].At(i, j))
			}
			v := fn(s.lf)
			if !(v >= 0 && v <= 1) {
				return &check.ConstraintError{
					Quantity:   "mass-loss fraction",
					Value:      v,
					Constraint: "in [0, 1]",
					Detail:     fmt.Sprintf("aggregated at t=%g from leached fractions %v", p.Time[j], s.lf),
				}
			}
			s.massLoss.Set(i, j, v)
		}
	}
	return nil
}
