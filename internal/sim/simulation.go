// Package sim owns the per-deployment simulation state and drives the
// core → composite → measure pipeline for each realization. A Simulation
// is allocated once per deployment layout and refilled in place by the
// setter methods every realization, so the Monte Carlo loop runs without
// per-iteration heap allocation. It is exclusively owned by the driver of
// one realization stack and never accessed concurrently.
package sim

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/soilstack/erwsim/internal/check"
	"github.com/soilstack/erwsim/internal/geochem"
)

// Simulation holds the (ncore, nsample) physical parameter matrices for
// one deployment layout plus the three pipeline outputs: per-core exact
// samples, per-location composites, and per-location noisy measurements.
type Simulation struct {
	analytes geochem.Analytes
	ncore    int
	nsample  int

	gamma    *mat.Dense // feedstock fraction within the cored depth
	depth    *mat.Dense // sample depth
	area     *mat.Dense // core cross-sectional area
	rate     *mat.Dense // application rate Q
	rhoF     *mat.Dense // feedstock bulk density
	rhoS     *mat.Dense // soil bulk density
	massLoss *mat.Dense // total feedstock mass-loss fraction

	feedConc []*mat.Dense // per analyte: cf
	soilConc []*mat.Dense // per analyte: cs
	leached  []*mat.Dense // per analyte: leached fraction

	cores        [][]geochem.Sample // [core][sample]
	composites   []geochem.Sample
	measurements []geochem.Measurement

	// scratch buffers; refilled constantly, never reallocated
	buf    []float64
	buf2   []float64
	cf     geochem.Composition
	cs     geochem.Composition
	lf     geochem.Composition
	column []geochem.Sample
}

// New allocates a simulation container for the given analyte set and
// layout. All matrices start as NaN so an unset parameter fails loudly in
// the pipeline's validation instead of passing as a plausible zero.
func New(analytes geochem.Analytes, ncore, nsample int) (*Simulation, error) {
	if ncore <= 0 || nsample <= 0 {
		return nil, &check.DomainError{Op: "sim.New", Detail: "need positive core and sample counts"}
	}

	na := analytes.Len()
	s := &Simulation{
		analytes: analytes,
		ncore:    ncore,
		nsample:  nsample,
		gamma:    mat.NewDense(ncore, nsample, nil),
		depth:    mat.NewDense(ncore, nsample, nil),
		area:     mat.NewDense(ncore, nsample, nil),
		rate:     mat.NewDense(ncore, nsample, nil),
		rhoF:     mat.NewDense(ncore, nsample, nil),
		rhoS:     mat.NewDense(ncore, nsample, nil),
		massLoss: mat.NewDense(ncore, nsample, nil),
		feedConc: make([]*mat.Dense, na),
		soilConc: make([]*mat.Dense, na),
		leached:  make([]*mat.Dense, na),
		buf:      make([]float64, nsample),
		buf2:     make([]float64, nsample),
		cf:       geochem.NewComposition(analytes),
		cs:       geochem.NewComposition(analytes),
		lf:       geochem.NewComposition(analytes),
		column:   make([]geochem.Sample, ncore),
	}
	for a := 0; a < na; a++ {
		s.feedConc[a] = mat.NewDense(ncore, nsample, nil)
		s.soilConc[a] = mat.NewDense(ncore, nsample, nil)
		s.leached[a] = mat.NewDense(ncore, nsample, nil)
	}

	s.cores = make([][]geochem.Sample, ncore)
	for i := range s.cores {
		s.cores[i] = make([]geochem.Sample, nsample)
		for j := range s.cores[i] {
			s.cores[i][j] = geochem.Sample{Conc: geochem.NewComposition(analytes)}
		}
	}
	s.composites = make([]geochem.Sample, nsample)
	s.measurements = make([]geochem.Measurement, nsample)
	for j := 0; j < nsample; j++ {
		s.composites[j] = geochem.Sample{Conc: geochem.NewComposition(analytes)}
		s.measurements[j] = geochem.Measurement{Conc: geochem.NewComposition(analytes)}
	}

	s.Clear()
	return s, nil
}

func (s *Simulation) Analytes() geochem.Analytes { return s.analytes }
func (s *Simulation) NCores() int                { return s.ncore }
func (s *Simulation) NSamples() int              { return s.nsample }

// Measurements exposes the per-sample measurement slots. The realization
// loop reads them immediately after Analyze; the next realization
// overwrites them in place.
func (s *Simulation) Measurements() []geochem.Measurement { return s.measurements }

// Composites exposes the per-sample composite slots.
func (s *Simulation) Composites() []geochem.Sample { return s.composites }

// CoreAt returns the mixed sample for one core.
func (s *Simulation) CoreAt(core, sample int) geochem.Sample { return s.cores[core][sample] }

func (s *Simulation) GammaAt(core, sample int) float64    { return s.gamma.At(core, sample) }
func (s *Simulation) DepthAt(core, sample int) float64    { return s.depth.At(core, sample) }
func (s *Simulation) RateAt(core, sample int) float64     { return s.rate.At(core, sample) }
func (s *Simulation) MassLossAt(core, sample int) float64 { return s.massLoss.At(core, sample) }

// LeachedAt returns the leached fraction for one analyte at one cell.
func (s *Simulation) LeachedAt(analyte string, core, sample int) (float64, error) {
	a, ok := s.analytes.Index(analyte)
	if !ok {
		return 0, &check.DomainError{Op: "sim.LeachedAt", Detail: fmt.Sprintf("unknown analyte %q", analyte)}
	}
	return s.leached[a].At(core, sample), nil
}

// Clear resets every numeric matrix to NaN and every sample and
// measurement slot to its zero value. Needed only when reusing the
// container for a logically distinct configuration; ordinary repeated
// realization overwrites every field anyway.
func (s *Simulation) Clear() {
	nan := math.NaN()
	fill := func(m *mat.Dense) {
		raw := m.RawMatrix().Data
		for i := range raw {
			raw[i] = nan
		}
	}
	fill(s.gamma)
	fill(s.depth)
	fill(s.area)
	fill(s.rate)
	fill(s.rhoF)
	fill(s.rhoS)
	fill(s.massLoss)
	for a := range s.feedConc {
		fill(s.feedConc[a])
		fill(s.soilConc[a])
		fill(s.leached[a])
	}
	for i := range s.cores {
		for j := range s.cores[i] {
			zeroSample(&s.cores[i][j])
		}
	}
	for j := range s.composites {
		zeroSample(&s.composites[j])
		m := &s.measurements[j]
		for a := 0; a < m.Conc.Len(); a++ {
			m.Conc.SetAt(a, 0)
		}
		m.Mass = 0
	}
}

func zeroSample(sm *geochem.Sample) {
	for a := 0; a < sm.Conc.Len(); a++ {
		sm.Conc.SetAt(a, 0)
	}
	sm.Mass = 0
	sm.Cores = 0
}

// Core mixes every (core, sample) cell from the current parameter state.
func (s *Simulation) Core() error {
	for i := 0; i < s.ncore; i++ {
		for j := 0; j < s.nsample; j++ {
			for a := 0; a < s.analytes.Len(); a++ {
				s.cf.SetAt(a, s.feedConc[a].At(i, j))
				s.cs.SetAt(a, s.soilConc[a].At(i, j))
				s.lf.SetAt(a, s.leached[a].At(i, j))
			}
			err := geochem.MixingInto(&s.cores[i][j], geochem.MixParams{
				Gamma:            s.gamma.At(i, j),
				Depth:            s.depth.At(i, j),
				Area:             s.area.At(i, j),
				Rate:             s.rate.At(i, j),
				FeedstockDensity: s.rhoF.At(i, j),
				Feedstock:        s.cf,
				SoilDensity:      s.rhoS.At(i, j),
				Soil:             s.cs,
				Leached:          s.lf,
				MassLoss:         s.massLoss.At(i, j),
			})
			if err != nil {
				return fmt.Errorf("core (%d, %d): %w", i, j, err)
			}
		}
	}
	return nil
}

// Composite sums each sample's core column into its composite slot.
func (s *Simulation) Composite() error {
	for j := 0; j < s.nsample; j++ {
		for i := 0; i < s.ncore; i++ {
			s.column[i] = s.cores[i][j]
		}
		if err := geochem.SumInto(&s.composites[j], s.column); err != nil {
			return fmt.Errorf("composite %d: %w", j, err)
		}
	}
	return nil
}

// Measure applies analytical noise to every composite.
func (s *Simulation) Measure(rng *rand.Rand, concRSD geochem.Composition, massRSD float64) error {
	for j := 0; j < s.nsample; j++ {
		if err := geochem.MeasureInto(&s.measurements[j], rng, s.composites[j], concRSD, massRSD); err != nil {
			return fmt.Errorf("measurement %d: %w", j, err)
		}
	}
	return nil
}

// Analyze runs the full pipeline in its fixed order.
func (s *Simulation) Analyze(rng *rand.Rand, concRSD geochem.Composition, massRSD float64) error {
	if err := s.Core(); err != nil {
		return err
	}
	if err := s.Composite(); err != nil {
		return err
	}
	return s.Measure(rng, concRSD, massRSD)
}
