package config

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/soilstack/erwsim/internal/check"
	"github.com/soilstack/erwsim/internal/field"
	"github.com/soilstack/erwsim/internal/geochem"
	"github.com/soilstack/erwsim/internal/leach"
	"github.com/soilstack/erwsim/internal/plan"
	"github.com/soilstack/erwsim/internal/sim"
)

// Scenario is a fully wired simulation ready to run: the sampling plan,
// the preallocated containers, and the per-realization procedure built
// from the configuration. Field generators are factorized once here
// because the nominal sample locations never move between realizations.
type Scenario struct {
	Config   *Config
	Analytes geochem.Analytes
	Plan     *plan.SamplePlan
	Cores    *plan.CoreSet
	Sim      *sim.Simulation

	rng  *rand.Rand
	proc func() error
}

// Run executes the realization stack.
func (sc *Scenario) Run(logger *slog.Logger) (*sim.Results, error) {
	return sim.RunStack(sc.Sim, sc.Cores, sc.Plan, sc.Config.Realizations, sc.proc, logger)
}

// Build validates the configuration and assembles a Scenario. All
// allocation and covariance factorization happens here; the returned
// procedure only refills preallocated state.
func Build(cfg *Config) (*Scenario, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	names := make([]string, len(cfg.Analytes))
	for i, a := range cfg.Analytes {
		names[i] = a.Name
	}
	analytes, err := geochem.NewAnalytes(names...)
	if err != nil {
		return nil, err
	}

	src := rand.NewPCG(cfg.Seed, cfg.Seed+1)
	rng := rand.New(src)

	pg := plan.Rect(cfg.Field.X0, cfg.Field.Y0, cfg.Field.X1, cfg.Field.Y1)
	p, err := buildPlan(rng, pg, cfg.Plan)
	if err != nil {
		return nil, err
	}

	st, err := buildStencil(cfg.Cores)
	if err != nil {
		return nil, err
	}
	jit := plan.Jitter{Sigma: cfg.Cores.Jitter}
	cores := plan.NewCoreSet(cfg.Cores.Count, p.NSamples())

	s, err := sim.New(analytes, cfg.Cores.Count, p.NSamples())
	if err != nil {
		return nil, err
	}

	area := cfg.Cores.Area
	if area <= 0 {
		area = DefaultCoreArea
	}

	spreadSrc := drawSource(cfg.Spreading, src)
	soilDenSrc := drawSource(cfg.SoilDensity, src)
	feedDenSrc := drawSource(cfg.FeedstockDensity, src)

	mix, err := buildMixing(rng, s, cfg.Mixing, src)
	if err != nil {
		return nil, err
	}

	paired := map[string]bool{}
	var cosim *field.GaussianCosimulator
	if cfg.SoilPair != nil {
		cosim, err = buildPair(p, cfg)
		if err != nil {
			return nil, err
		}
		paired[cfg.SoilPair.A] = true
		paired[cfg.SoilPair.B] = true
	}

	feedSrc := make([]sim.Source, len(cfg.Analytes))
	soilSrc := make([]sim.Source, len(cfg.Analytes))
	models := make([]leach.Model, len(cfg.Analytes))
	feedMeans := make([]float64, len(cfg.Analytes))
	rsds := make([]float64, len(cfg.Analytes))
	for i, a := range cfg.Analytes {
		feedSrc[i] = drawSource(a.Feedstock, src)
		feedMeans[i] = a.Feedstock.Mean
		rsds[i] = a.MeasurementRSD
		if !paired[a.Name] {
			soilSrc[i], err = buildSoilSource(p, a.Soil, src)
			if err != nil {
				return nil, fmt.Errorf("analyte %q soil: %w", a.Name, err)
			}
		}
		models[i], err = buildLeach(a.Leaching)
		if err != nil {
			return nil, fmt.Errorf("analyte %q leaching: %w", a.Name, err)
		}
	}

	rsdComp, err := geochem.CompositionOf(analytes, rsds...)
	if err != nil {
		return nil, err
	}

	// Total feedstock mass loss is the leached mass of every tracked
	// analyte, weighted by its nominal abundance in the feedstock.
	massloss := func(l geochem.Composition) float64 {
		var sum float64
		for a := 0; a < l.Len(); a++ {
			sum += feedMeans[a] * l.At(a)
		}
		return sum
	}

	sc := &Scenario{
		Config:   cfg,
		Analytes: analytes,
		Plan:     p,
		Cores:    cores,
		Sim:      s,
		rng:      rng,
	}
	sc.proc = func() error {
		if err := cores.Draw(rng, p, st, jit); err != nil {
			return err
		}
		if err := s.Spreading(rng, spreadSrc, p); err != nil {
			return err
		}
		if err := s.CoreArea(area); err != nil {
			return err
		}
		if err := s.SoilDensity(rng, soilDenSrc); err != nil {
			return err
		}
		if err := s.FeedstockDensity(rng, feedDenSrc); err != nil {
			return err
		}
		if err := mix(); err != nil {
			return err
		}
		for i, a := range cfg.Analytes {
			if err := s.FeedstockConcentration(rng, a.Name, feedSrc[i]); err != nil {
				return err
			}
		}
		if cosim != nil {
			if err := s.SoilConcentrationPair(rng, cfg.SoilPair.A, cfg.SoilPair.B, cosim); err != nil {
				return err
			}
		}
		for i, a := range cfg.Analytes {
			if paired[a.Name] {
				continue
			}
			if err := s.SoilConcentration(rng, a.Name, soilSrc[i]); err != nil {
				return err
			}
		}
		for i, a := range cfg.Analytes {
			if err := s.Leaching(rng, a.Name, models[i], p); err != nil {
				return err
			}
		}
		if err := s.Massloss(massloss, p); err != nil {
			return err
		}
		return s.Analyze(rng, rsdComp, cfg.MassRSD)
	}
	return sc, nil
}

func buildPlan(rng *rand.Rand, pg plan.Polygon, pc PlanConfig) (*plan.SamplePlan, error) {
	switch pc.Kind {
	case "paired":
		return plan.PairedPlan(rng, pg, pc.SamplesPerRound, pc.Times, pc.ControlFraction)
	case "random":
		return plan.RandomPlan(rng, pg, pc.SamplesPerRound, pc.Times, pc.ControlFraction)
	case "grid":
		return plan.GridPlan(pg, pc.NX, pc.NY, pc.Times, pc.ControlFraction)
	default:
		return nil, &check.DomainError{Op: "config.Build", Detail: fmt.Sprintf("unknown plan kind %q", pc.Kind)}
	}
}

func buildStencil(cc CoreConfig) (plan.Stencil, error) {
	switch cc.Stencil {
	case "", "single":
		return plan.SingleStencil{}, nil
	case "square":
		if cc.Side <= 0 {
			return nil, &check.DomainError{Op: "config.Build", Detail: "square stencil needs a positive side"}
		}
		return plan.SquareStencil{Side: cc.Side}, nil
	case "circle":
		if cc.Radius <= 0 {
			return nil, &check.DomainError{Op: "config.Build", Detail: "circle stencil needs a positive radius"}
		}
		return plan.CircleStencil{Radius: cc.Radius, N: cc.Count}, nil
	default:
		return nil, &check.DomainError{Op: "config.Build", Detail: fmt.Sprintf("unknown stencil %q", cc.Stencil)}
	}
}

// fixedValue is a degenerate Sampler for parameters with no spread.
type fixedValue float64

func (f fixedValue) Rand() float64 { return float64(f) }

func sampler(mean, rsd float64, src rand.Source) sim.Sampler {
	if rsd <= 0 {
		return fixedValue(mean)
	}
	return distuv.Normal{Mu: mean, Sigma: mean * rsd, Src: src}
}

func drawSource(dc DrawConfig, src rand.Source) sim.Source {
	if dc.RSD <= 0 {
		return sim.Const(dc.Mean)
	}
	return sim.Draw{Dist: distuv.Normal{Mu: dc.Mean, Sigma: dc.Mean * dc.RSD, Src: src}}
}

func buildSoilSource(p *plan.SamplePlan, sc SourceConfig, src rand.Source) (sim.Source, error) {
	if !sc.spatial() {
		return drawSource(DrawConfig{Mean: sc.Mean, RSD: sc.RSD}, src), nil
	}
	cov, err := covariance(sc.Nugget, sc.Sill, sc.Range, sc.Model)
	if err != nil {
		return nil, err
	}
	gen, err := field.NewGaussianSimulator(p.NSamples(), sc.Mean)
	if err != nil {
		return nil, err
	}
	if err := gen.Refresh(p.Points, cov); err != nil {
		return nil, err
	}
	return sim.Field{Gen: gen}, nil
}

func buildPair(p *plan.SamplePlan, cfg *Config) (*field.GaussianCosimulator, error) {
	pc := cfg.SoilPair
	var meanA, meanB float64
	for _, a := range cfg.Analytes {
		if a.Name == pc.A {
			meanA = a.Soil.Mean
		}
		if a.Name == pc.B {
			meanB = a.Soil.Mean
		}
	}
	cov, err := covariance(pc.Nugget, pc.Sill, pc.Range, pc.Model)
	if err != nil {
		return nil, err
	}
	gen, err := field.NewGaussianCosimulator(p.NSamples(), meanA, meanB, pc.Rho)
	if err != nil {
		return nil, err
	}
	if err := gen.Refresh(p.Points, cov); err != nil {
		return nil, err
	}
	return gen, nil
}

func covariance(nugget, sill, r float64, model string) (field.Covariance, error) {
	var st field.Structure
	switch model {
	case "", "spherical":
		st = field.Spherical
	case "exponential":
		st = field.Exponential
	case "gaussian":
		st = field.Gaussian
	default:
		return field.Covariance{}, &check.DomainError{
			Op: "config.Build", Detail: fmt.Sprintf("unknown covariance model %q", model),
		}
	}
	return field.Covariance{Nugget: nugget, Sill: sill, Range: r, Model: st}, nil
}

func buildMixing(rng *rand.Rand, s *sim.Simulation, mc MixingConfig, src rand.Source) (func() error, error) {
	depth := sampler(mc.Depth, mc.DepthRSD, src)
	param := sampler(mc.Param, mc.ParamRSD, src)
	switch mc.Kind {
	case "unmixed":
		return func() error { return s.Unmixed(rng, depth) }, nil
	case "", "uniform":
		return func() error { return s.UniformMixing(rng, depth, param) }, nil
	case "triangular":
		return func() error { return s.TriangularMixing(rng, depth, param) }, nil
	case "exponential":
		return func() error { return s.ExponentialMixing(rng, depth, param) }, nil
	default:
		return nil, &check.DomainError{Op: "config.Build", Detail: fmt.Sprintf("unknown mixing kind %q", mc.Kind)}
	}
}

func buildLeach(lc LeachConfig) (leach.Model, error) {
	switch lc.Kind {
	case "", "none":
		return leach.NoLeaching{}, nil
	case "exponential":
		return leach.NewExponential(lc.Rate, lc.Asymptote, lc.Sigma)
	case "multi_exponential":
		return leach.NewMultiExponential(lc.Rates, lc.Asymptote, lc.Sigma)
	case "seasonal":
		power := lc.Power
		if power == 0 {
			power = 1
		}
		return leach.NewSeasonal(lc.Rate, lc.Asymptote, lc.Floor, power, lc.Phase, lc.Sigma)
	default:
		return nil, &check.DomainError{Op: "config.Build", Detail: fmt.Sprintf("unknown leaching kind %q", lc.Kind)}
	}
}
