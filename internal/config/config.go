// Package config defines the YAML scenario schema and assembles runnable
// simulations from it.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/soilstack/erwsim/internal/check"
)

const (
	DefaultSeed         = 42
	DefaultRealizations = 500
	DefaultRate         = 4.0
	DefaultDepth        = 0.1
	DefaultCoreArea     = 0.0005
	DefaultCores        = 5
	DefaultSoilDensity  = 1.3e3
	DefaultFeedDensity  = 3.0e3
)

type Config struct {
	Name         string `yaml:"name"`
	Seed         uint64 `yaml:"seed"`
	Realizations int    `yaml:"realizations"`

	Field FieldConfig `yaml:"field"`
	Plan  PlanConfig  `yaml:"plan"`
	Cores CoreConfig  `yaml:"cores"`

	Spreading        DrawConfig   `yaml:"spreading"`
	Mixing           MixingConfig `yaml:"mixing"`
	SoilDensity      DrawConfig   `yaml:"soil_density"`
	FeedstockDensity DrawConfig   `yaml:"feedstock_density"`

	Analytes []AnalyteConfig `yaml:"analytes"`
	SoilPair *PairConfig     `yaml:"soil_pair,omitempty"`

	MassRSD float64 `yaml:"mass_rsd"`
}

// FieldConfig is the rectangular deployment area in meters.
type FieldConfig struct {
	X0 float64 `yaml:"x0"`
	Y0 float64 `yaml:"y0"`
	X1 float64 `yaml:"x1"`
	Y1 float64 `yaml:"y1"`
}

type PlanConfig struct {
	Kind            string    `yaml:"kind"` // paired, random, grid
	SamplesPerRound int       `yaml:"samples_per_round"`
	NX              int       `yaml:"nx"`
	NY              int       `yaml:"ny"`
	Times           []float64 `yaml:"times"`
	ControlFraction float64   `yaml:"control_fraction"`
}

type CoreConfig struct {
	Count   int     `yaml:"count"`
	Stencil string  `yaml:"stencil"` // single, square, circle
	Side    float64 `yaml:"side"`
	Radius  float64 `yaml:"radius"`
	Jitter  float64 `yaml:"jitter"`
	Area    float64 `yaml:"area"`
}

// DrawConfig is a scalar parameter with optional relative spread. RSD
// zero means the value is exact every realization.
type DrawConfig struct {
	Mean float64 `yaml:"mean"`
	RSD  float64 `yaml:"rsd"`
}

type MixingConfig struct {
	Kind     string  `yaml:"kind"` // unmixed, uniform, triangular, exponential
	Depth    float64 `yaml:"depth"`
	DepthRSD float64 `yaml:"depth_rsd"`
	Param    float64 `yaml:"param"` // mixing depth, or mean depth for exponential
	ParamRSD float64 `yaml:"param_rsd"`
}

type AnalyteConfig struct {
	Name           string       `yaml:"name"`
	Feedstock      DrawConfig   `yaml:"feedstock"`
	Soil           SourceConfig `yaml:"soil"`
	Leaching       LeachConfig  `yaml:"leaching"`
	MeasurementRSD float64      `yaml:"measurement_rsd"`
}

// SourceConfig is a per-sample concentration source. A nonzero sill (or
// nugget) switches from independent draws to a spatially correlated
// Gaussian field over the plan's nominal locations.
type SourceConfig struct {
	Mean   float64 `yaml:"mean"`
	RSD    float64 `yaml:"rsd"`
	Nugget float64 `yaml:"nugget"`
	Sill   float64 `yaml:"sill"`
	Range  float64 `yaml:"range"`
	Model  string  `yaml:"model"` // spherical, exponential, gaussian
}

func (s SourceConfig) spatial() bool { return s.Sill > 0 || s.Nugget > 0 }

type LeachConfig struct {
	Kind      string    `yaml:"kind"` // none, exponential, multi_exponential, seasonal
	Rate      float64   `yaml:"rate"`
	Rates     []float64 `yaml:"rates"`
	Asymptote float64   `yaml:"asymptote"`
	Sigma     float64   `yaml:"sigma"`
	Floor     float64   `yaml:"floor"`
	Power     int       `yaml:"power"`
	Phase     float64   `yaml:"phase"`
}

// PairConfig jointly simulates two analytes' soil baselines with the
// given cross-correlation, sharing one covariance model.
type PairConfig struct {
	A      string  `yaml:"a"`
	B      string  `yaml:"b"`
	Rho    float64 `yaml:"rho"`
	Nugget float64 `yaml:"nugget"`
	Sill   float64 `yaml:"sill"`
	Range  float64 `yaml:"range"`
	Model  string  `yaml:"model"`
}

// DefaultConfig is a one-hectare basalt deployment with calcium and
// magnesium tracers, sampled in paired rounds before and after
// application.
func DefaultConfig() *Config {
	return &Config{
		Name:         "basalt",
		Seed:         DefaultSeed,
		Realizations: DefaultRealizations,
		Field:        FieldConfig{X0: 0, Y0: 0, X1: 100, Y1: 100},
		Plan: PlanConfig{
			Kind:            "paired",
			SamplesPerRound: 16,
			Times:           []float64{-0.05, 0.5, 1.0},
			ControlFraction: 0.25,
		},
		Cores: CoreConfig{
			Count:   DefaultCores,
			Stencil: "square",
			Side:    2.0,
			Jitter:  0.5,
			Area:    DefaultCoreArea,
		},
		Spreading:        DrawConfig{Mean: DefaultRate, RSD: 0.05},
		Mixing:           MixingConfig{Kind: "uniform", Depth: DefaultDepth, DepthRSD: 0.05, Param: 0.15, ParamRSD: 0.05},
		SoilDensity:      DrawConfig{Mean: DefaultSoilDensity, RSD: 0.05},
		FeedstockDensity: DrawConfig{Mean: DefaultFeedDensity, RSD: 0.02},
		Analytes: []AnalyteConfig{
			{
				Name:           "ca",
				Feedstock:      DrawConfig{Mean: 0.067, RSD: 0.03},
				Soil:           SourceConfig{Mean: 1.5e-3, Nugget: 1e-9, Sill: 4e-9, Range: 30, Model: "spherical"},
				Leaching:       LeachConfig{Kind: "exponential", Rate: 0.6, Asymptote: 0.85},
				MeasurementRSD: 0.02,
			},
			{
				Name:           "mg",
				Feedstock:      DrawConfig{Mean: 0.045, RSD: 0.03},
				Soil:           SourceConfig{Mean: 1.1e-3, Nugget: 6e-10, Sill: 2.5e-9, Range: 30, Model: "spherical"},
				Leaching:       LeachConfig{Kind: "exponential", Rate: 0.8, Asymptote: 0.9},
				MeasurementRSD: 0.02,
			},
		},
		MassRSD: 0.01,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the structural constraints Build relies on. Value-level
// constraints (positive densities, fractional concentrations) are caught
// by the simulation setters.
func (c *Config) Validate() error {
	if c.Realizations <= 0 {
		return &check.DomainError{Op: "config", Detail: "realizations must be positive"}
	}
	if c.Field.X1 <= c.Field.X0 || c.Field.Y1 <= c.Field.Y0 {
		return &check.DomainError{Op: "config", Detail: "field rectangle is empty"}
	}
	if len(c.Plan.Times) == 0 {
		return &check.DomainError{Op: "config", Detail: "plan needs at least one sampling round"}
	}
	switch c.Plan.Kind {
	case "paired", "random":
		if c.Plan.SamplesPerRound <= 0 {
			return &check.DomainError{Op: "config", Detail: "plan needs samples_per_round"}
		}
	case "grid":
		if c.Plan.NX <= 0 || c.Plan.NY <= 0 {
			return &check.DomainError{Op: "config", Detail: "grid plan needs nx and ny"}
		}
	default:
		return &check.DomainError{Op: "config", Detail: fmt.Sprintf("unknown plan kind %q", c.Plan.Kind)}
	}
	if c.Cores.Count <= 0 {
		return &check.DomainError{Op: "config", Detail: "cores count must be positive"}
	}
	switch c.Cores.Stencil {
	case "", "single", "square", "circle":
	default:
		return &check.DomainError{Op: "config", Detail: fmt.Sprintf("unknown stencil %q", c.Cores.Stencil)}
	}
	if len(c.Analytes) == 0 {
		return &check.DomainError{Op: "config", Detail: "need at least one analyte"}
	}
	var feedTotal float64
	for _, a := range c.Analytes {
		if a.Name == "" {
			return &check.DomainError{Op: "config", Detail: "analyte without a name"}
		}
		feedTotal += a.Feedstock.Mean
	}
	if feedTotal > 1 {
		return &check.ConstraintError{
			Quantity:   "total feedstock composition",
			Value:      feedTotal,
			Constraint: "at most 1",
			Detail:     "analyte mass fractions of one material cannot exceed unity",
		}
	}
	if c.SoilPair != nil {
		if c.SoilPair.A == c.SoilPair.B {
			return &check.DomainError{Op: "config", Detail: "soil pair needs two distinct analytes"}
		}
		if !hasAnalyte(c.Analytes, c.SoilPair.A) || !hasAnalyte(c.Analytes, c.SoilPair.B) {
			return &check.DomainError{Op: "config", Detail: "soil pair references an unknown analyte"}
		}
	}
	return nil
}

func hasAnalyte(as []AnalyteConfig, name string) bool {
	for _, a := range as {
		if a.Name == name {
			return true
		}
	}
	return false
}
