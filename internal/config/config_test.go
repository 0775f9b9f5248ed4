package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/soilstack/erwsim/internal/check"
	"github.com/soilstack/erwsim/internal/field"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Realizations <= 0 {
		t.Error("realizations should be positive")
	}
	if len(cfg.Analytes) == 0 {
		t.Error("default config should track at least one analyte")
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	cfg := DefaultConfig()
	cfg.Name = "roundtrip"
	cfg.Seed = 99
	cfg.Plan.Times = []float64{-0.1, 0.25}

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Name != "roundtrip" || got.Seed != 99 {
		t.Errorf("roundtrip lost scalars: name=%q seed=%d", got.Name, got.Seed)
	}
	if len(got.Plan.Times) != 2 || got.Plan.Times[1] != 0.25 {
		t.Errorf("roundtrip lost plan times: %v", got.Plan.Times)
	}
	if len(got.Analytes) != len(cfg.Analytes) {
		t.Errorf("roundtrip lost analytes: %d vs %d", len(got.Analytes), len(cfg.Analytes))
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	// A partial file should inherit every unspecified field from the
	// defaults.
	path := filepath.Join(t.TempDir(), "partial.yaml")
	if err := os.WriteFile(path, []byte("name: partial\nseed: 7\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "partial" || cfg.Seed != 7 {
		t.Errorf("overrides not applied: name=%q seed=%d", cfg.Name, cfg.Seed)
	}
	if cfg.Plan.Kind != "paired" || cfg.Cores.Count != DefaultCores {
		t.Errorf("defaults not inherited: plan=%q cores=%d", cfg.Plan.Kind, cfg.Cores.Count)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero realizations", func(c *Config) { c.Realizations = 0 }},
		{"empty field", func(c *Config) { c.Field.X1 = c.Field.X0 }},
		{"no rounds", func(c *Config) { c.Plan.Times = nil }},
		{"unknown plan", func(c *Config) { c.Plan.Kind = "spiral" }},
		{"no samples", func(c *Config) { c.Plan.SamplesPerRound = 0 }},
		{"no cores", func(c *Config) { c.Cores.Count = 0 }},
		{"unknown stencil", func(c *Config) { c.Cores.Stencil = "hex" }},
		{"no analytes", func(c *Config) { c.Analytes = nil }},
		{"unnamed analyte", func(c *Config) { c.Analytes[0].Name = "" }},
		{"feedstock over unity", func(c *Config) { c.Analytes[0].Feedstock.Mean = 1.5 }},
		{"pair same analyte", func(c *Config) { c.SoilPair = &PairConfig{A: "ca", B: "ca", Rho: 0.5} }},
		{"pair unknown analyte", func(c *Config) { c.SoilPair = &PairConfig{A: "ca", B: "sr", Rho: 0.5} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation failure")
			}
		})
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("olivine")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.SoilPair == nil || cfg.SoilPair.Rho != 0.6 {
		t.Error("olivine preset should carry a correlated soil pair")
	}
	if GetPreset("granite") != nil {
		t.Error("expected nil for unknown preset")
	}
	if len(ListPresets()) < 3 {
		t.Errorf("expected several presets, got %v", ListPresets())
	}
}

func TestBuildAllPresets(t *testing.T) {
	for name := range Presets {
		t.Run(name, func(t *testing.T) {
			cfg := GetPreset(name)
			if err := cfg.Validate(); err != nil {
				t.Fatalf("preset invalid: %v", err)
			}
			sc, err := Build(cfg)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if sc.Plan.NSamples() != sc.Sim.NSamples() {
				t.Errorf("plan has %d samples, simulation %d", sc.Plan.NSamples(), sc.Sim.NSamples())
			}
			if sc.Cores.NCores() != cfg.Cores.Count {
				t.Errorf("core set has %d cores, want %d", sc.Cores.NCores(), cfg.Cores.Count)
			}
		})
	}
}

func TestBuildRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown mixing", func(c *Config) { c.Mixing.Kind = "vortex" }},
		{"unknown covariance", func(c *Config) { c.Analytes[0].Soil.Model = "cubic" }},
		{"square without side", func(c *Config) { c.Cores.Stencil = "square"; c.Cores.Side = 0 }},
		{"unknown leaching", func(c *Config) { c.Analytes[0].Leaching.Kind = "polynomial" }},
		{"bad asymptote", func(c *Config) { c.Analytes[0].Leaching.Asymptote = 1.0 }},
		{"unit pair rho", func(c *Config) {
			c.SoilPair = &PairConfig{A: "ca", B: "mg", Rho: 1.0, Nugget: 1e-9, Sill: 4e-9, Range: 30}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if _, err := Build(cfg); err == nil {
				t.Error("expected build failure")
			}
		})
	}
}

func TestBuildRejectsSpatialFieldWithoutNugget(t *testing.T) {
	// A paired plan revisits locations; a purely spatial covariance with
	// no nugget is then singular and must fail at build time, not during
	// the realization loop.
	cfg := DefaultConfig()
	cfg.Analytes[0].Soil.Nugget = 0
	_, err := Build(cfg)
	if !errors.Is(err, field.ErrFactorization) {
		t.Fatalf("expected factorization failure, got %v", err)
	}
}

func TestRunIsDeterministic(t *testing.T) {
	run := func() []float64 {
		cfg := DefaultConfig()
		cfg.Realizations = 4
		cfg.Plan.SamplesPerRound = 4
		sc, err := Build(cfg)
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		r, err := sc.Run(nil)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return r.Data
	}
	a := run()
	b := run()
	if len(a) == 0 || len(a) != len(b) {
		t.Fatalf("unexpected result sizes %d, %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("results diverge at %d", i)
		}
	}
}

func TestRunSmallScenario(t *testing.T) {
	cfg := GetPreset("pilot")
	cfg.Realizations = 3
	sc, err := Build(cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	r, err := sc.Run(nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if r.Realizations != 3 || r.Samples != 8 {
		t.Errorf("result shape (%d, %d), want (3, 8)", r.Realizations, r.Samples)
	}
	if len(r.Analytes) != 1 || r.Analytes[0] != "ti" {
		t.Errorf("analytes %v", r.Analytes)
	}
}

func TestBuildErrorsAreTyped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mixing.Kind = "vortex"
	if _, err := Build(cfg); !errors.Is(err, check.ErrDomain) {
		t.Errorf("expected domain error, got %v", err)
	}
	cfg = DefaultConfig()
	cfg.Analytes[0].Leaching.Asymptote = 1.0
	if _, err := Build(cfg); !errors.Is(err, check.ErrConstraint) {
		t.Errorf("expected constraint violation, got %v", err)
	}
}
