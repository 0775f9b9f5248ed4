package config

// Presets are ready-made deployment scenarios. Each is a complete Config;
// callers may still override fields before Build.
var Presets = map[string]func() *Config{
	"basalt":  DefaultConfig,
	"olivine": olivinePreset,
	"pilot":   pilotPreset,
	"survey":  surveyPreset,
}

// olivinePreset models a fast-weathering olivine application with a
// seasonal magnesium release and cross-correlated soil baselines.
func olivinePreset() *Config {
	cfg := DefaultConfig()
	cfg.Name = "olivine"
	cfg.Mixing = MixingConfig{Kind: "exponential", Depth: 0.1, DepthRSD: 0.05, Param: 0.05, ParamRSD: 0.1}
	cfg.FeedstockDensity = DrawConfig{Mean: 3.3e3, RSD: 0.02}
	cfg.Analytes = []AnalyteConfig{
		{
			Name:           "mg",
			Feedstock:      DrawConfig{Mean: 0.29, RSD: 0.02},
			Soil:           SourceConfig{Mean: 1.1e-3, Nugget: 6e-10, Sill: 2.5e-9, Range: 25, Model: "exponential"},
			Leaching:       LeachConfig{Kind: "seasonal", Rate: 1.2, Asymptote: 0.9, Floor: 0.2, Power: 2},
			MeasurementRSD: 0.02,
		},
		{
			Name:           "si",
			Feedstock:      DrawConfig{Mean: 0.19, RSD: 0.02},
			Soil:           SourceConfig{Mean: 3.2e-3, Nugget: 6e-10, Sill: 2.5e-9, Range: 25, Model: "exponential"},
			Leaching:       LeachConfig{Kind: "exponential", Rate: 0.5, Asymptote: 0.6},
			MeasurementRSD: 0.02,
		},
		{
			Name:           "ni",
			Feedstock:      DrawConfig{Mean: 0.003, RSD: 0.05},
			Soil:           SourceConfig{Mean: 2.0e-5, Nugget: 2.5e-13, Sill: 1e-12, Range: 25, Model: "exponential"},
			Leaching:       LeachConfig{Kind: "exponential", Rate: 0.3, Asymptote: 0.5},
			MeasurementRSD: 0.04,
		},
	}
	// Magnesium and silica weather from the same mineral, so their soil
	// baselines share spatial structure. Nickel is a trace element on a
	// different scale and keeps its own field.
	cfg.SoilPair = &PairConfig{
		A: "mg", B: "si", Rho: 0.6,
		Nugget: 6e-10, Sill: 2.5e-9, Range: 25, Model: "exponential",
	}
	return cfg
}

// pilotPreset is a small single-season trial: one post-application round,
// single-point cores, immobile tracer.
func pilotPreset() *Config {
	cfg := DefaultConfig()
	cfg.Name = "pilot"
	cfg.Realizations = 200
	cfg.Field = FieldConfig{X0: 0, Y0: 0, X1: 30, Y1: 30}
	cfg.Plan = PlanConfig{
		Kind:            "random",
		SamplesPerRound: 8,
		Times:           []float64{0.5},
		ControlFraction: 0.25,
	}
	cfg.Cores = CoreConfig{Count: 3, Stencil: "single", Jitter: 0.3, Area: DefaultCoreArea}
	cfg.Analytes = []AnalyteConfig{
		{
			Name:           "ti",
			Feedstock:      DrawConfig{Mean: 0.012, RSD: 0.03},
			Soil:           SourceConfig{Mean: 4.0e-3, RSD: 0.08},
			Leaching:       LeachConfig{Kind: "none"},
			MeasurementRSD: 0.03,
		},
	}
	return cfg
}

// surveyPreset lays a regular grid over the whole field, suited to
// mapping spatial structure rather than estimating a treatment effect.
func surveyPreset() *Config {
	cfg := DefaultConfig()
	cfg.Name = "survey"
	cfg.Plan = PlanConfig{
		Kind:            "grid",
		NX:              6,
		NY:              6,
		Times:           []float64{-0.05, 1.0},
		ControlFraction: 0,
	}
	cfg.Cores = CoreConfig{Count: 5, Stencil: "circle", Radius: 1.5, Jitter: 0.5, Area: DefaultCoreArea}
	return cfg
}

func GetPreset(name string) *Config {
	mk, ok := Presets[name]
	if !ok {
		return nil
	}
	return mk()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}
