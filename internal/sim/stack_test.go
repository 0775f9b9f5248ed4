package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/soilstack/erwsim/internal/geochem"
	"github.com/soilstack/erwsim/internal/leach"
	"github.com/soilstack/erwsim/internal/plan"
)

// buildStackFixture wires a small deployment whose procedure redraws the
// core set and refills every parameter each realization.
func buildStackFixture(t *testing.T, seed uint64, nreal int) (*Results, error) {
	t.Helper()
	analytes, err := geochem.NewAnalytes("ca", "mg")
	if err != nil {
		t.Fatal(err)
	}

	rng := testRNG(seed)
	pg := plan.Rect(0, 0, 100, 100)
	p, err := plan.PairedPlan(rng, pg, 4, []float64{-0.03, 0.5, 1.0}, 0.25)
	if err != nil {
		t.Fatal(err)
	}

	const ncore = 5
	cores := plan.NewCoreSet(ncore, p.NSamples())
	s, err := New(analytes, ncore, p.NSamples())
	if err != nil {
		t.Fatal(err)
	}

	model, err := leach.NewExponential(1.0, 0.89, 0)
	if err != nil {
		t.Fatal(err)
	}
	immobile := leach.NoLeaching{}

	rsd, err := geochem.CompositionOf(analytes, 0.02, 0.02)
	if err != nil {
		t.Fatal(err)
	}

	proc := func() error {
		if err := cores.Draw(rng, p, plan.SquareStencil{Side: 2}, plan.Jitter{Sigma: 0.5}); err != nil {
			return err
		}
		if err := s.Spreading(rng, Const(1.2), p); err != nil {
			return err
		}
		if err := s.CoreArea(0.005); err != nil {
			return err
		}
		if err := s.SoilDensity(rng, Const(1e3)); err != nil {
			return err
		}
		if err := s.FeedstockDensity(rng, Const(1.5e3)); err != nil {
			return err
		}
		if err := s.UniformMixing(rng, jitterDepth{rng: rng, mean: 0.1}, fixed(0.12)); err != nil {
			return err
		}
		if err := s.FeedstockConcentration(rng, "ca", Const(0.07)); err != nil {
			return err
		}
		if err := s.FeedstockConcentration(rng, "mg", Const(0.05)); err != nil {
			return err
		}
		if err := s.SoilConcentration(rng, "ca", Const(1e-3)); err != nil {
			return err
		}
		if err := s.SoilConcentration(rng, "mg", Const(8e-4)); err != nil {
			return err
		}
		if err := s.Leaching(rng, "ca", model, p); err != nil {
			return err
		}
		if err := s.Leaching(rng, "mg", immobile, p); err != nil {
			return err
		}
		if err := s.Massloss(func(l geochem.Composition) float64 {
			ca, _ := l.Get("ca")
			return 0.07 * ca
		}, p); err != nil {
			return err
		}
		return s.Analyze(rng, rsd, 0.01)
	}

	return RunStack(s, cores, p, nreal, proc, nil)
}

func TestRunStackShape(t *testing.T) {
	const nreal = 20
	r, err := buildStackFixture(t, 1, nreal)
	if err != nil {
		t.Fatalf("RunStack: %v", err)
	}

	if r.Realizations != nreal || r.Samples != 12 {
		t.Fatalf("shape (%d, %d), want (%d, 12)", r.Realizations, r.Samples, nreal)
	}
	if r.Bands() != 3 || r.MassBand() != 2 {
		t.Fatalf("bands = %d, mass band = %d", r.Bands(), r.MassBand())
	}
	if len(r.Data) != nreal*3*12 {
		t.Fatalf("data length %d", len(r.Data))
	}
	if len(r.Analytes) != 2 || r.Analytes[0] != "ca" || r.Analytes[1] != "mg" {
		t.Fatalf("analytes %v", r.Analytes)
	}

	// Static columns mirror the plan.
	if r.Time[0] != -0.03 || !r.Control[0] || r.Round[11] != 3 {
		t.Errorf("static columns wrong: time[0]=%g control[0]=%v round[11]=%d", r.Time[0], r.Control[0], r.Round[11])
	}

	// Every captured value is finite and masses are positive.
	for i := 0; i < nreal; i++ {
		for b := 0; b < r.Bands(); b++ {
			for k := 0; k < r.Samples; k++ {
				v := r.At(i, b, k)
				if math.IsNaN(v) || math.IsInf(v, 0) {
					t.Fatalf("non-finite value at (%d,%d,%d)", i, b, k)
				}
			}
		}
		for k := 0; k < r.Samples; k++ {
			if r.At(i, r.MassBand(), k) <= 0 {
				t.Fatalf("non-positive mass at (%d,%d)", i, k)
			}
		}
	}
}

func TestRunStackDeterministic(t *testing.T) {
	a, err := buildStackFixture(t, 77, 10)
	if err != nil {
		t.Fatal(err)
	}
	b, err := buildStackFixture(t, 77, 10)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			t.Fatalf("data diverges at %d: %g vs %g", i, a.Data[i], b.Data[i])
		}
	}
	for i := range a.X {
		if a.X[i] != b.X[i] || a.Y[i] != b.Y[i] {
			t.Fatalf("coordinates diverge at %d", i)
		}
	}
}

func TestRunStackSeedsDiffer(t *testing.T) {
	a, err := buildStackFixture(t, 1, 5)
	if err != nil {
		t.Fatal(err)
	}
	b, err := buildStackFixture(t, 2, 5)
	if err != nil {
		t.Fatal(err)
	}
	same := true
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical stacks")
	}
}

func TestRunStackControlsCarryNoFeedstock(t *testing.T) {
	r, err := buildStackFixture(t, 5, 30)
	if err != nil {
		t.Fatal(err)
	}
	// Averaged over realizations, control concentrations stay near soil
	// baseline while post-spreading treatment samples are enriched.
	var ctrlSum, treatSum float64
	var nctrl, ntreat int
	for i := 0; i < r.Realizations; i++ {
		for k := 0; k < r.Samples; k++ {
			if r.Time[k] < 0 {
				continue
			}
			v := r.At(i, 0, k) // ca band
			if r.Control[k] {
				ctrlSum += v
				nctrl++
			} else {
				treatSum += v
				ntreat++
			}
		}
	}
	ctrl := ctrlSum / float64(nctrl)
	treat := treatSum / float64(ntreat)
	if treat < ctrl*1.2 {
		t.Errorf("treatment mean %g not enriched over control mean %g", treat, ctrl)
	}
	if math.Abs(ctrl-1e-3)/1e-3 > 0.05 {
		t.Errorf("control mean %g far from soil baseline 1e-3", ctrl)
	}
}

func TestRunStackWrapsProcedureError(t *testing.T) {
	analytes := singleAnalyte(t)
	s, err := New(analytes, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	p := onePointPlan(0.5, false)
	cores := plan.NewCoreSet(1, 1)

	boom := errors.New("boom")
	calls := 0
	_, err = RunStack(s, cores, p, 10, func() error {
		calls++
		if calls == 3 {
			return boom
		}
		rng := testRNG(uint64(calls))
		fillBaseline(t, s, p, rng)
		return s.Analyze(rng, geochem.NewComposition(analytes), 0)
	}, nil)

	var re *RealizationError
	if !errors.As(err, &re) {
		t.Fatalf("expected RealizationError, got %v", err)
	}
	if re.Realization != 3 {
		t.Errorf("failure attributed to realization %d, want 3", re.Realization)
	}
	if !errors.Is(err, boom) {
		t.Error("wrapped cause lost")
	}
}

func TestRunStackZeroAllocationPerRealization(t *testing.T) {
	analytes := singleAnalyte(t)
	s, err := New(analytes, 3, 4)
	if err != nil {
		t.Fatal(err)
	}
	p := flatPlan(4, 0.5)
	rng := testRNG(11)
	rsd := geochem.NewComposition(analytes)

	fillBaseline(t, s, p, rng)
	if err := s.Analyze(rng, rsd, 0.01); err != nil {
		t.Fatal(err)
	}

	avg := testing.AllocsPerRun(200, func() {
		if err := s.Spreading(rng, Const(1.0), p); err != nil {
			t.Fatal(err)
		}
		if err := s.Unmixed(rng, fixed(0.1)); err != nil {
			t.Fatal(err)
		}
		if err := s.Analyze(rng, rsd, 0.01); err != nil {
			t.Fatal(err)
		}
	})
	if avg != 0 {
		t.Errorf("refill and analyze allocated %.1f times per realization", avg)
	}
}
