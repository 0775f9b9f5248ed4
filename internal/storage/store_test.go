package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/soilstack/erwsim/internal/config"
	"github.com/soilstack/erwsim/internal/sim"
)

func testResults() *sim.Results {
	// 2 realizations, 2 analytes, 3 samples.
	return &sim.Results{
		Realizations: 2,
		Samples:      3,
		Analytes:     []string{"ca", "mg"},
		Data: []float64{
			// realization 1: ca, mg, mass rows
			1.1e-3, 1.2e-3, 1.3e-3,
			0.9e-3, 0.8e-3, 0.7e-3,
			120, 121, 122,
			// realization 2
			2.1e-3, 2.2e-3, 2.3e-3,
			1.9e-3, 1.8e-3, 1.7e-3,
			130, 131, 132,
		},
		X:        []float64{1, 2, 3, 1.5, 2.5, 3.5},
		Y:        []float64{4, 5, 6, 4.5, 5.5, 6.5},
		Location: []int{1, 2, 3},
		Round:    []int{1, 1, 2},
		Time:     []float64{-0.05, 0.5, 0.5},
		Control:  []bool{true, false, false},
		Comment:  "fixture",
	}
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Name = "fixture"
	cfg.Seed = 11
	return cfg
}

func TestSaveAndList(t *testing.T) {
	s := New(t.TempDir())
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}

	runID, err := s.Save(testConfig(), testResults())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if runID == "" {
		t.Fatal("empty run id")
	}

	for _, name := range []string{"metadata.json", "config.yaml", "data.csv"} {
		if _, err := os.Stat(filepath.Join(s.Dir(runID), name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	runs, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("listed %d runs, want 1", len(runs))
	}
	if runs[0].ID != runID || runs[0].Name != "fixture" || runs[0].Seed != 11 {
		t.Errorf("metadata mismatch: %+v", runs[0])
	}
	if runs[0].Realizations != 2 || runs[0].Samples != 3 {
		t.Errorf("shape mismatch: %+v", runs[0])
	}
}

func TestListEmptyAndMissing(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "never-created"))
	runs, err := s.List()
	if err != nil {
		t.Fatalf("List on missing dir: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}
	if _, err := s.Load("nope"); err == nil {
		t.Error("expected error loading a missing run")
	}
}

func TestListSkipsForeignEntries(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	if err := os.MkdirAll(filepath.Join(dir, "not-a-run"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "stray.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	runs, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 0 {
		t.Errorf("expected foreign entries to be skipped, got %d runs", len(runs))
	}
}

func TestDataRoundtrip(t *testing.T) {
	s := New(t.TempDir())
	want := testResults()
	runID, err := s.Save(testConfig(), want)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.LoadData(runID)
	if err != nil {
		t.Fatalf("LoadData: %v", err)
	}

	if got.Realizations != want.Realizations || got.Samples != want.Samples {
		t.Fatalf("shape (%d, %d), want (%d, %d)", got.Realizations, got.Samples, want.Realizations, want.Samples)
	}
	for i := range want.Data {
		if got.Data[i] != want.Data[i] {
			t.Fatalf("data[%d] = %g, want %g", i, got.Data[i], want.Data[i])
		}
	}
	for i := range want.X {
		if got.X[i] != want.X[i] || got.Y[i] != want.Y[i] {
			t.Fatalf("coordinates differ at %d", i)
		}
	}
	for k := 0; k < want.Samples; k++ {
		if got.Location[k] != want.Location[k] || got.Round[k] != want.Round[k] ||
			got.Time[k] != want.Time[k] || got.Control[k] != want.Control[k] {
			t.Fatalf("static columns differ at sample %d", k)
		}
	}
	if got.Comment != "fixture" {
		t.Errorf("comment %q", got.Comment)
	}
}

func TestLoadConfigRoundtrip(t *testing.T) {
	s := New(t.TempDir())
	cfg := testConfig()
	cfg.Realizations = 7
	runID, err := s.Save(cfg, testResults())
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.LoadConfig(runID)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got.Name != "fixture" || got.Seed != 11 || got.Realizations != 7 {
		t.Errorf("config roundtrip lost fields: %+v", got)
	}
}
