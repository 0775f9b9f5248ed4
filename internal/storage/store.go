// Package storage persists simulation runs: one directory per run with
// the scenario configuration, a metadata summary, and the realization
// stack in long-format CSV.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/soilstack/erwsim/internal/config"
	"github.com/soilstack/erwsim/internal/sim"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

type RunMetadata struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Timestamp    time.Time `json:"timestamp"`
	Seed         uint64    `json:"seed"`
	Realizations int       `json:"realizations"`
	Samples      int       `json:"samples"`
	Analytes     []string  `json:"analytes"`
	Comment      string    `json:"comment,omitempty"`
}

// Save writes one run directory: metadata.json, config.yaml, and
// data.csv with one row per (realization, sample).
func (s *Store) Save(cfg *config.Config, r *sim.Results) (string, error) {
	runID := fmt.Sprintf("%s_%d", cfg.Name, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:           runID,
		Name:         cfg.Name,
		Timestamp:    time.Now(),
		Seed:         cfg.Seed,
		Realizations: r.Realizations,
		Samples:      r.Samples,
		Analytes:     r.Analytes,
		Comment:      r.Comment,
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	if err := config.Save(filepath.Join(runDir, "config.yaml"), cfg); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "data.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)

	header := []string{"realization", "sample", "location", "round", "time", "control", "x", "y"}
	header = append(header, r.Analytes...)
	header = append(header, "mass")
	if err := w.Write(header); err != nil {
		return "", err
	}

	row := make([]string, len(header))
	for i := 0; i < r.Realizations; i++ {
		for k := 0; k < r.Samples; k++ {
			x, y := r.XY(i, k)
			row[0] = strconv.Itoa(i + 1)
			row[1] = strconv.Itoa(k + 1)
			row[2] = strconv.Itoa(r.Location[k])
			row[3] = strconv.Itoa(r.Round[k])
			row[4] = formatFloat(r.Time[k])
			row[5] = strconv.FormatBool(r.Control[k])
			row[6] = formatFloat(x)
			row[7] = formatFloat(y)
			for a := range r.Analytes {
				row[8+a] = formatFloat(r.At(i, a, k))
			}
			row[len(row)-1] = formatFloat(r.At(i, r.MassBand(), k))
			if err := w.Write(row); err != nil {
				return "", err
			}
		}
	}
	w.Flush()
	return runID, w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}
		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadConfig reads back the scenario configuration saved with a run.
func (s *Store) LoadConfig(runID string) (*config.Config, error) {
	return config.Load(filepath.Join(s.baseDir, runID, "config.yaml"))
}

// LoadData reconstructs the realization stack from a run's data.csv. The
// run's metadata supplies the tensor shape.
func (s *Store) LoadData(runID string) (*sim.Results, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filepath.Join(s.baseDir, runID, "data.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	rd := csv.NewReader(file)
	records, err := rd.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("run %s: empty data file", runID)
	}

	na := len(meta.Analytes)
	nreal := meta.Realizations
	ns := meta.Samples
	if len(records)-1 != nreal*ns {
		return nil, fmt.Errorf("run %s: %d data rows for %d realizations of %d samples",
			runID, len(records)-1, nreal, ns)
	}

	r := &sim.Results{
		Realizations: nreal,
		Samples:      ns,
		Analytes:     meta.Analytes,
		Data:         make([]float64, nreal*(na+1)*ns),
		X:            make([]float64, nreal*ns),
		Y:            make([]float64, nreal*ns),
		Location:     make([]int, ns),
		Round:        make([]int, ns),
		Time:         make([]float64, ns),
		Control:      make([]bool, ns),
		Comment:      meta.Comment,
	}

	for _, rec := range records[1:] {
		if len(rec) != 9+na {
			return nil, fmt.Errorf("run %s: row has %d fields, want %d", runID, len(rec), 9+na)
		}
		i, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("run %s: bad realization index %q", runID, rec[0])
		}
		k, err := strconv.Atoi(rec[1])
		if err != nil {
			return nil, fmt.Errorf("run %s: bad sample index %q", runID, rec[1])
		}
		i--
		k--
		if i < 0 || i >= nreal || k < 0 || k >= ns {
			return nil, fmt.Errorf("run %s: index (%d, %d) out of range", runID, i+1, k+1)
		}

		r.Location[k], _ = strconv.Atoi(rec[2])
		r.Round[k], _ = strconv.Atoi(rec[3])
		r.Time[k], _ = strconv.ParseFloat(rec[4], 64)
		r.Control[k], _ = strconv.ParseBool(rec[5])
		r.X[i*ns+k], _ = strconv.ParseFloat(rec[6], 64)
		r.Y[i*ns+k], _ = strconv.ParseFloat(rec[7], 64)

		base := i * (na + 1) * ns
		for a := 0; a < na; a++ {
			v, err := strconv.ParseFloat(rec[8+a], 64)
			if err != nil {
				return nil, fmt.Errorf("run %s: bad value %q", runID, rec[8+a])
			}
			r.Data[base+a*ns+k] = v
		}
		mass, err := strconv.ParseFloat(rec[8+na], 64)
		if err != nil {
			return nil, fmt.Errorf("run %s: bad mass %q", runID, rec[8+na])
		}
		r.Data[base+na*ns+k] = mass
	}
	return r, nil
}
