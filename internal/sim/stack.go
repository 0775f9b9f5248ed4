package sim

import (
	"fmt"
	"log/slog"

	"github.com/soilstack/erwsim/internal/check"
	"github.com/soilstack/erwsim/internal/plan"
)

// Results is the realization stack's output tensor plus the static
// per-sample metadata copied once from the plan. Data is laid out
// (realization, band, sample) row-major, where the bands are the analytes
// in canonical order followed by the mass band.
type Results struct {
	Realizations int
	Samples      int
	Analytes     []string

	Data []float64 // (realization, analyte+1, sample)
	X    []float64 // (realization, sample): mean core easting per sample
	Y    []float64 // (realization, sample): mean core northing per sample

	Location []int
	Round    []int
	Time     []float64
	Control  []bool

	Comment string // free-text provenance
}

// Bands is the number of value bands per realization: analytes plus mass.
func (r *Results) Bands() int { return len(r.Analytes) + 1 }

// MassBand is the band index holding sample masses.
func (r *Results) MassBand() int { return len(r.Analytes) }

// At returns the value for one realization, band, and sample.
func (r *Results) At(realization, band, sample int) float64 {
	return r.Data[(realization*r.Bands()+band)*r.Samples+sample]
}

// XY returns the mean core coordinates for one realization and sample.
func (r *Results) XY(realization, sample int) (x, y float64) {
	return r.X[realization*r.Samples+sample], r.Y[realization*r.Samples+sample]
}

// RealizationError reports which realization a failure aborted the stack
// in. Completed realizations are not salvaged.
type RealizationError struct {
	Realization int
	Err         error
}

func (e *RealizationError) Error() string {
	return fmt.Sprintf("realization %d: %v", e.Realization, e.Err)
}

func (e *RealizationError) Unwrap() error { return e.Err }

// RunStack repeats the caller-supplied procedure for every realization,
// capturing the simulation's measurements into the result tensor after
// each invocation. The procedure must leave the simulation's measurement
// slots fully populated, normally by redrawing the core set, refilling
// the parameter matrices, and calling Analyze.
//
// Iteration is sequential and, after the Results allocation here, the
// loop itself performs no heap allocation. A nil logger disables progress
// reporting.
func RunStack(s *Simulation, cores *plan.CoreSet, p *plan.SamplePlan, nreal int, proc func() error, logger *slog.Logger) (*Results, error) {
	if nreal <= 0 {
		return nil, &check.DomainError{Op: "sim.RunStack", Detail: "need at least one realization"}
	}
	if err := s.checkPlan("sim.RunStack", p); err != nil {
		return nil, err
	}
	if cores.NSamples() != s.nsample || cores.NCores() != s.ncore {
		return nil, &check.DomainError{Op: "sim.RunStack", Detail: "core set shape does not match simulation"}
	}

	ns := s.nsample
	na := s.analytes.Len()
	r := &Results{
		Realizations: nreal,
		Samples:      ns,
		Analytes:     s.analytes.Names(),
		Data:         make([]float64, nreal*(na+1)*ns),
		X:            make([]float64, nreal*ns),
		Y:            make([]float64, nreal*ns),
		Location:     make([]int, ns),
		Round:        make([]int, ns),
		Time:         make([]float64, ns),
		Control:      make([]bool, ns),
	}
	copy(r.Location, p.Location)
	copy(r.Round, p.Round)
	copy(r.Time, p.Time)
	copy(r.Control, p.Control)

	progress := nreal / 10
	if progress == 0 {
		progress = 1
	}

	for i := 0; i < nreal; i++ {
		if err := proc(); err != nil {
			return nil, &RealizationError{Realization: i + 1, Err: err}
		}

		base := i * (na + 1) * ns
		for a := 0; a < na; a++ {
			row := r.Data[base+a*ns : base+(a+1)*ns]
			for k := 0; k < ns; k++ {
				row[k] = s.measurements[k].Conc.At(a)
			}
		}
		massRow := r.Data[base+na*ns : base+(na+1)*ns]
		for k := 0; k < ns; k++ {
			massRow[k] = s.measurements[k].Mass
		}

		if err := cores.MeanInto(r.X[i*ns:(i+1)*ns], r.Y[i*ns:(i+1)*ns]); err != nil {
			return nil, &RealizationError{Realization: i + 1, Err: err}
		}

		if logger != nil && (i+1)%progress == 0 {
			logger.Info("realization stack progress", "done", i+1, "total", nreal)
		}
	}
	return r, nil
}
