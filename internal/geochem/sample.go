// Package geochem implements the deterministic mixing model at the heart
// of the simulator: the exact composition of a soil core mixed with
// weathered feedstock, mass-weighted compositing of cores, and analytical
// measurement noise.
package geochem

import (
	"github.com/soilstack/erwsim/internal/check"
)

// Sample is the exact, noise-free state of one physical core or a
// composite of cores. Treat as immutable once created: compositing
// produces new values.
type Sample struct {
	Conc  Composition
	Mass  float64
	Cores int
}

// Measurement is a sample after analytical noise. Core counts do not
// survive measurement; compositing no longer applies.
type Measurement struct {
	Conc Composition
	Mass float64
}

// Add composites two samples: total mass, mass-weighted concentrations,
// summed core counts. Both must share the same analyte key set and order.
func Add(a, b Sample) (Sample, error) {
	if !a.Conc.keys.Same(b.Conc.keys) {
		return Sample{}, &check.DomainError{Op: "geochem.Add", Detail: "analyte key sets differ"}
	}
	m := a.Mass + b.Mass
	out := Sample{Conc: NewComposition(a.Conc.keys), Mass: m, Cores: a.Cores + b.Cores}
	for i := range out.Conc.vals {
		out.Conc.vals[i] = (a.Mass*a.Conc.vals[i] + b.Mass*b.Conc.vals[i]) / m
	}
	return out, nil
}

// Sum composites any number of samples.
func Sum(samples ...Sample) (Sample, error) {
	if len(samples) == 0 {
		return Sample{}, &check.DomainError{Op: "geochem.Sum", Detail: "no samples"}
	}
	acc := Sample{Conc: samples[0].Conc.clone(), Mass: samples[0].Mass, Cores: samples[0].Cores}
	if err := sumTail(&acc, samples[1:]); err != nil {
		return Sample{}, err
	}
	return acc, nil
}

// SumInto composites samples into dst without allocating. dst's
// composition buffer is overwritten; its key set must match.
func SumInto(dst *Sample, samples []Sample) error {
	if len(samples) == 0 {
		return &check.DomainError{Op: "geochem.SumInto", Detail: "no samples"}
	}
	if !dst.Conc.keys.Same(samples[0].Conc.keys) {
		return &check.DomainError{Op: "geochem.SumInto", Detail: "analyte key sets differ"}
	}
	copy(dst.Conc.vals, samples[0].Conc.vals)
	dst.Mass = samples[0].Mass
	dst.Cores = samples[0].Cores
	return sumTail(dst, samples[1:])
}

func sumTail(acc *Sample, rest []Sample) error {
	for k := range rest {
		s := &rest[k]
		if !acc.Conc.keys.Same(s.Conc.keys) {
			return &check.DomainError{Op: "geochem.Sum", Detail: "analyte key sets differ"}
		}
		m := acc.Mass + s.Mass
		for i := range acc.Conc.vals {
			acc.Conc.vals[i] = (acc.Mass*acc.Conc.vals[i] + s.Mass*s.Conc.vals[i]) / m
		}
		acc.Mass = m
		acc.Cores += s.Cores
	}
	return nil
}
