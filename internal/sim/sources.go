package sim

import (
	"math/rand/v2"

	"github.com/soilstack/erwsim/internal/field"
)

// Sampler draws one scalar. The gonum distuv distributions satisfy it.
type Sampler interface {
	Rand() float64
}

// Source supplies one value per sample location for a setter: a constant,
// independent draws from a distribution, or a correlated field draw.
type Source interface {
	fill(rng *rand.Rand, out []float64) error
}

// Const fills every sample with the same value.
type Const float64

func (c Const) fill(_ *rand.Rand, out []float64) error {
	for i := range out {
		out[i] = float64(c)
	}
	return nil
}

// Draw fills each sample with an independent draw from Dist.
type Draw struct {
	Dist Sampler
}

func (d Draw) fill(_ *rand.Rand, out []float64) error {
	for i := range out {
		out[i] = d.Dist.Rand()
	}
	return nil
}

// Field fills the samples with one draw of a correlated Gaussian field.
// The generator must already be refreshed for the plan's point locations.
type Field struct {
	Gen *field.GaussianSimulator
}

func (f Field) fill(rng *rand.Rand, out []float64) error {
	return f.Gen.SampleInto(rng, out)
}
