package geochem

import (
	"fmt"
	"strings"

	"github.com/soilstack/erwsim/internal/check"
)

// Analytes is an immutable ordered set of analyte names. Construction
// order is the canonical analyte order for every Composition built from
// it; all operations on two compositions require the same Analytes.
type Analytes struct {
	names []string
}

func NewAnalytes(names ...string) (Analytes, error) {
	if len(names) == 0 {
		return Analytes{}, &check.DomainError{Op: "geochem.NewAnalytes", Detail: "need at least one analyte"}
	}
	seen := make(map[string]bool, len(names))
	owned := make([]string, len(names))
	for i, n := range names {
		if n == "" {
			return Analytes{}, &check.DomainError{Op: "geochem.NewAnalytes", Detail: "empty analyte name"}
		}
		if seen[n] {
			return Analytes{}, &check.DomainError{Op: "geochem.NewAnalytes", Detail: fmt.Sprintf("duplicate analyte %q", n)}
		}
		seen[n] = true
		owned[i] = n
	}
	return Analytes{names: owned}, nil
}

func (a Analytes) Len() int          { return len(a.names) }
func (a Analytes) Name(i int) string { return a.names[i] }

// Names returns a copy of the canonical name order.
func (a Analytes) Names() []string {
	out := make([]string, len(a.names))
	copy(out, a.names)
	return out
}

func (a Analytes) Index(name string) (int, bool) {
	for i, n := range a.names {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// Same reports whether b has the identical key set and order. Compositions
// sharing one Analytes value hit the fast path.
func (a Analytes) Same(b Analytes) bool {
	if len(a.names) != len(b.names) {
		return false
	}
	if len(a.names) == 0 || &a.names[0] == &b.names[0] {
		return true
	}
	for i := range a.names {
		if a.names[i] != b.names[i] {
			return false
		}
	}
	return true
}

// Composition is an ordered mapping from analyte to a fractional mass
// concentration. The value slice parallels the Analytes order.
type Composition struct {
	keys Analytes
	vals []float64
}

// NewComposition allocates a zero-valued composition over the key set.
func NewComposition(keys Analytes) Composition {
	return Composition{keys: keys, vals: make([]float64, keys.Len())}
}

// CompositionOf builds a composition from values in canonical order.
func CompositionOf(keys Analytes, vals ...float64) (Composition, error) {
	if len(vals) != keys.Len() {
		return Composition{}, &check.DomainError{
			Op:     "geochem.CompositionOf",
			Detail: fmt.Sprintf("%d values for %d analytes", len(vals), keys.Len()),
		}
	}
	owned := make([]float64, len(vals))
	copy(owned, vals)
	return Composition{keys: keys, vals: owned}, nil
}

func (c Composition) Analytes() Analytes  { return c.keys }
func (c Composition) Len() int            { return len(c.vals) }
func (c Composition) At(i int) float64    { return c.vals[i] }
func (c Composition) SetAt(i int, v float64) { c.vals[i] = v }

func (c Composition) Get(name string) (float64, bool) {
	i, ok := c.keys.Index(name)
	if !ok {
		return 0, false
	}
	return c.vals[i], true
}

func (c Composition) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, n := range c.keys.names {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %g", n, c.vals[i])
	}
	b.WriteByte('}')
	return b.String()
}

func (c Composition) clone() Composition {
	vals := make([]float64, len(c.vals))
	copy(vals, c.vals)
	return Composition{keys: c.keys, vals: vals}
}
