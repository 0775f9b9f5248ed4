// Package check provides the numeric guards used at every boundary of the
// simulation pipeline, plus the shared error taxonomy. Each predicate
// returns nil on success or a *ConstraintError naming the offending
// quantity and value.
package check

import "math"

func Positive(name string, v float64) error {
	if !(v > 0) {
		return &ConstraintError{Quantity: name, Value: v, Constraint: "> 0"}
	}
	return nil
}

func NonNegative(name string, v float64) error {
	if !(v >= 0) {
		return &ConstraintError{Quantity: name, Value: v, Constraint: ">= 0"}
	}
	return nil
}

// Fractional requires v in the closed interval [0, 1].
func Fractional(name string, v float64) error {
	if !(v >= 0 && v <= 1) {
		return &ConstraintError{Quantity: name, Value: v, Constraint: "in [0, 1]"}
	}
	return nil
}

// LessThanOne requires v strictly below 1, used for asymptotes and
// cross-correlation coefficients where 1 is degenerate.
func LessThanOne(name string, v float64) error {
	if !(v < 1) {
		return &ConstraintError{Quantity: name, Value: v, Constraint: "< 1"}
	}
	return nil
}

func Finite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &ConstraintError{Quantity: name, Value: v, Constraint: "finite"}
	}
	return nil
}
