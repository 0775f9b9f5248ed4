package check

import (
	"errors"
	"math"
	"testing"
)

func TestPredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		ok   bool
	}{
		{"positive pass", Positive("q", 1.5), true},
		{"positive inf", Positive("q", math.Inf(1)), true},
		{"positive zero", Positive("q", 0), false},
		{"positive nan", Positive("q", math.NaN()), false},
		{"nonnegative zero", NonNegative("q", 0), true},
		{"nonnegative fail", NonNegative("q", -1e-12), false},
		{"fractional zero", Fractional("q", 0), true},
		{"fractional one", Fractional("q", 1), true},
		{"fractional above", Fractional("q", 1.0001), false},
		{"fractional nan", Fractional("q", math.NaN()), false},
		{"lessthanone pass", LessThanOne("q", 0.999), true},
		{"lessthanone fail", LessThanOne("q", 1), false},
		{"finite pass", Finite("q", -3.5), true},
		{"finite inf", Finite("q", math.Inf(-1)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.ok && tt.err != nil {
				t.Errorf("expected pass, got %v", tt.err)
			}
			if !tt.ok && tt.err == nil {
				t.Error("expected violation, got nil")
			}
		})
	}
}

func TestErrorKinds(t *testing.T) {
	var cerr error = &ConstraintError{Quantity: "depth", Value: -0.1, Constraint: ">= 0"}
	if !errors.Is(cerr, ErrConstraint) {
		t.Error("ConstraintError should match ErrConstraint")
	}
	if errors.Is(cerr, ErrDomain) {
		t.Error("ConstraintError should not match ErrDomain")
	}

	var derr error = &DomainError{Op: "mixing", Detail: "analyte key mismatch"}
	if !errors.Is(derr, ErrDomain) {
		t.Error("DomainError should match ErrDomain")
	}
}

func TestConstraintErrorMessage(t *testing.T) {
	err := Fractional("leached fraction", 1.2)
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if msg != "leached fraction = 1.2 violates in [0, 1]" {
		t.Errorf("unexpected message: %q", msg)
	}
}
