package check

import (
	"errors"
	"fmt"
)

// Error kinds shared across the simulation packages. Typed errors below
// match these sentinels through errors.Is.
var (
	// ErrConstraint indicates a physical quantity outside its documented domain.
	ErrConstraint = errors.New("check: physical constraint violated")

	// ErrDomain indicates malformed input shape or type, such as mismatched
	// analyte key sets or a mixing profile with negative support.
	ErrDomain = errors.New("check: domain error")

	// ErrIterationLimit indicates rejection sampling exceeded its cap.
	ErrIterationLimit = errors.New("check: iteration limit exceeded")
)

// ConstraintError reports a quantity that violates a physical bound. The
// core never clamps: a violation aborts the operation that computed it.
type ConstraintError struct {
	Quantity   string
	Value      float64
	Constraint string
	Detail     string
}

func (e *ConstraintError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s = %g violates %s (%s)", e.Quantity, e.Value, e.Constraint, e.Detail)
	}
	return fmt.Sprintf("%s = %g violates %s", e.Quantity, e.Value, e.Constraint)
}

func (e *ConstraintError) Is(target error) bool { return target == ErrConstraint }

// DomainError reports structurally invalid input to an operation.
type DomainError struct {
	Op     string
	Detail string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Detail)
}

func (e *DomainError) Is(target error) bool { return target == ErrDomain }
