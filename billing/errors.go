/*
errors.go - Error taxonomy for the billing core

PURPOSE:
  Two error classes cover everything this package can raise:

  1. Validation errors - non-numeric, negative, or out-of-range inputs
     (throughDate outside the cycle, non-positive cycle number, non-positive
     payment amount). Raised before any computation proceeds; always name
     the offending input.
  2. Consistency errors - allocation component totals failing the 0.01
     tolerance check against the expected total. Surfaced distinctly so the
     caller can treat them as a data-integrity alarm rather than bad input.

  Nothing in this package performs I/O, so there are no retryable errors:
  the same invalid input always produces the same error.

USAGE:
  if billing.IsValidation(err) { ... 400 ... }
  if billing.IsConsistency(err) { ... 409 / alarm ... }

SEE ALSO:
  - allocation.go: Raises ConsistencyError
  - engine.go:     Propagates both classes unchanged
*/
package billing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the class sentinel for invalid inputs.
	ErrValidation = errors.New("invalid input")

	// ErrConsistency is the class sentinel for component totals that do not
	// match the expected payment or bill total within tolerance.
	ErrConsistency = errors.New("inconsistent component totals")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the input that failed and why.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ConsistencyError carries the mismatched totals so callers can log the
// exact discrepancy.
type ConsistencyError struct {
	Expected decimal.Decimal
	Actual   decimal.Decimal
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("component totals inconsistent: expected %s, got %s (diff %s)",
		e.Expected, e.Actual, e.Actual.Sub(e.Expected).Abs())
}

func (e *ConsistencyError) Unwrap() error { return ErrConsistency }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidation reports whether err is (or wraps) a validation error.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsConsistency reports whether err is (or wraps) a consistency error.
func IsConsistency(err error) bool { return errors.Is(err, ErrConsistency) }
