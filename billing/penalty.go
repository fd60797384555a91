/*
penalty.go - Late-payment surcharge

PURPOSE:
  Computes the penalty on an overdue bill:

    evaluationDate <= dueDate  ->  0
    evaluationDate >  dueDate  ->  totalAmountDue * ratePercent / 100

RATE OWNERSHIP:
  The rate percentage lives in mutable configuration OUTSIDE this package
  and is passed in on every call. There is no default rate here: a
  configuration change is picked up on the very next evaluation without a
  code change, and settled bills are never retroactively recomputed because
  nothing here reads the current value.

PREVIEW SAFETY:
  This function also backs the "potential penalty" warning shown before any
  penalty is applied. It has no side effects and is safe to call repeatedly
  with the same inputs.

SEE ALSO:
  - engine.go: PreviewPenalty threads the caller's rate through
*/
package billing

import "github.com/shopspring/decimal"

var oneHundred = decimal.NewFromInt(100)

// Penalty returns the late-payment surcharge for a bill evaluated at
// evaluationDate against its dueDate, at ratePercent percent of the total
// amount due. Returns zero whenever the bill is not yet overdue.
func Penalty(totalAmountDue decimal.Decimal, evaluationDate, dueDate Date, ratePercent decimal.Decimal) (decimal.Decimal, error) {
	if totalAmountDue.IsNegative() {
		return decimal.Zero, &ValidationError{Field: "totalAmountDue", Message: "must not be negative"}
	}
	if ratePercent.IsNegative() {
		return decimal.Zero, &ValidationError{Field: "penaltyRatePercent", Message: "must not be negative"}
	}
	if evaluationDate.IsZero() {
		return decimal.Zero, &ValidationError{Field: "evaluationDate", Message: "must be set"}
	}
	if dueDate.IsZero() {
		return decimal.Zero, &ValidationError{Field: "dueDate", Message: "must be set"}
	}

	if evaluationDate.BeforeOrEqual(dueDate) {
		return decimal.Zero, nil
	}

	return totalAmountDue.Mul(ratePercent).Div(oneHundred), nil
}
