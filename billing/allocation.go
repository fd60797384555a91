/*
allocation.go - Payment distribution across bill categories

PURPOSE:
  Splits one payment amount across a bill's component amounts in fixed
  priority order: penalty, extra fee, electricity, water, rent. Each
  category takes min(remaining payment, component amount); zero-amount
  categories are skipped and never emit a component.

OVERFLOW IS DROPPED, NOT RAISED:
  If the payment exceeds the sum of all components, the excess is NOT
  assigned to any category. This is a deliberate design boundary: how to
  treat an overpayment (credit balance, refund, reject) is the caller's
  product decision, and encoding one here would bake that decision into
  every call site. The engine reports the unallocated remainder so callers
  can act on it; Allocate itself stays silent about it.

TOLERANCE CHECK:
  ValidateComponents guards internal consistency: the component amounts of
  a recorded payment must sum to the expected total within 0.01. A failure
  means caller-assembled components drifted from the bill's persisted total
  and is surfaced as a ConsistencyError, distinct from input validation, so
  the caller can raise a data-integrity alarm. It is NOT the mechanism for
  detecting legitimate overpayment.

SEE ALSO:
  - types.go:  AllocationOrder, BillComponents, PaymentComponent
  - errors.go: ConsistencyError
  - engine.go: RecordPayment composes Allocate + ValidateComponents
*/
package billing

import "github.com/shopspring/decimal"

// allocationTolerance is the maximum absolute drift allowed between a
// component sum and its expected total.
var allocationTolerance = decimal.RequireFromString("0.01")

// Allocate distributes paymentAmount across the bill's components in
// priority order. The returned components are ordered by priority and
// contain no zero amounts. Any payment in excess of the component total is
// silently dropped (see the file header).
func Allocate(paymentAmount decimal.Decimal, components BillComponents) ([]PaymentComponent, error) {
	if !paymentAmount.IsPositive() {
		return nil, &ValidationError{Field: "paymentAmount", Message: "must be positive"}
	}
	if err := components.Validate(); err != nil {
		return nil, err
	}

	var allocated []PaymentComponent
	remaining := paymentAmount

	for _, category := range AllocationOrder {
		if remaining.IsZero() {
			break
		}
		available := components.Amount(category)
		if available.IsZero() {
			continue
		}
		take := decimal.Min(remaining, available)
		allocated = append(allocated, PaymentComponent{Category: category, Amount: take})
		remaining = remaining.Sub(take)
	}

	return allocated, nil
}

// ValidateComponents checks that the component amounts sum to expectedTotal
// within the 0.01 tolerance, and that every component is positive, carries a
// known category, and no category appears twice.
func ValidateComponents(components []PaymentComponent, expectedTotal decimal.Decimal) error {
	seen := make(map[Category]bool, len(components))
	for _, pc := range components {
		if !ValidCategory(pc.Category) {
			return &ValidationError{Field: "category", Message: "unknown category " + string(pc.Category)}
		}
		if !pc.Amount.IsPositive() {
			return &ValidationError{Field: string(pc.Category), Message: "component amount must be positive"}
		}
		if seen[pc.Category] {
			return &ValidationError{Field: string(pc.Category), Message: "category allocated twice"}
		}
		seen[pc.Category] = true
	}

	actual := ComponentSum(components)
	if actual.Sub(expectedTotal).Abs().GreaterThanOrEqual(allocationTolerance) {
		return &ConsistencyError{Expected: expectedTotal, Actual: actual}
	}
	return nil
}
