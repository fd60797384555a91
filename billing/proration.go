/*
proration.go - Partial-occupancy charge scaling

PURPOSE:
  Scales a full-cycle charge down to the span actually occupied:

    prorated = fullAmount * daysOccupied / totalDaysInCycle

  where daysOccupied counts [cycleStart, throughDate] inclusive of both
  boundary days, and totalDaysInCycle counts the whole cycle the same way.

ROUNDING:
  The result is NOT pre-rounded here. Rounding to the smallest currency
  unit happens once, at the point the caller persists the amount. Rounding
  inside this function would compound error across repeated calls (penalty
  preview, settlement preview, final settlement all prorate the same rent).

CLAMPING:
  throughDate outside [cycleStart, cycleEnd] is a validation error, not a
  clamp. Callers clamp against actual occupancy before calling; a silent
  clamp here would hide caller bugs as plausible-looking amounts.

SEE ALSO:
  - cycle.go:  Produces the period boundaries
  - engine.go: Prorates rent and water at move-out
*/
package billing

import "github.com/shopspring/decimal"

// Prorate scales fullAmount to the occupied span [cycleStart, throughDate]
// within the cycle [cycleStart, cycleEnd].
func Prorate(fullAmount decimal.Decimal, cycleStart, cycleEnd, throughDate Date) (decimal.Decimal, error) {
	if fullAmount.IsNegative() {
		return decimal.Zero, &ValidationError{Field: "fullAmount", Message: "must not be negative"}
	}
	if cycleStart.IsZero() || cycleEnd.IsZero() {
		return decimal.Zero, &ValidationError{Field: "cycle", Message: "start and end must be set"}
	}
	if cycleEnd.Before(cycleStart) {
		return decimal.Zero, &ValidationError{Field: "cycleEnd", Message: "must not be before cycle start"}
	}
	if throughDate.Before(cycleStart) || throughDate.After(cycleEnd) {
		return decimal.Zero, &ValidationError{Field: "throughDate", Message: "must lie within the billing cycle"}
	}

	daysOccupied := DaysInclusive(cycleStart, throughDate)
	totalDays := DaysInclusive(cycleStart, cycleEnd)

	// Full occupancy returns the full amount bit-identically, with no
	// division in the path.
	if daysOccupied == totalDays {
		return fullAmount, nil
	}

	return fullAmount.
		Mul(decimal.NewFromInt(int64(daysOccupied))).
		Div(decimal.NewFromInt(int64(totalDays))), nil
}
