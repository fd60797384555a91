/*
cycle.go - Billing period derivation

PURPOSE:
  Derives a tenant's monthly billing periods from their anchor date (the
  rent start date). Cycle N starts at the anchor shifted forward by N-1
  whole calendar months, preserving the anchor's day-of-month; the cycle
  ends one day before cycle N+1 starts.

DAY-OF-MONTH CLAMPING:
  An anchor on the 31st has no equivalent day in shorter months. The start
  is clamped to the last valid day of the target month:

    anchor 2025-01-31
    cycle 1: 2025-01-31 .. 2025-02-27
    cycle 2: 2025-02-28 .. 2025-03-30
    cycle 3: 2025-03-31 .. 2025-04-29

  Because the end is always defined as "start of next cycle minus one day",
  clamping can never produce overlapping cycles or gaps between them.

SEE ALSO:
  - time.go:       AddMonthsClamped
  - proration.go:  Consumes the derived period for partial occupancy
  - engine.go:     Chooses the cycle number from the fully-paid bill count
*/
package billing

// CycleFor derives the billing period for the given cycle number from the
// tenant's anchor date. cycleNumber counts from 1.
func CycleFor(anchor Date, cycleNumber int) (BillingCycle, error) {
	if anchor.IsZero() {
		return BillingCycle{}, &ValidationError{Field: "anchorDate", Message: "must be set"}
	}
	if cycleNumber < 1 {
		return BillingCycle{}, &ValidationError{Field: "cycleNumber", Message: "must be a positive integer"}
	}

	start := anchor.AddMonthsClamped(cycleNumber - 1)
	// End is defined in terms of the NEXT cycle's start so that consecutive
	// cycles are contiguous by construction, clamping included.
	end := anchor.AddMonthsClamped(cycleNumber).AddDays(-1)

	return BillingCycle{Number: cycleNumber, Start: start, End: end}, nil
}

// CurrentCycleNumber returns the next ungenerated cycle number: one past the
// tenant's count of fully paid bills.
func CurrentCycleNumber(fullyPaidBillCount int) (int, error) {
	if fullyPaidBillCount < 0 {
		return 0, &ValidationError{Field: "fullyPaidBillCount", Message: "must not be negative"}
	}
	return fullyPaidBillCount + 1, nil
}
