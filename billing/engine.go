/*
engine.go - Stateless orchestration of the calculators

PURPOSE:
  Wires the five calculators together for each external use case so that
  every call site (recurring billing, penalty preview, payment recording,
  move-out settlement) computes through the exact same path. Any drift
  between call sites is a real monetary discrepancy, so the collaborator
  layer is expected to go through this engine rather than call the
  calculators piecemeal.

OPERATIONS:
  GenerateBill    Derive the next cycle and assemble the charge breakdown
                  (penalty always starts at zero).
  PreviewPenalty  Non-destructive "potential penalty" figure for an
                  already-persisted bill.
  RecordPayment   Allocate one payment across the bill's outstanding
                  components and report the unallocated remainder.
  MoveOut         Prorate the final cycle, assemble total owed, apply the
                  deposit rule, and return the signed settlement balance.

STATE:
  None. Engine has no fields; it exists so call sites share one named
  composition rather than five ad-hoc ones. There are no retries here -
  nothing in this layer performs I/O.

SEE ALSO:
  - cycle.go, proration.go, penalty.go, allocation.go, deposit.go
*/
package billing

import "github.com/shopspring/decimal"

// Engine composes the calculators per use case. Stateless and safe for
// concurrent use.
type Engine struct{}

// =============================================================================
// BILL GENERATION
// =============================================================================

// GenerateBillInput carries everything bill generation needs, fetched by the
// caller: the tenant snapshot, the room's rates, this cycle's electricity
// meter pair, any extra fee, the tenant's fully-paid bill count, and the
// configured due-date offset in days from cycle start.
type GenerateBillInput struct {
	Tenant             TenantSnapshot
	Rates              RoomRates
	Electricity        MeterReading
	ExtraFee           decimal.Decimal
	FullyPaidBillCount int
	DueDateOffsetDays  int
}

// GeneratedBill is the breakdown plus computed totals for the caller to
// persist. TotalDue is not rounded; the caller rounds once at persistence.
type GeneratedBill struct {
	Cycle      BillingCycle
	DueDate    Date
	Components BillComponents
	TotalDue   decimal.Decimal
}

// GenerateBill derives the tenant's next billing cycle and assembles its
// charge breakdown. The penalty component is always zero on a fresh bill;
// penalties are computed against the persisted bill later.
func (Engine) GenerateBill(in GenerateBillInput) (GeneratedBill, error) {
	if err := in.Tenant.Validate(); err != nil {
		return GeneratedBill{}, err
	}
	if err := in.Rates.Validate(); err != nil {
		return GeneratedBill{}, err
	}
	if err := in.Electricity.Validate(); err != nil {
		return GeneratedBill{}, err
	}
	if in.ExtraFee.IsNegative() {
		return GeneratedBill{}, &ValidationError{Field: "extraFee", Message: "must not be negative"}
	}
	if in.DueDateOffsetDays < 0 {
		return GeneratedBill{}, &ValidationError{Field: "dueDateOffsetDays", Message: "must not be negative"}
	}

	number, err := CurrentCycleNumber(in.FullyPaidBillCount)
	if err != nil {
		return GeneratedBill{}, err
	}
	cycle, err := CycleFor(in.Tenant.RentStartDate, number)
	if err != nil {
		return GeneratedBill{}, err
	}

	components := BillComponents{
		Penalty:     decimal.Zero,
		ExtraFee:    in.ExtraFee,
		Electricity: in.Rates.ElectricityRate.Mul(in.Electricity.Consumption()),
		Water:       in.Rates.WaterRate,
		Rent:        in.Rates.MonthlyRent,
	}

	return GeneratedBill{
		Cycle:      cycle,
		DueDate:    cycle.Start.AddDays(in.DueDateOffsetDays),
		Components: components,
		TotalDue:   components.Total(),
	}, nil
}

// =============================================================================
// PENALTY PREVIEW
// =============================================================================

// PreviewPenalty computes the penalty a bill would carry if evaluated at
// asOf, without mutating anything. The rate comes from the caller's
// request-scoped configuration lookup; this layer never reads configuration
// itself, so a rate change applies on the next evaluation and never
// retroactively.
func (Engine) PreviewPenalty(totalAmountDue decimal.Decimal, asOf, dueDate Date, ratePercent decimal.Decimal) (decimal.Decimal, error) {
	return Penalty(totalAmountDue, asOf, dueDate, ratePercent)
}

// =============================================================================
// PAYMENT RECORDING
// =============================================================================

// RecordPaymentInput pairs a payment request with the bill's outstanding
// per-category remainders (component amount minus what earlier payments
// already covered for that category).
type RecordPaymentInput struct {
	Payment     PaymentRequest
	Outstanding BillComponents
}

// PaymentAllocation is the component list for the caller to persist, plus
// the totals on either side of the allocation boundary. Unallocated is the
// overpayment the allocator dropped; surfacing it here lets the caller
// decide how to treat it without the allocator taking that decision.
type PaymentAllocation struct {
	Components  []PaymentComponent
	Allocated   decimal.Decimal
	Unallocated decimal.Decimal
}

// RecordPayment allocates the payment across the outstanding components and
// verifies the result against the tolerance check before handing it back.
// The caller must serialize calls per bill (one database transaction per
// payment); two concurrent allocations against the same stale outstanding
// snapshot will double-pay categories.
func (Engine) RecordPayment(in RecordPaymentInput) (PaymentAllocation, error) {
	if err := in.Payment.Validate(); err != nil {
		return PaymentAllocation{}, err
	}

	components, err := Allocate(in.Payment.Amount, in.Outstanding)
	if err != nil {
		return PaymentAllocation{}, err
	}

	allocated := ComponentSum(components)

	// The components must account for the payment, or for the whole
	// outstanding total when the payment overshoots it.
	expected := decimal.Min(in.Payment.Amount, in.Outstanding.Total())
	if err := ValidateComponents(components, expected); err != nil {
		return PaymentAllocation{}, err
	}

	return PaymentAllocation{
		Components:  components,
		Allocated:   allocated,
		Unallocated: in.Payment.Amount.Sub(allocated),
	}, nil
}

// =============================================================================
// MOVE-OUT SETTLEMENT
// =============================================================================

// MoveOutInput carries the caller-fetched snapshot for a final settlement.
// OutstandingBalance is the sum of (totalAmountDue - amountPaid) across the
// tenant's unsettled prior bills. RoomTransfer marks an internal transfer
// rather than a departure; it does not change the numbers.
type MoveOutInput struct {
	Tenant             TenantSnapshot
	Rates              RoomRates
	Electricity        MeterReading
	ExtraFee           decimal.Decimal
	MoveOutDate        Date
	FullyPaidBillCount int
	OutstandingBalance decimal.Decimal
	RoomTransfer       bool
}

// MoveOut computes the final settlement for a departing tenant: prorates
// rent and water through the move-out date, adds metered electricity, the
// extra fee, and outstanding prior balances, then applies the deposit rule.
//
// FinalBalance = totalOwed - available deposits. Positive means the tenant
// still owes money; negative means a refund is due.
func (Engine) MoveOut(in MoveOutInput) (SettlementOutcome, error) {
	if err := in.Tenant.Validate(); err != nil {
		return SettlementOutcome{}, err
	}
	if err := in.Rates.Validate(); err != nil {
		return SettlementOutcome{}, err
	}
	if err := in.Electricity.Validate(); err != nil {
		return SettlementOutcome{}, err
	}
	if in.ExtraFee.IsNegative() {
		return SettlementOutcome{}, &ValidationError{Field: "extraFee", Message: "must not be negative"}
	}
	if in.MoveOutDate.IsZero() {
		return SettlementOutcome{}, &ValidationError{Field: "moveOutDate", Message: "must be set"}
	}
	if in.OutstandingBalance.IsNegative() {
		return SettlementOutcome{}, &ValidationError{Field: "outstandingBalance", Message: "must not be negative"}
	}

	number, err := CurrentCycleNumber(in.FullyPaidBillCount)
	if err != nil {
		return SettlementOutcome{}, err
	}
	cycle, err := CycleFor(in.Tenant.RentStartDate, number)
	if err != nil {
		return SettlementOutcome{}, err
	}

	// The move-out date must fall inside the final cycle; Prorate rejects
	// anything outside it. Callers clamp against actual occupancy first.
	rent, err := Prorate(in.Rates.MonthlyRent, cycle.Start, cycle.End, in.MoveOutDate)
	if err != nil {
		return SettlementOutcome{}, err
	}
	water, err := Prorate(in.Rates.WaterRate, cycle.Start, cycle.End, in.MoveOutDate)
	if err != nil {
		return SettlementOutcome{}, err
	}

	breakdown := BillComponents{
		Penalty:     decimal.Zero,
		ExtraFee:    in.ExtraFee,
		Electricity: in.Rates.ElectricityRate.Mul(in.Electricity.Consumption()),
		Water:       water,
		Rent:        rent,
	}

	totalOwed := breakdown.Total().Add(in.OutstandingBalance)

	deposit, err := SettleDeposit(in.FullyPaidBillCount, in.Tenant.Deposit, totalOwed, in.RoomTransfer)
	if err != nil {
		return SettlementOutcome{}, err
	}

	return SettlementOutcome{
		FinalBalance: totalOwed.Sub(deposit.Available),
		Deposit:      deposit,
		Breakdown:    breakdown,
	}, nil
}
