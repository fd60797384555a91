/*
Package billing provides the tenant billing and settlement calculation core.

PURPOSE:
  This package contains the pure functions that turn caller-supplied
  snapshots (tenant record, room rates, bill history aggregates, a payment
  request) into billing results: cycle boundaries, prorated charges, late
  penalties, per-category payment allocations, and move-out deposit
  settlements.

KEY CONCEPTS IN THIS FILE (types.go):
  - Category: One of the five charge categories on every bill
  - BillComponents: A bill's per-category charge breakdown
  - PaymentComponent: The slice of one payment attributed to one category
  - DepositAccount / DepositApplicationResult: Move-in deposits and how
    they were applied at settlement
  - SettlementOutcome: The final move-out result (signed balance)
  - BillingCycle: One monthly billing period derived from the anchor date

DESIGN PRINCIPLES:
  1. Purity: No I/O, no clocks, no globals. Every input is a parameter.
  2. Precision: Uses decimal.Decimal for all money; floats never touch money.
  3. Determinism: Identical inputs produce identical outputs, so recurring
     billing, penalty preview, and move-out settlement cannot drift apart.
  4. Explicit shapes: Inputs are fully-typed records validated at the
     boundary; there is no probing of optional nested fields.

CALLER CONTRACT:
  The calculators are safe to call concurrently with no coordination. What
  they do NOT provide is write serialization: recording a payment or
  generating a bill must be serialized per bill by the caller (a database
  transaction or per-tenant lock), or two concurrent callers can both read a
  stale fully-paid count and produce duplicate cycles or conflicting
  allocations.

SEE ALSO:
  - cycle.go:      Billing period derivation
  - proration.go:  Partial-occupancy charge scaling
  - penalty.go:    Late-payment surcharges
  - allocation.go: Payment distribution across categories
  - deposit.go:    Deposit availability and forfeiture
  - engine.go:     Orchestration of the above per use case
*/
package billing

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// CATEGORY - The five charge categories, in allocation priority order
// =============================================================================

type Category string

const (
	CategoryPenalty     Category = "penalty"
	CategoryExtraFee    Category = "extra_fee"
	CategoryElectricity Category = "electricity"
	CategoryWater       Category = "water"
	CategoryRent        Category = "rent"
)

// AllocationOrder is the fixed priority in which a payment is applied to a
// bill's categories. Penalties are always settled first, rent last.
var AllocationOrder = []Category{
	CategoryPenalty,
	CategoryExtraFee,
	CategoryElectricity,
	CategoryWater,
	CategoryRent,
}

// ValidCategory reports whether c is one of the five known categories.
func ValidCategory(c Category) bool {
	for _, known := range AllocationOrder {
		if c == known {
			return true
		}
	}
	return false
}

// =============================================================================
// BILL COMPONENTS - Per-category charge breakdown
// =============================================================================

// BillComponents is a bill's charge breakdown by category. The same shape
// serves as the allocation target set when a payment is recorded: each field
// is then the still-unpaid remainder for that category.
type BillComponents struct {
	Penalty     decimal.Decimal
	ExtraFee    decimal.Decimal
	Electricity decimal.Decimal
	Water       decimal.Decimal
	Rent        decimal.Decimal
}

// Amount returns the amount for a single category. Unknown categories
// return zero; callers validate category tags at the boundary.
func (bc BillComponents) Amount(c Category) decimal.Decimal {
	switch c {
	case CategoryPenalty:
		return bc.Penalty
	case CategoryExtraFee:
		return bc.ExtraFee
	case CategoryElectricity:
		return bc.Electricity
	case CategoryWater:
		return bc.Water
	case CategoryRent:
		return bc.Rent
	}
	return decimal.Zero
}

// Total sums all five categories.
func (bc BillComponents) Total() decimal.Decimal {
	return bc.Penalty.Add(bc.ExtraFee).Add(bc.Electricity).Add(bc.Water).Add(bc.Rent)
}

// Validate rejects negative category amounts.
func (bc BillComponents) Validate() error {
	for _, c := range AllocationOrder {
		if bc.Amount(c).IsNegative() {
			return &ValidationError{Field: string(c), Message: "component amount must not be negative"}
		}
	}
	return nil
}

// =============================================================================
// PAYMENT COMPONENT - One payment's share for one category
// =============================================================================

// PaymentComponent records the portion of a single payment attributed to one
// charge category. An allocation never emits zero-amount components.
type PaymentComponent struct {
	Category Category
	Amount   decimal.Decimal
}

// ComponentSum totals a list of payment components.
func ComponentSum(components []PaymentComponent) decimal.Decimal {
	sum := decimal.Zero
	for _, pc := range components {
		sum = sum.Add(pc.Amount)
	}
	return sum
}

// =============================================================================
// DEPOSITS
// =============================================================================

// DepositAccount holds the deposits fixed at move-in. Read-only input: this
// package never mutates it, only decides how much of it is available at
// settlement time.
type DepositAccount struct {
	AdvancePayment  decimal.Decimal
	SecurityDeposit decimal.Decimal
}

func (da DepositAccount) Validate() error {
	if da.AdvancePayment.IsNegative() {
		return &ValidationError{Field: "advancePayment", Message: "must not be negative"}
	}
	if da.SecurityDeposit.IsNegative() {
		return &ValidationError{Field: "securityDeposit", Message: "must not be negative"}
	}
	return nil
}

// DepositApplicationResult describes how a departing tenant's deposits were
// applied against the final bill.
//
// Invariants:
//   - Available = Applied + Refund
//   - Forfeited is drawn from the security deposit only, never from the
//     advance payment.
//
// RoomTransfer is pass-through metadata for the caller's downstream branching
// (e.g. suppressing forfeiture communication for internal transfers); it does
// not participate in the arithmetic.
type DepositApplicationResult struct {
	Available    decimal.Decimal
	Applied      decimal.Decimal
	Forfeited    decimal.Decimal
	Refund       decimal.Decimal
	RoomTransfer bool
}

// SettlementOutcome is the move-out result. FinalBalance is signed: positive
// means the tenant still owes money, negative means a refund is due, zero is
// an exact settlement.
type SettlementOutcome struct {
	FinalBalance decimal.Decimal
	Deposit      DepositApplicationResult
	Breakdown    BillComponents
}

// OwesBalance reports whether the tenant still owes money.
func (so SettlementOutcome) OwesBalance() bool { return so.FinalBalance.IsPositive() }

// RefundDue reports whether the tenant is owed a refund.
func (so SettlementOutcome) RefundDue() bool { return so.FinalBalance.IsNegative() }

// =============================================================================
// BILLING CYCLE
// =============================================================================

// BillingCycle is one monthly billing period. Cycles are transient: derived
// on demand from the anchor date and never persisted by this package.
//
// Invariant: End is exactly one day before the start of cycle Number+1, so
// consecutive cycles never overlap and never leave gaps.
type BillingCycle struct {
	Number int
	Start  Date
	End    Date
}

// Contains reports whether d lies within [Start, End].
func (c BillingCycle) Contains(d Date) bool {
	return d.AfterOrEqual(c.Start) && d.BeforeOrEqual(c.End)
}

// Days returns the total number of days in the cycle, boundaries included.
func (c BillingCycle) Days() int {
	return DaysInclusive(c.Start, c.End)
}

func (c BillingCycle) String() string {
	return "[" + c.Start.String() + ", " + c.End.String() + "]"
}

// =============================================================================
// CALLER-SUPPLIED SNAPSHOTS
// =============================================================================
// These records carry the inputs the collaborator layer fetches on the
// core's behalf. They are plain values: the core never reaches back into
// persistence or configuration.

// TenantSnapshot is the slice of a tenant record the calculators need.
// RentStartDate is the anchor date all of the tenant's cycles derive from.
type TenantSnapshot struct {
	RentStartDate Date
	Deposit       DepositAccount
}

func (ts TenantSnapshot) Validate() error {
	if ts.RentStartDate.IsZero() {
		return &ValidationError{Field: "rentStartDate", Message: "must be set"}
	}
	return ts.Deposit.Validate()
}

// RoomRates are the room/branch charge rates in effect for a cycle.
// MonthlyRent and WaterRate are flat per-cycle amounts; ElectricityRate is
// per metered unit.
type RoomRates struct {
	MonthlyRent     decimal.Decimal
	ElectricityRate decimal.Decimal
	WaterRate       decimal.Decimal
}

func (rr RoomRates) Validate() error {
	if rr.MonthlyRent.IsNegative() {
		return &ValidationError{Field: "monthlyRent", Message: "must not be negative"}
	}
	if rr.ElectricityRate.IsNegative() {
		return &ValidationError{Field: "electricityRate", Message: "must not be negative"}
	}
	if rr.WaterRate.IsNegative() {
		return &ValidationError{Field: "waterRate", Message: "must not be negative"}
	}
	return nil
}

// MeterReading is an electricity meter pair for one cycle.
type MeterReading struct {
	Previous decimal.Decimal
	Present  decimal.Decimal
}

func (mr MeterReading) Validate() error {
	if mr.Previous.IsNegative() {
		return &ValidationError{Field: "previousReading", Message: "must not be negative"}
	}
	if mr.Present.LessThan(mr.Previous) {
		return &ValidationError{Field: "presentReading", Message: "must not be less than previous reading"}
	}
	return nil
}

// Consumption returns the metered units used this cycle.
func (mr MeterReading) Consumption() decimal.Decimal {
	return mr.Present.Sub(mr.Previous)
}

// PaymentRequest is a payment as submitted by the collaborator layer.
// Method and Reference are opaque bookkeeping fields.
type PaymentRequest struct {
	Amount    decimal.Decimal
	Date      Date
	Method    string
	Reference string
}

func (pr PaymentRequest) Validate() error {
	if !pr.Amount.IsPositive() {
		return &ValidationError{Field: "paymentAmount", Message: "must be positive"}
	}
	if pr.Date.IsZero() {
		return &ValidationError{Field: "paymentDate", Message: "must be set"}
	}
	return nil
}
