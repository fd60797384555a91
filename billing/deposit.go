/*
deposit.go - Deposit availability, forfeiture, and application

PURPOSE:
  Decides how a departing tenant's move-in deposits offset the final bill.
  The tenure signal is the count of fully paid bills, compared against a
  fixed threshold of 5:

    count >= 5: advance payment AND security deposit are both available,
                nothing is forfeited.
    count <  5: only the advance payment is available; the entire security
                deposit is forfeited.

  In both branches:
    applied = min(available, totalOwed)
    refund  = available - applied

  Forfeiture is drawn from the security deposit alone. The advance payment
  is never forfeited; whatever part of it is not applied comes back as a
  refund.

ROOM TRANSFERS:
  The roomTransfer flag marks an internal transfer rather than a departure.
  Observed call sites thread it through without changing the arithmetic, so
  it is carried into the result as opaque metadata for the caller's
  downstream branching (e.g. suppressing forfeiture communication). If
  product rules ever differentiate transfer forfeiture, this is the single
  place to change.

SEE ALSO:
  - types.go:  DepositAccount, DepositApplicationResult
  - engine.go: MoveOut assembles totalOwed and computes the final balance
*/
package billing

import "github.com/shopspring/decimal"

// FullyPaidThreshold is the tenure boundary: tenants with at least this many
// fully paid bills keep their security deposit available at settlement.
const FullyPaidThreshold = 5

// SettleDeposit applies the tenure rule and returns how the deposits cover
// totalOwed. It does not compute the final balance; that belongs to the
// orchestrator, which owns the composition of totalOwed.
func SettleDeposit(fullyPaidBillCount int, deposit DepositAccount, totalOwed decimal.Decimal, roomTransfer bool) (DepositApplicationResult, error) {
	if fullyPaidBillCount < 0 {
		return DepositApplicationResult{}, &ValidationError{Field: "fullyPaidBillCount", Message: "must not be negative"}
	}
	if err := deposit.Validate(); err != nil {
		return DepositApplicationResult{}, err
	}
	if totalOwed.IsNegative() {
		return DepositApplicationResult{}, &ValidationError{Field: "totalOwed", Message: "must not be negative"}
	}

	var available, forfeited decimal.Decimal
	if fullyPaidBillCount >= FullyPaidThreshold {
		available = deposit.AdvancePayment.Add(deposit.SecurityDeposit)
		forfeited = decimal.Zero
	} else {
		available = deposit.AdvancePayment
		forfeited = deposit.SecurityDeposit
	}

	applied := decimal.Min(available, totalOwed)

	return DepositApplicationResult{
		Available:    available,
		Applied:      applied,
		Forfeited:    forfeited,
		Refund:       available.Sub(applied),
		RoomTransfer: roomTransfer,
	}, nil
}
