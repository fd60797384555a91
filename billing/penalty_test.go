package billing_test

import (
	"testing"
	"time"

	"github.com/warp/billing-engine/billing"
)

func TestPenalty_ZeroOnOrBeforeDueDate(t *testing.T) {
	// Property: penalty == 0 for every evaluation date <= due date.
	due := date(2025, time.April, 26)

	for _, eval := range []billing.Date{
		due.AddDays(-30),
		due.AddDays(-1),
		due, // on the due date itself no penalty applies
	} {
		got, err := billing.Penalty(m("8500"), eval, due, m("5"))
		if err != nil {
			t.Fatalf("Penalty(%s) failed: %v", eval, err)
		}
		if !got.IsZero() {
			t.Errorf("eval %s: got %s, want 0", eval, got)
		}
	}
}

func TestPenalty_AppliesRateOncePastDue(t *testing.T) {
	// GIVEN: An 8500 bill due April 26 with a 5% penalty rate
	// WHEN: Evaluated the day after the due date
	// THEN: Penalty is 8500 * 5 / 100 = 425, regardless of how late
	due := date(2025, time.April, 26)

	got, err := billing.Penalty(m("8500"), due.AddDays(1), due, m("5"))
	if err != nil {
		t.Fatalf("Penalty failed: %v", err)
	}
	mustEqual(t, got, m("425"), "one day late")

	// The surcharge is flat, not per-day: ninety days late is the same.
	late, err := billing.Penalty(m("8500"), due.AddDays(90), due, m("5"))
	if err != nil {
		t.Fatalf("Penalty failed: %v", err)
	}
	mustEqual(t, late, m("425"), "ninety days late")
}

func TestPenalty_RateIsAnOpaqueParameter(t *testing.T) {
	// The caller sources the rate from mutable configuration; a changed
	// rate must show up on the next evaluation with no code change, and a
	// zero rate is legitimate (penalties disabled).
	due := date(2025, time.April, 26)
	eval := due.AddDays(3)

	before, _ := billing.Penalty(m("10000"), eval, due, m("3"))
	after, _ := billing.Penalty(m("10000"), eval, due, m("4.5"))
	mustEqual(t, before, m("300"), "3% rate")
	mustEqual(t, after, m("450"), "4.5% rate")

	disabled, _ := billing.Penalty(m("10000"), eval, due, m("0"))
	if !disabled.IsZero() {
		t.Errorf("zero rate: got %s, want 0", disabled)
	}
}

func TestPenalty_SafeForRepeatedPreview(t *testing.T) {
	// The same function backs the "potential penalty" display. Repeated
	// calls with identical inputs must be bit-identical and side-effect
	// free.
	due := date(2025, time.April, 26)
	eval := due.AddDays(10)

	first, err := billing.Penalty(m("8500"), eval, due, m("5"))
	if err != nil {
		t.Fatalf("Penalty failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := billing.Penalty(m("8500"), eval, due, m("5"))
		if err != nil {
			t.Fatalf("Penalty failed on repeat %d: %v", i, err)
		}
		mustEqual(t, again, first, "repeated preview")
	}
}

func TestPenalty_RejectsInvalidInput(t *testing.T) {
	due := date(2025, time.April, 26)
	eval := due.AddDays(1)

	if _, err := billing.Penalty(m("-1"), eval, due, m("5")); !billing.IsValidation(err) {
		t.Errorf("negative total: got %v, want validation error", err)
	}
	if _, err := billing.Penalty(m("8500"), eval, due, m("-5")); !billing.IsValidation(err) {
		t.Errorf("negative rate: got %v, want validation error", err)
	}
	if _, err := billing.Penalty(m("8500"), billing.Date{}, due, m("5")); !billing.IsValidation(err) {
		t.Errorf("zero evaluation date: got %v, want validation error", err)
	}
	if _, err := billing.Penalty(m("8500"), eval, billing.Date{}, m("5")); !billing.IsValidation(err) {
		t.Errorf("zero due date: got %v, want validation error", err)
	}
}
