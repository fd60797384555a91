package billing_test

import (
	"testing"
	"time"

	"github.com/warp/billing-engine/billing"
)

func TestProrate_FullOccupancyReturnsFullAmountExactly(t *testing.T) {
	// Property: throughDate == cycleEnd returns the full amount exactly,
	// with no division artifacts.

	start := date(2025, time.March, 17)
	end := date(2025, time.April, 16)

	got, err := billing.Prorate(m("10000"), start, end, end)
	if err != nil {
		t.Fatalf("Prorate failed: %v", err)
	}
	mustEqual(t, got, m("10000"), "full occupancy")
}

func TestProrate_PartialOccupancyScalesByInclusiveDays(t *testing.T) {
	// GIVEN: A 31-day cycle 2025-03-17 .. 2025-04-16 and occupancy
	//        through 2025-03-31 (15 days, both boundaries inclusive)
	// WHEN: Prorating a 10000 monthly rent
	// THEN: 10000 * 15/31 ~= 4838.71 (unrounded)

	got, err := billing.Prorate(m("10000"),
		date(2025, time.March, 17), date(2025, time.April, 16), date(2025, time.March, 31))
	if err != nil {
		t.Fatalf("Prorate failed: %v", err)
	}

	want := m("10000").Mul(m("15")).Div(m("31"))
	mustEqual(t, got, want, "prorated rent")

	// Sanity: rounds to the published figure at persistence time.
	if got.Round(2).String() != "4838.71" {
		t.Errorf("rounded: got %s, want 4838.71", got.Round(2))
	}
}

func TestProrate_SingleDayOccupancy(t *testing.T) {
	// Moving out on the first day of the cycle still owes one day.
	start := date(2025, time.March, 17)
	got, err := billing.Prorate(m("3100"), start, date(2025, time.April, 16), start)
	if err != nil {
		t.Fatalf("Prorate failed: %v", err)
	}
	mustEqual(t, got, m("100"), "one day of a 31-day cycle")
}

func TestProrate_DoesNotPreRound(t *testing.T) {
	// 1000 * 10/30: the raw quotient must keep more precision than the
	// currency unit; rounding happens once at the caller.
	got, err := billing.Prorate(m("1000"),
		date(2025, time.June, 1), date(2025, time.June, 30), date(2025, time.June, 10))
	if err != nil {
		t.Fatalf("Prorate failed: %v", err)
	}
	if got.Equal(got.Round(2)) {
		t.Errorf("result %s looks pre-rounded", got)
	}
}

func TestProrate_RejectsThroughDateOutsideCycle(t *testing.T) {
	start := date(2025, time.March, 17)
	end := date(2025, time.April, 16)

	// One day before the cycle starts.
	if _, err := billing.Prorate(m("10000"), start, end, start.AddDays(-1)); !billing.IsValidation(err) {
		t.Errorf("before cycle: got %v, want validation error", err)
	}
	// One day after the cycle ends. Callers clamp against actual
	// occupancy; the calculator never clamps silently.
	if _, err := billing.Prorate(m("10000"), start, end, end.AddDays(1)); !billing.IsValidation(err) {
		t.Errorf("after cycle: got %v, want validation error", err)
	}
}

func TestProrate_RejectsMalformedInputs(t *testing.T) {
	start := date(2025, time.March, 17)
	end := date(2025, time.April, 16)

	if _, err := billing.Prorate(m("-1"), start, end, end); !billing.IsValidation(err) {
		t.Errorf("negative amount: got %v, want validation error", err)
	}
	if _, err := billing.Prorate(m("10000"), end, start, start); !billing.IsValidation(err) {
		t.Errorf("inverted cycle: got %v, want validation error", err)
	}
	if _, err := billing.Prorate(m("10000"), billing.Date{}, end, end); !billing.IsValidation(err) {
		t.Errorf("zero start: got %v, want validation error", err)
	}
}
