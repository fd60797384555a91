package billing_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/billing-engine/billing"
)

// =============================================================================
// TEST HELPERS (shared by the package tests)
// =============================================================================

func date(year int, month time.Month, day int) billing.Date {
	return billing.NewDate(year, month, day)
}

// m parses a decimal money literal.
func m(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func mustEqual(t *testing.T, got, want decimal.Decimal, what string) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("%s: got %s, want %s", what, got, want)
	}
}

// =============================================================================
// CYCLE DERIVATION
// =============================================================================

func TestCycleFor_FirstCycleStartsAtAnchor(t *testing.T) {
	// GIVEN: A tenant anchored at March 17
	// WHEN: Deriving cycle 1
	// THEN: The cycle runs March 17 .. April 16

	cycle, err := billing.CycleFor(date(2025, time.March, 17), 1)
	if err != nil {
		t.Fatalf("CycleFor failed: %v", err)
	}

	if !cycle.Start.Equal(date(2025, time.March, 17)) {
		t.Errorf("start: got %s, want 2025-03-17", cycle.Start)
	}
	if !cycle.End.Equal(date(2025, time.April, 16)) {
		t.Errorf("end: got %s, want 2025-04-16", cycle.End)
	}
	if cycle.Days() != 31 {
		t.Errorf("days: got %d, want 31", cycle.Days())
	}
}

func TestCycleFor_ConsecutiveCyclesAreContiguous(t *testing.T) {
	// Property: for all anchors and N >= 1,
	//   cycleFor(anchor, N).end + 1 day == cycleFor(anchor, N+1).start
	// Anchors chosen to exercise month-length edge cases, leap years
	// included.

	anchors := []billing.Date{
		date(2025, time.January, 1),
		date(2025, time.January, 31),
		date(2024, time.February, 29),
		date(2025, time.March, 17),
		date(2025, time.October, 31),
		date(2025, time.December, 15),
	}

	for _, anchor := range anchors {
		for n := 1; n <= 24; n++ {
			current, err := billing.CycleFor(anchor, n)
			if err != nil {
				t.Fatalf("CycleFor(%s, %d) failed: %v", anchor, n, err)
			}
			next, err := billing.CycleFor(anchor, n+1)
			if err != nil {
				t.Fatalf("CycleFor(%s, %d) failed: %v", anchor, n+1, err)
			}

			if !current.End.AddDays(1).Equal(next.Start) {
				t.Errorf("anchor %s: cycle %d ends %s but cycle %d starts %s",
					anchor, n, current.End, n+1, next.Start)
			}
			if !current.End.Before(next.Start) {
				t.Errorf("anchor %s: cycles %d/%d overlap", anchor, n, n+1)
			}
		}
	}
}

func TestCycleFor_ClampsDayOfMonthToShorterMonths(t *testing.T) {
	// GIVEN: A tenant anchored on January 31 (no equivalent day in
	//        February, April, June, ...)
	// WHEN: Deriving the cycles that land in those months
	// THEN: The start day clamps to the last valid day of the month

	anchor := date(2025, time.January, 31)

	cases := []struct {
		number int
		start  billing.Date
		end    billing.Date
	}{
		{1, date(2025, time.January, 31), date(2025, time.February, 27)},
		{2, date(2025, time.February, 28), date(2025, time.March, 30)},
		{3, date(2025, time.March, 31), date(2025, time.April, 29)},
		{4, date(2025, time.April, 30), date(2025, time.May, 30)},
	}

	for _, tc := range cases {
		cycle, err := billing.CycleFor(anchor, tc.number)
		if err != nil {
			t.Fatalf("CycleFor cycle %d failed: %v", tc.number, err)
		}
		if !cycle.Start.Equal(tc.start) {
			t.Errorf("cycle %d start: got %s, want %s", tc.number, cycle.Start, tc.start)
		}
		if !cycle.End.Equal(tc.end) {
			t.Errorf("cycle %d end: got %s, want %s", tc.number, cycle.End, tc.end)
		}
	}
}

func TestCycleFor_ClampsIntoLeapFebruary(t *testing.T) {
	// Anchor on the 31st crossing a leap-year February clamps to Feb 29.
	cycle, err := billing.CycleFor(date(2024, time.January, 31), 2)
	if err != nil {
		t.Fatalf("CycleFor failed: %v", err)
	}
	if !cycle.Start.Equal(date(2024, time.February, 29)) {
		t.Errorf("start: got %s, want 2024-02-29", cycle.Start)
	}
}

func TestCycleFor_RejectsInvalidInput(t *testing.T) {
	if _, err := billing.CycleFor(date(2025, time.March, 17), 0); !billing.IsValidation(err) {
		t.Errorf("cycle number 0: got %v, want validation error", err)
	}
	if _, err := billing.CycleFor(date(2025, time.March, 17), -3); !billing.IsValidation(err) {
		t.Errorf("negative cycle number: got %v, want validation error", err)
	}
	if _, err := billing.CycleFor(billing.Date{}, 1); !billing.IsValidation(err) {
		t.Errorf("zero anchor: got %v, want validation error", err)
	}
}

func TestCurrentCycleNumber(t *testing.T) {
	// The next ungenerated cycle is always one past the fully-paid count.
	n, err := billing.CurrentCycleNumber(0)
	if err != nil || n != 1 {
		t.Errorf("count 0: got (%d, %v), want (1, nil)", n, err)
	}
	n, err = billing.CurrentCycleNumber(7)
	if err != nil || n != 8 {
		t.Errorf("count 7: got (%d, %v), want (8, nil)", n, err)
	}
	if _, err := billing.CurrentCycleNumber(-1); !billing.IsValidation(err) {
		t.Errorf("negative count: got %v, want validation error", err)
	}
}

func TestCycleFor_IsDeterministic(t *testing.T) {
	// Idempotence: identical inputs yield identical cycles.
	a, _ := billing.CycleFor(date(2025, time.January, 31), 14)
	b, _ := billing.CycleFor(date(2025, time.January, 31), 14)
	if a != b {
		t.Errorf("repeated derivation differs: %v vs %v", a, b)
	}
}
