package recurrence

import (
	"testing"
	"time"
)

func TestParseOneShot(t *testing.T) {
	r, err := Parse("")
	if err != nil {
		t.Fatalf("parse empty: %v", err)
	}
	if r.Kind != None {
		t.Errorf("kind = %d, want None", r.Kind)
	}
	if r.IsRecurring() {
		t.Error("one-shot rule should not be recurring")
	}
}

func TestParseDaily(t *testing.T) {
	r, err := Parse("FREQ=DAILY")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if r.Kind != IntervalDays || r.Interval != 1 {
		t.Errorf("got kind=%d interval=%d, want IntervalDays interval=1", r.Kind, r.Interval)
	}
	if r.Window != WindowCalendar {
		t.Error("daily should default to calendar window")
	}
}

func TestParseIntervalDefaultsRolling(t *testing.T) {
	r, err := Parse("FREQ=DAILY;INTERVAL=3")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if r.Interval != 3 {
		t.Errorf("interval = %d, want 3", r.Interval)
	}
	if r.Window != WindowRolling {
		t.Error("INTERVAL>1 should default to rolling window")
	}
}

func TestParseWindowOverride(t *testing.T) {
	r, err := Parse("FREQ=DAILY;INTERVAL=7;WINDOW=calendar")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if r.Window != WindowCalendar {
		t.Error("explicit WINDOW=calendar ignored")
	}

	r, err = Parse("FREQ=DAILY;WINDOW=rolling")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if r.Window != WindowRolling {
		t.Error("explicit WINDOW=rolling ignored")
	}
}

func TestParseWeekly(t *testing.T) {
	r, err := Parse("FREQ=WEEKLY;BYDAY=MO")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if r.Kind != Weekly || r.Weekday != time.Monday {
		t.Errorf("got kind=%d weekday=%v, want Weekly Monday", r.Kind, r.Weekday)
	}
}

func TestParseMonthly(t *testing.T) {
	r, err := Parse("FREQ=MONTHLY;BYMONTHDAY=31")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if r.Kind != Monthly || r.DayOfMonth != 31 {
		t.Errorf("got kind=%d dom=%d, want Monthly 31", r.Kind, r.DayOfMonth)
	}
}

func TestParseErrors(t *testing.T) {
	bad := []string{
		"FREQ=HOURLY",
		"INTERVAL=2",                 // no FREQ
		"FREQ=DAILY;INTERVAL=0",
		"FREQ=DAILY;INTERVAL=-1",
		"FREQ=MONTHLY",               // missing BYMONTHDAY
		"FREQ=MONTHLY;BYMONTHDAY=0",
		"FREQ=MONTHLY;BYMONTHDAY=32",
		"FREQ=WEEKLY",                // missing BYDAY
		"FREQ=WEEKLY;BYDAY=XX",
		"FREQ=DAILY;WINDOW=sideways",
		"FREQ=DAILY;BYDAY=MO",        // keys from the wrong frequency
		"FREQ=DAILY;BYMONTHDAY=5",
		"FREQ=WEEKLY;BYDAY=MO;INTERVAL=2",
		"FREQ=WEEKLY;BYDAY=MO;WINDOW=rolling",
		"FREQ=MONTHLY;BYMONTHDAY=5;INTERVAL=2",
		"FREQ=MONTHLY;BYMONTHDAY=5;BYDAY=MO",
		"garbage",
	}
	for _, s := range bad {
		if _, err := Parse(s); err == nil {
			t.Errorf("Parse(%q) should fail", s)
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	rules := []string{
		"FREQ=DAILY",
		"FREQ=DAILY;INTERVAL=3",
		"FREQ=DAILY;WINDOW=rolling",
		"FREQ=DAILY;INTERVAL=7;WINDOW=calendar",
		"FREQ=WEEKLY;BYDAY=SA",
		"FREQ=MONTHLY;BYMONTHDAY=15",
	}
	for _, s := range rules {
		r, err := Parse(s)
		if err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
		if got := r.String(); got != s {
			t.Errorf("round trip %q -> %q", s, got)
		}
	}
}

func TestNextAvailableOneShot(t *testing.T) {
	_, ok := NextAvailable(Rule{Kind: None}, time.Now())
	if ok {
		t.Error("one-shot rule should never reopen")
	}
}

func TestNextAvailableDailyCalendar(t *testing.T) {
	r := Rule{Kind: IntervalDays, Interval: 1, Window: WindowCalendar}
	ref := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

	next, ok := NextAvailable(r, ref)
	if !ok {
		t.Fatal("expected a next instant")
	}
	want := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestNextAvailableRolling(t *testing.T) {
	r := Rule{Kind: IntervalDays, Interval: 3, Window: WindowRolling}
	ref := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

	next, _ := NextAvailable(r, ref)
	want := ref.Add(72 * time.Hour)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestNextAvailableWeekly(t *testing.T) {
	r := Rule{Kind: Weekly, Weekday: time.Monday}

	// A Wednesday: next Monday is 5 days out.
	ref := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
	next, _ := NextAvailable(r, ref)
	want := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestNextAvailableWeeklySelfDay(t *testing.T) {
	r := Rule{Kind: Weekly, Weekday: time.Monday}

	// Completing on a Monday reopens the following Monday, never the same day.
	ref := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC) // a Monday
	next, _ := NextAvailable(r, ref)
	want := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestNextAvailableMonthlyClamp(t *testing.T) {
	r := Rule{Kind: Monthly, DayOfMonth: 31}

	cases := []struct {
		ref  time.Time
		want time.Time
	}{
		// Leap February
		{time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		// Non-leap February
		{time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)},
		// 31-day target month, no clamping
		{time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC), time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC)},
		// December wraps into January
		{time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC), time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		next, _ := NextAvailable(r, tc.ref)
		if !next.Equal(tc.want) {
			t.Errorf("NextAvailable(31, %v) = %v, want %v", tc.ref, next, tc.want)
		}
	}
}

func TestNextAvailableMonotonic(t *testing.T) {
	rules := []Rule{
		{Kind: IntervalDays, Interval: 1, Window: WindowCalendar},
		{Kind: IntervalDays, Interval: 1, Window: WindowRolling},
		{Kind: IntervalDays, Interval: 14, Window: WindowRolling},
		{Kind: Weekly, Weekday: time.Sunday},
		{Kind: Monthly, DayOfMonth: 1},
		{Kind: Monthly, DayOfMonth: 31},
	}
	refs := []time.Time{
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 28, 23, 59, 59, 0, time.UTC),
		time.Date(2026, 12, 31, 12, 0, 0, 0, time.UTC),
	}
	for _, r := range rules {
		for _, ref := range refs {
			next, ok := NextAvailable(r, ref)
			if !ok {
				t.Fatalf("rule %+v should recur", r)
			}
			if !next.After(ref) {
				t.Errorf("NextAvailable(%+v, %v) = %v, not after ref", r, ref, next)
			}
		}
	}
}

func TestElapsed(t *testing.T) {
	r := Rule{Kind: IntervalDays, Interval: 7, Window: WindowRolling}
	approved := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if Elapsed(r, approved, approved.Add(6*24*time.Hour)) {
		t.Error("cooldown should still hold at day 6")
	}
	if !Elapsed(r, approved, approved.Add(7*24*time.Hour)) {
		t.Error("cooldown should have elapsed at day 7")
	}
	if Elapsed(Rule{Kind: None}, approved, approved.AddDate(10, 0, 0)) {
		t.Error("one-shot rules never elapse")
	}
}
