package recurrence

import "time"

// NextAvailable returns the first instant at or after which a completion
// approved at ref becomes eligible again. The second return is false for the
// one-shot rule, which never reopens. All arithmetic is done in UTC on the
// stored instant; display timezones are the caller's problem.
//
// For recurring kinds the result is strictly after ref: a weekly rule whose
// weekday matches ref's own day yields the following week, never the same
// day.
func NextAvailable(r Rule, ref time.Time) (time.Time, bool) {
	ref = ref.UTC()

	switch r.Kind {
	case IntervalDays:
		if r.Window == WindowRolling {
			return ref.Add(time.Duration(r.Interval) * 24 * time.Hour), true
		}
		return startOfDay(ref).AddDate(0, 0, r.Interval), true

	case Weekly:
		days := int(r.Weekday-ref.Weekday()+7) % 7
		if days == 0 {
			days = 7
		}
		return startOfDay(ref).AddDate(0, 0, days), true

	case Monthly:
		year, month := ref.Year(), ref.Month()+1
		day := r.DayOfMonth
		if last := daysInMonth(year, month); day > last {
			day = last
		}
		return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
	}

	return time.Time{}, false
}

// Elapsed reports whether the cooldown anchored at ref has passed by now.
// One-shot rules never elapse.
func Elapsed(r Rule, ref, now time.Time) bool {
	next, ok := NextAvailable(r, ref)
	if !ok {
		return false
	}
	return !now.UTC().Before(next)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// daysInMonth handles month overflow from NextAvailable: time.Date
// normalizes month 13 into January of the following year.
func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
