package recurrence

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Kind int

const (
	None Kind = iota
	IntervalDays
	Weekly
	Monthly
)

// Window controls how an interval cooldown aligns: Calendar snaps the next
// availability to a UTC midnight, Rolling measures whole 24h periods from the
// reference instant.
type Window int

const (
	WindowCalendar Window = iota
	WindowRolling
)

var dayNames = map[string]time.Weekday{
	"SU": time.Sunday,
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
}

var dayAbbrev = map[time.Weekday]string{
	time.Sunday:    "SU",
	time.Monday:    "MO",
	time.Tuesday:   "TU",
	time.Wednesday: "WE",
	time.Thursday:  "TH",
	time.Friday:    "FR",
	time.Saturday:  "SA",
}

// Rule is a tagged variant: exactly the fields for its Kind are meaningful.
type Rule struct {
	Kind       Kind
	Interval   int          // IntervalDays: cooldown length in days, >= 1
	Window     Window       // IntervalDays only
	Weekday    time.Weekday // Weekly
	DayOfMonth int          // Monthly: 1-31, clamped to month length when due
}

// IsRecurring reports whether the rule ever reopens a completed task.
func (r Rule) IsRecurring() bool {
	return r.Kind != None
}

// Parse parses a rule string like "FREQ=DAILY;INTERVAL=3;WINDOW=rolling",
// "FREQ=WEEKLY;BYDAY=MO", or "FREQ=MONTHLY;BYMONTHDAY=31". The empty string
// is the one-shot rule. When WINDOW is omitted, INTERVAL=1 aligns to the
// calendar and longer intervals roll from the reference instant.
func Parse(rule string) (Rule, error) {
	if rule == "" {
		return Rule{Kind: None}, nil
	}

	var (
		r           = Rule{Interval: 1}
		hasFreq     bool
		hasInterval bool
		hasWindow   bool
		hasByday    bool
		hasMonthday bool
		freq        string
	)

	for _, part := range strings.Split(rule, ";") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return Rule{}, fmt.Errorf("invalid rule part: %q", part)
		}
		key, val := kv[0], kv[1]

		switch key {
		case "FREQ":
			freq = val
			hasFreq = true

		case "INTERVAL":
			n, err := strconv.Atoi(val)
			if err != nil || n < 1 {
				return Rule{}, fmt.Errorf("invalid interval: %q", val)
			}
			r.Interval = n
			hasInterval = true

		case "WINDOW":
			switch strings.ToLower(val) {
			case "calendar":
				r.Window = WindowCalendar
			case "rolling":
				r.Window = WindowRolling
			default:
				return Rule{}, fmt.Errorf("invalid WINDOW: %q", val)
			}
			hasWindow = true

		case "BYDAY":
			wd, ok := dayNames[strings.TrimSpace(val)]
			if !ok {
				return Rule{}, fmt.Errorf("unknown day: %q", val)
			}
			r.Weekday = wd
			hasByday = true

		case "BYMONTHDAY":
			n, err := strconv.Atoi(val)
			if err != nil || n < 1 || n > 31 {
				return Rule{}, fmt.Errorf("invalid BYMONTHDAY: %q", val)
			}
			r.DayOfMonth = n
			hasMonthday = true

		default:
			return Rule{}, fmt.Errorf("unsupported rule key: %q", key)
		}
	}

	if !hasFreq {
		return Rule{}, fmt.Errorf("FREQ is required")
	}

	// Keys that do not belong to the frequency are configuration errors,
	// never silently dropped.
	switch freq {
	case "DAILY":
		if hasByday || hasMonthday {
			return Rule{}, fmt.Errorf("BYDAY and BYMONTHDAY do not apply to FREQ=DAILY")
		}
		r.Kind = IntervalDays
		if !hasWindow {
			if r.Interval == 1 {
				r.Window = WindowCalendar
			} else {
				r.Window = WindowRolling
			}
		}
	case "WEEKLY":
		if !hasByday {
			return Rule{}, fmt.Errorf("BYDAY is required for FREQ=WEEKLY")
		}
		if hasInterval || hasWindow || hasMonthday {
			return Rule{}, fmt.Errorf("only BYDAY applies to FREQ=WEEKLY")
		}
		r.Kind = Weekly
	case "MONTHLY":
		if !hasMonthday {
			return Rule{}, fmt.Errorf("BYMONTHDAY is required for FREQ=MONTHLY")
		}
		if hasInterval || hasWindow || hasByday {
			return Rule{}, fmt.Errorf("only BYMONTHDAY applies to FREQ=MONTHLY")
		}
		r.Kind = Monthly
	default:
		return Rule{}, fmt.Errorf("unknown frequency: %q", freq)
	}

	return r, nil
}

// String serializes the rule back to its stored form.
func (r Rule) String() string {
	switch r.Kind {
	case IntervalDays:
		parts := []string{"FREQ=DAILY"}
		if r.Interval > 1 {
			parts = append(parts, fmt.Sprintf("INTERVAL=%d", r.Interval))
		}
		// Only emit WINDOW when it differs from the Parse default.
		if r.Interval == 1 && r.Window == WindowRolling {
			parts = append(parts, "WINDOW=rolling")
		} else if r.Interval > 1 && r.Window == WindowCalendar {
			parts = append(parts, "WINDOW=calendar")
		}
		return strings.Join(parts, ";")
	case Weekly:
		return "FREQ=WEEKLY;BYDAY=" + dayAbbrev[r.Weekday]
	case Monthly:
		return fmt.Sprintf("FREQ=MONTHLY;BYMONTHDAY=%d", r.DayOfMonth)
	}
	return ""
}

// Describe returns a human-readable description of the rule.
func (r Rule) Describe() string {
	switch r.Kind {
	case None:
		return "One time"
	case IntervalDays:
		if r.Interval == 1 {
			return "Repeats daily"
		}
		return fmt.Sprintf("Repeats every %d days", r.Interval)
	case Weekly:
		return "Repeats weekly on " + r.Weekday.String()
	case Monthly:
		return fmt.Sprintf("Repeats monthly on day %d", r.DayOfMonth)
	}
	return ""
}
