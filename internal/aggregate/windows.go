package aggregate

import (
	"fmt"
	"time"
)

// Window is a named, calendar-aligned query range ending at "now".
type Window string

const (
	WindowToday   Window = "today"      // local midnight -> now
	WindowWeek    Window = "this-week"  // most recent Sunday midnight -> now
	WindowMonth   Window = "this-month" // first of the current month -> now
	WindowYear    Window = "this-year"  // Jan 1 of the current year -> now
	WindowAllTime Window = "all-time"
)

// ParseWindow validates a window selector from a query string.
func ParseWindow(s string) (Window, error) {
	switch w := Window(s); w {
	case WindowToday, WindowWeek, WindowMonth, WindowYear, WindowAllTime:
		return w, nil
	case "":
		return WindowAllTime, nil
	default:
		return "", fmt.Errorf("unknown window %q", s)
	}
}

// Start returns the inclusive lower bound of the window, in now's
// location. ok is false for all-time, which has no lower bound.
//
// Named windows are calendar aligned; rolling "last N" ranges use
// RollingStart instead. The two schemes are intentionally different.
func (w Window) Start(now time.Time) (start time.Time, ok bool) {
	y, m, d := now.Date()
	loc := now.Location()
	switch w {
	case WindowToday:
		return time.Date(y, m, d, 0, 0, 0, 0, loc), true
	case WindowWeek:
		midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)
		return midnight.AddDate(0, 0, -int(now.Weekday())), true
	case WindowMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc), true
	case WindowYear:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc), true
	default:
		return time.Time{}, false
	}
}

// RollingStart returns now minus n 24-hour days. Not calendar aligned.
func RollingStart(now time.Time, days int) time.Time {
	return now.Add(-time.Duration(days) * 24 * time.Hour)
}
