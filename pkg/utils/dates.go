package utils

import "time"

// AddMonths adds calendar months to t. A day that does not exist in the target
// month is clamped to that month's last day (Jan 31 + 1 month = Feb 28/29).
func AddMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	target := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(target.Year(), target.Month()); d > last {
		d = last
	}
	return time.Date(target.Year(), target.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// CalculateDueDate returns the due date of a period; period 1 is one month after start.
// Every period is derived from the start date so month-end clamping never drifts.
func CalculateDueDate(start time.Time, period int) time.Time {
	return AddMonths(start, period)
}

// DaysBetween counts whole calendar days from a to b (negative when b is earlier).
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	from := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	to := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// IsDateOverdue checks if dueDate is already behind now
func IsDateOverdue(dueDate, now time.Time) bool {
	return now.After(dueDate)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
