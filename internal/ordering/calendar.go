package ordering

import "time"

const day = 24 * time.Hour

// CalendarDaysBetween returns the number of civil days from a to b, ignoring time of day.
func CalendarDaysBetween(a, b time.Time) int {
	return int(civilDate(b).Sub(civilDate(a)) / day)
}

// AddDays shifts t by n calendar days, keeping its wall-clock time.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// civilDate drops the time of day and pins the date to UTC so differences are whole days.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
