package throttle

import "time"

// All reset boundaries are computed in UTC. This is part of the public
// contract: reset_time values surface to clients as ISO-8601 UTC midnight,
// regardless of the user's local timezone.

// DayStart returns UTC midnight of the day containing t.
func DayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthStart returns UTC midnight on the 1st of the month containing t.
func MonthStart(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// NextDay returns the UTC midnight following t, when daily counters reset.
func NextDay(t time.Time) time.Time {
	return DayStart(t).AddDate(0, 0, 1)
}

// NextMonth returns UTC midnight on the 1st of the month following t,
// when monthly counters reset.
func NextMonth(t time.Time) time.Time {
	return MonthStart(t).AddDate(0, 1, 0)
}
