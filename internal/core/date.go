package core

import "time"

// ExpiryWarningDays is the window in which outgoing messages carry a renewal warning.
const ExpiryWarningDays = 3

// DateOf drops the clock part of t, keeping the calendar date as seen in t's location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysUntil counts calendar days between today and expiry. Both are reduced to
// dates first so that clock offsets never shift the result by one.
func DaysUntil(expiry, today time.Time) int {
	return int(DateOf(expiry).Sub(DateOf(today)).Hours() / 24)
}

// ExpiryWarning reports whether daysLeft falls inside the renewal warning window.
func ExpiryWarning(daysLeft int) bool {
	return daysLeft >= 0 && daysLeft < ExpiryWarningDays
}
