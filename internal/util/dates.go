package util

import "time"

// CancellationNotice is how long before an event starts reservations stop
// being cancellable.
const CancellationNotice = 48 * time.Hour

// IsFuture reports whether t is strictly after now.
func IsFuture(t, now time.Time) bool {
	return !t.IsZero() && t.After(now)
}

// IsEndAfterStart reports whether end is strictly after start.
func IsEndAfterStart(start, end time.Time) bool {
	return !start.IsZero() && !end.IsZero() && end.After(start)
}

// CancellationDeadline is the last instant (exclusive) at which a reservation
// for an event starting at eventStart can be cancelled.
func CancellationDeadline(eventStart time.Time) time.Time {
	return eventStart.Add(-CancellationNotice)
}

// CanCancel reports whether now is before the cancellation deadline.
func CanCancel(eventStart, now time.Time) bool {
	if eventStart.IsZero() {
		return false
	}
	return now.Before(CancellationDeadline(eventStart))
}

// HoursUntil returns the whole hours between now and t, negative once t passed.
func HoursUntil(t, now time.Time) int64 {
	return int64(t.Sub(now) / time.Hour)
}

// HasPassed reports whether t is strictly before now.
func HasPassed(t, now time.Time) bool {
	return !t.IsZero() && t.Before(now)
}
