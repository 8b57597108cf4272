package policy

import "time"

// CancelCheck is the outcome of a cancellation-window evaluation.
// HoursDiff is how many hours remain before the booking starts; it can be
// negative for bookings already in the past.
type CancelCheck struct {
	OK         bool
	LimitHours int
	HoursDiff  float64
}

// CanCancel decides whether a booking starting at startsAt may still be
// cancelled for free under the tenant's policy window. Exactly at the limit
// counts as allowed.
func CanCancel(startsAt, now time.Time, limitHours int) CancelCheck {
	hoursDiff := startsAt.Sub(now).Hours()
	return CancelCheck{
		OK:         hoursDiff >= float64(limitHours),
		LimitHours: limitHours,
		HoursDiff:  hoursDiff,
	}
}
