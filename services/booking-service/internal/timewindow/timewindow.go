package timewindow

import "time"

// Interval is a half-open [Start, End) time range in UTC.
type Interval struct {
	Start time.Time
	End   time.Time
}

func (iv Interval) IsZero() bool {
	return iv.Start.IsZero() && iv.End.IsZero()
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Touching intervals (aEnd == bStart) do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// OverlapsAny reports whether [start, end) intersects any of the given intervals.
func OverlapsAny(start, end time.Time, busy []Interval) bool {
	for _, b := range busy {
		if Overlaps(start, end, b.Start, b.End) {
			return true
		}
	}
	return false
}

// LocalDayStart returns the absolute instant of local midnight for the day
// containing t, under a fixed UTC offset in minutes (e.g. -240 for UTC-4).
// The business runs on a single fixed-offset locale, so no IANA rules apply.
func LocalDayStart(t time.Time, offsetMinutes int) time.Time {
	shifted := t.UTC().Add(time.Duration(offsetMinutes) * time.Minute)
	local := time.Date(shifted.Year(), shifted.Month(), shifted.Day(), 0, 0, 0, 0, time.UTC)
	return local.Add(-time.Duration(offsetMinutes) * time.Minute)
}

// LocalWeekday returns the day of week (0=Sunday .. 6=Saturday) of t in the
// fixed local offset. The offset is applied before deriving the weekday so the
// result never depends on the machine's own timezone.
func LocalWeekday(t time.Time, offsetMinutes int) int {
	shifted := t.UTC().Add(time.Duration(offsetMinutes) * time.Minute)
	return int(shifted.Weekday())
}

// AddMinutes is a small convenience mirroring how open/close wall-clock times
// are projected onto a day start.
func AddMinutes(t time.Time, minutes int) time.Time {
	return t.Add(time.Duration(minutes) * time.Minute)
}
