package availability

import (
	"time"

	"github.com/JanselSanchez/bot-suite-sub000/services/booking-service/internal/timewindow"
)

// Slots returns the offerable intervals inside the open window for a service
// of the given duration, skipping any candidate that would overlap a busy
// interval. The walk advances in steps of duration+buffer: the buffer is idle
// time after the slot and is not part of the bookable interval, but the whole
// step must fit before the window closes.
//
// maxSlots caps how many slots are emitted (a display cap, not a correctness
// constraint); maxSlots <= 0 means no cap. Pure function of its inputs.
func Slots(window timewindow.Interval, duration, buffer time.Duration, busy []timewindow.Interval, maxSlots int) []timewindow.Interval {
	if duration <= 0 || buffer < 0 {
		return nil
	}
	if !window.End.After(window.Start) {
		return nil
	}

	step := duration + buffer
	var slots []timewindow.Interval
	for cursor := window.Start; !cursor.Add(step).After(window.End); cursor = cursor.Add(step) {
		end := cursor.Add(duration)
		if timewindow.OverlapsAny(cursor, end, busy) {
			continue
		}
		slots = append(slots, timewindow.Interval{Start: cursor, End: end})
		if maxSlots > 0 && len(slots) >= maxSlots {
			break
		}
	}
	return slots
}
