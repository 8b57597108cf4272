package availability

import (
	"testing"
	"time"

	"github.com/JanselSanchez/bot-suite-sub000/services/booking-service/internal/timewindow"
)

// Monday 09:00-18:00 local (UTC-4) projected to UTC: 13:00-22:00.
func mondayWindow() timewindow.Interval {
	return timewindow.Interval{
		Start: time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 2, 22, 0, 0, 0, time.UTC),
	}
}

func TestSlots_FullOpenDay(t *testing.T) {
	win := mondayWindow()
	slots := Slots(win, 30*time.Minute, 0, nil, 0)
	if len(slots) != 18 {
		t.Fatalf("expected 18 slots for a 9h day of 30min services, got %d", len(slots))
	}
	if !slots[0].Start.Equal(win.Start) {
		t.Fatalf("first slot must start at opening, got %s", slots[0].Start)
	}
	last := slots[len(slots)-1]
	if !last.End.Equal(win.End) {
		t.Fatalf("last slot must end exactly at closing, got %s", last.End)
	}
	for i := 1; i < len(slots); i++ {
		if slots[i].Start.Before(slots[i-1].End) {
			t.Fatalf("slots %d and %d overlap", i-1, i)
		}
	}
}

func TestSlots_SkipsBusyInterval(t *testing.T) {
	win := mondayWindow()
	// Existing confirmed booking 10:00-10:30 local = 14:00-14:30 UTC.
	busy := []timewindow.Interval{
		{Start: time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC), End: time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)},
	}
	slots := Slots(win, 30*time.Minute, 0, busy, 0)
	if len(slots) != 17 {
		t.Fatalf("expected 17 slots, got %d", len(slots))
	}
	var has0930, has1000, has1030 bool
	for _, s := range slots {
		switch s.Start.Hour()*60 + s.Start.Minute() {
		case 13*60 + 30:
			has0930 = true
		case 14 * 60:
			has1000 = true
		case 14*60 + 30:
			has1030 = true
		}
	}
	if has1000 {
		t.Fatal("10:00 candidate must be absent")
	}
	if !has0930 || !has1030 {
		t.Fatal("09:30 and 10:30 must both be present")
	}
}

func TestSlots_BufferMustFitBeforeClose(t *testing.T) {
	win := timewindow.Interval{
		Start: time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC),
	}
	// 25min service + 10min buffer: 13:00 fits (ends 13:35 with buffer),
	// 13:35 does not (step would end 14:10).
	slots := Slots(win, 25*time.Minute, 10*time.Minute, nil, 0)
	if len(slots) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(slots))
	}
	if got := slots[0].End.Sub(slots[0].Start); got != 25*time.Minute {
		t.Fatalf("slot length must exclude the buffer, got %s", got)
	}
}

func TestSlots_MaxSlotsCap(t *testing.T) {
	slots := Slots(mondayWindow(), 30*time.Minute, 0, nil, 8)
	if len(slots) != 8 {
		t.Fatalf("expected cap at 8 slots, got %d", len(slots))
	}
}

func TestSlots_Deterministic(t *testing.T) {
	busy := []timewindow.Interval{
		{Start: time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC), End: time.Date(2026, 3, 2, 16, 0, 0, 0, time.UTC)},
	}
	a := Slots(mondayWindow(), 45*time.Minute, 15*time.Minute, busy, 0)
	b := Slots(mondayWindow(), 45*time.Minute, 15*time.Minute, busy, 0)
	if len(a) != len(b) {
		t.Fatalf("non-deterministic slot count: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if !a[i].Start.Equal(b[i].Start) || !a[i].End.Equal(b[i].End) {
			t.Fatalf("slot %d differs between runs", i)
		}
	}
}

func TestSlots_EverySlotIsFeasible(t *testing.T) {
	busy := []timewindow.Interval{
		{Start: time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC), End: time.Date(2026, 3, 2, 14, 45, 0, 0, time.UTC)},
		{Start: time.Date(2026, 3, 2, 18, 10, 0, 0, time.UTC), End: time.Date(2026, 3, 2, 19, 0, 0, 0, time.UTC)},
	}
	slots := Slots(mondayWindow(), 30*time.Minute, 0, busy, 0)
	for _, s := range slots {
		if timewindow.OverlapsAny(s.Start, s.End, busy) {
			t.Fatalf("slot %s-%s overlaps the busy set it was generated against", s.Start, s.End)
		}
	}
}

func TestSlots_DegenerateInputs(t *testing.T) {
	win := mondayWindow()
	if got := Slots(win, 0, 0, nil, 0); got != nil {
		t.Fatalf("zero duration must yield no slots, got %d", len(got))
	}
	closed := timewindow.Interval{Start: win.End, End: win.Start}
	if got := Slots(closed, 30*time.Minute, 0, nil, 0); got != nil {
		t.Fatalf("inverted window must yield no slots, got %d", len(got))
	}
}
