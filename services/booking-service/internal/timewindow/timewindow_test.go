package timewindow

import (
	"testing"
	"time"
)

func TestOverlaps_Symmetry(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	cases := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd time.Time
		want                       bool
	}{
		{"disjoint", base, base.Add(30 * time.Minute), base.Add(time.Hour), base.Add(90 * time.Minute), false},
		{"touching", base, base.Add(30 * time.Minute), base.Add(30 * time.Minute), base.Add(time.Hour), false},
		{"partial", base, base.Add(time.Hour), base.Add(30 * time.Minute), base.Add(90 * time.Minute), true},
		{"contained", base, base.Add(2 * time.Hour), base.Add(30 * time.Minute), base.Add(time.Hour), true},
		{"identical", base, base.Add(time.Hour), base, base.Add(time.Hour), true},
	}
	for _, tc := range cases {
		got := Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd)
		if got != tc.want {
			t.Fatalf("%s: Overlaps = %v, want %v", tc.name, got, tc.want)
		}
		if rev := Overlaps(tc.bStart, tc.bEnd, tc.aStart, tc.aEnd); rev != got {
			t.Fatalf("%s: overlap not symmetric: %v vs %v", tc.name, got, rev)
		}
	}
}

func TestLocalDayStart_FixedOffset(t *testing.T) {
	// 2026-03-02 01:30 UTC is still 2026-03-01 21:30 in UTC-4.
	instant := time.Date(2026, 3, 2, 1, 30, 0, 0, time.UTC)
	got := LocalDayStart(instant, -240)
	want := time.Date(2026, 3, 1, 4, 0, 0, 0, time.UTC) // local midnight Mar 1 = 04:00 UTC
	if !got.Equal(want) {
		t.Fatalf("LocalDayStart = %s, want %s", got, want)
	}
}

func TestLocalDayStart_Idempotent(t *testing.T) {
	instant := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	once := LocalDayStart(instant, -240)
	twice := LocalDayStart(once, -240)
	if !once.Equal(twice) {
		t.Fatalf("LocalDayStart not idempotent: %s vs %s", once, twice)
	}
}

func TestLocalWeekday(t *testing.T) {
	// 2026-03-02 is a Monday. At 01:30 UTC it is still Sunday in UTC-4.
	instant := time.Date(2026, 3, 2, 1, 30, 0, 0, time.UTC)
	if wd := LocalWeekday(instant, -240); wd != 0 {
		t.Fatalf("expected local Sunday (0), got %d", wd)
	}
	if wd := LocalWeekday(instant, 0); wd != 1 {
		t.Fatalf("expected UTC Monday (1), got %d", wd)
	}
}

func TestOverlapsAny(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	busy := []Interval{
		{Start: base.Add(time.Hour), End: base.Add(90 * time.Minute)},
	}
	if OverlapsAny(base, base.Add(time.Hour), busy) {
		t.Fatal("touching interval must not count as overlap")
	}
	if !OverlapsAny(base.Add(75*time.Minute), base.Add(2*time.Hour), busy) {
		t.Fatal("expected overlap")
	}
}
