package policy

import (
	"testing"
	"time"
)

func TestCanCancel_Window(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	limit := 3

	cases := []struct {
		name     string
		startsAt time.Time
		wantOK   bool
	}{
		{"well outside window", now.Add(5 * time.Hour), true},
		{"just outside window", now.Add(3*time.Hour + time.Minute), true},
		{"exactly at limit", now.Add(3 * time.Hour), true},
		{"just inside window", now.Add(3*time.Hour - time.Minute), false},
		{"already started", now.Add(-time.Hour), false},
	}
	for _, tc := range cases {
		check := CanCancel(tc.startsAt, now, limit)
		if check.OK != tc.wantOK {
			t.Fatalf("%s: OK = %v, want %v (hoursDiff=%.2f)", tc.name, check.OK, tc.wantOK, check.HoursDiff)
		}
		if check.LimitHours != limit {
			t.Fatalf("%s: limit = %d", tc.name, check.LimitHours)
		}
	}
}

func TestCanCancel_ReportsRemainingHours(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	check := CanCancel(now.Add(90*time.Minute), now, 3)
	if check.OK {
		t.Fatal("90 minutes out must violate a 3h window")
	}
	if check.HoursDiff != 1.5 {
		t.Fatalf("hoursDiff = %v, want 1.5", check.HoursDiff)
	}
}
