package calendar

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/JanselSanchez/bot-suite-sub000/services/booking-service/internal/model"
	"github.com/JanselSanchez/bot-suite-sub000/services/booking-service/internal/timewindow"
)

type fakeStore struct {
	hours      map[string]model.BusinessHours // key: resourceID|weekday, "" for tenant-wide
	exceptions []model.Exception
}

func hoursKey(resourceID string, weekday int) string {
	return resourceID + "|" + strconv.Itoa(weekday)
}

func (f *fakeStore) EffectiveHours(_ context.Context, _, resourceID string, weekday int) (model.BusinessHours, bool, error) {
	if resourceID != "" {
		if h, ok := f.hours[hoursKey(resourceID, weekday)]; ok {
			return h, true, nil
		}
	}
	h, ok := f.hours[hoursKey("", weekday)]
	return h, ok, nil
}

func (f *fakeStore) Exceptions(_ context.Context, _, resourceID string, from, to time.Time) ([]model.Exception, error) {
	var out []model.Exception
	for _, ex := range f.exceptions {
		if ex.ResourceID != nil && *ex.ResourceID != resourceID {
			continue
		}
		if timewindow.Overlaps(ex.StartsAt, ex.EndsAt, from, to) {
			out = append(out, ex)
		}
	}
	return out, nil
}

// Monday 2026-03-02, local midnight (UTC-4) as an absolute instant.
var monday = time.Date(2026, 3, 2, 4, 0, 0, 0, time.UTC)

const offset = -240

func TestOpenWindow_ProjectsWallClock(t *testing.T) {
	store := &fakeStore{hours: map[string]model.BusinessHours{
		hoursKey("", 1): {Weekday: 1, OpenTime: "09:00", CloseTime: "18:00"},
	}}
	win, err := NewResolver(store).OpenWindow(context.Background(), "t1", "r1", monday, offset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if win == nil {
		t.Fatal("expected an open window")
	}
	wantStart := time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2026, 3, 2, 22, 0, 0, 0, time.UTC)
	if !win.Start.Equal(wantStart) || !win.End.Equal(wantEnd) {
		t.Fatalf("window = %s-%s, want %s-%s", win.Start, win.End, wantStart, wantEnd)
	}
}

func TestOpenWindow_ClosureExceptionWins(t *testing.T) {
	store := &fakeStore{
		hours: map[string]model.BusinessHours{
			hoursKey("", 1): {Weekday: 1, OpenTime: "09:00", CloseTime: "18:00"},
		},
		exceptions: []model.Exception{
			{TenantID: "t1", StartsAt: monday, EndsAt: monday.Add(24 * time.Hour), IsClosed: true, Note: "feriado"},
		},
	}
	win, err := NewResolver(store).OpenWindow(context.Background(), "t1", "r1", monday, offset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if win != nil {
		t.Fatalf("closure exception must win over business hours, got %s-%s", win.Start, win.End)
	}
}

func TestOpenWindow_NoteOnlyExceptionDoesNotClose(t *testing.T) {
	store := &fakeStore{
		hours: map[string]model.BusinessHours{
			hoursKey("", 1): {Weekday: 1, OpenTime: "09:00", CloseTime: "18:00"},
		},
		exceptions: []model.Exception{
			{TenantID: "t1", StartsAt: monday, EndsAt: monday.Add(24 * time.Hour), IsClosed: false, Note: "solo nota"},
		},
	}
	win, err := NewResolver(store).OpenWindow(context.Background(), "t1", "r1", monday, offset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if win == nil {
		t.Fatal("note-only exception must not close the day")
	}
}

func TestOpenWindow_ResourceRuleOverridesTenantDefault(t *testing.T) {
	store := &fakeStore{hours: map[string]model.BusinessHours{
		hoursKey("", 1):   {Weekday: 1, OpenTime: "09:00", CloseTime: "18:00"},
		hoursKey("r1", 1): {Weekday: 1, OpenTime: "10:00", CloseTime: "14:00"},
	}}
	win, err := NewResolver(store).OpenWindow(context.Background(), "t1", "r1", monday, offset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if win == nil {
		t.Fatal("expected an open window")
	}
	if got := win.Start.Hour(); got != 14 { // 10:00 local = 14:00 UTC
		t.Fatalf("resource rule must override tenant default, start hour = %d", got)
	}
}

func TestOpenWindow_ClosedCases(t *testing.T) {
	cases := []struct {
		name  string
		hours map[string]model.BusinessHours
	}{
		{"no rule", map[string]model.BusinessHours{}},
		{"is_closed", map[string]model.BusinessHours{
			hoursKey("", 1): {Weekday: 1, OpenTime: "09:00", CloseTime: "18:00", IsClosed: true},
		}},
		{"missing times", map[string]model.BusinessHours{
			hoursKey("", 1): {Weekday: 1},
		}},
		{"close before open", map[string]model.BusinessHours{
			hoursKey("", 1): {Weekday: 1, OpenTime: "18:00", CloseTime: "09:00"},
		}},
		{"malformed", map[string]model.BusinessHours{
			hoursKey("", 1): {Weekday: 1, OpenTime: "bogus", CloseTime: "18:00"},
		}},
	}
	for _, tc := range cases {
		win, err := NewResolver(&fakeStore{hours: tc.hours}).OpenWindow(context.Background(), "t1", "r1", monday, offset)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if win != nil {
			t.Fatalf("%s: expected closed day", tc.name)
		}
	}
}

func TestParseWallClock(t *testing.T) {
	if min, err := parseWallClock("09:30:00"); err != nil || min != 570 {
		t.Fatalf("parseWallClock(09:30:00) = %d, %v", min, err)
	}
	if _, err := parseWallClock("25:00"); err == nil {
		t.Fatal("expected error for out-of-range hour")
	}
}
