package calendar

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/JanselSanchez/bot-suite-sub000/services/booking-service/internal/model"
	"github.com/JanselSanchez/bot-suite-sub000/services/booking-service/internal/timewindow"
)

// Store is the slice of storage the resolver needs. resourceID may be empty,
// meaning the tenant-wide calendar.
type Store interface {
	// EffectiveHours returns the weekly rule for the weekday, preferring a
	// resource-specific row over the tenant-wide default. ok is false when no
	// rule exists.
	EffectiveHours(ctx context.Context, tenantID, resourceID string, weekday int) (model.BusinessHours, bool, error)
	// Exceptions returns the exceptions for the tenant/resource overlapping
	// [from, to).
	Exceptions(ctx context.Context, tenantID, resourceID string, from, to time.Time) ([]model.Exception, error)
}

// Resolver computes the effective open window for a tenant/resource on a
// calendar day: one-off exceptions first, then the recurring weekly rule.
type Resolver struct {
	store Store
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// OpenWindow resolves the bookable window for the local day containing date.
// date is expected as local midnight expressed as an absolute instant; any
// other instant is normalized first. A nil interval means closed that day,
// which is a legitimate outcome, not an error.
//
// Windows whose close time is not after their open time are treated as closed.
// Midnight-crossing hours are not split into two days here; the resolver is
// the single source of truth for that policy.
func (r *Resolver) OpenWindow(ctx context.Context, tenantID, resourceID string, date time.Time, offsetMinutes int) (*timewindow.Interval, error) {
	dayStart := timewindow.LocalDayStart(date, offsetMinutes)
	dayEnd := dayStart.Add(24 * time.Hour)

	exceptions, err := r.store.Exceptions(ctx, tenantID, resourceID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("load exceptions: %w", err)
	}
	for _, ex := range exceptions {
		if ex.IsClosed {
			return nil, nil
		}
	}

	weekday := timewindow.LocalWeekday(dayStart, offsetMinutes)
	hours, ok, err := r.store.EffectiveHours(ctx, tenantID, resourceID, weekday)
	if err != nil {
		return nil, fmt.Errorf("load business hours: %w", err)
	}
	if !ok || hours.IsClosed || hours.OpenTime == "" || hours.CloseTime == "" {
		return nil, nil
	}

	openMin, err := parseWallClock(hours.OpenTime)
	if err != nil {
		return nil, nil
	}
	closeMin, err := parseWallClock(hours.CloseTime)
	if err != nil {
		return nil, nil
	}
	if closeMin <= openMin {
		return nil, nil
	}

	return &timewindow.Interval{
		Start: timewindow.AddMinutes(dayStart, openMin),
		End:   timewindow.AddMinutes(dayStart, closeMin),
	}, nil
}

// parseWallClock accepts "HH:MM" or "HH:MM:SS" and returns minutes since
// local midnight.
func parseWallClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 {
		return 0, fmt.Errorf("malformed wall clock %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("wall clock %q out of range", s)
	}
	return h*60 + m, nil
}
