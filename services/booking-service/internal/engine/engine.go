package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/JanselSanchez/bot-suite-sub000/services/booking-service/internal/availability"
	"github.com/JanselSanchez/bot-suite-sub000/services/booking-service/internal/calendar"
	"github.com/JanselSanchez/bot-suite-sub000/services/booking-service/internal/model"
	"github.com/JanselSanchez/bot-suite-sub000/services/booking-service/internal/notify"
	"github.com/JanselSanchez/bot-suite-sub000/services/booking-service/internal/policy"
	"github.com/JanselSanchez/bot-suite-sub000/services/booking-service/internal/timewindow"
)

// Reminder is a future notification the engine schedules alongside a booking.
// It is persisted in the same transaction as the booking itself.
type Reminder struct {
	RemindAt time.Time
	Event    notify.Event
}

// Store is the persistence surface the engine writes through. The mutating
// methods are atomic: the booking change, its outbox event and any reminders
// commit together or not at all. Implementations map uniqueness/exclusion
// failures to *ConflictError and missing rows to *NotFoundError; anything
// else comes back as *StorageError.
type Store interface {
	Service(ctx context.Context, tenantID, serviceID string) (model.Service, error)
	Resource(ctx context.Context, tenantID, resourceID string) (model.Resource, error)
	ServiceResources(ctx context.Context, tenantID, serviceID string) ([]model.Resource, error)
	Settings(ctx context.Context, tenantID string) (model.TenantSettings, error)

	Booking(ctx context.Context, tenantID, bookingID string) (model.Booking, error)
	// BlockingBookings returns confirmed bookings on the resource whose
	// intervals intersect [from, to).
	BlockingBookings(ctx context.Context, tenantID, resourceID string, from, to time.Time) ([]model.Booking, error)

	CreateBooking(ctx context.Context, b model.Booking, evt notify.Event, reminders []Reminder) (model.Booking, error)
	// RescheduleBooking moves the booking and replaces its pending reminders
	// with the given set, all in one transaction.
	RescheduleBooking(ctx context.Context, tenantID, bookingID string, startsAt, endsAt time.Time, evt notify.Event, reminders []Reminder) (model.Booking, error)
	// SetBookingStatus updates the status. evt may be nil for silent
	// transitions (no-show). When cancelling, reason is recorded and the
	// booking's pending reminders are dropped in the same transaction.
	SetBookingStatus(ctx context.Context, tenantID, bookingID, status, reason string, evt *notify.Event) (model.Booking, error)
}

// Slot is an offerable interval on a concrete resource.
type Slot struct {
	ResourceID   string    `json:"resource_id"`
	ResourceName string    `json:"resource_name"`
	StartsAt     time.Time `json:"starts_at"`
	EndsAt       time.Time `json:"ends_at"`
}

// Engine owns the booking lifecycle: availability queries, conflict-safe
// creation, reschedule, cancellation under the tenant policy and no-show.
// The database exclusion constraint is the conflict authority; the engine's
// own overlap check only exists to fail fast with a friendly error.
type Engine struct {
	store    Store
	calendar *calendar.Resolver
	logger   *slog.Logger
	now      func() time.Time
}

func New(store Store, resolver *calendar.Resolver, logger *slog.Logger) *Engine {
	return &Engine{
		store:    store,
		calendar: resolver,
		logger:   logger,
		now:      time.Now,
	}
}

// FindAvailableSlots lists the open slots for a service on the local day
// containing date, across every resource that can deliver the service.
// Ordered by resource name, then start time. Misconfiguration (unknown
// service, zero duration, no resources, closed day) degrades to an empty
// result rather than an error; callers in the conversational flow
// want "no hours" there, not a failure.
func (e *Engine) FindAvailableSlots(ctx context.Context, tenantID, serviceID string, date time.Time) ([]Slot, error) {
	settings, err := e.store.Settings(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	svc, err := e.store.Service(ctx, tenantID, serviceID)
	if err != nil {
		if IsNotFound(err) {
			return []Slot{}, nil
		}
		return nil, err
	}
	if svc.DurationMin <= 0 {
		return []Slot{}, nil
	}
	duration := time.Duration(svc.DurationMin) * time.Minute
	buffer := time.Duration(svc.BufferAfterMin) * time.Minute

	resources, err := e.store.ServiceResources(ctx, tenantID, serviceID)
	if err != nil {
		return nil, err
	}

	dayStart := timewindow.LocalDayStart(date, settings.UTCOffsetMinutes)
	dayEnd := dayStart.Add(24 * time.Hour)

	slots := []Slot{}
	for _, res := range resources {
		window, err := e.calendar.OpenWindow(ctx, tenantID, res.ID, date, settings.UTCOffsetMinutes)
		if err != nil {
			return nil, &StorageError{Op: "resolve open window", Err: err}
		}
		if window == nil {
			continue
		}

		busy, err := e.busyIntervals(ctx, tenantID, res.ID, dayStart, dayEnd, "")
		if err != nil {
			return nil, err
		}

		for _, iv := range availability.Slots(*window, duration, buffer, busy, settings.MaxSlotsPerResource) {
			slots = append(slots, Slot{
				ResourceID:   res.ID,
				ResourceName: res.Name,
				StartsAt:     iv.Start,
				EndsAt:       iv.End,
			})
		}
	}
	return slots, nil
}

// IsBookable reports whether [startsAt, endsAt) is free on the resource.
// Advisory only: the winner of a race is decided by the store at commit.
func (e *Engine) IsBookable(ctx context.Context, tenantID, resourceID string, startsAt, endsAt time.Time) (bool, error) {
	return e.isBookable(ctx, tenantID, resourceID, startsAt, endsAt, "")
}

func (e *Engine) isBookable(ctx context.Context, tenantID, resourceID string, startsAt, endsAt time.Time, excludeBookingID string) (bool, error) {
	busy, err := e.busyIntervals(ctx, tenantID, resourceID, startsAt, endsAt, excludeBookingID)
	if err != nil {
		return false, err
	}
	return !timewindow.OverlapsAny(startsAt, endsAt, busy), nil
}

func (e *Engine) busyIntervals(ctx context.Context, tenantID, resourceID string, from, to time.Time, excludeBookingID string) ([]timewindow.Interval, error) {
	bookings, err := e.store.BlockingBookings(ctx, tenantID, resourceID, from, to)
	if err != nil {
		return nil, err
	}
	busy := make([]timewindow.Interval, 0, len(bookings))
	for _, b := range bookings {
		if excludeBookingID != "" && b.ID == excludeBookingID {
			continue
		}
		busy = append(busy, timewindow.Interval{Start: b.StartsAt, End: b.EndsAt})
	}
	return busy, nil
}

// CreateParams carries the input for a new booking. EndsAt is derived from
// the service duration, never supplied by the caller.
type CreateParams struct {
	TenantID      string
	ServiceID     string
	ResourceID    string
	CustomerPhone string
	CustomerName  string
	StartsAt      time.Time
	Notes         string
}

// Create books a confirmed slot. The insert, the booking_confirmed outbox
// event and the reminder jobs commit in one transaction; a concurrent winner
// surfaces as *ConflictError and leaves nothing behind.
func (e *Engine) Create(ctx context.Context, p CreateParams) (*model.Booking, error) {
	switch {
	case p.TenantID == "":
		return nil, &ValidationError{Field: "tenant_id", Reason: "required"}
	case p.ServiceID == "":
		return nil, &ValidationError{Field: "service_id", Reason: "required"}
	case p.ResourceID == "":
		return nil, &ValidationError{Field: "resource_id", Reason: "required"}
	case p.CustomerPhone == "":
		return nil, &ValidationError{Field: "customer_phone", Reason: "required"}
	case p.StartsAt.IsZero():
		return nil, &ValidationError{Field: "starts_at", Reason: "required"}
	}

	svc, err := e.store.Service(ctx, p.TenantID, p.ServiceID)
	if err != nil {
		return nil, err
	}
	if svc.DurationMin <= 0 {
		return nil, &ValidationError{Field: "service_id", Reason: "service has no duration"}
	}
	res, err := e.store.Resource(ctx, p.TenantID, p.ResourceID)
	if err != nil {
		return nil, err
	}
	settings, err := e.store.Settings(ctx, p.TenantID)
	if err != nil {
		return nil, err
	}

	startsAt := p.StartsAt.UTC()
	endsAt := startsAt.Add(time.Duration(svc.DurationMin) * time.Minute)

	free, err := e.isBookable(ctx, p.TenantID, p.ResourceID, startsAt, endsAt, "")
	if err != nil {
		return nil, err
	}
	if !free {
		return nil, &ConflictError{ResourceID: p.ResourceID, Start: startsAt, End: endsAt}
	}

	b := model.Booking{
		TenantID:      p.TenantID,
		ServiceID:     p.ServiceID,
		ResourceID:    p.ResourceID,
		CustomerPhone: p.CustomerPhone,
		CustomerName:  p.CustomerName,
		StartsAt:      startsAt,
		EndsAt:        endsAt,
		Status:        model.StatusConfirmed,
		Notes:         p.Notes,
	}
	evt := notify.Confirmed(b, res.Name, settings.UTCOffsetMinutes)
	reminders := e.reminders(b, res.Name, settings)

	created, err := e.store.CreateBooking(ctx, b, evt, reminders)
	if err != nil {
		return nil, err
	}
	e.logger.InfoContext(ctx, "booking created",
		"tenant_id", created.TenantID,
		"booking_id", created.ID,
		"resource_id", created.ResourceID,
		"starts_at", created.StartsAt)
	return &created, nil
}

func (e *Engine) reminders(b model.Booking, resourceName string, settings model.TenantSettings) []Reminder {
	now := e.now()
	var out []Reminder
	for _, offset := range settings.ReminderOffsetsMin {
		remindAt := b.StartsAt.Add(-time.Duration(offset) * time.Minute)
		if !remindAt.After(now) {
			continue
		}
		out = append(out, Reminder{
			RemindAt: remindAt,
			Event:    notify.Reminder(b, resourceName, settings.UTCOffsetMinutes),
		})
	}
	return out
}

// Reschedule moves a booking to a new start, keeping its service and
// resource. The new end is derived from the service duration. A losing race
// returns *ConflictError with the original row untouched. Old reminders are
// replaced with ones for the new time.
func (e *Engine) Reschedule(ctx context.Context, tenantID, bookingID string, newStart time.Time) (*model.Booking, error) {
	if newStart.IsZero() {
		return nil, &ValidationError{Field: "starts_at", Reason: "required"}
	}

	b, err := e.store.Booking(ctx, tenantID, bookingID)
	if err != nil {
		return nil, err
	}
	svc, err := e.store.Service(ctx, tenantID, b.ServiceID)
	if err != nil {
		return nil, err
	}
	if svc.DurationMin <= 0 {
		return nil, &ValidationError{Field: "service_id", Reason: "service has no duration"}
	}
	settings, err := e.store.Settings(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	startsAt := newStart.UTC()
	endsAt := startsAt.Add(time.Duration(svc.DurationMin) * time.Minute)

	free, err := e.isBookable(ctx, tenantID, b.ResourceID, startsAt, endsAt, b.ID)
	if err != nil {
		return nil, err
	}
	if !free {
		return nil, &ConflictError{ResourceID: b.ResourceID, Start: startsAt, End: endsAt}
	}

	resourceName := ""
	if b.ResourceID != "" {
		res, err := e.store.Resource(ctx, tenantID, b.ResourceID)
		if err != nil {
			return nil, err
		}
		resourceName = res.Name
	}

	moved := b
	moved.StartsAt = startsAt
	moved.EndsAt = endsAt
	evt := notify.Rescheduled(moved, resourceName, settings.UTCOffsetMinutes)
	reminders := e.reminders(moved, resourceName, settings)

	updated, err := e.store.RescheduleBooking(ctx, tenantID, bookingID, startsAt, endsAt, evt, reminders)
	if err != nil {
		return nil, err
	}
	e.logger.InfoContext(ctx, "booking rescheduled",
		"tenant_id", tenantID,
		"booking_id", bookingID,
		"starts_at", startsAt)
	return &updated, nil
}

// Cancel cancels a booking if the tenant's free-cancellation window still
// allows it. force bypasses the window (business-initiated cancellation).
// Cancelling an already-cancelled booking is a no-op. Pending reminders for
// the booking are dropped in the same transaction.
func (e *Engine) Cancel(ctx context.Context, tenantID, bookingID, reason string, force bool) (*model.Booking, error) {
	b, err := e.store.Booking(ctx, tenantID, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status == model.StatusCancelled {
		return &b, nil
	}

	settings, err := e.store.Settings(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if !force {
		check := policy.CanCancel(b.StartsAt, e.now(), settings.CancelFreeHours)
		if !check.OK {
			return nil, &PolicyViolationError{
				Code:       CodeCancelWindowViolation,
				LimitHours: check.LimitHours,
				HoursDiff:  check.HoursDiff,
			}
		}
	}

	resourceName := ""
	if b.ResourceID != "" {
		res, err := e.store.Resource(ctx, tenantID, b.ResourceID)
		if err != nil {
			return nil, err
		}
		resourceName = res.Name
	}
	evt := notify.Cancelled(b, resourceName, settings.UTCOffsetMinutes)

	updated, err := e.store.SetBookingStatus(ctx, tenantID, bookingID, model.StatusCancelled, reason, &evt)
	if err != nil {
		return nil, err
	}
	e.logger.InfoContext(ctx, "booking cancelled",
		"tenant_id", tenantID,
		"booking_id", bookingID,
		"forced", force)
	return &updated, nil
}

// MarkNoShow flags a booking whose customer did not turn up. Idempotent and
// silent: no notification event is emitted.
func (e *Engine) MarkNoShow(ctx context.Context, tenantID, bookingID string) (*model.Booking, error) {
	b, err := e.store.Booking(ctx, tenantID, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status == model.StatusNoShow {
		return &b, nil
	}
	updated, err := e.store.SetBookingStatus(ctx, tenantID, bookingID, model.StatusNoShow, "", nil)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Get fetches a booking by id.
func (e *Engine) Get(ctx context.Context, tenantID, bookingID string) (*model.Booking, error) {
	b, err := e.store.Booking(ctx, tenantID, bookingID)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
