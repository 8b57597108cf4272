package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JanselSanchez/bot-suite-sub000/libs/db"
	"github.com/JanselSanchez/bot-suite-sub000/services/booking-service/internal/engine"
	"github.com/JanselSanchez/bot-suite-sub000/services/booking-service/internal/model"
	"github.com/JanselSanchez/bot-suite-sub000/services/booking-service/internal/notify"
	"github.com/JanselSanchez/bot-suite-sub000/services/booking-service/internal/outbox"
)

// BookingStore is the pgx-backed engine.Store. Mutations run in a single
// transaction together with their outbox event and reminder jobs. The
// bookings table carries an exclusion constraint over
// (resource_id, tstzrange(starts_at, ends_at)) for confirmed rows; a
// violation surfaces here as *engine.ConflictError, which makes the database
// the final authority on double bookings.
type BookingStore struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewBookingStore(pool *db.Pool, ob *outbox.Repository) *BookingStore {
	return &BookingStore{pool: pool, outbox: ob}
}

// IsConflict reports whether err is the exclusion constraint violation
// raised by overlapping confirmed bookings.
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

const bookingColumns = `
	id, tenant_id, service_id, COALESCE(resource_id::text, ''), customer_phone,
	COALESCE(customer_name, ''), starts_at, ends_at, status, COALESCE(notes, ''),
	COALESCE(cancel_reason, ''), created_at, updated_at, cancelled_at`

func scanBooking(row pgx.Row) (model.Booking, error) {
	var b model.Booking
	err := row.Scan(
		&b.ID,
		&b.TenantID,
		&b.ServiceID,
		&b.ResourceID,
		&b.CustomerPhone,
		&b.CustomerName,
		&b.StartsAt,
		&b.EndsAt,
		&b.Status,
		&b.Notes,
		&b.CancelReason,
		&b.CreatedAt,
		&b.UpdatedAt,
		&b.CancelledAt,
	)
	return b, err
}

func (s *BookingStore) Service(ctx context.Context, tenantID, serviceID string) (model.Service, error) {
	var svc model.Service
	err := s.pool.QueryRow(ctx, `
		SELECT id, tenant_id, name, duration_min, buffer_after_min, created_at
		FROM services
		WHERE id = $1 AND tenant_id = $2
	`, serviceID, tenantID).Scan(&svc.ID, &svc.TenantID, &svc.Name, &svc.DurationMin, &svc.BufferAfterMin, &svc.CreatedAt)
	if IsNotFound(err) {
		return model.Service{}, &engine.NotFoundError{Kind: "service", ID: serviceID}
	}
	if err != nil {
		return model.Service{}, &engine.StorageError{Op: "get service", Err: err}
	}
	return svc, nil
}

func (s *BookingStore) Resource(ctx context.Context, tenantID, resourceID string) (model.Resource, error) {
	var res model.Resource
	err := s.pool.QueryRow(ctx, `
		SELECT id, tenant_id, name, created_at
		FROM resources
		WHERE id = $1 AND tenant_id = $2
	`, resourceID, tenantID).Scan(&res.ID, &res.TenantID, &res.Name, &res.CreatedAt)
	if IsNotFound(err) {
		return model.Resource{}, &engine.NotFoundError{Kind: "resource", ID: resourceID}
	}
	if err != nil {
		return model.Resource{}, &engine.StorageError{Op: "get resource", Err: err}
	}
	return res, nil
}

// ServiceResources lists the resources able to deliver the service, ordered
// by name so slot output stays deterministic.
func (s *BookingStore) ServiceResources(ctx context.Context, tenantID, serviceID string) ([]model.Resource, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.id, r.tenant_id, r.name, r.created_at
		FROM resources r
		JOIN service_resources sr ON sr.resource_id = r.id
		WHERE r.tenant_id = $1 AND sr.service_id = $2
		ORDER BY r.name ASC, r.id ASC
	`, tenantID, serviceID)
	if err != nil {
		return nil, &engine.StorageError{Op: "list service resources", Err: err}
	}
	defer rows.Close()

	var out []model.Resource
	for rows.Next() {
		var res model.Resource
		if err := rows.Scan(&res.ID, &res.TenantID, &res.Name, &res.CreatedAt); err != nil {
			return nil, &engine.StorageError{Op: "scan service resource", Err: err}
		}
		out = append(out, res)
	}
	if rows.Err() != nil {
		return nil, &engine.StorageError{Op: "list service resources", Err: rows.Err()}
	}
	return out, nil
}

func (s *BookingStore) Settings(ctx context.Context, tenantID string) (model.TenantSettings, error) {
	settings := model.DefaultSettings(tenantID)
	err := s.pool.QueryRow(ctx, `
		SELECT cancel_free_hours, utc_offset_minutes, max_slots_per_resource, reminder_offsets_min, COALESCE(brand_name, '')
		FROM tenant_settings
		WHERE tenant_id = $1
	`, tenantID).Scan(
		&settings.CancelFreeHours,
		&settings.UTCOffsetMinutes,
		&settings.MaxSlotsPerResource,
		&settings.ReminderOffsetsMin,
		&settings.BrandName,
	)
	if IsNotFound(err) {
		return settings, nil
	}
	if err != nil {
		return model.TenantSettings{}, &engine.StorageError{Op: "get tenant settings", Err: err}
	}
	return settings, nil
}

func (s *BookingStore) Booking(ctx context.Context, tenantID, bookingID string) (model.Booking, error) {
	b, err := scanBooking(s.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1 AND tenant_id = $2
	`, bookingID, tenantID))
	if IsNotFound(err) {
		return model.Booking{}, &engine.NotFoundError{Kind: "booking", ID: bookingID}
	}
	if err != nil {
		return model.Booking{}, &engine.StorageError{Op: "get booking", Err: err}
	}
	return b, nil
}

func (s *BookingStore) BlockingBookings(ctx context.Context, tenantID, resourceID string, from, to time.Time) ([]model.Booking, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE tenant_id = $1
			AND resource_id = $2
			AND status = ANY($3)
			AND starts_at < $5
			AND ends_at > $4
		ORDER BY starts_at ASC
	`, tenantID, resourceID, model.BlockingStatuses, from, to)
	if err != nil {
		return nil, &engine.StorageError{Op: "list blocking bookings", Err: err}
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, &engine.StorageError{Op: "scan booking", Err: err}
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, &engine.StorageError{Op: "list blocking bookings", Err: rows.Err()}
	}
	return out, nil
}

func (s *BookingStore) CreateBooking(ctx context.Context, b model.Booking, evt notify.Event, reminders []engine.Reminder) (model.Booking, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Booking{}, &engine.StorageError{Op: "begin", Err: err}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	created, err := scanBooking(tx.QueryRow(ctx, `
		INSERT INTO bookings
			(tenant_id, service_id, resource_id, customer_phone, customer_name, starts_at, ends_at, status, notes)
		VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, $6, $7, $8, $9)
		RETURNING `+bookingColumns+`
	`, b.TenantID, b.ServiceID, b.ResourceID, b.CustomerPhone, b.CustomerName,
		b.StartsAt, b.EndsAt, b.Status, b.Notes))
	if IsConflict(err) {
		return model.Booking{}, &engine.ConflictError{ResourceID: b.ResourceID, Start: b.StartsAt, End: b.EndsAt}
	}
	if err != nil {
		return model.Booking{}, &engine.StorageError{Op: "insert booking", Err: err}
	}

	if err := s.insertEvent(ctx, tx, evt, created.ID); err != nil {
		return model.Booking{}, err
	}
	for _, rem := range reminders {
		if err := s.insertReminder(ctx, tx, created, rem); err != nil {
			return model.Booking{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		if IsConflict(err) {
			return model.Booking{}, &engine.ConflictError{ResourceID: b.ResourceID, Start: b.StartsAt, End: b.EndsAt}
		}
		return model.Booking{}, &engine.StorageError{Op: "commit", Err: err}
	}
	return created, nil
}

func (s *BookingStore) RescheduleBooking(ctx context.Context, tenantID, bookingID string, startsAt, endsAt time.Time, evt notify.Event, reminders []engine.Reminder) (model.Booking, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Booking{}, &engine.StorageError{Op: "begin", Err: err}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	updated, err := scanBooking(tx.QueryRow(ctx, `
		UPDATE bookings
		SET starts_at = $3,
			ends_at = $4,
			status = $5,
			updated_at = now()
		WHERE id = $1 AND tenant_id = $2
		RETURNING `+bookingColumns+`
	`, bookingID, tenantID, startsAt, endsAt, model.StatusConfirmed))
	if IsNotFound(err) {
		return model.Booking{}, &engine.NotFoundError{Kind: "booking", ID: bookingID}
	}
	if IsConflict(err) {
		return model.Booking{}, &engine.ConflictError{Start: startsAt, End: endsAt}
	}
	if err != nil {
		return model.Booking{}, &engine.StorageError{Op: "reschedule booking", Err: err}
	}

	if err := s.insertEvent(ctx, tx, evt, updated.ID); err != nil {
		return model.Booking{}, err
	}

	// Reminders for the old start are obsolete; swap them for the new set.
	if err := cancelPendingReminders(ctx, tx, tenantID, bookingID); err != nil {
		return model.Booking{}, err
	}
	for _, rem := range reminders {
		if err := s.insertReminder(ctx, tx, updated, rem); err != nil {
			return model.Booking{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		if IsConflict(err) {
			return model.Booking{}, &engine.ConflictError{Start: startsAt, End: endsAt}
		}
		return model.Booking{}, &engine.StorageError{Op: "commit", Err: err}
	}
	return updated, nil
}

// SetBookingStatus transitions the booking. A cancellation records the
// reason in cancel_reason (notes stay as the customer wrote them) and drops
// the booking's pending reminder jobs in the same transaction.
func (s *BookingStore) SetBookingStatus(ctx context.Context, tenantID, bookingID, status, reason string, evt *notify.Event) (model.Booking, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Booking{}, &engine.StorageError{Op: "begin", Err: err}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	updated, err := scanBooking(tx.QueryRow(ctx, `
		UPDATE bookings
		SET status = $3,
			cancel_reason = CASE WHEN $3 = 'cancelled' THEN NULLIF($4, '') ELSE cancel_reason END,
			updated_at = now(),
			cancelled_at = CASE WHEN $3 = 'cancelled' THEN now() ELSE cancelled_at END
		WHERE id = $1 AND tenant_id = $2
		RETURNING `+bookingColumns+`
	`, bookingID, tenantID, status, reason))
	if IsNotFound(err) {
		return model.Booking{}, &engine.NotFoundError{Kind: "booking", ID: bookingID}
	}
	if err != nil {
		return model.Booking{}, &engine.StorageError{Op: "set booking status", Err: err}
	}

	if status == model.StatusCancelled {
		if err := cancelPendingReminders(ctx, tx, tenantID, bookingID); err != nil {
			return model.Booking{}, err
		}
	}

	if evt != nil {
		if err := s.insertEvent(ctx, tx, *evt, updated.ID); err != nil {
			return model.Booking{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Booking{}, &engine.StorageError{Op: "commit", Err: err}
	}
	return updated, nil
}

func cancelPendingReminders(ctx context.Context, tx pgx.Tx, tenantID, bookingID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE reminder_jobs
		SET status = 'cancelled', updated_at = now()
		WHERE tenant_id = $1 AND booking_id = $2 AND status = 'pending'
	`, tenantID, bookingID)
	if err != nil {
		return &engine.StorageError{Op: "cancel reminders", Err: err}
	}
	return nil
}

// ListBookings returns the tenant's bookings with starts_at inside [from, to),
// newest first. Admin listing, not used by the engine.
func (s *BookingStore) ListBookings(ctx context.Context, tenantID string, from, to time.Time, limit int) ([]model.Booking, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE tenant_id = $1 AND starts_at >= $2 AND starts_at < $3
		ORDER BY starts_at DESC
		LIMIT $4
	`, tenantID, from, to, limit)
	if err != nil {
		return nil, &engine.StorageError{Op: "list bookings", Err: err}
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, &engine.StorageError{Op: "scan booking", Err: err}
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, &engine.StorageError{Op: "list bookings", Err: rows.Err()}
	}
	return out, nil
}

func (s *BookingStore) insertEvent(ctx context.Context, tx pgx.Tx, evt notify.Event, bookingID string) error {
	obEvt, err := outbox.FromNotification(evt, bookingID)
	if err != nil {
		return &engine.StorageError{Op: "encode event", Err: err}
	}
	if err := s.outbox.Insert(ctx, tx, obEvt); err != nil {
		return &engine.StorageError{Op: "insert outbox event", Err: err}
	}
	return nil
}

func (s *BookingStore) insertReminder(ctx context.Context, tx pgx.Tx, b model.Booking, rem engine.Reminder) error {
	payload, err := json.Marshal(rem.Event)
	if err != nil {
		return &engine.StorageError{Op: "encode reminder", Err: err}
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO reminder_jobs (tenant_id, booking_id, remind_at, next_run_at, payload)
		VALUES ($1, $2, $3, $3, $4)
	`, b.TenantID, b.ID, rem.RemindAt, payload)
	if err != nil {
		return &engine.StorageError{Op: "insert reminder job", Err: err}
	}
	return nil
}
