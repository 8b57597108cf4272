package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JanselSanchez/bot-suite-sub000/libs/db"
	"github.com/JanselSanchez/bot-suite-sub000/services/booking-service/internal/model"
)

// CalendarRepository reads and administers the reference calendar data:
// weekly business hours and one-off exceptions. The scheduling engine only
// reads through it (via calendar.Store); writes happen on the admin surface.
type CalendarRepository struct {
	pool *db.Pool
}

func NewCalendarRepository(pool *db.Pool) *CalendarRepository {
	return &CalendarRepository{pool: pool}
}

// EffectiveHours picks the weekly rule for the weekday, preferring a
// resource-specific row over the tenant-wide default (resource_id IS NULL).
func (r *CalendarRepository) EffectiveHours(ctx context.Context, tenantID, resourceID string, weekday int) (model.BusinessHours, bool, error) {
	var h model.BusinessHours
	err := r.pool.QueryRow(ctx, `
		SELECT tenant_id, resource_id::text, weekday, COALESCE(open_time, ''), COALESCE(close_time, ''), is_closed
		FROM business_hours
		WHERE tenant_id = $1
			AND weekday = $2
			AND (resource_id = NULLIF($3, '')::uuid OR resource_id IS NULL)
		ORDER BY resource_id NULLS LAST
		LIMIT 1
	`, tenantID, weekday, resourceID).Scan(&h.TenantID, &h.ResourceID, &h.Weekday, &h.OpenTime, &h.CloseTime, &h.IsClosed)
	if IsNotFound(err) {
		return model.BusinessHours{}, false, nil
	}
	if err != nil {
		return model.BusinessHours{}, false, err
	}
	return h, true, nil
}

// Exceptions lists the tenant-wide and resource-specific exceptions
// overlapping [from, to).
func (r *CalendarRepository) Exceptions(ctx context.Context, tenantID, resourceID string, from, to time.Time) ([]model.Exception, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, resource_id::text, starts_at, ends_at, is_closed, COALESCE(note, '')
		FROM exceptions
		WHERE tenant_id = $1
			AND (resource_id = NULLIF($2, '')::uuid OR resource_id IS NULL)
			AND starts_at < $4
			AND ends_at > $3
		ORDER BY starts_at ASC
	`, tenantID, resourceID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Exception
	for rows.Next() {
		var ex model.Exception
		if err := rows.Scan(&ex.ID, &ex.TenantID, &ex.ResourceID, &ex.StartsAt, &ex.EndsAt, &ex.IsClosed, &ex.Note); err != nil {
			return nil, err
		}
		out = append(out, ex)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// UpsertHours replaces the rule for (tenant, resource-or-null, weekday).
func (r *CalendarRepository) UpsertHours(ctx context.Context, h model.BusinessHours) error {
	var resourceID any
	if h.ResourceID != nil && *h.ResourceID != "" {
		resourceID = *h.ResourceID
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO business_hours (tenant_id, resource_id, weekday, open_time, close_time, is_closed)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6)
		ON CONFLICT (tenant_id, COALESCE(resource_id, '00000000-0000-0000-0000-000000000000'::uuid), weekday)
		DO UPDATE SET open_time = EXCLUDED.open_time,
			close_time = EXCLUDED.close_time,
			is_closed = EXCLUDED.is_closed
	`, h.TenantID, resourceID, h.Weekday, h.OpenTime, h.CloseTime, h.IsClosed)
	return err
}

func (r *CalendarRepository) ListHours(ctx context.Context, tenantID string) ([]model.BusinessHours, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT tenant_id, resource_id::text, weekday, COALESCE(open_time, ''), COALESCE(close_time, ''), is_closed
		FROM business_hours
		WHERE tenant_id = $1
		ORDER BY resource_id NULLS FIRST, weekday ASC
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.BusinessHours
	for rows.Next() {
		var h model.BusinessHours
		if err := rows.Scan(&h.TenantID, &h.ResourceID, &h.Weekday, &h.OpenTime, &h.CloseTime, &h.IsClosed); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *CalendarRepository) CreateException(ctx context.Context, ex model.Exception) (string, error) {
	var resourceID any
	if ex.ResourceID != nil && *ex.ResourceID != "" {
		resourceID = *ex.ResourceID
	}
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO exceptions (tenant_id, resource_id, starts_at, ends_at, is_closed, note)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
		RETURNING id
	`, ex.TenantID, resourceID, ex.StartsAt, ex.EndsAt, ex.IsClosed, ex.Note).Scan(&id)
	return id, err
}

func (r *CalendarRepository) ListExceptions(ctx context.Context, tenantID string, from, to time.Time) ([]model.Exception, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, resource_id::text, starts_at, ends_at, is_closed, COALESCE(note, '')
		FROM exceptions
		WHERE tenant_id = $1 AND starts_at < $3 AND ends_at > $2
		ORDER BY starts_at ASC
	`, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Exception
	for rows.Next() {
		var ex model.Exception
		if err := rows.Scan(&ex.ID, &ex.TenantID, &ex.ResourceID, &ex.StartsAt, &ex.EndsAt, &ex.IsClosed, &ex.Note); err != nil {
			return nil, err
		}
		out = append(out, ex)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *CalendarRepository) DeleteException(ctx context.Context, tenantID, exceptionID string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM exceptions WHERE id = $1 AND tenant_id = $2
	`, exceptionID, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
