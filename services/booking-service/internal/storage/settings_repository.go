package storage

import (
	"context"

	"github.com/JanselSanchez/bot-suite-sub000/libs/db"
	"github.com/JanselSanchez/bot-suite-sub000/services/booking-service/internal/model"
)

// SettingsRepository administers the per-tenant scheduling knobs.
type SettingsRepository struct {
	pool *db.Pool
}

func NewSettingsRepository(pool *db.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// Get returns the tenant's settings, falling back to the defaults when no
// row exists yet.
func (r *SettingsRepository) Get(ctx context.Context, tenantID string) (model.TenantSettings, error) {
	settings := model.DefaultSettings(tenantID)
	err := r.pool.QueryRow(ctx, `
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
		return model.TenantSettings{}, err
	}
	return settings, nil
}

func (r *SettingsRepository) Upsert(ctx context.Context, s model.TenantSettings) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tenant_settings
			(tenant_id, cancel_free_hours, utc_offset_minutes, max_slots_per_resource, reminder_offsets_min, brand_name)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
		ON CONFLICT (tenant_id) DO UPDATE SET
			cancel_free_hours = EXCLUDED.cancel_free_hours,
			utc_offset_minutes = EXCLUDED.utc_offset_minutes,
			max_slots_per_resource = EXCLUDED.max_slots_per_resource,
			reminder_offsets_min = EXCLUDED.reminder_offsets_min,
			brand_name = EXCLUDED.brand_name,
			updated_at = now()
	`, s.TenantID, s.CancelFreeHours, s.UTCOffsetMinutes, s.MaxSlotsPerResource, s.ReminderOffsetsMin, s.BrandName)
	return err
}
