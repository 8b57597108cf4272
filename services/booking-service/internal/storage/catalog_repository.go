package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/JanselSanchez/bot-suite-sub000/libs/db"
	"github.com/JanselSanchez/bot-suite-sub000/services/booking-service/internal/model"
)

// CatalogRepository administers the tenant's services and resources and the
// many-to-many link between them.
type CatalogRepository struct {
	pool *db.Pool
}

func NewCatalogRepository(pool *db.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

func (r *CatalogRepository) CreateService(ctx context.Context, tenantID, name string, durationMin, bufferAfterMin int) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO services (id, tenant_id, name, duration_min, buffer_after_min)
		VALUES ($1, $2, $3, $4, $5)
	`, id, tenantID, name, durationMin, bufferAfterMin)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *CatalogRepository) ListServices(ctx context.Context, tenantID string, limit int) ([]model.Service, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, name, duration_min, buffer_after_min, created_at
		FROM services
		WHERE tenant_id = $1
		ORDER BY name ASC
		LIMIT $2
	`, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		var svc model.Service
		if err := rows.Scan(&svc.ID, &svc.TenantID, &svc.Name, &svc.DurationMin, &svc.BufferAfterMin, &svc.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *CatalogRepository) CreateResource(ctx context.Context, tenantID, name string) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO resources (id, tenant_id, name)
		VALUES ($1, $2, $3)
	`, id, tenantID, name)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *CatalogRepository) ListResources(ctx context.Context, tenantID string, limit int) ([]model.Resource, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, name, created_at
		FROM resources
		WHERE tenant_id = $1
		ORDER BY name ASC
		LIMIT $2
	`, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Resource
	for rows.Next() {
		var res model.Resource
		if err := rows.Scan(&res.ID, &res.TenantID, &res.Name, &res.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// LinkServiceResource marks the resource as able to deliver the service.
// Both rows must belong to the tenant; the WHERE guards against cross-tenant
// links.
func (r *CatalogRepository) LinkServiceResource(ctx context.Context, tenantID, serviceID, resourceID string) error {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO service_resources (service_id, resource_id)
		SELECT s.id, res.id
		FROM services s, resources res
		WHERE s.id = $2 AND s.tenant_id = $1
			AND res.id = $3 AND res.tenant_id = $1
		ON CONFLICT DO NOTHING
	`, tenantID, serviceID, resourceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Either an existing link (fine) or an unknown id. Re-check so the
		// caller gets a real error for the latter.
		var exists bool
		err := r.pool.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM service_resources sr
				JOIN services s ON s.id = sr.service_id
				WHERE sr.service_id = $2 AND sr.resource_id = $3 AND s.tenant_id = $1
			)
		`, tenantID, serviceID, resourceID).Scan(&exists)
		if err != nil {
			return err
		}
		if !exists {
			return pgx.ErrNoRows
		}
	}
	return nil
}

func (r *CatalogRepository) UnlinkServiceResource(ctx context.Context, tenantID, serviceID, resourceID string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM service_resources sr
		USING services s
		WHERE s.id = sr.service_id
			AND s.tenant_id = $1
			AND sr.service_id = $2
			AND sr.resource_id = $3
	`, tenantID, serviceID, resourceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
