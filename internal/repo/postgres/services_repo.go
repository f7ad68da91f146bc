package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rendevo/booking-api/internal/domain"
)

type ServiceRepo interface {
	Create(ctx context.Context, s *domain.Service) (*domain.Service, error)
	Update(ctx context.Context, s *domain.Service) (*domain.Service, error)
	GetForBusiness(ctx context.Context, businessID, serviceID uuid.UUID) (*domain.Service, error)
	ListForBusiness(ctx context.Context, businessID uuid.UUID, includeInactive bool) ([]domain.Service, error)
	Deactivate(ctx context.Context, businessID, serviceID uuid.UUID) (bool, error)
}

type ServiceRepoImpl struct{ pool *pgxpool.Pool }

func NewServiceRepo(pool *pgxpool.Pool) *ServiceRepoImpl { return &ServiceRepoImpl{pool: pool} }

const serviceCols = `id, business_id, name, description, duration_minutes,
price_cents, is_active, display_order, created_at, updated_at`

func scanService(row pgx.Row) (*domain.Service, error) {
	var s domain.Service
	err := row.Scan(
		&s.ID, &s.BusinessID, &s.Name, &s.Description, &s.DurationMinutes,
		&s.PriceCents, &s.IsActive, &s.DisplayOrder, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *ServiceRepoImpl) Create(ctx context.Context, s *domain.Service) (*domain.Service, error) {
	const q = `
		INSERT INTO services (id, business_id, name, description, duration_minutes, price_cents, is_active, display_order)
		VALUES ($1,$2,$3,$4,$5,$6,true,$7)
		RETURNING ` + serviceCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanService(r.pool.QueryRow(ctx, q,
		s.ID, s.BusinessID, s.Name, s.Description, s.DurationMinutes, s.PriceCents, s.DisplayOrder))
}

func (r *ServiceRepoImpl) Update(ctx context.Context, s *domain.Service) (*domain.Service, error) {
	const q = `
		UPDATE services
		SET name=$3, description=$4, duration_minutes=$5, price_cents=$6,
		    is_active=$7, display_order=$8, updated_at=now()
		WHERE id=$1 AND business_id=$2
		RETURNING ` + serviceCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	updated, err := scanService(r.pool.QueryRow(ctx, q,
		s.ID, s.BusinessID, s.Name, s.Description, s.DurationMinutes,
		s.PriceCents, s.IsActive, s.DisplayOrder))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return updated, err
}

func (r *ServiceRepoImpl) GetForBusiness(ctx context.Context, businessID, serviceID uuid.UUID) (*domain.Service, error) {
	const q = `SELECT ` + serviceCols + ` FROM services WHERE business_id=$1 AND id=$2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	s, err := scanService(r.pool.QueryRow(ctx, q, businessID, serviceID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return s, err
}

func (r *ServiceRepoImpl) ListForBusiness(ctx context.Context, businessID uuid.UUID, includeInactive bool) ([]domain.Service, error) {
	const q = `
		SELECT ` + serviceCols + `
		FROM services
		WHERE business_id=$1 AND (is_active OR $2)
		ORDER BY display_order, name`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, businessID, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []domain.Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, *s)
	}
	return services, rows.Err()
}

func (r *ServiceRepoImpl) Deactivate(ctx context.Context, businessID, serviceID uuid.UUID) (bool, error) {
	const q = `UPDATE services SET is_active=false, updated_at=now()
		WHERE business_id=$1 AND id=$2 AND is_active`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, businessID, serviceID)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

var _ ServiceRepo = (*ServiceRepoImpl)(nil)
