package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rendevo/booking-api/internal/domain"
)

type HolidayRepo interface {
	Create(ctx context.Context, h *domain.HolidayRange) (*domain.HolidayRange, error)
	GetForBusiness(ctx context.Context, businessID, id uuid.UUID) (*domain.HolidayRange, error)
	ListForBusiness(ctx context.Context, businessID uuid.UUID) ([]domain.HolidayRange, error)
	Update(ctx context.Context, h *domain.HolidayRange) (*domain.HolidayRange, error)
	Delete(ctx context.Context, businessID, id uuid.UUID) (bool, error)
	AnyCovering(ctx context.Context, businessID uuid.UUID, date time.Time) (bool, error)
}

type HolidayRepoImpl struct{ pool *pgxpool.Pool }

func NewHolidayRepo(pool *pgxpool.Pool) *HolidayRepoImpl { return &HolidayRepoImpl{pool: pool} }

const holidayCols = `id, business_id, start_date, end_date, reason, created_at`

func scanHoliday(row pgx.Row) (*domain.HolidayRange, error) {
	var h domain.HolidayRange
	err := row.Scan(&h.ID, &h.BusinessID, &h.StartDate, &h.EndDate, &h.Reason, &h.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *HolidayRepoImpl) Create(ctx context.Context, h *domain.HolidayRange) (*domain.HolidayRange, error) {
	const q = `
		INSERT INTO holiday_ranges (id, business_id, start_date, end_date, reason)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING ` + holidayCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanHoliday(r.pool.QueryRow(ctx, q,
		h.ID, h.BusinessID, h.StartDate, h.EndDate, h.Reason))
}

func (r *HolidayRepoImpl) GetForBusiness(ctx context.Context, businessID, id uuid.UUID) (*domain.HolidayRange, error) {
	const q = `SELECT ` + holidayCols + ` FROM holiday_ranges WHERE business_id=$1 AND id=$2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	h, err := scanHoliday(r.pool.QueryRow(ctx, q, businessID, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return h, err
}

func (r *HolidayRepoImpl) ListForBusiness(ctx context.Context, businessID uuid.UUID) ([]domain.HolidayRange, error) {
	const q = `SELECT ` + holidayCols + `
		FROM holiday_ranges
		WHERE business_id=$1
		ORDER BY start_date`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.HolidayRange
	for rows.Next() {
		h, err := scanHoliday(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *h)
	}
	return out, rows.Err()
}

func (r *HolidayRepoImpl) Update(ctx context.Context, h *domain.HolidayRange) (*domain.HolidayRange, error) {
	const q = `
		UPDATE holiday_ranges
		SET start_date=$3, end_date=$4, reason=$5
		WHERE business_id=$1 AND id=$2
		RETURNING ` + holidayCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	updated, err := scanHoliday(r.pool.QueryRow(ctx, q,
		h.BusinessID, h.ID, h.StartDate, h.EndDate, h.Reason))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return updated, err
}

func (r *HolidayRepoImpl) Delete(ctx context.Context, businessID, id uuid.UUID) (bool, error) {
	const q = `DELETE FROM holiday_ranges WHERE business_id=$1 AND id=$2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, businessID, id)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

// AnyCovering reports whether any range includes the date, inclusive on
// both ends. Overlapping ranges are allowed so existence is all that
// matters.
func (r *HolidayRepoImpl) AnyCovering(ctx context.Context, businessID uuid.UUID, date time.Time) (bool, error) {
	const q = `SELECT EXISTS (
		SELECT 1 FROM holiday_ranges
		WHERE business_id=$1 AND start_date <= $2 AND end_date >= $2
	)`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var covered bool
	err := r.pool.QueryRow(ctx, q, businessID, domain.DateOf(date)).Scan(&covered)
	return covered, err
}

var _ HolidayRepo = (*HolidayRepoImpl)(nil)
