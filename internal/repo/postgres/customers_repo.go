package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rendevo/booking-api/internal/domain"
)

// CustomerRepo is the read side; customer rows are created and their
// counters bumped inside the booking transaction (see AppointmentRepo).
type CustomerRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
	GetByPhone(ctx context.Context, businessID uuid.UUID, phone string) (*domain.Customer, error)
	ListForBusiness(ctx context.Context, businessID uuid.UUID, limit, offset int) ([]domain.Customer, error)
}

type CustomerRepoImpl struct{ pool *pgxpool.Pool }

func NewCustomerRepo(pool *pgxpool.Pool) *CustomerRepoImpl { return &CustomerRepoImpl{pool: pool} }

const customerCols = `id, business_id, first_name, last_name, phone, email,
total_appointments, last_appointment_at, created_at, updated_at`

func scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(
		&c.ID, &c.BusinessID, &c.FirstName, &c.LastName, &c.Phone, &c.Email,
		&c.TotalAppointments, &c.LastAppointmentAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CustomerRepoImpl) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	const q = `SELECT ` + customerCols + ` FROM customers WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	c, err := scanCustomer(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func (r *CustomerRepoImpl) GetByPhone(ctx context.Context, businessID uuid.UUID, phone string) (*domain.Customer, error) {
	const q = `SELECT ` + customerCols + ` FROM customers WHERE business_id=$1 AND phone=$2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	c, err := scanCustomer(r.pool.QueryRow(ctx, q, businessID, phone))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func (r *CustomerRepoImpl) ListForBusiness(ctx context.Context, businessID uuid.UUID, limit, offset int) ([]domain.Customer, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	const q = `
		SELECT ` + customerCols + `
		FROM customers
		WHERE business_id=$1
		ORDER BY last_appointment_at DESC NULLS LAST
		LIMIT $2 OFFSET $3`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, businessID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cs := make([]domain.Customer, 0, limit)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		cs = append(cs, *c)
	}
	return cs, rows.Err()
}

var _ CustomerRepo = (*CustomerRepoImpl)(nil)
