package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rendevo/booking-api/internal/domain"
)

type BusinessRepo interface {
	Create(ctx context.Context, b *domain.Business) (*domain.Business, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Business, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Business, error)
	GetByEmail(ctx context.Context, email string) (*domain.Business, error)
	SoftDelete(ctx context.Context, id uuid.UUID) (bool, error)
}

type BusinessRepoImpl struct{ pool *pgxpool.Pool }

func NewBusinessRepo(pool *pgxpool.Pool) *BusinessRepoImpl { return &BusinessRepoImpl{pool: pool} }

const businessCols = `id, slug, name, email, password_hash, timezone,
is_active, deleted_at, created_at, updated_at`

func scanBusiness(row pgx.Row) (*domain.Business, error) {
	var b domain.Business
	err := row.Scan(
		&b.ID, &b.Slug, &b.Name, &b.Email, &b.PasswordHash, &b.Timezone,
		&b.IsActive, &b.DeletedAt, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BusinessRepoImpl) Create(ctx context.Context, b *domain.Business) (*domain.Business, error) {
	const q = `
		INSERT INTO businesses (id, slug, name, email, password_hash, timezone, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,true)
		RETURNING ` + businessCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanBusiness(r.pool.QueryRow(ctx, q,
		b.ID, b.Slug, b.Name, b.Email, b.PasswordHash, b.Timezone))
}

func (r *BusinessRepoImpl) GetBySlug(ctx context.Context, slug string) (*domain.Business, error) {
	const q = `SELECT ` + businessCols + ` FROM businesses WHERE slug=$1 AND deleted_at IS NULL`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanBusiness(r.pool.QueryRow(ctx, q, slug))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return b, err
}

func (r *BusinessRepoImpl) GetByID(ctx context.Context, id uuid.UUID) (*domain.Business, error) {
	const q = `SELECT ` + businessCols + ` FROM businesses WHERE id=$1 AND deleted_at IS NULL`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanBusiness(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return b, err
}

func (r *BusinessRepoImpl) GetByEmail(ctx context.Context, email string) (*domain.Business, error) {
	const q = `SELECT ` + businessCols + ` FROM businesses WHERE email=$1 AND deleted_at IS NULL`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanBusiness(r.pool.QueryRow(ctx, q, email))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return b, err
}

func (r *BusinessRepoImpl) SoftDelete(ctx context.Context, id uuid.UUID) (bool, error) {
	const q = `UPDATE businesses SET deleted_at=now(), is_active=false, updated_at=now()
		WHERE id=$1 AND deleted_at IS NULL`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

var _ BusinessRepo = (*BusinessRepoImpl)(nil)
