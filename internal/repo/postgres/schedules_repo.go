package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rendevo/booking-api/internal/domain"
)

type ScheduleRepo interface {
	UpsertWeekly(ctx context.Context, s *domain.WeeklySchedule) (*domain.WeeklySchedule, error)
	GetActiveWeekly(ctx context.Context, businessID uuid.UUID, day time.Weekday) (*domain.WeeklySchedule, error)
	ListWeekly(ctx context.Context, businessID uuid.UUID) ([]domain.WeeklySchedule, error)
	DeactivateWeekly(ctx context.Context, businessID uuid.UUID, day time.Weekday) (bool, error)

	UpsertException(ctx context.Context, e *domain.ScheduleException) (*domain.ScheduleException, error)
	GetException(ctx context.Context, businessID uuid.UUID, date time.Time) (*domain.ScheduleException, error)
	ListExceptions(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]domain.ScheduleException, error)
	DeleteException(ctx context.Context, businessID uuid.UUID, date time.Time) (bool, error)
}

type ScheduleRepoImpl struct{ pool *pgxpool.Pool }

func NewScheduleRepo(pool *pgxpool.Pool) *ScheduleRepoImpl { return &ScheduleRepoImpl{pool: pool} }

const weeklyCols = `id, business_id, day_of_week, start_minute, end_minute,
slot_duration_minutes, is_active, created_at, updated_at`

func scanWeekly(row pgx.Row) (*domain.WeeklySchedule, error) {
	var s domain.WeeklySchedule
	err := row.Scan(
		&s.ID, &s.BusinessID, &s.DayOfWeek, &s.StartMinute, &s.EndMinute,
		&s.SlotDurationMinutes, &s.IsActive, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpsertWeekly keeps at most one active entry per (business, weekday): the
// unique index on (business_id, day_of_week) makes the insert a replace.
func (r *ScheduleRepoImpl) UpsertWeekly(ctx context.Context, s *domain.WeeklySchedule) (*domain.WeeklySchedule, error) {
	const q = `
		INSERT INTO weekly_schedules (id, business_id, day_of_week, start_minute, end_minute, slot_duration_minutes, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (business_id, day_of_week) DO UPDATE
		SET start_minute=EXCLUDED.start_minute,
		    end_minute=EXCLUDED.end_minute,
		    slot_duration_minutes=EXCLUDED.slot_duration_minutes,
		    is_active=EXCLUDED.is_active,
		    updated_at=now()
		RETURNING ` + weeklyCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanWeekly(r.pool.QueryRow(ctx, q,
		s.ID, s.BusinessID, int(s.DayOfWeek), s.StartMinute, s.EndMinute,
		s.SlotDurationMinutes, s.IsActive))
}

func (r *ScheduleRepoImpl) GetActiveWeekly(ctx context.Context, businessID uuid.UUID, day time.Weekday) (*domain.WeeklySchedule, error) {
	const q = `SELECT ` + weeklyCols + `
		FROM weekly_schedules
		WHERE business_id=$1 AND day_of_week=$2 AND is_active`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	s, err := scanWeekly(r.pool.QueryRow(ctx, q, businessID, int(day)))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return s, err
}

func (r *ScheduleRepoImpl) ListWeekly(ctx context.Context, businessID uuid.UUID) ([]domain.WeeklySchedule, error) {
	const q = `SELECT ` + weeklyCols + `
		FROM weekly_schedules
		WHERE business_id=$1
		ORDER BY day_of_week`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.WeeklySchedule
	for rows.Next() {
		s, err := scanWeekly(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *ScheduleRepoImpl) DeactivateWeekly(ctx context.Context, businessID uuid.UUID, day time.Weekday) (bool, error) {
	const q = `UPDATE weekly_schedules SET is_active=false, updated_at=now()
		WHERE business_id=$1 AND day_of_week=$2 AND is_active`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, businessID, int(day))
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

const exceptionCols = `id, business_id, date, is_closed, start_minute, end_minute, reason, created_at`

func scanException(row pgx.Row) (*domain.ScheduleException, error) {
	var e domain.ScheduleException
	err := row.Scan(
		&e.ID, &e.BusinessID, &e.Date, &e.IsClosed,
		&e.StartMinute, &e.EndMinute, &e.Reason, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// UpsertException keeps at most one exception per (business, date).
func (r *ScheduleRepoImpl) UpsertException(ctx context.Context, e *domain.ScheduleException) (*domain.ScheduleException, error) {
	const q = `
		INSERT INTO schedule_exceptions (id, business_id, date, is_closed, start_minute, end_minute, reason)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (business_id, date) DO UPDATE
		SET is_closed=EXCLUDED.is_closed,
		    start_minute=EXCLUDED.start_minute,
		    end_minute=EXCLUDED.end_minute,
		    reason=EXCLUDED.reason
		RETURNING ` + exceptionCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanException(r.pool.QueryRow(ctx, q,
		e.ID, e.BusinessID, domain.DateOf(e.Date), e.IsClosed, e.StartMinute, e.EndMinute, e.Reason))
}

func (r *ScheduleRepoImpl) GetException(ctx context.Context, businessID uuid.UUID, date time.Time) (*domain.ScheduleException, error) {
	const q = `SELECT ` + exceptionCols + `
		FROM schedule_exceptions
		WHERE business_id=$1 AND date=$2`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	e, err := scanException(r.pool.QueryRow(ctx, q, businessID, domain.DateOf(date)))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return e, err
}

func (r *ScheduleRepoImpl) ListExceptions(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]domain.ScheduleException, error) {
	const q = `SELECT ` + exceptionCols + `
		FROM schedule_exceptions
		WHERE business_id=$1 AND date >= $2 AND date < $3
		ORDER BY date`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, businessID, domain.DateOf(from), domain.DateOf(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ScheduleException
	for rows.Next() {
		e, err := scanException(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (r *ScheduleRepoImpl) DeleteException(ctx context.Context, businessID uuid.UUID, date time.Time) (bool, error) {
	const q = `DELETE FROM schedule_exceptions WHERE business_id=$1 AND date=$2`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, businessID, domain.DateOf(date))
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

var _ ScheduleRepo = (*ScheduleRepoImpl)(nil)
