package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rendevo/booking-api/internal/domain"
)

// pgLockNotAvailable is raised when lock_timeout expires while waiting on
// the row locks taken by ReserveSlot.
const pgLockNotAvailable = "55P03"

type AppointmentRepo interface {
	ReserveSlot(ctx context.Context, appt *domain.Appointment, customer domain.CustomerInfo) (*domain.Appointment, error)
	GetByToken(ctx context.Context, token string) (*domain.Appointment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Appointment, error)
	GetForBusiness(ctx context.Context, businessID, id uuid.UUID) (*domain.Appointment, error)
	ListForBusiness(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]domain.Appointment, error)
	CASStatus(ctx context.Context, id uuid.UUID, from []domain.AppointmentStatus, change domain.StatusChange) (*domain.Appointment, error)
	ActiveWindows(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]domain.Interval, error)
	ListActiveStartingBetween(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]domain.Appointment, error)
	ListConfirmedEndedBefore(ctx context.Context, cutoff time.Time) ([]domain.Appointment, error)
	ListUpcomingActive(ctx context.Context, from, to time.Time) ([]domain.Appointment, error)
}

type AppointmentRepoImpl struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

func NewAppointmentRepo(pool *pgxpool.Pool, lockTimeout time.Duration) *AppointmentRepoImpl {
	if lockTimeout <= 0 {
		lockTimeout = 3 * time.Second
	}
	return &AppointmentRepoImpl{pool: pool, lockTimeout: lockTimeout}
}

const appointmentCols = `id, business_id, service_id, customer_id,
start_at, duration_minutes, service_name, price_cents,
status, notes, cancellation_reason,
cancellation_token, token_expires_at,
confirmed_at, cancelled_at, created_at, updated_at`

func scanAppointment(row pgx.Row) (*domain.Appointment, error) {
	var a domain.Appointment
	err := row.Scan(
		&a.ID, &a.BusinessID, &a.ServiceID, &a.CustomerID,
		&a.StartAt, &a.DurationMinutes, &a.ServiceName, &a.PriceCents,
		&a.Status, &a.Notes, &a.CancellationReason,
		&a.CancellationToken, &a.TokenExpiresAt,
		&a.ConfirmedAt, &a.CancelledAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ReserveSlot runs the booking critical section in one transaction: take
// the advisory day locks covering the requested window, re-check the
// overlap predicate against the live rows, find or create the customer,
// then insert. The day locks serialize concurrent bookings per business per
// day only; row locks cannot carry this on their own because a free window
// has no rows to lock, and two inserts into it would both pass the check.
func (r *AppointmentRepoImpl) ReserveSlot(ctx context.Context, appt *domain.Appointment, customer domain.CustomerInfo) (*domain.Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())); err != nil {
		return nil, err
	}

	endAt := appt.EndAt()

	// Any two overlapping windows of one business share at least one day
	// bucket, so the loser blocks here until the winner commits and then
	// sees the inserted row in the conflict check below. lock_timeout
	// bounds the wait on advisory locks too.
	const advisoryQ = `SELECT pg_advisory_xact_lock(hashtext($1))`
	for _, key := range dayLockKeys(appt.BusinessID, appt.StartAt, endAt) {
		if _, err := tx.Exec(ctx, advisoryQ, key); err != nil {
			return nil, translateLockErr(err)
		}
	}

	const lockQ = `
		SELECT id FROM appointments
		WHERE business_id = $1
		  AND status IN ('pending','confirmed')
		  AND start_at < $3
		  AND start_at + make_interval(mins => duration_minutes) > $2
		FOR UPDATE`

	rows, err := tx.Query(ctx, lockQ, appt.BusinessID, appt.StartAt, endAt)
	if err != nil {
		return nil, translateLockErr(err)
	}
	conflict := rows.Next()
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, translateLockErr(err)
	}
	if conflict {
		return nil, domain.ErrSlotUnavailable
	}

	customerID, err := findOrCreateCustomer(ctx, tx, appt.BusinessID, customer, appt.StartAt)
	if err != nil {
		return nil, err
	}
	appt.CustomerID = customerID

	const insertQ = `
		INSERT INTO appointments (
			id, business_id, service_id, customer_id,
			start_at, duration_minutes, service_name, price_cents,
			status, notes, cancellation_token, token_expires_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING ` + appointmentCols

	created, err := scanAppointment(tx.QueryRow(ctx, insertQ,
		appt.ID, appt.BusinessID, appt.ServiceID, appt.CustomerID,
		appt.StartAt, appt.DurationMinutes, appt.ServiceName, appt.PriceCents,
		appt.Status, appt.Notes, appt.CancellationToken, appt.TokenExpiresAt,
	))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

// dayLockKeys buckets [start, end) into UTC days, one advisory lock key per
// (business, day). Keys come out in chronological order so concurrent
// bookings acquire them in the same order and cannot deadlock.
func dayLockKeys(businessID uuid.UUID, start, end time.Time) []string {
	var keys []string
	for day := start.UTC().Truncate(24 * time.Hour); day.Before(end); day = day.Add(24 * time.Hour) {
		keys = append(keys, businessID.String()+":"+day.Format("2006-01-02"))
	}
	return keys
}

func translateLockErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgLockNotAvailable {
		return domain.ErrLockTimeout
	}
	return err
}

// findOrCreateCustomer matches by phone first, then by email, inside the
// booking transaction; a fresh customer row is created when neither hits.
// The aggregate counters are bumped either way.
func findOrCreateCustomer(ctx context.Context, tx pgx.Tx, businessID uuid.UUID, info domain.CustomerInfo, startAt time.Time) (uuid.UUID, error) {
	var id uuid.UUID

	const byPhoneQ = `SELECT id FROM customers WHERE business_id=$1 AND phone=$2`
	err := tx.QueryRow(ctx, byPhoneQ, businessID, info.Phone).Scan(&id)
	if err == pgx.ErrNoRows && info.Email != "" {
		const byEmailQ = `SELECT id FROM customers WHERE business_id=$1 AND email=$2`
		err = tx.QueryRow(ctx, byEmailQ, businessID, info.Email).Scan(&id)
	}
	switch {
	case err == pgx.ErrNoRows:
		const insertQ = `
			INSERT INTO customers (id, business_id, first_name, last_name, phone, email, total_appointments, last_appointment_at)
			VALUES ($1,$2,$3,$4,$5,$6,1,$7)
			RETURNING id`
		if err := tx.QueryRow(ctx, insertQ, uuid.New(), businessID,
			info.FirstName, info.LastName, info.Phone, info.Email, startAt).Scan(&id); err != nil {
			return uuid.Nil, err
		}
		return id, nil
	case err != nil:
		return uuid.Nil, err
	}

	const bumpQ = `
		UPDATE customers
		SET total_appointments = total_appointments + 1,
		    last_appointment_at = GREATEST(COALESCE(last_appointment_at, $2), $2),
		    updated_at = now()
		WHERE id = $1`
	if _, err := tx.Exec(ctx, bumpQ, id, startAt); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (r *AppointmentRepoImpl) GetByToken(ctx context.Context, token string) (*domain.Appointment, error) {
	const q = `SELECT ` + appointmentCols + ` FROM appointments WHERE cancellation_token=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	a, err := scanAppointment(r.pool.QueryRow(ctx, q, token))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (r *AppointmentRepoImpl) GetByID(ctx context.Context, id uuid.UUID) (*domain.Appointment, error) {
	const q = `SELECT ` + appointmentCols + ` FROM appointments WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	a, err := scanAppointment(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (r *AppointmentRepoImpl) GetForBusiness(ctx context.Context, businessID, id uuid.UUID) (*domain.Appointment, error) {
	const q = `SELECT ` + appointmentCols + ` FROM appointments WHERE business_id=$1 AND id=$2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	a, err := scanAppointment(r.pool.QueryRow(ctx, q, businessID, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (r *AppointmentRepoImpl) ListForBusiness(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]domain.Appointment, error) {
	const q = `
		SELECT ` + appointmentCols + `
		FROM appointments
		WHERE business_id=$1 AND start_at >= $2 AND start_at < $3
		ORDER BY start_at`
	return r.list(ctx, q, businessID, from, to)
}

// CASStatus applies a compare-and-set status change: the update only lands
// when the current status is one of from. A nil, nil return means no row
// matched, either unknown id or a lost race.
func (r *AppointmentRepoImpl) CASStatus(ctx context.Context, id uuid.UUID, from []domain.AppointmentStatus, change domain.StatusChange) (*domain.Appointment, error) {
	const q = `
		UPDATE appointments
		SET status = $3,
		    cancellation_reason = CASE WHEN $4 <> '' THEN $4 ELSE cancellation_reason END,
		    confirmed_at = COALESCE($5, confirmed_at),
		    cancelled_at = COALESCE(cancelled_at, $6),
		    token_expires_at = CASE WHEN $7 THEN now() ELSE token_expires_at END,
		    updated_at = now()
		WHERE id = $1 AND status = ANY($2)
		RETURNING ` + appointmentCols

	statuses := make([]string, len(from))
	for i, s := range from {
		statuses[i] = string(s)
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	a, err := scanAppointment(r.pool.QueryRow(ctx, q, id, statuses,
		change.To, change.Reason, change.ConfirmedAt, change.CancelledAt, change.RevokeToken))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (r *AppointmentRepoImpl) ActiveWindows(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]domain.Interval, error) {
	const q = `
		SELECT start_at, start_at + make_interval(mins => duration_minutes)
		FROM appointments
		WHERE business_id = $1
		  AND status IN ('pending','confirmed')
		  AND start_at < $3
		  AND start_at + make_interval(mins => duration_minutes) > $2
		ORDER BY start_at`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, businessID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var windows []domain.Interval
	for rows.Next() {
		var w domain.Interval
		if err := rows.Scan(&w.Start, &w.End); err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	return windows, rows.Err()
}

func (r *AppointmentRepoImpl) ListActiveStartingBetween(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]domain.Appointment, error) {
	const q = `
		SELECT ` + appointmentCols + `
		FROM appointments
		WHERE business_id=$1
		  AND status IN ('pending','confirmed')
		  AND start_at >= $2 AND start_at < $3
		ORDER BY start_at`
	return r.list(ctx, q, businessID, from, to)
}

func (r *AppointmentRepoImpl) ListConfirmedEndedBefore(ctx context.Context, cutoff time.Time) ([]domain.Appointment, error) {
	const q = `
		SELECT ` + appointmentCols + `
		FROM appointments
		WHERE status='confirmed'
		  AND start_at + make_interval(mins => duration_minutes) < $1
		ORDER BY start_at`
	return r.list(ctx, q, cutoff)
}

func (r *AppointmentRepoImpl) ListUpcomingActive(ctx context.Context, from, to time.Time) ([]domain.Appointment, error) {
	const q = `
		SELECT ` + appointmentCols + `
		FROM appointments
		WHERE status IN ('pending','confirmed')
		  AND start_at >= $1 AND start_at < $2
		ORDER BY start_at`
	return r.list(ctx, q, from, to)
}

func (r *AppointmentRepoImpl) list(ctx context.Context, q string, args ...any) ([]domain.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []domain.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, *a)
	}
	return appts, rows.Err()
}

var _ AppointmentRepo = (*AppointmentRepoImpl)(nil)
