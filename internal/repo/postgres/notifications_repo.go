package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rendevo/booking-api/internal/domain"
)

type NotificationRepo interface {
	Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
	ReminderSent(ctx context.Context, appointmentID uuid.UUID) (bool, error)
}

type NotificationRepoImpl struct{ pool *pgxpool.Pool }

func NewNotificationRepo(pool *pgxpool.Pool) *NotificationRepoImpl {
	return &NotificationRepoImpl{pool: pool}
}

const notificationCols = `id, appointment_id, kind, channel, recipient,
subject, status, error_message, sent_at, created_at`

func (r *NotificationRepoImpl) Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	const q = `
		INSERT INTO notifications (id, appointment_id, kind, channel, recipient, subject, status)
		VALUES ($1,$2,$3,$4,$5,$6,'pending')
		RETURNING ` + notificationCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var out domain.Notification
	err := r.pool.QueryRow(ctx, q,
		n.ID, n.AppointmentID, n.Kind, n.Channel, n.Recipient, n.Subject,
	).Scan(
		&out.ID, &out.AppointmentID, &out.Kind, &out.Channel, &out.Recipient,
		&out.Subject, &out.Status, &out.ErrorMessage, &out.SentAt, &out.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *NotificationRepoImpl) MarkSent(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE notifications SET status='sent', sent_at=now() WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, id)
	return err
}

func (r *NotificationRepoImpl) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	const q = `UPDATE notifications SET status='failed', error_message=$2 WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, id, errMsg)
	return err
}

// ReminderSent checks for any non-failed reminder row for the appointment;
// it is the dedup guard for the hourly reminder pass.
func (r *NotificationRepoImpl) ReminderSent(ctx context.Context, appointmentID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (
		SELECT 1 FROM notifications
		WHERE appointment_id=$1 AND kind='reminder' AND status <> 'failed'
	)`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var exists bool
	err := r.pool.QueryRow(ctx, q, appointmentID).Scan(&exists)
	return exists, err
}

var _ NotificationRepo = (*NotificationRepoImpl)(nil)
