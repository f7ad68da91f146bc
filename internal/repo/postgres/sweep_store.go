package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rendevo/booking-api/internal/domain"
)

// SweepStore bundles the cross-business appointment scans with the reminder
// dedup check the sweep passes need behind one dependency.
type SweepStore struct {
	appointments  AppointmentRepo
	notifications NotificationRepo
}

func NewSweepStore(appointments AppointmentRepo, notifications NotificationRepo) *SweepStore {
	return &SweepStore{appointments: appointments, notifications: notifications}
}

func (s *SweepStore) ListConfirmedEndedBefore(ctx context.Context, cutoff time.Time) ([]domain.Appointment, error) {
	return s.appointments.ListConfirmedEndedBefore(ctx, cutoff)
}

func (s *SweepStore) ListUpcomingActive(ctx context.Context, from, to time.Time) ([]domain.Appointment, error) {
	return s.appointments.ListUpcomingActive(ctx, from, to)
}

func (s *SweepStore) ReminderSent(ctx context.Context, appointmentID uuid.UUID) (bool, error) {
	return s.notifications.ReminderSent(ctx, appointmentID)
}
