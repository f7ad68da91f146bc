package appointment

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/rendevo/booking-api/internal/domain"
	"github.com/rendevo/booking-api/internal/utils"
	"github.com/rendevo/booking-api/pkg/events"
	"github.com/rendevo/booking-api/pkg/logger"
)

const (
	MinReasonLength = 5
	MaxReasonLength = 500
)

type Store interface {
	// GetByToken matches the exact token string regardless of expiry; the
	// service applies the expiry policy itself.
	GetByToken(ctx context.Context, token string) (*domain.Appointment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Appointment, error)
	GetForBusiness(ctx context.Context, businessID, id uuid.UUID) (*domain.Appointment, error)
	ListForBusiness(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]domain.Appointment, error)

	// CASStatus atomically applies the change when the row's current status
	// is one of from. Returns nil when no row matched, which callers map to
	// the lifecycle error taxonomy.
	CASStatus(ctx context.Context, id uuid.UUID, from []domain.AppointmentStatus, change domain.StatusChange) (*domain.Appointment, error)
}

// Service owns every status mutation of an appointment after creation, both
// the public token path and the business-side actions. Status changes are
// compare-and-set; a lost race surfaces as ErrInvalidTransition or
// ErrAlreadyCancelled, never as silent double processing.
type Service struct {
	store Store
	bus   events.Publisher
}

func NewService(store Store, bus events.Publisher) *Service {
	return &Service{store: store, bus: bus}
}

// ResolveByToken returns the appointment a valid, unexpired token points at.
// Expired and unknown tokens are indistinguishable.
func (s *Service) ResolveByToken(ctx context.Context, token string) (*domain.Appointment, error) {
	now := time.Now()

	appt, err := s.store.GetByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("resolve token: %w", err)
	}
	if appt == nil || !appt.TokenValid(now) {
		return nil, domain.ErrNotFound
	}
	return appt, nil
}

// CancelByToken cancels the appointment the token points at and revokes the
// token, closing the public path while the business-side lookup keeps seeing
// the cancelled row.
func (s *Service) CancelByToken(ctx context.Context, token, reason string) (*domain.Appointment, error) {
	now := time.Now()

	reason = utils.NormalizeString(reason)
	if n := utf8.RuneCountInString(reason); n < MinReasonLength || n > MaxReasonLength {
		return nil, domain.Invalid("reason", "must be between 5 and 500 characters")
	}

	appt, err := s.store.GetByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("resolve token: %w", err)
	}
	if appt == nil {
		return nil, domain.ErrNotFound
	}
	// Repeat cancellation through the same token is reported distinctly even
	// though the token has already been revoked.
	if appt.Status == domain.AppointmentCancelled {
		return nil, domain.ErrAlreadyCancelled
	}
	if !appt.TokenValid(now) {
		return nil, domain.ErrNotFound
	}
	if !appt.CanCancel() {
		return nil, domain.ErrInvalidTransition
	}

	updated, err := s.cancel(ctx, appt.ID, reason, now)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetForBusiness is the business-side lookup. Cancelled rows stay visible
// here after the public token path is revoked.
func (s *Service) GetForBusiness(ctx context.Context, businessID, id uuid.UUID) (*domain.Appointment, error) {
	appt, err := s.store.GetForBusiness(ctx, businessID, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if appt == nil {
		return nil, domain.ErrNotFound
	}
	return appt, nil
}

// Confirm is the business action moving a pending appointment to confirmed.
func (s *Service) Confirm(ctx context.Context, businessID, id uuid.UUID) (*domain.Appointment, error) {
	now := time.Now()

	appt, err := s.store.GetForBusiness(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	if appt == nil {
		return nil, domain.ErrNotFound
	}
	if !appt.CanConfirm(now) {
		return nil, domain.ErrInvalidTransition
	}

	updated, err := s.store.CASStatus(ctx, id,
		[]domain.AppointmentStatus{domain.AppointmentPending},
		domain.StatusChange{To: domain.AppointmentConfirmed, ConfirmedAt: &now})
	if err != nil {
		return nil, fmt.Errorf("confirm appointment: %w", err)
	}
	if updated == nil {
		return nil, domain.ErrInvalidTransition
	}
	return updated, nil
}

// Cancel is the business-side cancellation.
func (s *Service) Cancel(ctx context.Context, businessID, id uuid.UUID, reason string) (*domain.Appointment, error) {
	now := time.Now()

	reason = utils.NormalizeString(reason)
	if n := utf8.RuneCountInString(reason); n < MinReasonLength || n > MaxReasonLength {
		return nil, domain.Invalid("reason", "must be between 5 and 500 characters")
	}

	appt, err := s.store.GetForBusiness(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	if appt == nil {
		return nil, domain.ErrNotFound
	}
	if appt.Status == domain.AppointmentCancelled {
		return nil, domain.ErrAlreadyCancelled
	}
	if !appt.CanCancel() {
		return nil, domain.ErrInvalidTransition
	}

	return s.cancel(ctx, id, reason, now)
}

// MarkNoShow flags a confirmed past appointment the customer never showed
// up for.
func (s *Service) MarkNoShow(ctx context.Context, businessID, id uuid.UUID) (*domain.Appointment, error) {
	now := time.Now()

	appt, err := s.store.GetForBusiness(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	if appt == nil {
		return nil, domain.ErrNotFound
	}
	if !appt.CanMarkNoShow(now) {
		return nil, domain.ErrInvalidTransition
	}

	updated, err := s.store.CASStatus(ctx, id,
		[]domain.AppointmentStatus{domain.AppointmentConfirmed},
		domain.StatusChange{To: domain.AppointmentNoShow})
	if err != nil {
		return nil, fmt.Errorf("mark no-show: %w", err)
	}
	if updated == nil {
		return nil, domain.ErrInvalidTransition
	}
	return updated, nil
}

// Complete is driven by the sweep for confirmed appointments whose end time
// has passed.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, now time.Time) (*domain.Appointment, error) {
	updated, err := s.store.CASStatus(ctx, id,
		[]domain.AppointmentStatus{domain.AppointmentConfirmed},
		domain.StatusChange{To: domain.AppointmentCompleted})
	if err != nil {
		return nil, fmt.Errorf("complete appointment: %w", err)
	}
	if updated == nil {
		return nil, domain.ErrInvalidTransition
	}

	completed := events.AppointmentCompletedEvent{
		AppointmentID: updated.ID.String(),
		BusinessID:    updated.BusinessID.String(),
		CompletedAt:   now,
	}
	if err := s.bus.Publish(ctx, events.AppointmentCompleted, completed); err != nil {
		logger.ErrorContext(ctx, "Failed to publish completed event",
			"error", err, "appointment_id", updated.ID)
	}
	return updated, nil
}

// CancelBySystem applies a system-initiated cancellation (holiday cascade)
// with a compare-and-set only; the caller has already verified the guard.
func (s *Service) CancelBySystem(ctx context.Context, id uuid.UUID, reason string) (*domain.Appointment, error) {
	return s.cancel(ctx, id, reason, time.Now())
}

func (s *Service) ListByRange(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]domain.Appointment, error) {
	if !to.After(from) {
		return nil, domain.Invalid("to", "must be after from")
	}
	return s.store.ListForBusiness(ctx, businessID, from, to)
}

func (s *Service) cancel(ctx context.Context, id uuid.UUID, reason string, now time.Time) (*domain.Appointment, error) {
	updated, err := s.store.CASStatus(ctx, id,
		[]domain.AppointmentStatus{domain.AppointmentPending, domain.AppointmentConfirmed},
		domain.StatusChange{
			To:          domain.AppointmentCancelled,
			Reason:      reason,
			CancelledAt: &now,
			RevokeToken: true,
		})
	if err != nil {
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}
	if updated == nil {
		// Lost a race: report the terminal state we find.
		fresh, ferr := s.store.GetByID(ctx, id)
		if ferr == nil && fresh != nil && fresh.Status == domain.AppointmentCancelled {
			return nil, domain.ErrAlreadyCancelled
		}
		return nil, domain.ErrInvalidTransition
	}

	notif := events.NotificationEvent{
		AppointmentID: updated.ID.String(),
		Kind:          events.KindCancellation,
		Channel:       events.ChannelEmail,
	}
	if err := s.bus.Publish(ctx, events.NotifyEnqueue, notif); err != nil {
		logger.ErrorContext(ctx, "Failed to enqueue cancellation notification",
			"error", err, "appointment_id", updated.ID)
	}

	cancelled := events.AppointmentCancelledEvent{
		AppointmentID: updated.ID.String(),
		BusinessID:    updated.BusinessID.String(),
		Reason:        reason,
		CancelledAt:   now,
	}
	if err := s.bus.Publish(ctx, events.AppointmentCancelled, cancelled); err != nil {
		logger.ErrorContext(ctx, "Failed to publish cancelled event",
			"error", err, "appointment_id", updated.ID)
	}

	return updated, nil
}
