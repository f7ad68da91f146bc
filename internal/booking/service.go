package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rendevo/booking-api/internal/domain"
	"github.com/rendevo/booking-api/internal/utils"
	"github.com/rendevo/booking-api/pkg/config"
	"github.com/rendevo/booking-api/pkg/events"
	"github.com/rendevo/booking-api/pkg/logger"
)

type Store interface {
	GetBusinessBySlug(ctx context.Context, slug string) (*domain.Business, error)
	GetServiceForBusiness(ctx context.Context, businessID, serviceID uuid.UUID) (*domain.Service, error)

	// ReserveSlot runs the critical section: in one transaction it takes an
	// exclusive lock over the business's active appointments overlapping the
	// requested window, re-checks the overlap predicate against the locked
	// rows, finds or creates the customer and inserts the appointment. It
	// fails with domain.ErrSlotUnavailable when the re-check finds an overlap
	// and domain.ErrLockTimeout when the lock cannot be acquired in time.
	ReserveSlot(ctx context.Context, appt *domain.Appointment, customer domain.CustomerInfo) (*domain.Appointment, error)
}

// Service is the only write path that creates appointments.
type Service struct {
	store Store
	bus   events.Publisher
	cfg   config.BookingConfig
}

func NewService(store Store, bus events.Publisher, cfg config.BookingConfig) *Service {
	return &Service{store: store, bus: bus, cfg: cfg}
}

// Reserve books the requested window for a new or returning customer. On
// success the returned appointment carries the cancellation token; this is
// the only time the token is ever surfaced.
func (s *Service) Reserve(ctx context.Context, slug string, serviceID uuid.UUID, startAt time.Time, customer domain.CustomerInfo, notes string) (*domain.Appointment, error) {
	now := time.Now()

	if err := validateCustomer(customer); err != nil {
		return nil, err
	}
	if !startAt.After(now) {
		return nil, domain.Invalid("start_at", "must be in the future")
	}

	business, err := s.store.GetBusinessBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("load business: %w", err)
	}
	if business == nil || !business.Bookable() {
		return nil, domain.ErrNotFound
	}

	svc, err := s.store.GetServiceForBusiness(ctx, business.ID, serviceID)
	if err != nil {
		return nil, fmt.Errorf("load service: %w", err)
	}
	if svc == nil || !svc.IsActive {
		return nil, domain.ErrNotFound
	}

	token, err := NewCancellationToken()
	if err != nil {
		return nil, err
	}

	endAt := startAt.Add(time.Duration(svc.DurationMinutes) * time.Minute)
	appt := &domain.Appointment{
		ID:                uuid.New(),
		BusinessID:        business.ID,
		ServiceID:         svc.ID,
		StartAt:           startAt,
		DurationMinutes:   svc.DurationMinutes,
		ServiceName:       svc.Name,
		PriceCents:        svc.PriceCents,
		Status:            domain.AppointmentPending,
		Notes:             notes,
		CancellationToken: token,
		TokenExpiresAt:    endAt.Add(s.cfg.TokenMargin),
	}

	customer.Phone = utils.NormalizePhone(customer.Phone)
	customer.Email = utils.NormalizeEmail(customer.Email)

	created, err := s.store.ReserveSlot(ctx, appt, customer)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, created)
	return created, nil
}

// publish is fire-and-forget: delivery problems never fail a booking that
// has already committed.
func (s *Service) publish(ctx context.Context, appt *domain.Appointment) {
	notif := events.NotificationEvent{
		AppointmentID: appt.ID.String(),
		Kind:          events.KindConfirmation,
		Channel:       events.ChannelEmail,
	}
	if err := s.bus.Publish(ctx, events.NotifyEnqueue, notif); err != nil {
		logger.ErrorContext(ctx, "Failed to enqueue confirmation notification",
			"error", err, "appointment_id", appt.ID)
	}

	booked := events.AppointmentBookedEvent{
		AppointmentID: appt.ID.String(),
		BusinessID:    appt.BusinessID.String(),
		ServiceName:   appt.ServiceName,
		StartAt:       appt.StartAt,
		CreatedAt:     appt.CreatedAt,
	}
	if err := s.bus.Publish(ctx, events.AppointmentBooked, booked); err != nil {
		logger.ErrorContext(ctx, "Failed to publish booked event",
			"error", err, "appointment_id", appt.ID)
	}
}

func validateCustomer(c domain.CustomerInfo) error {
	if utils.NormalizeString(c.FirstName) == "" {
		return domain.Invalid("first_name", "is required")
	}
	if utils.NormalizeString(c.LastName) == "" {
		return domain.Invalid("last_name", "is required")
	}
	if !utils.IsValidPhone(c.Phone) {
		return domain.Invalid("phone", "is not a valid phone number")
	}
	if c.Email != "" && !utils.IsValidEmail(c.Email) {
		return domain.Invalid("email", "is not a valid email address")
	}
	return nil
}
