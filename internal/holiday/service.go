package holiday

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rendevo/booking-api/internal/domain"
	"github.com/rendevo/booking-api/pkg/logger"
)

type Store interface {
	Create(ctx context.Context, h *domain.HolidayRange) (*domain.HolidayRange, error)
	GetForBusiness(ctx context.Context, businessID, id uuid.UUID) (*domain.HolidayRange, error)
	ListForBusiness(ctx context.Context, businessID uuid.UUID) ([]domain.HolidayRange, error)
	Update(ctx context.Context, h *domain.HolidayRange) (*domain.HolidayRange, error)
	Delete(ctx context.Context, businessID, id uuid.UUID) (bool, error)
}

// AppointmentStore selects the appointments a holiday range would knock out:
// pending or confirmed, starting on any date within [from, to] inclusive.
type AppointmentStore interface {
	ListActiveStartingBetween(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]domain.Appointment, error)
}

// Lifecycle is the slice of the appointment service the cascade needs.
type Lifecycle interface {
	CancelBySystem(ctx context.Context, id uuid.UUID, reason string) (*domain.Appointment, error)
}

// Service owns holiday ranges and the cancellation cascade that follows
// creating or widening one.
type Service struct {
	store        Store
	appointments AppointmentStore
	lifecycle    Lifecycle
}

func NewService(store Store, appointments AppointmentStore, lifecycle Lifecycle) *Service {
	return &Service{store: store, appointments: appointments, lifecycle: lifecycle}
}

// CascadeResult reports what a holiday mutation did to existing bookings.
type CascadeResult struct {
	Holiday   *domain.HolidayRange `json:"holiday"`
	Cancelled []uuid.UUID          `json:"cancelled_appointment_ids"`
	Failed    []uuid.UUID          `json:"failed_appointment_ids,omitempty"`
}

// Create stores a new range and cancels every active appointment it covers.
func (s *Service) Create(ctx context.Context, businessID uuid.UUID, startDate, endDate time.Time, reason string) (*CascadeResult, error) {
	h := &domain.HolidayRange{
		ID:         uuid.New(),
		BusinessID: businessID,
		StartDate:  domain.DateOf(startDate),
		EndDate:    domain.DateOf(endDate),
		Reason:     strings.TrimSpace(reason),
	}
	if err := h.Validate(); err != nil {
		return nil, err
	}

	created, err := s.store.Create(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("create holiday: %w", err)
	}

	cancelled, failed := s.cascade(ctx, created)
	return &CascadeResult{Holiday: created, Cancelled: cancelled, Failed: failed}, nil
}

// Update rewrites an existing range and re-runs the cascade over the new
// span. Dates the range no longer covers are left alone; cancellation is
// never undone.
func (s *Service) Update(ctx context.Context, businessID, id uuid.UUID, startDate, endDate time.Time, reason string) (*CascadeResult, error) {
	existing, err := s.store.GetForBusiness(ctx, businessID, id)
	if err != nil {
		return nil, fmt.Errorf("load holiday: %w", err)
	}
	if existing == nil {
		return nil, domain.ErrNotFound
	}

	existing.StartDate = domain.DateOf(startDate)
	existing.EndDate = domain.DateOf(endDate)
	existing.Reason = strings.TrimSpace(reason)
	if err := existing.Validate(); err != nil {
		return nil, err
	}

	updated, err := s.store.Update(ctx, existing)
	if err != nil {
		return nil, fmt.Errorf("update holiday: %w", err)
	}

	cancelled, failed := s.cascade(ctx, updated)
	return &CascadeResult{Holiday: updated, Cancelled: cancelled, Failed: failed}, nil
}

func (s *Service) Delete(ctx context.Context, businessID, id uuid.UUID) error {
	deleted, err := s.store.Delete(ctx, businessID, id)
	if err != nil {
		return fmt.Errorf("delete holiday: %w", err)
	}
	if !deleted {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) List(ctx context.Context, businessID uuid.UUID) ([]domain.HolidayRange, error) {
	return s.store.ListForBusiness(ctx, businessID)
}

// PreviewAffected returns the ids of the active appointments a prospective
// range would cancel, without mutating anything. Meant for confirmation UIs.
func (s *Service) PreviewAffected(ctx context.Context, businessID uuid.UUID, startDate, endDate time.Time) ([]uuid.UUID, error) {
	probe := domain.HolidayRange{
		StartDate: domain.DateOf(startDate),
		EndDate:   domain.DateOf(endDate),
	}
	if err := probe.Validate(); err != nil {
		return nil, err
	}

	affected, err := s.affected(ctx, businessID, probe.StartDate, probe.EndDate)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(affected))
	for _, a := range affected {
		ids = append(ids, a.ID)
	}
	return ids, nil
}

func (s *Service) affected(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]domain.Appointment, error) {
	// Inclusive end date: cover the whole final day.
	return s.appointments.ListActiveStartingBetween(ctx, businessID, from, to.AddDate(0, 0, 1))
}

// cascade cancels each covered appointment one at a time. A failure on one
// row is logged and skipped so the rest of the batch still goes through; a
// booking that slips to a terminal state first simply loses nothing.
func (s *Service) cascade(ctx context.Context, h *domain.HolidayRange) (cancelled, failed []uuid.UUID) {
	affected, err := s.affected(ctx, h.BusinessID, h.StartDate, h.EndDate)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to list appointments for holiday cascade",
			"error", err, "holiday_id", h.ID)
		return nil, nil
	}

	reason := cascadeReason(h)
	for _, a := range affected {
		if _, err := s.lifecycle.CancelBySystem(ctx, a.ID, reason); err != nil {
			logger.WarnContext(ctx, "Holiday cascade skipped appointment",
				"error", err, "appointment_id", a.ID, "holiday_id", h.ID)
			failed = append(failed, a.ID)
			continue
		}
		cancelled = append(cancelled, a.ID)
	}
	return cancelled, failed
}

func cascadeReason(h *domain.HolidayRange) string {
	reason := "Business closed for holiday"
	if h.Reason != "" {
		reason = fmt.Sprintf("%s: %s", reason, h.Reason)
	}
	return reason
}
