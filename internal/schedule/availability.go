package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rendevo/booking-api/internal/domain"
)

type BusinessStore interface {
	GetBySlug(ctx context.Context, slug string) (*domain.Business, error)
}

type ServiceStore interface {
	GetForBusiness(ctx context.Context, businessID, serviceID uuid.UUID) (*domain.Service, error)
}

type AppointmentStore interface {
	// ActiveWindows returns the [start, end) windows of pending and confirmed
	// appointments intersecting [from, to).
	ActiveWindows(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]domain.Interval, error)
}

type DayAvailability struct {
	Date  string            `json:"date"`
	Slots []domain.TimeSlot `json:"slots"`
}

// Availability is the read-only slot listing path. It never locks anything;
// the booking conflict guard re-validates under its own lock.
type Availability struct {
	businesses   BusinessStore
	services     ServiceStore
	appointments AppointmentStore
	resolver     *Resolver
}

func NewAvailability(businesses BusinessStore, services ServiceStore, appointments AppointmentStore, resolver *Resolver) *Availability {
	return &Availability{
		businesses:   businesses,
		services:     services,
		appointments: appointments,
		resolver:     resolver,
	}
}

// ForDate lists the candidate slots of one date for a service. Past dates are
// accepted; their slots all come back unavailable.
func (a *Availability) ForDate(ctx context.Context, slug string, serviceID uuid.UUID, dateStr string) (*DayAvailability, error) {
	business, err := a.businesses.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if business == nil || !business.Bookable() {
		return nil, domain.ErrNotFound
	}

	svc, err := a.services.GetForBusiness(ctx, business.ID, serviceID)
	if err != nil {
		return nil, err
	}
	if svc == nil || !svc.IsActive {
		return nil, domain.ErrNotFound
	}

	loc := business.Location()
	date, err := time.ParseInLocation("2006-01-02", dateStr, loc)
	if err != nil {
		return nil, domain.Invalid("date", "must be formatted YYYY-MM-DD")
	}

	intervals, granularity, err := a.resolver.OpenIntervals(ctx, business.ID, date)
	if err != nil {
		return nil, fmt.Errorf("resolve open intervals: %w", err)
	}

	var busy []domain.Interval
	if len(intervals) > 0 {
		busy, err = a.appointments.ActiveWindows(ctx, business.ID, date, date.AddDate(0, 0, 1))
		if err != nil {
			return nil, fmt.Errorf("load active appointments: %w", err)
		}
	}

	now := time.Now().In(loc)
	slots := Slots(intervals,
		time.Duration(granularity)*time.Minute,
		time.Duration(svc.DurationMinutes)*time.Minute,
		busy, now)

	return &DayAvailability{Date: dateStr, Slots: slots}, nil
}
