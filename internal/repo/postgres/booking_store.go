package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/rendevo/booking-api/internal/domain"
)

// BookingStore bundles the lookups and the reservation critical section the
// booking service needs behind one dependency.
type BookingStore struct {
	businesses   BusinessRepo
	services     ServiceRepo
	appointments AppointmentRepo
}

func NewBookingStore(businesses BusinessRepo, services ServiceRepo, appointments AppointmentRepo) *BookingStore {
	return &BookingStore{businesses: businesses, services: services, appointments: appointments}
}

func (s *BookingStore) GetBusinessBySlug(ctx context.Context, slug string) (*domain.Business, error) {
	return s.businesses.GetBySlug(ctx, slug)
}

func (s *BookingStore) GetServiceForBusiness(ctx context.Context, businessID, serviceID uuid.UUID) (*domain.Service, error) {
	return s.services.GetForBusiness(ctx, businessID, serviceID)
}

func (s *BookingStore) ReserveSlot(ctx context.Context, appt *domain.Appointment, customer domain.CustomerInfo) (*domain.Appointment, error) {
	return s.appointments.ReserveSlot(ctx, appt, customer)
}
