package public_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rendevo/booking-api/internal/appointment"
	"github.com/rendevo/booking-api/internal/booking"
	"github.com/rendevo/booking-api/internal/domain"
	"github.com/rendevo/booking-api/internal/http/handlers/public"
	"github.com/rendevo/booking-api/internal/schedule"
	"github.com/rendevo/booking-api/pkg/config"
)

// ---------- Mocks ----------

type mockPublisher struct{}

func (mockPublisher) Publish(context.Context, string, interface{}) error { return nil }
func (mockPublisher) Close() error                                       { return nil }

type mockBusinesses struct {
	bySlug map[string]*domain.Business
}

func (m *mockBusinesses) Create(_ context.Context, b *domain.Business) (*domain.Business, error) {
	m.bySlug[b.Slug] = b
	return b, nil
}

func (m *mockBusinesses) GetBySlug(_ context.Context, slug string) (*domain.Business, error) {
	return m.bySlug[slug], nil
}

func (m *mockBusinesses) GetByID(_ context.Context, id uuid.UUID) (*domain.Business, error) {
	for _, b := range m.bySlug {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, nil
}

func (m *mockBusinesses) GetByEmail(_ context.Context, email string) (*domain.Business, error) {
	for _, b := range m.bySlug {
		if b.Email == email {
			return b, nil
		}
	}
	return nil, nil
}

func (m *mockBusinesses) SoftDelete(context.Context, uuid.UUID) (bool, error) { return false, nil }

type mockServices struct {
	byID map[uuid.UUID]*domain.Service
}

func (m *mockServices) Create(_ context.Context, s *domain.Service) (*domain.Service, error) {
	m.byID[s.ID] = s
	return s, nil
}

func (m *mockServices) Update(_ context.Context, s *domain.Service) (*domain.Service, error) {
	m.byID[s.ID] = s
	return s, nil
}

func (m *mockServices) GetForBusiness(_ context.Context, businessID, serviceID uuid.UUID) (*domain.Service, error) {
	s, ok := m.byID[serviceID]
	if !ok || s.BusinessID != businessID {
		return nil, nil
	}
	return s, nil
}

func (m *mockServices) ListForBusiness(_ context.Context, businessID uuid.UUID, includeInactive bool) ([]domain.Service, error) {
	var out []domain.Service
	for _, s := range m.byID {
		if s.BusinessID == businessID && (s.IsActive || includeInactive) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockServices) Deactivate(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return false, nil
}

// mockAppointments backs the booking critical section, the token paths and
// the availability busy-window listing from one in-memory map.
type mockAppointments struct {
	mu         sync.Mutex
	byID       map[uuid.UUID]*domain.Appointment
	businesses *mockBusinesses
	services   *mockServices
}

func (m *mockAppointments) GetBusinessBySlug(ctx context.Context, slug string) (*domain.Business, error) {
	return m.businesses.GetBySlug(ctx, slug)
}

func (m *mockAppointments) GetServiceForBusiness(ctx context.Context, businessID, serviceID uuid.UUID) (*domain.Service, error) {
	return m.services.GetForBusiness(ctx, businessID, serviceID)
}

func (m *mockAppointments) ReserveSlot(_ context.Context, appt *domain.Appointment, _ domain.CustomerInfo) (*domain.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.byID {
		if existing.BusinessID != appt.BusinessID || !existing.Active() {
			continue
		}
		if domain.Overlaps(appt.StartAt, appt.EndAt(), existing.StartAt, existing.EndAt()) {
			return nil, domain.ErrSlotUnavailable
		}
	}
	cp := *appt
	m.byID[cp.ID] = &cp
	return &cp, nil
}

func (m *mockAppointments) GetByToken(_ context.Context, token string) (*domain.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.CancellationToken == token {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockAppointments) GetByID(_ context.Context, id uuid.UUID) (*domain.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.byID[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (m *mockAppointments) GetForBusiness(_ context.Context, businessID, id uuid.UUID) (*domain.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok || a.BusinessID != businessID {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (m *mockAppointments) ListForBusiness(_ context.Context, businessID uuid.UUID, from, to time.Time) ([]domain.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Appointment
	for _, a := range m.byID {
		if a.BusinessID == businessID && !a.StartAt.Before(from) && a.StartAt.Before(to) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockAppointments) CASStatus(_ context.Context, id uuid.UUID, from []domain.AppointmentStatus, change domain.StatusChange) (*domain.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	matched := false
	for _, f := range from {
		if a.Status == f {
			matched = true
			break
		}
	}
	if !matched {
		return nil, nil
	}

	a.Status = change.To
	if change.Reason != "" {
		a.CancellationReason = change.Reason
	}
	if change.ConfirmedAt != nil {
		a.ConfirmedAt = change.ConfirmedAt
	}
	if change.CancelledAt != nil && a.CancelledAt == nil {
		a.CancelledAt = change.CancelledAt
	}
	if change.RevokeToken {
		a.TokenExpiresAt = time.Now()
	}
	cp := *a
	return &cp, nil
}

func (m *mockAppointments) ActiveWindows(_ context.Context, businessID uuid.UUID, from, to time.Time) ([]domain.Interval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Interval
	for _, a := range m.byID {
		if a.BusinessID == businessID && a.Active() &&
			domain.Overlaps(a.StartAt, a.EndAt(), from, to) {
			out = append(out, domain.Interval{Start: a.StartAt, End: a.EndAt()})
		}
	}
	return out, nil
}

type mockSchedules struct {
	weekly map[time.Weekday]*domain.WeeklySchedule
}

func (m *mockSchedules) GetActiveWeekly(_ context.Context, _ uuid.UUID, day time.Weekday) (*domain.WeeklySchedule, error) {
	return m.weekly[day], nil
}

func (m *mockSchedules) GetException(context.Context, uuid.UUID, time.Time) (*domain.ScheduleException, error) {
	return nil, nil
}

type mockHolidays struct{}

func (mockHolidays) AnyCovering(context.Context, uuid.UUID, time.Time) (bool, error) {
	return false, nil
}

// ---------- Fixture ----------

type fixture struct {
	router     chi.Router
	businessID uuid.UUID
	serviceID  uuid.UUID
	appts      *mockAppointments
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	businessID := uuid.New()
	serviceID := uuid.New()

	businesses := &mockBusinesses{bySlug: map[string]*domain.Business{
		"glow-studio": {
			ID: businessID, Slug: "glow-studio", Name: "Glow Studio",
			Timezone: "UTC", IsActive: true,
		},
	}}
	services := &mockServices{byID: map[uuid.UUID]*domain.Service{
		serviceID: {
			ID: serviceID, BusinessID: businessID, Name: "Consultation",
			DurationMinutes: 30, PriceCents: 5000, IsActive: true,
		},
	}}
	appts := &mockAppointments{
		byID:       make(map[uuid.UUID]*domain.Appointment),
		businesses: businesses,
		services:   services,
	}

	// Open every weekday 09:00-17:00 on a 30 minute grid.
	weekly := make(map[time.Weekday]*domain.WeeklySchedule)
	for d := time.Sunday; d <= time.Saturday; d++ {
		weekly[d] = &domain.WeeklySchedule{
			BusinessID: businessID, DayOfWeek: d,
			StartMinute: 9 * 60, EndMinute: 17 * 60,
			SlotDurationMinutes: 30, IsActive: true,
		}
	}

	resolver := schedule.NewResolver(&mockSchedules{weekly: weekly}, mockHolidays{})
	availability := schedule.NewAvailability(businesses, services, appts, resolver)
	bookings := booking.NewService(appts, mockPublisher{}, config.BookingConfig{TokenMargin: 24 * time.Hour})
	lifecycle := appointment.NewService(appts, mockPublisher{})

	h := public.NewHandler(availability, bookings, lifecycle, businesses, services)
	router := chi.NewRouter()
	router.Mount("/", h.Routes())

	return &fixture{router: router, businessID: businessID, serviceID: serviceID, appts: appts}
}

func (f *fixture) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) book(t *testing.T, startAt time.Time) (uuid.UUID, string) {
	t.Helper()

	rec := f.do(http.MethodPost, "/businesses/glow-studio/appointments", map[string]any{
		"service_id": f.serviceID,
		"start_at":   startAt,
		"first_name": "Dana",
		"last_name":  "Reyes",
		"phone":      "+15550001111",
		"email":      "dana@example.com",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("booking failed: status=%d body=%s", rec.Code, rec.Body.String())
	}

	var out struct {
		Appointment       *domain.Appointment `json:"appointment"`
		CancellationToken string              `json:"cancellation_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	return out.Appointment.ID, out.CancellationToken
}

func tomorrowAt(hour int) time.Time {
	d := time.Now().UTC().AddDate(0, 0, 1)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, time.UTC)
}

// ---------- Tests ----------

func TestListAvailability(t *testing.T) {
	f := newFixture(t)
	date := time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02")

	rec := f.do(http.MethodGet,
		fmt.Sprintf("/businesses/glow-studio/availability?date=%s&service_id=%s", date, f.serviceID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}

	var day schedule.DayAvailability
	if err := json.Unmarshal(rec.Body.Bytes(), &day); err != nil {
		t.Fatal(err)
	}
	// 09:00-17:00 on a 30 minute grid is 16 slots.
	if len(day.Slots) != 16 {
		t.Fatalf("slots = %d, want 16", len(day.Slots))
	}
}

func TestListAvailability_MissingDate(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet,
		"/businesses/glow-studio/availability?service_id="+f.serviceID.String(), nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", rec.Code)
	}
}

func TestListAvailability_UnknownBusiness(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet,
		"/businesses/no-such-studio/availability?date=2026-09-01&service_id="+f.serviceID.String(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", rec.Code)
	}
}

func TestCreateAppointment_TokenSurfacedOnce(t *testing.T) {
	f := newFixture(t)
	_, token := f.book(t, tomorrowAt(10))
	if len(token) < 40 {
		t.Fatalf("token looks too short: %q", token)
	}
}

func TestCreateAppointment_ConflictReturns409(t *testing.T) {
	f := newFixture(t)
	start := tomorrowAt(10)
	f.book(t, start)

	rec := f.do(http.MethodPost, "/businesses/glow-studio/appointments", map[string]any{
		"service_id": f.serviceID,
		"start_at":   start,
		"first_name": "Ira",
		"last_name":  "Klein",
		"phone":      "+15550002222",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status=%d body=%s, want 409", rec.Code, rec.Body.String())
	}
}

func TestCreateAppointment_PastStartRejected(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/businesses/glow-studio/appointments", map[string]any{
		"service_id": f.serviceID,
		"start_at":   time.Now().UTC().Add(-time.Hour),
		"first_name": "Ira",
		"last_name":  "Klein",
		"phone":      "+15550002222",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", rec.Code)
	}
}

func TestTokenLookupAndCancel(t *testing.T) {
	f := newFixture(t)
	id, token := f.book(t, tomorrowAt(11))

	rec := f.do(http.MethodGet, "/appointments/"+token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("lookup status=%d body=%s", rec.Code, rec.Body.String())
	}
	var got domain.Appointment
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != id {
		t.Fatalf("resolved wrong appointment: %s", got.ID)
	}

	rec = f.do(http.MethodDelete, "/appointments/"+token, map[string]any{"reason": "plans changed"})
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel status=%d body=%s", rec.Code, rec.Body.String())
	}

	// The token is revoked with the cancellation.
	rec = f.do(http.MethodGet, "/appointments/"+token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("lookup after cancel status=%d, want 404", rec.Code)
	}

	// And a repeat cancel reports the idempotency signal.
	rec = f.do(http.MethodDelete, "/appointments/"+token, map[string]any{"reason": "plans changed"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("repeat cancel status=%d, want 409", rec.Code)
	}
}

func TestTokenLookup_Unknown(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/appointments/not-a-real-token", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", rec.Code)
	}
}

func TestListServices(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/businesses/glow-studio/services", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	var services []domain.Service
	if err := json.Unmarshal(rec.Body.Bytes(), &services); err != nil {
		t.Fatal(err)
	}
	if len(services) != 1 || services[0].Name != "Consultation" {
		t.Fatalf("services = %+v", services)
	}
}
