package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rendevo/booking-api/internal/domain"
	"github.com/rendevo/booking-api/pkg/config"
)

// ---------- Mocks ----------

type mockPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (m *mockPublisher) Publish(_ context.Context, subject string, _ interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjects = append(m.subjects, subject)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

// mockStore mirrors the repository's transactional semantics with a mutex:
// like the advisory day lock, it is held across the re-check and the insert
// even when the requested window holds no rows yet.
type mockStore struct {
	mu           sync.Mutex
	business     *domain.Business
	service      *domain.Service
	appointments []*domain.Appointment
	customers    map[string]*domain.Customer
}

func newMockStore() *mockStore {
	businessID := uuid.New()
	return &mockStore{
		business: &domain.Business{
			ID:       businessID,
			Slug:     "corner-barbers",
			Name:     "Corner Barbers",
			IsActive: true,
		},
		service: &domain.Service{
			ID:              uuid.New(),
			BusinessID:      businessID,
			Name:            "Haircut",
			DurationMinutes: 30,
			PriceCents:      2500,
			IsActive:        true,
		},
		customers: make(map[string]*domain.Customer),
	}
}

func (m *mockStore) GetBusinessBySlug(_ context.Context, slug string) (*domain.Business, error) {
	if m.business != nil && m.business.Slug == slug {
		return m.business, nil
	}
	return nil, nil
}

func (m *mockStore) GetServiceForBusiness(_ context.Context, businessID, serviceID uuid.UUID) (*domain.Service, error) {
	if m.service != nil && m.service.ID == serviceID && m.service.BusinessID == businessID {
		return m.service, nil
	}
	return nil, nil
}

func (m *mockStore) ReserveSlot(_ context.Context, appt *domain.Appointment, customer domain.CustomerInfo) (*domain.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.appointments {
		if !existing.Active() {
			continue
		}
		if domain.Overlaps(appt.StartAt, appt.EndAt(), existing.StartAt, existing.EndAt()) {
			return nil, domain.ErrSlotUnavailable
		}
	}

	cust, ok := m.customers[customer.Phone]
	if !ok {
		cust = &domain.Customer{
			ID:         uuid.New(),
			BusinessID: appt.BusinessID,
			FirstName:  customer.FirstName,
			LastName:   customer.LastName,
			Phone:      customer.Phone,
			Email:      customer.Email,
		}
		m.customers[customer.Phone] = cust
	}
	cust.TotalAppointments++

	appt.CustomerID = cust.ID
	appt.CreatedAt = time.Now()
	m.appointments = append(m.appointments, appt)
	return appt, nil
}

func testCustomer() domain.CustomerInfo {
	return domain.CustomerInfo{
		FirstName: "Ada",
		LastName:  "Martin",
		Phone:     "+33612345678",
		Email:     "ada@example.com",
	}
}

// ---------- Tests ----------

func TestReserve_Success(t *testing.T) {
	store := newMockStore()
	bus := &mockPublisher{}
	svc := NewService(store, bus, config.BookingConfig{TokenMargin: 24 * time.Hour})

	start := time.Now().Add(48 * time.Hour).Truncate(time.Minute)
	appt, err := svc.Reserve(context.Background(), "corner-barbers", store.service.ID, start, testCustomer(), "first visit")
	if err != nil {
		t.Fatal(err)
	}

	if appt.Status != domain.AppointmentPending {
		t.Fatalf("status = %s, want pending", appt.Status)
	}
	if appt.ServiceName != "Haircut" || appt.PriceCents != 2500 || appt.DurationMinutes != 30 {
		t.Fatalf("snapshot fields not copied: %+v", appt)
	}
	if appt.CancellationToken == "" {
		t.Fatal("expected a cancellation token")
	}
	wantExpiry := start.Add(30 * time.Minute).Add(24 * time.Hour)
	if !appt.TokenExpiresAt.Equal(wantExpiry) {
		t.Fatalf("token expiry = %v, want %v", appt.TokenExpiresAt, wantExpiry)
	}
	if appt.CustomerID == uuid.Nil {
		t.Fatal("expected customer to be created and linked")
	}

	if len(bus.subjects) != 2 {
		t.Fatalf("expected 2 published events, got %d", len(bus.subjects))
	}
}

func TestReserve_PastDatetimeRejected(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, &mockPublisher{}, config.BookingConfig{TokenMargin: 24 * time.Hour})

	_, err := svc.Reserve(context.Background(), "corner-barbers", store.service.ID,
		time.Now().Add(-time.Hour), testCustomer(), "")
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(store.appointments) != 0 {
		t.Fatal("no appointment should have been created")
	}
}

func TestReserve_UnknownBusinessOrService(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, &mockPublisher{}, config.BookingConfig{TokenMargin: 24 * time.Hour})
	start := time.Now().Add(48 * time.Hour)

	if _, err := svc.Reserve(context.Background(), "nope", store.service.ID, start, testCustomer(), ""); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown business: got %v, want ErrNotFound", err)
	}
	if _, err := svc.Reserve(context.Background(), "corner-barbers", uuid.New(), start, testCustomer(), ""); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown service: got %v, want ErrNotFound", err)
	}
}

func TestReserve_InactiveServiceRejected(t *testing.T) {
	store := newMockStore()
	store.service.IsActive = false
	svc := NewService(store, &mockPublisher{}, config.BookingConfig{TokenMargin: 24 * time.Hour})

	_, err := svc.Reserve(context.Background(), "corner-barbers", store.service.ID,
		time.Now().Add(48*time.Hour), testCustomer(), "")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestReserve_InvalidCustomerRejected(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, &mockPublisher{}, config.BookingConfig{TokenMargin: 24 * time.Hour})
	start := time.Now().Add(48 * time.Hour)

	tests := []struct {
		name     string
		customer domain.CustomerInfo
	}{
		{"missing first name", domain.CustomerInfo{LastName: "Martin", Phone: "+33612345678"}},
		{"missing last name", domain.CustomerInfo{FirstName: "Ada", Phone: "+33612345678"}},
		{"short phone", domain.CustomerInfo{FirstName: "Ada", LastName: "Martin", Phone: "12345"}},
		{"bad email", domain.CustomerInfo{FirstName: "Ada", LastName: "Martin", Phone: "+33612345678", Email: "nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Reserve(context.Background(), "corner-barbers", store.service.ID, start, tt.customer, "")
			if !domain.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestReserve_ConcurrentSameSlotExactlyOneWinner(t *testing.T) {
	store := newMockStore()
	bus := &mockPublisher{}
	svc := NewService(store, bus, config.BookingConfig{TokenMargin: 24 * time.Hour})

	start := time.Now().Add(48 * time.Hour).Truncate(time.Minute)
	const n = 12

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Reserve(context.Background(), "corner-barbers", store.service.ID, start, testCustomer(), "")
		}(i)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, domain.ErrSlotUnavailable):
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if won != 1 || lost != n-1 {
		t.Fatalf("won=%d lost=%d, want exactly one winner out of %d", won, lost, n)
	}
	if len(store.appointments) != 1 {
		t.Fatalf("store holds %d appointments, want 1", len(store.appointments))
	}
}

func TestReserve_AdjacentWindowsBothSucceed(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, &mockPublisher{}, config.BookingConfig{TokenMargin: 24 * time.Hour})

	start := time.Now().Add(48 * time.Hour).Truncate(time.Minute)
	if _, err := svc.Reserve(context.Background(), "corner-barbers", store.service.ID, start, testCustomer(), ""); err != nil {
		t.Fatal(err)
	}
	// Back-to-back slot shares only the boundary instant.
	if _, err := svc.Reserve(context.Background(), "corner-barbers", store.service.ID, start.Add(30*time.Minute), testCustomer(), ""); err != nil {
		t.Fatal(err)
	}
}

func TestReserve_CustomerMatchedByPhone(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, &mockPublisher{}, config.BookingConfig{TokenMargin: 24 * time.Hour})

	start := time.Now().Add(48 * time.Hour).Truncate(time.Minute)
	first, err := svc.Reserve(context.Background(), "corner-barbers", store.service.ID, start, testCustomer(), "")
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Reserve(context.Background(), "corner-barbers", store.service.ID, start.Add(time.Hour), testCustomer(), "")
	if err != nil {
		t.Fatal(err)
	}

	if first.CustomerID != second.CustomerID {
		t.Fatal("expected repeat bookings with the same phone to share one customer")
	}
	if got := store.customers["+33612345678"].TotalAppointments; got != 2 {
		t.Fatalf("customer counter = %d, want 2", got)
	}
}

func TestNewCancellationToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		tok, err := NewCancellationToken()
		if err != nil {
			t.Fatal(err)
		}
		// 32 bytes of entropy, raw URL-safe base64.
		if len(tok) != 43 {
			t.Fatalf("token length = %d, want 43", len(tok))
		}
		if seen[tok] {
			t.Fatal("duplicate token generated")
		}
		seen[tok] = true
	}
}
