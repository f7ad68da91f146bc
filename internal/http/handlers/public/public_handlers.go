package public

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rendevo/booking-api/internal/appointment"
	"github.com/rendevo/booking-api/internal/booking"
	"github.com/rendevo/booking-api/internal/domain"
	"github.com/rendevo/booking-api/internal/http/response"
	"github.com/rendevo/booking-api/internal/repo/postgres"
	"github.com/rendevo/booking-api/internal/schedule"
)

// Handler serves the unauthenticated surface: service and availability
// listing, booking creation and the token-scoped lookup/cancel pair.
type Handler struct {
	availability *schedule.Availability
	bookings     *booking.Service
	appointments *appointment.Service
	businesses   postgres.BusinessRepo
	services     postgres.ServiceRepo
}

func NewHandler(availability *schedule.Availability, bookings *booking.Service, appointments *appointment.Service, businesses postgres.BusinessRepo, services postgres.ServiceRepo) *Handler {
	return &Handler{
		availability: availability,
		bookings:     bookings,
		appointments: appointments,
		businesses:   businesses,
		services:     services,
	}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/businesses/{slug}/services", h.listServices)
	r.Get("/businesses/{slug}/availability", h.listAvailability)
	r.Post("/businesses/{slug}/appointments", h.create)

	r.Get("/appointments/{token}", h.getByToken)
	r.Delete("/appointments/{token}", h.cancelByToken)

	return r
}

func (h *Handler) listServices(w http.ResponseWriter, r *http.Request) {
	business, err := h.businesses.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		response.FromError(w, err)
		return
	}
	if business == nil || !business.Bookable() {
		response.NotFound(w, "business not found")
		return
	}

	services, err := h.services.ListForBusiness(r.Context(), business.ID, false)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, services)
}

func (h *Handler) listAvailability(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		response.BadRequest(w, "date query parameter is required")
		return
	}
	serviceID, err := uuid.Parse(r.URL.Query().Get("service_id"))
	if err != nil {
		response.BadRequest(w, "service_id must be a valid uuid")
		return
	}

	day, err := h.availability.ForDate(r.Context(), slug, serviceID, dateStr)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, day)
}

type createAppointmentReq struct {
	ServiceID uuid.UUID `json:"service_id"`
	StartAt   time.Time `json:"start_at"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email,omitempty"`
	Notes     string    `json:"notes,omitempty"`
}

type createAppointmentRes struct {
	Appointment       *domain.Appointment `json:"appointment"`
	CancellationToken string              `json:"cancellation_token"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	var in createAppointmentReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	if in.ServiceID == uuid.Nil {
		response.BadRequest(w, "service_id is required")
		return
	}
	if in.StartAt.IsZero() {
		response.BadRequest(w, "start_at is required")
		return
	}

	customer := domain.CustomerInfo{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Phone:     in.Phone,
		Email:     in.Email,
	}

	appt, err := h.bookings.Reserve(r.Context(), slug, in.ServiceID, in.StartAt, customer, in.Notes)
	if err != nil {
		response.FromError(w, err)
		return
	}

	// The token is surfaced exactly once, here.
	response.WriteJSON(w, http.StatusCreated, createAppointmentRes{
		Appointment:       appt,
		CancellationToken: appt.CancellationToken,
	})
}

func (h *Handler) getByToken(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	appt, err := h.appointments.ResolveByToken(r.Context(), token)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, appt)
}

type cancelReq struct {
	Reason string `json:"reason"`
}

func (h *Handler) cancelByToken(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var in cancelReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	in.Reason = strings.TrimSpace(in.Reason)

	appt, err := h.appointments.CancelByToken(r.Context(), token, in.Reason)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, appt)
}
