package business

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rendevo/booking-api/internal/appointment"
	"github.com/rendevo/booking-api/internal/http/middleware"
	"github.com/rendevo/booking-api/internal/http/response"
)

type AppointmentsHandler struct {
	appointments *appointment.Service
}

func NewAppointmentsHandler(appointments *appointment.Service) *AppointmentsHandler {
	return &AppointmentsHandler{appointments: appointments}
}

func (h *AppointmentsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Post("/{id}/confirm", h.confirm)
	r.Post("/{id}/cancel", h.cancel)
	r.Post("/{id}/no-show", h.markNoShow)

	return r
}

func (h *AppointmentsHandler) list(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)

	from, err := parseTimeParam(r, "from", time.Now().AddDate(0, 0, -7))
	if err != nil {
		response.BadRequest(w, "from must be RFC 3339 formatted")
		return
	}
	to, err := parseTimeParam(r, "to", time.Now().AddDate(0, 0, 30))
	if err != nil {
		response.BadRequest(w, "to must be RFC 3339 formatted")
		return
	}

	appts, err := h.appointments.ListByRange(r.Context(), claims.BusinessID, from, to)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, appts)
}

func (h *AppointmentsHandler) get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "id must be a valid uuid")
		return
	}

	appt, err := h.appointments.GetForBusiness(r.Context(), claims.BusinessID, id)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, appt)
}

func (h *AppointmentsHandler) confirm(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "id must be a valid uuid")
		return
	}

	appt, err := h.appointments.Confirm(r.Context(), claims.BusinessID, id)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, appt)
}

type businessCancelReq struct {
	Reason string `json:"reason"`
}

func (h *AppointmentsHandler) cancel(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "id must be a valid uuid")
		return
	}

	var in businessCancelReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	in.Reason = strings.TrimSpace(in.Reason)

	appt, err := h.appointments.Cancel(r.Context(), claims.BusinessID, id, in.Reason)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, appt)
}

func (h *AppointmentsHandler) markNoShow(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "id must be a valid uuid")
		return
	}

	appt, err := h.appointments.MarkNoShow(r.Context(), claims.BusinessID, id)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, appt)
}

func parseTimeParam(r *http.Request, name string, fallback time.Time) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return time.Parse(time.RFC3339, raw)
}
