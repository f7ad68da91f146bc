package business

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rendevo/booking-api/internal/holiday"
	"github.com/rendevo/booking-api/internal/http/middleware"
	"github.com/rendevo/booking-api/internal/http/response"
)

type HolidaysHandler struct {
	holidays *holiday.Service
}

func NewHolidaysHandler(holidays *holiday.Service) *HolidaysHandler {
	return &HolidaysHandler{holidays: holidays}
}

func (h *HolidaysHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Post("/preview", h.preview)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)

	return r
}

type holidayReq struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason,omitempty"`
}

func (in *holidayReq) dates() (time.Time, time.Time, bool) {
	start, err := time.Parse("2006-01-02", in.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	end, err := time.Parse("2006-01-02", in.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func (h *HolidaysHandler) list(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)

	holidays, err := h.holidays.List(r.Context(), claims.BusinessID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, holidays)
}

func (h *HolidaysHandler) create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)

	var in holidayReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	start, end, ok := in.dates()
	if !ok {
		response.BadRequest(w, "dates must be formatted YYYY-MM-DD")
		return
	}

	result, err := h.holidays.Create(r.Context(), claims.BusinessID, start, end, in.Reason)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, result)
}

// preview returns the appointment ids a prospective range would cancel,
// without creating the range.
func (h *HolidaysHandler) preview(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)

	var in holidayReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	start, end, ok := in.dates()
	if !ok {
		response.BadRequest(w, "dates must be formatted YYYY-MM-DD")
		return
	}

	ids, err := h.holidays.PreviewAffected(r.Context(), claims.BusinessID, start, end)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string][]uuid.UUID{"affected_appointment_ids": ids})
}

func (h *HolidaysHandler) update(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "id must be a valid uuid")
		return
	}

	var in holidayReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	start, end, ok := in.dates()
	if !ok {
		response.BadRequest(w, "dates must be formatted YYYY-MM-DD")
		return
	}

	result, err := h.holidays.Update(r.Context(), claims.BusinessID, id, start, end, in.Reason)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, result)
}

func (h *HolidaysHandler) delete(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "id must be a valid uuid")
		return
	}

	if err := h.holidays.Delete(r.Context(), claims.BusinessID, id); err != nil {
		response.FromError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
