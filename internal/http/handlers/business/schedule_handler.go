package business

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rendevo/booking-api/internal/domain"
	"github.com/rendevo/booking-api/internal/http/middleware"
	"github.com/rendevo/booking-api/internal/http/response"
	"github.com/rendevo/booking-api/internal/repo/postgres"
)

type ScheduleHandler struct {
	repo postgres.ScheduleRepo
}

func NewScheduleHandler(repo postgres.ScheduleRepo) *ScheduleHandler {
	return &ScheduleHandler{repo: repo}
}

func (h *ScheduleHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/weekly", h.listWeekly)
	r.Put("/weekly/{day}", h.upsertWeekly)
	r.Delete("/weekly/{day}", h.deactivateWeekly)

	r.Get("/exceptions", h.listExceptions)
	r.Put("/exceptions/{date}", h.upsertException)
	r.Delete("/exceptions/{date}", h.deleteException)

	return r
}

func (h *ScheduleHandler) listWeekly(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)

	entries, err := h.repo.ListWeekly(r.Context(), claims.BusinessID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, entries)
}

type weeklyReq struct {
	StartMinute         int  `json:"start_minute"`
	EndMinute           int  `json:"end_minute"`
	SlotDurationMinutes int  `json:"slot_duration_minutes"`
	IsActive            bool `json:"is_active"`
}

func (h *ScheduleHandler) upsertWeekly(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)

	day, ok := parseWeekday(chi.URLParam(r, "day"))
	if !ok {
		response.BadRequest(w, "day must be 0 (Sunday) through 6 (Saturday)")
		return
	}

	var in weeklyReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}

	entry := &domain.WeeklySchedule{
		ID:                  uuid.New(),
		BusinessID:          claims.BusinessID,
		DayOfWeek:           day,
		StartMinute:         in.StartMinute,
		EndMinute:           in.EndMinute,
		SlotDurationMinutes: in.SlotDurationMinutes,
		IsActive:            in.IsActive,
	}
	if err := entry.Validate(); err != nil {
		response.FromError(w, err)
		return
	}

	saved, err := h.repo.UpsertWeekly(r.Context(), entry)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, saved)
}

func (h *ScheduleHandler) deactivateWeekly(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)

	day, ok := parseWeekday(chi.URLParam(r, "day"))
	if !ok {
		response.BadRequest(w, "day must be 0 (Sunday) through 6 (Saturday)")
		return
	}

	done, err := h.repo.DeactivateWeekly(r.Context(), claims.BusinessID, day)
	if err != nil {
		response.FromError(w, err)
		return
	}
	if !done {
		response.NotFound(w, "no active entry for that day")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ScheduleHandler) listExceptions(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)

	from, err := parseDateParam(r, "from", time.Now())
	if err != nil {
		response.BadRequest(w, "from must be formatted YYYY-MM-DD")
		return
	}
	to, err := parseDateParam(r, "to", from.AddDate(0, 3, 0))
	if err != nil {
		response.BadRequest(w, "to must be formatted YYYY-MM-DD")
		return
	}

	exceptions, err := h.repo.ListExceptions(r.Context(), claims.BusinessID, from, to)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, exceptions)
}

type exceptionReq struct {
	IsClosed    bool   `json:"is_closed"`
	StartMinute int    `json:"start_minute,omitempty"`
	EndMinute   int    `json:"end_minute,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

func (h *ScheduleHandler) upsertException(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)

	date, err := time.Parse("2006-01-02", chi.URLParam(r, "date"))
	if err != nil {
		response.BadRequest(w, "date must be formatted YYYY-MM-DD")
		return
	}

	var in exceptionReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}

	exception := &domain.ScheduleException{
		ID:          uuid.New(),
		BusinessID:  claims.BusinessID,
		Date:        date,
		IsClosed:    in.IsClosed,
		StartMinute: in.StartMinute,
		EndMinute:   in.EndMinute,
		Reason:      in.Reason,
	}
	if err := exception.Validate(); err != nil {
		response.FromError(w, err)
		return
	}

	saved, err := h.repo.UpsertException(r.Context(), exception)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, saved)
}

func (h *ScheduleHandler) deleteException(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)

	date, err := time.Parse("2006-01-02", chi.URLParam(r, "date"))
	if err != nil {
		response.BadRequest(w, "date must be formatted YYYY-MM-DD")
		return
	}

	done, err := h.repo.DeleteException(r.Context(), claims.BusinessID, date)
	if err != nil {
		response.FromError(w, err)
		return
	}
	if !done {
		response.NotFound(w, "no exception for that date")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseWeekday(raw string) (time.Weekday, bool) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > 6 {
		return 0, false
	}
	return time.Weekday(n), true
}

func parseDateParam(r *http.Request, name string, fallback time.Time) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return domain.DateOf(fallback), nil
	}
	return time.Parse("2006-01-02", raw)
}
