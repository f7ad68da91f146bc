package business

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rendevo/booking-api/internal/domain"
	"github.com/rendevo/booking-api/internal/http/middleware"
	"github.com/rendevo/booking-api/internal/http/response"
	"github.com/rendevo/booking-api/internal/repo/postgres"
	"github.com/rendevo/booking-api/internal/utils"
)

type ServicesHandler struct {
	repo postgres.ServiceRepo
}

func NewServicesHandler(repo postgres.ServiceRepo) *ServicesHandler {
	return &ServicesHandler{repo: repo}
}

func (h *ServicesHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.deactivate)

	return r
}

type serviceReq struct {
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	DurationMinutes int    `json:"duration_minutes"`
	PriceCents      int64  `json:"price_cents"`
	IsActive        *bool  `json:"is_active,omitempty"`
	DisplayOrder    int    `json:"display_order"`
}

func (in *serviceReq) validate() error {
	if utils.NormalizeString(in.Name) == "" {
		return domain.Invalid("name", "is required")
	}
	if in.DurationMinutes < domain.MinSlotMinutes || in.DurationMinutes > 8*60 {
		return domain.Invalid("duration_minutes", "must be between 5 and 480")
	}
	if in.PriceCents < 0 {
		return domain.Invalid("price_cents", "must not be negative")
	}
	return nil
}

func (h *ServicesHandler) list(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)
	includeInactive := r.URL.Query().Get("include_inactive") == "true"

	services, err := h.repo.ListForBusiness(r.Context(), claims.BusinessID, includeInactive)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, services)
}

func (h *ServicesHandler) create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)

	var in serviceReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	if err := in.validate(); err != nil {
		response.FromError(w, err)
		return
	}

	created, err := h.repo.Create(r.Context(), &domain.Service{
		ID:              uuid.New(),
		BusinessID:      claims.BusinessID,
		Name:            utils.NormalizeString(in.Name),
		Description:     in.Description,
		DurationMinutes: in.DurationMinutes,
		PriceCents:      in.PriceCents,
		DisplayOrder:    in.DisplayOrder,
	})
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, created)
}

func (h *ServicesHandler) update(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "id must be a valid uuid")
		return
	}

	var in serviceReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	if err := in.validate(); err != nil {
		response.FromError(w, err)
		return
	}

	isActive := true
	if in.IsActive != nil {
		isActive = *in.IsActive
	}

	updated, err := h.repo.Update(r.Context(), &domain.Service{
		ID:              id,
		BusinessID:      claims.BusinessID,
		Name:            utils.NormalizeString(in.Name),
		Description:     in.Description,
		DurationMinutes: in.DurationMinutes,
		PriceCents:      in.PriceCents,
		IsActive:        isActive,
		DisplayOrder:    in.DisplayOrder,
	})
	if err != nil {
		response.FromError(w, err)
		return
	}
	if updated == nil {
		response.NotFound(w, "service not found")
		return
	}
	response.WriteJSON(w, http.StatusOK, updated)
}

// deactivate soft-disables a service. Booked appointments keep their
// snapshots so nothing retroactively changes.
func (h *ServicesHandler) deactivate(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "id must be a valid uuid")
		return
	}

	done, err := h.repo.Deactivate(r.Context(), claims.BusinessID, id)
	if err != nil {
		response.FromError(w, err)
		return
	}
	if !done {
		response.NotFound(w, "service not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
