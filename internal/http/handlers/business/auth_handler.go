package business

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rendevo/booking-api/internal/domain"
	"github.com/rendevo/booking-api/internal/http/response"
	"github.com/rendevo/booking-api/internal/platform/auth"
	"github.com/rendevo/booking-api/internal/repo/postgres"
	"github.com/rendevo/booking-api/internal/utils"
	"github.com/rendevo/booking-api/pkg/config"
	"github.com/rendevo/booking-api/pkg/logger"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

type AuthHandler struct {
	repo postgres.BusinessRepo
	cfg  config.AuthConfig
}

func NewAuthHandler(repo postgres.BusinessRepo, cfg config.AuthConfig) *AuthHandler {
	return &AuthHandler{repo: repo, cfg: cfg}
}

func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	return r
}

type registerReq struct {
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Timezone string `json:"timezone"`
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var in registerReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}

	in.Slug = strings.ToLower(strings.TrimSpace(in.Slug))
	in.Name = utils.NormalizeString(in.Name)
	in.Email = utils.NormalizeEmail(in.Email)

	if !slugPattern.MatchString(in.Slug) {
		response.BadRequest(w, "slug must be lowercase letters, digits and hyphens")
		return
	}
	if in.Name == "" {
		response.BadRequest(w, "name is required")
		return
	}
	if !utils.IsValidEmail(in.Email) {
		response.BadRequest(w, "email is not valid")
		return
	}
	if len(in.Password) < 8 {
		response.BadRequest(w, "password must be at least 8 characters")
		return
	}
	if in.Timezone == "" {
		in.Timezone = "UTC"
	}

	if existing, err := h.repo.GetBySlug(r.Context(), in.Slug); err != nil {
		response.InternalError(w, "error checking slug")
		return
	} else if existing != nil {
		response.WriteError(w, http.StatusConflict, "slug is taken", response.CodeInvalidInput)
		return
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		response.InternalError(w, "error hashing password")
		return
	}

	created, err := h.repo.Create(r.Context(), &domain.Business{
		ID:           uuid.New(),
		Slug:         in.Slug,
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Timezone:     in.Timezone,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to create business", "error", err)
		response.InternalError(w, "error creating business")
		return
	}

	response.WriteJSON(w, http.StatusCreated, created)
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRes struct {
	AccessToken string           `json:"access_token"`
	Business    *domain.Business `json:"business"`
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var in loginReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}

	b, err := h.repo.GetByEmail(r.Context(), utils.NormalizeEmail(in.Email))
	if err != nil {
		response.InternalError(w, "error loading account")
		return
	}
	if b == nil || !b.IsActive {
		response.Unauthorized(w, "invalid credentials")
		return
	}

	ok, err := auth.VerifyPassword(in.Password, b.PasswordHash)
	if err != nil || !ok {
		response.Unauthorized(w, "invalid credentials")
		return
	}

	token, err := auth.NewAccessToken(b.ID, b.Email, h.cfg.AccessTokenTTL)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to sign access token", "error", err)
		response.InternalError(w, "error signing token")
		return
	}

	response.WriteJSON(w, http.StatusOK, loginRes{AccessToken: token, Business: b})
}
