package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rendevo/booking-api/internal/domain"
	"github.com/rendevo/booking-api/pkg/logger"
)

// ErrorResponse is the JSON shape every error takes on the wire.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

const (
	CodeInvalidInput      = "INVALID_INPUT"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeNotFound          = "NOT_FOUND"
	CodeSlotUnavailable   = "SLOT_UNAVAILABLE"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeAlreadyCancelled  = "ALREADY_CANCELLED"
	CodeLockTimeout       = "LOCK_TIMEOUT"
	CodeRateLimit         = "RATE_LIMIT_EXCEEDED"
	CodeInternalError     = "INTERNAL_ERROR"
)

func WriteError(w http.ResponseWriter, statusCode int, message string, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: message, Code: code}); err != nil {
		logger.Error("Failed to encode error response", "error", err)
	}
}

func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// FromError maps the domain error taxonomy to HTTP statuses. Anything
// unrecognized is a 500 with the detail kept out of the body.
func FromError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		WriteError(w, http.StatusBadRequest, ve.Error(), CodeInvalidInput)
	case errors.Is(err, domain.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not found", CodeNotFound)
	case errors.Is(err, domain.ErrSlotUnavailable):
		WriteError(w, http.StatusConflict, "slot is no longer available", CodeSlotUnavailable)
	case errors.Is(err, domain.ErrAlreadyCancelled):
		WriteError(w, http.StatusConflict, "appointment is already cancelled", CodeAlreadyCancelled)
	case errors.Is(err, domain.ErrInvalidTransition):
		WriteError(w, http.StatusConflict, "status change is not allowed", CodeInvalidTransition)
	case errors.Is(err, domain.ErrLockTimeout):
		WriteError(w, http.StatusServiceUnavailable, "booking is busy, try again", CodeLockTimeout)
	default:
		logger.Error("Unhandled error", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal error", CodeInternalError)
	}
}

func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message, CodeInvalidInput)
}

func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message, CodeUnauthorized)
}

func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message, CodeNotFound)
}

func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message, CodeInternalError)
}

func RateLimit(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, message, CodeRateLimit)
}
