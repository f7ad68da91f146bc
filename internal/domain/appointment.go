package domain

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCancelled AppointmentStatus = "cancelled"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentNoShow    AppointmentStatus = "no_show"
)

func ParseAppointmentStatus(s string) (AppointmentStatus, bool) {
	switch AppointmentStatus(s) {
	case AppointmentPending, AppointmentConfirmed, AppointmentCancelled,
		AppointmentCompleted, AppointmentNoShow:
		return AppointmentStatus(s), true
	default:
		return "", false
	}
}

// Terminal reports whether no further transition may leave this status.
func (s AppointmentStatus) Terminal() bool {
	switch s {
	case AppointmentCancelled, AppointmentCompleted, AppointmentNoShow:
		return true
	default:
		return false
	}
}

// transitions is the exhaustive lifecycle table. Anything not listed is
// rejected with ErrInvalidTransition.
var transitions = map[AppointmentStatus]map[AppointmentStatus]bool{
	AppointmentPending: {
		AppointmentConfirmed: true,
		AppointmentCancelled: true,
		AppointmentCompleted: true,
	},
	AppointmentConfirmed: {
		AppointmentCancelled: true,
		AppointmentCompleted: true,
		AppointmentNoShow:    true,
	},
}

func (s AppointmentStatus) CanTransitionTo(to AppointmentStatus) bool {
	return transitions[s][to]
}

type Appointment struct {
	ID         uuid.UUID `json:"id"`
	BusinessID uuid.UUID `json:"business_id"`
	ServiceID  uuid.UUID `json:"service_id"`
	CustomerID uuid.UUID `json:"customer_id"`

	StartAt         time.Time `json:"start_at"`
	DurationMinutes int       `json:"duration_minutes"`

	// Snapshots taken at booking time; later service edits never change them.
	ServiceName string `json:"service_name"`
	PriceCents  int64  `json:"price_cents"`

	Status             AppointmentStatus `json:"status"`
	Notes              string            `json:"notes,omitempty"`
	CancellationReason string            `json:"cancellation_reason,omitempty"`

	CancellationToken string    `json:"-"`
	TokenExpiresAt    time.Time `json:"-"`

	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (a *Appointment) EndAt() time.Time {
	return a.StartAt.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// Active reports whether the appointment still holds its time window.
func (a *Appointment) Active() bool {
	return a.Status == AppointmentPending || a.Status == AppointmentConfirmed
}

// CanConfirm guards the business confirmation action.
func (a *Appointment) CanConfirm(now time.Time) bool {
	return a.Status == AppointmentPending &&
		a.Status.CanTransitionTo(AppointmentConfirmed) &&
		!a.StartAt.Before(now)
}

// CanCancel guards cancellation from any actor (token holder, business,
// holiday cascade).
func (a *Appointment) CanCancel() bool {
	return a.Status.CanTransitionTo(AppointmentCancelled)
}

// CanComplete guards the sweep's auto-complete transition.
func (a *Appointment) CanComplete(now time.Time) bool {
	return a.Status.CanTransitionTo(AppointmentCompleted) && a.EndAt().Before(now)
}

// CanMarkNoShow guards the business no-show action.
func (a *Appointment) CanMarkNoShow(now time.Time) bool {
	return a.Status == AppointmentConfirmed &&
		a.Status.CanTransitionTo(AppointmentNoShow) &&
		a.EndAt().Before(now)
}

// TokenValid reports whether the public cancellation token still grants
// access at the given instant.
func (a *Appointment) TokenValid(now time.Time) bool {
	return a.CancellationToken != "" && now.Before(a.TokenExpiresAt)
}

// StatusChange describes one guarded lifecycle transition to apply with a
// compare-and-set against the expected current statuses.
type StatusChange struct {
	To          AppointmentStatus
	Reason      string
	ConfirmedAt *time.Time
	CancelledAt *time.Time
	// RevokeToken expires the public cancellation token immediately.
	RevokeToken bool
}

// Overlaps implements the strict overlap predicate shared by the slot
// generator and the booking conflict guard: two half-open windows
// [aStart, aEnd) and [bStart, bEnd) overlap iff aStart < bEnd && bStart < aEnd.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
