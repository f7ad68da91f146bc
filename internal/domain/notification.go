package domain

import (
	"time"

	"github.com/google/uuid"
)

type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// Notification records one enqueued delivery attempt for an appointment.
// Written by the notify worker; the booking core only publishes events.
type Notification struct {
	ID            uuid.UUID          `json:"id"`
	AppointmentID uuid.UUID          `json:"appointment_id"`
	Kind          string             `json:"kind"`
	Channel       string             `json:"channel"`
	Recipient     string             `json:"recipient"`
	Subject       string             `json:"subject,omitempty"`
	Status        NotificationStatus `json:"status"`
	ErrorMessage  string             `json:"error_message,omitempty"`
	SentAt        *time.Time         `json:"sent_at,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}
