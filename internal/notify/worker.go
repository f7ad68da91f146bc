package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/rendevo/booking-api/internal/domain"
	"github.com/rendevo/booking-api/internal/platform/mailer"
	"github.com/rendevo/booking-api/pkg/events"
	"github.com/rendevo/booking-api/pkg/logger"
)

const queueGroup = "notify-workers"

type AppointmentStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Appointment, error)
}

type CustomerStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
}

type BusinessStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Business, error)
}

type NotificationStore interface {
	Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
}

// Worker consumes notify.enqueue events, composes the email for the
// appointment and records every attempt in the notifications table.
type Worker struct {
	appointments  AppointmentStore
	customers     CustomerStore
	businesses    BusinessStore
	notifications NotificationStore
	mail          mailer.Service
	bus           events.Subscriber
}

func NewWorker(appointments AppointmentStore, customers CustomerStore, businesses BusinessStore, notifications NotificationStore, mail mailer.Service, bus events.Subscriber) *Worker {
	return &Worker{
		appointments:  appointments,
		customers:     customers,
		businesses:    businesses,
		notifications: notifications,
		mail:          mail,
		bus:           bus,
	}
}

// Run subscribes and blocks until the context is cancelled. Deliveries are
// spread across instances through the queue group.
func (w *Worker) Run(ctx context.Context) error {
	err := w.bus.QueueSubscribe(events.NotifyEnqueue, queueGroup, func(msg *events.Message) {
		var ev events.NotificationEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			logger.Error("Failed to decode notification event", "error", err)
			return
		}
		if err := w.process(ctx, ev); err != nil {
			logger.Error("Failed to process notification",
				"error", err, "appointment_id", ev.AppointmentID, "kind", ev.Kind)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", events.NotifyEnqueue, err)
	}

	logger.Info("Notify worker started", "subject", events.NotifyEnqueue, "queue", queueGroup)
	<-ctx.Done()
	return nil
}

func (w *Worker) process(ctx context.Context, ev events.NotificationEvent) error {
	id, err := uuid.Parse(ev.AppointmentID)
	if err != nil {
		return fmt.Errorf("bad appointment id %q: %w", ev.AppointmentID, err)
	}

	appt, err := w.appointments.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if appt == nil {
		return fmt.Errorf("appointment %s not found", id)
	}

	customer, err := w.customers.GetByID(ctx, appt.CustomerID)
	if err != nil {
		return err
	}
	if customer == nil || customer.Email == "" {
		// SMS is a declared channel but no SMS provider is wired yet, and a
		// customer without an email simply gets nothing.
		logger.InfoContext(ctx, "Skipping notification, no recipient email",
			"appointment_id", appt.ID, "kind", ev.Kind)
		return nil
	}

	business, err := w.businesses.GetByID(ctx, appt.BusinessID)
	if err != nil {
		return err
	}
	if business == nil {
		return fmt.Errorf("business %s not found", appt.BusinessID)
	}

	subject, text, html := compose(ev.Kind, appt, customer, business)

	rec, err := w.notifications.Create(ctx, &domain.Notification{
		ID:            uuid.New(),
		AppointmentID: appt.ID,
		Kind:          ev.Kind,
		Channel:       ev.Channel,
		Recipient:     customer.Email,
		Subject:       subject,
	})
	if err != nil {
		return fmt.Errorf("record notification: %w", err)
	}

	if _, err := w.mail.Send(customer.Email, customer.FirstName, subject, text, html); err != nil {
		if merr := w.notifications.MarkFailed(ctx, rec.ID, err.Error()); merr != nil {
			logger.ErrorContext(ctx, "Failed to mark notification failed",
				"error", merr, "notification_id", rec.ID)
		}
		return fmt.Errorf("send mail: %w", err)
	}
	if err := w.notifications.MarkSent(ctx, rec.ID); err != nil {
		logger.ErrorContext(ctx, "Failed to mark notification sent",
			"error", err, "notification_id", rec.ID)
	}

	logger.InfoContext(ctx, "Notification sent",
		"appointment_id", appt.ID, "kind", ev.Kind, "recipient", customer.Email)
	return nil
}

func compose(kind string, appt *domain.Appointment, customer *domain.Customer, business *domain.Business) (subject, text, html string) {
	when := appt.StartAt.In(business.Location()).Format("Monday, January 2 at 15:04")

	switch kind {
	case events.KindConfirmation:
		subject = fmt.Sprintf("Your %s appointment at %s", appt.ServiceName, business.Name)
		text = fmt.Sprintf("Hi %s,\n\nYour %s appointment at %s is booked for %s.\n\nSee you then!",
			customer.FirstName, appt.ServiceName, business.Name, when)
	case events.KindCancellation:
		subject = fmt.Sprintf("Your appointment at %s was cancelled", business.Name)
		reason := appt.CancellationReason
		if reason == "" {
			reason = "no reason given"
		}
		text = fmt.Sprintf("Hi %s,\n\nYour %s appointment on %s has been cancelled (%s).",
			customer.FirstName, appt.ServiceName, when, reason)
	case events.KindReminder:
		subject = fmt.Sprintf("Reminder: %s at %s tomorrow", appt.ServiceName, business.Name)
		text = fmt.Sprintf("Hi %s,\n\nThis is a reminder of your %s appointment at %s on %s.",
			customer.FirstName, appt.ServiceName, business.Name, when)
	default:
		subject = fmt.Sprintf("Update on your appointment at %s", business.Name)
		text = fmt.Sprintf("Hi %s,\n\nYour %s appointment on %s has been updated.",
			customer.FirstName, appt.ServiceName, when)
	}

	html = fmt.Sprintf("<p>%s</p>", text)
	return subject, text, html
}
