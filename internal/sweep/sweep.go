package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rendevo/booking-api/internal/domain"
	"github.com/rendevo/booking-api/pkg/config"
	"github.com/rendevo/booking-api/pkg/events"
	"github.com/rendevo/booking-api/pkg/logger"
)

const (
	completeLockKey = "sweep:complete"
	reminderLockKey = "sweep:reminder"

	// Reminders go out to appointments starting roughly a day ahead. The
	// two-hour window tolerates a missed or late run.
	reminderWindowStart = 23 * time.Hour
	reminderWindowEnd   = 25 * time.Hour
)

type Store interface {
	// ListConfirmedEndedBefore returns confirmed appointments, across all
	// businesses, whose end time is earlier than the cutoff.
	ListConfirmedEndedBefore(ctx context.Context, cutoff time.Time) ([]domain.Appointment, error)

	// ListUpcomingActive returns pending and confirmed appointments starting
	// within [from, to), across all businesses.
	ListUpcomingActive(ctx context.Context, from, to time.Time) ([]domain.Appointment, error)

	// ReminderSent reports whether a reminder notification has already been
	// recorded for the appointment.
	ReminderSent(ctx context.Context, appointmentID uuid.UUID) (bool, error)
}

// Lifecycle is the slice of the appointment service the sweeps drive.
type Lifecycle interface {
	Complete(ctx context.Context, id uuid.UUID, now time.Time) (*domain.Appointment, error)
}

// Runner owns the periodic passes: the daily auto-complete and the hourly
// reminder. Each pass is single-flighted across instances via the locker.
type Runner struct {
	store     Store
	lifecycle Lifecycle
	bus       events.Publisher
	locker    Locker
	cfg       config.SweepConfig
}

func NewRunner(store Store, lifecycle Lifecycle, bus events.Publisher, locker Locker, cfg config.SweepConfig) *Runner {
	if locker == nil {
		locker = NoopLocker{}
	}
	return &Runner{store: store, lifecycle: lifecycle, bus: bus, locker: locker, cfg: cfg}
}

// Run blocks until the context is cancelled, firing both passes on their
// own tickers. Each pass also fires once at startup.
func (r *Runner) Run(ctx context.Context) {
	logger.Info("Sweep runner started",
		"complete_interval", r.cfg.CompleteInterval,
		"reminder_interval", r.cfg.ReminderInterval)

	completeTicker := time.NewTicker(r.cfg.CompleteInterval)
	reminderTicker := time.NewTicker(r.cfg.ReminderInterval)
	defer completeTicker.Stop()
	defer reminderTicker.Stop()

	r.runPass(ctx, completeLockKey, r.CompletePass)
	r.runPass(ctx, reminderLockKey, r.ReminderPass)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Sweep runner stopped")
			return
		case <-completeTicker.C:
			r.runPass(ctx, completeLockKey, r.CompletePass)
		case <-reminderTicker.C:
			r.runPass(ctx, reminderLockKey, r.ReminderPass)
		}
	}
}

func (r *Runner) runPass(ctx context.Context, key string, pass func(context.Context, time.Time) error) {
	acquired, err := r.locker.Acquire(ctx, key, r.cfg.LockTTL)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to acquire sweep lock", "error", err, "key", key)
		return
	}
	if !acquired {
		logger.DebugContext(ctx, "Sweep pass already running elsewhere", "key", key)
		return
	}
	defer func() {
		if err := r.locker.Release(ctx, key); err != nil {
			logger.ErrorContext(ctx, "Failed to release sweep lock", "error", err, "key", key)
		}
	}()

	if err := pass(ctx, time.Now()); err != nil {
		logger.ErrorContext(ctx, "Sweep pass failed", "error", err, "key", key)
	}
}

// CompletePass moves every confirmed appointment whose end time has passed
// to completed. Pending rows are left for the business to reconcile by
// hand. One bad row never aborts the batch.
func (r *Runner) CompletePass(ctx context.Context, now time.Time) error {
	due, err := r.store.ListConfirmedEndedBefore(ctx, now)
	if err != nil {
		return fmt.Errorf("list ended appointments: %w", err)
	}

	completed := 0
	for _, a := range due {
		if _, err := r.lifecycle.Complete(ctx, a.ID, now); err != nil {
			logger.WarnContext(ctx, "Auto-complete skipped appointment",
				"error", err, "appointment_id", a.ID)
			continue
		}
		completed++
	}

	if len(due) > 0 {
		logger.InfoContext(ctx, "Auto-complete pass finished",
			"due", len(due), "completed", completed)
	}
	return nil
}

// ReminderPass enqueues a reminder for every active appointment starting
// inside the reminder window, skipping ones already reminded.
func (r *Runner) ReminderPass(ctx context.Context, now time.Time) error {
	from := now.Add(reminderWindowStart)
	to := now.Add(reminderWindowEnd)

	upcoming, err := r.store.ListUpcomingActive(ctx, from, to)
	if err != nil {
		return fmt.Errorf("list upcoming appointments: %w", err)
	}

	sent := 0
	for _, a := range upcoming {
		already, err := r.store.ReminderSent(ctx, a.ID)
		if err != nil {
			logger.WarnContext(ctx, "Reminder dedup check failed",
				"error", err, "appointment_id", a.ID)
			continue
		}
		if already {
			continue
		}

		notif := events.NotificationEvent{
			AppointmentID: a.ID.String(),
			Kind:          events.KindReminder,
			Channel:       events.ChannelEmail,
		}
		if err := r.bus.Publish(ctx, events.NotifyEnqueue, notif); err != nil {
			logger.WarnContext(ctx, "Failed to enqueue reminder",
				"error", err, "appointment_id", a.ID)
			continue
		}
		sent++
	}

	if len(upcoming) > 0 {
		logger.InfoContext(ctx, "Reminder pass finished",
			"upcoming", len(upcoming), "sent", sent)
	}
	return nil
}
