package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/rendevo/booking-api/internal/notify"
	"github.com/rendevo/booking-api/internal/platform/mailer"
	"github.com/rendevo/booking-api/internal/repo/postgres"
	"github.com/rendevo/booking-api/pkg/config"
	"github.com/rendevo/booking-api/pkg/database"
	"github.com/rendevo/booking-api/pkg/events"
	"github.com/rendevo/booking-api/pkg/logger"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	worker := notify.NewWorker(
		postgres.NewAppointmentRepo(pool, cfg.Booking.LockTimeout),
		postgres.NewCustomerRepo(pool),
		postgres.NewBusinessRepo(pool),
		postgres.NewNotificationRepo(pool),
		newMailer(cfg.Email),
		eventBus,
	)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down notify worker...")
		cancel()
	}()

	logger.Info("Starting notify worker")
	if err := worker.Run(ctx); err != nil {
		logger.Error("Notify worker error", "error", err)
		os.Exit(1)
	}
}

func newMailer(cfg config.EmailConfig) mailer.Service {
	switch {
	case cfg.DevMode:
		logger.Info("Using dev mailer, emails go to stdout")
		return mailer.NewDevMailer()
	case cfg.MailerSendKey != "":
		return mailer.NewMailer(cfg.MailerSendKey, "Rendevo", cfg.SMTPFrom)
	default:
		return mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPUseTLS)
	}
}
