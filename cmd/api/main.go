package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/rendevo/booking-api/internal/appointment"
	"github.com/rendevo/booking-api/internal/booking"
	"github.com/rendevo/booking-api/internal/holiday"
	bizhandlers "github.com/rendevo/booking-api/internal/http/handlers/business"
	"github.com/rendevo/booking-api/internal/http/handlers/public"
	"github.com/rendevo/booking-api/internal/http/middleware"
	"github.com/rendevo/booking-api/internal/repo/postgres"
	"github.com/rendevo/booking-api/internal/schedule"
	"github.com/rendevo/booking-api/internal/sweep"
	"github.com/rendevo/booking-api/pkg/config"
	"github.com/rendevo/booking-api/pkg/database"
	"github.com/rendevo/booking-api/pkg/events"
	"github.com/rendevo/booking-api/pkg/logger"
	mw "github.com/rendevo/booking-api/pkg/middleware"
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

	redisClient := newRedisClient(cfg.Redis)

	// Repositories
	businessRepo := postgres.NewBusinessRepo(pool)
	serviceRepo := postgres.NewServiceRepo(pool)
	scheduleRepo := postgres.NewScheduleRepo(pool)
	holidayRepo := postgres.NewHolidayRepo(pool)
	appointmentRepo := postgres.NewAppointmentRepo(pool, cfg.Booking.LockTimeout)
	notificationRepo := postgres.NewNotificationRepo(pool)

	// Services
	resolver := schedule.NewResolver(scheduleRepo, holidayRepo)
	availability := schedule.NewAvailability(businessRepo, serviceRepo, appointmentRepo, resolver)
	bookingSvc := booking.NewService(postgres.NewBookingStore(businessRepo, serviceRepo, appointmentRepo), eventBus, cfg.Booking)
	appointmentSvc := appointment.NewService(appointmentRepo, eventBus)
	holidaySvc := holiday.NewService(holidayRepo, appointmentRepo, appointmentSvc)

	// Background sweeps share the API process; redis single-flights them
	// across replicas.
	var locker sweep.Locker
	if redisClient != nil {
		locker = sweep.NewRedisLocker(redisClient)
	}
	runner := sweep.NewRunner(postgres.NewSweepStore(appointmentRepo, notificationRepo), appointmentSvc, eventBus, locker, cfg.Sweep)
	go runner.Run(ctx)

	// Handlers
	publicHandler := public.NewHandler(availability, bookingSvc, appointmentSvc, businessRepo, serviceRepo)
	authHandler := bizhandlers.NewAuthHandler(businessRepo, cfg.Auth)
	servicesHandler := bizhandlers.NewServicesHandler(serviceRepo)
	scheduleHandler := bizhandlers.NewScheduleHandler(scheduleRepo)
	holidaysHandler := bizhandlers.NewHolidaysHandler(holidaySvc)
	appointmentsHandler := bizhandlers.NewAppointmentsHandler(appointmentSvc)

	rateLimiter := middleware.NewRateLimiter(redisClient, cfg.Booking.RateLimit, cfg.Booking.RateWindow)

	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("api"))
	r.Use(mw.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000", "*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(mw.Health)

	// Public surface: discovery, booking and token-based self-service.
	r.Group(func(r chi.Router) {
		r.Use(rateLimiter.Middleware())
		r.Mount("/", publicHandler.Routes())
	})

	// Business surface: register/login are open, everything else needs a JWT.
	r.Route("/business", func(r chi.Router) {
		r.Mount("/auth", authHandler.Routes())

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireJWT)
			r.Mount("/services", servicesHandler.Routes())
			r.Mount("/schedule", scheduleHandler.Routes())
			r.Mount("/holidays", holidaysHandler.Routes())
			r.Mount("/appointments", appointmentsHandler.Routes())
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down api...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Api shutdown error", "error", err)
		}
	}()

	logger.Info("Starting api", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Api server error", "error", err)
		os.Exit(1)
	}
}

func newRedisClient(cfg config.RedisConfig) *redis.Client {
	if cfg.URL == "" {
		return nil
	}
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		logger.Warn("Invalid REDIS_URL, rate limiting and sweep locks disabled", "error", err)
		return nil
	}
	if cfg.Password != "" {
		opt.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opt.DB = cfg.DB
	}
	return redis.NewClient(opt)
}
