package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/hackgods/clinic-booking/internal/api"
	"github.com/hackgods/clinic-booking/internal/appointment"
	"github.com/hackgods/clinic-booking/internal/auth"
	"github.com/hackgods/clinic-booking/internal/booking"
	"github.com/hackgods/clinic-booking/internal/calendar"
	"github.com/hackgods/clinic-booking/internal/clinic"
	"github.com/hackgods/clinic-booking/internal/config"
	"github.com/hackgods/clinic-booking/internal/db"
	"github.com/hackgods/clinic-booking/internal/identity"
	"github.com/hackgods/clinic-booking/internal/metrics"
	"github.com/hackgods/clinic-booking/internal/notify"
	"github.com/hackgods/clinic-booking/internal/payment"
	redisclient "github.com/hackgods/clinic-booking/internal/redis"
	"github.com/hackgods/clinic-booking/internal/reminder"
	"github.com/hackgods/clinic-booking/pkg/logging"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New("dev", "info")
		bootLog.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.New(cfg.Env, cfg.LogLevel).With().Str("service", "api-server").Logger()
	logger.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Str("timezone", cfg.ClinicTimezone).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{MaxConns: cfg.PostgresMaxConns, AppName: "api-server"})
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	// Redis only guards booking finalization; without it bookings run unlocked.
	var (
		rdb    *redis.Client
		locker redisclient.Locker = redisclient.NoopLocker{}
	)
	rdb, err = redisclient.NewRedisClient(rootCtx, redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, booking lock disabled")
	} else {
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Error().Err(err).Msg("error closing redis")
			}
		}()
		locker = redisclient.NewRedisDayLocker(rdb, cfg.LockTTL, cfg.LockWait)
		logger.Info().Msg("connected to Redis")
	}

	loc := cfg.Location()
	ids := identity.NewUUIDProvider()
	m := metrics.New(prometheus.DefaultRegisterer)

	apptRepo := appointment.NewPgRepository(pgPool)
	clinicRepo := clinic.NewPgRepository(pgPool)
	appointments := appointment.NewService(apptRepo, ids, logger)
	clinicManager := clinic.NewManager(clinicRepo, ids, logger)

	gcal := calendar.NewGoogle(calendar.GoogleConfig{Endpoint: cfg.CalendarBaseURL, Location: loc}, logger)
	payments := payment.NewMercadoPago(cfg.PublicBaseURL, logger).WithBaseURL(cfg.PaymentBaseURL)

	finalizer := booking.NewFinalizer(appointments, locker, gcal, ids, booking.FinalizerConfig{Location: loc}, m, logger).
		WithShutdown(rootCtx)
	bookingSvc := booking.NewService(clinicManager, appointments, gcal, payments, finalizer, ids, loc, m, logger)

	authenticator := auth.NewAuthenticator(clinicManager, appointments, auth.NewTokens(cfg.JWTSecret, cfg.SessionTTL), logger)

	var email notify.EmailSender = notify.NewLogEmailSender(logger)
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sg != nil {
		email = sg
	}
	reminders := reminder.NewDispatcher(appointments, clinicManager, email, notify.NewLogMessageSender(logger), loc, m, logger)

	router := api.NewRouter(api.RouterConfig{
		Appointments: appointments,
		Clinic:       clinicManager,
		Booking:      bookingSvc,
		Auth:         authenticator,
		Reminders:    reminders,
		Calendar:     gcal,
		Location:     loc,
		Postgres:     pgPool,
		Redis:        rdb,
		Metrics:      m,
		Logger:       logger,
		Env:          cfg.Env,
		Version:      version,
		CORSOrigins:  cfg.CORSOrigins,
		RateLimitRPS: cfg.RateLimitRPS,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-rootCtx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logger.Error().Err(err).Msg("http server error")
			stop()
			pgPool.Close()
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("shutting down api-server")
}
