package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-booking/internal/appointment"
	"github.com/hackgods/clinic-booking/internal/auth"
	"github.com/hackgods/clinic-booking/internal/booking"
	"github.com/hackgods/clinic-booking/internal/calendar"
	"github.com/hackgods/clinic-booking/internal/clinic"
	"github.com/hackgods/clinic-booking/internal/metrics"
	"github.com/hackgods/clinic-booking/internal/reminder"
)

type RouterConfig struct {
	Appointments *appointment.Service
	Clinic       *clinic.Manager
	Booking      *booking.Service
	Auth         *auth.Authenticator
	Reminders    *reminder.Dispatcher
	Calendar     calendar.Gateway
	Location     *time.Location

	Postgres Pinger
	Redis    *redis.Client
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Logger   zerolog.Logger

	Env          string
	Version      string
	CORSOrigins  []string
	RateLimitRPS int
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger, cfg.Metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	health := NewHealthHandler(cfg.Postgres, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 20
	}
	limited := httprate.LimitByIP(rps, time.Second)
	tokens := cfg.Auth.Tokens()

	// Public booking surface
	r.Group(func(public chi.Router) {
		public.Use(limited)
		public.Get("/services", listServicesHandler(cfg.Clinic))
		public.Get("/content", contentHandler(cfg.Clinic))
		public.Get("/availability", availabilityHandler(cfg.Booking))
		public.Post("/bookings/checkout", checkoutHandler(cfg.Booking))
		public.Post("/bookings", createBookingHandler(cfg.Booking))
	})

	r.Route("/patient", func(p chi.Router) {
		p.With(limited).Post("/login", patientLoginHandler(cfg.Auth))
		p.Group(func(authed chi.Router) {
			authed.Use(RequireRole(tokens, isPatient))
			authed.Get("/appointments", patientAppointmentsHandler(cfg.Appointments))
			authed.Get("/appointments/last", patientLastHandler(cfg.Appointments))
			authed.Post("/appointments/{id}/cancel", patientCancelHandler(cfg.Appointments))
		})
	})

	r.Route("/admin", func(admin chi.Router) {
		admin.With(limited).Post("/login", staffLoginHandler(cfg.Auth))

		admin.Group(func(staff chi.Router) {
			staff.Use(RequireRole(tokens, isStaff))

			staff.Get("/dashboard", dashboardHandler(cfg.Clinic, cfg.Appointments, cfg.Logger))
			staff.Get("/calendar", adminCalendarHandler(calendarDeps{
				clinic:       cfg.Clinic,
				appointments: cfg.Appointments,
				gateway:      cfg.Calendar,
				loc:          cfg.Location,
				logger:       cfg.Logger,
			}))

			staff.Get("/appointments", listAppointmentsHandler(cfg.Appointments))
			staff.Post("/appointments/series", createSeriesHandler(cfg.Appointments))
			staff.Get("/appointments/{id}", getAppointmentHandler(cfg.Appointments))
			staff.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Appointments))
			staff.Post("/appointments/{id}/reschedule", rescheduleAppointmentHandler(cfg.Appointments))
			staff.Put("/appointments/{id}/notes", updateNotesHandler(cfg.Appointments))
			staff.Put("/appointments/{id}/payment", paymentStatusHandler(cfg.Appointments))
			staff.Delete("/appointments/{id}", deleteAppointmentHandler(cfg.Appointments))

			staff.Get("/blocks", listBlocksHandler(cfg.Appointments))
			staff.Post("/blocks", createBlockHandler(cfg.Appointments))
			staff.Delete("/blocks/{id}", deleteBlockHandler(cfg.Appointments))

			staff.Put("/patients", updatePatientHandler(cfg.Appointments))
			staff.Delete("/patients", erasePatientHandler(cfg.Appointments))

			staff.Get("/settings", getSettingsHandler(cfg.Clinic))
			staff.Get("/staff", listStaffHandler(cfg.Clinic))
			staff.Get("/reminders/due", dueRemindersHandler(cfg.Reminders))
			staff.Post("/reminders/run", runRemindersHandler(cfg.Reminders))

			// Configuration changes are reserved to the analyst.
			staff.Group(func(analyst chi.Router) {
				analyst.Use(requireClaimRole(isAnalyst))
				analyst.Put("/settings", saveSettingsHandler(cfg.Clinic))
				analyst.Put("/services", saveServicesHandler(cfg.Clinic))
				analyst.Post("/staff", addStaffHandler(cfg.Clinic))
				analyst.Delete("/staff/{id}", removeStaffHandler(cfg.Clinic))
			})
		})
	})

	return r
}
