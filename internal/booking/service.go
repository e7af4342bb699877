package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-booking/internal/appointment"
	"github.com/hackgods/clinic-booking/internal/availability"
	"github.com/hackgods/clinic-booking/internal/calendar"
	"github.com/hackgods/clinic-booking/internal/clinic"
	"github.com/hackgods/clinic-booking/internal/identity"
	"github.com/hackgods/clinic-booking/internal/metrics"
	"github.com/hackgods/clinic-booking/internal/payment"
)

// Catalog is the part of the clinic manager booking reads.
type Catalog interface {
	Settings(ctx context.Context) (clinic.Settings, error)
	Services(ctx context.Context) ([]clinic.Service, error)
}

// Request carries everything the wizard collects, for clients that submit
// the whole flow at once.
type Request struct {
	ServiceID     string             `json:"service_id"`
	Format        appointment.Format `json:"format"`
	Date          string             `json:"date"`
	StartTime     string             `json:"start_time"`
	Patient       PatientInfo        `json:"patient"`
	Consent       bool               `json:"consent"`
	PaymentMethod PaymentMethod      `json:"payment_method"`
	Outcome       Outcome            `json:"outcome"`
	Reference     string             `json:"reference,omitempty"`
}

type CheckoutResult struct {
	Reference   string `json:"reference"`
	CheckoutURL string `json:"checkout_url"`
	State       State  `json:"state"`
}

type Service struct {
	catalog   Catalog
	store     AppointmentStore
	calendar  calendar.Gateway
	payments  payment.Gateway
	finalizer *Finalizer
	ids       identity.Provider
	loc       *time.Location
	now       func() time.Time
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

func NewService(
	catalog Catalog,
	store AppointmentStore,
	gw calendar.Gateway,
	payments payment.Gateway,
	finalizer *Finalizer,
	ids identity.Provider,
	loc *time.Location,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		catalog:   catalog,
		store:     store,
		calendar:  gw,
		payments:  payments,
		finalizer: finalizer,
		ids:       ids,
		loc:       loc,
		now:       time.Now,
		metrics:   m,
		logger:    logger,
	}
}

// WithClock overrides the time source. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Slots returns the bookable times for date. An empty serviceID uses the
// default session length.
func (s *Service) Slots(ctx context.Context, date, serviceID string) ([]string, error) {
	if _, err := availability.ParseDate(date, s.loc); err != nil {
		return nil, ErrInvalidDate
	}

	settings, services, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	var svc *clinic.Service
	if serviceID != "" {
		svc = findService(services, serviceID)
		if svc == nil {
			return nil, clinic.ErrServiceNotFound
		}
	}

	return s.slotsFor(ctx, date, settings, services, svc)
}

// Checkout runs the flow up to the payment step and creates a hosted
// checkout link. Nothing is stored; the returned reference is passed back
// to Book once the patient returns from the provider.
func (s *Service) Checkout(ctx context.Context, req Request) (*CheckoutResult, error) {
	req.PaymentMethod = PaymentCheckout
	w, settings, _, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	integ := settings.Integrations
	if s.payments == nil || !integ.PaymentConnected || integ.PaymentAccessToken == "" {
		return nil, payment.ErrNotConfigured
	}

	draft, err := w.Draft(OutcomeAbandoned, s.ids, s.now())
	if err != nil {
		return nil, err
	}

	url, err := s.payments.CreatePreference(ctx, draft, *w.Service(), integ.PaymentAccessToken)
	if err != nil {
		if errors.Is(err, payment.ErrPaymentUnavailable) || errors.Is(err, payment.ErrNotConfigured) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", payment.ErrPaymentUnavailable, err)
	}
	if err := w.SetCheckoutURL(url); err != nil {
		return nil, err
	}

	return &CheckoutResult{Reference: draft.ID, CheckoutURL: url, State: w.State()}, nil
}

// Book drives the wizard through every step with req and finalizes it.
func (s *Service) Book(ctx context.Context, req Request) (*appointment.Appointment, error) {
	w, settings, services, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.finalizer.Finalize(ctx, w, req.Outcome, settings, services)
}

func (s *Service) prepare(ctx context.Context, req Request) (*Wizard, clinic.Settings, []clinic.Service, error) {
	settings, services, err := s.load(ctx)
	if err != nil {
		return nil, clinic.Settings{}, nil, err
	}

	svc := findService(services, req.ServiceID)
	if svc == nil {
		return nil, clinic.Settings{}, nil, ErrNoService
	}

	w := NewWizard(Prefill{Service: svc, Format: req.Format})
	if w.Step() == StepFormat {
		if err := w.SelectFormat(req.Format); err != nil {
			return nil, clinic.Settings{}, nil, err
		}
		if err := w.Next(); err != nil {
			return nil, clinic.Settings{}, nil, err
		}
	}

	ticket, err := w.BeginSlotFetch(req.Date)
	if err != nil {
		return nil, clinic.Settings{}, nil, err
	}
	slots, err := s.slotsFor(ctx, req.Date, settings, services, svc)
	if err != nil {
		return nil, clinic.Settings{}, nil, err
	}
	w.ApplySlots(ticket, slots)

	steps := []func() error{
		func() error { return w.SelectSlot(req.StartTime) },
		w.Next,
		func() error { return w.SetPatient(req.Patient) },
		func() error { return w.SetConsent(req.Consent) },
		w.Next,
		func() error { return w.ChoosePayment(req.PaymentMethod) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, clinic.Settings{}, nil, err
		}
	}
	w.UseReference(req.Reference)

	return w, settings, services, nil
}

func (s *Service) load(ctx context.Context) (clinic.Settings, []clinic.Service, error) {
	settings, err := s.catalog.Settings(ctx)
	if err != nil {
		return clinic.Settings{}, nil, err
	}
	services, err := s.catalog.Services(ctx)
	if err != nil {
		return clinic.Settings{}, nil, err
	}
	return settings, services, nil
}

func (s *Service) slotsFor(ctx context.Context, date string, settings clinic.Settings, services []clinic.Service, svc *clinic.Service) ([]string, error) {
	started := time.Now()

	appts, err := s.store.ListByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	blocks, err := s.store.ListBlocks(ctx)
	if err != nil {
		return nil, err
	}
	busy := s.busy(ctx, date, settings)

	slots := availability.ComputeSlots(availability.Input{
		Date:     date,
		Schedule: settings.WorkingDays,
		Session: availability.Session{
			Duration: settings.SessionDuration(svc),
			Buffer:   settings.BufferMinutes,
		},
		Appointments:     appts,
		Blocks:           blocks,
		Busy:             busy,
		ServiceDurations: clinic.ServiceDurations(services),
		Now:              s.now(),
		Location:         s.loc,
	})

	s.metrics.ObserveAvailability(settings.Integrations.CalendarActive(), time.Since(started).Seconds())
	return slots, nil
}

// busy fetches external busy intervals for the whole date. A failing
// calendar is logged and treated as having no events.
func (s *Service) busy(ctx context.Context, date string, settings clinic.Settings) []calendar.BusyInterval {
	if s.calendar == nil || !settings.Integrations.CalendarActive() {
		return nil
	}

	day, err := availability.ParseDate(date, s.loc)
	if err != nil {
		return nil
	}

	busy, err := calendar.ListBusy(ctx, s.calendar, day, day.AddDate(0, 0, 1), settings.Integrations.CalendarAccessToken)
	if err != nil {
		s.metrics.ObserveCalendarError("list_events")
		s.logger.Warn().Err(err).Str("date", date).Msg("calendar busy fetch failed, continuing without it")
		return nil
	}
	return busy
}

func findService(services []clinic.Service, id string) *clinic.Service {
	for i := range services {
		if services[i].ID == id {
			svc := services[i]
			return &svc
		}
	}
	return nil
}
