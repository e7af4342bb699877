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
	redisclient "github.com/hackgods/clinic-booking/internal/redis"
)

var (
	ErrSlotTaken     = errors.New("time slot was just taken")
	ErrPersistFailed = errors.New("booking could not be saved")
)

// AppointmentStore is what finalization needs from the appointment service.
type AppointmentStore interface {
	ListByDate(ctx context.Context, date string) ([]appointment.Appointment, error)
	ListBlocks(ctx context.Context) ([]appointment.Block, error)
	Create(ctx context.Context, a appointment.Appointment) (*appointment.Appointment, error)
	AttachCalendarEvent(ctx context.Context, id, eventID string) error
}

type FinalizerConfig struct {
	Location      *time.Location
	MirrorRetries int           // attempts for the calendar mirror, default 3
	MirrorBackoff time.Duration // first retry delay, doubled each attempt
	MirrorTimeout time.Duration // per attempt
}

// Finalizer turns a wizard in the payment step into a stored appointment.
type Finalizer struct {
	store    AppointmentStore
	locker   redisclient.Locker
	calendar calendar.Gateway
	ids      identity.Provider
	cfg      FinalizerConfig
	now      func() time.Time
	dispatch func(func())
	shutdown context.Context
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

func NewFinalizer(
	store AppointmentStore,
	locker redisclient.Locker,
	gw calendar.Gateway,
	ids identity.Provider,
	cfg FinalizerConfig,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Finalizer {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.MirrorRetries <= 0 {
		cfg.MirrorRetries = 3
	}
	if cfg.MirrorBackoff <= 0 {
		cfg.MirrorBackoff = 500 * time.Millisecond
	}
	if cfg.MirrorTimeout <= 0 {
		cfg.MirrorTimeout = 10 * time.Second
	}
	if locker == nil {
		locker = redisclient.NoopLocker{}
	}
	return &Finalizer{
		store:    store,
		locker:   locker,
		calendar: gw,
		ids:      ids,
		cfg:      cfg,
		now:      time.Now,
		dispatch: func(fn func()) { go fn() },
		shutdown: context.Background(),
		metrics:  m,
		logger:   logger,
	}
}

// WithClock overrides the time source. Used by tests.
func (f *Finalizer) WithClock(now func() time.Time) *Finalizer {
	f.now = now
	return f
}

// WithShutdown ties background calendar mirrors to ctx: once it is done,
// pending retries stop.
func (f *Finalizer) WithShutdown(ctx context.Context) *Finalizer {
	f.shutdown = ctx
	return f
}

// WithDispatch replaces how the calendar mirror is started. Tests pass a
// function that runs it inline.
func (f *Finalizer) WithDispatch(dispatch func(func())) *Finalizer {
	f.dispatch = dispatch
	return f
}

// Finalize stores the wizard's appointment under the date's booking lock after
// checking the slot is still free. On any failure the wizard stays in the
// payment step with its data. Calendar mirroring starts only after the
// write succeeded and never affects the result.
func (f *Finalizer) Finalize(ctx context.Context, w *Wizard, outcome Outcome, settings clinic.Settings, services []clinic.Service) (*appointment.Appointment, error) {
	draft, err := w.Draft(outcome, f.ids, f.now())
	if err != nil {
		return nil, err
	}

	var created *appointment.Appointment
	err = f.locker.WithDayLock(ctx, draft.Date, func(ctx context.Context) error {
		if err := f.ensureFree(ctx, draft, settings, services); err != nil {
			return err
		}
		a, err := f.store.Create(ctx, draft)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPersistFailed, err)
		}
		created = a
		return nil
	})

	switch {
	case err == nil:
	case errors.Is(err, redisclient.ErrLockNotAcquired), errors.Is(err, ErrSlotTaken):
		f.metrics.ObserveBooking("slot_taken")
		return nil, ErrSlotTaken
	case errors.Is(err, ErrPersistFailed):
		f.metrics.ObserveBooking("failed")
		f.logger.Error().Err(err).Str("date", draft.Date).Str("start", draft.StartTime).Msg("booking write failed")
		return nil, err
	default:
		f.metrics.ObserveBooking("failed")
		return nil, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}

	w.markConfirmed(*created)
	f.metrics.ObserveBooking(string(created.Status))
	f.logger.Info().
		Str("appointment_id", created.ID).
		Str("date", created.Date).
		Str("start", created.StartTime).
		Str("status", string(created.Status)).
		Msg("booking finalized")

	if f.calendar != nil && settings.Integrations.CalendarActive() && w.Service() != nil {
		appt := *created
		svc := *w.Service()
		token := settings.Integrations.CalendarAccessToken
		mirrorCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		stop := context.AfterFunc(f.shutdown, cancel)
		f.dispatch(func() {
			defer cancel()
			defer stop()
			f.mirror(mirrorCtx, appt, svc, token)
		})
	}

	return created, nil
}

func (f *Finalizer) ensureFree(ctx context.Context, draft appointment.Appointment, settings clinic.Settings, services []clinic.Service) error {
	appts, err := f.store.ListByDate(ctx, draft.Date)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	blocks, err := f.store.ListBlocks(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}

	det, err := availability.NewDetector(draft.Date, f.cfg.Location, clinic.ServiceDurations(services), settings.DefaultSessionDuration)
	if err != nil {
		return err
	}
	start, end, ok := det.AppointmentWindow(draft)
	if !ok {
		return ErrNoSlot
	}

	if hit, busy := det.FirstAppointmentConflict(start, end, appts); busy {
		f.logger.Warn().Str("date", draft.Date).Str("start", draft.StartTime).Str("conflict_id", hit.ID).Msg("slot taken before finalization")
		return ErrSlotTaken
	}
	if det.BlockConflict(start, end, blocks) {
		return ErrSlotTaken
	}
	return nil
}

// mirror creates the external calendar event with retries. Failures are
// logged only; the booking already stands.
func (f *Finalizer) mirror(ctx context.Context, appt appointment.Appointment, svc clinic.Service, token string) {
	log := f.logger.With().Str("appointment_id", appt.ID).Logger()
	delay := f.cfg.MirrorBackoff

	for attempt := 1; attempt <= f.cfg.MirrorRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, f.cfg.MirrorTimeout)
		eventID, err := f.calendar.CreateEvent(callCtx, appt, svc, token)
		cancel()

		if err == nil {
			if err := f.store.AttachCalendarEvent(ctx, appt.ID, eventID); err != nil {
				log.Warn().Err(err).Str("event_id", eventID).Msg("calendar event created but not linked")
				return
			}
			log.Info().Str("event_id", eventID).Int("attempt", attempt).Msg("booking mirrored to calendar")
			return
		}

		f.metrics.ObserveCalendarError("create_event")
		log.Warn().Err(err).Int("attempt", attempt).Msg("calendar mirror failed")

		if attempt < f.cfg.MirrorRetries {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				log.Warn().Err(ctx.Err()).Int("attempt", attempt).Msg("calendar mirror abandoned")
				return
			case <-timer.C:
			}
			delay *= 2
		}
	}

	log.Error().Msg("giving up on calendar mirror")
}
