package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-booking/internal/appointment"
	"github.com/hackgods/clinic-booking/internal/availability"
	"github.com/hackgods/clinic-booking/internal/clinic"
	"github.com/hackgods/clinic-booking/internal/metrics"
	"github.com/hackgods/clinic-booking/internal/notify"
)

var ErrNoRecipient = errors.New("appointment has no contact for the reminder channel")

type Store interface {
	ListInRange(ctx context.Context, from, to string) ([]appointment.Appointment, error)
	MarkReminderSent(ctx context.Context, id string) (bool, error)
}

type SettingsSource interface {
	Settings(ctx context.Context) (clinic.Settings, error)
}

// Result summarizes one dispatch run.
type Result struct {
	Due    int `json:"due"`
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

type Dispatcher struct {
	store    Store
	settings SettingsSource
	email    notify.EmailSender
	messages notify.MessageSender
	loc      *time.Location
	now      func() time.Time
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

func NewDispatcher(
	store Store,
	settings SettingsSource,
	email notify.EmailSender,
	messages notify.MessageSender,
	loc *time.Location,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Dispatcher {
	if loc == nil {
		loc = time.UTC
	}
	return &Dispatcher{
		store:    store,
		settings: settings,
		email:    email,
		messages: messages,
		loc:      loc,
		now:      time.Now,
		metrics:  m,
		logger:   logger,
	}
}

func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// Pending lists the appointments a run would remind right now.
func (d *Dispatcher) Pending(ctx context.Context) ([]appointment.Appointment, clinic.Settings, error) {
	settings, err := d.settings.Settings(ctx)
	if err != nil {
		return nil, clinic.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	integ := settings.Integrations
	if !integ.RemindersEnabled {
		return nil, settings, nil
	}

	now := d.now().In(d.loc)
	from := now.Format(availability.DateLayout)
	to := now.Add(Window(integ)).Format(availability.DateLayout)

	appts, err := d.store.ListInRange(ctx, from, to)
	if err != nil {
		return nil, settings, fmt.Errorf("list appointments: %w", err)
	}
	return Due(appts, integ, now, d.loc), settings, nil
}

// Run sends every pending reminder and marks it. A failed delivery leaves
// the appointment unmarked so the next run retries it.
func (d *Dispatcher) Run(ctx context.Context) (Result, error) {
	due, settings, err := d.Pending(ctx)
	if err != nil {
		return Result{}, err
	}

	res := Result{Due: len(due)}
	channel := settings.Integrations.ReminderChannel
	if channel == "" {
		channel = clinic.ReminderWhatsApp
	}

	for _, a := range due {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := d.send(ctx, a, channel, settings.Content); err != nil {
			res.Failed++
			d.metrics.ObserveReminder(string(channel), "failed")
			d.logger.Warn().Err(err).Str("appointment_id", a.ID).Str("channel", string(channel)).Msg("reminder delivery failed")
			continue
		}
		marked, err := d.store.MarkReminderSent(ctx, a.ID)
		if err != nil {
			res.Failed++
			d.metrics.ObserveReminder(string(channel), "unmarked")
			d.logger.Error().Err(err).Str("appointment_id", a.ID).Msg("reminder sent but not marked")
			continue
		}
		if !marked {
			d.logger.Info().Str("appointment_id", a.ID).Msg("appointment changed while the reminder was sent")
		}
		res.Sent++
		d.metrics.ObserveReminder(string(channel), "sent")
	}

	d.logger.Info().Int("due", res.Due).Int("sent", res.Sent).Int("failed", res.Failed).Msg("reminder run complete")
	return res, nil
}

func (d *Dispatcher) send(ctx context.Context, a appointment.Appointment, channel clinic.ReminderChannel, content clinic.Content) error {
	switch channel {
	case clinic.ReminderEmail:
		return d.sendEmail(ctx, a, content)
	case clinic.ReminderWhatsApp:
		return d.sendMessage(ctx, a)
	case clinic.ReminderBoth:
		// Either channel reaching the patient is enough.
		errEmail := d.sendEmail(ctx, a, content)
		errMsg := d.sendMessage(ctx, a)
		if errEmail != nil && errMsg != nil {
			return errors.Join(errEmail, errMsg)
		}
		return nil
	}
	return fmt.Errorf("unknown reminder channel %q", channel)
}

func (d *Dispatcher) sendEmail(ctx context.Context, a appointment.Appointment, content clinic.Content) error {
	if d.email == nil || a.PatientEmail == "" {
		return ErrNoRecipient
	}
	return d.email.Send(ctx, EmailFor(a, content))
}

func (d *Dispatcher) sendMessage(ctx context.Context, a appointment.Appointment) error {
	if d.messages == nil || a.PatientPhone == "" {
		return ErrNoRecipient
	}
	return d.messages.SendMessage(ctx, a.PatientPhone, MessageFor(a))
}

func EmailFor(a appointment.Appointment, content clinic.Content) notify.EmailMessage {
	subject := "Session reminder"
	if content.HeroTitle != "" {
		subject = "Session reminder - " + content.HeroTitle
	}
	body := fmt.Sprintf("Hello %s, this is an automatic reminder of your session on %s at %s.", a.PatientName, a.Date, a.StartTime)
	if a.Format == appointment.FormatInPerson && content.ClinicAddress != "" {
		body += "\nAddress: " + content.ClinicAddress
	}
	return notify.EmailMessage{
		To:      a.PatientEmail,
		ToName:  a.PatientName,
		Subject: subject,
		Body:    body,
	}
}

func MessageFor(a appointment.Appointment) string {
	return fmt.Sprintf("Hello %s! Confirming our session on %s at %s. See you then!", a.PatientName, a.Date, a.StartTime)
}
