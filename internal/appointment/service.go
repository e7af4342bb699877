package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-booking/internal/identity"
)

const (
	EventAppointmentCreated     = "APPOINTMENT_CREATED"
	EventAppointmentCancelled   = "APPOINTMENT_CANCELLED"
	EventAppointmentRescheduled = "APPOINTMENT_RESCHEDULED"
	EventAppointmentDeleted     = "APPOINTMENT_DELETED"
	EventPaymentUpdated         = "PAYMENT_UPDATED"
	EventSeriesCreated          = "SERIES_CREATED"
	EventPatientErased          = "PATIENT_ERASED"
)

var (
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrInvalidPaymentStatus    = errors.New("invalid payment status")
	ErrInvalidSchedule         = errors.New("date must be YYYY-MM-DD and time HH:MM")
	ErrInvalidBlock            = errors.New("invalid block")
	ErrNotOwner                = errors.New("appointment belongs to another patient")
)

type Service struct {
	repo   Repository
	ids    identity.Provider
	now    func() time.Time
	logger zerolog.Logger
}

func NewService(repo Repository, ids identity.Provider, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		ids:    ids,
		now:    time.Now,
		logger: logger,
	}
}

// WithClock overrides the time source. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) List(ctx context.Context) ([]Appointment, error) {
	appts, err := s.repo.ListAppointments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

func (s *Service) ListByDate(ctx context.Context, date string) ([]Appointment, error) {
	appts, err := s.repo.ListAppointmentsByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("list appointments for %s: %w", date, err)
	}
	return appts, nil
}

func (s *Service) ListInRange(ctx context.Context, from, to string) ([]Appointment, error) {
	appts, err := s.repo.ListAppointmentsInRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list appointments %s..%s: %w", from, to, err)
	}
	return appts, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	return appt, nil
}

// Create stores a new appointment as-is. Booking goes through the wizard
// and its finalizer; this path is used by series creation and seeding.
func (s *Service) Create(ctx context.Context, a Appointment) (*Appointment, error) {
	if a.ID == "" {
		a.ID = s.ids.NewID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now().UTC()
	}
	created, err := s.repo.CreateAppointment(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	s.logEvent(ctx, created.ID, EventAppointmentCreated, map[string]any{
		"date":       created.Date,
		"start_time": created.StartTime,
		"status":     created.Status,
	})
	return created, nil
}

// Cancel marks an appointment cancelled. Cancelled appointments stop
// blocking their slot immediately.
func (s *Service) Cancel(ctx context.Context, id string) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if appt.Status == StatusCancelled {
		return appt, nil
	}
	if appt.Status == StatusCompleted {
		return nil, ErrInvalidStatusTransition
	}

	appt.Status = StatusCancelled
	updated, err := s.repo.UpdateAppointment(ctx, *appt)
	if err != nil {
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.logEvent(ctx, id, EventAppointmentCancelled, map[string]any{})
	return updated, nil
}

// CancelForPatient cancels only when the appointment belongs to email.
func (s *Service) CancelForPatient(ctx context.Context, id, email string) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if !appt.BelongsTo(email) {
		return nil, ErrNotOwner
	}
	return s.Cancel(ctx, id)
}

// Reschedule moves an appointment directly. Admins may place it anywhere;
// EndTime is cleared so it is derived again from the service duration.
func (s *Service) Reschedule(ctx context.Context, id, date, start string) (*Appointment, error) {
	if !validDate(date) || !validClock(start) {
		return nil, ErrInvalidSchedule
	}

	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	from := appt.Date + " " + appt.StartTime
	appt.Date = date
	appt.StartTime = start
	appt.EndTime = ""
	appt.ReminderSent = false

	updated, err := s.repo.UpdateAppointment(ctx, *appt)
	if err != nil {
		return nil, fmt.Errorf("reschedule appointment: %w", err)
	}

	s.logEvent(ctx, id, EventAppointmentRescheduled, map[string]any{
		"from": from,
		"to":   date + " " + start,
	})
	return updated, nil
}

// UpdateNotes sets the private notes. Feedback is only replaced when given.
func (s *Service) UpdateNotes(ctx context.Context, id, notes string, feedback *string) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	appt.Notes = notes
	if feedback != nil {
		appt.PatientFeedback = *feedback
	}

	updated, err := s.repo.UpdateAppointment(ctx, *appt)
	if err != nil {
		return nil, fmt.Errorf("update notes: %w", err)
	}
	return updated, nil
}

// SetPaymentStatus toggles between paid and pending. A paid appointment
// still waiting on payment becomes confirmed.
func (s *Service) SetPaymentStatus(ctx context.Context, id string, ps PaymentStatus) (*Appointment, error) {
	if !ps.Valid() {
		return nil, ErrInvalidPaymentStatus
	}

	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	appt.PaymentStatus = ps
	if ps == PaymentPaid && appt.Status == StatusPendingPayment {
		appt.Status = StatusConfirmed
	}

	updated, err := s.repo.UpdateAppointment(ctx, *appt)
	if err != nil {
		return nil, fmt.Errorf("update payment status: %w", err)
	}

	s.logEvent(ctx, id, EventPaymentUpdated, map[string]any{"payment_status": ps})
	return updated, nil
}

// MarkReminderSent flags the appointment so the reminder is not sent twice.
// Other fields are left alone, so a cancellation made while the reminder
// was in flight survives. It reports false when the appointment is no
// longer confirmed.
func (s *Service) MarkReminderSent(ctx context.Context, id string) (bool, error) {
	return s.repo.MarkReminderSent(ctx, id)
}

// AttachCalendarEvent records the id of the mirrored calendar event.
func (s *Service) AttachCalendarEvent(ctx context.Context, id, eventID string) error {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load appointment: %w", err)
	}
	appt.CalendarEventID = eventID
	if _, err := s.repo.UpdateAppointment(ctx, *appt); err != nil {
		return fmt.Errorf("attach calendar event: %w", err)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteAppointment(ctx, id); err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	s.logEvent(ctx, id, EventAppointmentDeleted, map[string]any{})
	return nil
}

// CreateSeries expands base into a recurrence series and stores every
// instance. Slot validation is intentionally skipped for admins. Instances
// already stored are kept when a later insert fails.
func (s *Service) CreateSeries(ctx context.Context, base Appointment, rt RecurrenceType, count int) ([]Appointment, error) {
	if !validDate(base.Date) || !validClock(base.StartTime) {
		return nil, ErrInvalidSchedule
	}
	if base.Status == "" {
		base.Status = StatusConfirmed
	}
	if base.PaymentStatus == "" {
		base.PaymentStatus = PaymentPending
	}

	instances, err := Expand(base, rt, count, s.ids, s.now().UTC())
	if err != nil {
		return nil, err
	}

	created := make([]Appointment, 0, len(instances))
	for _, inst := range instances {
		a, err := s.repo.CreateAppointment(ctx, inst)
		if err != nil {
			return created, fmt.Errorf("create series instance %s: %w", inst.Date, err)
		}
		created = append(created, *a)
	}

	s.logEvent(ctx, created[0].ID, EventSeriesCreated, map[string]any{
		"recurrence_id": created[0].RecurrenceID,
		"type":          rt,
		"count":         len(created),
	})
	return created, nil
}

// ListForPatient returns the patient's appointments, newest first.
func (s *Service) ListForPatient(ctx context.Context, email string) ([]Appointment, error) {
	appts, err := s.repo.ListAppointmentsByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("list patient appointments: %w", err)
	}
	sort.SliceStable(appts, func(i, j int) bool {
		if appts[i].Date != appts[j].Date {
			return appts[i].Date > appts[j].Date
		}
		return appts[i].StartTime > appts[j].StartTime
	})
	return appts, nil
}

// LastForPatient returns the most recent appointment, used to pre-fill a
// follow-up booking.
func (s *Service) LastForPatient(ctx context.Context, email string) (*Appointment, error) {
	appts, err := s.ListForPatient(ctx, email)
	if err != nil {
		return nil, err
	}
	if len(appts) == 0 {
		return nil, ErrAppointmentNotFound
	}
	return &appts[0], nil
}

func (s *Service) UpdatePatientProfile(ctx context.Context, oldEmail string, p PatientProfile) (int64, error) {
	n, err := s.repo.UpdatePatientProfile(ctx, oldEmail, p)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// ErasePatient removes every appointment of the patient.
func (s *Service) ErasePatient(ctx context.Context, email string) (int64, error) {
	n, err := s.repo.DeletePatientAppointments(ctx, email)
	if err != nil {
		return 0, err
	}
	s.logEvent(ctx, "", EventPatientErased, map[string]any{"removed": n})
	s.logger.Info().Int64("removed", n).Msg("patient record erased")
	return n, nil
}

func (s *Service) ListBlocks(ctx context.Context) ([]Block, error) {
	blocks, err := s.repo.ListBlocks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	return blocks, nil
}

func (s *Service) AddBlock(ctx context.Context, b Block) (*Block, error) {
	if !validDate(b.StartDate) || (b.EndDate != "" && (!validDate(b.EndDate) || b.EndDate < b.StartDate)) {
		return nil, fmt.Errorf("%w: bad date range", ErrInvalidBlock)
	}
	if !b.IsAllDay {
		if !validClock(b.StartTime) || !validClock(b.EndTime) || b.EndTime <= b.StartTime {
			return nil, fmt.Errorf("%w: partial blocks need start_time < end_time", ErrInvalidBlock)
		}
	}
	if b.ID == "" {
		b.ID = s.ids.NewID()
	}
	if b.EndDate == "" {
		b.EndDate = b.StartDate
	}
	if strings.TrimSpace(b.Reason) == "" {
		b.Reason = "administrative block"
	}

	created, err := s.repo.CreateBlock(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("create block: %w", err)
	}
	return created, nil
}

func (s *Service) RemoveBlock(ctx context.Context, id string) error {
	if err := s.repo.DeleteBlock(ctx, id); err != nil {
		return fmt.Errorf("delete block: %w", err)
	}
	return nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	var apptID *string
	if appointmentID != "" {
		apptID = &appointmentID
	}

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: apptID,
		Payload:       data,
		CreatedAt:     s.now().UTC(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Str("appointment_id", appointmentID).Msg("failed to insert event log")
	}
}

func validDate(s string) bool {
	_, err := time.Parse(dateLayout, s)
	return err == nil
}

func validClock(s string) bool {
	t, err := time.Parse("15:04", s)
	return err == nil && t.Format("15:04") == s
}
