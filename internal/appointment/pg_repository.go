package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hackgods/clinic-booking/internal/db"
)

type PgRepository struct {
	pool db.DBTX
}

func NewPgRepository(pool db.DBTX) *PgRepository {
	return &PgRepository{pool: pool}
}

const appointmentColumns = `id, service_id, patient_name, patient_email, patient_phone, consultation_reason,
	date, start_time, end_time, format, status, payment_status, payment_id, calendar_event_id,
	notes, patient_feedback, next_session_context, recurrence_id, reminder_sent, created_at`

const blockColumns = `id, start_date, end_date, start_time, end_time, is_all_day, reason`

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.ServiceID,
		&a.PatientName,
		&a.PatientEmail,
		&a.PatientPhone,
		&a.ConsultationReason,
		&a.Date,
		&a.StartTime,
		&a.EndTime,
		&a.Format,
		&a.Status,
		&a.PaymentStatus,
		&a.PaymentID,
		&a.CalendarEventID,
		&a.Notes,
		&a.PatientFeedback,
		&a.NextSessionContext,
		&a.RecurrenceID,
		&a.ReminderSent,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

func scanBlock(row pgx.Row) (*Block, error) {
	var b Block

	err := row.Scan(
		&b.ID,
		&b.StartDate,
		&b.EndDate,
		&b.StartTime,
		&b.EndTime,
		&b.IsAllDay,
		&b.Reason,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBlockNotFound
		}
		return nil, err
	}

	return &b, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func appointmentArgs(a Appointment) []any {
	return []any{
		a.ID,
		a.ServiceID,
		a.PatientName,
		a.PatientEmail,
		a.PatientPhone,
		a.ConsultationReason,
		a.Date,
		a.StartTime,
		a.EndTime,
		a.Format,
		a.Status,
		a.PaymentStatus,
		a.PaymentID,
		a.CalendarEventID,
		a.Notes,
		a.PatientFeedback,
		a.NextSessionContext,
		a.RecurrenceID,
		a.ReminderSent,
		a.CreatedAt,
	}
}

// Interface methods

func (r *PgRepository) ListAppointments(ctx context.Context) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		ORDER BY date, start_time
	`)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListAppointmentsByDate(ctx context.Context, date string) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE date = $1
		ORDER BY start_time
	`, date)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListAppointmentsInRange(ctx context.Context, from, to string) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE date >= $1 AND date <= $2
		ORDER BY date, start_time
	`, from, to)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListAppointmentsByEmail(ctx context.Context, email string) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE lower(patient_email) = lower($1)
		ORDER BY date DESC, start_time DESC
	`, email)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING `+appointmentColumns, appointmentArgs(a)...)

	return scanAppointment(row)
}

// UpdateAppointment replaces the whole record. Last writer wins.
func (r *PgRepository) UpdateAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET service_id = $2,
		    patient_name = $3,
		    patient_email = $4,
		    patient_phone = $5,
		    consultation_reason = $6,
		    date = $7,
		    start_time = $8,
		    end_time = $9,
		    format = $10,
		    status = $11,
		    payment_status = $12,
		    payment_id = $13,
		    calendar_event_id = $14,
		    notes = $15,
		    patient_feedback = $16,
		    next_session_context = $17,
		    recurrence_id = $18,
		    reminder_sent = $19
		WHERE id = $1
		RETURNING `+appointmentColumns, appointmentArgs(a)[:19]...)

	return scanAppointment(row)
}

func (r *PgRepository) MarkReminderSent(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET reminder_sent = true
		WHERE id = $1 AND status = 'confirmed'
	`, id)
	if err != nil {
		return false, fmt.Errorf("mark reminder sent: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgRepository) DeleteAppointment(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) UpdatePatientProfile(ctx context.Context, oldEmail string, p PatientProfile) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET patient_name = $2,
		    patient_email = $3,
		    patient_phone = $4
		WHERE lower(patient_email) = lower($1)
	`, oldEmail, p.Name, p.Email, p.Phone)
	if err != nil {
		return 0, fmt.Errorf("update patient profile: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PgRepository) DeletePatientAppointments(ctx context.Context, email string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM appointments
		WHERE lower(patient_email) = lower($1)
	`, email)
	if err != nil {
		return 0, fmt.Errorf("delete patient appointments: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PgRepository) ListBlocks(ctx context.Context) ([]Block, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+blockColumns+`
		FROM blocks
		ORDER BY start_date, start_time
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Block
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) CreateBlock(ctx context.Context, b Block) (*Block, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO blocks (`+blockColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+blockColumns,
		b.ID, b.StartDate, b.LastDate(), b.StartTime, b.EndTime, b.IsAllDay, b.Reason)

	return scanBlock(row)
}

func (r *PgRepository) DeleteBlock(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM blocks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete block: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBlockNotFound
	}
	return nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
