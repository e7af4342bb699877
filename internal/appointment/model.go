package appointment

import (
	"strings"
	"time"
)

type Status string

const (
	StatusPendingPayment Status = "pending_payment"
	StatusConfirmed      Status = "confirmed"
	StatusCancelled      Status = "cancelled"
	StatusCompleted      Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPendingPayment, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "paid"
	PaymentPending PaymentStatus = "pending"
)

func (p PaymentStatus) Valid() bool {
	return p == PaymentPaid || p == PaymentPending
}

type Format string

const (
	FormatOnline   Format = "online"
	FormatInPerson Format = "in_person"
)

func (f Format) Valid() bool {
	return f == FormatOnline || f == FormatInPerson
}

// Appointment is a single booked session. Date is a calendar day
// (YYYY-MM-DD) and StartTime/EndTime are wall-clock HH:MM in the clinic
// time zone. EndTime may be empty, in which case the service duration
// decides where the session ends.
type Appointment struct {
	ID                 string        `json:"id"`
	ServiceID          string        `json:"service_id"`
	PatientName        string        `json:"patient_name"`
	PatientEmail       string        `json:"patient_email"`
	PatientPhone       string        `json:"patient_phone"`
	ConsultationReason string        `json:"consultation_reason,omitempty"`
	Date               string        `json:"date"`
	StartTime          string        `json:"start_time"`
	EndTime            string        `json:"end_time"`
	Format             Format        `json:"format"`
	Status             Status        `json:"status"`
	PaymentStatus      PaymentStatus `json:"payment_status"`
	PaymentID          string        `json:"payment_id,omitempty"`
	CalendarEventID    string        `json:"calendar_event_id,omitempty"`
	Notes              string        `json:"notes,omitempty"`
	PatientFeedback    string        `json:"patient_feedback,omitempty"`
	NextSessionContext string        `json:"next_session_context,omitempty"`
	RecurrenceID       string        `json:"recurrence_id,omitempty"`
	ReminderSent       bool          `json:"reminder_sent"`
	CreatedAt          time.Time     `json:"created_at"`
}

// Blocking reports whether the appointment still occupies its window.
func (a Appointment) Blocking() bool {
	return a.Status != StatusCancelled
}

// BelongsTo matches the patient by email, ignoring case.
func (a Appointment) BelongsTo(email string) bool {
	return a.PatientEmail != "" && strings.EqualFold(a.PatientEmail, strings.TrimSpace(email))
}

// PublicView strips fields the patient must not see.
func (a Appointment) PublicView() Appointment {
	a.Notes = ""
	a.NextSessionContext = ""
	return a
}

// Block is a manual unavailability window. EndDate is inclusive; an empty
// EndDate means the block covers StartDate only.
type Block struct {
	ID        string `json:"id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
	IsAllDay  bool   `json:"is_all_day"`
	Reason    string `json:"reason"`
}

// LastDate returns the inclusive end of the block's date range.
func (b Block) LastDate() string {
	if b.EndDate == "" {
		return b.StartDate
	}
	return b.EndDate
}

// Covers reports whether date (YYYY-MM-DD) falls inside the block range.
// ISO dates compare correctly as strings.
func (b Block) Covers(date string) bool {
	return date >= b.StartDate && date <= b.LastDate()
}

type PatientProfile struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required"`
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *string
	Payload       []byte
	CreatedAt     time.Time
}
