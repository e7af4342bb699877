package api

import (
	"github.com/hackgods/clinic-booking/internal/appointment"
	"github.com/hackgods/clinic-booking/internal/availability"
	"github.com/hackgods/clinic-booking/internal/clinic"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type StaffLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type PatientLoginRequest struct {
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required"`
}

type AvailabilityResponse struct {
	Date      string   `json:"date"`
	ServiceID string   `json:"service_id,omitempty"`
	Slots     []string `json:"slots"`
}

type RescheduleRequest struct {
	Date      string `json:"date" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
}

type NotesRequest struct {
	Notes           string  `json:"notes"`
	PatientFeedback *string `json:"patient_feedback,omitempty"`
}

type PaymentStatusRequest struct {
	PaymentStatus appointment.PaymentStatus `json:"payment_status" validate:"required,oneof=paid pending"`
}

type SeriesRequest struct {
	Appointment appointment.Appointment    `json:"appointment"`
	Recurrence  appointment.RecurrenceType `json:"recurrence" validate:"required,oneof=weekly biweekly"`
	Count       int                        `json:"count" validate:"required,gt=0,lte=52"`
}

type BlockRequest struct {
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	IsAllDay  bool   `json:"is_all_day"`
	Reason    string `json:"reason"`
}

type StaffRequest struct {
	Name     string      `json:"name" validate:"required"`
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required,min=8"`
	Role     clinic.Role `json:"role" validate:"omitempty,oneof=analyst secretary"`
}

type PatientUpdateRequest struct {
	OldEmail string                     `json:"old_email" validate:"required,email"`
	Profile  appointment.PatientProfile `json:"profile"`
}

type CountResponse struct {
	Affected int64 `json:"affected"`
}

type CalendarDay struct {
	Date  string                    `json:"date"`
	Items []availability.AgendaItem `json:"items"`
}

type CalendarResponse struct {
	View string        `json:"view"`
	Days []CalendarDay `json:"days"`
}
