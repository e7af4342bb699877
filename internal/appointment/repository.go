package appointment

import (
	"context"
	"errors"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrBlockNotFound       = errors.New("block not found")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	ListAppointments(ctx context.Context) ([]Appointment, error)
	ListAppointmentsByDate(ctx context.Context, date string) ([]Appointment, error)
	ListAppointmentsInRange(ctx context.Context, from, to string) ([]Appointment, error)
	ListAppointmentsByEmail(ctx context.Context, email string) ([]Appointment, error)
	GetAppointmentByID(ctx context.Context, id string) (*Appointment, error)

	// Creation and updates
	CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	UpdateAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	DeleteAppointment(ctx context.Context, id string) error
	// MarkReminderSent sets only the reminder flag, and only while the
	// appointment is still confirmed. It reports whether a row changed.
	MarkReminderSent(ctx context.Context, id string) (bool, error)

	// Patient record maintenance, keyed by email
	UpdatePatientProfile(ctx context.Context, oldEmail string, p PatientProfile) (int64, error)
	DeletePatientAppointments(ctx context.Context, email string) (int64, error)

	// Blocks
	ListBlocks(ctx context.Context) ([]Block, error)
	CreateBlock(ctx context.Context, b Block) (*Block, error)
	DeleteBlock(ctx context.Context, id string) error

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
