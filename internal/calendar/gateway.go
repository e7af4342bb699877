package calendar

import (
	"context"
	"time"

	"github.com/hackgods/clinic-booking/internal/appointment"
	"github.com/hackgods/clinic-booking/internal/clinic"
)

// BusyInterval is a time range reported busy by the external calendar.
// It is fetched fresh for every query and never stored.
type BusyInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Normalized widens a zero-length interval to one nanosecond so that it
// still blocks the instant it starts at.
func (b BusyInterval) Normalized() BusyInterval {
	if !b.End.After(b.Start) {
		b.End = b.Start.Add(time.Nanosecond)
	}
	return b
}

// Event is an external calendar entry as shown on the admin calendar.
// All-day events carry only Date.
type Event struct {
	ID           string    `json:"id"`
	Summary      string    `json:"summary"`
	Description  string    `json:"description,omitempty"`
	Status       string    `json:"status"`
	Transparency string    `json:"transparency,omitempty"`
	AllDay       bool      `json:"all_day"`
	Date         string    `json:"date,omitempty"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
}

// Gateway is the third-party calendar the clinic mirrors bookings into.
type Gateway interface {
	ListEvents(ctx context.Context, from, to time.Time, token string) ([]Event, error)
	CreateEvent(ctx context.Context, appt appointment.Appointment, svc clinic.Service, token string) (string, error)
}

// ListBusy fetches events in [from, to) and keeps only those that make the
// professional unavailable.
func ListBusy(ctx context.Context, gw Gateway, from, to time.Time, token string) ([]BusyInterval, error) {
	events, err := gw.ListEvents(ctx, from, to, token)
	if err != nil {
		return nil, err
	}
	return BusyFromEvents(events), nil
}

// BusyFromEvents drops cancelled, transparent and all-day events. All-day
// entries are skipped because they tend to be reminders rather than real
// unavailability; admins use blocks for full days.
func BusyFromEvents(events []Event) []BusyInterval {
	out := make([]BusyInterval, 0, len(events))
	for _, ev := range events {
		if ev.Status == "cancelled" || ev.Transparency == "transparent" || ev.AllDay {
			continue
		}
		if ev.Start.IsZero() {
			continue
		}
		end := ev.End
		if end.IsZero() {
			end = ev.Start
		}
		out = append(out, BusyInterval{Start: ev.Start, End: end})
	}
	return out
}
