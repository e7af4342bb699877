package booking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hackgods/clinic-booking/internal/appointment"
	"github.com/hackgods/clinic-booking/internal/calendar"
	"github.com/hackgods/clinic-booking/internal/clinic"
)

type fakeStore struct {
	mu        sync.Mutex
	appts     []appointment.Appointment
	blocks    []appointment.Block
	createErr error
	listErr   error
	attached  map[string]string
}

func (f *fakeStore) ListByDate(ctx context.Context, date string) ([]appointment.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []appointment.Appointment
	for _, a := range f.appts {
		if a.Date == date {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) ListBlocks(ctx context.Context) ([]appointment.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]appointment.Block{}, f.blocks...), nil
}

func (f *fakeStore) Create(ctx context.Context, a appointment.Appointment) (*appointment.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.appts = append(f.appts, a)
	return &a, nil
}

func (f *fakeStore) AttachCalendarEvent(ctx context.Context, id, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attached == nil {
		f.attached = map[string]string{}
	}
	f.attached[id] = eventID
	return nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.appts)
}

type fakeCalendar struct {
	mu        sync.Mutex
	events    []calendar.Event
	listErr   error
	failFirst int
	calls     int
	ctxErrs   []error
}

func (f *fakeCalendar) ListEvents(ctx context.Context, from, to time.Time, token string) ([]calendar.Event, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.events, nil
}

func (f *fakeCalendar) CreateEvent(ctx context.Context, appt appointment.Appointment, svc clinic.Service, token string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	if f.calls <= f.failFirst {
		return "", errors.New("calendar unavailable")
	}
	return "evt-" + appt.ID, nil
}

type fakePayments struct {
	url  string
	err  error
	seen []appointment.Appointment
}

func (f *fakePayments) CreatePreference(ctx context.Context, appt appointment.Appointment, svc clinic.Service, token string) (string, error) {
	f.seen = append(f.seen, appt)
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

type fakeCatalog struct {
	settings clinic.Settings
	services []clinic.Service
	err      error
}

func (f *fakeCatalog) Settings(ctx context.Context) (clinic.Settings, error) {
	return f.settings, f.err
}

func (f *fakeCatalog) Services(ctx context.Context) ([]clinic.Service, error) {
	return f.services, f.err
}

// mondayMorning is a clinic open Mondays 09:00-12:00 with 50+10 sessions.
func mondayMorning() clinic.Settings {
	return clinic.Settings{
		DefaultSessionDuration: 50,
		BufferMinutes:          10,
		WorkingDays: []clinic.WorkingDay{
			{Day: 1, IsOpen: true, Periods: []clinic.WorkingPeriod{{Start: "09:00", End: "12:00"}}},
		},
	}
}

func inline(fn func()) { fn() }
