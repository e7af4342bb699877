package appointment

import (
	"context"
	"errors"
	"sort"
	"strings"
)

var errStore = errors.New("store unavailable")

type fakeRepo struct {
	appts   map[string]Appointment
	blocks  map[string]Block
	events  []EventLog
	failAt  int // CreateAppointment call that fails, 1-based; 0 never
	creates int
}

func newFakeRepo(appts ...Appointment) *fakeRepo {
	r := &fakeRepo{appts: map[string]Appointment{}, blocks: map[string]Block{}}
	for _, a := range appts {
		r.appts[a.ID] = a
	}
	return r
}

func (r *fakeRepo) list(keep func(Appointment) bool) []Appointment {
	var out []Appointment
	for _, a := range r.appts {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date+out[i].StartTime < out[j].Date+out[j].StartTime })
	return out
}

func (r *fakeRepo) ListAppointments(ctx context.Context) ([]Appointment, error) {
	return r.list(func(Appointment) bool { return true }), nil
}

func (r *fakeRepo) ListAppointmentsByDate(ctx context.Context, date string) ([]Appointment, error) {
	return r.list(func(a Appointment) bool { return a.Date == date }), nil
}

func (r *fakeRepo) ListAppointmentsInRange(ctx context.Context, from, to string) ([]Appointment, error) {
	return r.list(func(a Appointment) bool { return a.Date >= from && a.Date <= to }), nil
}

func (r *fakeRepo) ListAppointmentsByEmail(ctx context.Context, email string) ([]Appointment, error) {
	return r.list(func(a Appointment) bool { return a.BelongsTo(email) }), nil
}

func (r *fakeRepo) GetAppointmentByID(ctx context.Context, id string) (*Appointment, error) {
	a, ok := r.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *fakeRepo) CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	r.creates++
	if r.failAt > 0 && r.creates == r.failAt {
		return nil, errStore
	}
	r.appts[a.ID] = a
	return &a, nil
}

func (r *fakeRepo) UpdateAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	if _, ok := r.appts[a.ID]; !ok {
		return nil, ErrAppointmentNotFound
	}
	r.appts[a.ID] = a
	return &a, nil
}

func (r *fakeRepo) MarkReminderSent(ctx context.Context, id string) (bool, error) {
	a, ok := r.appts[id]
	if !ok || a.Status != StatusConfirmed {
		return false, nil
	}
	a.ReminderSent = true
	r.appts[id] = a
	return true, nil
}

func (r *fakeRepo) DeleteAppointment(ctx context.Context, id string) error {
	if _, ok := r.appts[id]; !ok {
		return ErrAppointmentNotFound
	}
	delete(r.appts, id)
	return nil
}

func (r *fakeRepo) UpdatePatientProfile(ctx context.Context, oldEmail string, p PatientProfile) (int64, error) {
	var n int64
	for id, a := range r.appts {
		if strings.EqualFold(a.PatientEmail, oldEmail) {
			a.PatientName, a.PatientEmail, a.PatientPhone = p.Name, p.Email, p.Phone
			r.appts[id] = a
			n++
		}
	}
	return n, nil
}

func (r *fakeRepo) DeletePatientAppointments(ctx context.Context, email string) (int64, error) {
	var n int64
	for id, a := range r.appts {
		if strings.EqualFold(a.PatientEmail, email) {
			delete(r.appts, id)
			n++
		}
	}
	return n, nil
}

func (r *fakeRepo) ListBlocks(ctx context.Context) ([]Block, error) {
	var out []Block
	for _, b := range r.blocks {
		out = append(out, b)
	}
	return out, nil
}

func (r *fakeRepo) CreateBlock(ctx context.Context, b Block) (*Block, error) {
	r.blocks[b.ID] = b
	return &b, nil
}

func (r *fakeRepo) DeleteBlock(ctx context.Context, id string) error {
	if _, ok := r.blocks[id]; !ok {
		return ErrBlockNotFound
	}
	delete(r.blocks, id)
	return nil
}

func (r *fakeRepo) InsertEvent(ctx context.Context, ev EventLog) error {
	r.events = append(r.events, ev)
	return nil
}

func (r *fakeRepo) eventTypes() []string {
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.EventType)
	}
	return out
}
