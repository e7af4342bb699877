package api

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/hackgods/clinic-booking/internal/appointment"
	"github.com/hackgods/clinic-booking/internal/clinic"
)

type memAppointments struct {
	mu     sync.Mutex
	appts  map[string]appointment.Appointment
	blocks map[string]appointment.Block
	events []appointment.EventLog
}

func newMemAppointments() *memAppointments {
	return &memAppointments{appts: map[string]appointment.Appointment{}, blocks: map[string]appointment.Block{}}
}

func (m *memAppointments) filter(keep func(appointment.Appointment) bool) []appointment.Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []appointment.Appointment{}
	for _, a := range m.appts {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date+out[i].StartTime < out[j].Date+out[j].StartTime })
	return out
}

func (m *memAppointments) ListAppointments(ctx context.Context) ([]appointment.Appointment, error) {
	return m.filter(func(appointment.Appointment) bool { return true }), nil
}

func (m *memAppointments) ListAppointmentsByDate(ctx context.Context, date string) ([]appointment.Appointment, error) {
	return m.filter(func(a appointment.Appointment) bool { return a.Date == date }), nil
}

func (m *memAppointments) ListAppointmentsInRange(ctx context.Context, from, to string) ([]appointment.Appointment, error) {
	return m.filter(func(a appointment.Appointment) bool { return a.Date >= from && a.Date <= to }), nil
}

func (m *memAppointments) ListAppointmentsByEmail(ctx context.Context, email string) ([]appointment.Appointment, error) {
	return m.filter(func(a appointment.Appointment) bool { return a.BelongsTo(email) }), nil
}

func (m *memAppointments) GetAppointmentByID(ctx context.Context, id string) (*appointment.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	return &a, nil
}

func (m *memAppointments) CreateAppointment(ctx context.Context, a appointment.Appointment) (*appointment.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appts[a.ID] = a
	return &a, nil
}

func (m *memAppointments) UpdateAppointment(ctx context.Context, a appointment.Appointment) (*appointment.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appts[a.ID]; !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	m.appts[a.ID] = a
	return &a, nil
}

func (m *memAppointments) MarkReminderSent(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok || a.Status != appointment.StatusConfirmed {
		return false, nil
	}
	a.ReminderSent = true
	m.appts[id] = a
	return true, nil
}

func (m *memAppointments) DeleteAppointment(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appts[id]; !ok {
		return appointment.ErrAppointmentNotFound
	}
	delete(m.appts, id)
	return nil
}

func (m *memAppointments) UpdatePatientProfile(ctx context.Context, oldEmail string, p appointment.PatientProfile) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, a := range m.appts {
		if strings.EqualFold(a.PatientEmail, oldEmail) {
			a.PatientName, a.PatientEmail, a.PatientPhone = p.Name, p.Email, p.Phone
			m.appts[id] = a
			n++
		}
	}
	return n, nil
}

func (m *memAppointments) DeletePatientAppointments(ctx context.Context, email string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, a := range m.appts {
		if strings.EqualFold(a.PatientEmail, email) {
			delete(m.appts, id)
			n++
		}
	}
	return n, nil
}

func (m *memAppointments) ListBlocks(ctx context.Context) ([]appointment.Block, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []appointment.Block{}
	for _, b := range m.blocks {
		out = append(out, b)
	}
	return out, nil
}

func (m *memAppointments) CreateBlock(ctx context.Context, b appointment.Block) (*appointment.Block, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocks[b.ID] = b
	return &b, nil
}

func (m *memAppointments) DeleteBlock(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blocks[id]; !ok {
		return appointment.ErrBlockNotFound
	}
	delete(m.blocks, id)
	return nil
}

func (m *memAppointments) InsertEvent(ctx context.Context, ev appointment.EventLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

type memClinic struct {
	mu       sync.Mutex
	services []clinic.Service
	staff    []clinic.Staff
	settings *clinic.Settings
}

func (m *memClinic) ListServices(ctx context.Context) ([]clinic.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]clinic.Service{}, m.services...), nil
}

func (m *memClinic) SaveServices(ctx context.Context, services []clinic.Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services = append([]clinic.Service{}, services...)
	return nil
}

func (m *memClinic) ListStaff(ctx context.Context) ([]clinic.Staff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]clinic.Staff{}, m.staff...), nil
}

func (m *memClinic) GetStaffByEmail(ctx context.Context, email string) (*clinic.Staff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.staff {
		if strings.EqualFold(s.Email, email) {
			return &s, nil
		}
	}
	return nil, clinic.ErrStaffNotFound
}

func (m *memClinic) AddStaff(ctx context.Context, s clinic.Staff) (*clinic.Staff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staff = append(m.staff, s)
	return &s, nil
}

func (m *memClinic) RemoveStaff(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.staff {
		if s.ID == id {
			m.staff = append(m.staff[:i], m.staff[i+1:]...)
			return nil
		}
	}
	return clinic.ErrStaffNotFound
}

func (m *memClinic) GetSettings(ctx context.Context) (*clinic.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settings == nil {
		return nil, clinic.ErrSettingsNotFound
	}
	s := *m.settings
	return &s, nil
}

func (m *memClinic) SaveSettings(ctx context.Context, s clinic.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = &s
	return nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }
