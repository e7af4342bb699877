package clinic

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-booking/internal/appointment"
)

// AppointmentSource is the slice of the appointment service the dashboard
// load needs.
type AppointmentSource interface {
	List(ctx context.Context) ([]appointment.Appointment, error)
	ListBlocks(ctx context.Context) ([]appointment.Block, error)
}

// Snapshot is everything the admin dashboard shows on first load.
type Snapshot struct {
	Services     []Service                 `json:"services"`
	Appointments []appointment.Appointment `json:"appointments"`
	Blocks       []appointment.Block       `json:"blocks"`
	Settings     Settings                  `json:"settings"`
	Staff        []Staff                   `json:"staff"`
	Failed       []string                  `json:"failed,omitempty"`
}

// LoadSnapshot fetches the five resources concurrently. A failing fetch is
// logged and leaves its field at the fallback; the others still load.
func LoadSnapshot(ctx context.Context, m *Manager, appts AppointmentSource, logger zerolog.Logger) Snapshot {
	snap := Snapshot{
		Services:     DefaultServices(),
		Appointments: []appointment.Appointment{},
		Blocks:       []appointment.Block{},
		Settings:     DefaultSettings(),
		Staff:        []Staff{},
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	run := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				logger.Error().Err(err).Str("resource", name).Msg("dashboard load failed")
				mu.Lock()
				snap.Failed = append(snap.Failed, name)
				mu.Unlock()
			}
		}()
	}

	// Each goroutine writes a distinct field.
	run("services", func() error {
		v, err := m.Services(ctx)
		if err == nil && len(v) > 0 {
			snap.Services = v
		}
		return err
	})
	run("appointments", func() error {
		v, err := appts.List(ctx)
		if err == nil && v != nil {
			snap.Appointments = v
		}
		return err
	})
	run("blocks", func() error {
		v, err := appts.ListBlocks(ctx)
		if err == nil && v != nil {
			snap.Blocks = v
		}
		return err
	})
	run("settings", func() error {
		v, err := m.Settings(ctx)
		if err == nil {
			snap.Settings = v
		}
		return err
	})
	run("staff", func() error {
		v, err := m.Staff(ctx)
		if err == nil && v != nil {
			snap.Staff = v
		}
		return err
	})

	wg.Wait()
	return snap
}
