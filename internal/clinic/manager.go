package clinic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-booking/internal/identity"
)

var ErrInvalidSettings = errors.New("invalid settings")

// Manager owns the catalog, staff list and settings snapshot. Every write
// returns the new value; callers replace their copy wholesale.
type Manager struct {
	repo     Repository
	ids      identity.Provider
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewManager(repo Repository, ids identity.Provider, logger zerolog.Logger) *Manager {
	return &Manager{
		repo:     repo,
		ids:      ids,
		validate: validator.New(),
		logger:   logger,
	}
}

// Settings loads the snapshot. A missing row is seeded with the defaults.
func (m *Manager) Settings(ctx context.Context) (Settings, error) {
	s, err := m.repo.GetSettings(ctx)
	if errors.Is(err, ErrSettingsNotFound) {
		def := DefaultSettings()
		if err := m.repo.SaveSettings(ctx, def); err != nil {
			m.logger.Warn().Err(err).Msg("failed to seed default settings")
		}
		return def, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return normalize(*s), nil
}

// SaveSettings validates and stores a full snapshot, returning it.
func (m *Manager) SaveSettings(ctx context.Context, s Settings) (Settings, error) {
	s = normalize(s)
	if err := ValidateSchedule(s.WorkingDays); err != nil {
		return Settings{}, err
	}
	if err := m.repo.SaveSettings(ctx, s); err != nil {
		return Settings{}, fmt.Errorf("save settings: %w", err)
	}
	return s, nil
}

// Services returns the catalog, or the built-in one when nothing is stored.
func (m *Manager) Services(ctx context.Context) ([]Service, error) {
	services, err := m.repo.ListServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	if len(services) == 0 {
		return DefaultServices(), nil
	}
	return services, nil
}

func (m *Manager) ServiceByID(ctx context.Context, id string) (*Service, error) {
	services, err := m.Services(ctx)
	if err != nil {
		return nil, err
	}
	for i := range services {
		if services[i].ID == id {
			return &services[i], nil
		}
	}
	return nil, ErrServiceNotFound
}

// ServiceDurations maps service id to duration in minutes.
func ServiceDurations(services []Service) map[string]int {
	out := make(map[string]int, len(services))
	for _, s := range services {
		out[s.ID] = s.Duration
	}
	return out
}

func (m *Manager) SaveServices(ctx context.Context, services []Service) ([]Service, error) {
	for i := range services {
		if services[i].ID == "" {
			services[i].ID = m.ids.NewID()
		}
		if err := m.validate.Struct(services[i]); err != nil {
			return nil, fmt.Errorf("%w: service %q: %v", ErrInvalidSettings, services[i].Name, err)
		}
	}
	if err := m.repo.SaveServices(ctx, services); err != nil {
		return nil, fmt.Errorf("save services: %w", err)
	}
	return services, nil
}

func (m *Manager) Staff(ctx context.Context) ([]Staff, error) {
	staff, err := m.repo.ListStaff(ctx)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	return staff, nil
}

func (m *Manager) StaffByEmail(ctx context.Context, email string) (*Staff, error) {
	return m.repo.GetStaffByEmail(ctx, strings.TrimSpace(email))
}

// AddStaff stores a staff member. The password must already be hashed.
func (m *Manager) AddStaff(ctx context.Context, s Staff) (*Staff, error) {
	if s.ID == "" {
		s.ID = m.ids.NewID()
	}
	if s.Role == "" {
		s.Role = RoleSecretary
	}
	s.Email = strings.TrimSpace(s.Email)
	created, err := m.repo.AddStaff(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("add staff: %w", err)
	}
	return created, nil
}

func (m *Manager) RemoveStaff(ctx context.Context, id string) error {
	if err := m.repo.RemoveStaff(ctx, id); err != nil {
		return fmt.Errorf("remove staff: %w", err)
	}
	return nil
}

// ValidateSchedule checks weekday indexes and that each period is a
// well-formed [start, end) range. Overlapping periods are allowed.
func ValidateSchedule(days []WorkingDay) error {
	seen := make(map[int]bool, len(days))
	for _, wd := range days {
		if wd.Day < 0 || wd.Day > 6 {
			return fmt.Errorf("%w: weekday %d out of range", ErrInvalidSettings, wd.Day)
		}
		if seen[wd.Day] {
			return fmt.Errorf("%w: weekday %d listed twice", ErrInvalidSettings, wd.Day)
		}
		seen[wd.Day] = true

		for _, p := range wd.Periods {
			start, err1 := time.Parse("15:04", p.Start)
			end, err2 := time.Parse("15:04", p.End)
			if err1 != nil || err2 != nil {
				return fmt.Errorf("%w: period %s-%s is not HH:MM", ErrInvalidSettings, p.Start, p.End)
			}
			if !end.After(start) {
				return fmt.Errorf("%w: period %s-%s ends before it starts", ErrInvalidSettings, p.Start, p.End)
			}
		}
	}
	return nil
}

func normalize(s Settings) Settings {
	if s.DefaultSessionDuration <= 0 {
		s.DefaultSessionDuration = DefaultSettings().DefaultSessionDuration
	}
	if s.BufferMinutes < 0 {
		s.BufferMinutes = 0
	}
	if s.Integrations.ReminderHours <= 0 {
		s.Integrations.ReminderHours = 24
	}
	if s.Integrations.ReminderChannel == "" {
		s.Integrations.ReminderChannel = ReminderWhatsApp
	}
	if s.PatientSummaries == nil {
		s.PatientSummaries = map[string]string{}
	}
	return s
}
