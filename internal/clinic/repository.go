package clinic

import (
	"context"
	"errors"
)

var (
	ErrServiceNotFound  = errors.New("service not found")
	ErrStaffNotFound    = errors.New("staff member not found")
	ErrSettingsNotFound = errors.New("settings not found")
)

// Repository covers the clinic catalog, staff and the settings singleton.
type Repository interface {
	ListServices(ctx context.Context) ([]Service, error)
	SaveServices(ctx context.Context, services []Service) error

	ListStaff(ctx context.Context) ([]Staff, error)
	GetStaffByEmail(ctx context.Context, email string) (*Staff, error)
	AddStaff(ctx context.Context, s Staff) (*Staff, error)
	RemoveStaff(ctx context.Context, id string) error

	GetSettings(ctx context.Context) (*Settings, error)
	SaveSettings(ctx context.Context, s Settings) error
}
