package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/hackgods/clinic-booking/internal/appointment"
	"github.com/hackgods/clinic-booking/internal/clinic"
)

// ErrInvalidCredentials is the only error a failed login reports.
var ErrInvalidCredentials = errors.New("invalid credentials")

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

type StaffDirectory interface {
	StaffByEmail(ctx context.Context, email string) (*clinic.Staff, error)
}

type PatientDirectory interface {
	ListForPatient(ctx context.Context, email string) ([]appointment.Appointment, error)
}

type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Role      Role      `json:"role"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
}

type Authenticator struct {
	staff    StaffDirectory
	patients PatientDirectory
	tokens   *Tokens
	logger   zerolog.Logger
}

func NewAuthenticator(staff StaffDirectory, patients PatientDirectory, tokens *Tokens, logger zerolog.Logger) *Authenticator {
	return &Authenticator{staff: staff, patients: patients, tokens: tokens, logger: logger}
}

func (a *Authenticator) Tokens() *Tokens { return a.tokens }

func (a *Authenticator) StaffLogin(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	member, err := a.staff.StaffByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, clinic.ErrStaffNotFound) {
			a.logger.Error().Err(err).Msg("staff lookup failed")
		}
		return nil, ErrInvalidCredentials
	}
	if member.PasswordHash == "" || !CheckPassword(member.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	return a.issue(member.ID, email, member.Name, Role(member.Role))
}

// PatientLogin identifies a patient by email plus the trailing digits of a
// phone number used on any of their bookings.
func (a *Authenticator) PatientLogin(ctx context.Context, email, phoneSuffix string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	suffix := digits(phoneSuffix)
	if email == "" || suffix == "" {
		return nil, ErrInvalidCredentials
	}

	appts, err := a.patients.ListForPatient(ctx, email)
	if err != nil {
		a.logger.Error().Err(err).Msg("patient lookup failed")
		return nil, ErrInvalidCredentials
	}

	for _, appt := range appts {
		if !appt.BelongsTo(email) {
			continue
		}
		if strings.HasSuffix(digits(appt.PatientPhone), suffix) {
			return a.issue(email, email, appt.PatientName, RolePatient)
		}
	}
	return nil, ErrInvalidCredentials
}

func (a *Authenticator) issue(subject, email, name string, role Role) (*Session, error) {
	token, exp, err := a.tokens.Issue(subject, email, name, role)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: exp, Role: role, Email: email, Name: name}, nil
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
