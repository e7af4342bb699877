package clinic

type ServiceType string

const (
	ServiceInitial ServiceType = "initial"
	ServiceRegular ServiceType = "regular"
	ServicePlan    ServiceType = "plan"
)

// Service is a bookable offering of the clinic.
type Service struct {
	ID          string      `json:"id" validate:"required"`
	Name        string      `json:"name" validate:"required"`
	Description string      `json:"description"`
	Price       float64     `json:"price" validate:"gte=0"`
	Duration    int         `json:"duration" validate:"gt=0"` // minutes
	Type        ServiceType `json:"type" validate:"oneof=initial regular plan"`
}

type Role string

const (
	RoleAnalyst   Role = "analyst"
	RoleSecretary Role = "secretary"
)

type Staff struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
}

// WorkingPeriod is a [Start, End) window in HH:MM. A nil Enabled counts as
// enabled.
type WorkingPeriod struct {
	Start   string `json:"start"`
	End     string `json:"end"`
	Enabled *bool  `json:"enabled,omitempty"`
}

func (p WorkingPeriod) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// WorkingDay holds the schedule for one weekday, 0 = Sunday.
type WorkingDay struct {
	Day     int             `json:"day"`
	IsOpen  bool            `json:"is_open"`
	Periods []WorkingPeriod `json:"periods"`
}

type ReminderChannel string

const (
	ReminderWhatsApp ReminderChannel = "whatsapp"
	ReminderEmail    ReminderChannel = "email"
	ReminderBoth     ReminderChannel = "both"
)

type Integrations struct {
	CalendarConnected   bool   `json:"calendar_connected"`
	CalendarAccessToken string `json:"calendar_access_token,omitempty"`
	CalendarEmail       string `json:"calendar_email,omitempty"`
	CalendarID          string `json:"calendar_id,omitempty"`

	PaymentConnected   bool   `json:"payment_connected"`
	PaymentPublicKey   string `json:"payment_public_key,omitempty"`
	PaymentAccessToken string `json:"payment_access_token,omitempty"`

	WhatsAppEnabled  bool            `json:"whatsapp_enabled"`
	RemindersEnabled bool            `json:"reminders_enabled"`
	ReminderChannel  ReminderChannel `json:"reminder_channel"`
	ReminderHours    int             `json:"reminder_hours"`
}

// CalendarActive reports whether busy intervals should be fetched.
func (i Integrations) CalendarActive() bool {
	return i.CalendarConnected && i.CalendarAccessToken != ""
}

func (i Integrations) CalendarTarget() string {
	if i.CalendarID == "" {
		return "primary"
	}
	return i.CalendarID
}

type Content struct {
	HeroTitle       string `json:"hero_title"`
	HeroSubtitle    string `json:"hero_subtitle"`
	HeroDescription string `json:"hero_description"`
	HeroImageURL    string `json:"hero_image_url"`
	BioTitle        string `json:"bio_title"`
	BioSubtitle     string `json:"bio_subtitle"`
	BioText         string `json:"bio_text"`
	BioImageURL     string `json:"bio_image_url"`
	ClinicAddress   string `json:"clinic_address"`
	ClinicEmail     string `json:"clinic_email"`
	ClinicPhone     string `json:"clinic_phone"`
	ClinicCity      string `json:"clinic_city"`
	InstagramURL    string `json:"instagram_url"`
}

// Settings is the clinic configuration snapshot. It is replaced as a whole
// on every save.
type Settings struct {
	DefaultSessionDuration int               `json:"default_session_duration"`
	BufferMinutes          int               `json:"buffer_minutes"`
	WorkingDays            []WorkingDay      `json:"working_days"`
	Integrations           Integrations      `json:"integrations"`
	Content                Content           `json:"content"`
	PatientSummaries       map[string]string `json:"patient_summaries,omitempty"`
}

// Day returns the schedule for weekday, if configured.
func (s Settings) Day(weekday int) (WorkingDay, bool) {
	for _, wd := range s.WorkingDays {
		if wd.Day == weekday {
			return wd, true
		}
	}
	return WorkingDay{}, false
}

// SessionDuration picks the service duration, falling back to the default.
func (s Settings) SessionDuration(svc *Service) int {
	if svc != nil && svc.Duration > 0 {
		return svc.Duration
	}
	return s.DefaultSessionDuration
}
