package appointment

import (
	"errors"
	"fmt"
	"time"

	"github.com/hackgods/clinic-booking/internal/identity"
)

type RecurrenceType string

const (
	RecurrenceNone     RecurrenceType = "none"
	RecurrenceWeekly   RecurrenceType = "weekly"
	RecurrenceBiweekly RecurrenceType = "biweekly"
)

const dateLayout = "2006-01-02"

var (
	ErrInvalidRecurrence = errors.New("recurrence must be weekly or biweekly")
	ErrInvalidOccurrence = errors.New("occurrence count must be positive")
)

// StepDays is the number of days between two instances of a series.
func (r RecurrenceType) StepDays() (int, error) {
	switch r {
	case RecurrenceWeekly:
		return 7, nil
	case RecurrenceBiweekly:
		return 14, nil
	}
	return 0, ErrInvalidRecurrence
}

// Expand builds count appointments from base, instance i landing on
// base.Date + i*step days. Every instance shares a fresh recurrence id and
// gets its own id and creation time. No availability check happens here:
// series creation is an admin override.
func Expand(base Appointment, rt RecurrenceType, count int, ids identity.Provider, now time.Time) ([]Appointment, error) {
	step, err := rt.StepDays()
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, ErrInvalidOccurrence
	}

	first, err := time.Parse(dateLayout, base.Date)
	if err != nil {
		return nil, fmt.Errorf("parse base date %q: %w", base.Date, err)
	}

	seriesID := ids.NewID()
	out := make([]Appointment, 0, count)
	for i := 0; i < count; i++ {
		inst := base
		inst.ID = ids.NewID()
		inst.Date = first.AddDate(0, 0, i*step).Format(dateLayout)
		inst.RecurrenceID = seriesID
		inst.CreatedAt = now
		inst.CalendarEventID = ""
		inst.ReminderSent = false
		out = append(out, inst)
	}

	return out, nil
}
