package reminder

import (
	"sort"
	"time"

	"github.com/hackgods/clinic-booking/internal/appointment"
	"github.com/hackgods/clinic-booking/internal/availability"
	"github.com/hackgods/clinic-booking/internal/clinic"
)

const defaultWindowHours = 24

// Window returns the look-ahead configured in integ.
func Window(integ clinic.Integrations) time.Duration {
	hours := integ.ReminderHours
	if hours <= 0 {
		hours = defaultWindowHours
	}
	return time.Duration(hours) * time.Hour
}

// Due selects confirmed appointments without a reminder whose start lies in
// (now, now+ReminderHours]. Nothing is due while reminders are disabled.
func Due(appts []appointment.Appointment, integ clinic.Integrations, now time.Time, loc *time.Location) []appointment.Appointment {
	if !integ.RemindersEnabled {
		return nil
	}

	limit := now.Add(Window(integ))
	var due []appointment.Appointment
	for _, a := range appts {
		if a.ReminderSent || a.Status != appointment.StatusConfirmed {
			continue
		}
		start, ok := StartOf(a, loc)
		if !ok {
			continue
		}
		if start.After(now) && !start.After(limit) {
			due = append(due, a)
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		if due[i].Date != due[j].Date {
			return due[i].Date < due[j].Date
		}
		return due[i].StartTime < due[j].StartTime
	})
	return due
}

// StartOf resolves the appointment start in loc.
func StartOf(a appointment.Appointment, loc *time.Location) (time.Time, bool) {
	day, err := availability.ParseDate(a.Date, loc)
	if err != nil {
		return time.Time{}, false
	}
	minutes, err := availability.ParseClock(a.StartTime)
	if err != nil {
		return time.Time{}, false
	}
	return availability.At(day, minutes), true
}
