package availability

import (
	"time"

	"github.com/hackgods/clinic-booking/internal/appointment"
	"github.com/hackgods/clinic-booking/internal/calendar"
)

// Overlaps is the half-open interval test: touching intervals do not
// overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Detector answers conflict questions for a single calendar date.
type Detector struct {
	day              time.Time
	date             string
	serviceDurations map[string]int
	fallback         int
}

// NewDetector builds a detector for date in loc. Appointments without an
// EndTime last as long as their service, or fallback minutes when the
// service is unknown.
func NewDetector(date string, loc *time.Location, serviceDurations map[string]int, fallback int) (*Detector, error) {
	day, err := ParseDate(date, loc)
	if err != nil {
		return nil, err
	}
	return &Detector{
		day:              day,
		date:             date,
		serviceDurations: serviceDurations,
		fallback:         fallback,
	}, nil
}

func (d *Detector) Date() string { return d.date }

// Day is midnight of the detector's date.
func (d *Detector) Day() time.Time { return d.day }

// AppointmentWindow returns [start, end) of a on the detector's date.
// ok is false for other dates and unparseable times.
func (d *Detector) AppointmentWindow(a appointment.Appointment) (time.Time, time.Time, bool) {
	if a.Date != d.date {
		return time.Time{}, time.Time{}, false
	}
	start, err := ParseClock(a.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}

	end := -1
	if a.EndTime != "" {
		if m, err := ParseClock(a.EndTime); err == nil && m > start {
			end = m
		}
	}
	if end < 0 {
		dur := d.serviceDurations[a.ServiceID]
		if dur <= 0 {
			dur = d.fallback
		}
		end = start + dur
	}

	return At(d.day, start), At(d.day, end), true
}

// AppointmentConflict reports whether [start, end) hits any appointment on
// the date. Cancelled appointments never block.
func (d *Detector) AppointmentConflict(start, end time.Time, appts []appointment.Appointment) bool {
	_, ok := d.FirstAppointmentConflict(start, end, appts)
	return ok
}

// FirstAppointmentConflict is AppointmentConflict that also returns the
// appointment in the way.
func (d *Detector) FirstAppointmentConflict(start, end time.Time, appts []appointment.Appointment) (appointment.Appointment, bool) {
	for _, a := range appts {
		if !a.Blocking() {
			continue
		}
		aStart, aEnd, ok := d.AppointmentWindow(a)
		if !ok {
			continue
		}
		if Overlaps(start, end, aStart, aEnd) {
			return a, true
		}
	}
	return appointment.Appointment{}, false
}

// BlockWindow returns the part of the date b makes unavailable. A partial
// block without valid times blocks nothing.
func (d *Detector) BlockWindow(b appointment.Block) (time.Time, time.Time, bool) {
	if !b.Covers(d.date) {
		return time.Time{}, time.Time{}, false
	}
	if b.IsAllDay {
		return d.day, d.day.AddDate(0, 0, 1), true
	}
	if b.StartTime == "" || b.EndTime == "" {
		return time.Time{}, time.Time{}, false
	}
	start, err1 := ParseClock(b.StartTime)
	end, err2 := ParseClock(b.EndTime)
	if err1 != nil || err2 != nil || end <= start {
		return time.Time{}, time.Time{}, false
	}
	return At(d.day, start), At(d.day, end), true
}

func (d *Detector) BlockConflict(start, end time.Time, blocks []appointment.Block) bool {
	for _, b := range blocks {
		bStart, bEnd, ok := d.BlockWindow(b)
		if !ok {
			continue
		}
		if Overlaps(start, end, bStart, bEnd) {
			return true
		}
	}
	return false
}

// BusyConflict tests against external busy intervals after widening
// zero-length ones.
func BusyConflict(start, end time.Time, busy []calendar.BusyInterval) bool {
	for _, b := range busy {
		n := b.Normalized()
		if Overlaps(start, end, n.Start, n.End) {
			return true
		}
	}
	return false
}

// Conflicts combines the three sources.
func (d *Detector) Conflicts(start, end time.Time, appts []appointment.Appointment, blocks []appointment.Block, busy []calendar.BusyInterval) bool {
	return d.AppointmentConflict(start, end, appts) ||
		d.BlockConflict(start, end, blocks) ||
		BusyConflict(start, end, busy)
}
