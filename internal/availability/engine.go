package availability

import (
	"sort"
	"time"

	"github.com/hackgods/clinic-booking/internal/appointment"
	"github.com/hackgods/clinic-booking/internal/calendar"
	"github.com/hackgods/clinic-booking/internal/clinic"
)

// Session is the length of a booking and the idle gap kept after it, both
// in minutes.
type Session struct {
	Duration int
	Buffer   int
}

// Stride is the distance between two candidate starts.
func (s Session) Stride() int {
	buf := s.Buffer
	if buf < 0 {
		buf = 0
	}
	return s.Duration + buf
}

type Input struct {
	Date         string // YYYY-MM-DD
	Schedule     []clinic.WorkingDay
	Session      Session
	Appointments []appointment.Appointment
	Blocks       []appointment.Block
	Busy         []calendar.BusyInterval

	// ServiceDurations sizes appointments that carry no EndTime. Unknown
	// services fall back to Session.Duration.
	ServiceDurations map[string]int

	// Now filters out starts in the past. Zero disables the filter.
	Now      time.Time
	Location *time.Location
}

// ComputeSlots returns the bookable start times (HH:MM) for in.Date, sorted
// ascending. The result is never nil.
func ComputeSlots(in Input) []string {
	out := []string{}
	if in.Session.Duration <= 0 {
		return out
	}

	det, err := NewDetector(in.Date, in.Location, in.ServiceDurations, in.Session.Duration)
	if err != nil {
		return out
	}

	wd, ok := dayOf(in.Schedule, int(det.Day().Weekday()))
	if !ok || !wd.IsOpen {
		return out
	}

	stride := in.Session.Stride()
	accepted := make(map[int]struct{})

	for _, p := range wd.Periods {
		if !p.IsEnabled() {
			continue
		}
		pStart, err1 := ParseClock(p.Start)
		pEnd, err2 := ParseClock(p.End)
		if err1 != nil || err2 != nil {
			continue
		}

		for m := pStart; m < pEnd; m += stride {
			if m+in.Session.Duration > pEnd {
				break
			}
			start := At(det.Day(), m)
			end := At(det.Day(), m+in.Session.Duration)

			if !in.Now.IsZero() && start.Before(in.Now) {
				continue
			}
			if det.Conflicts(start, end, in.Appointments, in.Blocks, in.Busy) {
				continue
			}
			accepted[m] = struct{}{}
		}
	}

	minutes := make([]int, 0, len(accepted))
	for m := range accepted {
		minutes = append(minutes, m)
	}
	sort.Ints(minutes)

	for _, m := range minutes {
		out = append(out, FormatClock(m))
	}
	return out
}

func dayOf(schedule []clinic.WorkingDay, weekday int) (clinic.WorkingDay, bool) {
	for _, wd := range schedule {
		if wd.Day == weekday {
			return wd, true
		}
	}
	return clinic.WorkingDay{}, false
}

// Contains reports whether slot is in slots.
func Contains(slots []string, slot string) bool {
	for _, s := range slots {
		if s == slot {
			return true
		}
	}
	return false
}
