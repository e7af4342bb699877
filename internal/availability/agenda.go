package availability

import (
	"sort"
	"time"

	"github.com/hackgods/clinic-booking/internal/appointment"
	"github.com/hackgods/clinic-booking/internal/calendar"
)

type ItemKind string

const (
	ItemAppointment ItemKind = "appointment"
	ItemBlock       ItemKind = "block"
	ItemEvent       ItemKind = "external_event"
)

// AgendaItem is one row of the admin day view.
type AgendaItem struct {
	Kind   ItemKind  `json:"kind"`
	ID     string    `json:"id"`
	Title  string    `json:"title"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	AllDay bool      `json:"all_day"`
	Status string    `json:"status,omitempty"`

	Appointment *appointment.Appointment `json:"appointment,omitempty"`
	Block       *appointment.Block       `json:"block,omitempty"`
}

// DayAgenda merges appointments, blocks and external events of the
// detector's date into one list ordered by start. Cancelled appointments are
// kept so the admin sees them; cancelled external events are not.
func (d *Detector) DayAgenda(appts []appointment.Appointment, blocks []appointment.Block, events []calendar.Event) []AgendaItem {
	items := []AgendaItem{}

	for i := range appts {
		a := appts[i]
		start, end, ok := d.AppointmentWindow(a)
		if !ok {
			continue
		}
		items = append(items, AgendaItem{
			Kind:        ItemAppointment,
			ID:          a.ID,
			Title:       a.PatientName,
			Start:       start,
			End:         end,
			Status:      string(a.Status),
			Appointment: &a,
		})
	}

	for i := range blocks {
		b := blocks[i]
		if !b.Covers(d.date) {
			continue
		}
		item := AgendaItem{Kind: ItemBlock, ID: b.ID, Title: b.Reason, Block: &b}
		if start, end, ok := d.BlockWindow(b); ok {
			item.Start, item.End = start, end
		} else {
			item.Start, item.End = d.day, d.day
		}
		item.AllDay = b.IsAllDay
		items = append(items, item)
	}

	next := d.day.AddDate(0, 0, 1)
	for _, ev := range events {
		if ev.Status == "cancelled" {
			continue
		}
		if ev.AllDay {
			if ev.Date != d.date {
				continue
			}
		} else if !Overlaps(d.day, next, ev.Start, calendar.BusyInterval{Start: ev.Start, End: ev.End}.Normalized().End) {
			continue
		}
		items = append(items, AgendaItem{
			Kind:   ItemEvent,
			ID:     ev.ID,
			Title:  ev.Summary,
			Start:  ev.Start,
			End:    ev.End,
			AllDay: ev.AllDay,
			Status: ev.Status,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].AllDay != items[j].AllDay {
			return items[i].AllDay
		}
		return items[i].Start.Before(items[j].Start)
	})
	return items
}

// WeekDates returns the Sunday-to-Saturday week containing date.
func WeekDates(date string) ([]string, error) {
	day, err := ParseDate(date, time.UTC)
	if err != nil {
		return nil, err
	}
	first := day.AddDate(0, 0, -int(day.Weekday()))

	out := make([]string, 7)
	for i := range out {
		out[i] = first.AddDate(0, 0, i).Format(DateLayout)
	}
	return out, nil
}
