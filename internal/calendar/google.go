package calendar

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/hackgods/clinic-booking/internal/appointment"
	"github.com/hackgods/clinic-booking/internal/clinic"
)

type GoogleConfig struct {
	Endpoint   string         // empty uses the public API
	HTTPClient *http.Client   // overrides auth when set, tests only
	CalendarID string         // defaults to "primary"
	Location   *time.Location // zone appointments are expressed in
}

// Google talks to Google Calendar v3 with a per-call OAuth access token.
type Google struct {
	cfg    GoogleConfig
	logger zerolog.Logger
}

func NewGoogle(cfg GoogleConfig, logger zerolog.Logger) *Google {
	if cfg.CalendarID == "" {
		cfg.CalendarID = "primary"
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Google{cfg: cfg, logger: logger}
}

func (g *Google) service(ctx context.Context, token string) (*gcal.Service, error) {
	opts := []option.ClientOption{}
	if g.cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(g.cfg.HTTPClient))
	} else {
		opts = append(opts, option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})))
	}
	if g.cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(g.cfg.Endpoint))
	}

	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("calendar client: %w", err)
	}
	return svc, nil
}

// ListEvents returns single (expanded) events between from and to. Entries
// whose times cannot be parsed are skipped with a warning.
func (g *Google) ListEvents(ctx context.Context, from, to time.Time, token string) ([]Event, error) {
	svc, err := g.service(ctx, token)
	if err != nil {
		return nil, err
	}

	var out []Event
	call := svc.Events.List(g.cfg.CalendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime")

	err = call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			ev, ok := g.convert(item)
			if !ok {
				g.logger.Warn().Str("event_id", item.Id).Msg("skipping calendar event with malformed times")
				continue
			}
			out = append(out, ev)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}

	return out, nil
}

func (g *Google) convert(item *gcal.Event) (Event, bool) {
	ev := Event{
		ID:           item.Id,
		Summary:      item.Summary,
		Description:  item.Description,
		Status:       item.Status,
		Transparency: item.Transparency,
	}
	if item.Start == nil {
		return ev, false
	}

	if item.Start.DateTime == "" {
		if item.Start.Date == "" {
			return ev, false
		}
		day, err := time.ParseInLocation("2006-01-02", item.Start.Date, g.cfg.Location)
		if err != nil {
			return ev, false
		}
		ev.AllDay = true
		ev.Date = item.Start.Date
		ev.Start = day
		ev.End = day.AddDate(0, 0, 1)
		return ev, true
	}

	start, err := time.Parse(time.RFC3339, item.Start.DateTime)
	if err != nil {
		return ev, false
	}
	ev.Start = start
	ev.Date = start.In(g.cfg.Location).Format("2006-01-02")
	ev.End = start
	if item.End != nil && item.End.DateTime != "" {
		end, err := time.Parse(time.RFC3339, item.End.DateTime)
		if err != nil {
			return ev, false
		}
		ev.End = end
	}
	return ev, true
}

// CreateEvent mirrors a booked appointment and returns the new event id.
func (g *Google) CreateEvent(ctx context.Context, appt appointment.Appointment, svc clinic.Service, token string) (string, error) {
	start, err := time.ParseInLocation("2006-01-02 15:04", appt.Date+" "+appt.StartTime, g.cfg.Location)
	if err != nil {
		return "", fmt.Errorf("parse appointment start: %w", err)
	}
	end := start.Add(time.Duration(svc.Duration) * time.Minute)

	reason := appt.ConsultationReason
	if reason == "" {
		reason = "not provided"
	}

	event := &gcal.Event{
		Summary:     fmt.Sprintf("Session: %s (%s)", appt.PatientName, appt.Format),
		Description: fmt.Sprintf("Reason: %s\nPhone: %s\nService: %s", reason, appt.PatientPhone, svc.Name),
		Start:       &gcal.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: g.cfg.Location.String()},
		End:         &gcal.EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: g.cfg.Location.String()},
		Reminders:   &gcal.EventReminders{UseDefault: true},
	}

	client, err := g.service(ctx, token)
	if err != nil {
		return "", err
	}

	created, err := client.Events.Insert(g.cfg.CalendarID, event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("insert calendar event: %w", err)
	}
	return created.Id, nil
}
