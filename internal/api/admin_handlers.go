package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-booking/internal/appointment"
	"github.com/hackgods/clinic-booking/internal/auth"
	"github.com/hackgods/clinic-booking/internal/availability"
	"github.com/hackgods/clinic-booking/internal/calendar"
	"github.com/hackgods/clinic-booking/internal/clinic"
	"github.com/hackgods/clinic-booking/internal/reminder"
)

func staffLoginHandler(a *auth.Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StaffLoginRequest
		if !decodeValid(w, r, &req) {
			return
		}

		sess, err := a.StaffLogin(r.Context(), req.Email, req.Password)
		if err != nil {
			handleLoginError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sess)
	}
}

func dashboardHandler(m *clinic.Manager, appts *appointment.Service, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, clinic.LoadSnapshot(r.Context(), m, appts, logger))
	}
}

type calendarDeps struct {
	clinic       *clinic.Manager
	appointments *appointment.Service
	gateway      calendar.Gateway
	loc          *time.Location
	logger       zerolog.Logger
}

// adminCalendarHandler renders the merged agenda for a day or the
// Sunday-to-Saturday week around date.
func adminCalendarHandler(d calendarDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		date := r.URL.Query().Get("date")
		view := r.URL.Query().Get("view")
		if view == "" {
			view = "day"
		}
		if view != "day" && view != "week" {
			writeError(w, http.StatusBadRequest, "invalid_view", "view must be day or week")
			return
		}

		dates := []string{date}
		if view == "week" {
			week, err := availability.WeekDates(date)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
				return
			}
			dates = week
		}
		first, err := availability.ParseDate(dates[0], d.loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		settings, err := d.clinic.Settings(ctx)
		if err != nil {
			handleClinicError(w, err)
			return
		}
		services, err := d.clinic.Services(ctx)
		if err != nil {
			handleClinicError(w, err)
			return
		}
		appts, err := d.appointments.ListInRange(ctx, dates[0], dates[len(dates)-1])
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		blocks, err := d.appointments.ListBlocks(ctx)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		var events []calendar.Event
		integ := settings.Integrations
		if d.gateway != nil && integ.CalendarActive() {
			events, err = d.gateway.ListEvents(ctx, first, first.AddDate(0, 0, len(dates)), integ.CalendarAccessToken)
			if err != nil {
				d.logger.Warn().Err(err).Str("date", date).Msg("calendar events unavailable for agenda")
				events = nil
			}
		}

		byDate := make(map[string][]appointment.Appointment)
		for _, a := range appts {
			byDate[a.Date] = append(byDate[a.Date], a)
		}
		durations := clinic.ServiceDurations(services)

		resp := CalendarResponse{View: view, Days: make([]CalendarDay, 0, len(dates))}
		for _, day := range dates {
			det, err := availability.NewDetector(day, d.loc, durations, settings.DefaultSessionDuration)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
				return
			}
			resp.Days = append(resp.Days, CalendarDay{Date: day, Items: det.DayAgenda(byDate[day], blocks, events)})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func listAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var (
			appts []appointment.Appointment
			err   error
		)
		switch {
		case q.Get("date") != "":
			appts, err = svc.ListByDate(r.Context(), q.Get("date"))
		case q.Get("from") != "" && q.Get("to") != "":
			appts, err = svc.ListInRange(r.Context(), q.Get("from"), q.Get("to"))
		default:
			appts, err = svc.List(r.Context())
		}
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		if appts == nil {
			appts = []appointment.Appointment{}
		}
		writeJSON(w, http.StatusOK, appts)
	}
}

func getAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appt, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func cancelAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appt, err := svc.Cancel(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func rescheduleAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RescheduleRequest
		if !decodeValid(w, r, &req) {
			return
		}

		appt, err := svc.Reschedule(r.Context(), chi.URLParam(r, "id"), req.Date, req.StartTime)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func updateNotesHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req NotesRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		appt, err := svc.UpdateNotes(r.Context(), chi.URLParam(r, "id"), req.Notes, req.PatientFeedback)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func paymentStatusHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PaymentStatusRequest
		if !decodeValid(w, r, &req) {
			return
		}

		appt, err := svc.SetPaymentStatus(r.Context(), chi.URLParam(r, "id"), req.PaymentStatus)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func deleteAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			handleAppointmentError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func createSeriesHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SeriesRequest
		if !decodeValid(w, r, &req) {
			return
		}

		created, err := svc.CreateSeries(r.Context(), req.Appointment, req.Recurrence, req.Count)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func listBlocksHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		blocks, err := svc.ListBlocks(r.Context())
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		if blocks == nil {
			blocks = []appointment.Block{}
		}
		writeJSON(w, http.StatusOK, blocks)
	}
}

func createBlockHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BlockRequest
		if !decodeValid(w, r, &req) {
			return
		}

		block, err := svc.AddBlock(r.Context(), appointment.Block{
			StartDate: req.StartDate,
			EndDate:   req.EndDate,
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
			IsAllDay:  req.IsAllDay,
			Reason:    req.Reason,
		})
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, block)
	}
}

func deleteBlockHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.RemoveBlock(r.Context(), chi.URLParam(r, "id")); err != nil {
			handleAppointmentError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func updatePatientHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PatientUpdateRequest
		if !decodeValid(w, r, &req) {
			return
		}

		n, err := svc.UpdatePatientProfile(r.Context(), req.OldEmail, req.Profile)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, CountResponse{Affected: n})
	}
}

func erasePatientHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email := strings.TrimSpace(r.URL.Query().Get("email"))
		if email == "" {
			writeError(w, http.StatusBadRequest, "missing_email", "email query parameter is required")
			return
		}

		n, err := svc.ErasePatient(r.Context(), email)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, CountResponse{Affected: n})
	}
}

func getSettingsHandler(m *clinic.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		settings, err := m.Settings(r.Context())
		if err != nil {
			handleClinicError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	}
}

func saveSettingsHandler(m *clinic.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req clinic.Settings
		if !decodeJSON(w, r, &req) {
			return
		}

		saved, err := m.SaveSettings(r.Context(), req)
		if err != nil {
			handleClinicError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}

func saveServicesHandler(m *clinic.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req []clinic.Service
		if !decodeJSON(w, r, &req) {
			return
		}

		saved, err := m.SaveServices(r.Context(), req)
		if err != nil {
			handleClinicError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}

func listStaffHandler(m *clinic.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		staff, err := m.Staff(r.Context())
		if err != nil {
			handleClinicError(w, err)
			return
		}
		if staff == nil {
			staff = []clinic.Staff{}
		}
		writeJSON(w, http.StatusOK, staff)
	}
}

func addStaffHandler(m *clinic.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StaffRequest
		if !decodeValid(w, r, &req) {
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		created, err := m.AddStaff(r.Context(), clinic.Staff{
			Name:         req.Name,
			Email:        strings.ToLower(req.Email),
			PasswordHash: hash,
			Role:         req.Role,
		})
		if err != nil {
			handleClinicError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func removeStaffHandler(m *clinic.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if claims, ok := ClaimsFromContext(r.Context()); ok && claims.Subject == id {
			writeError(w, http.StatusConflict, "self_removal", "staff cannot remove their own account")
			return
		}

		if err := m.RemoveStaff(r.Context(), id); err != nil {
			handleClinicError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func dueRemindersHandler(d *reminder.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		due, _, err := d.Pending(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		if due == nil {
			due = []appointment.Appointment{}
		}
		writeJSON(w, http.StatusOK, due)
	}
}

func runRemindersHandler(d *reminder.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := d.Run(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
