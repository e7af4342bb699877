package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hackgods/clinic-booking/internal/appointment"
	"github.com/hackgods/clinic-booking/internal/auth"
	"github.com/hackgods/clinic-booking/internal/booking"
	"github.com/hackgods/clinic-booking/internal/clinic"
	"github.com/hackgods/clinic-booking/internal/identity"
	"github.com/hackgods/clinic-booking/internal/metrics"
	"github.com/hackgods/clinic-booking/internal/notify"
	"github.com/hackgods/clinic-booking/internal/reminder"
	"github.com/hackgods/clinic-booking/pkg/logging"
)

const bookingDate = "2030-01-07" // a Monday

// sundayNoon is the day before bookingDate.
func sundayNoon() time.Time { return time.Date(2030, 1, 6, 12, 0, 0, 0, time.UTC) }

type testEnv struct {
	t       *testing.T
	handler http.Handler
	appts   *memAppointments
	clinic  *memClinic
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	hash := func(pw string) string {
		h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
		require.NoError(t, err)
		return string(h)
	}

	appts := newMemAppointments()
	cl := &memClinic{
		services: []clinic.Service{{ID: "s2", Name: "Session", Price: 150, Duration: 50, Type: clinic.ServiceRegular}},
		staff: []clinic.Staff{
			{ID: "st-1", Name: "Ana", Email: "analyst@clinic.com", PasswordHash: hash("analyst-pw"), Role: clinic.RoleAnalyst},
			{ID: "st-2", Name: "Bia", Email: "desk@clinic.com", PasswordHash: hash("desk-pw"), Role: clinic.RoleSecretary},
		},
		settings: &clinic.Settings{
			DefaultSessionDuration: 50,
			BufferMinutes:          10,
			WorkingDays: []clinic.WorkingDay{
				{Day: 1, IsOpen: true, Periods: []clinic.WorkingPeriod{{Start: "09:00", End: "12:00"}}},
			},
			Integrations: clinic.Integrations{RemindersEnabled: true, ReminderChannel: clinic.ReminderEmail, ReminderHours: 24},
			Content:      clinic.Content{HeroTitle: "Listening clinic"},
		},
	}

	logger := logging.Nop()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	ids := identity.NewSequence("id")

	apptSvc := appointment.NewService(appts, ids, logger)
	manager := clinic.NewManager(cl, ids, logger)
	fin := booking.NewFinalizer(apptSvc, nil, nil, ids, booking.FinalizerConfig{}, m, logger).WithClock(sundayNoon)
	bookingSvc := booking.NewService(manager, apptSvc, nil, nil, fin, ids, time.UTC, m, logger).WithClock(sundayNoon)
	authn := auth.NewAuthenticator(manager, apptSvc, auth.NewTokens("test-secret", time.Hour), logger)
	reminders := reminder.NewDispatcher(apptSvc, manager, notify.NewLogEmailSender(logger), notify.NewLogMessageSender(logger), time.UTC, m, logger).
		WithClock(sundayNoon)

	handler := NewRouter(RouterConfig{
		Appointments: apptSvc,
		Clinic:       manager,
		Booking:      bookingSvc,
		Auth:         authn,
		Reminders:    reminders,
		Location:     time.UTC,
		Postgres:     stubPinger{},
		Metrics:      m,
		Gatherer:     reg,
		Logger:       logger,
		Env:          "test",
		Version:      "v-test",
		CORSOrigins:  []string{"*"},
		RateLimitRPS: 1000,
	})

	return &testEnv{t: t, handler: handler, appts: appts, clinic: cl}
}

func (e *testEnv) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(e.t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (e *testEnv) login(path, email, secret string) string {
	e.t.Helper()
	body := map[string]string{"email": email, "password": secret}
	if strings.HasPrefix(path, "/patient") {
		body = map[string]string{"email": email, "phone": secret}
	}
	rec := e.do(http.MethodPost, path, body, "")
	require.Equal(e.t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[auth.Session](e.t, rec).Token
}

func bookingBody(start string) map[string]any {
	return map[string]any{
		"service_id": "s2",
		"format":     "online",
		"date":       bookingDate,
		"start_time": start,
		"patient": map[string]string{
			"name":  "Maria Silva",
			"email": "maria@example.com",
			"phone": "(11) 99999-1234",
		},
		"consent":        true,
		"payment_method": "pix",
		"outcome":        "manual",
	}
}

func (e *testEnv) book(start string) appointment.Appointment {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/bookings", bookingBody(start), "")
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[appointment.Appointment](e.t, rec)
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/health/live", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "v-test", decode[LivenessResponse](t, rec).Version)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = env.do(http.MethodGet, "/health/ready", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	ready := decode[ReadinessResponse](t, rec)
	assert.Equal(t, "ok", ready.Dependencies["postgres"])
	assert.Equal(t, "disabled", ready.Dependencies["redis"])
}

func TestReadiness(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	serve := func(h *HealthHandler) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		return rec
	}

	rec := serve(NewHealthHandler(stubPinger{}, client, "test", ""))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[ReadinessResponse](t, rec).Status)

	rec = serve(NewHealthHandler(stubPinger{err: errors.New("refused")}, client, "test", ""))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "down", decode[ReadinessResponse](t, rec).Dependencies["postgres"])

	mr.Close()
	rec = serve(NewHealthHandler(stubPinger{}, client, "test", ""))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "degraded", decode[ReadinessResponse](t, rec).Status)
}

func TestPublicCatalog(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/services", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	services := decode[[]clinic.Service](t, rec)
	require.Len(t, services, 1)
	assert.Equal(t, "s2", services[0].ID)

	rec = env.do(http.MethodGet, "/content", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Listening clinic", decode[clinic.Content](t, rec).HeroTitle)
	assert.NotContains(t, rec.Body.String(), "access_token")
}

func TestAvailability(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/availability?date="+bookingDate+"&service_id=s2", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"09:00", "10:00", "11:00"}, decode[AvailabilityResponse](t, rec).Slots)

	rec = env.do(http.MethodGet, "/availability?date=2030-01-08", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{}, decode[AvailabilityResponse](t, rec).Slots, "closed day")

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/availability", nil, "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/availability?date=07/01/2030", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/availability?date="+bookingDate+"&service_id=nope", nil, "").Code)
}

func TestBookingFlow(t *testing.T) {
	env := newTestEnv(t)

	appt := env.book("10:00")
	assert.Equal(t, appointment.StatusConfirmed, appt.Status)
	assert.Equal(t, appointment.PaymentPending, appt.PaymentStatus)
	assert.Equal(t, "10:50", appt.EndTime)

	rec := env.do(http.MethodPost, "/bookings", bookingBody("10:00"), "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "slot_unavailable", decode[ErrorResponse](t, rec).Error)

	rec = env.do(http.MethodGet, "/availability?date="+bookingDate+"&service_id=s2", nil, "")
	assert.Equal(t, []string{"09:00", "11:00"}, decode[AvailabilityResponse](t, rec).Slots)
}

func TestBookingErrors(t *testing.T) {
	env := newTestEnv(t)

	noConsent := bookingBody("11:00")
	noConsent["consent"] = false
	rec := env.do(http.MethodPost, "/bookings", noConsent, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "consent_required", decode[ErrorResponse](t, rec).Error)

	noService := bookingBody("11:00")
	noService["service_id"] = "missing"
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPost, "/bookings", noService, "").Code)

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/bookings", "{not json", "").Code)

	rec = env.do(http.MethodPost, "/bookings/checkout", bookingBody("11:00"), "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "payment_not_configured", decode[ErrorResponse](t, rec).Error)

	assert.Equal(t, 0, len(env.appts.appts))
}

func TestPatientPortal(t *testing.T) {
	env := newTestEnv(t)
	own := env.book("10:00")
	env.appts.appts["other"] = appointment.Appointment{
		ID: "other", PatientEmail: "joao@example.com", Date: bookingDate, StartTime: "09:00", Status: appointment.StatusConfirmed,
	}

	rec := env.do(http.MethodPost, "/patient/login", map[string]string{"email": "maria@example.com", "phone": "9999"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := env.login("/patient/login", "Maria@Example.com", "1234")

	rec = env.do(http.MethodGet, "/patient/appointments", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	mine := decode[[]appointment.Appointment](t, rec)
	require.Len(t, mine, 1)
	assert.Equal(t, own.ID, mine[0].ID)

	rec = env.do(http.MethodGet, "/patient/appointments/last", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, own.ID, decode[appointment.Appointment](t, rec).ID)

	assert.Equal(t, http.StatusForbidden, env.do(http.MethodPost, "/patient/appointments/other/cancel", nil, token).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPost, "/patient/appointments/ghost/cancel", nil, token).Code)

	rec = env.do(http.MethodPost, "/patient/appointments/"+own.ID+"/cancel", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, appointment.StatusCancelled, decode[appointment.Appointment](t, rec).Status)

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/patient/appointments", nil, "").Code)
	staffToken := env.login("/admin/login", "analyst@clinic.com", "analyst-pw")
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, "/patient/appointments", nil, staffToken).Code)
}

func TestAdminAuth(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/admin/dashboard", nil, "").Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/admin/dashboard", nil, "garbage").Code)

	rec := env.do(http.MethodPost, "/admin/login", map[string]string{"email": "analyst@clinic.com", "password": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", decode[ErrorResponse](t, rec).Error)

	rec = env.do(http.MethodPost, "/admin/login", map[string]string{"email": "not-an-email", "password": "x"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.book("09:00")
	patient := env.login("/patient/login", "maria@example.com", "1234")
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, "/admin/dashboard", nil, patient).Code)

	token := env.login("/admin/login", "desk@clinic.com", "desk-pw")
	rec = env.do(http.MethodGet, "/admin/dashboard", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[clinic.Snapshot](t, rec)
	assert.Len(t, snap.Appointments, 1)
	assert.Len(t, snap.Staff, 2)
	assert.Empty(t, snap.Failed)
	assert.NotContains(t, rec.Body.String(), "$2a$", "password hashes stay private")
}

func TestAdminConfigurationRoles(t *testing.T) {
	env := newTestEnv(t)
	desk := env.login("/admin/login", "desk@clinic.com", "desk-pw")
	analyst := env.login("/admin/login", "analyst@clinic.com", "analyst-pw")

	rec := env.do(http.MethodGet, "/admin/settings", nil, desk)
	require.Equal(t, http.StatusOK, rec.Code)
	settings := decode[clinic.Settings](t, rec)

	assert.Equal(t, http.StatusForbidden, env.do(http.MethodPut, "/admin/settings", settings, desk).Code)

	bad := settings
	bad.WorkingDays = []clinic.WorkingDay{{Day: 9, IsOpen: true}}
	rec = env.do(http.MethodPut, "/admin/settings", bad, analyst)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_settings", decode[ErrorResponse](t, rec).Error)

	settings.BufferMinutes = 0
	rec = env.do(http.MethodPut, "/admin/settings", settings, analyst)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/availability?date="+bookingDate+"&service_id=s2", nil, "")
	assert.Equal(t, []string{"09:00", "09:50", "10:40"}, decode[AvailabilityResponse](t, rec).Slots)

	services := []clinic.Service{{ID: "s9", Name: "Long", Price: 300, Duration: 90, Type: clinic.ServicePlan}}
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodPut, "/admin/services", services, desk).Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodPut, "/admin/services", services, analyst).Code)
	rec = env.do(http.MethodGet, "/services", nil, "")
	catalog := decode[[]clinic.Service](t, rec)
	require.Len(t, catalog, 1, "services left out of the save are removed")
	assert.Equal(t, "s9", catalog[0].ID)
	services[0].Duration = 0
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPut, "/admin/services", services, analyst).Code)

	newStaff := map[string]string{"name": "Caio", "email": "Caio@Clinic.com", "password": "longenough", "role": "secretary"}
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodPost, "/admin/staff", newStaff, desk).Code)
	rec = env.do(http.MethodPost, "/admin/staff", newStaff, analyst)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[clinic.Staff](t, rec)
	assert.Equal(t, "caio@clinic.com", created.Email)
	env.login("/admin/login", "caio@clinic.com", "longenough")

	assert.Equal(t, http.StatusConflict, env.do(http.MethodDelete, "/admin/staff/st-1", nil, analyst).Code)
	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, "/admin/staff/"+created.ID, nil, analyst).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodDelete, "/admin/staff/"+created.ID, nil, analyst).Code)
}

func TestAdminAppointments(t *testing.T) {
	env := newTestEnv(t)
	appt := env.book("10:00")
	token := env.login("/admin/login", "desk@clinic.com", "desk-pw")

	rec := env.do(http.MethodGet, "/admin/appointments?date="+bookingDate, nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]appointment.Appointment](t, rec), 1)

	rec = env.do(http.MethodPut, "/admin/appointments/"+appt.ID+"/payment", map[string]string{"payment_status": "paid"}, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, appointment.PaymentPaid, decode[appointment.Appointment](t, rec).PaymentStatus)

	rec = env.do(http.MethodPut, "/admin/appointments/"+appt.ID+"/payment", map[string]string{"payment_status": "refunded"}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPut, "/admin/appointments/"+appt.ID+"/notes", map[string]string{"notes": "anxious about work"}, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anxious about work", decode[appointment.Appointment](t, rec).Notes)

	rec = env.do(http.MethodPost, "/admin/appointments/"+appt.ID+"/reschedule", map[string]string{"date": "2030-01-14", "start_time": "11:00"}, token)
	require.Equal(t, http.StatusOK, rec.Code)
	moved := decode[appointment.Appointment](t, rec)
	assert.Equal(t, "2030-01-14", moved.Date)
	assert.Empty(t, moved.EndTime)

	rec = env.do(http.MethodPost, "/admin/appointments/"+appt.ID+"/reschedule", map[string]string{"date": "14/01/2030", "start_time": "11:00"}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/admin/appointments/"+appt.ID+"/cancel", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, appointment.StatusCancelled, decode[appointment.Appointment](t, rec).Status)

	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, "/admin/appointments/"+appt.ID, nil, token).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/admin/appointments/"+appt.ID, nil, token).Code)
}

func TestAdminSeries(t *testing.T) {
	env := newTestEnv(t)
	token := env.login("/admin/login", "analyst@clinic.com", "analyst-pw")

	body := map[string]any{
		"appointment": map[string]string{
			"service_id": "s2", "patient_name": "Lia", "patient_email": "lia@example.com",
			"patient_phone": "11911112222", "date": "2030-02-04", "start_time": "09:00", "format": "online",
		},
		"recurrence": "biweekly",
		"count":      3,
	}
	rec := env.do(http.MethodPost, "/admin/appointments/series", body, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	series := decode[[]appointment.Appointment](t, rec)
	require.Len(t, series, 3)
	assert.Equal(t, []string{"2030-02-04", "2030-02-18", "2030-03-04"}, []string{series[0].Date, series[1].Date, series[2].Date})
	assert.NotEmpty(t, series[0].RecurrenceID)
	assert.Equal(t, series[0].RecurrenceID, series[2].RecurrenceID)

	body["recurrence"] = "monthly"
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/admin/appointments/series", body, token).Code)

	body["recurrence"] = "weekly"
	body["count"] = 53
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/admin/appointments/series", body, token).Code)
}

func TestAdminBlocksAndCalendar(t *testing.T) {
	env := newTestEnv(t)
	env.book("10:00")
	token := env.login("/admin/login", "desk@clinic.com", "desk-pw")

	rec := env.do(http.MethodPost, "/admin/blocks", map[string]any{"start_date": bookingDate, "start_time": "08:00", "end_time": "09:30", "reason": "dentist"}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	block := decode[appointment.Block](t, rec)

	rec = env.do(http.MethodGet, "/availability?date="+bookingDate+"&service_id=s2", nil, "")
	assert.Equal(t, []string{"11:00"}, decode[AvailabilityResponse](t, rec).Slots)

	rec = env.do(http.MethodPost, "/admin/blocks", map[string]any{"start_date": bookingDate, "start_time": "10:00", "end_time": "09:00"}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodGet, "/admin/calendar?date="+bookingDate, nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	day := decode[CalendarResponse](t, rec)
	require.Len(t, day.Days, 1)
	require.Len(t, day.Days[0].Items, 2)
	assert.Equal(t, "block", string(day.Days[0].Items[0].Kind))
	assert.Equal(t, "appointment", string(day.Days[0].Items[1].Kind))

	rec = env.do(http.MethodGet, "/admin/calendar?date="+bookingDate+"&view=week", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	week := decode[CalendarResponse](t, rec)
	require.Len(t, week.Days, 7)
	assert.Equal(t, "2030-01-06", week.Days[0].Date)
	assert.Len(t, week.Days[1].Items, 2)
	assert.Empty(t, week.Days[2].Items)

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/admin/calendar?date=bad", nil, token).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/admin/calendar?date="+bookingDate+"&view=month", nil, token).Code)

	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, "/admin/blocks/"+block.ID, nil, token).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodDelete, "/admin/blocks/"+block.ID, nil, token).Code)
}

func TestAdminPatientsAndReminders(t *testing.T) {
	env := newTestEnv(t)
	appt := env.book("10:00")
	token := env.login("/admin/login", "desk@clinic.com", "desk-pw")

	rec := env.do(http.MethodGet, "/admin/reminders/due", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	due := decode[[]appointment.Appointment](t, rec)
	require.Len(t, due, 1)
	assert.Equal(t, appt.ID, due[0].ID)

	rec = env.do(http.MethodPost, "/admin/reminders/run", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, reminder.Result{Due: 1, Sent: 1}, decode[reminder.Result](t, rec))
	assert.True(t, env.appts.appts[appt.ID].ReminderSent)

	rec = env.do(http.MethodGet, "/admin/reminders/due", nil, token)
	assert.Empty(t, decode[[]appointment.Appointment](t, rec))

	update := map[string]any{
		"old_email": "maria@example.com",
		"profile":   map[string]string{"name": "Maria S.", "email": "maria.s@example.com", "phone": "11999991234"},
	}
	rec = env.do(http.MethodPut, "/admin/patients", update, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decode[CountResponse](t, rec).Affected)

	update["profile"] = map[string]string{"name": "Maria S."}
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPut, "/admin/patients", update, token).Code)

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodDelete, "/admin/patients", nil, token).Code)
	rec = env.do(http.MethodDelete, "/admin/patients?email=maria.s@example.com", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decode[CountResponse](t, rec).Affected)
	assert.Empty(t, env.appts.appts)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodGet, "/services", nil, "")

	rec := env.do(http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `clinic_http_requests_total{method="GET",route="/services"`)
}
