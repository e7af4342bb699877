package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-booking/internal/appointment"
	"github.com/hackgods/clinic-booking/internal/calendar"
	"github.com/hackgods/clinic-booking/internal/clinic"
	"github.com/hackgods/clinic-booking/internal/identity"
	"github.com/hackgods/clinic-booking/internal/payment"
	"github.com/hackgods/clinic-booking/pkg/logging"
)

type serviceFixture struct {
	svc      *Service
	store    *fakeStore
	gw       *fakeCalendar
	payments *fakePayments
	catalog  *fakeCatalog
}

func newServiceFixture(t *testing.T, settings clinic.Settings) serviceFixture {
	t.Helper()
	fx := serviceFixture{
		store:    &fakeStore{},
		gw:       &fakeCalendar{},
		payments: &fakePayments{url: "https://mp.example/checkout/1"},
		catalog:  &fakeCatalog{settings: settings, services: []clinic.Service{{ID: "s1", Name: "Session", Price: 200, Duration: 50}}},
	}
	ids := identity.NewSequence("appt")
	fin := NewFinalizer(fx.store, nil, fx.gw, ids, FinalizerConfig{MirrorBackoff: time.Millisecond}, nil, logging.Nop()).
		WithDispatch(inline)

	// Sunday before the test Monday.
	now := func() time.Time { return time.Date(2023, 12, 31, 12, 0, 0, 0, time.UTC) }
	fin.WithClock(now)
	fx.svc = NewService(fx.catalog, fx.store, fx.gw, fx.payments, fin, ids, time.UTC, nil, logging.Nop()).WithClock(now)
	return fx
}

func request() Request {
	return Request{
		ServiceID:     "s1",
		Format:        appointment.FormatInPerson,
		Date:          "2024-01-01",
		StartTime:     "10:00",
		Patient:       maria,
		Consent:       true,
		PaymentMethod: PaymentPix,
		Outcome:       OutcomeManual,
	}
}

func TestService_Slots(t *testing.T) {
	fx := newServiceFixture(t, mondayMorning())

	slots, err := fx.svc.Slots(context.Background(), "2024-01-01", "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "10:00", "11:00"}, slots)

	fx.store.appts = []appointment.Appointment{
		{ID: "a1", ServiceID: "s1", Date: "2024-01-01", StartTime: "10:00", Status: appointment.StatusConfirmed},
	}
	slots, err = fx.svc.Slots(context.Background(), "2024-01-01", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "11:00"}, slots)
}

func TestService_SlotsUseCalendarWhenConnected(t *testing.T) {
	fx := newServiceFixture(t, connected())
	fx.gw.events = []calendar.Event{
		{ID: "e1", Status: "confirmed", Start: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), End: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)},
		{ID: "e2", Status: "confirmed", Transparency: "transparent", Start: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), End: time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC)},
	}

	slots, err := fx.svc.Slots(context.Background(), "2024-01-01", "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00", "11:00"}, slots)
}

func TestService_CalendarFailureFallsBackToLocalData(t *testing.T) {
	fx := newServiceFixture(t, connected())
	fx.gw.listErr = errors.New("token expired")

	slots, err := fx.svc.Slots(context.Background(), "2024-01-01", "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "10:00", "11:00"}, slots)
}

func TestService_SlotsErrors(t *testing.T) {
	fx := newServiceFixture(t, mondayMorning())

	_, err := fx.svc.Slots(context.Background(), "2024-1-1", "s1")
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = fx.svc.Slots(context.Background(), "2024-01-01", "missing")
	assert.ErrorIs(t, err, clinic.ErrServiceNotFound)

	fx.store.listErr = errors.New("db down")
	_, err = fx.svc.Slots(context.Background(), "2024-01-01", "s1")
	assert.Error(t, err)
}

func TestService_BookPix(t *testing.T) {
	fx := newServiceFixture(t, mondayMorning())

	a, err := fx.svc.Book(context.Background(), request())
	require.NoError(t, err)

	assert.Equal(t, "appt-1", a.ID)
	assert.Equal(t, appointment.StatusConfirmed, a.Status)
	assert.Equal(t, appointment.PaymentPending, a.PaymentStatus)
	assert.Equal(t, "10:50", a.EndTime)
	assert.Equal(t, "maria@example.com", a.PatientEmail)

	slots, err := fx.svc.Slots(context.Background(), "2024-01-01", "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "11:00"}, slots, "booked slot is no longer offered")

	_, err = fx.svc.Book(context.Background(), request())
	assert.ErrorIs(t, err, ErrSlotUnavailable, "second booking of the same slot is refused")
}

func TestService_BookGuards(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
		want   error
	}{
		{"unknown service", func(r *Request) { r.ServiceID = "nope" }, ErrNoService},
		{"bad format", func(r *Request) { r.Format = "phone" }, ErrInvalidFormat},
		{"time not offered", func(r *Request) { r.StartTime = "10:30" }, ErrSlotUnavailable},
		{"closed day", func(r *Request) { r.Date = "2024-01-02" }, ErrSlotUnavailable},
		{"missing phone", func(r *Request) { r.Patient.Phone = "" }, ErrIncompletePatient},
		{"no consent", func(r *Request) { r.Consent = false }, ErrConsentRequired},
		{"no payment", func(r *Request) { r.PaymentMethod = "" }, ErrInvalidPayment},
		{"outcome mismatch", func(r *Request) { r.Outcome = OutcomePaid }, ErrOutcomeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newServiceFixture(t, mondayMorning())
			req := request()
			tt.mutate(&req)

			_, err := fx.svc.Book(context.Background(), req)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 0, fx.store.count())
		})
	}
}

func TestService_CheckoutThenBook(t *testing.T) {
	settings := mondayMorning()
	settings.Integrations.PaymentConnected = true
	settings.Integrations.PaymentAccessToken = "mp-token"
	fx := newServiceFixture(t, settings)

	req := request()
	res, err := fx.svc.Checkout(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "https://mp.example/checkout/1", res.CheckoutURL)
	assert.Equal(t, StepPayment, res.State.Step)
	assert.Equal(t, PaymentCheckout, res.State.PaymentMethod)
	require.Len(t, fx.payments.seen, 1)
	assert.Equal(t, res.Reference, fx.payments.seen[0].ID)
	assert.Equal(t, 0, fx.store.count(), "checkout stores nothing")

	req.PaymentMethod = PaymentCheckout
	req.Outcome = OutcomePaid
	req.Reference = res.Reference
	a, err := fx.svc.Book(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, res.Reference, a.ID)
	assert.Equal(t, appointment.PaymentPaid, a.PaymentStatus)
}

func TestService_CheckoutAbandoned(t *testing.T) {
	fx := newServiceFixture(t, mondayMorning())

	req := request()
	req.PaymentMethod = PaymentCheckout
	req.Outcome = OutcomeAbandoned
	a, err := fx.svc.Book(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, appointment.StatusPendingPayment, a.Status)
	assert.Equal(t, appointment.PaymentPending, a.PaymentStatus)
}

func TestService_CheckoutErrors(t *testing.T) {
	fx := newServiceFixture(t, mondayMorning())
	_, err := fx.svc.Checkout(context.Background(), request())
	assert.ErrorIs(t, err, payment.ErrNotConfigured)

	settings := mondayMorning()
	settings.Integrations.PaymentConnected = true
	settings.Integrations.PaymentAccessToken = "mp-token"
	fx = newServiceFixture(t, settings)
	fx.payments.err = errors.New("timeout")

	_, err = fx.svc.Checkout(context.Background(), request())
	assert.ErrorIs(t, err, payment.ErrPaymentUnavailable)
}
