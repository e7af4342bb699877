package api

import (
	"errors"
	"net/http"

	"github.com/hackgods/clinic-booking/internal/appointment"
	"github.com/hackgods/clinic-booking/internal/booking"
	"github.com/hackgods/clinic-booking/internal/clinic"
	"github.com/hackgods/clinic-booking/internal/payment"
)

func listServicesHandler(m *clinic.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services, err := m.Services(r.Context())
		if err != nil {
			handleClinicError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, services)
	}
}

// contentHandler serves the public landing copy. Integration secrets never
// leave the admin surface.
func contentHandler(m *clinic.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		settings, err := m.Settings(r.Context())
		if err != nil {
			handleClinicError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, settings.Content)
	}
}

func availabilityHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date := r.URL.Query().Get("date")
		serviceID := r.URL.Query().Get("service_id")
		if date == "" {
			writeError(w, http.StatusBadRequest, "missing_date", "date query parameter is required")
			return
		}

		slots, err := svc.Slots(r.Context(), date, serviceID)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, AvailabilityResponse{Date: date, ServiceID: serviceID, Slots: slots})
	}
}

func checkoutHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req booking.Request
		if !decodeJSON(w, r, &req) {
			return
		}

		res, err := svc.Checkout(r.Context(), req)
		if err != nil {
			handleBookingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func createBookingHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req booking.Request
		if !decodeJSON(w, r, &req) {
			return
		}

		appt, err := svc.Book(r.Context(), req)
		if err != nil {
			handleBookingError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, appt.PublicView())
	}
}

func handleBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrNoService),
		errors.Is(err, clinic.ErrServiceNotFound):
		writeError(w, http.StatusNotFound, "service_not_found", err.Error())
	case errors.Is(err, booking.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", err.Error())
	case errors.Is(err, booking.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_taken", "slot was just booked, please pick another time")
	case errors.Is(err, booking.ErrInvalidDate),
		errors.Is(err, booking.ErrInvalidFormat),
		errors.Is(err, booking.ErrNoFormat),
		errors.Is(err, booking.ErrNoSlot),
		errors.Is(err, booking.ErrInvalidPayment),
		errors.Is(err, booking.ErrNoPaymentMethod),
		errors.Is(err, booking.ErrOutcomeMismatch),
		errors.Is(err, booking.ErrCheckoutNotAllowed),
		errors.Is(err, booking.ErrWrongStep):
		writeError(w, http.StatusBadRequest, "invalid_booking", err.Error())
	case errors.Is(err, booking.ErrIncompletePatient):
		writeError(w, http.StatusUnprocessableEntity, "incomplete_patient", err.Error())
	case errors.Is(err, booking.ErrConsentRequired):
		writeError(w, http.StatusUnprocessableEntity, "consent_required", err.Error())
	case errors.Is(err, payment.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "payment_not_configured", err.Error())
	case errors.Is(err, payment.ErrPaymentUnavailable):
		writeError(w, http.StatusBadGateway, "payment_unavailable", "could not create the checkout link, please retry")
	case errors.Is(err, booking.ErrPersistFailed):
		writeError(w, http.StatusServiceUnavailable, "booking_not_saved", "booking could not be saved, please retry")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleAppointmentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrBlockNotFound):
		writeError(w, http.StatusNotFound, "block_not_found", err.Error())
	case errors.Is(err, appointment.ErrNotOwner):
		writeError(w, http.StatusForbidden, "not_owner", err.Error())
	case errors.Is(err, appointment.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, appointment.ErrInvalidPaymentStatus),
		errors.Is(err, appointment.ErrInvalidSchedule),
		errors.Is(err, appointment.ErrInvalidBlock),
		errors.Is(err, appointment.ErrInvalidRecurrence),
		errors.Is(err, appointment.ErrInvalidOccurrence):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleClinicError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, clinic.ErrInvalidSettings):
		writeError(w, http.StatusBadRequest, "invalid_settings", err.Error())
	case errors.Is(err, clinic.ErrStaffNotFound):
		writeError(w, http.StatusNotFound, "staff_not_found", err.Error())
	case errors.Is(err, clinic.ErrServiceNotFound):
		writeError(w, http.StatusNotFound, "service_not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
