package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/clinic-booking/internal/appointment"
	"github.com/hackgods/clinic-booking/internal/auth"
)

func patientLoginHandler(a *auth.Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PatientLoginRequest
		if !decodeValid(w, r, &req) {
			return
		}

		sess, err := a.PatientLogin(r.Context(), req.Email, req.Phone)
		if err != nil {
			handleLoginError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sess)
	}
}

func patientAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := ClaimsFromContext(r.Context())

		appts, err := svc.ListForPatient(r.Context(), claims.Email)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		out := make([]appointment.Appointment, 0, len(appts))
		for _, a := range appts {
			out = append(out, a.PublicView())
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// patientLastHandler feeds the follow-up booking prefill.
func patientLastHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := ClaimsFromContext(r.Context())

		last, err := svc.LastForPatient(r.Context(), claims.Email)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, last.PublicView())
	}
}

func patientCancelHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := ClaimsFromContext(r.Context())

		appt, err := svc.CancelForPatient(r.Context(), chi.URLParam(r, "id"), claims.Email)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appt.PublicView())
	}
}

func handleLoginError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
