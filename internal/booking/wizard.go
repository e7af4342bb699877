package booking

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hackgods/clinic-booking/internal/appointment"
	"github.com/hackgods/clinic-booking/internal/availability"
	"github.com/hackgods/clinic-booking/internal/clinic"
	"github.com/hackgods/clinic-booking/internal/identity"
)

type Step string

const (
	StepService     Step = "service"
	StepFormat      Step = "format"
	StepDateTime    Step = "datetime"
	StepPatientInfo Step = "patient_info"
	StepPayment     Step = "payment"
	StepConfirmed   Step = "confirmed"
)

type PaymentMethod string

const (
	PaymentPix      PaymentMethod = "pix"
	PaymentCheckout PaymentMethod = "checkout"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentPix || m == PaymentCheckout
}

// Outcome is how the payment step ended.
type Outcome string

const (
	// OutcomePaid: the hosted checkout reported success.
	OutcomePaid Outcome = "paid"
	// OutcomeManual: the patient declared a pix transfer; staff verify it.
	OutcomeManual Outcome = "manual"
	// OutcomeAbandoned: the patient left the hosted checkout unfinished.
	OutcomeAbandoned Outcome = "abandoned"
)

var (
	ErrWrongStep          = errors.New("operation not allowed in the current step")
	ErrNoService          = errors.New("select a service first")
	ErrInvalidFormat      = errors.New("format must be online or in_person")
	ErrNoFormat           = errors.New("select a format first")
	ErrInvalidDate        = errors.New("date must be YYYY-MM-DD")
	ErrSlotsLoading       = errors.New("availability is still loading")
	ErrSlotUnavailable    = errors.New("time is not available")
	ErrNoSlot             = errors.New("select a date and an available time")
	ErrIncompletePatient  = errors.New("name, phone and a valid email are required")
	ErrConsentRequired    = errors.New("consent is required")
	ErrInvalidPayment     = errors.New("payment method must be pix or checkout")
	ErrNoPaymentMethod    = errors.New("choose a payment method")
	ErrOutcomeMismatch    = errors.New("payment outcome does not match the chosen method")
	ErrNoCheckoutURL      = errors.New("checkout link not created yet")
	ErrCheckoutNotAllowed = errors.New("checkout links only apply to the checkout method")
)

// Prefill seeds a wizard from a follow-up or reschedule flow.
type Prefill struct {
	Service *clinic.Service
	Format  appointment.Format
	Patient *PatientInfo
}

type PatientInfo struct {
	Name   string `json:"name" validate:"required"`
	Email  string `json:"email" validate:"required,email"`
	Phone  string `json:"phone" validate:"required"`
	Reason string `json:"reason,omitempty"`
}

// SlotTicket identifies one availability fetch. Results carrying an older
// generation are dropped.
type SlotTicket struct {
	Generation uint64
	Date       string
}

// State is a read-only view of the wizard.
type State struct {
	Step          Step               `json:"step"`
	ServiceID     string             `json:"service_id,omitempty"`
	Format        appointment.Format `json:"format,omitempty"`
	Date          string             `json:"date,omitempty"`
	Slots         []string           `json:"slots"`
	Loading       bool               `json:"loading"`
	Slot          string             `json:"slot,omitempty"`
	Patient       PatientInfo        `json:"patient"`
	Consent       bool               `json:"consent"`
	PaymentMethod PaymentMethod      `json:"payment_method,omitempty"`
	CheckoutURL   string             `json:"checkout_url,omitempty"`
	Reference     string             `json:"reference,omitempty"`
}

// Wizard is the booking flow. It holds no I/O; the Service and Finalizer
// feed it data and persist what it produces.
type Wizard struct {
	step Step

	service *clinic.Service
	format  appointment.Format

	date       string
	slots      []string
	loading    bool
	generation uint64
	slot       string

	patient PatientInfo
	consent bool

	payment     PaymentMethod
	checkoutURL string
	reference   string

	confirmed *appointment.Appointment
	validate  *validator.Validate
}

// NewWizard picks the entry step from what is preselected: a service skips
// the service step, a service plus a format starts at datetime.
func NewWizard(p Prefill) *Wizard {
	w := &Wizard{
		step:     StepService,
		slots:    []string{},
		validate: validator.New(),
	}

	if p.Format.Valid() {
		w.format = p.Format
	}
	if p.Patient != nil {
		w.patient = normalizePatient(*p.Patient)
		w.consent = true
	}
	if p.Service != nil {
		svc := *p.Service
		w.service = &svc
		if w.format != "" {
			w.step = StepDateTime
		} else {
			w.step = StepFormat
		}
	}

	return w
}

func (w *Wizard) Step() Step { return w.step }

func (w *Wizard) Service() *clinic.Service { return w.service }

func (w *Wizard) State() State {
	st := State{
		Step:          w.step,
		Format:        w.format,
		Date:          w.date,
		Slots:         append([]string{}, w.slots...),
		Loading:       w.loading,
		Slot:          w.slot,
		Patient:       w.patient,
		Consent:       w.consent,
		PaymentMethod: w.payment,
		CheckoutURL:   w.checkoutURL,
		Reference:     w.reference,
	}
	if w.service != nil {
		st.ServiceID = w.service.ID
	}
	return st
}

// Confirmed returns the stored appointment once the flow has finished.
func (w *Wizard) Confirmed() (appointment.Appointment, bool) {
	if w.confirmed == nil {
		return appointment.Appointment{}, false
	}
	return *w.confirmed, true
}

// SelectService changes the service. Slot lengths depend on it, so any
// loaded availability is discarded.
func (w *Wizard) SelectService(svc clinic.Service) error {
	if w.step != StepService {
		return ErrWrongStep
	}
	if svc.ID == "" {
		return ErrNoService
	}
	w.service = &svc
	w.resetDateTime()
	return nil
}

func (w *Wizard) SelectFormat(f appointment.Format) error {
	if w.step != StepFormat {
		return ErrWrongStep
	}
	if !f.Valid() {
		return ErrInvalidFormat
	}
	w.format = f
	return nil
}

// BeginSlotFetch starts loading availability for date. Slot selection is
// refused until ApplySlots delivers the result for the returned ticket.
// Call it again when the calendar connection or token changes.
func (w *Wizard) BeginSlotFetch(date string) (SlotTicket, error) {
	if w.step != StepDateTime {
		return SlotTicket{}, ErrWrongStep
	}
	if _, err := time.Parse(availability.DateLayout, date); err != nil {
		return SlotTicket{}, ErrInvalidDate
	}

	w.generation++
	w.date = date
	w.slots = []string{}
	w.slot = ""
	w.loading = true

	return SlotTicket{Generation: w.generation, Date: date}, nil
}

// ApplySlots stores the result of a fetch. It reports false, changing
// nothing, when the ticket has been superseded.
func (w *Wizard) ApplySlots(t SlotTicket, slots []string) bool {
	if t.Generation != w.generation || t.Date != w.date {
		return false
	}
	if slots == nil {
		slots = []string{}
	}
	w.slots = append([]string{}, slots...)
	w.loading = false
	return true
}

func (w *Wizard) SelectSlot(slot string) error {
	if w.step != StepDateTime {
		return ErrWrongStep
	}
	if w.loading {
		return ErrSlotsLoading
	}
	if !availability.Contains(w.slots, slot) {
		return ErrSlotUnavailable
	}
	w.slot = slot
	return nil
}

// SetPatient fills contact data. Consent is tracked separately.
func (w *Wizard) SetPatient(p PatientInfo) error {
	if w.step != StepPatientInfo {
		return ErrWrongStep
	}
	w.patient = normalizePatient(p)
	return nil
}

func (w *Wizard) SetConsent(ok bool) error {
	if w.step != StepPatientInfo {
		return ErrWrongStep
	}
	w.consent = ok
	return nil
}

// ChoosePayment picks the payment path. Switching paths drops any checkout
// link created for the previous one.
func (w *Wizard) ChoosePayment(m PaymentMethod) error {
	if w.step != StepPayment {
		return ErrWrongStep
	}
	if !m.Valid() {
		return ErrInvalidPayment
	}
	if m != w.payment {
		w.checkoutURL = ""
	}
	w.payment = m
	return nil
}

func (w *Wizard) SetCheckoutURL(url string) error {
	if w.step != StepPayment {
		return ErrWrongStep
	}
	if w.payment != PaymentCheckout {
		return ErrCheckoutNotAllowed
	}
	w.checkoutURL = url
	return nil
}

// Next advances one step if the current step's guard holds. The payment
// step is left through the Finalizer, never through Next.
func (w *Wizard) Next() error {
	switch w.step {
	case StepService:
		if w.service == nil {
			return ErrNoService
		}
		if w.format != "" {
			w.step = StepDateTime
		} else {
			w.step = StepFormat
		}
	case StepFormat:
		if w.format == "" {
			return ErrNoFormat
		}
		w.step = StepDateTime
	case StepDateTime:
		if w.loading {
			return ErrSlotsLoading
		}
		if w.date == "" || w.slot == "" || !availability.Contains(w.slots, w.slot) {
			return ErrNoSlot
		}
		w.step = StepPatientInfo
	case StepPatientInfo:
		if err := w.validate.Struct(w.patient); err != nil {
			return ErrIncompletePatient
		}
		if !w.consent {
			return ErrConsentRequired
		}
		w.step = StepPayment
	case StepPayment:
		if w.payment == "" {
			return ErrNoPaymentMethod
		}
		return ErrWrongStep
	default:
		return ErrWrongStep
	}
	return nil
}

// Back moves one step back. Leaving payment clears the payment path, the
// checkout link and the reference sent to the provider.
func (w *Wizard) Back() error {
	switch w.step {
	case StepFormat:
		w.step = StepService
	case StepDateTime:
		w.loading = false
		w.generation++
		w.step = StepFormat
	case StepPatientInfo:
		w.step = StepDateTime
	case StepPayment:
		w.payment = ""
		w.checkoutURL = ""
		w.reference = ""
		w.step = StepPatientInfo
	default:
		return ErrWrongStep
	}
	return nil
}

// Draft builds the appointment the payment step would produce, without
// leaving the step. The id is assigned on first use and kept, so a retry
// after a failed write or a checkout round trip refers to the same booking.
func (w *Wizard) Draft(outcome Outcome, ids identity.Provider, now time.Time) (appointment.Appointment, error) {
	if w.step != StepPayment {
		return appointment.Appointment{}, ErrWrongStep
	}
	if w.payment == "" {
		return appointment.Appointment{}, ErrNoPaymentMethod
	}

	status, paymentStatus, err := settle(w.payment, outcome)
	if err != nil {
		return appointment.Appointment{}, err
	}

	if w.reference == "" {
		w.reference = ids.NewID()
	}

	return appointment.Appointment{
		ID:                 w.reference,
		ServiceID:          w.service.ID,
		PatientName:        w.patient.Name,
		PatientEmail:       w.patient.Email,
		PatientPhone:       w.patient.Phone,
		ConsultationReason: w.patient.Reason,
		Date:               w.date,
		StartTime:          w.slot,
		EndTime:            endOf(w.slot, w.service.Duration),
		Format:             w.format,
		Status:             status,
		PaymentStatus:      paymentStatus,
		CreatedAt:          now.UTC(),
	}, nil
}

// UseReference resumes a booking whose checkout was created earlier.
func (w *Wizard) UseReference(ref string) {
	if ref != "" {
		w.reference = ref
	}
}

func (w *Wizard) markConfirmed(a appointment.Appointment) {
	w.confirmed = &a
	w.step = StepConfirmed
}

func (w *Wizard) resetDateTime() {
	w.generation++
	w.date = ""
	w.slots = []string{}
	w.slot = ""
	w.loading = false
}

func settle(m PaymentMethod, o Outcome) (appointment.Status, appointment.PaymentStatus, error) {
	switch {
	case m == PaymentPix && o == OutcomeManual:
		return appointment.StatusConfirmed, appointment.PaymentPending, nil
	case m == PaymentCheckout && o == OutcomePaid:
		return appointment.StatusConfirmed, appointment.PaymentPaid, nil
	case m == PaymentCheckout && o == OutcomeAbandoned:
		return appointment.StatusPendingPayment, appointment.PaymentPending, nil
	}
	return "", "", ErrOutcomeMismatch
}

func endOf(start string, minutes int) string {
	m, err := availability.ParseClock(start)
	if err != nil || minutes <= 0 {
		return ""
	}
	end := m + minutes
	if end >= 24*60 {
		return ""
	}
	return availability.FormatClock(end)
}

func normalizePatient(p PatientInfo) PatientInfo {
	return PatientInfo{
		Name:   strings.TrimSpace(p.Name),
		Email:  strings.ToLower(strings.TrimSpace(p.Email)),
		Phone:  strings.TrimSpace(p.Phone),
		Reason: strings.TrimSpace(p.Reason),
	}
}
