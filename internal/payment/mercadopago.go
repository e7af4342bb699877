package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-booking/internal/appointment"
	"github.com/hackgods/clinic-booking/internal/clinic"
)

var (
	ErrPaymentUnavailable = errors.New("payment provider unavailable")
	ErrNotConfigured      = errors.New("payment provider not configured")
)

// Gateway creates hosted checkout links.
type Gateway interface {
	CreatePreference(ctx context.Context, appt appointment.Appointment, svc clinic.Service, token string) (string, error)
}

// MercadoPago creates checkout preferences through the REST API.
type MercadoPago struct {
	baseURL    string
	backURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewMercadoPago(backURL string, logger zerolog.Logger) *MercadoPago {
	return &MercadoPago{
		baseURL:    "https://api.mercadopago.com",
		backURL:    strings.TrimRight(backURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// WithBaseURL overrides the API host (sandbox, tests).
func (m *MercadoPago) WithBaseURL(baseURL string) *MercadoPago {
	if baseURL == "" {
		return m
	}
	m.baseURL = strings.TrimRight(baseURL, "/")
	return m
}

type preferenceItem struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Quantity    int     `json:"quantity"`
	CurrencyID  string  `json:"currency_id"`
	UnitPrice   float64 `json:"unit_price"`
}

type preferencePhone struct {
	AreaCode string `json:"area_code"`
	Number   string `json:"number"`
}

type preferencePayer struct {
	Name  string          `json:"name"`
	Email string          `json:"email"`
	Phone preferencePhone `json:"phone"`
}

type backURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

type preferenceRequest struct {
	Items               []preferenceItem `json:"items"`
	Payer               preferencePayer  `json:"payer"`
	BackURLs            backURLs         `json:"back_urls"`
	AutoReturn          string           `json:"auto_return"`
	ExternalReference   string           `json:"external_reference"`
	StatementDescriptor string           `json:"statement_descriptor"`
}

type preferenceResponse struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
	Message   string `json:"message"`
}

// CreatePreference returns the checkout URL for appt. The appointment id is
// sent as external reference so the payment can be matched later.
func (m *MercadoPago) CreatePreference(ctx context.Context, appt appointment.Appointment, svc clinic.Service, token string) (string, error) {
	if token == "" {
		return "", ErrNotConfigured
	}

	body := preferenceRequest{
		Items: []preferenceItem{{
			ID:          svc.ID,
			Title:       svc.Name,
			Description: svc.Description,
			Quantity:    1,
			CurrencyID:  "BRL",
			UnitPrice:   svc.Price,
		}},
		Payer: preferencePayer{
			Name:  appt.PatientName,
			Email: appt.PatientEmail,
			Phone: splitPhone(appt.PatientPhone),
		},
		BackURLs: backURLs{
			Success: m.backURL + "/?status=success",
			Failure: m.backURL + "/?status=failure",
			Pending: m.backURL + "/?status=pending",
		},
		AutoReturn:          "approved",
		ExternalReference:   appt.ID,
		StatementDescriptor: "CLINIC",
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode preference: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/checkout/preferences", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build preference request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Idempotency-Key", appt.ID)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		m.logger.Error().Err(err).Str("appointment_id", appt.ID).Msg("mercadopago request failed")
		return "", fmt.Errorf("%w: %v", ErrPaymentUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrPaymentUnavailable, err)
	}

	var out preferenceResponse
	_ = json.Unmarshal(raw, &out)

	if resp.StatusCode >= 300 {
		m.logger.Error().
			Int("status", resp.StatusCode).
			Str("message", out.Message).
			Str("appointment_id", appt.ID).
			Msg("mercadopago rejected preference")
		return "", fmt.Errorf("%w: status %d", ErrPaymentUnavailable, resp.StatusCode)
	}
	if out.InitPoint == "" {
		return "", fmt.Errorf("%w: response without init_point", ErrPaymentUnavailable)
	}

	m.logger.Info().Str("preference_id", out.ID).Str("appointment_id", appt.ID).Msg("checkout preference created")
	return out.InitPoint, nil
}

// splitPhone takes the first two digits as the area code.
func splitPhone(phone string) preferencePhone {
	digits := make([]rune, 0, len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) <= 2 {
		return preferencePhone{Number: string(digits)}
	}
	return preferencePhone{AreaCode: string(digits[:2]), Number: string(digits[2:])}
}
