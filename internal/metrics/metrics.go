package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the booking service collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	bookingsTotal      *prometheus.CounterVec
	availabilityTime   *prometheus.HistogramVec
	calendarErrors     *prometheus.CounterVec
	remindersTotal     *prometheus.CounterVec
	httpRequestsTotal  *prometheus.CounterVec
	httpRequestSeconds *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "finalized_total",
			Help:      "Booking finalization attempts by outcome",
		}, []string{"outcome"}),
		availabilityTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "availability",
			Name:      "compute_seconds",
			Help:      "Time to compute slots for one date, including the busy fetch",
			Buckets:   prometheus.DefBuckets,
		}, []string{"calendar"}),
		calendarErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "calendar",
			Name:      "errors_total",
			Help:      "External calendar call failures",
		}, []string{"op"}),
		remindersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "reminder",
			Name:      "sent_total",
			Help:      "Reminder deliveries by channel and status",
		}, []string{"channel", "status"}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		httpRequestSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "http",
			Name:      "request_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.bookingsTotal,
		m.availabilityTime,
		m.calendarErrors,
		m.remindersTotal,
		m.httpRequestsTotal,
		m.httpRequestSeconds,
	)
	return m
}

func (m *Metrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveAvailability(calendarConnected bool, seconds float64) {
	if m == nil {
		return
	}
	label := "disconnected"
	if calendarConnected {
		label = "connected"
	}
	m.availabilityTime.WithLabelValues(label).Observe(seconds)
}

func (m *Metrics) ObserveCalendarError(op string) {
	if m == nil {
		return
	}
	m.calendarErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) ObserveReminder(channel, status string) {
	if m == nil {
		return
	}
	m.remindersTotal.WithLabelValues(channel, status).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, route, statusClass(status)).Inc()
	m.httpRequestSeconds.WithLabelValues(method, route).Observe(seconds)
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
