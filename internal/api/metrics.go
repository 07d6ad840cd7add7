package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeOK           = "ok"
	outcomeTransport    = "transport_error"
	outcomeUnauthorized = "unauthorized"
	outcomeHTTPError    = "http_error"
	outcomeDecode       = "decode_error"
)

// Metrics counts backend requests per endpoint and outcome.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stratlab",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Backend requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stratlab",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Backend request latency. Strategy generation can take minutes.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"endpoint"}),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

func (m *Metrics) observe(endpoint, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(endpoint, outcome).Inc()
	m.duration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// Requests returns the counter for one endpoint and outcome.
func (m *Metrics) Requests(endpoint, outcome string) prometheus.Counter {
	return m.requests.WithLabelValues(endpoint, outcome)
}
