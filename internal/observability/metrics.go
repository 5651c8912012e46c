package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values for auth operations.
const (
	OutcomeSuccess      = "success"
	OutcomeInvalid      = "invalid_request"
	OutcomeUnauthorized = "unauthorized"
	OutcomeConflict     = "conflict"
	OutcomeError        = "error"
)

// Metrics records auth operation counts and latencies. A nil *Metrics is a no-op.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics builds the collectors and registers them with reg.
// Panics if registration fails (following prometheus convention).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_operations_total",
				Help: "Total number of auth operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "auth_operation_duration_seconds",
				Help:    "Auth operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
	reg.MustRegister(m.operations, m.duration)
	return m
}

// Record counts one finished operation.
func (m *Metrics) Record(operation, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.duration.WithLabelValues(operation).Observe(took.Seconds())
}
