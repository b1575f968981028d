package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for registry operations.
type Metrics struct {
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	KittiesIssued     prometheus.Gauge
	EmitFailures      prometheus.Counter
}

// New registers the registry metrics with reg. A nil reg keeps the
// collectors unregistered.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kitties_operations_total",
			Help: "Total number of registry operations by operation and outcome code",
		}, []string{"operation", "outcome"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kitties_operation_duration_seconds",
			Help:    "Registry operation latency including the transaction",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),
		KittiesIssued: factory.NewGauge(prometheus.GaugeOpts{
			Name: "kitties_issued",
			Help: "Number of kitty ids issued so far",
		}),
		EmitFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "kitties_event_emit_failures_total",
			Help: "Total number of registry events the publisher rejected",
		}),
	}
}

// ObserveOperation records the outcome and latency of one operation.
func (m *Metrics) ObserveOperation(operation, outcome string, seconds float64) {
	m.Operations.WithLabelValues(operation, outcome).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(seconds)
}

func (m *Metrics) SetKittiesIssued(n uint32) {
	m.KittiesIssued.Set(float64(n))
}

func (m *Metrics) IncEmitFailures() {
	m.EmitFailures.Inc()
}
