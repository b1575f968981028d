package publisher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for event delivery.
type Metrics struct {
	Emitted             prometheus.Counter
	Published           prometheus.Counter
	Dropped             *prometheus.CounterVec
	PublishFailures     prometheus.Counter
	BufferDepth         prometheus.Gauge
	CircuitBreakerState prometheus.Gauge
}

// NewMetrics registers the event delivery metrics with reg. A nil reg keeps
// the collectors unregistered, which suits tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Emitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "kitties_events_emitted_total",
			Help: "Total number of registry events accepted for delivery",
		}),
		Published: factory.NewCounter(prometheus.CounterOpts{
			Name: "kitties_events_published_total",
			Help: "Total number of registry events delivered to the sink",
		}),
		Dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kitties_events_dropped_total",
			Help: "Total number of registry events dropped before delivery",
		}, []string{"reason"}),
		PublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "kitties_events_publish_failures_total",
			Help: "Total number of failed sink publish attempts",
		}),
		BufferDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "kitties_events_buffer_depth",
			Help: "Number of events waiting in the async buffer",
		}),
		CircuitBreakerState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "kitties_events_circuit_breaker_state",
			Help: "Current sink circuit breaker state (0=closed/healthy, 1=open/unhealthy)",
		}),
	}
}

func (m *Metrics) SetCircuitBreakerState(open bool) {
	if open {
		m.CircuitBreakerState.Set(1)
	} else {
		m.CircuitBreakerState.Set(0)
	}
}
