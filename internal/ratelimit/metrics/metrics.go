package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Decisions      *prometheus.CounterVec
	FallbackChecks prometheus.Counter
	Degraded       prometheus.Gauge
}

// New registers the rate limit metrics with reg. A nil reg keeps the
// collectors unregistered.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kitties_ratelimit_decisions_total",
			Help: "Rate limit decisions for registry mutations by class and outcome",
		}, []string{"class", "outcome"}),
		FallbackChecks: factory.NewCounter(prometheus.CounterOpts{
			Name: "kitties_ratelimit_fallback_checks_total",
			Help: "Checks answered by the in-process fallback store",
		}),
		Degraded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "kitties_ratelimit_degraded",
			Help: "1 while the shared rate limit store is bypassed",
		}),
	}
}

func (m *Metrics) ObserveDecision(class, outcome string) {
	m.Decisions.WithLabelValues(class, outcome).Inc()
}

func (m *Metrics) IncFallback() {
	m.FallbackChecks.Inc()
}

func (m *Metrics) SetDegraded(degraded bool) {
	if degraded {
		m.Degraded.Set(1)
		return
	}
	m.Degraded.Set(0)
}
