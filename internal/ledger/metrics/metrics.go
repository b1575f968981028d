package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the collateral ledger.
type Metrics struct {
	Reservations *prometheus.CounterVec
	Releases     prometheus.Counter
	Deposits     prometheus.Counter
}

// New registers the ledger metrics with reg. A nil reg keeps the collectors
// unregistered.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Reservations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kitties_ledger_reservations_total",
			Help: "Total number of collateral reservation attempts by outcome",
		}, []string{"outcome"}),
		Releases: factory.NewCounter(prometheus.CounterOpts{
			Name: "kitties_ledger_releases_total",
			Help: "Total number of collateral releases",
		}),
		Deposits: factory.NewCounter(prometheus.CounterOpts{
			Name: "kitties_ledger_deposits_total",
			Help: "Total number of deposits credited to free balances",
		}),
	}
}

func (m *Metrics) IncReserved() {
	m.Reservations.WithLabelValues("reserved").Inc()
}

func (m *Metrics) IncRejected() {
	m.Reservations.WithLabelValues("insufficient_funds").Inc()
}

func (m *Metrics) IncReleased() {
	m.Releases.Inc()
}

func (m *Metrics) IncDeposited() {
	m.Deposits.Inc()
}
