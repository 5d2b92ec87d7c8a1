package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the usage ledger.
type Metrics struct {
	// Debit attempts by outcome (charged, privileged, insufficient, noop)
	Debits *prometheus.CounterVec

	// Units moved by transaction type
	Units *prometheus.CounterVec

	// Transactions that failed to persist
	PersistFailures prometheus.Counter
}

// New registers ledger metrics on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers ledger metrics on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Debits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lookout_ledger_debits_total",
			Help: "Debit attempts by outcome",
		}, []string{"outcome"}),

		Units: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lookout_ledger_units_total",
			Help: "Absolute balance units moved by transaction type",
		}, []string{"type"}),

		PersistFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "lookout_ledger_persist_failures_total",
			Help: "Ledger transactions that failed to persist",
		}),
	}
}

// IncrementDebit records a debit attempt.
func (m *Metrics) IncrementDebit(outcome string) {
	if m != nil {
		m.Debits.WithLabelValues(outcome).Inc()
	}
}

// AddUnits records a balance movement of amount units.
func (m *Metrics) AddUnits(txType string, amount int64) {
	if m == nil {
		return
	}
	if amount < 0 {
		amount = -amount
	}
	m.Units.WithLabelValues(txType).Add(float64(amount))
}

// IncrementPersistFailure records a failed ledger write.
func (m *Metrics) IncrementPersistFailure() {
	if m != nil {
		m.PersistFailures.Inc()
	}
}
