package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds process-level Prometheus metrics.
type Metrics struct {
	BackendInfo *prometheus.GaugeVec
	ReadyChecks *prometheus.CounterVec
}

// New creates and registers process-level metrics on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers on reg; tests pass a fresh registry.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		BackendInfo: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lookout_backend_info",
			Help: "Configured storage backends (value is always 1)",
		}, []string{"cache", "ledger"}),
		ReadyChecks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lookout_ready_checks_total",
			Help: "Readiness probe results by dependency",
		}, []string{"dependency", "result"}),
	}
}

// SetBackends records the storage backends selected at startup.
func (m *Metrics) SetBackends(cache, ledger string) {
	if m != nil {
		m.BackendInfo.WithLabelValues(cache, ledger).Set(1)
	}
}

// ObserveReadyCheck counts one dependency probe.
func (m *Metrics) ObserveReadyCheck(dependency string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "fail"
	}
	m.ReadyChecks.WithLabelValues(dependency, result).Inc()
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
