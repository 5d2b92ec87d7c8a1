package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the lookup pipeline.
type Metrics struct {
	// Adapter invocation latency by source and terminal status
	AdapterLatency *prometheus.HistogramVec

	// Cache lookups by result (hit, miss)
	CacheLookups *prometheus.CounterVec

	// Completed lookups by identifier kind and whether they were served from cache
	Lookups *prometheus.CounterVec

	// Candidate records by pool and outcome
	Candidates *prometheus.CounterVec

	// Overall pipeline latency
	LookupLatency prometheus.Histogram
}

// New registers lookup metrics on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers lookup metrics on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AdapterLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lookout_adapter_duration_seconds",
			Help:    "Duration of adapter invocations by source and status",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30, 60, 120},
		}, []string{"source", "status"}),

		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lookout_cache_lookups_total",
			Help: "Profile cache lookups by result",
		}, []string{"result"}),

		Lookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lookout_lookups_total",
			Help: "Completed lookups by identifier kind and cache use",
		}, []string{"kind", "cached"}),

		Candidates: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lookout_filter_candidates_total",
			Help: "Bulk-store candidate records by pool and outcome",
		}, []string{"pool", "outcome"}),

		LookupLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "lookout_lookup_duration_seconds",
			Help:    "Duration of the full lookup pipeline",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
		}),
	}
}

// ObserveAdapter records one adapter invocation.
func (m *Metrics) ObserveAdapter(source, status string, d time.Duration) {
	if m != nil {
		m.AdapterLatency.WithLabelValues(source, status).Observe(d.Seconds())
	}
}

// IncrementCache records a cache hit or miss.
func (m *Metrics) IncrementCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.CacheLookups.WithLabelValues("miss").Inc()
}

// IncrementLookup records a completed lookup.
func (m *Metrics) IncrementLookup(kind string, cached bool) {
	if m == nil {
		return
	}
	label := "false"
	if cached {
		label = "true"
	}
	m.Lookups.WithLabelValues(kind, label).Inc()
}

// AddCandidates records scored candidates.
func (m *Metrics) AddCandidates(pool string, accepted, rejected int) {
	if m == nil {
		return
	}
	m.Candidates.WithLabelValues(pool, "accepted").Add(float64(accepted))
	m.Candidates.WithLabelValues(pool, "rejected").Add(float64(rejected))
}

// ObserveLookupLatency records the total pipeline duration.
func (m *Metrics) ObserveLookupLatency(d time.Duration) {
	if m != nil {
		m.LookupLatency.Observe(d.Seconds())
	}
}
