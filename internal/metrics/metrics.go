// Package metrics exposes prometheus collectors for the history store and
// the analysis flow. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry          *prometheus.Registry
	historySaves      prometheus.Counter
	historyEvictions  prometheus.Counter
	historyRemovals   prometheus.Counter
	historySize       prometheus.Gauge
	persistenceErrors *prometheus.CounterVec
	analysisRequests  *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		historySaves: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mrsa_history_saves_total",
			Help: "Analysis records written to the local history.",
		}),
		historyEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mrsa_history_evictions_total",
			Help: "Records dropped from the tail when the history exceeded its cap.",
		}),
		historyRemovals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mrsa_history_removals_total",
			Help: "Records removed from the local history by user action.",
		}),
		historySize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mrsa_history_records",
			Help: "Records in the local history after the last write.",
		}),
		persistenceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mrsa_history_persistence_errors_total",
			Help: "History storage failures by operation.",
		}, []string{"op"}),
		analysisRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mrsa_analysis_requests_total",
			Help: "Sequence analysis requests by outcome.",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(
		m.historySaves,
		m.historyEvictions,
		m.historyRemovals,
		m.historySize,
		m.persistenceErrors,
		m.analysisRequests,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) HistorySaved(size, evicted int) {
	if m == nil {
		return
	}
	m.historySaves.Inc()
	m.historyEvictions.Add(float64(evicted))
	m.historySize.Set(float64(size))
}

func (m *Metrics) HistoryRemoved(size int) {
	if m == nil {
		return
	}
	m.historyRemovals.Inc()
	m.historySize.Set(float64(size))
}

func (m *Metrics) PersistenceError(op string) {
	if m == nil {
		return
	}
	m.persistenceErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) AnalysisRequest(outcome string) {
	if m == nil {
		return
	}
	m.analysisRequests.WithLabelValues(outcome).Inc()
}
