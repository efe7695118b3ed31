package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the pipeline's application-level instruments.
// All record methods are nil-safe so components can take *Metrics optionally.
type Metrics struct {
	registry *prometheus.Registry

	recordsIngested *prometheus.CounterVec
	recordsRejected *prometheus.CounterVec
	backendFailures *prometheus.CounterVec
	kpiDuration     *prometheus.HistogramVec
}

// New registers the pipeline instruments on a private registry.
func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		recordsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_records_ingested_total",
			Help: "Raw records accepted into the snapshot, by source.",
		}, []string{"source"}),
		recordsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_records_rejected_total",
			Help: "Raw records rejected during normalization, by reason.",
		}, []string{"reason"}),
		backendFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_backend_failures_total",
			Help: "Backend load/compute failures, by backend and stage.",
		}, []string{"backend", "stage"}),
		kpiDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pipeline_kpi_duration_seconds",
			Help:    "KPI computation duration, by backend and KPI.",
			Buckets: prometheus.DefBuckets,
		}, []string{"backend", "kpi"}),
	}

	for _, c := range []prometheus.Collector{
		m.recordsIngested,
		m.recordsRejected,
		m.backendFailures,
		m.kpiDuration,
	} {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Registry exposes the underlying registry for scraping or test inspection.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) RecordIngested(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.recordsIngested.WithLabelValues(source).Add(float64(n))
}

func (m *Metrics) RecordRejected(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.recordsRejected.WithLabelValues(reason).Add(float64(n))
}

func (m *Metrics) RecordBackendFailure(backend, stage string) {
	if m == nil {
		return
	}
	m.backendFailures.WithLabelValues(backend, stage).Inc()
}

func (m *Metrics) ObserveKPIDuration(backend, kpi string, seconds float64) {
	if m == nil {
		return
	}
	m.kpiDuration.WithLabelValues(backend, kpi).Observe(seconds)
}
