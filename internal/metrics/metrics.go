package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "catalog_sync"

// SyncMetrics holds the Prometheus collectors of one sync process. All methods are
// safe to call on a nil receiver.
type SyncMetrics struct {
	registry *prometheus.Registry

	// Row metrics
	Rows        *prometheus.CounterVec
	Conflicts   prometheus.Counter
	Diagnostics *prometheus.CounterVec

	// Run metrics
	PhaseDuration  *prometheus.HistogramVec
	CodecFailures  prometheus.Gauge
	LastRunSuccess prometheus.Gauge
	LastRunTime    prometheus.Gauge

	// Connection pool metrics
	ConnectionPoolOpen  prometheus.Gauge
	ConnectionPoolInUse prometheus.Gauge
}

// New creates the collectors on a private registry.
func New() *SyncMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &SyncMetrics{
		registry: reg,
		Rows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_total",
				Help:      "Catalog rows written by the sync, by table and operation",
			},
			[]string{"table", "operation"},
		),
		Conflicts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connection_conflicts_total",
			Help:      "Connections whose credentials differ between source and target",
		}),
		Diagnostics: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "diagnostics_total",
				Help:      "Rewrite and inspection diagnostics by kind",
			},
			[]string{"kind"},
		),
		PhaseDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "phase_duration_seconds",
				Help:      "Duration of each sync phase in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"phase"},
		),
		CodecFailures: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "credential_codec_failures",
			Help:      "Credential values passed through unchanged because they could not be decoded",
		}),
		LastRunSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 if the last sync committed, 0 otherwise",
		}),
		LastRunTime: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last sync finished",
		}),
		ConnectionPoolOpen: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_pool_open",
			Help:      "Open connections of the catalog pool",
		}),
		ConnectionPoolInUse: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_pool_in_use",
			Help:      "Connections of the catalog pool in use",
		}),
	}
}

// Registry exposes the registry the collectors live in.
func (m *SyncMetrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *SyncMetrics) AddRows(table, operation string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.Rows.WithLabelValues(table, operation).Add(float64(n))
}

func (m *SyncMetrics) AddConflicts(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Conflicts.Add(float64(n))
}

func (m *SyncMetrics) IncDiagnostic(kind string) {
	if m == nil {
		return
	}
	m.Diagnostics.WithLabelValues(kind).Inc()
}

func (m *SyncMetrics) ObservePhase(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.PhaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

func (m *SyncMetrics) SetCodecFailures(n int64) {
	if m == nil {
		return
	}
	m.CodecFailures.Set(float64(n))
}

// SetRunResult records the outcome of a run finished at t.
func (m *SyncMetrics) SetRunResult(success bool, t time.Time) {
	if m == nil {
		return
	}
	if success {
		m.LastRunSuccess.Set(1)
	} else {
		m.LastRunSuccess.Set(0)
	}
	m.LastRunTime.Set(float64(t.Unix()))
}

func (m *SyncMetrics) SetPoolStats(open, inUse int) {
	if m == nil {
		return
	}
	m.ConnectionPoolOpen.Set(float64(open))
	m.ConnectionPoolInUse.Set(float64(inUse))
}

// Push sends every collector to a Pushgateway under job, replacing the previous push.
func (m *SyncMetrics) Push(ctx context.Context, url, job string) error {
	if m == nil || url == "" {
		return nil
	}
	return push.New(url, job).Gatherer(m.registry).PushContext(ctx)
}
