package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "suctracker"

// Metrics holds the Prometheus collectors of the checkin service.
type Metrics struct {
	CheckinsSubmitted *prometheus.CounterVec // labels: source={api,form}, outcome={accepted,<validation kind>,error}
	ImportLines       *prometheus.CounterVec // labels: outcome={ok,error}

	DirectoryRefreshes       *prometheus.CounterVec // labels: outcome={success,error,locked}
	DirectoryRefreshDuration prometheus.Histogram
	DirectoryStations        *prometheus.GaugeVec // labels: type={supercharger,destination_charger}

	StatsCache *prometheus.CounterVec // labels: query, result={hit,miss}

	HTTPRequestDuration *prometheus.HistogramVec // labels: method, route, status
}

func newMetrics() *Metrics {
	return &Metrics{
		CheckinsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkins_submitted_total",
			Help:      "Live check-in submissions by source and outcome.",
		}, []string{"source", "outcome"}),
		ImportLines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_lines_total",
			Help:      "Bulk import lines by outcome.",
		}, []string{"outcome"}),
		DirectoryRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "directory_refreshes_total",
			Help:      "Station directory refresh attempts by outcome.",
		}, []string{"outcome"}),
		DirectoryRefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "directory_refresh_duration_seconds",
			Help:      "Duration of a complete station directory refresh.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		DirectoryStations: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "directory_stations",
			Help:      "Stations loaded by the last successful refresh.",
		}, []string{"type"}),
		StatsCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stats_cache_total",
			Help:      "Aggregation cache lookups by query and result.",
		}, []string{"query", "result"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration by method, route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.CheckinsSubmitted,
		m.ImportLines,
		m.DirectoryRefreshes,
		m.DirectoryRefreshDuration,
		m.DirectoryStations,
		m.StatsCache,
		m.HTTPRequestDuration,
	}
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting registers on a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

// Value reads the current value of a counter or gauge. Intended for tests.
func Value(c prometheus.Metric) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	switch {
	case m.Counter != nil:
		return m.Counter.GetValue()
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	case m.Histogram != nil:
		return float64(m.Histogram.GetSampleCount())
	}
	return 0
}
