package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the HMS pipeline.
type Metrics struct {
	// Archive retrieval metrics.
	ArchivesFetched *prometheus.CounterVec // labels: product={smoke,fire,boundary}
	FetchErrors     *prometheus.CounterVec // labels: product, kind={remote_fetch,archive_extraction,vector_file_not_found,reprojection}
	ArchiveBytes    *prometheus.CounterVec // labels: product
	ArchiveCache    *prometheus.CounterVec // labels: result={hit,miss,shared,bypass}

	// Geometry processing metrics.
	FeaturesClipped *prometheus.CounterVec // labels: product, outcome={kept,outside}

	// Publishing metrics.
	RecordsPublished *prometheus.CounterVec // labels: product, sink
	PublishErrors    *prometheus.CounterVec // labels: sink

	// Cycle metrics.
	CycleDuration prometheus.Histogram
	CycleRunning  prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ArchivesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hms_etl",
			Name:      "archives_fetched_total",
			Help:      "Archives retrieved, extracted, and loaded successfully.",
		}, []string{"product"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hms_etl",
			Name:      "fetch_errors_total",
			Help:      "Archive fetch failures by product and failure kind.",
		}, []string{"product", "kind"}),
		ArchiveBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hms_etl",
			Name:      "archive_bytes_total",
			Help:      "Compressed archive bytes read from local or remote sources.",
		}, []string{"product"}),
		ArchiveCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hms_etl",
			Name:      "archive_cache_total",
			Help:      "In-process archive cache lookups by result.",
		}, []string{"result"}),
		FeaturesClipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hms_etl",
			Name:      "features_clipped_total",
			Help:      "Features seen by the boundary clip, by outcome.",
		}, []string{"product", "outcome"}),
		RecordsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hms_etl",
			Name:      "records_published_total",
			Help:      "Per-date records written to each sink.",
		}, []string{"product", "sink"}),
		PublishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hms_etl",
			Name:      "publish_errors_total",
			Help:      "Failed sink writes.",
		}, []string{"sink"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hms_etl",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a complete fetch-process-publish cycle.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		}),
		CycleRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hms_etl",
			Name:      "cycle_running",
			Help:      "1 while a cycle is in progress, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.ArchivesFetched,
		m.FetchErrors,
		m.ArchiveBytes,
		m.ArchiveCache,
		m.FeaturesClipped,
		m.RecordsPublished,
		m.PublishErrors,
		m.CycleDuration,
		m.CycleRunning,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ArchivesFetched:  prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "hms_etl", Name: "archives_fetched_total"}, []string{"product"}),
		FetchErrors:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "hms_etl", Name: "fetch_errors_total"}, []string{"product", "kind"}),
		ArchiveBytes:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "hms_etl", Name: "archive_bytes_total"}, []string{"product"}),
		ArchiveCache:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "hms_etl", Name: "archive_cache_total"}, []string{"result"}),
		FeaturesClipped:  prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "hms_etl", Name: "features_clipped_total"}, []string{"product", "outcome"}),
		RecordsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "hms_etl", Name: "records_published_total"}, []string{"product", "sink"}),
		PublishErrors:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "hms_etl", Name: "publish_errors_total"}, []string{"sink"}),
		CycleDuration:    prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "hms_etl", Name: "cycle_duration_seconds"}),
		CycleRunning:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "hms_etl", Name: "cycle_running"}),
	}
}
