package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL pipeline.
type Metrics struct {
	DatesProcessed  prometheus.Counter
	DatesFailed     prometheus.Counter
	BasinsProcessed prometheus.Counter
	RunActive       prometheus.Gauge

	// Per-date processing metrics.
	DateProcessingDuration prometheus.Histogram
	ZonalDuration          prometheus.Histogram

	// Acquisition metrics.
	DownloadDuration prometheus.Histogram
	Downloads        *prometheus.CounterVec // labels: outcome={success,missing,error}

	// Store metrics.
	StoreWriteErrors prometheus.Counter
	WeekChangeMisses prometheus.Counter

	// Publishing metrics.
	PublishOutcomes *prometheus.CounterVec // labels: sink={s3,kafka}, outcome={success,error}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		DatesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "snodas_etl",
			Name:      "dates_processed_total",
			Help:      "Total observation dates processed to completion.",
		}),
		DatesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "snodas_etl",
			Name:      "dates_failed_total",
			Help:      "Total observation dates that failed and were left unrecorded.",
		}),
		BasinsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "snodas_etl",
			Name:      "basins_processed_total",
			Help:      "Total basin records derived across all dates.",
		}),
		RunActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "snodas_etl",
			Name:      "run_active",
			Help:      "1 while a backlog run is in progress, 0 otherwise.",
		}),
		DateProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "snodas_etl",
			Name:      "date_processing_duration_seconds",
			Help:      "Duration of a complete single-date download-aggregate-store cycle.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		ZonalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "snodas_etl",
			Name:      "zonal_duration_seconds",
			Help:      "Duration of zonal statistics for one basin.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		DownloadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "snodas_etl",
			Name:      "download_duration_seconds",
			Help:      "Duration of a SNODAS archive download.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		Downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "snodas_etl",
			Name:      "downloads_total",
			Help:      "SNODAS archive downloads by outcome.",
		}, []string{"outcome"}),
		StoreWriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "snodas_etl",
			Name:      "store_write_errors_total",
			Help:      "Failed store writes; the previous file version is left in place.",
		}),
		WeekChangeMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "snodas_etl",
			Name:      "week_change_misses_total",
			Help:      "Week-change lookups that found no prior data and emitted a null.",
		}),
		PublishOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "snodas_etl",
			Name:      "publish_total",
			Help:      "Product publishes by sink and outcome.",
		}, []string{"sink", "outcome"}),
	}

	prometheus.MustRegister(
		m.DatesProcessed,
		m.DatesFailed,
		m.BasinsProcessed,
		m.RunActive,
		m.DateProcessingDuration,
		m.ZonalDuration,
		m.DownloadDuration,
		m.Downloads,
		m.StoreWriteErrors,
		m.WeekChangeMisses,
		m.PublishOutcomes,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		DatesProcessed:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "snodas_etl", Name: "dates_processed_total"}),
		DatesFailed:            prometheus.NewCounter(prometheus.CounterOpts{Namespace: "snodas_etl", Name: "dates_failed_total"}),
		BasinsProcessed:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "snodas_etl", Name: "basins_processed_total"}),
		RunActive:              prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "snodas_etl", Name: "run_active"}),
		DateProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "snodas_etl", Name: "date_processing_duration_seconds"}),
		ZonalDuration:          prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "snodas_etl", Name: "zonal_duration_seconds"}),
		DownloadDuration:       prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "snodas_etl", Name: "download_duration_seconds"}),
		Downloads:              prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "snodas_etl", Name: "downloads_total"}, []string{"outcome"}),
		StoreWriteErrors:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "snodas_etl", Name: "store_write_errors_total"}),
		WeekChangeMisses:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "snodas_etl", Name: "week_change_misses_total"}),
		PublishOutcomes:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "snodas_etl", Name: "publish_total"}, []string{"sink", "outcome"}),
	}
}
