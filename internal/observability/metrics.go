package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "geomag_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL pipeline.
type Metrics struct {
	FilesProcessed  prometheus.Counter
	FilesFailed     prometheus.Counter
	RecordsParsed   prometheus.Counter
	DateErrors      prometheus.Counter
	DailyRows       prometheus.Counter
	ResampledRows   *prometheus.CounterVec // labels: quantity={field,sv}, period={monthly,annual}
	RowsPublished   prometheus.Counter
	LoadErrors      *prometheus.CounterVec // labels: loader
	MergeConflicts  prometheus.Counter
	MaskedValues    *prometheus.CounterVec // labels: reason={disturbed,unindexed,excluded}
	PipelineRunning prometheus.Gauge

	FileProcessingDuration prometheus.Histogram
	RunDuration            prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FilesProcessed,
		m.FilesFailed,
		m.RecordsParsed,
		m.DateErrors,
		m.DailyRows,
		m.ResampledRows,
		m.RowsPublished,
		m.LoadErrors,
		m.MergeConflicts,
		m.MaskedValues,
		m.PipelineRunning,
		m.FileProcessingDuration,
		m.RunDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FilesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_processed_total",
			Help:      "WDC files parsed and converted successfully.",
		}),
		FilesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_failed_total",
			Help:      "WDC files rejected because of a parse or read error.",
		}),
		RecordsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_parsed_total",
			Help:      "Hourly-mean day records read from WDC files.",
		}),
		DateErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "date_errors_total",
			Help:      "Records skipped because of an impossible calendar date.",
		}),
		DailyRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "daily_rows_total",
			Help:      "Daily X/Y/Z rows produced after merging files.",
		}),
		ResampledRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resampled_rows_total",
			Help:      "Period mean and secular variation rows produced.",
		}, []string{"quantity", "period"}),
		RowsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_published_total",
			Help:      "Series rows written to the sink topic.",
		}),
		LoadErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_errors_total",
			Help:      "Failed deliveries of observatory products by loader.",
		}, []string{"loader"}),
		MergeConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "merge_conflicts_total",
			Help:      "Days reported by more than one file for the same observatory.",
		}),
		MaskedValues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "masked_values_total",
			Help:      "Daily values blanked by the activity filter or the exclusion list.",
		}, []string{"reason"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a batch run is in progress, 0 otherwise.",
		}),
		FileProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "file_processing_duration_seconds",
			Help:      "Time to read, parse and convert one WDC file.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete batch run.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}),
	}
}
