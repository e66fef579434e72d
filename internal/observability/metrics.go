package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "space_weather"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// forecasting pipeline.
type Metrics struct {
	PipelineRunning  prometheus.Gauge
	PipelineDuration prometheus.Histogram
	SamplesGenerated prometheus.Counter
	FeatureColumns   prometheus.Gauge

	// Model metrics.
	TrainingDuration *prometheus.HistogramVec // labels: model
	EvaluationScore  *prometheus.GaugeVec     // labels: model, metric={accuracy,precision,recall,f1,rmse,r2}

	// Collector metrics.
	SourceFetches     *prometheus.CounterVec   // labels: source, outcome={success,error}
	SourceCache       *prometheus.CounterVec   // labels: result={hit,miss}
	SourceAPIDuration *prometheus.HistogramVec // labels: source
	CollectorEnabled  prometheus.Gauge

	// Output metrics.
	AlertsIssued *prometheus.CounterVec // labels: level
	RowsExported *prometheus.CounterVec // labels: table, format
	SinkErrors   *prometheus.CounterVec // labels: sink={kafka,clickhouse}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.PipelineRunning,
		m.PipelineDuration,
		m.SamplesGenerated,
		m.FeatureColumns,
		m.TrainingDuration,
		m.EvaluationScore,
		m.SourceFetches,
		m.SourceCache,
		m.SourceAPIDuration,
		m.CollectorEnabled,
		m.AlertsIssued,
		m.RowsExported,
		m.SinkErrors,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid "already
// registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a forecasting run is in progress, 0 otherwise.",
		}),
		PipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Duration of a complete forecasting run.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		SamplesGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthetic_samples_total",
			Help:      "Total synthetic observation rows generated.",
		}),
		FeatureColumns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feature_columns",
			Help:      "Numeric columns in the engineered feature table.",
		}),
		TrainingDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "training_duration_seconds",
			Help:      "Model training duration in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}, []string{"model"}),
		EvaluationScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "evaluation_score",
			Help:      "Held-out evaluation score by model and metric.",
		}, []string{"model", "metric"}),
		SourceFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_fetches_total",
			Help:      "Upstream source collections by source and outcome.",
		}, []string{"source", "outcome"}),
		SourceCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_cache_total",
			Help:      "Upstream response cache lookups by result.",
		}, []string{"result"}),
		SourceAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_api_duration_seconds",
			Help:      "Upstream API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		CollectorEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "collector_enabled",
			Help:      "1 when real-time collection is enabled, 0 otherwise.",
		}),
		AlertsIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_issued_total",
			Help:      "Alerts generated by level.",
		}, []string{"level"}),
		RowsExported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_exported_total",
			Help:      "Rows written to output tables by table and format.",
		}, []string{"table", "format"}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Failed deliveries to downstream sinks.",
		}, []string{"sink"}),
	}
}
