package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineCollector exposes Prometheus metrics for the curation pipeline.
type PipelineCollector struct {
	registry      *prometheus.Registry
	itemsIngested *prometheus.CounterVec
	sourceErrors  *prometheus.CounterVec
	stageOutcomes *prometheus.CounterVec
	oracleLatency *prometheus.HistogramVec
	runDuration   prometheus.Histogram
	activeCount   prometheus.Gauge
}

// NewPipelineCollector constructs a collector with its own registry.
func NewPipelineCollector() (*PipelineCollector, error) {
	registry := prometheus.NewRegistry()

	itemsIngested := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "townwire",
		Subsystem: "pipeline",
		Name:      "items_ingested_total",
		Help:      "Raw items inserted per content source.",
	}, []string{"source"})

	sourceErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "townwire",
		Subsystem: "pipeline",
		Name:      "source_errors_total",
		Help:      "Fetch failures per content source.",
	}, []string{"source"})

	stageOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "townwire",
		Subsystem: "pipeline",
		Name:      "stage_outcomes_total",
		Help:      "Per-item outcomes by pipeline stage.",
	}, []string{"stage", "outcome"})

	oracleLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "townwire",
		Subsystem: "oracle",
		Name:      "call_duration_seconds",
		Help:      "Latency distribution for oracle calls by stage.",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
	}, []string{"stage"})

	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "townwire",
		Subsystem: "pipeline",
		Name:      "run_duration_seconds",
		Help:      "Wall time of full campaign runs.",
		Buckets:   prometheus.ExponentialBuckets(5, 2, 10),
	})

	activeCount := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "townwire",
		Subsystem: "pipeline",
		Name:      "active_articles",
		Help:      "Active article count of the most recent campaign run.",
	})

	for _, c := range []prometheus.Collector{itemsIngested, sourceErrors, stageOutcomes, oracleLatency, runDuration, activeCount} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return &PipelineCollector{
		registry:      registry,
		itemsIngested: itemsIngested,
		sourceErrors:  sourceErrors,
		stageOutcomes: stageOutcomes,
		oracleLatency: oracleLatency,
		runDuration:   runDuration,
		activeCount:   activeCount,
	}, nil
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func (c *PipelineCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ItemIngested increments the per-source ingest counter.
func (c *PipelineCollector) ItemIngested(source string) {
	c.itemsIngested.WithLabelValues(source).Inc()
}

// SourceError increments the per-source fetch failure counter.
func (c *PipelineCollector) SourceError(source string) {
	c.sourceErrors.WithLabelValues(source).Inc()
}

// StageOutcome records one per-item outcome, e.g. ("factcheck", "passed").
func (c *PipelineCollector) StageOutcome(stage, outcome string) {
	c.stageOutcomes.WithLabelValues(stage, outcome).Inc()
}

// OracleCall records the latency of one oracle round trip.
func (c *PipelineCollector) OracleCall(stage string, d time.Duration) {
	c.oracleLatency.WithLabelValues(stage).Observe(d.Seconds())
}

// RunCompleted records a full pipeline run.
func (c *PipelineCollector) RunCompleted(d time.Duration, activeArticles int) {
	c.runDuration.Observe(d.Seconds())
	c.activeCount.Set(float64(activeArticles))
}
