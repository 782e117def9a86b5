// Package metrics holds the per-run counters of the pipeline stages and
// exports them in the node-exporter textfile format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wikiedits"

// Metrics is a fresh registry per command run.
type Metrics struct {
	registry *prometheus.Registry

	APIRequests     *prometheus.CounterVec
	APIDuration     prometheus.Histogram
	Revisions       *prometheus.CounterVec
	Articles        *prometheus.CounterVec
	FilterRevisions *prometheus.CounterVec
	DiffPairs       *prometheus.CounterVec
	Artifacts       *prometheus.CounterVec
	SentencePairs   *prometheus.CounterVec
	StageDuration   *prometheus.GaugeVec
	LastSuccess     *prometheus.GaugeVec
}

// New creates and registers the pipeline metrics.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crawler",
			Name:      "api_requests_total",
			Help:      "MediaWiki API requests by outcome.",
		}, []string{"outcome"}),
		APIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "crawler",
			Name:      "api_request_duration_seconds",
			Help:      "MediaWiki API request latency, including retries.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		Revisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crawler",
			Name:      "revisions_total",
			Help:      "Crawled revisions by outcome.",
		}, []string{"outcome"}),
		Articles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_total",
			Help:      "Articles by stage and outcome.",
		}, []string{"stage", "outcome"}),
		FilterRevisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "filter",
			Name:      "revisions_total",
			Help:      "Raw revisions by filter outcome.",
		}, []string{"outcome"}),
		DiffPairs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "differ",
			Name:      "pairs_total",
			Help:      "Revision pairs by diff outcome.",
		}, []string{"outcome"}),
		Artifacts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "parser",
			Name:      "artifacts_total",
			Help:      "Diff artifacts by parse outcome.",
		}, []string{"outcome"}),
		SentencePairs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "parser",
			Name:      "sentence_pairs_total",
			Help:      "Sentence pairs written by edit type.",
		}, []string{"edit_type"}),
		StageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of the last run of a stage.",
		}, []string{"stage"}),
		LastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run of a stage.",
		}, []string{"stage"}),
	}

	m.registry.MustRegister(
		m.APIRequests,
		m.APIDuration,
		m.Revisions,
		m.Articles,
		m.FilterRevisions,
		m.DiffPairs,
		m.Artifacts,
		m.SentencePairs,
		m.StageDuration,
		m.LastSuccess,
	)

	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveStage records the duration of a stage and, on success, its completion time.
func (m *Metrics) ObserveStage(stage string, started time.Time, err error) {
	m.StageDuration.WithLabelValues(stage).Set(time.Since(started).Seconds())

	if err == nil {
		m.LastSuccess.WithLabelValues(stage).SetToCurrentTime()
	}
}

// WriteTextfile writes all metrics to path in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}

	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}

	return nil
}
