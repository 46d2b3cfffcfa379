// Package metrics holds the process-wide prometheus collectors for the pipeline
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingest pipeline metrics

	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "driftwatch_ingest_batches_total",
			Help: "Source batches processed, by outcome",
		},
		[]string{"status"}, // ok | empty | failed | skipped
	)

	RowsSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "driftwatch_ingest_rows_skipped_total",
			Help: "Malformed source rows skipped during parsing",
		},
	)

	RecordsAppendedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "driftwatch_ingest_records_appended_total",
			Help: "Entity mention records appended to the discovery log",
		},
	)

	FetchRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "driftwatch_ingest_fetch_retries_total",
			Help: "Transient fetch faults that triggered a backoff retry",
		},
	)

	// Baseline build metrics

	BaselineBuildSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "driftwatch_baseline_build_duration_seconds",
			Help:    "Duration of full baseline snapshot builds",
			Buckets: prometheus.DefBuckets,
		},
	)

	BaselineEntities = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "driftwatch_baseline_entities",
			Help: "Entities in the latest baseline snapshot",
		},
		[]string{"state"}, // defined | undefined
	)

	// Online detection metrics

	BucketsScoredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "driftwatch_detect_buckets_scored_total",
			Help: "Closed time buckets scored against the baseline",
		},
	)

	AlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "driftwatch_detect_alerts_total",
			Help: "Anomaly alerts, by disposition",
		},
		[]string{"disposition"}, // emitted | suppressed_cold_start | dropped_sink
	)
)
