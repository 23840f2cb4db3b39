// Package metrics provides Prometheus metrics for the Fern service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal tracks reconciliation runs by outcome
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "reconciliation",
			Name:      "runs_total",
			Help:      "Total number of reconciliation runs by outcome",
		},
		[]string{"status", "dry_run"},
	)

	// RunDuration tracks reconciliation run duration in seconds
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "reconciliation",
			Name:      "run_duration_seconds",
			Help:      "Duration of reconciliation runs in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
	)

	// SourceRowsTotal tracks rows read per source
	SourceRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "sources",
			Name:      "rows_total",
			Help:      "Total number of rows read per source",
		},
		[]string{"source"},
	)

	// RowsDroppedTotal tracks rows discarded before resolution
	RowsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "sources",
			Name:      "rows_dropped_total",
			Help:      "Total number of rows discarded for missing amount or counterparty",
		},
	)

	// UnresolvedNamesTotal tracks names no registry entry matched
	UnresolvedNamesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "resolution",
			Name:      "unresolved_names_total",
			Help:      "Total number of free-text names left unresolved",
		},
		[]string{"kind"},
	)

	// EntriesTotal tracks sync decisions per action
	EntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "sync",
			Name:      "entries_total",
			Help:      "Total number of schedule entries by sync action",
		},
		[]string{"action"},
	)

	// EntriesByStatus tracks the status distribution of the latest run
	EntriesByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "fern",
			Subsystem: "sync",
			Name:      "entries_by_status",
			Help:      "Schedule entries produced by the latest run, per status",
		},
		[]string{"status"},
	)

	// KafkaMessagesPublished tracks Kafka messages published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)
)

// RecordRun records a finished reconciliation run
func RecordRun(status string, dryRun string, durationSeconds float64) {
	RunsTotal.WithLabelValues(status, dryRun).Inc()
	RunDuration.Observe(durationSeconds)
}

// RecordKafkaPublish records a Kafka publish operation
func RecordKafkaPublish(topic, status string, count int) {
	KafkaMessagesPublished.WithLabelValues(topic, status).Add(float64(count))
}

// RecordSyncActions records the decisions of one sync plan
func RecordSyncActions(inserted, updated, unchanged int) {
	EntriesTotal.WithLabelValues("insert").Add(float64(inserted))
	EntriesTotal.WithLabelValues("update").Add(float64(updated))
	EntriesTotal.WithLabelValues("unchanged").Add(float64(unchanged))
}
