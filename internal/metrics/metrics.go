package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediacat_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediacat_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)
)

// Sync metrics
var (
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediacat_sync_runs_total",
			Help: "Total number of library sync runs",
		},
		[]string{"mode", "status"},
	)

	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mediacat_sync_duration_seconds",
			Help:    "Library sync duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	SyncFilesAdded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mediacat_sync_files_added_total",
			Help: "Files added to the catalog by sync runs",
		},
	)

	SyncFilesRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mediacat_sync_files_removed_total",
			Help: "Files removed from the catalog by sync runs",
		},
	)

	SyncDirectoriesMoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mediacat_sync_directories_moved_total",
			Help: "Directory moves detected during sync runs",
		},
	)
)

// Batch pipeline metrics
var (
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediacat_pipeline_runs_total",
			Help: "Total number of batch pipeline runs",
		},
		[]string{"operation", "status"},
	)

	PipelineItemsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediacat_pipeline_items_processed_total",
			Help: "Items processed by batch pipeline runs",
		},
		[]string{"operation"},
	)

	PipelineItemErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediacat_pipeline_item_errors_total",
			Help: "Per-item errors encountered by batch pipeline runs",
		},
		[]string{"operation"},
	)

	PipelineRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediacat_pipeline_running",
			Help: "Whether a batch pipeline operation is currently running (1 or 0)",
		},
	)
)
