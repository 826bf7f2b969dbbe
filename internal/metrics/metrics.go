// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gradebook_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gradebook_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Grades
	GradeMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gradebook_grade_mutations_total",
			Help: "Committed grade mutations by action",
		},
		[]string{"action"},
	)

	ImportRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gradebook_import_rows_total",
			Help: "Bulk import rows by outcome (created, invalid, rolled_back)",
		},
		[]string{"outcome"},
	)

	// Backups
	BackupRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gradebook_backup_runs_total",
			Help: "Backup runs by result (success, failure, skipped)",
		},
		[]string{"result"},
	)

	BackupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gradebook_backup_duration_seconds",
			Help:    "Duration of successful backups",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)

	// Activity log pipeline
	ActivityFlushed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gradebook_activity_flushed_total",
			Help: "Activity log records persisted by path (copy, fallback) or requeued",
		},
		[]string{"path"},
	)

	WSClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gradebook_ws_history_clients",
			Help: "Connected grade-history WebSocket clients",
		},
	)
)

// RecordAPIRequest records one served request.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordGradeMutation counts a committed create, update or delete.
func RecordGradeMutation(action string) {
	GradeMutations.WithLabelValues(action).Inc()
}

// RecordImport counts the rows of one bulk import.
func RecordImport(created, invalid, rolledBack int) {
	ImportRows.WithLabelValues("created").Add(float64(created))
	ImportRows.WithLabelValues("invalid").Add(float64(invalid))
	ImportRows.WithLabelValues("rolled_back").Add(float64(rolledBack))
}

// RecordBackup counts one backup run.
func RecordBackup(result string, duration time.Duration) {
	BackupRuns.WithLabelValues(result).Inc()
	if result == "success" {
		BackupDuration.Observe(duration.Seconds())
	}
}
