package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// RetentionMetrics records age-based cleanup of the output directory.
type RetentionMetrics struct {
	cleanupOperationsTotal *prometheus.CounterVec
	filesDeletedTotal      *prometheus.CounterVec
	bytesFreedTotal        prometheus.Counter
	filesSkippedTotal      *prometheus.CounterVec
	cleanupDurationSeconds prometheus.Histogram
}

// NewRetentionMetrics creates the collectors and registers them with registry.
func NewRetentionMetrics(registry prometheus.Registerer) (*RetentionMetrics, error) {
	m := &RetentionMetrics{
		cleanupOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "motionsort_retention_cleanup_operations_total",
				Help: "Retention passes by status",
			},
			[]string{"status"}, // success, error
		),
		filesDeletedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "motionsort_retention_files_deleted_total",
				Help: "Files deleted by the retention policy",
			},
			[]string{"kind"},
		),
		bytesFreedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "motionsort_retention_bytes_freed_total",
			Help: "Bytes freed by the retention policy",
		}),
		filesSkippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "motionsort_retention_files_skipped_total",
				Help: "Files the retention policy left in place, by reason",
			},
			[]string{"reason"}, // unparsable, min_files, max_deletions
		),
		cleanupDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "motionsort_retention_cleanup_duration_seconds",
			Help:    "Time taken by a retention pass",
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount10),
		}),
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Describe implements the Collector interface
func (m *RetentionMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.cleanupOperationsTotal.Describe(ch)
	m.filesDeletedTotal.Describe(ch)
	m.bytesFreedTotal.Describe(ch)
	m.filesSkippedTotal.Describe(ch)
	m.cleanupDurationSeconds.Describe(ch)
}

// Collect implements the Collector interface
func (m *RetentionMetrics) Collect(ch chan<- prometheus.Metric) {
	m.cleanupOperationsTotal.Collect(ch)
	m.filesDeletedTotal.Collect(ch)
	m.bytesFreedTotal.Collect(ch)
	m.filesSkippedTotal.Collect(ch)
	m.cleanupDurationSeconds.Collect(ch)
}

// RecordCleanup records a finished pass.
func (m *RetentionMetrics) RecordCleanup(status string, seconds float64) {
	m.cleanupOperationsTotal.WithLabelValues(status).Inc()
	m.cleanupDurationSeconds.Observe(seconds)
}

// RecordDeleted records a deleted file.
func (m *RetentionMetrics) RecordDeleted(kind string, bytes int64) {
	m.filesDeletedTotal.WithLabelValues(kind).Inc()
	m.bytesFreedTotal.Add(float64(bytes))
}

// RecordSkipped records a file left in place.
func (m *RetentionMetrics) RecordSkipped(reason string) {
	m.filesSkippedTotal.WithLabelValues(reason).Inc()
}
