package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ProcessorMetrics records detection runs and what they did to the capture files.
type ProcessorMetrics struct {
	runsTotal              *prometheus.CounterVec
	labelsTotal            *prometheus.CounterVec
	filesTotal             *prometheus.CounterVec
	notificationsTotal     *prometheus.CounterVec
	detectionsTotal        *prometheus.CounterVec
	detectorDuration       prometheus.Histogram
	runDuration            prometheus.Histogram
	lastRunTimestampSecond prometheus.Gauge
}

// NewProcessorMetrics creates the collectors and registers them with registry.
func NewProcessorMetrics(registry prometheus.Registerer) (*ProcessorMetrics, error) {
	m := &ProcessorMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ProcessorMetrics) initMetrics() {
	m.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "motionsort_runs_total",
			Help: "Detection runs by resulting state",
		},
		[]string{"state"}, // detections, empty, failed
	)

	m.labelsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "motionsort_labels_total",
			Help: "Label files processed by routing outcome",
		},
		[]string{"outcome"},
	)

	m.filesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "motionsort_files_total",
			Help: "Capture files handled by kind and action",
		},
		[]string{"kind", "action"},
	)

	m.notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "motionsort_notifications_total",
			Help: "Notification attempts by provider and status",
		},
		[]string{"provider", "status"},
	)

	m.detectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "motionsort_detections_total",
			Help: "Objects reported in label files by class",
		},
		[]string{"class"},
	)

	m.detectorDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "motionsort_detector_duration_seconds",
		Help:    "Wall time of the external detector",
		Buckets: prometheus.ExponentialBuckets(BucketStart100ms, BucketFactor2, BucketCount12), // 100ms to ~3.4min
	})

	m.runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "motionsort_run_duration_seconds",
		Help:    "Wall time of a full run, detector included",
		Buckets: prometheus.ExponentialBuckets(BucketStart100ms, BucketFactor2, BucketCount12),
	})

	m.lastRunTimestampSecond = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "motionsort_last_run_timestamp_seconds",
		Help: "Unix time the last run finished",
	})
}

// Describe implements the Collector interface
func (m *ProcessorMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.runsTotal.Describe(ch)
	m.labelsTotal.Describe(ch)
	m.filesTotal.Describe(ch)
	m.notificationsTotal.Describe(ch)
	m.detectionsTotal.Describe(ch)
	m.detectorDuration.Describe(ch)
	m.runDuration.Describe(ch)
	m.lastRunTimestampSecond.Describe(ch)
}

// Collect implements the Collector interface
func (m *ProcessorMetrics) Collect(ch chan<- prometheus.Metric) {
	m.runsTotal.Collect(ch)
	m.labelsTotal.Collect(ch)
	m.filesTotal.Collect(ch)
	m.notificationsTotal.Collect(ch)
	m.detectionsTotal.Collect(ch)
	m.detectorDuration.Collect(ch)
	m.runDuration.Collect(ch)
	m.lastRunTimestampSecond.Collect(ch)
}

// RecordRun records a finished run.
func (m *ProcessorMetrics) RecordRun(state string, seconds float64, finishedUnix float64) {
	m.runsTotal.WithLabelValues(state).Inc()
	m.runDuration.Observe(seconds)
	m.lastRunTimestampSecond.Set(finishedUnix)
}

// RecordDetector records the detector wall time.
func (m *ProcessorMetrics) RecordDetector(seconds float64) {
	m.detectorDuration.Observe(seconds)
}

// RecordLabel records one label's routing outcome.
func (m *ProcessorMetrics) RecordLabel(outcome string) {
	m.labelsTotal.WithLabelValues(outcome).Inc()
}

// RecordFile records one file operation.
func (m *ProcessorMetrics) RecordFile(kind, action string) {
	m.filesTotal.WithLabelValues(kind, action).Inc()
}

// RecordDetection records one object read from a label file.
func (m *ProcessorMetrics) RecordDetection(class string) {
	m.detectionsTotal.WithLabelValues(class).Inc()
}

// RecordNotification implements notification.Observer.
func (m *ProcessorMetrics) RecordNotification(provider, status string) {
	m.notificationsTotal.WithLabelValues(provider, status).Inc()
}
