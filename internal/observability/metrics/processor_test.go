package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessorMetricsRecord(t *testing.T) {
	t.Parallel()

	m, err := NewProcessorMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordRun(RunDetections, 1.5, 1700000000)
	m.RecordRun(RunEmpty, 0.2, 1700000100)
	m.RecordLabel("matched-and-routed")
	m.RecordFile(KindImage, ActionMoved)
	m.RecordFile(KindVideo, ActionMoved)
	m.RecordFile(KindVideo, ActionMoved)
	m.RecordDetection("dog")
	m.RecordNotification("pushover", "success")
	m.RecordDetector(3)

	assert.InDelta(t, 1, testutil.ToFloat64(m.runsTotal.WithLabelValues(RunDetections)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.runsTotal.WithLabelValues(RunEmpty)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.filesTotal.WithLabelValues(KindVideo, ActionMoved)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.notificationsTotal.WithLabelValues("pushover", "success")), 0)
	assert.InDelta(t, 1700000100, testutil.ToFloat64(m.lastRunTimestampSecond), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.detectorDuration))
}

func TestProcessorMetricsDoubleRegister(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewProcessorMetrics(reg)
	require.NoError(t, err)

	_, err = NewProcessorMetrics(reg)
	require.Error(t, err)
}

func TestRetentionMetricsRecord(t *testing.T) {
	t.Parallel()

	m, err := NewRetentionMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordDeleted(KindImage, 1024)
	m.RecordDeleted(KindVideo, 2048)
	m.RecordSkipped("min_files")
	m.RecordCleanup("success", 0.05)

	assert.InDelta(t, 3072, testutil.ToFloat64(m.bytesFreedTotal), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.filesSkippedTotal.WithLabelValues("min_files")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.cleanupOperationsTotal.WithLabelValues("success")), 0)
}
