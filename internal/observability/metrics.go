// Package observability owns the prometheus registry and exports it for the
// node_exporter textfile collector.
package observability

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tphakala/motionsort/internal/errors"
	"github.com/tphakala/motionsort/internal/observability/metrics"
)

// Metrics holds all collectors in a private registry.
type Metrics struct {
	registry  *prometheus.Registry
	Processor *metrics.ProcessorMetrics
	Retention *metrics.RetentionMetrics
}

// NewMetrics creates the registry and all collectors.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	processorMetrics, err := metrics.NewProcessorMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create processor metrics: %w", err)
	}

	retentionMetrics, err := metrics.NewRetentionMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create retention metrics: %w", err)
	}

	return &Metrics{
		registry:  registry,
		Processor: processorMetrics,
		Retention: retentionMetrics,
	}, nil
}

// Registry exposes the registry, e.g. for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the registry in text exposition format. The file is replaced
// atomically so node_exporter never reads a partial file.
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.New(err).
			Component("observability").
			Category(errors.CategoryFileIO).
			Context("operation", "mkdir_textfile_dir").
			Build()
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.New(err).
			Component("observability").
			Category(errors.CategoryFileIO).
			Context("operation", "write_textfile").
			Context("path", path).
			Build()
	}
	GetLogger().Debug("metrics textfile written")
	return nil
}
