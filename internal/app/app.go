// Package app holds the state shared by the motionsort commands: loaded settings,
// the logger, telemetry and metrics, and the factories that wire them into the
// processor, the retention cleaner and the notification service.
package app

import (
	"context"

	"github.com/google/uuid"

	"github.com/tphakala/motionsort/internal/buildinfo"
	"github.com/tphakala/motionsort/internal/conf"
	"github.com/tphakala/motionsort/internal/diskmanager"
	"github.com/tphakala/motionsort/internal/errors"
	"github.com/tphakala/motionsort/internal/logger"
	"github.com/tphakala/motionsort/internal/notification"
	"github.com/tphakala/motionsort/internal/observability"
	"github.com/tphakala/motionsort/internal/privacy"
	"github.com/tphakala/motionsort/internal/processor"
	"github.com/tphakala/motionsort/internal/store"
)

// Context is the application state built once per invocation.
type Context struct {
	Settings *conf.Settings
	Build    *buildinfo.Context
	Metrics  *observability.Metrics

	store       *store.Store
	central     *logger.CentralLogger
	flushSentry func()
}

// New returns an empty Context. Setup fills it in.
func New(build *buildinfo.Context) *Context {
	return &Context{Build: build, flushSentry: func() {}}
}

// Setup loads settings from configFile (empty searches the default paths) and
// initializes logging, Sentry and metrics.
func (a *Context) Setup(configFile string) error {
	settings, err := conf.Load(configFile)
	if err != nil {
		return err
	}
	a.Settings = settings

	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return errors.New(err).
			Component("app").
			Category(errors.CategoryConfiguration).
			Context("operation", "setup_logging").
			Build()
	}
	logger.SetGlobal(central)
	a.central = central

	errors.SetPrivacyScrubber(privacy.ScrubMessage)
	if settings.Telemetry.Sentry.Enabled {
		flush, err := errors.InitSentry(settings.Telemetry.Sentry.DSN, a.Build.Release())
		if err != nil {
			// telemetry is optional, keep going without it
			GetLogger().Warn("sentry disabled", logger.Error(err))
		} else {
			a.flushSentry = flush
		}
	}

	a.Metrics, err = observability.NewMetrics()
	if err != nil {
		return err
	}

	a.store = store.NewOS(store.WithDryRun(settings.Routing.DryRun))
	return nil
}

// Store returns the filesystem store, dry-run aware.
func (a *Context) Store() *store.Store {
	return a.store
}

// TraceContext returns ctx carrying a fresh trace id for one run.
func (a *Context) TraceContext(ctx context.Context) context.Context {
	return logger.WithTraceID(ctx, uuid.NewString())
}

// NotificationService builds the configured providers with metrics attached.
func (a *Context) NotificationService() (*notification.Service, error) {
	return notification.NewServiceFromSettings(&a.Settings.Notification, a.store.Fs(),
		notification.WithObserver(a.Metrics.Processor))
}

// ProcessorConfig maps settings onto the run configuration.
func (a *Context) ProcessorConfig() processor.Config {
	cfg := processor.NewConfig(a.Settings)
	if cfg.NotifyTitle == "" {
		cfg.NotifyTitle = a.Settings.Main.Name
	}
	return cfg
}

// Processor builds a processor with the settings-driven notifier and metrics.
func (a *Context) Processor() (*processor.Processor, error) {
	svc, err := a.NotificationService()
	if err != nil {
		return nil, err
	}
	return processor.New(a.ProcessorConfig(), a.store,
		processor.WithNotifier(svc),
		processor.WithRecorder(a.Metrics.Processor))
}

// Cleaner builds the retention cleaner for the output directory.
func (a *Context) Cleaner() (*diskmanager.Cleaner, error) {
	policy, err := diskmanager.PolicyFromSettings(&a.Settings.Retention)
	if err != nil {
		return nil, err
	}
	c := a.Settings.Capture
	return diskmanager.NewCleaner(a.store, c.OutputDir, c.ImageExt, c.VideoExt, policy,
		diskmanager.WithRecorder(a.Metrics.Retention)), nil
}

// WriteMetrics exports the registry when a textfile path is configured.
func (a *Context) WriteMetrics() {
	if a.Metrics == nil || a.Settings == nil || !a.Settings.Telemetry.Metrics.Enabled {
		return
	}
	path := a.Settings.Telemetry.Metrics.Textfile
	if path == "" {
		return
	}
	if err := a.Metrics.WriteTextfile(path); err != nil {
		GetLogger().Warn("failed to write metrics textfile", logger.String("path", path), logger.Error(err))
	}
}

// Close flushes telemetry and the log file.
func (a *Context) Close() {
	a.flushSentry()
	if a.central != nil {
		_ = a.central.Flush()
		_ = a.central.Close()
	}
}

// GetLogger returns the app module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("app")
}
