// Package watcher triggers processing runs when motion writes new still images.
//
// Events are debounced so a burst of captures from one event becomes a single run,
// and runs never overlap: they execute on the watcher's own goroutine.
package watcher

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tphakala/motionsort/internal/errors"
	"github.com/tphakala/motionsort/internal/logger"
)

// DefaultDebounce is used when Config.Debounce is zero.
const DefaultDebounce = 2 * time.Second

// RunFunc performs one processing run.
type RunFunc func(ctx context.Context) error

// Config controls what is watched and how often runs may happen.
type Config struct {
	Dir        string        // directory motion writes still images into
	Ext        string        // only files with this extension trigger a run, empty means any
	Debounce   time.Duration // quiet period after the last event before a run
	Interval   time.Duration // fallback poll, 0 disables
	RunOnStart bool          // run once before waiting for events

	// Pending reports whether captures are waiting. The interval poll skips the run
	// when it returns false. Nil always runs.
	Pending func() bool
}

// Watcher runs RunFunc after new images settle.
type Watcher struct {
	cfg  Config
	run  RunFunc
	log  logger.Logger
	runs int
}

// Option customizes a Watcher.
type Option func(*Watcher)

// WithLogger overrides the package logger.
func WithLogger(l logger.Logger) Option {
	return func(w *Watcher) { w.log = l }
}

// New returns a Watcher.
func New(cfg Config, run RunFunc, opts ...Option) *Watcher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	w := &Watcher{cfg: cfg, run: run, log: GetLogger()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is done. It returns an error only when the directory cannot
// be watched; failed runs are logged and the watcher keeps going.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.New(err).
			Component("watcher").
			Category(errors.CategoryFileIO).
			Context("operation", "create_watcher").
			Build()
	}
	defer func() {
		if err := fsw.Close(); err != nil {
			w.log.Warn("failed to close file watcher", logger.Error(err))
		}
	}()

	if err := fsw.Add(w.cfg.Dir); err != nil {
		return errors.New(err).
			Component("watcher").
			Category(errors.CategoryFileIO).
			Context("operation", "watch_directory").
			Context("dir", w.cfg.Dir).
			Build()
	}

	log := w.log.WithContext(ctx)
	log.Info("watching for new captures",
		logger.String("dir", w.cfg.Dir),
		logger.Duration("debounce", w.cfg.Debounce),
		logger.Duration("interval", w.cfg.Interval))

	if w.cfg.RunOnStart {
		w.runOnce(ctx, "startup")
	}

	debounce := time.NewTimer(w.cfg.Debounce)
	stopTimer(debounce)
	defer debounce.Stop()

	var poll <-chan time.Time
	if w.cfg.Interval > 0 {
		ticker := time.NewTicker(w.cfg.Interval)
		defer ticker.Stop()
		poll = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			log.Info("watcher stopped", logger.Int("runs", w.runs))
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			log.Debug("capture event", logger.String("path", ev.Name), logger.String("op", ev.Op.String()))
			debounce.Reset(w.cfg.Debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Warn("file watcher error", logger.Error(err))

		case <-debounce.C:
			w.runOnce(ctx, "event")

		case <-poll:
			if w.cfg.Pending != nil && !w.cfg.Pending() {
				continue
			}
			w.runOnce(ctx, "interval")
		}
	}
}

func (w *Watcher) runOnce(ctx context.Context, trigger string) {
	w.runs++
	log := w.log.WithContext(ctx)
	start := time.Now()

	if err := w.run(ctx); err != nil {
		log.Error("run failed",
			logger.String("trigger", trigger),
			logger.Error(err),
			logger.Duration("duration", time.Since(start)))
		return
	}
	log.Debug("run finished",
		logger.String("trigger", trigger),
		logger.Duration("duration", time.Since(start)))
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return false
	}
	if w.cfg.Ext == "" {
		return true
	}
	return strings.EqualFold(filepath.Ext(ev.Name), w.cfg.Ext)
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}
