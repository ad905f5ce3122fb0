// Package processor runs the detector over pending captures and routes the results.
//
// A run has two branches. When the detector wrote no label files every pending image and
// clip is purged. Otherwise each label file is handled on its own: the image and the
// clips recorded within the tolerance window at the same location are moved to the
// output directory, a notification is sent, the annotated copy is deleted or kept, and
// the label file is deleted last. Runs are synchronous; nothing is rolled back.
package processor

import (
	"context"
	"fmt"
	"iter"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/tphakala/motionsort/internal/capture"
	"github.com/tphakala/motionsort/internal/detector"
	"github.com/tphakala/motionsort/internal/errors"
	"github.com/tphakala/motionsort/internal/logger"
	"github.com/tphakala/motionsort/internal/notification"
	"github.com/tphakala/motionsort/internal/observability/metrics"
	"github.com/tphakala/motionsort/internal/store"
)

const labelPattern = "*.txt"

// Notifier delivers a notification. notification.Service implements it.
type Notifier interface {
	Notify(ctx context.Context, n *notification.Notification) error
}

// Recorder receives run metrics. metrics.ProcessorMetrics implements it.
type Recorder interface {
	RecordRun(state string, seconds, finishedUnix float64)
	RecordDetector(seconds float64)
	RecordLabel(outcome string)
	RecordFile(kind, action string)
	RecordDetection(class string)
}

// Processor executes runs. It is not safe for concurrent runs over the same directories.
type Processor struct {
	cfg      Config
	store    *store.Store
	detector *detector.Detector
	window   capture.Window
	notifier Notifier
	recorder Recorder
	log      logger.Logger
}

// Option customizes a Processor.
type Option func(*Processor) error

// WithRunner replaces the process runner used for the detector.
func WithRunner(r detector.Runner) Option {
	return func(p *Processor) error {
		p.detector = detector.New(p.cfg.Detector(), r)
		return nil
	}
}

// WithNotifier replaces the notifier built from Config.NotifyToken and NotifyUser.
func WithNotifier(n Notifier) Option {
	return func(p *Processor) error {
		p.notifier = n
		return nil
	}
}

// WithRecorder records run metrics into r.
func WithRecorder(r Recorder) Option {
	return func(p *Processor) error {
		p.recorder = r
		return nil
	}
}

// WithLogger overrides the package logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Processor) error {
		p.log = l
		return nil
	}
}

// New returns a Processor over st. Without WithNotifier, a Pushover-only notifier is
// built when both NotifyToken and NotifyUser are set.
func New(cfg Config, st *store.Store, opts ...Option) (*Processor, error) {
	p := &Processor{
		cfg:      cfg,
		store:    st,
		detector: detector.New(cfg.Detector(), nil),
		window:   capture.NewWindow(cfg.ToleranceSeconds),
		recorder: noopRecorder{},
		log:      GetLogger(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	if p.notifier == nil {
		n, err := defaultNotifier(cfg, st.Fs())
		if err != nil {
			return nil, err
		}
		p.notifier = n
	}
	return p, nil
}

func defaultNotifier(cfg Config, fs afero.Fs) (Notifier, error) {
	pushover := notification.NewPushoverProvider(notification.PushoverConfig{
		Enabled: cfg.NotifyToken != "" && cfg.NotifyUser != "",
		Token:   cfg.NotifyToken,
		User:    cfg.NotifyUser,
	}, nil, fs)
	svc, err := notification.NewService([]notification.Provider{pushover})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// Config returns the run configuration.
func (p *Processor) Config() Config {
	return p.cfg
}

// Run invokes the detector and routes its results. The error is non-nil only when the
// detector failed (it wraps detector.ErrDetectorFailed) or the label directory could
// not be read; per-file problems are logged and recorded in the Report.
func (p *Processor) Run(ctx context.Context) (*Report, error) {
	report := &Report{Started: time.Now()}
	log := p.log.WithContext(ctx)

	defer func() {
		report.Finished = time.Now()
		p.recorder.RecordRun(string(report.State), report.Duration().Seconds(), float64(report.Finished.Unix()))
	}()

	res, err := p.detector.Run(ctx)
	report.Detector = res
	p.recorder.RecordDetector(res.Duration.Seconds())
	if err != nil {
		report.State = StateFailed
		return report, errors.New(fmt.Errorf("%w: %w", detector.ErrDetectorFailed, err)).
			Component("processor").
			Category(errors.CategoryCommandExecution).
			Context("operation", "run_detector").
			Build()
	}
	if err := detector.Check(res); err != nil {
		report.State = StateFailed
		log.Error("detector exited with an error",
			logger.Int("exit_code", res.ExitCode),
			logger.String("stderr", res.Stderr))
		return report, err
	}

	labels := p.store.Entries(p.labelDir(), store.Glob(labelPattern))
	next, stop := iter.Pull(labels.All())
	defer stop()

	first, ok := next()
	if !ok {
		if err := labels.Err(); err != nil {
			report.State = StateFailed
			return report, err
		}
		report.State = StateEmpty
		report.Purged = p.purgePending(ctx)
		return report, nil
	}

	report.State = StateDetections
	for entry := first; ok; entry, ok = next() {
		if err := ctx.Err(); err != nil {
			log.Warn("run cancelled, remaining labels left for the next run", logger.Error(err))
			return report, nil
		}
		report.Outcomes = append(report.Outcomes, p.processLabel(ctx, entry))
	}
	if err := labels.Err(); err != nil {
		log.Error("label listing ended early", logger.Error(err))
	}

	return report, nil
}

func (p *Processor) labelDir() string {
	return p.cfg.Detector().LabelDir()
}

func (p *Processor) annotatedDir() string {
	return p.cfg.Detector().OutputDir()
}

// purgePending handles the empty-result branch.
func (p *Processor) purgePending(ctx context.Context) map[string]int {
	log := p.log.WithContext(ctx)
	log.Info("no detections, purging pending captures")

	purged := map[string]int{
		metrics.KindImage: p.removeAll(ctx, p.cfg.ImageDir, store.Glob("*"+p.cfg.ImageExt), metrics.KindImage),
		metrics.KindVideo: p.removeAll(ctx, p.cfg.VideoDir, store.Glob("*"+p.cfg.VideoExt), metrics.KindVideo),
	}

	if p.cfg.PurgeArtifactsOnEmpty {
		purged[metrics.KindAnnotated] = p.removeAll(ctx, p.annotatedDir(), store.Ext(p.cfg.AnnotatedExts...), metrics.KindAnnotated)
		purged[metrics.KindLabel] = p.removeAll(ctx, p.labelDir(), store.Glob("*"), metrics.KindLabel)
	}

	log.Info("pending captures purged",
		logger.Int("images", purged[metrics.KindImage]),
		logger.Int("videos", purged[metrics.KindVideo]),
		logger.Int("annotated", purged[metrics.KindAnnotated]),
		logger.Int("labels", purged[metrics.KindLabel]))
	return purged
}

func (p *Processor) removeAll(ctx context.Context, dir string, match store.Matcher, kind string) int {
	log := p.log.WithContext(ctx)
	count := 0
	listing := p.store.Entries(dir, match)
	for e := range listing.All() {
		if err := p.store.Remove(e.Path); err != nil {
			p.recorder.RecordFile(kind, metrics.ActionFailed)
			log.Error("failed to delete file", logger.String("path", e.Path), logger.Error(err))
			continue
		}
		p.recorder.RecordFile(kind, metrics.ActionDeleted)
		count++
	}
	if err := listing.Err(); err != nil {
		log.Error("failed to list directory", logger.String("dir", dir), logger.Error(err))
	}
	return count
}

// processLabel routes the image, clips and annotated copy belonging to one label file.
func (p *Processor) processLabel(ctx context.Context, label store.Entry) Outcome {
	stem := capture.Stem(label.Name)
	log := p.log.WithContext(ctx).With(logger.String("label", stem))
	out := Outcome{Label: label.Path, Notify: NotifyNotAttempted}

	name, err := capture.Parse(stem)
	if err != nil {
		log.Warn("malformed capture name, discarding label", logger.Error(err))
		out.Result = OutcomeMalformed
		p.deleteLabel(ctx, &out)
		p.recorder.RecordLabel(string(out.Result))
		return out
	}
	out.Name = name
	out.Result = OutcomeRouted

	out.Detections = p.readDetections(ctx, label.Path)

	imagePath := filepath.Join(p.cfg.ImageDir, stem+p.cfg.ImageExt)
	if p.store.Exists(imagePath) {
		dst, err := p.store.Move(imagePath, p.cfg.OutputDir)
		if err != nil {
			p.recorder.RecordFile(metrics.KindImage, metrics.ActionFailed)
			log.Error("failed to move image", logger.String("path", imagePath), logger.Error(err))
			out.Errors = append(out.Errors, err)
		} else {
			p.recorder.RecordFile(metrics.KindImage, metrics.ActionMoved)
			out.Image = dst
			log.Info("image moved", logger.String("destination", dst))
			p.notify(ctx, &out)
		}
	} else {
		log.Warn("image not found", logger.String("path", imagePath))
	}

	p.moveClips(ctx, &out)
	p.handleAnnotated(ctx, stem, &out)
	p.deleteLabel(ctx, &out)

	p.recorder.RecordLabel(string(out.Result))
	return out
}

func (p *Processor) moveClips(ctx context.Context, out *Outcome) {
	log := p.log.WithContext(ctx)

	clips := p.store.Entries(p.cfg.VideoDir, store.Glob("*"+p.cfg.VideoExt))
	var matched []capture.Candidate
	for c := range p.window.Correlate(out.Name, clips.Paths()) {
		matched = append(matched, c)
	}
	if err := clips.Err(); err != nil {
		log.Error("failed to list clips", logger.Error(err))
		out.Errors = append(out.Errors, err)
	}

	if len(matched) == 0 {
		log.Info("no matching clips",
			logger.String("location", out.Name.Location),
			logger.Int("tolerance_seconds", p.cfg.ToleranceSeconds))
		return
	}

	for _, c := range matched {
		dst, err := p.store.Move(c.Path, p.cfg.OutputDir)
		if err != nil {
			p.recorder.RecordFile(metrics.KindVideo, metrics.ActionFailed)
			log.Error("failed to move clip", logger.String("path", c.Path), logger.Error(err))
			out.Errors = append(out.Errors, err)
			continue
		}
		p.recorder.RecordFile(metrics.KindVideo, metrics.ActionMoved)
		out.Clips = append(out.Clips, dst)
		log.Info("clip moved",
			logger.String("destination", dst),
			logger.Duration("offset", c.Name.Time.Sub(out.Name.Time)))
	}
}

func (p *Processor) handleAnnotated(ctx context.Context, stem string, out *Outcome) {
	log := p.log.WithContext(ctx)

	path, ok := p.store.FirstExisting(p.annotatedDir(), stem, p.cfg.AnnotatedExts)
	if !ok {
		out.Annotated = AnnotatedMissing
		log.Debug("annotated image not found", logger.String("dir", p.annotatedDir()))
		return
	}
	out.AnnotatedPath = path

	if !p.cfg.DeleteAnnotated {
		out.Annotated = AnnotatedRetained
		return
	}

	if err := p.store.Remove(path); err != nil {
		p.recorder.RecordFile(metrics.KindAnnotated, metrics.ActionFailed)
		log.Error("failed to delete annotated image", logger.String("path", path), logger.Error(err))
		out.Annotated = AnnotatedRetained
		out.Errors = append(out.Errors, err)
		return
	}
	p.recorder.RecordFile(metrics.KindAnnotated, metrics.ActionDeleted)
	out.Annotated = AnnotatedDeleted
}

func (p *Processor) deleteLabel(ctx context.Context, out *Outcome) {
	if err := p.store.Remove(out.Label); err != nil {
		p.recorder.RecordFile(metrics.KindLabel, metrics.ActionFailed)
		p.log.WithContext(ctx).Error("failed to delete label", logger.String("path", out.Label), logger.Error(err))
		out.Errors = append(out.Errors, err)
		return
	}
	p.recorder.RecordFile(metrics.KindLabel, metrics.ActionDeleted)
}

func (p *Processor) notify(ctx context.Context, out *Outcome) {
	log := p.log.WithContext(ctx)

	if p.store.DryRun() {
		log.Info("dry run: would send notification", logger.String("attachment", out.Image))
		return
	}

	n := notification.NewNotification(p.cfg.NotifyMessage).
		WithTitle(p.cfg.NotifyTitle).
		WithLocation(out.Name.Location).
		WithTimestamp(out.Name.Time).
		WithAttachment(out.Image)

	err := p.notifier.Notify(ctx, n)
	switch {
	case err == nil:
		out.Notify = NotifySent
	case errors.Is(err, notification.ErrProviderDisabled):
		out.Notify = NotifyDisabled
		log.Debug("notifications disabled")
	case errors.Is(err, notification.ErrSuppressed):
		out.Notify = NotifySuppressed
	default:
		out.Notify = NotifyFailed
		out.NotifyErr = err
		log.Warn("notification failed", logger.Error(err))
	}
}

func (p *Processor) readDetections(ctx context.Context, path string) []detector.Detection {
	f, err := p.store.Fs().Open(path)
	if err != nil {
		p.log.WithContext(ctx).Debug("label file unreadable", logger.Error(err))
		return nil
	}
	defer func() { _ = f.Close() }()

	ds, err := detector.ParseLabelFile(f)
	if err != nil {
		p.log.WithContext(ctx).Debug("label content not parsed", logger.Error(err))
	}
	for _, d := range ds {
		p.recorder.RecordDetection(d.Name())
	}
	if len(ds) > 0 {
		p.log.WithContext(ctx).Info("objects detected", logger.String("objects", detector.Summarize(ds)))
	}
	return ds
}

type noopRecorder struct{}

func (noopRecorder) RecordRun(string, float64, float64) {}
func (noopRecorder) RecordDetector(float64)             {}
func (noopRecorder) RecordLabel(string)                 {}
func (noopRecorder) RecordFile(string, string)          {}
func (noopRecorder) RecordDetection(string)             {}
