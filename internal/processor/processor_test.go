package processor

import (
	"context"
	"slices"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/motionsort/internal/detector"
	"github.com/tphakala/motionsort/internal/errors"
	"github.com/tphakala/motionsort/internal/logger"
	"github.com/tphakala/motionsort/internal/notification"
	"github.com/tphakala/motionsort/internal/store"
)

const (
	testImageDir  = "/cap/image"
	testVideoDir  = "/cap/video"
	testOutputDir = "/out"
	testDetDir    = "/det/run"
	testLabelDir  = "/det/run/labels"

	backyard = "01-15-2024_14.30.00_Backyard"
)

type fakeRunner struct {
	result detector.Result
	err    error
	calls  int
	got    detector.Command
}

func (f *fakeRunner) Run(_ context.Context, cmd detector.Command) (detector.Result, error) {
	f.calls++
	f.got = cmd
	return f.result, f.err
}

type fakeNotifier struct {
	mu   sync.Mutex
	err  error
	sent []*notification.Notification
}

func (f *fakeNotifier) Notify(_ context.Context, n *notification.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	return f.err
}

type fixture struct {
	t        *testing.T
	fs       afero.Fs
	cfg      Config
	runner   *fakeRunner
	notifier *fakeNotifier
}

func newFixture(t *testing.T, mutate ...func(*Config)) *fixture {
	t.Helper()

	cfg := DefaultConfig()
	cfg.ImageDir = testImageDir
	cfg.VideoDir = testVideoDir
	cfg.OutputDir = testOutputDir
	cfg.DetectorProject = "/det"
	cfg.DetectorRunName = "run"
	for _, m := range mutate {
		m(&cfg)
	}

	return &fixture{
		t:        t,
		fs:       afero.NewMemMapFs(),
		cfg:      cfg,
		runner:   &fakeRunner{},
		notifier: &fakeNotifier{},
	}
}

func (f *fixture) write(paths ...string) {
	f.t.Helper()
	for _, p := range paths {
		require.NoError(f.t, afero.WriteFile(f.fs, p, []byte(p), 0o644))
	}
}

func (f *fixture) writeContent(path, content string) {
	f.t.Helper()
	require.NoError(f.t, afero.WriteFile(f.fs, path, []byte(content), 0o644))
}

func (f *fixture) exists(path string) bool {
	ok, err := afero.Exists(f.fs, path)
	require.NoError(f.t, err)
	return ok
}

func (f *fixture) processor(opts ...Option) *Processor {
	f.t.Helper()
	return f.processorWithStore(store.New(f.fs, store.WithLogger(logger.NewDiscardLogger())), opts...)
}

func (f *fixture) processorWithStore(st *store.Store, opts ...Option) *Processor {
	f.t.Helper()
	opts = append([]Option{
		WithRunner(f.runner),
		WithNotifier(f.notifier),
		WithLogger(logger.NewDiscardLogger()),
	}, opts...)
	p, err := New(f.cfg, st, opts...)
	require.NoError(f.t, err)
	return p
}

func (f *fixture) run() *Report {
	f.t.Helper()
	report, err := f.processor().Run(f.t.Context())
	require.NoError(f.t, err)
	return report
}

func TestRunInvokesDetector(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.run()

	require.Equal(t, 1, f.runner.calls)
	assert.Equal(t, "python3", f.runner.got.Path)
	assert.Equal(t, "/tmp", f.runner.got.Dir)
	args := f.runner.got.Args
	assert.Equal(t, testImageDir, args[slices.Index(args, "--source")+1])
	assert.Equal(t, "0.6", args[slices.Index(args, "--conf-thres")+1])
	assert.Equal(t, "/det", args[slices.Index(args, "--project")+1])
	assert.Equal(t, "run", args[slices.Index(args, "--name")+1])
	assert.Contains(t, args, "--exist-ok")
}

func TestRunEmptyWithoutLabelDir(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.write(
		testImageDir+"/01-15-2024_14.30.00_Backyard.webp",
		testImageDir+"/01-15-2024_14.31.00_Garage.webp",
		testImageDir+"/readme.txt",
		testVideoDir+"/01-15-2024_14.30.10_Backyard.mkv",
		testVideoDir+"/notes.log",
		testDetDir+"/01-15-2024_14.00.00_Backyard.jpg",
	)

	report := f.run()

	assert.Equal(t, StateEmpty, report.State)
	assert.Empty(t, report.Outcomes)
	assert.Empty(t, f.notifier.sent)
	assert.Equal(t, 2, report.Purged["image"])
	assert.Equal(t, 1, report.Purged["video"])
	assert.Equal(t, 1, report.Purged["annotated"])

	assert.False(t, f.exists(testImageDir+"/01-15-2024_14.30.00_Backyard.webp"))
	assert.False(t, f.exists(testImageDir+"/01-15-2024_14.31.00_Garage.webp"))
	assert.False(t, f.exists(testVideoDir+"/01-15-2024_14.30.10_Backyard.mkv"))
	assert.False(t, f.exists(testDetDir+"/01-15-2024_14.00.00_Backyard.jpg"))
	assert.True(t, f.exists(testImageDir+"/readme.txt"), "only pending captures are purged")
	assert.True(t, f.exists(testVideoDir+"/notes.log"))
}

func TestRunEmptyLabelDirWithoutLabels(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.write(
		testImageDir+"/a.webp",
		testVideoDir+"/b.mkv",
		testLabelDir+"/leftover.json",
	)

	report := f.run()

	assert.Equal(t, StateEmpty, report.State)
	assert.False(t, f.exists(testImageDir+"/a.webp"))
	assert.False(t, f.exists(testVideoDir+"/b.mkv"))
	assert.False(t, f.exists(testLabelDir+"/leftover.json"))
	assert.Equal(t, 1, report.Purged["label"])
}

func TestRunEmptyKeepsArtifactsWhenPurgeDisabled(t *testing.T) {
	t.Parallel()
	f := newFixture(t, func(c *Config) { c.PurgeArtifactsOnEmpty = false })
	f.write(
		testImageDir+"/a.webp",
		testVideoDir+"/b.mkv",
		testDetDir+"/a.webp",
		testLabelDir+"/leftover.json",
	)

	report := f.run()

	assert.Equal(t, StateEmpty, report.State)
	assert.False(t, f.exists(testImageDir+"/a.webp"))
	assert.False(t, f.exists(testVideoDir+"/b.mkv"))
	assert.True(t, f.exists(testDetDir+"/a.webp"))
	assert.True(t, f.exists(testLabelDir+"/leftover.json"))
	assert.NotContains(t, report.Purged, "annotated")
}

func TestRunRoutesImageAndMatchingClip(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.write(
		testLabelDir+"/"+backyard+".txt",
		testImageDir+"/"+backyard+".webp",
		testVideoDir+"/01-15-2024_14.30.25_Backyard.mkv",
		testDetDir+"/"+backyard+".webp",
	)

	report := f.run()

	require.Equal(t, StateDetections, report.State)
	require.Len(t, report.Outcomes, 1)
	out := report.Outcomes[0]

	assert.Equal(t, OutcomeRouted, out.Result)
	assert.Equal(t, testOutputDir+"/"+backyard+".webp", out.Image)
	assert.Equal(t, []string{testOutputDir + "/01-15-2024_14.30.25_Backyard.mkv"}, out.Clips)
	assert.Equal(t, AnnotatedDeleted, out.Annotated)
	assert.Equal(t, NotifySent, out.Notify)
	assert.Empty(t, out.Errors)

	assert.True(t, f.exists(testOutputDir+"/"+backyard+".webp"))
	assert.True(t, f.exists(testOutputDir+"/01-15-2024_14.30.25_Backyard.mkv"))
	assert.False(t, f.exists(testImageDir+"/"+backyard+".webp"))
	assert.False(t, f.exists(testVideoDir+"/01-15-2024_14.30.25_Backyard.mkv"))
	assert.False(t, f.exists(testLabelDir+"/"+backyard+".txt"))
	assert.False(t, f.exists(testDetDir+"/"+backyard+".webp"))

	require.Len(t, f.notifier.sent, 1)
	n := f.notifier.sent[0]
	assert.Equal(t, "Motion!", n.Message)
	assert.Equal(t, testOutputDir+"/"+backyard+".webp", n.Attachment)
	assert.Equal(t, "Backyard", n.Location)
}

func TestRunClipOutsideWindowStays(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.write(
		testLabelDir+"/"+backyard+".txt",
		testImageDir+"/"+backyard+".webp",
		testVideoDir+"/01-15-2024_14.31.05_Backyard.mkv",
	)

	report := f.run()

	out := report.Outcomes[0]
	assert.Equal(t, OutcomeRouted, out.Result)
	assert.Empty(t, out.Clips)
	assert.True(t, f.exists(testVideoDir+"/01-15-2024_14.31.05_Backyard.mkv"))
	assert.True(t, f.exists(testOutputDir+"/"+backyard+".webp"))
	assert.False(t, f.exists(testLabelDir+"/"+backyard+".txt"))
	assert.Equal(t, AnnotatedMissing, out.Annotated)
}

func TestRunClipWindowBoundaries(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.write(
		testLabelDir+"/"+backyard+".txt",
		testImageDir+"/"+backyard+".webp",
		testVideoDir+"/01-15-2024_14.30.40_Backyard.mkv", // +40s
		testVideoDir+"/01-15-2024_14.29.20_backyard.mkv", // -40s, other case
		testVideoDir+"/01-15-2024_14.30.41_Backyard.mkv", // +41s
		testVideoDir+"/01-15-2024_14.29.19_Backyard.mkv", // -41s
		testVideoDir+"/01-15-2024_14.30.00_Garage.mkv",   // other location
		testVideoDir+"/clip.mkv",                         // unparsable
	)

	report := f.run()

	assert.ElementsMatch(t, []string{
		testOutputDir + "/01-15-2024_14.30.40_Backyard.mkv",
		testOutputDir + "/01-15-2024_14.29.20_backyard.mkv",
	}, report.Outcomes[0].Clips)
	assert.True(t, f.exists(testVideoDir+"/01-15-2024_14.30.41_Backyard.mkv"))
	assert.True(t, f.exists(testVideoDir+"/01-15-2024_14.29.19_Backyard.mkv"))
	assert.True(t, f.exists(testVideoDir+"/01-15-2024_14.30.00_Garage.mkv"))
	assert.True(t, f.exists(testVideoDir+"/clip.mkv"))
}

func TestRunToleranceFromConfig(t *testing.T) {
	t.Parallel()
	f := newFixture(t, func(c *Config) { c.ToleranceSeconds = 10 })
	f.write(
		testLabelDir+"/"+backyard+".txt",
		testImageDir+"/"+backyard+".webp",
		testVideoDir+"/01-15-2024_14.30.25_Backyard.mkv",
	)

	report := f.run()

	assert.Empty(t, report.Outcomes[0].Clips)
}

func TestRunMalformedLabel(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.write(
		testLabelDir+"/snapshot.txt",
		testImageDir+"/snapshot.webp",
		testDetDir+"/snapshot.webp",
		testVideoDir+"/01-15-2024_14.30.25_Backyard.mkv",
	)

	report := f.run()

	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, OutcomeMalformed, report.Outcomes[0].Result)
	assert.False(t, f.exists(testLabelDir+"/snapshot.txt"))
	assert.True(t, f.exists(testImageDir+"/snapshot.webp"), "nothing else happens for a malformed label")
	assert.True(t, f.exists(testDetDir+"/snapshot.webp"))
	assert.True(t, f.exists(testVideoDir+"/01-15-2024_14.30.25_Backyard.mkv"))
	assert.Empty(t, f.notifier.sent)
}

func TestRunMissingImage(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.write(
		testLabelDir+"/"+backyard+".txt",
		testVideoDir+"/01-15-2024_14.30.05_Backyard.mkv",
	)

	report := f.run()

	out := report.Outcomes[0]
	assert.Equal(t, OutcomeRouted, out.Result)
	assert.Empty(t, out.Image)
	assert.Equal(t, NotifyNotAttempted, out.Notify)
	assert.Len(t, out.Clips, 1, "clips are routed even without the image")
	assert.Empty(t, f.notifier.sent)
	assert.False(t, f.exists(testLabelDir+"/"+backyard+".txt"))
}

func TestRunRetainsAnnotatedWhenConfigured(t *testing.T) {
	t.Parallel()
	f := newFixture(t, func(c *Config) { c.DeleteAnnotated = false })
	f.write(
		testLabelDir+"/"+backyard+".txt",
		testImageDir+"/"+backyard+".webp",
		testDetDir+"/"+backyard+".webp",
	)

	report := f.run()

	out := report.Outcomes[0]
	assert.Equal(t, AnnotatedRetained, out.Annotated)
	assert.Equal(t, testDetDir+"/"+backyard+".webp", out.AnnotatedPath)
	assert.True(t, f.exists(testDetDir+"/"+backyard+".webp"))
	assert.False(t, f.exists(testLabelDir+"/"+backyard+".txt"))
}

func TestRunAnnotatedLookupOrder(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.write(
		testLabelDir+"/"+backyard+".txt",
		testImageDir+"/"+backyard+".webp",
		testDetDir+"/"+backyard+".png",
		testDetDir+"/"+backyard+".jpg",
	)

	report := f.run()

	assert.Equal(t, testDetDir+"/"+backyard+".jpg", report.Outcomes[0].AnnotatedPath)
	assert.False(t, f.exists(testDetDir+"/"+backyard+".jpg"))
	assert.True(t, f.exists(testDetDir+"/"+backyard+".png"), "only the first match is handled")
}

func TestRunNotificationFailureDoesNotStopRouting(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.notifier.err = errors.NewStd("pushover unreachable")
	second := "01-15-2024_15.00.00_Garage"
	f.write(
		testLabelDir+"/"+backyard+".txt",
		testImageDir+"/"+backyard+".webp",
		testLabelDir+"/"+second+".txt",
		testImageDir+"/"+second+".webp",
	)

	report, err := f.processor().Run(t.Context())
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 2)
	for _, out := range report.Outcomes {
		assert.Equal(t, NotifyFailed, out.Notify)
		require.Error(t, out.NotifyErr)
		assert.NotEmpty(t, out.Image)
	}
	assert.Len(t, f.notifier.sent, 2)
	assert.False(t, f.exists(testLabelDir+"/"+backyard+".txt"))
	assert.False(t, f.exists(testLabelDir+"/"+second+".txt"))
	assert.True(t, f.exists(testOutputDir+"/"+second+".webp"))
}

func TestRunNotifierStatuses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want NotifyStatus
	}{
		{notification.ErrProviderDisabled, NotifyDisabled},
		{notification.ErrSuppressed, NotifySuppressed},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			f.notifier.err = tt.err
			f.write(testLabelDir+"/"+backyard+".txt", testImageDir+"/"+backyard+".webp")

			report := f.run()

			assert.Equal(t, tt.want, report.Outcomes[0].Notify)
			assert.NoError(t, report.Outcomes[0].NotifyErr)
		})
	}
}

func TestRunDefaultNotifierDisabledWithoutCredentials(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.write(testLabelDir+"/"+backyard+".txt", testImageDir+"/"+backyard+".webp")

	st := store.New(f.fs, store.WithLogger(logger.NewDiscardLogger()))
	p, err := New(f.cfg, st, WithRunner(f.runner), WithLogger(logger.NewDiscardLogger()))
	require.NoError(t, err)

	report, err := p.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, NotifyDisabled, report.Outcomes[0].Notify)
}

func TestRunMultipleClipsAndSharedClip(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	later := "01-15-2024_14.30.30_Backyard"
	f.write(
		testLabelDir+"/"+backyard+".txt",
		testImageDir+"/"+backyard+".webp",
		testLabelDir+"/"+later+".txt",
		testImageDir+"/"+later+".webp",
		testVideoDir+"/01-15-2024_14.29.50_Backyard.mkv",
		testVideoDir+"/01-15-2024_14.30.15_Backyard.mkv",
		testVideoDir+"/01-15-2024_14.31.05_Backyard.mkv",
	)

	report := f.run()

	require.Len(t, report.Outcomes, 2)
	assert.Len(t, report.Outcomes[0].Clips, 2, "the first event takes every clip in its window")
	assert.Equal(t, []string{testOutputDir + "/01-15-2024_14.31.05_Backyard.mkv"}, report.Outcomes[1].Clips)

	images, clips := report.Moved()
	assert.Equal(t, 2, images)
	assert.Equal(t, 3, clips)
	assert.Equal(t, 2, report.Counts()[OutcomeRouted])
}

func TestRunReadsDetections(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.writeContent(testLabelDir+"/"+backyard+".txt", "16 0.5 0.5 0.2 0.3 0.91\n0 0.1 0.1 0.1 0.1 0.62\n")
	f.write(testImageDir + "/" + backyard + ".webp")

	report := f.run()

	ds := report.Outcomes[0].Detections
	require.Len(t, ds, 2)
	assert.Equal(t, "dog", ds[0].Name())
	assert.Equal(t, "person", ds[1].Name())
}

func TestRunUnparsableLabelContentStillRoutes(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.writeContent(testLabelDir+"/"+backyard+".txt", "not a label\n")
	f.write(testImageDir + "/" + backyard + ".webp")

	report := f.run()

	assert.Equal(t, OutcomeRouted, report.Outcomes[0].Result)
	assert.NotEmpty(t, report.Outcomes[0].Image)
}

func TestRunDetectorFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.runner.result = detector.Result{ExitCode: 1, Stderr: "Traceback: no module named torch"}
	f.write(
		testLabelDir+"/"+backyard+".txt",
		testImageDir+"/"+backyard+".webp",
		testVideoDir+"/x.mkv",
	)

	report, err := f.processor().Run(t.Context())

	require.Error(t, err)
	assert.ErrorIs(t, err, detector.ErrDetectorFailed)
	assert.Contains(t, err.Error(), "no module named torch")
	assert.Equal(t, StateFailed, report.State)
	assert.True(t, f.exists(testLabelDir+"/"+backyard+".txt"), "a failed run touches nothing")
	assert.True(t, f.exists(testImageDir+"/"+backyard+".webp"))
	assert.True(t, f.exists(testVideoDir+"/x.mkv"))
}

func TestRunDetectorStartFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.runner.err = errors.NewStd("exec: \"python3\": executable file not found in $PATH")
	f.runner.result = detector.Result{ExitCode: -1}
	f.write(testImageDir + "/a.webp")

	report, err := f.processor().Run(t.Context())

	require.Error(t, err)
	assert.ErrorIs(t, err, detector.ErrDetectorFailed)
	assert.Equal(t, StateFailed, report.State)
	assert.True(t, f.exists(testImageDir+"/a.webp"))
}

func TestRunDryRun(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.write(
		testLabelDir+"/"+backyard+".txt",
		testImageDir+"/"+backyard+".webp",
		testVideoDir+"/01-15-2024_14.30.25_Backyard.mkv",
		testDetDir+"/"+backyard+".webp",
	)

	st := store.New(f.fs, store.WithDryRun(true), store.WithLogger(logger.NewDiscardLogger()))
	report, err := f.processorWithStore(st).Run(t.Context())
	require.NoError(t, err)

	out := report.Outcomes[0]
	assert.Equal(t, testOutputDir+"/"+backyard+".webp", out.Image)
	assert.Len(t, out.Clips, 1)
	assert.Equal(t, NotifyNotAttempted, out.Notify)
	assert.Empty(t, f.notifier.sent)

	assert.True(t, f.exists(testLabelDir+"/"+backyard+".txt"))
	assert.True(t, f.exists(testImageDir+"/"+backyard+".webp"))
	assert.True(t, f.exists(testVideoDir+"/01-15-2024_14.30.25_Backyard.mkv"))
	assert.True(t, f.exists(testDetDir+"/"+backyard+".webp"))
	assert.False(t, f.exists(testOutputDir+"/"+backyard+".webp"))
}

type countingRecorder struct {
	runs       []string
	labels     []string
	files      map[string]int
	detections []string
}

func (c *countingRecorder) RecordRun(state string, _, _ float64) { c.runs = append(c.runs, state) }
func (c *countingRecorder) RecordDetector(float64)               {}
func (c *countingRecorder) RecordLabel(outcome string)           { c.labels = append(c.labels, outcome) }
func (c *countingRecorder) RecordDetection(class string)         { c.detections = append(c.detections, class) }
func (c *countingRecorder) RecordFile(kind, action string) {
	if c.files == nil {
		c.files = map[string]int{}
	}
	c.files[kind+"/"+action]++
}

func TestRunRecordsMetrics(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.writeContent(testLabelDir+"/"+backyard+".txt", "2 0.5 0.5 0.1 0.1 0.8\n")
	f.write(
		testLabelDir+"/bad.txt",
		testImageDir+"/"+backyard+".webp",
		testVideoDir+"/01-15-2024_14.30.25_Backyard.mkv",
	)

	rec := &countingRecorder{}
	_, err := f.processor(WithRecorder(rec)).Run(t.Context())
	require.NoError(t, err)

	assert.Equal(t, []string{"detections"}, rec.runs)
	assert.ElementsMatch(t, []string{"matched-and-routed", "malformed-skip"}, rec.labels)
	assert.Equal(t, 1, rec.files["image/moved"])
	assert.Equal(t, 1, rec.files["video/moved"])
	assert.Equal(t, 2, rec.files["label/deleted"])
	assert.Equal(t, []string{"car"}, rec.detections)
}
