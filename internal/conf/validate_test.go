package conf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/motionsort/internal/logger"
)

// validTestSettings returns settings that pass validation, mirroring the defaults.
func validTestSettings() *Settings {
	s := &Settings{}
	s.Capture = CaptureSettings{
		ImageDir:  "/tmp/motion/image",
		VideoDir:  "/tmp/motion",
		OutputDir: "/home/motion/files",
		ImageExt:  ".webp",
		VideoExt:  ".mkv",
		Tolerance: 40,
	}
	s.Detector = DetectorSettings{
		Command:    "python3",
		Script:     "/home/motion/yolov7/detect.py",
		Weights:    "/home/motion/yolov7/yolov7-tiny.pt",
		Confidence: 0.6,
		Classes:    []int{0, 2, 7},
		Project:    "/tmp",
		RunName:    "motion_run",
	}
	s.Routing = RoutingSettings{AnnotatedExts: []string{".webp"}}
	s.Notification.Pushover.URL = "https://api.pushover.net/1/messages.json"
	s.Retention.MaxAge = "30d"
	s.Watch.Debounce = time.Second
	s.Logging = logger.LoggingConfig{DefaultLevel: "info"}
	return s
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr string
	}{
		{"valid", func(s *Settings) {}, ""},
		{"missing image dir", func(s *Settings) { s.Capture.ImageDir = " " }, "capture.imagedir must be set"},
		{"output equals video dir", func(s *Settings) { s.Capture.OutputDir = "/tmp/motion/" }, "capture.outputdir must differ"},
		{"bad image ext", func(s *Settings) { s.Capture.ImageExt = "webp" }, "capture.imageext"},
		{"negative tolerance", func(s *Settings) { s.Capture.Tolerance = -1 }, "capture.tolerance"},
		{"zero tolerance allowed", func(s *Settings) { s.Capture.Tolerance = 0 }, ""},
		{"confidence zero", func(s *Settings) { s.Detector.Confidence = 0 }, "detector.confidence"},
		{"confidence above one", func(s *Settings) { s.Detector.Confidence = 1.01 }, "detector.confidence"},
		{"negative class", func(s *Settings) { s.Detector.Classes = []int{0, -3} }, "negative class id -3"},
		{"nested run name", func(s *Settings) { s.Detector.RunName = "a/b" }, "detector.runname"},
		{"missing weights", func(s *Settings) { s.Detector.Weights = "" }, "detector.weights"},
		{"no annotated exts", func(s *Settings) { s.Routing.AnnotatedExts = nil }, "routing.annotatedexts"},
		{"pushover bad url", func(s *Settings) {
			s.Notification.Pushover = PushoverSettings{Enabled: true, Token: "t", User: "u", URL: "ftp://x"}
		}, "notification.pushover.url"},
		{"pushover emergency priority", func(s *Settings) {
			s.Notification.Pushover = PushoverSettings{Enabled: true, Token: "t", User: "u", URL: "https://x", Priority: 2}
		}, "notification.pushover.priority"},
		{"shoutrrr without urls", func(s *Settings) { s.Notification.Shoutrrr.Enabled = true }, "notification.shoutrrr.urls"},
		{"shoutrrr bad url", func(s *Settings) {
			s.Notification.Shoutrrr = ShoutrrrSettings{Enabled: true, URLs: []string{"not a url"}}
		}, "urls[0]"},
		{"retention bad age", func(s *Settings) {
			s.Retention.Enabled = true
			s.Retention.MaxAge = "10x"
		}, "retention.maxage"},
		{"retention age ignored when disabled", func(s *Settings) { s.Retention.MaxAge = "10x" }, ""},
		{"zero debounce", func(s *Settings) { s.Watch.Debounce = 0 }, "watch.debounce"},
		{"sentry without dsn", func(s *Settings) { s.Telemetry.Sentry.Enabled = true }, "telemetry.sentry.dsn"},
		{"metrics without textfile", func(s *Settings) { s.Telemetry.Metrics.Enabled = true }, "telemetry.metrics.textfile"},
		{"bad log level", func(s *Settings) { s.Logging.ModuleLevels = map[string]string{"processor": "loud"} }, "logging.module_levels.processor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := validTestSettings()
			tt.mutate(s)
			err := ValidateSettings(s)

			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateSettingsCollectsAllErrors(t *testing.T) {
	t.Parallel()

	s := validTestSettings()
	s.Capture.Tolerance = -5
	s.Detector.Confidence = 2
	s.Watch.Debounce = 0

	err := ValidateSettings(s)
	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 3)
}
