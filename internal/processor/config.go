package processor

import (
	"time"

	"github.com/tphakala/motionsort/internal/conf"
	"github.com/tphakala/motionsort/internal/detector"
)

// Config is everything a run needs. It is built once from Settings and passed in,
// the processor reads no globals.
type Config struct {
	ImageDir               string  // pending still images
	VideoDir               string  // pending video clips
	OutputDir              string  // durable destination
	ConfidenceThreshold    float64 // detector --conf-thres
	WeightsPath            string  // detector --weights
	DetectorInvocationPath string  // detect.py
	ToleranceSeconds       int     // clip correlation window, inclusive
	DeleteAnnotated        bool    // delete the annotated image after routing a label
	NotifyToken            string  // Pushover application token, empty disables the default notifier
	NotifyUser             string  // Pushover user key

	DetectorInterpreter   string // e.g. python3, empty runs DetectorInvocationPath directly
	DetectorClasses       []int
	DetectorProject       string
	DetectorRunName       string
	DetectorWorkDir       string
	DetectorTimeout       time.Duration
	ImageExt              string
	VideoExt              string
	AnnotatedExts         []string // lookup order, first match wins
	PurgeArtifactsOnEmpty bool     // an empty run also purges label and annotated artifacts
	NotifyMessage         string
	NotifyTitle           string
}

// NewConfig maps settings onto a run Config. Pushover credentials are only carried
// over when Pushover is enabled.
func NewConfig(s *conf.Settings) Config {
	cfg := Config{
		ImageDir:               s.Capture.ImageDir,
		VideoDir:               s.Capture.VideoDir,
		OutputDir:              s.Capture.OutputDir,
		ConfidenceThreshold:    s.Detector.Confidence,
		WeightsPath:            s.Detector.Weights,
		DetectorInvocationPath: s.Detector.Script,
		ToleranceSeconds:       s.Capture.Tolerance,
		DeleteAnnotated:        s.Routing.DeleteAnnotated,

		DetectorInterpreter:   s.Detector.Command,
		DetectorClasses:       append([]int(nil), s.Detector.Classes...),
		DetectorProject:       s.Detector.Project,
		DetectorRunName:       s.Detector.RunName,
		DetectorWorkDir:       s.Detector.WorkDir,
		DetectorTimeout:       s.Detector.Timeout,
		ImageExt:              s.Capture.ImageExt,
		VideoExt:              s.Capture.VideoExt,
		AnnotatedExts:         append([]string(nil), s.Routing.AnnotatedExts...),
		PurgeArtifactsOnEmpty: s.Routing.PurgeArtifactsOnEmpty,
		NotifyMessage:         s.Notification.Message,
		NotifyTitle:           s.Notification.Title,
	}
	if s.Notification.Pushover.Enabled {
		cfg.NotifyToken = s.Notification.Pushover.Token
		cfg.NotifyUser = s.Notification.Pushover.User
	}
	return cfg
}

// DefaultConfig returns the stock deployment layout.
func DefaultConfig() Config {
	return Config{
		ImageDir:               "/tmp/motion/image",
		VideoDir:               "/tmp/motion",
		OutputDir:              "/home/motion/files",
		ConfidenceThreshold:    0.6,
		WeightsPath:            "/home/motion/yolov7/yolov7-tiny.pt",
		DetectorInvocationPath: "/home/motion/yolov7/detect.py",
		ToleranceSeconds:       40,
		DeleteAnnotated:        true,
		DetectorInterpreter:    "python3",
		DetectorClasses:        []int{0, 2, 7, 15, 16, 17, 18, 19, 20, 21, 22, 23},
		DetectorProject:        "/tmp",
		DetectorRunName:        "motion_run",
		DetectorWorkDir:        "/tmp",
		ImageExt:               ".webp",
		VideoExt:               ".mkv",
		AnnotatedExts:          []string{".webp", ".jpg", ".jpeg", ".png"},
		PurgeArtifactsOnEmpty:  true,
		NotifyMessage:          "Motion!",
	}
}

// Detector returns the detector invocation for this run.
func (c Config) Detector() detector.Config {
	return detector.Config{
		Interpreter: c.DetectorInterpreter,
		Script:      c.DetectorInvocationPath,
		Source:      c.ImageDir,
		Weights:     c.WeightsPath,
		Confidence:  c.ConfidenceThreshold,
		Classes:     c.DetectorClasses,
		Project:     c.DetectorProject,
		RunName:     c.DetectorRunName,
		WorkDir:     c.DetectorWorkDir,
		Timeout:     c.DetectorTimeout,
	}
}
