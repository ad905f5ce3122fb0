// conf/validate.go

package conf

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) []string{
		validateCaptureSettings,
		validateDetectorSettings,
		validateRoutingSettings,
		validateNotificationSettings,
		validateRetentionSettings,
		validateWatchSettings,
		validateTelemetrySettings,
		validateLoggingSettings,
	}

	for _, validate := range validators {
		ve.Errors = append(ve.Errors, validate(settings)...)
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateCaptureSettings(s *Settings) []string {
	var errs []string
	c := &s.Capture

	for name, dir := range map[string]string{
		"capture.imagedir":  c.ImageDir,
		"capture.videodir":  c.VideoDir,
		"capture.outputdir": c.OutputDir,
	} {
		if strings.TrimSpace(dir) == "" {
			errs = append(errs, name+" must be set")
		}
	}

	if c.OutputDir != "" && (filepath.Clean(c.OutputDir) == filepath.Clean(c.ImageDir) ||
		filepath.Clean(c.OutputDir) == filepath.Clean(c.VideoDir)) {
		errs = append(errs, "capture.outputdir must differ from the image and video directories")
	}

	if !strings.HasPrefix(c.ImageExt, ".") || len(c.ImageExt) < 2 {
		errs = append(errs, fmt.Sprintf("capture.imageext must be an extension like .webp, got %q", c.ImageExt))
	}
	if !strings.HasPrefix(c.VideoExt, ".") || len(c.VideoExt) < 2 {
		errs = append(errs, fmt.Sprintf("capture.videoext must be an extension like .mkv, got %q", c.VideoExt))
	}

	if c.Tolerance < 0 {
		errs = append(errs, fmt.Sprintf("capture.tolerance must be non-negative, got %d", c.Tolerance))
	}

	return errs
}

func validateDetectorSettings(s *Settings) []string {
	var errs []string
	d := &s.Detector

	if d.Command == "" {
		errs = append(errs, "detector.command must be set")
	}
	if d.Script == "" {
		errs = append(errs, "detector.script must be set")
	}
	if d.Weights == "" {
		errs = append(errs, "detector.weights must be set")
	}
	if d.Confidence <= 0 || d.Confidence > 1 {
		errs = append(errs, fmt.Sprintf("detector.confidence must be in (0, 1], got %g", d.Confidence))
	}
	for _, class := range d.Classes {
		if class < 0 {
			errs = append(errs, fmt.Sprintf("detector.classes contains negative class id %d", class))
		}
	}
	if d.Project == "" || d.RunName == "" {
		errs = append(errs, "detector.project and detector.runname must be set")
	}
	if strings.ContainsAny(d.RunName, `/\`) {
		errs = append(errs, fmt.Sprintf("detector.runname must be a single path element, got %q", d.RunName))
	}
	if d.Timeout < 0 {
		errs = append(errs, "detector.timeout must be non-negative")
	}

	return errs
}

func validateRoutingSettings(s *Settings) []string {
	if len(s.Routing.AnnotatedExts) == 0 {
		return []string{"routing.annotatedexts must list at least one extension"}
	}
	return nil
}

func validateNotificationSettings(s *Settings) []string {
	var errs []string
	n := &s.Notification

	if n.Cooldown < 0 {
		errs = append(errs, "notification.cooldown must be non-negative")
	}

	if p := &n.Pushover; p.Enabled {
		if p.Token == "" {
			errs = append(errs, "notification.pushover.token is required when pushover is enabled")
		}
		if p.User == "" {
			errs = append(errs, "notification.pushover.user is required when pushover is enabled")
		}
		if u, err := url.Parse(p.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Sprintf("notification.pushover.url must be an http(s) URL, got %q", p.URL))
		}
		if p.Priority < -2 || p.Priority > 1 {
			errs = append(errs, fmt.Sprintf("notification.pushover.priority must be between -2 and 1, got %d", p.Priority))
		}
	}

	if sh := &n.Shoutrrr; sh.Enabled {
		if len(sh.URLs) == 0 {
			errs = append(errs, "notification.shoutrrr.urls is required when shoutrrr is enabled")
		}
		for i, raw := range sh.URLs {
			if !strings.Contains(raw, "://") {
				errs = append(errs, fmt.Sprintf("notification.shoutrrr.urls[%d] is not a service URL", i))
			}
		}
	}

	return errs
}

func validateRetentionSettings(s *Settings) []string {
	var errs []string
	r := &s.Retention

	if r.Enabled {
		if hours, err := ParseRetentionPeriod(r.MaxAge); err != nil {
			errs = append(errs, fmt.Sprintf("retention.maxage: %v", err))
		} else if hours <= 0 {
			errs = append(errs, "retention.maxage must be positive")
		}
	}
	if r.MinFiles < 0 {
		errs = append(errs, "retention.minfiles must be non-negative")
	}
	if r.MaxDeletions < 0 {
		errs = append(errs, "retention.maxdeletions must be non-negative")
	}

	return errs
}

func validateWatchSettings(s *Settings) []string {
	var errs []string
	if s.Watch.Debounce <= 0 {
		errs = append(errs, "watch.debounce must be positive")
	}
	if s.Watch.Interval < 0 {
		errs = append(errs, "watch.interval must be non-negative")
	}
	return errs
}

func validateTelemetrySettings(s *Settings) []string {
	var errs []string
	if s.Telemetry.Sentry.Enabled && s.Telemetry.Sentry.DSN == "" {
		errs = append(errs, "telemetry.sentry.dsn is required when sentry is enabled")
	}
	if s.Telemetry.Metrics.Enabled && s.Telemetry.Metrics.Textfile == "" {
		errs = append(errs, "telemetry.metrics.textfile is required when metrics are enabled")
	}
	return errs
}

var validLogLevels = map[string]bool{"": true, "trace": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true}

func validateLoggingSettings(s *Settings) []string {
	var errs []string
	l := &s.Logging

	if !validLogLevels[l.DefaultLevel] {
		errs = append(errs, fmt.Sprintf("logging.default_level %q is not a valid level", l.DefaultLevel))
	}
	if l.Console != nil && !validLogLevels[l.Console.Level] {
		errs = append(errs, fmt.Sprintf("logging.console.level %q is not a valid level", l.Console.Level))
	}
	if l.FileOutput != nil && l.FileOutput.Enabled {
		if l.FileOutput.Path == "" {
			errs = append(errs, "logging.file_output.path is required when file output is enabled")
		}
		if !validLogLevels[l.FileOutput.Level] {
			errs = append(errs, fmt.Sprintf("logging.file_output.level %q is not a valid level", l.FileOutput.Level))
		}
	}
	for module, level := range l.ModuleLevels {
		if !validLogLevels[level] {
			errs = append(errs, fmt.Sprintf("logging.module_levels.%s %q is not a valid level", module, level))
		}
	}

	return errs
}
