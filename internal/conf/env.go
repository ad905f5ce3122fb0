// env.go - Environment variable configuration and validation
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/motionsort/internal/secrets"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "MOTIONSORT_DEBUG", validateEnvBool},

		// Capture layout
		{"capture.imagedir", "MOTIONSORT_IMAGE_DIR", validateEnvPath},
		{"capture.videodir", "MOTIONSORT_VIDEO_DIR", validateEnvPath},
		{"capture.outputdir", "MOTIONSORT_OUTPUT_DIR", validateEnvPath},
		{"capture.tolerance", "MOTIONSORT_TOLERANCE", validateEnvTolerance},

		// Detector
		{"detector.command", "MOTIONSORT_DETECTOR_COMMAND", nil},
		{"detector.script", "MOTIONSORT_DETECTOR_SCRIPT", validateEnvPath},
		{"detector.weights", "MOTIONSORT_WEIGHTS", validateEnvPath},
		{"detector.confidence", "MOTIONSORT_CONFIDENCE", validateEnvConfidence},
		{"detector.timeout", "MOTIONSORT_DETECTOR_TIMEOUT", validateEnvDuration},

		// Routing
		{"routing.deleteannotated", "MOTIONSORT_DELETE_ANNOTATED", validateEnvBool},
		{"routing.purgeartifactsonempty", "MOTIONSORT_PURGE_ARTIFACTS", validateEnvBool},
		{"routing.dryrun", "MOTIONSORT_DRY_RUN", validateEnvBool},

		// Notification credentials are commonly injected from a secret store
		{"notification.pushover.enabled", "MOTIONSORT_PUSHOVER_ENABLED", validateEnvBool},
		{"notification.pushover.token", "MOTIONSORT_PUSHOVER_TOKEN", validateEnvPushoverKey},
		{"notification.pushover.user", "MOTIONSORT_PUSHOVER_USER", validateEnvPushoverKey},
		{"notification.cooldown", "MOTIONSORT_NOTIFY_COOLDOWN", validateEnvDuration},

		// Telemetry
		{"telemetry.sentry.dsn", "MOTIONSORT_SENTRY_DSN", nil},
		{"telemetry.metrics.textfile", "MOTIONSORT_METRICS_TEXTFILE", validateEnvPath},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value: %v", binding.EnvVar, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

// configureEnvironmentVariables sets up environment variable support for Viper
func configureEnvironmentVariables() error {
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return bindEnvVars()
}

// Environment variable validation functions

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f", value)
	}
	return nil
}

func validateEnvTolerance(value string) error {
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid tolerance: %w", err)
	}
	if seconds < 0 {
		return fmt.Errorf("tolerance must be non-negative, got %d", seconds)
	}
	return nil
}

func validateEnvConfidence(value string) error {
	confidence, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid confidence: %w", err)
	}
	if confidence <= 0.0 || confidence > 1.0 {
		return fmt.Errorf("confidence must be greater than 0.0 and at most 1.0, got %g", confidence)
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	if d < 0 {
		return fmt.Errorf("duration must be non-negative, got %s", d)
	}
	return nil
}

// pushoverKeyPattern matches Pushover application tokens and user/group keys
var pushoverKeyPattern = regexp.MustCompile(`^[A-Za-z0-9]{30}$`)

func validateEnvPushoverKey(value string) error {
	if strings.HasPrefix(value, secrets.FilePrefix) {
		return nil
	}
	if !pushoverKeyPattern.MatchString(value) {
		// never echo the value, it is a credential
		return fmt.Errorf("must be 30 alphanumeric characters (got %d characters)", len(value))
	}
	return nil
}

func validateEnvPath(value string) error {
	cleanedPath := filepath.Clean(value)

	if !filepath.IsAbs(cleanedPath) {
		return fmt.Errorf("path must be absolute, got relative path: %s", cleanedPath)
	}

	return nil
}
