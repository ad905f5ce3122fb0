// config.go: settings struct and functions to load and save the motionsort configuration.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/motionsort/internal/errors"
	"github.com/tphakala/motionsort/internal/logger"
	"github.com/tphakala/motionsort/internal/secrets"
)

//go:embed config.yaml
var configFiles embed.FS

// CaptureSettings locates the motion captures and the durable output.
type CaptureSettings struct {
	ImageDir  string `yaml:"imagedir"`  // still images written by motion
	VideoDir  string `yaml:"videodir"`  // video clips written by motion
	OutputDir string `yaml:"outputdir"` // durable destination for confirmed events
	ImageExt  string `yaml:"imageext"`  // extension of still images, with dot
	VideoExt  string `yaml:"videoext"`  // extension of video clips, with dot
	Tolerance int    `yaml:"tolerance"` // seconds between image and clip timestamps, inclusive
}

// DetectorSettings describes how the external yolov7 detect.py is invoked.
type DetectorSettings struct {
	Command    string        `yaml:"command"`    // interpreter, e.g. python3
	Script     string        `yaml:"script"`     // path to detect.py
	Weights    string        `yaml:"weights"`    // model weights passed to --weights
	Confidence float64       `yaml:"confidence"` // --conf-thres
	Classes    []int         `yaml:"classes"`    // COCO class allow-list passed to --classes
	Project    string        `yaml:"project"`    // --project
	RunName    string        `yaml:"runname"`    // --name
	WorkDir    string        `yaml:"workdir"`    // working directory of the detector process
	Timeout    time.Duration `yaml:"timeout"`    // 0 means no timeout
}

// OutputDir returns the directory the detector writes annotated images into.
func (d *DetectorSettings) OutputDir() string {
	return filepath.Join(d.Project, d.RunName)
}

// LabelDir returns the directory the detector writes label files into.
func (d *DetectorSettings) LabelDir() string {
	return filepath.Join(d.OutputDir(), "labels")
}

// RoutingSettings controls what happens to artifacts once a run has classified them.
type RoutingSettings struct {
	DeleteAnnotated       bool     `yaml:"deleteannotated"`       // delete annotated images after routing a label
	AnnotatedExts         []string `yaml:"annotatedexts"`         // lookup order for annotated images, first match wins
	PurgeArtifactsOnEmpty bool     `yaml:"purgeartifactsonempty"` // on an empty run, also purge stray labels and annotated images
	DryRun                bool     `yaml:"dryrun"`                // log moves and deletes without performing them
}

// PushoverSettings configures the Pushover provider that carries the image attachment.
type PushoverSettings struct {
	Enabled  bool          `yaml:"enabled"`
	Token    string        `yaml:"token"` // application API token
	User     string        `yaml:"user"`  // user or group key
	URL      string        `yaml:"url"`
	Timeout  time.Duration `yaml:"timeout"`
	Priority int           `yaml:"priority"` // -2..2, 2 is not supported
	Sound    string        `yaml:"sound"`
	Device   string        `yaml:"device"`
}

// ShoutrrrSettings configures text-only fan-out to any shoutrrr service URL.
type ShoutrrrSettings struct {
	Enabled bool          `yaml:"enabled"`
	URLs    []string      `yaml:"urls"`
	Timeout time.Duration `yaml:"timeout"`
}

// NotificationSettings groups the push providers.
type NotificationSettings struct {
	Message  string           `yaml:"message"`  // notification body
	Title    string           `yaml:"title"`    // optional title, provider default when empty
	Cooldown time.Duration    `yaml:"cooldown"` // per-location quiet period, 0 disables
	Pushover PushoverSettings `yaml:"pushover"`
	Shoutrrr ShoutrrrSettings `yaml:"shoutrrr"`
}

// RetentionSettings controls age based pruning of the output directory.
type RetentionSettings struct {
	Enabled      bool   `yaml:"enabled"`      // prune after every watch-mode run
	MaxAge       string `yaml:"maxage"`       // e.g. "30d", see ParseRetentionPeriod
	MinFiles     int    `yaml:"minfiles"`     // newest files kept per location regardless of age
	MaxDeletions int    `yaml:"maxdeletions"` // cap per pass, 0 means unlimited
}

// WatchSettings controls the long-running watch mode.
type WatchSettings struct {
	Debounce time.Duration `yaml:"debounce"` // quiet period after the last new image before a run
	Interval time.Duration `yaml:"interval"` // fallback poll, 0 disables
}

// TelemetrySettings controls error reporting and metrics export.
type TelemetrySettings struct {
	Sentry struct {
		Enabled bool   `yaml:"enabled"`
		DSN     string `yaml:"dsn"`
	} `yaml:"sentry"`
	Metrics struct {
		Enabled  bool   `yaml:"enabled"`
		Textfile string `yaml:"textfile"` // node_exporter textfile collector path
	} `yaml:"metrics"`
}

// Settings contains all configuration options for motionsort.
type Settings struct {
	Debug bool `yaml:"debug"`

	Main struct {
		Name string `yaml:"name"` // instance name, included in notifications
	} `yaml:"main"`

	Capture      CaptureSettings      `yaml:"capture"`
	Detector     DetectorSettings     `yaml:"detector"`
	Routing      RoutingSettings      `yaml:"routing"`
	Notification NotificationSettings `yaml:"notification"`
	Retention    RetentionSettings    `yaml:"retention"`
	Watch        WatchSettings        `yaml:"watch"`
	Telemetry    TelemetrySettings    `yaml:"telemetry"`
	Logging      logger.LoggingConfig `yaml:"logging"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file, environment variables and bound flags into Settings.
// An empty configFile searches the default config paths and creates a default
// config when none is found.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Build()
	}

	normalizeSettings(settings)

	if err := resolveSecrets(settings, secrets.NewResolver()); err != nil {
		return nil, fmt.Errorf("error resolving secrets: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// resolveSecrets replaces "${VAR}" and "file:" references in credential settings.
func resolveSecrets(s *Settings, r *secrets.Resolver) error {
	fields := map[string]*string{
		"notification.pushover.token": &s.Notification.Pushover.Token,
		"notification.pushover.user":  &s.Notification.Pushover.User,
		"telemetry.sentry.dsn":        &s.Telemetry.Sentry.DSN,
	}
	for i := range s.Notification.Shoutrrr.URLs {
		fields[fmt.Sprintf("notification.shoutrrr.urls[%d]", i)] = &s.Notification.Shoutrrr.URLs[i]
	}

	var errs []error
	for field, ptr := range fields {
		v, err := r.Resolve(field, *ptr)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		*ptr = v
	}
	return errors.Join(errs...)
}

// SetDefaults registers defaults and environment bindings without reading a file.
// Commands call it before declaring flags so flag defaults reflect the configuration defaults.
func SetDefaults() {
	setDefaultConfig()
}

// initViper initializes viper with default values and reads the configuration file.
func initViper(configFile string) error {
	viper.SetConfigType("yaml")

	setDefaultConfig()

	if err := configureEnvironmentVariables(); err != nil {
		return errors.New(err).
			Component("configuration").
			Category(errors.CategoryValidation).
			Context("operation", "bind_environment").
			Build()
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return errors.New(fmt.Errorf("error reading config file %s: %w", configFile, err)).
				Component("configuration").
				Category(errors.CategoryConfiguration).
				Build()
		}
		return nil
	}

	viper.SetConfigName("config")
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig(configPaths[0])
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded default config into dir and reads it back.
func createDefaultConfig(dir string) error {
	configPath := filepath.Join(dir, "config.yaml")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(getDefaultConfig()), 0o600); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	GetLogger().Info("created default config file", logger.String("path", configPath))
	viper.SetConfigFile(configPath)
	return viper.ReadInConfig()
}

// getDefaultConfig reads the default configuration from the embedded config.yaml file.
func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		// embedded at build time, cannot be missing
		panic(fmt.Sprintf("embedded config.yaml: %v", err))
	}
	return string(data)
}

// GetSettings returns the most recently loaded settings, or nil before Load.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveYAMLConfig writes settings to configPath. Comments in the existing file are not preserved.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	// write to a temp file in the same directory so the final rename is atomic
	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer func() { _ = os.Remove(tempFileName) }()

	if _, err := tempFile.Write(yamlData); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}

	return nil
}

// normalizeSettings canonicalizes values that users commonly write in more than one way.
func normalizeSettings(s *Settings) {
	s.Capture.ImageExt = normalizeExt(s.Capture.ImageExt)
	s.Capture.VideoExt = normalizeExt(s.Capture.VideoExt)

	exts := make([]string, 0, len(s.Routing.AnnotatedExts))
	for _, ext := range s.Routing.AnnotatedExts {
		if ext = normalizeExt(ext); ext != "" {
			exts = append(exts, ext)
		}
	}
	s.Routing.AnnotatedExts = exts

	if s.Debug && s.Logging.DefaultLevel != "trace" {
		s.Logging.DefaultLevel = "debug"
		if s.Logging.Console != nil {
			s.Logging.Console.Level = "debug"
		}
	}
}
