// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)
	viper.SetDefault("main.name", "motionsort")

	viper.SetDefault("capture.imagedir", "/tmp/motion/image")
	viper.SetDefault("capture.videodir", "/tmp/motion")
	viper.SetDefault("capture.outputdir", "/home/motion/files")
	viper.SetDefault("capture.imageext", ".webp")
	viper.SetDefault("capture.videoext", ".mkv")
	viper.SetDefault("capture.tolerance", 40)

	viper.SetDefault("detector.command", "python3")
	viper.SetDefault("detector.script", "/home/motion/yolov7/detect.py")
	viper.SetDefault("detector.weights", "/home/motion/yolov7/yolov7-tiny.pt")
	viper.SetDefault("detector.confidence", 0.6)
	// person, car, truck, cat, dog, horse, sheep, cow, elephant, bear, zebra, giraffe
	viper.SetDefault("detector.classes", []int{0, 2, 7, 15, 16, 17, 18, 19, 20, 21, 22, 23})
	viper.SetDefault("detector.project", "/tmp")
	viper.SetDefault("detector.runname", "motion_run")
	viper.SetDefault("detector.workdir", "/tmp")
	viper.SetDefault("detector.timeout", time.Duration(0))

	viper.SetDefault("routing.deleteannotated", true)
	viper.SetDefault("routing.annotatedexts", []string{".webp", ".jpg", ".jpeg", ".png"})
	viper.SetDefault("routing.purgeartifactsonempty", true)
	viper.SetDefault("routing.dryrun", false)

	viper.SetDefault("notification.message", "Motion!")
	viper.SetDefault("notification.title", "")
	viper.SetDefault("notification.cooldown", time.Duration(0))
	viper.SetDefault("notification.pushover.enabled", false)
	viper.SetDefault("notification.pushover.token", "")
	viper.SetDefault("notification.pushover.user", "")
	viper.SetDefault("notification.pushover.url", "https://api.pushover.net/1/messages.json")
	viper.SetDefault("notification.pushover.timeout", 30*time.Second)
	viper.SetDefault("notification.pushover.priority", 0)
	viper.SetDefault("notification.pushover.sound", "")
	viper.SetDefault("notification.pushover.device", "")
	viper.SetDefault("notification.shoutrrr.enabled", false)
	viper.SetDefault("notification.shoutrrr.urls", []string{})
	viper.SetDefault("notification.shoutrrr.timeout", 10*time.Second)

	viper.SetDefault("retention.enabled", false)
	viper.SetDefault("retention.maxage", "30d")
	viper.SetDefault("retention.minfiles", 10)
	viper.SetDefault("retention.maxdeletions", 1000)

	viper.SetDefault("watch.debounce", 2*time.Second)
	viper.SetDefault("watch.interval", time.Duration(0))

	viper.SetDefault("telemetry.sentry.enabled", false)
	viper.SetDefault("telemetry.sentry.dsn", "")
	viper.SetDefault("telemetry.metrics.enabled", false)
	viper.SetDefault("telemetry.metrics.textfile", "")

	viper.SetDefault("logging.default_level", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.file_output.enabled", false)
	viper.SetDefault("logging.file_output.path", "logs/motionsort.log")
	viper.SetDefault("logging.file_output.level", "info")
	viper.SetDefault("logging.file_output.max_size", 10)
	viper.SetDefault("logging.file_output.max_age", 30)
	viper.SetDefault("logging.file_output.max_rotated_files", 5)
	viper.SetDefault("logging.file_output.compress", false)
}
