package watcher

import "github.com/tphakala/motionsort/internal/logger"

// GetLogger returns the watcher module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("watcher")
}
