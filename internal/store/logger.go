package store

import "github.com/tphakala/motionsort/internal/logger"

// GetLogger returns the store module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("store")
}
