package processor

import "github.com/tphakala/motionsort/internal/logger"

// GetLogger returns the processor module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("processor")
}
