package detector

import "github.com/tphakala/motionsort/internal/logger"

// GetLogger returns the detector module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("detector")
}
