package license

import (
	"log/slog"
)

// componentLogger tags every license log line with component=license
func componentLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String("component", "license"))
}

// MaskKey hides the middle of a license key for logging
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}

// maskHardwareID keeps enough of a fingerprint to correlate log lines
func maskHardwareID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12] + "..."
}
