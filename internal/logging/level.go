package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Off is a level above every zap level; a logger at Off writes nothing.
const Off = zapcore.FatalLevel + 1

// ParseLevel converts a log level string (case-insensitive) to a zap level.
// Accepts none, error, warn/warning, info and debug.
// Returns InfoLevel and an error if the string is invalid.
func ParseLevel(levelStr string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "none", "off":
		return Off, nil
	case "error":
		return zapcore.ErrorLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("invalid log level string: '%s'", levelStr)
	}
}
