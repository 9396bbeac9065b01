package io

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"go.uber.org/zap"
)

// logReadFailure writes the single error line for a failed load or read.
// The line is attributed to the public function that called it.
func logReadFailure(log *zap.Logger, source string, err error) {
	log = log.WithOptions(zap.AddCallerSkip(1))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Error(fmt.Sprintf("Error: File not found - %s", source))
	case errors.Is(err, ErrEmptyFile):
		log.Error(fmt.Sprintf("Error: No data in file - %s", source))
	default:
		log.Error(fmt.Sprintf("Error reading %s - Error type: %v", source, err))
	}
}

func logWriteFailure(log *zap.Logger, target string, err error) {
	log = log.WithOptions(zap.AddCallerSkip(1))
	log.Error(fmt.Sprintf("Error writing %s - Error type: %v", target, err))
}

func elapsed(start time.Time) string {
	return fmt.Sprintf("%.2f", time.Since(start).Seconds())
}
