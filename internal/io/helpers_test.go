package io

import (
	"os"
	"testing"

	"etl-tools/internal/frame"

	"github.com/apache/arrow-go/v18/arrow"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// createTempFile writes content to a new file in t.TempDir and returns its path.
func createTempFile(t *testing.T, content string, pattern string) string {
	t.Helper()
	tempFile, err := os.CreateTemp(t.TempDir(), pattern)
	if err != nil {
		t.Fatalf("Failed to create temp file (pattern: %s): %v", pattern, err)
	}
	filePath := tempFile.Name()
	if _, err := tempFile.WriteString(content); err != nil {
		_ = tempFile.Close()
		t.Fatalf("Failed to write to temp file %s: %v", filePath, err)
	}
	if err := tempFile.Close(); err != nil {
		t.Fatalf("Failed to close temp file %s: %v", filePath, err)
	}
	return filePath
}

// createTempCSV creates a temporary CSV file with specific content.
func createTempCSV(t *testing.T, content string) string {
	t.Helper()
	return createTempFile(t, content, "test_*.csv")
}

// createFileAt writes content to path.
func createFileAt(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

// observedLogger returns a debug level logger whose entries can be inspected.
func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

// messages returns the messages logged at exactly level.
func messages(logs *observer.ObservedLogs, level zapcore.Level) []string {
	var out []string
	for _, e := range logs.FilterLevelExact(level).All() {
		out = append(out, e.Message)
	}
	return out
}

// mustTable builds a table from text rows with full inference.
func mustTable(t *testing.T, header []string, rows [][]string) arrow.Table {
	t.Helper()
	tbl, _, err := frame.BuildStrings(header, rows, frame.Options{InferLength: -1})
	if err != nil {
		t.Fatalf("Failed to build table: %v", err)
	}
	t.Cleanup(tbl.Release)
	return tbl
}
