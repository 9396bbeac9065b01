package io

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"etl-tools/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestFailureLinesNameTheCallingFunction(t *testing.T) {
	dir := t.TempDir()
	src := mustTable(t, []string{"a"}, [][]string{{"1"}})

	testCases := []struct {
		name   string
		run    func(lg *logging.Logger)
		caller string
	}{
		{"load file", func(lg *logging.Logger) { _, _ = LoadFile(lg.Logger, filepath.Join(dir, "missing.csv")) }, " @LoadFile #"},
		{"load sheet", func(lg *logging.Logger) { _, _ = LoadSheet(lg.Logger, filepath.Join(dir, "missing.xlsx")) }, " @LoadSheet #"},
		{"read parquet", func(lg *logging.Logger) { _, _ = ReadParquet(lg.Logger, filepath.Join(dir, "missing.parquet")) }, " @ReadParquet #"},
		{"write parquet", func(lg *logging.Logger) {
			_ = WriteParquet(lg.Logger, src, filepath.Join(dir, "bad.parquet"), WithCompression("lzo"))
		}, " @WriteParquet #"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			lg := logging.New("job1", zapcore.ErrorLevel, zapcore.AddSync(&buf))
			tc.run(lg)

			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			require.Len(t, lines, 1)
			assert.Contains(t, lines[0], tc.caller)
			assert.NotContains(t, lines[0], "report.go")
		})
	}
}
