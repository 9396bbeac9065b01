package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"etl-tools/internal/config"
	"etl-tools/internal/frame"
	etlio "etl-tools/internal/io"
	"etl-tools/internal/logging"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- Mock Implementations ---

type stubLoader struct {
	tbl   arrow.Table
	err   error
	calls int
}

func (s *stubLoader) Load(context.Context, *zap.Logger) (arrow.Table, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	s.tbl.Retain()
	return s.tbl, nil
}

type stubQuerier struct{}

func (stubQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not used")
}

// --- Test Helper Functions ---

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Create dir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Write %s: %v", path, err)
	}
	return path
}

func newTestRunner() (*AppRunner, *bytes.Buffer) {
	var buf bytes.Buffer
	return &AppRunner{registry: logging.NewRegistry(), stderr: &buf}, &buf
}

func sampleTable(t *testing.T) arrow.Table {
	t.Helper()
	tbl, _, err := frame.BuildStrings([]string{"col1", "col2"}, [][]string{{"1", "3"}, {"2", "4"}}, frame.Options{InferLength: -1})
	require.NoError(t, err)
	t.Cleanup(tbl.Release)
	return tbl
}

// restoreFactories puts the package factories back after a test swaps them.
func restoreFactories(t *testing.T) {
	t.Helper()
	origLoader, origWrite, origConnect := newLoaderFunc, writeParquetFunc, connectFunc
	origMkdir, origStat := osMkdirAllFunc, osStatFunc
	t.Cleanup(func() {
		newLoaderFunc, writeParquetFunc, connectFunc = origLoader, origWrite, origConnect
		osMkdirAllFunc, osStatFunc = origMkdir, origStat
	})
}

// --- Tests ---

func TestConvert_CSVToParquet(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "data", "in.csv"), "id,amount\n1,10.5\n2,20\n3,x\n")
	cfgPath := writeFile(t, filepath.Join(dir, "job.yaml"), `
logging:
  name: job1
  file: `+filepath.Join(dir, "logs", "job1.log")+`
source:
  type: csv
  file: `+filepath.Join(dir, "data", "in.csv")+`
  types:
    amount: float64
destination:
  file: `+filepath.Join(dir, "out", "in.parquet")+`
  compression: snappy
`)
	runner, stderr := newTestRunner()

	require.NoError(t, runner.Convert(context.Background(), ConvertOptions{ConfigFile: cfgPath}))

	got, err := etlio.ReadParquet(zap.NewNop(), filepath.Join(dir, "out", "in.parquet"))
	require.NoError(t, err)
	defer got.Release()
	assert.Equal(t, [][]string{{"1", "10.5"}, {"2", "20"}}, frame.Strings(got, -1))

	out := stderr.String()
	assert.Contains(t, out, "Starting ETL with config: "+cfgPath)
	assert.Contains(t, out, "Skipped 1 malformed rows")
	assert.Contains(t, out, "ETL process completed: 2 rows written to")

	logged, err := os.ReadFile(filepath.Join(dir, "logs", "job1.log"))
	require.NoError(t, err)
	assert.Contains(t, string(logged), "job1")
	assert.Contains(t, string(logged), "ETL process completed")

	lg, ok := runner.registry.Lookup("job1")
	require.True(t, ok)
	assert.Equal(t, 2, lg.Handlers())
}

func TestConvert_Overrides(t *testing.T) {
	dir := t.TempDir()
	other := writeFile(t, filepath.Join(dir, "other.csv"), "a\n7\n")
	cfgPath := writeFile(t, filepath.Join(dir, "job.yaml"), `
source:
  type: csv
  file: missing.csv
destination:
  file: unused.parquet
`)
	output := filepath.Join(dir, "override.parquet")
	runner, stderr := newTestRunner()

	err := runner.Convert(context.Background(), ConvertOptions{ConfigFile: cfgPath, Input: other, Output: output, LogLevel: "debug"})
	require.NoError(t, err)
	assert.FileExists(t, output)
	assert.Contains(t, stderr.String(), "Override input: "+other)
	assert.Contains(t, stderr.String(), "Override output: "+output)
}

func TestConvert_ArgumentErrors(t *testing.T) {
	runner, _ := newTestRunner()

	err := runner.Convert(context.Background(), ConvertOptions{})
	assert.True(t, errors.Is(err, ErrMissingArgs))

	err = runner.Convert(context.Background(), ConvertOptions{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")})
	assert.True(t, errors.Is(err, ErrConfigNotFound))

	cfgPath := writeFile(t, filepath.Join(t.TempDir(), "job.yaml"), "source:\n  type: csv\n  file: a.csv\ndestination:\n  file: a.parquet\n")
	err = runner.Convert(context.Background(), ConvertOptions{ConfigFile: cfgPath, LogLevel: "shout"})
	assert.True(t, errors.Is(err, ErrUsage))
}

func TestConvert_InvalidConfig(t *testing.T) {
	cfgPath := writeFile(t, filepath.Join(t.TempDir(), "job.yaml"), "source:\n  type: json\n")
	runner, _ := newTestRunner()
	err := runner.Convert(context.Background(), ConvertOptions{ConfigFile: cfgPath})
	assert.ErrorContains(t, err, "configuration validation failed")
}

func TestConvert_LoadFailure(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, filepath.Join(dir, "job.yaml"), `
source:
  type: csv
  file: `+filepath.Join(dir, "missing.csv")+`
destination:
  file: `+filepath.Join(dir, "out.parquet")+`
`)
	runner, stderr := newTestRunner()

	err := runner.Convert(context.Background(), ConvertOptions{ConfigFile: cfgPath})
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Contains(t, stderr.String(), "Error: File not found - "+filepath.Join(dir, "missing.csv"))
	assert.NoFileExists(t, filepath.Join(dir, "out.parquet"))
}

func TestConvert_DryRun(t *testing.T) {
	restoreFactories(t)
	loader := &stubLoader{tbl: sampleTable(t)}
	newLoaderFunc = func(config.ETLConfig, etlio.Querier) (etlio.Loader, error) { return loader, nil }
	writeCalled := false
	writeParquetFunc = func(*zap.Logger, arrow.Table, string, ...etlio.WriteOption) error {
		writeCalled = true
		return nil
	}

	cfgPath := writeFile(t, filepath.Join(t.TempDir(), "job.yaml"), "source:\n  type: csv\n  file: a.csv\ndestination:\n  file: a.parquet\n")
	runner, stderr := newTestRunner()

	require.NoError(t, runner.Convert(context.Background(), ConvertOptions{ConfigFile: cfgPath, DryRun: true}))
	assert.Equal(t, 1, loader.calls)
	assert.False(t, writeCalled)
	assert.Contains(t, stderr.String(), "DRY RUN: Skip write. Would write 2 rows to a.parquet.")
}

func TestConvert_WriteFailure(t *testing.T) {
	restoreFactories(t)
	newLoaderFunc = func(config.ETLConfig, etlio.Querier) (etlio.Loader, error) {
		return &stubLoader{tbl: sampleTable(t)}, nil
	}
	writeParquetFunc = func(*zap.Logger, arrow.Table, string, ...etlio.WriteOption) error {
		return errors.New("disk full")
	}

	cfgPath := writeFile(t, filepath.Join(t.TempDir(), "job.yaml"), "source:\n  type: csv\n  file: a.csv\ndestination:\n  file: a.parquet\n")
	runner, _ := newTestRunner()
	err := runner.Convert(context.Background(), ConvertOptions{ConfigFile: cfgPath})
	assert.ErrorContains(t, err, "failed to write output data: disk full")
}

func TestConvert_Postgres(t *testing.T) {
	restoreFactories(t)
	cfgPath := writeFile(t, filepath.Join(t.TempDir(), "job.yaml"), `
source:
  type: postgres
  query: SELECT col1, col2 FROM t
destination:
  file: out.parquet
`)

	t.Run("missing credentials", func(t *testing.T) {
		t.Setenv(DBCredentialsEnv, "")
		runner, _ := newTestRunner()
		err := runner.Convert(context.Background(), ConvertOptions{ConfigFile: cfgPath})
		assert.True(t, errors.Is(err, ErrMissingArgs))
		assert.ErrorContains(t, err, DBCredentialsEnv)
	})

	t.Run("credentials from env", func(t *testing.T) {
		t.Setenv(DBCredentialsEnv, "postgres://etl:pw@localhost/db")
		var gotConn string
		closed := false
		connectFunc = func(_ context.Context, _ *zap.Logger, connStr string) (etlio.Querier, func(), error) {
			gotConn = connStr
			return stubQuerier{}, func() { closed = true }, nil
		}
		var gotQ etlio.Querier
		newLoaderFunc = func(cfg config.ETLConfig, q etlio.Querier) (etlio.Loader, error) {
			gotQ = q
			return &stubLoader{tbl: sampleTable(t)}, nil
		}
		var gotPath string
		writeParquetFunc = func(_ *zap.Logger, _ arrow.Table, path string, _ ...etlio.WriteOption) error {
			gotPath = path
			return nil
		}

		runner, _ := newTestRunner()
		require.NoError(t, runner.Convert(context.Background(), ConvertOptions{ConfigFile: cfgPath}))
		assert.Equal(t, "postgres://etl:pw@localhost/db", gotConn)
		assert.Equal(t, stubQuerier{}, gotQ)
		assert.Equal(t, "out.parquet", gotPath)
		assert.True(t, closed)
	})

	t.Run("connection failure", func(t *testing.T) {
		connectFunc = func(context.Context, *zap.Logger, string) (etlio.Querier, func(), error) {
			return nil, nil, errors.New("connection refused")
		}
		runner, _ := newTestRunner()
		err := runner.Convert(context.Background(), ConvertOptions{ConfigFile: cfgPath, DBConn: "postgres://x"})
		assert.ErrorContains(t, err, "connection refused")
	})
}

func TestInspectCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.parquet")
	require.NoError(t, etlio.WriteParquet(zap.NewNop(), sampleTable(t), path))
	runner, _ := newTestRunner()

	var out bytes.Buffer
	require.NoError(t, runner.Head(&out, path, 1, []string{"col2"}, ""))
	assert.Contains(t, out.String(), "col2")
	assert.Contains(t, out.String(), "3")
	assert.NotContains(t, out.String(), "col1")

	out.Reset()
	require.NoError(t, runner.Schema(&out, path))
	assert.Equal(t, "col1: int64\ncol2: int64\n", out.String())

	out.Reset()
	require.NoError(t, runner.RowCount(&out, path))
	assert.Equal(t, "Total RowCount: 2\n", out.String())

	err := runner.Head(&out, path, -1, nil, "")
	assert.True(t, errors.Is(err, ErrUsage))

	err = runner.RowCount(&out, filepath.Join(t.TempDir(), "none.parquet"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestSplitColumns(t *testing.T) {
	assert.Nil(t, SplitColumns(""))
	assert.Equal(t, []string{"a", "b"}, SplitColumns(" a, ,b ,"))
	assert.Equal(t, "a", strings.Join(SplitColumns("a"), ""))
}
