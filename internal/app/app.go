package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"etl-tools/internal/config"
	"etl-tools/internal/frame"
	etlio "etl-tools/internal/io"
	"etl-tools/internal/logging"
	"etl-tools/internal/util"

	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Define common application-level errors.
var (
	ErrUsage          = errors.New("usage error")
	ErrConfigNotFound = errors.New("configuration file not found")
	ErrMissingArgs    = errors.New("missing required arguments")
)

// DBCredentialsEnv names the variable holding the postgres connection string.
const DBCredentialsEnv = "DB_CREDENTIALS"

// Factory variables, replaced in tests.
var (
	newLoaderFunc    = etlio.NewLoader
	writeParquetFunc = etlio.WriteParquet
	connectFunc      = func(ctx context.Context, log *zap.Logger, connStr string) (etlio.Querier, func(), error) {
		pool, err := etlio.Connect(ctx, log, connStr)
		if err != nil {
			return nil, nil, err
		}
		return pool, pool.Close, nil
	}

	osMkdirAllFunc = os.MkdirAll
	osStatFunc     = os.Stat
)

// ConvertOptions are the command-line inputs of one conversion job.
// Empty fields fall back to the job file.
type ConvertOptions struct {
	ConfigFile string
	Input      string
	Output     string
	DBConn     string
	LogLevel   string
	DryRun     bool
}

// AppRunner runs conversion jobs and the Parquet inspection commands.
type AppRunner struct {
	registry *logging.Registry
	stderr   io.Writer
}

// NewAppRunner creates a runner logging to stderr.
func NewAppRunner() *AppRunner {
	return &AppRunner{registry: logging.NewRegistry(), stderr: os.Stderr}
}

// Convert loads the configured source and writes it to the configured Parquet file.
func (a *AppRunner) Convert(ctx context.Context, opts ConvertOptions) error {
	if opts.ConfigFile == "" {
		return fmt.Errorf("%w: a job configuration file is required", ErrMissingArgs)
	}
	if _, err := osStatFunc(opts.ConfigFile); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: '%s'", ErrConfigNotFound, opts.ConfigFile)
		}
		return fmt.Errorf("failed to stat config file '%s': %w", opts.ConfigFile, err)
	}
	cfg, err := config.LoadConfig(opts.ConfigFile)
	if err != nil {
		return err
	}

	logger, closeLog, err := a.jobLogger(cfg.Logging, opts.LogLevel)
	if err != nil {
		return err
	}
	defer closeLog()
	log := logger.Logger

	log.Info(fmt.Sprintf("Starting ETL with config: %s", opts.ConfigFile))
	if opts.Input != "" {
		if cfg.Source.Type == config.SourceTypePostgres {
			log.Warn("Input override ignored for source type 'postgres'.")
		} else {
			cfg.Source.File = opts.Input
			log.Info(fmt.Sprintf("Override input: %s", opts.Input))
		}
	}
	if opts.Output != "" {
		cfg.Destination.File = opts.Output
		log.Info(fmt.Sprintf("Override output: %s", opts.Output))
	}
	outputFile := util.ExpandEnvUniversal(cfg.Destination.File)

	var q etlio.Querier
	if cfg.Source.Type == config.SourceTypePostgres {
		connStr := opts.DBConn
		if connStr == "" {
			connStr = os.Getenv(DBCredentialsEnv)
		}
		if connStr == "" {
			return fmt.Errorf("%w: set %s or pass a connection string for source type 'postgres'", ErrMissingArgs, DBCredentialsEnv)
		}
		querier, closeDB, err := connectFunc(ctx, log, util.ExpandEnvUniversal(connStr))
		if err != nil {
			return err
		}
		defer closeDB()
		q = querier
	}

	loader, err := newLoaderFunc(*cfg, q)
	if err != nil {
		return fmt.Errorf("failed to create loader: %w", err)
	}
	tbl, err := loader.Load(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load %s source: %w", cfg.Source.Type, err)
	}
	defer tbl.Release()

	if opts.DryRun {
		log.Info(fmt.Sprintf("DRY RUN: Skip write. Would write %d rows to %s.", tbl.NumRows(), outputFile))
		log.Debug("Sample:\n" + frame.Head(tbl, 5))
		return nil
	}
	if err := writeParquetFunc(log, tbl, outputFile, etlio.WriteOptionsFromConfig(cfg.Destination)...); err != nil {
		return fmt.Errorf("failed to write output data: %w", err)
	}
	log.Info(fmt.Sprintf("ETL process completed: %d rows written to %s.", tbl.NumRows(), outputFile))
	return nil
}

// jobLogger builds the logger named in cfg, writing to stderr and, when
// configured, appending to a log file. levelOverride wins over cfg.Level.
func (a *AppRunner) jobLogger(cfg config.LoggingConfig, levelOverride string) (*logging.Logger, func(), error) {
	levelStr := cfg.Level
	if levelOverride != "" {
		levelStr = levelOverride
	}
	level, err := logging.ParseLevel(levelStr)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}

	handlers := []zapcore.WriteSyncer{zapcore.Lock(zapcore.AddSync(a.stderr))}
	closeFn := func() {}
	if cfg.File != "" {
		path := util.ExpandEnvUniversal(cfg.File)
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := osMkdirAllFunc(dir, 0755); err != nil {
				return nil, nil, fmt.Errorf("failed to create directory for log file '%s': %w", path, err)
			}
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file '%s': %w", path, err)
		}
		handlers = append(handlers, zapcore.AddSync(f))
		closeFn = func() { _ = f.Close() }
	}

	name := cfg.Name
	if name == "" {
		name = logging.DefaultName
	}
	lg := a.registry.Get(name, level, handlers...)
	return lg, func() {
		_ = lg.Sync()
		closeFn()
	}, nil
}

// consoleLogger returns the logger used by the inspection commands.
func (a *AppRunner) consoleLogger(levelStr string) (*zap.Logger, error) {
	if levelStr == "" {
		levelStr = config.DefaultLogLevel
	}
	level, err := logging.ParseLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return a.registry.Get(logging.DefaultName, level, zapcore.Lock(zapcore.AddSync(a.stderr))).Logger, nil
}

// Head prints the first n rows of a Parquet file as a table, optionally only the named columns.
func (a *AppRunner) Head(w io.Writer, path string, n int, columns []string, levelStr string) error {
	if n < 0 {
		return fmt.Errorf("%w: row count must not be negative, got %d", ErrUsage, n)
	}
	log, err := a.consoleLogger(levelStr)
	if err != nil {
		return err
	}
	tbl, err := etlio.ReadParquet(log, path, columns...)
	if err != nil {
		return err
	}
	defer tbl.Release()

	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetHeader(frame.ColumnNames(tbl))
	table.AppendBulk(frame.Strings(tbl, n))
	table.Render()
	return nil
}

// Schema prints one "name: type" line per column of a Parquet file.
func (a *AppRunner) Schema(w io.Writer, path string) error {
	sc, _, err := etlio.ParquetSchema(path)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, frame.Describe(sc))
	return err
}

// RowCount prints the number of rows stored in a Parquet file.
func (a *AppRunner) RowCount(w io.Writer, path string) error {
	_, rows, err := etlio.ParquetSchema(path)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, "Total RowCount:", rows)
	return err
}

// SplitColumns parses a comma separated column list, dropping blanks.
func SplitColumns(s string) []string {
	var out []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
