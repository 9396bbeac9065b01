package io

import (
	"fmt"
	"unicode/utf8"

	"etl-tools/internal/frame"
	"etl-tools/internal/logging"

	"go.uber.org/zap"
)

// Option tunes LoadFile, LoadSheet and LoadQuery.
type Option func(*loadOptions)

type loadOptions struct {
	overrides   frame.Overrides
	inferLength int
	columns     []string
	filter      string
	delimiter   rune
	comment     rune
	sheet       string
	args        []any
}

func newLoadOptions(opts []Option) loadOptions {
	o := loadOptions{inferLength: -1, delimiter: ','}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithSchemaOverrides forces the type of the named columns.
func WithSchemaOverrides(o frame.Overrides) Option {
	return func(lo *loadOptions) { lo.overrides = o }
}

// WithInferSchemaLength limits type inference to the first n data rows.
// Zero loads every column as text. Without this option every row is sampled.
func WithInferSchemaLength(n int) Option {
	return func(lo *loadOptions) { lo.inferLength = n }
}

// WithColumns keeps only the named columns, in that order.
func WithColumns(names ...string) Option {
	return func(lo *loadOptions) { lo.columns = names }
}

// WithFilter keeps only rows for which the boolean expression holds.
func WithFilter(expr string) Option {
	return func(lo *loadOptions) { lo.filter = expr }
}

// WithDelimiter sets the field separator of delimited files.
func WithDelimiter(r rune) Option {
	return func(lo *loadOptions) { lo.delimiter = r }
}

// WithComment makes lines starting with r comments.
func WithComment(r rune) Option {
	return func(lo *loadOptions) { lo.comment = r }
}

// WithSheet selects the worksheet LoadSheet reads. The active sheet is used by default.
func WithSheet(name string) Option {
	return func(lo *loadOptions) { lo.sheet = name }
}

// WithArgs binds positional parameters ($1, $2, ...) of a LoadQuery statement.
func WithArgs(args ...any) Option {
	return func(lo *loadOptions) { lo.args = args }
}

// frameOptions translates the load options into frame build options.
func (o loadOptions) frameOptions(log *zap.Logger, source string) (frame.Options, error) {
	fo := frame.Options{
		Columns:     o.columns,
		Overrides:   o.overrides,
		InferLength: o.inferLength,
		OnSkip: func(row int, err error) {
			log.Debug(fmt.Sprintf("Skipping row %d of %s: %v", row+1, source, err))
		},
	}
	if o.filter != "" {
		pred, err := frame.CompileFilter(o.filter)
		if err != nil {
			return fo, err
		}
		fo.Filter = pred
	}
	return fo, nil
}

// ParseRune converts a single character setting such as a delimiter.
// An empty value yields def.
func ParseRune(value string, def rune, what string) (rune, error) {
	if value == "" {
		return def, nil
	}
	if utf8.RuneCountInString(value) != 1 {
		return 0, fmt.Errorf("invalid %s '%s': must be a single character", what, value)
	}
	r, _ := utf8.DecodeRuneInString(value)
	return r, nil
}

// WriteOption tunes WriteParquet.
type WriteOption func(*writeOptions)

type writeOptions struct {
	compression  string
	level        *int
	rowGroupSize int64
}

// WithCompression selects the codec: zstd (default), snappy, gzip, brotli, lz4 or uncompressed.
func WithCompression(name string) WriteOption {
	return func(wo *writeOptions) { wo.compression = name }
}

// WithCompressionLevel overrides the codec level, which defaults to the codec maximum.
func WithCompressionLevel(level int) WriteOption {
	return func(wo *writeOptions) { wo.level = &level }
}

// WithRowGroupSize caps the number of rows per row group.
func WithRowGroupSize(rows int64) WriteOption {
	return func(wo *writeOptions) { wo.rowGroupSize = rows }
}

// orConsole substitutes the default console logger for a nil one.
func orConsole(log *zap.Logger) *zap.Logger {
	if log == nil {
		return logging.Console(logging.DefaultName).Logger
	}
	return log
}

func summarizeSkipped(log *zap.Logger, source string, stats frame.Stats) {
	log = log.WithOptions(zap.AddCallerSkip(1))
	if stats.Skipped > 0 {
		log.Warn(fmt.Sprintf("Skipped %d malformed rows in %s.", stats.Skipped, source))
	}
	if stats.Filtered > 0 {
		log.Debug(fmt.Sprintf("Filter removed %d rows from %s.", stats.Filtered, source))
	}
}
