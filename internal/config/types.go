package config

// Source types, defaults and other configuration constants.
const (
	SourceTypeCSV      = "csv"
	SourceTypeXLSX     = "xlsx"
	SourceTypePostgres = "postgres"

	DefaultLogLevel     = "info"
	DefaultLoggerName   = "etl_tools"
	DefaultCSVDelimiter = ","
	DefaultCompression  = "zstd"
)

// ETLConfig describes one conversion job: a single source loaded into a table
// and written out as one Parquet file.
type ETLConfig struct {
	// Logging configures verbosity and an optional log file.
	Logging LoggingConfig `yaml:"logging"`
	// Source defines where the rows come from.
	Source SourceConfig `yaml:"source"`
	// Filter is an optional govaluate expression evaluated against each typed row.
	// Rows for which it is false are dropped. Example: "status == 'active' && amount > 0"
	Filter string `yaml:"filter,omitempty"`
	// Destination defines the Parquet file written.
	Destination DestinationConfig `yaml:"destination"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	// Name is the logger name shown on every line. Defaults to "etl_tools".
	Name string `yaml:"name,omitempty"`
	// Level is one of "none", "error", "warn", "info" or "debug". Defaults to "info".
	Level string `yaml:"level"`
	// File, when set, receives the same lines as stderr. Environment variables are expanded.
	File string `yaml:"file,omitempty"`
}

// SourceConfig details the input.
type SourceConfig struct {
	// Type is "csv", "xlsx" or "postgres". Required.
	Type string `yaml:"type"`
	// File is the input path for csv and xlsx sources. Environment variables are expanded.
	File string `yaml:"file,omitempty"`
	// Query is the SQL statement for postgres sources.
	Query string `yaml:"query,omitempty"`
	// Delimiter is the CSV field separator. Defaults to ",".
	Delimiter string `yaml:"delimiter,omitempty"`
	// CommentChar marks CSV comment lines. Empty disables comments.
	CommentChar string `yaml:"commentChar,omitempty"`
	// SheetName selects the xlsx worksheet. Defaults to the active sheet.
	SheetName string `yaml:"sheetName,omitempty"`
	// Columns restricts and orders the loaded columns.
	Columns []string `yaml:"columns,omitempty"`
	// Types overrides inferred column types, e.g. {id: int64, created: datetime}.
	Types map[string]string `yaml:"types,omitempty"`
	// InferSchemaLength caps the rows sampled for type inference. Unset samples
	// every row, 0 loads every column as text.
	InferSchemaLength *int `yaml:"inferSchemaLength,omitempty"`
}

// DestinationConfig details the Parquet output.
type DestinationConfig struct {
	// File is the output path. Environment variables are expanded. Required.
	File string `yaml:"file"`
	// Compression is the codec name. Defaults to "zstd".
	Compression string `yaml:"compression,omitempty"`
	// CompressionLevel defaults to the codec maximum.
	CompressionLevel *int `yaml:"compressionLevel,omitempty"`
	// RowGroupSize caps rows per row group. Zero uses the writer default.
	RowGroupSize int64 `yaml:"rowGroupSize,omitempty"`
}
