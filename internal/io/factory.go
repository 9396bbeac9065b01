package io

import (
	"fmt"
	"strings"

	"etl-tools/internal/config"
	"etl-tools/internal/frame"
	"etl-tools/internal/util"
)

// NewLoader creates the Loader for a configured source. File paths have their
// environment variables expanded. q is only used, and then required, for
// postgres sources.
func NewLoader(cfg config.ETLConfig, q Querier) (Loader, error) {
	opts, err := loadOptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	src := cfg.Source
	switch strings.ToLower(src.Type) {
	case config.SourceTypeCSV:
		delim, err := ParseRune(src.Delimiter, ',', "delimiter")
		if err != nil {
			return nil, err
		}
		comment, err := ParseRune(src.CommentChar, 0, "comment character")
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithDelimiter(delim))
		if comment != 0 {
			opts = append(opts, WithComment(comment))
		}
		return &fileLoader{path: util.ExpandEnvUniversal(src.File), opts: opts}, nil
	case config.SourceTypeXLSX:
		if src.SheetName != "" {
			opts = append(opts, WithSheet(src.SheetName))
		}
		return &sheetLoader{path: util.ExpandEnvUniversal(src.File), opts: opts}, nil
	case config.SourceTypePostgres:
		if q == nil {
			return nil, fmt.Errorf("database connection (DB_CREDENTIALS) is required for source type 'postgres'")
		}
		if strings.TrimSpace(src.Query) == "" {
			return nil, fmt.Errorf("query is required in source config for type 'postgres'")
		}
		return &queryLoader{q: q, query: src.Query, opts: opts}, nil
	default:
		return nil, fmt.Errorf("unsupported source type '%s'", src.Type)
	}
}

// loadOptionsFromConfig maps the settings every source type shares.
func loadOptionsFromConfig(cfg config.ETLConfig) ([]Option, error) {
	var opts []Option
	overrides, err := frame.ParseOverrides(cfg.Source.Types)
	if err != nil {
		return nil, fmt.Errorf("invalid type overrides: %w", err)
	}
	if len(overrides) > 0 {
		opts = append(opts, WithSchemaOverrides(overrides))
	}
	if cfg.Source.InferSchemaLength != nil {
		opts = append(opts, WithInferSchemaLength(*cfg.Source.InferSchemaLength))
	}
	if len(cfg.Source.Columns) > 0 {
		opts = append(opts, WithColumns(cfg.Source.Columns...))
	}
	if cfg.Filter != "" {
		opts = append(opts, WithFilter(cfg.Filter))
	}
	return opts, nil
}

// WriteOptionsFromConfig maps the destination settings onto WriteParquet options.
func WriteOptionsFromConfig(dst config.DestinationConfig) []WriteOption {
	var opts []WriteOption
	if dst.Compression != "" {
		opts = append(opts, WithCompression(dst.Compression))
	}
	if dst.CompressionLevel != nil {
		opts = append(opts, WithCompressionLevel(*dst.CompressionLevel))
	}
	if dst.RowGroupSize > 0 {
		opts = append(opts, WithRowGroupSize(dst.RowGroupSize))
	}
	return opts
}
