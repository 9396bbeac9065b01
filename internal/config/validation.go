package config

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"etl-tools/internal/frame"
	"etl-tools/internal/logging"
)

var (
	knownSourceTypes = []string{SourceTypeCSV, SourceTypeXLSX, SourceTypePostgres}
	knownCodecs      = []string{"zstd", "snappy", "gzip", "brotli", "lz4", "lz4_raw", "uncompressed", "none"}
	// codecLevels lists codecs that accept a level with their inclusive range.
	codecLevels = map[string][2]int{"zstd": {1, 22}, "gzip": {0, 9}, "brotli": {0, 11}}
)

// isValidEnumValue reports whether value is one of allowed, ignoring case.
func isValidEnumValue(value string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(value, a) {
			return true
		}
	}
	return false
}

// ValidateConfig checks the whole job and reports every problem found at once.
func ValidateConfig(cfg *ETLConfig) error {
	var allErrors []string

	if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
		allErrors = append(allErrors, fmt.Sprintf("- Config.Logging.Level: %v", err))
	}
	allErrors = append(allErrors, validateSourceConfig("Config.Source", &cfg.Source)...)

	if cfg.Filter != "" {
		vars, err := frame.FilterVars(cfg.Filter)
		if err != nil {
			allErrors = append(allErrors, fmt.Sprintf("- Config.Filter: invalid expression syntax: %v", err))
		} else if len(cfg.Source.Columns) > 0 {
			// the filter only sees the selected columns
			for _, v := range vars {
				if !isValidEnumValue(v, cfg.Source.Columns) {
					allErrors = append(allErrors, fmt.Sprintf("- Config.Filter: column '%s' is not listed in Source.Columns", v))
				}
			}
		}
	}

	allErrors = append(allErrors, validateDestinationConfig("Config.Destination", &cfg.Destination)...)

	if len(allErrors) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(allErrors, "\n"))
	}
	return nil
}

func validateSourceConfig(prefix string, cfg *SourceConfig) []string {
	var errs []string
	if cfg.Type == "" {
		return append(errs, fmt.Sprintf("- %s.Type: is required", prefix))
	}
	if !isValidEnumValue(cfg.Type, knownSourceTypes) {
		return append(errs, fmt.Sprintf("- %s.Type: invalid source type '%s', must be one of %v", prefix, cfg.Type, knownSourceTypes))
	}

	switch strings.ToLower(cfg.Type) {
	case SourceTypePostgres:
		if strings.TrimSpace(cfg.Query) == "" {
			errs = append(errs, fmt.Sprintf("- %s.Query: is required for source type 'postgres'", prefix))
		}
	case SourceTypeCSV:
		if cfg.File == "" {
			errs = append(errs, fmt.Sprintf("- %s.File: is required for source type '%s'", prefix, cfg.Type))
		}
		if err := validateSingleRuneString(cfg.Delimiter, prefix+".Delimiter", false); err != nil {
			errs = append(errs, err.Error())
		}
		if err := validateSingleRuneString(cfg.CommentChar, prefix+".CommentChar", true); err != nil {
			errs = append(errs, err.Error())
		}
		if cfg.CommentChar != "" && cfg.CommentChar == cfg.Delimiter {
			errs = append(errs, fmt.Sprintf("- %s.CommentChar: must differ from the delimiter", prefix))
		}
	case SourceTypeXLSX:
		if cfg.File == "" {
			errs = append(errs, fmt.Sprintf("- %s.File: is required for source type '%s'", prefix, cfg.Type))
		}
		if cfg.SheetName != "" {
			if err := validateSheetName(cfg.SheetName, prefix+".SheetName"); err != nil {
				errs = append(errs, err.Error())
			}
		}
	}

	seen := make(map[string]bool, len(cfg.Columns))
	for i, c := range cfg.Columns {
		switch {
		case strings.TrimSpace(c) == "":
			errs = append(errs, fmt.Sprintf("- %s.Columns[%d]: cannot be empty", prefix, i))
		case seen[c]:
			errs = append(errs, fmt.Sprintf("- %s.Columns[%d]: duplicate column '%s'", prefix, i, c))
		}
		seen[c] = true
	}

	if _, err := frame.ParseOverrides(cfg.Types); err != nil {
		errs = append(errs, fmt.Sprintf("- %s.Types: %s", prefix, strings.ReplaceAll(err.Error(), "\n", "; ")))
	}
	if len(cfg.Columns) > 0 {
		for col := range cfg.Types {
			if !seen[col] {
				errs = append(errs, fmt.Sprintf("- %s.Types: column '%s' is not listed in Columns", prefix, col))
			}
		}
	}

	if cfg.InferSchemaLength != nil && *cfg.InferSchemaLength < 0 {
		errs = append(errs, fmt.Sprintf("- %s.InferSchemaLength: cannot be negative", prefix))
	}
	return errs
}

func validateDestinationConfig(prefix string, cfg *DestinationConfig) []string {
	var errs []string
	if cfg.File == "" {
		errs = append(errs, fmt.Sprintf("- %s.File: is required", prefix))
	}
	if !isValidEnumValue(cfg.Compression, knownCodecs) {
		errs = append(errs, fmt.Sprintf("- %s.Compression: unknown codec '%s', must be one of %v", prefix, cfg.Compression, knownCodecs))
	} else if cfg.CompressionLevel != nil {
		r, hasLevels := codecLevels[strings.ToLower(cfg.Compression)]
		lvl := *cfg.CompressionLevel
		switch {
		case !hasLevels:
			errs = append(errs, fmt.Sprintf("- %s.CompressionLevel: codec '%s' does not take a level", prefix, cfg.Compression))
		case lvl < r[0] || lvl > r[1]:
			errs = append(errs, fmt.Sprintf("- %s.CompressionLevel: %d out of range %d-%d for '%s'", prefix, lvl, r[0], r[1], cfg.Compression))
		}
	}
	if cfg.RowGroupSize < 0 {
		errs = append(errs, fmt.Sprintf("- %s.RowGroupSize: cannot be negative", prefix))
	}
	return errs
}

func validateSingleRuneString(s, fieldName string, allowEmpty bool) error {
	if s == "" {
		if !allowEmpty {
			return fmt.Errorf("- %s: cannot be empty", fieldName)
		}
		return nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return fmt.Errorf("- %s: %s must be a single character", fieldName, strconv.Quote(s))
	}
	return nil
}

// validateSheetName applies Excel's sheet naming rules.
func validateSheetName(sheetName, fieldName string) error {
	if utf8.RuneCountInString(sheetName) > 31 {
		return fmt.Errorf("- %s: '%s' exceeds maximum length of 31 characters", fieldName, sheetName)
	}
	if strings.ContainsAny(sheetName, `:\/?*[]`) {
		return fmt.Errorf("- %s: '%s' contains invalid characters (: \\ / ? * [ ])", fieldName, sheetName)
	}
	if strings.HasPrefix(sheetName, "'") || strings.HasSuffix(sheetName, "'") {
		return fmt.Errorf("- %s: '%s' cannot start or end with a single quote", fieldName, sheetName)
	}
	return nil
}
