package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads, parses, defaults and validates a YAML job file.
func LoadConfig(filename string) (*ETLConfig, error) {
	fileBytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", filename, err)
	}

	var cfg ETLConfig
	if err := yaml.Unmarshal(fileBytes, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML in '%s': %w", filename, err)
	}

	applyDefaults(&cfg)
	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills unset settings. Type names are lower-cased so later
// comparisons can be exact.
func applyDefaults(cfg *ETLConfig) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Name == "" {
		cfg.Logging.Name = DefaultLoggerName
	}
	cfg.Source.Type = strings.ToLower(strings.TrimSpace(cfg.Source.Type))
	if cfg.Source.Type == SourceTypeCSV && cfg.Source.Delimiter == "" {
		cfg.Source.Delimiter = DefaultCSVDelimiter
	}
	if cfg.Destination.Compression == "" {
		cfg.Destination.Compression = DefaultCompression
	}
	cfg.Destination.Compression = strings.ToLower(cfg.Destination.Compression)
}
