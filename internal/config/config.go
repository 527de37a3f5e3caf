// Package config loads qrecmetrics settings from an optional YAML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/roach88/qrecmetrics/internal/fragment"
)

// Config holds all qrecmetrics settings. Precedence, lowest first: field
// defaults, YAML file, QRM_* environment variables, command-line flags.
type Config struct {
	// FragmentModel selects the cohesion fragment model: "clauses" or
	// "selections".
	FragmentModel string `yaml:"fragment_model" env:"QRM_FRAGMENT_MODEL" env-default:"clauses"`

	// CleanSQL normalizes generated SQL (code fences, quotes, keyword case)
	// before extraction.
	CleanSQL bool `yaml:"clean_sql" env:"QRM_CLEAN_SQL"`

	// FoldIdentifiers case-folds table and column names in queries and
	// schemas.
	FoldIdentifiers bool `yaml:"fold_identifiers" env:"QRM_FOLD_IDENTIFIERS"`

	// Workers bounds how many sessions a batch evaluates at once.
	Workers int `yaml:"workers" env:"QRM_WORKERS" env-default:"4"`

	// OutputDir receives one report file per session.
	OutputDir string `yaml:"output_dir" env:"QRM_OUTPUT_DIR" env-default:"results"`

	// Database is the SQLite record store path. Empty disables the store.
	Database string `yaml:"database" env:"QRM_DATABASE"`

	// SchemaDir is the base of a <db_id>/schema.sql tree.
	SchemaDir string `yaml:"schema_dir" env:"QRM_SCHEMA_DIR"`

	// DefaultDBID is used for logs that do not name their database.
	DefaultDBID string `yaml:"default_db_id" env:"QRM_DEFAULT_DB_ID"`

	Log LogConfig `yaml:"log"`
}

// LogConfig controls logger construction.
type LogConfig struct {
	Level  string `yaml:"level" env:"QRM_LOG_LEVEL" env-default:"warn"`
	Format string `yaml:"format" env:"QRM_LOG_FORMAT" env-default:"console"`
}

// Load reads the YAML file at path, when path is not empty, then applies
// environment overrides and defaults. Unknown YAML keys are rejected.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		if err := readYAML(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func readYAML(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks values that the type system cannot.
func (c *Config) Validate() error {
	if _, err := fragment.ParseModel(c.FragmentModel); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log format must be console or json, got %q", c.Log.Format)
	}
	return nil
}

// Model returns the configured fragment model.
func (c *Config) Model() fragment.Model {
	m, err := fragment.ParseModel(c.FragmentModel)
	if err != nil {
		return fragment.ModelClauses
	}
	return m
}

// ExtractorOptions returns the extraction settings.
func (c *Config) ExtractorOptions() fragment.Options {
	return fragment.Options{Clean: c.CleanSQL, FoldIdentifiers: c.FoldIdentifiers}
}
