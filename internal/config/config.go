// Package config provides configuration loading for the batch pipeline and
// server. Values come from an optional YAML file; command-line flags override
// individual fields after loading.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/scrinium/bibrange/core/errors"
)

// Batch modes select which grammar the pipeline feeds candidate text into.
const (
	ModeBible    = "bible"
	ModeCanonLaw = "canonlaw"
	ModeTime     = "time"
)

// Sink formats.
const (
	SinkTSV    = "tsv"
	SinkSQLite = "sqlite"
)

// Config represents the complete bibrange configuration.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Maps    MapsConfig    `yaml:"maps"`
	Batch   BatchConfig   `yaml:"batch"`
	Sink    SinkConfig    `yaml:"sink"`
	Server  ServerConfig  `yaml:"server"`
}

// LoggingConfig selects log level and output format.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is json or text.
	Format string `yaml:"format"`
}

// MapsConfig points at the three lookup tables. Empty paths select the
// embedded defaults.
type MapsConfig struct {
	Canonical string `yaml:"canonical"`
	Codes     string `yaml:"codes"`
	Aliases   string `yaml:"aliases"`
}

// BatchConfig configures the record-processing loop.
type BatchConfig struct {
	// Mode picks the grammar: bible, canonlaw or time.
	Mode string `yaml:"mode"`
	// Workers is the number of concurrent record workers.
	Workers int `yaml:"workers"`
	// Selectors lists MARCXML field selectors ("tag$subfield") whose values
	// become citation candidates. TSV sources ignore this.
	Selectors []string `yaml:"selectors"`
	// CenturyBoundaries decrements the end year of exact century ranges
	// ("1800-1900" reads as 1800-1899) in time mode.
	CenturyBoundaries bool `yaml:"century_boundaries"`
	// WholeBookFallback emits the whole-book range when the chapter/verse
	// part of a citation fails but the book itself resolves.
	WholeBookFallback bool `yaml:"whole_book_fallback"`
	// CacheSize bounds the resolution cache that memoizes repeated field
	// texts. Zero disables caching.
	CacheSize int `yaml:"cache_size"`
}

// SinkConfig configures where parsed ranges go.
type SinkConfig struct {
	// Format is tsv or sqlite.
	Format string `yaml:"format"`
	// Path is the output file; "-" means stdout for the tsv sink. A .xz
	// suffix compresses the stream.
	Path string `yaml:"path"`
	// Table is the SQLite table name.
	Table string `yaml:"table"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Maps: MapsConfig{},
		Batch: BatchConfig{
			Mode:              ModeBible,
			Workers:           4,
			Selectors:         []string{"130$a", "630$a"},
			CenturyBoundaries: true,
			WholeBookFallback: true,
			CacheSize:         4096,
		},
		Sink: SinkConfig{
			Format: SinkTSV,
			Path:   "-",
			Table:  "ranges",
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8390,
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Batch.Mode {
	case ModeBible, ModeCanonLaw, ModeTime:
	default:
		return errors.NewConfig("", 0, "batch.mode must be bible, canonlaw or time, got "+c.Batch.Mode)
	}
	if c.Batch.Workers < 1 {
		return errors.NewConfig("", 0, "batch.workers must be at least 1")
	}
	if c.Batch.CacheSize < 0 {
		return errors.NewConfig("", 0, "batch.cache_size must not be negative")
	}
	switch c.Sink.Format {
	case SinkTSV, SinkSQLite:
	default:
		return errors.NewConfig("", 0, "sink.format must be tsv or sqlite, got "+c.Sink.Format)
	}
	if c.Sink.Format == SinkSQLite && (c.Sink.Path == "" || c.Sink.Path == "-") {
		return errors.NewConfig("", 0, "sink.path must name a database file for the sqlite sink")
	}
	if c.Sink.Table == "" {
		return errors.NewConfig("", 0, "sink.table must not be empty")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.NewConfig("", 0, "server.port must be between 1 and 65535")
	}
	return nil
}

// Load returns the defaults when path is empty, otherwise the file contents
// merged over the defaults. The result is validated either way.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := DefaultConfig()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return LoadFromFile(path)
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &errors.ConfigError{Path: path, Message: "not valid YAML", Err: err}
	}

	if err := cfg.Validate(); err != nil {
		var confErr *errors.ConfigError
		if errors.As(err, &confErr) {
			confErr.Path = path
		}
		return nil, err
	}
	return cfg, nil
}

// SaveToFile writes the configuration as YAML, creating parent directories.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.NewIO("create directory", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.NewIO("write", path, err)
	}
	return nil
}
