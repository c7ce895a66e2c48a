package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/DeusData/starscope/internal/db"
	"github.com/DeusData/starscope/internal/discover"
	"github.com/DeusData/starscope/internal/scanner"
)

const (
	// FileName is the configuration file looked up in the working directory.
	FileName = ".starscope.yaml"
	// DefaultDatabase is the database path used when none is configured.
	DefaultDatabase = ".starscope.db"
)

// Config holds user-overridable settings. Loaded from .starscope.yaml.
type Config struct {
	// Database is the default database path. Default: .starscope.db.
	Database string `yaml:"database"`

	// Exclude are doublestar globs matched against root-relative paths
	// and base names, added to the built-in ignored directories.
	Exclude []string `yaml:"exclude"`

	// Workers bounds parallel scanning. Default: number of CPUs.
	Workers int `yaml:"workers"`

	// Languages restricts indexing to these languages. Default: all.
	Languages []string `yaml:"languages"`

	// AllowSyntaxErrors indexes files that do not parse cleanly.
	// Default: false.
	AllowSyntaxErrors *bool `yaml:"allow_syntax_errors"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{}
}

// Load reads the configuration at path. A missing file yields the
// defaults. A file that cannot be parsed yields the defaults together with
// the parse error, so callers can warn and carry on.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return DefaultConfig(), fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return DefaultConfig(), fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return DefaultConfig(), fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	for _, p := range c.Exclude {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid exclude pattern %q", p)
		}
	}
	return nil
}

// EffectiveDatabase returns the configured database path, or the default.
func (c *Config) EffectiveDatabase() string {
	if c.Database != "" {
		return c.Database
	}
	return DefaultDatabase
}

// EffectiveAllowSyntaxErrors returns the configured setting, or false.
func (c *Config) EffectiveAllowSyntaxErrors() bool {
	if c.AllowSyntaxErrors != nil {
		return *c.AllowSyntaxErrors
	}
	return false
}

// Registry builds the scanner registry described by the configuration.
func (c *Config) Registry() (*scanner.Registry, error) {
	return scanner.Default(scanner.Options{
		Languages:         c.Languages,
		AllowSyntaxErrors: c.EffectiveAllowSyntaxErrors(),
	})
}

// DBOptions returns the database options described by the configuration.
func (c *Config) DBOptions() *db.Options {
	return &db.Options{
		Workers:  c.Workers,
		Discover: &discover.Options{Exclude: c.Exclude},
	}
}

// NewDB returns an empty database configured from c.
func (c *Config) NewDB() (*db.DB, error) {
	reg, err := c.Registry()
	if err != nil {
		return nil, err
	}
	return db.New(reg, c.DBOptions()), nil
}
