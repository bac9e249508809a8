// Package config loads comphist defaults from a YAML or TOML file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a configuration file.
type Format string

const (
	// FormatYAML selects gopkg.in/yaml.v3.
	FormatYAML Format = "yaml"
	// FormatTOML selects BurntSushi/toml.
	FormatTOML Format = "toml"
)

// LoggingConfig holds logging-specific configurations.
type LoggingConfig struct {
	Level string `yaml:"level" toml:"level"` // e.g., "debug", "info", "warn", "error"
}

// Config holds defaults that command-line flags override.
type Config struct {
	// Root is the pool image directory.
	Root string `yaml:"root" toml:"root"`
	// AllowLive permits live traversal without the flag.
	AllowLive bool `yaml:"allow_live" toml:"allow_live"`
	// BestEffort enables best-effort traversal without the flag.
	BestEffort bool `yaml:"best_effort" toml:"best_effort"`
	// Output is "table" or "json".
	Output string `yaml:"output" toml:"output"`
	// ProgressInterval is a duration string such as "500ms".
	ProgressInterval string        `yaml:"progress_interval" toml:"progress_interval"`
	Logging          LoggingConfig `yaml:"logging" toml:"logging"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Root:             "/var/lib/comphist/pools",
		Output:           "table",
		ProgressInterval: "500ms",
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

// Load reads configuration from r, overwriting defaults.
// A nil or empty reader yields the defaults.
func Load(r io.Reader, format Format) (*Config, error) {
	cfg := Default()

	if r == nil {
		return cfg, nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if len(data) == 0 {
		return cfg, nil
	}

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decoding yaml config: %w", err)
		}
	case FormatTOML:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decoding toml config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config format %q", format)
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Output) {
	case "table", "json":
	default:
		return fmt.Errorf("invalid output %q: must be table or json", c.Output)
	}

	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	return nil
}

// FormatOf picks the format from a file extension.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}

	return FormatYAML
}

// LoadFile reads configuration from path. A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}

		return nil, fmt.Errorf("opening config file %q: %w", path, err)
	}
	defer file.Close()

	return Load(file, FormatOf(path))
}

// Interval parses ProgressInterval, falling back to def when empty or invalid.
func (c *Config) Interval(def time.Duration, log logrus.FieldLogger) time.Duration {
	if c.ProgressInterval == "" {
		return def
	}

	d, err := time.ParseDuration(c.ProgressInterval)
	if err != nil {
		if log != nil {
			log.WithError(err).WithField("input", c.ProgressInterval).Warn("invalid progress interval, using default")
		}

		return def
	}

	return d
}
