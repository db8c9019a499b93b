package cli

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the lattice tools.
type Config struct {
	LogLevel      string `yaml:"log_level"`
	JoinCacheSize int64  `yaml:"join_cache_size"`
	RulesFile     string `yaml:"rules_file,omitempty"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{LogLevel: "warn"}
}

// LoadConfig reads a YAML configuration over the defaults. An empty path or a
// missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	c := DefaultConfig()
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var err error
	if _, perr := zapcore.ParseLevel(c.LogLevel); perr != nil {
		err = multierr.Append(err, fmt.Errorf("log_level: %w", perr))
	}
	if c.JoinCacheSize < 0 {
		err = multierr.Append(err, fmt.Errorf("join_cache_size: must not be negative, got %d", c.JoinCacheSize))
	}
	return err
}

// Encode writes c as YAML.
func (c *Config) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	return multierr.Append(enc.Encode(c), enc.Close())
}

// SaveConfig writes c to path in the format LoadConfig reads.
func (c *Config) SaveConfig(path string) (err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	defer func() { err = multierr.Append(err, f.Close()) }()
	return c.Encode(f)
}
