// Package config loads settings for the countdemo program.
//
// Settings come from, in increasing order of precedence:
// built-in defaults, an optional TOML file, and COUNTDEMO_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds everything countdemo can be told.
type Config struct {
	// Count is how far to count.
	Count int `toml:"count"`
	// Step is how long each count takes.
	Step time.Duration `toml:"step"`
	// Poll is how often the progress bar is redrawn (the WhileRunning period).
	Poll time.Duration `toml:"poll"`
	// Workers sizes the pool the counting task runs on.
	Workers int `toml:"workers"`
	// Width is the progress bar width in cells; 0 means fit the terminal.
	Width int `toml:"width"`
	// Plain disables colors and gradients in the progress bar.
	Plain bool `toml:"plain"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`
}

// Default returns the built-in settings: count to 100, a tenth of a second per count,
// redrawing once a second, much like a human watching would want.
func Default() *Config {
	return &Config{
		Count:    100,
		Step:     100 * time.Millisecond,
		Poll:     time.Second,
		Workers:  1,
		Width:    0,
		LogLevel: "warn",
	}
}

// Load returns the defaults, overlaid with the TOML file at path (skipped if path is empty),
// overlaid with environment overrides, and validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes the TOML file at path over cfg.  Keys absent from the file keep their current values.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported environment variables:
//   - COUNTDEMO_COUNT: overrides count
//   - COUNTDEMO_STEP: overrides step (a Go duration, e.g. "50ms")
//   - COUNTDEMO_POLL: overrides poll
//   - COUNTDEMO_WORKERS: overrides workers
//   - COUNTDEMO_PLAIN: overrides plain
//   - COUNTDEMO_LOG_LEVEL: overrides log_level
func (c *Config) ApplyEnvOverrides() error {
	if v := os.Getenv("COUNTDEMO_COUNT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("COUNTDEMO_COUNT: %w", err)
		}
		c.Count = n
	}
	if v := os.Getenv("COUNTDEMO_STEP"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("COUNTDEMO_STEP: %w", err)
		}
		c.Step = d
	}
	if v := os.Getenv("COUNTDEMO_POLL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("COUNTDEMO_POLL: %w", err)
		}
		c.Poll = d
	}
	if v := os.Getenv("COUNTDEMO_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("COUNTDEMO_WORKERS: %w", err)
		}
		c.Workers = n
	}
	if v := os.Getenv("COUNTDEMO_PLAIN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("COUNTDEMO_PLAIN: %w", err)
		}
		c.Plain = b
	}
	if v := os.Getenv("COUNTDEMO_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return nil
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate reports every problem with the configuration at once, as ValidateErrors.
func (c *Config) Validate() error {
	var errs ValidateErrors
	if c.Count < 1 {
		errs = append(errs, ValidationError{"count", fmt.Sprintf("must be at least 1, got %d", c.Count)})
	}
	if c.Step < 0 {
		errs = append(errs, ValidationError{"step", fmt.Sprintf("must not be negative, got %v", c.Step)})
	}
	if c.Poll < time.Millisecond {
		errs = append(errs, ValidationError{"poll", fmt.Sprintf("must be at least 1ms, got %v", c.Poll)})
	}
	if c.Workers < 1 {
		errs = append(errs, ValidationError{"workers", fmt.Sprintf("must be at least 1, got %d", c.Workers)})
	}
	if c.Width < 0 {
		errs = append(errs, ValidationError{"width", fmt.Sprintf("must not be negative, got %d", c.Width)})
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, ValidationError{"log_level", err.Error()})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid level %q, must be one of: debug, info, warn, error", c.LogLevel)
	}
	return level, nil
}
