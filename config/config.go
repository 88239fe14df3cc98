package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultFileName     = ".gatorconfig.toml"
	DefaultUserAgent    = "gator"
	DefaultFetchTimeout = "30s"
	DefaultMaxBodyBytes = 10 << 20
	DefaultPageSize     = 10
	DefaultPageStep     = 10
)

// ConfigError is returned for a missing or invalid configuration value.
// The process should exit before doing any work when it sees one.
type ConfigError struct {
	Key string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config: %s: %v", e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// TomlScheduler holds settings for the agg command
type TomlScheduler struct {
	FetchTimeout string `toml:"fetch_timeout"`
	UserAgent    string `toml:"user_agent"`
	MaxBodyBytes int64  `toml:"max_body_bytes"`
}

// TomlBrowse holds paging settings for the browse command
type TomlBrowse struct {
	PageSize int `toml:"page_size"`
	PageStep int `toml:"page_step"`
}

// Config represents the top-level configuration file
type Config struct {
	DbUrl           string        `toml:"db_url"`
	CurrentUserName string        `toml:"current_user_name"`
	Scheduler       TomlScheduler `toml:"scheduler"`
	Browse          TomlBrowse    `toml:"browse"`
}

// DefaultPath returns ~/.gatorconfig.toml
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultFileName
	}
	return filepath.Join(home, DefaultFileName)
}

// Read loads the config file at path, applies defaults and validates it.
// GATOR_DB_URL overrides db_url when set.
func Read(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}

	if env := os.Getenv("GATOR_DB_URL"); env != "" {
		cfg.DbUrl = env
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("error reading config file: %w", err)}
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("error parsing config file: %w", err)}
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Scheduler.FetchTimeout == "" {
		c.Scheduler.FetchTimeout = DefaultFetchTimeout
	}
	if c.Scheduler.UserAgent == "" {
		c.Scheduler.UserAgent = DefaultUserAgent
	}
	if c.Scheduler.MaxBodyBytes == 0 {
		c.Scheduler.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.Browse.PageSize == 0 {
		c.Browse.PageSize = DefaultPageSize
	}
	if c.Browse.PageStep == 0 {
		c.Browse.PageStep = DefaultPageStep
	}
}

// Validate checks values that cannot be defaulted
func (c *Config) Validate() error {
	if c.DbUrl == "" {
		return &ConfigError{Key: "db_url", Err: errors.New("must be set")}
	}
	if _, err := time.ParseDuration(c.Scheduler.FetchTimeout); err != nil {
		return &ConfigError{Key: "scheduler.fetch_timeout", Err: err}
	}
	if c.Scheduler.MaxBodyBytes < 0 {
		return &ConfigError{Key: "scheduler.max_body_bytes", Err: errors.New("must not be negative")}
	}
	if c.Browse.PageSize < 0 {
		return &ConfigError{Key: "browse.page_size", Err: errors.New("must not be negative")}
	}
	if c.Browse.PageStep < 0 {
		return &ConfigError{Key: "browse.page_step", Err: errors.New("must not be negative")}
	}
	return nil
}

// FetchTimeout returns the parsed per-fetch timeout
func (c *Config) FetchTimeout() time.Duration {
	d, err := time.ParseDuration(c.Scheduler.FetchTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// SetUser records name as the current user, keeping every other key intact
func SetUser(path, name string) error {
	cfg, err := load(path)
	if err != nil {
		return err
	}
	cfg.CurrentUserName = name
	return write(path, cfg)
}

// Init writes a fresh config file pointing at dbUrl
func Init(path, dbUrl string) (*Config, error) {
	cfg := &Config{DbUrl: dbUrl}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := write(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func write(path string, cfg *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return &ConfigError{Err: fmt.Errorf("error encoding config file: %w", err)}
	}

	// Replace atomically
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return &ConfigError{Err: fmt.Errorf("error writing config file: %w", err)}
	}
	if err := os.Rename(tmp, path); err != nil {
		return &ConfigError{Err: fmt.Errorf("error writing config file: %w", err)}
	}
	return nil
}

var intervalPattern = regexp.MustCompile(`^(\d+)(ms|s|m|h)$`)

// ParseInterval parses compact durations such as "500ms", "1s", "1m" or "1h"
func ParseInterval(s string) (time.Duration, error) {
	match := intervalPattern.FindStringSubmatch(s)
	if match == nil {
		return 0, &ConfigError{Key: "interval", Err: fmt.Errorf("invalid duration %q, expected e.g. 500ms, 1s, 1m or 1h", s)}
	}

	amount, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil || amount <= 0 {
		return 0, &ConfigError{Key: "interval", Err: fmt.Errorf("invalid duration %q, must be positive", s)}
	}

	unit := map[string]time.Duration{
		"ms": time.Millisecond,
		"s":  time.Second,
		"m":  time.Minute,
		"h":  time.Hour,
	}[match[2]]

	if amount > int64(1<<62)/int64(unit) {
		return 0, &ConfigError{Key: "interval", Err: fmt.Errorf("duration %q is too large", s)}
	}
	return time.Duration(amount) * unit, nil
}
