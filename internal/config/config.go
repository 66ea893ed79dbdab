// Package config provides configuration management for the PubMed digest.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Pacing modes.
const (
	// PacingSleep sleeps a fixed interval before every detail request.
	PacingSleep = "sleep"
	// PacingRate spaces detail requests with a token bucket.
	PacingRate = "rate"
	// PacingNone issues detail requests back to back.
	PacingNone = "none"
)

// EnvPrefix prefixes every environment variable read by the digest.
const EnvPrefix = "PUBMED_DIGEST"

// Config holds all configuration for a digest run.
type Config struct {
	// Search controls the ESearch query.
	Search SearchConfig `mapstructure:"search" yaml:"search"`
	// Output controls where records are written.
	Output OutputConfig `mapstructure:"output" yaml:"output"`
	// NCBI contains E-utilities client settings.
	NCBI NCBIConfig `mapstructure:"ncbi" yaml:"ncbi"`
	// Pacing controls the wait before each detail request.
	Pacing PacingConfig `mapstructure:"pacing" yaml:"pacing"`
	// Breaker controls the detail-fetch circuit breaker.
	Breaker BreakerConfig `mapstructure:"breaker" yaml:"breaker"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	// Metrics contains run metrics settings.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	// Schedule controls recurring runs of the schedule command.
	Schedule ScheduleConfig `mapstructure:"schedule" yaml:"schedule"`
}

// SearchConfig holds the query parameters.
type SearchConfig struct {
	// MaxResults caps the number of PMIDs requested (retmax).
	MaxResults int `mapstructure:"max_results" yaml:"max_results"`
	// Filter is the topical filter passed through to PubMed.
	Filter string `mapstructure:"filter" yaml:"filter"`
	// Lookback is the publication window ending now.
	Lookback time.Duration `mapstructure:"lookback" yaml:"lookback"`
	// GroupFilter applies the date range to the whole filter instead of
	// only its last OR term.
	GroupFilter bool `mapstructure:"group_filter" yaml:"group_filter"`
}

// OutputConfig holds the CSV destination.
type OutputConfig struct {
	// Path is the CSV file to create or overwrite.
	Path string `mapstructure:"path" yaml:"path"`
}

// NCBIConfig holds E-utilities client settings.
type NCBIConfig struct {
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	APIKey  string        `mapstructure:"api_key" yaml:"-"`
	Tool    string        `mapstructure:"tool" yaml:"tool"`
	Email   string        `mapstructure:"email" yaml:"email"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// PacingConfig holds the detail-request pacing policy.
type PacingConfig struct {
	// Mode is one of sleep, rate, none.
	Mode string `mapstructure:"mode" yaml:"mode"`
	// Interval is the wait (sleep) or minimum spacing (rate) between requests.
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

// BreakerConfig holds circuit breaker settings. A zero threshold disables it.
type BreakerConfig struct {
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures" yaml:"consecutive_failures"`
	Cooldown            time.Duration `mapstructure:"cooldown" yaml:"cooldown"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error).
	Level string `mapstructure:"level" yaml:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format" yaml:"format"`
	// Output is the log destination (stdout, stderr).
	Output string `mapstructure:"output" yaml:"output"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// File receives Prometheus text-format metrics after the run. Empty disables.
	File string `mapstructure:"file" yaml:"file"`
}

// ScheduleConfig holds the recurring-run settings.
type ScheduleConfig struct {
	// Cron is a standard 5-field cron expression.
	Cron string `mapstructure:"cron" yaml:"cron"`
	// Timezone is the IANA zone the expression is evaluated in.
	Timezone string `mapstructure:"timezone" yaml:"timezone"`
}

// NewViper returns a viper instance with defaults and environment binding.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("ncbi.api_key", EnvPrefix+"_NCBI_API_KEY", "NCBI_API_KEY")

	return v
}

// Load reads configFile (or searches the default locations when empty),
// unmarshals into a Config and validates it.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("pubmed-digest")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "pubmed-digest"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Save writes cfg to path as YAML. The NCBI API key is never written.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults are static and always decode.
	_ = v.Unmarshal(&cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("search.max_results", 1500)
	v.SetDefault("search.filter", `"cancer"[Abstract] OR "tumor"[Abstract] OR "diabetes"[Abstract]`)
	v.SetDefault("search.lookback", "168h")
	v.SetDefault("search.group_filter", false)

	v.SetDefault("output.path", "pubmed_batch_articles.csv")

	v.SetDefault("ncbi.base_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils")
	v.SetDefault("ncbi.api_key", "")
	v.SetDefault("ncbi.tool", "pubmed-digest")
	v.SetDefault("ncbi.email", "pubmed-digest@users.noreply.github.com")
	v.SetDefault("ncbi.timeout", "30s")

	v.SetDefault("pacing.mode", PacingSleep)
	v.SetDefault("pacing.interval", "333ms")

	v.SetDefault("breaker.consecutive_failures", 10)
	v.SetDefault("breaker.cooldown", "30s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("metrics.file", "")

	v.SetDefault("schedule.cron", "0 6 * * 1")
	v.SetDefault("schedule.timezone", "UTC")
}

// Validate checks the configuration for values the run cannot work with.
func (c *Config) Validate() error {
	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be positive, got %d", c.Search.MaxResults)
	}
	if strings.TrimSpace(c.Search.Filter) == "" {
		return fmt.Errorf("search.filter is required")
	}
	if c.Search.Lookback <= 0 {
		return fmt.Errorf("search.lookback must be positive, got %s", c.Search.Lookback)
	}
	if strings.TrimSpace(c.Output.Path) == "" {
		return fmt.Errorf("output.path is required")
	}
	if c.NCBI.BaseURL == "" {
		return fmt.Errorf("ncbi.base_url is required")
	}
	if c.NCBI.Timeout < 0 {
		return fmt.Errorf("ncbi.timeout must not be negative")
	}

	switch strings.ToLower(c.Pacing.Mode) {
	case PacingSleep, PacingRate, PacingNone:
	default:
		return fmt.Errorf("invalid pacing mode: %s", c.Pacing.Mode)
	}
	if c.Pacing.Interval < 0 {
		return fmt.Errorf("pacing.interval must not be negative")
	}

	if err := ValidateCronSchedule(c.Schedule.Cron); err != nil {
		return fmt.Errorf("schedule.cron: %w", err)
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("invalid schedule.timezone %q: %w", c.Schedule.Timezone, err)
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	return nil
}

// ValidateCronSchedule checks a 5-field cron expression
// (minute hour day-of-month month day-of-week), e.g. "0 6 * * 1".
func ValidateCronSchedule(schedule string) error {
	if strings.TrimSpace(schedule) == "" {
		return fmt.Errorf("invalid cron schedule: cannot be empty")
	}
	if _, err := CronParser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", schedule, err)
	}
	return nil
}

// CronParser parses the schedule expressions accepted by ValidateCronSchedule.
var CronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
