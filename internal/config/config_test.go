package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)

	assert.Equal(t, 1500, cfg.Search.MaxResults)
	assert.Equal(t, `"cancer"[Abstract] OR "tumor"[Abstract] OR "diabetes"[Abstract]`, cfg.Search.Filter)
	assert.Equal(t, 7*24*time.Hour, cfg.Search.Lookback)
	assert.False(t, cfg.Search.GroupFilter)
	assert.Equal(t, "pubmed_batch_articles.csv", cfg.Output.Path)
	assert.Equal(t, 30*time.Second, cfg.NCBI.Timeout)
	assert.Equal(t, PacingSleep, cfg.Pacing.Mode)
	assert.Equal(t, 333*time.Millisecond, cfg.Pacing.Interval)
	assert.Equal(t, uint32(10), cfg.Breaker.ConsecutiveFailures)
	assert.Empty(t, cfg.Metrics.File)
	assert.Equal(t, "0 6 * * 1", cfg.Schedule.Cron)
	assert.Equal(t, "UTC", cfg.Schedule.Timezone)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PUBMED_DIGEST_SEARCH_MAX_RESULTS", "25")
	t.Setenv("PUBMED_DIGEST_OUTPUT_PATH", "weekly.csv")
	t.Setenv("PUBMED_DIGEST_PACING_MODE", "none")
	t.Setenv("NCBI_API_KEY", "abc123")

	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Search.MaxResults)
	assert.Equal(t, "weekly.csv", cfg.Output.Path)
	assert.Equal(t, PacingNone, cfg.Pacing.Mode)
	assert.Equal(t, "abc123", cfg.NCBI.APIKey)
}

func TestLoad_ConfigFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "digest.yaml")
	content := `search:
  max_results: 50
  lookback: 72h
  group_filter: true
output:
  path: out.csv
pacing:
  mode: rate
  interval: 100ms
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Search.MaxResults)
	assert.Equal(t, 72*time.Hour, cfg.Search.Lookback)
	assert.True(t, cfg.Search.GroupFilter)
	assert.Equal(t, "out.csv", cfg.Output.Path)
	assert.Equal(t, PacingRate, cfg.Pacing.Mode)
	assert.Equal(t, 100*time.Millisecond, cfg.Pacing.Interval)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(NewViper(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "zero max results", mutate: func(c *Config) { c.Search.MaxResults = 0 }, wantErr: true},
		{name: "blank filter", mutate: func(c *Config) { c.Search.Filter = "  " }, wantErr: true},
		{name: "zero lookback", mutate: func(c *Config) { c.Search.Lookback = 0 }, wantErr: true},
		{name: "empty output", mutate: func(c *Config) { c.Output.Path = "" }, wantErr: true},
		{name: "unknown pacing", mutate: func(c *Config) { c.Pacing.Mode = "adaptive" }, wantErr: true},
		{name: "negative interval", mutate: func(c *Config) { c.Pacing.Interval = -time.Second }, wantErr: true},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: true},
		{name: "breaker disabled", mutate: func(c *Config) { c.Breaker.ConsecutiveFailures = 0 }},
		{name: "bad cron", mutate: func(c *Config) { c.Schedule.Cron = "every monday" }, wantErr: true},
		{name: "empty cron", mutate: func(c *Config) { c.Schedule.Cron = "" }, wantErr: true},
		{name: "descriptor cron", mutate: func(c *Config) { c.Schedule.Cron = "@weekly" }},
		{name: "bad timezone", mutate: func(c *Config) { c.Schedule.Timezone = "Mars/Olympus" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	t.Setenv("NCBI_API_KEY", "")
	t.Setenv("PUBMED_DIGEST_NCBI_API_KEY", "")

	cfg := Default()
	cfg.Search.Filter = `"asthma"[Abstract]`
	cfg.Search.Lookback = 72 * time.Hour
	cfg.Output.Path = "asthma.csv"
	cfg.NCBI.APIKey = "secret"

	path := filepath.Join(t.TempDir(), "nested", "pubmed-digest.yaml")
	require.NoError(t, Save(path, &cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret", "API key must not be persisted")

	loaded, err := Load(NewViper(), path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Search, loaded.Search)
	assert.Equal(t, cfg.Output, loaded.Output)
	assert.Equal(t, cfg.Pacing, loaded.Pacing)
	assert.Empty(t, loaded.NCBI.APIKey)
}

func TestValidateCronSchedule(t *testing.T) {
	for _, ok := range []string{"0 6 * * 1", "*/15 * * * *", "30 8 1 * *", "@daily"} {
		assert.NoError(t, ValidateCronSchedule(ok), ok)
	}
	for _, bad := range []string{"", "   ", "0 6 * *", "0 0 6 * * 1", "61 * * * *"} {
		assert.Error(t, ValidateCronSchedule(bad), bad)
	}
}
