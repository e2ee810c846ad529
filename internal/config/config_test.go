package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "leadlist.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://api.apollo.io/api/v1", cfg.Apollo.BaseURL)
	assert.InDelta(t, 5, cfg.Apollo.RateLimit, 0.001)
	assert.Equal(t, "https://app.bettercontact.rocks/api/v2", cfg.BetterContact.BaseURL)
	assert.Equal(t, 5, cfg.BetterContact.PollSecs)
	assert.Equal(t, 30, cfg.BetterContact.PollCapSecs)
	assert.Equal(t, 600, cfg.BetterContact.PollTimeoutSecs)
	assert.Equal(t, "Leads", cfg.Airtable.LeadsTable)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, "https://login.salesforce.com", cfg.Salesforce.LoginURL)
	assert.Equal(t, 100, cfg.Jobs.EnrichBatchSize)
	assert.Equal(t, 500, cfg.Jobs.DefaultLimit)
	assert.Equal(t, 10, cfg.Jobs.PeoplePerCompany)
	assert.Equal(t, 3, cfg.Jobs.MaxConcurrentJobs)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chTempDir(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/leadlist
log:
  level: debug
  format: console
server:
  port: 9090
jobs:
  enrich_batch_size: 50
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/leadlist", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 50, cfg.Jobs.EnrichBatchSize)
	// Defaults still apply for unset values
	assert.Equal(t, 500, cfg.Jobs.DefaultLimit)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chTempDir(t)

	yaml := `
apollo:
  key: from-file
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))
	t.Setenv("LEADLIST_APOLLO_KEY", "from-env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Apollo.Key)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid sqlite",
			mutate: func(c *Config) {},
		},
		{
			name: "valid postgres",
			mutate: func(c *Config) {
				c.Store.Driver = "postgres"
				c.Store.DatabaseURL = "postgres://localhost/leadlist"
			},
		},
		{
			name:    "bad driver",
			mutate:  func(c *Config) { c.Store.Driver = "mysql" },
			wantErr: "unsupported store driver",
		},
		{
			name:    "missing database url",
			mutate:  func(c *Config) { c.Store.DatabaseURL = "" },
			wantErr: "database_url is required",
		},
		{
			name:    "bad batch size",
			mutate:  func(c *Config) { c.Jobs.EnrichBatchSize = 0 },
			wantErr: "enrich_batch_size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Store: StoreConfig{Driver: "sqlite", DatabaseURL: "leadlist.db"},
				Jobs:  JobsConfig{EnrichBatchSize: 100},
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())

	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
}

func TestInitLogger_BadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "shouty", Format: "json"})
	assert.Error(t, err)
}
