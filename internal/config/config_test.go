package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	confirmedURL = "https://example.com/confirmed.csv"
	deathsURL    = "https://example.com/deaths.csv"
)

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("EPITRACK_SOURCES_CONFIRMED_URL", confirmedURL)
	t.Setenv("EPITRACK_SOURCES_DEATHS_URL", deathsURL)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, confirmedURL, cfg.Sources.ConfirmedURL)
	assert.Equal(t, deathsURL, cfg.Sources.DeathsURL)

	// Defaults fill everything else
	assert.Equal(t, 60*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, "epitrack/1.0", cfg.Fetch.UserAgent)
	assert.Equal(t, 10, cfg.Report.TopN)
	assert.Equal(t, int64(100), cfg.Report.MinConfirmed)
	assert.Equal(t, "reports", cfg.Output.Dir)
	assert.True(t, cfg.Output.WriteCSV)
	assert.True(t, cfg.Output.WriteExcel)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_MissingSourceURLs(t *testing.T) {
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation")
}

func TestLoad_InvalidSnapshotDate(t *testing.T) {
	t.Setenv("EPITRACK_SOURCES_CONFIRMED_URL", confirmedURL)
	t.Setenv("EPITRACK_SOURCES_DEATHS_URL", deathsURL)
	t.Setenv("EPITRACK_REPORT_SNAPSHOT_DATE", "22/01/2020")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snapshot_date")
}

func TestLoad_FileMergeWithEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`sources:
  confirmed_url: https://file.example.com/confirmed.csv
  deaths_url: https://file.example.com/deaths.csv
report:
  snapshot_date: "2020-03-01"
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0644))

	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(cwd) }()

	// Env overrides the confirmed URL, the file supplies the rest
	t.Setenv("EPITRACK_SOURCES_CONFIRMED_URL", confirmedURL)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, confirmedURL, cfg.Sources.ConfirmedURL)
	assert.Equal(t, "https://file.example.com/deaths.csv", cfg.Sources.DeathsURL)
	assert.Equal(t, "2020-03-01", cfg.Report.SnapshotDate)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing confirmed url",
			mutate:  func(c *Config) { c.Sources.ConfirmedURL = "" },
			wantErr: true,
		},
		{
			name:    "non-url source",
			mutate:  func(c *Config) { c.Sources.DeathsURL = "not a url" },
			wantErr: true,
		},
		{
			name:    "zero top n",
			mutate:  func(c *Config) { c.Report.TopN = 0 },
			wantErr: true,
		},
		{
			name:    "negative min confirmed",
			mutate:  func(c *Config) { c.Report.MinConfirmed = -1 },
			wantErr: true,
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: true,
		},
		{
			name:    "bad snapshot date",
			mutate:  func(c *Config) { c.Report.SnapshotDate = "March 1st" },
			wantErr: true,
		},
		{
			name:    "valid snapshot date",
			mutate:  func(c *Config) { c.Report.SnapshotDate = "2020-03-01" },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Sources.ConfirmedURL = confirmedURL
			cfg.Sources.DeathsURL = deathsURL
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSnapshotTime(t *testing.T) {
	cfg := Default()
	_, ok := cfg.SnapshotTime()
	assert.False(t, ok)

	cfg.Report.SnapshotDate = "2020-03-01"
	ts, ok := cfg.SnapshotTime()
	require.True(t, ok)
	assert.Equal(t, time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC), ts)
}
