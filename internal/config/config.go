package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Sources SourcesConfig `yaml:"sources" envconfig:"SOURCES"`
	Fetch   FetchConfig   `yaml:"fetch" envconfig:"FETCH"`
	Report  ReportConfig  `yaml:"report" envconfig:"REPORT"`
	Output  OutputConfig  `yaml:"output" envconfig:"OUTPUT"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
}

// SourcesConfig holds the URLs of the two wide time-series files
type SourcesConfig struct {
	ConfirmedURL string `yaml:"confirmed_url" envconfig:"CONFIRMED_URL" validate:"required,url"`
	DeathsURL    string `yaml:"deaths_url" envconfig:"DEATHS_URL" validate:"required,url"`
}

// FetchConfig controls the HTTP source downloads
type FetchConfig struct {
	Timeout   time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"60s" validate:"gt=0"`
	UserAgent string        `yaml:"user_agent" envconfig:"USER_AGENT" default:"epitrack/1.0"`
}

// ReportConfig controls the generated summary tables
type ReportConfig struct {
	TopN         int    `yaml:"top_n" envconfig:"TOP_N" default:"10" validate:"gt=0"`
	MinConfirmed int64  `yaml:"min_confirmed" envconfig:"MIN_CONFIRMED" default:"100" validate:"min=0"`
	SnapshotDate string `yaml:"snapshot_date" envconfig:"SNAPSHOT_DATE"` // YYYY-MM-DD, empty means latest
}

// OutputConfig controls where and how reports are written
type OutputConfig struct {
	Dir        string `yaml:"dir" envconfig:"DIR" default:"reports" validate:"required"`
	WriteExcel bool   `yaml:"write_excel" envconfig:"WRITE_EXCEL" default:"true"`
	WriteCSV   bool   `yaml:"write_csv" envconfig:"WRITE_CSV" default:"true"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/epitrack.log"`
}

// Load loads configuration from environment variables and an optional
// config file. Environment variables take precedence over the file.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("EPITRACK", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile := findConfigFile(); configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs merges file config with env config (env takes precedence)
func mergeConfigs(fileConfig, envConfig Config) Config {
	if envConfig.Sources.ConfirmedURL == "" {
		envConfig.Sources.ConfirmedURL = fileConfig.Sources.ConfirmedURL
	}
	if envConfig.Sources.DeathsURL == "" {
		envConfig.Sources.DeathsURL = fileConfig.Sources.DeathsURL
	}
	if envConfig.Report.SnapshotDate == "" {
		envConfig.Report.SnapshotDate = fileConfig.Report.SnapshotDate
	}
	return envConfig
}

// Validate checks the configuration with struct-level validation rules.
// Snapshot dates are checked here rather than by tag so the error names
// the expected layout.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return err
	}

	if c.Report.SnapshotDate != "" {
		if _, err := time.Parse("2006-01-02", c.Report.SnapshotDate); err != nil {
			return fmt.Errorf("report.snapshot_date %q is not a YYYY-MM-DD date: %w", c.Report.SnapshotDate, err)
		}
	}

	return nil
}

// SnapshotTime parses the configured snapshot date. The second return value
// is false when no snapshot date was configured.
func (c *Config) SnapshotTime() (time.Time, bool) {
	if c.Report.SnapshotDate == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", c.Report.SnapshotDate)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// findConfigFile returns the path to the config file, if any
func findConfigFile() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Fetch: FetchConfig{
			Timeout:   60 * time.Second,
			UserAgent: "epitrack/1.0",
		},
		Report: ReportConfig{
			TopN:         10,
			MinConfirmed: 100,
		},
		Output: OutputConfig{
			Dir:        "reports",
			WriteExcel: true,
			WriteCSV:   true,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/epitrack.log",
		},
	}
}
