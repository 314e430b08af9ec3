// Package config loads application configuration from file and environment.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Brave    BraveConfig    `yaml:"brave" mapstructure:"brave"`
	Research ResearchConfig `yaml:"research" mapstructure:"research"`
	Scrape   ScrapeConfig   `yaml:"scrape" mapstructure:"scrape"`
	Vendor   VendorConfig   `yaml:"vendor" mapstructure:"vendor"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the research cache backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// BraveConfig holds Brave Search API settings.
type BraveConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ResearchConfig tunes the search orchestrator.
type ResearchConfig struct {
	BatchSize          int `yaml:"batch_size" mapstructure:"batch_size"`
	QueryTimeoutSecs   int `yaml:"query_timeout_secs" mapstructure:"query_timeout_secs"`
	BatchIntervalMilli int `yaml:"batch_interval_ms" mapstructure:"batch_interval_ms"`
	ResultCap          int `yaml:"result_cap" mapstructure:"result_cap"`
}

// QueryTimeout returns the per-query timeout as a duration.
func (c ResearchConfig) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSecs) * time.Second
}

// BatchInterval returns the inter-batch delay as a duration.
func (c ResearchConfig) BatchInterval() time.Duration {
	return time.Duration(c.BatchIntervalMilli) * time.Millisecond
}

// ScrapeConfig configures page fetching.
type ScrapeConfig struct {
	PageTTLHours int `yaml:"page_ttl_hours" mapstructure:"page_ttl_hours"`
}

// VendorConfig points at optional vendor tuning data.
type VendorConfig struct {
	// OverridesPath is a YAML file of per-vendor estimation interval
	// overrides; missing file means the built-in table applies.
	OverridesPath string `yaml:"overrides_path" mapstructure:"overrides_path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LIFECYCLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "lifecycle.db")
	v.SetDefault("brave.base_url", "https://api.search.brave.com/res/v1")
	v.SetDefault("research.batch_size", 3)
	v.SetDefault("research.query_timeout_secs", 30)
	v.SetDefault("research.batch_interval_ms", 2000)
	v.SetDefault("research.result_cap", 5)
	v.SetDefault("scrape.page_ttl_hours", 24)
	v.SetDefault("vendor.overrides_path", "vendor_overrides.yaml")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
