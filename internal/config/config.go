// Package config loads application configuration from file and environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Resumes ResumesConfig `mapstructure:"resumes"`
	Index   IndexConfig   `mapstructure:"index"`
	Search  SearchConfig  `mapstructure:"search"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Log     LogConfig     `mapstructure:"log"`
}

// StorageConfig holds document store settings.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// ResumesConfig points at the résumé corpus on disk.
type ResumesConfig struct {
	Dir string `mapstructure:"dir"`
}

// IndexConfig holds indexing worker settings.
type IndexConfig struct {
	Workers   int `mapstructure:"workers"`
	BatchSize int `mapstructure:"batch_size"`
}

// SearchConfig holds search engine settings.
type SearchConfig struct {
	Limit         int           `mapstructure:"limit"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
	CacheTTL      int           `mapstructure:"cache_ttl"` // seconds
	Scoring       ScoringConfig `mapstructure:"scoring"`
}

// ScoringConfig exposes the relevance constants for tuning.
type ScoringConfig struct {
	PhraseCap   float64 `mapstructure:"phrase_cap"`
	MultiBonus  float64 `mapstructure:"multi_bonus"`
	SingleBonus float64 `mapstructure:"single_bonus"`
	MinScore    float64 `mapstructure:"min_score"`
}

// RedisConfig holds the optional result cache backend. An empty Addr
// disables caching.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Env   string `mapstructure:"env"`
	Level string `mapstructure:"level"`
}

// GetCacheTTL returns the search cache TTL as a duration.
func (c *SearchConfig) GetCacheTTL() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// Load reads configuration from path, or from the default locations
// (~/.config/resumebot, current directory) when path is empty. Environment
// variables with the RESUMEBOT_ prefix override file values.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "resumebot"))
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("RESUMEBOT")
	v.AutomaticEnv()

	v.SetDefault("storage.path", filepath.Join("data", "pdf_index.db"))
	v.SetDefault("resumes.dir", filepath.Join("data", "resumes"))
	v.SetDefault("index.workers", 2)
	v.SetDefault("index.batch_size", 100)
	v.SetDefault("search.limit", 20)
	v.SetDefault("search.max_concurrent", 5)
	v.SetDefault("search.cache_ttl", 3600)
	v.SetDefault("search.scoring.phrase_cap", 0.5)
	v.SetDefault("search.scoring.multi_bonus", 0.2)
	v.SetDefault("search.scoring.single_bonus", 0.1)
	v.SetDefault("search.scoring.min_score", 0.1)
	v.SetDefault("log.env", "prod")

	// A missing config file is fine: defaults and environment apply.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.Index.Workers <= 0 {
		cfg.Index.Workers = 2
	}
	if cfg.Index.BatchSize <= 0 {
		cfg.Index.BatchSize = 100
	}
	if cfg.Search.Limit <= 0 {
		cfg.Search.Limit = 20
	}

	return &cfg, nil
}
