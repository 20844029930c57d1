// Package config handles configuration loading for stocksentiment.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration.
type Config struct {
	News     NewsConfig     `mapstructure:"news"     yaml:"news"     json:"news"`
	Market   MarketConfig   `mapstructure:"market"   yaml:"market"   json:"market"`
	Analysis AnalysisConfig `mapstructure:"analysis" yaml:"analysis" json:"analysis"`
	API      APIConfig      `mapstructure:"api"      yaml:"api"      json:"api"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"  json:"logging"`
}

// NewsConfig holds news provider settings.
type NewsConfig struct {
	Provider string        `mapstructure:"provider" yaml:"provider" json:"provider"` // "newsapi" or "rss"
	APIKey   string        `mapstructure:"api_key"  yaml:"-"        json:"-"`
	Endpoint string        `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
	RSSURL   string        `mapstructure:"rss_url"  yaml:"rss_url"  json:"rss_url"`
	Language string        `mapstructure:"language" yaml:"language" json:"language"`
	Timeout  time.Duration `mapstructure:"timeout"  yaml:"timeout"  json:"timeout"`
}

// MarketConfig holds market data provider settings.
type MarketConfig struct {
	Provider     string `mapstructure:"provider"      yaml:"provider"      json:"provider"` // "yahoo" or "alpaca"
	YahooURL     string `mapstructure:"yahoo_url"     yaml:"yahoo_url"     json:"yahoo_url"`
	AlpacaKey    string `mapstructure:"alpaca_key"    yaml:"-"             json:"-"`
	AlpacaSecret string `mapstructure:"alpaca_secret" yaml:"-"             json:"-"`
	AlpacaURL    string `mapstructure:"alpaca_url"    yaml:"alpaca_url"    json:"alpaca_url"`
	AlpacaFeed   string `mapstructure:"alpaca_feed"   yaml:"alpaca_feed"   json:"alpaca_feed"`
}

// AnalysisConfig holds analysis settings.
type AnalysisConfig struct {
	LookbackDays int `mapstructure:"lookback_days" yaml:"lookback_days" json:"lookback_days"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"         json:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"         json:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins" json:"cors_origins"`
}

// Addr returns the listen address.
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  json:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format" json:"format"` // "console" or "json"
}

// envPrefix is the prefix for all environment overrides.
const envPrefix = "STOCKSENTIMENT"

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.stocksentiment/config.yaml (home directory)
//  3. /etc/stocksentiment/config.yaml (system)
//
// Environment variables override config file values.
// Format: STOCKSENTIMENT_<SECTION>_<KEY>, e.g., STOCKSENTIMENT_NEWS_API_KEY
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".stocksentiment"))
	v.AddConfigPath("/etc/stocksentiment")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return unmarshal(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return unmarshal(v)
}

// ConfigFilePath returns the path SaveToFile writes to by default.
func ConfigFilePath() string {
	return filepath.Join(homeDir(), ".stocksentiment", "config.yaml")
}

// SaveToFile writes the non-secret configuration to path as YAML.
// Credentials are never persisted.
func SaveToFile(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// News defaults
	v.SetDefault("news.provider", "newsapi")
	v.SetDefault("news.api_key", "")
	v.SetDefault("news.endpoint", "https://newsapi.org/v2/everything")
	v.SetDefault("news.rss_url", "https://feeds.finance.yahoo.com/rss/2.0/headline")
	v.SetDefault("news.language", "en")
	v.SetDefault("news.timeout", 10*time.Second)

	// Market defaults
	v.SetDefault("market.provider", "yahoo")
	v.SetDefault("market.yahoo_url", "https://query1.finance.yahoo.com")
	v.SetDefault("market.alpaca_key", "")
	v.SetDefault("market.alpaca_secret", "")
	v.SetDefault("market.alpaca_url", "")
	v.SetDefault("market.alpaca_feed", "iex")

	// Analysis defaults
	v.SetDefault("analysis.lookback_days", 2)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"*"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
// The bare NEWS_API_KEY is honoured for compatibility with existing setups;
// the prefixed variable wins when both are set.
func overrideFromEnv(cfg *Config) {
	if cfg.News.APIKey == "" {
		if key := os.Getenv("NEWS_API_KEY"); key != "" {
			cfg.News.APIKey = key
		}
	}
	if key := os.Getenv(envPrefix + "_NEWS_API_KEY"); key != "" {
		cfg.News.APIKey = key
	}
	if key := os.Getenv(envPrefix + "_MARKET_ALPACA_KEY"); key != "" {
		cfg.Market.AlpacaKey = key
	}
	if key := os.Getenv(envPrefix + "_MARKET_ALPACA_SECRET"); key != "" {
		cfg.Market.AlpacaSecret = key
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
