package config

import (
	"errors"
	"os"
	"strings"
)

// APIKeySource represents where an API key comes from.
type APIKeySource string

const (
	KeySourceEnv    APIKeySource = "env"
	KeySourceConfig APIKeySource = "config"
	KeySourcePrompt APIKeySource = "prompt"
	KeySourceNone   APIKeySource = "none"
)

// KeyStatus represents the status of an API key.
type KeyStatus struct {
	Name   string       `json:"name"`
	Source APIKeySource `json:"source"`
	IsSet  bool         `json:"is_set"`
	Masked string       `json:"masked,omitempty"` // e.g., "abc...xyz"
}

// ErrNoNewsKey is returned by ResolveNewsKey when no key could be found.
var ErrNoNewsKey = errors.New("news API key not configured")

// CheckAPIKeys returns the status of all credentials.
func CheckAPIKeys(cfg *Config) []KeyStatus {
	return []KeyStatus{
		checkKey("News API Key", cfg.News.APIKey, envPrefix+"_NEWS_API_KEY", "NEWS_API_KEY"),
		checkKey("Alpaca API Key", cfg.Market.AlpacaKey, envPrefix+"_MARKET_ALPACA_KEY"),
		checkKey("Alpaca API Secret", cfg.Market.AlpacaSecret, envPrefix+"_MARKET_ALPACA_SECRET"),
	}
}

// NewsKeyRequired reports whether the configured news provider needs a key.
func NewsKeyRequired(cfg *Config) bool {
	return strings.EqualFold(cfg.News.Provider, "newsapi") || cfg.News.Provider == ""
}

// ResolveNewsKey is the credential resolution step run before any fetch.
// The configured key wins; otherwise prompt (when non-nil) is asked once and
// a non-empty answer is stored on cfg.
func ResolveNewsKey(cfg *Config, prompt func() (string, error)) (string, APIKeySource, error) {
	if cfg.News.APIKey != "" {
		src := KeySourceConfig
		if os.Getenv(envPrefix+"_NEWS_API_KEY") != "" || os.Getenv("NEWS_API_KEY") != "" {
			src = KeySourceEnv
		}
		return cfg.News.APIKey, src, nil
	}
	if prompt == nil {
		return "", KeySourceNone, ErrNoNewsKey
	}

	key, err := prompt()
	if err != nil {
		return "", KeySourceNone, err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", KeySourceNone, ErrNoNewsKey
	}
	cfg.News.APIKey = key
	return key, KeySourcePrompt, nil
}

// checkKey checks if a key is set and where it came from.
func checkKey(name, value string, envVars ...string) KeyStatus {
	status := KeyStatus{
		Name:  name,
		IsSet: value != "",
	}

	if value == "" {
		status.Source = KeySourceNone
		return status
	}

	status.Source = KeySourceConfig
	for _, e := range envVars {
		if os.Getenv(e) != "" {
			status.Source = KeySourceEnv
			break
		}
	}
	status.Masked = MaskKey(value)
	return status
}

// MaskKey masks an API key for display, showing only first 3 and last 3 chars.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:3] + "..." + key[len(key)-3:]
}
