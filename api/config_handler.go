// Package api: configuration management endpoints.
package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/seenimoa/stocksentiment/internal/config"
)

// configMu guards the running config and serialises writes to the config file.
var configMu sync.Mutex

// ConfigResponse is the JSON envelope returned by GET /api/v1/config.
type ConfigResponse struct {
	Config     *config.Config `json:"config"`
	ConfigFile string         `json:"config_file"` // path to the active config file
}

// KeysRequest is the body for PUT /api/v1/config/keys.
type KeysRequest struct {
	NewsAPIKey string `json:"news_api_key"`
}

// handleGetConfig returns the current (running) configuration.
// Credentials are excluded via json:"-" tags.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	configMu.Lock()
	defer configMu.Unlock()

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: ConfigResponse{
			Config:     s.cfg,
			ConfigFile: config.ConfigFilePath(),
		},
	})
}

// handleUpdateConfig merges the provided partial configuration into the running
// config, persists it to disk, and returns the updated config. Provider
// changes take effect on the next start.
func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var incoming config.Config
	if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	configMu.Lock()
	defer configMu.Unlock()

	mergeConfig(s.cfg, &incoming)

	cfgPath := config.ConfigFilePath()
	if err := config.SaveToFile(s.cfg, cfgPath); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save config: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: ConfigResponse{
			Config:     s.cfg,
			ConfigFile: cfgPath,
		},
	})
}

// handleGetConfigKeys returns the masked status of all credentials.
func (s *Server) handleGetConfigKeys(w http.ResponseWriter, r *http.Request) {
	configMu.Lock()
	keys := config.CheckAPIKeys(s.cfg)
	configMu.Unlock()

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    keys,
	})
}

// handleUpdateConfigKeys supplies the news key at runtime. The key is kept
// in memory only.
func (s *Server) handleUpdateConfigKeys(w http.ResponseWriter, r *http.Request) {
	var req KeysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	key := strings.TrimSpace(req.NewsAPIKey)
	if key == "" {
		writeError(w, http.StatusBadRequest, "news_api_key is required")
		return
	}
	if err := s.setNewsKey(key); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.handleGetConfigKeys(w, r)
}

// setNewsKey applies key to the news source and the running config.
func (s *Server) setNewsKey(key string) error {
	if err := s.ctrl.SetNewsKey(key); err != nil {
		return err
	}
	configMu.Lock()
	s.cfg.News.APIKey = key
	configMu.Unlock()
	return nil
}

// mergeConfig copies non-zero/non-empty values from src into dst.
// Credentials are never taken from this path.
func mergeConfig(dst, src *config.Config) {
	// News
	if src.News.Provider != "" {
		dst.News.Provider = src.News.Provider
	}
	if src.News.Endpoint != "" {
		dst.News.Endpoint = src.News.Endpoint
	}
	if src.News.RSSURL != "" {
		dst.News.RSSURL = src.News.RSSURL
	}
	if src.News.Language != "" {
		dst.News.Language = src.News.Language
	}
	if src.News.Timeout != 0 {
		dst.News.Timeout = src.News.Timeout
	}

	// Market
	if src.Market.Provider != "" {
		dst.Market.Provider = src.Market.Provider
	}
	if src.Market.YahooURL != "" {
		dst.Market.YahooURL = src.Market.YahooURL
	}
	if src.Market.AlpacaURL != "" {
		dst.Market.AlpacaURL = src.Market.AlpacaURL
	}
	if src.Market.AlpacaFeed != "" {
		dst.Market.AlpacaFeed = src.Market.AlpacaFeed
	}

	// Analysis
	if src.Analysis.LookbackDays != 0 {
		dst.Analysis.LookbackDays = src.Analysis.LookbackDays
	}

	// API
	if src.API.Host != "" {
		dst.API.Host = src.API.Host
	}
	if src.API.Port != 0 {
		dst.API.Port = src.API.Port
	}
	if len(src.API.CORSOrigins) > 0 {
		dst.API.CORSOrigins = src.API.CORSOrigins
	}

	// Logging
	if src.Logging.Level != "" {
		dst.Logging.Level = src.Logging.Level
	}
	if src.Logging.Format != "" {
		dst.Logging.Format = src.Logging.Format
	}
}
