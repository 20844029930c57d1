package datasource

import (
	"fmt"
	"strings"

	"github.com/phuslu/log"

	"github.com/seenimoa/stocksentiment/internal/analysis/sentiment"
	"github.com/seenimoa/stocksentiment/internal/config"
)

// NewNewsSource builds the news provider selected by cfg.News.Provider.
func NewNewsSource(cfg *config.Config, scorer sentiment.Scorer, logger *log.Logger) (NewsSource, error) {
	switch strings.ToLower(cfg.News.Provider) {
	case "", "newsapi":
		return NewNewsAPI(cfg.News, scorer, logger), nil
	case "rss", "yahoo":
		return NewRSSNews(cfg.News.RSSURL, cfg.News.Timeout, scorer, logger), nil
	case "alpaca":
		return NewAlpacaNews(cfg.Market, scorer, logger), nil
	default:
		return nil, fmt.Errorf("news provider %q: %w", cfg.News.Provider, ErrNotSupported)
	}
}

// NewPriceSource builds the price provider selected by cfg.Market.Provider.
func NewPriceSource(cfg *config.Config) (PriceSource, error) {
	switch strings.ToLower(cfg.Market.Provider) {
	case "", "yahoo", "yfinance":
		return NewYFinance(cfg.Market.YahooURL), nil
	case "alpaca":
		return NewAlpacaPrices(cfg.Market), nil
	default:
		return nil, fmt.Errorf("market provider %q: %w", cfg.Market.Provider, ErrNotSupported)
	}
}
