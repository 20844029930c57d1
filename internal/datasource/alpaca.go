package datasource

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/phuslu/log"

	"github.com/seenimoa/stocksentiment/internal/analysis/sentiment"
	"github.com/seenimoa/stocksentiment/internal/config"
	"github.com/seenimoa/stocksentiment/internal/logging"
	"github.com/seenimoa/stocksentiment/pkg/models"
	"github.com/seenimoa/stocksentiment/pkg/utils"
)

// alpacaNewsLimit caps the number of articles requested per analysis.
const alpacaNewsLimit = 50

// alpacaClient is the subset of *marketdata.Client used here.
type alpacaClient interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
	GetNews(req marketdata.GetNewsRequest) ([]marketdata.News, error)
}

// newAlpacaClient returns nil when either credential is missing.
func newAlpacaClient(cfg config.MarketConfig) alpacaClient {
	if cfg.AlpacaKey == "" || cfg.AlpacaSecret == "" {
		return nil
	}
	opts := marketdata.ClientOpts{
		APIKey:    cfg.AlpacaKey,
		APISecret: cfg.AlpacaSecret,
	}
	if cfg.AlpacaURL != "" {
		opts.BaseURL = cfg.AlpacaURL
	}
	return marketdata.NewClient(opts)
}

// ---------------------------------------------------------------------------
// AlpacaPrices: daily bars from the Alpaca market-data API.
// ---------------------------------------------------------------------------

// AlpacaPrices is a PriceSource backed by Alpaca daily bars.
type AlpacaPrices struct {
	client alpacaClient
	feed   string
	now    func() time.Time
}

// NewAlpacaPrices creates an Alpaca price source from the market config.
func NewAlpacaPrices(cfg config.MarketConfig) *AlpacaPrices {
	return &AlpacaPrices{
		client: newAlpacaClient(cfg),
		feed:   cfg.AlpacaFeed,
		now:    time.Now,
	}
}

// Name returns the data source name.
func (a *AlpacaPrices) Name() string { return "Alpaca" }

// FetchPrices returns the daily bars of the lookback window, oldest first.
func (a *AlpacaPrices) FetchPrices(ctx context.Context, ticker string, lookbackDays int) ([]models.PriceBar, error) {
	empty := []models.PriceBar{}
	if a.client == nil {
		return empty, fmt.Errorf("alpaca: %w", ErrCredentialMissing)
	}
	if err := ctx.Err(); err != nil {
		return empty, fmt.Errorf("%w: alpaca: %w", ErrUpstream, err)
	}

	from, to := utils.LookbackWindow(a.now(), lookbackDays)
	req := marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     from,
		End:       to,
	}
	if a.feed != "" {
		req.Feed = marketdata.Feed(a.feed)
	}

	raw, err := a.client.GetBars(utils.NormalizeTicker(ticker), req)
	if err != nil {
		return empty, fmt.Errorf("%w: alpaca bars %s: %w", ErrUpstream, ticker, err)
	}

	bars := make([]models.PriceBar, 0, len(raw))
	for _, b := range raw {
		bars = append(bars, models.PriceBar{
			Date:   b.Timestamp.UTC(),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: int64(b.Volume),
		})
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

// ---------------------------------------------------------------------------
// AlpacaNews: headlines from the Alpaca news API.
// ---------------------------------------------------------------------------

// AlpacaNews is a NewsSource backed by the Alpaca news endpoint.
type AlpacaNews struct {
	client alpacaClient
	scorer sentiment.Scorer
	logger *log.Logger
	now    func() time.Time
}

// NewAlpacaNews creates an Alpaca news source. Credentials come from the
// market config section since Alpaca uses one key pair for both APIs.
func NewAlpacaNews(cfg config.MarketConfig, scorer sentiment.Scorer, logger *log.Logger) *AlpacaNews {
	if scorer == nil {
		scorer = sentiment.Default
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &AlpacaNews{
		client: newAlpacaClient(cfg),
		scorer: scorer,
		logger: logger,
		now:    time.Now,
	}
}

// Name returns the data source name.
func (a *AlpacaNews) Name() string { return "Alpaca News" }

// FetchHeadlines returns the ticker's articles in the lookback window, newest first.
func (a *AlpacaNews) FetchHeadlines(ctx context.Context, company models.Company, lookbackDays int) ([]models.Headline, error) {
	empty := []models.Headline{}
	if a.client == nil {
		return empty, fmt.Errorf("alpaca news: %w", ErrCredentialMissing)
	}
	if err := ctx.Err(); err != nil {
		return empty, fmt.Errorf("%w: alpaca news: %w", ErrUpstream, err)
	}

	from, to := utils.LookbackWindow(a.now(), lookbackDays)
	raw, err := a.client.GetNews(marketdata.GetNewsRequest{
		Symbols:    []string{company.Ticker},
		Start:      from,
		End:        to,
		TotalLimit: alpacaNewsLimit,
		Sort:       marketdata.SortDesc,
	})
	if err != nil {
		return empty, fmt.Errorf("%w: alpaca news %s: %w", ErrUpstream, company.Ticker, err)
	}

	headlines := make([]models.Headline, 0, len(raw))
	for _, n := range raw {
		title := strings.TrimSpace(n.Headline)
		if title == "" || n.CreatedAt.IsZero() {
			a.logger.Warn().Str("ticker", company.Ticker).Str("url", n.URL).Msg("skipping incomplete alpaca article")
			continue
		}
		headlines = append(headlines, models.Headline{
			Timestamp: n.CreatedAt.UTC(),
			Text:      title,
			Sentiment: a.scorer.Score(title),
			Source:    "Alpaca",
			URL:       n.URL,
		})
	}
	return headlines, nil
}
