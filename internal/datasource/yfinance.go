package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/seenimoa/stocksentiment/pkg/models"
	"github.com/seenimoa/stocksentiment/pkg/utils"
)

// DefaultYahooURL is the Yahoo Finance API host.
const DefaultYahooURL = "https://query1.finance.yahoo.com"

// YFinance fetches daily bars from the Yahoo Finance chart API.
type YFinance struct {
	baseURL string
	client  *http.Client
	limiter *RateLimiter
	now     func() time.Time
}

// NewYFinance creates a Yahoo Finance price source. An empty baseURL uses DefaultYahooURL.
func NewYFinance(baseURL string) *YFinance {
	if baseURL == "" {
		baseURL = DefaultYahooURL
	}
	return &YFinance{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  HTTPClient,
		limiter: NewRateLimiter(5, time.Second), // 5 req/s
		now:     time.Now,
	}
}

// Name returns the data source name.
func (y *YFinance) Name() string { return "Yahoo Finance" }

// --- Yahoo Finance v8 API types ---

type yfChartResponse struct {
	Chart struct {
		Result []yfChartResult `json:"result"`
		Error  *yfError        `json:"error"`
	} `json:"chart"`
}

type yfChartResult struct {
	Meta       yfChartMeta  `json:"meta"`
	Timestamp  []int64      `json:"timestamp"`
	Indicators yfIndicators `json:"indicators"`
}

type yfChartMeta struct {
	Symbol             string  `json:"symbol"`
	Currency           string  `json:"currency"`
	ExchangeTimezone   string  `json:"exchangeTimezoneName"`
	RegularMarketPrice float64 `json:"regularMarketPrice"`
}

type yfIndicators struct {
	Quote []yfOHLCV `json:"quote"`
}

type yfOHLCV struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

type yfError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// FetchPrices returns the daily bars of the lookback window, oldest first.
func (y *YFinance) FetchPrices(ctx context.Context, ticker string, lookbackDays int) ([]models.PriceBar, error) {
	empty := []models.PriceBar{}
	yfTicker := utils.ToYFinanceTicker(ticker)

	if err := y.limiter.Wait(ctx); err != nil {
		return empty, fmt.Errorf("%w: yfinance: %w", ErrUpstream, err)
	}

	from, to := utils.LookbackWindow(y.now(), lookbackDays)
	q := url.Values{}
	q.Set("period1", fmt.Sprint(from.Unix()))
	q.Set("period2", fmt.Sprint(to.Unix()))
	q.Set("interval", "1d")
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", y.baseURL, url.PathEscape(yfTicker), q.Encode())

	body, _, err := doGet(ctx, y.client, endpoint, map[string]string{
		"Accept": "application/json",
	})
	if err != nil {
		return empty, fmt.Errorf("%w: yfinance chart %s: %w", ErrUpstream, yfTicker, err)
	}
	defer body.Close()

	var resp yfChartResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return empty, fmt.Errorf("%w: parse yfinance chart: %w", ErrUpstream, err)
	}

	if resp.Chart.Error != nil {
		return empty, fmt.Errorf("%w: yfinance chart error: %s", ErrUpstream, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return empty, nil
	}

	return parseYFBars(resp.Chart.Result[0]), nil
}

// --- Helpers ---

// parseYFBars converts a chart result to bars, dropping rows with any
// missing OHLC value, and sorts them by date.
func parseYFBars(result yfChartResult) []models.PriceBar {
	bars := []models.PriceBar{}
	if len(result.Indicators.Quote) == 0 {
		return bars
	}

	q := result.Indicators.Quote[0]
	for i, ts := range result.Timestamp {
		open, okO := at(q.Open, i)
		high, okH := at(q.High, i)
		low, okL := at(q.Low, i)
		closePx, okC := at(q.Close, i)
		if !okO || !okH || !okL || !okC {
			continue
		}
		b := models.PriceBar{
			Date:  time.Unix(ts, 0).UTC(),
			Open:  open,
			High:  high,
			Low:   low,
			Close: closePx,
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			b.Volume = *q.Volume[i]
		}
		bars = append(bars, b)
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars
}

func at(values []*float64, i int) (float64, bool) {
	if i >= len(values) || values[i] == nil {
		return 0, false
	}
	return *values[i], true
}
