package datasource

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"github.com/seenimoa/stocksentiment/internal/analysis/sentiment"
	"github.com/seenimoa/stocksentiment/internal/config"
	"github.com/seenimoa/stocksentiment/internal/logging"
)

type fakeAlpaca struct {
	bars    []marketdata.Bar
	news    []marketdata.News
	err     error
	barsReq marketdata.GetBarsRequest
	symbol  string
	newsReq marketdata.GetNewsRequest
}

func (f *fakeAlpaca) GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error) {
	f.symbol, f.barsReq = symbol, req
	return f.bars, f.err
}

func (f *fakeAlpaca) GetNews(req marketdata.GetNewsRequest) ([]marketdata.News, error) {
	f.newsReq = req
	return f.news, f.err
}

func TestAlpacaPricesCredentialMissing(t *testing.T) {
	a := NewAlpacaPrices(config.MarketConfig{AlpacaKey: "only-key"})
	bars, err := a.FetchPrices(context.Background(), "AAPL", 2)
	if !errors.Is(err, ErrCredentialMissing) {
		t.Fatalf("error = %v, want ErrCredentialMissing", err)
	}
	if bars == nil || len(bars) != 0 {
		t.Errorf("want empty non-nil slice, got %#v", bars)
	}
}

func TestAlpacaPricesFetch(t *testing.T) {
	d1 := time.Date(2024, 5, 2, 4, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 5, 1, 4, 0, 0, 0, time.UTC)
	fake := &fakeAlpaca{bars: []marketdata.Bar{
		{Timestamp: d1, Open: 149, High: 151, Low: 144, Close: 145, Volume: 20},
		{Timestamp: d2, Open: 148, High: 152, Low: 147, Close: 150, Volume: 10},
	}}
	a := &AlpacaPrices{client: fake, feed: "iex", now: func() time.Time { return fixedNow }}

	bars, err := a.FetchPrices(context.Background(), "aapl", 2)
	if err != nil {
		t.Fatalf("FetchPrices error: %v", err)
	}
	if fake.symbol != "AAPL" {
		t.Errorf("symbol = %q", fake.symbol)
	}
	if fake.barsReq.TimeFrame != marketdata.OneDay {
		t.Errorf("timeframe = %v", fake.barsReq.TimeFrame)
	}
	if !fake.barsReq.Start.Equal(fixedNow.AddDate(0, 0, -2)) || !fake.barsReq.End.Equal(fixedNow) {
		t.Errorf("window = %v..%v", fake.barsReq.Start, fake.barsReq.End)
	}
	if len(bars) != 2 || bars[0].Close != 150 || bars[1].Close != 145 {
		t.Fatalf("bars = %+v", bars)
	}
	if bars[1].Volume != 20 {
		t.Errorf("volume = %d", bars[1].Volume)
	}
}

func TestAlpacaPricesUpstreamError(t *testing.T) {
	a := &AlpacaPrices{client: &fakeAlpaca{err: errors.New("forbidden")}, now: time.Now}
	if _, err := a.FetchPrices(context.Background(), "AAPL", 2); !errors.Is(err, ErrUpstream) {
		t.Fatalf("error = %v, want ErrUpstream", err)
	}
}

func TestAlpacaNewsFetch(t *testing.T) {
	fake := &fakeAlpaca{news: []marketdata.News{
		{Headline: "Apple beats estimates", CreatedAt: fixedNow.Add(-time.Hour), URL: "https://n/1"},
		{Headline: "", CreatedAt: fixedNow},
		{Headline: "No date"},
	}}
	a := &AlpacaNews{
		client: fake,
		scorer: sentiment.Func(func(string) float64 { return 0.4 }),
		logger: logging.Nop(),
		now:    func() time.Time { return fixedNow },
	}

	got, err := a.FetchHeadlines(context.Background(), apple, 2)
	if err != nil {
		t.Fatalf("FetchHeadlines error: %v", err)
	}
	if len(got) != 1 || got[0].Text != "Apple beats estimates" || got[0].Sentiment != 0.4 {
		t.Fatalf("got %+v", got)
	}
	if len(fake.newsReq.Symbols) != 1 || fake.newsReq.Symbols[0] != "AAPL" {
		t.Errorf("symbols = %v", fake.newsReq.Symbols)
	}
}

func TestAlpacaNewsCredentialMissing(t *testing.T) {
	a := NewAlpacaNews(config.MarketConfig{}, nil, nil)
	if _, err := a.FetchHeadlines(context.Background(), apple, 2); !errors.Is(err, ErrCredentialMissing) {
		t.Fatalf("error = %v, want ErrCredentialMissing", err)
	}
}
