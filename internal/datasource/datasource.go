// Package datasource fetches the two upstream inputs of an analysis:
// scored news headlines and daily OHLC price bars. Headlines come from
// NewsAPI, a Yahoo Finance RSS feed or Alpaca news; prices come from the
// Yahoo Finance chart API or Alpaca market data.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"sync"
	"time"

	"github.com/seenimoa/stocksentiment/pkg/models"
)

// NewsSource fetches headlines about a company published in the last
// lookbackDays days, each scored for sentiment.
type NewsSource interface {
	// Name returns the human-readable name of this source.
	Name() string

	// FetchHeadlines never returns a nil slice. On failure the slice is
	// empty and the error wraps ErrCredentialMissing or ErrUpstream.
	FetchHeadlines(ctx context.Context, company models.Company, lookbackDays int) ([]models.Headline, error)
}

// PriceSource fetches daily OHLC bars for a ticker, oldest first.
type PriceSource interface {
	// Name returns the human-readable name of this source.
	Name() string

	// FetchPrices never returns a nil slice. An empty slice with a nil
	// error means the upstream had no bars for the window.
	FetchPrices(ctx context.Context, ticker string, lookbackDays int) ([]models.PriceBar, error)
}

// --- Sentinel errors ---

// ErrCredentialMissing is returned when a source needs a key that is not configured.
var ErrCredentialMissing = errors.New("credential missing")

// ErrUpstream wraps every transport, status and decoding failure of an upstream service.
var ErrUpstream = errors.New("upstream failure")

// ErrNotSupported is returned for a provider name no source implements.
var ErrNotSupported = errors.New("not supported")

// ErrHTTP wraps an HTTP error with status code.
type ErrHTTP struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Status, e.Body)
}

// --- Shared HTTP client helpers ---

// DefaultUserAgent is the user agent string used for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// HTTPClient is the client shared by the HTTP sources. It sets no
// timeout of its own: news sources bound each call through the request
// context and price fetches end only with the caller's context.
var HTTPClient = &http.Client{}

// doGet performs a GET request with the given URL and headers, returning the response body.
// The caller is responsible for closing the returned ReadCloser.
func doGet(ctx context.Context, client *http.Client, url string, headers map[string]string) (io.ReadCloser, int, error) {
	if client == nil {
		client = HTTPClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	// Set default headers.
	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "application/json, text/html, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	// Override/add custom headers.
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		var uerr *neturl.Error
		if errors.As(err, &uerr) {
			uerr.URL = redactURL(uerr.URL)
		}
		return nil, 0, fmt.Errorf("HTTP GET %s: %w", redactURL(url), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, resp.StatusCode, &ErrHTTP{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	return resp.Body, resp.StatusCode, nil
}

// redactURL hides credentials passed as query parameters.
func redactURL(raw string) string {
	u, err := neturl.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	for _, k := range []string{"apiKey", "apikey", "token"} {
		if q.Has(k) {
			q.Set(k, "REDACTED")
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// --- Rate limiter ---

// RateLimiter provides simple token-bucket rate limiting.
type RateLimiter struct {
	mu         sync.Mutex
	tokens     int
	maxTokens  int
	refillRate time.Duration
	lastRefill time.Time
}

// NewRateLimiter creates a rate limiter that allows maxTokens requests
// per refillRate duration.
func NewRateLimiter(maxTokens int, refillRate time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Wait blocks until a token is available or context is cancelled.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		rl.mu.Lock()
		rl.refill()
		if rl.tokens > 0 {
			rl.tokens--
			rl.mu.Unlock()
			return nil
		}
		rl.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
			// Check again after a short sleep.
		}
	}
}

// refill adds tokens based on elapsed time. Must be called with mu held.
func (rl *RateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(rl.lastRefill)
	if elapsed >= rl.refillRate {
		periods := int(elapsed / rl.refillRate)
		rl.tokens += periods
		if rl.tokens > rl.maxTokens {
			rl.tokens = rl.maxTokens
		}
		rl.lastRefill = rl.lastRefill.Add(time.Duration(periods) * rl.refillRate)
	}
}
