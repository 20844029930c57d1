package datasource

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/phuslu/log"

	"github.com/seenimoa/stocksentiment/internal/analysis/sentiment"
	"github.com/seenimoa/stocksentiment/internal/logging"
	"github.com/seenimoa/stocksentiment/pkg/models"
	"github.com/seenimoa/stocksentiment/pkg/utils"
)

// DefaultRSSURL is the Yahoo Finance per-ticker headline feed.
const DefaultRSSURL = "https://feeds.finance.yahoo.com/rss/2.0/headline"

// RSSNews fetches headlines from a per-ticker RSS feed. It needs no credential.
type RSSNews struct {
	feedURL string
	timeout time.Duration
	scorer  sentiment.Scorer
	limiter *RateLimiter
	parser  *gofeed.Parser
	logger  *log.Logger
	now     func() time.Time
}

// NewRSSNews creates an RSS news source. An empty feedURL uses DefaultRSSURL.
func NewRSSNews(feedURL string, timeout time.Duration, scorer sentiment.Scorer, logger *log.Logger) *RSSNews {
	if feedURL == "" {
		feedURL = DefaultRSSURL
	}
	if timeout <= 0 {
		timeout = defaultNewsTimeout
	}
	if scorer == nil {
		scorer = sentiment.Default
	}
	if logger == nil {
		logger = logging.Nop()
	}
	parser := gofeed.NewParser()
	parser.UserAgent = DefaultUserAgent
	return &RSSNews{
		feedURL: feedURL,
		timeout: timeout,
		scorer:  scorer,
		limiter: NewRateLimiter(2, time.Second), // conservative: 2 req/s
		parser:  parser,
		logger:  logger,
		now:     time.Now,
	}
}

// Name returns the data source name.
func (r *RSSNews) Name() string { return "Yahoo Finance RSS" }

// FetchHeadlines reads the ticker's feed and keeps the items published
// inside the lookback window, newest first.
func (r *RSSNews) FetchHeadlines(ctx context.Context, company models.Company, lookbackDays int) ([]models.Headline, error) {
	empty := []models.Headline{}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.limiter.Wait(ctx); err != nil {
		return empty, fmt.Errorf("%w: rss: %w", ErrUpstream, err)
	}

	feed, err := r.parser.ParseURLWithContext(r.feedFor(company.Ticker), ctx)
	if err != nil {
		return empty, fmt.Errorf("%w: rss %s: %w", ErrUpstream, company.Ticker, err)
	}

	from, to := utils.LookbackWindow(r.now(), lookbackDays)
	headlines := make([]models.Headline, 0, len(feed.Items))
	for _, item := range feed.Items {
		published := item.PublishedParsed
		if published == nil {
			published = item.UpdatedParsed
		}
		if published == nil {
			r.logger.Warn().Str("ticker", company.Ticker).Str("published", item.Published).Msg("skipping feed item without date")
			continue
		}
		ts := published.UTC()
		if ts.Before(from) || ts.After(to) {
			continue
		}
		title := cleanHTML(item.Title)
		if title == "" {
			continue
		}
		source := feed.Title
		if item.Author != nil && item.Author.Name != "" {
			source = item.Author.Name
		}
		headlines = append(headlines, models.Headline{
			Timestamp: ts,
			Text:      title,
			Sentiment: r.scorer.Score(title),
			Source:    source,
			URL:       item.Link,
		})
	}

	sort.SliceStable(headlines, func(i, j int) bool {
		return headlines[i].Timestamp.After(headlines[j].Timestamp)
	})
	return headlines, nil
}

// feedFor builds the feed URL for ticker.
func (r *RSSNews) feedFor(ticker string) string {
	q := url.Values{}
	q.Set("s", utils.ToYFinanceTicker(ticker))
	q.Set("region", "US")
	q.Set("lang", "en-US")
	sep := "?"
	if strings.Contains(r.feedURL, "?") {
		sep = "&"
	}
	return r.feedURL + sep + q.Encode()
}

// cleanHTML strips HTML tags and entities from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
