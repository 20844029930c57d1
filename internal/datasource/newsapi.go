package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/phuslu/log"

	"github.com/seenimoa/stocksentiment/internal/analysis/sentiment"
	"github.com/seenimoa/stocksentiment/internal/config"
	"github.com/seenimoa/stocksentiment/internal/logging"
	"github.com/seenimoa/stocksentiment/pkg/models"
	"github.com/seenimoa/stocksentiment/pkg/utils"
)

// DefaultNewsAPIEndpoint is the NewsAPI "everything" search endpoint.
const DefaultNewsAPIEndpoint = "https://newsapi.org/v2/everything"

// defaultNewsTimeout bounds a single news request.
const defaultNewsTimeout = 10 * time.Second

// NewsAPI fetches headlines from newsapi.org.
type NewsAPI struct {
	endpoint string
	language string
	timeout  time.Duration
	scorer   sentiment.Scorer
	client   *http.Client
	limiter  *RateLimiter
	logger   *log.Logger
	now      func() time.Time

	mu     sync.RWMutex
	apiKey string
}

// NewNewsAPI creates a NewsAPI source from the news config section.
// A nil scorer uses the default lexicon; a nil logger discards output.
func NewNewsAPI(cfg config.NewsConfig, scorer sentiment.Scorer, logger *log.Logger) *NewsAPI {
	if scorer == nil {
		scorer = sentiment.Default
	}
	if logger == nil {
		logger = logging.Nop()
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultNewsAPIEndpoint
	}
	language := cfg.Language
	if language == "" {
		language = "en"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultNewsTimeout
	}
	return &NewsAPI{
		endpoint: endpoint,
		language: language,
		timeout:  timeout,
		scorer:   scorer,
		client:   HTTPClient,
		limiter:  NewRateLimiter(2, time.Second),
		logger:   logger,
		now:      time.Now,
		apiKey:   cfg.APIKey,
	}
}

// Name returns the data source name.
func (n *NewsAPI) Name() string { return "NewsAPI" }

// SetAPIKey replaces the credential used for subsequent requests.
func (n *NewsAPI) SetAPIKey(key string) {
	n.mu.Lock()
	n.apiKey = strings.TrimSpace(key)
	n.mu.Unlock()
}

// HasAPIKey reports whether a credential is configured.
func (n *NewsAPI) HasAPIKey() bool {
	return n.key() != ""
}

func (n *NewsAPI) key() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.apiKey
}

// --- NewsAPI wire types ---

type newsAPIResponse struct {
	Status       string           `json:"status"`
	TotalResults int              `json:"totalResults"`
	Articles     []newsAPIArticle `json:"articles"`
	Code         string           `json:"code"`
	Message      string           `json:"message"`
}

type newsAPIArticle struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Title       *string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

// FetchHeadlines searches NewsAPI for "<name> OR <ticker>" over the
// lookback window and scores each title.
func (n *NewsAPI) FetchHeadlines(ctx context.Context, company models.Company, lookbackDays int) ([]models.Headline, error) {
	empty := []models.Headline{}

	key := n.key()
	if key == "" {
		return empty, fmt.Errorf("newsapi: %w", ErrCredentialMissing)
	}

	from, to := utils.LookbackWindow(n.now(), lookbackDays)
	q := url.Values{}
	q.Set("q", fmt.Sprintf("%s OR %s", company.Name, company.Ticker))
	q.Set("from", utils.FormatDate(from))
	q.Set("to", utils.FormatDate(to))
	q.Set("language", n.language)
	q.Set("sortBy", "publishedAt")
	q.Set("apiKey", key)

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	if err := n.limiter.Wait(ctx); err != nil {
		return empty, fmt.Errorf("%w: newsapi: %w", ErrUpstream, err)
	}

	body, _, err := doGet(ctx, n.client, n.endpoint+"?"+q.Encode(), map[string]string{
		"Accept": "application/json",
	})
	if err != nil {
		return empty, newsAPIError(err)
	}
	defer body.Close()

	var resp newsAPIResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return empty, fmt.Errorf("%w: newsapi: decode response: %w", ErrUpstream, err)
	}
	if resp.Status != "ok" {
		msg := resp.Message
		if msg == "" {
			msg = fmt.Sprintf("status %q", resp.Status)
		}
		return empty, fmt.Errorf("%w: newsapi: %s", ErrUpstream, msg)
	}

	headlines := make([]models.Headline, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		if a.Title == nil {
			n.logger.Warn().Str("ticker", company.Ticker).Str("url", a.URL).Msg("skipping article without title")
			continue
		}
		ts, err := utils.ParseNewsTimestamp(a.PublishedAt)
		if err != nil {
			n.logger.Warn().Str("ticker", company.Ticker).Str("published_at", a.PublishedAt).Err(err).Msg("skipping article with bad timestamp")
			continue
		}
		// A blank title still counts as a neutral headline.
		title := strings.TrimSpace(*a.Title)
		score := 0.0
		if title != "" {
			score = n.scorer.Score(title)
		}
		headlines = append(headlines, models.Headline{
			Timestamp: ts,
			Text:      title,
			Sentiment: score,
			Source:    a.Source.Name,
			URL:       a.URL,
		})
	}

	n.logger.Debug().Str("ticker", company.Ticker).Int("articles", len(resp.Articles)).Int("headlines", len(headlines)).Msg("newsapi fetched")
	return headlines, nil
}

// newsAPIError maps a transport or status error to ErrUpstream, preferring
// the API's own error message when the body carries one.
func newsAPIError(err error) error {
	var httpErr *ErrHTTP
	if errors.As(err, &httpErr) {
		var r newsAPIResponse
		if json.Unmarshal([]byte(httpErr.Body), &r) == nil && r.Message != "" {
			return fmt.Errorf("%w: newsapi: HTTP %d: %s", ErrUpstream, httpErr.StatusCode, r.Message)
		}
	}
	return fmt.Errorf("%w: newsapi: %w", ErrUpstream, err)
}
