// Package dashboard runs the "Analyze" action: it resolves the company,
// fetches headlines and prices concurrently, and assembles the advisory,
// metrics, chart and headline table shown on the dashboard.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/stocksentiment/internal/advisory"
	"github.com/seenimoa/stocksentiment/internal/datasource"
	"github.com/seenimoa/stocksentiment/internal/logging"
	"github.com/seenimoa/stocksentiment/internal/registry"
	"github.com/seenimoa/stocksentiment/internal/report"
	"github.com/seenimoa/stocksentiment/pkg/models"
	"github.com/seenimoa/stocksentiment/pkg/utils"
)

// DefaultLookbackDays is used when a request does not name a window.
const DefaultLookbackDays = 2

// MaxLookbackDays bounds the lookback window of a request.
const MaxLookbackDays = 30

// ErrAnalysis wraps every failure that is not a request or lookup error.
// Its text is the generic message shown to the user.
var ErrAnalysis = errors.New("Analysis error")

// ErrInvalidLookback is returned for a lookback outside 0..MaxLookbackDays.
var ErrInvalidLookback = fmt.Errorf("lookback_days must be between 1 and %d", MaxLookbackDays)

// Event types emitted to the Observer.
const (
	EventStarted       = "analysis_started"
	EventNewsFetched   = "news_fetched"
	EventPricesFetched = "prices_fetched"
	EventComplete      = "analysis_complete"
	EventFailed        = "analysis_failed"
)

// Event is a progress notification for one analysis run.
type Event struct {
	Type    string    `json:"type"`
	RunID   string    `json:"run_id"`
	Ticker  string    `json:"ticker"`
	Source  string    `json:"source,omitempty"`
	State   string    `json:"state,omitempty"`
	Count   int       `json:"count,omitempty"`
	Advice  string    `json:"advice,omitempty"`
	Message string    `json:"message,omitempty"`
	Time    time.Time `json:"time"`
}

// Observer receives progress events. It is called synchronously and must
// not block.
type Observer func(Event)

// Request names the company and window of one analysis.
type Request struct {
	Ticker       string `json:"ticker"`
	LookbackDays int    `json:"lookback_days,omitempty"`
}

// KeySetter is implemented by news sources whose credential can be
// supplied at runtime.
type KeySetter interface {
	SetAPIKey(key string)
	HasAPIKey() bool
}

// Config holds the collaborators of a Controller.
type Config struct {
	Registry     *registry.Registry
	News         datasource.NewsSource
	Prices       datasource.PriceSource
	Logger       *log.Logger
	Observer     Observer
	LookbackDays int
	Now          func() time.Time
}

// Controller orchestrates analyses. It is safe for concurrent use.
type Controller struct {
	registry *registry.Registry
	news     datasource.NewsSource
	prices   datasource.PriceSource
	logger   *log.Logger
	lookback int
	now      func() time.Time

	mu       sync.RWMutex
	observer Observer
}

// New creates a Controller. A nil registry selects the built-in catalog.
func New(cfg Config) *Controller {
	c := &Controller{
		registry: cfg.Registry,
		news:     cfg.News,
		prices:   cfg.Prices,
		logger:   cfg.Logger,
		lookback: cfg.LookbackDays,
		now:      cfg.Now,
		observer: cfg.Observer,
	}
	if c.registry == nil {
		c.registry = registry.Default()
	}
	if c.logger == nil {
		c.logger = logging.Nop()
	}
	if c.lookback <= 0 {
		c.lookback = DefaultLookbackDays
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Registry returns the company catalog the controller resolves tickers against.
func (c *Controller) Registry() *registry.Registry { return c.registry }

// LookbackDays returns the default window in days.
func (c *Controller) LookbackDays() int { return c.lookback }

// SetObserver replaces the progress observer.
func (c *Controller) SetObserver(o Observer) {
	c.mu.Lock()
	c.observer = o
	c.mu.Unlock()
}

// NeedsNewsKey reports whether the configured news source is missing its key.
func (c *Controller) NeedsNewsKey() bool {
	ks, ok := c.news.(KeySetter)
	return ok && !ks.HasAPIKey()
}

// SetNewsKey supplies the news credential at runtime. It fails with
// datasource.ErrNotSupported when the news source takes no key.
func (c *Controller) SetNewsKey(key string) error {
	ks, ok := c.news.(KeySetter)
	if !ok {
		return fmt.Errorf("%s: %w", c.news.Name(), datasource.ErrNotSupported)
	}
	ks.SetAPIKey(key)
	c.logger.Info().Str("source", c.news.Name()).Bool("configured", key != "").Msg("news key updated")
	return nil
}

// Sources returns the names of the news and price sources.
func (c *Controller) Sources() (news, prices string) {
	return c.news.Name(), c.prices.Name()
}

// ════════════════════════════════════════════════════════════════════
// Analyze
// ════════════════════════════════════════════════════════════════════

// Analyze runs one analysis. A lookback outside 0..MaxLookbackDays returns
// ErrInvalidLookback and an unknown ticker returns an error wrapping
// registry.ErrNotFound; nothing is fetched in either case. Any other
// failure, including a panic, wraps ErrAnalysis.
func (c *Controller) Analyze(ctx context.Context, req Request) (result *models.Analysis, err error) {
	if req.LookbackDays < 0 || req.LookbackDays > MaxLookbackDays {
		return nil, ErrInvalidLookback
	}
	company, err := c.registry.Lookup(req.Ticker)
	if err != nil {
		return nil, err
	}
	days := req.LookbackDays
	if days == 0 {
		days = c.lookback
	}

	runID := uuid.NewString()
	started := c.now()
	c.logger.Info().Str("run_id", runID).Str("ticker", company.Ticker).Int("days", days).Msg("analysis started")
	c.emit(Event{Type: EventStarted, RunID: runID, Ticker: company.Ticker})

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			c.logger.Error().Err(err).Str("run_id", runID).Str("ticker", company.Ticker).Msg("analysis failed")
			c.emit(Event{Type: EventFailed, RunID: runID, Ticker: company.Ticker, Message: err.Error()})
			result, err = nil, fmt.Errorf("%w: %v", ErrAnalysis, err)
		}
	}()

	var (
		headlines []models.Headline
		bars      []models.PriceBar
		newsSt    models.SourceStatus
		priceSt   models.SourceStatus
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		defer recoverTo(&err)
		hs, ferr := c.news.FetchHeadlines(gctx, company, days)
		st, err := classify(c.news.Name(), len(hs), ferr)
		if err != nil {
			return fmt.Errorf("news: %w", err)
		}
		headlines, newsSt = hs, st
		c.logSource(runID, st, ferr)
		c.emit(Event{Type: EventNewsFetched, RunID: runID, Ticker: company.Ticker, Source: st.Source, State: string(st.State), Count: st.Count})
		return nil
	})

	g.Go(func() (err error) {
		defer recoverTo(&err)
		bs, ferr := c.prices.FetchPrices(gctx, company.Ticker, days)
		st, err := classify(c.prices.Name(), len(bs), ferr)
		if err != nil {
			return fmt.Errorf("prices: %w", err)
		}
		bars, priceSt = bs, st
		c.logSource(runID, st, ferr)
		c.emit(Event{Type: EventPricesFetched, RunID: runID, Ticker: company.Ticker, Source: st.Source, State: string(st.State), Count: st.Count})
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	a := assemble(company, days, headlines, bars)
	a.RunID = runID
	a.News, a.Prices = newsSt, priceSt
	a.Started = started
	a.Elapsed = c.now().Sub(started)

	c.logger.Info().
		Str("run_id", runID).
		Str("ticker", company.Ticker).
		Str("advice", a.Advisory.Label).
		Int("headlines", len(headlines)).
		Int("bars", len(bars)).
		Dur("elapsed", a.Elapsed).
		Msg("analysis complete")
	c.emit(Event{Type: EventComplete, RunID: runID, Ticker: company.Ticker, Advice: a.Advisory.Label, Count: len(headlines)})
	return a, nil
}

// assemble derives everything shown for one analysis from the fetched data.
func assemble(company models.Company, days int, headlines []models.Headline, bars []models.PriceBar) *models.Analysis {
	a := &models.Analysis{
		Company:      company,
		LookbackDays: days,
		Headlines:    headlines,
		Bars:         bars,
		Advisory:     advisory.Advise(headlines, bars),
		Metrics:      BuildMetrics(headlines, bars),
		Table:        HeadlineTable(headlines),
	}
	if len(a.Table) == 0 {
		a.HeadlineNotice = report.NoticeNoHeadlines
	}
	if spec, ok := report.BuildChart(bars, headlines, company.Name); ok {
		a.Chart = spec
	} else {
		a.ChartNotice = report.NoticeNoChart
	}
	return a
}

// BuildMetrics formats the three summary figures. Performance is empty
// when there are fewer than two bars.
func BuildMetrics(headlines []models.Headline, bars []models.PriceBar) models.Metrics {
	m := models.Metrics{
		AvgSentiment:      "N/A",
		HeadlinesAnalyzed: strconv.Itoa(len(headlines)),
	}
	if len(headlines) > 0 {
		m.AvgSentiment = utils.FormatScore(advisory.Mean(headlines))
	}
	if pct, ok := advisory.PricePerformance(bars); ok {
		m.Performance = utils.FormatPerformance(pct)
	}
	return m
}

// HeadlineTable returns display rows sorted newest first.
func HeadlineTable(headlines []models.Headline) []models.HeadlineRow {
	sorted := make([]models.Headline, len(headlines))
	copy(sorted, headlines)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})

	rows := make([]models.HeadlineRow, len(sorted))
	for i, h := range sorted {
		rows[i] = models.HeadlineRow{
			Date:      utils.FormatTableTime(h.Timestamp),
			Headline:  h.Text,
			Sentiment: h.Sentiment,
		}
	}
	return rows
}

// --- helpers ---

// classify maps a fetch outcome to a SourceStatus. Errors that are neither
// a missing credential nor an upstream failure are returned unchanged.
func classify(source string, n int, err error) (models.SourceStatus, error) {
	st := models.SourceStatus{Source: source, Count: n, State: models.FetchOK}
	switch {
	case err == nil && n == 0:
		st.State = models.FetchEmpty
	case err == nil:
	case errors.Is(err, datasource.ErrCredentialMissing):
		st.State, st.Count, st.Message = models.FetchCredentialMissing, 0, err.Error()
	case errors.Is(err, datasource.ErrUpstream),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		st.State, st.Count, st.Message = models.FetchUpstreamFailure, 0, err.Error()
	default:
		return st, err
	}
	return st, nil
}

func recoverTo(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("panic: %v", r)
	}
}

func (c *Controller) logSource(runID string, st models.SourceStatus, err error) {
	if st.Degraded() {
		c.logger.Warn().Err(err).Str("run_id", runID).Str("source", st.Source).Str("state", string(st.State)).Msg("source degraded")
		return
	}
	c.logger.Debug().Str("run_id", runID).Str("source", st.Source).Int("count", st.Count).Msg("source fetched")
}

func (c *Controller) emit(e Event) {
	c.mu.RLock()
	o := c.observer
	c.mu.RUnlock()
	if o == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = c.now()
	}
	o(e)
}
