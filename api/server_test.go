package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gorilla/websocket"

	"github.com/seenimoa/stocksentiment/internal/config"
	"github.com/seenimoa/stocksentiment/internal/dashboard"
	"github.com/seenimoa/stocksentiment/internal/datasource"
	"github.com/seenimoa/stocksentiment/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Test Helpers
// ════════════════════════════════════════════════════════════════════

var day1 = time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC)

type fakeNews struct {
	mu        sync.Mutex
	key       string
	headlines []models.Headline
	err       error
}

func (f *fakeNews) Name() string { return "FakeNews" }

func (f *fakeNews) FetchHeadlines(context.Context, models.Company, int) ([]models.Headline, error) {
	if f.err != nil {
		return []models.Headline{}, f.err
	}
	return f.headlines, nil
}

func (f *fakeNews) SetAPIKey(key string) {
	f.mu.Lock()
	f.key = key
	f.mu.Unlock()
}

func (f *fakeNews) HasAPIKey() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.key != ""
}

type fakePrices struct {
	bars []models.PriceBar

	mu   sync.Mutex
	days []int
}

func (f *fakePrices) Name() string { return "FakePrices" }

func (f *fakePrices) FetchPrices(_ context.Context, _ string, days int) ([]models.PriceBar, error) {
	f.mu.Lock()
	f.days = append(f.days, days)
	f.mu.Unlock()
	return f.bars, nil
}

func (f *fakePrices) windows() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.days...)
}

// appleFixture yields BUYING ADVISED with metrics 0.20 / 2 / -3.3%.
func appleFixture() (*fakeNews, *fakePrices) {
	news := &fakeNews{
		key: "configured",
		headlines: []models.Headline{
			{Timestamp: day1, Text: "Apple rallies on iPhone demand", Sentiment: 0.3},
			{Timestamp: day1.Add(26 * time.Hour), Text: "Apple <holds> steady", Sentiment: 0.1},
		},
	}
	prices := &fakePrices{bars: []models.PriceBar{
		{Date: day1, Open: 149, High: 152, Low: 148, Close: 150},
		{Date: day1.AddDate(0, 0, 1), Open: 150, High: 151, Low: 144, Close: 145},
	}}
	return news, prices
}

func testServer(t *testing.T, news datasource.NewsSource, prices datasource.PriceSource) *Server {
	t.Helper()
	ctrl := dashboard.New(dashboard.Config{News: news, Prices: prices})
	srv := NewServer(&config.Config{}, ctrl, nil, "test")
	srv.now = func() time.Time { return time.Date(2024, 5, 3, 15, 0, 0, 0, time.UTC) }

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.wsHub.Run(ctx)

	return srv
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

// decodeData re-decodes resp.Data into v.
func decodeData(t *testing.T, resp APIResponse, v interface{}) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
}

// ════════════════════════════════════════════════════════════════════
// Health & catalog
// ════════════════════════════════════════════════════════════════════

func TestHealthEndpoints(t *testing.T) {
	news, prices := appleFixture()
	srv := testServer(t, news, prices)

	for _, path := range []string{"/health", "/api/v1/health"} {
		rec := do(t, srv, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d", path, rec.Code)
		}
		resp := decodeResponse(t, rec)
		data := resp.Data.(map[string]interface{})
		if data["status"] != "ok" || data["version"] != "test" {
			t.Errorf("%s: data = %v", path, data)
		}
		if data["news_source"] != "FakeNews" || data["companies"].(float64) != 20 {
			t.Errorf("%s: data = %v", path, data)
		}
	}
}

func TestSectors(t *testing.T) {
	news, prices := appleFixture()
	rec := do(t, testServer(t, news, prices), http.MethodGet, "/api/v1/sectors", "")

	var sectors []string
	decodeData(t, decodeResponse(t, rec), &sectors)
	if len(sectors) != 11 || sectors[0] != "All" {
		t.Errorf("sectors = %v", sectors)
	}
}

func TestCompanies(t *testing.T) {
	news, prices := appleFixture()
	srv := testServer(t, news, prices)

	tests := []struct {
		query string
		want  int
	}{
		{"", 20},
		{"?sector=All", 20},
		{"?sector=technology", 6},
		{"?sector=Healthcare", 2},
		{"?sector=Shipping", 0},
	}
	for _, tc := range tests {
		rec := do(t, srv, http.MethodGet, "/api/v1/companies"+tc.query, "")
		var companies []models.Company
		decodeData(t, decodeResponse(t, rec), &companies)
		if len(companies) != tc.want {
			t.Errorf("companies%s: got %d, want %d", tc.query, len(companies), tc.want)
		}
	}
}

func TestCompanyLookup(t *testing.T) {
	news, prices := appleFixture()
	srv := testServer(t, news, prices)

	rec := do(t, srv, http.MethodGet, "/api/v1/companies/aapl", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var c models.Company
	decodeData(t, decodeResponse(t, rec), &c)
	if c.Name != "Apple Inc" || c.Sector != "Technology" {
		t.Errorf("company = %+v", c)
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/companies/ZZZZ", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown ticker: status %d", rec.Code)
	}
	if resp := decodeResponse(t, rec); !strings.Contains(resp.Error, "no such company") {
		t.Errorf("error = %q", resp.Error)
	}
}

// ════════════════════════════════════════════════════════════════════
// Analysis
// ════════════════════════════════════════════════════════════════════

func TestAnalyze(t *testing.T) {
	news, prices := appleFixture()
	rec := do(t, testServer(t, news, prices), http.MethodPost, "/api/v1/analyze", `{"ticker":"AAPL"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	var a models.Analysis
	decodeData(t, decodeResponse(t, rec), &a)
	if a.Advisory.Label != models.AdviceBuy || a.Advisory.Color != models.ColorGreen {
		t.Errorf("advisory = %+v", a.Advisory)
	}
	if a.Metrics.AvgSentiment != "0.20" || a.Metrics.HeadlinesAnalyzed != "2" || a.Metrics.Performance != "-3.3%" {
		t.Errorf("metrics = %+v", a.Metrics)
	}
	if a.Chart == nil || len(a.Chart.Candles) != 2 {
		t.Error("chart spec missing from response")
	}
	if len(a.Table) != 2 || a.Table[0].Headline != "Apple <holds> steady" {
		t.Errorf("table = %+v", a.Table)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		newsErr    error
		wantStatus int
		wantError  string
	}{
		{"invalid body", `{`, nil, http.StatusBadRequest, "invalid request body"},
		{"missing ticker", `{}`, nil, http.StatusBadRequest, "ticker is required"},
		{"bad lookback", `{"ticker":"AAPL","lookback_days":90}`, nil, http.StatusBadRequest, "lookback_days"},
		{"negative lookback", `{"ticker":"AAPL","lookback_days":-1}`, nil, http.StatusBadRequest, "lookback_days"},
		{"unknown ticker", `{"ticker":"ZZZZ"}`, nil, http.StatusNotFound, "no such company"},
		{"unclassified failure", `{"ticker":"AAPL"}`, errors.New("boom"), http.StatusInternalServerError, "Analysis error: "},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			news, prices := appleFixture()
			news.err = tc.newsErr
			rec := do(t, testServer(t, news, prices), http.MethodPost, "/api/v1/analyze", tc.body)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			resp := decodeResponse(t, rec)
			if resp.Success || !strings.Contains(resp.Error, tc.wantError) {
				t.Errorf("response = %+v, want error containing %q", resp, tc.wantError)
			}
		})
	}
}

func TestAnalyzeDegradedSourceStillSucceeds(t *testing.T) {
	news, prices := appleFixture()
	news.err = datasource.ErrCredentialMissing
	rec := do(t, testServer(t, news, prices), http.MethodPost, "/api/v1/analyze", `{"ticker":"AAPL"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var a models.Analysis
	decodeData(t, decodeResponse(t, rec), &a)
	if a.News.State != models.FetchCredentialMissing || a.Advisory.Label != models.AdviceNone {
		t.Errorf("news = %+v, advice = %s", a.News, a.Advisory.Label)
	}
	if a.HeadlineNotice == "" {
		t.Error("expected headline notice")
	}
}

func TestChartSVG(t *testing.T) {
	news, prices := appleFixture()
	srv := testServer(t, news, prices)

	rec := do(t, srv, http.MethodGet, "/api/v1/chart/AAPL.svg?lookback_days=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, "<svg") || !strings.Contains(body, "Apple Inc Market Analysis Dashboard") {
		t.Error("unexpected SVG body")
	}

	if rec := do(t, srv, http.MethodGet, "/api/v1/chart/AAPL.svg?lookback_days=abc", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad lookback: status %d", rec.Code)
	}
}

func TestChartSVGInsufficientData(t *testing.T) {
	news, _ := appleFixture()
	rec := do(t, testServer(t, news, &fakePrices{}), http.MethodGet, "/api/v1/chart/AAPL.svg", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d", rec.Code)
	}
	if resp := decodeResponse(t, rec); resp.Error != "Insufficient data for visualization." {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestReportHTML(t *testing.T) {
	news, prices := appleFixture()
	rec := do(t, testServer(t, news, prices), http.MethodGet, "/api/v1/report/AAPL.html", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	doc, err := goquery.NewDocumentFromReader(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(doc.Find(".advice").Text()); got != models.AdviceBuy {
		t.Errorf("advice = %q", got)
	}
}

// ════════════════════════════════════════════════════════════════════
// Configuration
// ════════════════════════════════════════════════════════════════════

func TestConfigKeys(t *testing.T) {
	t.Setenv("STOCKSENTIMENT_NEWS_API_KEY", "")
	t.Setenv("NEWS_API_KEY", "")
	news, prices := appleFixture()
	news.key = ""
	srv := testServer(t, news, prices)

	rec := do(t, srv, http.MethodGet, "/api/v1/config/keys", "")
	var keys []config.KeyStatus
	decodeData(t, decodeResponse(t, rec), &keys)
	if len(keys) != 3 || keys[0].IsSet {
		t.Fatalf("keys = %+v", keys)
	}

	if rec := do(t, srv, http.MethodPut, "/api/v1/config/keys", `{"news_api_key":"  "}`); rec.Code != http.StatusBadRequest {
		t.Errorf("blank key: status %d", rec.Code)
	}

	rec = do(t, srv, http.MethodPut, "/api/v1/config/keys", `{"news_api_key":"abcd1234efgh"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	decodeData(t, decodeResponse(t, rec), &keys)
	if !keys[0].IsSet || strings.Contains(keys[0].Masked, "1234") {
		t.Errorf("news key status = %+v", keys[0])
	}
	if !news.HasAPIKey() || srv.cfg.News.APIKey != "abcd1234efgh" {
		t.Error("key not applied to source and config")
	}
}

func TestConfigKeysUnsupportedSource(t *testing.T) {
	_, prices := appleFixture()
	srv := testServer(t, datasource.NewRSSNews("", 0, nil, nil), prices)
	rec := do(t, srv, http.MethodPut, "/api/v1/config/keys", `{"news_api_key":"abc"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status %d", rec.Code)
	}
}

func TestUpdateConfigPersists(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	news, prices := appleFixture()
	srv := testServer(t, news, prices)
	srv.cfg.News.APIKey = "secret-key"

	rec := do(t, srv, http.MethodPut, "/api/v1/config", `{"analysis":{"lookback_days":7},"logging":{"level":"debug"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if srv.cfg.Analysis.LookbackDays != 7 || srv.cfg.Logging.Level != "debug" {
		t.Errorf("config not merged: %+v", srv.cfg)
	}

	data, err := os.ReadFile(filepath.Join(home, ".stocksentiment", "config.yaml"))
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if !strings.Contains(string(data), "lookback_days: 7") || strings.Contains(string(data), "secret-key") {
		t.Errorf("config file = %s", data)
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/config", "")
	if strings.Contains(rec.Body.String(), "secret-key") {
		t.Error("GET /config leaked the news key")
	}
}

func TestMergeConfig(t *testing.T) {
	dst := &config.Config{
		News:   config.NewsConfig{Provider: "newsapi", Language: "en", APIKey: "keep"},
		Market: config.MarketConfig{Provider: "yahoo"},
	}
	mergeConfig(dst, &config.Config{
		News:   config.NewsConfig{Language: "de", APIKey: "ignored"},
		Market: config.MarketConfig{AlpacaFeed: "sip"},
	})
	if dst.News.Provider != "newsapi" || dst.News.Language != "de" || dst.Market.AlpacaFeed != "sip" {
		t.Errorf("merged = %+v", dst)
	}
	if dst.News.APIKey != "keep" {
		t.Error("mergeConfig must not touch credentials")
	}
}

// ════════════════════════════════════════════════════════════════════
// HTML dashboard
// ════════════════════════════════════════════════════════════════════

func TestDashboardSettings(t *testing.T) {
	news, prices := appleFixture()
	rec := do(t, testServer(t, news, prices), http.MethodGet, "/?sector=Healthcare", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	doc, err := goquery.NewDocumentFromReader(rec.Body)
	if err != nil {
		t.Fatal(err)
	}

	if got := doc.Find("#sector option").Length(); got != 11 {
		t.Errorf("sector options = %d, want 11", got)
	}
	if got := doc.Find("#sector option[selected]").AttrOr("value", ""); got != "Healthcare" {
		t.Errorf("selected sector = %q", got)
	}
	var tickers []string
	doc.Find("#ticker option").Each(func(_ int, s *goquery.Selection) {
		tickers = append(tickers, s.AttrOr("value", ""))
	})
	if strings.Join(tickers, ",") != "JNJ,UNH" {
		t.Errorf("ticker options = %v", tickers)
	}
	if doc.Find(".advisory").Length() != 0 {
		t.Error("no analysis should run without analyze=1")
	}
	if doc.Find(".key-prompt").Length() != 0 {
		t.Error("key prompt shown although a key is configured")
	}
}

func TestDashboardAnalyze(t *testing.T) {
	news, prices := appleFixture()
	rec := do(t, testServer(t, news, prices), http.MethodGet, "/?sector=Technology&ticker=AAPL&days=3&analyze=1", "")
	doc, err := goquery.NewDocumentFromReader(rec.Body)
	if err != nil {
		t.Fatal(err)
	}

	if got := strings.TrimSpace(doc.Find(".advice").Text()); got != models.AdviceBuy {
		t.Errorf("advice = %q", got)
	}
	var metrics []string
	doc.Find(".metric-value").Each(func(_ int, s *goquery.Selection) {
		metrics = append(metrics, s.Text())
	})
	if strings.Join(metrics, "|") != "0.20|2|-3.3%" {
		t.Errorf("metrics = %v", metrics)
	}
	if doc.Find(".chart svg").Length() != 1 {
		t.Error("chart missing")
	}
	if doc.Find(".headlines tbody tr").Length() != 2 {
		t.Error("headline rows missing")
	}
	if got := doc.Find("#days").AttrOr("value", ""); got != "3" {
		t.Errorf("days = %q", got)
	}
}

func TestDashboardAnalysisError(t *testing.T) {
	news, prices := appleFixture()
	news.err = errors.New("boom")
	rec := do(t, testServer(t, news, prices), http.MethodGet, "/?ticker=AAPL&analyze=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	doc, _ := goquery.NewDocumentFromReader(rec.Body)
	if got := doc.Find(".error").Text(); !strings.HasPrefix(got, "Analysis error: ") {
		t.Errorf("error = %q", got)
	}
}

func TestDashboardKeyPrompt(t *testing.T) {
	news, prices := appleFixture()
	news.key = ""
	srv := testServer(t, news, prices)

	rec := do(t, srv, http.MethodGet, "/", "")
	doc, _ := goquery.NewDocumentFromReader(rec.Body)
	if doc.Find(".key-prompt input[name=news_key]").Length() != 1 {
		t.Fatal("key prompt missing")
	}

	form := url.Values{"news_key": {"from-form"}}
	req := httptest.NewRequest(http.MethodPost, "/settings/news-key", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Fatalf("status %d, location %q", rec.Code, rec.Header().Get("Location"))
	}
	if !news.HasAPIKey() {
		t.Error("key not applied")
	}
}

func TestStaticAssets(t *testing.T) {
	news, prices := appleFixture()
	srv := testServer(t, news, prices)

	for _, path := range []string{"/static/dashboard.css", "/static/dashboard.js"} {
		rec := do(t, srv, http.MethodGet, path, "")
		if rec.Code != http.StatusOK || rec.Body.Len() == 0 {
			t.Errorf("%s: status %d", path, rec.Code)
		}
	}
}

func TestServeUIDisabled(t *testing.T) {
	news, prices := appleFixture()
	srv := testServer(t, news, prices)
	srv.SetServeUI(false)

	if rec := do(t, srv, http.MethodGet, "/", ""); rec.Code != http.StatusNotFound {
		t.Errorf("GET / status %d, want 404", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/api/v1/sectors", ""); rec.Code != http.StatusOK {
		t.Errorf("API should still be served, status %d", rec.Code)
	}
}

func TestPickCompany(t *testing.T) {
	companies := []models.Company{{Ticker: "JNJ"}, {Ticker: "UNH"}}
	tests := []struct{ in, want string }{
		{"unh", "UNH"},
		{"AAPL", "JNJ"},
		{"", "JNJ"},
	}
	for _, tc := range tests {
		if got := pickCompany(companies, tc.in); got != tc.want {
			t.Errorf("pickCompany(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if got := pickCompany(nil, "AAPL"); got != "" {
		t.Errorf("pickCompany(nil) = %q", got)
	}
}

// ════════════════════════════════════════════════════════════════════
// WebSocket
// ════════════════════════════════════════════════════════════════════

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readWS(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func waitForClients(t *testing.T, hub *WSHub, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, want %d", hub.ClientCount(), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebSocketPing(t *testing.T) {
	news, prices := appleFixture()
	ts := httptest.NewServer(testServer(t, news, prices).Router())
	defer ts.Close()

	conn := dialWS(t, ts)
	if err := conn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
		t.Fatal(err)
	}
	if msg := readWS(t, conn); msg.Type != "pong" {
		t.Errorf("type = %q, want pong", msg.Type)
	}

	if err := conn.WriteJSON(map[string]string{"type": "dance"}); err != nil {
		t.Fatal(err)
	}
	if msg := readWS(t, conn); msg.Type != "error" {
		t.Errorf("type = %q, want error", msg.Type)
	}
}

func TestWebSocketBroadcastsAnalysisEvents(t *testing.T) {
	news, prices := appleFixture()
	srv := testServer(t, news, prices)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	conn := dialWS(t, ts)
	waitForClients(t, srv.Hub(), 1)

	if rec := do(t, srv, http.MethodPost, "/api/v1/analyze", `{"ticker":"AAPL"}`); rec.Code != http.StatusOK {
		t.Fatalf("analyze status %d", rec.Code)
	}

	seen := map[string]bool{}
	for i := 0; i < 4; i++ {
		msg := readWS(t, conn)
		seen[msg.Type] = true
	}
	for _, typ := range []string{dashboard.EventStarted, dashboard.EventNewsFetched, dashboard.EventPricesFetched, dashboard.EventComplete} {
		if !seen[typ] {
			t.Errorf("missing event %s (got %v)", typ, seen)
		}
	}
}

func TestWebSocketAnalyze(t *testing.T) {
	news, prices := appleFixture()
	ts := httptest.NewServer(testServer(t, news, prices).Router())
	defer ts.Close()

	conn := dialWS(t, ts)
	err := conn.WriteJSON(map[string]interface{}{
		"type": "analyze",
		"data": map[string]interface{}{"ticker": "AAPL", "lookback_days": 2},
	})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 6; i++ {
		msg := readWS(t, conn)
		if msg.Type != "analysis_result" {
			continue
		}
		data := msg.Data.(map[string]interface{})
		advisory := data["advisory"].(map[string]interface{})
		if advisory["label"] != models.AdviceBuy {
			t.Errorf("label = %v", advisory["label"])
		}
		return
	}
	t.Error("no analysis_result received")
}

func TestWebSocketAnalyzeRejectsLookback(t *testing.T) {
	news, prices := appleFixture()
	ts := httptest.NewServer(testServer(t, news, prices).Router())
	defer ts.Close()

	conn := dialWS(t, ts)
	for _, days := range []int{-1, MaxLookbackDays + 1, 100000} {
		err := conn.WriteJSON(map[string]interface{}{
			"type": "analyze",
			"data": map[string]interface{}{"ticker": "AAPL", "lookback_days": days},
		})
		if err != nil {
			t.Fatal(err)
		}
		msg := readWS(t, conn)
		if msg.Type != "error" {
			t.Fatalf("days %d: type = %q, want error", days, msg.Type)
		}
		if text, _ := msg.Data.(string); !strings.Contains(text, "lookback_days") {
			t.Errorf("days %d: error = %v", days, msg.Data)
		}
	}
	if got := prices.windows(); len(got) != 0 {
		t.Errorf("prices fetched with %v", got)
	}
}

func TestWSHubStopsOnCancel(t *testing.T) {
	hub := NewWSHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	client := newWSClient(hub)
	if !hub.Register(client) {
		t.Fatal("Register failed on a running hub")
	}
	waitForClients(t, hub, 1)

	cancel()
	select {
	case <-client.closed:
	case <-time.After(5 * time.Second):
		t.Fatal("client not closed when the hub stopped")
	}
	<-hub.done
	if hub.Register(newWSClient(hub)) {
		t.Error("Register should fail after the hub stopped")
	}
}

func TestWSHubDropsSlowClient(t *testing.T) {
	hub := NewWSHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	client := newWSClient(hub)
	hub.Register(client)
	waitForClients(t, hub, 1)

	// Nobody drains client.send, so it overflows.
	for i := 0; i < sendBuffer+1; i++ {
		hub.Broadcast(WSMessage{Type: "tick"})
	}
	waitForClients(t, hub, 0)

	if client.trySend(WSMessage{Type: "late"}) {
		t.Error("trySend should fail on a closed client")
	}
}
