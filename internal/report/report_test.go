package report

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/seenimoa/stocksentiment/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Test Helpers
// ════════════════════════════════════════════════════════════════════

var day1 = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func sampleBars(closes ...float64) []models.PriceBar {
	bars := make([]models.PriceBar, len(closes))
	for i, c := range closes {
		open := c - 1
		bars[i] = models.PriceBar{
			Date:  day1.AddDate(0, 0, i),
			Open:  open,
			High:  math.Max(open, c) + 2,
			Low:   math.Min(open, c) - 2,
			Close: c,
		}
	}
	return bars
}

func headline(ts time.Time, s float64) models.Headline {
	return models.Headline{Timestamp: ts, Text: "headline", Sentiment: s}
}

func sampleAnalysis() *models.Analysis {
	bars := sampleBars(150, 145)
	records := []models.Headline{
		headline(day1.Add(14*time.Hour), 0.3),
		headline(day1.Add(38*time.Hour), 0.1),
	}
	spec, _ := BuildChart(bars, records, "Apple Inc")
	return &models.Analysis{
		RunID:        "run-1",
		Company:      models.Company{Name: "Apple Inc", Ticker: "AAPL", Sector: "Technology"},
		LookbackDays: 2,
		Advisory:     models.Advisory{Label: models.AdviceBuy, Color: models.ColorGreen, AvgSentiment: 0.2},
		Metrics:      models.Metrics{AvgSentiment: "0.20", HeadlinesAnalyzed: "2", Performance: "-3.3%"},
		News:         models.SourceStatus{Source: "NewsAPI", State: models.FetchOK, Count: 2},
		Prices:       models.SourceStatus{Source: "Yahoo Finance", State: models.FetchOK, Count: 2},
		Bars:         bars,
		Table: []models.HeadlineRow{
			{Date: "2024-05-02 14:00", Headline: "Apple <beats> estimates", Sentiment: 0.1},
			{Date: "2024-05-01 14:00", Headline: "Apple rallies", Sentiment: 0.3},
		},
		Chart: spec,
	}
}

// ════════════════════════════════════════════════════════════════════
// BuildChart / DailySentiment
// ════════════════════════════════════════════════════════════════════

func TestBuildChartAbsentWithoutBars(t *testing.T) {
	spec, ok := BuildChart(nil, []models.Headline{headline(day1, 0.5)}, "Apple Inc")
	if ok || spec != nil {
		t.Fatalf("BuildChart(no bars) = %v, %v; want nil, false", spec, ok)
	}
}

func TestBuildChartLayout(t *testing.T) {
	spec, ok := BuildChart(sampleBars(100, 110), nil, "Apple Inc")
	if !ok {
		t.Fatal("BuildChart returned false for non-empty bars")
	}
	if spec.Title != "Apple Inc Market Analysis Dashboard" {
		t.Errorf("Title = %q", spec.Title)
	}
	if spec.PriceRow.Title != "Apple Inc Stock Price" || spec.PriceRow.Name != "Stock Price" || spec.PriceRow.Kind != "candlestick" {
		t.Errorf("PriceRow = %+v", spec.PriceRow)
	}
	if spec.SentRow.Title != "Sentiment Analysis" || spec.SentRow.Name != "Daily Sentiment" || spec.SentRow.Kind != "lines+markers" {
		t.Errorf("SentRow = %+v", spec.SentRow)
	}
	if spec.Height != 800 || spec.PriceRow.Height != 0.7 || spec.SentRow.Height != 0.3 {
		t.Errorf("heights = %d / %v / %v", spec.Height, spec.PriceRow.Height, spec.SentRow.Height)
	}
	if spec.RangeSlider || !spec.ShowLegend || spec.MarkerSize != 8 {
		t.Errorf("RangeSlider=%v ShowLegend=%v MarkerSize=%d", spec.RangeSlider, spec.ShowLegend, spec.MarkerSize)
	}
	if len(spec.Candles) != 2 || spec.Candles[0].Date != "2024-05-01" || spec.Candles[1].Close != 110 {
		t.Errorf("Candles = %+v", spec.Candles)
	}
	if len(spec.Sentiment) != 0 {
		t.Errorf("Sentiment row should be empty without headlines, got %+v", spec.Sentiment)
	}
}

func TestDailySentimentAggregation(t *testing.T) {
	day2 := day1.AddDate(0, 0, 1)
	records := []models.Headline{
		headline(day2.Add(9*time.Hour), 0.6),
		headline(day1.Add(8*time.Hour), 0.2),
		headline(day1.Add(20*time.Hour), -0.4),
	}

	points := DailySentiment(records)
	if len(points) != 2 {
		t.Fatalf("got %d points, want 2", len(points))
	}
	if points[0].Date != "2024-05-01" || math.Abs(points[0].Value-(-0.1)) > 1e-9 {
		t.Errorf("day1 = %+v, want 2024-05-01 / -0.1", points[0])
	}
	if points[1].Date != "2024-05-02" || math.Abs(points[1].Value-0.6) > 1e-9 {
		t.Errorf("day2 = %+v, want 2024-05-02 / 0.6", points[1])
	}
}

func TestDailySentimentUsesUTCDay(t *testing.T) {
	ny := time.FixedZone("EDT", -4*60*60)
	// 22:00 EDT on 1 May is 02:00 UTC on 2 May.
	points := DailySentiment([]models.Headline{headline(time.Date(2024, 5, 1, 22, 0, 0, 0, ny), 0.5)})
	if len(points) != 1 || points[0].Date != "2024-05-02" {
		t.Errorf("points = %+v", points)
	}
}

func TestDailySentimentEmpty(t *testing.T) {
	if points := DailySentiment(nil); len(points) != 0 {
		t.Errorf("DailySentiment(nil) = %+v", points)
	}
}

// ════════════════════════════════════════════════════════════════════
// SVG rendering
// ════════════════════════════════════════════════════════════════════

func TestRenderSVG(t *testing.T) {
	a := sampleAnalysis()
	svg := RenderSVG(a.Chart, DefaultChartConfig())

	if !strings.HasPrefix(svg, "<svg") || !strings.HasSuffix(svg, "</svg>") {
		t.Fatal("output is not an SVG document")
	}
	for _, want := range []string{"Apple Inc Market Analysis Dashboard", "Apple Inc Stock Price", "Sentiment Analysis", "Daily Sentiment", "Stock Price"} {
		if !strings.Contains(svg, want) {
			t.Errorf("SVG missing %q", want)
		}
	}
	if got := strings.Count(svg, `class="candle"`); got != 2 {
		t.Errorf("candles drawn = %d, want 2", got)
	}
	if got := strings.Count(svg, `class="marker"`); got != 2 {
		t.Errorf("markers drawn = %d, want 2", got)
	}
	if !strings.Contains(svg, bullColor) || strings.Contains(svg, bearColor) {
		t.Error("rising candles should all use the bull colour")
	}
}

func TestRenderSVGBearCandle(t *testing.T) {
	bars := sampleBars(100)
	bars[0].Open, bars[0].Close = 105, 100
	spec, _ := BuildChart(bars, nil, "X")
	if svg := RenderSVG(spec, DefaultChartConfig()); !strings.Contains(svg, bearColor) {
		t.Error("falling candle should use the bear colour")
	}
}

func TestRenderSVGNoSentiment(t *testing.T) {
	spec, _ := BuildChart(sampleBars(100, 101, 102), nil, "X")
	svg := RenderSVG(spec, ChartConfig{})
	if !strings.Contains(svg, "No sentiment data") {
		t.Error("empty sentiment row should show a placeholder")
	}
	if strings.Count(svg, `class="candle"`) != 3 {
		t.Error("expected 3 candles")
	}
}

func TestRenderSVGNil(t *testing.T) {
	svg := RenderSVG(nil, ChartConfig{})
	if !strings.Contains(svg, NoticeNoChart) {
		t.Errorf("nil spec placeholder = %q", svg)
	}
}

func TestRenderSVGDoesNotMutateSpec(t *testing.T) {
	spec, _ := BuildChart(sampleBars(100, 110), []models.Headline{headline(day1, 0.4)}, "X")
	before := *spec
	beforeCandles := append([]models.CandlePoint(nil), spec.Candles...)
	_ = RenderSVG(spec, DefaultChartConfig())
	if spec.Title != before.Title || len(spec.Candles) != len(beforeCandles) || spec.Candles[0] != beforeCandles[0] {
		t.Error("RenderSVG mutated the spec")
	}
}

func TestEscapeXML(t *testing.T) {
	if got := escapeXML(`AT&T <"x">`); got != "AT&amp;T &lt;&quot;x&quot;&gt;" {
		t.Errorf("escapeXML = %q", got)
	}
}

func TestSentimentGauge(t *testing.T) {
	svg := SentimentGauge(0.2, models.ColorGreen, "Average Sentiment", 0)
	if !strings.Contains(svg, "0.20") || !strings.Contains(svg, "#16a34a") {
		t.Errorf("gauge missing value or colour: %s", svg)
	}
	// Out-of-range values are clamped.
	if svg := SentimentGauge(5, models.ColorGray, "x", 100); !strings.Contains(svg, "1.00") {
		t.Error("gauge value not clamped")
	}
}

// ════════════════════════════════════════════════════════════════════
// Page / text reports
// ════════════════════════════════════════════════════════════════════

func TestRenderPageWithAnalysis(t *testing.T) {
	d := NewPageData(sampleAnalysis(), time.Date(2024, 5, 3, 15, 0, 0, 0, time.UTC))
	d.Sectors = []string{"Technology"}
	d.Companies = []models.Company{{Name: "Apple Inc", Ticker: "AAPL", Sector: "Technology"}}

	var buf bytes.Buffer
	if err := RenderPage(&buf, d); err != nil {
		t.Fatalf("RenderPage: %v", err)
	}

	doc, err := goquery.NewDocumentFromReader(&buf)
	if err != nil {
		t.Fatalf("parse page: %v", err)
	}
	if got := strings.TrimSpace(doc.Find(".advice").Text()); got != "BUYING ADVISED" {
		t.Errorf("advice = %q", got)
	}
	if !doc.Find(".advice").HasClass("advice-green") {
		t.Error("advice should carry the green class")
	}
	var metrics []string
	doc.Find(".metric-value").Each(func(_ int, s *goquery.Selection) {
		metrics = append(metrics, s.Text())
	})
	if strings.Join(metrics, "|") != "0.20|2|-3.3%" {
		t.Errorf("metrics = %v", metrics)
	}
	if doc.Find(".chart svg").Length() == 0 {
		t.Error("chart SVG not embedded")
	}
	rows := doc.Find(".headlines tbody tr")
	if rows.Length() != 2 {
		t.Fatalf("table rows = %d, want 2", rows.Length())
	}
	if got := rows.First().Find("td").Eq(1).Text(); got != "Apple <beats> estimates" {
		t.Errorf("headline cell = %q", got)
	}
	if got := doc.Find("#ticker option[selected]").AttrOr("value", ""); got != "AAPL" {
		t.Errorf("selected ticker = %q", got)
	}
	if doc.Find(".key-prompt").Length() != 0 {
		t.Error("key prompt shown although NeedsKey is false")
	}
}

func TestRenderPageNotices(t *testing.T) {
	a := sampleAnalysis()
	a.Chart = nil
	a.ChartNotice = NoticeNoChart
	a.Table = nil
	a.HeadlineNotice = NoticeNoHeadlines
	a.Metrics.Performance = ""
	a.News = models.SourceStatus{Source: "NewsAPI", State: models.FetchCredentialMissing}

	d := NewPageData(a, time.Now())
	d.NeedsKey = true

	var buf bytes.Buffer
	if err := RenderPage(&buf, d); err != nil {
		t.Fatalf("RenderPage: %v", err)
	}
	doc, err := goquery.NewDocumentFromReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(doc.Find(".chart .warning").Text()); got != NoticeNoChart {
		t.Errorf("chart notice = %q", got)
	}
	if got := strings.TrimSpace(doc.Find(".headlines .info").Text()); got != NoticeNoHeadlines {
		t.Errorf("headline notice = %q", got)
	}
	if doc.Find(".metric").Length() != 2 {
		t.Errorf("performance metric should be omitted, got %d metrics", doc.Find(".metric").Length())
	}
	if doc.Find(".key-prompt").Length() != 1 {
		t.Error("key prompt missing")
	}
	if !strings.Contains(doc.Find(".warning").First().Text(), "credential_missing") {
		t.Error("degraded source not reported")
	}
}

func TestRenderPageError(t *testing.T) {
	d := NewPageData(nil, time.Now())
	d.Error = ErrorPrefix + "boom"

	var buf bytes.Buffer
	if err := RenderPage(&buf, d); err != nil {
		t.Fatalf("RenderPage: %v", err)
	}
	if !strings.Contains(buf.String(), "Analysis error: boom") {
		t.Error("error message not rendered")
	}
}

func TestGenerateHTMLNil(t *testing.T) {
	if _, err := GenerateHTML(nil, time.Now()); err == nil {
		t.Error("expected error for nil analysis")
	}
}

func TestGenerateText(t *testing.T) {
	out := GenerateText(sampleAnalysis())
	for _, want := range []string{"Apple Inc (AAPL)", "BUYING ADVISED", "0.20", "-3.3%", "Apple rallies", "2024-05-01  +0.30"} {
		if !strings.Contains(out, want) {
			t.Errorf("text report missing %q", want)
		}
	}
	if GenerateText(nil) != "" {
		t.Error("GenerateText(nil) should be empty")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.5s"},
		{90 * time.Second, "1.5m"},
		{90 * time.Minute, "1.5h"},
	}
	for _, tc := range tests {
		if got := FormatDuration(tc.d); got != tc.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}
