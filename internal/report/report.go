package report

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/seenimoa/stocksentiment/pkg/models"
	"github.com/seenimoa/stocksentiment/pkg/utils"
)

// Notices shown in place of missing sections.
const (
	NoticeNoChart     = "Insufficient data for visualization."
	NoticeNoHeadlines = "No headlines available for the selected period."
	ErrorPrefix       = "Analysis error: "
)

// ════════════════════════════════════════════════════════════════════
// Page data, flattened for template rendering
// ════════════════════════════════════════════════════════════════════

// PageData is the model passed to the dashboard template.
type PageData struct {
	// Sidebar
	Sectors      []string
	Sector       string
	Companies    []models.Company
	Selected     string
	LookbackDays int
	NeedsKey     bool

	// Header
	Title        string
	GeneratedAt  string
	MarketStatus string

	// Result
	Error    string
	Analysis *models.Analysis
	ChartSVG template.HTML
	GaugeSVG template.HTML
	Sources  []models.SourceStatus
}

// NewPageData fills the derived fields of a page for a (possibly nil) analysis.
func NewPageData(a *models.Analysis, now time.Time) PageData {
	d := PageData{
		Title:        "Stock Sentiment Dashboard",
		GeneratedAt:  ReportTimestamp(now),
		MarketStatus: utils.MarketStatus(now),
		LookbackDays: 2,
		Analysis:     a,
	}
	if a == nil {
		return d
	}
	d.Selected = a.Company.Ticker
	d.LookbackDays = a.LookbackDays
	d.Sources = []models.SourceStatus{a.News, a.Prices}
	if a.Chart != nil {
		d.ChartSVG = template.HTML(RenderSVG(a.Chart, DefaultChartConfig()))
	}
	if a.Advisory.Label != models.AdviceNone {
		d.GaugeSVG = template.HTML(SentimentGauge(a.Advisory.AvgSentiment, a.Advisory.Color, "Average Sentiment", 200))
	}
	return d
}

var (
	pageOnce sync.Once
	pageTmpl *template.Template
	pageErr  error
)

func pageTemplate() (*template.Template, error) {
	pageOnce.Do(func() {
		pageTmpl, pageErr = template.New("dashboard").Funcs(template.FuncMap{
			"score": utils.FormatScore,
			"degraded": func(s models.SourceStatus) bool {
				return s.Degraded()
			},
		}).Parse(DashboardTemplate)
	})
	return pageTmpl, pageErr
}

// RenderPage writes the dashboard page for d to w.
func RenderPage(w io.Writer, d PageData) error {
	tmpl, err := pageTemplate()
	if err != nil {
		return fmt.Errorf("parsing template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, d); err != nil {
		return fmt.Errorf("executing template: %w", err)
	}
	_, err = buf.WriteTo(w)
	return err
}

// GenerateHTML renders a standalone page for one analysis.
func GenerateHTML(a *models.Analysis, now time.Time) (string, error) {
	if a == nil {
		return "", fmt.Errorf("analysis is nil")
	}
	var buf bytes.Buffer
	if err := RenderPage(&buf, NewPageData(a, now)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ════════════════════════════════════════════════════════════════════
// Plain-text renderer
// ════════════════════════════════════════════════════════════════════

// GenerateText renders an analysis as plain text (terminal / MCP friendly).
func GenerateText(a *models.Analysis) string {
	if a == nil {
		return ""
	}
	var sb strings.Builder
	line := strings.Repeat("═", 60)
	thinLine := strings.Repeat("─", 60)

	sb.WriteString(line + "\n")
	sb.WriteString(fmt.Sprintf("  %s (%s) | %s\n", a.Company.Name, a.Company.Ticker, a.Company.Sector))
	sb.WriteString(fmt.Sprintf("  Lookback: %d days | Run: %s\n", a.LookbackDays, a.RunID))
	sb.WriteString(line + "\n\n")

	sb.WriteString(fmt.Sprintf("  ★ %s\n", a.Advisory.Label))
	sb.WriteString(thinLine + "\n")

	perf := a.Metrics.Performance
	if perf == "" {
		perf = "-"
	}
	sb.WriteString(fmt.Sprintf("  %-20s %s\n", "Average Sentiment", a.Metrics.AvgSentiment))
	sb.WriteString(fmt.Sprintf("  %-20s %s\n", "Headlines Analyzed", a.Metrics.HeadlinesAnalyzed))
	sb.WriteString(fmt.Sprintf("  %-20s %s\n", "Stock Performance", perf))
	sb.WriteString(thinLine + "\n")

	for _, s := range []models.SourceStatus{a.News, a.Prices} {
		if s.Degraded() {
			sb.WriteString(fmt.Sprintf("  ! %s: %s %s\n", s.Source, s.State, s.Message))
		}
	}

	if a.ChartNotice != "" {
		sb.WriteString(fmt.Sprintf("\n  %s\n", a.ChartNotice))
	} else if a.Chart != nil {
		sb.WriteString("\n  ■ DAILY SENTIMENT\n")
		for _, p := range a.Chart.Sentiment {
			sb.WriteString(fmt.Sprintf("    %s  %+.2f\n", p.Date, p.Value))
		}
	}

	sb.WriteString("\n  ■ HEADLINES\n")
	if a.HeadlineNotice != "" {
		sb.WriteString(fmt.Sprintf("  %s\n", a.HeadlineNotice))
	}
	for _, r := range a.Table {
		sb.WriteString(fmt.Sprintf("    %s  %+.2f  %s\n", r.Date, r.Sentiment, r.Headline))
	}

	sb.WriteString("\n" + line + "\n")
	sb.WriteString("  Not financial advice.\n")
	sb.WriteString(line + "\n")
	return sb.String()
}

// ════════════════════════════════════════════════════════════════════
// Utility: Timestamp
// ════════════════════════════════════════════════════════════════════

// ReportTimestamp formats t in US Eastern time for page headers.
func ReportTimestamp(t time.Time) string {
	return t.In(utils.ET).Format("02 Jan 2006, 03:04 PM MST")
}

// FormatDuration formats a duration for display.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}
