// Package report renders analysis results: the two-row price/sentiment
// chart as SVG, and the dashboard page and plain-text report built
// around it.
package report

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/seenimoa/stocksentiment/pkg/models"
	"github.com/seenimoa/stocksentiment/pkg/utils"
)

// ════════════════════════════════════════════════════════════════════
// SVG Chart Renderer
// ════════════════════════════════════════════════════════════════════

// ChartConfig holds rendering parameters for SVG charts.
type ChartConfig struct {
	Width        int    // SVG width in pixels (default: 1000)
	Height       int    // SVG height in pixels (default: spec height, else 800)
	MarginTop    int    // top margin, holds the title and legend (default: 60)
	MarginRight  int    // right margin (default: 40)
	MarginBottom int    // bottom margin (default: 50)
	MarginLeft   int    // left margin (default: 80)
	PanelGap     int    // vertical space between the two rows (default: 60)
	BgColor      string // background color (default: "#ffffff")
	GridColor    string // grid line color (default: "#e8e8e8")
	TextColor    string // axis label color (default: "#333333")
	FontSize     int    // axis label font size (default: 11)
}

// DefaultChartConfig returns sensible defaults for chart rendering.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Width:        1000,
		Height:       ChartHeight,
		MarginTop:    60,
		MarginRight:  40,
		MarginBottom: 50,
		MarginLeft:   80,
		PanelGap:     60,
		BgColor:      "#ffffff",
		GridColor:    "#e8e8e8",
		TextColor:    "#333333",
		FontSize:     11,
	}
}

// Series colours.
const (
	bullColor = "#26a69a"
	bearColor = "#ef5350"
	sentColor = "#2196f3"
)

// panel is a rectangular drawing area.
type panel struct {
	x, y, w, h int
}

// panels splits the plot area into the price and sentiment rows using the
// spec's relative row heights.
func (c ChartConfig) panels(spec *models.ChartSpec) (price, sent panel) {
	x := c.MarginLeft
	w := c.Width - c.MarginLeft - c.MarginRight
	avail := c.Height - c.MarginTop - c.MarginBottom - c.PanelGap

	pr, sr := spec.PriceRow.Height, spec.SentRow.Height
	if pr <= 0 || sr <= 0 {
		pr, sr = PriceRowHeight, SentRowHeight
	}
	ph := int(float64(avail) * pr / (pr + sr))

	price = panel{x: x, y: c.MarginTop, w: w, h: ph}
	sent = panel{x: x, y: c.MarginTop + ph + c.PanelGap, w: w, h: avail - ph}
	return price, sent
}

// RenderSVG draws spec as a two-panel SVG: candlesticks on top, daily
// sentiment below, sharing one date axis. A nil spec renders a placeholder.
func RenderSVG(spec *models.ChartSpec, cfg ChartConfig) string {
	if cfg.Width == 0 {
		cfg = DefaultChartConfig()
		if spec != nil && spec.Height > 0 {
			cfg.Height = spec.Height
		}
	}
	if spec == nil || len(spec.Candles) == 0 {
		return emptySVG(cfg, "Insufficient data for visualization.")
	}

	dates := axisDates(spec)
	price, sent := cfg.panels(spec)

	var sb strings.Builder
	sb.WriteString(svgHeader(cfg))

	// Background
	sb.WriteString(fmt.Sprintf(`<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`,
		cfg.Width, cfg.Height, cfg.BgColor))

	// Title
	sb.WriteString(fmt.Sprintf(`<text x="%d" y="24" font-size="16" font-weight="bold" fill="%s" text-anchor="middle">%s</text>`,
		cfg.Width/2, cfg.TextColor, escapeXML(spec.Title)))

	if spec.ShowLegend {
		writeLegend(&sb, cfg, spec)
	}

	writeCandles(&sb, cfg, price, spec.PriceRow.Title, spec.Candles, dates)
	writeSentiment(&sb, cfg, sent, spec.SentRow.Title, spec.Sentiment, dates, spec.MarkerSize)
	writeDateAxis(&sb, cfg, sent, dates)

	sb.WriteString("</svg>")
	return sb.String()
}

// axisDates is the sorted union of candle and sentiment dates.
func axisDates(spec *models.ChartSpec) []string {
	seen := make(map[string]bool)
	var dates []string
	add := func(d string) {
		if !seen[d] {
			seen[d] = true
			dates = append(dates, d)
		}
	}
	for _, c := range spec.Candles {
		add(c.Date)
	}
	for _, p := range spec.Sentiment {
		add(p.Date)
	}
	// Dates are YYYY-MM-DD, so lexical order is chronological.
	sort.Strings(dates)
	return dates
}

// slotX returns the horizontal centre of the i-th of n date slots.
func slotX(p panel, i, n int) float64 {
	slot := float64(p.w) / float64(n)
	return float64(p.x) + float64(i)*slot + slot/2
}

func indexOf(dates []string, d string) int {
	for i, v := range dates {
		if v == d {
			return i
		}
	}
	return -1
}

// ════════════════════════════════════════════════════════════════════
// Candlestick Row
// ════════════════════════════════════════════════════════════════════

func writeCandles(sb *strings.Builder, cfg ChartConfig, p panel, title string, candles []models.CandlePoint, dates []string) {
	writePanelTitle(sb, cfg, p, title)

	// Compute price range
	minPrice, maxPrice := candles[0].Low, candles[0].High
	for _, c := range candles {
		minPrice = math.Min(minPrice, c.Low)
		maxPrice = math.Max(maxPrice, c.High)
	}
	// Add 5% padding
	priceRange := maxPrice - minPrice
	if priceRange < 0.01 {
		priceRange = 1
	}
	minPrice -= priceRange * 0.05
	maxPrice += priceRange * 0.05
	priceRange = maxPrice - minPrice

	priceToY := func(v float64) float64 {
		return float64(p.y+p.h) - (v-minPrice)/priceRange*float64(p.h)
	}

	// Y-axis grid lines and labels (price)
	gridLines := 6
	for i := 0; i <= gridLines; i++ {
		v := minPrice + priceRange*float64(i)/float64(gridLines)
		y := priceToY(v)
		sb.WriteString(fmt.Sprintf(`<line x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="%s" stroke-dasharray="3,3"/>`,
			p.x, y, p.x+p.w, y, cfg.GridColor))
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="%.1f" font-size="%d" fill="%s" text-anchor="end">%s</text>`,
			p.x-5, y+4, cfg.FontSize, cfg.TextColor, utils.FormatUSD(v)))
	}

	n := len(dates)
	bodyWidth := math.Min(float64(p.w)/float64(n)*0.6, 40)

	for _, c := range candles {
		cx := slotX(p, indexOf(dates, c.Date), n)

		color := bullColor
		if c.Close < c.Open {
			color = bearColor
		}

		// Wick (high to low)
		sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="1"/>`,
			cx, priceToY(c.High), cx, priceToY(c.Low), color))

		// Body (open to close)
		top := math.Min(priceToY(c.Open), priceToY(c.Close))
		bodyH := math.Abs(priceToY(c.Open) - priceToY(c.Close))
		if bodyH < 1 {
			bodyH = 1
		}
		sb.WriteString(fmt.Sprintf(`<rect class="candle" x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"><title>%s O %.2f H %.2f L %.2f C %.2f</title></rect>`,
			cx-bodyWidth/2, top, bodyWidth, bodyH, color, c.Date, c.Open, c.High, c.Low, c.Close))
	}
}

// ════════════════════════════════════════════════════════════════════
// Sentiment Row (lines + markers)
// ════════════════════════════════════════════════════════════════════

func writeSentiment(sb *strings.Builder, cfg ChartConfig, p panel, title string, points []models.SentimentPoint, dates []string, markerSize int) {
	writePanelTitle(sb, cfg, p, title)

	sb.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="%d" height="%d" fill="none" stroke="%s"/>`,
		p.x, p.y, p.w, p.h, cfg.GridColor))

	if len(points) == 0 {
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="%d" font-size="%d" fill="#999" text-anchor="middle">No sentiment data</text>`,
			p.x+p.w/2, p.y+p.h/2, cfg.FontSize+1))
		return
	}

	// Range always includes zero so the baseline is visible.
	minVal, maxVal := 0.0, 0.0
	for _, pt := range points {
		minVal = math.Min(minVal, pt.Value)
		maxVal = math.Max(maxVal, pt.Value)
	}
	vRange := maxVal - minVal
	if vRange < 0.001 {
		vRange = 1
	}
	minVal -= vRange * 0.1
	maxVal += vRange * 0.1
	vRange = maxVal - minVal

	valToY := func(v float64) float64 {
		return float64(p.y+p.h) - (v-minVal)/vRange*float64(p.h)
	}

	// Y-axis grid
	gridLines := 4
	for i := 0; i <= gridLines; i++ {
		v := minVal + vRange*float64(i)/float64(gridLines)
		y := valToY(v)
		sb.WriteString(fmt.Sprintf(`<line x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="%s" stroke-dasharray="3,3"/>`,
			p.x, y, p.x+p.w, y, cfg.GridColor))
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="%.1f" font-size="%d" fill="%s" text-anchor="end">%.2f</text>`,
			p.x-5, y+4, cfg.FontSize, cfg.TextColor, v))
	}

	// Zero baseline
	zeroY := valToY(0)
	sb.WriteString(fmt.Sprintf(`<line x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="#999" stroke-width="1"/>`,
		p.x, zeroY, p.x+p.w, zeroY))

	n := len(dates)
	var pathParts []string
	for _, pt := range points {
		cx := slotX(p, indexOf(dates, pt.Date), n)
		cmd := "L"
		if len(pathParts) == 0 {
			cmd = "M"
		}
		pathParts = append(pathParts, fmt.Sprintf("%s%.1f,%.1f", cmd, cx, valToY(pt.Value)))
	}
	if len(pathParts) > 1 {
		sb.WriteString(fmt.Sprintf(`<path d="%s" fill="none" stroke="%s" stroke-width="2"/>`,
			strings.Join(pathParts, " "), sentColor))
	}

	r := float64(markerSize) / 2
	if r <= 0 {
		r = 4
	}
	for _, pt := range points {
		cx := slotX(p, indexOf(dates, pt.Date), n)
		sb.WriteString(fmt.Sprintf(`<circle class="marker" cx="%.1f" cy="%.1f" r="%.1f" fill="%s"><title>%s %.2f</title></circle>`,
			cx, valToY(pt.Value), r, sentColor, pt.Date, pt.Value))
	}
}

// ════════════════════════════════════════════════════════════════════
// Shared decorations
// ════════════════════════════════════════════════════════════════════

func writePanelTitle(sb *strings.Builder, cfg ChartConfig, p panel, title string) {
	sb.WriteString(fmt.Sprintf(`<text x="%d" y="%d" font-size="13" font-weight="bold" fill="%s" text-anchor="middle">%s</text>`,
		p.x+p.w/2, p.y-10, cfg.TextColor, escapeXML(title)))
}

func writeLegend(sb *strings.Builder, cfg ChartConfig, spec *models.ChartSpec) {
	x := cfg.Width - cfg.MarginRight - 150
	entries := []struct{ name, color string }{
		{spec.PriceRow.Name, bullColor},
		{spec.SentRow.Name, sentColor},
	}
	for i, e := range entries {
		ly := 18 + i*16
		sb.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-width="3"/>`,
			x, ly, x+20, ly, e.color))
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="%d" font-size="10" fill="%s">%s</text>`,
			x+25, ly+4, cfg.TextColor, escapeXML(e.name)))
	}
}

func writeDateAxis(sb *strings.Builder, cfg ChartConfig, p panel, dates []string) {
	n := len(dates)
	interval := n / 8
	if interval < 1 {
		interval = 1
	}
	for i := 0; i < n; i += interval {
		cx := slotX(p, i, n)
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%d" font-size="%d" fill="%s" text-anchor="middle">%s</text>`,
			cx, p.y+p.h+18, cfg.FontSize-1, cfg.TextColor, escapeXML(dates[i])))
	}
}

// ════════════════════════════════════════════════════════════════════
// Gauge (average sentiment)
// ════════════════════════════════════════════════════════════════════

// SentimentGauge draws a semicircular gauge for an average sentiment in
// [-1, 1], coloured with the advisory colour.
func SentimentGauge(avg float64, color, label string, width int) string {
	if width == 0 {
		width = 200
	}
	height := width/2 + 30

	cx := float64(width) / 2
	cy := float64(width)/2 - 10
	radius := float64(width)/2 - 20

	avg = math.Max(-1, math.Min(1, avg))
	frac := (avg + 1) / 2

	// Angle: 180° (left, -1) to 0° (right, +1)
	angle := math.Pi - frac*math.Pi
	needleX := cx + radius*0.85*math.Cos(angle)
	needleY := cy - radius*0.85*math.Sin(angle)

	stroke := gaugeColor(color)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`, width, height, width, height))

	// Background arc
	sb.WriteString(fmt.Sprintf(`<path d="M%.1f,%.1f A%.1f,%.1f 0 0,1 %.1f,%.1f" fill="none" stroke="#e0e0e0" stroke-width="12" stroke-linecap="round"/>`,
		cx-radius, cy, radius, radius, cx+radius, cy))

	// Coloured arc up to the value
	endX := cx + radius*math.Cos(angle)
	endY := cy - radius*math.Sin(angle)
	sb.WriteString(fmt.Sprintf(`<path d="M%.1f,%.1f A%.1f,%.1f 0 0,1 %.1f,%.1f" fill="none" stroke="%s" stroke-width="12" stroke-linecap="round"/>`,
		cx-radius, cy, radius, radius, endX, endY, stroke))

	// Needle
	sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#333" stroke-width="2"/>`,
		cx, cy, needleX, needleY))
	sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="5" fill="#333"/>`, cx, cy))

	sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" font-size="20" font-weight="bold" fill="%s" text-anchor="middle">%.2f</text>`,
		cx, cy+25, stroke, avg))
	sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%d" font-size="11" fill="#666" text-anchor="middle">%s</text>`,
		cx, height-5, escapeXML(label)))

	sb.WriteString("</svg>")
	return sb.String()
}

func gaugeColor(advisoryColor string) string {
	switch advisoryColor {
	case models.ColorGreen:
		return "#16a34a"
	case models.ColorRed:
		return "#dc2626"
	case models.ColorOrange:
		return "#ea580c"
	default:
		return "#9ca3af"
	}
}

// ════════════════════════════════════════════════════════════════════
// SVG Helpers
// ════════════════════════════════════════════════════════════════════

func svgHeader(cfg ChartConfig) string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif">`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height)
}

func emptySVG(cfg ChartConfig, msg string) string {
	if cfg.Width == 0 {
		cfg.Width = 400
	}
	if cfg.Height == 0 {
		cfg.Height = 200
	}
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d"><rect width="%d" height="%d" fill="#f5f5f5"/><text x="%d" y="%d" text-anchor="middle" fill="#999" font-size="14">%s</text></svg>`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height, cfg.Width/2, cfg.Height/2, escapeXML(msg))
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	return s
}
