package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/seenimoa/stocksentiment/internal/config"
	"github.com/seenimoa/stocksentiment/pkg/models"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4")).Padding(0, 1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	valueStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	tickerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	gainStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8")).Padding(0, 1)
)

// adviceStyle maps an advisory colour to a terminal style.
func adviceStyle(color string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	switch color {
	case models.ColorGreen:
		return base.Foreground(lipgloss.Color("0")).Background(lipgloss.Color("10"))
	case models.ColorRed:
		return base.Foreground(lipgloss.Color("15")).Background(lipgloss.Color("9"))
	case models.ColorOrange:
		return base.Foreground(lipgloss.Color("0")).Background(lipgloss.Color("208"))
	default:
		return base.Foreground(lipgloss.Color("0")).Background(lipgloss.Color("250"))
	}
}

func scoreStyle(v float64) lipgloss.Style {
	switch {
	case v > 0:
		return gainStyle
	case v < 0:
		return lossStyle
	default:
		return dimStyle
	}
}

// renderAnalysis formats an analysis for the terminal.
func renderAnalysis(a *models.Analysis) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("%s (%s)", a.Company.Name, a.Company.Ticker)))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %s · last %d days", a.Company.Sector, a.LookbackDays)))
	b.WriteString("\n\n")
	b.WriteString(adviceStyle(a.Advisory.Color).Render(a.Advisory.Label))
	b.WriteString("\n\n")

	perf := a.Metrics.Performance
	if perf == "" {
		perf = "-"
	}
	metrics := []string{
		metric("Average Sentiment", a.Metrics.AvgSentiment),
		metric("Headlines Analyzed", a.Metrics.HeadlinesAnalyzed),
		metric("Stock Performance", perf),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, metrics...))
	b.WriteString("\n")

	for _, s := range []models.SourceStatus{a.News, a.Prices} {
		if s.Degraded() {
			msg := fmt.Sprintf("! %s: %s", s.Source, s.State)
			if s.Message != "" {
				msg += " (" + s.Message + ")"
			}
			b.WriteString(warnStyle.Render(msg) + "\n")
		}
	}
	if a.ChartNotice != "" {
		b.WriteString(warnStyle.Render(a.ChartNotice) + "\n")
	}

	b.WriteString("\n" + valueStyle.Render("Recent Headlines") + "\n")
	if len(a.Table) == 0 {
		b.WriteString(dimStyle.Render(a.HeadlineNotice) + "\n")
	}
	for _, r := range a.Table {
		b.WriteString(fmt.Sprintf("%s  %s  %s\n",
			dimStyle.Render(r.Date),
			scoreStyle(r.Sentiment).Render(fmt.Sprintf("%+.2f", r.Sentiment)),
			r.Headline))
	}
	return b.String()
}

func metric(label, value string) string {
	return boxStyle.Render(labelStyle.Render(label) + "\n" + valueStyle.Render(value))
}

// renderCompanies formats the catalog as aligned rows.
func renderCompanies(companies []models.Company) string {
	var b strings.Builder
	b.WriteString(dimStyle.Render(fmt.Sprintf("%-8s %-30s %s", "TICKER", "NAME", "SECTOR")) + "\n")
	for _, c := range companies {
		b.WriteString(tickerStyle.Render(fmt.Sprintf("%-8s", c.Ticker)))
		b.WriteString(fmt.Sprintf(" %-30s %s\n", c.Name, dimStyle.Render(c.Sector)))
	}
	return b.String()
}

// renderStatus formats the status report.
func renderStatus(rows [][2]string, keys []config.KeyStatus) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("stocksentiment · System Status") + "\n\n")
	for _, r := range rows {
		b.WriteString(labelStyle.Render(fmt.Sprintf("  %-16s", r[0])) + " " + r[1] + "\n")
	}

	b.WriteString("\n" + valueStyle.Render("  API Keys") + "\n")
	for _, k := range keys {
		status := lossStyle.Render("not set")
		if k.IsSet {
			status = gainStyle.Render(fmt.Sprintf("set (%s: %s)", k.Source, k.Masked))
		}
		b.WriteString(labelStyle.Render(fmt.Sprintf("  %-18s", k.Name)) + " " + status + "\n")
	}
	return b.String()
}
