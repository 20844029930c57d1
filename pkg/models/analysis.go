package models

import "time"

// Advisory labels.
const (
	AdviceBuy  = "BUYING ADVISED"
	AdviceSell = "SELLING ADVISED"
	AdviceHold = "HOLD POSITION"
	AdviceNone = "NO ADVICE"
)

// Advisory display colours.
const (
	ColorGreen  = "green"
	ColorRed    = "red"
	ColorOrange = "orange"
	ColorGray   = "gray"
)

// Advisory is the derived recommendation for one analysis run.
type Advisory struct {
	Label          string  `json:"label"`
	Color          string  `json:"color"`
	AvgSentiment   float64 `json:"avg_sentiment"`
	PriceChangePct float64 `json:"price_change_pct"` // reported only; not part of the decision
}

// FetchState classifies the outcome of one upstream fetch.
type FetchState string

const (
	FetchOK                FetchState = "ok"
	FetchEmpty             FetchState = "empty"
	FetchCredentialMissing FetchState = "credential_missing"
	FetchUpstreamFailure   FetchState = "upstream_failure"
)

// SourceStatus reports how a data source fared during an analysis.
type SourceStatus struct {
	Source  string     `json:"source"`
	State   FetchState `json:"state"`
	Count   int        `json:"count"`
	Message string     `json:"message,omitempty"`
}

// Degraded reports whether the source produced no usable data.
func (s SourceStatus) Degraded() bool {
	return s.State != FetchOK
}

// Metrics are the three summary figures shown above the chart.
// Performance is empty when fewer than two price bars exist.
type Metrics struct {
	AvgSentiment      string `json:"avg_sentiment"`
	HeadlinesAnalyzed string `json:"headlines_analyzed"`
	Performance       string `json:"performance,omitempty"`
}

// HeadlineRow is a display row of the headline table.
type HeadlineRow struct {
	Date      string  `json:"date"` // "2006-01-02 15:04"
	Headline  string  `json:"headline"`
	Sentiment float64 `json:"sentiment"`
}

// Analysis is the full result of one "Analyze" action.
type Analysis struct {
	RunID          string        `json:"run_id"`
	Company        Company       `json:"company"`
	LookbackDays   int           `json:"lookback_days"`
	Advisory       Advisory      `json:"advisory"`
	Metrics        Metrics       `json:"metrics"`
	News           SourceStatus  `json:"news"`
	Prices         SourceStatus  `json:"prices"`
	Headlines      []Headline    `json:"-"`
	Bars           []PriceBar    `json:"bars"`
	Table          []HeadlineRow `json:"headlines"`
	HeadlineNotice string        `json:"headline_notice,omitempty"`
	Chart          *ChartSpec    `json:"chart,omitempty"`
	ChartNotice    string        `json:"chart_notice,omitempty"`
	Started        time.Time     `json:"started"`
	Elapsed        time.Duration `json:"elapsed"`
}
