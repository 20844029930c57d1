package models

// CandlePoint is one candlestick of the price row.
type CandlePoint struct {
	Date  string  `json:"date"` // "2006-01-02"
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// SentimentPoint is the mean sentiment of one calendar day.
type SentimentPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// ChartRow is one panel of the two-row chart.
type ChartRow struct {
	Title  string  `json:"title"`
	Kind   string  `json:"kind"` // "candlestick" or "lines+markers"
	Name   string  `json:"name"` // legend entry
	Height float64 `json:"height"`
}

// ChartSpec describes the combined price/sentiment chart. It carries data
// only; rendering is left to the caller.
type ChartSpec struct {
	Title       string           `json:"title"`
	Height      int              `json:"height"`
	ShowLegend  bool             `json:"show_legend"`
	RangeSlider bool             `json:"range_slider"`
	PriceRow    ChartRow         `json:"price_row"`
	Candles     []CandlePoint    `json:"candles"`
	SentRow     ChartRow         `json:"sentiment_row"`
	Sentiment   []SentimentPoint `json:"sentiment"`
	MarkerSize  int              `json:"marker_size"`
}
