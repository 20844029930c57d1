package report

import (
	"sort"

	"github.com/seenimoa/stocksentiment/pkg/models"
	"github.com/seenimoa/stocksentiment/pkg/utils"
)

// Layout of the combined chart.
const (
	ChartHeight      = 800
	PriceRowHeight   = 0.7
	SentRowHeight    = 0.3
	SentMarkerSize   = 8
	PriceSeriesName  = "Stock Price"
	SentSeriesName   = "Daily Sentiment"
	SentimentRowName = "Sentiment Analysis"
)

// BuildChart assembles the two-row price/sentiment chart. It returns
// false when there are no bars, in which case no chart is shown.
func BuildChart(bars []models.PriceBar, records []models.Headline, companyName string) (*models.ChartSpec, bool) {
	if len(bars) == 0 {
		return nil, false
	}

	candles := make([]models.CandlePoint, len(bars))
	for i, b := range bars {
		candles[i] = models.CandlePoint{
			Date:  utils.FormatDate(b.Date),
			Open:  b.Open,
			High:  b.High,
			Low:   b.Low,
			Close: b.Close,
		}
	}

	return &models.ChartSpec{
		Title:       companyName + " Market Analysis Dashboard",
		Height:      ChartHeight,
		ShowLegend:  true,
		RangeSlider: false,
		PriceRow: models.ChartRow{
			Title:  companyName + " Stock Price",
			Kind:   "candlestick",
			Name:   PriceSeriesName,
			Height: PriceRowHeight,
		},
		Candles: candles,
		SentRow: models.ChartRow{
			Title:  SentimentRowName,
			Kind:   "lines+markers",
			Name:   SentSeriesName,
			Height: SentRowHeight,
		},
		Sentiment:  DailySentiment(records),
		MarkerSize: SentMarkerSize,
	}, true
}

// DailySentiment groups records by UTC calendar day and returns the mean
// sentiment of each day in ascending date order.
func DailySentiment(records []models.Headline) []models.SentimentPoint {
	type acc struct {
		sum float64
		n   int
	}
	days := make(map[string]*acc)
	for _, r := range records {
		key := utils.FormatDate(r.Timestamp.UTC())
		a, ok := days[key]
		if !ok {
			a = &acc{}
			days[key] = a
		}
		a.sum += r.Sentiment
		a.n++
	}

	points := make([]models.SentimentPoint, 0, len(days))
	for day, a := range days {
		points = append(points, models.SentimentPoint{Date: day, Value: a.sum / float64(a.n)})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points
}
