// Package advisory turns headline sentiment and price bars into a
// buy/sell/hold recommendation.
package advisory

import "github.com/seenimoa/stocksentiment/pkg/models"

// Decision thresholds on the mean headline sentiment. An average in
// [SellBelow, BuyAbove] is a hold.
const (
	BuyAbove  = 0.05
	SellBelow = 0.04
)

// Advise derives the advisory for one analysis. It needs at least one
// headline and two price bars; otherwise the result is NO ADVICE.
// The price change is reported but does not affect the label.
func Advise(records []models.Headline, bars []models.PriceBar) models.Advisory {
	if len(records) == 0 || len(bars) < 2 {
		return models.Advisory{Label: models.AdviceNone, Color: models.ColorGray}
	}

	avg := Mean(records)
	pct, _ := PricePerformance(bars)
	adv := models.Advisory{AvgSentiment: avg, PriceChangePct: pct}

	switch {
	case avg > BuyAbove:
		adv.Label, adv.Color = models.AdviceBuy, models.ColorGreen
	case avg < SellBelow:
		adv.Label, adv.Color = models.AdviceSell, models.ColorRed
	default:
		adv.Label, adv.Color = models.AdviceHold, models.ColorOrange
	}
	return adv
}

// Mean returns the arithmetic mean sentiment of records, 0 when empty.
func Mean(records []models.Headline) float64 {
	if len(records) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range records {
		sum += r.Sentiment
	}
	return sum / float64(len(records))
}

// PricePerformance returns the percentage change from the first close to
// the last. ok is false for fewer than two bars or a zero first close.
func PricePerformance(bars []models.PriceBar) (pct float64, ok bool) {
	if len(bars) < 2 {
		return 0, false
	}
	first, last := bars[0].Close, bars[len(bars)-1].Close
	if first == 0 {
		return 0, false
	}
	return (last/first - 1) * 100, true
}
