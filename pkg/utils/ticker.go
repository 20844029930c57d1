package utils

import "strings"

// tickerAliases maps common company names and share-class spellings to
// their listed ticker.
var tickerAliases = map[string]string{
	"APPLE":     "AAPL",
	"MICROSOFT": "MSFT",
	"GOOGLE":    "GOOGL",
	"ALPHABET":  "GOOGL",
	"GOOG":      "GOOGL",
	"TESLA":     "TSLA",
	"AMAZON":    "AMZN",
	"FACEBOOK":  "META",
	"FB":        "META",
	"NVIDIA":    "NVDA",
	"JPMORGAN":  "JPM",
	"WALMART":   "WMT",
	"EXXON":     "XOM",
	"CHEVRON":   "CVX",
	"COKE":      "KO",
	"PEPSI":     "PEP",
	"DISNEY":    "DIS",
	"NETFLIX":   "NFLX",
	"ADOBE":     "ADBE",
}

// NormalizeTicker normalizes a user-input ticker to its canonical form.
// It handles aliases, uppercasing, whitespace and a leading "$".
func NormalizeTicker(ticker string) string {
	ticker = strings.TrimSpace(strings.ToUpper(ticker))

	// Remove $ prefix if present (common in chat)
	ticker = strings.TrimPrefix(ticker, "$")

	if canonical, ok := tickerAliases[ticker]; ok {
		return canonical
	}
	return ticker
}

// ToYFinanceTicker converts a ticker to Yahoo Finance format. Share classes
// written with a dot (BRK.B) use a dash on Yahoo (BRK-B).
func ToYFinanceTicker(ticker string) string {
	return strings.ReplaceAll(NormalizeTicker(ticker), ".", "-")
}

