// Package models defines the core data structures used throughout stocksentiment.
package models

import "time"

// Company is an entry of the static company catalog.
type Company struct {
	Name   string `json:"name"   yaml:"name"`   // e.g., "Apple Inc"
	Ticker string `json:"ticker" yaml:"ticker"` // e.g., "AAPL"
	Sector string `json:"sector" yaml:"sector"` // e.g., "Technology"
}

// Label returns the selector label shown in the UI, e.g. "AAPL - Apple Inc".
func (c Company) Label() string {
	return c.Ticker + " - " + c.Name
}

// PriceBar is a single daily OHLC bar.
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume,omitempty"`
}

