package models

import "time"

// Headline is a scored news headline. Headlines live only for the
// duration of a single analysis.
type Headline struct {
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"headline"`
	Sentiment float64   `json:"sentiment"` // -1.0 (negative) to +1.0 (positive)
	Source    string    `json:"source,omitempty"`
	URL       string    `json:"url,omitempty"`
}

