package sentiment

import (
	"strings"
	"unicode"
)

// ------------------------------------------------------------------
// Lexicon polarity scorer (offline, deterministic).
// Each polar word contributes its weight; an intensifier right before
// it scales the weight and a negator within the two preceding words
// flips and halves it. The headline score is the mean contribution,
// clamped to [-1, 1]. Text with no polar words scores 0.
// ------------------------------------------------------------------

// Scorer maps a piece of text to a polarity in [-1, 1].
// Implementations must be deterministic and safe for concurrent use.
type Scorer interface {
	Score(text string) float64
}

// Func adapts an ordinary function to Scorer.
type Func func(text string) float64

// Score calls f(text).
func (f Func) Score(text string) float64 { return f(text) }

// negationFactor is applied to a polar word preceded by a negator.
const negationFactor = -0.5

// polarity holds word weights. General-purpose adjectives plus the
// vocabulary that shows up in market headlines.
var polarity = map[string]float64{
	// positive
	"good": 0.7, "great": 0.8, "excellent": 1.0, "best": 1.0, "better": 0.5,
	"positive": 0.23, "strong": 0.43, "stronger": 0.5, "strongest": 0.6,
	"happy": 0.8, "success": 0.3, "successful": 0.75, "win": 0.8, "wins": 0.8,
	"bullish": 0.6, "rally": 0.5, "rallies": 0.5, "surge": 0.5, "surges": 0.5,
	"soar": 0.6, "soars": 0.6, "jump": 0.3, "jumps": 0.3, "gain": 0.3, "gains": 0.3,
	"growth": 0.3, "grow": 0.3, "grows": 0.3, "upgrade": 0.5, "upgraded": 0.5,
	"outperform": 0.5, "beat": 0.4, "beats": 0.4, "record": 0.2, "boost": 0.4,
	"boosts": 0.4, "profit": 0.3, "profitable": 0.5, "innovative": 0.5,
	"optimistic": 0.5, "upbeat": 0.5, "recovery": 0.3, "rebound": 0.3,
	"high": 0.16, "higher": 0.25, "top": 0.5, "new": 0.14, "exciting": 0.3,
	"impressive": 1.0, "robust": 0.4, "solid": 0.2, "love": 0.5, "wonderful": 1.0,

	// negative
	"bad": -0.7, "worse": -0.4, "worst": -1.0, "poor": -0.4, "weak": -0.38,
	"weaker": -0.45, "negative": -0.3, "terrible": -1.0, "awful": -1.0,
	"sad": -0.5, "fail": -0.5, "fails": -0.5, "failed": -0.5, "failure": -0.3,
	"bearish": -0.6, "crash": -0.7, "crashes": -0.7, "plunge": -0.6, "plunges": -0.6,
	"slump": -0.5, "slumps": -0.5, "drop": -0.3, "drops": -0.3, "fall": -0.3,
	"falls": -0.3, "decline": -0.3, "declines": -0.3, "loss": -0.4, "losses": -0.4,
	"downgrade": -0.5, "downgraded": -0.5, "underperform": -0.5, "miss": -0.4,
	"misses": -0.4, "lawsuit": -0.4, "fraud": -0.8, "probe": -0.3, "recall": -0.3,
	"layoffs": -0.4, "cut": -0.2, "cuts": -0.2, "warning": -0.4, "warns": -0.4,
	"risk": -0.2, "fear": -0.5, "fears": -0.5, "concern": -0.3, "concerns": -0.3,
	"low": -0.2, "lower": -0.2, "volatile": -0.2, "uncertain": -0.2, "slow": -0.3,
	"delay": -0.3, "delays": -0.3, "sell-off": -0.5, "selloff": -0.5,
}

// intensifiers scale the polar word that immediately follows them.
var intensifiers = map[string]float64{
	"very": 1.3, "really": 1.3, "extremely": 1.5, "highly": 1.3, "hugely": 1.4,
	"incredibly": 1.4, "most": 1.2, "more": 1.1, "so": 1.3, "too": 1.2,
	"slightly": 0.5, "somewhat": 0.7, "barely": 0.4,
}

var negators = map[string]bool{
	"not": true, "no": true, "never": true, "nor": true, "without": true,
	"isn't": true, "aren't": true, "wasn't": true, "weren't": true,
	"don't": true, "doesn't": true, "didn't": true, "won't": true,
	"can't": true, "cannot": true, "couldn't": true, "shouldn't": true,
}

// Lexicon is the default Scorer.
type Lexicon struct{}

// Default is a ready-to-use lexicon scorer.
var Default Scorer = Lexicon{}

// Score returns the polarity of text.
func (Lexicon) Score(text string) float64 {
	words := tokenize(text)

	sum := 0.0
	n := 0
	for i, w := range words {
		p, ok := polarity[w]
		if !ok {
			continue
		}
		if i > 0 {
			if m, ok := intensifiers[words[i-1]]; ok {
				p *= m
			}
		}
		if negatedAt(words, i) {
			p *= negationFactor
		}
		sum += p
		n++
	}

	if n == 0 {
		return 0
	}
	return clamp(sum/float64(n), -1, 1)
}

// negatedAt reports whether one of the two words before i is a negator.
func negatedAt(words []string, i int) bool {
	for j := i - 1; j >= 0 && j >= i-2; j-- {
		if negators[words[j]] {
			return true
		}
	}
	return false
}

// tokenize lower-cases text and splits it into words. Apostrophes and
// inner hyphens stay inside a word so contractions reach the negator set.
func tokenize(text string) []string {
	text = strings.ToLower(strings.ReplaceAll(text, "’", "'"))
	return strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '-')
	})
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
