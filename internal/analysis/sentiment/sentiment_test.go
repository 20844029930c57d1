package sentiment

import (
	"math"
	"sync"
	"testing"
)

const eps = 1e-9

func TestScoreBullish(t *testing.T) {
	score := Default.Score("Apple shares rally on strong growth and record profit")
	if score <= 0 {
		t.Errorf("expected positive score for bullish headline, got %.4f", score)
	}
}

func TestScoreBearish(t *testing.T) {
	score := Default.Score("Stocks plunge amid fraud probe and weak demand")
	if score >= 0 {
		t.Errorf("expected negative score for bearish headline, got %.4f", score)
	}
}

func TestScoreNeutral(t *testing.T) {
	for _, text := range []string{
		"Company announces office move to Austin",
		"",
		"   ",
		"12345 !!!",
	} {
		if score := Default.Score(text); score != 0 {
			t.Errorf("Score(%q) = %.4f, want 0", text, score)
		}
	}
}

func TestScoreSingleWordWeight(t *testing.T) {
	if got := Default.Score("Good"); math.Abs(got-0.7) > eps {
		t.Errorf("Score(Good) = %.4f, want 0.7", got)
	}
}

func TestScoreIntensifier(t *testing.T) {
	plain := Default.Score("a good quarter")
	boosted := Default.Score("a very good quarter")
	if math.Abs(boosted-plain*1.3) > eps {
		t.Errorf("very good = %.4f, want %.4f", boosted, plain*1.3)
	}
}

func TestScoreNegation(t *testing.T) {
	tests := []struct {
		text string
		want float64
	}{
		{"not good", -0.35},
		{"isn't good", -0.35},
		{"not a bad result", 0.35},
		{"Didn’t fail", 0.25},
	}
	for _, tc := range tests {
		if got := Default.Score(tc.text); math.Abs(got-tc.want) > eps {
			t.Errorf("Score(%q) = %.4f, want %.4f", tc.text, got, tc.want)
		}
	}
}

func TestScoreAveragesPolarWords(t *testing.T) {
	// good (0.7) and bad (-0.7) cancel.
	if got := Default.Score("good news, bad timing"); math.Abs(got) > eps {
		t.Errorf("Score = %.4f, want 0", got)
	}
}

func TestScoreClamped(t *testing.T) {
	for _, text := range []string{
		"extremely excellent",
		"extremely terrible",
		"incredibly impressive wonderful best",
	} {
		got := Default.Score(text)
		if got < -1 || got > 1 {
			t.Errorf("Score(%q) = %.4f out of [-1, 1]", text, got)
		}
	}
}

func TestScoreDeterministicConcurrent(t *testing.T) {
	const text = "Tesla surges after very strong deliveries, not a weak quarter"
	want := Default.Score(text)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := Default.Score(text); got != want {
				t.Errorf("concurrent Score = %v, want %v", got, want)
			}
		}()
	}
	wg.Wait()
}

func TestFuncAdapter(t *testing.T) {
	var s Scorer = Func(func(text string) float64 { return float64(len(text)) / 10 })
	if got := s.Score("abcde"); got != 0.5 {
		t.Errorf("Func.Score = %v, want 0.5", got)
	}
}
