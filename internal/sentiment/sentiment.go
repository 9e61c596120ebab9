// Package sentiment classifies short messages into a coarse emotion label and
// a polarity score using fixed keyword tables.
package sentiment

import "strings"

// Label is a coarse emotion bucket.
type Label string

const (
	LabelHurt    Label = "hurt"
	LabelLove    Label = "love"
	LabelCare    Label = "care"
	LabelJoy     Label = "joy"
	LabelLonging Label = "longing"
	LabelNeutral Label = "neutral"
)

// Result is the outcome of scoring one text.
type Result struct {
	Label    Label   `json:"label"`
	Polarity float64 `json:"polarity"`
}

type category struct {
	label    Label
	keywords []string
}

// categories is ordered by tie-break priority: earlier entries win equal counts.
var categories = []category{
	{LabelHurt, []string{"hurt", "pain", "sad", "broken", "cry"}},
	{LabelLove, []string{"love", "heart", "romantic", "adore"}},
	{LabelCare, []string{"care", "health", "eat", "sleep", "tired"}},
	{LabelJoy, []string{"happy", "joy", "excited", "great", "wonderful"}},
	{LabelLonging, []string{"miss", "long", "wish", "want", "need"}},
}

var (
	positiveWords = []string{"love", "happy", "good", "great", "wonderful", "amazing", "joy", "smile"}
	negativeWords = []string{"sad", "bad", "hurt", "angry", "upset", "miss", "pain", "cry"}
)

// Score returns the emotion label and polarity of text. Keywords match as
// substrings of the lower-cased text, so "careful" counts toward care.
func Score(text string) Result {
	lower := strings.ToLower(text)

	best := LabelNeutral
	bestCount := 0
	for _, c := range categories {
		n := countAll(lower, c.keywords)
		if n > bestCount {
			best, bestCount = c.label, n
		}
	}

	return Result{Label: best, Polarity: Polarity(lower)}
}

// Polarity returns (pos-neg)/(pos+neg) clamped to [-1, 1], or 0 when no
// lexicon word occurs.
func Polarity(text string) float64 {
	lower := strings.ToLower(text)
	pos := countAll(lower, positiveWords)
	neg := countAll(lower, negativeWords)
	total := pos + neg
	if total == 0 {
		return 0
	}
	p := float64(pos-neg) / float64(total)
	switch {
	case p > 1:
		return 1
	case p < -1:
		return -1
	}
	return p
}

func countAll(s string, words []string) int {
	n := 0
	for _, w := range words {
		n += strings.Count(s, w)
	}
	return n
}
