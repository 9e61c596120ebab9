package sentiment

import "strings"

// Hint steers a generative responder toward an emotional register.
type Hint string

const (
	HintLove     Hint = "love"
	HintCare     Hint = "care"
	HintHurt     Hint = "hurt"
	HintJoy      Hint = "joy"
	HintLonging  Hint = "longing"
	HintDevotion Hint = "devotion"
	HintEmpathy  Hint = "empathy"
)

var hintGroups = []struct {
	hint     Hint
	keywords []string
}{
	{HintLove, []string{"love", "heart", "romantic", "adore"}},
	{HintCare, []string{"care", "health", "eat", "sleep", "tired"}},
	{HintHurt, []string{"hurt", "pain", "sad", "broken", "cry"}},
	{HintJoy, []string{"happy", "joy", "excited", "great", "wonderful"}},
	{HintLonging, []string{"miss", "long", "wish", "want", "need"}},
	{HintDevotion, []string{"forever", "always", "eternal", "never", "promise"}},
}

// HintFor returns the first hint group with a keyword in text, or
// HintEmpathy when none matches.
func HintFor(text string) Hint {
	lower := strings.ToLower(text)
	for _, g := range hintGroups {
		for _, k := range g.keywords {
			if strings.Contains(lower, k) {
				return g.hint
			}
		}
	}
	return HintEmpathy
}

// Valid reports whether h is one of the known hints.
func (h Hint) Valid() bool {
	switch h {
	case HintLove, HintCare, HintHurt, HintJoy, HintLonging, HintDevotion, HintEmpathy:
		return true
	}
	return false
}
