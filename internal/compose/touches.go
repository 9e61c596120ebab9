package compose

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/heartline/heartline/internal/memory"
)

var (
	endearments      = []string{"Sweetheart, ", "Darling, ", "My love, "}
	affectionMarkers = []string{"💕", "💖", "❤️"}
	sparkles         = []string{"😊", "✨", "🌟"}
	seriousWords     = []string{"sad", "hurt", "difficult"}
)

// Decorate applies the profile's personality touches to text: at most one
// prefix and at most one suffix. A nil profile leaves text unchanged.
func (c *Composer) Decorate(text string, p *memory.Profile) string {
	if p.HasTrait("caring") {
		text = c.pick(endearments) + lowerFirst(text)
	}

	suffixed := false
	if p.HasTrait("romantic") && !containsAny(text, affectionMarkers) {
		text += " 💕"
		suffixed = true
	}
	if !suffixed && p.HasTrait("playful") &&
		!containsAny(text, sparkles) &&
		!containsAny(strings.ToLower(text), seriousWords) {
		text += " " + c.pick(sparkles)
	}
	return text
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
