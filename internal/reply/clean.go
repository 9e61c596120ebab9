package reply

import (
	"strings"
)

var (
	specialTokens = []string{"<BOS>", "<EOS>", "<PAD>"}
	disclaimers   = []string{"as an ai", "i am an ai", "as a language model"}
)

// fragmentLen is the length below which a trailing sentence fragment is dropped.
const fragmentLen = 10

// Clean normalises raw generative output. It strips special tokens, drops
// a short trailing fragment after the last '.', and truncates to maxLen
// runes plus "...". It reports false when the result is shorter than
// minLen or opens with an out-of-character disclaimer.
func Clean(raw string, minLen, maxLen int) (string, bool) {
	s := raw
	for _, tok := range specialTokens {
		s = strings.ReplaceAll(s, tok, "")
	}

	parts := strings.Split(s, ".")
	if len(parts) > 1 && len([]rune(strings.TrimSpace(parts[len(parts)-1]))) < fragmentLen {
		s = strings.Join(parts[:len(parts)-1], ".") + "."
	}

	s = strings.TrimSpace(s)
	if len([]rune(s)) < minLen {
		return "", false
	}

	lower := strings.ToLower(s)
	for _, d := range disclaimers {
		if strings.HasPrefix(lower, d) {
			return "", false
		}
	}

	if maxLen > 0 {
		if r := []rune(s); len(r) > maxLen {
			s = string(r[:maxLen]) + "..."
		}
	}
	return s, true
}
