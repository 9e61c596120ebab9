// Package prompt builds token-budget-aware persona prompts for the
// generative reply tier.
package prompt

import (
	"fmt"
	"strings"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Tokenizer wraps tiktoken for approximate token counting.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTokenizer creates a Tokenizer using the cl100k_base encoding, a good
// approximation for every supported provider.
func NewTokenizer() (*Tokenizer, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("tokenizer: get encoding: %w", err)
	}
	return &Tokenizer{enc: enc}, nil
}

// Count returns the approximate number of tokens in s. A nil Tokenizer
// estimates four bytes per token.
func (t *Tokenizer) Count(s string) int {
	if t == nil {
		return (len(s) + 3) / 4
	}
	return len(t.enc.Encode(s, nil, nil))
}

// Truncate cuts s to at most maxTokens tokens.
func (t *Tokenizer) Truncate(s string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	if t == nil {
		if len(s) <= maxTokens*4 {
			return s
		}
		return strings.ToValidUTF8(s[:maxTokens*4], "")
	}
	tokens := t.enc.Encode(s, nil, nil)
	if len(tokens) <= maxTokens {
		return s
	}
	return t.enc.Decode(tokens[:maxTokens])
}
