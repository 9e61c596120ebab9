package prompt

import "testing"

// newTestTokenizer skips when the BPE ranks cannot be loaded (offline runs).
func newTestTokenizer(t *testing.T) *Tokenizer {
	t.Helper()
	tok, err := NewTokenizer()
	if err != nil {
		t.Skipf("tiktoken encoding unavailable: %v", err)
	}
	return tok
}

func TestTokenizer_Count(t *testing.T) {
	tok := newTestTokenizer(t)
	if n := tok.Count("Hello, world!"); n <= 0 {
		t.Errorf("expected positive token count, got %d", n)
	}
	if n := tok.Count(""); n != 0 {
		t.Errorf("expected 0 tokens for empty string, got %d", n)
	}
}

func TestTokenizer_Truncate(t *testing.T) {
	tok := newTestTokenizer(t)

	long := "This is a fairly long string that should have more than five tokens in total."
	truncated := tok.Truncate(long, 5)
	if len(truncated) >= len(long) {
		t.Error("truncated string should be shorter than original")
	}
	if n := tok.Count(truncated); n > 5 {
		t.Errorf("truncated to 5 tokens but Count says %d", n)
	}
	if got := tok.Truncate("Hi", 100); got != "Hi" {
		t.Errorf("short string should not be truncated: got %q", got)
	}
}

func TestTokenizer_NilEstimates(t *testing.T) {
	var tok *Tokenizer
	if n := tok.Count("abcdefgh"); n != 2 {
		t.Errorf("estimate: got %d, want 2", n)
	}
	if got := tok.Truncate("abcdefghijkl", 2); got != "abcdefgh" {
		t.Errorf("truncate estimate: got %q", got)
	}
	if got := tok.Truncate("abc", 0); got != "" {
		t.Errorf("zero budget: got %q", got)
	}
}
