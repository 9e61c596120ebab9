package prompt

import (
	"fmt"
	"strings"

	"github.com/heartline/heartline/internal/memory"
)

// Default budgets.
const (
	DefaultMaxTokens    = 1500
	DefaultHistoryTurns = 4
)

// BuildOptions controls how a prompt is assembled.
type BuildOptions struct {
	Profile      *memory.Profile
	Message      string
	Memories     []string      // most relevant first
	History      []memory.Turn // oldest first
	MaxTokens    int
	HistoryTurns int
	// IncludeBackstory adds the raw backstory when the budget allows.
	IncludeBackstory bool
}

// Built is the result of a build.
type Built struct {
	Text         string
	TokensUsed   int
	MemoriesUsed int
	TurnsUsed    int
	// Sources lists what was included, for verbose output.
	Sources []string
}

// Builder assembles persona prompts within a token budget.
type Builder struct {
	formatter *Formatter
	tokenizer *Tokenizer
}

// NewBuilder creates a Builder. A nil tokenizer falls back to a byte-based
// estimate.
func NewBuilder(formatter *Formatter, tokenizer *Tokenizer) *Builder {
	if formatter == nil {
		formatter = NewFormatter()
	}
	return &Builder{formatter: formatter, tokenizer: tokenizer}
}

// Build renders the prompt. The persona, rules and current message are
// always included; memories, history and backstory fill what remains of the
// budget in that order.
func (b *Builder) Build(opts BuildOptions) Built {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.HistoryTurns <= 0 {
		opts.HistoryTurns = DefaultHistoryTurns
	}
	companion := "Companion"
	if opts.Profile != nil && opts.Profile.Name != "" {
		companion = opts.Profile.Name
	}

	persona := b.formatter.FormatPersona(opts.Profile)
	rules := b.formatter.FormatRules()
	tail := "User: " + strings.TrimSpace(opts.Message) + "\n" + companion + ":"
	remaining := opts.MaxTokens - b.tokenizer.Count(persona) - b.tokenizer.Count(rules) - b.tokenizer.Count(tail)

	var out Built
	var memBlock string
	var kept []string
	for _, m := range opts.Memories {
		candidate := b.formatter.FormatMemories(append(kept, m))
		if b.tokenizer.Count(candidate) > remaining {
			break
		}
		kept = append(kept, m)
		memBlock = candidate
		out.Sources = append(out.Sources, "memory: "+truncateStr(m, 60))
	}
	remaining -= b.tokenizer.Count(memBlock)
	out.MemoriesUsed = len(kept)

	// Newest turns win the budget; they are rendered oldest first.
	history := opts.History
	if len(history) > opts.HistoryTurns {
		history = history[len(history)-opts.HistoryTurns:]
	}
	var lines []string
	for i := len(history) - 1; i >= 0; i-- {
		line := b.formatter.FormatTurn(history[i], companion)
		n := b.tokenizer.Count(line)
		if n > remaining {
			break
		}
		remaining -= n
		lines = append([]string{line}, lines...)
	}
	out.TurnsUsed = len(lines)
	if len(lines) > 0 {
		out.Sources = append(out.Sources, fmt.Sprintf("history: %d turns", len(lines)))
	}

	var backstory string
	if opts.IncludeBackstory && opts.Profile != nil && opts.Profile.Backstory != "" && remaining > 50 {
		backstory = "## Your story\n\n" + b.tokenizer.Truncate(opts.Profile.Backstory, remaining-20) + "\n\n"
		remaining -= b.tokenizer.Count(backstory)
		out.Sources = append(out.Sources, "backstory")
	}

	var sb strings.Builder
	sb.WriteString(persona)
	sb.WriteString("\n")
	sb.WriteString(backstory)
	sb.WriteString(memBlock)
	sb.WriteString(rules)
	sb.WriteString("\n")
	if len(lines) > 0 {
		sb.WriteString("## Recent conversation\n\n")
		sb.WriteString(strings.Join(lines, ""))
	}
	sb.WriteString(tail)

	out.Text = sb.String()
	out.TokensUsed = opts.MaxTokens - remaining
	return out
}

func truncateStr(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
