// Package compose builds rule-based companion replies from a message, its
// sentiment, the memories recalled for it and the speaking profile.
package compose

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/heartline/heartline/internal/memory"
	"github.com/heartline/heartline/internal/sentiment"
)

// Branch selection keywords, matched as substrings of the lower-cased message.
var (
	greetingWords = []string{"hi", "hello", "hey"}
	memoryWords   = []string{"remember", "memory", "past"}
	feelingWords  = []string{"love", "heart", "feel"}
)

const (
	// comfortThreshold is the polarity below which an otherwise unmatched
	// message gets the comforting branch.
	comfortThreshold = -0.2
	// supportNoteThreshold is the polarity below which the support note is
	// appended when enabled.
	supportNoteThreshold = -0.3
)

// SupportNote is appended to strongly negative replies when enabled.
const SupportNote = "If this feels overwhelming, remember that professional support can be incredibly helpful too."

// Composer selects a template branch, fills it and decorates the result.
// It is safe for concurrent use.
type Composer struct {
	mu          sync.Mutex
	rng         *rand.Rand
	supportNote bool
}

// Option configures a Composer.
type Option func(*Composer)

// WithRand sets the random source used for template and decoration choice.
func WithRand(r *rand.Rand) Option {
	return func(c *Composer) {
		if r != nil {
			c.rng = r
		}
	}
}

// WithSeed seeds the random source; replies become reproducible.
func WithSeed(seed int64) Option {
	return WithRand(rand.New(rand.NewSource(seed)))
}

// WithSupportNote toggles the professional-support note on strongly
// negative messages. It is on by default.
func WithSupportNote(on bool) Option {
	return func(c *Composer) { c.supportNote = on }
}

// New returns a Composer. Without WithRand or WithSeed it seeds from the clock.
func New(opts ...Option) *Composer {
	c := &Composer{supportNote: true}
	for _, o := range opts {
		o(c)
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return c
}

// Select returns the branch for message. Branches are checked in a fixed
// order and the first match wins:
//
//  1. greeting keywords
//  2. remember/memory/past (memory excerpt, or nostalgia without one)
//  3. love/heart/feel (affirming when polarity > 0, supportive otherwise)
//  4. a question mark (with a memory, or a thoughtful question)
//  5. polarity below -0.2 (comforting)
//  6. engaged listening, with a memory when one is available
func Select(message string, polarity float64, hasMemory bool) Branch {
	lower := strings.ToLower(message)
	switch {
	case containsAny(lower, greetingWords):
		return BranchGreeting
	case containsAny(lower, memoryWords):
		if hasMemory {
			return BranchMemory
		}
		return BranchNostalgia
	case containsAny(lower, feelingWords):
		if polarity > 0 {
			return BranchAffirmingLove
		}
		return BranchSupportive
	case strings.Contains(message, "?"):
		if hasMemory {
			return BranchQuestionMemory
		}
		return BranchThoughtfulQuestion
	case polarity < comfortThreshold:
		return BranchComforting
	case hasMemory:
		return BranchListeningMemory
	default:
		return BranchListening
	}
}

// Compose produces the reply text. memories are ordered by relevance; only
// the first is quoted. A nil or partial profile falls back to defaults.
func (c *Composer) Compose(message string, s sentiment.Result, memories []string, p *memory.Profile) string {
	text, _ := c.ComposeBranch(message, s, memories, p)
	return text
}

// ComposeBranch is Compose that also reports the chosen branch.
func (c *Composer) ComposeBranch(message string, s sentiment.Result, memories []string, p *memory.Profile) (string, Branch) {
	var mem string
	for _, m := range memories {
		if strings.TrimSpace(m) != "" {
			mem = m
			break
		}
	}

	branch := Select(message, s.Polarity, mem != "")
	switch branch {
	case BranchMemory:
		mem = excerpt(mem, memoryExcerptLen)
	case BranchQuestionMemory, BranchListeningMemory:
		mem = excerpt(mem, questionExcerptLen)
	}

	text := fill(c.pick(templates[branch]), p.Address(), mem)
	text = strings.ReplaceAll(text, "....", "...")
	if c.supportNote && s.Polarity < supportNoteThreshold {
		text += " " + SupportNote
	}
	return c.Decorate(text, p), branch
}

func (c *Composer) pick(options []string) string {
	if len(options) == 0 {
		return ""
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return options[c.rng.Intn(len(options))]
}
