// Package reply turns a user message and a conversation context into a
// companion reply by trying an ordered list of tiers: a generative model,
// the rule-based composer and a static fallback.
package reply

import (
	"context"
	"encoding/json"
	"time"

	"github.com/heartline/heartline/internal/memory"
	"github.com/heartline/heartline/internal/sentiment"
)

// Method tags which tier produced a reply.
type Method string

const (
	MethodTransformer Method = "transformer"
	MethodRuleBased   Method = "rule_based"
	MethodFallback    Method = "fallback"
	// MethodCached is only reported, never stored; see Result.ReportedMethod.
	MethodCached Method = "cached"
)

// Canned replies.
const (
	EmptyMessageReply = "I'm here, what's on your mind? 💖"
	StaticReply       = "I'm having some trouble right now, but I'm still here for you 💖 Please tell me what's in your heart."
)

// Context is the conversation state a reply is computed against.
type Context struct {
	Profile *memory.Profile
	History []memory.Turn
}

// Result is a finished reply.
type Result struct {
	Text        string         `json:"text"`
	Method      Method         `json:"method"`
	Timestamp   time.Time      `json:"timestamp"`
	Cached      bool           `json:"cached"`
	EmotionHint sentiment.Hint `json:"emotion_hint,omitempty"`
}

// ReportedMethod returns "cached" for cache hits and the producing tier
// otherwise.
func (r Result) ReportedMethod() Method {
	if r.Cached {
		return MethodCached
	}
	return r.Method
}

// MarshalJSON encodes the reported method, so cache hits read "cached".
func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	out := plain(r)
	out.Method = r.ReportedMethod()
	return json.Marshal(out)
}

// Request is what each tier sees: the trimmed message, its context and the
// sentiment computed once by the pipeline.
type Request struct {
	Message   string
	Context   Context
	Sentiment sentiment.Result
	Hint      sentiment.Hint

	fail func(reason string)
}

// Fail records why a tier declined the request.
func (r Request) Fail(reason string) {
	if r.fail != nil {
		r.fail(reason)
	}
}

// Responder is one tier of the pipeline. Attempt returns false when the
// tier has no reply; the pipeline then moves on to the next tier.
type Responder interface {
	Name() string
	Attempt(ctx context.Context, req Request) (Result, bool)
}

// Generator is the generative collaborator behind GenerativeTier. An empty
// string or an error means no result.
type Generator interface {
	Generate(ctx context.Context, prompt string, hint sentiment.Hint) (string, error)
}

// Recaller retrieves memories of a profile relevant to a query.
type Recaller interface {
	Recall(ctx context.Context, p memory.Profile, query string, k int) []string
}

// Trainer observes finished replies. Training is not supported; NopTrainer
// is the only implementation.
type Trainer interface {
	Observe(message string, res Result)
}

// NopTrainer records nothing.
type NopTrainer struct{}

func (NopTrainer) Observe(string, Result) {}
