package reply

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/heartline/heartline/internal/compose"
	"github.com/heartline/heartline/internal/memory"
)

// RuleTier answers with the rule-based composer over lexically recalled
// memories. It succeeds for any non-empty message.
type RuleTier struct {
	composer *compose.Composer
	index    *memory.Index
	topK     int
	logger   *slog.Logger
}

// NewRuleTier creates a RuleTier. Nil arguments get defaults.
func NewRuleTier(composer *compose.Composer, index *memory.Index, topK int, logger *slog.Logger) *RuleTier {
	if composer == nil {
		composer = compose.New()
	}
	if index == nil {
		index = memory.NewIndex(memory.DefaultMinRelevance)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RuleTier{composer: composer, index: index, topK: topK, logger: logger}
}

func (t *RuleTier) Name() string { return string(MethodRuleBased) }

func (t *RuleTier) Attempt(_ context.Context, req Request) (res Result, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Warn("rule tier panicked", "tier", t.Name(), "err", fmt.Sprint(r))
			req.Fail("panic")
			res, ok = Result{}, false
		}
	}()

	p := req.Context.Profile
	memories := t.index.Retrieve(req.Message, p.MemoryTexts(), t.topK)
	text := t.composer.Compose(req.Message, req.Sentiment, memories, p)
	if text == "" {
		req.Fail("empty")
		return Result{}, false
	}
	return Result{Text: text, Method: MethodRuleBased, EmotionHint: req.Hint}, true
}

// StaticTier always answers with StaticReply.
type StaticTier struct{}

func (StaticTier) Name() string { return string(MethodFallback) }

func (StaticTier) Attempt(context.Context, Request) (Result, bool) {
	return Result{Text: StaticReply, Method: MethodFallback}, true
}
