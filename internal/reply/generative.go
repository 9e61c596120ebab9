package reply

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/heartline/heartline/internal/memory"
	"github.com/heartline/heartline/internal/prompt"
)

// DefaultTimeout bounds one generative attempt.
const DefaultTimeout = 8 * time.Second

// Output bounds applied by Clean.
const (
	DefaultMinLength = 10
	DefaultMaxLength = 500
)

// GenerativeTier asks a Generator for a reply built from a persona prompt.
// Any error, timeout, empty or rejected output is a decline.
type GenerativeTier struct {
	gen          Generator
	builder      *prompt.Builder
	recaller     Recaller
	index        *memory.Index
	limiter      *rate.Limiter
	timeout      time.Duration
	minLen       int
	maxLen       int
	topK         int
	promptTokens int
	historyTurns int
	logger       *slog.Logger
}

// GenerativeOption configures a GenerativeTier.
type GenerativeOption func(*GenerativeTier)

// WithTimeout bounds each attempt.
func WithTimeout(d time.Duration) GenerativeOption {
	return func(t *GenerativeTier) { t.timeout = d }
}

// WithRateLimit allows perMinute attempts per minute with a burst of the
// same size. Zero or less disables limiting.
func WithRateLimit(perMinute int) GenerativeOption {
	return func(t *GenerativeTier) {
		if perMinute <= 0 {
			t.limiter = nil
			return
		}
		t.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	}
}

// WithLengthBounds sets the accepted output length in runes.
func WithLengthBounds(minLen, maxLen int) GenerativeOption {
	return func(t *GenerativeTier) { t.minLen, t.maxLen = minLen, maxLen }
}

// WithRecaller replaces lexical memory recall in the prompt, typically with
// semantic recall.
func WithRecaller(r Recaller) GenerativeOption {
	return func(t *GenerativeTier) { t.recaller = r }
}

// WithPromptBuilder sets the prompt builder and its budgets.
func WithPromptBuilder(b *prompt.Builder, maxTokens, historyTurns int) GenerativeOption {
	return func(t *GenerativeTier) {
		t.builder = b
		t.promptTokens = maxTokens
		t.historyTurns = historyTurns
	}
}

// WithMemoryTopK sets how many memories go into the prompt.
func WithMemoryTopK(k int) GenerativeOption {
	return func(t *GenerativeTier) { t.topK = k }
}

// WithGenerativeLogger sets the logger.
func WithGenerativeLogger(l *slog.Logger) GenerativeOption {
	return func(t *GenerativeTier) {
		if l != nil {
			t.logger = l
		}
	}
}

// NewGenerativeTier wraps gen. A nil gen yields a tier that always declines.
func NewGenerativeTier(gen Generator, opts ...GenerativeOption) *GenerativeTier {
	t := &GenerativeTier{
		gen:     gen,
		timeout: DefaultTimeout,
		minLen:  DefaultMinLength,
		maxLen:  DefaultMaxLength,
		index:   memory.NewIndex(memory.DefaultMinRelevance),
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(t)
	}
	if t.builder == nil {
		t.builder = prompt.NewBuilder(nil, nil)
	}
	return t
}

func (t *GenerativeTier) Name() string { return string(MethodTransformer) }

var errEmptyOutput = errors.New("empty output")

func (t *GenerativeTier) Attempt(ctx context.Context, req Request) (res Result, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			t.decline(req, "panic", fmt.Errorf("%v", r))
			res, ok = Result{}, false
		}
	}()

	if t.gen == nil {
		t.decline(req, "unavailable", nil)
		return Result{}, false
	}
	if t.limiter != nil && !t.limiter.Allow() {
		t.decline(req, "rate_limited", nil)
		return Result{}, false
	}

	built := t.builder.Build(prompt.BuildOptions{
		Profile:      req.Context.Profile,
		Message:      req.Message,
		Memories:     t.recall(ctx, req),
		History:      req.Context.History,
		MaxTokens:    t.promptTokens,
		HistoryTurns: t.historyTurns,
	})

	raw, err := t.generate(ctx, built.Text, req)
	if err != nil {
		reason := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "timeout"
		}
		t.decline(req, reason, err)
		return Result{}, false
	}

	text, ok := Clean(raw, t.minLen, t.maxLen)
	if !ok {
		t.decline(req, "rejected", nil)
		return Result{}, false
	}
	return Result{Text: text, Method: MethodTransformer, EmotionHint: req.Hint}, true
}

// generate runs the generator under the tier timeout. The call is raced
// against the deadline so a generator that ignores ctx cannot stall a reply.
func (t *GenerativeTier) generate(ctx context.Context, promptText string, req Request) (string, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("generator panic: %v", r)}
			}
		}()
		text, err := t.gen.Generate(ctx, promptText, req.Hint)
		done <- outcome{text: text, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return "", o.err
		}
		if o.text == "" {
			return "", errEmptyOutput
		}
		return o.text, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (t *GenerativeTier) recall(ctx context.Context, req Request) []string {
	p := req.Context.Profile
	if p == nil {
		return nil
	}
	if t.recaller != nil {
		return t.recaller.Recall(ctx, *p, req.Message, t.topK)
	}
	return t.index.Retrieve(req.Message, p.MemoryTexts(), t.topK)
}

func (t *GenerativeTier) decline(req Request, reason string, err error) {
	if err != nil {
		t.logger.Debug("generative tier declined", "tier", t.Name(), "reason", reason, "err", err)
	} else {
		t.logger.Debug("generative tier declined", "tier", t.Name(), "reason", reason)
	}
	req.Fail(reason)
}
