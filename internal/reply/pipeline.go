package reply

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/heartline/heartline/internal/memory"
	"github.com/heartline/heartline/internal/sentiment"
	"github.com/heartline/heartline/internal/telemetry"
)

// Pipeline runs tiers in order and owns the reply cache and the rolling
// conversation window. It is safe for concurrent use.
type Pipeline struct {
	tiers   []Responder
	cache   *fifoCache
	window  *Window
	emitter telemetry.Emitter
	trainer Trainer
	logger  *slog.Logger
	now     func() time.Time

	mu     sync.Mutex
	served map[string]int
	failed map[string]int
	hits   int
}

// Option configures a Pipeline.
type Option func(*pipelineConfig)

type pipelineConfig struct {
	tiers      []Responder
	cacheSize  int
	evictBatch int
	windowSize int
	emitter    telemetry.Emitter
	trainer    Trainer
	logger     *slog.Logger
	now        func() time.Time
}

// WithTiers sets the ordered tiers. A StaticTier is appended when the list
// does not end in one.
func WithTiers(tiers ...Responder) Option {
	return func(c *pipelineConfig) { c.tiers = tiers }
}

// WithCache bounds the reply cache and sets the eviction batch.
func WithCache(size, evictBatch int) Option {
	return func(c *pipelineConfig) { c.cacheSize, c.evictBatch = size, evictBatch }
}

// WithWindowSize bounds the rolling conversation window.
func WithWindowSize(n int) Option {
	return func(c *pipelineConfig) { c.windowSize = n }
}

// WithEmitter sets the telemetry sink.
func WithEmitter(e telemetry.Emitter) Option {
	return func(c *pipelineConfig) { c.emitter = e }
}

// WithTrainer sets the reply observer.
func WithTrainer(t Trainer) Option {
	return func(c *pipelineConfig) { c.trainer = t }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *pipelineConfig) { c.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *pipelineConfig) { c.now = now }
}

// New builds a Pipeline. Without WithTiers it uses a default RuleTier
// followed by a StaticTier.
func New(opts ...Option) *Pipeline {
	cfg := pipelineConfig{}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.emitter == nil {
		cfg.emitter = telemetry.Nop{}
	}
	if cfg.trainer == nil {
		cfg.trainer = NopTrainer{}
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	tiers := cfg.tiers
	if len(tiers) == 0 {
		tiers = []Responder{NewRuleTier(nil, nil, memory.DefaultTopK, cfg.logger)}
	}
	if _, ok := tiers[len(tiers)-1].(StaticTier); !ok {
		tiers = append(append([]Responder(nil), tiers...), StaticTier{})
	}

	return &Pipeline{
		tiers:   tiers,
		cache:   newFIFOCache(cfg.cacheSize, cfg.evictBatch),
		window:  NewWindow(cfg.windowSize),
		emitter: cfg.emitter,
		trainer: cfg.trainer,
		logger:  cfg.logger,
		now:     cfg.now,
		served:  map[string]int{},
		failed:  map[string]int{},
	}
}

// Reply answers message in the given context. It never fails: an empty
// message gets EmptyMessageReply and any unexpected failure gets
// StaticReply, both tagged MethodFallback.
func (p *Pipeline) Reply(ctx context.Context, message string, rc Context) (res Result) {
	start := p.now()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("reply pipeline panicked", "err", fmt.Sprint(r))
			res = Result{Text: StaticReply, Method: MethodFallback, Timestamp: p.now()}
		}
	}()

	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return Result{Text: EmptyMessageReply, Method: MethodFallback, Timestamp: start}
	}

	key := cacheKey(trimmed, rc)
	if cached, ok := p.cache.Get(key); ok {
		cached.Cached = true
		p.mu.Lock()
		p.hits++
		p.mu.Unlock()
		p.finish(trimmed, cached, rc, start)
		return cached
	}

	s := sentiment.Score(trimmed)
	res = p.runTiers(ctx, Request{
		Message:   trimmed,
		Context:   rc,
		Sentiment: s,
		Hint:      sentiment.HintFor(trimmed),
	})
	res.Timestamp = p.now()

	// A fallback means every real tier declined; don't pin that in the cache.
	if res.Method != MethodFallback {
		p.cache.Put(key, res)
	}
	p.finishWithSentiment(trimmed, res, rc, start, &s)
	return res
}

func (p *Pipeline) runTiers(ctx context.Context, req Request) Result {
	for _, tier := range p.tiers {
		reason := "no_result"
		req.fail = func(r string) { reason = r }

		res, ok := tier.Attempt(ctx, req)
		if ok && res.Text != "" {
			p.count(p.served, tier.Name())
			return res
		}
		p.count(p.failed, tier.Name())
		p.emitter.Emit(telemetry.EventTierFailed, map[string]any{
			"tier":   tier.Name(),
			"reason": reason,
		})
		p.logger.Debug("tier failed", "tier", tier.Name(), "reason", reason)
	}
	return Result{Text: StaticReply, Method: MethodFallback}
}

func (p *Pipeline) finish(message string, res Result, rc Context, start time.Time) {
	p.finishWithSentiment(message, res, rc, start, nil)
}

func (p *Pipeline) finishWithSentiment(message string, res Result, rc Context, start time.Time, s *sentiment.Result) {
	if s == nil {
		sc := sentiment.Score(message)
		s = &sc
	}
	now := p.now()
	p.window.Append(
		memory.Turn{Role: memory.RoleUser, Text: message, At: start, Sentiment: s},
		memory.Turn{Role: memory.RoleAgent, Text: res.Text, At: now, Method: string(res.ReportedMethod())},
	)

	profile := ""
	if rc.Profile != nil {
		profile = rc.Profile.Name
	}
	p.emitter.Emit(telemetry.EventReplyGenerated, map[string]any{
		"method":     string(res.Method),
		"cached":     res.Cached,
		"latency_ms": now.Sub(start).Milliseconds(),
		"profile":    profile,
	})
	p.trainer.Observe(message, res)
}

func (p *Pipeline) count(m map[string]int, name string) {
	p.mu.Lock()
	m[name]++
	p.mu.Unlock()
}

// TierStats counts outcomes of one tier.
type TierStats struct {
	Served int `json:"served"`
	Failed int `json:"failed"`
}

// Stats is a snapshot of pipeline state.
type Stats struct {
	CacheSize   int                  `json:"cache_size"`
	CacheHits   int                  `json:"cache_hits"`
	WindowLen   int                  `json:"window_len"`
	WindowCap   int                  `json:"window_cap"`
	Tiers       []string             `json:"tiers"`
	TierOutcome map[string]TierStats `json:"tier_outcome"`
}

// Stats returns current counters.
func (p *Pipeline) Stats() Stats {
	st := Stats{
		CacheSize:   p.cache.Len(),
		WindowLen:   p.window.Len(),
		WindowCap:   p.window.Cap(),
		TierOutcome: map[string]TierStats{},
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	st.CacheHits = p.hits
	for _, t := range p.tiers {
		name := t.Name()
		st.Tiers = append(st.Tiers, name)
		st.TierOutcome[name] = TierStats{Served: p.served[name], Failed: p.failed[name]}
	}
	return st
}

// History returns the rolling window, oldest first.
func (p *Pipeline) History() []memory.Turn {
	return p.window.Snapshot()
}

// Restore rehydrates the window from persisted turns.
func (p *Pipeline) Restore(turns []memory.Turn) {
	p.window.Restore(turns)
}

// ClearCache drops every cached reply.
func (p *Pipeline) ClearCache() {
	p.cache.Clear()
}

// ClearContext empties the rolling window.
func (p *Pipeline) ClearContext() {
	p.window.Clear()
}

// Close releases the cache and window.
func (p *Pipeline) Close() error {
	p.ClearCache()
	p.ClearContext()
	return nil
}
