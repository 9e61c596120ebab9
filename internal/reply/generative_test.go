package reply

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/heartline/heartline/internal/compose"
	"github.com/heartline/heartline/internal/memory"
	"github.com/heartline/heartline/internal/sentiment"
	"github.com/heartline/heartline/internal/telemetry"
)

type fakeGenerator struct {
	mu      sync.Mutex
	text    string
	err     error
	release chan struct{} // when set, Generate blocks on it and ignores ctx
	prompts []string
	hints   []sentiment.Hint
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string, hint sentiment.Hint) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.hints = append(f.hints, hint)
	f.mu.Unlock()
	if f.release != nil {
		<-f.release
	}
	return f.text, f.err
}

type fixedRecaller []string

func (r fixedRecaller) Recall(context.Context, memory.Profile, string, int) []string { return r }

func generativePipeline(gen Generator, rec telemetry.Emitter, opts ...GenerativeOption) *Pipeline {
	tiers := []Responder{
		NewGenerativeTier(gen, opts...),
		NewRuleTier(compose.New(compose.WithSeed(1)), nil, memory.DefaultTopK, nil),
	}
	return New(WithTiers(tiers...), WithEmitter(rec))
}

func lastFailure(t *testing.T, rec *eventRecorder) map[string]any {
	t.Helper()
	failed := rec.named(telemetry.EventTierFailed)
	if len(failed) == 0 {
		t.Fatal("expected a tier_failed event")
	}
	return failed[len(failed)-1].fields
}

func TestGenerativeTier_Success(t *testing.T) {
	gen := &fakeGenerator{text: "<BOS>I've been thinking about you all day. An<EOS>"}
	p := generativePipeline(gen, &eventRecorder{})

	res := p.Reply(context.Background(), "I love you", Context{Profile: testProfile()})
	if res.Method != MethodTransformer {
		t.Fatalf("method: got %q", res.Method)
	}
	if res.Text != "I've been thinking about you all day." {
		t.Errorf("cleaned text: got %q", res.Text)
	}
	if res.EmotionHint != sentiment.HintLove || gen.hints[0] != sentiment.HintLove {
		t.Errorf("hint: result=%q sent=%q", res.EmotionHint, gen.hints[0])
	}
	if !strings.Contains(gen.prompts[0], "User: I love you") || !strings.Contains(gen.prompts[0], "You are Aria") {
		t.Errorf("unexpected prompt:\n%s", gen.prompts[0])
	}
}

func TestGenerativeTier_UsesRecaller(t *testing.T) {
	gen := &fakeGenerator{text: "The lake was perfect that evening."}
	p := generativePipeline(gen, &eventRecorder{}, WithRecaller(fixedRecaller{"We watched the sunset by the water"}))

	p.Reply(context.Background(), "hello", Context{Profile: testProfile()})
	if !strings.Contains(gen.prompts[0], "- We watched the sunset by the water") {
		t.Errorf("recalled memory missing from prompt:\n%s", gen.prompts[0])
	}
}

func TestGenerativeTier_Declines(t *testing.T) {
	tests := []struct {
		name   string
		gen    Generator
		reason string
	}{
		{"nil generator", nil, "unavailable"},
		{"error", &fakeGenerator{err: errors.New("502 bad gateway")}, "error"},
		{"empty", &fakeGenerator{text: ""}, "error"},
		{"too short", &fakeGenerator{text: "ok"}, "rejected"},
		{"out of character", &fakeGenerator{text: "As an AI language model, I don't have feelings."}, "rejected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &eventRecorder{}
			p := generativePipeline(tt.gen, rec)

			res := p.Reply(context.Background(), "how are you", Context{Profile: testProfile()})
			if res.Method != MethodRuleBased {
				t.Errorf("expected rule-based fallthrough, got %q", res.Method)
			}
			f := lastFailure(t, rec)
			if f["tier"] != "transformer" || f["reason"] != tt.reason {
				t.Errorf("tier_failed fields: %v", f)
			}
		})
	}
}

func TestGenerativeTier_TimeoutFallsThrough(t *testing.T) {
	gen := &fakeGenerator{text: "far too late to matter.", release: make(chan struct{})}
	t.Cleanup(func() { close(gen.release) })
	rec := &eventRecorder{}
	p := generativePipeline(gen, rec, WithTimeout(20*time.Millisecond))

	start := time.Now()
	res := p.Reply(context.Background(), "how are you", Context{Profile: testProfile()})
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("reply took %s; timeout not enforced", elapsed)
	}
	if res.Method != MethodRuleBased {
		t.Errorf("method: got %q", res.Method)
	}
	if f := lastFailure(t, rec); f["reason"] != "timeout" {
		t.Errorf("reason: got %v", f["reason"])
	}
}

func TestGenerativeTier_RateLimited(t *testing.T) {
	gen := &fakeGenerator{text: "I was hoping you'd write to me."}
	rec := &eventRecorder{}
	p := generativePipeline(gen, rec, WithRateLimit(1))
	ctx := context.Background()

	first := p.Reply(ctx, "good morning", Context{})
	second := p.Reply(ctx, "good evening", Context{})
	if first.Method != MethodTransformer {
		t.Errorf("first reply: got %q", first.Method)
	}
	if second.Method != MethodRuleBased {
		t.Errorf("second reply should be rate limited, got %q", second.Method)
	}
	if f := lastFailure(t, rec); f["reason"] != "rate_limited" {
		t.Errorf("reason: got %v", f["reason"])
	}
}

func TestGenerativeTier_LengthBounds(t *testing.T) {
	gen := &fakeGenerator{text: strings.Repeat("x", 40)}
	p := generativePipeline(gen, &eventRecorder{}, WithLengthBounds(5, 20))

	res := p.Reply(context.Background(), "hello", Context{})
	if res.Text != strings.Repeat("x", 20)+"..." {
		t.Errorf("got %q", res.Text)
	}
}
