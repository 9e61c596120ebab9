package adapter

import (
	"context"
	"strings"

	"github.com/heartline/heartline/internal/sentiment"
)

// toneGuidance maps an emotion hint to the system instruction sent with it.
var toneGuidance = map[sentiment.Hint]string{
	sentiment.HintLove:     "Answer with warm, openly affectionate words.",
	sentiment.HintCare:     "Answer with gentle concern for their wellbeing.",
	sentiment.HintHurt:     "Answer softly; comfort them and acknowledge the pain.",
	sentiment.HintJoy:      "Answer with bright, shared happiness.",
	sentiment.HintLonging:  "Answer with tender longing and reassurance that you are close.",
	sentiment.HintDevotion: "Answer with steady, faithful commitment.",
	sentiment.HintEmpathy:  "Answer with attentive, empathetic listening.",
}

// Generator turns an LLMAdapter into the generative responder used by the
// primary reply tier.
type Generator struct {
	llm         LLMAdapter
	maxTokens   int
	temperature float64
}

// NewGenerator wraps llm. maxTokens <= 0 lets the adapter pick its default.
func NewGenerator(llm LLMAdapter, maxTokens int, temperature float64) *Generator {
	return &Generator{llm: llm, maxTokens: maxTokens, temperature: temperature}
}

// Generate sends prompt with tone guidance for hint. An empty string means
// the model produced nothing usable.
func (g *Generator) Generate(ctx context.Context, prompt string, hint sentiment.Hint) (string, error) {
	guidance, ok := toneGuidance[hint]
	if !ok {
		guidance = toneGuidance[sentiment.HintEmpathy]
	}

	text, err := g.llm.Complete(ctx, CompletionRequest{
		SystemPrompt: "Stay in character as the companion described below. " + guidance,
		UserMessage:  prompt,
		MaxTokens:    g.maxTokens,
		Temperature:  g.temperature,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// Info reports the wrapped model.
func (g *Generator) Info() ModelInfo {
	return g.llm.Info()
}
