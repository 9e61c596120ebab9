// Package adapter provides a unified interface for the model providers behind
// the generative reply tier, plus the embedders used for semantic recall.
package adapter

import (
	"context"
	"fmt"
	"net/http"
)

// Provider name constants.
const (
	ProviderClaude     = "claude"
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
	ProviderOllama     = "ollama"
)

// CompletionRequest holds the parameters for a completion call.
type CompletionRequest struct {
	SystemPrompt string
	UserMessage  string
	Model        string
	MaxTokens    int
	Temperature  float64
}

// ModelInfo describes the capabilities of a model.
type ModelInfo struct {
	Name               string
	Provider           string
	MaxContextWindow   int
	EmbeddingDimension int // 0 if not an embedding model
}

// LLMAdapter is the common interface all provider adapters implement.
type LLMAdapter interface {
	// Complete sends a prompt and returns the full reply text.
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// Embed generates embeddings for a batch of texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Info returns metadata about the adapter/model.
	Info() ModelInfo
}

// Options selects and configures a provider.
type Options struct {
	Provider string
	Model    string
	APIKey   string // empty = read from env in the concrete adapter

	// OllamaHost and EmbedModel are used only by the ollama provider.
	OllamaHost string
	EmbedModel string

	// BaseURL overrides the provider endpoint. For openrouter it defaults to
	// the public OpenRouter API.
	BaseURL string
	Referer string
	Title   string

	HTTPClient *http.Client
}

// New constructs the LLMAdapter for the named provider.
func New(opts Options) (LLMAdapter, error) {
	switch opts.Provider {
	case ProviderClaude:
		return NewClaude(opts), nil
	case ProviderOpenAI:
		return NewOpenAI(opts), nil
	case ProviderOpenRouter:
		return NewOpenRouter(opts), nil
	case ProviderGemini:
		return NewGemini(opts), nil
	case ProviderOllama:
		if opts.OllamaHost == "" {
			opts.OllamaHost = "http://localhost:11434"
		}
		if opts.EmbedModel == "" {
			opts.EmbedModel = "nomic-embed-text"
		}
		return NewOllama(opts), nil
	default:
		return nil, fmt.Errorf("adapter: unknown provider %q; valid providers: claude, openai, openrouter, gemini, ollama", opts.Provider)
	}
}

func httpClient(opts Options) *http.Client {
	if opts.HTTPClient != nil {
		return opts.HTTPClient
	}
	return &http.Client{}
}
